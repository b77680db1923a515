// Package eval evaluates parsed SQL expressions against a row.
//
// Evaluation follows SQLite's rules: three-valued logic, comparison affinity between a
// column and a literal, integer arithmetic that overflows into reals, and NULL
// propagation through operators and most functions.
package eval

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/nickyhof/StrictDB/affinity"
	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/numeric"
	"github.com/nickyhof/StrictDB/sql"
)

var (
	ErrNoSuchFunction = errors.New("no such function")
	ErrArguments      = errors.New("wrong number of arguments")
	ErrOverflow       = errors.New("integer overflow")
)

// Binding is a resolved column reference.
type Binding struct {
	Value    core.Value
	Affinity affinity.Affinity
	NoCase   bool
}

// Env resolves column references while an expression is evaluated.
type Env interface {
	Lookup(ref sql.ColumnRef) (Binding, error)
}

type Evaluator struct {
	Config numeric.Config
	Now    func() time.Time
}

func New(config numeric.Config, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{Config: config, Now: now}
}

// Eval evaluates e. env may be nil when e references no columns.
func (ev *Evaluator) Eval(e sql.Expr, env Env) (core.Value, error) {
	v, _, err := ev.eval(e, env)
	return v, err
}

// Truth evaluates e as a WHERE or CHECK condition. The second result is false when the
// condition is NULL.
func (ev *Evaluator) Truth(e sql.Expr, env Env) (value bool, known bool, err error) {
	v, err := ev.Eval(e, env)
	if err != nil {
		return false, false, err
	}
	if v.IsNull() {
		return false, false, nil
	}
	return core.IsTruthy(v), true, nil
}

// eval returns the value together with the affinity it carries into a comparison:
// column references and CASTs have one, everything else has none.
func (ev *Evaluator) eval(e sql.Expr, env Env) (core.Value, affinity.Affinity, error) {
	switch n := e.(type) {
	case sql.Literal:
		return n.Value, affinity.None, nil

	case sql.ColumnRef:
		if env == nil {
			return core.Null(), affinity.None, core.UnknownColumnError(refName(n))
		}
		b, err := env.Lookup(n)
		if err != nil {
			return core.Null(), affinity.None, err
		}
		return b.Value, b.Affinity, nil

	case sql.CollateExpr:
		return ev.eval(n.X, env)

	case sql.CastExpr:
		v, err := ev.Eval(n.X, env)
		if err != nil {
			return core.Null(), affinity.None, err
		}
		target := affinity.Of(n.Type)
		return Cast(v, target), target, nil

	case sql.UnaryExpr:
		v, err := ev.Eval(n.X, env)
		if err != nil {
			return core.Null(), affinity.None, err
		}
		r, err := ev.unary(n.Op, v)
		return r, affinity.None, err

	case sql.BinaryExpr:
		r, err := ev.binary(n, env)
		return r, affinity.None, err

	case sql.IsNullExpr:
		v, err := ev.Eval(n.X, env)
		if err != nil {
			return core.Null(), affinity.None, err
		}
		return core.Bool(v.IsNull() != n.Not), affinity.None, nil

	case sql.BetweenExpr:
		r, err := ev.between(n, env)
		return r, affinity.None, err

	case sql.InExpr:
		r, err := ev.in(n, env)
		return r, affinity.None, err

	case sql.LikeExpr:
		r, err := ev.like(n, env)
		return r, affinity.None, err

	case sql.CaseExpr:
		r, err := ev.caseExpr(n, env)
		return r, affinity.None, err

	case sql.FuncCall:
		r, err := ev.call(n, env)
		return r, affinity.None, err

	default:
		return core.Null(), affinity.None, fmt.Errorf("unsupported expression %T", e)
	}
}

func refName(ref sql.ColumnRef) string {
	if ref.Table != "" {
		return ref.Table + "." + ref.Name
	}
	return ref.Name
}

func (ev *Evaluator) unary(op string, v core.Value) (core.Value, error) {
	switch op {
	case "NOT":
		if v.IsNull() {
			return v, nil
		}
		return core.Bool(!core.IsTruthy(v)), nil
	case "+":
		return v, nil
	}

	// negation
	n := core.Numeric(v)
	switch n.Kind() {
	case core.KindNull:
		return n, nil
	case core.KindInteger:
		if n.Int() == math.MinInt64 {
			if ev.Config.HighPrecision {
				return core.WideReal(numeric.Wide('-', 0, n.Int())), nil
			}
			return core.Real(numeric.TwoPow63), nil
		}
		return core.Integer(-n.Int()), nil
	default:
		if w := n.Wide(); w != nil && ev.Config.HighPrecision {
			return core.WideReal(new(big.Float).SetPrec(numeric.WidePrecision).Neg(w)), nil
		}
		return core.Real(-n.Float()), nil
	}
}

func (ev *Evaluator) binary(n sql.BinaryExpr, env Env) (core.Value, error) {
	switch n.Op {
	case "AND", "OR":
		return ev.logical(n, env)
	}

	left, la, err := ev.eval(n.Left, env)
	if err != nil {
		return core.Null(), err
	}
	right, ra, err := ev.eval(n.Right, env)
	if err != nil {
		return core.Null(), err
	}

	switch n.Op {
	case "+", "-", "*", "/", "%":
		return ev.arith(n.Op[0], left, right), nil
	case "||":
		if left.IsNull() || right.IsNull() {
			return core.Null(), nil
		}
		return core.Text(left.String() + right.String()), nil
	case "IS", "IS NOT":
		same := left.IsNull() && right.IsNull()
		if !left.IsNull() && !right.IsNull() {
			l, r := affinity.PrepareComparison(left, right, la, ra)
			same = ev.compare(l, r, n, env) == 0
		}
		return core.Bool(same == (n.Op == "IS")), nil
	}

	if left.IsNull() || right.IsNull() {
		return core.Null(), nil
	}
	l, r := affinity.PrepareComparison(left, right, la, ra)
	c := ev.compare(l, r, n, env)

	switch n.Op {
	case "=":
		return core.Bool(c == 0), nil
	case "!=":
		return core.Bool(c != 0), nil
	case "<":
		return core.Bool(c < 0), nil
	case "<=":
		return core.Bool(c <= 0), nil
	case ">":
		return core.Bool(c > 0), nil
	case ">=":
		return core.Bool(c >= 0), nil
	}
	return core.Null(), fmt.Errorf("unsupported operator %s", n.Op)
}

// compare applies the collation of the comparison: an explicit COLLATE on either side
// wins, then the collation of a column on the left, then on the right.
func (ev *Evaluator) compare(l, r core.Value, n sql.BinaryExpr, env Env) int {
	if ev.noCase(n.Left, n.Right, env) {
		return core.CompareNoCase(l, r)
	}
	return core.Compare(l, r)
}

func (ev *Evaluator) noCase(left, right sql.Expr, env Env) bool {
	for _, side := range []sql.Expr{left, right} {
		if c, ok := side.(sql.CollateExpr); ok {
			return c.Collation == "NOCASE"
		}
	}
	for _, side := range []sql.Expr{left, right} {
		if ref, ok := side.(sql.ColumnRef); ok && env != nil {
			if b, err := env.Lookup(ref); err == nil {
				return b.NoCase
			}
		}
	}
	return false
}

func (ev *Evaluator) logical(n sql.BinaryExpr, env Env) (core.Value, error) {
	left, err := ev.Eval(n.Left, env)
	if err != nil {
		return core.Null(), err
	}
	lt := core.IsTruthy(left)

	if n.Op == "AND" && !left.IsNull() && !lt {
		return core.Integer(0), nil
	}
	if n.Op == "OR" && lt {
		return core.Integer(1), nil
	}

	right, err := ev.Eval(n.Right, env)
	if err != nil {
		return core.Null(), err
	}
	rt := core.IsTruthy(right)

	if n.Op == "AND" {
		switch {
		case !right.IsNull() && !rt:
			return core.Integer(0), nil
		case left.IsNull() || right.IsNull():
			return core.Null(), nil
		default:
			return core.Integer(1), nil
		}
	}

	switch {
	case rt:
		return core.Integer(1), nil
	case left.IsNull() || right.IsNull():
		return core.Null(), nil
	default:
		return core.Integer(0), nil
	}
}

// arith applies + - * / % to the numeric readings of a and b. Integer results that
// overflow become reals; division or remainder by zero is NULL.
func (ev *Evaluator) arith(op byte, a, b core.Value) core.Value {
	if a.IsNull() || b.IsNull() {
		return core.Null()
	}
	a, b = core.Numeric(a), core.Numeric(b)

	if op == '%' {
		return remainder(a, b)
	}

	if a.Kind() == core.KindInteger && b.Kind() == core.KindInteger {
		x, y := a.Int(), b.Int()
		var (
			r  int64
			ok bool
		)
		switch op {
		case '+':
			r, ok = numeric.AddInt64(x, y)
		case '-':
			r, ok = numeric.SubInt64(x, y)
		case '*':
			r, ok = numeric.MulInt64(x, y)
		case '/':
			if y == 0 {
				return core.Null()
			}
			r, ok = numeric.DivInt64(x, y)
		}
		if ok {
			return core.Integer(r)
		}
		if ev.Config.HighPrecision {
			return core.WideReal(numeric.Wide(op, x, y))
		}
		return core.Real(floatOp(op, float64(x), float64(y)))
	}

	if op == '/' && b.Float() == 0 {
		return core.Null()
	}
	if ev.Config.HighPrecision && (a.Wide() != nil || b.Wide() != nil) {
		if w := wideOp(op, a, b); w != nil {
			return core.WideReal(w)
		}
	}
	return core.Real(floatOp(op, a.Float(), b.Float()))
}

func floatOp(op byte, x, y float64) float64 {
	switch op {
	case '+':
		return x + y
	case '-':
		return x - y
	case '*':
		return x * y
	default:
		return x / y
	}
}

func exactOf(v core.Value) *big.Float {
	if w := v.Wide(); w != nil {
		return w
	}
	f := new(big.Float).SetPrec(numeric.WidePrecision)
	if v.Kind() == core.KindInteger {
		return f.SetInt64(v.Int())
	}
	return f.SetFloat64(v.Float())
}

// wideOp carries a shadow through another operation. It returns nil when either side
// is infinite.
func wideOp(op byte, a, b core.Value) *big.Float {
	if math.IsInf(a.Float(), 0) || math.IsInf(b.Float(), 0) {
		return nil
	}
	x, y := exactOf(a), exactOf(b)
	z := new(big.Float).SetPrec(numeric.WidePrecision)
	switch op {
	case '+':
		return z.Add(x, y)
	case '-':
		return z.Sub(x, y)
	case '*':
		return z.Mul(x, y)
	default:
		return z.Quo(x, y)
	}
}

// remainder truncates both operands to integers. The result is real when either
// operand was real.
func remainder(a, b core.Value) core.Value {
	x, y := truncate(a), truncate(b)
	if y == 0 {
		return core.Null()
	}
	if y == -1 {
		y = 1
	}
	r := x % y
	if a.Kind() == core.KindReal || b.Kind() == core.KindReal {
		return core.Real(float64(r))
	}
	return core.Integer(r)
}

// truncate converts a number to int64 the way CAST does, saturating at the bounds.
func truncate(v core.Value) int64 {
	if v.Kind() == core.KindInteger {
		return v.Int()
	}
	f := v.Float()
	switch {
	case math.IsNaN(f):
		return 0
	case f >= numeric.TwoPow63:
		return math.MaxInt64
	case f < -numeric.TwoPow63:
		return math.MinInt64
	default:
		return int64(f)
	}
}

func (ev *Evaluator) between(n sql.BetweenExpr, env Env) (core.Value, error) {
	ge := sql.BinaryExpr{Op: ">=", Left: n.X, Right: n.Low}
	le := sql.BinaryExpr{Op: "<=", Left: n.X, Right: n.High}
	r, err := ev.logical(sql.BinaryExpr{Op: "AND", Left: ge, Right: le}, env)
	if err != nil || !n.Not {
		return r, err
	}
	return ev.unary("NOT", r)
}

func (ev *Evaluator) in(n sql.InExpr, env Env) (core.Value, error) {
	x, xa, err := ev.eval(n.X, env)
	if err != nil {
		return core.Null(), err
	}
	if len(n.List) == 0 {
		return core.Bool(n.Not), nil
	}
	if x.IsNull() {
		return core.Null(), nil
	}

	sawNull := false
	for _, item := range n.List {
		v, va, err := ev.eval(item, env)
		if err != nil {
			return core.Null(), err
		}
		if v.IsNull() {
			sawNull = true
			continue
		}
		l, r := affinity.PrepareComparison(x, v, xa, va)
		if ev.compare(l, r, sql.BinaryExpr{Left: n.X, Right: item}, env) == 0 {
			return core.Bool(!n.Not), nil
		}
	}

	if sawNull {
		return core.Null(), nil
	}
	return core.Bool(n.Not), nil
}

func (ev *Evaluator) like(n sql.LikeExpr, env Env) (core.Value, error) {
	x, err := ev.Eval(n.X, env)
	if err != nil {
		return core.Null(), err
	}
	pattern, err := ev.Eval(n.Pattern, env)
	if err != nil {
		return core.Null(), err
	}

	var escape rune
	if n.Escape != nil {
		e, err := ev.Eval(n.Escape, env)
		if err != nil {
			return core.Null(), err
		}
		if e.IsNull() {
			return core.Null(), nil
		}
		runes := []rune(e.String())
		if len(runes) != 1 {
			return core.Null(), errors.New("ESCAPE expression must be a single character")
		}
		escape = runes[0]
	}

	if x.IsNull() || pattern.IsNull() {
		return core.Null(), nil
	}

	matched := Like(pattern.String(), x.String(), escape)
	return core.Bool(matched != n.Not), nil
}

func (ev *Evaluator) caseExpr(n sql.CaseExpr, env Env) (core.Value, error) {
	var operand core.Value
	var oa affinity.Affinity
	if n.Operand != nil {
		var err error
		operand, oa, err = ev.eval(n.Operand, env)
		if err != nil {
			return core.Null(), err
		}
	}

	for _, w := range n.Whens {
		when, wa, err := ev.eval(w.When, env)
		if err != nil {
			return core.Null(), err
		}

		var hit bool
		if n.Operand != nil {
			if !operand.IsNull() && !when.IsNull() {
				l, r := affinity.PrepareComparison(operand, when, oa, wa)
				hit = core.Compare(l, r) == 0
			}
		} else {
			hit = core.IsTruthy(when)
		}

		if hit {
			return ev.Eval(w.Then, env)
		}
	}

	if n.Else != nil {
		return ev.Eval(n.Else, env)
	}
	return core.Null(), nil
}

// Cast converts v to the storage class implied by an affinity, as CAST(v AS type).
func Cast(v core.Value, target affinity.Affinity) core.Value {
	if v.IsNull() {
		return v
	}

	switch target {
	case affinity.Integer:
		n := core.Numeric(v)
		if n.Kind() == core.KindInteger {
			return n
		}
		return core.Integer(truncate(n))

	case affinity.Real:
		return core.Real(core.Numeric(v).Float())

	case affinity.Numeric:
		if v.IsNumeric() {
			return v
		}
		n := core.Numeric(v)
		if n.Kind() == core.KindReal {
			if i, ok := numeric.FloatToInt64(n.Float()); ok {
				return core.Integer(i)
			}
		}
		return n

	case affinity.Text:
		return core.Text(v.String())

	default:
		return core.Blob([]byte(v.String()))
	}
}
