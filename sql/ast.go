package sql

import (
	"github.com/nickyhof/StrictDB/core"
)

// Expr is a parsed SQL expression.
type Expr interface {
	exprNode()
}

type Literal struct {
	Value core.Value
}

// ColumnRef names a column, optionally qualified by its table.
type ColumnRef struct {
	Table string
	Name  string
}

type UnaryExpr struct {
	Op string // "-", "+", "NOT"
	X  Expr
}

// BinaryExpr covers arithmetic, concatenation, comparison, IS / IS NOT and AND / OR.
// Op holds the canonical operator: "+", "-", "*", "/", "%", "||", "=", "!=", "<", "<=",
// ">", ">=", "IS", "IS NOT", "AND", "OR".
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

type IsNullExpr struct {
	X   Expr
	Not bool
}

type BetweenExpr struct {
	X    Expr
	Low  Expr
	High Expr
	Not  bool
}

type InExpr struct {
	X    Expr
	List []Expr
	Not  bool
}

type LikeExpr struct {
	X       Expr
	Pattern Expr
	Escape  Expr
	Not     bool
}

type CastExpr struct {
	X    Expr
	Type string
}

type CollateExpr struct {
	X         Expr
	Collation string
}

type WhenClause struct {
	When Expr
	Then Expr
}

type CaseExpr struct {
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

// FuncCall is a scalar function call. Name is lower case. CURRENT_TIME, CURRENT_DATE
// and CURRENT_TIMESTAMP parse as calls without arguments.
type FuncCall struct {
	Name string
	Args []Expr
	Star bool
}

func (Literal) exprNode()     {}
func (ColumnRef) exprNode()   {}
func (UnaryExpr) exprNode()   {}
func (BinaryExpr) exprNode()  {}
func (IsNullExpr) exprNode()  {}
func (BetweenExpr) exprNode() {}
func (InExpr) exprNode()      {}
func (LikeExpr) exprNode()    {}
func (CastExpr) exprNode()    {}
func (CollateExpr) exprNode() {}
func (CaseExpr) exprNode()    {}
func (FuncCall) exprNode()    {}

// Walk calls fn for e and every expression nested in it, depth first. Returning false
// from fn skips the children of that node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}

	switch n := e.(type) {
	case UnaryExpr:
		Walk(n.X, fn)
	case BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case IsNullExpr:
		Walk(n.X, fn)
	case BetweenExpr:
		Walk(n.X, fn)
		Walk(n.Low, fn)
		Walk(n.High, fn)
	case InExpr:
		Walk(n.X, fn)
		for _, item := range n.List {
			Walk(item, fn)
		}
	case LikeExpr:
		Walk(n.X, fn)
		Walk(n.Pattern, fn)
		Walk(n.Escape, fn)
	case CastExpr:
		Walk(n.X, fn)
	case CollateExpr:
		Walk(n.X, fn)
	case CaseExpr:
		Walk(n.Operand, fn)
		for _, w := range n.Whens {
			Walk(w.When, fn)
			Walk(w.Then, fn)
		}
		Walk(n.Else, fn)
	case FuncCall:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	}
}

// ColumnRefs returns every column reference in e, in source order.
func ColumnRefs(e Expr) []ColumnRef {
	var refs []ColumnRef
	Walk(e, func(node Expr) bool {
		if ref, ok := node.(ColumnRef); ok {
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}

// ResultColumn is one item of a SELECT or RETURNING list. Text is the expression as
// written and names the output column when there is no alias.
type ResultColumn struct {
	Expr  Expr
	Alias string
	Star  bool
	Text  string
}

// Name returns the output column name.
func (rc ResultColumn) Name() string {
	if rc.Alias != "" {
		return rc.Alias
	}
	if ref, ok := rc.Expr.(ColumnRef); ok {
		return ref.Name
	}
	return rc.Text
}
