package eval

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/sql"
)

type function struct {
	minArgs int
	maxArgs int // -1 for no limit
	fn      func(ev *Evaluator, args []core.Value) (core.Value, error)
}

var functions map[string]function

func init() {
	functions = map[string]function{
		"abs":               {1, 1, fnAbs},
		"coalesce":          {2, -1, fnCoalesce},
		"ifnull":            {2, 2, fnCoalesce},
		"nullif":            {2, 2, fnNullIf},
		"iif":               {3, 3, fnIif},
		"length":            {1, 1, fnLength},
		"lower":             {1, 1, fnLower},
		"upper":             {1, 1, fnUpper},
		"typeof":            {1, 1, fnTypeOf},
		"tointeger":         {1, 1, fnToInteger},
		"toreal":            {1, 1, fnToReal},
		"substr":            {2, 3, fnSubstr},
		"substring":         {2, 3, fnSubstr},
		"trim":              {1, 2, fnTrim},
		"ltrim":             {1, 2, fnLTrim},
		"rtrim":             {1, 2, fnRTrim},
		"hex":               {1, 1, fnHex},
		"max":               {2, -1, fnMax},
		"min":               {2, -1, fnMin},
		"random":            {0, 0, fnRandom},
		"current_time":      {0, 0, fnCurrentTime},
		"current_date":      {0, 0, fnCurrentDate},
		"current_timestamp": {0, 0, fnCurrentTimestamp},
	}
}

// nonDeterministic functions may return a different value on every call.
var nonDeterministic = map[string]bool{
	"random":            true,
	"current_time":      true,
	"current_date":      true,
	"current_timestamp": true,
}

func (ev *Evaluator) call(n sql.FuncCall, env Env) (core.Value, error) {
	f, ok := functions[n.Name]
	if !ok {
		return core.Null(), fmt.Errorf("%w: %s", ErrNoSuchFunction, n.Name)
	}
	if n.Star || len(n.Args) < f.minArgs || (f.maxArgs >= 0 && len(n.Args) > f.maxArgs) {
		if (n.Name == "max" || n.Name == "min") && len(n.Args) == 1 {
			return core.Null(), fmt.Errorf("aggregate %s() is not supported", n.Name)
		}
		return core.Null(), fmt.Errorf("%w to function %s()", ErrArguments, n.Name)
	}

	args := make([]core.Value, len(n.Args))
	for i, arg := range n.Args {
		v, err := ev.Eval(arg, env)
		if err != nil {
			return core.Null(), err
		}
		args[i] = v
	}
	return f.fn(ev, args)
}

func fnAbs(_ *Evaluator, args []core.Value) (core.Value, error) {
	v := core.Numeric(args[0])
	switch v.Kind() {
	case core.KindNull:
		return v, nil
	case core.KindInteger:
		if v.Int() == math.MinInt64 {
			return core.Null(), ErrOverflow
		}
		if v.Int() < 0 {
			return core.Integer(-v.Int()), nil
		}
		return v, nil
	default:
		return core.Real(math.Abs(v.Float())), nil
	}
}

func fnCoalesce(_ *Evaluator, args []core.Value) (core.Value, error) {
	for _, v := range args {
		if !v.IsNull() {
			return v, nil
		}
	}
	return core.Null(), nil
}

func fnNullIf(_ *Evaluator, args []core.Value) (core.Value, error) {
	if !args[0].IsNull() && !args[1].IsNull() && core.Compare(args[0], args[1]) == 0 {
		return core.Null(), nil
	}
	return args[0], nil
}

func fnIif(_ *Evaluator, args []core.Value) (core.Value, error) {
	if core.IsTruthy(args[0]) {
		return args[1], nil
	}
	return args[2], nil
}

func fnLength(_ *Evaluator, args []core.Value) (core.Value, error) {
	v := args[0]
	switch v.Kind() {
	case core.KindNull:
		return v, nil
	case core.KindBlob:
		return core.Integer(int64(len(v.Str()))), nil
	default:
		return core.Integer(int64(utf8.RuneCountInString(v.String()))), nil
	}
}

func mapASCII(s string, from, to byte) string {
	b := []byte(s)
	for i, ch := range b {
		if from <= ch && ch <= from+25 {
			b[i] = ch - from + to
		}
	}
	return string(b)
}

func fnLower(_ *Evaluator, args []core.Value) (core.Value, error) {
	if args[0].IsNull() {
		return args[0], nil
	}
	return core.Text(mapASCII(args[0].String(), 'A', 'a')), nil
}

func fnUpper(_ *Evaluator, args []core.Value) (core.Value, error) {
	if args[0].IsNull() {
		return args[0], nil
	}
	return core.Text(mapASCII(args[0].String(), 'a', 'A')), nil
}

func fnTypeOf(_ *Evaluator, args []core.Value) (core.Value, error) {
	return core.Text(args[0].TypeOf()), nil
}

func fnToInteger(_ *Evaluator, args []core.Value) (core.Value, error) {
	return core.ToInteger(args[0]), nil
}

func fnToReal(_ *Evaluator, args []core.Value) (core.Value, error) {
	return core.ToReal(args[0]), nil
}

// fnSubstr counts characters for text and bytes for blobs. Positions are 1-based; a
// negative start counts from the end and a negative length takes characters before the
// start.
func fnSubstr(_ *Evaluator, args []core.Value) (core.Value, error) {
	for _, a := range args {
		if a.IsNull() {
			return core.Null(), nil
		}
	}

	v := args[0]
	isBlob := v.Kind() == core.KindBlob
	var units []string
	if isBlob {
		for _, b := range []byte(v.Str()) {
			units = append(units, string([]byte{b}))
		}
	} else {
		for _, r := range v.String() {
			units = append(units, string(r))
		}
	}
	size := int64(len(units))

	start := truncate(core.Numeric(args[1]))
	length := int64(math.MaxInt32)
	if len(args) == 3 {
		length = truncate(core.Numeric(args[2]))
	}
	negative := length < 0
	if negative {
		length = -length
	}

	switch {
	case start < 0:
		start += size
		if start < 0 {
			if negative {
				length = 0
			} else {
				length += start
			}
			start = 0
		}
	case start > 0:
		start--
	case length > 0:
		length--
	}

	if negative {
		start -= length
		if start < 0 {
			length += start
			start = 0
		}
	}
	if start > size {
		start = size
	}
	if length < 0 {
		length = 0
	}
	if start+length > size {
		length = size - start
	}
	end := start + length

	out := strings.Join(units[start:end], "")
	if isBlob {
		return core.Blob([]byte(out)), nil
	}
	return core.Text(out), nil
}

func trimArgs(args []core.Value) (string, string, bool) {
	if args[0].IsNull() || (len(args) == 2 && args[1].IsNull()) {
		return "", "", false
	}
	cutset := " "
	if len(args) == 2 {
		cutset = args[1].String()
	}
	return args[0].String(), cutset, true
}

func fnTrim(_ *Evaluator, args []core.Value) (core.Value, error) {
	s, cutset, ok := trimArgs(args)
	if !ok {
		return core.Null(), nil
	}
	return core.Text(strings.Trim(s, cutset)), nil
}

func fnLTrim(_ *Evaluator, args []core.Value) (core.Value, error) {
	s, cutset, ok := trimArgs(args)
	if !ok {
		return core.Null(), nil
	}
	return core.Text(strings.TrimLeft(s, cutset)), nil
}

func fnRTrim(_ *Evaluator, args []core.Value) (core.Value, error) {
	s, cutset, ok := trimArgs(args)
	if !ok {
		return core.Null(), nil
	}
	return core.Text(strings.TrimRight(s, cutset)), nil
}

func fnHex(_ *Evaluator, args []core.Value) (core.Value, error) {
	if args[0].IsNull() {
		return core.Text(""), nil
	}
	return core.Text(strings.ToUpper(hex.EncodeToString([]byte(args[0].String())))), nil
}

func extreme(args []core.Value, want int) core.Value {
	best := args[0]
	for _, v := range args {
		if v.IsNull() {
			return core.Null()
		}
		if core.Compare(v, best)*want > 0 {
			best = v
		}
	}
	return best
}

func fnMax(_ *Evaluator, args []core.Value) (core.Value, error) {
	return extreme(args, 1), nil
}

func fnMin(_ *Evaluator, args []core.Value) (core.Value, error) {
	return extreme(args, -1), nil
}

func fnRandom(_ *Evaluator, _ []core.Value) (core.Value, error) {
	return core.Integer(rand.Int64() - rand.Int64()), nil
}

func fnCurrentTime(ev *Evaluator, _ []core.Value) (core.Value, error) {
	return core.Text(ev.Now().UTC().Format("15:04:05")), nil
}

func fnCurrentDate(ev *Evaluator, _ []core.Value) (core.Value, error) {
	return core.Text(ev.Now().UTC().Format("2006-01-02")), nil
}

func fnCurrentTimestamp(ev *Evaluator, _ []core.Value) (core.Value, error) {
	return core.Text(ev.Now().UTC().Format("2006-01-02 15:04:05")), nil
}
