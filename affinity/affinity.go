// Package affinity maps declared column types to affinities and applies the STRICT
// table coercion rules that decide whether a value may be stored in a column.
package affinity

import (
	"strings"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/numeric"
)

type Affinity uint8

const (
	// None is the affinity of expressions that are not column references.
	None Affinity = iota
	Blob
	Text
	Numeric
	Integer
	Real
	Any
)

func (a Affinity) String() string {
	switch a {
	case Blob:
		return "BLOB"
	case Text:
		return "TEXT"
	case Numeric:
		return "NUMERIC"
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Any:
		return "ANY"
	default:
		return "NONE"
	}
}

// IsNumeric reports whether a belongs to the numeric family (INTEGER, REAL, NUMERIC).
func (a Affinity) IsNumeric() bool {
	return a == Numeric || a == Integer || a == Real
}

// Of derives the affinity of a declared type using the substring rules of ordinary
// tables. An empty type has BLOB affinity.
func Of(declType string) Affinity {
	upper := strings.ToUpper(declType)
	switch {
	case strings.Contains(upper, "INT"):
		return Integer
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "CLOB"), strings.Contains(upper, "TEXT"):
		return Text
	case strings.Contains(upper, "BLOB"), strings.TrimSpace(upper) == "":
		return Blob
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"), strings.Contains(upper, "DOUB"):
		return Real
	default:
		return Numeric
	}
}

// StrictType resolves a declared type in a STRICT table. Only the exact type names
// INT, INTEGER, REAL, TEXT, BLOB, ANY and NUMERIC are accepted.
func StrictType(declType string) (Affinity, bool) {
	switch strings.ToUpper(strings.TrimSpace(declType)) {
	case "INT", "INTEGER":
		return Integer, true
	case "REAL":
		return Real, true
	case "TEXT":
		return Text, true
	case "BLOB":
		return Blob, true
	case "ANY":
		return Any, true
	case "NUMERIC":
		return Numeric, true
	default:
		return None, false
	}
}

// ForColumn returns the affinity a column uses when its value is compared.
func ForColumn(col core.Column, strict bool) Affinity {
	if strict {
		if a, ok := StrictType(col.Type); ok {
			if a == Any {
				return Blob
			}
			return a
		}
	}
	return Of(col.Type)
}

// Coerce converts v for storage in col. Non-STRICT tables store every value as given.
// NULL always passes; NOT NULL is checked by the caller afterwards.
func Coerce(v core.Value, col core.Column, strict bool, table string) (core.Value, error) {
	if !strict || v.IsNull() {
		return v, nil
	}

	target, ok := StrictType(col.Type)
	if !ok {
		return v, core.Errorf(core.ErrSchema, "unknown datatype for %s.%s: \"%s\"", table, col.Name, col.Type)
	}

	mismatch := func() (core.Value, error) {
		return v, core.TypeMismatchError(v.Kind(), strings.ToUpper(col.Type), table, col.Name)
	}

	switch target {
	case Any:
		return v, nil

	case Integer:
		switch v.Kind() {
		case core.KindInteger:
			return v, nil
		case core.KindReal, core.KindText:
			if i := core.ToInteger(v); !i.IsNull() {
				return i, nil
			}
		}
		return mismatch()

	case Real:
		switch v.Kind() {
		case core.KindReal:
			return v, nil
		case core.KindInteger:
			return core.Real(float64(v.Int())), nil
		case core.KindText:
			if f, ok := numeric.ParseReal(v.Str()); ok {
				return core.Real(f), nil
			}
		}
		return mismatch()

	case Text:
		switch v.Kind() {
		case core.KindText:
			return v, nil
		case core.KindInteger, core.KindReal:
			return core.Text(v.String()), nil
		}
		return mismatch()

	case Blob:
		if v.Kind() == core.KindBlob {
			return v, nil
		}
		return mismatch()

	case Numeric:
		switch v.Kind() {
		case core.KindInteger:
			return v, nil
		case core.KindReal:
			if i, ok := numeric.FloatToInt64(v.Float()); ok {
				return core.Integer(i), nil
			}
			return v, nil
		case core.KindText:
			if n, ok := toNumeric(v.Str()); ok {
				return n, nil
			}
		}
		return mismatch()
	}

	return mismatch()
}

// toNumeric converts well-formed numeric text, preferring an integer when the value is
// integral and in range.
func toNumeric(s string) (core.Value, bool) {
	i, f, isInt, ok := numeric.ParseNumeric(s)
	if !ok {
		return core.Null(), false
	}
	if isInt {
		return core.Integer(i), true
	}
	if n, exact := numeric.FloatToInt64(f); exact {
		return core.Integer(n), true
	}
	return core.Real(f), true
}

// ApplyNumeric converts text that looks like a number, leaving everything else alone.
func ApplyNumeric(v core.Value) core.Value {
	if v.Kind() != core.KindText {
		return v
	}
	i, f, isInt, ok := numeric.ParseNumeric(v.Str())
	if !ok {
		return v
	}
	if isInt {
		return core.Integer(i)
	}
	return core.Real(f)
}

// ApplyText renders numbers as text.
func ApplyText(v core.Value) core.Value {
	if v.IsNumeric() {
		return core.Text(v.String())
	}
	return v
}

// PrepareComparison applies comparison affinity to both operands: a numeric-affinity
// operand converts a TEXT, BLOB or affinity-less partner to a number; a TEXT-affinity
// operand renders an affinity-less partner as text.
func PrepareComparison(left, right core.Value, la, ra Affinity) (core.Value, core.Value) {
	switch {
	case la.IsNumeric() && !ra.IsNumeric():
		right = ApplyNumeric(right)
	case ra.IsNumeric() && !la.IsNumeric():
		left = ApplyNumeric(left)
	case la == Text && ra == None:
		right = ApplyText(right)
	case ra == Text && la == None:
		left = ApplyText(left)
	}
	return left, right
}
