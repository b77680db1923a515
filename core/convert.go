package core

import (
	"math"

	"github.com/nickyhof/StrictDB/numeric"
)

// ToInteger implements tointeger(). It never fails: anything that is not exactly
// representable as an int64 yields NULL.
func ToInteger(v Value) Value {
	switch v.kind {
	case KindInteger:
		return v
	case KindReal:
		if v.wide != nil {
			if i, ok := numeric.WideToInt64(v.wide); ok {
				return Integer(i)
			}
			return Null()
		}
		if i, ok := numeric.FloatToInt64(v.f); ok {
			return Integer(i)
		}
		return Null()
	case KindText:
		if i, ok := numeric.ParseInteger(v.s); ok {
			return Integer(i)
		}
		return Null()
	default:
		return Null()
	}
}

// ToReal implements toreal(). Integers round to the nearest double; magnitudes beyond
// the double range become infinities.
func ToReal(v Value) Value {
	switch v.kind {
	case KindInteger:
		return Real(float64(v.i))
	case KindReal:
		if math.IsNaN(v.f) {
			return Null()
		}
		return Real(v.f)
	case KindText:
		if f, ok := numeric.ParseReal(v.s); ok {
			return Real(f)
		}
		return Null()
	default:
		return Null()
	}
}

// Numeric reads v as a number the way arithmetic does: text and blobs contribute their
// numeric prefix, NULL stays NULL.
func Numeric(v Value) Value {
	switch v.kind {
	case KindInteger, KindReal, KindNull:
		return v
	default:
		i, f, isInt, _ := numeric.Prefix(v.s)
		if isInt {
			return Integer(i)
		}
		return Real(f)
	}
}
