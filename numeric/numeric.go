// Package numeric implements the numeric grammar and boundary rules shared by the
// value model, the affinity resolver and the expression evaluator.
//
// Two grammars exist. The strict grammar (ParseInteger, ParseReal) accepts a whole
// string and nothing else: an optional leading '-', ASCII digits and, for reals, a
// decimal point and exponent. It backs tointeger/toreal and STRICT coercion. The
// prefix grammar (Prefix) mirrors how SQL arithmetic reads a number off the front of
// arbitrary text and never fails.
//
// # Precision
//
// Integer arithmetic that overflows int64 produces a real. With Config.HighPrecision
// the evaluator also keeps the exact result rounded to a 64-bit mantissa (the width of
// an x87 long double), so boundary checks such as "is this within int64" see
// -9223372036854775809 rather than its double rounding -9223372036854775808.
package numeric

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	// TwoPow63 is 2^63, the first double above the int64 range.
	TwoPow63 = 9223372036854775808.0

	// WidePrecision is the mantissa width used for overflow shadows.
	WidePrecision = 64
)

type Config struct {
	// HighPrecision keeps an extended-precision shadow of overflowed integer
	// arithmetic. Boundary conversions consult the shadow when present.
	HighPrecision bool
}

func DefaultConfig() Config {
	return Config{HighPrecision: true}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// ParseInteger parses s under the strict integer grammar: an optional '-' followed by
// one or more ASCII digits. Values outside the int64 range are rejected.
func ParseInteger(s string) (int64, bool) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if !isDigit(digits[i]) {
			return 0, false
		}
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsRealLiteral reports whether s matches the strict real grammar:
// -?(digits[.digits]|.digits)([eE][+-]?digits)?
func IsRealLiteral(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}

	intDigits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		intDigits++
	}

	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			fracDigits++
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expDigits := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			expDigits++
		}
		if expDigits == 0 {
			return false
		}
	}

	return i == len(s)
}

// ParseReal parses s under the strict real grammar. Magnitudes beyond the double
// range saturate to ±Inf.
func ParseReal(s string) (float64, bool) {
	if !IsRealLiteral(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// FloatToInt64 converts f when it is integral and inside the int64 range. The lower
// bound -2^63 is representable and accepted; 2^63 is not.
func FloatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	if f < -TwoPow63 || f >= TwoPow63 {
		return 0, false
	}
	return int64(f), true
}

// WideToInt64 is FloatToInt64 for an extended-precision shadow.
func WideToInt64(w *big.Float) (int64, bool) {
	if w == nil || w.IsInf() || !w.IsInt() {
		return 0, false
	}
	v, acc := w.Int64()
	if acc != big.Exact {
		return 0, false
	}
	return v, true
}

// Prefix reads the longest numeric prefix of s after leading whitespace, the way SQL
// arithmetic and CAST interpret text. ok is false when no digits were found, in which
// case the value is zero. Integer-looking prefixes that overflow int64 become reals.
func Prefix(s string) (i int64, f float64, isInt bool, ok bool) {
	p := 0
	for p < len(s) && isSpace(s[p]) {
		p++
	}
	start := p
	if p < len(s) && (s[p] == '+' || s[p] == '-') {
		p++
	}

	digits := 0
	for p < len(s) && isDigit(s[p]) {
		p++
		digits++
	}

	fractional := false
	if p < len(s) && s[p] == '.' {
		q := p + 1
		frac := 0
		for q < len(s) && isDigit(s[q]) {
			q++
			frac++
		}
		if digits > 0 || frac > 0 {
			p = q
			digits += frac
			fractional = true
		}
	}
	if digits == 0 {
		return 0, 0, true, false
	}

	if p < len(s) && (s[p] == 'e' || s[p] == 'E') {
		q := p + 1
		if q < len(s) && (s[q] == '+' || s[q] == '-') {
			q++
		}
		exp := 0
		for q < len(s) && isDigit(s[q]) {
			q++
			exp++
		}
		if exp > 0 {
			p = q
			fractional = true
		}
	}

	text := s[start:p]
	if !fractional {
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return v, float64(v), true, true
		}
	}

	f, _ = strconv.ParseFloat(text, 64)
	return 0, f, false, true
}

// ParseNumeric reports whether the whole of s (ignoring surrounding whitespace) is a
// number, as numeric affinity requires. A leading '+' is accepted here.
func ParseNumeric(s string) (i int64, f float64, isInt bool, ok bool) {
	trimmed := strings.TrimFunc(s, func(r rune) bool {
		return r < 128 && isSpace(byte(r))
	})
	if trimmed == "" {
		return 0, 0, false, false
	}

	body := strings.TrimPrefix(trimmed, "+")
	if body != trimmed && strings.HasPrefix(body, "-") {
		return 0, 0, false, false
	}

	if v, valid := ParseInteger(body); valid {
		return v, float64(v), true, true
	}
	if v, valid := ParseReal(body); valid {
		return 0, v, false, true
	}
	return 0, 0, false, false
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

// FormatReal renders f in the canonical text form: integral values below 1e15 get a
// trailing ".0", everything else uses the shortest round-tripping representation with
// a mantissa that always carries a decimal point.
func FormatReal(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case math.IsNaN(f):
		return "NaN"
	}

	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		if f == 0 {
			return "0.0"
		}
		return strconv.FormatFloat(f, 'f', 1, 64)
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if mant, exp, found := strings.Cut(s, "e"); found && !strings.Contains(mant, ".") {
		return mant + ".0e" + exp
	}
	return s
}
