package numeric

import (
	"math"
	"math/big"
)

// AddInt64 returns a+b and whether it fit in int64.
func AddInt64(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// SubInt64 returns a-b and whether it fit in int64.
func SubInt64(a, b int64) (int64, bool) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, false
	}
	return diff, true
}

// MulInt64 returns a*b and whether it fit in int64.
func MulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	product := a * b
	if product/b != a {
		return 0, false
	}
	return product, true
}

// DivInt64 returns the truncated quotient and whether it fit in int64. The caller
// handles division by zero.
func DivInt64(a, b int64) (int64, bool) {
	if a == math.MinInt64 && b == -1 {
		return 0, false
	}
	return a / b, true
}

// Wide computes a op b exactly and rounds the result to WidePrecision bits. op is one
// of '+', '-', '*', '/'. It is only used once an int64 operation has overflowed.
func Wide(op byte, a, b int64) *big.Float {
	x := new(big.Int).SetInt64(a)
	y := new(big.Int).SetInt64(b)

	switch op {
	case '+':
		x.Add(x, y)
	case '-':
		x.Sub(x, y)
	case '*':
		x.Mul(x, y)
	case '/':
		x.Quo(x, y)
	default:
		return nil
	}

	return new(big.Float).SetPrec(WidePrecision).SetInt(x)
}

// WideFloat64 rounds a shadow to the nearest double.
func WideFloat64(w *big.Float) float64 {
	f, _ := w.Float64()
	return f
}
