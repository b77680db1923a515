package core

import (
	"math"
	"math/big"
	"strings"

	"github.com/nickyhof/StrictDB/numeric"
)

func classRank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindInteger, KindReal:
		return 1
	case KindText:
		return 2
	default:
		return 3
	}
}

// Compare orders two values: NULL < numeric < text < blob. Numbers compare by exact
// value across integer and real; text and blobs compare bytewise.
func Compare(a, b Value) int {
	ra, rb := classRank(a.kind), classRank(b.kind)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 0:
		return 0
	case 1:
		return compareNumeric(a, b)
	default:
		return strings.Compare(a.s, b.s)
	}
}

// CompareNoCase is Compare with ASCII case folding for text, the NOCASE collation.
func CompareNoCase(a, b Value) int {
	if a.kind == KindText && b.kind == KindText {
		return strings.Compare(foldASCII(a.s), foldASCII(b.s))
	}
	return Compare(a, b)
}

func foldASCII(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if 'A' <= ch && ch <= 'Z' {
			b[i] = ch + 32
		}
	}
	return string(b)
}

func compareNumeric(a, b Value) int {
	if a.wide != nil || b.wide != nil {
		return exact(a).Cmp(exact(b))
	}

	switch {
	case a.kind == KindInteger && b.kind == KindInteger:
		return cmpInt(a.i, b.i)
	case a.kind == KindReal && b.kind == KindReal:
		return cmpFloat(a.f, b.f)
	case a.kind == KindInteger:
		return -compareFloatInt(b.f, a.i)
	default:
		return compareFloatInt(a.f, b.i)
	}
}

func exact(v Value) *big.Float {
	if v.wide != nil {
		return v.wide
	}
	if v.kind == KindInteger {
		return new(big.Float).SetPrec(numeric.WidePrecision).SetInt64(v.i)
	}
	return new(big.Float).SetPrec(numeric.WidePrecision).SetFloat64(v.f)
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareFloatInt compares f with i without rounding i to a double.
func compareFloatInt(f float64, i int64) int {
	if f >= numeric.TwoPow63 {
		return 1
	}
	if f < -numeric.TwoPow63 {
		return -1
	}

	t := math.Trunc(f)
	if c := cmpInt(int64(t), i); c != 0 {
		return c
	}
	return cmpFloat(f, t)
}

// IsTruthy reports whether v is true in a boolean context. NULL and numeric zero are
// false; text and blobs are read through their numeric prefix.
func IsTruthy(v Value) bool {
	switch v.kind {
	case KindInteger:
		return v.i != 0
	case KindReal:
		return v.f != 0
	case KindText, KindBlob:
		_, f, _, _ := numeric.Prefix(v.s)
		return f != 0
	default:
		return false
	}
}
