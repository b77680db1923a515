package core

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nickyhof/StrictDB/numeric"
)

// Kind is the storage class of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a single SQL datum. The zero Value is NULL.
//
// A Real produced by overflowing integer arithmetic may carry a wide shadow: the exact
// result rounded to numeric.WidePrecision bits. Boundary conversions prefer it over the
// double. The shadow is not persisted.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	wide *big.Float
}

func Null() Value {
	return Value{}
}

func Integer(i int64) Value {
	return Value{kind: KindInteger, i: i}
}

// Real returns a Real value. NaN has no SQL representation and becomes NULL.
func Real(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}
	return Value{kind: KindReal, f: f}
}

// WideReal returns the Real nearest to w and keeps w as its shadow.
func WideReal(w *big.Float) Value {
	v := Real(numeric.WideFloat64(w))
	v.wide = w
	return v
}

func Text(s string) Value {
	return Value{kind: KindText, s: s}
}

func Blob(b []byte) Value {
	return Value{kind: KindBlob, s: string(b)}
}

func Bool(b bool) Value {
	if b {
		return Integer(1)
	}
	return Integer(0)
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

func (v Value) IsNumeric() bool {
	return v.kind == KindInteger || v.kind == KindReal
}

// Int returns the integer payload. Only meaningful for KindInteger.
func (v Value) Int() int64 {
	return v.i
}

// Float returns the value as a double: the payload for reals, the converted payload
// for integers and zero otherwise.
func (v Value) Float() float64 {
	switch v.kind {
	case KindInteger:
		return float64(v.i)
	case KindReal:
		return v.f
	default:
		return 0
	}
}

// Str returns the text or blob payload as a string.
func (v Value) Str() string {
	return v.s
}

func (v Value) Bytes() []byte {
	return []byte(v.s)
}

// Stored returns v as it reads back from storage, without a wide shadow.
func (v Value) Stored() Value {
	v.wide = nil
	return v
}

// Wide returns the extended-precision shadow of a Real, or nil.
func (v Value) Wide() *big.Float {
	return v.wide
}

// TypeOf returns the storage class name, as the typeof() SQL function does.
func (v Value) TypeOf() string {
	return v.kind.String()
}

// String renders the value for display and for text conversion. NULL renders as the
// empty string; use Literal for SQL text.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return numeric.FormatReal(v.f)
	case KindText, KindBlob:
		return v.s
	default:
		return ""
	}
}

// Literal renders the value as a SQL literal.
func (v Value) Literal() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInteger, KindReal:
		return v.String()
	case KindText:
		return "'" + strings.ReplaceAll(v.s, "'", "''") + "'"
	case KindBlob:
		return "X'" + strings.ToUpper(hex.EncodeToString([]byte(v.s))) + "'"
	default:
		return "NULL"
	}
}

// Equal reports whether a and b hold the same storage class and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == other.i
	case KindReal:
		return v.f == other.f
	case KindText, KindBlob:
		return v.s == other.s
	default:
		return true
	}
}

type encodedValue struct {
	I *string `json:"i,omitempty"`
	R *string `json:"r,omitempty"`
	S *string `json:"s,omitempty"`
	B *string `json:"b,omitempty"`
	// Text that is not valid UTF-8, base64 encoded.
	T *string `json:"t64,omitempty"`
}

// MarshalJSON encodes the value with its storage class so integers and reals survive a
// round trip bit for bit.
func (v Value) MarshalJSON() ([]byte, error) {
	var enc encodedValue
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInteger:
		s := strconv.FormatInt(v.i, 10)
		enc.I = &s
	case KindReal:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		enc.R = &s
	case KindText:
		s := v.s
		if !utf8.ValidString(s) {
			s = base64.StdEncoding.EncodeToString([]byte(s))
			enc.T = &s
			break
		}
		enc.S = &s
	case KindBlob:
		s := base64.StdEncoding.EncodeToString([]byte(v.s))
		enc.B = &s
	}
	return json.Marshal(enc)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Null()
		return nil
	}

	var enc encodedValue
	if err := json.Unmarshal(data, &enc); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	switch {
	case enc.I != nil:
		i, err := strconv.ParseInt(*enc.I, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value %q: %w", *enc.I, err)
		}
		*v = Integer(i)
	case enc.R != nil:
		f, err := strconv.ParseFloat(*enc.R, 64)
		if err != nil {
			return fmt.Errorf("invalid real value %q: %w", *enc.R, err)
		}
		*v = Real(f)
	case enc.S != nil:
		*v = Text(*enc.S)
	case enc.T != nil:
		b, err := base64.StdEncoding.DecodeString(*enc.T)
		if err != nil {
			return fmt.Errorf("invalid text value: %w", err)
		}
		*v = Text(string(b))
	case enc.B != nil:
		b, err := base64.StdEncoding.DecodeString(*enc.B)
		if err != nil {
			return fmt.Errorf("invalid blob value: %w", err)
		}
		*v = Blob(b)
	default:
		*v = Null()
	}
	return nil
}
