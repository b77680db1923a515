package affinity

import (
	"errors"
	"math"
	"testing"

	"github.com/nickyhof/StrictDB/core"
)

func TestOf(t *testing.T) {
	tests := []struct {
		declType string
		want     Affinity
	}{
		{"INTEGER", Integer},
		{"BIGINT", Integer},
		{"int", Integer},
		{"VARCHAR(10)", Text},
		{"CLOB", Text},
		{"TEXT", Text},
		{"BLOB", Blob},
		{"", Blob},
		{"REAL", Real},
		{"FLOAT", Real},
		{"DOUBLE PRECISION", Real},
		{"NUMERIC", Numeric},
		{"DECIMAL(10,2)", Numeric},
		{"BOOLEAN", Numeric},
		{"POINT", Integer},
	}

	for _, tt := range tests {
		if got := Of(tt.declType); got != tt.want {
			t.Errorf("Of(%q) = %s, want %s", tt.declType, got, tt.want)
		}
	}
}

func TestStrictType(t *testing.T) {
	valid := []string{"INT", "integer", "REAL", "TEXT", "BLOB", "ANY", "NUMERIC"}
	for _, declType := range valid {
		if _, ok := StrictType(declType); !ok {
			t.Errorf("StrictType(%q) should be valid", declType)
		}
	}

	invalid := []string{"", "VARCHAR(10)", "BIGINT", "FLOAT", "DATE"}
	for _, declType := range invalid {
		if _, ok := StrictType(declType); ok {
			t.Errorf("StrictType(%q) should be rejected", declType)
		}
	}
}

func TestCoerceStrict(t *testing.T) {
	tests := []struct {
		name     string
		declType string
		input    core.Value
		want     core.Value
		mismatch bool
	}{
		{"any keeps text", "ANY", core.Text("000123"), core.Text("000123"), false},
		{"any keeps real", "ANY", core.Real(1.5), core.Real(1.5), false},
		{"any keeps blob", "ANY", core.Blob([]byte{1}), core.Blob([]byte{1}), false},

		{"integer keeps integer", "INTEGER", core.Integer(5), core.Integer(5), false},
		{"integer from text", "INTEGER", core.Text("42"), core.Integer(42), false},
		{"integer from integral real", "INTEGER", core.Real(3.0), core.Integer(3), false},
		{"integer rejects fraction", "INTEGER", core.Real(3.5), core.Null(), true},
		{"integer rejects decimal text", "INTEGER", core.Text("10.5"), core.Null(), true},
		{"integer rejects words", "INTEGER", core.Text("abc"), core.Null(), true},
		{"integer rejects 2^63", "INT", core.Real(9223372036854775808.0), core.Null(), true},
		{"integer rejects blob", "INTEGER", core.Blob([]byte("1")), core.Null(), true},

		{"real from text", "REAL", core.Text("10.5"), core.Real(10.5), false},
		{"real from integer", "REAL", core.Integer(2), core.Real(2), false},
		{"real rejects words", "REAL", core.Text("ten"), core.Null(), true},
		{"real rejects blob", "REAL", core.Blob([]byte("1")), core.Null(), true},

		{"text from integer", "TEXT", core.Integer(7), core.Text("7"), false},
		{"text from real", "TEXT", core.Real(1), core.Text("1.0"), false},
		{"text rejects blob", "TEXT", core.Blob([]byte("x")), core.Null(), true},

		{"blob only blob", "BLOB", core.Blob([]byte("x")), core.Blob([]byte("x")), false},
		{"blob rejects text", "BLOB", core.Text("x"), core.Null(), true},

		{"numeric from text integer", "NUMERIC", core.Text(" 12 "), core.Integer(12), false},
		{"numeric from text real", "NUMERIC", core.Text("1.5"), core.Real(1.5), false},
		{"numeric integral text", "NUMERIC", core.Text("3.0"), core.Integer(3), false},
		{"numeric integral real", "NUMERIC", core.Real(4.0), core.Integer(4), false},
		{"numeric infinity stays real", "NUMERIC", core.Real(math.Inf(1)), core.Real(math.Inf(1)), false},
		{"numeric rejects words", "NUMERIC", core.Text("x1"), core.Null(), true},

		{"null always passes", "INTEGER", core.Null(), core.Null(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := core.Column{Name: "a", Type: tt.declType}
			got, err := Coerce(tt.input, col, true, "t")
			if tt.mismatch {
				if !errors.Is(err, core.ErrTypeMismatch) {
					t.Fatalf("expected type mismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Coerce(%s) = %s, want %s", tt.input.Literal(), got.Literal(), tt.want.Literal())
			}
		})
	}
}

func TestCoerceNonStrictKeepsValues(t *testing.T) {
	col := core.Column{Name: "a", Type: "INTEGER"}
	got, err := Coerce(core.Text("abc"), col, false, "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(core.Text("abc")) {
		t.Errorf("got %s", got.Literal())
	}
}

func TestCoerceMismatchMessage(t *testing.T) {
	col := core.Column{Name: "value", Type: "real"}
	_, err := Coerce(core.Text("abc"), col, true, "test")
	if err == nil || err.Error() != "cannot store TEXT value in REAL column test.value" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPrepareComparison(t *testing.T) {
	l, r := PrepareComparison(core.Integer(1), core.Text("1"), Integer, None)
	if core.Compare(l, r) != 0 {
		t.Errorf("numeric column should convert text operand: %s vs %s", l.Literal(), r.Literal())
	}

	l, r = PrepareComparison(core.Text("1"), core.Integer(1), Text, None)
	if core.Compare(l, r) != 0 {
		t.Errorf("text column should render numeric operand: %s vs %s", l.Literal(), r.Literal())
	}

	l, r = PrepareComparison(core.Text("1"), core.Integer(1), None, None)
	if core.Compare(l, r) == 0 {
		t.Error("expressions without affinity must not convert")
	}

	l, r = PrepareComparison(core.Text("abc"), core.Integer(1), None, Real)
	if l.Kind() != core.KindText {
		t.Errorf("non-numeric text should stay text, got %s", l.Literal())
	}
	_ = r
}
