package core

import (
	"errors"
	"fmt"
)

var (
	ErrTypeMismatch    = errors.New("datatype mismatch")
	ErrNotNull         = errors.New("NOT NULL constraint failed")
	ErrCheck           = errors.New("CHECK constraint failed")
	ErrUnique          = errors.New("UNIQUE constraint failed")
	ErrUnknownColumn   = errors.New("no such column")
	ErrSchema          = errors.New("schema error")
	ErrNoSuchTable     = errors.New("no such table")
	ErrGeneratedColumn = errors.New("cannot write generated column")
)

// Error is a statement error with a SQLite-style message. Kind is one of the sentinel
// errors above and is what errors.Is matches against.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotNullError(table, column string) error {
	return Errorf(ErrNotNull, "NOT NULL constraint failed: %s.%s", table, column)
}

func CheckError(expr string) error {
	return Errorf(ErrCheck, "CHECK constraint failed: %s", expr)
}

func UniqueError(table string, columns []string) error {
	msg := "UNIQUE constraint failed: "
	for i, col := range columns {
		if i > 0 {
			msg += ", "
		}
		msg += table + "." + col
	}
	return Errorf(ErrUnique, "%s", msg)
}

func TypeMismatchError(kind Kind, declType, table, column string) error {
	return Errorf(ErrTypeMismatch, "cannot store %s value in %s column %s.%s",
		upperKind(kind), declType, table, column)
}

func UnknownColumnError(column string) error {
	return Errorf(ErrUnknownColumn, "no such column: %s", column)
}

func NoSuchTableError(table string) error {
	return Errorf(ErrNoSuchTable, "no such table: %s", table)
}

func upperKind(k Kind) string {
	switch k {
	case KindInteger:
		return "INT"
	case KindReal:
		return "REAL"
	case KindText:
		return "TEXT"
	case KindBlob:
		return "BLOB"
	default:
		return "NULL"
	}
}
