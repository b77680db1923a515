package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nickyhof/StrictDB/numeric"
)

// Row holds one value per table column, in column order.
type Row []Value

func (r Row) Clone() Row {
	return append(Row(nil), r...)
}

// Record is a stored row together with its rowid.
type Record struct {
	RowID  int64
	Values Row
}

func (r Record) Key() string {
	return RowKey(r.RowID)
}

// RowKey encodes a rowid so that lexical key order equals numeric rowid order.
func RowKey(rowID int64) string {
	return fmt.Sprintf("%020d", uint64(rowID)^(1<<63))
}

func ParseRowKey(key string) (int64, error) {
	u, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid row key %q: %w", key, err)
	}
	return int64(u ^ (1 << 63)), nil
}

// EncodeRow serializes a row as a JSON object keyed by column name.
func EncodeRow(table Table, row Row) ([]byte, error) {
	obj := make(map[string]Value, len(table.Columns))
	for i, col := range table.Columns {
		if i < len(row) {
			obj[col.Name] = row[i]
		}
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal row: %w", err)
	}
	return data, nil
}

// DecodeRow reads a row written by EncodeRow. Columns missing from the stored object
// are NULL.
func DecodeRow(table Table, data []byte) (Row, error) {
	var obj map[string]Value
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal row: %w", err)
	}

	row := make(Row, len(table.Columns))
	for i, col := range table.Columns {
		row[i] = obj[col.Name]
	}
	return row, nil
}

// UniqueKey encodes the values of a uniqueness constraint. ok is false when any value
// is NULL, since NULLs never collide. Integral reals encode like the equal integer.
func UniqueKey(values []Value, noCase []bool) (key string, ok bool) {
	var sb strings.Builder
	for i, v := range values {
		var part string
		switch v.kind {
		case KindNull:
			return "", false
		case KindInteger:
			part = "n" + strconv.FormatInt(v.i, 10)
		case KindReal:
			if n, exact := numeric.FloatToInt64(v.f); exact {
				part = "n" + strconv.FormatInt(n, 10)
			} else {
				part = "r" + strconv.FormatFloat(v.f, 'g', -1, 64)
			}
		case KindText:
			s := v.s
			if i < len(noCase) && noCase[i] {
				s = foldASCII(s)
			}
			part = "t" + s
		case KindBlob:
			part = "b" + hex.EncodeToString([]byte(v.s))
		}
		sb.WriteString(strconv.Itoa(len(part)))
		sb.WriteByte(':')
		sb.WriteString(part)
	}
	return sb.String(), true
}
