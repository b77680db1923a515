package core

import (
	"strings"
)

// MainDatabase is the namespace every table and view lives in.
const MainDatabase = "main"

// Column is one column of a table. Default and Generated hold SQL expression text and
// are parsed when used.
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type,omitempty"`
	NotNull    bool    `json:"notNull,omitempty"`
	Default    *string `json:"default,omitempty"`
	Generated  string  `json:"generated,omitempty"`
	Stored     bool    `json:"stored,omitempty"`
	PrimaryKey bool    `json:"primaryKey,omitempty"`
	Collate    string  `json:"collate,omitempty"`
}

func (c Column) IsGenerated() bool {
	return c.Generated != ""
}

func (c Column) NoCase() bool {
	return strings.EqualFold(c.Collate, "NOCASE")
}

// UniqueConstraint is a UNIQUE or non-rowid PRIMARY KEY constraint.
type UniqueConstraint struct {
	Name       string   `json:"name,omitempty"`
	Columns    []string `json:"columns"`
	PrimaryKey bool     `json:"primaryKey,omitempty"`
}

// Check is a CHECK constraint; Expr is the expression text as written.
type Check struct {
	Name string `json:"name,omitempty"`
	Expr string `json:"expr"`
}

// Table is the stored schema of a table. It is replaced as a whole on every schema
// change and Version increases each time.
type Table struct {
	Database   string             `json:"database"`
	Name       string             `json:"name"`
	Strict     bool               `json:"strict,omitempty"`
	Columns    []Column           `json:"columns"`
	PrimaryKey []string           `json:"primaryKey,omitempty"`
	Uniques    []UniqueConstraint `json:"uniques,omitempty"`
	Checks     []Check            `json:"checks,omitempty"`
	SQL        string             `json:"sql"`
	ColumnsEnd int                `json:"columnsEnd"`
	Version    int                `json:"version"`
}

// ColumnIndex returns the position of the named column, matched case-insensitively,
// or -1.
func (t Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			return i
		}
	}
	return -1
}

func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// RowIDColumn returns the index of the INTEGER PRIMARY KEY column that aliases the
// rowid, or -1 when the table has none.
func (t Table) RowIDColumn() int {
	if len(t.PrimaryKey) != 1 {
		return -1
	}
	idx := t.ColumnIndex(t.PrimaryKey[0])
	if idx < 0 || !strings.EqualFold(strings.TrimSpace(t.Columns[idx].Type), "INTEGER") {
		return -1
	}
	return idx
}

// Clone returns a deep copy, so a candidate schema can be built without touching the
// committed one.
func (t Table) Clone() Table {
	clone := t
	clone.Columns = append([]Column(nil), t.Columns...)
	clone.PrimaryKey = append([]string(nil), t.PrimaryKey...)
	clone.Uniques = make([]UniqueConstraint, len(t.Uniques))
	for i, u := range t.Uniques {
		u.Columns = append([]string(nil), u.Columns...)
		clone.Uniques[i] = u
	}
	clone.Checks = append([]Check(nil), t.Checks...)
	return clone
}
