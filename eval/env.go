package eval

import (
	"strings"

	"github.com/nickyhof/StrictDB/affinity"
	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/sql"
)

// RowEnv resolves column references against one row of a table. Alias is the name the
// table was given in FROM, if any.
type RowEnv struct {
	Table core.Table
	Alias string
	RowID int64
	Row   core.Row
}

func (env RowEnv) Lookup(ref sql.ColumnRef) (Binding, error) {
	idx, err := resolve(env.Table, env.Alias, ref)
	if err != nil {
		return Binding{}, err
	}
	if idx < 0 {
		return Binding{Value: core.Integer(env.RowID), Affinity: affinity.Integer}, nil
	}

	col := env.Table.Columns[idx]
	value := core.Null()
	if idx < len(env.Row) {
		value = env.Row[idx]
	}
	return Binding{
		Value:    value,
		Affinity: affinity.ForColumn(col, env.Table.Strict),
		NoCase:   col.NoCase(),
	}, nil
}

// IsRowIDName reports whether name is one of the implicit rowid aliases.
func IsRowIDName(name string) bool {
	switch strings.ToLower(name) {
	case "rowid", "oid", "_rowid_":
		return true
	}
	return false
}

// resolve returns the column index for ref, or -1 for the implicit rowid.
func resolve(table core.Table, alias string, ref sql.ColumnRef) (int, error) {
	if ref.Table != "" && !strings.EqualFold(ref.Table, table.Name) &&
		(alias == "" || !strings.EqualFold(ref.Table, alias)) {
		return 0, core.UnknownColumnError(refName(ref))
	}

	if idx := table.ColumnIndex(ref.Name); idx >= 0 {
		return idx, nil
	}
	if IsRowIDName(ref.Name) {
		return -1, nil
	}
	return 0, core.UnknownColumnError(refName(ref))
}

// CheckColumns verifies that every column referenced by exprs exists in table, so a
// statement can fail before it touches any row.
func CheckColumns(table core.Table, alias string, exprs ...sql.Expr) error {
	for _, e := range exprs {
		for _, ref := range sql.ColumnRefs(e) {
			if _, err := resolve(table, alias, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsConstant reports whether e has the same value on every row and at every time: it
// references no columns and calls no non-deterministic functions.
func IsConstant(e sql.Expr) bool {
	constant := true
	sql.Walk(e, func(node sql.Expr) bool {
		switch n := node.(type) {
		case sql.ColumnRef:
			constant = false
		case sql.FuncCall:
			if nonDeterministic[n.Name] {
				constant = false
			}
		}
		return constant
	})
	return constant
}

// IsDeterministic reports whether e calls only deterministic functions. Column
// references are allowed.
func IsDeterministic(e sql.Expr) bool {
	deterministic := true
	sql.Walk(e, func(node sql.Expr) bool {
		if n, ok := node.(sql.FuncCall); ok && nonDeterministic[n.Name] {
			deterministic = false
		}
		return deterministic
	})
	return deterministic
}
