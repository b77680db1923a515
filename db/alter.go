package db

import (
	"fmt"
	"time"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/eval"
	"github.com/nickyhof/StrictDB/sql"
)

// ExecuteAlterAddColumn appends a column to a table. The definition is validated,
// every existing row is backfilled and checked against the new schema, and only then
// are the schema and the rewritten rows committed together. On any error the table
// is left exactly as it was.
func (engine *Engine) ExecuteAlterAddColumn(statement sql.AlterTableStatement) (CommitResult, error) {
	startTime := time.Now()

	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return CommitResult{}, err
	}

	tableOp, _, err := engine.mutableTable(statement.Table, snapshot)
	if err != nil {
		return CommitResult{}, err
	}
	old := tableOp.Table
	def := statement.Column

	if err := validateAddColumn(old, def); err != nil {
		return CommitResult{}, err
	}

	col, err := columnFromDef(def, old.Name, old.Strict)
	if err != nil {
		return CommitResult{}, err
	}

	table := old.Clone()
	table.Columns = append(table.Columns, col)
	table.Checks = append(table.Checks, checksFromDef(def)...)

	// references are resolved against the new schema so a CHECK may name the new column
	for _, check := range def.Checks {
		if err := eval.CheckColumns(table, "", check.Expr); err != nil {
			return CommitResult{}, err
		}
	}
	if def.Generated != nil {
		if err := eval.CheckColumns(table, "", def.Generated); err != nil {
			return CommitResult{}, err
		}
	}

	table.SQL, table.ColumnsEnd, err = sql.SpliceColumn(old.SQL, old.ColumnsEnd, def.Text)
	if err != nil {
		return CommitResult{}, core.Errorf(core.ErrSchema, "%v", err)
	}
	table.Version = old.Version + 1

	schema, err := compileTable(table)
	if err != nil {
		return CommitResult{}, err
	}
	ev := engine.evaluator
	added := len(table.Columns) - 1

	// a constant default has one value for every row; check its type once so an empty
	// table rejects it too
	fill := core.Null()
	if def.Generated == nil {
		if fill, err = schema.defaultValue(ev, added); err != nil {
			return CommitResult{}, err
		}
		sample := make(core.Row, len(table.Columns))
		sample[added] = fill
		if err := schema.coerce(sample, []int{added}); err != nil {
			return CommitResult{}, err
		}
		fill = sample[added]
	}

	records, err := tableOp.Records()
	if err != nil {
		return CommitResult{}, err
	}

	txn, err := engine.Persistence.BeginTransaction()
	if err != nil {
		return CommitResult{}, err
	}

	written := 0
	for _, record := range records {
		row := append(record.Values.Clone(), fill)
		if err := schema.finish(ev, record.RowID, row); err != nil {
			txn.Rollback()
			return CommitResult{}, err
		}

		// rows without the column read it back as NULL
		if row[added].IsNull() {
			continue
		}
		data, err := core.EncodeRow(table, row)
		if err != nil {
			txn.Rollback()
			return CommitResult{}, err
		}
		if err := txn.AddWrite(table.Name, record.Key(), data); err != nil {
			txn.Rollback()
			return CommitResult{}, err
		}
		written++
	}

	if err := txn.AddSchema(table); err != nil {
		txn.Rollback()
		return CommitResult{}, err
	}
	txn.SetMessage(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table.Name, col.Name))

	committed, err := txn.Commit(engine.Identity)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      committed,
		TablesAltered:    1,
		RecordsWritten:   written,
		RecordsRead:      len(records),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     len(records) + 1,
	}, nil
}

// validateAddColumn applies the rules that hold regardless of table contents.
func validateAddColumn(table core.Table, def sql.ColumnDef) error {
	if table.ColumnIndex(def.Name) >= 0 {
		return core.Errorf(core.ErrSchema, "duplicate column name: %s", def.Name)
	}
	if def.PrimaryKey {
		return core.Errorf(core.ErrSchema, "Cannot add a PRIMARY KEY column")
	}
	if def.Unique {
		return core.Errorf(core.ErrSchema, "Cannot add a UNIQUE column")
	}
	if def.Generated != nil {
		if def.Stored {
			return core.Errorf(core.ErrSchema, "cannot add a STORED column")
		}
		return nil
	}
	if def.NotNull && isNullDefault(def.Default) {
		return core.Errorf(core.ErrSchema, "Cannot add a NOT NULL column with default value NULL")
	}
	if def.Default != nil && !eval.IsConstant(def.Default) {
		return core.Errorf(core.ErrSchema, "Cannot add a column with non-constant default")
	}
	return nil
}

func isNullDefault(e sql.Expr) bool {
	if e == nil {
		return true
	}
	lit, ok := e.(sql.Literal)
	return ok && lit.Value.IsNull()
}
