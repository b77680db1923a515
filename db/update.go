package db

import (
	"fmt"
	"time"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/eval"
	"github.com/nickyhof/StrictDB/sql"
)

// assignment is a SET clause resolved to a column position; -1 is the implicit rowid.
type assignment struct {
	column int
	value  sql.Expr
}

// revision is one row rewritten by an UPDATE.
type revision struct {
	oldKey string
	rowID  int64
	row    core.Row
}

// ExecuteUpdate runs an UPDATE as a single atomic change. Every matched row is
// evaluated against the table as it was before the statement, then coerced and
// checked in the order NOT NULL, CHECK, UNIQUE. The first failure aborts the statement
// and nothing is written; otherwise all rows are committed together. RETURNING rows
// hold final values in rowid order.
func (engine *Engine) ExecuteUpdate(statement sql.UpdateStatement) (CommitResult, error) {
	startTime := time.Now()

	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return CommitResult{}, err
	}

	tableOp, schema, err := engine.mutableTable(statement.Table, snapshot)
	if err != nil {
		return CommitResult{}, err
	}
	table := tableOp.Table

	// resolve every name up front so an unknown column fails before any row is read
	assignments := make([]assignment, 0, len(statement.Set))
	for _, set := range statement.Set {
		column, err := schema.resolveTarget(set.Column)
		if err != nil {
			return CommitResult{}, err
		}
		if column >= 0 && schema.isGenerated(column) {
			return CommitResult{}, core.Errorf(core.ErrGeneratedColumn, "cannot UPDATE generated column \"%s\"", table.Columns[column].Name)
		}
		if err := eval.CheckColumns(table, "", set.Value); err != nil {
			return CommitResult{}, err
		}
		assignments = append(assignments, assignment{column: column, value: set.Value})
	}
	if err := eval.CheckColumns(table, "", statement.Where); err != nil {
		return CommitResult{}, err
	}
	returning, err := newProjection(statement.Returning, table, "")
	if err != nil {
		return CommitResult{}, err
	}

	records, err := tableOp.Records()
	if err != nil {
		return CommitResult{}, err
	}
	indexes, err := tableOp.BuildIndexes(records)
	if err != nil {
		return CommitResult{}, err
	}
	rowIDs := newRowIDSet(records)

	ev := engine.evaluator
	var revisions []revision

	for _, record := range records {
		before := eval.RowEnv{Table: table, RowID: record.RowID, Row: record.Values}

		if statement.Where != nil {
			ok, known, err := ev.Truth(statement.Where, before)
			if err != nil {
				return CommitResult{}, err
			}
			if !known || !ok {
				continue
			}
		}

		row := record.Values.Clone()
		rowID := record.RowID
		var assigned []int

		for _, a := range assignments {
			v, err := ev.Eval(a.value, before)
			if err != nil {
				return CommitResult{}, err
			}
			if a.column < 0 {
				if rowID, err = rowIDValue(v); err != nil {
					return CommitResult{}, err
				}
				if schema.rowID >= 0 {
					row[schema.rowID] = core.Integer(rowID)
				}
				continue
			}
			row[a.column] = v
			assigned = append(assigned, a.column)
		}

		if err := schema.coerce(row, assigned); err != nil {
			return CommitResult{}, err
		}

		if schema.rowID >= 0 {
			id, err := rowIDValue(row[schema.rowID])
			if err != nil {
				return CommitResult{}, err
			}
			rowID = id
			row[schema.rowID] = core.Integer(rowID)
		}

		if err := schema.finish(ev, rowID, row); err != nil {
			return CommitResult{}, err
		}

		if rowID != record.RowID {
			rowIDs.release(record.RowID)
			if !rowIDs.claim(rowID) {
				return CommitResult{}, core.UniqueError(table.Name, []string{schema.rowIDName()})
			}
		}

		// the row's own old values never count as a collision, even when its rowid moves
		if err := tableOp.CheckUnique(indexes, row, record.Key()); err != nil {
			return CommitResult{}, err
		}
		if err := tableOp.Reindex(indexes, record.Values, record.Key(), row, core.RowKey(rowID)); err != nil {
			return CommitResult{}, err
		}

		revisions = append(revisions, revision{oldKey: record.Key(), rowID: rowID, row: row})
	}

	result := CommitResult{Columns: returning.columns}
	for _, rev := range revisions {
		if len(statement.Returning) == 0 {
			break
		}
		out, err := returning.row(ev, eval.RowEnv{Table: table, RowID: rev.rowID, Row: rev.row})
		if err != nil {
			return CommitResult{}, err
		}
		result.Rows = append(result.Rows, out)
	}

	txn, err := engine.Persistence.BeginTransaction()
	if err != nil {
		return CommitResult{}, err
	}

	// a moved row frees its old key before any row claims it
	for _, rev := range revisions {
		if newKey := core.RowKey(rev.rowID); newKey != rev.oldKey {
			if err := txn.AddDelete(table.Name, rev.oldKey); err != nil {
				txn.Rollback()
				return CommitResult{}, err
			}
		}
	}
	for _, rev := range revisions {
		data, err := tableOp.Encode(rev.row)
		if err != nil {
			txn.Rollback()
			return CommitResult{}, err
		}
		if err := txn.AddWrite(table.Name, core.RowKey(rev.rowID), data); err != nil {
			txn.Rollback()
			return CommitResult{}, err
		}
	}

	committed, err := engine.commit(txn, fmt.Sprintf("UPDATE %s: %d row(s)", table.Name, len(revisions)))
	if err != nil {
		return CommitResult{}, err
	}

	result.Transaction = committed
	result.RecordsWritten = len(revisions)
	result.RecordsRead = len(records)
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	result.ExecutionOps = len(records) + len(revisions)
	return result, nil
}
