package db

import (
	"fmt"
	"time"

	"github.com/nickyhof/StrictDB/eval"
	"github.com/nickyhof/StrictDB/sql"
)

// executeDeleteStatement removes every row matching WHERE in one commit. RETURNING
// rows hold the values as they were before deletion.
func (engine *Engine) executeDeleteStatement(statement sql.DeleteStatement) (CommitResult, error) {
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
	table := tableOp.Table

	if err := eval.CheckColumns(table, "", statement.Where); err != nil {
		return CommitResult{}, err
	}
	returning, err := newProjection(statement.Returning, table, "")
	if err != nil {
		return CommitResult{}, err
	}

	txn, err := engine.Persistence.BeginTransaction()
	if err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{Columns: returning.columns}
	read := 0
	for record, err := range tableOp.Scan() {
		if err != nil {
			txn.Rollback()
			return CommitResult{}, err
		}
		read++

		env := eval.RowEnv{Table: table, RowID: record.RowID, Row: record.Values}
		if statement.Where != nil {
			ok, known, err := engine.evaluator.Truth(statement.Where, env)
			if err != nil {
				txn.Rollback()
				return CommitResult{}, err
			}
			if !known || !ok {
				continue
			}
		}

		if len(statement.Returning) > 0 {
			out, err := returning.row(engine.evaluator, env)
			if err != nil {
				txn.Rollback()
				return CommitResult{}, err
			}
			result.Rows = append(result.Rows, out)
		}
		if err := txn.AddDelete(table.Name, record.Key()); err != nil {
			txn.Rollback()
			return CommitResult{}, err
		}
	}

	deleted := txn.OperationCount()
	committed, err := engine.commit(txn, fmt.Sprintf("DELETE FROM %s: %d row(s)", table.Name, deleted))
	if err != nil {
		return CommitResult{}, err
	}

	result.Transaction = committed
	result.RecordsDeleted = deleted
	result.RecordsRead = read
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	result.ExecutionOps = read + deleted
	return result, nil
}
