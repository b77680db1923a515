package db

import (
	"fmt"
	"time"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/eval"
	"github.com/nickyhof/StrictDB/op"
	"github.com/nickyhof/StrictDB/ps"
	"github.com/nickyhof/StrictDB/sql"
)

func (engine *Engine) executeInsertStatement(statement sql.InsertStatement) (CommitResult, error) {
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

	var targets []int
	if !statement.DefaultValues {
		if targets, err = insertTargets(schema, statement.Columns, "INSERT into"); err != nil {
			return CommitResult{}, err
		}
	}
	returning, err := newProjection(statement.Returning, table, "")
	if err != nil {
		return CommitResult{}, err
	}

	values, err := engine.insertValues(statement, targets, snapshot)
	if err != nil {
		return CommitResult{}, err
	}

	revisions, read, err := engine.insertRows(tableOp, schema, targets, values)
	if err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{Columns: returning.columns}
	if len(statement.Returning) > 0 {
		for _, rev := range revisions {
			out, err := returning.row(engine.evaluator, eval.RowEnv{Table: table, RowID: rev.rowID, Row: rev.row})
			if err != nil {
				return CommitResult{}, err
			}
			result.Rows = append(result.Rows, out)
		}
	}

	committed, err := engine.writeRevisions(tableOp, revisions, fmt.Sprintf("INSERT INTO %s: %d row(s)", table.Name, len(revisions)))
	if err != nil {
		return CommitResult{}, err
	}

	result.Transaction = committed
	result.RecordsWritten = len(revisions)
	result.RecordsRead = read
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	result.ExecutionOps = len(revisions)
	return result, nil
}

// insertTargets resolves the column list of an INSERT or COPY. Without a list every
// ordinary column is a target, in declaration order.
func insertTargets(schema *tableSchema, columns []string, verb string) ([]int, error) {
	if len(columns) == 0 {
		var targets []int
		for i := range schema.table.Columns {
			if !schema.isGenerated(i) {
				targets = append(targets, i)
			}
		}
		return targets, nil
	}

	targets := make([]int, 0, len(columns))
	for _, name := range columns {
		column, err := schema.resolveTarget(name)
		if err != nil {
			return nil, err
		}
		if column >= 0 && schema.isGenerated(column) {
			return nil, core.Errorf(core.ErrGeneratedColumn, "cannot %s generated column \"%s\"", verb, schema.table.Columns[column].Name)
		}
		targets = append(targets, column)
	}
	return targets, nil
}

// insertValues evaluates the VALUES lists, or runs the SELECT, of an INSERT.
func (engine *Engine) insertValues(statement sql.InsertStatement, targets []int, snapshot *ps.Snapshot) ([][]core.Value, error) {
	if statement.DefaultValues {
		return [][]core.Value{nil}, nil
	}

	if statement.Select != nil {
		set, err := engine.query(*statement.Select, snapshot)
		if err != nil {
			return nil, err
		}
		if len(set.columns) != len(targets) {
			return nil, core.Errorf(core.ErrSchema, "table %s has %d columns but %d values were supplied",
				statement.Table, len(targets), len(set.columns))
		}
		values := make([][]core.Value, len(set.rows))
		for i, row := range set.rows {
			values[i] = row
		}
		return values, nil
	}

	values := make([][]core.Value, 0, len(statement.Rows))
	for _, exprs := range statement.Rows {
		if len(exprs) != len(targets) {
			return nil, core.Errorf(core.ErrSchema, "%d values for %d columns", len(exprs), len(targets))
		}
		row := make([]core.Value, len(exprs))
		for i, e := range exprs {
			v, err := engine.evaluator.Eval(e, nil)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		values = append(values, row)
	}
	return values, nil
}

// insertRows builds, validates and indexes new rows without writing them. Each row
// starts from the column defaults, takes values for targets, and goes through the same
// coercion and constraint order as UPDATE. A NULL rowid gets the next free one.
func (engine *Engine) insertRows(tableOp *op.TableOp, schema *tableSchema, targets []int, values [][]core.Value) ([]revision, int, error) {
	table := tableOp.Table
	ev := engine.evaluator

	records, err := tableOp.Records()
	if err != nil {
		return nil, 0, err
	}
	indexes, err := tableOp.BuildIndexes(records)
	if err != nil {
		return nil, 0, err
	}
	rowIDs := newRowIDSet(records)
	allocator := tableOp.RowIDAllocator()

	ordinary := make([]int, 0, len(table.Columns))
	for i := range table.Columns {
		if !schema.isGenerated(i) {
			ordinary = append(ordinary, i)
		}
	}

	revisions := make([]revision, 0, len(values))
	for _, vals := range values {
		row, err := schema.emptyRow(ev)
		if err != nil {
			return nil, 0, err
		}

		explicit := core.Null()
		for i, column := range targets {
			if column < 0 {
				explicit = vals[i]
				continue
			}
			row[column] = vals[i]
		}

		if err := schema.coerce(row, ordinary); err != nil {
			return nil, 0, err
		}
		if schema.rowID >= 0 && !row[schema.rowID].IsNull() {
			explicit = row[schema.rowID]
		}

		var rowID int64
		if explicit.IsNull() {
			if rowID, err = allocator.Next(); err != nil {
				return nil, 0, err
			}
		} else {
			if rowID, err = rowIDValue(explicit); err != nil {
				return nil, 0, err
			}
			allocator.Observe(rowID)
		}
		if schema.rowID >= 0 {
			row[schema.rowID] = core.Integer(rowID)
		}

		if err := schema.finish(ev, rowID, row); err != nil {
			return nil, 0, err
		}
		if !rowIDs.claim(rowID) {
			return nil, 0, core.UniqueError(table.Name, []string{schema.rowIDName()})
		}
		if err := tableOp.CheckUnique(indexes, row, core.RowKey(rowID)); err != nil {
			return nil, 0, err
		}
		if err := tableOp.Reindex(indexes, nil, "", row, core.RowKey(rowID)); err != nil {
			return nil, 0, err
		}

		revisions = append(revisions, revision{rowID: rowID, row: row})
	}
	return revisions, len(records), nil
}

// writeRevisions commits rows built by insertRows as one change.
func (engine *Engine) writeRevisions(tableOp *op.TableOp, revisions []revision, message string) (ps.Transaction, error) {
	txn, err := engine.Persistence.BeginTransaction()
	if err != nil {
		return ps.Transaction{}, err
	}
	for _, rev := range revisions {
		data, err := tableOp.Encode(rev.row)
		if err != nil {
			txn.Rollback()
			return ps.Transaction{}, err
		}
		if err := txn.AddWrite(tableOp.Table.Name, core.RowKey(rev.rowID), data); err != nil {
			txn.Rollback()
			return ps.Transaction{}, err
		}
	}
	return engine.commit(txn, message)
}
