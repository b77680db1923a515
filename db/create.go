package db

import (
	"strings"
	"time"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/eval"
	"github.com/nickyhof/StrictDB/op"
	"github.com/nickyhof/StrictDB/ps"
	"github.com/nickyhof/StrictDB/sql"
)

func (engine *Engine) executeCreateTableStatement(statement sql.CreateTableStatement) (CommitResult, error) {
	startTime := time.Now()

	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return CommitResult{}, err
	}

	if exists, err := nameTaken(statement.Table, snapshot); exists {
		if statement.IfNotExists && !op.IsView(statement.Table, snapshot) {
			return CommitResult{Transaction: engine.Persistence.LatestTransaction()}, nil
		}
		return CommitResult{}, err
	}

	table, err := tableFromStatement(statement)
	if err != nil {
		return CommitResult{}, err
	}

	txn, _, err := op.CreateTable(table, engine.Persistence, engine.Identity)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      *txn,
		TablesCreated:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

// nameTaken reports whether a table or view already uses name, with the error a CREATE
// of that name fails with.
func nameTaken(name string, snapshot *ps.Snapshot) (bool, error) {
	if op.IsView(name, snapshot) {
		return true, core.Errorf(core.ErrSchema, "view %s already exists", name)
	}
	if _, err := snapshot.GetTable(name); err == nil {
		return true, core.Errorf(core.ErrSchema, "table %s already exists", name)
	}
	return false, nil
}

// tableFromStatement validates a CREATE TABLE and builds the schema it stores, at
// version 1.
func tableFromStatement(statement sql.CreateTableStatement) (core.Table, error) {
	if len(statement.Columns) == 0 {
		return core.Table{}, core.Errorf(core.ErrSchema, "table %s has no columns", statement.Table)
	}

	table := core.Table{
		Database:   core.MainDatabase,
		Name:       statement.Table,
		Strict:     statement.Strict,
		SQL:        statement.SQL,
		ColumnsEnd: statement.ColumnsEnd,
		Version:    1,
	}

	seen := make(map[string]bool, len(statement.Columns))
	for _, def := range statement.Columns {
		key := strings.ToLower(def.Name)
		if seen[key] {
			return core.Table{}, core.Errorf(core.ErrSchema, "duplicate column name: %s", def.Name)
		}
		seen[key] = true

		col, err := columnFromDef(def, statement.Table, statement.Strict)
		if err != nil {
			return core.Table{}, err
		}
		table.Columns = append(table.Columns, col)

		if def.PrimaryKey {
			if len(table.PrimaryKey) > 0 {
				return core.Table{}, core.Errorf(core.ErrSchema, "table \"%s\" has more than one primary key", statement.Table)
			}
			table.PrimaryKey = []string{def.Name}
		}
		if def.Unique {
			table.Uniques = append(table.Uniques, core.UniqueConstraint{Columns: []string{def.Name}})
		}
		table.Checks = append(table.Checks, checksFromDef(def)...)
	}

	for _, constraint := range statement.Constraints {
		switch constraint.Kind {
		case sql.PrimaryKeyConstraint:
			if len(table.PrimaryKey) > 0 {
				return core.Table{}, core.Errorf(core.ErrSchema, "table \"%s\" has more than one primary key", statement.Table)
			}
			table.PrimaryKey = constraint.Columns
		case sql.UniqueConstraint:
			table.Uniques = append(table.Uniques, core.UniqueConstraint{Name: constraint.Name, Columns: constraint.Columns})
		case sql.CheckConstraint:
			if !eval.IsDeterministic(constraint.Check.Expr) {
				return core.Table{}, core.Errorf(core.ErrSchema, "non-deterministic functions prohibited in CHECK constraints")
			}
			name := constraint.Check.Name
			if name == "" {
				name = constraint.Name
			}
			table.Checks = append(table.Checks, core.Check{Name: name, Expr: constraint.Check.Text})
		}
	}

	for _, name := range table.PrimaryKey {
		idx := table.ColumnIndex(name)
		if idx < 0 {
			return core.Table{}, core.UnknownColumnError(name)
		}
		table.Columns[idx].PrimaryKey = true
		if table.Columns[idx].IsGenerated() {
			return core.Table{}, core.Errorf(core.ErrSchema, "generated columns cannot be part of the PRIMARY KEY")
		}
	}
	for _, unique := range table.Uniques {
		for _, name := range unique.Columns {
			if table.ColumnIndex(name) < 0 {
				return core.Table{}, core.UnknownColumnError(name)
			}
		}
	}
	for _, def := range statement.Columns {
		if def.Autoincrement && !(len(table.PrimaryKey) == 1 && strings.EqualFold(table.PrimaryKey[0], def.Name) && table.RowIDColumn() >= 0) {
			return core.Table{}, core.Errorf(core.ErrSchema, "AUTOINCREMENT is only allowed on an INTEGER PRIMARY KEY")
		}
	}

	// every column reference in CHECK and generated expressions must resolve
	schema, err := compileTable(table)
	if err != nil {
		return core.Table{}, err
	}
	for _, check := range schema.checks {
		if err := eval.CheckColumns(table, "", check.expr); err != nil {
			return core.Table{}, err
		}
	}
	for _, expr := range schema.generated {
		if err := eval.CheckColumns(table, "", expr); err != nil {
			return core.Table{}, err
		}
	}

	return table, nil
}

func (engine *Engine) executeCreateViewStatement(statement sql.CreateViewStatement) (CommitResult, error) {
	startTime := time.Now()

	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return CommitResult{}, err
	}

	if exists, err := nameTaken(statement.Name, snapshot); exists {
		if statement.IfNotExists && op.IsView(statement.Name, snapshot) {
			return CommitResult{Transaction: engine.Persistence.LatestTransaction()}, nil
		}
		return CommitResult{}, err
	}

	// running the query once resolves its tables and names its columns
	set, err := engine.query(statement.Query, snapshot)
	if err != nil {
		return CommitResult{}, err
	}

	view := core.View{
		Database:  core.MainDatabase,
		Name:      statement.Name,
		Query:     statement.QueryText,
		Columns:   set.columns,
		CreatedAt: engine.evaluator.Now(),
	}
	txn, _, err := op.CreateView(view, engine.Persistence, engine.Identity)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      *txn,
		ViewsCreated:     1,
		RecordsRead:      set.read,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDropTableStatement(statement sql.DropTableStatement) (CommitResult, error) {
	startTime := time.Now()

	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return CommitResult{}, err
	}

	if op.IsView(statement.Table, snapshot) {
		return CommitResult{}, core.Errorf(core.ErrSchema, "use DROP VIEW to delete view %s", statement.Table)
	}

	tableOp, err := op.GetTable(statement.Table, engine.Persistence, snapshot)
	if err != nil {
		if statement.IfExists {
			return CommitResult{Transaction: engine.Persistence.LatestTransaction()}, nil
		}
		return CommitResult{}, err
	}

	deleted := tableOp.Count()
	txn, err := tableOp.DropTable(engine.Identity)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		TablesDeleted:    1,
		RecordsDeleted:   deleted,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDropViewStatement(statement sql.DropViewStatement) (CommitResult, error) {
	startTime := time.Now()

	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return CommitResult{}, err
	}

	viewOp, found, err := op.GetView(statement.Name, engine.Persistence, snapshot)
	if err != nil {
		return CommitResult{}, err
	}
	if !found {
		if _, err := snapshot.GetTable(statement.Name); err == nil {
			return CommitResult{}, core.Errorf(core.ErrSchema, "use DROP TABLE to delete table %s", statement.Name)
		}
		if statement.IfExists {
			return CommitResult{Transaction: engine.Persistence.LatestTransaction()}, nil
		}
		return CommitResult{}, core.Errorf(core.ErrSchema, "no such view: %s", statement.Name)
	}

	txn, err := viewOp.DropView(engine.Identity)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		ViewsDeleted:     1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}
