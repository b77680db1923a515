package db

import (
	"sort"
	"time"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/op"
	"github.com/nickyhof/StrictDB/sql"
)

// executeDescribeStatement lists the columns of a table or view, one row each.
func (engine *Engine) executeDescribeStatement(statement sql.DescribeStatement) (QueryResult, error) {
	startTime := time.Now()

	engine.Persistence.RLock()
	defer engine.Persistence.RUnlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{
		Transaction: engine.Persistence.LatestTransaction(),
		Columns:     []string{"cid", "name", "type", "notnull", "dflt_value", "pk"},
	}

	viewOp, found, err := op.GetView(statement.Table, engine.Persistence, snapshot)
	if err != nil {
		return QueryResult{}, err
	}
	if found {
		for i, name := range viewOp.View.Columns {
			result.Rows = append(result.Rows, core.Row{
				core.Integer(int64(i)), core.Text(name), core.Text(""), core.Integer(0), core.Null(), core.Integer(0),
			})
		}
	} else {
		tableOp, err := op.GetTable(statement.Table, engine.Persistence, snapshot)
		if err != nil {
			return QueryResult{}, err
		}
		table := tableOp.Table
		for i, col := range table.Columns {
			dflt := core.Null()
			if col.Default != nil {
				dflt = core.Text(*col.Default)
			}
			pk := 0
			for j, name := range table.PrimaryKey {
				if name == col.Name {
					pk = j + 1
				}
			}
			notNull := 0
			if col.NotNull {
				notNull = 1
			}
			result.Rows = append(result.Rows, core.Row{
				core.Integer(int64(i)), core.Text(col.Name), core.Text(col.Type),
				core.Integer(int64(notNull)), dflt, core.Integer(int64(pk)),
			})
		}
	}

	result.RecordsRead = len(result.Rows)
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, nil
}

// executeShowTablesStatement lists every table with its schema text and version, then
// every view, by name.
func (engine *Engine) executeShowTablesStatement() (QueryResult, error) {
	startTime := time.Now()

	engine.Persistence.RLock()
	defer engine.Persistence.RUnlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{
		Transaction: engine.Persistence.LatestTransaction(),
		Columns:     []string{"type", "name", "sql", "version"},
	}

	var tables []core.Table
	for _, name := range snapshot.ListTables() {
		table, err := snapshot.GetTable(name)
		if err != nil {
			return QueryResult{}, err
		}
		tables = append(tables, *table)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	for _, table := range tables {
		result.Rows = append(result.Rows, core.Row{
			core.Text("table"), core.Text(table.Name), core.Text(table.SQL), core.Integer(int64(table.Version)),
		})
	}

	views := snapshot.ListViews()
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	for _, view := range views {
		result.Rows = append(result.Rows, core.Row{
			core.Text("view"), core.Text(view.Name), core.Text("CREATE VIEW " + view.Name + " AS " + view.Query), core.Null(),
		})
	}

	result.RecordsRead = len(result.Rows)
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, nil
}
