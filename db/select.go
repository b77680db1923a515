package db

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/eval"
	"github.com/nickyhof/StrictDB/op"
	"github.com/nickyhof/StrictDB/ps"
	"github.com/nickyhof/StrictDB/sql"
)

// rowSet is the output of a query: column names and rows in result order.
type rowSet struct {
	columns []string
	rows    []core.Row
	read    int
}

func (engine *Engine) executeSelectStatement(statement sql.SelectStatement) (QueryResult, error) {
	startTime := time.Now()

	engine.Persistence.RLock()
	defer engine.Persistence.RUnlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return QueryResult{}, err
	}

	set, err := engine.query(statement, snapshot)
	if err != nil {
		return QueryResult{}, err
	}

	return QueryResult{
		Transaction:      engine.Persistence.LatestTransaction(),
		Columns:          set.columns,
		Rows:             set.rows,
		RecordsRead:      set.read,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     set.read,
	}, nil
}

// source loads the rows a SELECT reads. A view is run and its output treated as a
// table whose rowids number the rows from 1.
func (engine *Engine) source(name string, snapshot *ps.Snapshot, depth int) (core.Table, []core.Record, error) {
	viewOp, found, err := op.GetView(name, engine.Persistence, snapshot)
	if err != nil {
		return core.Table{}, nil, err
	}
	if !found {
		tableOp, err := op.GetTable(name, engine.Persistence, snapshot)
		if err != nil {
			return core.Table{}, nil, err
		}
		records, err := tableOp.Records()
		return tableOp.Table, records, err
	}

	if depth > maxViewDepth {
		return core.Table{}, nil, core.Errorf(core.ErrSchema, "view %s is circularly defined", name)
	}
	parsed, err := sql.Parse(viewOp.View.Query)
	if err != nil {
		return core.Table{}, nil, core.Errorf(core.ErrSchema, "malformed view %s: %v", name, err)
	}
	query, ok := parsed.(sql.SelectStatement)
	if !ok {
		return core.Table{}, nil, core.Errorf(core.ErrSchema, "malformed view %s", name)
	}
	set, err := engine.queryAt(query, snapshot, depth+1)
	if err != nil {
		return core.Table{}, nil, err
	}

	table := core.Table{Database: core.MainDatabase, Name: viewOp.View.Name}
	for _, col := range set.columns {
		table.Columns = append(table.Columns, core.Column{Name: col})
	}
	records := make([]core.Record, len(set.rows))
	for i, row := range set.rows {
		records[i] = core.Record{RowID: int64(i + 1), Values: row}
	}
	return table, records, nil
}

const maxViewDepth = 32

func (engine *Engine) query(statement sql.SelectStatement, snapshot *ps.Snapshot) (*rowSet, error) {
	return engine.queryAt(statement, snapshot, 0)
}

// orderKey is one ORDER BY term: a result column position, or an expression evaluated
// against the source row.
type orderKey struct {
	column int
	expr   sql.Expr
	desc   bool
	noCase bool
}

type sortedRow struct {
	out  core.Row
	keys []core.Value
}

func (engine *Engine) queryAt(statement sql.SelectStatement, snapshot *ps.Snapshot, depth int) (*rowSet, error) {
	ev := engine.evaluator

	var table core.Table
	var records []core.Record
	if statement.Table != "" {
		var err error
		table, records, err = engine.source(statement.Table, snapshot, depth)
		if err != nil {
			return nil, err
		}
	} else {
		for _, item := range statement.Columns {
			if item.Star {
				return nil, core.Errorf(core.ErrSchema, "no tables specified")
			}
		}
		// a FROM-less SELECT reads one empty row
		records = []core.Record{{}}
	}

	projection, err := newProjection(statement.Columns, table, statement.TableAlias)
	if err != nil {
		return nil, err
	}
	if err := eval.CheckColumns(table, statement.TableAlias, statement.Where); err != nil {
		return nil, err
	}
	keys, err := orderKeys(statement, projection, table)
	if err != nil {
		return nil, err
	}

	var env func(core.Record) eval.Env
	if statement.Table != "" {
		env = func(record core.Record) eval.Env {
			return eval.RowEnv{Table: table, Alias: statement.TableAlias, RowID: record.RowID, Row: record.Values}
		}
	} else {
		env = func(core.Record) eval.Env { return nil }
	}

	var rows []sortedRow
	for _, record := range records {
		rowEnv := env(record)
		if statement.Where != nil {
			ok, known, err := ev.Truth(statement.Where, rowEnv)
			if err != nil {
				return nil, err
			}
			if !known || !ok {
				continue
			}
		}

		out, err := projection.row(ev, rowEnv)
		if err != nil {
			return nil, err
		}
		sr := sortedRow{out: out}
		for _, key := range keys {
			if key.expr == nil {
				sr.keys = append(sr.keys, out[key.column])
				continue
			}
			v, err := ev.Eval(key.expr, rowEnv)
			if err != nil {
				return nil, err
			}
			sr.keys = append(sr.keys, v)
		}
		rows = append(rows, sr)
	}

	if statement.Distinct {
		rows = distinct(rows)
	}

	if len(keys) > 0 {
		slices.SortStableFunc(rows, func(a, b sortedRow) int {
			for i, key := range keys {
				compare := core.Compare
				if key.noCase {
					compare = core.CompareNoCase
				}
				c := compare(a.keys[i], b.keys[i])
				if key.desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	rows, err = engine.limit(statement, rows)
	if err != nil {
		return nil, err
	}

	set := &rowSet{columns: projection.columns, read: len(records)}
	if statement.Table == "" {
		set.read = 0
	}
	for _, r := range rows {
		set.rows = append(set.rows, r.out)
	}
	return set, nil
}

// orderKeys resolves ORDER BY terms. An integer literal picks a result column by
// position and a bare name matching an alias picks that column.
func orderKeys(statement sql.SelectStatement, projection *projection, table core.Table) ([]orderKey, error) {
	keys := make([]orderKey, 0, len(statement.OrderBy))
	for i, term := range statement.OrderBy {
		key := orderKey{column: -1, desc: term.Descending}
		expr := term.Expr
		if c, ok := expr.(sql.CollateExpr); ok {
			key.noCase = strings.EqualFold(c.Collation, "NOCASE")
			expr = c.X
		}

		switch e := expr.(type) {
		case sql.Literal:
			if e.Value.Kind() == core.KindInteger {
				n := e.Value.Int()
				if n < 1 || n > int64(len(projection.columns)) {
					return nil, core.Errorf(core.ErrSchema, "%s ORDER BY term out of range - should be between 1 and %d",
						ordinal(i+1), len(projection.columns))
				}
				key.column = int(n - 1)
			}
		case sql.ColumnRef:
			if e.Table == "" {
				for j, item := range statement.Columns {
					if item.Alias != "" && strings.EqualFold(item.Alias, e.Name) {
						key.column = j
						break
					}
				}
			}
			if key.column < 0 && !key.noCase {
				if idx := table.ColumnIndex(e.Name); idx >= 0 {
					key.noCase = table.Columns[idx].NoCase()
				}
			}
		}

		if key.column < 0 {
			if err := eval.CheckColumns(table, statement.TableAlias, expr); err != nil {
				return nil, err
			}
			key.expr = expr
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// distinct keeps the first of each set of equal rows. Integers and integral reals are
// equal, as are NULLs.
func distinct(rows []sortedRow) []sortedRow {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		var sb strings.Builder
		for _, v := range r.out {
			key, ok := core.UniqueKey([]core.Value{v}, nil)
			if !ok {
				key = "null"
			}
			sb.WriteString(key)
			sb.WriteByte(';')
		}
		if k := sb.String(); !seen[k] {
			seen[k] = true
			out = append(out, r)
		}
	}
	return out
}

// limit applies LIMIT and OFFSET. A negative LIMIT means no limit.
func (engine *Engine) limit(statement sql.SelectStatement, rows []sortedRow) ([]sortedRow, error) {
	if statement.Offset != nil {
		n, err := engine.integerClause(statement.Offset)
		if err != nil {
			return nil, err
		}
		if n > int64(len(rows)) {
			n = int64(len(rows))
		}
		if n > 0 {
			rows = rows[n:]
		}
	}
	if statement.Limit != nil {
		n, err := engine.integerClause(statement.Limit)
		if err != nil {
			return nil, err
		}
		if n >= 0 && n < int64(len(rows)) {
			rows = rows[:n]
		}
	}
	return rows, nil
}

func (engine *Engine) integerClause(e sql.Expr) (int64, error) {
	v, err := engine.evaluator.Eval(e, nil)
	if err != nil {
		return 0, err
	}
	i := core.ToInteger(v)
	if i.IsNull() {
		return 0, core.Errorf(core.ErrTypeMismatch, "datatype mismatch")
	}
	return i.Int(), nil
}
