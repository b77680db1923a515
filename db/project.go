package db

import (
	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/eval"
	"github.com/nickyhof/StrictDB/sql"
)

// projection evaluates a SELECT or RETURNING list against rows of one table.
type projection struct {
	columns []string
	items   []sql.ResultColumn
	table   core.Table
}

// newProjection resolves every column the list references, so a bad name fails before
// any row is touched. "*" expands to all columns of table.
func newProjection(items []sql.ResultColumn, table core.Table, alias string) (*projection, error) {
	p := &projection{items: items, table: table}
	for _, item := range items {
		if item.Star {
			p.columns = append(p.columns, table.ColumnNames()...)
			continue
		}
		if err := eval.CheckColumns(table, alias, item.Expr); err != nil {
			return nil, err
		}
		p.columns = append(p.columns, item.Name())
	}
	return p, nil
}

func (p *projection) row(ev *eval.Evaluator, env eval.Env) (core.Row, error) {
	out := make(core.Row, 0, len(p.columns))
	for _, item := range p.items {
		if item.Star {
			rowEnv, _ := env.(eval.RowEnv)
			for i := range p.table.Columns {
				if i < len(rowEnv.Row) {
					out = append(out, rowEnv.Row[i])
				} else {
					out = append(out, core.Null())
				}
			}
			continue
		}
		v, err := ev.Eval(item.Expr, env)
		if err != nil {
			return nil, err
		}
		out = append(out, v.Stored())
	}
	return out, nil
}
