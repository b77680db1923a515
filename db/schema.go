package db

import (
	"strings"

	"github.com/nickyhof/StrictDB/affinity"
	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/eval"
	"github.com/nickyhof/StrictDB/sql"
)

type compiledCheck struct {
	name string
	text string
	expr sql.Expr
}

// tableSchema is a stored table with its DEFAULT, generated and CHECK expressions
// parsed, ready to build and validate rows.
type tableSchema struct {
	table     core.Table
	defaults  []sql.Expr // nil entries have no default
	generated []sql.Expr // nil entries are ordinary columns
	genOrder  []int      // generated columns, dependencies first
	checks    []compiledCheck
	notNull   []bool
	rowID     int
}

func compileTable(table core.Table) (*tableSchema, error) {
	s := &tableSchema{
		table:     table,
		defaults:  make([]sql.Expr, len(table.Columns)),
		generated: make([]sql.Expr, len(table.Columns)),
		notNull:   make([]bool, len(table.Columns)),
		rowID:     table.RowIDColumn(),
	}

	for i, col := range table.Columns {
		if col.Default != nil {
			expr, err := sql.ParseExpression(*col.Default)
			if err != nil {
				return nil, core.Errorf(core.ErrSchema, "malformed default for %s.%s: %v", table.Name, col.Name, err)
			}
			s.defaults[i] = expr
		}
		if col.IsGenerated() {
			expr, err := sql.ParseExpression(col.Generated)
			if err != nil {
				return nil, core.Errorf(core.ErrSchema, "malformed generated column %s.%s: %v", table.Name, col.Name, err)
			}
			s.generated[i] = expr
		}
		s.notNull[i] = col.NotNull
	}

	// non-rowid primary keys of STRICT tables cannot hold NULL
	if table.Strict && s.rowID < 0 {
		for _, name := range table.PrimaryKey {
			if idx := table.ColumnIndex(name); idx >= 0 {
				s.notNull[idx] = true
			}
		}
	}

	for _, check := range table.Checks {
		expr, err := sql.ParseExpression(check.Expr)
		if err != nil {
			return nil, core.Errorf(core.ErrSchema, "malformed CHECK on %s: %v", table.Name, err)
		}
		s.checks = append(s.checks, compiledCheck{name: check.Name, text: check.Expr, expr: expr})
	}

	order, err := generatedOrder(table, s.generated)
	if err != nil {
		return nil, err
	}
	s.genOrder = order

	return s, nil
}

// generatedOrder sorts generated columns so each one comes after the generated
// columns it reads.
func generatedOrder(table core.Table, generated []sql.Expr) ([]int, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(generated))
	var order []int

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return core.Errorf(core.ErrSchema, "generated column loop on \"%s\"", table.Columns[i].Name)
		}
		state[i] = visiting
		for _, ref := range sql.ColumnRefs(generated[i]) {
			if dep := table.ColumnIndex(ref.Name); dep >= 0 && generated[dep] != nil {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[i] = done
		order = append(order, i)
		return nil
	}

	for i, expr := range generated {
		if expr != nil {
			if err := visit(i); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func (s *tableSchema) isGenerated(i int) bool {
	return s.generated[i] != nil
}

// defaultValue evaluates the DEFAULT of column i, or NULL when it has none.
func (s *tableSchema) defaultValue(ev *eval.Evaluator, i int) (core.Value, error) {
	if s.defaults[i] == nil {
		return core.Null(), nil
	}
	return ev.Eval(s.defaults[i], nil)
}

// emptyRow returns a row holding every column's default. Generated columns stay NULL
// until finish computes them.
func (s *tableSchema) emptyRow(ev *eval.Evaluator) (core.Row, error) {
	row := make(core.Row, len(s.table.Columns))
	for i := range row {
		if s.isGenerated(i) {
			continue
		}
		v, err := s.defaultValue(ev, i)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// coerce converts the listed columns of row for storage.
func (s *tableSchema) coerce(row core.Row, columns []int) error {
	for _, i := range columns {
		v, err := affinity.Coerce(row[i], s.table.Columns[i], s.table.Strict, s.table.Name)
		if err != nil {
			return err
		}
		row[i] = v
	}
	return nil
}

// rowIDValue converts a value assigned to the rowid into an integer. Integral reals and
// integer text are accepted; anything else, NULL included, is a datatype mismatch.
func rowIDValue(v core.Value) (int64, error) {
	v = affinity.ApplyNumeric(v)
	switch v.Kind() {
	case core.KindInteger:
		return v.Int(), nil
	case core.KindReal:
		if i := core.ToInteger(v); !i.IsNull() {
			return i.Int(), nil
		}
	}
	return 0, core.Errorf(core.ErrTypeMismatch, "datatype mismatch")
}

// finish computes generated columns and validates NOT NULL and then CHECK
// constraints. Callers coerce assigned values first and check uniqueness afterwards.
func (s *tableSchema) finish(ev *eval.Evaluator, rowID int64, row core.Row) error {
	env := eval.RowEnv{Table: s.table, RowID: rowID, Row: row}

	for _, i := range s.genOrder {
		v, err := ev.Eval(s.generated[i], env)
		if err != nil {
			return err
		}
		row[i] = v
		if err := s.coerce(row, []int{i}); err != nil {
			return err
		}
	}

	for i := range row {
		row[i] = row[i].Stored()
	}

	for i, col := range s.table.Columns {
		if s.notNull[i] && row[i].IsNull() {
			return core.NotNullError(s.table.Name, col.Name)
		}
	}

	for _, check := range s.checks {
		ok, known, err := ev.Truth(check.expr, env)
		if err != nil {
			return err
		}
		if known && !ok {
			if check.name != "" {
				return core.CheckError(check.name)
			}
			return core.CheckError(check.text)
		}
	}

	return nil
}

// rowIDName is the column name used in rowid UNIQUE errors.
func (s *tableSchema) rowIDName() string {
	if s.rowID >= 0 {
		return s.table.Columns[s.rowID].Name
	}
	return "rowid"
}

// resolveTarget maps a column named in INSERT or UPDATE to its position. -1 is the
// implicit rowid.
func (s *tableSchema) resolveTarget(name string) (int, error) {
	if idx := s.table.ColumnIndex(name); idx >= 0 {
		return idx, nil
	}
	if eval.IsRowIDName(name) {
		return -1, nil
	}
	return 0, core.UnknownColumnError(name)
}

// rowIDSet tracks which rowids are taken while a statement moves and adds rows.
type rowIDSet map[int64]bool

func newRowIDSet(records []core.Record) rowIDSet {
	set := make(rowIDSet, len(records))
	for _, record := range records {
		set[record.RowID] = true
	}
	return set
}

// claim marks rowID as taken. It fails when another row already holds it.
func (set rowIDSet) claim(rowID int64) bool {
	if set[rowID] {
		return false
	}
	set[rowID] = true
	return true
}

func (set rowIDSet) release(rowID int64) {
	delete(set, rowID)
}

// columnFromDef validates a column definition for table and converts it to its stored
// form. Constraints that span the table are handled by the caller.
func columnFromDef(def sql.ColumnDef, table string, strict bool) (core.Column, error) {
	col := core.Column{
		Name:       def.Name,
		Type:       def.Type,
		NotNull:    def.NotNull,
		PrimaryKey: def.PrimaryKey,
		Collate:    def.Collate,
	}

	if strict {
		if strings.TrimSpace(def.Type) == "" {
			return col, core.Errorf(core.ErrSchema, "missing datatype for %s.%s", table, def.Name)
		}
		if _, ok := affinity.StrictType(def.Type); !ok {
			return col, core.Errorf(core.ErrSchema, "unknown datatype for %s.%s: \"%s\"", table, def.Name, def.Type)
		}
	}

	if def.Collate != "" {
		switch strings.ToUpper(def.Collate) {
		case "BINARY", "NOCASE", "RTRIM":
		default:
			return col, core.Errorf(core.ErrSchema, "no such collation sequence: %s", def.Collate)
		}
	}

	if def.Generated != nil {
		if def.Default != nil {
			return col, core.Errorf(core.ErrSchema, "cannot use DEFAULT on a generated column")
		}
		if def.PrimaryKey {
			return col, core.Errorf(core.ErrSchema, "generated columns cannot be part of the PRIMARY KEY")
		}
		if !eval.IsDeterministic(def.Generated) {
			return col, core.Errorf(core.ErrSchema, "non-deterministic functions prohibited in generated columns")
		}
		col.Generated = def.GeneratedText
		col.Stored = def.Stored
	}

	if def.Default != nil {
		if !eval.IsConstant(def.Default) && !isTimeDefault(def.Default) {
			return col, core.Errorf(core.ErrSchema, "default value of column [%s] is not constant", def.Name)
		}
		text := def.DefaultText
		if lit, ok := def.Default.(sql.Literal); ok {
			text = lit.Value.Literal()
		}
		col.Default = &text
	}

	for _, check := range def.Checks {
		if !eval.IsDeterministic(check.Expr) {
			return col, core.Errorf(core.ErrSchema, "non-deterministic functions prohibited in CHECK constraints")
		}
	}

	return col, nil
}

// isTimeDefault reports whether e is CURRENT_TIME, CURRENT_DATE or CURRENT_TIMESTAMP,
// the only non-constant defaults CREATE TABLE accepts.
func isTimeDefault(e sql.Expr) bool {
	call, ok := e.(sql.FuncCall)
	if !ok || len(call.Args) > 0 {
		return false
	}
	switch call.Name {
	case "current_time", "current_date", "current_timestamp":
		return true
	}
	return false
}

func checksFromDef(def sql.ColumnDef) []core.Check {
	var checks []core.Check
	for _, check := range def.Checks {
		checks = append(checks, core.Check{Name: check.Name, Expr: check.Text})
	}
	return checks
}
