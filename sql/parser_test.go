package sql

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/nickyhof/StrictDB/core"
)

func intLit(i int64) Literal {
	return Literal{Value: core.Integer(i)}
}

func col(name string) ColumnRef {
	return ColumnRef{Name: name}
}

func TestParser(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected Statement
	}{
		{
			"select wildcard",
			"SELECT * FROM test",
			SelectStatement{
				Table:   "test",
				Columns: []ResultColumn{{Star: true, Text: "*"}},
			},
		},
		{
			"select qualified table",
			"SELECT a FROM main.test WHERE a = 10",
			SelectStatement{
				Table:   "test",
				Columns: []ResultColumn{{Expr: col("a"), Text: "a"}},
				Where:   BinaryExpr{Op: "=", Left: col("a"), Right: intLit(10)},
			},
		},
		{
			"select without from",
			"SELECT tointeger('12') AS v",
			SelectStatement{
				Columns: []ResultColumn{{
					Expr:  FuncCall{Name: "tointeger", Args: []Expr{Literal{Value: core.Text("12")}}},
					Alias: "v",
					Text:  "tointeger('12')",
				}},
			},
		},
		{
			"select order limit offset",
			"SELECT a FROM t ORDER BY a DESC, b LIMIT 10 OFFSET 5",
			SelectStatement{
				Table:   "t",
				Columns: []ResultColumn{{Expr: col("a"), Text: "a"}},
				OrderBy: []OrderByClause{{Expr: col("a"), Descending: true}, {Expr: col("b")}},
				Limit:   intLit(10),
				Offset:  intLit(5),
			},
		},
		{
			"update swap with returning",
			"UPDATE t SET a = b, b = a WHERE id = 1 RETURNING *",
			UpdateStatement{
				Table: "t",
				Set: []SetClause{
					{Column: "a", Value: col("b")},
					{Column: "b", Value: col("a")},
				},
				Where:     BinaryExpr{Op: "=", Left: col("id"), Right: intLit(1)},
				Returning: []ResultColumn{{Star: true, Text: "*"}},
			},
		},
		{
			"update column named value",
			"UPDATE test SET value = 20.5 WHERE id = 1 RETURNING id, name, value",
			UpdateStatement{
				Table: "test",
				Set:   []SetClause{{Column: "value", Value: Literal{Value: core.Real(20.5)}}},
				Where: BinaryExpr{Op: "=", Left: col("id"), Right: intLit(1)},
				Returning: []ResultColumn{
					{Expr: col("id"), Text: "id"},
					{Expr: col("name"), Text: "name"},
					{Expr: col("value"), Text: "value"},
				},
			},
		},
		{
			"insert multiple rows",
			"INSERT INTO t (a, b) VALUES (1, 'x'), (2, NULL) RETURNING a",
			InsertStatement{
				Table:   "t",
				Columns: []string{"a", "b"},
				Rows: [][]Expr{
					{intLit(1), Literal{Value: core.Text("x")}},
					{intLit(2), Literal{Value: core.Null()}},
				},
				Returning: []ResultColumn{{Expr: col("a"), Text: "a"}},
			},
		},
		{
			"insert default values",
			"INSERT INTO t DEFAULT VALUES",
			InsertStatement{Table: "t", DefaultValues: true},
		},
		{
			"delete",
			"DELETE FROM t WHERE a IS NULL",
			DeleteStatement{
				Table: "t",
				Where: BinaryExpr{Op: "IS", Left: col("a"), Right: Literal{Value: core.Null()}},
			},
		},
		{
			"drop table if exists",
			"DROP TABLE IF EXISTS t",
			DropTableStatement{Table: "t", IfExists: true},
		},
		{
			"drop view",
			"DROP VIEW v",
			DropViewStatement{Name: "v"},
		},
		{
			"describe",
			"DESCRIBE t",
			DescribeStatement{Table: "t"},
		},
		{
			"show tables",
			"SHOW TABLES;",
			ShowTablesStatement{},
		},
		{
			"copy into",
			"COPY INTO t FROM 's3://bucket/data.csv'",
			CopyStatement{Table: "t", Path: "s3://bucket/data.csv", Import: true},
		},
		{
			"copy to",
			"COPY t TO '/tmp/out.csv'",
			CopyStatement{Table: "t", Path: "/tmp/out.csv"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := Parse(test.sql)

			if err != nil {
				t.Errorf("Test Failed: Unexpected error: %v", err)
				return
			}

			if !reflect.DeepEqual(actual, test.expected) {
				t.Errorf("Test Failed: Expected %+v, got %+v", test.expected, actual)
			}
		})
	}
}

func TestParseCreateTable(t *testing.T) {
	query := "CREATE TABLE t1 (id INTEGER PRIMARY KEY, a TEXT NOT NULL DEFAULT 'x' COLLATE NOCASE, b REAL CHECK (b > 0), c AS (a || 'y') STORED, CONSTRAINT uq UNIQUE (a, b), CHECK(id != 0)) STRICT"

	statement, err := Parse(query)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	create, ok := statement.(CreateTableStatement)
	if !ok {
		t.Fatalf("Expected CreateTableStatement, got %T", statement)
	}

	if !create.Strict {
		t.Error("Expected STRICT")
	}
	if len(create.Columns) != 4 {
		t.Fatalf("Expected 4 columns, got %d", len(create.Columns))
	}

	id := create.Columns[0]
	if id.Name != "id" || id.Type != "INTEGER" || !id.PrimaryKey {
		t.Errorf("Unexpected id column: %+v", id)
	}

	a := create.Columns[1]
	if !a.NotNull || a.DefaultText != "'x'" || a.Collate != "NOCASE" {
		t.Errorf("Unexpected a column: %+v", a)
	}
	if a.Text != "a TEXT NOT NULL DEFAULT 'x' COLLATE NOCASE" {
		t.Errorf("Unexpected column text: %q", a.Text)
	}

	b := create.Columns[2]
	if len(b.Checks) != 1 || b.Checks[0].Text != "b > 0" {
		t.Errorf("Unexpected b checks: %+v", b.Checks)
	}

	c := create.Columns[3]
	if c.GeneratedText != "a || 'y'" || !c.Stored || c.Type != "" {
		t.Errorf("Unexpected generated column: %+v", c)
	}

	if len(create.Constraints) != 2 {
		t.Fatalf("Expected 2 table constraints, got %d", len(create.Constraints))
	}
	if create.Constraints[0].Name != "uq" || create.Constraints[0].Kind != UniqueConstraint ||
		!reflect.DeepEqual(create.Constraints[0].Columns, []string{"a", "b"}) {
		t.Errorf("Unexpected unique constraint: %+v", create.Constraints[0])
	}
	if create.Constraints[1].Kind != CheckConstraint || create.Constraints[1].Check.Text != "id != 0" {
		t.Errorf("Unexpected check constraint: %+v", create.Constraints[1])
	}

	if create.SQL != query {
		t.Errorf("Expected SQL to be kept verbatim, got %q", create.SQL)
	}
	if got := create.SQL[:create.ColumnsEnd]; got[len(got)-len("STORED"):] != "STORED" {
		t.Errorf("Column list should end after the last column definition, got %q", got)
	}
}

func TestSpliceColumn(t *testing.T) {
	tests := []struct {
		name   string
		create string
		column string
		want   string
	}{
		{
			"no constraints",
			"CREATE TABLE t1 (a INTEGER)",
			"c TEXT DEFAULT 'x'",
			"CREATE TABLE t1 (a INTEGER, c TEXT DEFAULT 'x')",
		},
		{
			"before table constraints",
			"CREATE TABLE t1(a  INT ,\n b TEXT,  UNIQUE(a) ,CHECK(b<>''))",
			"c",
			"CREATE TABLE t1(a  INT ,\n b TEXT, c,  UNIQUE(a) ,CHECK(b<>''))",
		},
		{
			"strict suffix kept",
			"create table t (x any) strict",
			"y INTEGER",
			"create table t (x any, y INTEGER) strict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statement, err := Parse(tt.create)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			create := statement.(CreateTableStatement)

			got, end, err := SpliceColumn(create.SQL, create.ColumnsEnd, tt.column)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}

			reparsed, err := Parse(got)
			if err != nil {
				t.Fatalf("Spliced text does not parse: %v", err)
			}
			if reparsed.(CreateTableStatement).ColumnsEnd != end {
				t.Errorf("column end %d does not match reparsed %d", end, reparsed.(CreateTableStatement).ColumnsEnd)
			}
		})
	}
}

func TestParseAlterAddColumn(t *testing.T) {
	tests := []struct {
		sql  string
		want ColumnDef
	}{
		{
			"ALTER TABLE t1 ADD COLUMN c CHECK(a!=1)",
			ColumnDef{
				Name:   "c",
				Checks: []CheckDef{{Expr: BinaryExpr{Op: "!=", Left: col("a"), Right: intLit(1)}, Text: "a!=1"}},
				Text:   "c CHECK(a!=1)",
			},
		},
		{
			"ALTER TABLE t1 ADD c PRIMARY KEY",
			ColumnDef{Name: "c", PrimaryKey: true, Text: "c PRIMARY KEY"},
		},
		{
			"ALTER TABLE t1 ADD c UNIQUE",
			ColumnDef{Name: "c", Unique: true, Text: "c UNIQUE"},
		},
		{
			"ALTER TABLE t1 ADD COLUMN d INTEGER NOT NULL DEFAULT -1",
			ColumnDef{Name: "d", Type: "INTEGER", NotNull: true, Default: intLit(-1), DefaultText: "-1", Text: "d INTEGER NOT NULL DEFAULT -1"},
		},
		{
			"ALTER TABLE t1 ADD COLUMN e GENERATED ALWAYS AS (a * 2) VIRTUAL",
			ColumnDef{
				Name:          "e",
				Generated:     BinaryExpr{Op: "*", Left: col("a"), Right: intLit(2)},
				GeneratedText: "a * 2",
				Text:          "e GENERATED ALWAYS AS (a * 2) VIRTUAL",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			statement, err := Parse(tt.sql)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			alter, ok := statement.(AlterTableStatement)
			if !ok {
				t.Fatalf("Expected AlterTableStatement, got %T", statement)
			}
			if alter.Table != "t1" {
				t.Errorf("Expected table t1, got %s", alter.Table)
			}
			if !reflect.DeepEqual(alter.Column, tt.want) {
				t.Errorf("Expected %+v, got %+v", tt.want, alter.Column)
			}
		})
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	tests := []struct {
		text string
		want Expr
	}{
		{
			"1 + 2 * 3",
			BinaryExpr{Op: "+", Left: intLit(1), Right: BinaryExpr{Op: "*", Left: intLit(2), Right: intLit(3)}},
		},
		{
			"a = 1 OR b = 2 AND c = 3",
			BinaryExpr{Op: "OR",
				Left: BinaryExpr{Op: "=", Left: col("a"), Right: intLit(1)},
				Right: BinaryExpr{Op: "AND",
					Left:  BinaryExpr{Op: "=", Left: col("b"), Right: intLit(2)},
					Right: BinaryExpr{Op: "=", Left: col("c"), Right: intLit(3)}}},
		},
		{
			"NOT a BETWEEN 1 AND 2",
			UnaryExpr{Op: "NOT", X: BetweenExpr{X: col("a"), Low: intLit(1), High: intLit(2)}},
		},
		{
			"a NOT IN (1, 2)",
			InExpr{X: col("a"), List: []Expr{intLit(1), intLit(2)}, Not: true},
		},
		{
			"a IS NOT NULL",
			BinaryExpr{Op: "IS NOT", Left: col("a"), Right: Literal{Value: core.Null()}},
		},
		{
			"a NOT NULL",
			IsNullExpr{X: col("a"), Not: true},
		},
		{
			"name NOT LIKE 'a%'",
			LikeExpr{X: col("name"), Pattern: Literal{Value: core.Text("a%")}, Not: true},
		},
		{
			"t.a || 'x'",
			BinaryExpr{Op: "||", Left: ColumnRef{Table: "t", Name: "a"}, Right: Literal{Value: core.Text("x")}},
		},
		{
			"CAST(a AS INTEGER)",
			CastExpr{X: col("a"), Type: "INTEGER"},
		},
		{
			"x'0aFF'",
			Literal{Value: core.Blob([]byte{0x0a, 0xff})},
		},
		{
			`"select" + [key]`,
			BinaryExpr{Op: "+", Left: col("select"), Right: col("key")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseExpression(tt.text)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseNumericLiterals(t *testing.T) {
	tests := []struct {
		text string
		want core.Value
	}{
		{"-9223372036854775808", core.Integer(math.MinInt64)},
		{"9223372036854775807", core.Integer(math.MaxInt64)},
		{"9223372036854775808", core.Real(9223372036854775808.0)},
		{"1.79769313486232e308", core.Real(math.Inf(1))},
		{".5", core.Real(0.5)},
		{"-2.5", core.Real(-2.5)},
		{"TRUE", core.Integer(1)},
	}

	for _, tt := range tests {
		got, err := ParseExpression(tt.text)
		if err != nil {
			t.Fatalf("ParseExpression(%q): %v", tt.text, err)
		}
		lit, ok := got.(Literal)
		if !ok || !lit.Value.Equal(tt.want) {
			t.Errorf("ParseExpression(%q) = %+v, want %s", tt.text, got, tt.want.Literal())
		}
	}

	// Subtraction is not folded into the literal.
	got, err := ParseExpression("-9223372036854775808 - 1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := BinaryExpr{Op: "-", Left: intLit(math.MinInt64), Right: intLit(1)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestParseErrors(t *testing.T) {
	invalid := []string{
		"",
		"SELECT",
		"UPDATE t SET",
		"UPDATE t SET a = 1 WHERE",
		"CREATE TABLE t ()",
		"CREATE TABLE t (a, UNIQUE(a), b)",
		"CREATE TABLE t (a) WITHOUT",
		"ALTER TABLE t DROP COLUMN a",
		"SELECT 'unterminated",
		"SELECT 1 2 3",
		"INSERT INTO t VALUES (1",
	}

	for _, query := range invalid {
		if _, err := Parse(query); err == nil {
			t.Errorf("Expected error for %q", query)
		}
	}

	_, err := Parse("SELECT FROM")
	if !errors.Is(err, ErrSyntax) {
		t.Errorf("Expected ErrSyntax, got %v", err)
	}
}

func TestParseAll(t *testing.T) {
	statements, err := ParseAll("CREATE TABLE t (a); INSERT INTO t VALUES (1);; SELECT * FROM t")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(statements) != 3 {
		t.Fatalf("Expected 3 statements, got %d", len(statements))
	}
	if statements[0].(CreateTableStatement).SQL != "CREATE TABLE t (a)" {
		t.Errorf("Unexpected SQL: %q", statements[0].(CreateTableStatement).SQL)
	}
}
