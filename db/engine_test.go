package db

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/ps"
)

func setupTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	identity := core.Identity{Name: "test", Email: "test@test.com"}
	return NewEngine(persistence, identity, opts...)
}

func mustExec(t *testing.T, engine *Engine, queries ...string) Result {
	t.Helper()

	var result Result
	for _, query := range queries {
		var err error
		result, err = engine.Execute(query)
		if err != nil {
			t.Fatalf("%s: %v", query, err)
		}
	}
	return result
}

// queryData runs a SELECT and returns its rows rendered as text.
func queryData(t *testing.T, engine *Engine, query string) [][]string {
	t.Helper()

	result := mustExec(t, engine, query)
	qr, ok := result.(QueryResult)
	if !ok {
		t.Fatalf("%s: expected QueryResult, got %T", query, result)
	}
	return qr.Data()
}

func expectError(t *testing.T, err error, kind error, message string) {
	t.Helper()

	if err == nil {
		t.Fatalf("Expected %v error, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("Expected %v error, got %v", kind, err)
	}
	if message != "" && err.Error() != message {
		t.Errorf("Expected message %q, got %q", message, err.Error())
	}
}

func insertTestData(t *testing.T, engine *Engine) {
	mustExec(t, engine,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INT)",
		"INSERT INTO users (id, name, age) VALUES (1, 'Alice', 30)",
		"INSERT INTO users (id, name, age) VALUES (2, 'Bob', 25)",
		"INSERT INTO users (id, name, age) VALUES (3, 'Charlie', 35)",
	)
}

func TestEngineSelect(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	tests := []struct {
		query string
		want  [][]string
	}{
		{"SELECT * FROM users", [][]string{{"1", "Alice", "30"}, {"2", "Bob", "25"}, {"3", "Charlie", "35"}}},
		{"SELECT name FROM users WHERE age > 28", [][]string{{"Alice"}, {"Charlie"}}},
		{"SELECT name FROM users ORDER BY age DESC", [][]string{{"Charlie"}, {"Alice"}, {"Bob"}}},
		{"SELECT name, age * 2 AS twice FROM users ORDER BY twice LIMIT 1", [][]string{{"Bob", "50"}}},
		{"SELECT name FROM users ORDER BY 1 LIMIT 2 OFFSET 1", [][]string{{"Bob"}, {"Charlie"}}},
		{"SELECT u.name FROM users u WHERE u.rowid = 2", [][]string{{"Bob"}}},
		{"SELECT name FROM users WHERE name LIKE 'a%'", [][]string{{"Alice"}}},
		{"SELECT name FROM users WHERE age BETWEEN 26 AND 34", [][]string{{"Alice"}}},
		{"SELECT 1 + 1, typeof(1.5), tointeger('12')", [][]string{{"2", "real", "12"}}},
		{"SELECT NULL", [][]string{{"NULL"}}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := queryData(t, engine, tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineSelectDistinct(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t (a)",
		"INSERT INTO t VALUES (1), (1.0), ('1'), (NULL), (NULL)",
	)

	got := queryData(t, engine, "SELECT DISTINCT a FROM t")
	want := [][]string{{"1"}, {"1"}, {"NULL"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEngineSelectErrors(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	tests := []struct {
		query string
		kind  error
	}{
		{"SELECT missing FROM users", core.ErrUnknownColumn},
		{"SELECT * FROM nope", core.ErrNoSuchTable},
		{"SELECT name FROM users ORDER BY 3", core.ErrSchema},
		{"SELECT *", core.ErrSchema},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := engine.Execute(tt.query)
			expectError(t, err, tt.kind, "")
		})
	}
}

func TestEngineInsert(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine, "CREATE TABLE t (id INTEGER PRIMARY KEY, a TEXT DEFAULT 'x', b INT)")

	result := mustExec(t, engine, "INSERT INTO t (b) VALUES (1), (2) RETURNING id, a, b")
	cr := result.(CommitResult)
	if cr.RecordsWritten != 2 {
		t.Errorf("Expected 2 records written, got %d", cr.RecordsWritten)
	}
	want := [][]string{{"1", "x", "1"}, {"2", "x", "2"}}
	if got := renderRows(cr.Rows); !reflect.DeepEqual(got, want) {
		t.Errorf("RETURNING got %v, want %v", got, want)
	}

	mustExec(t, engine,
		"INSERT INTO t VALUES (10, 'y', 3)",
		"INSERT INTO t (a) VALUES ('z')",
		"INSERT INTO t DEFAULT VALUES",
	)
	got := queryData(t, engine, "SELECT id, a FROM t WHERE id > 2")
	want = [][]string{{"10", "y"}, {"11", "z"}, {"12", "x"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEngineInsertSelect(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)
	mustExec(t, engine,
		"CREATE TABLE names (name TEXT)",
		"INSERT INTO names SELECT name FROM users WHERE age < 35",
	)

	got := queryData(t, engine, "SELECT name FROM names")
	want := [][]string{{"Alice"}, {"Bob"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEngineInsertConstraints(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, a INT NOT NULL, b TEXT UNIQUE, CHECK (a > 0))",
		"INSERT INTO t VALUES (1, 1, 'one')",
	)

	tests := []struct {
		query   string
		kind    error
		message string
	}{
		{"INSERT INTO t VALUES (2, NULL, 'two')", core.ErrNotNull, "NOT NULL constraint failed: t.a"},
		{"INSERT INTO t VALUES (2, 0, 'two')", core.ErrCheck, "CHECK constraint failed: a > 0"},
		{"INSERT INTO t VALUES (2, 2, 'one')", core.ErrUnique, "UNIQUE constraint failed: t.b"},
		{"INSERT INTO t VALUES (1, 2, 'two')", core.ErrUnique, "UNIQUE constraint failed: t.id"},
		{"INSERT INTO t VALUES (2, 2, 'two'), (3, 3, 'two')", core.ErrUnique, "UNIQUE constraint failed: t.b"},
		{"INSERT INTO t (nope) VALUES (1)", core.ErrUnknownColumn, "no such column: nope"},
		{"INSERT INTO t VALUES (1)", core.ErrSchema, ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := engine.Execute(tt.query)
			expectError(t, err, tt.kind, tt.message)
		})
	}

	// every failed statement left the table alone
	got := queryData(t, engine, "SELECT * FROM t")
	if want := [][]string{{"1", "1", "one"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEngineGeneratedColumns(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t (a INT, b INT GENERATED ALWAYS AS (a * 2), c AS (b + 1))",
		"INSERT INTO t (a) VALUES (1)",
		"UPDATE t SET a = 5",
	)

	got := queryData(t, engine, "SELECT a, b, c FROM t")
	if want := [][]string{{"5", "10", "11"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	_, err := engine.Execute("INSERT INTO t (a, b) VALUES (1, 2)")
	expectError(t, err, core.ErrGeneratedColumn, "")

	_, err = engine.Execute("UPDATE t SET b = 1")
	expectError(t, err, core.ErrGeneratedColumn, "")
}

func TestEngineDelete(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	result := mustExec(t, engine, "DELETE FROM users WHERE age < 31 RETURNING name")
	cr := result.(CommitResult)
	if cr.RecordsDeleted != 2 {
		t.Errorf("Expected 2 records deleted, got %d", cr.RecordsDeleted)
	}
	if got, want := renderRows(cr.Rows), [][]string{{"Alice"}, {"Bob"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("RETURNING got %v, want %v", got, want)
	}

	mustExec(t, engine, "DELETE FROM users")
	if got := queryData(t, engine, "SELECT * FROM users"); len(got) != 0 {
		t.Errorf("Expected empty table, got %v", got)
	}

	// the table survives losing its last row
	mustExec(t, engine, "INSERT INTO users (name) VALUES ('Dora')")
	if got := queryData(t, engine, "SELECT id FROM users"); !reflect.DeepEqual(got, [][]string{{"1"}}) {
		t.Errorf("got %v", got)
	}
}

func TestEngineCreateTableErrors(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine, "CREATE TABLE t (a)")

	tests := []struct {
		query string
		kind  error
	}{
		{"CREATE TABLE t (b)", core.ErrSchema},
		{"CREATE TABLE u (a, A)", core.ErrSchema},
		{"CREATE TABLE u (a INTEGER PRIMARY KEY, b PRIMARY KEY)", core.ErrSchema},
		{"CREATE TABLE u (a) STRICT", core.ErrSchema},
		{"CREATE TABLE u (a VARCHAR) STRICT", core.ErrSchema},
		{"CREATE TABLE u (a DEFAULT (random()))", core.ErrSchema},
		{"CREATE TABLE u (a, CHECK (b > 0))", core.ErrUnknownColumn},
		{"CREATE TABLE u (a AS (b), b AS (a))", core.ErrSchema},
		{"CREATE TABLE u (a COLLATE nope)", core.ErrSchema},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := engine.Execute(tt.query)
			expectError(t, err, tt.kind, "")
		})
	}

	mustExec(t, engine, "CREATE TABLE IF NOT EXISTS t (b)")
	if got := queryData(t, engine, "SHOW TABLES"); len(got) != 1 {
		t.Errorf("Expected one table, got %v", got)
	}
}

func TestEngineViews(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)
	mustExec(t, engine, "CREATE VIEW adults AS SELECT name, age FROM users WHERE age >= 30")

	got := queryData(t, engine, "SELECT name FROM adults ORDER BY age DESC")
	if want := [][]string{{"Charlie"}, {"Alice"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	for _, query := range []string{
		"UPDATE adults SET age = 1",
		"INSERT INTO adults VALUES ('x', 1)",
		"DELETE FROM adults",
		"ALTER TABLE adults ADD COLUMN c",
	} {
		_, err := engine.Execute(query)
		expectError(t, err, core.ErrSchema, "cannot modify adults because it is a view")
	}

	_, err := engine.Execute("DROP TABLE adults")
	expectError(t, err, core.ErrSchema, "")
	_, err = engine.Execute("CREATE TABLE adults (a)")
	expectError(t, err, core.ErrSchema, "view adults already exists")

	mustExec(t, engine, "DROP VIEW adults", "DROP VIEW IF EXISTS adults")
	_, err = engine.Execute("SELECT * FROM adults")
	expectError(t, err, core.ErrNoSuchTable, "")
}

func TestEngineDropTable(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	result := mustExec(t, engine, "DROP TABLE users")
	if cr := result.(CommitResult); cr.TablesDeleted != 1 || cr.RecordsDeleted != 3 {
		t.Errorf("unexpected result %+v", cr)
	}

	_, err := engine.Execute("DROP TABLE users")
	expectError(t, err, core.ErrNoSuchTable, "")
	mustExec(t, engine, "DROP TABLE IF EXISTS users")

	// a recreated table starts empty
	mustExec(t, engine, "CREATE TABLE users (a)")
	if got := queryData(t, engine, "SELECT * FROM users"); len(got) != 0 {
		t.Errorf("Expected empty table, got %v", got)
	}
}

func TestEngineDescribe(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT NOT NULL DEFAULT 'x', v REAL)")

	got := queryData(t, engine, "DESCRIBE t")
	want := [][]string{
		{"0", "id", "INTEGER", "0", "NULL", "1"},
		{"1", "name", "TEXT", "1", "'x'", "0"},
		{"2", "v", "REAL", "0", "NULL", "0"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEngineShowTables(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE b (x)",
		"CREATE TABLE a (y INT)",
		"CREATE VIEW v AS SELECT x FROM b",
	)

	got := queryData(t, engine, "SHOW TABLES")
	want := [][]string{
		{"table", "a", "CREATE TABLE a (y INT)", "1"},
		{"table", "b", "CREATE TABLE b (x)", "1"},
		{"view", "v", "CREATE VIEW v AS SELECT x FROM b", "NULL"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEngineCommitsPerStatement(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)

	before := engine.Persistence.LatestTransaction()

	// a statement that matches nothing makes no commit
	result := mustExec(t, engine, "UPDATE users SET age = 1 WHERE id = 99")
	if cr := result.(CommitResult); cr.Transaction.Id != before.Id {
		t.Errorf("Expected no new commit, got %s", cr.Transaction.Id)
	}

	result = mustExec(t, engine, "UPDATE users SET age = age + 1")
	cr := result.(CommitResult)
	if cr.Transaction.Id == before.Id {
		t.Fatal("Expected a new commit")
	}
	if !strings.HasPrefix(cr.Transaction.Message, "UPDATE users: 3 row(s)") {
		t.Errorf("unexpected commit message %q", cr.Transaction.Message)
	}
}

func TestResultRender(t *testing.T) {
	result := QueryResult{
		Columns: []string{"a", "b"},
		Rows:    []core.Row{{core.Integer(1), core.Null()}, {core.Text("héllo"), core.Real(2)}},
	}

	var buf bytes.Buffer
	result.Render(&buf)

	want := "+-------+------+\n" +
		"| a     | b    |\n" +
		"+-------+------+\n" +
		"| 1     | NULL |\n" +
		"| héllo | 2.0  |\n" +
		"+-------+------+\n"
	if !strings.HasPrefix(buf.String(), want) {
		t.Errorf("got\n%s\nwant prefix\n%s", buf.String(), want)
	}
	if !strings.Contains(buf.String(), "2 rows") {
		t.Errorf("missing row count in %q", buf.String())
	}
}
