package db

import (
	"reflect"
	"testing"

	"github.com/nickyhof/StrictDB/core"
)

// schemaOf returns the stored text and version of table as SHOW TABLES reports them.
func schemaOf(t *testing.T, engine *Engine, table string) (string, string) {
	t.Helper()

	for _, row := range queryData(t, engine, "SHOW TABLES") {
		if row[1] == table {
			return row[2], row[3]
		}
	}
	t.Fatalf("table %s not found", table)
	return "", ""
}

func TestAlterAddColumn(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t1 (a INT, b TEXT)",
		"INSERT INTO t1 VALUES (1, 'x'), (2, 'y')",
	)

	result := mustExec(t, engine, "ALTER TABLE t1 ADD COLUMN c INT DEFAULT 7")
	if cr := result.(CommitResult); cr.TablesAltered != 1 || cr.RecordsWritten != 2 {
		t.Errorf("unexpected result %+v", cr)
	}

	got := queryData(t, engine, "SELECT a, b, c FROM t1")
	if want := [][]string{{"1", "x", "7"}, {"2", "y", "7"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	text, version := schemaOf(t, engine, "t1")
	if text != "CREATE TABLE t1 (a INT, b TEXT, c INT DEFAULT 7)" {
		t.Errorf("schema text = %q", text)
	}
	if version != "2" {
		t.Errorf("version = %s, want 2", version)
	}

	// new rows pick up the default too
	mustExec(t, engine, "INSERT INTO t1 (a) VALUES (3)")
	if got := queryData(t, engine, "SELECT c FROM t1 WHERE a = 3"); !reflect.DeepEqual(got, [][]string{{"7"}}) {
		t.Errorf("got %v", got)
	}
}

func TestAlterAddColumnWithoutDefault(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t1 (a)",
		"INSERT INTO t1 VALUES (1)",
		"ALTER TABLE t1 ADD d",
	)

	got := queryData(t, engine, "SELECT a, d, typeof(d) FROM t1")
	if want := [][]string{{"1", "NULL", "null"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAlterSpliceBeforeTableConstraints(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t2 (\n  a INT,\n  b INT,\n  UNIQUE (a, b)\n)",
		"ALTER TABLE t2 ADD COLUMN c TEXT",
		"ALTER TABLE t2 ADD COLUMN d CHECK (d > 0)",
	)

	text, version := schemaOf(t, engine, "t2")
	want := "CREATE TABLE t2 (\n  a INT,\n  b INT, c TEXT, d CHECK (d > 0),\n  UNIQUE (a, b)\n)"
	if text != want {
		t.Errorf("schema text = %q, want %q", text, want)
	}
	if version != "3" {
		t.Errorf("version = %s, want 3", version)
	}

	// the spliced text still describes the table
	_, err := engine.Execute("INSERT INTO t2 (a, b, d) VALUES (1, 1, 0)")
	expectError(t, err, core.ErrCheck, "CHECK constraint failed: d > 0")
}

func TestAlterCheckFailsOnExistingRow(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t1 (a INT, b INT)",
		"INSERT INTO t1 VALUES (2, 0), (1, 0)",
	)
	before := engine.Persistence.LatestTransaction()

	_, err := engine.Execute("ALTER TABLE t1 ADD COLUMN c CHECK(a!=1)")
	expectError(t, err, core.ErrCheck, "CHECK constraint failed: a!=1")

	if after := engine.Persistence.LatestTransaction(); after.Id != before.Id {
		t.Errorf("failed ALTER made commit %s", after.Id)
	}
	text, version := schemaOf(t, engine, "t1")
	if text != "CREATE TABLE t1 (a INT, b INT)" || version != "1" {
		t.Errorf("schema changed to %q version %s", text, version)
	}
	_, err = engine.Execute("SELECT c FROM t1")
	expectError(t, err, core.ErrUnknownColumn, "")
}

func TestAlterRejections(t *testing.T) {
	tests := []struct {
		name  string
		alter string
		kind  error
	}{
		{"primary key", "ALTER TABLE t1 ADD c PRIMARY KEY", core.ErrSchema},
		{"unique", "ALTER TABLE t1 ADD c UNIQUE", core.ErrSchema},
		{"duplicate", "ALTER TABLE t1 ADD COLUMN A INT", core.ErrSchema},
		{"not null without default", "ALTER TABLE t1 ADD COLUMN c INT NOT NULL", core.ErrSchema},
		{"not null default null", "ALTER TABLE t1 ADD COLUMN c INT NOT NULL DEFAULT NULL", core.ErrSchema},
		{"time default", "ALTER TABLE t1 ADD COLUMN c DEFAULT CURRENT_TIMESTAMP", core.ErrSchema},
		{"random default", "ALTER TABLE t1 ADD COLUMN c DEFAULT (random())", core.ErrSchema},
		{"column default", "ALTER TABLE t1 ADD COLUMN c DEFAULT (a)", core.ErrSchema},
		{"stored generated", "ALTER TABLE t1 ADD COLUMN c AS (a + 1) STORED", core.ErrSchema},
		{"unknown table", "ALTER TABLE nope ADD COLUMN c", core.ErrNoSuchTable},
		{"unknown column in check", "ALTER TABLE t1 ADD COLUMN c CHECK (z > 0)", core.ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, rows := range []string{"", "INSERT INTO t1 VALUES (1)"} {
				engine := setupTestEngine(t)
				mustExec(t, engine, "CREATE TABLE t1 (a INT)")
				if rows != "" {
					mustExec(t, engine, rows)
				}

				_, err := engine.Execute(tt.alter)
				expectError(t, err, tt.kind, "")

				if tt.kind != core.ErrNoSuchTable {
					if _, version := schemaOf(t, engine, "t1"); version != "1" {
						t.Errorf("version = %s after failed ALTER", version)
					}
				}
			}
		})
	}
}

func TestAlterRejectionMessages(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine, "CREATE TABLE t1 (a INT)")

	tests := []struct {
		alter   string
		message string
	}{
		{"ALTER TABLE t1 ADD c PRIMARY KEY", "Cannot add a PRIMARY KEY column"},
		{"ALTER TABLE t1 ADD c UNIQUE", "Cannot add a UNIQUE column"},
		{"ALTER TABLE t1 ADD a", "duplicate column name: a"},
		{"ALTER TABLE t1 ADD c NOT NULL", "Cannot add a NOT NULL column with default value NULL"},
		{"ALTER TABLE t1 ADD c DEFAULT CURRENT_TIME", "Cannot add a column with non-constant default"},
	}

	for _, tt := range tests {
		t.Run(tt.alter, func(t *testing.T) {
			_, err := engine.Execute(tt.alter)
			expectError(t, err, core.ErrSchema, tt.message)
		})
	}
}

func TestAlterGeneratedColumn(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t1 (a INT, b INT)",
		"INSERT INTO t1 VALUES (1, 2), (3, 4)",
		"ALTER TABLE t1 ADD COLUMN s AS (a + b)",
	)

	got := queryData(t, engine, "SELECT s FROM t1")
	if want := [][]string{{"3"}, {"7"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	mustExec(t, engine, "UPDATE t1 SET a = 10 WHERE b = 2")
	got = queryData(t, engine, "SELECT s FROM t1")
	if want := [][]string{{"12"}, {"7"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAlterGeneratedColumnNotNull(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t1 (a INT, b INT)",
		"INSERT INTO t1 VALUES (1, NULL)",
	)

	_, err := engine.Execute("ALTER TABLE t1 ADD COLUMN s NOT NULL AS (a + b)")
	expectError(t, err, core.ErrNotNull, "NOT NULL constraint failed: t1.s")

	mustExec(t, engine, "UPDATE t1 SET b = 1", "ALTER TABLE t1 ADD COLUMN s NOT NULL AS (a + b)")
	if got := queryData(t, engine, "SELECT s FROM t1"); !reflect.DeepEqual(got, [][]string{{"2"}}) {
		t.Errorf("got %v", got)
	}
}

func TestAlterStrictTable(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t1 (a INTEGER) STRICT",
		"INSERT INTO t1 VALUES (1)",
	)

	tests := []struct {
		alter string
		kind  error
	}{
		{"ALTER TABLE t1 ADD COLUMN c", core.ErrSchema},
		{"ALTER TABLE t1 ADD COLUMN c VARCHAR(10)", core.ErrSchema},
		{"ALTER TABLE t1 ADD COLUMN c INTEGER DEFAULT 'abc'", core.ErrTypeMismatch},
		{"ALTER TABLE t1 ADD COLUMN c BLOB DEFAULT 1", core.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.alter, func(t *testing.T) {
			_, err := engine.Execute(tt.alter)
			expectError(t, err, tt.kind, "")
		})
	}

	// a default of the wrong type fails on an empty table as well
	mustExec(t, engine, "CREATE TABLE empty (a INTEGER) STRICT")
	_, err := engine.Execute("ALTER TABLE empty ADD COLUMN c INTEGER DEFAULT 'abc'")
	expectError(t, err, core.ErrTypeMismatch, "")

	mustExec(t, engine, "ALTER TABLE t1 ADD COLUMN r REAL DEFAULT '2.5'")
	got := queryData(t, engine, "SELECT typeof(r), r FROM t1")
	if want := [][]string{{"real", "2.5"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAlterBackfillIsAtomic(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine, "CREATE TABLE t1 (a INT)")
	for i := 0; i < 20; i++ {
		mustExec(t, engine, "INSERT INTO t1 VALUES (0)")
	}
	mustExec(t, engine, "INSERT INTO t1 VALUES (1)")

	_, err := engine.Execute("ALTER TABLE t1 ADD COLUMN c DEFAULT 5 CHECK (c > a * 5)")
	expectError(t, err, core.ErrCheck, "")

	got := queryData(t, engine, "SHOW TABLES")
	if len(got) != 1 || got[0][3] != "1" {
		t.Errorf("schema changed: %v", got)
	}
	if got := queryData(t, engine, "SELECT a FROM t1"); len(got) != 21 {
		t.Errorf("row count = %d", len(got))
	}
}
