package db

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nickyhof/StrictDB/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestCopyExportImport(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)
	mustExec(t, engine, "INSERT INTO users (id, name) VALUES (4, 'Dave')")

	path := filepath.Join(t.TempDir(), "users.csv")
	result := mustExec(t, engine, fmt.Sprintf("COPY users TO '%s'", path))
	if cr := result.(CommitResult); cr.RecordsRead != 4 {
		t.Errorf("RecordsRead = %d, want 4", cr.RecordsRead)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "id,name,age\n1,Alice,30\n2,Bob,25\n3,Charlie,35\n4,Dave,\n"
	if string(data) != want {
		t.Errorf("export = %q, want %q", data, want)
	}

	mustExec(t, engine, "CREATE TABLE copy (id INTEGER PRIMARY KEY, name TEXT, age INT)")
	result = mustExec(t, engine, fmt.Sprintf("COPY INTO copy FROM '%s'", path))
	if cr := result.(CommitResult); cr.RecordsWritten != 4 {
		t.Errorf("RecordsWritten = %d, want 4", cr.RecordsWritten)
	}

	// only the rowid alias converts; other fields of a non-STRICT table stay text
	got := queryData(t, engine, "SELECT id, typeof(id), name, age, typeof(age) FROM copy")
	wantRows := [][]string{
		{"1", "integer", "Alice", "30", "text"},
		{"2", "integer", "Bob", "25", "text"},
		{"3", "integer", "Charlie", "35", "text"},
		{"4", "integer", "Dave", "", "text"},
	}
	if !reflect.DeepEqual(got, wantRows) {
		t.Errorf("got %v, want %v", got, wantRows)
	}
}

func TestCopyIntoStrictTable(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine, "CREATE TABLE t (a INTEGER, r REAL, s TEXT) STRICT")

	path := writeFile(t, "t.csv", "s,a,r\nx,1,2\ny,0x10,3.5\n")
	_, err := engine.Execute(fmt.Sprintf("COPY INTO t FROM '%s'", path))
	expectError(t, err, core.ErrTypeMismatch, "cannot store TEXT value in INTEGER column t.a")

	if got := queryData(t, engine, "SELECT a FROM t"); len(got) != 0 {
		t.Errorf("failed COPY left rows: %v", got)
	}

	path = writeFile(t, "ok.csv", "s,a,r\nx,1,2\ny,-3,3.5\n")
	mustExec(t, engine, fmt.Sprintf("COPY INTO t FROM '%s'", path))

	got := queryData(t, engine, "SELECT typeof(a), a, typeof(r), r, s FROM t")
	want := [][]string{
		{"integer", "1", "real", "2.0", "x"},
		{"integer", "-3", "real", "3.5", "y"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCopyIntoErrors(t *testing.T) {
	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t (a INT, g AS (a * 2))",
		"CREATE VIEW v AS SELECT a FROM t",
	)

	tests := []struct {
		name    string
		table   string
		content string
		kind    error
	}{
		{"unknown column", "t", "a,b\n1,2\n", core.ErrUnknownColumn},
		{"generated column", "t", "a,g\n1,2\n", core.ErrGeneratedColumn},
		{"view", "v", "a\n1\n", core.ErrSchema},
		{"unknown table", "nope", "a\n1\n", core.ErrNoSuchTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "in.csv", tt.content)
			_, err := engine.Execute(fmt.Sprintf("COPY INTO %s FROM '%s'", tt.table, path))
			expectError(t, err, tt.kind, "")
		})
	}

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, "empty.csv", "")
		if _, err := engine.Execute(fmt.Sprintf("COPY INTO t FROM '%s'", path)); err == nil {
			t.Error("Expected error for CSV without header")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.csv")
		if _, err := engine.Execute(fmt.Sprintf("COPY INTO t FROM '%s'", path)); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

func TestCopyFromHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data.csv" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "a,b\n1,one\n2,two\n")
	}))
	defer server.Close()

	engine := setupTestEngine(t)
	mustExec(t, engine,
		"CREATE TABLE t (a INT, b TEXT)",
		fmt.Sprintf("COPY INTO t FROM '%s/data.csv'", server.URL),
	)

	got := queryData(t, engine, "SELECT a, b FROM t")
	if want := [][]string{{"1", "one"}, {"2", "two"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	_, err := engine.Execute(fmt.Sprintf("COPY INTO t FROM '%s/missing.csv'", server.URL))
	if err == nil {
		t.Error("Expected error for HTTP 404")
	}
	_, err = engine.Execute(fmt.Sprintf("COPY t TO '%s/out.csv'", server.URL))
	if err == nil {
		t.Error("Expected error writing over HTTP")
	}
}

func TestCopyViewToFile(t *testing.T) {
	engine := setupTestEngine(t)
	insertTestData(t, engine)
	mustExec(t, engine, "CREATE VIEW older AS SELECT name, age FROM users WHERE age > 28")

	path := filepath.Join(t.TempDir(), "older.csv")
	mustExec(t, engine, fmt.Sprintf("COPY older TO 'file://%s'", path))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "name,age\nAlice,30\nCharlie,35\n"; string(data) != want {
		t.Errorf("export = %q, want %q", data, want)
	}
}

func TestDetectScheme(t *testing.T) {
	tests := []struct {
		path string
		want urlScheme
	}{
		{"s3://bucket/key.csv", schemeS3},
		{"S3://bucket/key.csv", schemeS3},
		{"https://example.com/a.csv", schemeHTTPS},
		{"http://example.com/a.csv", schemeHTTP},
		{"file:///tmp/a.csv", schemeFile},
		{"/tmp/a.csv", schemeLocal},
		{"a.csv", schemeLocal},
	}

	for _, tt := range tests {
		if got := detectScheme(tt.path); got != tt.want {
			t.Errorf("detectScheme(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		url     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://bucket/key.csv", "bucket", "key.csv", false},
		{"s3://bucket/dir/sub/key.csv", "bucket", "dir/sub/key.csv", false},
		{"s3://bucket", "", "", true},
		{"s3://bucket/", "", "", true},
		{"s3:///key.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			bucket, key, err := parseS3URL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseS3URL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("parseS3URL(%q) = (%q, %q), want (%q, %q)", tt.url, bucket, key, tt.bucket, tt.key)
			}
		})
	}
}
