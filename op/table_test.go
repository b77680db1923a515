package op

import (
	"errors"
	"math"
	"testing"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/ps"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func setupTable(t *testing.T, table core.Table, rows map[int64]core.Row) (*ps.Persistence, *TableOp) {
	t.Helper()
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	if _, _, err := CreateTable(table, persistence, testIdentity); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	if len(rows) > 0 {
		txn, _ := persistence.BeginTransaction()
		for id, row := range rows {
			data, err := core.EncodeRow(table, row)
			if err != nil {
				t.Fatalf("Failed to encode row: %v", err)
			}
			txn.AddWrite(table.Name, core.RowKey(id), data)
		}
		if _, err := txn.Commit(testIdentity); err != nil {
			t.Fatalf("Failed to commit rows: %v", err)
		}
	}

	snapshot, err := persistence.Snapshot()
	if err != nil {
		t.Fatalf("Failed to take snapshot: %v", err)
	}
	tableOp, err := GetTable(table.Name, persistence, snapshot)
	if err != nil {
		t.Fatalf("Failed to get table: %v", err)
	}
	return persistence, tableOp
}

func emailTable() core.Table {
	return core.Table{
		Database: core.MainDatabase,
		Name:     "users",
		Columns: []core.Column{
			{Name: "id", Type: "INTEGER", PrimaryKey: true},
			{Name: "email", Type: "TEXT", Collate: "NOCASE"},
		},
		PrimaryKey: []string{"id"},
		Uniques:    []core.UniqueConstraint{{Columns: []string{"email"}}},
	}
}

func TestScanDecodesInRowIDOrder(t *testing.T) {
	_, tableOp := setupTable(t, emailTable(), map[int64]core.Row{
		3:  {core.Integer(3), core.Text("c@x")},
		-1: {core.Integer(-1), core.Text("a@x")},
		2:  {core.Integer(2), core.Null()},
	})

	records, err := tableOp.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	want := []int64{-1, 2, 3}
	for i, record := range records {
		if record.RowID != want[i] {
			t.Errorf("Record %d: expected rowid %d, got %d", i, want[i], record.RowID)
		}
	}
	if !records[1].Values[1].IsNull() {
		t.Errorf("Expected NULL email, got %v", records[1].Values[1])
	}

	if records[2].Values[1].Str() != "c@x" {
		t.Errorf("Expected c@x, got %v", records[2].Values[1])
	}
}

func TestRowIDAllocator(t *testing.T) {
	_, empty := setupTable(t, emailTable(), nil)
	alloc := empty.RowIDAllocator()
	if id, _ := alloc.Next(); id != 1 {
		t.Errorf("Expected first rowid 1, got %d", id)
	}
	alloc.Observe(10)
	if id, _ := alloc.Next(); id != 11 {
		t.Errorf("Expected 11 after observing 10, got %d", id)
	}

	_, full := setupTable(t, emailTable(), map[int64]core.Row{
		math.MaxInt64: {core.Integer(math.MaxInt64), core.Null()},
	})
	if max, ok := full.MaxRowID(); !ok || max != math.MaxInt64 {
		t.Errorf("Expected max rowid %d, got %d", int64(math.MaxInt64), max)
	}
	if _, err := full.RowIDAllocator().Next(); err == nil {
		t.Error("Expected allocation to fail at the maximum rowid")
	}
}

func TestCheckUnique(t *testing.T) {
	_, tableOp := setupTable(t, emailTable(), map[int64]core.Row{
		1: {core.Integer(1), core.Text("a@x")},
		2: {core.Integer(2), core.Null()},
	})

	records, _ := tableOp.Records()
	indexes, err := tableOp.BuildIndexes(records)
	if err != nil {
		t.Fatalf("BuildIndexes failed: %v", err)
	}
	if len(indexes) != 1 {
		t.Fatalf("Rowid alias must not get an index; expected 1 index, got %d", len(indexes))
	}

	tests := []struct {
		name    string
		row     core.Row
		key     string
		wantErr bool
	}{
		{"same row", core.Row{core.Integer(1), core.Text("a@x")}, core.RowKey(1), false},
		{"other row", core.Row{core.Integer(3), core.Text("a@x")}, core.RowKey(3), true},
		{"nocase", core.Row{core.Integer(3), core.Text("A@X")}, core.RowKey(3), true},
		{"null never collides", core.Row{core.Integer(3), core.Null()}, core.RowKey(3), false},
		{"fresh value", core.Row{core.Integer(3), core.Text("b@x")}, core.RowKey(3), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tableOp.CheckUnique(indexes, tt.row, tt.key)
			if tt.wantErr {
				if !errors.Is(err, core.ErrUnique) {
					t.Fatalf("Expected ErrUnique, got %v", err)
				}
				if err.Error() != "UNIQUE constraint failed: users.email" {
					t.Errorf("Unexpected message: %s", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}

	// moving row 1 off its value frees it for row 2
	old := records[0].Values
	moved := core.Row{core.Integer(1), core.Text("z@x")}
	if err := tableOp.Reindex(indexes, old, core.RowKey(1), moved, core.RowKey(1)); err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	if err := tableOp.CheckUnique(indexes, core.Row{core.Integer(2), core.Text("a@x")}, core.RowKey(2)); err != nil {
		t.Errorf("Expected freed value to be available: %v", err)
	}
}

func TestCompositePrimaryKeyIndex(t *testing.T) {
	table := core.Table{
		Database: core.MainDatabase,
		Name:     "pairs",
		Columns: []core.Column{
			{Name: "a", Type: "INT"},
			{Name: "b", Type: "INT"},
		},
		PrimaryKey: []string{"a", "b"},
	}
	_, tableOp := setupTable(t, table, map[int64]core.Row{
		1: {core.Integer(1), core.Integer(2)},
	})

	records, _ := tableOp.Records()
	indexes, err := tableOp.BuildIndexes(records)
	if err != nil {
		t.Fatalf("BuildIndexes failed: %v", err)
	}

	err = tableOp.CheckUnique(indexes, core.Row{core.Integer(1), core.Real(2)}, core.RowKey(2))
	if err == nil || err.Error() != "UNIQUE constraint failed: pairs.a, pairs.b" {
		t.Errorf("Expected composite violation (2.0 equals 2), got %v", err)
	}
}

func TestViewOp(t *testing.T) {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	view := core.View{Database: core.MainDatabase, Name: "v", Query: "SELECT 1"}
	if _, _, err := CreateView(view, persistence, testIdentity); err != nil {
		t.Fatalf("Failed to create view: %v", err)
	}

	snapshot, _ := persistence.Snapshot()
	if !IsView("V", snapshot) {
		t.Error("Expected V to be a view")
	}

	viewOp, found, err := GetView("v", persistence, snapshot)
	if err != nil || !found {
		t.Fatalf("Expected view: found=%v err=%v", found, err)
	}
	if _, err := viewOp.DropView(testIdentity); err != nil {
		t.Fatalf("Failed to drop view: %v", err)
	}

	snapshot, _ = persistence.Snapshot()
	if _, found, _ := GetView("v", persistence, snapshot); found {
		t.Error("Expected view to be gone")
	}

	err = ViewNotModifiable("v")
	if !errors.Is(err, core.ErrSchema) || err.Error() != "cannot modify v because it is a view" {
		t.Errorf("Unexpected error: %v", err)
	}
}
