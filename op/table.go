package op

import (
	"fmt"
	"iter"
	"math"
	"strings"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/ps"
)

// TableOp reads one table through a snapshot and stages its writes.
type TableOp struct {
	Table       core.Table
	Snapshot    *ps.Snapshot
	Persistence *ps.Persistence
}

func CreateTable(table core.Table, persistence *ps.Persistence, identity core.Identity) (*ps.Transaction, *TableOp, error) {
	txn, err := persistence.CreateTable(table, identity)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := persistence.Snapshot()
	if err != nil {
		return nil, nil, err
	}

	return &txn, &TableOp{
		Table:       table,
		Snapshot:    snapshot,
		Persistence: persistence,
	}, nil
}

// GetTable loads the table from snapshot.
func GetTable(tableName string, persistence *ps.Persistence, snapshot *ps.Snapshot) (*TableOp, error) {
	table, err := snapshot.GetTable(tableName)
	if err != nil {
		return nil, err
	}

	return &TableOp{
		Table:       *table,
		Snapshot:    snapshot,
		Persistence: persistence,
	}, nil
}

func (op *TableOp) DropTable(identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.DropTable(op.Table.Name, identity)
}

func (op *TableOp) Keys() []string {
	return op.Snapshot.ListRecordKeys(op.Table.Name)
}

func (op *TableOp) Count() int {
	return len(op.Keys())
}

// Scan yields every record in rowid order. Decoding stops at the first bad record.
func (op *TableOp) Scan() iter.Seq2[core.Record, error] {
	return func(yield func(core.Record, error) bool) {
		for key, data := range op.Snapshot.Scan(op.Table.Name, nil) {
			rowID, err := core.ParseRowKey(key)
			if err != nil {
				yield(core.Record{}, err)
				return
			}

			row, err := core.DecodeRow(op.Table, data)
			if err != nil {
				yield(core.Record{}, fmt.Errorf("row %d of %s: %w", rowID, op.Table.Name, err))
				return
			}

			if !yield(core.Record{RowID: rowID, Values: row}, nil) {
				return
			}
		}
	}
}

// Records returns every record in rowid order.
func (op *TableOp) Records() ([]core.Record, error) {
	var records []core.Record
	for record, err := range op.Scan() {
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// MaxRowID returns the largest stored rowid. Keys sort by rowid, so it is the last one.
func (op *TableOp) MaxRowID() (int64, bool) {
	keys := op.Keys()
	if len(keys) == 0 {
		return 0, false
	}
	rowID, err := core.ParseRowKey(keys[len(keys)-1])
	if err != nil {
		return 0, false
	}
	return rowID, true
}

// RowIDAllocator hands out rowids above every stored and previously allocated one.
type RowIDAllocator struct {
	next int64
	full bool
}

func (op *TableOp) RowIDAllocator() *RowIDAllocator {
	max, ok := op.MaxRowID()
	switch {
	case !ok:
		return &RowIDAllocator{next: 1}
	case max == math.MaxInt64:
		return &RowIDAllocator{full: true}
	default:
		return &RowIDAllocator{next: max + 1}
	}
}

// Observe makes sure later allocations stay above an explicitly chosen rowid.
func (a *RowIDAllocator) Observe(rowID int64) {
	if a.full {
		return
	}
	if rowID == math.MaxInt64 {
		a.full = true
		return
	}
	if rowID >= a.next {
		a.next = rowID + 1
	}
}

func (a *RowIDAllocator) Next() (int64, error) {
	if a.full {
		return 0, core.Errorf(core.ErrSchema, "database or disk is full")
	}
	rowID := a.next
	a.Observe(rowID)
	return rowID, nil
}

// UniqueIndex is a ps.Index bound to the column positions of one constraint.
type UniqueIndex struct {
	*ps.Index
	positions []int
	noCase    []bool
}

// Key encodes the constraint's values in row. ok is false when any of them is NULL.
func (u *UniqueIndex) Key(row core.Row) (string, bool) {
	values := make([]core.Value, len(u.positions))
	for i, pos := range u.positions {
		values[i] = row[pos]
	}
	return core.UniqueKey(values, u.noCase)
}

// UniqueIndexes returns one empty index per PRIMARY KEY or UNIQUE constraint that is
// not the rowid alias.
func (op *TableOp) UniqueIndexes() ([]*UniqueIndex, error) {
	var sets []core.UniqueConstraint
	if len(op.Table.PrimaryKey) > 0 && op.Table.RowIDColumn() < 0 {
		sets = append(sets, core.UniqueConstraint{Columns: op.Table.PrimaryKey, PrimaryKey: true})
	}
	sets = append(sets, op.Table.Uniques...)

	indexes := make([]*UniqueIndex, 0, len(sets))
	for i, set := range sets {
		u := &UniqueIndex{
			Index: ps.NewIndex(indexName(op.Table.Name, set, i), op.Table.Name, set.Columns),
		}
		for _, name := range set.Columns {
			pos := op.Table.ColumnIndex(name)
			if pos < 0 {
				return nil, core.UnknownColumnError(name)
			}
			u.positions = append(u.positions, pos)
			u.noCase = append(u.noCase, op.Table.Columns[pos].NoCase())
		}
		indexes = append(indexes, u)
	}
	return indexes, nil
}

func indexName(table string, set core.UniqueConstraint, i int) string {
	if set.Name != "" {
		return set.Name
	}
	if set.PrimaryKey {
		return fmt.Sprintf("pk_%s", strings.ToLower(table))
	}
	return fmt.Sprintf("autoindex_%s_%d", strings.ToLower(table), i)
}

// BuildIndexes indexes records. Stored data is expected to satisfy its constraints, so
// a duplicate here means the table is corrupt.
func (op *TableOp) BuildIndexes(records []core.Record) ([]*UniqueIndex, error) {
	indexes, err := op.UniqueIndexes()
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		for _, u := range indexes {
			if key, ok := u.Key(record.Values); ok {
				if err := u.Insert(key, record.Key()); err != nil {
					return nil, err
				}
			}
		}
	}
	return indexes, nil
}

// CheckUnique fails with a UNIQUE violation when row collides with a row other than
// rowKey in any index.
func (op *TableOp) CheckUnique(indexes []*UniqueIndex, row core.Row, rowKey string) error {
	for _, u := range indexes {
		if key, ok := u.Key(row); ok && u.Conflicts(key, rowKey) {
			return core.UniqueError(op.Table.Name, u.Columns)
		}
	}
	return nil
}

// Reindex moves rowKey's entries from its old values to row.
func (op *TableOp) Reindex(indexes []*UniqueIndex, old core.Row, oldKey string, row core.Row, rowKey string) error {
	for _, u := range indexes {
		if old != nil {
			if key, ok := u.Key(old); ok {
				u.Delete(key, oldKey)
			}
		}
	}
	for _, u := range indexes {
		if key, ok := u.Key(row); ok {
			if err := u.Insert(key, rowKey); err != nil {
				return core.UniqueError(op.Table.Name, u.Columns)
			}
		}
	}
	return nil
}

// Encode serializes row for storage.
func (op *TableOp) Encode(row core.Row) ([]byte, error) {
	return core.EncodeRow(op.Table, row)
}
