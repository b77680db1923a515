package ps

import (
	"encoding/json"
	"fmt"
	"iter"
	"path"
	"strings"

	"github.com/nickyhof/StrictDB/core"
)

// Table names are case-insensitive, so their paths use the lower-cased name while the
// schema keeps the name as declared.

func TablePath(table string) string {
	return path.Join(core.MainDatabase, strings.ToLower(table)+".table")
}

func RowsPath(table string) string {
	return path.Join(core.MainDatabase, strings.ToLower(table))
}

func RowPath(table, key string) string {
	return path.Join(RowsPath(table), key)
}

func (persistence *Persistence) CreateTable(table core.Table, identity core.Identity) (txn Transaction, err error) {
	dataBytes, err := json.Marshal(table)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal table: %w", err)
	}

	return persistence.WriteFileDirect(TablePath(table.Name), dataBytes, identity, fmt.Sprintf("Creating table %s", table.Name))
}

func (persistence *Persistence) GetTable(name string) (*core.Table, error) {
	snapshot, err := persistence.Snapshot()
	if err != nil {
		return nil, err
	}
	return snapshot.GetTable(name)
}

// DropTable removes the schema and every row of the table in one commit.
func (persistence *Persistence) DropTable(name string, identity core.Identity) (txn Transaction, err error) {
	paths := []string{TablePath(name), RowsPath(name)}
	return persistence.DeletePathDirect(paths, identity, fmt.Sprintf("Dropping table %s", name))
}

func (persistence *Persistence) ListTables() []string {
	snapshot, err := persistence.Snapshot()
	if err != nil {
		return nil
	}
	return snapshot.ListTables()
}

// GetTable decodes the stored schema of name. A missing table is a NoSuchTable error.
func (s *Snapshot) GetTable(name string) (*core.Table, error) {
	data, err := s.ReadFile(TablePath(name))
	if err != nil {
		return nil, core.NoSuchTableError(name)
	}

	var t core.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table: %w", err)
	}

	return &t, nil
}

func (s *Snapshot) ListTables() []string {
	entries, _ := s.List(core.MainDatabase)

	var tables []string
	for _, entry := range entries {
		if !entry.IsDir && strings.HasSuffix(entry.Name, ".table") {
			tables = append(tables, strings.TrimSuffix(entry.Name, ".table"))
		}
	}

	return tables
}

// ListRecordKeys returns the row keys of table in key order, which is rowid order.
func (s *Snapshot) ListRecordKeys(table string) []string {
	entries, _ := s.List(RowsPath(table))

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir {
			keys = append(keys, entry.Name)
		}
	}

	return keys
}

func (s *Snapshot) GetRecord(table string, key string) (data []byte, exists bool) {
	data, err := s.ReadFile(RowPath(table, key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Scan yields every stored row of table in key order. A nil filter yields all rows.
func (s *Snapshot) Scan(table string, filter func(key string, value []byte) bool) iter.Seq2[string, []byte] {
	keys := s.ListRecordKeys(table)

	return func(yield func(key string, value []byte) bool) {
		for _, key := range keys {
			value, ok := s.GetRecord(table, key)
			if !ok {
				continue
			}

			if filter != nil && !filter(key, value) {
				continue
			}

			if !yield(key, value) {
				return
			}
		}
	}
}
