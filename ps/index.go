package ps

import (
	"fmt"
)

// Index maps the encoded values of one uniqueness constraint to the row key holding
// them. It is built from a snapshot for the duration of a statement and is never
// persisted; rows with a NULL in the constraint are not indexed.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Entries map[string]string // encoded value -> row key
}

func NewIndex(name, table string, columns []string) *Index {
	return &Index{
		Name:    name,
		Table:   table,
		Columns: columns,
		Entries: make(map[string]string),
	}
}

// Insert records rowKey under value. It fails when another row already holds value.
func (idx *Index) Insert(value, rowKey string) error {
	if existing, ok := idx.Entries[value]; ok && existing != rowKey {
		return fmt.Errorf("duplicate value violates unique constraint on index %s", idx.Name)
	}
	idx.Entries[value] = rowKey
	return nil
}

// Delete removes value if it is held by rowKey.
func (idx *Index) Delete(value, rowKey string) {
	if existing, ok := idx.Entries[value]; ok && existing == rowKey {
		delete(idx.Entries, value)
	}
}

// Conflicts reports whether value is held by a row other than rowKey.
func (idx *Index) Conflicts(value, rowKey string) bool {
	existing, ok := idx.Entries[value]
	return ok && existing != rowKey
}

func (idx *Index) Len() int {
	return len(idx.Entries)
}
