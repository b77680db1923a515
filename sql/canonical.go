package sql

import "fmt"

// SpliceColumn inserts a column definition into stored CREATE TABLE text right after
// the last existing column definition, so it lands before any table constraints. The
// rest of the text is kept byte for byte. It returns the new text and the new end of
// the column list.
func SpliceColumn(createSQL string, columnsEnd int, columnText string) (string, int, error) {
	if columnsEnd <= 0 || columnsEnd > len(createSQL) {
		return "", 0, fmt.Errorf("invalid column list offset %d for schema text of length %d", columnsEnd, len(createSQL))
	}

	insert := ", " + columnText
	spliced := createSQL[:columnsEnd] + insert + createSQL[columnsEnd:]
	return spliced, columnsEnd + len(insert), nil
}
