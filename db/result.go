package db

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/ps"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
)

type Result interface {
	Type() ResultType
	Display()
}

// QueryResult holds the rows of a SELECT, DESCRIBE or SHOW TABLES.
type QueryResult struct {
	Transaction      ps.Transaction
	Columns          []string
	Rows             []core.Row
	RecordsRead      int
	ExecutionTimeSec float64
	ExecutionOps     int
}

// CommitResult describes a statement that changed the database. Columns and Rows hold
// its RETURNING output, if any.
type CommitResult struct {
	Transaction      ps.Transaction
	Columns          []string
	Rows             []core.Row
	TablesCreated    int
	TablesDeleted    int
	TablesAltered    int
	ViewsCreated     int
	ViewsDeleted     int
	RecordsWritten   int
	RecordsDeleted   int
	RecordsRead      int
	ExecutionTimeSec float64
	ExecutionOps     int
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

// Data renders every value as display text, NULL as "NULL".
func (result QueryResult) Data() [][]string {
	return renderRows(result.Rows)
}

func renderRows(rows []core.Row) [][]string {
	data := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			if v.IsNull() {
				cells[j] = "NULL"
			} else {
				cells[j] = v.String()
			}
		}
		data[i] = cells
	}
	return data
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

func throughput(ops int, secs float64) string {
	if secs <= 0 || ops <= 0 {
		return ""
	}
	rate := float64(ops) / secs
	switch {
	case rate >= 1000000:
		return fmt.Sprintf(", %.1fM ops/s", rate/1000000)
	case rate >= 1000:
		return fmt.Sprintf(", %.1fK ops/s", rate/1000)
	default:
		return fmt.Sprintf(", %.0f ops/s", rate)
	}
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display() {
	result.Render(os.Stdout)
}

// Render writes the rows as a table followed by a stats line.
func (result QueryResult) Render(w io.Writer) {
	if len(result.Columns) > 0 {
		data := NewTable(w)
		data.Header(result.Columns)
		data.Bulk(result.Data())
		data.Render()
	}
	fmt.Fprintf(w, "%d rows (%s%s)\n", len(result.Rows), result.ExecutionTime(),
		throughput(result.ExecutionOps, result.ExecutionTimeSec))
}

func (result CommitResult) Display() {
	result.Render(os.Stdout)
}

// Render writes any RETURNING rows and a summary of what the statement changed.
func (result CommitResult) Render(w io.Writer) {
	if len(result.Columns) > 0 {
		data := NewTable(w)
		data.Header(result.Columns)
		data.Bulk(renderRows(result.Rows))
		data.Render()
	}

	var parts []string
	counts := []struct {
		n    int
		what string
	}{
		{result.TablesCreated, "table(s) created"},
		{result.TablesDeleted, "table(s) deleted"},
		{result.TablesAltered, "table(s) altered"},
		{result.ViewsCreated, "view(s) created"},
		{result.ViewsDeleted, "view(s) deleted"},
		{result.RecordsWritten, "record(s) written"},
		{result.RecordsDeleted, "record(s) deleted"},
	}
	for _, c := range counts {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.what))
		}
	}

	stats := result.ExecutionTime() + throughput(result.ExecutionOps, result.ExecutionTimeSec)
	if len(parts) == 0 {
		fmt.Fprintf(w, "OK (%s)\n", stats)
	} else {
		fmt.Fprintf(w, "%s (%s)\n", strings.Join(parts, ", "), stats)
	}
}
