package db

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/sql"
)

func (engine *Engine) executeCopyStatement(ctx context.Context, statement sql.CopyStatement) (CommitResult, error) {
	if statement.Import {
		return engine.copyFrom(ctx, statement)
	}
	return engine.copyTo(ctx, statement)
}

// copyFrom loads CSV rows into a table. The header row names the target columns and
// every field arrives as text, coerced like an INSERT. All rows are committed together
// or none are.
func (engine *Engine) copyFrom(ctx context.Context, statement sql.CopyStatement) (CommitResult, error) {
	startTime := time.Now()

	reader, err := openRemoteReader(ctx, statement.Path, engine.s3)
	if err != nil {
		return CommitResult{}, err
	}
	defer reader.Close()

	header, records, err := readCSV(reader)
	if err != nil {
		return CommitResult{}, err
	}

	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		return CommitResult{}, err
	}

	tableOp, schema, err := engine.mutableTable(statement.Table, snapshot)
	if err != nil {
		return CommitResult{}, err
	}

	targets, err := insertTargets(schema, header, "COPY into")
	if err != nil {
		return CommitResult{}, err
	}

	values := make([][]core.Value, len(records))
	for i, fields := range records {
		row := make([]core.Value, len(fields))
		for j, field := range fields {
			row[j] = core.Text(field)
		}
		values[i] = row
	}

	revisions, read, err := engine.insertRows(tableOp, schema, targets, values)
	if err != nil {
		return CommitResult{}, err
	}

	committed, err := engine.writeRevisions(tableOp, revisions,
		fmt.Sprintf("COPY INTO %s: %d row(s)", tableOp.Table.Name, len(revisions)))
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      committed,
		RecordsWritten:   len(revisions),
		RecordsRead:      read,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     len(revisions),
	}, nil
}

// readCSV returns the header and the data rows. Every row must have as many fields as
// the header.
func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("CSV input has no header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		records = append(records, record)
	}
	return header, records, nil
}

// copyTo writes a table or view as CSV with a header row. NULL is written as an empty
// field.
func (engine *Engine) copyTo(ctx context.Context, statement sql.CopyStatement) (CommitResult, error) {
	startTime := time.Now()

	engine.Persistence.RLock()
	snapshot, err := engine.Persistence.Snapshot()
	if err != nil {
		engine.Persistence.RUnlock()
		return CommitResult{}, err
	}
	table, records, err := engine.source(statement.Table, snapshot, 0)
	transaction := engine.Persistence.LatestTransaction()
	engine.Persistence.RUnlock()
	if err != nil {
		return CommitResult{}, err
	}

	out, err := openRemoteWriter(ctx, statement.Path, engine.s3)
	if err != nil {
		return CommitResult{}, err
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(table.ColumnNames()); err != nil {
		out.Close()
		return CommitResult{}, err
	}
	fields := make([]string, len(table.Columns))
	for _, record := range records {
		for i := range fields {
			fields[i] = ""
			if i < len(record.Values) {
				fields[i] = record.Values[i].String()
			}
		}
		if err := writer.Write(fields); err != nil {
			out.Close()
			return CommitResult{}, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		out.Close()
		return CommitResult{}, err
	}
	if err := out.Close(); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      transaction,
		RecordsRead:      len(records),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     len(records),
	}, nil
}
