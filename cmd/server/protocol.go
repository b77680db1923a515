// Package main provides a TCP SQL server for StrictDB.
package main

import (
	"encoding/json"
	"errors"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/db"
)

// Request represents a SQL query from the client.
type Request struct {
	Query string `json:"query"`
}

// Response represents the server's response to a request.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"` // error kind, e.g. "type_mismatch"
	Type    string          `json:"type,omitempty"` // "query", "commit" or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// QueryResponse contains tabular query results. NULL cells are JSON null.
type QueryResponse struct {
	Columns     []string `json:"columns"`
	Data        [][]any  `json:"data"`
	RecordsRead int      `json:"records_read"`
	TimeMs      float64  `json:"time_ms"`
}

// CommitResponse contains mutation results, with any RETURNING rows.
type CommitResponse struct {
	Commit         string   `json:"commit,omitempty"`
	TablesCreated  int      `json:"tables_created,omitempty"`
	TablesDeleted  int      `json:"tables_deleted,omitempty"`
	TablesAltered  int      `json:"tables_altered,omitempty"`
	ViewsCreated   int      `json:"views_created,omitempty"`
	ViewsDeleted   int      `json:"views_deleted,omitempty"`
	RecordsWritten int      `json:"records_written,omitempty"`
	RecordsDeleted int      `json:"records_deleted,omitempty"`
	Columns        []string `json:"columns,omitempty"`
	Data           [][]any  `json:"data,omitempty"`
	TimeMs         float64  `json:"time_ms"`
}

// AuthResponse reports a successful AUTH.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"` // seconds
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}

var errorCodes = []struct {
	err  error
	code string
}{
	{core.ErrTypeMismatch, "type_mismatch"},
	{core.ErrNotNull, "not_null"},
	{core.ErrCheck, "check"},
	{core.ErrUnique, "unique"},
	{core.ErrUnknownColumn, "unknown_column"},
	{core.ErrNoSuchTable, "no_such_table"},
	{core.ErrGeneratedColumn, "generated_column"},
	{core.ErrSchema, "schema"},
}

// errorResponse reports err with the code of its kind.
func errorResponse(err error) Response {
	resp := Response{Success: false, Error: err.Error()}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			resp.Code = c.code
			break
		}
	}
	return resp
}

// resultResponse encodes an engine result.
func resultResponse(result db.Result) Response {
	switch r := result.(type) {
	case db.QueryResult:
		data, _ := json.Marshal(QueryResponse{
			Columns:     r.Columns,
			Data:        jsonRows(r.Rows),
			RecordsRead: r.RecordsRead,
			TimeMs:      r.ExecutionTimeSec * 1000,
		})
		return Response{Success: true, Type: "query", Result: data}

	case db.CommitResult:
		data, _ := json.Marshal(CommitResponse{
			Commit:         r.Transaction.Id,
			TablesCreated:  r.TablesCreated,
			TablesDeleted:  r.TablesDeleted,
			TablesAltered:  r.TablesAltered,
			ViewsCreated:   r.ViewsCreated,
			ViewsDeleted:   r.ViewsDeleted,
			RecordsWritten: r.RecordsWritten,
			RecordsDeleted: r.RecordsDeleted,
			Columns:        r.Columns,
			Data:           jsonRows(r.Rows),
			TimeMs:         r.ExecutionTimeSec * 1000,
		})
		return Response{Success: true, Type: "commit", Result: data}

	default:
		return Response{Success: true, Type: "unknown"}
	}
}

// jsonRows keeps integers as JSON numbers. Reals go out in their SQL text form so that
// 1.0 stays distinguishable from 1, and blobs as hex strings.
func jsonRows(rows []core.Row) [][]any {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			switch v.Kind() {
			case core.KindNull:
				cells[j] = nil
			case core.KindInteger:
				cells[j] = v.Int()
			case core.KindBlob:
				cells[j] = v.Literal()
			default:
				cells[j] = v.String()
			}
		}
		out[i] = cells
	}
	return out
}
