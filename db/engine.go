package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/eval"
	"github.com/nickyhof/StrictDB/numeric"
	"github.com/nickyhof/StrictDB/op"
	"github.com/nickyhof/StrictDB/ps"
	"github.com/nickyhof/StrictDB/sql"
)

// QueryContext carries the identity recorded on every commit.
type QueryContext struct {
	Identity core.Identity
}

// S3Config holds credentials for COPY to and from s3:// URLs. Empty fields fall back to
// the default AWS configuration chain.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // custom S3-compatible endpoint
}

type Engine struct {
	*ps.Persistence
	QueryContext

	evaluator *eval.Evaluator
	logger    *slog.Logger
	s3        *S3Config
}

type options struct {
	logger  *slog.Logger
	numeric numeric.Config
	clock   func() time.Time
	s3      *S3Config
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger statements are logged to at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHighPrecision selects whether integer arithmetic that overflows keeps an
// extended-precision shadow for tointeger() and friends. It is on by default.
func WithHighPrecision(on bool) Option {
	return func(o *options) {
		o.numeric.HighPrecision = on
	}
}

// WithClock sets the time source of CURRENT_TIME, CURRENT_DATE and CURRENT_TIMESTAMP.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

func WithS3(cfg S3Config) Option {
	return func(o *options) {
		o.s3 = &cfg
	}
}

func NewEngine(persistence *ps.Persistence, identity core.Identity, opts ...Option) *Engine {
	o := options{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		numeric: numeric.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{
		Persistence:  persistence,
		QueryContext: QueryContext{Identity: identity},
		evaluator:    eval.New(o.numeric, o.clock),
		logger:       o.logger,
		s3:           o.s3,
	}
}

// Execute parses query and runs it.
func (engine *Engine) Execute(query string) (Result, error) {
	statement, err := sql.Parse(query)
	if err != nil {
		engine.logger.Debug("parse failed", "error", err)
		return nil, err
	}
	return engine.ExecuteStatement(statement)
}

// ExecuteStatement runs a parsed statement. Statements that change data hold the
// persistence write lock from their first read until their commit.
func (engine *Engine) ExecuteStatement(statement sql.Statement) (result Result, err error) {
	start := time.Now()
	defer func() {
		engine.logStatement(statement, result, err, time.Since(start))
	}()

	switch statement.Type() {
	case sql.SelectStatementType:
		return engine.executeSelectStatement(statement.(sql.SelectStatement))
	case sql.InsertStatementType:
		return engine.executeInsertStatement(statement.(sql.InsertStatement))
	case sql.UpdateStatementType:
		return engine.ExecuteUpdate(statement.(sql.UpdateStatement))
	case sql.DeleteStatementType:
		return engine.executeDeleteStatement(statement.(sql.DeleteStatement))
	case sql.CreateTableStatementType:
		return engine.executeCreateTableStatement(statement.(sql.CreateTableStatement))
	case sql.CreateViewStatementType:
		return engine.executeCreateViewStatement(statement.(sql.CreateViewStatement))
	case sql.DropTableStatementType:
		return engine.executeDropTableStatement(statement.(sql.DropTableStatement))
	case sql.DropViewStatementType:
		return engine.executeDropViewStatement(statement.(sql.DropViewStatement))
	case sql.AlterTableStatementType:
		return engine.ExecuteAlterAddColumn(statement.(sql.AlterTableStatement))
	case sql.DescribeStatementType:
		return engine.executeDescribeStatement(statement.(sql.DescribeStatement))
	case sql.ShowTablesStatementType:
		return engine.executeShowTablesStatement()
	case sql.CopyStatementType:
		return engine.executeCopyStatement(context.Background(), statement.(sql.CopyStatement))
	default:
		return nil, fmt.Errorf("unsupported statement type: %v", statement.Type())
	}
}

func (engine *Engine) logStatement(statement sql.Statement, result Result, err error, elapsed time.Duration) {
	attrs := []any{"statement", statementName(statement.Type()), "elapsed", elapsed}
	if err != nil {
		engine.logger.Debug("statement failed", append(attrs, "error", err)...)
		return
	}
	if commit, ok := result.(CommitResult); ok {
		attrs = append(attrs,
			"written", commit.RecordsWritten,
			"deleted", commit.RecordsDeleted,
			"commit", commit.Transaction.Id)
	}
	engine.logger.Debug("statement executed", attrs...)
}

func statementName(t sql.StatementType) string {
	switch t {
	case sql.SelectStatementType:
		return "SELECT"
	case sql.InsertStatementType:
		return "INSERT"
	case sql.UpdateStatementType:
		return "UPDATE"
	case sql.DeleteStatementType:
		return "DELETE"
	case sql.CreateTableStatementType:
		return "CREATE TABLE"
	case sql.CreateViewStatementType:
		return "CREATE VIEW"
	case sql.DropTableStatementType:
		return "DROP TABLE"
	case sql.DropViewStatementType:
		return "DROP VIEW"
	case sql.AlterTableStatementType:
		return "ALTER TABLE"
	case sql.DescribeStatementType:
		return "DESCRIBE"
	case sql.ShowTablesStatementType:
		return "SHOW TABLES"
	case sql.CopyStatementType:
		return "COPY"
	default:
		return "UNKNOWN"
	}
}

// mutableTable loads a table a statement is about to change. A view yields the
// "cannot modify" schema error.
func (engine *Engine) mutableTable(name string, snapshot *ps.Snapshot) (*op.TableOp, *tableSchema, error) {
	if op.IsView(name, snapshot) {
		return nil, nil, op.ViewNotModifiable(name)
	}

	tableOp, err := op.GetTable(name, engine.Persistence, snapshot)
	if err != nil {
		return nil, nil, err
	}

	schema, err := compileTable(tableOp.Table)
	if err != nil {
		return nil, nil, err
	}

	return tableOp, schema, nil
}

// commit applies the staged changes of a statement, or returns the current head when
// there is nothing to write.
func (engine *Engine) commit(txn *ps.TransactionBuilder, message string) (ps.Transaction, error) {
	if txn.OperationCount() == 0 {
		txn.Rollback()
		return engine.Persistence.LatestTransaction(), nil
	}
	txn.SetMessage(message)
	return txn.Commit(engine.Identity)
}
