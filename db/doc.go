// Package db provides the SQL execution engine for StrictDB.
//
// The Engine type is the main entry point for executing SQL statements.
// It parses SQL, executes it against a git-backed persistence layer, and
// returns results. Every statement that changes data becomes exactly one
// commit, or nothing at all when it fails.
//
// # Engine Usage
//
//	engine := db.NewEngine(persistence, identity)
//	result, err := engine.Execute("UPDATE t SET a = a + 1 WHERE b > 0 RETURNING a")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display()
//
// # Result Types
//
// There are two result types:
//   - QueryResult: Returned by SELECT, DESCRIBE and SHOW TABLES
//   - CommitResult: Returned by INSERT, UPDATE, DELETE, CREATE, DROP, ALTER and COPY
//
// QueryResult contains columns, rows, and execution metrics. CommitResult
// contains counts of affected objects, the transaction, and any RETURNING rows.
//
// # Constraint Order
//
// INSERT and UPDATE validate each row in the same order: STRICT coercion of
// the assigned values, generated columns, NOT NULL, CHECK, then UNIQUE. The
// first violation aborts the whole statement.
package db
