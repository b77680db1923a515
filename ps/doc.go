// Package ps provides the persistence layer for StrictDB.
//
// The persistence layer is backed by Git, using go-git for storage.
// Every statement that changes data creates exactly one commit, so the
// history of the database is the history of its statements.
//
// # Layout
//
//	main/<table>.table             schema of a table (JSON)
//	main/<table>/<rowkey>          one row (JSON object keyed by column)
//	.strictdb/views/main/<view>.json  view definition
//
// Row keys are fixed-width so that tree order is rowid order.
//
// # Memory Persistence
//
// For testing or ephemeral databases:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Snapshots
//
// Reads go through a Snapshot of HEAD:
//
//	snapshot, _ := persistence.Snapshot()
//	for key, data := range snapshot.Scan("t", nil) {
//	    ...
//	}
//
// # Transactions
//
// Writes are batched with a TransactionBuilder and applied in one commit:
//
//	txn, _ := persistence.BeginTransaction()
//	txn.AddDelete("t", oldKey)
//	txn.AddWrite("t", newKey, data)
//	txn.AddSchema(table)
//	result, _ := txn.Commit(identity)
package ps
