// Package op provides high-level operations for working with StrictDB tables and views.
//
// The op package sits between the SQL engine (db/) and the persistence layer (ps/),
// turning stored bytes into typed records and back.
//
// # TableOp
//
// A TableOp reads through one snapshot, so everything a statement sees comes from the
// same commit:
//
//	snapshot, _ := persistence.Snapshot()
//	tableOp, err := op.GetTable("users", persistence, snapshot)
//
//	for record, err := range tableOp.Scan() {
//	    // records arrive in rowid order
//	}
//
//	next := tableOp.RowIDAllocator()
//
// # Uniqueness
//
// PRIMARY KEY and UNIQUE constraints are checked against in-memory indexes built from
// the snapshot:
//
//	indexes, _ := tableOp.BuildIndexes(records)
//	if err := tableOp.CheckUnique(indexes, candidate, oldKey); err != nil {
//	    // UNIQUE constraint failed
//	}
//	err = tableOp.Reindex(indexes, old, oldKey, candidate, newKey)
//
// # ViewOp
//
//	viewOp, found, err := op.GetView("active_users", persistence, snapshot)
//
// # Architecture
//
// The layering is:
//
//	SQL Parser (sql/)
//	     ↓
//	SQL Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Persistence (ps/)
//	     ↓
//	Git Storage (go-git)
package op
