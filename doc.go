// Package StrictDB provides a Git-backed SQL engine with SQLite value semantics.
//
// StrictDB stores tables as Git objects and turns every statement that changes data
// into one commit. Values follow SQLite's dynamic typing: each value is NULL, an
// integer, a real, text or a blob, and columns of a STRICT table reject values that
// cannot be converted to their declared type.
//
// # Quick Start
//
// Create an in-memory database:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	instance := StrictDB.Open(persistence)
//	engine := instance.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.Execute("CREATE TABLE t (a INTEGER PRIMARY KEY, b REAL, c TEXT) STRICT")
//	engine.Execute("INSERT INTO t (b, c) VALUES ('1.5', 42)")
//	engine.Execute("UPDATE t SET b = b * 2 WHERE a = 1 RETURNING b")
//	engine.Execute("ALTER TABLE t ADD COLUMN d INTEGER DEFAULT 0")
//
//	result, _ := engine.Execute("SELECT a, typeof(b), c, d FROM t")
//	result.Display()
//
// # Supported SQL
//
//   - CREATE/DROP TABLE, with STRICT, PRIMARY KEY, UNIQUE, NOT NULL, CHECK, DEFAULT,
//     COLLATE and generated columns
//   - ALTER TABLE ... ADD COLUMN
//   - CREATE/DROP VIEW
//   - INSERT, UPDATE and DELETE with RETURNING
//   - SELECT with WHERE, DISTINCT, ORDER BY and LIMIT/OFFSET
//   - DESCRIBE and SHOW TABLES
//   - COPY INTO table FROM and COPY table TO for CSV files, HTTP and S3
package StrictDB
