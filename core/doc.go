// Package core provides core types used throughout StrictDB.
//
// The package defines the value model (Value, Kind, Compare, IsTruthy), the conversion
// functions behind tointeger() and toreal(), schema types (Table, Column, View), stored
// records, and the error taxonomy shared by the executor.
//
// # Values
//
// A Value has exactly one storage class:
//
//	core.Null()
//	core.Integer(42)
//	core.Real(10.5)
//	core.Text("hello")
//	core.Blob([]byte{0x01})
//
// Values order NULL < numeric < text < blob. Integers and reals compare by exact value.
//
// # Conversion
//
// ToInteger and ToReal never fail; inputs outside their domain produce NULL:
//
//	core.ToInteger(core.Text("123"))   // 123
//	core.ToInteger(core.Text(" 123"))  // NULL
//	core.ToInteger(core.Real(1.5))     // NULL
//
// # Errors
//
// Statement errors are *Error values whose Kind is one of the sentinels (ErrNotNull,
// ErrCheck, ErrUnique, ErrTypeMismatch, ErrUnknownColumn, ErrSchema, ...):
//
//	if errors.Is(err, core.ErrUnique) { ... }
//
// # Table Definition
//
//	table := core.Table{
//	    Database:   core.MainDatabase,
//	    Name:       "users",
//	    Strict:     true,
//	    PrimaryKey: []string{"id"},
//	    Columns: []core.Column{
//	        {Name: "id", Type: "INTEGER", PrimaryKey: true},
//	        {Name: "name", Type: "TEXT", NotNull: true},
//	    },
//	}
package core
