// Package sql provides SQL lexing and parsing for StrictDB.
//
// The package includes a lexer that tokenizes SQL strings and a parser
// that produces abstract syntax trees for SQL statements and expressions.
//
// # Lexer Usage
//
//	lexer := sql.NewLexer("SELECT * FROM users")
//	for {
//	    token := lexer.NextToken()
//	    if token.Type == sql.EOF {
//	        break
//	    }
//	    fmt.Printf("Token: %s = %s\n", token.Type, token.Value)
//	}
//
// Reserved words lex as Keyword tokens with an upper-case Value. Other words are
// Identifiers, so type names and most column names need no quoting.
//
// # Parser Usage
//
//	statement, err := sql.Parse("UPDATE t SET a = b, b = a WHERE id = 1 RETURNING *")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Stored expressions (defaults, CHECK constraints, generated columns) are kept as text
// and re-parsed with ParseExpression.
//
// # Supported Statements
//
// The parser supports the following statement types:
//   - SelectStatement (FROM is optional)
//   - InsertStatement, UpdateStatement, DeleteStatement, all with RETURNING
//   - CreateTableStatement (column and table constraints, STRICT)
//   - CreateViewStatement, DropTableStatement, DropViewStatement
//   - AlterTableStatement (ADD [COLUMN])
//   - DescribeStatement, ShowTablesStatement
//   - CopyStatement (COPY INTO t FROM '...', COPY t TO '...')
//
// # Canonical Schema Text
//
// CreateTableStatement records the source text and the offset just past the last
// column definition. SpliceColumn uses that offset to append a column definition ahead
// of the table constraints without disturbing the rest of the text.
package sql
