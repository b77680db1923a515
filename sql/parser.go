package sql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nickyhof/StrictDB/core"
)

var ErrSyntax = errors.New("syntax error")

type Parser struct {
	sql    string
	tokens []Token
	pos    int
}

func NewParser(sql string) *Parser {
	return &Parser{sql: sql, tokens: tokenize(sql)}
}

// Parse parses a single statement. A trailing semicolon is allowed.
func Parse(sql string) (Statement, error) {
	return NewParser(sql).Parse()
}

// ParseAll parses a semicolon-separated script.
func ParseAll(sql string) ([]Statement, error) {
	parser := NewParser(sql)

	var statements []Statement
	for {
		for parser.accept(Semicolon) {
		}
		if parser.peek().Type == EOF {
			return statements, nil
		}

		statement, err := parser.parseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, statement)

		if tok := parser.peek(); tok.Type != Semicolon && tok.Type != EOF {
			return nil, parser.unexpected(tok)
		}
	}
}

func (parser *Parser) Parse() (Statement, error) {
	statement, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}

	for parser.accept(Semicolon) {
	}
	if tok := parser.peek(); tok.Type != EOF {
		return nil, parser.unexpected(tok)
	}

	return statement, nil
}

func (parser *Parser) parseStatement() (Statement, error) {
	token := parser.peek()
	if token.Type != Keyword {
		return nil, fmt.Errorf("%w: unknown statement type near %q", ErrSyntax, token.Value)
	}

	switch token.Value {
	case "SELECT":
		return parser.parseSelect()
	case "INSERT":
		return parser.parseInsert()
	case "UPDATE":
		return parser.parseUpdate()
	case "DELETE":
		return parser.parseDelete()
	case "CREATE":
		return parser.parseCreate()
	case "DROP":
		return parser.parseDrop()
	case "ALTER":
		return parser.parseAlter()
	case "DESCRIBE":
		return parser.parseDescribe()
	case "SHOW":
		parser.next()
		if err := parser.expectKeyword("TABLES"); err != nil {
			return nil, err
		}
		return ShowTablesStatement{}, nil
	case "COPY":
		return parser.parseCopy()
	default:
		return nil, fmt.Errorf("%w: unknown statement type %s", ErrSyntax, token.Value)
	}
}

// token helpers

func (parser *Parser) peek() Token {
	return parser.peekAt(0)
}

func (parser *Parser) peekAt(offset int) Token {
	i := parser.pos + offset
	if i >= len(parser.tokens) {
		return parser.tokens[len(parser.tokens)-1]
	}
	return parser.tokens[i]
}

func (parser *Parser) next() Token {
	token := parser.peek()
	if parser.pos < len(parser.tokens)-1 {
		parser.pos++
	}
	return token
}

func (parser *Parser) accept(tokenType TokenType) bool {
	if parser.peek().Type == tokenType {
		parser.next()
		return true
	}
	return false
}

func (parser *Parser) expect(tokenType TokenType, what string) (Token, error) {
	token := parser.peek()
	if token.Type != tokenType {
		return token, fmt.Errorf("%w: expected %s near %q", ErrSyntax, what, parser.display(token))
	}
	return parser.next(), nil
}

func isKeyword(token Token, keyword string) bool {
	return token.Type == Keyword && token.Value == keyword
}

func (parser *Parser) acceptKeyword(keyword string) bool {
	if isKeyword(parser.peek(), keyword) {
		parser.next()
		return true
	}
	return false
}

func (parser *Parser) expectKeyword(keyword string) error {
	if !parser.acceptKeyword(keyword) {
		return fmt.Errorf("%w: expected %s near %q", ErrSyntax, keyword, parser.display(parser.peek()))
	}
	return nil
}

func (parser *Parser) unexpected(token Token) error {
	return fmt.Errorf("%w: near %q", ErrSyntax, parser.display(token))
}

func (parser *Parser) display(token Token) string {
	if token.Type == EOF {
		return "end of input"
	}
	return parser.sql[token.Pos:token.End]
}

// lastEnd is the end offset of the most recently consumed token.
func (parser *Parser) lastEnd() int {
	if parser.pos == 0 {
		return 0
	}
	return parser.tokens[parser.pos-1].End
}

func (parser *Parser) textFrom(start int) string {
	return parser.sql[start:parser.lastEnd()]
}

func isNameToken(token Token) bool {
	return token.Type == Identifier || token.Type == QuotedIdentifier ||
		(token.Type == Keyword && softKeywords[token.Value])
}

func (parser *Parser) parseName(what string) (string, error) {
	token := parser.peek()
	if !isNameToken(token) {
		return "", fmt.Errorf("%w: expected %s near %q", ErrSyntax, what, parser.display(token))
	}
	parser.next()
	if token.Type == Keyword {
		return parser.sql[token.Pos:token.End], nil
	}
	return token.Value, nil
}

// parseTableName reads [main.]name. Every table lives in the main database.
func (parser *Parser) parseTableName() (string, error) {
	name, err := parser.parseName("table name")
	if err != nil {
		return "", err
	}
	if parser.accept(Dot) {
		if !strings.EqualFold(name, core.MainDatabase) {
			return "", fmt.Errorf("unknown database %s", name)
		}
		return parser.parseName("table name")
	}
	return name, nil
}


func (parser *Parser) parseSelect() (Statement, error) {
	statement, err := parser.parseSelectStatement()
	if err != nil {
		return nil, err
	}
	return statement, nil
}

func (parser *Parser) parseSelectStatement() (SelectStatement, error) {
	var statement SelectStatement

	if err := parser.expectKeyword("SELECT"); err != nil {
		return statement, err
	}
	statement.Distinct = parser.acceptKeyword("DISTINCT")

	columns, err := parser.parseResultColumns()
	if err != nil {
		return statement, err
	}
	statement.Columns = columns

	if parser.acceptKeyword("FROM") {
		statement.Table, err = parser.parseTableName()
		if err != nil {
			return statement, err
		}
		if parser.acceptKeyword("AS") {
			statement.TableAlias, err = parser.parseName("table alias")
			if err != nil {
				return statement, err
			}
		} else if tok := parser.peek(); tok.Type == Identifier || tok.Type == QuotedIdentifier {
			statement.TableAlias, _ = parser.parseName("table alias")
		}
	}

	if parser.acceptKeyword("WHERE") {
		statement.Where, err = parser.ParseExpr()
		if err != nil {
			return statement, err
		}
	}

	if parser.acceptKeyword("ORDER") {
		if err := parser.expectKeyword("BY"); err != nil {
			return statement, err
		}
		for {
			expr, err := parser.ParseExpr()
			if err != nil {
				return statement, err
			}
			clause := OrderByClause{Expr: expr}
			if parser.acceptKeyword("DESC") {
				clause.Descending = true
			} else {
				parser.acceptKeyword("ASC")
			}
			statement.OrderBy = append(statement.OrderBy, clause)

			if !parser.accept(Comma) {
				break
			}
		}
	}

	if parser.acceptKeyword("LIMIT") {
		statement.Limit, err = parser.ParseExpr()
		if err != nil {
			return statement, err
		}
		if parser.acceptKeyword("OFFSET") {
			statement.Offset, err = parser.ParseExpr()
			if err != nil {
				return statement, err
			}
		} else if parser.accept(Comma) {
			// LIMIT offset, count
			statement.Offset = statement.Limit
			statement.Limit, err = parser.ParseExpr()
			if err != nil {
				return statement, err
			}
		}
	}

	return statement, nil
}

func (parser *Parser) parseResultColumns() ([]ResultColumn, error) {
	var columns []ResultColumn
	for {
		if parser.accept(Wildcard) {
			columns = append(columns, ResultColumn{Star: true, Text: "*"})
		} else {
			start := parser.peek().Pos
			expr, err := parser.ParseExpr()
			if err != nil {
				return nil, err
			}
			column := ResultColumn{Expr: expr, Text: parser.textFrom(start)}

			if parser.acceptKeyword("AS") {
				column.Alias, err = parser.parseName("column alias")
				if err != nil {
					return nil, err
				}
			} else if tok := parser.peek(); tok.Type == Identifier || tok.Type == QuotedIdentifier {
				column.Alias, _ = parser.parseName("column alias")
			}
			columns = append(columns, column)
		}

		if !parser.accept(Comma) {
			return columns, nil
		}
	}
}

func (parser *Parser) parseReturning() ([]ResultColumn, error) {
	if !parser.acceptKeyword("RETURNING") {
		return nil, nil
	}
	return parser.parseResultColumns()
}

// INSERT

func (parser *Parser) parseInsert() (Statement, error) {
	var statement InsertStatement

	parser.next() // INSERT
	if err := parser.expectKeyword("INTO"); err != nil {
		return nil, err
	}

	var err error
	statement.Table, err = parser.parseTableName()
	if err != nil {
		return nil, err
	}

	if parser.accept(ParenOpen) {
		for {
			column, err := parser.parseName("column name")
			if err != nil {
				return nil, err
			}
			statement.Columns = append(statement.Columns, column)

			if parser.accept(Comma) {
				continue
			}
			if _, err := parser.expect(ParenClose, "',' or ')' in column list"); err != nil {
				return nil, err
			}
			break
		}
	}

	switch {
	case parser.acceptKeyword("VALUES"):
		for {
			if _, err := parser.expect(ParenOpen, "'(' after VALUES"); err != nil {
				return nil, err
			}
			row, err := parser.parseExprList()
			if err != nil {
				return nil, err
			}
			if _, err := parser.expect(ParenClose, "',' or ')' in values list"); err != nil {
				return nil, err
			}
			statement.Rows = append(statement.Rows, row)

			if !parser.accept(Comma) {
				break
			}
		}
	case parser.acceptKeyword("DEFAULT"):
		if err := parser.expectKeyword("VALUES"); err != nil {
			return nil, err
		}
		statement.DefaultValues = true
	case isKeyword(parser.peek(), "SELECT"):
		query, err := parser.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		statement.Select = &query
	default:
		return nil, fmt.Errorf("%w: expected VALUES, SELECT or DEFAULT VALUES near %q", ErrSyntax, parser.display(parser.peek()))
	}

	statement.Returning, err = parser.parseReturning()
	if err != nil {
		return nil, err
	}

	return statement, nil
}

func (parser *Parser) parseExprList() ([]Expr, error) {
	var list []Expr
	for {
		expr, err := parser.ParseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, expr)

		if !parser.accept(Comma) {
			return list, nil
		}
	}
}

// UPDATE

func (parser *Parser) parseUpdate() (Statement, error) {
	var statement UpdateStatement

	parser.next() // UPDATE
	var err error
	statement.Table, err = parser.parseTableName()
	if err != nil {
		return nil, err
	}

	if err := parser.expectKeyword("SET"); err != nil {
		return nil, err
	}

	for {
		column, err := parser.parseName("column name in SET clause")
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(Equals, "'=' in SET clause"); err != nil {
			return nil, err
		}
		value, err := parser.ParseExpr()
		if err != nil {
			return nil, err
		}
		statement.Set = append(statement.Set, SetClause{Column: column, Value: value})

		if !parser.accept(Comma) {
			break
		}
	}

	if parser.acceptKeyword("WHERE") {
		statement.Where, err = parser.ParseExpr()
		if err != nil {
			return nil, err
		}
	}

	statement.Returning, err = parser.parseReturning()
	if err != nil {
		return nil, err
	}

	return statement, nil
}

// DELETE

func (parser *Parser) parseDelete() (Statement, error) {
	var statement DeleteStatement

	parser.next() // DELETE
	if err := parser.expectKeyword("FROM"); err != nil {
		return nil, err
	}

	var err error
	statement.Table, err = parser.parseTableName()
	if err != nil {
		return nil, err
	}

	if parser.acceptKeyword("WHERE") {
		statement.Where, err = parser.ParseExpr()
		if err != nil {
			return nil, err
		}
	}

	statement.Returning, err = parser.parseReturning()
	if err != nil {
		return nil, err
	}

	return statement, nil
}

// CREATE

func (parser *Parser) parseCreate() (Statement, error) {
	start := parser.next().Pos // CREATE

	switch {
	case parser.acceptKeyword("TABLE"):
		return parser.parseCreateTable(start)
	case parser.acceptKeyword("VIEW"):
		return parser.parseCreateView()
	default:
		return nil, fmt.Errorf("%w: expected TABLE or VIEW after CREATE", ErrSyntax)
	}
}

func (parser *Parser) parseIfNotExists() (bool, error) {
	if !parser.acceptKeyword("IF") {
		return false, nil
	}
	if err := parser.expectKeyword("NOT"); err != nil {
		return false, err
	}
	if err := parser.expectKeyword("EXISTS"); err != nil {
		return false, err
	}
	return true, nil
}

func (parser *Parser) parseIfExists() (bool, error) {
	if !parser.acceptKeyword("IF") {
		return false, nil
	}
	if err := parser.expectKeyword("EXISTS"); err != nil {
		return false, err
	}
	return true, nil
}

func isTableConstraintStart(token Token) bool {
	return isKeyword(token, "CONSTRAINT") || isKeyword(token, "PRIMARY") ||
		isKeyword(token, "UNIQUE") || isKeyword(token, "CHECK")
}

func (parser *Parser) parseCreateTable(start int) (Statement, error) {
	var statement CreateTableStatement

	var err error
	statement.IfNotExists, err = parser.parseIfNotExists()
	if err != nil {
		return nil, err
	}

	statement.Table, err = parser.parseTableName()
	if err != nil {
		return nil, err
	}

	if _, err := parser.expect(ParenOpen, "'(' after table name"); err != nil {
		return nil, err
	}

	columnsEnd := 0
	for {
		if isTableConstraintStart(parser.peek()) {
			constraint, err := parser.parseTableConstraint()
			if err != nil {
				return nil, err
			}
			statement.Constraints = append(statement.Constraints, constraint)
		} else {
			if len(statement.Constraints) > 0 {
				return nil, fmt.Errorf("%w: column definition after table constraint", ErrSyntax)
			}
			column, err := parser.ParseColumnDef()
			if err != nil {
				return nil, err
			}
			statement.Columns = append(statement.Columns, column)
			columnsEnd = parser.lastEnd()
		}

		if parser.accept(Comma) {
			continue
		}
		if _, err := parser.expect(ParenClose, "',' or ')' in column list"); err != nil {
			return nil, err
		}
		break
	}

	if len(statement.Columns) == 0 {
		return nil, errors.New("table must have at least one column")
	}

	for isKeyword(parser.peek(), "STRICT") || parser.peek().Type == Identifier {
		if !parser.acceptKeyword("STRICT") {
			return nil, fmt.Errorf("%w: unknown table option: %s", ErrSyntax, parser.display(parser.peek()))
		}
		statement.Strict = true
		if !parser.accept(Comma) {
			break
		}
	}

	statement.SQL = parser.textFrom(start)
	statement.ColumnsEnd = columnsEnd - start

	return statement, nil
}

func (parser *Parser) parseConstraintName() (string, error) {
	if !parser.acceptKeyword("CONSTRAINT") {
		return "", nil
	}
	return parser.parseName("constraint name")
}

func (parser *Parser) parseTableConstraint() (TableConstraint, error) {
	var constraint TableConstraint

	var err error
	constraint.Name, err = parser.parseConstraintName()
	if err != nil {
		return constraint, err
	}

	switch {
	case parser.acceptKeyword("PRIMARY"):
		if err := parser.expectKeyword("KEY"); err != nil {
			return constraint, err
		}
		constraint.Kind = PrimaryKeyConstraint
		constraint.Columns, err = parser.parseIndexedColumns()
	case parser.acceptKeyword("UNIQUE"):
		constraint.Kind = UniqueConstraint
		constraint.Columns, err = parser.parseIndexedColumns()
	case parser.acceptKeyword("CHECK"):
		constraint.Kind = CheckConstraint
		constraint.Check, err = parser.parseCheck()
		constraint.Check.Name = constraint.Name
	default:
		return constraint, fmt.Errorf("%w: expected PRIMARY KEY, UNIQUE or CHECK near %q", ErrSyntax, parser.display(parser.peek()))
	}

	return constraint, err
}

func (parser *Parser) parseIndexedColumns() ([]string, error) {
	if _, err := parser.expect(ParenOpen, "'('"); err != nil {
		return nil, err
	}

	var columns []string
	for {
		column, err := parser.parseName("column name")
		if err != nil {
			return nil, err
		}
		if parser.acceptKeyword("COLLATE") {
			if _, err := parser.parseName("collation name"); err != nil {
				return nil, err
			}
		}
		if !parser.acceptKeyword("ASC") {
			parser.acceptKeyword("DESC")
		}
		columns = append(columns, column)

		if parser.accept(Comma) {
			continue
		}
		if _, err := parser.expect(ParenClose, "',' or ')'"); err != nil {
			return nil, err
		}
		return columns, nil
	}
}

// parseCheck reads "(expr)" after CHECK.
func (parser *Parser) parseCheck() (CheckDef, error) {
	var check CheckDef

	if _, err := parser.expect(ParenOpen, "'(' after CHECK"); err != nil {
		return check, err
	}
	start := parser.peek().Pos
	expr, err := parser.ParseExpr()
	if err != nil {
		return check, err
	}
	check.Expr = expr
	check.Text = parser.textFrom(start)
	if _, err := parser.expect(ParenClose, "')' after CHECK expression"); err != nil {
		return check, err
	}

	return check, nil
}

// ParseColumnDef parses "name [type] [constraint ...]".
func (parser *Parser) ParseColumnDef() (ColumnDef, error) {
	var column ColumnDef

	start := parser.peek().Pos
	var err error
	column.Name, err = parser.parseName("column name")
	if err != nil {
		return column, err
	}

	column.Type, err = parser.parseTypeName()
	if err != nil {
		return column, err
	}

	for {
		constraintName, err := parser.parseConstraintName()
		if err != nil {
			return column, err
		}

		token := parser.peek()
		switch {
		case isKeyword(token, "PRIMARY"):
			parser.next()
			if err := parser.expectKeyword("KEY"); err != nil {
				return column, err
			}
			if !parser.acceptKeyword("ASC") {
				parser.acceptKeyword("DESC")
			}
			column.PrimaryKey = true
			column.Autoincrement = parser.acceptKeyword("AUTOINCREMENT")

		case isKeyword(token, "NOT"):
			parser.next()
			if err := parser.expectKeyword("NULL"); err != nil {
				return column, err
			}
			column.NotNull = true

		case isKeyword(token, "NULL"):
			parser.next()

		case isKeyword(token, "UNIQUE"):
			parser.next()
			column.Unique = true

		case isKeyword(token, "CHECK"):
			parser.next()
			check, err := parser.parseCheck()
			if err != nil {
				return column, err
			}
			check.Name = constraintName
			column.Checks = append(column.Checks, check)

		case isKeyword(token, "DEFAULT"):
			parser.next()
			exprStart := parser.peek().Pos
			column.Default, err = parser.parseDefaultValue()
			if err != nil {
				return column, err
			}
			column.DefaultText = parser.textFrom(exprStart)

		case isKeyword(token, "COLLATE"):
			parser.next()
			column.Collate, err = parser.parseName("collation name")
			if err != nil {
				return column, err
			}

		case isKeyword(token, "GENERATED") || isKeyword(token, "AS"):
			if parser.acceptKeyword("GENERATED") {
				if err := parser.expectKeyword("ALWAYS"); err != nil {
					return column, err
				}
			}
			if err := parser.expectKeyword("AS"); err != nil {
				return column, err
			}
			if _, err := parser.expect(ParenOpen, "'(' after AS"); err != nil {
				return column, err
			}
			exprStart := parser.peek().Pos
			column.Generated, err = parser.ParseExpr()
			if err != nil {
				return column, err
			}
			column.GeneratedText = parser.textFrom(exprStart)
			if _, err := parser.expect(ParenClose, "')' after generated expression"); err != nil {
				return column, err
			}
			if parser.acceptKeyword("STORED") {
				column.Stored = true
			} else {
				parser.acceptKeyword("VIRTUAL")
			}

		default:
			if constraintName != "" {
				return column, fmt.Errorf("%w: expected constraint after CONSTRAINT %s", ErrSyntax, constraintName)
			}
			column.Text = parser.textFrom(start)
			return column, nil
		}
	}
}

// parseDefaultValue reads the term after DEFAULT: a signed number, a literal, a
// bare word or a parenthesized expression. A COLLATE that follows belongs to the
// column, not to the default.
func (parser *Parser) parseDefaultValue() (Expr, error) {
	token := parser.peek()
	switch token.Type {
	case Minus, Plus:
		parser.next()
		number := parser.peek()
		if number.Type != Int && number.Type != Float {
			return nil, fmt.Errorf("%w: expected number after sign in DEFAULT near %q", ErrSyntax, parser.display(number))
		}
		parser.next()
		text := number.Value
		if token.Type == Minus {
			text = "-" + text
		}
		value, err := numberLiteral(text, number.Type)
		if err != nil {
			return nil, err
		}
		return Literal{Value: value}, nil
	case Identifier:
		// DEFAULT abc stores the word as text.
		parser.next()
		return Literal{Value: core.Text(token.Value)}, nil
	}
	return parser.parsePrimary()
}

// parseTypeName reads an optional type such as INTEGER, DOUBLE PRECISION or
// VARCHAR(10). The result is the source text.
func (parser *Parser) parseTypeName() (string, error) {
	if parser.peek().Type != Identifier && parser.peek().Type != QuotedIdentifier {
		return "", nil
	}

	start := parser.peek().Pos
	for parser.peek().Type == Identifier || parser.peek().Type == QuotedIdentifier {
		parser.next()
	}

	if parser.accept(ParenOpen) {
		for {
			parser.accept(Plus)
			parser.accept(Minus)
			token := parser.next()
			if token.Type != Int && token.Type != Float {
				return "", fmt.Errorf("%w: expected number in type size near %q", ErrSyntax, parser.display(token))
			}
			if parser.accept(Comma) {
				continue
			}
			if _, err := parser.expect(ParenClose, "')' after type size"); err != nil {
				return "", err
			}
			break
		}
	}

	return parser.textFrom(start), nil
}

func (parser *Parser) parseCreateView() (Statement, error) {
	var statement CreateViewStatement

	var err error
	statement.IfNotExists, err = parser.parseIfNotExists()
	if err != nil {
		return nil, err
	}

	statement.Name, err = parser.parseTableName()
	if err != nil {
		return nil, err
	}

	if err := parser.expectKeyword("AS"); err != nil {
		return nil, err
	}

	start := parser.peek().Pos
	statement.Query, err = parser.parseSelectStatement()
	if err != nil {
		return nil, err
	}
	statement.QueryText = parser.textFrom(start)

	return statement, nil
}

// DROP

func (parser *Parser) parseDrop() (Statement, error) {
	parser.next() // DROP

	switch {
	case parser.acceptKeyword("TABLE"):
		ifExists, err := parser.parseIfExists()
		if err != nil {
			return nil, err
		}
		name, err := parser.parseTableName()
		if err != nil {
			return nil, err
		}
		return DropTableStatement{Table: name, IfExists: ifExists}, nil

	case parser.acceptKeyword("VIEW"):
		ifExists, err := parser.parseIfExists()
		if err != nil {
			return nil, err
		}
		name, err := parser.parseTableName()
		if err != nil {
			return nil, err
		}
		return DropViewStatement{Name: name, IfExists: ifExists}, nil

	default:
		return nil, fmt.Errorf("%w: expected TABLE or VIEW after DROP", ErrSyntax)
	}
}

// ALTER

func (parser *Parser) parseAlter() (Statement, error) {
	var statement AlterTableStatement

	parser.next() // ALTER
	if err := parser.expectKeyword("TABLE"); err != nil {
		return nil, err
	}

	var err error
	statement.Table, err = parser.parseTableName()
	if err != nil {
		return nil, err
	}

	if err := parser.expectKeyword("ADD"); err != nil {
		return nil, err
	}
	parser.acceptKeyword("COLUMN")

	statement.Column, err = parser.ParseColumnDef()
	if err != nil {
		return nil, err
	}

	return statement, nil
}

// DESCRIBE

func (parser *Parser) parseDescribe() (Statement, error) {
	parser.next() // DESCRIBE

	name, err := parser.parseTableName()
	if err != nil {
		return nil, errors.New("expected table name after DESCRIBE")
	}
	return DescribeStatement{Table: name}, nil
}

// COPY

// parseCopy parses COPY INTO table FROM 'source' and COPY table TO 'target'.
func (parser *Parser) parseCopy() (Statement, error) {
	var statement CopyStatement

	parser.next() // COPY
	var err error

	if parser.acceptKeyword("INTO") {
		statement.Import = true
		statement.Table, err = parser.parseTableName()
		if err != nil {
			return nil, err
		}
		if err := parser.expectKeyword("FROM"); err != nil {
			return nil, err
		}
	} else {
		statement.Table, err = parser.parseTableName()
		if err != nil {
			return nil, err
		}
		if err := parser.expectKeyword("TO"); err != nil {
			return nil, err
		}
	}

	token, err := parser.expect(String, "quoted path")
	if err != nil {
		return nil, err
	}
	statement.Path = token.Value

	return statement, nil
}
