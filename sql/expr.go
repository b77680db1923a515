package sql

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/numeric"
)

// ParseExpression parses a standalone expression, such as a stored DEFAULT, CHECK or
// generated column definition.
func ParseExpression(text string) (Expr, error) {
	parser := NewParser(text)
	expr, err := parser.ParseExpr()
	if err != nil {
		return nil, err
	}
	if tok := parser.peek(); tok.Type != EOF {
		return nil, parser.unexpected(tok)
	}
	return expr, nil
}

// ParseExpr parses an expression. Precedence from loosest to tightest: OR, AND, NOT,
// equality (= != IS IN LIKE BETWEEN), ordering (< <= > >=), + -, * / %, ||, unary.
func (parser *Parser) ParseExpr() (Expr, error) {
	return parser.parseOr()
}

func (parser *Parser) parseOr() (Expr, error) {
	left, err := parser.parseAnd()
	if err != nil {
		return nil, err
	}
	for parser.acceptKeyword("OR") {
		right, err := parser.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseAnd() (Expr, error) {
	left, err := parser.parseNot()
	if err != nil {
		return nil, err
	}
	for parser.acceptKeyword("AND") {
		right, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseNot() (Expr, error) {
	if parser.acceptKeyword("NOT") {
		x, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "NOT", X: x}, nil
	}
	return parser.parseEquality()
}

func (parser *Parser) parseEquality() (Expr, error) {
	left, err := parser.parseComparison()
	if err != nil {
		return nil, err
	}

	for {
		token := parser.peek()
		switch {
		case token.Type == Equals || token.Type == NotEquals:
			parser.next()
			op := "="
			if token.Type == NotEquals {
				op = "!="
			}
			right, err := parser.parseComparison()
			if err != nil {
				return nil, err
			}
			left = BinaryExpr{Op: op, Left: left, Right: right}

		case isKeyword(token, "IS"):
			parser.next()
			op := "IS"
			if parser.acceptKeyword("NOT") {
				op = "IS NOT"
			}
			right, err := parser.parseComparison()
			if err != nil {
				return nil, err
			}
			left = BinaryExpr{Op: op, Left: left, Right: right}

		case isKeyword(token, "ISNULL"):
			parser.next()
			left = IsNullExpr{X: left}

		case isKeyword(token, "NOTNULL"):
			parser.next()
			left = IsNullExpr{X: left, Not: true}

		case isKeyword(token, "NOT"):
			following := parser.peekAt(1)
			switch {
			case isKeyword(following, "NULL"):
				parser.next()
				parser.next()
				left = IsNullExpr{X: left, Not: true}
			case isKeyword(following, "IN"), isKeyword(following, "LIKE"), isKeyword(following, "BETWEEN"):
				parser.next()
				left, err = parser.parsePostfixPredicate(left, true)
				if err != nil {
					return nil, err
				}
			default:
				return left, nil
			}

		case isKeyword(token, "IN"), isKeyword(token, "LIKE"), isKeyword(token, "BETWEEN"):
			left, err = parser.parsePostfixPredicate(left, false)
			if err != nil {
				return nil, err
			}

		default:
			return left, nil
		}
	}
}

func (parser *Parser) parsePostfixPredicate(left Expr, not bool) (Expr, error) {
	token := parser.next()

	switch token.Value {
	case "IN":
		if _, err := parser.expect(ParenOpen, "'(' after IN"); err != nil {
			return nil, err
		}
		var list []Expr
		if parser.peek().Type != ParenClose {
			var err error
			list, err = parser.parseExprList()
			if err != nil {
				return nil, err
			}
		}
		if _, err := parser.expect(ParenClose, "')' after IN list"); err != nil {
			return nil, err
		}
		return InExpr{X: left, List: list, Not: not}, nil

	case "LIKE":
		pattern, err := parser.parseComparison()
		if err != nil {
			return nil, err
		}
		like := LikeExpr{X: left, Pattern: pattern, Not: not}
		if parser.acceptKeyword("ESCAPE") {
			like.Escape, err = parser.parseComparison()
			if err != nil {
				return nil, err
			}
		}
		return like, nil

	default: // BETWEEN
		low, err := parser.parseComparison()
		if err != nil {
			return nil, err
		}
		if err := parser.expectKeyword("AND"); err != nil {
			return nil, err
		}
		high, err := parser.parseComparison()
		if err != nil {
			return nil, err
		}
		return BetweenExpr{X: left, Low: low, High: high, Not: not}, nil
	}
}

func (parser *Parser) parseComparison() (Expr, error) {
	left, err := parser.parseAdditive()
	if err != nil {
		return nil, err
	}

	for {
		var op string
		switch parser.peek().Type {
		case LessThan:
			op = "<"
		case LessThanOrEqual:
			op = "<="
		case GreaterThan:
			op = ">"
		case GreaterThanOrEqual:
			op = ">="
		default:
			return left, nil
		}
		parser.next()

		right, err := parser.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (parser *Parser) parseAdditive() (Expr, error) {
	left, err := parser.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		var op string
		switch parser.peek().Type {
		case Plus:
			op = "+"
		case Minus:
			op = "-"
		default:
			return left, nil
		}
		parser.next()

		right, err := parser.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (parser *Parser) parseMultiplicative() (Expr, error) {
	left, err := parser.parseConcat()
	if err != nil {
		return nil, err
	}

	for {
		var op string
		switch parser.peek().Type {
		case Wildcard:
			op = "*"
		case Slash:
			op = "/"
		case Percent:
			op = "%"
		default:
			return left, nil
		}
		parser.next()

		right, err := parser.parseConcat()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (parser *Parser) parseConcat() (Expr, error) {
	left, err := parser.parseUnary()
	if err != nil {
		return nil, err
	}

	for parser.accept(Concat) {
		right, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

// parseUnary handles prefix + and -, folding a minus sign into a numeric literal so
// that -9223372036854775808 is an integer.
func (parser *Parser) parseUnary() (Expr, error) {
	switch parser.peek().Type {
	case Minus:
		parser.next()
		if token := parser.peek(); token.Type == Int || token.Type == Float {
			parser.next()
			value, err := numberLiteral("-"+token.Value, token.Type)
			if err != nil {
				return nil, err
			}
			return parser.parseCollate(Literal{Value: value})
		}
		x, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "-", X: x}, nil

	case Plus:
		parser.next()
		x, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "+", X: x}, nil
	}

	primary, err := parser.parsePrimary()
	if err != nil {
		return nil, err
	}
	return parser.parseCollate(primary)
}

func (parser *Parser) parseCollate(x Expr) (Expr, error) {
	for parser.acceptKeyword("COLLATE") {
		name, err := parser.parseName("collation name")
		if err != nil {
			return nil, err
		}
		x = CollateExpr{X: x, Collation: strings.ToUpper(name)}
	}
	return x, nil
}

// numberLiteral converts numeric literal text. Integer literals outside the int64
// range become reals.
func numberLiteral(text string, tokenType TokenType) (core.Value, error) {
	if tokenType == Int {
		if i, ok := numeric.ParseInteger(text); ok {
			return core.Integer(i), nil
		}
	}
	f, ok := numeric.ParseReal(text)
	if !ok {
		return core.Null(), fmt.Errorf("%w: malformed number %s", ErrSyntax, text)
	}
	return core.Real(f), nil
}

func (parser *Parser) parsePrimary() (Expr, error) {
	token := parser.peek()

	switch token.Type {
	case Int, Float:
		parser.next()
		value, err := numberLiteral(token.Value, token.Type)
		if err != nil {
			return nil, err
		}
		return Literal{Value: value}, nil

	case String:
		parser.next()
		return Literal{Value: core.Text(token.Value)}, nil

	case BlobLiteral:
		parser.next()
		b, err := hex.DecodeString(token.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed blob literal X'%s'", ErrSyntax, token.Value)
		}
		return Literal{Value: core.Blob(b)}, nil

	case ParenOpen:
		parser.next()
		x, err := parser.ParseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose, "')'"); err != nil {
			return nil, err
		}
		return x, nil

	case Keyword:
		switch token.Value {
		case "NULL":
			parser.next()
			return Literal{Value: core.Null()}, nil
		case "TRUE":
			parser.next()
			return Literal{Value: core.Integer(1)}, nil
		case "FALSE":
			parser.next()
			return Literal{Value: core.Integer(0)}, nil
		case "CURRENT_TIME", "CURRENT_DATE", "CURRENT_TIMESTAMP":
			parser.next()
			return FuncCall{Name: strings.ToLower(token.Value)}, nil
		case "CAST":
			return parser.parseCast()
		case "CASE":
			return parser.parseCase()
		}
		if softKeywords[token.Value] {
			return parser.parseReference()
		}

	case Identifier, QuotedIdentifier:
		return parser.parseReference()
	}

	return nil, fmt.Errorf("%w: near %q", ErrSyntax, parser.display(token))
}

// parseReference parses a column reference, table.column or a function call.
func (parser *Parser) parseReference() (Expr, error) {
	token := parser.peek()
	name, err := parser.parseName("name")
	if err != nil {
		return nil, err
	}

	if token.Type == Identifier && parser.peek().Type == ParenOpen {
		return parser.parseFuncCall(strings.ToLower(name))
	}

	if parser.accept(Dot) {
		column, err := parser.parseName("column name")
		if err != nil {
			return nil, err
		}
		return ColumnRef{Table: name, Name: column}, nil
	}

	return ColumnRef{Name: name}, nil
}

func (parser *Parser) parseFuncCall(name string) (Expr, error) {
	parser.next() // (
	call := FuncCall{Name: name}

	switch {
	case parser.accept(Wildcard):
		call.Star = true
	case parser.peek().Type != ParenClose:
		parser.acceptKeyword("DISTINCT")
		args, err := parser.parseExprList()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}

	if _, err := parser.expect(ParenClose, "')' after function arguments"); err != nil {
		return nil, err
	}
	return call, nil
}

func (parser *Parser) parseCast() (Expr, error) {
	parser.next() // CAST
	if _, err := parser.expect(ParenOpen, "'(' after CAST"); err != nil {
		return nil, err
	}
	x, err := parser.ParseExpr()
	if err != nil {
		return nil, err
	}
	if err := parser.expectKeyword("AS"); err != nil {
		return nil, err
	}
	typeName, err := parser.parseTypeName()
	if err != nil {
		return nil, err
	}
	if _, err := parser.expect(ParenClose, "')' after CAST"); err != nil {
		return nil, err
	}
	return CastExpr{X: x, Type: typeName}, nil
}

func (parser *Parser) parseCase() (Expr, error) {
	parser.next() // CASE
	var expr CaseExpr

	if !isKeyword(parser.peek(), "WHEN") {
		operand, err := parser.ParseExpr()
		if err != nil {
			return nil, err
		}
		expr.Operand = operand
	}

	for parser.acceptKeyword("WHEN") {
		when, err := parser.ParseExpr()
		if err != nil {
			return nil, err
		}
		if err := parser.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		then, err := parser.ParseExpr()
		if err != nil {
			return nil, err
		}
		expr.Whens = append(expr.Whens, WhenClause{When: when, Then: then})
	}
	if len(expr.Whens) == 0 {
		return nil, fmt.Errorf("%w: CASE without WHEN", ErrSyntax)
	}

	if parser.acceptKeyword("ELSE") {
		elseExpr, err := parser.ParseExpr()
		if err != nil {
			return nil, err
		}
		expr.Else = elseExpr
	}

	if err := parser.expectKeyword("END"); err != nil {
		return nil, err
	}
	return expr, nil
}
