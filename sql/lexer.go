package sql

import (
	"strings"
)

type Token struct {
	Type  TokenType
	Value string
	Pos   int // byte offset of the first character
	End   int // byte offset just past the last character
}

type TokenType int

const (
	EOF TokenType = iota
	Unknown
	Identifier
	QuotedIdentifier
	Keyword
	String
	BlobLiteral
	Int
	Float
	Comma
	Dot
	Semicolon
	ParenOpen
	ParenClose
	Wildcard
	Plus
	Minus
	Slash
	Percent
	Concat
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
)

var tokenNames = map[TokenType]string{
	EOF:                "EOF",
	Unknown:            "Unknown",
	Identifier:         "Identifier",
	QuotedIdentifier:   "QuotedIdentifier",
	Keyword:            "Keyword",
	String:             "String",
	BlobLiteral:        "Blob",
	Int:                "Int",
	Float:              "Float",
	Comma:              "Comma",
	Dot:                "Dot",
	Semicolon:          "Semicolon",
	ParenOpen:          "ParenOpen",
	ParenClose:         "ParenClose",
	Wildcard:           "Wildcard",
	Plus:               "Plus",
	Minus:              "Minus",
	Slash:              "Slash",
	Percent:            "Percent",
	Concat:             "Concat",
	Equals:             "Equals",
	NotEquals:          "NotEquals",
	LessThan:           "LessThan",
	GreaterThan:        "GreaterThan",
	LessThanOrEqual:    "LessThanOrEqual",
	GreaterThanOrEqual: "GreaterThanOrEqual",
}

func (tokenType TokenType) String() string {
	if name, ok := tokenNames[tokenType]; ok {
		return name
	}
	return "Unknown"
}

func (token Token) String() string {
	switch token.Type {
	case Identifier, QuotedIdentifier, Keyword, String, BlobLiteral, Int, Float, Unknown:
		return token.Type.String() + "(" + token.Value + ")"
	default:
		return token.Type.String()
	}
}

// keywords are reserved words. Everything else that looks like a word is an
// Identifier, so type names and most column names need no quoting.
var keywords = map[string]bool{
	"ADD": true, "ALTER": true, "ALWAYS": true, "AND": true, "AS": true, "ASC": true,
	"AUTOINCREMENT": true, "BETWEEN": true, "BY": true, "CASE": true, "CAST": true,
	"CHECK": true, "COLLATE": true, "COLUMN": true, "CONSTRAINT": true, "COPY": true,
	"CREATE": true, "CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true,
	"DEFAULT": true, "DELETE": true, "DESC": true, "DESCRIBE": true, "DISTINCT": true,
	"DROP": true, "ELSE": true, "END": true, "ESCAPE": true, "EXISTS": true, "FALSE": true,
	"FROM": true, "GENERATED": true, "IF": true, "IN": true, "INSERT": true, "INTO": true,
	"IS": true, "ISNULL": true, "KEY": true, "LIKE": true, "LIMIT": true, "NOT": true,
	"NOTNULL": true, "NULL": true, "OFFSET": true, "OR": true, "ORDER": true,
	"PRIMARY": true, "RETURNING": true, "SELECT": true, "SET": true, "SHOW": true,
	"STORED": true, "STRICT": true, "TABLE": true, "TABLES": true, "THEN": true, "TO": true,
	"TRUE": true, "UNIQUE": true, "UPDATE": true, "VALUES": true, "VIEW": true,
	"VIRTUAL": true, "WHEN": true, "WHERE": true,
}

// softKeywords may also be used as plain identifiers.
var softKeywords = map[string]bool{
	"ALWAYS": true, "COPY": true, "DESCRIBE": true, "GENERATED": true, "KEY": true,
	"SHOW": true, "STORED": true, "STRICT": true, "TABLES": true, "VIRTUAL": true,
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) atEnd() bool {
	return lexer.position >= len(lexer.sql)
}

func (lexer *Lexer) NextToken() Token {
	lexer.skipWhitespaceAndComments()

	start := lexer.position
	if lexer.atEnd() {
		return Token{Type: EOF, Pos: start, End: start}
	}

	single := func(tokenType TokenType) Token {
		lexer.readChar()
		return Token{Type: tokenType, Value: lexer.sql[start:lexer.position], Pos: start, End: lexer.position}
	}
	double := func(tokenType TokenType) Token {
		lexer.readChar()
		lexer.readChar()
		return Token{Type: tokenType, Value: lexer.sql[start:lexer.position], Pos: start, End: lexer.position}
	}

	switch ch := lexer.ch; {
	case ch == ',':
		return single(Comma)
	case ch == ';':
		return single(Semicolon)
	case ch == '(':
		return single(ParenOpen)
	case ch == ')':
		return single(ParenClose)
	case ch == '*':
		return single(Wildcard)
	case ch == '+':
		return single(Plus)
	case ch == '-':
		return single(Minus)
	case ch == '/':
		return single(Slash)
	case ch == '%':
		return single(Percent)
	case ch == '|':
		if lexer.peekChar() == '|' {
			return double(Concat)
		}
		return single(Unknown)
	case ch == '=':
		if lexer.peekChar() == '=' {
			return double(Equals)
		}
		return single(Equals)
	case ch == '!':
		if lexer.peekChar() == '=' {
			return double(NotEquals)
		}
		return single(Unknown)
	case ch == '<':
		switch lexer.peekChar() {
		case '=':
			return double(LessThanOrEqual)
		case '>':
			return double(NotEquals)
		}
		return single(LessThan)
	case ch == '>':
		if lexer.peekChar() == '=' {
			return double(GreaterThanOrEqual)
		}
		return single(GreaterThan)
	case ch == '\'':
		value, ok := lexer.readQuoted('\'')
		if !ok {
			return Token{Type: Unknown, Value: "unterminated string", Pos: start, End: lexer.position}
		}
		return Token{Type: String, Value: value, Pos: start, End: lexer.position}
	case ch == '"' || ch == '`':
		value, ok := lexer.readQuoted(ch)
		if !ok {
			return Token{Type: Unknown, Value: "unterminated identifier", Pos: start, End: lexer.position}
		}
		return Token{Type: QuotedIdentifier, Value: value, Pos: start, End: lexer.position}
	case ch == '[':
		lexer.readChar()
		begin := lexer.position
		for !lexer.atEnd() && lexer.ch != ']' {
			lexer.readChar()
		}
		if lexer.atEnd() {
			return Token{Type: Unknown, Value: "unterminated identifier", Pos: start, End: lexer.position}
		}
		value := lexer.sql[begin:lexer.position]
		lexer.readChar()
		return Token{Type: QuotedIdentifier, Value: value, Pos: start, End: lexer.position}
	case (ch == 'x' || ch == 'X') && lexer.peekChar() == '\'':
		lexer.readChar()
		value, ok := lexer.readQuoted('\'')
		if !ok {
			return Token{Type: Unknown, Value: "unterminated blob", Pos: start, End: lexer.position}
		}
		return Token{Type: BlobLiteral, Value: value, Pos: start, End: lexer.position}
	case isDigit(ch) || (ch == '.' && isDigit(lexer.peekChar())):
		return lexer.readNumber()
	case ch == '.':
		return single(Dot)
	case isIdentStart(ch):
		for !lexer.atEnd() && isIdentPart(lexer.ch) {
			lexer.readChar()
		}
		word := lexer.sql[start:lexer.position]
		upper := strings.ToUpper(word)
		if keywords[upper] {
			return Token{Type: Keyword, Value: upper, Pos: start, End: lexer.position}
		}
		return Token{Type: Identifier, Value: word, Pos: start, End: lexer.position}
	default:
		return single(Unknown)
	}
}

func (lexer *Lexer) PeekToken() Token {
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

func (lexer *Lexer) skipWhitespaceAndComments() {
	for !lexer.atEnd() {
		switch {
		case lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' || lexer.ch == '\f':
			lexer.readChar()
		case lexer.ch == '-' && lexer.peekChar() == '-':
			for !lexer.atEnd() && lexer.ch != '\n' {
				lexer.readChar()
			}
		case lexer.ch == '/' && lexer.peekChar() == '*':
			lexer.readChar()
			lexer.readChar()
			for !lexer.atEnd() && !(lexer.ch == '*' && lexer.peekChar() == '/') {
				lexer.readChar()
			}
			lexer.readChar()
			lexer.readChar()
		default:
			return
		}
	}
}

// readQuoted reads a quoted run where a doubled quote stands for one quote character.
func (lexer *Lexer) readQuoted(quote byte) (string, bool) {
	lexer.readChar() // skip opening quote
	var sb strings.Builder
	for {
		if lexer.atEnd() {
			return sb.String(), false
		}
		if lexer.ch == quote {
			if lexer.peekChar() == quote {
				sb.WriteByte(quote)
				lexer.readChar()
				lexer.readChar()
				continue
			}
			lexer.readChar()
			return sb.String(), true
		}
		sb.WriteByte(lexer.ch)
		lexer.readChar()
	}
}

func (lexer *Lexer) readNumber() Token {
	start := lexer.position
	isFloat := false

	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	if lexer.ch == '.' {
		isFloat = true
		lexer.readChar()
		for isDigit(lexer.ch) {
			lexer.readChar()
		}
	}
	if lexer.ch == 'e' || lexer.ch == 'E' {
		next := lexer.peekChar()
		offset := 1
		if next == '+' || next == '-' {
			if lexer.readPosition+1 < len(lexer.sql) {
				next = lexer.sql[lexer.readPosition+1]
			} else {
				next = 0
			}
			offset = 2
		}
		if isDigit(next) {
			isFloat = true
			for i := 0; i < offset; i++ {
				lexer.readChar()
			}
			for isDigit(lexer.ch) {
				lexer.readChar()
			}
		}
	}

	value := lexer.sql[start:lexer.position]
	if isIdentPart(lexer.ch) && !lexer.atEnd() {
		for !lexer.atEnd() && isIdentPart(lexer.ch) {
			lexer.readChar()
		}
		return Token{Type: Unknown, Value: lexer.sql[start:lexer.position], Pos: start, End: lexer.position}
	}
	if isFloat {
		return Token{Type: Float, Value: value, Pos: start, End: lexer.position}
	}
	return Token{Type: Int, Value: value, Pos: start, End: lexer.position}
}

func isIdentStart(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func tokenize(sql string) []Token {
	lexer := NewLexer(sql)

	var tokens []Token

	for {
		token := lexer.NextToken()
		tokens = append(tokens, token)
		if token.Type == EOF {
			return tokens
		}
	}
}
