package sql

type StatementType int

const (
	SelectStatementType StatementType = iota
	InsertStatementType
	UpdateStatementType
	DeleteStatementType
	CreateTableStatementType
	CreateViewStatementType
	DropTableStatementType
	DropViewStatementType
	AlterTableStatementType
	DescribeStatementType
	ShowTablesStatementType
	CopyStatementType
)

type Statement interface {
	Type() StatementType
}

type SelectStatement struct {
	Distinct   bool
	Columns    []ResultColumn
	Table      string // empty for SELECT without FROM
	TableAlias string
	Where      Expr
	OrderBy    []OrderByClause
	Limit      Expr
	Offset     Expr
}

type OrderByClause struct {
	Expr       Expr
	Descending bool
}

type InsertStatement struct {
	Table         string
	Columns       []string
	Rows          [][]Expr
	Select        *SelectStatement
	DefaultValues bool
	Returning     []ResultColumn
}

type UpdateStatement struct {
	Table     string
	Set       []SetClause
	Where     Expr
	Returning []ResultColumn
}

type SetClause struct {
	Column string
	Value  Expr
}

type DeleteStatement struct {
	Table     string
	Where     Expr
	Returning []ResultColumn
}

// CheckDef is a CHECK constraint. Text is the expression as written inside the
// parentheses.
type CheckDef struct {
	Name string
	Expr Expr
	Text string
}

// ColumnDef is a column definition from CREATE TABLE or ALTER TABLE ADD COLUMN. Text is
// the whole definition exactly as written.
type ColumnDef struct {
	Name          string
	Type          string
	NotNull       bool
	PrimaryKey    bool
	Autoincrement bool
	Unique        bool
	Default       Expr
	DefaultText   string
	Generated     Expr
	GeneratedText string
	Stored        bool
	Checks        []CheckDef
	Collate       string
	Text          string
}

type ConstraintKind int

const (
	PrimaryKeyConstraint ConstraintKind = iota
	UniqueConstraint
	CheckConstraint
)

type TableConstraint struct {
	Name    string
	Kind    ConstraintKind
	Columns []string
	Check   CheckDef
}

// CreateTableStatement keeps the statement text so it can be stored as the canonical
// schema. ColumnsEnd is the offset in SQL just past the last column definition.
type CreateTableStatement struct {
	Table       string
	IfNotExists bool
	Strict      bool
	Columns     []ColumnDef
	Constraints []TableConstraint
	SQL         string
	ColumnsEnd  int
}

type CreateViewStatement struct {
	Name        string
	IfNotExists bool
	Query       SelectStatement
	QueryText   string
}

type DropTableStatement struct {
	Table    string
	IfExists bool
}

type DropViewStatement struct {
	Name     string
	IfExists bool
}

// AlterTableStatement is ALTER TABLE ... ADD [COLUMN].
type AlterTableStatement struct {
	Table  string
	Column ColumnDef
}

type DescribeStatement struct {
	Table string
}

type ShowTablesStatement struct{}

// CopyStatement is either COPY INTO t FROM 'source' (Import) or COPY t TO 'target'.
type CopyStatement struct {
	Table  string
	Path   string
	Import bool
}

func (s SelectStatement) Type() StatementType {
	return SelectStatementType
}

func (s InsertStatement) Type() StatementType {
	return InsertStatementType
}

func (s UpdateStatement) Type() StatementType {
	return UpdateStatementType
}

func (s DeleteStatement) Type() StatementType {
	return DeleteStatementType
}

func (s CreateTableStatement) Type() StatementType {
	return CreateTableStatementType
}

func (s CreateViewStatement) Type() StatementType {
	return CreateViewStatementType
}

func (s DropTableStatement) Type() StatementType {
	return DropTableStatementType
}

func (s DropViewStatement) Type() StatementType {
	return DropViewStatementType
}

func (s AlterTableStatement) Type() StatementType {
	return AlterTableStatementType
}

func (s DescribeStatement) Type() StatementType {
	return DescribeStatementType
}

func (s ShowTablesStatement) Type() StatementType {
	return ShowTablesStatementType
}

func (s CopyStatement) Type() StatementType {
	return CopyStatementType
}
