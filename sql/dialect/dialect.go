package dialect

import (
	"github.com/eddieafk/bifrostql/sql/ast"
	"github.com/eddieafk/bifrostql/sql/spec"
	"github.com/eddieafk/bifrostql/sql/stringifiers/dialects"
	"github.com/eddieafk/bifrostql/sql/stringifiers/dialecttypes"
)

// Dialect encapsulates the SQL surface differences between the two
// supported RDBMSes. Implementations never interpolate parameter values
// into the returned SQL text — every value-bearing placeholder is produced
// by Placeholder and filled in by the caller's bound-parameter slice.
type Dialect interface {
	Name() string

	QuoteIdentifier(identifier string) string
	QuoteString(value string) string

	Placeholder(n int) string

	// Feature support flags
	SupportReturning() bool
	SupportsUpsert() bool
	SupportsOnConflict() bool
	SupportsCTE() bool
	SupportsRecursiveCTE() bool
	SupportsWindowFunctions() bool
	SupportsJSON() bool
	SupportsArray() bool
	SupportsLiteralJoin() bool
	SupportsDistinctOn() bool
	SupportsLimitOffset() bool
	SupportsNullsFirstLast() bool
	SupportsForUpdate() bool
	SupportsMaterializedCTE() bool
	SupportsFullOuterJoin() bool

	// Formatters
	FormatLimitOffset(limit, offset ast.Expression) string
	FormatJoinType(joinType ast.JoinType) string
	FormatOrderDirection(dir ast.OrderDirection) string
	FormatNullsOrder(nullsFirst *bool) string
	FormatBinaryOp(op ast.BinaryOp) string
	FormatUnaryOp(op ast.UnaryOp, prefix bool) string
	FormatBoolLiteral(b bool) string
	FormatCast(typeName string) string

	// Escape functions
	EscapeString(value string) string
	EscapeIdentifier(identifier string) string

	// PagingClause renders the OFFSET/FETCH (SQL Server) or LIMIT/OFFSET
	// (PostgreSQL) tail of a SELECT, or "" when limit and offset are both
	// nil. It takes no sort information; the caller (plan's
	// writeOrderByAndPaging) decides whether to emit an ORDER BY (SELECT NULL)
	// fallback.
	PagingClause(limit, offset *int) string

	// LikeOperator returns "LIKE" or its case-insensitive flavour.
	LikeOperator(caseInsensitive bool) string

	// IdentitySelect returns the statement that retrieves the identity
	// value generated by the preceding INSERT (SCOPE_IDENTITY() / lastval()).
	IdentitySelect() string

	// IsIdentityColumnDefault reports whether a column's DEFAULT expression,
	// as read from information_schema, marks it as an auto-generated
	// identity column. PostgreSQL sniffs "nextval(" in the default; SQL
	// Server identity is not expressed in a default and always reports
	// false here (see IdentityPropertyQuery).
	IsIdentityColumnDefault(columnDefault string) bool

	// IdentityPropertyQuery returns a information_schema-adjacent SQL
	// fragment the Schema Reader can run to ask the server itself whether a
	// column is an identity column. Empty string means the dialect relies
	// on IsIdentityColumnDefault instead (PostgreSQL).
	IdentityPropertyQuery(tableName, columnName string) string

	// Mutation statement builders, shared by both dialects via the
	// dialect-neutral spec package.
	InsertStatement(s spec.InsertSpec) string
	UpdateStatement(s spec.UpdateSpec) string
	DeleteStatement(s spec.DeleteSpec) string
}

// PostgreSQLDialect extends Dialect with PostgreSQL-specific richer builders
// (DISTINCT ON, GROUP BY/HAVING, FOR UPDATE, ON CONFLICT) used where a
// component needs more than the dialect-neutral mutation statements, e.g.
// the mutation compiler's upsert existence check.
type PostgreSQLDialect interface {
	Dialect
	BuildSelect(opts dialecttypes.PostgreSQLSelectOptions) (string, []dialecttypes.ValidationError)
	BuildInsert(opts dialecttypes.PostgreSQLInsertOptions) string
	BuildUpdate(opts dialecttypes.PostgreSQLUpdateOptions) string
	BuildDelete(opts dialecttypes.PostgreSQLDeleteOptions) string
}

// SQLServerDialect extends Dialect with SQL Server's equivalent richer
// SELECT builder (WITH (UPDLOCK, ROWLOCK) row-locking hints instead of
// Postgres's FOR UPDATE, TOP instead of LIMIT when no OFFSET is present).
type SQLServerDialect interface {
	Dialect
	BuildSelect(opts dialecttypes.SQLServerSelectOptions) (string, []dialecttypes.ValidationError)
}

var (
	PostgreSQL PostgreSQLDialect = dialects.PostgreSQL{}
	SQLServer  SQLServerDialect  = dialects.SQLServer{}
)

// ByName resolves a dialect from its configured name ("postgresql" or
// "sqlserver"). Used by Config (A1) to select the active Dialect at startup.
func ByName(name string) (Dialect, bool) {
	switch name {
	case "postgresql", "postgres":
		return PostgreSQL, true
	case "sqlserver", "mssql":
		return SQLServer, true
	default:
		return nil, false
	}
}
