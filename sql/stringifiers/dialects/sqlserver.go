package dialects

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eddieafk/bifrostql/sql/ast"
	"github.com/eddieafk/bifrostql/sql/spec"
	"github.com/eddieafk/bifrostql/sql/stringifiers/dialecttypes"
)

type SQLServer struct{}

func (d SQLServer) Name() string { return "sqlserver" }
func (d SQLServer) QuoteIdentifier(identifier string) string {
	return "[" + d.EscapeIdentifier(identifier) + "]"
}
func (d SQLServer) QuoteString(value string) string {
	return `'` + d.EscapeString(value) + `'`
}
func (d SQLServer) Placeholder(n int) string {
	return "@p" + strconv.Itoa(n)
}
func (d SQLServer) SupportReturning() bool        { return true } // via OUTPUT
func (d SQLServer) SupportsUpsert() bool          { return true } // via MERGE
func (d SQLServer) SupportsOnConflict() bool      { return false }
func (d SQLServer) SupportsCTE() bool             { return true }
func (d SQLServer) SupportsRecursiveCTE() bool    { return true }
func (d SQLServer) SupportsWindowFunctions() bool { return true }
func (d SQLServer) SupportsJSON() bool            { return true }
func (d SQLServer) SupportsArray() bool           { return false }
func (d SQLServer) SupportsLiteralJoin() bool     { return true }
func (d SQLServer) SupportsDistinctOn() bool      { return false }
func (d SQLServer) SupportsLimitOffset() bool     { return true } // via OFFSET/FETCH
func (d SQLServer) SupportsNullsFirstLast() bool  { return false }
func (d SQLServer) SupportsForUpdate() bool       { return false } // row locks via table hints instead
func (d SQLServer) SupportsMaterializedCTE() bool { return false }
func (d SQLServer) SupportsFullOuterJoin() bool   { return true }

/*
* ========================================================================
*                BUILDERS
* ========================================================================
 */

// BuildSelect builds a SQL Server SELECT statement with validation.
func (d SQLServer) BuildSelect(opts dialecttypes.SQLServerSelectOptions) (string, []dialecttypes.ValidationError) {
	errors := opts.Validate()

	var sb strings.Builder

	sb.WriteString("SELECT ")

	if opts.Top != nil {
		sb.WriteString("TOP (")
		sb.WriteString(strconv.Itoa(*opts.Top))
		sb.WriteString(") ")
	}

	if len(opts.Columns) > 0 {
		sb.WriteString(strings.Join(opts.Columns, ", "))
	} else {
		sb.WriteString("*")
	}

	sb.WriteString("\nFROM ")
	sb.WriteString(opts.TableName)
	if opts.TableAlias != "" {
		sb.WriteString(" ")
		sb.WriteString(opts.TableAlias)
	}
	if opts.LockHint != "" {
		sb.WriteString(" WITH (")
		sb.WriteString(opts.LockHint)
		sb.WriteString(")")
	}

	for _, j := range opts.Joins {
		sb.WriteString("\n")
		sb.WriteString(d.FormatJoinType(j.JoinType))
		sb.WriteString(" ")
		sb.WriteString(j.TableName)
		if j.Alias != "" {
			sb.WriteString(" ")
			sb.WriteString(j.Alias)
		}
		if j.On != "" {
			sb.WriteString(" ON ")
			sb.WriteString(j.On)
		}
	}

	if len(opts.Where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(opts.Where, "\n  AND "))
	}

	if len(opts.GroupBy) > 0 {
		sb.WriteString("\nGROUP BY ")
		sb.WriteString(strings.Join(opts.GroupBy, ", "))
	}

	if len(opts.Having) > 0 {
		sb.WriteString("\nHAVING ")
		sb.WriteString(strings.Join(opts.Having, " AND "))
	}

	if len(opts.OrderBy) > 0 {
		sb.WriteString("\nORDER BY ")
		orderParts := make([]string, len(opts.OrderBy))
		for i, o := range opts.OrderBy {
			orderParts[i] = o.Column + " " + d.FormatOrderDirection(o.Direction)
		}
		sb.WriteString(strings.Join(orderParts, ", "))
	}

	// OFFSET/FETCH requires an ORDER BY; callers of Validate are expected to
	// have already surfaced that as a ValidationError, so this just emits.
	if opts.Offset != "" {
		sb.WriteString("\nOFFSET ")
		sb.WriteString(opts.Offset)
		sb.WriteString(" ROWS")
		if opts.Fetch != "" {
			sb.WriteString(" FETCH NEXT ")
			sb.WriteString(opts.Fetch)
			sb.WriteString(" ROWS ONLY")
		}
	}

	return sb.String(), errors
}

func (d SQLServer) outputClause(returning []string) string {
	if len(returning) == 0 {
		return ""
	}
	parts := make([]string, len(returning))
	for i, col := range returning {
		parts[i] = "inserted." + col
	}
	return "\nOUTPUT " + strings.Join(parts, ", ")
}

func (d SQLServer) InsertStatement(s spec.InsertSpec) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.QuoteIdentifier(s.TableName))
	if len(s.Columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(quoteAllSQLServer(d, s.Columns), ", "))
		sb.WriteString(")")
	}
	sb.WriteString(d.outputClause(s.Returning))
	sb.WriteString("\nVALUES (")
	sb.WriteString(strings.Join(s.Placeholders, ", "))
	sb.WriteString(")")
	return sb.String()
}

func (d SQLServer) UpdateStatement(s spec.UpdateSpec) string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(d.QuoteIdentifier(s.TableName))
	sb.WriteString("\nSET ")
	setParts := make([]string, len(s.SetColumns))
	for i, col := range s.SetColumns {
		setParts[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(col), s.SetPlaceholders[i])
	}
	sb.WriteString(strings.Join(setParts, ", "))

	if len(s.Returning) > 0 {
		sb.WriteString("\nOUTPUT ")
		parts := make([]string, len(s.Returning))
		for i, col := range s.Returning {
			parts[i] = "inserted." + col
		}
		sb.WriteString(strings.Join(parts, ", "))
	}

	sb.WriteString("\nWHERE ")
	sb.WriteString(d.QuoteIdentifier(s.WhereColumn))
	sb.WriteString(" = ")
	sb.WriteString(s.WherePlaceholder)
	return sb.String()
}

func (d SQLServer) DeleteStatement(s spec.DeleteSpec) string {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(d.QuoteIdentifier(s.TableName))
	sb.WriteString("\nWHERE ")
	sb.WriteString(d.QuoteIdentifier(s.WhereColumn))
	sb.WriteString(" = ")
	sb.WriteString(s.WherePlaceholder)
	return sb.String()
}

func quoteAllSQLServer(d SQLServer, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.QuoteIdentifier(n)
	}
	return out
}

/*
* ========================================================================
*                FORMATTERS
* ========================================================================
 */

func (d SQLServer) FormatLimitOffset(limit, offset ast.Expression) string {
	return ""
}

// PagingClause renders SQL Server's OFFSET/FETCH tail. SQL Server requires
// an OFFSET clause before FETCH can appear, so a nil offset with a non-nil
// limit emits "OFFSET 0 ROWS" to keep the FETCH clause legal.
func (d SQLServer) PagingClause(limit, offset *int) string {
	if limit == nil && offset == nil {
		return ""
	}
	var sb strings.Builder
	o := 0
	if offset != nil {
		o = *offset
	}
	sb.WriteString(" OFFSET ")
	sb.WriteString(strconv.Itoa(o))
	sb.WriteString(" ROWS")
	if limit != nil {
		sb.WriteString(" FETCH NEXT ")
		sb.WriteString(strconv.Itoa(*limit))
		sb.WriteString(" ROWS ONLY")
	}
	return sb.String()
}

func (d SQLServer) LikeOperator(caseInsensitive bool) string {
	// SQL Server's default collation is already case-insensitive; there is
	// no ILIKE equivalent, so both cases render the same operator.
	return "LIKE"
}

func (d SQLServer) IdentitySelect() string {
	return "SELECT SCOPE_IDENTITY()"
}

func (d SQLServer) IsIdentityColumnDefault(columnDefault string) bool {
	// SQL Server never expresses IDENTITY via a column default; the Schema
	// Reader must use IdentityPropertyQuery for this dialect instead.
	return false
}

func (d SQLServer) IdentityPropertyQuery(tableName, columnName string) string {
	return fmt.Sprintf(
		"SELECT COLUMNPROPERTY(OBJECT_ID('%s'), '%s', 'IsIdentity')",
		d.EscapeString(tableName), d.EscapeString(columnName),
	)
}

func (d SQLServer) FormatJoinType(joinType ast.JoinType) string {
	switch joinType {
	case ast.JoinInner:
		return "INNER JOIN"
	case ast.JoinLeft:
		return "LEFT JOIN"
	case ast.JoinRight:
		return "RIGHT JOIN"
	case ast.JoinFull:
		return "FULL JOIN"
	case ast.JoinCross:
		return "CROSS JOIN"
	case ast.JoinLateral:
		return "CROSS APPLY"
	case ast.JoinLeftLateral:
		return "OUTER APPLY"
	default:
		return ""
	}
}

func (d SQLServer) FormatOrderDirection(dir ast.OrderDirection) string {
	if dir == ast.OrderAsc {
		return "ASC"
	}
	return "DESC"
}

func (d SQLServer) FormatNullsOrder(nullsFirst *bool) string {
	// SQL Server has no NULLS FIRST/LAST syntax; nulls sort low always.
	return ""
}

func (d SQLServer) FormatBinaryOp(op ast.BinaryOp) string {
	switch op {
	case ast.OpEq:
		return "="
	case ast.OpNeq:
		return "<>"
	case ast.OpLt:
		return "<"
	case ast.OpLte:
		return "<="
	case ast.OpGt:
		return ">"
	case ast.OpGte:
		return ">="
	case ast.OpAnd:
		return "AND"
	case ast.OpOr:
		return "OR"
	case ast.OpAdd:
		return "+"
	case ast.OpSub:
		return "-"
	case ast.OpMul:
		return "*"
	case ast.OpDiv:
		return "/"
	case ast.OpMod:
		return "%"
	case ast.OpLike:
		return "LIKE"
	case ast.OpILike:
		return "LIKE"
	case ast.OpNotLike:
		return "NOT LIKE"
	case ast.OpNotILike:
		return "NOT LIKE"
	case ast.OpSimilarTo:
		return "LIKE"
	case ast.OpRegex:
		return "LIKE"
	case ast.OpRegexI:
		return "LIKE"
	case ast.OpJSONArrow:
		return "->"
	case ast.OpJSONArrowText:
		return "->>"
	default:
		return ""
	}
}

func (d SQLServer) FormatUnaryOp(op ast.UnaryOp, prefix bool) string {
	switch op {
	case ast.OpNot:
		return "NOT"
	case ast.OpNeg:
		return "-"
	case ast.OpIsNull:
		return "IS NULL"
	case ast.OpIsNotNull:
		return "IS NOT NULL"
	case ast.OpIsTrue:
		return "= 1"
	case ast.OpIsFalse:
		return "= 0"
	case ast.OpExists:
		return "EXISTS"
	case ast.OpNotExists:
		return "NOT EXISTS"
	default:
		return ""
	}
}

func (d SQLServer) FormatBoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d SQLServer) FormatCast(typeName string) string {
	return typeName
}

func (d SQLServer) EscapeString(value string) string {
	return strings.ReplaceAll(value, `'`, `''`)
}

func (d SQLServer) EscapeIdentifier(identifier string) string {
	return strings.ReplaceAll(identifier, `]`, `]]`)
}
