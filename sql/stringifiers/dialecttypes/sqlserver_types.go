package dialecttypes

import "github.com/eddieafk/bifrostql/sql/ast"

// SQLServerSelectOptions represents SELECT options specific to SQL Server,
// mirroring PostgreSQLSelectOptions but swapping Postgres-only features
// (DISTINCT ON, FOR UPDATE) for their SQL Server equivalents (TOP, row
// locking hints).
type SQLServerSelectOptions struct {
	TableName  string
	TableAlias string

	Columns []string

	// Top, when set, emits "SELECT TOP (n)" instead of a paging clause.
	// Mutually exclusive with Offset/Fetch per SQL Server SELECT grammar.
	Top *int

	Joins []ast.JoinColumn

	Where []string

	GroupBy []string
	Having  []string

	OrderBy    []OrderByColumn
	NullsFirst *bool

	Offset string
	Fetch  string

	// LockHint renders as WITH (UPDLOCK, ROWLOCK) etc. immediately after
	// the table reference, SQL Server's analogue of Postgres's FOR UPDATE.
	LockHint string
}

// Validate mirrors PostgreSQLSelectOptions.Validate's contradiction checks,
// adapted to SQL Server's grammar (TOP vs OFFSET/FETCH, lock hints instead
// of FOR UPDATE).
func (o *SQLServerSelectOptions) Validate() []ValidationError {
	var errors []ValidationError

	if o.Top != nil && (o.Offset != "" || o.Fetch != "") {
		errors = append(errors, ValidationError{
			Field:   "Top/Offset",
			Message: "TOP and OFFSET/FETCH are mutually exclusive in a single SELECT",
		})
	}

	if (o.Offset != "" || o.Fetch != "") && len(o.OrderBy) == 0 {
		errors = append(errors, ValidationError{
			Field:   "Offset/OrderBy",
			Message: "OFFSET/FETCH requires an ORDER BY clause",
		})
	}

	if len(o.Having) > 0 && len(o.GroupBy) == 0 {
		errors = append(errors, ValidationError{
			Field:   "Having",
			Message: "HAVING clause requires GROUP BY",
		})
	}

	return errors
}
