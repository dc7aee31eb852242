// Package spec holds dialect-neutral statement specs consumed by both
// built-in Dialect implementations (PostgreSQL, SQL Server) so the mutation
// compiler never branches on dialect itself.
package spec

// InsertSpec describes a single-row INSERT.
type InsertSpec struct {
	TableName    string
	Columns      []string
	Placeholders []string // one per column, already formatted by the dialect
	Returning    []string // identity/pk columns the caller wants back, if the dialect supports RETURNING/OUTPUT
}

// UpdateSpec describes an UPDATE by a single equality predicate (the primary key).
type UpdateSpec struct {
	TableName        string
	SetColumns       []string
	SetPlaceholders  []string
	WhereColumn      string
	WherePlaceholder string
	Returning        []string
}

// DeleteSpec describes a DELETE by a single equality predicate (the primary key).
type DeleteSpec struct {
	TableName        string
	WhereColumn      string
	WherePlaceholder string
}
