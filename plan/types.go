// Package plan builds a forest of TableSql plan trees from a collected
// GraphQL selection set, replacing the teacher's graph/conversion.go
// SQLConverter (which built a single flat SELECT per resolver invocation)
// with a join-aware plan the SQL Emitter lowers into a batch of SELECTs.
package plan

// JoinKind distinguishes a "_join_" (list) field from a "_single_" field.
type JoinKind int

const (
	JoinMulti JoinKind = iota
	JoinSingle
)

// Sort is one "col"/"col asc"/"col desc" token from a sort argument.
type Sort struct {
	Column    string
	Ascending bool
}

// TableFilter is a single (column, operator, value) triple, both the shape
// the GraphQL filter argument is parsed into and the input handed to the
// Filter Compiler.
type TableFilter struct {
	ColumnName string
	Operator   string
	Value      interface{}
}

// TableJoin is one edge in the plan tree connecting a parent TableSql to a
// child TableSql. JoinName is "<alias|name>+<name>", the key used
// consistently across SQL emission and Row Graph lookups.
type TableJoin struct {
	Name         string
	Alias        string
	ParentColumn string
	ChildColumn  string
	Kind         JoinKind
	ParentTable  string
	ParentNode   *TableSql // back-reference only; non-owning, used by the SQL Emitter to walk the ancestor chain
	ChildTable   *TableSql
}

// JoinName computes "<alias|name>+<name>" for a join whose owning field
// response-key is fieldKey and whose child table name is childTable.
func JoinName(fieldKey, childTable string) string {
	return fieldKey + "+" + childTable
}

// FragmentSpread records a fragment spread encountered on a TableSql.
type FragmentSpread struct {
	FragmentName string
}

// TableSql is one node of the plan forest: a single table reference with
// its own projected columns, child joins, and optional filter/sort/paging.
// Builder never sets IsFragment or FragmentSpreads: fragments are already
// flattened into the selection by graph.FieldCollector before Build runs.
type TableSql struct {
	TableName   string
	Alias       string
	ParentJoin  *TableJoin // back-reference only; non-owning
	ColumnNames []string
	Joins       []*TableJoin
	Filter      []*TableFilter
	Sort        []Sort
	Limit       *int
	Offset      *int

	IsFragment      bool
	FragmentSpreads []FragmentSpread

	fragmentDefs map[string]*TableSql
}

// Key is the plan node's "<alias>:<tableName>" identity.
func (t *TableSql) Key() string {
	return t.Alias + ":" + t.TableName
}

// AddColumn appends a projected column if it isn't already present.
func (t *TableSql) AddColumn(name string) {
	for _, c := range t.ColumnNames {
		if c == name {
			return
		}
	}
	t.ColumnNames = append(t.ColumnNames, name)
}
