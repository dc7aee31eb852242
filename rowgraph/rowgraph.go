// Package rowgraph materializes the batch of result sets the SQL Emitter's
// statements produce into a keyed, join-aware cursor: GraphQL field
// resolvers read scalar and joined values straight out of it, with no
// further database round-trip. There is no close teacher analogue — the
// teacher (graph/executor.go) resolves one field at a time against a live
// *sql.Rows per call; this batches every table's rows up front and indexes
// them by the same join-name-chain keys the SQL Emitter produced.
package rowgraph

import (
	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/plan"
)

// table is one materialized result set: its column name -> position index,
// its raw rows, and (for every table reached via a join) an index from the
// src_id value to the row positions carrying it.
type table struct {
	columnIndex map[string]int
	rows        [][]interface{}
	bySrcID     map[interface{}][]int
}

func newTable(columns []string, rows [][]interface{}) *table {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	t := &table{columnIndex: idx, rows: rows}
	if srcCol, ok := idx[plan.SrcIDAlias]; ok {
		t.bySrcID = make(map[interface{}][]int)
		for i, row := range rows {
			key := row[srcCol]
			t.bySrcID[key] = append(t.bySrcID[key], i)
		}
	}
	return t
}

// Graph is the full materialized batch: one table per join-name-chain key
// the SQL Emitter produced, immutable once built.
type Graph struct {
	tables map[string]*table
}

// NewGraph builds a Graph from the batch's raw results. columns and rows are
// keyed by the same chain key plan.Emit assigned to each Statement.
func NewGraph(columns map[string][]string, rows map[string][][]interface{}) *Graph {
	g := &Graph{tables: make(map[string]*table, len(columns))}
	for key, cols := range columns {
		g.tables[key] = newTable(cols, rows[key])
	}
	return g
}

// Root returns a Cursor over the root plan node's result set. The root
// statement plan.Emit produces is always keyed "" (emitNode's keyPrefix
// starts empty and a root node carries no ParentJoin to append to it), so
// the root lookup ignores node.Key() and goes straight at that empty key.
func (g *Graph) Root(node *plan.TableSql) (*Cursor, error) {
	const key = ""
	t, ok := g.tables[key]
	if !ok {
		return nil, errs.New(errs.CodeJoinNotFound, "row graph: missing root table")
	}
	return &Cursor{graph: g, node: node, key: key, table: t}, nil
}

// Cursor scopes a node's materialized rows against the plan node that
// produced them, so Row.Get can resolve a join field's child table key
// without the caller threading the chain key through by hand.
type Cursor struct {
	graph *Graph
	node  *plan.TableSql
	key   string
	table *table
	rows  []int // indices into table.rows this cursor is restricted to; nil means all
}

// Node returns the plan node this cursor's rows were produced for, so a
// caller walking the graph generically (without knowing field names ahead
// of time, e.g. engine's materializeRow) can read which columns and joins
// to expect.
func (c *Cursor) Node() *plan.TableSql { return c.node }

// Len returns the number of rows this cursor iterates.
func (c *Cursor) Len() int {
	if c.rows != nil {
		return len(c.rows)
	}
	return len(c.table.rows)
}

// Row returns the i'th row in this cursor's scope.
func (c *Cursor) Row(i int) *Row {
	idx := i
	if c.rows != nil {
		idx = c.rows[i]
	}
	return &Row{cursor: c, idx: idx}
}

// Row is a single materialized row, scoped to the Cursor (and therefore the
// plan node) it came from.
type Row struct {
	cursor *Cursor
	idx    int
}

// Node returns the plan node this row belongs to, mirroring Cursor.Node.
func (r *Row) Node() *plan.TableSql { return r.cursor.node }

// Get resolves fieldName against this row. A scalar column returns its raw
// value. A "_join_"/"_single_" field consults the corresponding join table by
// its full join-name key and returns, respectively, a *Cursor (possibly
// empty) or a *Row (possibly nil).
func (r *Row) Get(fieldName string) (interface{}, error) {
	if colIdx, ok := r.cursor.table.columnIndex[fieldName]; ok {
		return r.cursor.table.rows[r.idx][colIdx], nil
	}

	join := findJoin(r.cursor.node, fieldName)
	if join == nil {
		return nil, errs.New(errs.CodeValidationError, "row graph: unknown field "+fieldName)
	}

	parentColIdx, ok := r.cursor.table.columnIndex[join.ParentColumn]
	if !ok {
		return nil, errs.New(errs.CodeInternal, "row graph: join key column "+join.ParentColumn+" not projected")
	}
	parentKeyVal := r.cursor.table.rows[r.idx][parentColIdx]

	childKey := childChainKey(r.cursor.key, join.Name)
	childTable, ok := r.cursor.graph.tables[childKey]
	if !ok {
		return nil, errs.New(errs.CodeJoinNotFound, "row graph: missing join table "+childKey)
	}

	if parentKeyVal == nil {
		if join.Kind == plan.JoinMulti {
			return &Cursor{graph: r.cursor.graph, node: join.ChildTable, key: childKey, table: childTable, rows: []int{}}, nil
		}
		return (*Row)(nil), nil
	}

	matches := childTable.bySrcID[parentKeyVal]

	if join.Kind == plan.JoinSingle {
		if len(matches) == 0 {
			return (*Row)(nil), nil
		}
		return &Row{cursor: &Cursor{graph: r.cursor.graph, node: join.ChildTable, key: childKey, table: childTable}, idx: matches[0]}, nil
	}

	return &Cursor{graph: r.cursor.graph, node: join.ChildTable, key: childKey, table: childTable, rows: matches}, nil
}

func childChainKey(parentKey, joinName string) string {
	if parentKey == "" {
		return joinName
	}
	return parentKey + ">" + joinName
}

func findJoin(node *plan.TableSql, fieldName string) *plan.TableJoin {
	for _, j := range node.Joins {
		if j.Alias == fieldName {
			return j
		}
	}
	return nil
}
