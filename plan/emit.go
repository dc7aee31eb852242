package plan

import (
	"strings"

	"github.com/eddieafk/bifrostql/filter"
	"github.com/eddieafk/bifrostql/sql/dialect"
)

// SrcIDAlias is the column alias a join SELECT projects its parent-key value
// under, so the Row Graph can match a child row back to the parent row that
// produced it without knowing the join's real column name.
const SrcIDAlias = "src_id"

// Statement is one lowered SELECT: its join-name-chain Key (empty for the
// root), its SQL text, and its bound parameters in placeholder order.
type Statement struct {
	Key    string
	SQL    string
	Params []interface{}
}

// Emit lowers a TableSql forest into a flat, ordered batch of SELECTs: one
// per root table plus one per join, each keyed by its join-name chain so the
// Row Graph can reassemble the tree from the batch's results. The root's key
// is "" and each join's key is its ancestors' join names joined with ">".
// Every statement numbers its placeholders from 1, so each one runs as its
// own query; they are not concatenated into a single command. Replaces the teacher's one-ConvertToSelect-per-resolver-invocation model
// (graph/conversion.go) with a single ahead-of-time batch.
func Emit(d dialect.Dialect, roots []*TableSql) ([]Statement, error) {
	var out []Statement
	for _, root := range roots {
		if err := emitNode(d, root, "", &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func emitNode(d dialect.Dialect, t *TableSql, keyPrefix string, out *[]Statement) error {
	key := keyPrefix
	if t.ParentJoin != nil {
		if key != "" {
			key = key + ">" + t.ParentJoin.Name
		} else {
			key = t.ParentJoin.Name
		}
	}

	var sql string
	var params []interface{}
	var err error
	if t.ParentJoin == nil {
		sql, params, err = emitRoot(d, t)
	} else {
		sql, params, err = emitJoin(d, t)
	}
	if err != nil {
		return err
	}
	*out = append(*out, Statement{Key: key, SQL: sql, Params: params})

	for _, join := range t.Joins {
		if err := emitNode(d, join.ChildTable, key, out); err != nil {
			return err
		}
	}
	return nil
}

// fullColumns is the union of t's own projected columns and every one of its
// joins' parentColumn (needed as join keys by the child SELECTs), deduplicated.
func fullColumns(t *TableSql) []string {
	seen := make(map[string]bool, len(t.ColumnNames))
	out := make([]string, 0, len(t.ColumnNames))
	for _, c := range t.ColumnNames {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, j := range t.Joins {
		if !seen[j.ParentColumn] {
			seen[j.ParentColumn] = true
			out = append(out, j.ParentColumn)
		}
	}
	return out
}

// emitRoot builds the root SELECT template: a plain table scan with its own
// filter/sort/paging, no dependency on any other statement's results.
func emitRoot(d dialect.Dialect, t *TableSql) (string, []interface{}, error) {
	var params []interface{}
	newParam := func(v interface{}) string {
		params = append(params, v)
		return d.Placeholder(len(params))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	writeColumnList(&b, d, "", fullColumns(t))
	b.WriteString(" FROM ")
	b.WriteString(d.QuoteIdentifier(t.TableName))

	whereClause, err := buildWhereClause(d, "", t.Filter, newParam)
	if err != nil {
		return "", nil, err
	}
	if whereClause != "" {
		b.WriteString(" WHERE ")
		b.WriteString(whereClause)
	}

	writeOrderByAndPaging(&b, d, "", t.Sort, t.Limit, t.Offset)

	return b.String(), params, nil
}

// emitJoin builds the join SELECT template: a parent-key subquery (built
// recursively so ancestor filters are inherited), INNER JOIN'd against the
// child table.
//
//	SELECT a.JoinId AS src_id, b.<col>, …
//	FROM (<parent key SELECT, recursive>) a
//	INNER JOIN q(childTable) b ON a.JoinId = b.q(childColumn)
//	  [WHERE <child filter>] [ORDER BY …] [OFFSET/FETCH]
func emitJoin(d dialect.Dialect, t *TableSql) (string, []interface{}, error) {
	join := t.ParentJoin
	var params []interface{}
	newParam := func(v interface{}) string {
		params = append(params, v)
		return d.Placeholder(len(params))
	}

	parentKeySQL, err := buildParentKeySelect(d, join.ParentNode, join.ParentColumn, newParam)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT a.")
	b.WriteString("JoinId AS ")
	b.WriteString(SrcIDAlias)
	b.WriteString(", ")
	writeColumnList(&b, d, "b", fullColumns(t))
	b.WriteString(" FROM (")
	b.WriteString(parentKeySQL)
	b.WriteString(") a INNER JOIN ")
	b.WriteString(d.QuoteIdentifier(t.TableName))
	b.WriteString(" b ON a.JoinId = b.")
	b.WriteString(d.QuoteIdentifier(join.ChildColumn))

	whereClause, err := buildWhereClause(d, "b", t.Filter, newParam)
	if err != nil {
		return "", nil, err
	}
	if whereClause != "" {
		b.WriteString(" WHERE ")
		b.WriteString(whereClause)
	}

	writeOrderByAndPaging(&b, d, "b", t.Sort, t.Limit, t.Offset)

	return b.String(), params, nil
}

// buildParentKeySelect builds the "parent key SELECT" for a join: a distinct
// projection of projectColumn AS JoinId from node, transitively inner-joined
// through node's own ancestors (if any) so ancestor filters are inherited.
func buildParentKeySelect(d dialect.Dialect, node *TableSql, projectColumn string, newParam filter.ParamFunc) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT DISTINCT ")

	if node.ParentJoin == nil {
		b.WriteString(d.QuoteIdentifier(projectColumn))
		b.WriteString(" AS JoinId FROM ")
		b.WriteString(d.QuoteIdentifier(node.TableName))
	} else {
		ancestorSQL, err := buildParentKeySelect(d, node.ParentJoin.ParentNode, node.ParentJoin.ParentColumn, newParam)
		if err != nil {
			return "", err
		}
		b.WriteString(d.QuoteIdentifier(projectColumn))
		b.WriteString(" AS JoinId FROM ")
		b.WriteString(d.QuoteIdentifier(node.TableName))
		b.WriteString(" INNER JOIN (")
		b.WriteString(ancestorSQL)
		b.WriteString(") anc ON ")
		b.WriteString(d.QuoteIdentifier(node.TableName))
		b.WriteString(".")
		b.WriteString(d.QuoteIdentifier(node.ParentJoin.ChildColumn))
		b.WriteString(" = anc.JoinId")
	}

	whereClause, err := buildWhereClause(d, "", node.Filter, newParam)
	if err != nil {
		return "", err
	}
	if whereClause != "" {
		b.WriteString(" WHERE ")
		b.WriteString(whereClause)
	}
	return b.String(), nil
}

func writeColumnList(b *strings.Builder, d dialect.Dialect, alias string, columns []string) {
	if len(columns) == 0 {
		b.WriteString("*")
		return
	}
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		if alias != "" {
			b.WriteString(alias)
			b.WriteString(".")
		}
		b.WriteString(d.QuoteIdentifier(c))
	}
}

func buildWhereClause(d dialect.Dialect, alias string, filters []*TableFilter, newParam filter.ParamFunc) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		clause, err := filter.Compile(d, alias, f.ColumnName, filter.Operator(f.Operator), f.Value, newParam)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, " AND "), nil
}

// writeOrderByAndPaging appends ORDER BY and the dialect's paging clause.
// When the dialect requires an ORDER BY to page (SQL Server's OFFSET/FETCH)
// and no sort was requested, it falls back to "ORDER BY (SELECT NULL)" so
// paging stays legal without claiming an ordering guarantee the caller never
// asked for. An explicit zero offset is always emitted once paging applies.
func writeOrderByAndPaging(b *strings.Builder, d dialect.Dialect, alias string, sorts []Sort, limit, offset *int) {
	hasSort := len(sorts) > 0
	pagingApplies := limit != nil || offset != nil
	needsOrderBy := hasSort || (pagingApplies && d.Name() == "sqlserver")

	if needsOrderBy {
		b.WriteString(" ORDER BY ")
		if hasSort {
			for i, s := range sorts {
				if i > 0 {
					b.WriteString(", ")
				}
				if alias != "" {
					b.WriteString(alias)
					b.WriteString(".")
				}
				b.WriteString(d.QuoteIdentifier(s.Column))
				if s.Ascending {
					b.WriteString(" ASC")
				} else {
					b.WriteString(" DESC")
				}
			}
		} else {
			b.WriteString("(SELECT NULL)")
		}
	}

	if pagingApplies && offset == nil {
		zero := 0
		offset = &zero
	}
	if paging := d.PagingClause(limit, offset); paging != "" {
		b.WriteString(" ")
		b.WriteString(paging)
	}
}
