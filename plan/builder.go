package plan

import (
	"fmt"
	"strings"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/graph"
	"github.com/eddieafk/bifrostql/schema"
)

// SinkKind tags where a resolved argument value is being written into the
// plan tree, mirroring the teacher's closure-carrying setter stack in
// graph/conversion.go's processArguments, but dispatching over already
// resolved Go values (graph.FieldCollector.evaluateValue has already turned
// the raw AST into maps/slices/scalars by the time the Builder sees them)
// instead of parsing *ast.Value nodes itself.
type SinkKind int

const (
	SinkRootFilter SinkKind = iota
	SinkObjectField
	SinkListElement
)

// ValueSink identifies the destination of one resolved value during filter
// argument parsing.
type ValueSink struct {
	Kind  SinkKind
	Field string // set when Kind == SinkObjectField
}

func rootFilterSink() ValueSink { return ValueSink{Kind: SinkRootFilter} }

const (
	joinMultiPrefix  = "_join_"
	joinSinglePrefix = "_single_"
)

// Builder walks an already-collected GraphQL selection set into a forest of
// TableSql plan trees, replacing the teacher's graph/conversion.go
// SQLConverter.ConvertToSelect (one flat SELECT per resolver invocation)
// with a join-aware plan the SQL Emitter lowers into one batch of SELECTs.
//
// Builder reuses graph.FieldCollector/CollectFields as its AST-walking
// substrate: fragments are already flattened and argument values already
// resolved to plain Go values (evaluateValue) by the time a *graph.SelectionSet
// reaches Build, so the Builder itself never touches *ast.Value.
type Builder struct {
	model *schema.Model
}

// NewBuilder builds a Builder against the introspected schema Model, used to
// resolve a join field's default parent/child columns when its "on"
// argument is absent.
func NewBuilder(model *schema.Model) *Builder {
	return &Builder{model: model}
}

// Build turns every root field of a collected selection set into its own
// TableSql plan tree.
func (b *Builder) Build(selection *graph.SelectionSet) ([]*TableSql, error) {
	if selection == nil {
		return nil, nil
	}
	trees := make([]*TableSql, 0, len(selection.Fields))
	for _, field := range selection.Fields {
		tree, err := b.buildTable(field, stripJoinPrefix(field.Name), nil)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

// BuildOne builds a single TableSql tree for one root field. Unlike Build,
// which walks a whole top-level selection set, this is the entrypoint a
// per-field GraphQL resolver uses: by the time a root resolver runs it only
// has its own field's arguments and nested selection (via
// graph.GetResolveInfo), never its siblings.
func (b *Builder) BuildOne(field *graph.SelectedField) (*TableSql, error) {
	return b.buildTable(field, stripJoinPrefix(field.Name), nil)
}

// buildTable builds one TableSql for field (tableName already stripped of
// any "_join_"/"_single_" prefix) and recurses into its nested join fields.
func (b *Builder) buildTable(field *graph.SelectedField, tableName string, parentJoin *TableJoin) (*TableSql, error) {
	ts := &TableSql{
		TableName:  tableName,
		Alias:      field.GetName(),
		ParentJoin: parentJoin,
	}

	if field.HasSelection() {
		for _, sub := range field.Selections.Fields {
			kind, isJoin := joinKindOf(sub.Name)
			if !isJoin {
				ts.AddColumn(sub.Name)
				continue
			}

			childTableName := stripJoinPrefix(sub.Name)
			join := &TableJoin{
				Name:        JoinName(sub.GetName(), childTableName),
				Alias:       sub.GetName(),
				Kind:        kind,
				ParentTable: tableName,
				ParentNode:  ts,
			}

			if err := b.resolveJoinColumns(join, tableName, childTableName, sub.Arguments); err != nil {
				return nil, err
			}

			child, err := b.buildTable(sub, childTableName, join)
			if err != nil {
				return nil, err
			}
			join.ChildTable = child
			ts.Joins = append(ts.Joins, join)
		}
	}

	if err := b.applyArguments(ts, field.Arguments); err != nil {
		return nil, err
	}

	return ts, nil
}

// resolveJoinColumns sets join.ParentColumn/ChildColumn from the "on"
// argument override, falling back to the Model's inferred foreign-key edge.
func (b *Builder) resolveJoinColumns(join *TableJoin, parentTable, childTable string, args map[string]interface{}) error {
	if raw, ok := args["on"]; ok {
		pair, ok := raw.([]interface{})
		if !ok || len(pair) != 2 {
			return errs.ValidationError(fmt.Sprintf("join %q: \"on\" must be a 2-element list", join.Name))
		}
		parentCol, ok1 := pair[0].(string)
		childCol, ok2 := pair[1].(string)
		if !ok1 || !ok2 {
			return errs.ValidationError(fmt.Sprintf("join %q: \"on\" elements must be strings", join.Name))
		}
		join.ParentColumn = parentCol
		join.ChildColumn = childCol
		return nil
	}

	if b.model == nil {
		return errs.ValidationError(fmt.Sprintf("join %q: no \"on\" argument and no schema model to infer one", join.Name))
	}
	parent, ok := b.model.GetTableByDbName(parentTable)
	if !ok {
		parent, ok = b.model.GetTableByGraphQlName(parentTable)
	}
	if !ok {
		return errs.NotFound(fmt.Sprintf("join %q: unknown parent table %q", join.Name, parentTable))
	}
	for _, edge := range b.model.JoinEdgesFrom(parent) {
		if edge.ChildTable == childTable {
			join.ParentColumn = edge.ParentColumn
			join.ChildColumn = edge.ChildColumn
			return nil
		}
	}
	return errs.NotFound(fmt.Sprintf("join %q: no foreign key edge from %q to %q", join.Name, parentTable, childTable))
}

// applyArguments parses the filter/sort/limit/offset arguments into ts.
func (b *Builder) applyArguments(ts *TableSql, args map[string]interface{}) error {
	if raw, ok := args["filter"]; ok {
		filters, err := parseFilterArg(raw, rootFilterSink())
		if err != nil {
			return err
		}
		ts.Filter = filters
	}

	if raw, ok := args["sort"]; ok {
		sorts, err := parseSortArg(raw)
		if err != nil {
			return err
		}
		ts.Sort = sorts
	}

	if raw, ok := args["limit"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return errs.ValidationError("limit: " + err.Error())
		}
		if n < 0 {
			return errs.ValidationError("limit: must be >= 0")
		}
		ts.Limit = &n
	}

	if raw, ok := args["offset"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return errs.ValidationError("offset: " + err.Error())
		}
		if n < 0 {
			return errs.ValidationError("offset: must be >= 0")
		}
		ts.Offset = &n
	}

	return nil
}

// parseFilterArg reads a resolved filter argument value: an object whose
// outer key is a column name and inner key is an operator. Only one
// column+operator pair per filter argument occurrence is captured —
// additional entries are ignored, matching the source's documented
// first-take semantics (spec §9 open question; reproduced rather than
// AND-combined). Go map iteration order is unspecified and the value has
// already passed through graph.FieldCollector.evaluateValue's ObjectValue
// handling by the time it reaches here, so "first" means whichever entry a
// single map range yields first, not necessarily the one written first in
// the query text.
func parseFilterArg(raw interface{}, _ ValueSink) ([]*TableFilter, error) {
	outer, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errs.ValidationError("filter argument must be an object")
	}

	for column, val := range outer {
		ops, ok := val.(map[string]interface{})
		if !ok {
			return nil, errs.ValidationError(fmt.Sprintf("filter field %q must be an object of operators", column))
		}
		for op, opVal := range ops {
			return []*TableFilter{{ColumnName: column, Operator: op, Value: opVal}}, nil
		}
		return nil, nil
	}
	return nil, nil
}

// parseSortArg parses a resolved sort argument: a list of "col" or
// "col desc"/"col asc" tokens.
func parseSortArg(raw interface{}) ([]Sort, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errs.ValidationError("sort argument must be a list")
	}
	out := make([]Sort, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errs.ValidationError("sort elements must be strings")
		}
		parts := strings.Fields(s)
		sort := Sort{Column: parts[0], Ascending: true}
		if len(parts) > 1 && strings.EqualFold(parts[1], "desc") {
			sort.Ascending = false
		}
		out = append(out, sort)
	}
	return out, nil
}

func toInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", raw)
	}
}

// joinKindOf reports whether name is a "_join_"/"_single_" nested field and
// which JoinKind it denotes.
func joinKindOf(name string) (JoinKind, bool) {
	switch {
	case strings.HasPrefix(name, joinMultiPrefix):
		return JoinMulti, true
	case strings.HasPrefix(name, joinSinglePrefix):
		return JoinSingle, true
	default:
		return 0, false
	}
}

func stripJoinPrefix(name string) string {
	if strings.HasPrefix(name, joinMultiPrefix) {
		return strings.TrimPrefix(name, joinMultiPrefix)
	}
	if strings.HasPrefix(name, joinSinglePrefix) {
		return strings.TrimPrefix(name, joinSinglePrefix)
	}
	return name
}
