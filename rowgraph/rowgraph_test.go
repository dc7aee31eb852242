package rowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddieafk/bifrostql/plan"
)

// TestGraph_Root_MatchesEmitRootKey guards the fix for a key mismatch between
// plan.Emit (which always keys the root statement "") and Graph.Root, which
// previously looked up node.Key() ("<alias>:<tableName>") instead.
func TestGraph_Root_MatchesEmitRootKey(t *testing.T) {
	root := &plan.TableSql{
		TableName:   "users",
		Alias:       "u",
		ColumnNames: []string{"id", "name"},
	}

	g := NewGraph(
		map[string][]string{"": {"id", "name"}},
		map[string][][]interface{}{"": {{1, "alice"}, {2, "bob"}}},
	)

	cursor, err := g.Root(root)
	require.NoError(t, err)
	assert.Equal(t, 2, cursor.Len())

	row := cursor.Row(0)
	v, err := row.Get("id")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestGraph_Root_MissingTable_Errors(t *testing.T) {
	g := NewGraph(map[string][]string{"other": {"id"}}, map[string][][]interface{}{"other": {{1}}})
	_, err := g.Root(&plan.TableSql{TableName: "users"})
	assert.Error(t, err)
}

func TestRow_Get_JoinMulti_ReturnsCursorOfMatches(t *testing.T) {
	childTable := &plan.TableSql{TableName: "posts", ColumnNames: []string{"id", "title"}}
	root := &plan.TableSql{
		TableName:   "users",
		ColumnNames: []string{"id"},
	}
	join := &plan.TableJoin{
		Name:         "_join_posts+posts",
		Alias:        "_join_posts",
		ParentColumn: "id",
		ChildColumn:  "user_id",
		Kind:         plan.JoinMulti,
		ChildTable:   childTable,
	}
	root.Joins = []*plan.TableJoin{join}
	childTable.ParentJoin = join

	g := NewGraph(
		map[string][]string{
			"":                  {"id"},
			"_join_posts+posts": {plan.SrcIDAlias, "id", "title"},
		},
		map[string][][]interface{}{
			"": {{1}, {2}},
			"_join_posts+posts": {
				{1, 10, "hello"},
				{1, 11, "world"},
				{2, 12, "other"},
			},
		},
	)

	cursor, err := g.Root(root)
	require.NoError(t, err)

	row := cursor.Row(0)
	v, err := row.Get("_join_posts")
	require.NoError(t, err)
	childCursor, ok := v.(*Cursor)
	require.True(t, ok)
	assert.Equal(t, 2, childCursor.Len())

	childRow := childCursor.Row(0)
	title, err := childRow.Get("title")
	require.NoError(t, err)
	assert.Equal(t, "hello", title)
}

func TestRow_Get_JoinMulti_NilParentKey_ReturnsEmptyCursor(t *testing.T) {
	childTable := &plan.TableSql{TableName: "posts", ColumnNames: []string{"id"}}
	root := &plan.TableSql{TableName: "users", ColumnNames: []string{"id"}}
	join := &plan.TableJoin{
		Name: "_join_posts+posts", Alias: "_join_posts",
		ParentColumn: "id", ChildColumn: "user_id",
		Kind: plan.JoinMulti, ChildTable: childTable,
	}
	root.Joins = []*plan.TableJoin{join}

	g := NewGraph(
		map[string][]string{"": {"id"}, "_join_posts+posts": {plan.SrcIDAlias, "id"}},
		map[string][][]interface{}{"": {{nil}}, "_join_posts+posts": {}},
	)

	cursor, _ := g.Root(root)
	row := cursor.Row(0)
	v, err := row.Get("_join_posts")
	require.NoError(t, err)
	childCursor := v.(*Cursor)
	assert.Equal(t, 0, childCursor.Len())
}

func TestRow_Get_UnknownField_Errors(t *testing.T) {
	root := &plan.TableSql{TableName: "users", ColumnNames: []string{"id"}}
	g := NewGraph(map[string][]string{"": {"id"}}, map[string][][]interface{}{"": {{1}}})
	cursor, _ := g.Root(root)
	_, err := cursor.Row(0).Get("bogus")
	assert.Error(t, err)
}
