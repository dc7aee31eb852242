package engine

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddieafk/bifrostql/plan"
	"github.com/eddieafk/bifrostql/rowgraph"
	"github.com/eddieafk/bifrostql/schema"
	"github.com/eddieafk/bifrostql/sql/dialect"
)

func usersModel() *schema.Model {
	return schema.NewModel([]*schema.Table{
		{
			DBName: "users",
			Columns: []*schema.Column{
				{Name: "id", DataType: schema.DataTypeInt, IsPrimaryKey: true, IsIdentity: true},
				{Name: "name", DataType: schema.DataTypeVarchar, IsNullable: true},
			},
			Metadata: make(map[string]string),
		},
	})
}

// TestMaterializeCursor_FlattensScalarAndJoinFields grounds the engine's
// output shape against rowgraph's own root+join fixture (rowgraph_test.go),
// confirming materializeRow/materializeCursor turn a Cursor into the plain
// map[string]interface{} values graph/executor.go's completeValue expects.
func TestMaterializeCursor_FlattensScalarAndJoinFields(t *testing.T) {
	childTable := &plan.TableSql{TableName: "posts", ColumnNames: []string{"id", "title"}}
	root := &plan.TableSql{TableName: "users", ColumnNames: []string{"id", "name"}}
	join := &plan.TableJoin{
		Name: "_join_posts+posts", Alias: "_join_posts",
		ParentColumn: "id", ChildColumn: "user_id",
		Kind: plan.JoinMulti, ChildTable: childTable,
	}
	root.Joins = []*plan.TableJoin{join}
	childTable.ParentJoin = join

	g := rowgraph.NewGraph(
		map[string][]string{
			"":                  {"id", "name"},
			"_join_posts+posts": {plan.SrcIDAlias, "id", "title"},
		},
		map[string][][]interface{}{
			"": {{1, "alice"}},
			"_join_posts+posts": {
				{1, 10, "hello"},
				{1, 11, "world"},
			},
		},
	)

	cursor, err := g.Root(root)
	require.NoError(t, err)

	out, err := materializeCursor(cursor)
	require.NoError(t, err)
	require.Len(t, out, 1)

	row, ok := out[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, row["id"])
	assert.Equal(t, "alice", row["name"])

	joined, ok := row["_join_posts"].([]interface{})
	require.True(t, ok)
	require.Len(t, joined, 2)
	child, ok := joined[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "hello", child["title"])
}

func TestValuesArg_MissingOrWrongType_Errors(t *testing.T) {
	_, err := valuesArg(map[string]interface{}{})
	assert.Error(t, err)

	_, err = valuesArg(map[string]interface{}{"values": "not-an-object"})
	assert.Error(t, err)

	v, err := valuesArg(map[string]interface{}{"values": map[string]interface{}{"name": "alice"}})
	require.NoError(t, err)
	assert.Equal(t, "alice", v["name"])
}

func TestInsertResolver_ReturnsNewID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	e := New(usersModel(), db, dialect.PostgreSQL)
	resolver := e.insertResolver("users")

	out, err := resolver(context.Background(), map[string]interface{}{
		"values": map[string]interface{}{"name": "bob"},
	})
	require.NoError(t, err)
	result, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 5, result["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteResolver_MissingID_Errors(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := New(usersModel(), db, dialect.PostgreSQL)
	_, err = e.deleteResolver("users")(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestBatchResolver_UnknownAction_Errors(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := New(usersModel(), db, dialect.PostgreSQL)
	_, err = e.batchResolver("users")(context.Background(), map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"action": "replicate"},
		},
	})
	assert.Error(t, err)
}
