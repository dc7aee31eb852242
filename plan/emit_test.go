package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddieafk/bifrostql/sql/dialect"
)

func TestEmit_Root_SimpleSelect(t *testing.T) {
	root := &TableSql{
		TableName:   "users",
		ColumnNames: []string{"id", "name"},
	}

	statements, err := Emit(dialect.PostgreSQL, []*TableSql{root})
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Equal(t, "", stmt.Key)
	assert.Equal(t, `SELECT "id", "name" FROM "users"`, stmt.SQL)
	assert.Empty(t, stmt.Params)
}

func TestEmit_Root_WithFilterAndSort(t *testing.T) {
	limit := 10
	offset := 5
	root := &TableSql{
		TableName:   "users",
		ColumnNames: []string{"id"},
		Filter: []*TableFilter{
			{ColumnName: "active", Operator: "_eq", Value: true},
		},
		Sort:   []Sort{{Column: "id", Ascending: true}},
		Limit:  &limit,
		Offset: &offset,
	}

	statements, err := Emit(dialect.PostgreSQL, []*TableSql{root})
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Contains(t, stmt.SQL, `WHERE "active" = $1`)
	assert.Contains(t, stmt.SQL, `ORDER BY "id" ASC`)
	assert.Contains(t, stmt.SQL, "LIMIT")
	assert.Equal(t, []interface{}{true}, stmt.Params)
}

func TestEmit_Root_NoColumns_SelectsStar(t *testing.T) {
	root := &TableSql{TableName: "users"}

	statements, err := Emit(dialect.PostgreSQL, []*TableSql{root})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users"`, statements[0].SQL)
}

func TestEmit_Join_ProducesTwoStatementsWithChainedKey(t *testing.T) {
	child := &TableSql{
		TableName:   "posts",
		ColumnNames: []string{"id", "title"},
	}
	root := &TableSql{
		TableName:   "users",
		ColumnNames: []string{"id"},
	}
	join := &TableJoin{
		Name:         "posts+posts",
		ParentColumn: "id",
		ChildColumn:  "user_id",
		Kind:         JoinMulti,
		ParentNode:   root,
		ChildTable:   child,
	}
	root.Joins = []*TableJoin{join}
	child.ParentJoin = join

	statements, err := Emit(dialect.PostgreSQL, []*TableSql{root})
	require.NoError(t, err)
	require.Len(t, statements, 2)

	assert.Equal(t, "", statements[0].Key)
	assert.Contains(t, statements[0].SQL, `FROM "users"`)

	assert.Equal(t, "posts+posts", statements[1].Key)
	assert.Contains(t, statements[1].SQL, "src_id")
	assert.Contains(t, statements[1].SQL, `INNER JOIN "posts" b ON a.JoinId = b."user_id"`)
	assert.Contains(t, statements[1].SQL, `b."id"`)
}

func TestEmit_SQLServer_RequiresOrderByForPaging(t *testing.T) {
	limit := 10
	root := &TableSql{
		TableName:   "users",
		ColumnNames: []string{"id"},
		Limit:       &limit,
	}

	statements, err := Emit(dialect.SQLServer, []*TableSql{root})
	require.NoError(t, err)
	assert.Contains(t, statements[0].SQL, "ORDER BY (SELECT NULL)")
	assert.Contains(t, statements[0].SQL, "OFFSET")
	assert.Contains(t, statements[0].SQL, "FETCH")
}

func TestEmit_InvalidFilterOperator_ReturnsError(t *testing.T) {
	root := &TableSql{
		TableName: "users",
		Filter: []*TableFilter{
			{ColumnName: "id", Operator: "_bogus", Value: 1},
		},
	}

	_, err := Emit(dialect.PostgreSQL, []*TableSql{root})
	assert.Error(t, err)
}
