package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTableModel() *Model {
	return NewModel([]*Table{
		{
			DBName: "users",
			Columns: []*Column{
				{Name: "id", DataType: DataTypeInt, IsPrimaryKey: true, IsIdentity: true},
				{Name: "name", DataType: DataTypeVarchar, IsNullable: true},
			},
			JoinEdges: []*JoinEdge{
				{ParentTable: "users", ParentColumn: "id", ChildTable: "posts", ChildColumn: "user_id"},
			},
			Metadata: make(map[string]string),
		},
		{
			DBName: "posts",
			Columns: []*Column{
				{Name: "id", DataType: DataTypeInt, IsPrimaryKey: true, IsIdentity: true},
				{Name: "user_id", DataType: DataTypeInt},
				{Name: "title", DataType: DataTypeVarchar, IsNullable: true},
			},
			Metadata: make(map[string]string),
		},
		{
			DBName:   "_migrations",
			Columns:  []*Column{{Name: "id", DataType: DataTypeInt, IsPrimaryKey: true}},
			Metadata: make(map[string]string),
		},
	})
}

func TestBuildSDL_EmitsObjectTypesWithJoinFields(t *testing.T) {
	sdl := BuildSDL(twoTableModel())

	assert.Contains(t, sdl, "type users {")
	assert.Contains(t, sdl, "id: Int!")
	assert.Contains(t, sdl, "name: String\n")
	assert.Contains(t, sdl, "_join_posts(filter: JSON, sort: [String!], limit: Int, offset: Int, on: [String!]): [posts!]!")
	assert.Contains(t, sdl, "_single_posts(filter: JSON, sort: [String!], limit: Int, offset: Int, on: [String!]): posts")
}

func TestBuildSDL_HiddenTableExcludedFromObjectTypesAndRoots(t *testing.T) {
	sdl := BuildSDL(twoTableModel())

	assert.NotContains(t, sdl, "type _migrations")
	assert.NotContains(t, sdl, "_migrations(filter")
}

func TestBuildSDL_QueryAndMutationRootsCoverEveryVisibleTable(t *testing.T) {
	sdl := BuildSDL(twoTableModel())

	queryIdx := strings.Index(sdl, "type Query {")
	mutationIdx := strings.Index(sdl, "type Mutation {")
	require.NotEqual(t, -1, queryIdx)
	require.NotEqual(t, -1, mutationIdx)

	queryBlock := sdl[queryIdx:mutationIdx]
	assert.Contains(t, queryBlock, "users(filter: JSON, sort: [String!], limit: Int, offset: Int): [users!]!")
	assert.Contains(t, queryBlock, "posts(filter: JSON, sort: [String!], limit: Int, offset: Int): [posts!]!")

	mutationBlock := sdl[mutationIdx:]
	for _, op := range []string{"insertusers", "updateusers", "upsertusers", "deleteusers", "batchusers"} {
		assert.Contains(t, mutationBlock, op)
	}
}

func TestTableNamesSorted_ExcludesHiddenAndSorts(t *testing.T) {
	names := TableNamesSorted(twoTableModel())
	assert.Equal(t, []string{"posts", "users"}, names)
}

func TestGraphQLScalar_MapsDataTypes(t *testing.T) {
	assert.Equal(t, "Int", graphQLScalar(DataTypeBigInt))
	assert.Equal(t, "Float", graphQLScalar(DataTypeReal))
	assert.Equal(t, "Decimal", graphQLScalar(DataTypeMoney))
	assert.Equal(t, "Boolean", graphQLScalar(DataTypeBit))
	assert.Equal(t, "DateTime", graphQLScalar(DataTypeDateTime2))
	assert.Equal(t, "String", graphQLScalar(DataTypeVarchar))
}
