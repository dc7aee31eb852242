package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddieafk/bifrostql/sql/dialect"
)

// newParamCollector returns a ParamFunc that appends to params and yields
// PostgreSQL-style $N placeholders, mirroring the newParam closure
// plan/emit.go's emitRoot passes to Compile (mutate/compiler.go's insertTx
// numbers its own placeholders the same way).
func newParamCollector() (ParamFunc, *[]interface{}) {
	params := &[]interface{}{}
	return func(v interface{}) string {
		*params = append(*params, v)
		return dialect.PostgreSQL.Placeholder(len(*params))
	}, params
}

func TestCompile_Eq(t *testing.T) {
	newParam, params := newParamCollector()
	sql, err := Compile(dialect.PostgreSQL, "", "name", OpEq, "alice", newParam)
	require.NoError(t, err)
	assert.Equal(t, `"name" = $1`, sql)
	assert.Equal(t, []interface{}{"alice"}, *params)
}

func TestCompile_EqNil_IsNull(t *testing.T) {
	newParam, params := newParamCollector()
	sql, err := Compile(dialect.PostgreSQL, "", "deleted_at", OpEq, nil, newParam)
	require.NoError(t, err)
	assert.Equal(t, `"deleted_at" IS NULL`, sql)
	assert.Empty(t, *params)
}

func TestCompile_NeqNil_IsNotNull(t *testing.T) {
	newParam, _ := newParamCollector()
	sql, err := Compile(dialect.PostgreSQL, "", "deleted_at", OpNeq, nil, newParam)
	require.NoError(t, err)
	assert.Equal(t, `"deleted_at" IS NOT NULL`, sql)
}

func TestCompile_TableAliasPrefix(t *testing.T) {
	newParam, _ := newParamCollector()
	sql, err := Compile(dialect.PostgreSQL, "u", "id", OpEq, 1, newParam)
	require.NoError(t, err)
	assert.Equal(t, `u."id" = $1`, sql)
}

func TestCompile_Contains(t *testing.T) {
	newParam, params := newParamCollector()
	sql, err := Compile(dialect.PostgreSQL, "", "email", OpContains, "acme", newParam)
	require.NoError(t, err)
	assert.Contains(t, sql, "LIKE")
	assert.Equal(t, []interface{}{"%acme%"}, *params)
}

func TestCompile_StartsWith(t *testing.T) {
	newParam, params := newParamCollector()
	_, err := Compile(dialect.PostgreSQL, "", "email", OpStartsWith, "acme", newParam)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"acme%"}, *params)
}

func TestCompile_EndsWith(t *testing.T) {
	newParam, params := newParamCollector()
	_, err := Compile(dialect.PostgreSQL, "", "email", OpEndsWith, "acme", newParam)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"%acme"}, *params)
}

func TestCompile_In(t *testing.T) {
	newParam, params := newParamCollector()
	sql, err := Compile(dialect.PostgreSQL, "", "status", OpIn, []interface{}{"a", "b"}, newParam)
	require.NoError(t, err)
	assert.Equal(t, `"status" IN ($1, $2)`, sql)
	assert.Equal(t, []interface{}{"a", "b"}, *params)
}

func TestCompile_InRequiresNonEmptyList(t *testing.T) {
	newParam, _ := newParamCollector()
	_, err := Compile(dialect.PostgreSQL, "", "status", OpIn, []interface{}{}, newParam)
	assert.Error(t, err)

	_, err = Compile(dialect.PostgreSQL, "", "status", OpIn, "not-a-list", newParam)
	assert.Error(t, err)
}

func TestCompile_Between(t *testing.T) {
	newParam, params := newParamCollector()
	sql, err := Compile(dialect.PostgreSQL, "", "age", OpBetween, []interface{}{18, 65}, newParam)
	require.NoError(t, err)
	assert.Equal(t, `"age" BETWEEN $1 AND $2`, sql)
	assert.Equal(t, []interface{}{18, 65}, *params)
}

func TestCompile_BetweenRequiresTwoElements(t *testing.T) {
	newParam, _ := newParamCollector()
	_, err := Compile(dialect.PostgreSQL, "", "age", OpBetween, []interface{}{18}, newParam)
	assert.Error(t, err)
}

func TestCompile_UnknownOperator(t *testing.T) {
	newParam, _ := newParamCollector()
	_, err := Compile(dialect.PostgreSQL, "", "age", Operator("_bogus"), 1, newParam)
	assert.Error(t, err)
}

func TestCompile_SQLServerPlaceholders(t *testing.T) {
	newParam, params := newParamCollector2(dialect.SQLServer)
	sql, err := Compile(dialect.SQLServer, "", "id", OpEq, 7, newParam)
	require.NoError(t, err)
	assert.Equal(t, "[id] = @p1", sql)
	assert.Equal(t, []interface{}{7}, *params)
}

func newParamCollector2(d dialect.Dialect) (ParamFunc, *[]interface{}) {
	params := &[]interface{}{}
	return func(v interface{}) string {
		*params = append(*params, v)
		return d.Placeholder(len(*params))
	}, params
}
