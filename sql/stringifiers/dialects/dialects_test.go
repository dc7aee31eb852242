package dialects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgreSQL_QuoteIdentifier(t *testing.T) {
	d := PostgreSQL{}
	assert.Equal(t, `"id"`, d.QuoteIdentifier("id"))
	assert.Equal(t, `"weird""col"`, d.QuoteIdentifier(`weird"col`))
}

func TestPostgreSQL_QuoteString(t *testing.T) {
	d := PostgreSQL{}
	assert.Equal(t, `'it''s'`, d.QuoteString("it's"))
}

func TestPostgreSQL_Placeholder(t *testing.T) {
	d := PostgreSQL{}
	assert.Equal(t, "$1", d.Placeholder(1))
	assert.Equal(t, "$12", d.Placeholder(12))
}

func TestPostgreSQL_IdentitySelect(t *testing.T) {
	d := PostgreSQL{}
	assert.Equal(t, "SELECT lastval()", d.IdentitySelect())
}

func TestPostgreSQL_IsIdentityColumnDefault(t *testing.T) {
	d := PostgreSQL{}
	assert.True(t, d.IsIdentityColumnDefault("nextval('users_id_seq'::regclass)"))
	assert.False(t, d.IsIdentityColumnDefault("now()"))
}

func TestPostgreSQL_FeatureFlags(t *testing.T) {
	d := PostgreSQL{}
	assert.True(t, d.SupportsUpsert())
	assert.True(t, d.SupportsOnConflict())
	assert.True(t, d.SupportsDistinctOn())
	assert.True(t, d.SupportsArray())
}

func TestSQLServer_QuoteIdentifier(t *testing.T) {
	d := SQLServer{}
	assert.Equal(t, "[id]", d.QuoteIdentifier("id"))
	assert.Equal(t, "[weird]]col]", d.QuoteIdentifier("weird]col"))
}

func TestSQLServer_Placeholder(t *testing.T) {
	d := SQLServer{}
	assert.Equal(t, "@p1", d.Placeholder(1))
}

func TestSQLServer_IdentitySelect(t *testing.T) {
	d := SQLServer{}
	assert.Equal(t, "SELECT SCOPE_IDENTITY()", d.IdentitySelect())
}

func TestSQLServer_IsIdentityColumnDefault_AlwaysFalse(t *testing.T) {
	d := SQLServer{}
	assert.False(t, d.IsIdentityColumnDefault("nextval('x')"))
	assert.False(t, d.IsIdentityColumnDefault(""))
}

func TestSQLServer_FeatureFlags(t *testing.T) {
	d := SQLServer{}
	assert.False(t, d.SupportsOnConflict())
	assert.False(t, d.SupportsDistinctOn())
	assert.False(t, d.SupportsArray())
	assert.True(t, d.SupportsUpsert())
}

func TestLikeOperator(t *testing.T) {
	pg := PostgreSQL{}
	assert.Equal(t, "ILIKE", pg.LikeOperator(true))

	ss := SQLServer{}
	assert.Equal(t, "LIKE", ss.LikeOperator(true))
	assert.Equal(t, "LIKE", ss.LikeOperator(false))
}
