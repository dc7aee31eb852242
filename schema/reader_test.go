package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/eddieafk/bifrostql/sql/dialect"
)

// TestReader_Read_BuildsModelFromIntrospectionQueries grounds the Schema
// Reader's introspection pass against a mocked driver, the way syssam-velox's
// dialect/sql driver tests exercise database/sql code without a live
// database.
func TestReader_Read_BuildsModelFromIntrospectionQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	columnRows := sqlmock.NewRows([]string{
		"table_schema", "table_name", "column_name", "data_type",
		"is_nullable", "column_default", "ordinal_position",
	}).
		AddRow("public", "users", "id", "integer", "NO", "nextval('users_id_seq'::regclass)", 1).
		AddRow("public", "users", "name", "character varying", "YES", nil, 2).
		AddRow("public", "posts", "id", "integer", "NO", "nextval('posts_id_seq'::regclass)", 1).
		AddRow("public", "posts", "user_id", "integer", "NO", nil, 2)
	mock.ExpectQuery("FROM information_schema.columns").WillReturnRows(columnRows)

	pkRows := sqlmock.NewRows([]string{"table_schema", "table_name", "column_name"}).
		AddRow("public", "users", "id").
		AddRow("public", "posts", "id")
	mock.ExpectQuery("constraint_type = 'PRIMARY KEY'").WillReturnRows(pkRows)

	fkRows := sqlmock.NewRows([]string{
		"table_schema", "table_name", "column_name",
		"ref_table_schema", "ref_table_name", "ref_column_name",
	}).AddRow("public", "posts", "user_id", "public", "users", "id")
	mock.ExpectQuery("constraint_type = 'FOREIGN KEY'").WillReturnRows(fkRows)

	reader := NewReader(db, dialect.PostgreSQL)
	model, err := reader.Read(context.Background())
	require.NoError(t, err)

	tables := model.Tables()
	require.Len(t, tables, 2)

	users, ok := model.GetTableByDbName("users")
	require.True(t, ok)
	idCol, ok := users.Column("id")
	require.True(t, ok)
	require.True(t, idCol.IsPrimaryKey)
	require.True(t, idCol.IsIdentity)

	require.Len(t, users.JoinEdges, 1)
	require.Equal(t, "posts", users.JoinEdges[0].ChildTable)
	require.Equal(t, "user_id", users.JoinEdges[0].ChildColumn)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReader_Read_PingFailureIsFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reader := NewReader(db, dialect.PostgreSQL)
	reader.MaxRetries = 0
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err = reader.Read(context.Background())
	require.Error(t, err)
}
