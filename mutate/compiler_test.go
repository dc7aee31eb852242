package mutate

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/schema"
	"github.com/eddieafk/bifrostql/sql/dialect"
)

func usersModel() *schema.Model {
	return schema.NewModel([]*schema.Table{
		{
			DBName: "users",
			Columns: []*schema.Column{
				{Name: "id", DataType: schema.DataTypeInt, IsPrimaryKey: true, IsIdentity: true},
				{Name: "name", DataType: schema.DataTypeVarchar},
			},
			Metadata: make(map[string]string),
		},
	})
}

func errCode(t *testing.T, err error) errs.Code {
	t.Helper()
	e, ok := errs.As(err)
	require.True(t, ok, "expected a coded *errs.Error, got %T: %v", err, err)
	return e.Code
}

func TestCompiler_Insert_ReturnsIdentity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	c := NewCompiler(db, dialect.PostgreSQL, usersModel())
	id, err := c.Insert(context.Background(), "users", map[string]interface{}{"name": "alice"})
	require.NoError(t, err)
	require.EqualValues(t, 7, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompiler_Insert_RejectsSuppliedIdentity(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := NewCompiler(db, dialect.PostgreSQL, usersModel())
	_, err = c.Insert(context.Background(), "users", map[string]interface{}{"id": 1, "name": "alice"})
	require.Error(t, err)
}

func TestCompiler_Update_NoRowsMatched_ReturnsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 0))

	c := NewCompiler(db, dialect.PostgreSQL, usersModel())
	err = c.Update(context.Background(), "users", map[string]interface{}{"id": 5, "name": "bob"})
	require.Error(t, err)
	require.Equal(t, errs.CodeNotFound, errCode(t, err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompiler_Update_RequiresPrimaryKey(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := NewCompiler(db, dialect.PostgreSQL, usersModel())
	err = c.Update(context.Background(), "users", map[string]interface{}{"name": "bob"})
	require.Error(t, err)
}

func TestCompiler_Delete_NoRowsMatched_ReturnsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 0))

	c := NewCompiler(db, dialect.PostgreSQL, usersModel())
	err = c.Delete(context.Background(), "users", 42)
	require.Error(t, err)
	require.Equal(t, errs.CodeNotFound, errCode(t, err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompiler_Upsert_UpdatesWhenRowExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := NewCompiler(db, dialect.PostgreSQL, usersModel())
	id, err := c.Upsert(context.Background(), "users", map[string]interface{}{"id": 3, "name": "carol"})
	require.NoError(t, err)
	require.EqualValues(t, 3, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompiler_Upsert_InsertsWhenRowMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectCommit()

	c := NewCompiler(db, dialect.PostgreSQL, usersModel())
	id, err := c.Upsert(context.Background(), "users", map[string]interface{}{"id": 3, "name": "dan"})
	require.NoError(t, err)
	require.EqualValues(t, 9, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompiler_Batch_MaxSizeExceeded(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	model := usersModel()
	tbl, _ := model.GetTableByDbName("users")
	tbl.Metadata["batch-max-size"] = "1"

	c := NewCompiler(db, dialect.PostgreSQL, model)
	_, err = c.Batch(context.Background(), "users", []BatchItem{
		{Action: ActionInsert, Values: map[string]interface{}{"name": "a"}},
		{Action: ActionInsert, Values: map[string]interface{}{"name": "b"}},
	})
	require.Error(t, err)
}
