// Package mutate compiles and executes GraphQL mutation fields against the
// introspected schema Model, replacing the teacher's graph/conversion.go
// ConvertToInsert/ConvertToUpdate/ConvertToDelete (PostgreSQL-only, one
// statement at a time, no batch/upsert) with a dialect-neutral compiler that
// adds batching and upsert per SPEC_FULL §4.8.
package mutate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/schema"
	"github.com/eddieafk/bifrostql/sql/dialect"
	"github.com/eddieafk/bifrostql/sql/spec"
)

// Action tags one element of a batch mutation.
type Action int

const (
	ActionInsert Action = iota
	ActionUpdate
	ActionUpsert
	ActionDelete
)

// defaultBatchMaxSize is used when a table carries no "batch-max-size"
// metadata override.
const defaultBatchMaxSize = 100

// BatchItem is one tagged action within a batch mutation. Exactly one of
// Values (insert/update/upsert) or ID (delete) is meaningful, selected by Action.
type BatchItem struct {
	Action Action
	Values map[string]interface{}
	ID     interface{}
}

// Compiler executes mutation fields against one table at a time, using the
// introspected Model for column/identity/primary-key metadata and the active
// Dialect for statement text, so the same compiler serves both profiles.
type Compiler struct {
	db      *sql.DB
	dialect dialect.Dialect
	model   *schema.Model
}

// NewCompiler builds a Compiler over an open connection, the active dialect,
// and the introspected Model.
func NewCompiler(db *sql.DB, d dialect.Dialect, model *schema.Model) *Compiler {
	return &Compiler{db: db, dialect: d, model: model}
}

func (c *Compiler) table(tableName string) (*schema.Table, error) {
	if t, ok := c.model.GetTableByGraphQlName(tableName); ok {
		return t, nil
	}
	if t, ok := c.model.GetTableByDbName(tableName); ok {
		return t, nil
	}
	return nil, errs.NotFound(fmt.Sprintf("mutate: unknown table %q", tableName))
}

// Insert inserts one row. The identity column, if any, must be absent from
// values. Returns the new identity value (nil if the table has none).
func (c *Compiler) Insert(ctx context.Context, tableName string, values map[string]interface{}) (interface{}, error) {
	t, err := c.table(tableName)
	if err != nil {
		return nil, err
	}
	return c.insertTx(ctx, c.db, t, values)
}

func (c *Compiler) insertTx(ctx context.Context, q querier, t *schema.Table, values map[string]interface{}) (interface{}, error) {
	if pk := t.PrimaryKey(); pk != nil && pk.IsIdentity {
		if _, ok := values[pk.Name]; ok {
			return nil, errs.ValidationError(fmt.Sprintf("insert %s: identity column %q must not be supplied", t.DBName, pk.Name))
		}
	}

	var params []interface{}
	newParam := func(v interface{}) string {
		params = append(params, v)
		return c.dialect.Placeholder(len(params))
	}

	insertSpec := spec.InsertSpec{TableName: t.DBName}
	for _, col := range t.Columns {
		v, ok := values[col.Name]
		if !ok {
			continue
		}
		insertSpec.Columns = append(insertSpec.Columns, col.Name)
		insertSpec.Placeholders = append(insertSpec.Placeholders, newParam(v))
	}
	if pk := t.PrimaryKey(); pk != nil {
		insertSpec.Returning = []string{pk.Name}
	}

	sqlText := c.dialect.InsertStatement(insertSpec)

	if c.dialect.SupportReturning() && len(insertSpec.Returning) > 0 {
		var identity interface{}
		if err := q.QueryRowContext(ctx, sqlText, params...).Scan(&identity); err != nil {
			return nil, errs.Internal(err, "insert: query failed")
		}
		return identity, nil
	}

	if _, err := q.ExecContext(ctx, sqlText, params...); err != nil {
		return nil, errs.Internal(err, "insert: exec failed")
	}
	if len(insertSpec.Returning) == 0 {
		return nil, nil
	}

	var identity interface{}
	if err := q.QueryRowContext(ctx, c.dialect.IdentitySelect()).Scan(&identity); err != nil {
		return nil, errs.Internal(err, "insert: identity select failed")
	}
	return identity, nil
}

// Update updates the row identified by values' primary-key entry. Returns
// errs.CodeNotFound if zero rows matched.
func (c *Compiler) Update(ctx context.Context, tableName string, values map[string]interface{}) error {
	t, err := c.table(tableName)
	if err != nil {
		return err
	}
	n, err := c.updateTx(ctx, c.db, t, values)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.NotFound(fmt.Sprintf("update %s: no matching row", t.DBName))
	}
	return nil
}

func (c *Compiler) updateTx(ctx context.Context, q querier, t *schema.Table, values map[string]interface{}) (int64, error) {
	pk := t.PrimaryKey()
	if pk == nil {
		return 0, errs.ValidationError(fmt.Sprintf("update %s: table has no single-column primary key", t.DBName))
	}
	pkValue, ok := values[pk.Name]
	if !ok {
		return 0, errs.ValidationError(fmt.Sprintf("update %s: primary key %q is required", t.DBName, pk.Name))
	}

	var params []interface{}
	newParam := func(v interface{}) string {
		params = append(params, v)
		return c.dialect.Placeholder(len(params))
	}

	updateSpec := spec.UpdateSpec{TableName: t.DBName}
	for _, col := range t.Columns {
		if col.Name == pk.Name {
			continue
		}
		v, ok := values[col.Name]
		if !ok {
			continue
		}
		updateSpec.SetColumns = append(updateSpec.SetColumns, col.Name)
		updateSpec.SetPlaceholders = append(updateSpec.SetPlaceholders, newParam(v))
	}
	updateSpec.WhereColumn = pk.Name
	updateSpec.WherePlaceholder = newParam(pkValue)

	sqlText := c.dialect.UpdateStatement(updateSpec)
	res, err := q.ExecContext(ctx, sqlText, params...)
	if err != nil {
		return 0, errs.Internal(err, "update: exec failed")
	}
	return res.RowsAffected()
}

// Upsert updates the row if its primary key is present and an existing row
// matches it, otherwise inserts. The existence check and the subsequent
// insert/update run inside one transaction.
func (c *Compiler) Upsert(ctx context.Context, tableName string, values map[string]interface{}) (interface{}, error) {
	t, err := c.table(tableName)
	if err != nil {
		return nil, err
	}

	pk := t.PrimaryKey()
	pkValue, hasPK := values[pk.Name]

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.Internal(err, "upsert: begin transaction failed")
	}
	defer tx.Rollback()

	if hasPK {
		exists, err := c.rowExists(ctx, tx, t, pk.Name, pkValue)
		if err != nil {
			return nil, err
		}
		if exists {
			if _, err := c.updateTx(ctx, tx, t, values); err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, errs.Internal(err, "upsert: commit failed")
			}
			return pkValue, nil
		}
	}

	// A supplied identity value that matched no row is dropped so the
	// database assigns a fresh one on insert.
	insertValues := values
	if hasPK && pk.IsIdentity {
		insertValues = make(map[string]interface{}, len(values))
		for k, v := range values {
			if k != pk.Name {
				insertValues[k] = v
			}
		}
	}

	identity, err := c.insertTx(ctx, tx, t, insertValues)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errs.Internal(err, "upsert: commit failed")
	}
	return identity, nil
}

func (c *Compiler) rowExists(ctx context.Context, tx *sql.Tx, t *schema.Table, pkColumn string, pkValue interface{}) (bool, error) {
	placeholder := c.dialect.Placeholder(1)
	sqlText := "SELECT 1 FROM " + c.dialect.QuoteIdentifier(t.DBName) +
		" WHERE " + c.dialect.QuoteIdentifier(pkColumn) + " = " + placeholder
	var discard int
	err := tx.QueryRowContext(ctx, sqlText, pkValue).Scan(&discard)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errs.Internal(err, "upsert: existence check failed")
	}
	return true, nil
}

// Delete deletes the row identified by id. Returns errs.CodeNotFound if zero
// rows matched.
func (c *Compiler) Delete(ctx context.Context, tableName string, id interface{}) error {
	t, err := c.table(tableName)
	if err != nil {
		return err
	}
	n, err := c.deleteTx(ctx, c.db, t, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.NotFound(fmt.Sprintf("delete %s: no matching row", t.DBName))
	}
	return nil
}

func (c *Compiler) deleteTx(ctx context.Context, q querier, t *schema.Table, id interface{}) (int64, error) {
	pk := t.PrimaryKey()
	if pk == nil {
		return 0, errs.ValidationError(fmt.Sprintf("delete %s: table has no single-column primary key", t.DBName))
	}
	placeholder := c.dialect.Placeholder(1)
	deleteSpec := spec.DeleteSpec{TableName: t.DBName, WhereColumn: pk.Name, WherePlaceholder: placeholder}
	sqlText := c.dialect.DeleteStatement(deleteSpec)
	res, err := q.ExecContext(ctx, sqlText, id)
	if err != nil {
		return 0, errs.Internal(err, "delete: exec failed")
	}
	return res.RowsAffected()
}

// Batch executes every item in order, inside one transaction; any failure
// aborts the whole batch. The per-table batch-max-size metadata (default
// defaultBatchMaxSize) bounds len(items).
func (c *Compiler) Batch(ctx context.Context, tableName string, items []BatchItem) (int, error) {
	t, err := c.table(tableName)
	if err != nil {
		return 0, err
	}

	maxSize := defaultBatchMaxSize
	if raw, ok := t.Metadata["batch-max-size"]; ok {
		var n int
		if _, scanErr := fmt.Sscanf(raw, "%d", &n); scanErr == nil && n > 0 {
			maxSize = n
		}
	}
	if len(items) > maxSize {
		return 0, errs.ValidationError(fmt.Sprintf("batch %s: %d actions exceeds batch-max-size %d", t.DBName, len(items), maxSize))
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.Internal(err, "batch: begin transaction failed")
	}
	defer tx.Rollback()

	pk := t.PrimaryKey()
	for i, item := range items {
		switch item.Action {
		case ActionInsert:
			if _, err := c.insertTx(ctx, tx, t, item.Values); err != nil {
				return 0, errs.Wrap(err, errs.CodeInternal, fmt.Sprintf("batch item %d: insert failed", i))
			}
		case ActionUpdate:
			n, err := c.updateTx(ctx, tx, t, item.Values)
			if err != nil {
				return 0, err
			}
			if n == 0 {
				return 0, errs.NotFound(fmt.Sprintf("batch item %d: update matched no row", i))
			}
		case ActionUpsert:
			if pk == nil {
				return 0, errs.ValidationError(fmt.Sprintf("batch item %d: upsert requires a single-column primary key", i))
			}
			pkValue, hasPK := item.Values[pk.Name]
			if hasPK {
				exists, err := c.rowExists(ctx, tx, t, pk.Name, pkValue)
				if err != nil {
					return 0, err
				}
				if exists {
					if _, err := c.updateTx(ctx, tx, t, item.Values); err != nil {
						return 0, err
					}
					continue
				}
			}
			insertValues := item.Values
			if hasPK && pk.IsIdentity {
				insertValues = make(map[string]interface{}, len(item.Values))
				for k, v := range item.Values {
					if k != pk.Name {
						insertValues[k] = v
					}
				}
			}
			if _, err := c.insertTx(ctx, tx, t, insertValues); err != nil {
				return 0, err
			}
		case ActionDelete:
			n, err := c.deleteTx(ctx, tx, t, item.ID)
			if err != nil {
				return 0, err
			}
			if n == 0 {
				return 0, errs.NotFound(fmt.Sprintf("batch item %d: delete matched no row", i))
			}
		default:
			return 0, errs.ValidationError(fmt.Sprintf("batch item %d: unknown action", i))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errs.Internal(err, "batch: commit failed")
	}
	return len(items), nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, so insert/update/delete
// helpers run identically whether called standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
