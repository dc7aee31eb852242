package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/logging"
	"github.com/eddieafk/bifrostql/sql/dialect"
)

var log = logging.For("schema-reader")

// excludedSchemas are system schemas that are never introspected, matching
// the filter the pack's own introspection reference applies to pg_catalog.
var excludedSchemas = map[string]bool{
	"information_schema": true,
	"pg_catalog":         true,
	"pg_toast":           true,
	"sys":                true,
}

// Reader reads the database's shape into a Model. A read error is fatal:
// the system never starts with a partial model.
type Reader struct {
	db      *sql.DB
	dialect dialect.Dialect

	// MaxRetries bounds the exponential-backoff retry loop performed while
	// acquiring the initial connection, so a database still warming up
	// during container orchestration doesn't fail the whole process on the
	// first attempt.
	MaxRetries uint64
}

// NewReader builds a Reader over an already-opened *sql.DB and the dialect
// that will drive its introspection queries and identity detection.
func NewReader(db *sql.DB, d dialect.Dialect) *Reader {
	return &Reader{db: db, dialect: d, MaxRetries: 5}
}

// Read builds the full Model, retrying the initial ping with exponential
// backoff before surfacing a fatal error.
func (r *Reader) Read(ctx context.Context) (*Model, error) {
	if err := r.connectWithRetry(ctx); err != nil {
		return nil, errs.Wrap(err, errs.CodeInternal, "schema reader: database unreachable")
	}

	tables, err := r.loadTablesAndColumns(ctx)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeInternal, "schema reader: loading tables and columns")
	}

	if err := r.loadPrimaryKeys(ctx, tables); err != nil {
		return nil, errs.Wrap(err, errs.CodeInternal, "schema reader: loading primary keys")
	}

	if err := r.loadForeignKeys(ctx, tables); err != nil {
		return nil, errs.Wrap(err, errs.CodeInternal, "schema reader: loading foreign keys")
	}

	if err := r.detectIdentityColumns(ctx, tables); err != nil {
		return nil, errs.Wrap(err, errs.CodeInternal, "schema reader: detecting identity columns")
	}

	ordered := make([]*Table, 0, len(tables))
	for _, t := range tables {
		ordered = append(ordered, t)
	}

	log.WithField("tableCount", len(ordered)).Info("schema introspection complete")

	return NewModel(ordered), nil
}

func (r *Reader) connectWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // bounded by MaxRetries via WithMaxRetries below

	op := func() error {
		return r.db.PingContext(ctx)
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, r.MaxRetries), ctx))
}

func (r *Reader) loadTablesAndColumns(ctx context.Context) (map[string]*Table, error) {
	query := `
		SELECT table_schema, table_name, column_name, data_type,
		       is_nullable, column_default, ordinal_position
		FROM information_schema.columns
		ORDER BY table_schema, table_name, ordinal_position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying information_schema.columns: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]*Table)
	for rows.Next() {
		var (
			tableSchema, tableName, columnName, dataType string
			isNullableRaw, columnDefault                  sql.NullString
			ordinalPosition                               int
		)
		if err := rows.Scan(&tableSchema, &tableName, &columnName, &dataType,
			&isNullableRaw, &columnDefault, &ordinalPosition); err != nil {
			return nil, fmt.Errorf("scanning column row: %w", err)
		}

		if excludedSchemas[tableSchema] {
			continue
		}

		key := tableSchema + "." + tableName
		tbl, ok := tables[key]
		if !ok {
			tbl = &Table{
				DBSchema: tableSchema,
				DBName:   tableName,
				Metadata: make(map[string]string),
			}
			tables[key] = tbl
		}

		isIdentity := r.dialect.IsIdentityColumnDefault(columnDefault.String)

		tbl.Columns = append(tbl.Columns, &Column{
			Name:       columnName,
			DataType:   normalizeDataType(dataType),
			IsNullable: isNullableRaw.String == "YES",
			IsIdentity: isIdentity,
			Metadata:   make(map[string]string),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *Reader) loadPrimaryKeys(ctx context.Context, tables map[string]*Table) error {
	query := `
		SELECT tc.table_schema, tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying primary keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table, column string
		if err := rows.Scan(&schema, &table, &column); err != nil {
			return fmt.Errorf("scanning primary key row: %w", err)
		}
		if excludedSchemas[schema] {
			continue
		}
		tbl, ok := tables[schema+"."+table]
		if !ok {
			continue
		}
		for _, c := range tbl.Columns {
			if c.Name == column {
				c.IsPrimaryKey = true
			}
		}
	}
	return rows.Err()
}

func (r *Reader) loadForeignKeys(ctx context.Context, tables map[string]*Table) error {
	query := `
		SELECT tc.table_schema, tc.table_name, kcu.column_name,
		       ccu.table_schema, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY'`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table, column, refSchema, refTable, refColumn string
		if err := rows.Scan(&schema, &table, &column, &refSchema, &refTable, &refColumn); err != nil {
			return fmt.Errorf("scanning foreign key row: %w", err)
		}
		if excludedSchemas[schema] || excludedSchemas[refSchema] {
			continue
		}
		if _, ok := tables[schema+"."+table]; !ok {
			continue
		}
		parent, ok := tables[refSchema+"."+refTable]
		if !ok {
			continue
		}

		parent.JoinEdges = append(parent.JoinEdges, &JoinEdge{
			ParentTable:  refTable,
			ParentColumn: refColumn,
			ChildTable:   table,
			ChildColumn:  column,
		})
	}
	return rows.Err()
}

// detectIdentityColumns asks the server directly for dialects (SQL Server)
// whose identity property isn't expressed in the column default.
func (r *Reader) detectIdentityColumns(ctx context.Context, tables map[string]*Table) error {
	for _, tbl := range tables {
		for _, col := range tbl.Columns {
			if col.IsIdentity {
				continue
			}
			q := r.dialect.IdentityPropertyQuery(tbl.DBName, col.Name)
			if q == "" {
				continue
			}
			var isIdentity sql.NullInt64
			if err := r.db.QueryRowContext(ctx, q).Scan(&isIdentity); err != nil {
				log.WithError(err).WithField("table", tbl.DBName).WithField("column", col.Name).
					Warn("identity property query failed, assuming non-identity")
				continue
			}
			col.IsIdentity = isIdentity.Valid && isIdentity.Int64 == 1
		}
	}
	return nil
}
