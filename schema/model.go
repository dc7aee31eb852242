// Package schema holds the introspected, immutable-after-startup Model: the
// Tables, Columns and JoinEdges the Plan Builder, SQL Emitter and Mutation
// Compiler all read from, and nothing else ever mutates.
package schema

import (
	"strings"
	"sync"
)

// DataType is the normalised type tag every Column.DataType is mapped into.
type DataType string

const (
	DataTypeInt            DataType = "int"
	DataTypeSmallInt       DataType = "smallint"
	DataTypeTinyInt        DataType = "tinyint"
	DataTypeBigInt         DataType = "bigint"
	DataTypeDecimal        DataType = "decimal"
	DataTypeFloat          DataType = "float"
	DataTypeReal           DataType = "real"
	DataTypeDateTime       DataType = "datetime"
	DataTypeDateTime2      DataType = "datetime2"
	DataTypeDateTimeOffset DataType = "datetimeoffset"
	DataTypeBit            DataType = "bit"
	DataTypeVarchar        DataType = "varchar"
	DataTypeNVarchar       DataType = "nvarchar"
	DataTypeChar           DataType = "char"
	DataTypeNChar          DataType = "nchar"
	DataTypeBinary         DataType = "binary"
	DataTypeVarbinary      DataType = "varbinary"
	DataTypeText           DataType = "text"
	DataTypeNText          DataType = "ntext"
	DataTypeImage          DataType = "image"
	DataTypeMoney          DataType = "money"
	DataTypeUniqueID       DataType = "uniqueidentifier"
	DataTypeString         DataType = "string" // fallback for unrecognized types
)

// normalizeDataType maps a raw information_schema/pg_catalog type name to
// one of the tags above. Unknown types fall back to DataTypeString.
func normalizeDataType(raw string) DataType {
	t := strings.ToLower(raw)
	switch {
	case strings.Contains(t, "smallint"):
		return DataTypeSmallInt
	case strings.Contains(t, "tinyint"):
		return DataTypeTinyInt
	case strings.Contains(t, "bigint"):
		return DataTypeBigInt
	case t == "int" || t == "integer" || t == "int4" || t == "serial":
		return DataTypeInt
	case strings.Contains(t, "numeric") || strings.Contains(t, "decimal"):
		return DataTypeDecimal
	case t == "float" || strings.Contains(t, "double"):
		return DataTypeFloat
	case t == "real" || t == "float4":
		return DataTypeReal
	case strings.Contains(t, "datetimeoffset") || strings.Contains(t, "timestamptz"):
		return DataTypeDateTimeOffset
	case strings.Contains(t, "datetime2"):
		return DataTypeDateTime2
	case strings.Contains(t, "datetime") || strings.Contains(t, "timestamp"):
		return DataTypeDateTime
	case t == "bit" || t == "bool" || t == "boolean":
		return DataTypeBit
	case strings.Contains(t, "nvarchar"):
		return DataTypeNVarchar
	case strings.Contains(t, "varchar"):
		return DataTypeVarchar
	case strings.Contains(t, "nchar"):
		return DataTypeNChar
	case t == "char" || t == "bpchar":
		return DataTypeChar
	case strings.Contains(t, "varbinary") || t == "bytea":
		return DataTypeVarbinary
	case strings.Contains(t, "binary") || t == "image":
		return DataTypeBinary
	case strings.Contains(t, "ntext"):
		return DataTypeNText
	case t == "text":
		return DataTypeText
	case t == "money" || t == "smallmoney":
		return DataTypeMoney
	case strings.Contains(t, "uniqueidentifier") || t == "uuid":
		return DataTypeUniqueID
	default:
		return DataTypeString
	}
}

// Column is one normalized column of a Table.
type Column struct {
	Name         string
	DataType     DataType
	IsNullable   bool
	IsIdentity   bool
	IsPrimaryKey bool
	Metadata     map[string]string
}

// Table is one normalized table/view of the database.
type Table struct {
	DBSchema    string
	DBName      string
	GraphQLName string
	Columns     []*Column
	JoinEdges   []*JoinEdge
	Metadata    map[string]string

	columnsByName map[string]*Column
}

// PrimaryKey returns the table's single primary-key column, or nil.
// Composite PKs are deliberately treated as no-primary-key for
// insert-identity purposes.
func (t *Table) PrimaryKey() *Column {
	var pks []*Column
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pks = append(pks, c)
		}
	}
	if len(pks) == 1 {
		return pks[0]
	}
	return nil
}

// Column looks up a column by its DB name, case-sensitively.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columnsByName[name]
	return c, ok
}

// Hidden reports whether the table's DB name starts with "_" and is
// therefore excluded from the exposed GraphQL schema.
func (t *Table) Hidden() bool {
	return strings.HasPrefix(t.DBName, "_")
}

// JoinEdge is derived from a single FK constraint. It is uni-directional,
// from the referenced (parent) table to the FK-holding (child) table; the
// Schema Reader records it on the parent table only and creates no reverse
// edge.
type JoinEdge struct {
	ParentTable  string
	ParentColumn string
	ChildTable   string
	ChildColumn  string
}

// GraphQLFieldName is the "_join_<childGraphQlName>" field exposed on the
// parent row type.
func (e *JoinEdge) GraphQLFieldName(childGraphQLName string) string {
	return "_join_" + childGraphQLName
}

// GraphQLSingleFieldName is the optional "_single_<childGraphQlName>" field.
func (e *JoinEdge) GraphQLSingleFieldName(childGraphQLName string) string {
	return "_single_" + childGraphQLName
}

// ToGraphQLName replaces spaces with "__", matching the spec's table-name to
// GraphQL-type-name mapping rule.
func ToGraphQLName(dbName string) string {
	return strings.ReplaceAll(dbName, " ", "__")
}

// Model is the complete, immutable-after-startup snapshot of the database's
// shape. Built once by the Schema Reader; every accessor takes a read lock
// only, mirroring the teacher's Schema struct locking pattern in
// graph/schema.go.
type Model struct {
	mu             sync.RWMutex
	tablesByDBName map[string]*Table
	tablesByGQL    map[string]*Table
	order          []string // DBName, in discovery order, for deterministic iteration
	metadata       map[string]string
}

// NewModel builds a Model from a flat list of tables. Hidden tables (DBName
// starting with "_") are retained in the model (Mutation/introspection may
// still need them) but Tables() skips them for GraphQL exposure purposes.
func NewModel(tables []*Table) *Model {
	m := &Model{
		tablesByDBName: make(map[string]*Table, len(tables)),
		tablesByGQL:    make(map[string]*Table, len(tables)),
		metadata:       make(map[string]string),
	}
	for _, t := range tables {
		if t.GraphQLName == "" {
			t.GraphQLName = ToGraphQLName(t.DBName)
		}
		t.columnsByName = make(map[string]*Column, len(t.Columns))
		for _, c := range t.Columns {
			t.columnsByName[c.Name] = c
		}
		m.tablesByDBName[t.DBName] = t
		m.tablesByGQL[t.GraphQLName] = t
		m.order = append(m.order, t.DBName)
	}
	return m
}

// Tables returns every visible (non-hidden) table, in discovery order.
func (m *Model) Tables() []*Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Table, 0, len(m.order))
	for _, name := range m.order {
		t := m.tablesByDBName[name]
		if !t.Hidden() {
			out = append(out, t)
		}
	}
	return out
}

// GetTableByGraphQlName looks up a table by its exposed GraphQL type name.
func (m *Model) GetTableByGraphQlName(name string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tablesByGQL[name]
	return t, ok
}

// GetTableByDbName looks up a table by its raw database name.
func (m *Model) GetTableByDbName(name string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tablesByDBName[name]
	return t, ok
}

// JoinEdgesFrom returns the join edges whose ParentTable matches table.
func (m *Model) JoinEdgesFrom(table *Table) []*JoinEdge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return table.JoinEdges
}

// Metadata returns a process-wide, case-insensitive metadata value.
func (m *Model) Metadata(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.metadata[strings.ToLower(key)]
	return v, ok
}

// SetMetadata is used only by the Schema Reader during the single build
// pass; the Model is treated as read-only by every other consumer.
func (m *Model) SetMetadata(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[strings.ToLower(key)] = value
}
