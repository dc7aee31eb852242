package schema

import (
	"sort"
	"strings"
)

// graphQLScalar maps a normalized DataType to the GraphQL scalar name BuildSDL
// emits for it. Temporal and arbitrary-precision types fall back to the
// custom "DateTime"/"Decimal" scalars declared at the top of the generated
// document rather than lossy String coercion.
func graphQLScalar(t DataType) string {
	switch t {
	case DataTypeInt, DataTypeSmallInt, DataTypeTinyInt, DataTypeBigInt:
		return "Int"
	case DataTypeFloat, DataTypeReal:
		return "Float"
	case DataTypeDecimal, DataTypeMoney:
		return "Decimal"
	case DataTypeBit:
		return "Boolean"
	case DataTypeDateTime, DataTypeDateTime2, DataTypeDateTimeOffset:
		return "DateTime"
	default:
		return "String"
	}
}

// BuildSDL synthesizes a GraphQL SDL document from model: one object type per
// visible table, a "_join_"/"_single_" field per JoinEdge, and Query/Mutation
// root types exposing every table as a list query plus insert/update/
// upsert/delete/batch mutations. There is no authored .graphqls file in this
// system — the schema a client sees is entirely derived from the introspected
// database shape, so this is generated fresh every time the Schema Reader
// runs rather than hand-maintained.
func BuildSDL(model *Model) string {
	var b strings.Builder

	b.WriteString("scalar DateTime\nscalar Decimal\nscalar JSON\n\n")

	tables := model.Tables()

	for _, t := range tables {
		writeObjectType(&b, model, t)
	}

	writeQueryType(&b, tables)
	writeMutationType(&b, tables)

	return b.String()
}

func writeObjectType(b *strings.Builder, model *Model, t *Table) {
	b.WriteString("type ")
	b.WriteString(t.GraphQLName)
	b.WriteString(" {\n")

	for _, c := range t.Columns {
		b.WriteString("  ")
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(graphQLScalar(c.DataType))
		if !c.IsNullable {
			b.WriteString("!")
		}
		b.WriteString("\n")
	}

	for _, edge := range model.JoinEdgesFrom(t) {
		child, ok := model.GetTableByDbName(edge.ChildTable)
		if !ok || child.Hidden() {
			continue
		}
		b.WriteString("  ")
		b.WriteString(edge.GraphQLFieldName(child.GraphQLName))
		b.WriteString(joinArgs)
		b.WriteString(": [")
		b.WriteString(child.GraphQLName)
		b.WriteString("!]!\n")

		b.WriteString("  ")
		b.WriteString(edge.GraphQLSingleFieldName(child.GraphQLName))
		b.WriteString(joinArgs)
		b.WriteString(": ")
		b.WriteString(child.GraphQLName)
		b.WriteString("\n")
	}

	b.WriteString("}\n\n")
}

// joinArgs is identical for every "_join_"/"_single_" field: the same
// filter/sort/limit/offset/on arguments the Plan Builder's applyArguments and
// resolveJoinColumns parse, just declared once.
const joinArgs = "(filter: JSON, sort: [String!], limit: Int, offset: Int, on: [String!])"

// rootArgs is the argument set every top-level Query table field accepts.
const rootArgs = "(filter: JSON, sort: [String!], limit: Int, offset: Int)"

func writeQueryType(b *strings.Builder, tables []*Table) {
	b.WriteString("type Query {\n")
	for _, t := range tables {
		b.WriteString("  ")
		b.WriteString(t.GraphQLName)
		b.WriteString(rootArgs)
		b.WriteString(": [")
		b.WriteString(t.GraphQLName)
		b.WriteString("!]!\n")
	}
	b.WriteString("}\n\n")
}

func writeMutationType(b *strings.Builder, tables []*Table) {
	b.WriteString("type Mutation {\n")
	for _, t := range tables {
		name := t.GraphQLName
		b.WriteString("  insert")
		b.WriteString(name)
		b.WriteString("(values: JSON!): JSON\n")
		b.WriteString("  update")
		b.WriteString(name)
		b.WriteString("(values: JSON!): JSON\n")
		b.WriteString("  upsert")
		b.WriteString(name)
		b.WriteString("(values: JSON!): JSON\n")
		b.WriteString("  delete")
		b.WriteString(name)
		b.WriteString("(id: JSON!): JSON\n")
		b.WriteString("  batch")
		b.WriteString(name)
		b.WriteString("(items: [JSON!]!): JSON\n")
	}
	b.WriteString("}\n")
}

// TableNamesSorted returns every visible table's GraphQL name, sorted, used
// by `generate`'s SDL-preview output summary.
func TableNamesSorted(model *Model) []string {
	tables := model.Tables()
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.GraphQLName)
	}
	sort.Strings(names)
	return names
}
