// Package engine is the bridge the teacher's generic, reflection-based
// graph.Executor never had: it synthesizes a GraphQL schema from an
// introspected database Model, then registers one root resolver per table
// (queries) and per mutation action, each of which drives the
// Plan Builder -> SQL Emitter -> database round trip -> Row Graph pipeline
// and returns a plain materialized Go value. graph/executor.go's
// completeValue/defaultResolve then walks that value for free — no second
// GraphQL execution engine is written here, only real callers for the
// Plan Builder, SQL Emitter, Row Graph and Mutation Compiler the rest of
// the tree already implements but never invoked.
package engine

import (
	"context"
	"database/sql"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/graph"
	"github.com/eddieafk/bifrostql/logging"
	"github.com/eddieafk/bifrostql/mutate"
	"github.com/eddieafk/bifrostql/plan"
	"github.com/eddieafk/bifrostql/rowgraph"
	"github.com/eddieafk/bifrostql/schema"
	"github.com/eddieafk/bifrostql/sql/dialect"
)

var log = logging.For("engine")

// Engine owns the introspected Model and the live connection every request
// resolver shares; BuildSchema hands out a *graph.ExecutableSchema wired
// against it.
type Engine struct {
	model    *schema.Model
	db       *sql.DB
	dialect  dialect.Dialect
	builder  *plan.Builder
	compiler *mutate.Compiler
}

// New builds an Engine over an open connection, the active Dialect and the
// Schema Reader's introspected Model.
func New(model *schema.Model, db *sql.DB, d dialect.Dialect) *Engine {
	return &Engine{
		model:    model,
		db:       db,
		dialect:  d,
		builder:  plan.NewBuilder(model),
		compiler: mutate.NewCompiler(db, d, model),
	}
}

// BuildSchema synthesizes the Model's SDL, parses it into a
// graph.ExecutableSchema and registers every table's query and mutation
// resolvers against it.
func (e *Engine) BuildSchema() (*graph.ExecutableSchema, error) {
	sdl := schema.BuildSDL(e.model)

	es, err := graph.NewExecutableSchema(sdl)
	if err != nil {
		return nil, errs.Internal(err, "engine: parse generated SDL")
	}

	for _, t := range e.model.Tables() {
		tableName := t.GraphQLName
		es.RegisterResolver("Query", tableName, e.queryResolver(tableName))

		es.RegisterResolver("Mutation", "insert"+tableName, e.insertResolver(tableName))
		es.RegisterResolver("Mutation", "update"+tableName, e.updateResolver(tableName))
		es.RegisterResolver("Mutation", "upsert"+tableName, e.upsertResolver(tableName))
		es.RegisterResolver("Mutation", "delete"+tableName, e.deleteResolver(tableName))
		es.RegisterResolver("Mutation", "batch"+tableName, e.batchResolver(tableName))
	}

	return es, nil
}

// queryResolver builds the resolver for root Query field fieldName: it
// recovers the field's own selection/arguments via graph.GetResolveInfo,
// runs it through the Plan Builder/SQL Emitter/Row Graph pipeline and
// returns the materialized rows.
func (e *Engine) queryResolver(fieldName string) graph.ResolverFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		info := graph.GetResolveInfo(ctx)
		if info == nil {
			return nil, errs.Internal(nil, "engine: missing resolve info for "+fieldName)
		}

		field := &graph.SelectedField{
			Name:       fieldName,
			Arguments:  args,
			Selections: info.Selection,
		}

		tree, err := e.builder.BuildOne(field)
		if err != nil {
			return nil, err
		}

		statements, err := plan.Emit(e.dialect, []*plan.TableSql{tree})
		if err != nil {
			return nil, err
		}

		columns, rows, err := e.runStatements(ctx, statements)
		if err != nil {
			return nil, err
		}

		g := rowgraph.NewGraph(columns, rows)
		cursor, err := g.Root(tree)
		if err != nil {
			return nil, err
		}

		return materializeCursor(cursor)
	}
}

// runStatements executes every statement plan.Emit produced against the
// live connection and collects the results keyed by Statement.Key, the
// shape rowgraph.NewGraph expects.
func (e *Engine) runStatements(ctx context.Context, statements []plan.Statement) (map[string][]string, map[string][][]interface{}, error) {
	columns := make(map[string][]string, len(statements))
	rows := make(map[string][][]interface{}, len(statements))

	for _, stmt := range statements {
		log.WithField("key", stmt.Key).Debug(stmt.SQL)

		sqlRows, err := e.db.QueryContext(ctx, stmt.SQL, stmt.Params...)
		if err != nil {
			return nil, nil, errs.Internal(err, "engine: execute "+stmt.SQL)
		}

		cols, err := sqlRows.Columns()
		if err != nil {
			sqlRows.Close()
			return nil, nil, errs.Internal(err, "engine: read column names")
		}
		columns[stmt.Key] = cols

		var batch [][]interface{}
		for sqlRows.Next() {
			vals := make([]interface{}, len(cols))
			ptrs := make([]interface{}, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := sqlRows.Scan(ptrs...); err != nil {
				sqlRows.Close()
				return nil, nil, errs.Internal(err, "engine: scan row")
			}
			batch = append(batch, vals)
		}
		err = sqlRows.Err()
		sqlRows.Close()
		if err != nil {
			return nil, nil, errs.Internal(err, "engine: iterate rows")
		}
		rows[stmt.Key] = batch
	}

	return columns, rows, nil
}

// materializeCursor walks cursor's scope into a []interface{} of
// map[string]interface{}, recursing into joined cursors/rows. This is what
// lets graph/executor.go's unmodified completeValue/defaultResolve assemble
// the rest of the GraphQL response without any further custom resolver.
func materializeCursor(cursor *rowgraph.Cursor) ([]interface{}, error) {
	out := make([]interface{}, 0, cursor.Len())
	for i := 0; i < cursor.Len(); i++ {
		row, err := materializeRow(cursor.Row(i))
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func materializeRow(row *rowgraph.Row) (map[string]interface{}, error) {
	node := row.Node()
	out := make(map[string]interface{}, len(node.ColumnNames)+len(node.Joins))

	for _, col := range node.ColumnNames {
		v, err := row.Get(col)
		if err != nil {
			return nil, err
		}
		out[col] = v
	}

	for _, join := range node.Joins {
		v, err := row.Get(join.Alias)
		if err != nil {
			return nil, err
		}
		materialized, err := materializeJoinValue(v)
		if err != nil {
			return nil, err
		}
		out[join.Alias] = materialized
	}

	return out, nil
}

func materializeJoinValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case *rowgraph.Cursor:
		return materializeCursor(val)
	case *rowgraph.Row:
		if val == nil {
			return nil, nil
		}
		return materializeRow(val)
	default:
		return v, nil
	}
}
