package engine

import (
	"context"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/graph"
	"github.com/eddieafk/bifrostql/mutate"
)

// valuesArg extracts and type-asserts the "values" argument every
// insert/update/upsert mutation field declares.
func valuesArg(args map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := args["values"]
	if !ok {
		return nil, errs.ValidationError("mutation: missing \"values\" argument")
	}
	values, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errs.ValidationError("mutation: \"values\" must be an object")
	}
	return values, nil
}

func (e *Engine) insertResolver(tableName string) graph.ResolverFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		values, err := valuesArg(args)
		if err != nil {
			return nil, err
		}
		id, err := e.compiler.Insert(ctx, tableName, values)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"id": id}, nil
	}
}

func (e *Engine) updateResolver(tableName string) graph.ResolverFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		values, err := valuesArg(args)
		if err != nil {
			return nil, err
		}
		if err := e.compiler.Update(ctx, tableName, values); err != nil {
			return nil, err
		}
		return map[string]interface{}{"ok": true}, nil
	}
}

func (e *Engine) upsertResolver(tableName string) graph.ResolverFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		values, err := valuesArg(args)
		if err != nil {
			return nil, err
		}
		id, err := e.compiler.Upsert(ctx, tableName, values)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"id": id}, nil
	}
}

func (e *Engine) deleteResolver(tableName string) graph.ResolverFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id, ok := args["id"]
		if !ok {
			return nil, errs.ValidationError("mutation: missing \"id\" argument")
		}
		if err := e.compiler.Delete(ctx, tableName, id); err != nil {
			return nil, err
		}
		return map[string]interface{}{"ok": true}, nil
	}
}

// batchResolver handles "batch<Table>(items: [JSON!]!)": each item is an
// object carrying its own "action" ("insert"/"update"/"upsert"/"delete")
// alongside "values" or "id", mirroring mutate.BatchItem's tagged-union
// shape at the GraphQL argument boundary.
func (e *Engine) batchResolver(tableName string) graph.ResolverFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		raw, ok := args["items"]
		if !ok {
			return nil, errs.ValidationError("mutation: missing \"items\" argument")
		}
		rawItems, ok := raw.([]interface{})
		if !ok {
			return nil, errs.ValidationError("mutation: \"items\" must be a list")
		}

		items := make([]mutate.BatchItem, 0, len(rawItems))
		for _, ri := range rawItems {
			obj, ok := ri.(map[string]interface{})
			if !ok {
				return nil, errs.ValidationError("mutation: batch item must be an object")
			}
			action, _ := obj["action"].(string)
			item := mutate.BatchItem{}
			switch action {
			case "insert":
				item.Action = mutate.ActionInsert
			case "update":
				item.Action = mutate.ActionUpdate
			case "upsert":
				item.Action = mutate.ActionUpsert
			case "delete":
				item.Action = mutate.ActionDelete
			default:
				return nil, errs.ValidationError("mutation: batch item action must be one of insert/update/upsert/delete")
			}
			if item.Action == mutate.ActionDelete {
				item.ID = obj["id"]
			} else if values, ok := obj["values"].(map[string]interface{}); ok {
				item.Values = values
			}
			items = append(items, item)
		}

		count, err := e.compiler.Batch(ctx, tableName, items)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"count": count}, nil
	}
}
