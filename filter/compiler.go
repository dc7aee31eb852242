// Package filter compiles a single TableFilter (column, operator, value)
// into a bound-parameter SQL fragment, generalizing the teacher's
// graph/conversion.go convertGraphQLOperator + graph/marshal WhereClauseBuilder
// across both supported dialects instead of being PostgreSQL-only.
package filter

import (
	"fmt"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/sql/dialect"
)

// Operator is one of the filter's supported relational operators.
type Operator string

const (
	OpEq          Operator = "_eq"
	OpNeq         Operator = "_neq"
	OpLt          Operator = "_lt"
	OpLte         Operator = "_lte"
	OpGt          Operator = "_gt"
	OpGte         Operator = "_gte"
	OpContains    Operator = "_contains"
	OpNContains   Operator = "_ncontains"
	OpStartsWith  Operator = "_starts_with"
	OpNStartsWith Operator = "_nstarts_with"
	OpEndsWith    Operator = "_ends_with"
	OpNEndsWith   Operator = "_nends_with"
	OpIn          Operator = "_in"
	OpNin         Operator = "_nin"
	OpBetween     Operator = "_between"
	OpNBetween    Operator = "_nbetween"
)

var knownOperators = map[Operator]bool{
	OpEq: true, OpNeq: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true,
	OpContains: true, OpNContains: true, OpStartsWith: true, OpNStartsWith: true,
	OpEndsWith: true, OpNEndsWith: true, OpIn: true, OpNin: true,
	OpBetween: true, OpNBetween: true,
}

// Compiled is one operator's compiled SQL fragment and the bound parameters
// it references, in left-to-right placeholder order.
type Compiled struct {
	SQL    string
	Params []interface{}
}

// ParamFunc is supplied by the caller (the SQL Emitter or Mutation Compiler)
// so Compile never decides its own placeholder numbering — the caller's
// running placeholder counter is shared across the whole statement.
type ParamFunc func(value interface{}) string

// Compile compiles one (column, operator, value) triple into a bound-parameter
// SQL fragment. tableAlias, if non-empty, is prefixed to the quoted column.
// newParam must return a dialect-correct placeholder for the given value and
// record it for later binding.
func Compile(d dialect.Dialect, tableAlias, column string, op Operator, value interface{}, newParam ParamFunc) (string, error) {
	if !knownOperators[op] {
		return "", errs.ValidationError(fmt.Sprintf("unknown filter operator %q", op))
	}

	qc := d.QuoteIdentifier(column)
	if tableAlias != "" {
		qc = tableAlias + "." + qc
	}

	switch op {
	case OpEq:
		if value == nil {
			return qc + " IS NULL", nil
		}
		return qc + " = " + newParam(value), nil

	case OpNeq:
		if value == nil {
			return qc + " IS NOT NULL", nil
		}
		return qc + " <> " + newParam(value), nil

	case OpLt:
		return qc + " < " + newParam(value), nil
	case OpLte:
		return qc + " <= " + newParam(value), nil
	case OpGt:
		return qc + " > " + newParam(value), nil
	case OpGte:
		return qc + " >= " + newParam(value), nil

	case OpContains:
		return qc + " " + d.LikeOperator(true) + " " + newParam(wrapLike(value, true, true)), nil
	case OpNContains:
		return qc + " NOT " + d.LikeOperator(true) + " " + newParam(wrapLike(value, true, true)), nil
	case OpStartsWith:
		return qc + " " + d.LikeOperator(true) + " " + newParam(wrapLike(value, false, true)), nil
	case OpNStartsWith:
		return qc + " NOT " + d.LikeOperator(true) + " " + newParam(wrapLike(value, false, true)), nil
	case OpEndsWith:
		return qc + " " + d.LikeOperator(true) + " " + newParam(wrapLike(value, true, false)), nil
	case OpNEndsWith:
		return qc + " NOT " + d.LikeOperator(true) + " " + newParam(wrapLike(value, true, false)), nil

	case OpIn, OpNin:
		values, ok := value.([]interface{})
		if !ok || len(values) == 0 {
			return "", errs.ValidationError(fmt.Sprintf("%s requires a non-empty list", op))
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = newParam(v)
		}
		keyword := "IN"
		if op == OpNin {
			keyword = "NOT IN"
		}
		sql := qc + " " + keyword + " ("
		for i, p := range placeholders {
			if i > 0 {
				sql += ", "
			}
			sql += p
		}
		return sql + ")", nil

	case OpBetween, OpNBetween:
		values, ok := value.([]interface{})
		if !ok || len(values) != 2 {
			return "", errs.ValidationError(fmt.Sprintf("%s requires exactly two elements", op))
		}
		keyword := "BETWEEN"
		if op == OpNBetween {
			keyword = "NOT BETWEEN"
		}
		return qc + " " + keyword + " " + newParam(values[0]) + " AND " + newParam(values[1]), nil
	}

	return "", errs.ValidationError(fmt.Sprintf("unknown filter operator %q", op))
}

// wrapLike wraps a value in the wildcard pattern for _contains/_starts_with/
// _ends_with. Wildcard characters within the user's string are intentionally
// NOT escaped, matching the spec's documented behavior.
func wrapLike(value interface{}, prefixWildcard, suffixWildcard bool) string {
	s, _ := value.(string)
	if prefixWildcard {
		s = "%" + s
	}
	if suffixWildcard {
		s = s + "%"
	}
	return s
}
