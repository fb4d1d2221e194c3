package sqlsource

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/rowsource/internal/queryir"
	"github.com/roach88/rowsource/internal/result"
	"github.com/roach88/rowsource/internal/source"
	"github.com/roach88/rowsource/internal/value"
)

// Distinct runs SELECT DISTINCT over columns.
func (s *Source) Distinct(ctx context.Context, columns []string, filter source.Filter) (*result.Set, error) {
	if err := s.assertColumns(columns, nil, filter); err != nil {
		return nil, err
	}

	sel := queryir.Select{
		From:     s.table,
		Distinct: true,
		Columns:  columnExprs(columns),
		Filter:   predicate(filter),
	}

	out := result.NewSet()
	for vals, err := range s.query(ctx, sel) {
		if err != nil {
			return nil, err
		}
		out.Add(vals)
	}
	return out, nil
}

// Sum totals column with the decimal_sum aggregate, grouped in SQL.
// Without the aggregate it folds values client side.
func (s *Source) Sum(ctx context.Context, column string, groupBy []string, filter source.Filter) (result.Result, error) {
	if err := s.assertColumns([]string{column}, groupBy, filter); err != nil {
		return nil, err
	}
	if s.compiler.SumFunc == "" {
		return s.Reduce(ctx, source.SumFunc, column, groupBy, value.Decimal{}, filter)
	}
	return s.aggregate(ctx, queryir.Sum{Column: column}, groupBy, filter, func(v value.Value) (value.Value, error) {
		// decimal_sum hands back text.
		return value.ToDecimal(v)
	})
}

// Count runs COUNT(*), grouped in SQL.
func (s *Source) Count(ctx context.Context, groupBy []string, filter source.Filter) (result.Result, error) {
	if err := s.assertColumns(nil, groupBy, filter); err != nil {
		return nil, err
	}
	return s.aggregate(ctx, queryir.CountAll{}, groupBy, filter, func(v value.Value) (value.Value, error) {
		return v, nil
	})
}

// aggregate selects the group columns followed by agg. The last output
// column is the aggregate value.
func (s *Source) aggregate(ctx context.Context, agg queryir.Expr, groupBy []string, filter source.Filter, conv func(value.Value) (value.Value, error)) (result.Result, error) {
	sel := queryir.Select{
		From:    s.table,
		Columns: append(columnExprs(groupBy), agg),
		Filter:  predicate(filter),
		GroupBy: groupBy,
	}

	var out *result.Mapping
	if len(groupBy) > 0 {
		out = result.NewMapping(groupBy)
	}
	for vals, err := range s.query(ctx, sel) {
		if err != nil {
			return nil, err
		}
		last := len(vals) - 1
		v, err := conv(vals[last])
		if err != nil {
			return nil, err
		}
		if out == nil {
			return result.Scalar{Value: v}, nil
		}
		if err := out.Set(result.Tuple(vals[:last]), v); err != nil {
			return nil, err
		}
	}
	if out == nil {
		return nil, fmt.Errorf("aggregate over %s returned no rows", s)
	}
	return out, nil
}

// Reduce streams the column (NULL when column is "") with the group
// columns and folds fn client side. Grouped queries are ordered by the
// group columns.
func (s *Source) Reduce(ctx context.Context, fn source.ReduceFunc, column string, groupBy []string, initial value.Value, filter source.Filter) (result.Result, error) {
	var cols []string
	if column != "" {
		cols = []string{column}
	}
	if err := s.assertColumns(cols, groupBy, filter); err != nil {
		return nil, err
	}
	if initial == nil {
		initial = value.Null{}
	}

	var first queryir.Expr = queryir.Null{}
	if column != "" {
		first = queryir.Column{Name: column}
	}
	sel := queryir.Select{
		From:    s.table,
		Columns: append([]queryir.Expr{first}, columnExprs(groupBy)...),
		Filter:  predicate(filter),
		OrderBy: groupBy,
	}

	if len(groupBy) == 0 {
		acc := initial
		for vals, err := range s.query(ctx, sel) {
			if err != nil {
				return nil, err
			}
			if acc, err = fn(acc, vals[0]); err != nil {
				return nil, err
			}
		}
		return result.Scalar{Value: acc}, nil
	}

	out := result.NewMapping(groupBy)
	for vals, err := range s.query(ctx, sel) {
		if err != nil {
			return nil, err
		}
		key := result.Tuple(vals[1:])
		acc, ok := out.Get(key)
		if !ok {
			acc = initial
		}
		if acc, err = fn(acc, vals[0]); err != nil {
			return nil, err
		}
		if err := out.Set(key, acc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func selectRows(table string, columns []string) queryir.Select {
	return queryir.Select{From: table, Columns: columnExprs(columns)}
}

func columnExprs(columns []string) []queryir.Expr {
	exprs := make([]queryir.Expr, len(columns))
	for i, c := range columns {
		exprs[i] = queryir.Column{Name: c}
	}
	return exprs
}

// predicate translates a filter into an And of per-column constraints in
// sorted key order. Null values are dropped since they never match.
func predicate(filter source.Filter) queryir.Predicate {
	if len(filter) == 0 {
		return nil
	}
	and := queryir.And{}
	for _, k := range filter.Keys() {
		c := filter[k]
		vals := slices.DeleteFunc(slices.Clone(c.Values), value.IsNull)
		if !c.Multi && len(vals) == 1 {
			and.Predicates = append(and.Predicates, queryir.Equals{Field: k, Value: vals[0]})
			continue
		}
		and.Predicates = append(and.Predicates, queryir.In{Field: k, Values: vals})
	}
	return and
}
