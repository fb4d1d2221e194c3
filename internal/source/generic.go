package source

import (
	"context"
	"iter"

	"github.com/roach88/rowsource/internal/result"
	"github.com/roach88/rowsource/internal/value"
)

// Iterable is the minimum a backend must provide. Generic derives every
// other contract operation from it.
type Iterable interface {
	String() string
	Columns(ctx context.Context) ([]string, error)
	Iterate(ctx context.Context) iter.Seq2[Row, error]
}

// Generic implements the query operations by iterating every row once per
// call. It is the semantic reference: other backends must match its
// Distinct, Sum and Count results for the same rows.
//
// Cost is O(n) per operation with no indexing.
type Generic struct {
	Iterable
}

// NewGeneric wraps it with iteration-based query operations.
func NewGeneric(it Iterable) *Generic {
	return &Generic{Iterable: it}
}

// Distinct returns the distinct tuples of columns among matching rows.
func (g *Generic) Distinct(ctx context.Context, columns []string, filter Filter) (*result.Set, error) {
	if err := g.assertColumns(ctx, columns, nil, filter); err != nil {
		return nil, err
	}

	out := result.NewSet()
	for row, err := range g.filtered(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out.Add(row.Project(columns))
	}
	return out, nil
}

// Sum totals column with exact decimal addition, treating empty values as zero.
func (g *Generic) Sum(ctx context.Context, column string, groupBy []string, filter Filter) (result.Result, error) {
	return g.Reduce(ctx, SumFunc, column, groupBy, value.Decimal{}, filter)
}

// Count counts matching rows.
func (g *Generic) Count(ctx context.Context, groupBy []string, filter Filter) (result.Result, error) {
	return g.Reduce(ctx, CountFunc, "", groupBy, value.Int(0), filter)
}

// Reduce folds fn over column values in iteration order.
//
// Grouped reduction accumulates into one map keyed by group tuple - a
// single pass with no sort.
func (g *Generic) Reduce(ctx context.Context, fn ReduceFunc, column string, groupBy []string, initial value.Value, filter Filter) (result.Result, error) {
	var cols []string
	if column != "" {
		cols = append(cols, column)
	}
	if err := g.assertColumns(ctx, cols, groupBy, filter); err != nil {
		return nil, err
	}
	if initial == nil {
		initial = value.Null{}
	}

	getval := func(row Row) value.Value {
		if column == "" {
			return value.Null{}
		}
		return row.Value(column)
	}

	if len(groupBy) == 0 {
		acc := initial
		for row, err := range g.filtered(ctx, filter) {
			if err != nil {
				return nil, err
			}
			if acc, err = fn(acc, getval(row)); err != nil {
				return nil, err
			}
		}
		return result.Scalar{Value: acc}, nil
	}

	type group struct {
		key result.Tuple
		acc value.Value
	}
	groups := make(map[string]*group)
	for row, err := range g.filtered(ctx, filter) {
		if err != nil {
			return nil, err
		}
		key := result.Tuple(row.Project(groupBy))
		k := key.Key()
		grp, ok := groups[k]
		if !ok {
			grp = &group{key: key, acc: initial}
			groups[k] = grp
		}
		if grp.acc, err = fn(grp.acc, getval(row)); err != nil {
			return nil, err
		}
	}

	out := result.NewMapping(groupBy)
	for _, grp := range groups {
		if err := out.Set(grp.key, grp.acc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// filtered yields the rows matching filter.
func (g *Generic) filtered(ctx context.Context, filter Filter) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for row, err := range g.Iterate(ctx) {
			if err != nil {
				yield(Row{}, err)
				return
			}
			if !filter.Matches(row) {
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

func (g *Generic) assertColumns(ctx context.Context, columns, groupBy []string, filter Filter) error {
	have, err := g.Columns(ctx)
	if err != nil {
		return err
	}
	want := make([]string, 0, len(columns)+len(groupBy)+len(filter))
	want = append(want, columns...)
	want = append(want, groupBy...)
	want = append(want, filter.Keys()...)
	return checkColumns(g, have, want)
}
