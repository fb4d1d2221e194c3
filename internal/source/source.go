package source

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/roach88/rowsource/internal/result"
	"github.com/roach88/rowsource/internal/value"
)

// Source is the capability set every backend implements.
//
// All backends MUST produce the same logical results for the same rows:
// Distinct sets, Sum/Count values and grouped mappings are compared order-free.
// Reduce is the exception - see ReduceFunc.
type Source interface {
	// String returns the source's descriptive identity (used in errors).
	String() string

	// Columns returns the ordered column names. Stable for the source's lifetime.
	Columns(ctx context.Context) ([]string, error)

	// Iterate returns a restartable, finite sequence of rows.
	// Each call starts from the first row.
	Iterate(ctx context.Context) iter.Seq2[Row, error]

	// Distinct returns the distinct tuples of the given columns among rows
	// matching filter.
	Distinct(ctx context.Context, columns []string, filter Filter) (*result.Set, error)

	// Sum totals column as exact decimals (empty and null count as zero).
	// With no groupBy the result is a result.Scalar, otherwise a *result.Mapping.
	Sum(ctx context.Context, column string, groupBy []string, filter Filter) (result.Result, error)

	// Count counts rows, optionally grouped.
	Count(ctx context.Context, groupBy []string, filter Filter) (result.Result, error)

	// Reduce folds fn over the values of column (Null for every row when
	// column is ""), starting from initial, optionally per group.
	Reduce(ctx context.Context, fn ReduceFunc, column string, groupBy []string, initial value.Value, filter Filter) (result.Result, error)
}

// Indexer is implemented by sources that can build secondary indexes.
// Indexes never change query results, only their cost.
type Indexer interface {
	CreateIndex(ctx context.Context, columns ...string) error
}

// ReduceFunc combines an accumulator with the next value.
//
// Values are folded in the backend's iteration order. The iteration
// backend folds in row order; the relational backend folds grouped values
// in engine-sorted order. Only associative and commutative functions give
// identical results across backends.
type ReduceFunc func(acc, v value.Value) (value.Value, error)

// SumFunc adds v to acc as exact decimals, treating empty values as zero.
func SumFunc(acc, v value.Value) (value.Value, error) {
	a, err := value.ToDecimal(acc)
	if err != nil {
		return nil, err
	}
	b, err := value.ToDecimal(v)
	if err != nil {
		return nil, err
	}
	return value.Add(a, b)
}

// CountFunc increments acc, ignoring v.
func CountFunc(acc, _ value.Value) (value.Value, error) {
	n, ok := acc.(value.Int)
	if !ok {
		return nil, fmt.Errorf("count accumulator must be Int, got %T", acc)
	}
	return n + 1, nil
}

// ScalarValue unwraps a result.Scalar. It returns an error for grouped results.
func ScalarValue(r result.Result) (value.Value, error) {
	s, ok := r.(result.Scalar)
	if !ok {
		return nil, fmt.Errorf("expected scalar result, got %T", r)
	}
	return s.Value, nil
}

// AssertColumns returns a *SchemaError naming every column in want that
// src does not have.
func AssertColumns(ctx context.Context, src Source, want ...string) error {
	have, err := src.Columns(ctx)
	if err != nil {
		return err
	}
	return checkColumns(src, have, want)
}

func checkColumns(src fmt.Stringer, have, want []string) error {
	known := make(map[string]struct{}, len(have))
	for _, c := range have {
		known[c] = struct{}{}
	}
	var missing []string
	for _, c := range want {
		if _, ok := known[c]; !ok && !slices.Contains(missing, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing, Source: src.String()}
	}
	return nil
}
