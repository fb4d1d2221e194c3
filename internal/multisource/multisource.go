package multisource

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/roach88/rowsource/internal/result"
	"github.com/roach88/rowsource/internal/source"
	"github.com/roach88/rowsource/internal/value"
)

// Source presents several member sources as one over the union of their
// columns. Columns a member lacks read as the empty string.
//
// Members are not owned: closing them is the caller's job.
type Source struct {
	*source.Generic
	members []source.Source
}

var _ source.Source = (*Source)(nil)

// New creates a composite over members, in order.
func New(members ...source.Source) *Source {
	m := &Source{members: slices.Clone(members)}
	m.Generic = source.NewGeneric(m)
	return m
}

// Members returns the member sources.
func (m *Source) Members() []source.Source {
	return slices.Clone(m.members)
}

// String lists the members, one per line.
func (m *Source) String() string {
	var b strings.Builder
	b.WriteString("MultiSource(\n")
	for i, member := range m.members {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("    ")
		b.WriteString(member.String())
	}
	b.WriteString("\n)")
	return b.String()
}

// Columns returns the union of member columns in first-seen order.
func (m *Source) Columns(ctx context.Context) ([]string, error) {
	var all []string
	for _, member := range m.members {
		cols, err := member.Columns(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if !slices.Contains(all, c) {
				all = append(all, c)
			}
		}
	}
	return all, nil
}

// Iterate yields every member's rows in member order, widened to the
// union of columns. Absent columns hold value.Empty.
func (m *Source) Iterate(ctx context.Context) iter.Seq2[source.Row, error] {
	return func(yield func(source.Row, error) bool) {
		cols, err := m.Columns(ctx)
		if err != nil {
			yield(source.Row{}, err)
			return
		}
		schema, err := source.NewSchema(cols)
		if err != nil {
			yield(source.Row{}, err)
			return
		}

		for _, member := range m.members {
			for row, err := range member.Iterate(ctx) {
				if err != nil {
					yield(source.Row{}, err)
					return
				}
				vals := make([]value.Value, len(cols))
				for i, c := range cols {
					v, ok := row.Get(c)
					if !ok {
						v = value.Empty
					}
					vals[i] = v
				}
				wide, err := source.NewRow(schema, vals)
				if !yield(wide, err) || err != nil {
					return
				}
			}
		}
	}
}

// Distinct merges each member's distinct tuples, padded to columns.
//
// A member with none of the requested columns that still has matching rows
// contributes one all-empty tuple.
func (m *Source) Distinct(ctx context.Context, columns []string, filter source.Filter) (*result.Set, error) {
	if err := m.assert(ctx, columns, nil, filter); err != nil {
		return nil, err
	}

	out := result.NewSet()
	for _, member := range m.members {
		have, err := member.Columns(ctx)
		if err != nil {
			return nil, err
		}
		sub, ok := subFilter(have, filter)
		if !ok {
			continue
		}

		subcols := intersect(columns, have)
		if len(subcols) == 0 {
			n, err := count(ctx, member, sub)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				out.Add(padding(len(columns)))
			}
			continue
		}

		res, err := member.Distinct(ctx, subcols, sub)
		if err != nil {
			return nil, err
		}
		norm, err := result.Normalize(res, subcols, columns)
		if err != nil {
			return nil, err
		}
		out.Union(norm.(*result.Set))
	}
	return out, nil
}

// Sum adds each member's sum. Members without column contribute nothing.
func (m *Source) Sum(ctx context.Context, column string, groupBy []string, filter source.Filter) (result.Result, error) {
	if err := m.assert(ctx, []string{column}, groupBy, filter); err != nil {
		return nil, err
	}

	return m.combine(ctx, groupBy, filter, value.Decimal{},
		func(have []string) bool { return slices.Contains(have, column) },
		func(member source.Source, subgroup []string, sub source.Filter) (result.Result, error) {
			return member.Sum(ctx, column, subgroup, sub)
		})
}

// Count adds each member's count.
func (m *Source) Count(ctx context.Context, groupBy []string, filter source.Filter) (result.Result, error) {
	if err := m.assert(ctx, nil, groupBy, filter); err != nil {
		return nil, err
	}

	return m.combine(ctx, groupBy, filter, value.Int(0),
		func([]string) bool { return true },
		func(member source.Source, subgroup []string, sub source.Filter) (result.Result, error) {
			return member.Count(ctx, subgroup, sub)
		})
}

// combine runs an additive aggregate on every eligible member and adds the
// results. Grouped member results are normalized to groupBy first. A
// member holding none of the group columns is queried ungrouped and its
// total lands under the all-empty key, provided it has matching rows.
func (m *Source) combine(
	ctx context.Context,
	groupBy []string,
	filter source.Filter,
	zero value.Value,
	eligible func(have []string) bool,
	call func(member source.Source, subgroup []string, sub source.Filter) (result.Result, error),
) (result.Result, error) {
	var total value.Value = zero
	grouped := result.NewMapping(groupBy)

	add := func(key result.Tuple, v value.Value) error {
		acc, ok := grouped.Get(key)
		if !ok {
			acc = zero
		}
		sum, err := plus(acc, v)
		if err != nil {
			return err
		}
		return grouped.Set(key, sum)
	}

	for _, member := range m.members {
		have, err := member.Columns(ctx)
		if err != nil {
			return nil, err
		}
		if !eligible(have) {
			continue
		}
		sub, ok := subFilter(have, filter)
		if !ok {
			continue
		}

		if len(groupBy) == 0 {
			res, err := call(member, nil, sub)
			if err != nil {
				return nil, err
			}
			v, err := source.ScalarValue(res)
			if err != nil {
				return nil, err
			}
			if total, err = plus(total, v); err != nil {
				return nil, err
			}
			continue
		}

		subgroup := intersect(groupBy, have)
		if len(subgroup) == 0 {
			n, err := count(ctx, member, sub)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				continue
			}
			res, err := call(member, nil, sub)
			if err != nil {
				return nil, err
			}
			v, err := source.ScalarValue(res)
			if err != nil {
				return nil, err
			}
			if err := add(padding(len(groupBy)), v); err != nil {
				return nil, err
			}
			continue
		}

		res, err := call(member, subgroup, sub)
		if err != nil {
			return nil, err
		}
		norm, err := result.Normalize(res, subgroup, groupBy)
		if err != nil {
			return nil, err
		}
		mapping, ok := norm.(*result.Mapping)
		if !ok {
			return nil, fmt.Errorf("%w, got %T", result.ErrResultKind, norm)
		}
		for _, e := range mapping.Entries() {
			if err := add(e.Key, e.Value); err != nil {
				return nil, err
			}
		}
	}

	if len(groupBy) == 0 {
		return result.Scalar{Value: total}, nil
	}
	return grouped, nil
}

func (m *Source) assert(ctx context.Context, columns, groupBy []string, filter source.Filter) error {
	want := slices.Concat(columns, groupBy, filter.Keys())
	return source.AssertColumns(ctx, m, want...)
}

// subFilter restricts filter to the columns a member has. A constraint on
// a missing column holds only if it accepts the empty string, since that
// is what the member's rows read as; otherwise the member is excluded.
func subFilter(have []string, filter source.Filter) (source.Filter, bool) {
	sub := source.Filter{}
	for k, c := range filter {
		if slices.Contains(have, k) {
			sub[k] = c
			continue
		}
		if !c.AllowsEmpty() {
			return nil, false
		}
	}
	return sub, true
}

// intersect returns the members of want found in have, in want order.
func intersect(want, have []string) []string {
	var out []string
	for _, c := range want {
		if slices.Contains(have, c) {
			out = append(out, c)
		}
	}
	return out
}

func padding(n int) result.Tuple {
	t := make(result.Tuple, n)
	for i := range t {
		t[i] = value.Empty
	}
	return t
}

func count(ctx context.Context, member source.Source, filter source.Filter) (int64, error) {
	res, err := member.Count(ctx, nil, filter)
	if err != nil {
		return 0, err
	}
	v, err := source.ScalarValue(res)
	if err != nil {
		return 0, err
	}
	n, ok := v.(value.Int)
	if !ok {
		return 0, fmt.Errorf("count of %s returned %T", member, v)
	}
	return int64(n), nil
}

// plus adds two aggregate values, staying integral when both are Int.
func plus(a, b value.Value) (value.Value, error) {
	if x, ok := a.(value.Int); ok {
		if y, ok := b.(value.Int); ok {
			return x + y, nil
		}
	}
	return source.SumFunc(a, b)
}
