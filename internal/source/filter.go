package source

import (
	"slices"
	"sort"

	"github.com/roach88/rowsource/internal/value"
)

// Constraint restricts a column to a set of values.
// A single-value constraint compiles to equality, a multi-value one to
// membership.
type Constraint struct {
	Values []value.Value
	Multi  bool
}

// Eq constrains a column to equal v.
func Eq(v any) Constraint {
	return Constraint{Values: []value.Value{mustValue(v)}}
}

// In constrains a column to be one of vs.
func In(vs ...any) Constraint {
	c := Constraint{Values: make([]value.Value, len(vs)), Multi: true}
	for i, v := range vs {
		c.Values[i] = mustValue(v)
	}
	return c
}

func mustValue(v any) value.Value {
	conv, err := value.Stored(v)
	if err != nil {
		panic(err)
	}
	return conv
}

// Matches reports whether v is a member of the constraint's value set.
// Null never matches, not even a Null constraint value, as in SQL.
// Decimals on either side compare by their text form, the way they are
// bound as SQL parameters.
func (c Constraint) Matches(v value.Value) bool {
	if value.IsNull(v) {
		return false
	}
	v = value.Canonical(v)
	return slices.ContainsFunc(c.Values, func(want value.Value) bool {
		return value.Equal(value.Canonical(want), v)
	})
}

// AllowsEmpty reports whether the empty-string sentinel satisfies c.
func (c Constraint) AllowsEmpty() bool {
	return c.Matches(value.Empty)
}

// Filter maps column names to constraints. A row matches when every
// constraint matches. A nil or empty Filter matches every row.
type Filter map[string]Constraint

// Keys returns the constrained columns in sorted order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Matches reports whether row satisfies every constraint.
func (f Filter) Matches(row Row) bool {
	for k, c := range f {
		v, ok := row.Get(k)
		if !ok || !c.Matches(v) {
			return false
		}
	}
	return true
}
