package result

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rowsource/internal/value"
)

// Result is a sealed interface over the three query outputs a source
// produces: a Scalar, a *Set of distinct tuples, or a *Mapping of group
// keys to aggregate values.
type Result interface {
	result() // Sealed - only types in this package implement it
}

// Tuple is an ordered list of column values.
type Tuple []value.Value

// Key returns the canonical identity of the tuple (see value.Key).
func (t Tuple) Key() string {
	return value.Key(t)
}

// String renders the tuple like ("A", 15).
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = formatValue(v)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v value.Value) string {
	switch v.(type) {
	case value.Text:
		return fmt.Sprintf("%q", v.String())
	case nil, value.Null:
		return "NULL"
	default:
		return v.String()
	}
}

// T builds a Tuple from Go values. Panics on unsupported types; intended
// for tests and literals.
func T(vals ...any) Tuple {
	t := make(Tuple, len(vals))
	for i, v := range vals {
		conv, err := value.FromAny(v)
		if err != nil {
			panic(err)
		}
		t[i] = conv
	}
	return t
}

// Scalar is an ungrouped aggregate value.
type Scalar struct {
	Value value.Value
}

func (Scalar) result() {}

// Set is an unordered collection of distinct tuples.
// The zero value is not usable; construct with NewSet.
type Set struct {
	items map[string]Tuple
}

func (*Set) result() {}

// NewSet creates a Set containing the given tuples (duplicates collapse).
func NewSet(tuples ...Tuple) *Set {
	s := &Set{items: make(map[string]Tuple, len(tuples))}
	for _, t := range tuples {
		s.Add(t)
	}
	return s
}

// Add inserts t. Reports whether t was not already present.
func (s *Set) Add(t Tuple) bool {
	k := t.Key()
	if _, ok := s.items[k]; ok {
		return false
	}
	s.items[k] = slices.Clone(t)
	return true
}

// Contains reports whether t is in the set.
func (s *Set) Contains(t Tuple) bool {
	_, ok := s.items[t.Key()]
	return ok
}

// Len returns the number of distinct tuples.
func (s *Set) Len() int {
	return len(s.items)
}

// Tuples returns the members in deterministic (sorted) order.
func (s *Set) Tuples() []Tuple {
	out := make([]Tuple, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Tuple) int { return value.CompareTuples(a, b) })
	return out
}

// Union adds every tuple of other to s.
func (s *Set) Union(other *Set) {
	for k, t := range other.items {
		if _, ok := s.items[k]; !ok {
			s.items[k] = t
		}
	}
}

// Equal reports whether both sets hold the same tuples.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for k := range s.items {
		if _, ok := other.items[k]; !ok {
			return false
		}
	}
	return true
}

func (s *Set) String() string {
	ts := s.Tuples()
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Entry is one group of a Mapping.
type Entry struct {
	Key   Tuple
	Value value.Value
}

// Mapping maps group-key tuples to aggregate values.
//
// INVARIANT: every key has len(KeyNames()) elements.
type Mapping struct {
	keyNames []string
	entries  map[string]Entry
}

func (*Mapping) result() {}

// NewMapping creates an empty Mapping keyed by the given column names.
func NewMapping(keyNames []string) *Mapping {
	return &Mapping{
		keyNames: slices.Clone(keyNames),
		entries:  make(map[string]Entry),
	}
}

// KeyNames returns the group-by columns the keys are expressed in.
func (m *Mapping) KeyNames() []string {
	return slices.Clone(m.keyNames)
}

// Set stores v under key. Returns an error if the key arity does not
// match KeyNames.
func (m *Mapping) Set(key Tuple, v value.Value) error {
	if len(key) != len(m.keyNames) {
		return fmt.Errorf("key %s has %d values, mapping is keyed by %d columns %v",
			key, len(key), len(m.keyNames), m.keyNames)
	}
	m.entries[key.Key()] = Entry{Key: slices.Clone(key), Value: v}
	return nil
}

// Get returns the value stored under key.
func (m *Mapping) Get(key Tuple) (value.Value, bool) {
	e, ok := m.entries[key.Key()]
	return e.Value, ok
}

// Len returns the number of groups.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Entries returns all groups in deterministic key order.
func (m *Mapping) Entries() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return value.CompareTuples(a.Key, b.Key) })
	return out
}

// Equal reports whether both mappings have the same keys with Equal values.
// Key names are not compared.
func (m *Mapping) Equal(other *Mapping) bool {
	if m.Len() != other.Len() {
		return false
	}
	for k, e := range m.entries {
		o, ok := other.entries[k]
		if !ok || !value.Equal(e.Value, o.Value) {
			return false
		}
	}
	return true
}

func (m *Mapping) String() string {
	es := m.Entries()
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Key.String() + ": " + formatValue(e.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
