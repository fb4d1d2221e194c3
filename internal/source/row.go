package source

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rowsource/internal/value"
)

// Schema is an ordered set of unique column names.
// Schemas are immutable and shared by every Row of a source.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema creates a Schema. Duplicate names are rejected.
func NewSchema(names []string) (*Schema, error) {
	s := &Schema{
		names: slices.Clone(names),
		index: make(map[string]int, len(names)),
	}
	var dups []string
	for i, n := range names {
		if _, ok := s.index[n]; ok {
			if !slices.Contains(dups, n) {
				dups = append(dups, n)
			}
			continue
		}
		s.index[n] = i
	}
	if len(dups) > 0 {
		return nil, fmt.Errorf("duplicate column names: %s", strings.Join(dups, ", "))
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error.
func MustSchema(names ...string) *Schema {
	s, err := NewSchema(names)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the column names in declaration order.
func (s *Schema) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.names)
}

// Index returns the position of name, or -1.
func (s *Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the schema contains name.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Row is a record with a fixed, named set of fields.
type Row struct {
	schema *Schema
	values []value.Value
}

// NewRow creates a Row over schema. The number of values must match.
func NewRow(schema *Schema, values []value.Value) (Row, error) {
	if len(values) != schema.Len() {
		return Row{}, fmt.Errorf("row has %d values, schema has %d columns %v",
			len(values), schema.Len(), schema.names)
	}
	return Row{schema: schema, values: values}, nil
}

// Get returns the value of column name.
func (r Row) Get(name string) (value.Value, bool) {
	i := r.schema.Index(name)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// Value returns the value of column name, or Null if absent.
func (r Row) Value(name string) value.Value {
	if v, ok := r.Get(name); ok {
		return v
	}
	return value.Null{}
}

// Columns returns the row's column names.
func (r Row) Columns() []string {
	return r.schema.Names()
}

// Values returns the values in column order.
func (r Row) Values() []value.Value {
	return slices.Clone(r.values)
}

// Map returns the row as a name → value map.
func (r Row) Map() map[string]value.Value {
	m := make(map[string]value.Value, len(r.values))
	for i, n := range r.schema.names {
		m[n] = r.values[i]
	}
	return m
}

// Project returns the values of the given columns, in that order.
// Absent columns yield Null.
func (r Row) Project(columns []string) []value.Value {
	out := make([]value.Value, len(columns))
	for i, c := range columns {
		out[i] = r.Value(c)
	}
	return out
}
