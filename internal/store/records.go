package store

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"
)

// Records is a sealed interface over the row inputs Load accepts.
//
// Record types:
//   - PositionalRows: ordered values matching Columns
//   - NamedRows: name-keyed maps, reordered to Columns before insertion
//   - StreamRows: a lazily produced sequence of positional rows
type Records interface {
	// Header returns the declared column order.
	Header() []string

	// Each yields every row as ordered values. The raw record is yielded
	// alongside for error reporting.
	Each() iter.Seq2[Row, error]

	records() // Marker method - seals interface to this package
}

// Row is one positional row produced by Records.Each.
type Row struct {
	Values []any
	Raw    any
}

// PositionalRows holds rows whose values are in Columns order.
type PositionalRows struct {
	Columns []string
	Rows    [][]any
}

func (PositionalRows) records() {}

// Header returns the declared column order.
func (p PositionalRows) Header() []string { return p.Columns }

// Each yields the rows as given.
func (p PositionalRows) Each() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for _, r := range p.Rows {
			if !yield(Row{Values: r, Raw: r}, nil) {
				return
			}
		}
	}
}

// NamedRows holds name-keyed rows. When Columns is empty, the column order
// is the sorted key set of the first row.
type NamedRows struct {
	Columns []string
	Rows    []map[string]any
}

func (NamedRows) records() {}

// Header returns Columns, or the sorted keys of the first row.
func (n NamedRows) Header() []string {
	if len(n.Columns) > 0 || len(n.Rows) == 0 {
		return n.Columns
	}
	keys := make([]string, 0, len(n.Rows[0]))
	for k := range n.Rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Each reorders every row to Header order. A row missing a declared column
// fails with a *ConfigError.
func (n NamedRows) Each() iter.Seq2[Row, error] {
	header := n.Header()
	return func(yield func(Row, error) bool) {
		for i, m := range n.Rows {
			vals := make([]any, len(header))
			var missing []string
			for j, c := range header {
				v, ok := m[c]
				if !ok {
					missing = append(missing, c)
					continue
				}
				vals[j] = v
			}
			if len(missing) > 0 {
				yield(Row{Raw: m}, &ConfigError{
					Msg: fmt.Sprintf("row %d is missing columns: %s", i, strings.Join(missing, ", ")),
				})
				return
			}
			if !yield(Row{Values: vals, Raw: m}, nil) {
				return
			}
		}
	}
}

// StreamRows adapts a lazily produced row sequence, such as a file reader.
type StreamRows struct {
	Columns []string
	Rows    iter.Seq2[[]any, error]
}

func (StreamRows) records() {}

// Header returns the declared column order.
func (s StreamRows) Header() []string { return s.Columns }

// Each yields the rows as produced.
func (s StreamRows) Each() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if s.Rows == nil {
			return
		}
		for r, err := range s.Rows {
			if !yield(Row{Values: r, Raw: r}, err) || err != nil {
				return
			}
		}
	}
}

// duplicates returns names occurring more than once, in first-seen order.
func duplicates(names []string) []string {
	seen := make(map[string]bool, len(names))
	var dups []string
	for _, n := range names {
		if seen[n] && !slices.Contains(dups, n) {
			dups = append(dups, n)
		}
		seen[n] = true
	}
	return dups
}
