package source

import (
	"context"
	"fmt"
	"iter"

	"github.com/roach88/rowsource/internal/value"
)

// Rows is an in-memory Source over a fixed slice of rows, queried with the
// iteration backend.
type Rows struct {
	*Generic
	name   string
	schema *Schema
	rows   [][]value.Value
}

var _ Source = (*Rows)(nil)

// NewRows creates an in-memory source. Each row must have one value per
// column; values are converted with value.Stored, the same conversion the
// relational backend applies on load.
func NewRows(name string, columns []string, rows ...[]any) (*Rows, error) {
	schema, err := NewSchema(columns)
	if err != nil {
		return nil, err
	}
	r := &Rows{name: name, schema: schema, rows: make([][]value.Value, len(rows))}
	for i, row := range rows {
		if len(row) != schema.Len() {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), schema.Len())
		}
		vals := make([]value.Value, len(row))
		for j, v := range row {
			if vals[j], err = value.Stored(v); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, columns[j], err)
			}
		}
		r.rows[i] = vals
	}
	r.Generic = NewGeneric(r)
	return r, nil
}

// String returns the source's descriptive identity.
func (r *Rows) String() string {
	if r.name != "" {
		return fmt.Sprintf("Rows(%q)", r.name)
	}
	return fmt.Sprintf("Rows(%d rows)", len(r.rows))
}

// Columns returns the column names.
func (r *Rows) Columns(context.Context) ([]string, error) {
	return r.schema.Names(), nil
}

// Iterate yields every row in insertion order.
func (r *Rows) Iterate(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for _, vals := range r.rows {
			if err := ctx.Err(); err != nil {
				yield(Row{}, err)
				return
			}
			if !yield(Row{schema: r.schema, values: vals}, nil) {
				return
			}
		}
	}
}
