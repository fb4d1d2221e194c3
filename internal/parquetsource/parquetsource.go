// Package parquetsource loads flat Parquet files into a relational source.
package parquetsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/roach88/rowsource/internal/logging"
	"github.com/roach88/rowsource/internal/sqlsource"
	"github.com/roach88/rowsource/internal/store"
)

// Source is a relational source loaded from a Parquet file.
type Source struct {
	*sqlsource.Source
	file string
}

// New loads the Parquet file at path. Only flat schemas (no groups, no
// repeated fields) are supported.
func New(ctx context.Context, path string, opts ...sqlsource.Option) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet: %w", err)
	}
	return FromReaderAt(ctx, f, info.Size(), path, opts...)
}

// FromReaderAt loads Parquet data of the given size from r. name
// identifies the data in String.
func FromReaderAt(ctx context.Context, r io.ReaderAt, size int64, name string, opts ...sqlsource.Option) (*Source, error) {
	log := logging.WithPhase("parquet_load")

	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet file %s: %w", name, err)
	}

	columns, err := flatColumns(file.Schema())
	if err != nil {
		return nil, fmt.Errorf("parquet %s: %w", name, err)
	}

	recs := store.StreamRows{Columns: columns, Rows: readRows(file, len(columns))}
	opts = append(opts, sqlsource.WithName(fmt.Sprintf("ParquetSource(%q)", name)))
	src, err := sqlsource.FromRecords(ctx, recs, opts...)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("file", name).
		Strs("columns", columns).
		Int64("rows", file.NumRows()).
		Msg("parquet loaded")
	return &Source{Source: src, file: name}, nil
}

// String returns the source's descriptive identity.
func (s *Source) String() string {
	return fmt.Sprintf("ParquetSource(%q)", s.file)
}

// flatColumns returns the leaf column names, rejecting nested schemas.
func flatColumns(schema *parquet.Schema) ([]string, error) {
	fields := schema.Fields()
	columns := make([]string, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("column %q is a group; only flat schemas are supported", field.Name())
		}
		if field.Repeated() {
			return nil, fmt.Errorf("column %q is repeated; only flat schemas are supported", field.Name())
		}
		columns[i] = field.Name()
	}
	return columns, nil
}

// readRows streams every row group in order, 1024 rows at a time.
func readRows(file *parquet.File, width int) func(yield func([]any, error) bool) {
	return func(yield func([]any, error) bool) {
		buf := make([]parquet.Row, 1024)
		for _, rg := range file.RowGroups() {
			rows := rg.Rows()
			for {
				n, err := rows.ReadRows(buf)
				for _, row := range buf[:n] {
					out := make([]any, width)
					for _, val := range row {
						if c := val.Column(); c >= 0 && c < width {
							out[c] = goValue(val)
						}
					}
					if !yield(out, nil) {
						rows.Close()
						return
					}
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					rows.Close()
					yield(nil, fmt.Errorf("read parquet rows: %w", err))
					return
				}
			}
			rows.Close()
		}
	}
}

// goValue converts a Parquet value to a type store.Load accepts.
// Floating point values are passed as their shortest decimal text so
// they load as exact decimals.
func goValue(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
