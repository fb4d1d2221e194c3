package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/rs/zerolog"

	"github.com/roach88/rowsource/internal/logging"
	"github.com/roach88/rowsource/internal/queryir"
	"github.com/roach88/rowsource/internal/querysql"
	"github.com/roach88/rowsource/internal/source"
	"github.com/roach88/rowsource/internal/store"
	"github.com/roach88/rowsource/internal/value"
)

// Source is a source.Source backed by one SQLite table. Every query
// operation compiles to a single SQL statement.
type Source struct {
	store    *store.Store
	table    string
	name     string
	schema   *source.Schema
	compiler *querysql.SQLCompiler
	log      zerolog.Logger
}

var (
	_ source.Source  = (*Source)(nil)
	_ source.Indexer = (*Source)(nil)
)

// New returns a Source over an existing table. Close closes st only when
// st owns its database; use store.Wrap to keep a database open.
func New(ctx context.Context, st *store.Store, table string, opts ...Option) (*Source, error) {
	o := buildOptions(opts)
	cols, err := st.TableColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("open table %q: %w", table, err)
	}
	schema, err := source.NewSchema(cols)
	if err != nil {
		return nil, err
	}

	s := &Source{
		store:    st,
		table:    table,
		name:     o.name,
		schema:   schema,
		compiler: querysql.NewSQLCompiler(),
		log:      logging.WithPhase("query"),
	}
	if !st.HasFunction(ctx, querysql.DecimalSumFunc) {
		// Wrapped databases may not carry the aggregate; Sum then folds
		// client side.
		s.compiler.SumFunc = ""
		s.log.Debug().Str("table", table).Msg("decimal_sum unavailable, summing client side")
	}
	return s, nil
}

// NewDB returns a Source over table in a caller-managed database.
func NewDB(ctx context.Context, db *sql.DB, table string, opts ...Option) (*Source, error) {
	return New(ctx, store.Wrap(db), table, opts...)
}

// FromRecords bulk loads recs into a fresh database owned by the returned
// Source. Call Close to release it.
func FromRecords(ctx context.Context, recs store.Records, opts ...Option) (*Source, error) {
	o := buildOptions(opts)

	var st *store.Store
	var err error
	if o.onDisk {
		st, err = store.OpenTemp(o.dir)
	} else {
		st, err = store.OpenMemory()
	}
	if err != nil {
		return nil, err
	}

	if err := st.Load(ctx, o.table, recs, o.converters...); err != nil {
		st.Close()
		return nil, err
	}

	s, err := New(ctx, st, o.table, opts...)
	if err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database when the Source owns it.
func (s *Source) Close() error {
	return s.store.Close()
}

// Store returns the underlying store.
func (s *Source) Store() *store.Store {
	return s.store
}

// Table returns the table name.
func (s *Source) Table() string {
	return s.table
}

// String returns the source's descriptive identity.
func (s *Source) String() string {
	if s.name != "" {
		return s.name
	}
	if p := s.store.Path(); p != "" {
		return fmt.Sprintf("SqliteSource(%q, table=%q)", p, s.table)
	}
	return fmt.Sprintf("SqliteSource(<sql.DB>, table=%q)", s.table)
}

// Columns returns the table's columns in declaration order.
func (s *Source) Columns(context.Context) ([]string, error) {
	return s.schema.Names(), nil
}

// Iterate streams every row of the table.
//
// The store has a single connection: do not issue other queries on the
// same store until iteration finishes or is stopped.
func (s *Source) Iterate(ctx context.Context) iter.Seq2[source.Row, error] {
	return func(yield func(source.Row, error) bool) {
		q := selectRows(s.table, s.schema.Names())
		for vals, err := range s.query(ctx, q) {
			if err != nil {
				yield(source.Row{}, err)
				return
			}
			row, err := source.NewRow(s.schema, vals)
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// CreateIndex creates an index over columns. Repeating a request is a
// no-op, and indexes never change results.
func (s *Source) CreateIndex(ctx context.Context, columns ...string) error {
	if err := s.assertColumns(columns, nil, nil); err != nil {
		return err
	}
	if err := s.store.CreateIndex(ctx, s.table, columns); err != nil {
		return err
	}
	s.log.Debug().Str("table", s.table).Strs("columns", columns).Msg("index created")
	return nil
}

func (s *Source) assertColumns(columns, groupBy []string, filter source.Filter) error {
	var missing []string
	seen := map[string]bool{}
	for _, group := range [][]string{columns, groupBy, filter.Keys()} {
		for _, c := range group {
			if !s.schema.Has(c) && !seen[c] {
				seen[c] = true
				missing = append(missing, c)
			}
		}
	}
	if len(missing) > 0 {
		return &source.SchemaError{Missing: missing, Source: s.String()}
	}
	return nil
}

// query runs a compiled query and yields each row's values.
func (s *Source) query(ctx context.Context, sel queryir.Select) iter.Seq2[[]value.Value, error] {
	return func(yield func([]value.Value, error) bool) {
		sqlText, params, err := s.compiler.Compile(sel)
		if err != nil {
			yield(nil, err)
			return
		}
		s.log.Debug().Str("sql", sqlText).Interface("params", params).Msg("query")

		rows, err := s.store.Query(ctx, sqlText, params...)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		n := len(sel.Columns)
		for rows.Next() {
			raw := make([]any, n)
			ptrs := make([]any, n)
			for i := range raw {
				ptrs[i] = &raw[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				yield(nil, &store.QueryError{SQL: sqlText, Params: params, Err: err})
				return
			}
			vals := make([]value.Value, n)
			for i, r := range raw {
				if vals[i], err = value.FromSQL(r); err != nil {
					yield(nil, err)
					return
				}
			}
			if !yield(vals, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, &store.QueryError{SQL: sqlText, Params: params, Err: err})
		}
	}
}
