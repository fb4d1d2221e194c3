package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/rowsource/internal/logging"
	"github.com/roach88/rowsource/internal/querysql"
	"github.com/roach88/rowsource/internal/value"
)

// Converter turns a Go value into a storable SQLite parameter.
// ok is false when the converter does not handle v.
type Converter func(v any) (param any, ok bool, err error)

// Load creates table and inserts every record in one transaction.
//
// Either the table and all rows are committed, or nothing is: any failure
// rolls back the table creation too, so a later Load of the same name
// starts clean. Failures during creation or insertion are returned as
// *LoadError naming the statement and offending row.
//
// Values pass through convs in order; unhandled values are stored in
// their value.Stored form, so decimals and floats land as text.
//
// synchronous is switched OFF for the duration of the load and restored
// afterwards.
func (s *Store) Load(ctx context.Context, table string, recs Records, convs ...Converter) (err error) {
	columns := recs.Header()
	if len(columns) == 0 {
		return &ConfigError{Msg: fmt.Sprintf("load %s: no columns", table)}
	}
	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = querysql.NormalizeColumn(c)
	}
	if dups := duplicates(normalized); len(dups) > 0 {
		return &ConfigError{Msg: fmt.Sprintf("load %s: duplicate column names: %s", table, strings.Join(dups, ", "))}
	}

	log := logging.WithPhase("load")
	start := time.Now()

	// Pin one connection so the pragma and the transaction share it.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("load %s: acquire connection: %w", table, err)
	}
	defer conn.Close()

	var prevSync int
	if err := conn.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&prevSync); err != nil {
		return fmt.Errorf("load %s: read synchronous: %w", table, err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA synchronous = OFF"); err != nil {
		return fmt.Errorf("load %s: set synchronous: %w", table, err)
	}
	defer func() {
		if _, rerr := conn.ExecContext(context.WithoutCancel(ctx), fmt.Sprintf("PRAGMA synchronous = %d", prevSync)); rerr != nil {
			err = errors.Join(err, fmt.Errorf("load %s: restore synchronous: %w", table, rerr))
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load %s: begin transaction: %w", table, err)
	}
	defer tx.Rollback() // no-op after Commit

	n, err := insertAll(ctx, tx, table, columns, recs, convs)
	if err != nil {
		log.Debug().Str("table", table).Err(err).Msg("load rolled back")
		return err
	}

	if err := tx.Commit(); err != nil {
		return &LoadError{Table: table, SQL: "COMMIT", Err: err}
	}

	log.Debug().
		Str("table", table).
		Int("columns", len(columns)).
		Int("rows", n).
		Dur("elapsed", time.Since(start)).
		Msg("table loaded")
	return nil
}

func insertAll(ctx context.Context, tx *sql.Tx, table string, columns []string, recs Records, convs []Converter) (int, error) {
	create := querysql.CreateTable(table, columns)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, &LoadError{Table: table, SQL: create, Err: err}
	}

	insert := querysql.Insert(table, len(columns))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, &LoadError{Table: table, SQL: insert, Err: err}
	}
	defer stmt.Close()

	n := 0
	for row, err := range recs.Each() {
		if err != nil {
			return n, &LoadError{Table: table, Row: row.Raw, SQL: insert, Err: err}
		}
		if len(row.Values) != len(columns) {
			return n, &LoadError{
				Table: table, Row: row.Raw, SQL: insert,
				Err: fmt.Errorf("row has %d values, table has %d columns", len(row.Values), len(columns)),
			}
		}
		params, err := toParams(row.Values, convs)
		if err != nil {
			return n, &LoadError{Table: table, Row: row.Raw, SQL: insert, Err: err}
		}
		if _, err := stmt.ExecContext(ctx, params...); err != nil {
			return n, &LoadError{Table: table, Row: row.Raw, SQL: insert, Params: params, Err: err}
		}
		n++
	}
	return n, nil
}

func toParams(vals []any, convs []Converter) ([]any, error) {
	params := make([]any, len(vals))
next:
	for i, v := range vals {
		for _, conv := range convs {
			p, ok, err := conv(v)
			if err != nil {
				return nil, fmt.Errorf("convert column %d: %w", i, err)
			}
			if ok {
				params[i] = p
				continue next
			}
		}
		val, err := value.Stored(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		params[i] = value.ToParam(val)
	}
	return params, nil
}
