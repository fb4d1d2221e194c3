package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/rowsource/internal/querysql"
)

// DriverName is the database/sql driver registered by this package.
// It is go-sqlite3 with the decimal_sum aggregate installed on every
// connection.
const DriverName = "sqlite3_rowsource"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterAggregator(querysql.DecimalSumFunc, newDecimalSum, true)
		},
	})
}

// Store wraps a SQLite database holding one or more tables of rows.
//
// A Store either owns its database (Open, OpenTemp) and closes it on Close,
// or wraps a caller-managed *sql.DB (Wrap) and leaves it alone.
type Store struct {
	db     *sql.DB
	path   string
	owned  bool
	remove bool // delete path on Close
}

// Open creates or opens a SQLite database at path. Use ":memory:" for a
// private in-memory database.
//
// The pool is limited to one connection. An in-memory database exists
// only on the connection that created it, and SQLite supports a single
// writer anyway.
func Open(path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db, path: path, owned: true}, nil
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

// OpenTemp creates a database file with a unique name in dir (os.TempDir
// when dir is empty). The file is removed on Close.
func OpenTemp(dir string) (*Store, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "rowsource-"+uuid.NewString()+".db")
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	s.remove = true
	return s, nil
}

// Wrap returns a Store over a caller-managed database. Close does not
// close db.
//
// A db opened with the plain "sqlite3" driver lacks decimal_sum; check
// with HasFunction before relying on it.
func Wrap(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the database if the Store owns it.
func (s *Store) Close() error {
	if s.db == nil || !s.owned {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if s.remove {
		for _, p := range []string{s.path, s.path + "-journal"} {
			if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = errors.Join(err, rmErr)
			}
		}
	}
	return err
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, or "" for a wrapped database.
func (s *Store) Path() string {
	return s.path
}

// Owned reports whether Close releases the database.
func (s *Store) Owned() bool {
	return s.owned
}

// Query executes a query and returns the resulting rows.
// Failures are returned as *QueryError.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{SQL: query, Params: args, Err: err}
	}
	return rows, nil
}

// TableColumns returns the column names of table in declaration order.
func (s *Store) TableColumns(ctx context.Context, table string) ([]string, error) {
	const q = "SELECT name FROM pragma_table_info(?) ORDER BY cid"
	rows, err := s.Query(ctx, q, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &QueryError{SQL: q, Params: []any{table}, Err: err}
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{SQL: q, Params: []any{table}, Err: err}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	return cols, nil
}

// CreateIndex creates an index on table over columns. Repeating the same
// request is a no-op.
func (s *Store) CreateIndex(ctx context.Context, table string, columns []string) error {
	if len(columns) == 0 {
		return &ConfigError{Msg: "create index: no columns given"}
	}
	stmt := querysql.CreateIndex(table, columns)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return &QueryError{SQL: stmt, Err: err}
	}
	return nil
}

// HasFunction reports whether the SQL function name can be called on this
// database.
func (s *Store) HasFunction(ctx context.Context, name string) bool {
	var out any
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s(NULL)", name)).Scan(&out)
	if err == nil {
		return true
	}
	return !strings.Contains(err.Error(), "no such function")
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// pragmaValue reads a single-valued pragma. Used by tests.
func (s *Store) pragmaValue(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
