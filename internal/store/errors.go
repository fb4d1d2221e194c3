package store

import (
	"fmt"
	"strings"
)

// QueryError wraps a failed statement with its SQL and parameters.
// Unwrap returns the driver error (usually sqlite3.Error).
type QueryError struct {
	SQL    string
	Params []any
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%v\n  query: %s\n  params: %v", e.Err, e.SQL, e.Params)
}

func (e *QueryError) Unwrap() error { return e.Err }

// LoadError reports a failed bulk load. The whole load has been rolled
// back when it is returned.
type LoadError struct {
	Table string
	// Row is the offending record, nil when table creation failed.
	Row    any
	SQL    string
	Params []any
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s: %s", e.Table, strings.TrimSpace(e.Err.Error()))
	if e.Row != nil {
		fmt.Fprintf(&b, "\n    row -> %v", e.Row)
	}
	fmt.Fprintf(&b, "\n    sql -> %s", e.SQL)
	if e.Params != nil {
		fmt.Fprintf(&b, "\n params -> %v", e.Params)
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

// ConfigError reports invalid input detected before any statement runs,
// such as duplicate column names.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }
