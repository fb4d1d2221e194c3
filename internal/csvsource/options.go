package csvsource

import (
	"github.com/roach88/rowsource/internal/logging"
	"github.com/roach88/rowsource/internal/sqlsource"
)

type options struct {
	encoding  string
	baseDir   string
	onWarning func(EncodingWarning)
	sqlOpts   []sqlsource.Option
}

// Option configures loading.
type Option func(*options)

// WithEncoding sets the IANA name of the file's text encoding. Decoding
// errors are then fatal; no fallback is tried.
func WithEncoding(name string) Option {
	return func(o *options) { o.encoding = name }
}

// WithBaseDir resolves relative paths against dir.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// OnWarning receives non-fatal encoding warnings. The default logs them.
func OnWarning(fn func(EncodingWarning)) Option {
	return func(o *options) { o.onWarning = fn }
}

// InMemory loads into an in-memory database instead of a temp file.
func InMemory() Option {
	return func(o *options) { o.sqlOpts = append(o.sqlOpts, sqlsource.InMemory()) }
}

// WithTempDir places the temporary database file in dir.
func WithTempDir(dir string) Option {
	return func(o *options) { o.sqlOpts = append(o.sqlOpts, sqlsource.OnDisk(dir)) }
}

func buildOptions(opts []Option) options {
	// Files load into a temp database file unless InMemory is given.
	o := options{sqlOpts: []sqlsource.Option{sqlsource.OnDisk("")}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.onWarning == nil {
		o.onWarning = func(w EncodingWarning) {
			log := logging.WithPhase("csv_load")
			log.Warn().Str("file", w.File).Str("fallback", w.Fallback).Msg(w.Error())
		}
	}
	return o
}
