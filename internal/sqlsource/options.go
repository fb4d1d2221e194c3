package sqlsource

import "github.com/roach88/rowsource/internal/store"

// DefaultTable is the table FromRecords loads into.
const DefaultTable = "data"

type options struct {
	name       string
	table      string
	onDisk     bool
	dir        string
	converters []store.Converter
}

// Option configures a Source.
type Option func(*options)

// WithName overrides the descriptive identity returned by String.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTable sets the table FromRecords loads into (default "data").
func WithTable(table string) Option {
	return func(o *options) { o.table = table }
}

// InMemory loads FromRecords data into a private in-memory database.
// This is the default.
func InMemory() Option {
	return func(o *options) { o.onDisk = false }
}

// OnDisk loads FromRecords data into a temporary database file in dir
// (os.TempDir when empty). The file is removed on Close.
func OnDisk(dir string) Option {
	return func(o *options) {
		o.onDisk = true
		o.dir = dir
	}
}

// WithConverters sets the value conversions applied while loading,
// tried in order before the default conversion.
func WithConverters(convs ...store.Converter) Option {
	return func(o *options) { o.converters = append(o.converters, convs...) }
}

func buildOptions(opts []Option) options {
	o := options{table: DefaultTable}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
