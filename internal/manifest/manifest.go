// Package manifest describes a set of data sources in a YAML or CUE file
// and opens them as one source.
//
// A manifest lists entries, each naming exactly one file:
//
//	sources:
//	  - name: states
//	    csv: data/states.csv
//	    encoding: latin-1
//	    indexes: [[state]]
//	  - parquet: s3://bucket/towns.parquet
//	  - sqlite: warehouse.db
//	    table: people
//
// Relative paths are resolved against the manifest's directory. s3:// paths
// are downloaded first.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Entry kinds.
const (
	KindCSV     = "csv"
	KindParquet = "parquet"
	KindSQLite  = "sqlite"
)

// Manifest is a parsed source manifest.
type Manifest struct {
	Sources []Entry `yaml:"sources" json:"sources"`

	// dir resolves relative entry paths.
	dir string
}

// Entry describes one source.
type Entry struct {
	// Name labels the source in CLI output. Defaults to the file's base name.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	CSV     string `yaml:"csv,omitempty" json:"csv,omitempty"`
	Parquet string `yaml:"parquet,omitempty" json:"parquet,omitempty"`
	SQLite  string `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`

	// Table is required for sqlite entries.
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// Encoding is the IANA encoding of a csv entry.
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty"`

	// InMemory loads csv and parquet entries into memory instead of a
	// temp database file.
	InMemory bool `yaml:"in_memory,omitempty" json:"in_memory,omitempty"`

	// Indexes are created after the source is opened.
	Indexes [][]string `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

// Kind returns the entry's file kind, or "" when none or several are set.
func (e Entry) Kind() string {
	kind := ""
	for k, p := range map[string]string{KindCSV: e.CSV, KindParquet: e.Parquet, KindSQLite: e.SQLite} {
		if p == "" {
			continue
		}
		if kind != "" {
			return ""
		}
		kind = k
	}
	return kind
}

// Path returns the file the entry names.
func (e Entry) Path() string {
	switch e.Kind() {
	case KindCSV:
		return e.CSV
	case KindParquet:
		return e.Parquet
	case KindSQLite:
		return e.SQLite
	}
	return ""
}

// Label returns the entry's name, or the base name of its path.
func (e Entry) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return filepath.Base(e.Path())
}

// schema constrains CUE manifests. Entries are closed, so misspelled
// fields are rejected.
const schema = `
#Entry: {
	name?:      string
	csv?:       string
	parquet?:   string
	sqlite?:    string
	table?:     string
	encoding?:  string
	in_memory?: bool
	indexes?: [...[...string]]
}

sources: [...#Entry]
`

// LoadFile reads a manifest, choosing the format by extension (.cue for
// CUE, anything else is YAML).
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return ParseCUE(data, path, dir)
	}
	return ParseYAML(data, dir)
}

// ParseYAML parses a YAML manifest. Unknown fields are rejected.
func ParseYAML(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// ParseCUE parses a CUE manifest and checks it against the manifest schema.
// filename is used in error positions.
func ParseCUE(data []byte, filename, dir string) (*Manifest, error) {
	ctx := cuecontext.New()

	s := ctx.CompileString(schema, cue.Filename("manifest_schema.cue"))
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	v = s.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	var m Manifest
	if err := v.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the rules the schema cannot express. Every problem is
// reported.
func (m *Manifest) Validate() error {
	if len(m.Sources) == 0 {
		return errors.New("sources list is required and must be non-empty")
	}

	var errs []error
	for i, e := range m.Sources {
		prefix := fmt.Sprintf("sources[%d]", i)
		kind := e.Kind()
		if kind == "" {
			errs = append(errs, fmt.Errorf("%s: exactly one of csv, parquet, sqlite is required", prefix))
			continue
		}
		if kind == KindSQLite && e.Table == "" {
			errs = append(errs, fmt.Errorf("%s: table is required for sqlite", prefix))
		}
		if kind != KindSQLite && e.Table != "" {
			errs = append(errs, fmt.Errorf("%s: table applies only to sqlite", prefix))
		}
		if kind != KindCSV && e.Encoding != "" {
			errs = append(errs, fmt.Errorf("%s: encoding applies only to csv", prefix))
		}
		if kind == KindSQLite && e.InMemory {
			errs = append(errs, fmt.Errorf("%s: in_memory does not apply to sqlite", prefix))
		}
		for j, idx := range e.Indexes {
			if len(idx) == 0 {
				errs = append(errs, fmt.Errorf("%s: indexes[%d] has no columns", prefix, j))
			}
		}
	}
	return errors.Join(errs...)
}

// Dir returns the directory relative paths are resolved against.
func (m *Manifest) Dir() string {
	return m.dir
}

// resolve returns p joined to the manifest directory when p is relative.
func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}
