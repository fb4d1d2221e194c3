package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowsource/internal/csvsource"
	"github.com/roach88/rowsource/internal/manifest"
	"github.com/roach88/rowsource/internal/source"
)

// SourceOptions selects the sources a command queries: a manifest, or
// files named on the command line.
type SourceOptions struct {
	Manifest string
	Encoding string
	InMemory bool
	TempDir  string
}

func addSourceFlags(cmd *cobra.Command, opts *SourceOptions) {
	cmd.Flags().StringVarP(&opts.Manifest, "manifest", "m", "", "source manifest (YAML or .cue)")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "text encoding of CSV files (IANA name)")
	cmd.Flags().BoolVar(&opts.InMemory, "in-memory", false, "load files into memory instead of a temp database")
	cmd.Flags().StringVar(&opts.TempDir, "temp-dir", "", "directory for temporary database files")
}

// fileKinds maps file extensions to manifest entry kinds.
var fileKinds = map[string]string{
	".csv":     manifest.KindCSV,
	".parquet": manifest.KindParquet,
}

// buildManifest returns the manifest named by --manifest, or one entry per
// file argument.
func (o *SourceOptions) buildManifest(args []string) (*manifest.Manifest, error) {
	if o.Manifest != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--manifest and file arguments are mutually exclusive")
		}
		return manifest.LoadFile(o.Manifest)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no sources: pass files or --manifest")
	}

	m := &manifest.Manifest{}
	for _, arg := range args {
		kind, ok := fileKinds[strings.ToLower(filepath.Ext(arg))]
		if !ok {
			return nil, fmt.Errorf("%s: unsupported file type (want .csv or .parquet)", arg)
		}
		e := manifest.Entry{InMemory: o.InMemory}
		switch kind {
		case manifest.KindCSV:
			e.CSV = arg
			e.Encoding = o.Encoding
		case manifest.KindParquet:
			e.Parquet = arg
		}
		m.Sources = append(m.Sources, e)
	}
	return m, m.Validate()
}

// openOptions applies --encoding as the default for manifest csv entries;
// an entry's own encoding still wins.
func (o *SourceOptions) openOptions() manifest.OpenOptions {
	opts := manifest.OpenOptions{TempDir: o.TempDir}
	if o.Encoding != "" {
		opts.CSV = append(opts.CSV, csvsource.WithEncoding(o.Encoding))
	}
	return opts
}

// parseWhere turns repeated k=v[,v2...] flags into a filter. A single
// value constrains by equality, several by membership. "k=" matches the
// empty string.
func parseWhere(clauses []string) (source.Filter, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	filter := make(source.Filter, len(clauses))
	for _, clause := range clauses {
		k, v, ok := strings.Cut(clause, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --where %q: want column=value[,value...]", clause)
		}
		if _, dup := filter[k]; dup {
			return nil, fmt.Errorf("invalid --where %q: column %q constrained twice", clause, k)
		}
		vals := strings.Split(v, ",")
		if len(vals) == 1 {
			filter[k] = source.Eq(vals[0])
			continue
		}
		anys := make([]any, len(vals))
		for i, s := range vals {
			anys[i] = s
		}
		filter[k] = source.In(anys...)
	}
	return filter, nil
}
