package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/rowsource/internal/csvsource"
	"github.com/roach88/rowsource/internal/logging"
	"github.com/roach88/rowsource/internal/multisource"
	"github.com/roach88/rowsource/internal/parquetsource"
	"github.com/roach88/rowsource/internal/s3fetch"
	"github.com/roach88/rowsource/internal/source"
	"github.com/roach88/rowsource/internal/sqlsource"
	"github.com/roach88/rowsource/internal/store"
)

// Fetcher downloads a remote object to a local file and returns its path.
type Fetcher interface {
	Download(ctx context.Context, uri string) (string, error)
}

// OpenOptions configures Open.
type OpenOptions struct {
	// Fetcher downloads s3:// entries. When nil, a client using the
	// default AWS configuration is created on first use.
	Fetcher Fetcher

	// TempDir holds temporary database files (os.TempDir when empty).
	TempDir string

	// CSV options are applied to every csv entry before its own settings.
	CSV []csvsource.Option
}

// Opened is the set of sources a manifest describes.
type Opened struct {
	// Source is the single member, or a composite of all members.
	Source source.Source

	Members []source.Source
	Labels  []string

	cleanup []func() error
}

// Close releases every member and removes downloaded files.
func (o *Opened) Close() error {
	var errs []error
	for i := len(o.cleanup) - 1; i >= 0; i-- {
		errs = append(errs, o.cleanup[i]())
	}
	o.cleanup = nil
	return errors.Join(errs...)
}

// Open opens every entry and creates its indexes. On failure, everything
// opened so far is released.
func (m *Manifest) Open(ctx context.Context, opts OpenOptions) (*Opened, error) {
	log := logging.WithPhase("manifest")
	out := &Opened{}

	for i, e := range m.Sources {
		src, err := m.openEntry(ctx, e, &opts, out)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("sources[%d] %s: %w", i, e.Label(), err)
		}

		for _, cols := range e.Indexes {
			ix, ok := src.(source.Indexer)
			if !ok {
				out.Close()
				return nil, fmt.Errorf("sources[%d] %s: indexes are not supported by %s", i, e.Label(), src)
			}
			if err := ix.CreateIndex(ctx, cols...); err != nil {
				out.Close()
				return nil, fmt.Errorf("sources[%d] %s: %w", i, e.Label(), err)
			}
		}

		out.Members = append(out.Members, src)
		out.Labels = append(out.Labels, e.Label())
		log.Debug().
			Str("kind", e.Kind()).
			Str("path", e.Path()).
			Str("source", src.String()).
			Msg("source opened")
	}

	if len(out.Members) == 1 {
		out.Source = out.Members[0]
	} else {
		out.Source = multisource.New(out.Members...)
	}
	return out, nil
}

func (m *Manifest) openEntry(ctx context.Context, e Entry, opts *OpenOptions, out *Opened) (source.Source, error) {
	path, display, err := m.localPath(ctx, e.Path(), opts, out)
	if err != nil {
		return nil, err
	}

	switch e.Kind() {
	case KindCSV:
		csvOpts := append([]csvsource.Option{}, opts.CSV...)
		if e.Encoding != "" {
			csvOpts = append(csvOpts, csvsource.WithEncoding(e.Encoding))
		}
		if e.InMemory {
			csvOpts = append(csvOpts, csvsource.InMemory())
		} else if opts.TempDir != "" {
			csvOpts = append(csvOpts, csvsource.WithTempDir(opts.TempDir))
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		defer f.Close()
		src, err := csvsource.FromReader(ctx, f, display, csvOpts...)
		if err != nil {
			return nil, err
		}
		out.cleanup = append(out.cleanup, src.Close)
		return src, nil

	case KindParquet:
		sqlOpts := []sqlsource.Option{sqlsource.OnDisk(opts.TempDir)}
		if e.InMemory {
			sqlOpts = []sqlsource.Option{sqlsource.InMemory()}
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open parquet: %w", err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat parquet: %w", err)
		}
		src, err := parquetsource.FromReaderAt(ctx, f, info.Size(), display, sqlOpts...)
		if err != nil {
			return nil, err
		}
		out.cleanup = append(out.cleanup, src.Close)
		return src, nil

	case KindSQLite:
		// store.Open would create a missing file.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		src, err := sqlsource.New(ctx, st, e.Table,
			sqlsource.WithName(fmt.Sprintf("SqliteSource(%q, table=%q)", display, e.Table)))
		if err != nil {
			st.Close()
			return nil, err
		}
		out.cleanup = append(out.cleanup, src.Close)
		return src, nil
	}
	return nil, fmt.Errorf("unknown source kind for %q", e.Path())
}

// localPath returns a readable local path for p, downloading s3:// objects.
// display is how the source identifies itself: the path as written for
// local files, the URI for downloads.
func (m *Manifest) localPath(ctx context.Context, p string, opts *OpenOptions, out *Opened) (path, display string, err error) {
	if !s3fetch.IsURI(p) {
		return m.resolve(p), p, nil
	}

	if opts.Fetcher == nil {
		client, err := s3fetch.NewClient(ctx)
		if err != nil {
			return "", "", err
		}
		opts.Fetcher = client.WithTempDir(opts.TempDir)
	}
	local, err := opts.Fetcher.Download(ctx, p)
	if err != nil {
		return "", "", err
	}
	out.cleanup = append(out.cleanup, func() error {
		if err := os.Remove(local); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
	return local, p, nil
}
