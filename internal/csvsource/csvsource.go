package csvsource

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/roach88/rowsource/internal/logging"
	"github.com/roach88/rowsource/internal/sqlsource"
	"github.com/roach88/rowsource/internal/store"
)

// Source is a relational source loaded from delimited text. The first
// record is the header.
type Source struct {
	*sqlsource.Source
	file string
}

// EncodingWarning reports that a file was not valid UTF-8 and was decoded
// as ISO-8859-1 instead. Loading continues; the text may be wrong.
type EncodingWarning struct {
	File     string
	Fallback string
}

func (w EncodingWarning) Error() string {
	return fmt.Sprintf("data in file %q does not appear to be encoded as UTF-8 "+
		"(used %s as fallback); specify an encoding to assure correct operation",
		w.File, w.Fallback)
}

// New loads the CSV file at path.
//
// A relative path is resolved against the directory of the calling source
// file, not the working directory, unless WithBaseDir is given.
func New(ctx context.Context, path string, opts ...Option) (*Source, error) {
	o := buildOptions(opts)
	resolved := path
	if !filepath.IsAbs(path) {
		base := o.baseDir
		if base == "" {
			if _, caller, _, ok := runtime.Caller(1); ok {
				base = filepath.Dir(caller)
			}
		}
		resolved = filepath.Clean(filepath.Join(base, path))
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return load(ctx, data, path, filepath.Base(resolved), o)
}

// FromReader loads CSV data from r. name identifies the data in String
// and in warnings.
func FromReader(ctx context.Context, r io.Reader, name string, opts ...Option) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", name, err)
	}
	return load(ctx, data, name, name, buildOptions(opts))
}

// String returns the source's descriptive identity.
func (s *Source) String() string {
	return fmt.Sprintf("CsvSource(%q)", s.file)
}

func load(ctx context.Context, data []byte, file, display string, o options) (*Source, error) {
	log := logging.WithPhase("csv_load")

	text, err := decode(data, display, o)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1 // arity is checked per row by the load
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv %s: no header row", display)
	}
	if err != nil {
		return nil, fmt.Errorf("csv %s: read header: %w", display, err)
	}

	recs := store.StreamRows{
		Columns: header,
		Rows: func(yield func([]any, error) bool) {
			for {
				rec, err := reader.Read()
				if errors.Is(err, io.EOF) {
					return
				}
				if err != nil {
					yield(nil, fmt.Errorf("csv %s: %w", display, err))
					return
				}
				row := make([]any, len(rec))
				for i, f := range rec {
					row[i] = f
				}
				if !yield(row, nil) {
					return
				}
			}
		},
	}

	s := &Source{file: file}
	sqlOpts := append(o.sqlOpts, sqlsource.WithName(fmt.Sprintf("CsvSource(%q)", file)))
	if s.Source, err = sqlsource.FromRecords(ctx, recs, sqlOpts...); err != nil {
		return nil, err
	}

	log.Debug().
		Str("file", display).
		Strs("columns", header).
		Msg("csv loaded")
	return s, nil
}

// decode returns data as UTF-8 text.
//
// With an explicit encoding any failure is fatal. Otherwise UTF-8 is tried
// first, and invalid UTF-8 falls back to ISO-8859-1, which maps every byte,
// with an EncodingWarning.
func decode(data []byte, display string, o options) ([]byte, error) {
	if o.encoding != "" {
		enc, err := ianaindex.IANA.Encoding(o.encoding)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("csv %s: unknown encoding %q", display, o.encoding)
		}
		if isUTF8(enc) {
			if !utf8.Valid(data) {
				return nil, fmt.Errorf("csv %s: invalid %s data", display, o.encoding)
			}
			enc = unicode.UTF8BOM
		}
		text, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("csv %s: decode %s: %w", display, o.encoding, err)
		}
		return text, nil
	}

	if utf8.Valid(data) {
		return unicode.UTF8BOM.NewDecoder().Bytes(data)
	}

	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("csv %s: decode ISO-8859-1: %w", display, err)
	}
	o.onWarning(EncodingWarning{File: display, Fallback: "ISO-8859-1"})
	return text, nil
}

func isUTF8(enc encoding.Encoding) bool {
	name, err := ianaindex.IANA.Name(enc)
	return err == nil && name == "UTF-8"
}
