package csvsource

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowsource/internal/logging"
	"github.com/roach88/rowsource/internal/result"
	"github.com/roach88/rowsource/internal/source"
	"github.com/roach88/rowsource/internal/store"
	"github.com/roach88/rowsource/internal/value"
)

func TestNew_StatePopulation(t *testing.T) {
	ctx := context.Background()

	// Relative to this file's directory.
	src, err := New(ctx, "testdata/states.csv")
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, `CsvSource("testdata/states.csv")`, src.String())

	sum, err := src.Sum(ctx, "pop", []string{"state"}, nil)
	require.NoError(t, err)
	wantSum := result.NewMapping([]string{"state"})
	require.NoError(t, wantSum.Set(result.T("A"), value.Int(15)))
	require.NoError(t, wantSum.Set(result.T("B"), value.Int(20)))
	assert.True(t, wantSum.Equal(sum.(*result.Mapping)), "got %s", sum)

	count, err := src.Count(ctx, []string{"state"}, nil)
	require.NoError(t, err)
	wantCount := result.NewMapping([]string{"state"})
	require.NoError(t, wantCount.Set(result.T("A"), value.Int(2)))
	require.NoError(t, wantCount.Set(result.T("B"), value.Int(1)))
	assert.True(t, wantCount.Equal(count.(*result.Mapping)), "got %s", count)

	distinct, err := src.Distinct(ctx, []string{"state"}, nil)
	require.NoError(t, err)
	assert.True(t, result.NewSet(result.T("A"), result.T("B")).Equal(distinct), "got %s", distinct)

	_, err = src.Distinct(ctx, []string{"nope"}, nil)
	require.Error(t, err)
	assert.Equal(t, `"nope" not in CsvSource("testdata/states.csv")`, err.Error())
}

func TestNew_BaseDirAndAbsolutePath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.csv"), []byte("a\n1\n"), 0o644))

	src, err := New(ctx, "x.csv", WithBaseDir(dir), InMemory())
	require.NoError(t, err)
	defer src.Close()

	abs, err := New(ctx, filepath.Join(dir, "x.csv"), InMemory())
	require.NoError(t, err)
	defer abs.Close()

	for _, s := range []*Source{src, abs} {
		n, err := s.Count(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, result.Scalar{Value: value.Int(1)}, n)
	}

	_, err = New(ctx, "missing.csv", WithBaseDir(dir))
	require.Error(t, err)
}

func TestNew_Latin1Fallback(t *testing.T) {
	ctx := context.Background()

	var warnings []EncodingWarning
	src, err := New(ctx, "testdata/latin1.csv", OnWarning(func(w EncodingWarning) {
		warnings = append(warnings, w)
	}))
	require.NoError(t, err)
	defer src.Close()

	require.Len(t, warnings, 1)
	assert.Equal(t, "latin1.csv", warnings[0].File)
	assert.Contains(t, warnings[0].Error(), "ISO-8859-1")

	got, err := src.Distinct(ctx, []string{"name", "city"}, nil)
	require.NoError(t, err)
	assert.True(t, result.NewSet(result.T("René", "Montréal")).Equal(got), "got %s", got)
}

func TestNew_DefaultWarningIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { logging.SetLogger(zerolog.Nop()) })

	src, err := New(context.Background(), "testdata/latin1.csv", InMemory())
	require.NoError(t, err)
	defer src.Close()

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"file":"latin1.csv"`)
}

func TestNew_ExplicitEncoding(t *testing.T) {
	ctx := context.Background()

	noWarn := OnWarning(func(w EncodingWarning) {
		t.Errorf("unexpected warning: %v", w)
	})

	src, err := New(ctx, "testdata/latin1.csv", WithEncoding("ISO-8859-1"), noWarn)
	require.NoError(t, err)
	defer src.Close()

	got, err := src.Distinct(ctx, []string{"city"}, nil)
	require.NoError(t, err)
	assert.True(t, result.NewSet(result.T("Montréal")).Equal(got))

	// An explicit encoding never falls back.
	_, err = New(ctx, "testdata/latin1.csv", WithEncoding("utf-8"), noWarn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid utf-8 data")

	_, err = New(ctx, "testdata/states.csv", WithEncoding("no-such-encoding"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown encoding")
}

func TestNew_StripsBOM(t *testing.T) {
	ctx := context.Background()
	src, err := New(ctx, "testdata/bom.csv", InMemory())
	require.NoError(t, err)
	defer src.Close()

	cols, err := src.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "pop"}, cols)
}

func TestNew_RaggedRowFailsLoad(t *testing.T) {
	_, err := New(context.Background(), "testdata/ragged.csv", InMemory())
	var le *store.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, []any{"3"}, le.Row)
}

func TestFromReader(t *testing.T) {
	ctx := context.Background()
	src, err := FromReader(ctx, strings.NewReader("k,v\nx,1\ny,\n"), "inline", InMemory())
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, `CsvSource("inline")`, src.String())

	total, err := src.Sum(ctx, "v", nil, source.Filter{"k": source.In("x", "y")})
	require.NoError(t, err)
	v, _ := source.ScalarValue(total)
	assert.True(t, value.Equal(value.Int(1), v))

	_, err = FromReader(ctx, strings.NewReader(""), "empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestSource_SatisfiesContract(t *testing.T) {
	var _ source.Source = (*Source)(nil)
	var _ source.Indexer = (*Source)(nil)
}

func TestFromReader_SumTrimsPaddedNumbers(t *testing.T) {
	ctx := context.Background()
	src, err := FromReader(ctx, strings.NewReader("state,pop\nA, 10\nB,20 \n"), "padded.csv", InMemory())
	require.NoError(t, err)
	defer src.Close()

	total, err := src.Sum(ctx, "pop", nil, nil)
	require.NoError(t, err)
	v, err := source.ScalarValue(total)
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Int(30), v), "got %v", v)

	// The cell keeps its padding; only the sum coerces it.
	n, err := src.Count(ctx, nil, source.Filter{"pop": source.Eq(" 10")})
	require.NoError(t, err)
	assert.Equal(t, result.Scalar{Value: value.Int(1)}, n)
}
