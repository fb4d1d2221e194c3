package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowsource/internal/multisource"
	"github.com/roach88/rowsource/internal/result"
	"github.com/roach88/rowsource/internal/source"
	"github.com/roach88/rowsource/internal/store"
	"github.com/roach88/rowsource/internal/testutil"
	"github.com/roach88/rowsource/internal/value"
)

func TestLoadFile_YAML(t *testing.T) {
	m, err := LoadFile("testdata/two.yaml")
	require.NoError(t, err)

	require.Len(t, m.Sources, 2)
	assert.Equal(t, KindCSV, m.Sources[0].Kind())
	assert.Equal(t, "populations", m.Sources[0].Label())
	assert.Equal(t, "b.csv", m.Sources[1].Label())
	assert.True(t, m.Sources[1].InMemory)
	assert.Equal(t, [][]string{{"state"}}, m.Sources[0].Indexes)
	assert.True(t, filepath.IsAbs(m.Dir()))
}

func TestLoadFile_CUE(t *testing.T) {
	m, err := LoadFile("testdata/one.cue")
	require.NoError(t, err)

	require.Len(t, m.Sources, 1)
	e := m.Sources[0]
	assert.Equal(t, "a.csv", e.CSV)
	assert.True(t, e.InMemory)
	assert.Equal(t, [][]string{{"state"}, {"state", "pop"}}, e.Indexes)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("testdata/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read manifest")
}

func TestParseYAML_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"unknown field", "sources:\n  - csv: a.csv\n    bogus: 1\n", "failed to parse YAML"},
		{"empty", "sources: []\n", "must be non-empty"},
		{"no kind", "sources:\n  - name: x\n", "exactly one of csv, parquet, sqlite"},
		{"two kinds", "sources:\n  - csv: a.csv\n    parquet: a.parquet\n", "exactly one of csv, parquet, sqlite"},
		{"sqlite without table", "sources:\n  - sqlite: w.db\n", "table is required for sqlite"},
		{"table on csv", "sources:\n  - csv: a.csv\n    table: t\n", "table applies only to sqlite"},
		{"encoding on parquet", "sources:\n  - parquet: a.parquet\n    encoding: latin-1\n", "encoding applies only to csv"},
		{"empty index", "sources:\n  - csv: a.csv\n    indexes: [[]]\n", "indexes[0] has no columns"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tc.doc), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseYAML_ReportsEveryProblem(t *testing.T) {
	_, err := ParseYAML([]byte("sources:\n  - name: x\n  - sqlite: w.db\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources[0]: exactly one of")
	assert.Contains(t, err.Error(), "sources[1]: table is required")
}

func TestParseCUE_SchemaViolations(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"unknown field", `sources: [{csv: "a.csv", bogus: 1}]`},
		{"wrong type", `sources: [{csv: 1}]`},
		{"syntax", `sources: [`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCUE([]byte(tc.doc), "bad.cue", "")
			require.Error(t, err)
		})
	}

	_, err := ParseCUE([]byte(`sources: [{sqlite: "w.db"}]`), "bad.cue", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table is required for sqlite")
}

func TestOpen_Composite(t *testing.T) {
	ctx := context.Background()
	m, err := LoadFile("testdata/two.yaml")
	require.NoError(t, err)

	opened, err := m.Open(ctx, OpenOptions{TempDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { opened.Close() })

	require.IsType(t, &multisource.Source{}, opened.Source)
	assert.Equal(t, []string{"populations", "b.csv"}, opened.Labels)

	cols, err := opened.Source.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "pop", "area"}, cols)

	states, err := opened.Source.Distinct(ctx, []string{"state"}, nil)
	require.NoError(t, err)
	assert.True(t, result.NewSet(result.T("A"), result.T("B"), result.T("C")).Equal(states), "got %s", states)

	total, err := opened.Source.Sum(ctx, "pop", nil, nil)
	require.NoError(t, err)
	v, err := source.ScalarValue(total)
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Int(30), v), "got %v", v)

	assert.Equal(t, `CsvSource("a.csv")`, opened.Members[0].String())
}

func TestOpen_SingleSourceIsNotWrapped(t *testing.T) {
	m, err := LoadFile("testdata/one.cue")
	require.NoError(t, err)

	opened, err := m.Open(context.Background(), OpenOptions{})
	require.NoError(t, err)
	defer opened.Close()

	require.Len(t, opened.Members, 1)
	assert.Same(t, opened.Members[0], opened.Source)
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "w.db"))
	require.NoError(t, err)
	require.NoError(t, st.Load(ctx, "people", store.NamedRows{Rows: []map[string]any{
		{"name": "ann", "town": "x"},
		{"name": "bob", "town": "y"},
	}}))
	require.NoError(t, st.Close())

	m, err := ParseYAML([]byte("sources:\n  - sqlite: w.db\n    table: people\n    indexes: [[town]]\n"), dir)
	require.NoError(t, err)

	opened, err := m.Open(ctx, OpenOptions{})
	require.NoError(t, err)

	n, err := opened.Source.Count(ctx, nil, source.Filter{"town": source.Eq("x")})
	require.NoError(t, err)
	assert.Equal(t, result.Scalar{Value: value.Int(1)}, n)
	assert.Equal(t, `SqliteSource("w.db", table="people")`, opened.Source.String())

	require.NoError(t, opened.Close())
	_, err = os.Stat(filepath.Join(dir, "w.db"))
	assert.NoError(t, err, "opening an existing database must not remove it")
}

func TestOpen_MixedKindsFromManifestFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	testutil.WriteCSV(t, dir, "csv/towns.csv", []string{"town", "pop"}, []string{"x", "3"}, []string{"z", "4"})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "db"), 0o755))
	st, err := store.Open(filepath.Join(dir, "db", "w.db"))
	require.NoError(t, err)
	require.NoError(t, st.Load(ctx, "people", store.PositionalRows{
		Columns: []string{"name", "town"},
		Rows:    [][]any{{"ann", "x"}, {"bob", "y"}},
	}))
	require.NoError(t, st.Close())

	path := testutil.WriteFile(t, dir, "sources.yaml", `sources:
  - csv: csv/towns.csv
    in_memory: true
  - sqlite: db/w.db
    table: people
`)
	m, err := LoadFile(path)
	require.NoError(t, err)

	opened, err := m.Open(ctx, OpenOptions{})
	require.NoError(t, err)
	defer opened.Close()

	towns, err := opened.Source.Distinct(ctx, []string{"town"}, nil)
	require.NoError(t, err)
	assert.True(t, result.NewSet(result.T("x"), result.T("y"), result.T("z")).Equal(towns), "got %s", towns)

	// people has no pop column; its rows count under the empty key.
	byPop, err := opened.Source.Count(ctx, []string{"pop"}, nil)
	require.NoError(t, err)
	mp := byPop.(*result.Mapping)
	n, ok := mp.Get(result.T(""))
	require.True(t, ok, "got %s", mp)
	assert.True(t, value.Equal(value.Int(2), n))
}

func TestOpen_MissingSQLiteFileIsNotCreated(t *testing.T) {
	dir := t.TempDir()
	m, err := ParseYAML([]byte("sources:\n  - sqlite: missing.db\n    table: t\n"), dir)
	require.NoError(t, err)

	_, err = m.Open(context.Background(), OpenOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources[0] missing.db")

	_, statErr := os.Stat(filepath.Join(dir, "missing.db"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpen_UnknownIndexColumn(t *testing.T) {
	m, err := ParseYAML([]byte("sources:\n  - csv: a.csv\n    indexes: [[nope]]\n"), "")
	require.NoError(t, err)
	m.dir, err = filepath.Abs("testdata")
	require.NoError(t, err)

	_, err = m.Open(context.Background(), OpenOptions{TempDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, source.IsSchemaError(err))
}

type fakeFetcher struct {
	dir  string
	data map[string]string
	got  []string
}

func (f *fakeFetcher) Download(_ context.Context, uri string) (string, error) {
	f.got = append(f.got, uri)
	p := filepath.Join(f.dir, filepath.Base(uri))
	return p, os.WriteFile(p, []byte(f.data[uri]), 0o644)
}

func TestOpen_S3EntriesAreDownloaded(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{
		dir:  t.TempDir(),
		data: map[string]string{"s3://bucket/a.csv": "state,pop\nA,10\n"},
	}

	m, err := ParseYAML([]byte("sources:\n  - csv: s3://bucket/a.csv\n    in_memory: true\n"), "")
	require.NoError(t, err)

	opened, err := m.Open(ctx, OpenOptions{Fetcher: fetcher})
	require.NoError(t, err)

	assert.Equal(t, []string{"s3://bucket/a.csv"}, fetcher.got)
	assert.Equal(t, `CsvSource("s3://bucket/a.csv")`, opened.Source.String())
	n, err := opened.Source.Count(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, result.Scalar{Value: value.Int(1)}, n)

	require.NoError(t, opened.Close())
	_, err = os.Stat(filepath.Join(fetcher.dir, "a.csv"))
	assert.True(t, os.IsNotExist(err), "downloads are removed on Close")
}
