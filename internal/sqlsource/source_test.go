package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowsource/internal/result"
	"github.com/roach88/rowsource/internal/source"
	"github.com/roach88/rowsource/internal/store"
	"github.com/roach88/rowsource/internal/value"
)

var stateRows = [][]any{
	{"A", "x", "10"},
	{"B", "x", "20"},
	{"A", "y", "5"},
	{"C", "y", ""},
	{"B", "y", "2.5"},
}

func newStateSource(t *testing.T, opts ...Option) *Source {
	t.Helper()
	src, err := FromRecords(context.Background(), store.PositionalRows{
		Columns: []string{"state", "kind", "pop"},
		Rows:    stateRows,
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func newStateRows(t *testing.T) *source.Rows {
	t.Helper()
	src, err := source.NewRows("states", []string{"state", "kind", "pop"}, stateRows...)
	require.NoError(t, err)
	return src
}

func mapping(t *testing.T, keyNames []string, pairs ...any) *result.Mapping {
	t.Helper()
	m := result.NewMapping(keyNames)
	for i := 0; i < len(pairs); i += 2 {
		v, err := value.FromAny(pairs[i+1])
		require.NoError(t, err)
		require.NoError(t, m.Set(pairs[i].(result.Tuple), v))
	}
	return m
}

func TestFromRecords_ColumnsAndString(t *testing.T) {
	src := newStateSource(t)

	cols, err := src.Columns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "kind", "pop"}, cols)
	assert.Equal(t, `SqliteSource(":memory:", table="data")`, src.String())

	named := newStateSource(t, WithName("states.csv"), WithTable("states"))
	assert.Equal(t, "states.csv", named.String())
	assert.Equal(t, "states", named.Table())
}

func TestSource_Distinct(t *testing.T) {
	ctx := context.Background()
	src := newStateSource(t)

	got, err := src.Distinct(ctx, []string{"state"}, nil)
	require.NoError(t, err)
	assert.True(t, result.NewSet(result.T("A"), result.T("B"), result.T("C")).Equal(got), "got %s", got)

	got, err = src.Distinct(ctx, []string{"state", "kind"}, source.Filter{"kind": source.Eq("y")})
	require.NoError(t, err)
	want := result.NewSet(result.T("A", "y"), result.T("C", "y"), result.T("B", "y"))
	assert.True(t, want.Equal(got), "got %s", got)
}

func TestSource_Sum(t *testing.T) {
	ctx := context.Background()
	src := newStateSource(t)

	total, err := src.Sum(ctx, "pop", nil, nil)
	require.NoError(t, err)
	v, err := source.ScalarValue(total)
	require.NoError(t, err)
	assert.Equal(t, "37.5", v.String())

	grouped, err := src.Sum(ctx, "pop", []string{"state"}, nil)
	require.NoError(t, err)
	want := mapping(t, []string{"state"},
		result.T("A"), 15,
		result.T("B"), value.MustDecimal("22.5"),
		result.T("C"), 0,
	)
	assert.True(t, want.Equal(grouped.(*result.Mapping)), "got %s", grouped)
}

func TestSource_SumEmptyValuesAreZero(t *testing.T) {
	ctx := context.Background()
	src, err := FromRecords(ctx, store.NamedRows{Rows: []map[string]any{
		{"x": "1"}, {"x": ""}, {"x": "2"},
	}})
	require.NoError(t, err)
	defer src.Close()

	got, err := src.Sum(ctx, "x", nil, nil)
	require.NoError(t, err)
	v, _ := source.ScalarValue(got)
	assert.True(t, value.Equal(value.Int(3), v), "got %v", v)
}

func TestSource_Count(t *testing.T) {
	ctx := context.Background()
	src := newStateSource(t)

	got, err := src.Count(ctx, nil, source.Filter{"state": source.In("A", "B")})
	require.NoError(t, err)
	assert.Equal(t, result.Scalar{Value: value.Int(4)}, got)

	got, err = src.Count(ctx, nil, source.Filter{"state": source.In()})
	require.NoError(t, err)
	assert.Equal(t, result.Scalar{Value: value.Int(0)}, got)

	grouped, err := src.Count(ctx, []string{"kind"}, nil)
	require.NoError(t, err)
	want := mapping(t, []string{"kind"}, result.T("x"), 2, result.T("y"), 3)
	assert.True(t, want.Equal(grouped.(*result.Mapping)), "got %s", grouped)
}

func TestSource_Reduce(t *testing.T) {
	ctx := context.Background()
	src := newStateSource(t)

	longest := func(acc, v value.Value) (value.Value, error) {
		if len(v.String()) > len(acc.String()) {
			return v, nil
		}
		return acc, nil
	}

	got, err := src.Reduce(ctx, longest, "pop", []string{"state"}, value.Text(""), nil)
	require.NoError(t, err)
	want := mapping(t, []string{"state"},
		result.T("A"), "10",
		result.T("B"), "2.5",
		result.T("C"), "",
	)
	assert.True(t, want.Equal(got.(*result.Mapping)), "got %s", got)

	count, err := src.Reduce(ctx, source.CountFunc, "", nil, value.Int(0), source.Filter{"kind": source.Eq("x")})
	require.NoError(t, err)
	assert.Equal(t, result.Scalar{Value: value.Int(2)}, count)
}

func TestSource_SchemaError(t *testing.T) {
	ctx := context.Background()
	src := newStateSource(t)

	_, err := src.Distinct(ctx, []string{"state", "nope"}, source.Filter{"other": source.Eq(1)})
	var se *source.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"nope", "other"}, se.Missing)
	assert.Equal(t, `"nope", "other" not in SqliteSource(":memory:", table="data")`, err.Error())

	_, err = src.Sum(ctx, "missing", nil, nil)
	assert.True(t, source.IsSchemaError(err))

	err = src.CreateIndex(ctx, "missing")
	assert.True(t, source.IsSchemaError(err))
}

func TestSource_IterateRoundTrip(t *testing.T) {
	ctx := context.Background()

	positional, err := FromRecords(ctx, store.PositionalRows{
		Columns: []string{"a", "b", "c"},
		Rows:    [][]any{{"x", 1, 2.5}, {"y", nil, value.MustDecimal("2.50")}},
	})
	require.NoError(t, err)
	defer positional.Close()

	named, err := FromRecords(ctx, store.NamedRows{
		Columns: []string{"a", "b", "c"},
		Rows: []map[string]any{
			{"b": 1, "a": "x", "c": 2.5},
			{"a": "y", "b": nil, "c": value.MustDecimal("2.50")},
		},
	})
	require.NoError(t, err)
	defer named.Close()

	collect := func(src *Source) []map[string]value.Value {
		var out []map[string]value.Value
		for row, err := range src.Iterate(ctx) {
			require.NoError(t, err)
			out = append(out, row.Map())
		}
		return out
	}

	// Decimals come back in their stored text form, as the iteration
	// backend holds them.
	want := []map[string]value.Value{
		{"a": value.Text("x"), "b": value.Int(1), "c": value.Text("2.5")},
		{"a": value.Text("y"), "b": value.Null{}, "c": value.Text("2.50")},
	}
	assert.Equal(t, want, collect(positional))
	assert.Equal(t, want, collect(named))

	generic, err := source.NewRows("rows", []string{"a", "b", "c"},
		[]any{"x", 1, 2.5}, []any{"y", nil, value.MustDecimal("2.50")})
	require.NoError(t, err)
	var fromGeneric []map[string]value.Value
	for row, err := range generic.Iterate(ctx) {
		require.NoError(t, err)
		fromGeneric = append(fromGeneric, row.Map())
	}
	assert.Equal(t, want, fromGeneric)

	// Restartable.
	assert.Equal(t, want, collect(positional))
}

func TestSource_CreateIndexKeepsResults(t *testing.T) {
	ctx := context.Background()
	src := newStateSource(t)

	before, err := src.Sum(ctx, "pop", []string{"state"}, nil)
	require.NoError(t, err)

	require.NoError(t, src.CreateIndex(ctx, "state"))
	require.NoError(t, src.CreateIndex(ctx, "state"))
	require.NoError(t, src.CreateIndex(ctx, "state", "kind"))

	after, err := src.Sum(ctx, "pop", []string{"state"}, nil)
	require.NoError(t, err)
	assert.True(t, before.(*result.Mapping).Equal(after.(*result.Mapping)))
}

func TestFromRecords_LoadFailure(t *testing.T) {
	ctx := context.Background()

	_, err := FromRecords(ctx, store.PositionalRows{
		Columns: []string{"a", "b"},
		Rows:    [][]any{{"1", "2"}, {"3", "4", "5"}},
	})
	var le *store.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, []any{"3", "4", "5"}, le.Row)
}

func TestFromRecords_OnDisk(t *testing.T) {
	dir := t.TempDir()
	src := newStateSource(t, OnDisk(dir))

	path := src.Store().Path()
	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Contains(t, src.String(), path)

	require.NoError(t, src.Close())
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewDB_ExistingTable(t *testing.T) {
	ctx := context.Background()

	// The plain driver has no decimal_sum; Sum must fold client side.
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE towns (name TEXT, pop TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO towns VALUES ('a', '0.1'), ('b', '0.2'), ('a', '')`)
	require.NoError(t, err)

	src, err := NewDB(ctx, db, "towns")
	require.NoError(t, err)
	assert.Equal(t, `SqliteSource(<sql.DB>, table="towns")`, src.String())

	cols, err := src.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "pop"}, cols)

	total, err := src.Sum(ctx, "pop", nil, nil)
	require.NoError(t, err)
	v, _ := source.ScalarValue(total)
	assert.Equal(t, "0.3", v.String())

	// Close does not close a caller-managed database.
	require.NoError(t, src.Close())
	assert.NoError(t, db.Ping())

	_, err = NewDB(ctx, db, "missing")
	require.Error(t, err)
}

func TestSource_WithConverters(t *testing.T) {
	ctx := context.Background()

	type point struct{ X, Y int }
	pointConv := func(v any) (any, bool, error) {
		p, ok := v.(point)
		if !ok {
			return nil, false, nil
		}
		return fmt.Sprintf("%d;%d", p.X, p.Y), true, nil
	}

	src, err := FromRecords(ctx, store.PositionalRows{
		Columns: []string{"p"},
		Rows:    [][]any{{point{1, 2}}},
	}, WithConverters(pointConv))
	require.NoError(t, err)
	defer src.Close()

	got, err := src.Distinct(ctx, []string{"p"}, nil)
	require.NoError(t, err)
	assert.True(t, result.NewSet(result.T("1;2")).Equal(got))
}
