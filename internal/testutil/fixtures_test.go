package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	got := CSV([]string{"state", "pop"}, []string{"A", "10"}, []string{"B", ""})
	assert.Equal(t, "state,pop\nA,10\nB,\n", got)
}

func TestWriteCSV_CreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := WriteCSV(t, dir, "nested/a.csv", []string{"x"}, []string{"1"})

	assert.Equal(t, filepath.Join(dir, "nested", "a.csv"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(data))
}
