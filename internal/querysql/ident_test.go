package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdent(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "state", want: `"state"`},
		{in: "  padded  ", want: `"padded"`},
		{in: `say "hi"`, want: `"say ""hi"""`},
		{in: "", want: `"_empty_"`},
		{in: "   ", want: `"_empty_"`},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, QuoteIdent(tc.in), "QuoteIdent(%q)", tc.in)
	}
}

func TestQuoteTable_NoNormalization(t *testing.T) {
	assert.Equal(t, `" t "`, QuoteTable(" t "))
	assert.Equal(t, `"a""b"`, QuoteTable(`a"b`))
}

func TestCreateTable(t *testing.T) {
	assert.Equal(t, `CREATE TABLE "data" ("a", "b c", "_empty_")`,
		CreateTable("data", []string{"a", "b c", ""}))
}

func TestInsert(t *testing.T) {
	assert.Equal(t, `INSERT INTO "data" VALUES (?, ?, ?)`, Insert("data", 3))
	assert.Equal(t, `INSERT INTO "data" VALUES (?)`, Insert("data", 1))
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "idx_data_town", IndexName("data", []string{"town"}))
	assert.Equal(t, "idx_data_town_zip", IndexName("data", []string{"town", "zip"}))

	spaced := IndexName("data", []string{"a b"})
	assert.Regexp(t, `^idx_data_ab_[0-9a-f]{8}$`, spaced)
	assert.NotEqual(t, IndexName("data", []string{"ab"}), spaced)
	assert.NotEqual(t, IndexName("data", []string{"a-b"}), spaced)
	assert.Equal(t, spaced, IndexName("data", []string{"a b"}), "names are stable")

	// Surrounding whitespace is not part of the stored column name.
	assert.Equal(t, "idx_data_town", IndexName("data", []string{" town "}))

	// Index names share one namespace per database, so tables matter too.
	assert.NotEqual(t, IndexName("t_a", []string{"b"}), IndexName("t", []string{"a", "b"}))
}

func TestCreateIndex(t *testing.T) {
	assert.Equal(t,
		`CREATE INDEX IF NOT EXISTS "idx_data_town" ON "data" ("town")`,
		CreateIndex("data", []string{"town"}))
}
