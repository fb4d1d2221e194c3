package querysql

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// EmptyColumn replaces a column name that is empty after trimming.
const EmptyColumn = "_empty_"

// NormalizeColumn returns the name a column is stored under: surrounding
// whitespace is trimmed and an empty name becomes EmptyColumn.
func NormalizeColumn(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return EmptyColumn
	}
	return name
}

// QuoteIdent normalizes a column name and quotes it as a SQLite identifier.
// Embedded double quotes are doubled.
func QuoteIdent(name string) string {
	return quote(NormalizeColumn(name))
}

// QuoteIdents quotes each name and joins them with ", ".
func QuoteIdents(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = QuoteIdent(n)
	}
	return strings.Join(parts, ", ")
}

// QuoteTable quotes a table name. Unlike columns, table names are used as
// given.
func QuoteTable(name string) string {
	return quote(name)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// CreateTable returns the statement creating an untyped table with the
// given columns, in order.
func CreateTable(table string, columns []string) string {
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteTable(table), QuoteIdents(columns))
}

// Insert returns a positional insert statement for n values.
func Insert(table string, n int) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteTable(table), marks)
}

// indexDomain separates index-name hashes from any other use of sha256.
const indexDomain = "rowsource/index/v1"

// IndexName derives an index name from the table and the alphanumeric
// characters of each column: idx_<table>_<col1>_<col2>. When the table or
// a column loses characters on the way, a short hash of the quoted table
// and column list is appended, so ("a b") and ("ab") get different names.
func IndexName(table string, columns []string) string {
	lossy := !isAlnum(table)
	parts := make([]string, len(columns))
	for i, c := range columns {
		c = NormalizeColumn(c)
		parts[i] = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, c)
		if parts[i] != c {
			lossy = true
		}
	}
	name := fmt.Sprintf("idx_%s_%s", table, strings.Join(parts, "_"))
	if !lossy {
		return name
	}

	h := sha256.New()
	h.Write([]byte(indexDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(QuoteTable(table) + " (" + QuoteIdents(columns) + ")"))
	return name + "_" + hex.EncodeToString(h.Sum(nil))[:8]
}

func isAlnum(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// CreateIndex returns an idempotent CREATE INDEX statement.
func CreateIndex(table string, columns []string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		quote(IndexName(table, columns)), QuoteTable(table), QuoteIdents(columns))
}
