package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/rowsource/internal/queryir"
	"github.com/roach88/rowsource/internal/value"
)

// DecimalSumFunc is the name of the exact decimal aggregate registered on
// every store connection.
const DecimalSumFunc = "decimal_sum"

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: All values are parameterized (never interpolated).
// CRITICAL: All identifiers are quoted with QuoteIdent.
type SQLCompiler struct {
	// SumFunc is the aggregate used for queryir.Sum.
	SumFunc string
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		SumFunc: DecimalSumFunc,
	}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// The query is validated first; see queryir.Validate.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select to SQL.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}

	exprs := make([]string, len(q.Columns))
	for i, expr := range q.Columns {
		sql, err := c.compileExpr(expr)
		if err != nil {
			return "", nil, err
		}
		exprs[i] = sql
	}
	b.WriteString(strings.Join(exprs, ", "))
	b.WriteString(" FROM ")
	b.WriteString(QuoteTable(q.From))

	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if filterSQL != "" {
			b.WriteString(" WHERE ")
			b.WriteString(filterSQL)
			params = filterParams
		}
	}

	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(QuoteIdents(q.GroupBy))
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(QuoteIdents(q.OrderBy))
	}

	return b.String(), params, nil
}

func (c *SQLCompiler) compileExpr(expr queryir.Expr) (string, error) {
	switch e := expr.(type) {
	case queryir.Column:
		return QuoteIdent(e.Name), nil
	case queryir.CountAll:
		return "COUNT(*)", nil
	case queryir.Null:
		return "NULL", nil
	case queryir.Sum:
		if c.SumFunc == "" {
			return "", fmt.Errorf("no sum aggregate configured")
		}
		return fmt.Sprintf("%s(%s)", c.SumFunc, QuoteIdent(e.Column)), nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", expr)
	}
}

// compilePredicate compiles a queryir.Predicate to a WHERE clause fragment.
// An empty fragment means "always true".
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.In:
		return c.compileIn(pred)
	case *queryir.In:
		return c.compileIn(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to `"field" = ?`.
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	return QuoteIdent(eq.Field) + " = ?", []any{value.ToParam(eq.Value)}, nil
}

// compileIn compiles an In predicate to `"field" IN (?, ?)`.
func (c *SQLCompiler) compileIn(in queryir.In) (string, []any, error) {
	marks := make([]string, len(in.Values))
	params := make([]any, len(in.Values))
	for i, v := range in.Values {
		marks[i] = "?"
		params[i] = value.ToParam(v)
	}
	return fmt.Sprintf("%s IN (%s)", QuoteIdent(in.Field), strings.Join(marks, ", ")), params, nil
}

// compileAnd compiles an And predicate to a conjunction with AND.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}
