package queryir

import "github.com/roach88/rowsource/internal/value"

// Query represents an abstract query over one table.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Expr is a single output column of a Select.
//
// This is a sealed interface - only types in this package implement it.
//
// Expr types:
//   - Column: a table column, by name
//   - CountAll: COUNT(*)
//   - Sum: exact decimal total of a column
//   - Null: the NULL literal
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal_value
//   - In: field IN (literal_values...)
//   - And: all predicates must be true
//
// There are no OR predicates. A filter is always a conjunction of
// per-column constraints.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select represents a table access with optional filtering, grouping and
// ordering.
//
// Semantics:
//
//	SELECT [DISTINCT] <columns> FROM <from> [WHERE <filter>]
//	[GROUP BY <group_by>] [ORDER BY <order_by>]
//
// Example:
//
//	Select{
//	  From:    "data",
//	  Columns: []Expr{Column{Name: "state"}, Sum{Column: "pop"}},
//	  Filter:  In{Field: "state", Values: []value.Value{value.Text("A"), value.Text("B")}},
//	  GroupBy: []string{"state"},
//	}
//
// Translates to SQL:
//
//	SELECT "state", decimal_sum("pop") FROM "data"
//	WHERE "state" IN (?, ?) GROUP BY "state"
type Select struct {
	From     string    // Table name
	Distinct bool      // SELECT DISTINCT
	Columns  []Expr    // Output columns (required, no SELECT *)
	Filter   Predicate // WHERE conditions (nil = no filter)
	GroupBy  []string  // GROUP BY column names
	OrderBy  []string  // ORDER BY column names, ascending
}

func (Select) queryNode() {}

// Column selects a table column by name.
type Column struct {
	Name string
}

func (Column) exprNode() {}

// CountAll counts rows (per group when grouped).
type CountAll struct{}

func (CountAll) exprNode() {}

// Sum totals a column with exact decimal arithmetic. Empty and null values
// count as zero.
type Sum struct {
	Column string
}

func (Sum) exprNode() {}

// Null selects the NULL literal, one per row.
type Null struct{}

func (Null) exprNode() {}

// Equals represents a field-equals-literal predicate.
//
// Semantics:
//
//	<field> = <value>
//
// Value is always bound as a parameter, never interpolated.
// NULL never equals anything, so Equals with a Null value matches no rows.
type Equals struct {
	Field string      // Column name
	Value value.Value // Literal value
}

func (Equals) predicateNode() {}

// In represents a set-membership predicate.
//
// Semantics:
//
//	<field> IN (<values>...)
//
// An empty Values list matches no rows.
type In struct {
	Field  string        // Column name
	Values []value.Value // Accepted values
}

func (In) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty Predicates slice means "always true".
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
