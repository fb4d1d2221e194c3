// Package queryir provides the abstract query representation used by the
// relational backend.
//
// A source operation (distinct, sum, count, reduce) is first described as a
// queryir.Select and then compiled to SQL by package querysql:
//
//	[source operation] → [Query IR] → [SQL text + params]
//
// The IR is deliberately small. It covers a single table, explicit column
// selection, equality and membership filters combined with AND, grouping
// and ordering. There are no joins, no OR and no subqueries.
//
// SEALED INTERFACES:
//
// Query, Expr and Predicate are sealed interfaces using the marker method
// pattern. Only types in this package can implement them, so compilers can
// switch exhaustively:
//
//	switch e := expr.(type) {
//	case queryir.Column:
//	case queryir.CountAll:
//	case queryir.Sum:
//	}
//
// Literal values are value.Value, so filters carry the same scalar types
// that rows do and are bound as parameters, never interpolated.
package queryir
