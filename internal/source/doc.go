// Package source defines the contract every row source implements and the
// iteration backend that serves as its semantic reference.
//
// A Source exposes Columns and Iterate plus four query operations:
//
//	Distinct(columns, filter)                       → *result.Set
//	Sum(column, groupBy, filter)                    → result.Scalar | *result.Mapping
//	Count(groupBy, filter)                          → result.Scalar | *result.Mapping
//	Reduce(fn, column, groupBy, initial, filter)    → result.Scalar | *result.Mapping
//
// Filters map column names to constraints: Eq(v) for equality, In(v...) for
// membership. Naming a column the source does not have, in any argument,
// fails with a *SchemaError.
//
// Generic implements the query operations over Iterate. Backends that can
// do better (see package sqlsource) override them but must return the same
// logical results.
package source
