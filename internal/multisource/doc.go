// Package multisource combines several sources into one.
//
// The composite's columns are the union of its members' columns. A member
// that lacks a column reads as holding the empty string there, both when
// iterating and when filtering: a constraint on a missing column is met
// only by the empty string, and a member that cannot meet it is left out
// of the operation rather than failing it.
//
// Distinct, Sum and Count delegate to each member so relational members
// still answer with a single query; Reduce iterates the widened rows.
package multisource
