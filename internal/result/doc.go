// Package result provides the containers sources return from queries.
//
// A query yields one of:
//   - Scalar: an ungrouped aggregate (sum, count, reduce)
//   - *Set: distinct value tuples, unordered
//   - *Mapping: group-key tuple → aggregate value, with the group-by
//     column names it was produced against
//
// Containers compare tuples through value.Key, so Int 15 and Decimal 15.0
// identify the same group while Text "15" does not.
package result
