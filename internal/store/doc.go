// Package store provides the SQLite layer under the relational source.
//
// A Store holds tables of untyped columns. It knows how to:
//   - open an owned database (in memory, at a path, or a temp file) or
//     wrap a caller-managed *sql.DB
//   - introspect a table's columns
//   - bulk load a table from Records in one atomic transaction
//   - run compiled queries and create indexes
//
// # Database Configuration
//
//   - One pooled connection: an in-memory database lives on one connection
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - synchronous=OFF while loading, restored afterwards
//
// Every connection opened through DriverName carries the decimal_sum
// aggregate, an exact replacement for SUM.
package store
