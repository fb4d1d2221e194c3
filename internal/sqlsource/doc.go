// Package sqlsource implements the relational source: a source.Source
// over one SQLite table.
//
// Filters, grouping and aggregation are compiled through queryir and
// querysql into a single parameterized statement per operation. Results
// match the iteration backend (source.Generic) for the same rows.
//
// Two constructors exist. New and NewDB adapt a table that already
// exists; the source does not own it. FromRecords bulk loads records
// into a fresh database that the source owns and releases on Close.
package sqlsource
