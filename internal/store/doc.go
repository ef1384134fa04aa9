// Package store moves lesson tables in and out of files.
//
// Two formats are supported:
//   - SQLite: a lesson database can be opened read-only as a schema source
//     (tables, columns, primary keys, foreign keys, rows), and a compiled
//     schema can be written out as a new database.
//   - Parquet seed files: rows for one or more tables stored as
//     (table_name, data_json) records, used to replace a scenario's rows.
//
// # Deterministic Reads
//
// Tables are read in creation order and rows in rowid order, so loading the
// same database twice yields identical schemas and identical query results.
//
// # Database Configuration
//
//   - Read-only databases are opened with mode=ro and query_only=ON
//   - Created databases enforce foreign keys, so tables are filled in
//     reference order (see compiler.LoadOrder)
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Seed rows are serialized with ir.MarshalCanonical so identical rows always
// produce identical files.
package store
