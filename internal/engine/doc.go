// Package engine executes parsed queries against an in-memory schema.
//
// The engine is the one entry point lesson code needs:
//
//	res := engine.Execute("SELECT name FROM students WHERE age >= 20", schema)
//	if !res.Success {
//	    // res.Code is SYNTAX_ERROR, UNKNOWN_TABLE, MALFORMED_JOIN,
//	    // EVALUATION_ERROR or (strict mode) UNKNOWN_COLUMN
//	}
//
// ARCHITECTURE:
//
// Each call runs a fixed pipeline. Every stage either hands fresh rows to the
// next or short-circuits to a failed Result:
//
//	normalize → parse → scan (or nested-loop join) → filter → order → limit → project
//
// Execute never panics into its caller. Errors, including recovered panics,
// come back as Result{Success: false}.
//
// EVALUATION SEMANTICS:
//
// Equality ("=", "!=", "<>") compares the text forms of both operands
// case-insensitively. Ordering operators ("<", "<=", ">", ">=") compare
// numerically and are false whenever either side is not a number. LIKE
// matches the whole text form case-insensitively with "%" and "_"
// wildcards. A column a row lacks, or a NULL cell, never equals, orders or
// matches anything, so "!=" is true for it.
//
// Join equality is strict: the ON values must have the same kind and value.
// Merged rows take left fields first and right fields second, so the right
// table wins a name collision.
//
// CONCURRENCY:
//
// An Engine holds only configuration. Execute reads the schema and allocates
// its own output, so any number of goroutines may execute against one shared
// schema. The schema is never mutated.
package engine
