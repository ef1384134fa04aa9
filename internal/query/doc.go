// Package query turns learner-typed SQL text into a structured Plan.
//
// PIPELINE:
//
//	[raw text] → Normalize → [canonical text] → Parse → Plan
//
// Normalize is a pure textual canonicalization (case, whitespace, trailing
// semicolon). Parse recognizes exactly two statement shapes:
//
//	SELECT <columns> FROM <table>
//	  [WHERE <cond> {AND <cond>}] [ORDER BY <column> [ASC|DESC]] [LIMIT <n>]
//
//	SELECT <columns> FROM <table> [INNER] JOIN <table>
//	  ON <table>.<column> = <table>.<column>
//	  [WHERE <cond> {AND <cond>}] [ORDER BY <column> [ASC|DESC]]
//
// The plain shape is tried first, then the join shape. Anything else is a
// *SyntaxError. A join whose ON clause is not a single qualified equality is
// a *MalformedJoinError.
//
// SEALED INTERFACES:
//
// Plan and Predicate are sealed using the marker method pattern. Consumers
// switch exhaustively:
//
//	switch p := plan.(type) {
//	case *Select:
//	case *Join:
//	}
//
// The parser performs no semantic validation. Table and column existence is
// checked at execution time; Inspect offers author-facing warnings against a
// schema without changing how a plan executes.
package query
