// Package ir provides the schema model shared by every querylab package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Value is a sealed interface (Null, Text, Int, Decimal, Bool, Date)
//   - A Schema is immutable once loaded; the engine only ever reads it
//   - Rows keep insertion order inside a Table
//   - All JSON tags use snake_case
package ir
