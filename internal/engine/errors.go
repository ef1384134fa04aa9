package engine

import (
	"errors"
	"fmt"
	"strings"
)

// QueryError represents an error detected while executing a query.
//
// Query errors are never returned across the Execute boundary as Go errors;
// Execute folds them into a failed Result carrying the same Code and
// Message. Run returns them directly for Go callers that want errors.As.
type QueryError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description shown to the learner.
	Message string

	// Table names the table involved (UNKNOWN_TABLE, UNKNOWN_COLUMN).
	Table string

	// Column names the column involved (UNKNOWN_COLUMN).
	Column string

	// Cause is the underlying error, if any.
	Cause error
}

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// CodeSyntaxError indicates the text matches neither statement shape.
	CodeSyntaxError ErrorCode = "SYNTAX_ERROR"

	// CodeUnknownTable indicates FROM or JOIN names a table not in the schema.
	CodeUnknownTable ErrorCode = "UNKNOWN_TABLE"

	// CodeMalformedJoin indicates an ON clause of the wrong shape.
	CodeMalformedJoin ErrorCode = "MALFORMED_JOIN"

	// CodeEvaluationError indicates an unexpected failure during evaluation.
	CodeEvaluationError ErrorCode = "EVALUATION_ERROR"

	// CodeUnknownColumn indicates a reference to a column no table in scope
	// declares. Only raised with WithStrictColumns(true).
	CodeUnknownColumn ErrorCode = "UNKNOWN_COLUMN"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// CodeOf returns the ErrorCode of a *QueryError anywhere in err's chain,
// or "" when there is none.
func CodeOf(err error) ErrorCode {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsSyntaxError returns true if the error is a syntax error.
// Uses errors.As to handle wrapped errors.
func IsSyntaxError(err error) bool { return CodeOf(err) == CodeSyntaxError }

// IsUnknownTable returns true if the error is an unknown-table error.
func IsUnknownTable(err error) bool { return CodeOf(err) == CodeUnknownTable }

// IsMalformedJoin returns true if the error is a malformed-join error.
func IsMalformedJoin(err error) bool { return CodeOf(err) == CodeMalformedJoin }

// IsUnknownColumn returns true if the error is a strict-mode unknown column.
func IsUnknownColumn(err error) bool { return CodeOf(err) == CodeUnknownColumn }

// NewUnknownTableError creates a QueryError listing the available tables.
func NewUnknownTableError(table string, available []string) *QueryError {
	return &QueryError{
		Code:    CodeUnknownTable,
		Message: fmt.Sprintf("unknown table %q; available tables: %s", table, strings.Join(available, ", ")),
		Table:   table,
	}
}

// NewUnknownColumnError creates a QueryError for strict column checking.
func NewUnknownColumnError(column string, tables []string) *QueryError {
	return &QueryError{
		Code: CodeUnknownColumn,
		Message: fmt.Sprintf("unknown column %q in %s",
			column, strings.Join(tables, ", ")),
		Table:  strings.Join(tables, ","),
		Column: column,
	}
}

// NewEvaluationError wraps an unexpected failure.
func NewEvaluationError(cause error) *QueryError {
	return &QueryError{
		Code:    CodeEvaluationError,
		Message: cause.Error(),
		Cause:   cause,
	}
}
