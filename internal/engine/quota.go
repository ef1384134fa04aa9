package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxJoinRows bounds how many merged rows one join may produce.
// Lesson tables hold tens of rows, so a real exercise never gets near it.
const DefaultMaxJoinRows = 100_000

// rowBudget counts rows emitted by the join executor and enforces a
// maximum.
//
// Each execution has its own rowBudget. It turns a pathological cross
// product into an evaluation error instead of unbounded memory use.
type rowBudget struct {
	max     int
	current int
}

func newRowBudget(max int) *rowBudget {
	return &rowBudget{max: max}
}

// Spend records one more emitted row and reports when the budget is gone.
func (b *rowBudget) Spend() error {
	b.current++
	if b.max > 0 && b.current > b.max {
		return &RowBudgetError{Rows: b.current, Limit: b.max}
	}
	return nil
}

// RowBudgetError is returned when a join produces more rows than allowed.
// Execute reports it as EVALUATION_ERROR.
type RowBudgetError struct {
	Rows  int
	Limit int
}

// Error implements the error interface.
func (e *RowBudgetError) Error() string {
	return fmt.Sprintf("join produced more than %d rows", e.Limit)
}

// IsRowBudgetError returns true if the error is a RowBudgetError.
// Uses errors.As to handle wrapped errors.
func IsRowBudgetError(err error) bool {
	var be *RowBudgetError
	return errors.As(err, &be)
}
