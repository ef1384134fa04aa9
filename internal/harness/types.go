package harness

import (
	"github.com/roach88/querylab/internal/engine"
)

// Result is the outcome of grading one exercise.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause matches.
	Pass bool `json:"pass"`

	// Errors contains one message per failed expectation.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Query is the engine's answer to the exercise query.
	Query engine.Result `json:"query"`

	// RunID identifies this grading run. Generated by the harness's
	// IDGenerator; not part of golden snapshots.
	RunID string `json:"run_id"`

	// ResultHash fingerprints the columns and rows of a successful query.
	// Empty when the query failed.
	ResultHash string `json:"result_hash,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for grading.
func NewResult(runID string) *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		RunID:  runID,
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
