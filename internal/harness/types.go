package harness

import (
	"github.com/roach88/sift/internal/filter"
	"github.com/roach88/sift/internal/store"
)

// CaseResult is the observed outcome of one case.
type CaseResult struct {
	Name   string `json:"name"`
	Filter string `json:"filter"`
	Query  string `json:"query"`

	// Plan is the predicate plan snapshot. Nil when the request was rejected.
	Plan map[string]any `json:"plan,omitempty"`

	// SQL is the compiled statement. Empty when the request was rejected.
	SQL string `json:"sql,omitempty"`

	// Rows holds the rows the store returned.
	Rows []store.Row `json:"rows,omitempty"`

	// Report is set when the request was rejected as client-caused.
	Report *filter.ValidationError `json:"report,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every case met its expectations.
	Pass bool `json:"pass"`

	// Cases holds one entry per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
