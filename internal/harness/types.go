package harness

import (
	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step        int    `json:"step"` // 1-based position in Scenario.Steps
	Op          string `json:"op"`
	Entity      string `json:"entity,omitempty"`
	Attribute   string `json:"attribute,omitempty"`
	Value       string `json:"value,omitempty"`
	Cardinality string `json:"cardinality,omitempty"`
	Seq         int64  `json:"seq,omitempty"`   // log sequence of the appended row
	Error       string `json:"error,omitempty"` // error code, empty on success
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Current is the current view after the last step.
	Current []fact.Triple `json:"current"`

	// Log is the raw fact log after the last step.
	Log []fact.Fact `json:"log"`

	// History is every change record, oldest first.
	History []history.ChangeRecord `json:"history"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Current: []fact.Triple{},
		Log:     []fact.Fact{},
		History: []history.ChangeRecord{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
