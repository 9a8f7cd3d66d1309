package harness

import "github.com/roach88/ruleflow/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Snapshot is the flow's causal history after evolving.
	Snapshot ir.FlowSnapshot `json:"-"`

	// Steps is the number of events appended after the initial one.
	Steps int `json:"steps"`

	// Inert reports whether the final event is inert.
	Inert bool `json:"inert"`

	// CapReached is set when until_inert stopped at max_steps.
	CapReached bool `json:"cap_reached,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Event returns the record at time t, if any.
func (r *Result) Event(t int) (ir.EventRecord, bool) {
	for _, ev := range r.Snapshot.Events {
		if ev.Time == t {
			return ev, true
		}
	}
	return ir.EventRecord{}, false
}
