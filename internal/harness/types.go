package harness

import "github.com/weftlabs/weft/internal/host"

// TraceEntry is one snapshot in the run trace: the rendered tree, the state
// and the journal activity observed after a step settled. Entry 0 is the
// initial render.
type TraceEntry struct {
	// Step is the snapshot position; 0 is the initial render, n is the
	// state after Steps[n-1].
	Step int `json:"step"`

	// Action describes what produced this snapshot ("build", "attach",
	// "set count", "dispatch click at #inc", "normalize").
	Action string `json:"action"`

	// HTML is the serialized content of the mount root.
	HTML string `json:"html"`

	// State is the state snapshot after the step.
	State map[string]any `json:"state"`

	// Ops counts the journal entries recorded during the step, by kind.
	// Kinds with no entries are omitted.
	Ops map[string]int `json:"ops"`

	// Journal holds the raw ops behind Ops, in sequence order. Excluded
	// from serialized traces; the trace command prints it.
	Journal []host.Op `json:"-"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation matched and
	// neither the mount nor the reactive runtime faulted.
	Pass bool `json:"pass"`

	// Mode records how the scenario was mounted: "build" or "attach".
	Mode string `json:"mode"`

	// Trace contains the snapshot after the initial render and after
	// every step, in order. Golden comparison serializes this.
	Trace []TraceEntry `json:"trace"`

	// Errors contains expectation failures and runtime faults.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result for the given mount mode.
func NewResult(mode string) *Result {
	return &Result{
		Pass:   true,
		Mode:   mode,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends one snapshot to the trace.
func (r *Result) AddTrace(entry TraceEntry) {
	r.Trace = append(r.Trace, entry)
}
