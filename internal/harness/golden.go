package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/weftlabs/weft/internal/ir"
)

// TraceSnapshot is the golden-file form of a scenario run. Serialization is
// canonical JSON, so byte comparison is deterministic across runs and
// platforms.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Mode     string       `json:"mode"`
	Trace    []TraceEntry `json:"trace"`
}

// NewSnapshot pairs a scenario with its run result.
func NewSnapshot(scenario *Scenario, result *Result) *TraceSnapshot {
	return &TraceSnapshot{Scenario: scenario.Name, Mode: result.Mode, Trace: result.Trace}
}

// MarshalCanonical serializes the snapshot as canonical JSON.
func (s *TraceSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// toCanonicalMap lowers the snapshot to the value model the canonical
// marshaler accepts. Op counts are rebuilt as map[string]any; typed maps
// are not part of that model.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, e := range s.Trace {
		ops := make(map[string]any, len(e.Ops))
		for kind, n := range e.Ops {
			ops[kind] = n
		}
		trace[i] = map[string]any{
			"step":   e.Step,
			"action": e.Action,
			"html":   e.HTML,
			"state":  e.State,
			"ops":    ops,
		}
	}
	return map[string]any{
		"scenario": s.Scenario,
		"mode":     s.Mode,
		"trace":    trace,
	}
}

// RunWithGolden executes a scenario in build mode and compares the trace
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error for setup failures; a trace mismatch fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()
	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing run result against a golden file. Use
// it when the result is needed for further checks beyond the trace.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()
	snapshot := &TraceSnapshot{Scenario: name, Mode: result.Mode, Trace: result.Trace}
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
