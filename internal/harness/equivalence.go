package harness

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// EquivalenceResult reports whether one scenario observes the same world
// through a build-mode mount and an attach-mode mount.
//
// Observable means rendered markup and state. Journal activity is excluded
// from the comparison: attach claims existing nodes instead of creating
// them, so the two journals differ by construction.
type EquivalenceResult struct {
	Scenario string   `json:"scenario"`
	Match    bool     `json:"match"`
	Diffs    []string `json:"diffs,omitempty"`
	Build    *Result  `json:"build"`
	Attach   *Result  `json:"attach"`
}

// RunEquivalence runs a scenario once per mount mode and compares the
// traces entry by entry.
func RunEquivalence(scenario *Scenario) (*EquivalenceResult, error) {
	build, err := RunMode(scenario, ModeBuild)
	if err != nil {
		return nil, fmt.Errorf("build run: %w", err)
	}
	attach, err := RunMode(scenario, ModeAttach)
	if err != nil {
		return nil, fmt.Errorf("attach run: %w", err)
	}

	res := &EquivalenceResult{
		Scenario: scenario.Name,
		Build:    build,
		Attach:   attach,
	}
	res.Diffs = compareTraces(build.Trace, attach.Trace)
	res.Match = len(res.Diffs) == 0
	return res, nil
}

// compareTraces diffs two traces on their observable fields. Entries pair
// up positionally; both runs execute the same script, so a length mismatch
// already means a mount dropped or invented a step.
func compareTraces(build, attach []TraceEntry) []string {
	if len(build) != len(attach) {
		return []string{fmt.Sprintf("trace length: build has %d entries, attach has %d", len(build), len(attach))}
	}
	var diffs []string
	for i := range build {
		b, a := build[i], attach[i]
		if b.HTML != a.HTML {
			diffs = append(diffs, fmt.Sprintf(
				"entry %d (%s): html differs\n  build:  %s\n  attach: %s", i, b.Action, b.HTML, a.HTML))
		}
		if d := cmp.Diff(b.State, a.State); d != "" {
			diffs = append(diffs, fmt.Sprintf(
				"entry %d (%s): state differs (-build +attach):\n%s", i, b.Action, d))
		}
	}
	return diffs
}

// EquivalenceSummary aggregates equivalence checks over a scenario set.
type EquivalenceSummary struct {
	Total    int                  `json:"total"`
	Passed   int                  `json:"passed"`
	Failed   int                  `json:"failed"`
	Failures []EquivalenceFailure `json:"failures,omitempty"`
}

// EquivalenceFailure records one scenario that broke equivalence.
type EquivalenceFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Diffs    []string `json:"diffs,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ValidateEquivalence loads and checks every scenario file in paths. A
// scenario counts as failed when its traces diverge, when either run's
// expectations fail, or when it cannot be loaded or run at all.
func ValidateEquivalence(paths []string) *EquivalenceSummary {
	summary := &EquivalenceSummary{}
	for _, path := range paths {
		summary.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, EquivalenceFailure{
				Path:  path,
				Error: fmt.Sprintf("failed to load scenario: %v", err),
			})
			continue
		}

		res, err := RunEquivalence(scenario)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, EquivalenceFailure{
				Scenario: scenario.Name,
				Path:     path,
				Error:    fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}

		failure := EquivalenceFailure{Scenario: scenario.Name, Path: path, Diffs: res.Diffs}
		switch {
		case !res.Match:
			failure.Error = "build and attach runs diverged"
		case !res.Build.Pass:
			failure.Error = fmt.Sprintf("build run failed: %v", res.Build.Errors)
		case !res.Attach.Pass:
			failure.Error = fmt.Sprintf("attach run failed: %v", res.Attach.Errors)
		default:
			summary.Passed++
			continue
		}
		summary.Failed++
		summary.Failures = append(summary.Failures, failure)
	}
	return summary
}
