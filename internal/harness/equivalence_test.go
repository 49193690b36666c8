package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMode_AttachClaimsMarkup(t *testing.T) {
	result, err := RunMode(counterScenario(), ModeAttach)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, ModeAttach, result.Mode)

	first := result.Trace[0]
	assert.Equal(t, "attach", first.Action)
	assert.Equal(t, "<div><span>Count: 0</span><button>+</button></div>", first.HTML)
	assert.Empty(t, first.Ops, "attach claims the pre-rendered nodes instead of creating them")
}

func TestRunMode_RejectsUnknownMode(t *testing.T) {
	_, err := RunMode(counterScenario(), "hydrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "hydrate"`)
}

func TestRunEquivalence_CounterMatches(t *testing.T) {
	res, err := RunEquivalence(counterScenario())
	require.NoError(t, err)

	assert.True(t, res.Match, "diffs: %v", res.Diffs)
	assert.Empty(t, res.Diffs)
	assert.True(t, res.Build.Pass, "build errors: %v", res.Build.Errors)
	assert.True(t, res.Attach.Pass, "attach errors: %v", res.Attach.Errors)
	assert.Equal(t, ModeBuild, res.Build.Mode)
	assert.Equal(t, ModeAttach, res.Attach.Mode)
	assert.Len(t, res.Attach.Trace, len(res.Build.Trace))
}

func TestRunEquivalence_ConditionalAndList(t *testing.T) {
	scenarios := []*Scenario{
		{
			Name:        "flag_equivalence",
			Description: "Branch swaps observe the same tree in both modes",
			Inline:      flagDoc,
			State:       map[string]any{"on": false},
			Actions:     map[string]ActionBinding{"flip": {Do: DoToggle, Field: "on"}},
			Steps: []Step{
				{Dispatch: &DispatchStep{At: "#flip", Event: "click"}},
				{Dispatch: &DispatchStep{At: "#flip", Event: "click"}},
			},
		},
		{
			Name:        "todo_equivalence",
			Description: "List growth observes the same tree in both modes",
			Inline:      todosDoc,
			State:       map[string]any{"items": []any{"a", "b"}},
			Actions:     map[string]ActionBinding{"add": {Do: DoAppend, Field: "items"}},
			Steps: []Step{
				{Dispatch: &DispatchStep{At: "#add", Event: "click"}},
			},
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			res, err := RunEquivalence(scenario)
			require.NoError(t, err)
			assert.True(t, res.Match, "diffs: %v", res.Diffs)
		})
	}
}

func TestCompareTraces_Equal(t *testing.T) {
	a := []TraceEntry{{Step: 0, Action: "build", HTML: "<div>x</div>", State: map[string]any{"n": float64(1)}}}
	b := []TraceEntry{{Step: 0, Action: "attach", HTML: "<div>x</div>", State: map[string]any{"n": float64(1)}}}
	assert.Empty(t, compareTraces(a, b), "labels and journals are not observables")
}

func TestCompareTraces_LengthMismatch(t *testing.T) {
	a := []TraceEntry{{Step: 0}, {Step: 1}}
	b := []TraceEntry{{Step: 0}}
	diffs := compareTraces(a, b)
	require.Len(t, diffs, 1)
	assert.Contains(t, diffs[0], "trace length")
}

func TestCompareTraces_HTMLDiff(t *testing.T) {
	a := []TraceEntry{{Step: 0, Action: "build", HTML: "<div>x</div>"}}
	b := []TraceEntry{{Step: 0, Action: "attach", HTML: "<div>y</div>"}}
	diffs := compareTraces(a, b)
	require.Len(t, diffs, 1)
	assert.Contains(t, diffs[0], "html differs")
}

func TestCompareTraces_StateDiff(t *testing.T) {
	a := []TraceEntry{{Step: 0, HTML: "", State: map[string]any{"n": float64(1)}}}
	b := []TraceEntry{{Step: 0, HTML: "", State: map[string]any{"n": float64(2)}}}
	diffs := compareTraces(a, b)
	require.Len(t, diffs, 1)
	assert.Contains(t, diffs[0], "state differs")
}

func TestValidateEquivalence_MixedBatch(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	goodContent := `
name: static_equivalence
description: "Static markup matches across modes"
inline: '{"name": "static", "ir_version": "1", "components": [{"name": "app", "root": [{"kind": "element", "tag": "div", "children": [{"kind": "text", "expr": {"kind": "lit", "value": "hello"}}]}]}]}'
expect:
  - {type: count, select: "div", count: 1}
`
	require.NoError(t, os.WriteFile(good, []byte(goodContent), 0644))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("description: \"No name\"\ninline: \"{}\"\n"), 0644))

	summary := ValidateEquivalence([]string{good, bad})
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, bad, summary.Failures[0].Path)
	assert.Contains(t, summary.Failures[0].Error, "failed to load scenario")
}
