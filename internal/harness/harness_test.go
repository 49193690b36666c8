package harness

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/action"
	"github.com/weftlabs/weft/internal/reactive"
	"github.com/weftlabs/weft/internal/state"
)

// counterDoc renders a click counter: the button's payload computes the
// next value and the bound "bump" action stores it.
const counterDoc = `{
	"name": "counter", "ir_version": "1",
	"components": [{"name": "app", "root": [
		{"kind": "element", "tag": "div", "children": [
			{"kind": "element", "tag": "span", "children": [
				{"kind": "text", "expr": {"kind": "lit", "value": "Count: "}},
				{"kind": "text", "expr": {"kind": "state", "name": "count"}}
			]},
			{"kind": "element", "tag": "button", "ref": "inc",
			 "props": [{"kind": "on", "event": "click", "action": "bump",
				"payload": {"kind": "binary", "op": "+",
					"left": {"kind": "state", "name": "count"},
					"right": {"kind": "lit", "value": 1}}}],
			 "children": [{"kind": "text", "expr": {"kind": "lit", "value": "+"}}]}
		]}
	]}]
}`

// flagDoc swaps a conditional region between two branches.
const flagDoc = `{
	"name": "flag", "ir_version": "1",
	"components": [{"name": "app", "root": [
		{"kind": "element", "tag": "button", "ref": "flip",
		 "props": [{"kind": "on", "event": "click", "action": "flip"}],
		 "children": [{"kind": "text", "expr": {"kind": "lit", "value": "Flip"}}]},
		{"kind": "if", "cond": {"kind": "state", "name": "on"},
		 "then": [{"kind": "element", "tag": "span", "children": [
			{"kind": "text", "expr": {"kind": "lit", "value": "ON"}}]}],
		 "else": [{"kind": "element", "tag": "em", "children": [
			{"kind": "text", "expr": {"kind": "lit", "value": "OFF"}}]}]}
	]}]
}`

// todosDoc renders an unkeyed list plus a button appending a fixed entry.
const todosDoc = `{
	"name": "todos", "ir_version": "1",
	"components": [{"name": "app", "root": [
		{"kind": "element", "tag": "ul", "children": [
			{"kind": "each", "items": {"kind": "state", "name": "items"}, "bind": "it",
			 "body": [{"kind": "element", "tag": "li", "children": [
				{"kind": "text", "expr": {"kind": "var", "name": "it"}}
			 ]}]}
		]},
		{"kind": "element", "tag": "button", "ref": "add",
		 "props": [{"kind": "on", "event": "click", "action": "add",
			"payload": {"kind": "lit", "value": "new"}}],
		 "children": [{"kind": "text", "expr": {"kind": "lit", "value": "Add"}}]}
	]}]
}`

// fieldDoc binds an input's value attribute to state and writes the typed
// value back on input events.
const fieldDoc = `{
	"name": "field", "ir_version": "1",
	"components": [{"name": "app", "root": [
		{"kind": "element", "tag": "input", "ref": "name",
		 "props": [
			{"kind": "attr", "name": "value", "value": {"kind": "state", "name": "text"}},
			{"kind": "on", "event": "input", "action": "type",
			 "payload": {"kind": "var", "name": "value"}}
		 ]}
	]}]
}`

func counterScenario() *Scenario {
	return &Scenario{
		Name:        "counter_clicks",
		Description: "Clicking the button bumps the counter",
		Inline:      counterDoc,
		State:       map[string]any{"count": 0},
		Actions: map[string]ActionBinding{
			"bump": {Do: DoSet, Field: "count"},
		},
		Steps: []Step{
			{
				Dispatch: &DispatchStep{At: "#inc", Event: "click"},
				Expect: []Expectation{
					{Type: ExpectText, Select: "span", Equals: "Count: 1"},
					{Type: ExpectState, Field: "count", Equals: 1},
					{Type: ExpectOps, Op: "set_text", Count: 1},
				},
			},
			{Dispatch: &DispatchStep{At: "#inc", Event: "click"}},
		},
		Expect: []Expectation{
			{Type: ExpectState, Field: "count", Equals: 2},
			{Type: ExpectText, Select: "span", Equals: "Count: 2"},
			{Type: ExpectCount, Select: "button", Count: 1},
		},
	}
}

func TestRun_InitialRender(t *testing.T) {
	result, err := Run(counterScenario())
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	first := result.Trace[0]
	assert.Equal(t, 0, first.Step)
	assert.Equal(t, "build", first.Action)
	assert.Equal(t, "<div><span>Count: 0</span><button>+</button></div>", first.HTML)
	assert.Equal(t, map[string]any{"count": float64(0)}, first.State)
	assert.Equal(t, map[string]int{"create": 6, "insert": 6}, first.Ops)
}

func TestRun_DispatchBumpsCounter(t *testing.T) {
	result, err := Run(counterScenario())
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	after := result.Trace[1]
	assert.Equal(t, "dispatch click at #inc", after.Action)
	assert.Equal(t, "<div><span>Count: 1</span><button>+</button></div>", after.HTML)
	assert.Equal(t, map[string]int{"set_text": 1}, after.Ops)

	last := result.Trace[2]
	assert.Equal(t, map[string]any{"count": float64(2)}, last.State)
}

func TestRun_SetStepUpdatesTree(t *testing.T) {
	scenario := &Scenario{
		Name:        "external_set",
		Description: "An external state write reaches the rendered text",
		Inline:      counterDoc,
		State:       map[string]any{"count": 0},
		Steps: []Step{
			{Set: &SetStep{Field: "count", Value: 41}},
		},
		Expect: []Expectation{
			{Type: ExpectText, Select: "span", Equals: "Count: 41"},
			{Type: ExpectState, Field: "count", Equals: 41},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "set count", result.Trace[1].Action)
}

func TestRun_ConditionalBranchSwap(t *testing.T) {
	scenario := &Scenario{
		Name:        "flag_flip",
		Description: "Toggling the flag swaps the conditional branch",
		Inline:      flagDoc,
		State:       map[string]any{"on": false},
		Actions: map[string]ActionBinding{
			"flip": {Do: DoToggle, Field: "on"},
		},
		Steps: []Step{
			{
				Dispatch: &DispatchStep{At: "#flip", Event: "click"},
				Expect: []Expectation{
					{Type: ExpectText, Select: "span", Equals: "ON"},
					{Type: ExpectCount, Select: "em", Count: 0},
					{Type: ExpectState, Field: "on", Equals: true},
					{Type: ExpectOps, Op: "remove", Count: 1},
				},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_AppendGrowsList(t *testing.T) {
	scenario := &Scenario{
		Name:        "todo_append",
		Description: "Clicking add appends a list entry",
		Inline:      todosDoc,
		State:       map[string]any{"items": []any{"a", "b"}},
		Actions: map[string]ActionBinding{
			"add": {Do: DoAppend, Field: "items"},
		},
		Steps: []Step{
			{Dispatch: &DispatchStep{At: "#add", Event: "click"}},
		},
		Expect: []Expectation{
			{Type: ExpectCount, Select: "li", Count: 3},
			{Type: ExpectText, Select: "ul > li:nth(2)", Equals: "new"},
			{Type: ExpectState, Field: "items", Equals: []any{"a", "b", "new"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InputEventCarriesValue(t *testing.T) {
	scenario := &Scenario{
		Name:        "typed_value",
		Description: "Input events surface the control value to the payload",
		Inline:      fieldDoc,
		State:       map[string]any{"text": ""},
		Actions: map[string]ActionBinding{
			"type": {Do: DoSet, Field: "text"},
		},
		Steps: []Step{
			{
				Dispatch: &DispatchStep{At: "#name", Event: "input", Value: "ada"},
				Expect: []Expectation{
					{Type: ExpectState, Field: "text", Equals: "ada"},
					{Type: ExpectHTML, Select: "input", Equals: `<input value="ada">`},
					{Type: ExpectOps, Op: "set_attr", Count: 1},
				},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_NormalizeStepMergesText(t *testing.T) {
	scenario := &Scenario{
		Name:        "normalize_midrun",
		Description: "Normalizing mid-run keeps the rendered markup stable",
		Inline:      counterDoc,
		State:       map[string]any{"count": 3},
		Steps: []Step{
			{Normalize: true},
		},
		Expect: []Expectation{
			{Type: ExpectText, Select: "span", Equals: "Count: 3"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	entry := result.Trace[1]
	assert.Equal(t, "normalize", entry.Action)
	assert.Empty(t, entry.Ops, "normalization is not journaled")
	assert.Equal(t, result.Trace[0].HTML, entry.HTML, "markup serializes identically after the merge")
}

func TestRun_FailedExpectationRecorded(t *testing.T) {
	scenario := counterScenario()
	scenario.Expect = []Expectation{
		{Type: ExpectState, Field: "count", Equals: 99},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "Assertion failed: state at final")
	assert.Contains(t, result.Errors[0], `field "count"`)
}

func TestRun_DispatchWithoutMatchFails(t *testing.T) {
	scenario := counterScenario()
	scenario.Steps = []Step{
		{Dispatch: &DispatchStep{At: "#missing", Event: "click"}},
	}
	scenario.Expect = nil

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], `no element matches "#missing"`)
}

func TestRun_UnboundActionChangesNothing(t *testing.T) {
	scenario := counterScenario()
	scenario.Actions = nil

	result, err := Run(scenario)
	require.NoError(t, err)

	// The dispatch itself succeeds; the failed action is logged by the
	// renderer and the state never moves, so the count expectations fail.
	assert.False(t, result.Pass)
	assert.Equal(t, map[string]any{"count": float64(0)}, result.Trace[2].State)
}

func TestRun_SetupErrors(t *testing.T) {
	cases := []struct {
		name     string
		scenario *Scenario
		wantErr  string
	}{
		{
			name: "compile failure",
			scenario: &Scenario{
				Name:        "broken",
				Description: "Document fails schema validation",
				Inline:      `{"name": "x"}`,
				Expect:      []Expectation{{Type: ExpectCount, Select: "div", Count: 0}},
			},
			wantErr: "compile",
		},
		{
			name: "unknown component",
			scenario: &Scenario{
				Name:        "wrong_component",
				Description: "Component name not present in the document",
				Inline:      counterDoc,
				Component:   "sidebar",
				Expect:      []Expectation{{Type: ExpectCount, Select: "div", Count: 1}},
			},
			wantErr: `unknown component "sidebar"`,
		},
		{
			name: "missing document file",
			scenario: &Scenario{
				Name:        "gone",
				Description: "Referenced document file does not exist",
				Document:    "/nonexistent/doc.json",
				Expect:      []Expectation{{Type: ExpectCount, Select: "div", Count: 1}},
			},
			wantErr: "read document",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Run(tc.scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBindActions_StockBehaviors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := reactive.New(reactive.WithLogger(logger))
	st := state.NewMap(rt, map[string]any{
		"n":     float64(1),
		"on":    false,
		"items": []any{"a", "b"},
	}, state.WithLogger(logger))

	exec := BindActions(map[string]ActionBinding{
		"put":  {Do: DoSet, Field: "n"},
		"flip": {Do: DoToggle, Field: "on"},
		"push": {Do: DoAppend, Field: "items"},
		"drop": {Do: DoRemoveAt, Field: "items"},
	})
	env := action.Env{State: st, Logger: logger}

	require.NoError(t, exec.Execute(action.Invocation{Action: "put", Payload: float64(5)}, env))
	assert.Equal(t, float64(5), st.Get("n"))

	require.NoError(t, exec.Execute(action.Invocation{Action: "flip"}, env))
	assert.Equal(t, true, st.Get("on"))

	require.NoError(t, exec.Execute(action.Invocation{Action: "push", Payload: "c"}, env))
	assert.Equal(t, []any{"a", "b", "c"}, st.Get("items"))

	require.NoError(t, exec.Execute(action.Invocation{Action: "drop", Payload: float64(0)}, env))
	assert.Equal(t, []any{"b", "c"}, st.Get("items"))

	err := exec.Execute(action.Invocation{Action: "unknown"}, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown action "unknown"`)
}
