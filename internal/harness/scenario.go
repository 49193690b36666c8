package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/query"
)

// Scenario defines a conformance test scenario: one document, a starting
// state, a scripted sequence of steps and the expectations to check.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named
	// after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the path to the compiled document JSON, resolved
	// relative to the scenario file location.
	Document string `yaml:"document,omitempty"`

	// Inline holds the document JSON directly. Exactly one of Document
	// and Inline must be set; Inline keeps small fixtures self-contained.
	Inline string `yaml:"inline,omitempty"`

	// Component names the component to mount. Empty uses the document's
	// root component.
	Component string `yaml:"component,omitempty"`

	// State contains the initial state fields. Values are normalized to
	// the runtime's value model (numbers become float64) before mounting.
	State map[string]any `yaml:"state,omitempty"`

	// Actions binds the document's action names to stock behaviors so
	// dispatched events have an effect. An event wired to an unbound
	// action dispatches, logs the failure and changes nothing.
	Actions map[string]ActionBinding `yaml:"actions,omitempty"`

	// Steps is the scripted sequence applied after the initial render.
	Steps []Step `yaml:"steps,omitempty"`

	// Expect contains expectations checked once after the last step.
	Expect []Expectation `yaml:"expect,omitempty"`
}

// ActionBinding attaches one of the stock field mutations to an action name.
type ActionBinding struct {
	// Do selects the behavior: "set", "toggle", "append" or "remove_at".
	Do string `yaml:"do"`

	// Field is the state field the behavior writes.
	Field string `yaml:"field"`
}

// Step is one scripted interaction. Exactly one of Set, Dispatch and
// Normalize must be present; Expect runs after the step settles.
type Step struct {
	// Set writes a state field, the way an external patch would.
	Set *SetStep `yaml:"set,omitempty"`

	// Dispatch fires a host event at the first element matching a
	// selector.
	Dispatch *DispatchStep `yaml:"dispatch,omitempty"`

	// Normalize merges adjacent text nodes in the host tree, simulating
	// a serialize/parse round trip mid-run.
	Normalize bool `yaml:"normalize,omitempty"`

	// Expect contains expectations checked after this step.
	Expect []Expectation `yaml:"expect,omitempty"`
}

// SetStep is an external state write.
type SetStep struct {
	Field string `yaml:"field"`
	Value any    `yaml:"value"`
}

// DispatchStep fires an event at a selector target.
type DispatchStep struct {
	// At is the selector for the target element. The first match in
	// document order receives the event; no match fails the step.
	At string `yaml:"at"`

	// Event is the event name ("click", "input", ...).
	Event string `yaml:"event"`

	// Value is the control value carried by input-like events.
	Value string `yaml:"value,omitempty"`

	// Checked is the checkbox state carried by input-like events.
	Checked bool `yaml:"checked,omitempty"`

	// Data carries extra event detail fields.
	Data map[string]any `yaml:"data,omitempty"`
}

// Expectation checks one observable after a step or at the end of the run.
type Expectation struct {
	// Type selects the check:
	//   - "text": text content of the first Select match equals Equals
	//   - "html": serialized first Select match; Equals or Contains
	//   - "state": state field Field equals Equals
	//   - "count": number of Select matches equals Count
	//   - "ops": journal entries of kind Op recorded during the step
	//     equal Count (for final expectations: during the whole run)
	Type string `yaml:"type"`

	// Select is the selector for tree-facing checks.
	Select string `yaml:"select,omitempty"`

	// Field is the state field for state checks.
	Field string `yaml:"field,omitempty"`

	// Equals is the expected value. For text checks it is compared
	// against the rendered text via the runtime's stringification.
	Equals any `yaml:"equals,omitempty"`

	// Contains is a substring the serialized HTML must contain.
	Contains string `yaml:"contains,omitempty"`

	// Op is the journal op kind for ops checks ("create", "insert",
	// "move", "remove", "set_attr", "remove_attr", "set_text", "focus").
	Op string `yaml:"op,omitempty"`

	// Count is the expected match or op count.
	Count int `yaml:"count,omitempty"`
}

// Expectation type constants.
const (
	ExpectText  = "text"
	ExpectHTML  = "html"
	ExpectState = "state"
	ExpectCount = "count"
	ExpectOps   = "ops"
)

// Stock action behaviors.
const (
	DoSet      = "set"
	DoToggle   = "toggle"
	DoAppend   = "append"
	DoRemoveAt = "remove_at"
)

// LoadScenario reads and parses a scenario YAML file. The document path is
// resolved relative to the scenario file. Returns an error if the file is
// malformed, contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Document != "" && !filepath.IsAbs(scenario.Document) {
		scenario.Document = filepath.Join(filepath.Dir(path), scenario.Document)
	}
	if scenario.Document != "" {
		if _, err := os.Stat(scenario.Document); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: document not found: %s", scenario.Document)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation, which
// catches typos like "expects:" for "expect:".
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Document == "" && s.Inline == "":
		return fmt.Errorf("one of document or inline is required")
	case s.Document != "" && s.Inline != "":
		return fmt.Errorf("document and inline are mutually exclusive")
	}

	if len(s.Steps) == 0 && len(s.Expect) == 0 {
		return fmt.Errorf("a scenario needs steps or expectations")
	}

	for name, binding := range s.Actions {
		if err := validateBinding(name, binding); err != nil {
			return err
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, exp := range s.Expect {
		if err := validateExpectation(fmt.Sprintf("expect[%d]", i), &exp); err != nil {
			return err
		}
	}

	return nil
}

func validateBinding(name string, b ActionBinding) error {
	switch b.Do {
	case DoSet, DoToggle, DoAppend, DoRemoveAt:
	default:
		return fmt.Errorf("actions[%s]: unknown behavior %q", name, b.Do)
	}
	if b.Field == "" {
		return fmt.Errorf("actions[%s]: field is required", name)
	}
	return nil
}

func validateStep(index int, step *Step) error {
	parts := 0
	if step.Set != nil {
		parts++
		if step.Set.Field == "" {
			return fmt.Errorf("steps[%d].set: field is required", index)
		}
	}
	if step.Dispatch != nil {
		parts++
		if step.Dispatch.At == "" {
			return fmt.Errorf("steps[%d].dispatch: at is required", index)
		}
		if step.Dispatch.Event == "" {
			return fmt.Errorf("steps[%d].dispatch: event is required", index)
		}
		if _, err := query.Compile(step.Dispatch.At); err != nil {
			return fmt.Errorf("steps[%d].dispatch: %w", index, err)
		}
	}
	if step.Normalize {
		parts++
	}
	if parts != 1 {
		return fmt.Errorf("steps[%d]: exactly one of set, dispatch, normalize is required", index)
	}

	for i, exp := range step.Expect {
		if err := validateExpectation(fmt.Sprintf("steps[%d].expect[%d]", index, i), &exp); err != nil {
			return err
		}
	}
	return nil
}

// journalKinds lists the journal op kinds an ops expectation may name.
var journalKinds = map[string]bool{
	"create": true, "insert": true, "move": true, "remove": true,
	"set_attr": true, "remove_attr": true, "set_text": true, "focus": true,
}

func validateExpectation(where string, e *Expectation) error {
	switch e.Type {
	case ExpectText:
		if e.Select == "" {
			return fmt.Errorf("%s: select is required for text", where)
		}
	case ExpectHTML:
		if e.Select == "" {
			return fmt.Errorf("%s: select is required for html", where)
		}
		if e.Equals == nil && e.Contains == "" {
			return fmt.Errorf("%s: equals or contains is required for html", where)
		}
	case ExpectState:
		if e.Field == "" {
			return fmt.Errorf("%s: field is required for state", where)
		}
	case ExpectCount:
		if e.Select == "" {
			return fmt.Errorf("%s: select is required for count", where)
		}
		if e.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative", where)
		}
	case ExpectOps:
		if !journalKinds[e.Op] {
			return fmt.Errorf("%s: unknown op kind %q", where, e.Op)
		}
		if e.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative", where)
		}
	case "":
		return fmt.Errorf("%s: type is required", where)
	default:
		return fmt.Errorf("%s: unknown expectation type %q", where, e.Type)
	}

	if e.Select != "" {
		if _, err := query.Compile(e.Select); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
	}
	if e.Type == ExpectText || e.Type == ExpectState {
		if err := checkValue(e.Equals); err != nil {
			return fmt.Errorf("%s: equals: %w", where, err)
		}
	}

	return nil
}

// checkValue verifies a YAML-sourced value can be normalized to the
// runtime's value model.
func checkValue(v any) error {
	_, err := normalizeValue(v)
	return err
}

// normalizeValue converts a YAML-parsed value to the runtime's value model:
// float64 numbers, plain strings and bools, []any and map[string]any
// composites. The dispatch mirrors the document decoder, so scenario values
// compare cleanly against evaluated ones.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string, float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			nv, err := normalizeValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if ir.IsForbiddenSegment(k) {
				return nil, fmt.Errorf("field %q: forbidden key", k)
			}
			nv, err := normalizeValue(item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = nv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// normalizeState normalizes every field of an initial-state map.
func normalizeState(state map[string]any) (map[string]any, error) {
	if state == nil {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(state))
	for name, v := range state {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("state field %q: %w", name, err)
		}
		out[name] = nv
	}
	return out, nil
}
