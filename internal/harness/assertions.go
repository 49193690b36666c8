package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/weftlabs/weft/internal/eval"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/query"
)

// AssertionError is returned when an expectation fails. It carries enough
// context to debug the failure without rerunning the scenario.
type AssertionError struct {
	Type     string // expectation type for categorization
	Where    string // "step 3" or "final"
	Expected string // human-readable expected outcome
	Actual   string // human-readable actual outcome
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s at %s\n", e.Type, e.Where)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// expect evaluates a batch of expectations and records failures on the
// result. n is the step index the batch belongs to; mark scopes journal
// checks to the mutations the batch may observe.
func (s *session) expect(n int, exps []Expectation, mark int64) {
	where := fmt.Sprintf("step %d", n)
	if n >= len(s.scenario.Steps) {
		where = "final"
	}
	for _, e := range exps {
		if err := s.evaluate(e, where, mark); err != nil {
			s.result.AddError(err.Error())
		}
	}
}

func (s *session) evaluate(e Expectation, where string, mark int64) error {
	switch e.Type {
	case ExpectText:
		return s.assertText(e, where)
	case ExpectHTML:
		return s.assertHTML(e, where)
	case ExpectState:
		return s.assertState(e, where)
	case ExpectCount:
		return s.assertCount(e, where)
	case ExpectOps:
		// The journal is a build-mode observable. An attach run claims
		// nodes instead of creating them, so the same script skips these
		// checks there.
		if s.mode == ModeAttach {
			return nil
		}
		return s.assertOps(e, where, mark)
	default:
		return fmt.Errorf("%s: unknown expectation type %q", where, e.Type)
	}
}

// assertText compares the text content of the first selector match against
// the expected value, stringified the way rendered text bindings are.
func (s *session) assertText(e Expectation, where string) error {
	el, err := s.selectFirst(e, where)
	if err != nil {
		return err
	}
	want, nerr := normalizeValue(e.Equals)
	if nerr != nil {
		return fmt.Errorf("%s: equals: %w", where, nerr)
	}
	expected := eval.Stringify(want)
	actual := strings.Join(host.Texts(el), "")
	if actual != expected {
		return &AssertionError{
			Type:     ExpectText,
			Where:    where,
			Expected: fmt.Sprintf("text %q at %q", expected, e.Select),
			Actual:   fmt.Sprintf("%q", actual),
		}
	}
	return nil
}

// assertHTML compares the serialized subtree of the first selector match.
func (s *session) assertHTML(e Expectation, where string) error {
	el, err := s.selectFirst(e, where)
	if err != nil {
		return err
	}
	actual := host.HTML(el)
	if e.Contains != "" {
		if !strings.Contains(actual, e.Contains) {
			return &AssertionError{
				Type:     ExpectHTML,
				Where:    where,
				Expected: fmt.Sprintf("html containing %q at %q", e.Contains, e.Select),
				Actual:   actual,
			}
		}
		return nil
	}
	expected, ok := e.Equals.(string)
	if !ok {
		return fmt.Errorf("%s: html equals must be a string, got %T", where, e.Equals)
	}
	if actual != expected {
		return &AssertionError{
			Type:     ExpectHTML,
			Where:    where,
			Expected: fmt.Sprintf("html %q at %q", expected, e.Select),
			Actual:   actual,
		}
	}
	return nil
}

// assertState compares one state field against the expected value, with
// both sides normalized to the runtime's value model first.
func (s *session) assertState(e Expectation, where string) error {
	want, err := normalizeValue(e.Equals)
	if err != nil {
		return fmt.Errorf("%s: equals: %w", where, err)
	}
	got := s.st.Get(e.Field)
	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     ExpectState,
			Where:    where,
			Expected: fmt.Sprintf("field %q = %v (%T)", e.Field, want, want),
			Actual:   fmt.Sprintf("%v (%T)\n  Diff (-want +got):\n%s", got, got, indent(diff)),
		}
	}
	return nil
}

// assertCount compares the number of selector matches.
func (s *session) assertCount(e Expectation, where string) error {
	sel, err := query.Compile(e.Select)
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	matches := s.matcher.Find(s.hostDoc.Root(), sel)
	if len(matches) != e.Count {
		return &AssertionError{
			Type:     ExpectCount,
			Where:    where,
			Expected: fmt.Sprintf("%d matches for %q", e.Count, e.Select),
			Actual:   fmt.Sprintf("%d matches", len(matches)),
		}
	}
	return nil
}

// assertOps compares the number of journal entries of one kind recorded
// since mark.
func (s *session) assertOps(e Expectation, where string, mark int64) error {
	ops := s.hostDoc.OpsSince(mark)
	count := host.CountOps(ops, host.OpKind(e.Op))
	if count != e.Count {
		return &AssertionError{
			Type:     ExpectOps,
			Where:    where,
			Expected: fmt.Sprintf("%d %s ops", e.Count, e.Op),
			Actual:   fmt.Sprintf("%d %s ops of %d total", count, e.Op, len(ops)),
		}
	}
	return nil
}

// selectFirst resolves an expectation's selector to its first match.
func (s *session) selectFirst(e Expectation, where string) (host.Element, error) {
	sel, err := query.Compile(e.Select)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	el, ok := s.matcher.First(s.hostDoc.Root(), sel)
	if !ok {
		return nil, &AssertionError{
			Type:     e.Type,
			Where:    where,
			Expected: fmt.Sprintf("an element matching %q", e.Select),
			Actual:   "no match",
		}
	}
	return el, nil
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
