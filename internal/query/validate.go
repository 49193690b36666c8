package query

import (
	"fmt"
	"sort"
)

// ValidationResult contains satisfiability analysis of a selector.
type ValidationResult struct {
	// Satisfiable indicates whether some tree could match the selector.
	// False means the selector contains a contradiction and Find returns
	// nothing regardless of input.
	Satisfiable bool

	// Warnings describes the contradictions found. Empty when Satisfiable.
	Warnings []string
}

// Validate checks a selector for contradictions that make it unmatchable:
// two different tag tests in one step, conflicting ref names or attribute
// values, a positional pick that empties a singleton, a negative index, or
// an empty step. Compile never produces most of these shapes; hand-built IR
// can.
//
// Validate is a pure function with no side effects.
func Validate(sel Selector) ValidationResult {
	v := &validator{}
	v.validateSelector(sel)
	return ValidationResult{
		Satisfiable: len(v.warnings) == 0,
		Warnings:    v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateSelector(sel Selector) {
	if sel == nil {
		v.addWarning("nil selector matches nothing")
		return
	}
	switch s := sel.(type) {
	case Step:
		v.validateStep(0, s)
	case *Step:
		v.validateStep(0, *s)
	case Chain:
		v.validateChain(s)
	case *Chain:
		v.validateChain(*s)
	default:
		v.addWarning("unknown selector type %T", sel)
	}
}

func (v *validator) validateChain(c Chain) {
	if len(c.Steps) == 0 {
		v.addWarning("empty chain matches nothing")
		return
	}
	for i, step := range c.Steps {
		v.validateStep(i, step)
	}
}

func (v *validator) validateStep(index int, s Step) {
	if len(s.Preds) == 0 {
		v.addWarning("step %d: empty step matches nothing", index)
		return
	}

	tags := map[string]bool{}
	refs := map[string]bool{}
	attrValues := map[string]map[string]bool{}
	sawNth := false

	for _, pred := range s.Preds {
		switch p := pred.(type) {
		case Tag:
			tags[p.Name] = true
		case *Tag:
			tags[p.Name] = true
		case Ref:
			refs[p.Name] = true
		case *Ref:
			refs[p.Name] = true
		case Class, *Class:
			// Any number of class tests can hold together.
		case Attr:
			recordAttr(attrValues, p)
		case *Attr:
			recordAttr(attrValues, *p)
		case Nth:
			v.checkNth(index, p, &sawNth)
		case *Nth:
			v.checkNth(index, *p, &sawNth)
		default:
			v.addWarning("step %d: unknown pred type %T", index, pred)
		}
	}

	if len(tags) > 1 {
		v.addWarning("step %d: %d different tag tests can never hold at once", index, len(tags))
	}
	if len(refs) > 1 {
		v.addWarning("step %d: %d different ref tests can never hold at once", index, len(refs))
	}
	// Sort names so repeated runs report conflicts in the same order.
	names := make([]string, 0, len(attrValues))
	for name := range attrValues {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(attrValues[name]) > 1 {
			v.addWarning("step %d: attribute %q tested against %d different values", index, name, len(attrValues[name]))
		}
	}
}

func (v *validator) checkNth(index int, n Nth, sawNth *bool) {
	if n.Index < 0 {
		v.addWarning("step %d: :nth index %d is negative", index, n.Index)
	}
	if *sawNth && n.Index > 0 {
		v.addWarning("step %d: a second :nth past index 0 can never match", index)
	}
	*sawNth = true
}

func recordAttr(seen map[string]map[string]bool, a Attr) {
	if !a.HasValue {
		return
	}
	if seen[a.Name] == nil {
		seen[a.Name] = map[string]bool{}
	}
	seen[a.Name][a.Value] = true
}
