package query

import (
	"strings"

	"github.com/weftlabs/weft/internal/host"
)

// Matcher executes selectors against a host tree.
//
// The zero value works on any tree. Refs, when set, resolves #name tests
// against a mount's ref table (typically Mount.Ref); without it #name falls
// back to comparing the id attribute.
type Matcher struct {
	Refs func(name string) host.Element
}

// Find returns every element under root matching sel, in document order,
// using a Matcher without a ref resolver. The root itself is never a
// candidate.
func Find(root host.Element, sel Selector) []host.Element {
	return (&Matcher{}).Find(root, sel)
}

// Find returns every element under root matching sel, in document order.
func (m *Matcher) Find(root host.Element, sel Selector) []host.Element {
	if root == nil || sel == nil {
		return nil
	}
	switch s := sel.(type) {
	case Step:
		return m.run(root, []Step{s})
	case *Step:
		return m.run(root, []Step{*s})
	case Chain:
		return m.run(root, s.Steps)
	case *Chain:
		return m.run(root, s.Steps)
	default:
		return nil
	}
}

// First returns the first match in document order, or false when nothing
// matches.
func (m *Matcher) First(root host.Element, sel Selector) (host.Element, bool) {
	found := m.Find(root, sel)
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}

func (m *Matcher) run(root host.Element, steps []Step) []host.Element {
	if len(steps) == 0 {
		return nil
	}
	matched := m.applyStep(steps[0], [][]host.Element{descendants(root)})
	for _, step := range steps[1:] {
		groups := make([][]host.Element, 0, len(matched))
		for _, parent := range matched {
			groups = append(groups, childElements(parent))
		}
		matched = m.applyStep(step, groups)
	}
	return matched
}

// applyStep filters each candidate group through the step's element tests,
// then lets positional tests pick within the surviving group.
func (m *Matcher) applyStep(step Step, groups [][]host.Element) []host.Element {
	var out []host.Element
	for _, group := range groups {
		var kept []host.Element
		for _, el := range group {
			if m.matchElement(step, el) {
				kept = append(kept, el)
			}
		}
		out = append(out, applyNth(step, kept)...)
	}
	return out
}

func (m *Matcher) matchElement(step Step, el host.Element) bool {
	for _, pred := range step.Preds {
		switch p := pred.(type) {
		case Tag:
			if el.Tag() != p.Name {
				return false
			}
		case *Tag:
			if el.Tag() != p.Name {
				return false
			}
		case Ref:
			if !m.matchRef(p.Name, el) {
				return false
			}
		case *Ref:
			if !m.matchRef(p.Name, el) {
				return false
			}
		case Class:
			if !hasClass(el, p.Name) {
				return false
			}
		case *Class:
			if !hasClass(el, p.Name) {
				return false
			}
		case Attr:
			if !matchAttr(p, el) {
				return false
			}
		case *Attr:
			if !matchAttr(*p, el) {
				return false
			}
		case Nth, *Nth:
			// Positional - applyNth handles these after element filtering.
		default:
			return false
		}
	}
	// An empty step matches nothing rather than everything.
	return len(step.Preds) > 0
}

// applyNth applies the step's positional picks in order. After the first
// pick the group is a singleton, so a later :nth past index 0 empties it
// (validate flags that shape).
func applyNth(step Step, kept []host.Element) []host.Element {
	for _, pred := range step.Preds {
		var idx int
		switch p := pred.(type) {
		case Nth:
			idx = p.Index
		case *Nth:
			idx = p.Index
		default:
			continue
		}
		if idx < 0 || idx >= len(kept) {
			return nil
		}
		kept = kept[idx : idx+1]
	}
	return kept
}

func (m *Matcher) matchRef(name string, el host.Element) bool {
	if m.Refs != nil {
		target := m.Refs(name)
		return target != nil && target == el
	}
	id, ok := el.Attr("id")
	return ok && id == name
}

func matchAttr(a Attr, el host.Element) bool {
	v, ok := el.Attr(a.Name)
	if !ok {
		return false
	}
	return !a.HasValue || v == a.Value
}

func hasClass(el host.Element, name string) bool {
	v, ok := el.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == name {
			return true
		}
	}
	return false
}

// descendants lists every element strictly below root in document order.
func descendants(root host.Element) []host.Element {
	var out []host.Element
	var walk func(el host.Element)
	walk = func(el host.Element) {
		for _, child := range el.Children() {
			ce, ok := child.(host.Element)
			if !ok {
				continue
			}
			out = append(out, ce)
			walk(ce)
		}
	}
	walk(root)
	return out
}

func childElements(parent host.Element) []host.Element {
	var out []host.Element
	for _, child := range parent.Children() {
		if ce, ok := child.(host.Element); ok {
			out = append(out, ce)
		}
	}
	return out
}
