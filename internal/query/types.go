package query

// Selector represents a compiled selector.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the matcher and validator.
//
// Selector types:
//   - Step: conjunction of tests against a single element
//   - Chain: steps joined by the direct-child combinator
type Selector interface {
	selectorNode() // Marker method - seals interface to this package
}

// Pred represents one test within a step.
//
// This is a sealed interface - only types in this package implement it.
//
// Pred types:
//   - Tag: element tag equals a name
//   - Ref: element is mounted under a ref name (or carries a matching id)
//   - Class: class attribute contains a name
//   - Attr: attribute present, optionally with an exact value
//   - Nth: positional pick among the step's survivors
type Pred interface {
	predNode() // Marker method - seals interface to this package
}

// Step is a conjunction of tests applied to one element.
//
// All non-positional preds must hold for an element to survive the step.
// Nth preds are positional: they run after the element tests and select by
// index within each candidate group. An empty step matches nothing.
type Step struct {
	Preds []Pred
}

func (Step) selectorNode() {}

// Chain is a sequence of steps joined by the direct-child combinator.
//
// The first step is evaluated against the whole subtree below the matching
// root; each subsequent step against the direct element children of the
// previous step's matches. A single-step chain is equivalent to that step.
type Chain struct {
	Steps []Step
}

func (Chain) selectorNode() {}

// Tag tests the element tag.
//
//	button        Tag{Name: "button"}
type Tag struct {
	Name string
}

func (Tag) predNode() {}

// Ref tests element identity against a mount ref table.
//
//	#email        Ref{Name: "email"}
//
// With a ref resolver on the Matcher the element must be the one registered
// under Name. Without one, the test falls back to comparing the id
// attribute, which keeps selectors usable on trees that were never mounted.
type Ref struct {
	Name string
}

func (Ref) predNode() {}

// Class tests membership in the whitespace-separated class attribute.
//
//	.done         Class{Name: "done"}
type Class struct {
	Name string
}

func (Class) predNode() {}

// Attr tests attribute presence and, when HasValue is set, an exact value.
//
//	[disabled]    Attr{Name: "disabled"}
//	[type=text]   Attr{Name: "type", Value: "text", HasValue: true}
//
// Value comparison is exact string equality; there are no substring or
// prefix operators.
type Attr struct {
	Name     string
	Value    string
	HasValue bool
}

func (Attr) predNode() {}

// Nth picks the element at a 0-based index among the step's survivors.
//
//	:nth(2)       Nth{Index: 2}
//
// The index applies within each candidate group: per parent for steps after
// the first, over the whole subtree scan for the first step. An index past
// the end of a group matches nothing in that group.
type Nth struct {
	Index int
}

func (Nth) predNode() {}
