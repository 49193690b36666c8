package ir

// Node is a sealed interface over compiled tree node forms.
// Only the types in this file implement it. As with Expr, an unknown Node
// kind is a version mismatch and mounting fails loudly on it.
type Node interface {
	node() // Sealed - only these types implement it
}

// Element is a host element with reactive props and children.
// Ref, when non-empty, registers the created node in the mount's ref table
// (consumed by ElemRef and ValidityRef expressions).
type Element struct {
	Tag      string
	Ref      string
	Props    []Prop
	Children []Node
}

func (*Element) node() {}

// Text is a text node whose content tracks an expression.
// A no-value result renders as the empty string.
type Text struct {
	Expr Expr
}

func (*Text) node() {}

// If is a conditional region. Else may be nil. The region keeps a stable
// anchor in the host tree so branch swaps have a fixed insertion point.
type If struct {
	Cond Expr
	Then []Node
	Else []Node
}

func (*If) node() {}

// Each is a list region. Bind names the per-item variable; IndexBind, when
// non-empty, names the per-item index variable. Key, when non-nil, switches
// the region to keyed reconciliation (item state keyed by the evaluated key,
// minimal host moves). With a nil Key every change rebuilds all items.
type Each struct {
	Items     Expr
	Bind      string
	IndexBind string
	Key       Expr
	Body      []Node
}

func (*Each) node() {}

// Markdown is a static leaf pre-rendered to HTML at decode time.
// The runtime inserts it as raw markup and never revisits it.
type Markdown struct {
	HTML string
}

func (*Markdown) node() {}

// CodeBlock is a static leaf holding an escaped, pre-formatted code listing.
type CodeBlock struct {
	HTML string
}

func (*CodeBlock) node() {}

// Prop is one element property: either a reactive attribute (Value set) or
// an event binding (Handler set). Exactly one of the two is non-nil.
type Prop struct {
	Name    string
	Value   Expr
	Handler *Handler
}

// Handler describes an event binding: on Event, run Action with the
// evaluated Payload. Payload forms: nil (no payload), a single Expr, or a
// flat named map of expressions.
type Handler struct {
	Event   string
	Action  string
	Payload *Payload
}

// Payload is the argument descriptor of a Handler. When Expr is non-nil the
// payload is that single value; otherwise Fields maps argument names to
// expressions. Proto-named fields are dropped at resolution time, never
// forwarded to the executor.
type Payload struct {
	Expr   Expr
	Fields map[string]Expr
}

// KnownEvents defines the event names a compiled document may bind.
// The value records whether the runtime derives an input value for the
// event (the implicit "value"/"checked" locals in payload expressions).
var KnownEvents = map[string]bool{
	"click":      false,
	"dblclick":   false,
	"input":      true,
	"change":     true,
	"submit":     false,
	"keydown":    true,
	"keyup":      true,
	"focus":      false,
	"blur":       false,
	"mouseenter": false,
	"mouseleave": false,
}
