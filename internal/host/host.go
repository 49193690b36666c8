package host

// NodeKind discriminates host node handles.
type NodeKind int

const (
	KindElement NodeKind = iota
	KindText
	KindAnchor
	KindRaw
)

func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindAnchor:
		return "anchor"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Node is a handle to one node in the host tree. The runtime core treats
// handles as opaque: it only creates them, repositions them, and feeds them
// back to the document that produced them.
type Node interface {
	Kind() NodeKind
	Parent() Element
	NextSibling() Node
}

// Element is a host element handle.
type Element interface {
	Node
	Tag() string
	Attr(name string) (string, bool)
	// Attrs lists attributes in the order they were first set.
	Attrs() []Attribute
	SetAttr(name, value string)
	RemoveAttr(name string)
	Children() []Node
	// InsertBefore places child immediately before ref among this element's
	// children; a nil ref appends. A child already in the tree is moved,
	// not duplicated.
	InsertBefore(child, ref Node)
	// RemoveChild detaches child. Removing a node that is not a child is a
	// no-op.
	RemoveChild(child Node)
	// Listen registers a handler for the named event and returns its
	// removal function.
	Listen(event string, fn Listener) func()
	// Dispatch delivers an event to this element's listeners.
	Dispatch(ev Event)
	Focus()
}

// Text is a host text node handle.
type Text interface {
	Node
	Text() string
	SetText(text string)
}

// Anchor is a comment marker used as a stable insertion point for
// conditional and list regions.
type Anchor interface {
	Node
	Label() string
}

// Raw is a pre-rendered markup fragment inserted verbatim and never
// revisited.
type Raw interface {
	Node
	HTML() string
}

// Event is what a host delivers when a bound event fires. Value and Checked
// carry the originating control's current state for input-like events; Data
// carries any extra host-specific detail.
type Event struct {
	Name    string
	Value   string
	Checked bool
	Data    map[string]any
}

// Listener handles one dispatched event.
type Listener func(ev Event)

// Document creates host nodes and tracks document-wide focus. All methods
// are black-box effects from the runtime core's perspective.
type Document interface {
	NewElement(tag string) Element
	NewText(text string) Text
	NewAnchor(label string) Anchor
	NewRaw(html string) Raw
	Root() Element
	// ActiveElement is the currently focused element, nil when none.
	ActiveElement() Element
	SetFocus(el Element)
}
