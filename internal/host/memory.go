package host

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// OpKind tags one journal entry.
type OpKind string

const (
	OpCreate     OpKind = "create"
	OpInsert     OpKind = "insert"
	OpMove       OpKind = "move"
	OpRemove     OpKind = "remove"
	OpSetAttr    OpKind = "set_attr"
	OpRemoveAttr OpKind = "remove_attr"
	OpSetText    OpKind = "set_text"
	OpFocus      OpKind = "focus"
)

// Op is one recorded host mutation. Seq values come from the document's
// monotonic clock, so an op sequence can be replayed or diffed in order.
type Op struct {
	Seq    int64
	Kind   OpKind
	Node   string
	Detail string
}

func (o Op) String() string {
	if o.Detail == "" {
		return fmt.Sprintf("%d %s %s", o.Seq, o.Kind, o.Node)
	}
	return fmt.Sprintf("%d %s %s %s", o.Seq, o.Kind, o.Node, o.Detail)
}

// Attribute is one element attribute. Order of the attribute list is
// insertion order, which keeps serialization deterministic.
type Attribute struct {
	Name  string
	Value string
}

// MemoryDocument is the in-process host tree. Every mutation is stamped by
// a monotonic clock and appended to a journal, so tests can assert not just
// on the final tree but on exactly which operations produced it (move
// counts, teardown counts, focus churn).
//
// MemoryDocument is confined to the dispatcher goroutine, like the rest of
// the runtime core; the clock is atomic only so ids stay unique if a test
// constructs nodes from a helper goroutine.
type MemoryDocument struct {
	clock   atomic.Int64
	root    *memElement
	focused *memElement
	journal []Op
}

// NewMemoryDocument creates an empty document with a "body" root.
func NewMemoryDocument() *MemoryDocument {
	d := &MemoryDocument{}
	d.root = d.newElement("body")
	return d
}

func (d *MemoryDocument) next() int64 { return d.clock.Add(1) }

func (d *MemoryDocument) log(kind OpKind, node, detail string) {
	d.journal = append(d.journal, Op{Seq: d.next(), Kind: kind, Node: node, Detail: detail})
}

// Root returns the document's root element.
func (d *MemoryDocument) Root() Element { return d.root }

// Mark returns the clock position; pass it to OpsSince to scope assertions
// to mutations performed after this point.
func (d *MemoryDocument) Mark() int64 { return d.clock.Load() }

// OpsSince returns the journal entries stamped after mark.
func (d *MemoryDocument) OpsSince(mark int64) []Op {
	i := 0
	for i < len(d.journal) && d.journal[i].Seq <= mark {
		i++
	}
	return slices.Clone(d.journal[i:])
}

// Journal returns a copy of the full mutation journal.
func (d *MemoryDocument) Journal() []Op { return slices.Clone(d.journal) }

// CountOps counts entries of one kind.
func CountOps(ops []Op, kind OpKind) int {
	n := 0
	for _, op := range ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (d *MemoryDocument) NewElement(tag string) Element { return d.newElement(tag) }

func (d *MemoryDocument) newElement(tag string) *memElement {
	e := &memElement{tag: tag}
	e.memNode = memNode{doc: d, kind: KindElement, id: fmt.Sprintf("e%d", d.next())}
	e.self = e
	d.log(OpCreate, e.id, tag)
	return e
}

func (d *MemoryDocument) NewText(text string) Text {
	t := &memText{text: text}
	t.memNode = memNode{doc: d, kind: KindText, id: fmt.Sprintf("t%d", d.next())}
	t.self = t
	d.log(OpCreate, t.id, preview(text))
	return t
}

func (d *MemoryDocument) NewAnchor(label string) Anchor {
	a := &memAnchor{label: label}
	a.memNode = memNode{doc: d, kind: KindAnchor, id: fmt.Sprintf("a%d", d.next())}
	a.self = a
	d.log(OpCreate, a.id, label)
	return a
}

func (d *MemoryDocument) NewRaw(html string) Raw {
	r := &memRaw{html: html}
	r.memNode = memNode{doc: d, kind: KindRaw, id: fmt.Sprintf("r%d", d.next())}
	r.self = r
	d.log(OpCreate, r.id, preview(html))
	return r
}

// ActiveElement returns the focused element, nil when nothing holds focus.
func (d *MemoryDocument) ActiveElement() Element {
	if d.focused == nil {
		return nil
	}
	return d.focused
}

// SetFocus moves document focus. Focusing nil blurs.
func (d *MemoryDocument) SetFocus(el Element) {
	target, _ := el.(*memElement)
	if d.focused == target {
		return
	}
	d.focused = target
	if target != nil {
		d.log(OpFocus, target.id, "")
	} else {
		d.log(OpFocus, "", "blur")
	}
}

// memNode carries the fields shared by every node kind. self holds the
// node's own interface value so sibling lookups compare handles directly.
type memNode struct {
	doc    *MemoryDocument
	self   Node
	id     string
	kind   NodeKind
	parent *memElement
}

func (n *memNode) Kind() NodeKind { return n.kind }

func (n *memNode) Parent() Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *memNode) NextSibling() Node {
	if n.parent == nil {
		return nil
	}
	i := slices.Index(n.parent.children, n.self)
	if i < 0 || i+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[i+1]
}

func (n *memNode) base() *memNode { return n }

func toBase(n Node) *memNode {
	if n == nil {
		return nil
	}
	b, ok := n.(interface{ base() *memNode })
	if !ok {
		return nil
	}
	return b.base()
}

type listenerEntry struct {
	id int64
	fn Listener
}

type memElement struct {
	memNode
	tag       string
	attrs     []Attribute
	children  []Node
	listeners map[string][]listenerEntry
}

func (e *memElement) Tag() string { return e.tag }

func (e *memElement) Attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attrs returns the attribute list in insertion order.
func (e *memElement) Attrs() []Attribute { return slices.Clone(e.attrs) }

func (e *memElement) SetAttr(name, value string) {
	set := false
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = value
			set = true
			break
		}
	}
	if !set {
		e.attrs = append(e.attrs, Attribute{Name: name, Value: value})
	}
	e.doc.log(OpSetAttr, e.id, name+"="+value)
}

func (e *memElement) RemoveAttr(name string) {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			e.doc.log(OpRemoveAttr, e.id, name)
			return
		}
	}
}

func (e *memElement) Children() []Node { return slices.Clone(e.children) }

func (e *memElement) InsertBefore(child, ref Node) {
	cb := toBase(child)
	if cb == nil || cb.self == e.self {
		return
	}
	kind := OpInsert
	if cb.parent != nil {
		kind = OpMove
		// A move passes through a detached state; focus inside the moved
		// subtree is lost exactly as on a real host.
		if f := e.doc.focused; f != nil && underneath(f, child) {
			e.doc.focused = nil
			e.doc.log(OpFocus, "", "blur")
		}
		cb.parent.detach(child)
	}
	idx := len(e.children)
	if ref != nil {
		if i := slices.Index(e.children, ref); i >= 0 {
			idx = i
		}
	}
	e.children = slices.Insert(e.children, idx, child)
	cb.parent = e
	e.doc.log(kind, cb.id, "into "+e.id)
}

func (e *memElement) RemoveChild(child Node) {
	cb := toBase(child)
	if cb == nil || cb.parent != e {
		return
	}
	// Focus inside a removed subtree is lost, as on a real host.
	if f := e.doc.focused; f != nil && underneath(f, child) {
		e.doc.focused = nil
	}
	e.detach(child)
	e.doc.log(OpRemove, cb.id, "from "+e.id)
}

// detach unlinks without journaling; callers record the higher-level op.
func (e *memElement) detach(child Node) {
	if i := slices.Index(e.children, child); i >= 0 {
		e.children = append(e.children[:i], e.children[i+1:]...)
	}
	if cb := toBase(child); cb != nil {
		cb.parent = nil
	}
}

func (e *memElement) Listen(event string, fn Listener) func() {
	if e.listeners == nil {
		e.listeners = make(map[string][]listenerEntry)
	}
	id := e.doc.next()
	e.listeners[event] = append(e.listeners[event], listenerEntry{id: id, fn: fn})
	return func() {
		entries := e.listeners[event]
		for i := range entries {
			if entries[i].id == id {
				e.listeners[event] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

func (e *memElement) Dispatch(ev Event) {
	for _, ent := range slices.Clone(e.listeners[ev.Name]) {
		ent.fn(ev)
	}
}

func (e *memElement) Focus() { e.doc.SetFocus(e) }

// underneath reports whether n sits at or below root.
func underneath(n Node, root Node) bool {
	for b := toBase(n); b != nil; b = toBase(b.Parent()) {
		if b.self == root {
			return true
		}
	}
	return false
}

type memText struct {
	memNode
	text string
}

func (t *memText) Text() string { return t.text }

func (t *memText) SetText(text string) {
	t.text = text
	t.doc.log(OpSetText, t.id, preview(text))
}

type memAnchor struct {
	memNode
	label string
}

func (a *memAnchor) Label() string { return a.label }

type memRaw struct {
	memNode
	html string
}

func (r *memRaw) HTML() string { return r.html }

func preview(s string) string {
	const max = 32
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
