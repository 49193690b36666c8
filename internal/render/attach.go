package render

import (
	"fmt"
	"strings"

	"github.com/weftlabs/weft/internal/eval"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/ir"
)

// Attach mode walks a pre-existing host tree in lock-step with the compiled
// tree, claiming nodes instead of creating them. Every update effect comes
// up primed: its memo is seeded from the host's current content, so the
// mandatory first run subscribes without rewriting anything the static pass
// already rendered. The walk itself happens outside any effect, so reads
// made to pick branches and item counts are untracked plain reads.
//
// Structural mismatches are tolerated, not fatal: the template node is built
// fresh and inserted at the cursor, leaving the unexpected host node alone.
// That same path serves missing regions, so a branch the static pass never
// rendered falls back to build mode transparently.

// walker is a cursor over one element's pre-existing children.
type walker struct {
	parent host.Element
	kids   []host.Node
	pos    int
}

func newWalker(parent host.Element) *walker {
	return &walker{parent: parent, kids: parent.Children()}
}

func (w *walker) peek() host.Node { return w.peekAt(0) }

func (w *walker) peekAt(offset int) host.Node {
	if i := w.pos + offset; i < len(w.kids) {
		return w.kids[i]
	}
	return nil
}

func (w *walker) take() host.Node {
	n := w.peek()
	if n != nil {
		w.pos++
	}
	return n
}

// insert places freshly built nodes at the cursor without consuming the
// pre-existing node the cursor rests on. At the end of the child list the
// nodes are appended.
func (w *walker) insert(nodes []host.Node) {
	ref := w.peek()
	for _, n := range nodes {
		w.parent.InsertBefore(n, ref)
	}
}

// attachNodes walks a compiled node list against the host cursor and returns
// the host nodes each template node claimed (or built on mismatch), in
// template order. Consecutive text templates are grouped first: a static
// serialization pass may have merged their output into a single host text
// node, and the run has to be matched as a whole to detect that.
func (m *Mount) attachNodes(nodes []ir.Node, w *walker, ctx *eval.Context, cl *cleanups) []host.Node {
	var out []host.Node
	for i := 0; i < len(nodes); {
		if t, ok := nodes[i].(*ir.Text); ok {
			run := []*ir.Text{t}
			for i+len(run) < len(nodes) {
				next, ok := nodes[i+len(run)].(*ir.Text)
				if !ok {
					break
				}
				run = append(run, next)
			}
			out = append(out, m.attachTextRun(run, w, ctx, cl)...)
			i += len(run)
			continue
		}
		out = append(out, m.attachNode(nodes[i], w, ctx, cl)...)
		i++
	}
	return out
}

func (m *Mount) attachNode(n ir.Node, w *walker, ctx *eval.Context, cl *cleanups) []host.Node {
	switch t := n.(type) {
	case *ir.Element:
		return m.attachElement(t, w, ctx, cl)
	case *ir.If:
		return m.attachCond(t, w, ctx, cl)
	case *ir.Each:
		return m.attachEach(t, w, ctx, cl)
	case *ir.Markdown:
		return m.attachRaw(t.HTML, w)
	case *ir.CodeBlock:
		return m.attachRaw(t.HTML, w)
	case nil:
		m.fatal(fmt.Errorf("attach: nil node"))
		return nil
	default:
		m.fatal(fmt.Errorf("attach: unknown node kind %T", n))
		return nil
	}
}

func (m *Mount) attachElement(t *ir.Element, w *walker, ctx *eval.Context, cl *cleanups) []host.Node {
	el, ok := w.peek().(host.Element)
	if !ok || el.Tag() != t.Tag {
		m.logger.Warn("attach mismatch, building element", "tag", t.Tag)
		built := m.buildElement(t, ctx, cl)
		w.insert([]host.Node{built})
		return []host.Node{built}
	}
	w.take()
	m.wireElement(el, t, ctx, cl, true)
	m.attachNodes(t.Children, newWalker(el), ctx, cl)
	return []host.Node{el}
}

// attachTextRun matches a run of consecutive text templates against the host
// cursor. Three shapes are accepted: one host text node per template, a
// single host text node holding the whole merged run, or nothing usable, in
// which case the run is built fresh.
func (m *Mount) attachTextRun(run []*ir.Text, w *walker, ctx *eval.Context, cl *cleanups) []host.Node {
	avail := 0
	for avail < len(run) {
		if _, ok := w.peekAt(avail).(host.Text); !ok {
			break
		}
		avail++
	}

	switch {
	case avail == len(run):
		out := make([]host.Node, 0, len(run))
		for _, t := range run {
			txt := w.take().(host.Text)
			m.attachText(t, txt, ctx, cl)
			out = append(out, txt)
		}
		return out

	case avail == 1 && len(run) > 1:
		// Merged run: one joint effect evaluates every segment and owns the
		// single node. After the first real change the node simply holds the
		// full concatenation, which serializes identically.
		txt := w.take().(host.Text)
		last := txt.Text()
		eff := m.r.rt.Effect("text", func() {
			var b strings.Builder
			for _, t := range run {
				b.WriteString(eval.Stringify(m.eval(t.Expr, ctx)))
			}
			if s := b.String(); s != last {
				txt.SetText(s)
				last = s
			}
		})
		cl.add(eff.Dispose)
		return []host.Node{txt}

	default:
		m.logger.Warn("attach mismatch, building text run", "want", len(run), "have", avail)
		out := make([]host.Node, 0, len(run))
		for _, t := range run {
			out = append(out, m.buildText(t, ctx, cl))
		}
		w.insert(out)
		return out
	}
}

// attachText binds one text template onto its claimed host node. The memo is
// seeded with the node's current content, so the first run writes only if
// the rendered value already disagrees with the static markup.
func (m *Mount) attachText(t *ir.Text, txt host.Text, ctx *eval.Context, cl *cleanups) {
	last := txt.Text()
	eff := m.r.rt.Effect("text", func() {
		if s := eval.Stringify(m.eval(t.Expr, ctx)); s != last {
			txt.SetText(s)
			last = s
		}
	})
	cl.add(eff.Dispose)
}

func (m *Mount) attachRaw(html string, w *walker) []host.Node {
	if raw, ok := w.peek().(host.Raw); ok {
		w.take()
		return []host.Node{raw}
	}
	m.logger.Warn("attach mismatch, building raw fragment")
	n := m.r.host.NewRaw(html)
	w.insert([]host.Node{n})
	return []host.Node{n}
}

// attachCond claims the region anchor and the currently shown branch's
// nodes. The region state is primed to the walked branch before the tracking
// effect is created, so the effect's first run subscribes to the condition
// and changes nothing. A branch absent from the host (condition was false
// when the markup was produced) claims zero nodes, and its first true
// transition goes through the ordinary build path.
func (m *Mount) attachCond(t *ir.If, w *walker, ctx *eval.Context, outer *cleanups) []host.Node {
	anchor, ok := w.peek().(host.Anchor)
	if !ok || anchor.Label() != "if" {
		m.logger.Warn("attach mismatch, building conditional region")
		built := m.buildCond(t, ctx, outer)
		w.insert(built)
		return built
	}
	w.take()
	r := &condRegion{
		m:      m,
		node:   t,
		ctx:    ctx,
		anchor: anchor,
		cl:     newCleanups(),
	}
	r.state = r.targetState()
	r.owned = m.attachNodes(r.branch(r.state), w, ctx, r.cl)
	eff := m.r.rt.Effect("if", r.run)
	outer.add(eff.Dispose)
	outer.add(r.teardown)
	return append([]host.Node{anchor}, r.owned...)
}

func (m *Mount) attachEach(t *ir.Each, w *walker, ctx *eval.Context, outer *cleanups) []host.Node {
	anchor, ok := w.peek().(host.Anchor)
	if !ok || anchor.Label() != "each" {
		m.logger.Warn("attach mismatch, building list region")
		built := m.buildEach(t, ctx, outer)
		w.insert(built)
		return built
	}
	w.take()
	arr := toSlice(m.eval(t.Items, ctx))
	if t.Key != nil {
		return m.attachKeyed(t, anchor, arr, w, ctx, outer)
	}
	return m.attachUnkeyed(t, anchor, arr, w, ctx, outer)
}

// attachKeyed seeds the key→item map from the current item sequence, each
// item claiming its body nodes from the shared cursor. The primed flag makes
// the first effect run consume only the items subscription.
func (m *Mount) attachKeyed(t *ir.Each, anchor host.Anchor, arr []any, w *walker, ctx *eval.Context, outer *cleanups) []host.Node {
	r := &keyedRegion{
		m:      m,
		node:   t,
		ctx:    ctx,
		anchor: anchor,
		byKey:  make(map[string]*keyedItem),
		built:  true,
		primed: true,
	}
	for i, value := range arr {
		key := r.itemKey(value, i)
		if _, dup := r.byKey[key]; dup {
			// Mirrors build mode: the static pass rendered nothing for later
			// occurrences, so nothing is claimed either.
			m.logger.Warn("duplicate list key", "key", key)
			continue
		}
		it := &keyedItem{
			key:   key,
			cl:    newCleanups(),
			item:  m.r.rt.Signal(value),
			index: m.r.rt.Signal(float64(i)),
		}
		scope := eval.NewScope(t.Bind, t.IndexBind, it.item, it.index)
		it.nodes = m.attachNodes(t.Body, w, ctx.WithScope(scope), it.cl)
		r.order = append(r.order, it)
		r.byKey[key] = it
	}
	eff := m.r.rt.Effect("each", r.run)
	outer.add(eff.Dispose)
	outer.add(r.teardownAll)
	out := []host.Node{anchor}
	for _, it := range r.order {
		out = append(out, it.nodes...)
	}
	return out
}

func (m *Mount) attachUnkeyed(t *ir.Each, anchor host.Anchor, arr []any, w *walker, ctx *eval.Context, outer *cleanups) []host.Node {
	r := &unkeyedRegion{
		m:      m,
		node:   t,
		ctx:    ctx,
		anchor: anchor,
		built:  true,
		primed: true,
	}
	for i, item := range arr {
		cl := newCleanups()
		nodes := m.attachNodes(t.Body, w, r.itemContext(item, i), cl)
		r.items = append(r.items, listItem{nodes: nodes, cl: cl})
	}
	eff := m.r.rt.Effect("each", r.run)
	outer.add(eff.Dispose)
	outer.add(r.teardown)
	out := []host.Node{anchor}
	for _, it := range r.items {
		out = append(out, it.nodes...)
	}
	return out
}
