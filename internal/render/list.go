package render

import (
	"github.com/weftlabs/weft/internal/eval"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/reactive"
)

// buildEach creates a list region in build mode. The strategy is chosen
// once, by the presence of a key expression, and never changes for the
// region's life.
func (m *Mount) buildEach(t *ir.Each, ctx *eval.Context, outer *cleanups) []host.Node {
	anchor := m.r.host.NewAnchor("each")
	if t.Key != nil {
		r := &keyedRegion{
			m:      m,
			node:   t,
			ctx:    ctx,
			anchor: anchor,
			byKey:  make(map[string]*keyedItem),
		}
		eff := m.r.rt.Effect("each", r.run)
		outer.add(eff.Dispose)
		outer.add(r.teardownAll)
		nodes := []host.Node{anchor}
		for _, it := range r.order {
			nodes = append(nodes, it.nodes...)
		}
		return nodes
	}
	r := &unkeyedRegion{m: m, node: t, ctx: ctx, anchor: anchor}
	eff := m.r.rt.Effect("each", r.run)
	outer.add(eff.Dispose)
	outer.add(r.teardown)
	nodes := []host.Node{anchor}
	for _, it := range r.items {
		nodes = append(nodes, it.nodes...)
	}
	return nodes
}

func toSlice(v any) []any {
	if xs, ok := v.([]any); ok {
		return xs
	}
	return nil
}

// unkeyedRegion rebuilds the whole list on every dependency change: all
// item cleanups run, all item nodes are removed, and the current item
// sequence is materialized fresh in order. Items bind their value and
// index as plain locals since nothing survives a re-run anyway.
type unkeyedRegion struct {
	m      *Mount
	node   *ir.Each
	ctx    *eval.Context
	anchor host.Anchor
	items  []listItem
	built  bool
	primed bool
}

type listItem struct {
	nodes []host.Node
	cl    *cleanups
}

func (r *unkeyedRegion) run() {
	arr := toSlice(r.m.eval(r.node.Items, r.ctx))
	if r.primed {
		r.primed = false
		return
	}
	attached := r.built
	r.teardown()
	for i, item := range arr {
		cl := newCleanups()
		nodes := r.m.buildNodes(r.node.Body, r.itemContext(item, i), cl)
		r.items = append(r.items, listItem{nodes: nodes, cl: cl})
	}
	r.built = true
	if !attached {
		return
	}
	var flat []host.Node
	for _, it := range r.items {
		flat = append(flat, it.nodes...)
	}
	insertAfterAnchor(r.anchor, flat)
}

func (r *unkeyedRegion) itemContext(item any, i int) *eval.Context {
	locals := map[string]any{r.node.Bind: item}
	if r.node.IndexBind != "" {
		locals[r.node.IndexBind] = float64(i)
	}
	return r.ctx.WithLocals(locals)
}

func (r *unkeyedRegion) teardown() {
	for _, it := range r.items {
		it.cl.run()
		removeNodes(it.nodes)
	}
	r.items = nil
}

// keyedItem is the persistent bookkeeping for one keyed list entry. The
// two signals are updated in place when the same key reappears, so only
// the item internals that actually read them re-render.
type keyedItem struct {
	key   string
	nodes []host.Node
	cl    *cleanups
	item  *reactive.Signal
	index *reactive.Signal
}

// keyedRegion reuses item state across re-runs, keyed by the canonical
// form of each item's evaluated key.
type keyedRegion struct {
	m      *Mount
	node   *ir.Each
	ctx    *eval.Context
	anchor host.Anchor
	order  []*keyedItem
	byKey  map[string]*keyedItem
	built  bool
	primed bool
}

func (r *keyedRegion) run() {
	arr := toSlice(r.m.eval(r.node.Items, r.ctx))
	if r.primed {
		r.primed = false
		return
	}

	newOrder := make([]*keyedItem, 0, len(arr))
	newByKey := make(map[string]*keyedItem, len(arr))

	for i, value := range arr {
		key := r.itemKey(value, i)
		if _, dup := newByKey[key]; dup {
			// Tolerated: first occurrence wins, later ones render nothing.
			r.m.logger.Warn("duplicate list key", "key", key)
			continue
		}
		if it, ok := r.byKey[key]; ok {
			it.item.Set(value)
			it.index.Set(float64(i))
			newOrder = append(newOrder, it)
			newByKey[key] = it
			continue
		}
		it := r.newItem(key, value, i)
		newOrder = append(newOrder, it)
		newByKey[key] = it
	}

	// Keys absent from the new input tear down, in previous display order.
	for _, it := range r.order {
		if _, kept := newByKey[it.key]; !kept {
			it.cl.run()
			removeNodes(it.nodes)
		}
	}

	r.order = newOrder
	r.byKey = newByKey

	if !r.built {
		r.built = true
		return
	}
	r.reposition()
}

// itemKey evaluates the key expression with the item and index bound as
// plain locals. Binding through the item signals here would subscribe the
// whole list effect to every in-place item update.
func (r *keyedRegion) itemKey(value any, i int) string {
	locals := map[string]any{r.node.Bind: value}
	if r.node.IndexBind != "" {
		locals[r.node.IndexBind] = float64(i)
	}
	return ir.CanonicalKey(r.m.eval(r.node.Key, r.ctx.WithLocals(locals)))
}

func (r *keyedRegion) newItem(key string, value any, i int) *keyedItem {
	it := &keyedItem{
		key:   key,
		cl:    newCleanups(),
		item:  r.m.r.rt.Signal(value),
		index: r.m.r.rt.Signal(float64(i)),
	}
	scope := eval.NewScope(r.node.Bind, r.node.IndexBind, it.item, it.index)
	it.nodes = r.m.buildNodes(r.node.Body, r.ctx.WithScope(scope), it.cl)
	return it
}

// reposition walks the desired order and moves only nodes whose actual
// next-sibling relationship differs from it. Host focus is saved first
// and restored afterwards if a move knocked it loose.
func (r *keyedRegion) reposition() {
	parent := r.anchor.Parent()
	if parent == nil {
		return
	}
	saved := r.m.r.host.ActiveElement()
	prev := host.Node(r.anchor)
	for _, it := range r.order {
		for _, n := range it.nodes {
			if prev.NextSibling() != n {
				parent.InsertBefore(n, prev.NextSibling())
			}
			prev = n
		}
	}
	if saved != nil && r.m.r.host.ActiveElement() != saved && saved.Parent() != nil {
		r.m.r.host.SetFocus(saved)
	}
}

func (r *keyedRegion) teardownAll() {
	for _, it := range r.order {
		it.cl.run()
		removeNodes(it.nodes)
	}
	r.order = nil
	r.byKey = make(map[string]*keyedItem)
}

func removeNodes(nodes []host.Node) {
	for _, n := range nodes {
		if p := n.Parent(); p != nil {
			p.RemoveChild(n)
		}
	}
}
