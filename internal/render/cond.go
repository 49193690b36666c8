package render

import (
	"github.com/weftlabs/weft/internal/eval"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/ir"
)

// condState names which branch a conditional region currently shows.
// condUnset exists so the tracking effect's first build-mode run is the
// initial materialization, never a branch transition.
type condState int

const (
	condUnset condState = iota
	condNone
	condThen
	condElse
)

// condRegion reconciles one conditional node. The anchor stays in the host
// tree for the region's whole life and marks the insertion point; the shown
// branch's nodes and cleanups are owned exclusively by the region and are
// rebuilt from scratch on every branch switch.
type condRegion struct {
	m      *Mount
	node   *ir.If
	ctx    *eval.Context
	anchor host.Anchor
	state  condState
	owned  []host.Node
	cl     *cleanups
}

// buildCond creates the region in build mode. The tracking effect's first
// run materializes the initial branch detached; the caller inserts it
// together with the anchor.
func (m *Mount) buildCond(t *ir.If, ctx *eval.Context, outer *cleanups) []host.Node {
	r := &condRegion{
		m:      m,
		node:   t,
		ctx:    ctx,
		anchor: m.r.host.NewAnchor("if"),
		state:  condUnset,
		cl:     newCleanups(),
	}
	eff := m.r.rt.Effect("if", r.run)
	outer.add(eff.Dispose)
	outer.add(r.teardown)
	return append([]host.Node{r.anchor}, r.owned...)
}

// run is the tracking effect body, shared by both mounting modes. It
// re-reads the condition (subscribing to its dependencies), compares the
// target branch with the shown one, and swaps only on a real change. The
// state is primed before the first run (condUnset in build mode, the
// walked branch in attach mode), so that first run performs either the
// initial build or nothing at all.
func (r *condRegion) run() {
	next := r.targetState()
	if next == r.state {
		return
	}
	initial := r.state == condUnset
	r.state = next
	r.teardown()
	r.owned = r.m.buildNodes(r.branch(next), r.ctx, r.cl)
	if initial {
		return
	}
	insertAfterAnchor(r.anchor, r.owned)
}

func (r *condRegion) targetState() condState {
	if eval.Truthy(r.m.eval(r.node.Cond, r.ctx)) {
		return condThen
	}
	if len(r.node.Else) > 0 {
		return condElse
	}
	return condNone
}

func (r *condRegion) branch(s condState) []ir.Node {
	switch s {
	case condThen:
		return r.node.Then
	case condElse:
		return r.node.Else
	default:
		return nil
	}
}

// teardown disposes the shown branch: cleanups run, host nodes removed.
// Safe to call with nothing shown.
func (r *condRegion) teardown() {
	r.cl.run()
	for _, n := range r.owned {
		if p := n.Parent(); p != nil {
			p.RemoveChild(n)
		}
	}
	r.owned = nil
}

// insertAfterAnchor places nodes sequentially right after anchor. A nil
// parent means the anchor itself is still detached; the initial-build
// caller will insert everything at once.
func insertAfterAnchor(anchor host.Node, nodes []host.Node) {
	parent := anchor.Parent()
	if parent == nil {
		return
	}
	prev := anchor
	for _, n := range nodes {
		parent.InsertBefore(n, prev.NextSibling())
		prev = n
	}
}
