package render

import (
	"fmt"

	"github.com/weftlabs/weft/internal/eval"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/ir"
)

// buildNodes constructs host nodes for a compiled node list. The returned
// nodes are fully wired but not yet inserted; the caller owns placement.
// A conditional or list region contributes its anchor plus whatever its
// initial evaluation materialized.
func (m *Mount) buildNodes(nodes []ir.Node, ctx *eval.Context, cl *cleanups) []host.Node {
	var out []host.Node
	for _, n := range nodes {
		out = append(out, m.buildNode(n, ctx, cl)...)
	}
	return out
}

func (m *Mount) buildNode(n ir.Node, ctx *eval.Context, cl *cleanups) []host.Node {
	switch t := n.(type) {
	case *ir.Element:
		return []host.Node{m.buildElement(t, ctx, cl)}
	case *ir.Text:
		return []host.Node{m.buildText(t, ctx, cl)}
	case *ir.If:
		return m.buildCond(t, ctx, cl)
	case *ir.Each:
		return m.buildEach(t, ctx, cl)
	case *ir.Markdown:
		return []host.Node{m.r.host.NewRaw(t.HTML)}
	case *ir.CodeBlock:
		return []host.Node{m.r.host.NewRaw(t.HTML)}
	case nil:
		m.fatal(fmt.Errorf("build: nil node"))
		return nil
	default:
		m.fatal(fmt.Errorf("build: unknown node kind %T", n))
		return nil
	}
}

func (m *Mount) buildElement(t *ir.Element, ctx *eval.Context, cl *cleanups) host.Element {
	el := m.r.host.NewElement(t.Tag)
	m.wireElement(el, t, ctx, cl, false)
	for _, child := range m.buildNodes(t.Children, ctx, cl) {
		el.InsertBefore(child, nil)
	}
	return el
}

// wireElement binds ref registration, attribute effects and event handlers.
// With primed set (attach mode) attribute effects seed their memo from the
// host's current values, so their first run rewrites nothing that the
// static pass already rendered correctly.
func (m *Mount) wireElement(el host.Element, t *ir.Element, ctx *eval.Context, cl *cleanups, primed bool) {
	if t.Ref != "" {
		name := t.Ref
		m.refs[name] = el
		cl.add(func() {
			if m.refs[name] == el {
				delete(m.refs, name)
			}
		})
	}
	for _, p := range t.Props {
		switch {
		case p.Handler != nil:
			m.bindHandler(el, p.Handler, ctx, cl)
		case p.Value != nil:
			m.bindAttr(el, p.Name, p.Value, ctx, cl, primed)
		}
	}
}

// attrState is the applied form of one attribute: absent, or present with a
// value. Boolean true renders as a bare attribute, false and no value as
// absence, anything else through Stringify.
type attrState struct {
	present bool
	value   string
}

func attrValue(v any) attrState {
	switch t := v.(type) {
	case nil:
		return attrState{}
	case bool:
		return attrState{present: t}
	default:
		return attrState{present: true, value: eval.Stringify(v)}
	}
}

func (m *Mount) bindAttr(el host.Element, name string, expr ir.Expr, ctx *eval.Context, cl *cleanups, primed bool) {
	var last *attrState
	if primed {
		v, ok := el.Attr(name)
		last = &attrState{present: ok, value: v}
	}
	eff := m.r.rt.Effect("attr:"+name, func() {
		want := attrValue(m.eval(expr, ctx))
		if last != nil && *last == want {
			return
		}
		if want.present {
			el.SetAttr(name, want.value)
		} else if last == nil || last.present {
			el.RemoveAttr(name)
		}
		last = &want
	})
	cl.add(eff.Dispose)
}

// buildText creates a text node inside its update effect's first run, so
// the node is born with the right content instead of being written twice.
func (m *Mount) buildText(t *ir.Text, ctx *eval.Context, cl *cleanups) host.Text {
	var txt host.Text
	var last string
	eff := m.r.rt.Effect("text", func() {
		s := eval.Stringify(m.eval(t.Expr, ctx))
		if txt == nil {
			txt = m.r.host.NewText(s)
			last = s
			return
		}
		if s != last {
			txt.SetText(s)
			last = s
		}
	})
	cl.add(eff.Dispose)
	return txt
}
