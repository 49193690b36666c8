package render

import (
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/action"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/reactive"
	"github.com/weftlabs/weft/internal/state"
	"github.com/weftlabs/weft/internal/testutil"
)

// rig bundles the collaborators a rendering test needs: one runtime, one
// state map, one memory host and a renderer wired with a recording executor
// and fixed mount tokens.
type rig struct {
	rt    *reactive.Runtime
	state *state.Map
	doc   *host.MemoryDocument
	rend  *Renderer
	exec  *action.Recorder
}

func newRig(t *testing.T, d *ir.Document, initial map[string]any, opts ...Option) *rig {
	t.Helper()
	return newRigOn(t, d, host.NewMemoryDocument(), initial, opts...)
}

// newRigOn builds a rig over an existing host document. Attach tests use it
// to bind fresh reactivity onto markup a previous rig rendered.
func newRigOn(t *testing.T, d *ir.Document, hostDoc *host.MemoryDocument, initial map[string]any, opts ...Option) *rig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := reactive.New(reactive.WithLogger(logger))
	st := state.NewMap(rt, initial, state.WithLogger(logger))
	exec := &action.Recorder{}
	base := []Option{
		WithLogger(logger),
		WithExecutor(exec),
		WithTokenSource(NewFixedTokenSource("m1", "m2", "m3")),
	}
	r := New(d, hostDoc, rt, st, append(base, opts...)...)
	return &rig{rt: rt, state: st, doc: hostDoc, rend: r, exec: exec}
}

func (r *rig) root() host.Element { return r.doc.Root() }

// appDoc wraps a node list as the single component "app".
func appDoc(nodes ...ir.Node) *ir.Document {
	return &ir.Document{
		Name:       "test",
		Components: []*ir.Component{{Name: "app", Root: nodes}},
	}
}

func el(tag string, children ...ir.Node) *ir.Element {
	return &ir.Element{Tag: tag, Children: children}
}

func txt(e ir.Expr) *ir.Text { return &ir.Text{Expr: e} }

func lit(v any) ir.Expr { return &ir.Lit{Value: v} }

func stateRef(name string, path ...string) ir.Expr {
	return &ir.StateRef{Name: name, Path: path}
}

func varRef(name string, path ...string) ir.Expr {
	return &ir.VarRef{Name: name, Path: path}
}

func attr(name string, value ir.Expr) ir.Prop {
	return ir.Prop{Name: name, Value: value}
}

func on(event, act string, payload *ir.Payload) ir.Prop {
	return ir.Prop{Handler: &ir.Handler{Event: event, Action: act, Payload: payload}}
}

func TestBuildStaticTree(t *testing.T) {
	d := appDoc(
		el("div",
			el("h1", txt(lit("Title"))),
			el("p", txt(lit("Body"))),
		),
	)
	r := newRig(t, d, nil)

	m, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	assert.NotEmpty(t, m.Token())

	assert.Equal(t, "<div><h1>Title</h1><p>Body</p></div>", host.InnerHTML(r.root()))
}

func TestBuildUnknownComponent(t *testing.T) {
	r := newRig(t, appDoc(el("div")), nil)

	_, err := r.rend.Build("nope", r.root())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestBuildNilNodeIsFatal(t *testing.T) {
	r := newRig(t, appDoc(el("div"), nil), nil)

	_, err := r.rend.Build("app", r.root())
	require.Error(t, err)
	// The failed session tears itself down.
	assert.Equal(t, "", host.InnerHTML(r.root()))
}

func TestTextTracksState(t *testing.T) {
	d := appDoc(el("p", txt(stateRef("msg"))))
	r := newRig(t, d, map[string]any{"msg": "hello"})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, host.Texts(r.root()))

	mark := r.doc.Mark()
	r.state.Set("msg", "bye")
	assert.Equal(t, []string{"bye"}, host.Texts(r.root()))
	assert.Equal(t, 1, host.CountOps(r.doc.OpsSince(mark), host.OpSetText))

	// Writing the same value again is absorbed by the signal layer.
	mark = r.doc.Mark()
	r.state.Set("msg", "bye")
	assert.Empty(t, r.doc.OpsSince(mark))
}

func TestTextRendersNoValueAsEmpty(t *testing.T) {
	d := appDoc(el("p", txt(stateRef("missing", "deep", "path"))))
	r := newRig(t, d, nil)

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	assert.Equal(t, "<p></p>", host.InnerHTML(r.root()))
}

func TestAttributeReactivity(t *testing.T) {
	d := appDoc(&ir.Element{
		Tag: "input",
		Props: []ir.Prop{
			attr("class", stateRef("cls")),
			attr("disabled", stateRef("locked")),
		},
	})
	r := newRig(t, d, map[string]any{"cls": "big", "locked": false})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	input := host.FindByTag(r.root(), "input")
	require.NotNil(t, input)

	v, ok := input.Attr("class")
	assert.True(t, ok)
	assert.Equal(t, "big", v)
	_, ok = input.Attr("disabled")
	assert.False(t, ok, "false boolean renders as absence")

	r.state.Set("locked", true)
	v, ok = input.Attr("disabled")
	assert.True(t, ok)
	assert.Equal(t, "", v, "true boolean renders as a bare attribute")

	r.state.Set("cls", nil)
	_, ok = input.Attr("class")
	assert.False(t, ok, "no value removes the attribute")
}

func TestAttributeUnchangedValueWritesNothing(t *testing.T) {
	// class depends on two fields but only one affects its value here.
	d := appDoc(&ir.Element{
		Tag: "div",
		Props: []ir.Prop{
			attr("class", &ir.Cond{If: stateRef("flag"), Then: lit("on"), Else: lit("on")}),
		},
	})
	r := newRig(t, d, map[string]any{"flag": true})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	mark := r.doc.Mark()
	r.state.Set("flag", false)
	assert.Equal(t, 0, host.CountOps(r.doc.OpsSince(mark), host.OpSetAttr),
		"effect reran but the applied value did not change")
}

func TestRefRegistration(t *testing.T) {
	d := appDoc(&ir.Element{Tag: "input", Ref: "name"})
	r := newRig(t, d, nil)

	m, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	require.NotNil(t, m.Ref("name"))
	assert.Equal(t, "input", m.Ref("name").Tag())
	assert.Nil(t, m.Ref("other"))

	m.Dispose()
	assert.Nil(t, m.Ref("name"), "dispose clears the ref table")
}

func TestHandlerInvokesExecutor(t *testing.T) {
	d := appDoc(&ir.Element{
		Tag: "button",
		Props: []ir.Prop{
			on("click", "increment", &ir.Payload{Expr: stateRef("count")}),
		},
	})
	r := newRig(t, d, map[string]any{"count": 2.0})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	btn := host.FindByTag(r.root(), "button")
	require.NotNil(t, btn)
	btn.Dispatch(host.Event{Name: "click"})

	require.Len(t, r.exec.Invocations, 1)
	inv := r.exec.Invocations[0]
	assert.Equal(t, "increment", inv.Action)
	assert.Equal(t, "m1", inv.Mount)
	assert.Equal(t, 2.0, inv.Payload)
}

func TestHandlerDerivesInputValue(t *testing.T) {
	d := appDoc(&ir.Element{
		Tag: "input",
		Props: []ir.Prop{
			on("input", "set_name", &ir.Payload{Expr: varRef("value")}),
		},
	})
	r := newRig(t, d, nil)

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	input := host.FindByTag(r.root(), "input")
	input.Dispatch(host.Event{Name: "input", Value: "ada"})

	require.Len(t, r.exec.Invocations, 1)
	assert.Equal(t, "ada", r.exec.Invocations[0].Payload)
	assert.Equal(t, "ada", r.exec.Invocations[0].Locals["value"])
}

func TestHandlerFieldsPayload(t *testing.T) {
	d := appDoc(&ir.Element{
		Tag: "button",
		Props: []ir.Prop{
			on("click", "save", &ir.Payload{Fields: map[string]ir.Expr{
				"id":        lit(7.0),
				"__proto__": lit("nope"),
			}}),
		},
	})
	r := newRig(t, d, nil)

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	host.FindByTag(r.root(), "button").Dispatch(host.Event{Name: "click"})

	require.Len(t, r.exec.Invocations, 1)
	payload, ok := r.exec.Invocations[0].Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 7.0, payload["id"])
	_, present := payload["__proto__"]
	assert.False(t, present, "proto-named fields never reach the executor")
}

func TestHandlerErrorIsLoggedNotFatal(t *testing.T) {
	d := appDoc(&ir.Element{
		Tag:   "button",
		Props: []ir.Prop{on("click", "boom", nil)},
	})
	r := newRig(t, d, nil)
	m, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	// A FuncMap without the action fails every Execute call.
	r.rend.exec = action.FuncMap{}
	host.FindByTag(r.root(), "button").Dispatch(host.Event{Name: "click"})

	assert.NoError(t, m.Err(), "executor failures degrade, they do not poison the session")
}

func TestDisposeStopsUpdatesAndRemovesTree(t *testing.T) {
	d := appDoc(el("p", txt(stateRef("msg"))))
	r := newRig(t, d, map[string]any{"msg": "a"})

	m, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	m.Dispose()

	assert.Equal(t, "", host.InnerHTML(r.root()))

	mark := r.doc.Mark()
	r.state.Set("msg", "b")
	assert.Empty(t, r.doc.OpsSince(mark), "disposed effects must not touch the host")
}

func TestRouteParams(t *testing.T) {
	d := appDoc(el("p", txt(&ir.RouteParamRef{Name: "id"})))
	r := newRig(t, d, nil)

	_, err := r.rend.Build("app", r.root(), WithRouteParams(map[string]string{"id": "42"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, host.Texts(r.root()))
}

func TestStyleReads(t *testing.T) {
	d := appDoc(&ir.Element{
		Tag:   "div",
		Props: []ir.Prop{attr("class", &ir.StyleRef{Name: "card"})},
	})
	r := newRig(t, d, nil, WithStyles(map[string]any{"card": "rounded shadow"}))

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	v, ok := host.FindByTag(r.root(), "div").Attr("class")
	assert.True(t, ok)
	assert.Equal(t, "rounded shadow", v)
}

func TestValidityThroughRef(t *testing.T) {
	d := appDoc(
		&ir.Element{Tag: "input", Ref: "email", Props: []ir.Prop{
			attr("required", lit(true)),
		}},
		el("p", txt(&ir.ValidityRef{Ref: "email", Field: "valueMissing"})),
	)
	r := newRig(t, d, nil)

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	assert.Equal(t, []string{"true"}, host.Texts(r.root()))
}

func TestMarkdownLeaf(t *testing.T) {
	d := appDoc(el("article", &ir.Markdown{HTML: "<h1>Hi</h1>"}))
	r := newRig(t, d, nil)

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	assert.Equal(t, "<article><h1>Hi</h1></article>", host.InnerHTML(r.root()))
}

func TestDateExpressionsUseInjectedClock(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	d := appDoc(el("p", txt(&ir.Call{Target: varRef("Date"), Method: "now"})))

	r := newRig(t, d, nil, WithNow(clock.Now))
	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	want := strconv.FormatInt(clock.Now().UnixMilli(), 10)
	assert.Equal(t, []string{want}, host.Texts(r.root()))

	// The clock is read at render time, so a later mount sees the new instant.
	clock.Advance(time.Hour)
	r2 := newRig(t, d, nil, WithNow(clock.Now))
	_, err = r2.rend.Build("app", r2.root())
	require.NoError(t, err)

	later := strconv.FormatInt(clock.Now().UnixMilli(), 10)
	assert.NotEqual(t, want, later)
	assert.Equal(t, []string{later}, host.Texts(r2.root()))
}

func TestMountTokensAreDistinct(t *testing.T) {
	d := appDoc(el("div"))
	r := newRig(t, d, nil)

	m1, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	m2, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	assert.NotEqual(t, m1.Token(), m2.Token())
}
