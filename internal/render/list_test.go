package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/ir"
)

func todo(id float64, v string) map[string]any {
	return map[string]any{"id": id, "v": v}
}

// keyedDoc renders state.todos as <li data-id=...>v</li>, keyed by id.
func keyedDoc(body ...ir.Node) *ir.Document {
	if body == nil {
		body = []ir.Node{&ir.Element{
			Tag:      "li",
			Props:    []ir.Prop{attr("data-id", varRef("todo", "id"))},
			Children: []ir.Node{txt(varRef("todo", "v"))},
		}}
	}
	return appDoc(&ir.Each{
		Items: stateRef("todos"),
		Bind:  "todo",
		Key:   varRef("todo", "id"),
		Body:  body,
	})
}

func TestUnkeyedListRebuild(t *testing.T) {
	d := appDoc(&ir.Each{
		Items: stateRef("items"),
		Bind:  "item",
		Body:  []ir.Node{el("li", txt(varRef("item")))},
	})
	r := newRig(t, d, map[string]any{"items": []any{"a", "b"}})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	assert.Equal(t, "<!--each--><li>a</li><li>b</li>", host.InnerHTML(r.root()))

	mark := r.doc.Mark()
	r.state.Set("items", []any{"a", "b", "c"})

	ops := r.doc.OpsSince(mark)
	assert.Equal(t, 2, host.CountOps(ops, host.OpRemove), "all old items removed")
	assert.Equal(t, 6, host.CountOps(ops, host.OpCreate), "all items built fresh: 3 li + 3 text")
	assert.Equal(t, "<!--each--><li>a</li><li>b</li><li>c</li>", host.InnerHTML(r.root()))
}

func TestUnkeyedIndexBinding(t *testing.T) {
	d := appDoc(&ir.Each{
		Items:     stateRef("items"),
		Bind:      "item",
		IndexBind: "i",
		Body:      []ir.Node{el("li", txt(varRef("i")))},
	})
	r := newRig(t, d, map[string]any{"items": []any{"x", "y"}})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, host.Texts(r.root()))
}

func TestKeyedUnchangedKeysNoChurn(t *testing.T) {
	r := newRig(t, keyedDoc(), map[string]any{
		"todos": []any{todo(1, "a"), todo(2, "b")},
	})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	mark := r.doc.Mark()
	r.state.Set("todos", []any{todo(1, "a2"), todo(2, "b")})

	ops := r.doc.OpsSince(mark)
	assert.Equal(t, 0, host.CountOps(ops, host.OpCreate))
	assert.Equal(t, 0, host.CountOps(ops, host.OpRemove))
	assert.Equal(t, 0, host.CountOps(ops, host.OpMove))
	assert.Equal(t, 1, host.CountOps(ops, host.OpSetText), "only item 1's text changed")
	assert.Equal(t, []string{"a2", "b"}, host.Texts(r.root()))
}

func TestKeyedReuseAndSwap(t *testing.T) {
	r := newRig(t, keyedDoc(), map[string]any{
		"todos": []any{todo(1, "a"), todo(2, "b")},
	})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	li1 := host.FindByAttr(r.root(), "data-id", "1")
	li2 := host.FindByAttr(r.root(), "data-id", "2")
	require.NotNil(t, li1)
	require.NotNil(t, li2)

	mark := r.doc.Mark()
	r.state.Set("todos", []any{todo(2, "c"), todo(1, "a")})

	ops := r.doc.OpsSince(mark)
	assert.Equal(t, 0, host.CountOps(ops, host.OpCreate), "both host nodes reused")
	assert.Equal(t, 0, host.CountOps(ops, host.OpRemove))
	assert.GreaterOrEqual(t, host.CountOps(ops, host.OpMove), 1)

	assert.Same(t, li1, host.FindByAttr(r.root(), "data-id", "1"))
	assert.Same(t, li2, host.FindByAttr(r.root(), "data-id", "2"))
	assert.Equal(t, `<!--each--><li data-id="2">c</li><li data-id="1">a</li>`,
		host.InnerHTML(r.root()))
}

func TestKeyedRemoval(t *testing.T) {
	r := newRig(t, keyedDoc(), map[string]any{
		"todos": []any{todo(1, "a"), todo(2, "b"), todo(3, "c")},
	})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	mark := r.doc.Mark()
	r.state.Set("todos", []any{todo(1, "a"), todo(3, "c")})

	ops := r.doc.OpsSince(mark)
	assert.Equal(t, 1, host.CountOps(ops, host.OpRemove))
	assert.Equal(t, 0, host.CountOps(ops, host.OpCreate))
	assert.Equal(t, `<!--each--><li data-id="1">a</li><li data-id="3">c</li>`,
		host.InnerHTML(r.root()))
}

func TestKeyedDuplicateKeysFirstWins(t *testing.T) {
	r := newRig(t, keyedDoc(), map[string]any{
		"todos": []any{todo(1, "a"), todo(1, "dup"), todo(2, "b")},
	})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err, "duplicate keys are a diagnostic, not a failure")
	assert.Equal(t, `<!--each--><li data-id="1">a</li><li data-id="2">b</li>`,
		host.InnerHTML(r.root()))
}

func TestKeyedIndexSignalTracksReorder(t *testing.T) {
	d := appDoc(&ir.Each{
		Items:     stateRef("todos"),
		Bind:      "todo",
		IndexBind: "i",
		Key:       varRef("todo", "id"),
		Body: []ir.Node{el("li", txt(&ir.Concat{Parts: []ir.Expr{
			varRef("todo", "id"), lit("@"), varRef("i"),
		}}))},
	})
	r := newRig(t, d, map[string]any{
		"todos": []any{todo(1, "a"), todo(2, "b")},
	})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	assert.Equal(t, []string{"1@0", "2@1"}, host.Texts(r.root()))

	r.state.Set("todos", []any{todo(2, "b"), todo(1, "a")})
	assert.Equal(t, []string{"2@0", "1@1"}, host.Texts(r.root()),
		"index signals updated in place, nodes repositioned")
}

func TestKeyedFocusSurvivesReorder(t *testing.T) {
	r := newRig(t, keyedDoc(&ir.Element{
		Tag: "li",
		Children: []ir.Node{&ir.Element{
			Tag:   "input",
			Props: []ir.Prop{attr("data-id", varRef("todo", "id"))},
		}},
	}), map[string]any{
		"todos": []any{todo(1, "a"), todo(2, "b")},
	})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	input2 := host.FindByAttr(r.root(), "data-id", "2")
	require.NotNil(t, input2)
	r.doc.SetFocus(input2)

	r.state.Set("todos", []any{todo(2, "b"), todo(1, "a")})

	assert.Same(t, input2, r.doc.ActiveElement(),
		"focus restored after the move knocked it loose")
}

func TestListNonArrayItemsRendersNothing(t *testing.T) {
	d := appDoc(&ir.Each{
		Items: stateRef("items"),
		Bind:  "item",
		Body:  []ir.Node{el("li")},
	})
	r := newRig(t, d, map[string]any{"items": "not-an-array"})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)
	assert.Equal(t, "<!--each-->", host.InnerHTML(r.root()))
}

func TestKeyedItemValueUpdateDoesNotRerunList(t *testing.T) {
	// The list effect depends on the items array; an in-place item value
	// write must reach only the item's own text effect. Probe: a list rerun
	// with unchanged keys journals nothing but set_text, and repeated writes
	// keep working (the item signal stays live).
	r := newRig(t, keyedDoc(), map[string]any{
		"todos": []any{todo(1, "a"), todo(2, "b")},
	})

	_, err := r.rend.Build("app", r.root())
	require.NoError(t, err)

	for _, v := range []string{"a2", "a3", "a4"} {
		r.state.Set("todos", []any{todo(1, v), todo(2, "b")})
	}

	assert.Equal(t, []string{"a4", "b"}, host.Texts(r.root()))
	assert.Equal(t, 3, host.CountOps(r.doc.Journal(), host.OpSetText),
		"three item-level rewrites and nothing structural after the build")
}
