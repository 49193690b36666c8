package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertBeforeOrdersChildren(t *testing.T) {
	d := NewMemoryDocument()
	ul := d.NewElement("ul")
	d.Root().InsertBefore(ul, nil)

	a := d.NewElement("li")
	b := d.NewElement("li")
	c := d.NewElement("li")
	ul.InsertBefore(a, nil)
	ul.InsertBefore(c, nil)
	ul.InsertBefore(b, c)

	kids := ul.Children()
	require.Len(t, kids, 3)
	assert.Equal(t, Node(a), kids[0])
	assert.Equal(t, Node(b), kids[1])
	assert.Equal(t, Node(c), kids[2])

	assert.Equal(t, Node(b), a.NextSibling())
	assert.Equal(t, Node(c), b.NextSibling())
	assert.Nil(t, c.NextSibling())
	assert.Equal(t, Element(ul), a.Parent())
}

func TestInsertBeforeMovesExistingChild(t *testing.T) {
	d := NewMemoryDocument()
	ul := d.NewElement("ul")
	d.Root().InsertBefore(ul, nil)
	a := d.NewElement("li")
	b := d.NewElement("li")
	ul.InsertBefore(a, nil)
	ul.InsertBefore(b, nil)

	mark := d.Mark()
	ul.InsertBefore(b, a)

	ops := d.OpsSince(mark)
	assert.Equal(t, 1, CountOps(ops, OpMove))
	assert.Equal(t, 0, CountOps(ops, OpInsert))
	assert.Equal(t, 0, CountOps(ops, OpRemove))

	kids := ul.Children()
	assert.Equal(t, Node(b), kids[0])
	assert.Equal(t, Node(a), kids[1])
}

func TestRemoveChildDetaches(t *testing.T) {
	d := NewMemoryDocument()
	p := d.NewElement("p")
	d.Root().InsertBefore(p, nil)
	txt := d.NewText("hi")
	p.InsertBefore(txt, nil)

	p.RemoveChild(txt)
	assert.Empty(t, p.Children())
	assert.Nil(t, txt.Parent())

	// Removing again is a no-op.
	mark := d.Mark()
	p.RemoveChild(txt)
	assert.Empty(t, d.OpsSince(mark))
}

func TestFocusLostWhenSubtreeRemoved(t *testing.T) {
	d := NewMemoryDocument()
	form := d.NewElement("form")
	d.Root().InsertBefore(form, nil)
	input := d.NewElement("input")
	form.InsertBefore(input, nil)

	input.Focus()
	require.Equal(t, Element(input), d.ActiveElement())

	d.Root().RemoveChild(form)
	assert.Nil(t, d.ActiveElement())
}

func TestFocusLostWhenFocusedSubtreeMoves(t *testing.T) {
	d := NewMemoryDocument()
	ul := d.NewElement("ul")
	d.Root().InsertBefore(ul, nil)
	a := d.NewElement("li")
	b := d.NewElement("li")
	ul.InsertBefore(a, nil)
	ul.InsertBefore(b, nil)
	input := d.NewElement("input")
	b.InsertBefore(input, nil)

	input.Focus()
	ul.InsertBefore(b, a)
	assert.Nil(t, d.ActiveElement())
}

func TestFocusSurvivesUnrelatedRemoval(t *testing.T) {
	d := NewMemoryDocument()
	input := d.NewElement("input")
	other := d.NewElement("div")
	d.Root().InsertBefore(input, nil)
	d.Root().InsertBefore(other, nil)

	input.Focus()
	d.Root().RemoveChild(other)
	assert.Equal(t, Element(input), d.ActiveElement())
}

func TestListenDispatchAndRemoval(t *testing.T) {
	d := NewMemoryDocument()
	btn := d.NewElement("button")
	d.Root().InsertBefore(btn, nil)

	var got []string
	remove := btn.Listen("click", func(ev Event) {
		got = append(got, ev.Value)
	})
	btn.Listen("keydown", func(ev Event) {
		got = append(got, "key:"+ev.Value)
	})

	btn.Dispatch(Event{Name: "click", Value: "one"})
	btn.Dispatch(Event{Name: "keydown", Value: "k"})
	remove()
	btn.Dispatch(Event{Name: "click", Value: "two"})

	assert.Equal(t, []string{"one", "key:k"}, got)
}

func TestNormalizeMergesAdjacentTextRuns(t *testing.T) {
	d := NewMemoryDocument()
	p := d.NewElement("p")
	d.Root().InsertBefore(p, nil)

	p.InsertBefore(d.NewText("Hello, "), nil)
	p.InsertBefore(d.NewText("world"), nil)
	span := d.NewElement("span")
	p.InsertBefore(span, nil)
	span.InsertBefore(d.NewText("a"), nil)
	span.InsertBefore(d.NewText("b"), nil)
	p.InsertBefore(d.NewText("!"), nil)

	d.Normalize()

	kids := p.Children()
	require.Len(t, kids, 3)
	assert.Equal(t, "Hello, world", kids[0].(Text).Text())
	assert.Equal(t, "!", kids[2].(Text).Text())

	inner := span.Children()
	require.Len(t, inner, 1)
	assert.Equal(t, "ab", inner[0].(Text).Text())
}

func TestJournalScoping(t *testing.T) {
	d := NewMemoryDocument()
	el := d.NewElement("div")
	d.Root().InsertBefore(el, nil)

	mark := d.Mark()
	el.SetAttr("class", "card")
	el.SetAttr("class", "card wide")
	el.RemoveAttr("class")
	el.RemoveAttr("class")

	ops := d.OpsSince(mark)
	assert.Equal(t, 2, CountOps(ops, OpSetAttr))
	assert.Equal(t, 1, CountOps(ops, OpRemoveAttr))
}

func TestValidityChecks(t *testing.T) {
	d := NewMemoryDocument()
	input := d.NewElement("input")
	input.SetAttr("required", "")
	input.SetAttr("pattern", `\d+`)

	assert.Equal(t, true, Validity(input, "valueMissing"))
	assert.Equal(t, false, Validity(input, "valid"))

	input.SetAttr("value", "abc")
	assert.Equal(t, false, Validity(input, "valueMissing"))
	assert.Equal(t, true, Validity(input, "patternMismatch"))
	assert.Equal(t, false, Validity(input, "valid"))

	input.SetAttr("value", "123")
	assert.Equal(t, true, Validity(input, "valid"))
	assert.Equal(t, "123", Validity(input, "value"))

	assert.Nil(t, Validity(input, "unknownField"))
	assert.Nil(t, Validity(nil, "valid"))
}

func TestHTMLSerialization(t *testing.T) {
	d := NewMemoryDocument()
	div := d.NewElement("div")
	div.SetAttr("class", "card")
	div.SetAttr("data-x", `a"b`)
	d.Root().InsertBefore(div, nil)

	div.InsertBefore(d.NewText("1 < 2"), nil)
	div.InsertBefore(d.NewAnchor("if"), nil)
	input := d.NewElement("input")
	input.SetAttr("value", "v")
	div.InsertBefore(input, nil)
	div.InsertBefore(d.NewRaw("<pre><code>x</code></pre>"), nil)

	want := `<div class="card" data-x="a&#34;b">` +
		`1 &lt; 2<!--if--><input value="v"><pre><code>x</code></pre></div>`
	assert.Equal(t, want, HTML(div))
	assert.Equal(t, "<body>"+want+"</body>", HTML(d.Root()))
}

func TestFindHelpers(t *testing.T) {
	d := NewMemoryDocument()
	form := d.NewElement("form")
	d.Root().InsertBefore(form, nil)
	input := d.NewElement("input")
	input.SetAttr("name", "email")
	form.InsertBefore(input, nil)

	assert.Equal(t, Element(input), FindByTag(d.Root(), "input"))
	assert.Equal(t, Element(input), FindByAttr(d.Root(), "name", "email"))
	assert.Nil(t, FindByTag(d.Root(), "table"))
}
