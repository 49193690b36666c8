package host

import (
	"html"
	"strings"
)

// voidElements never carry children and serialize without a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// HTML serializes a host subtree to markup. Anchors serialize as comments,
// raw nodes verbatim; text and attribute values are escaped. The output is
// deterministic for a given tree: attributes keep first-set order.
func HTML(n Node) string {
	var b strings.Builder
	writeHTML(&b, n)
	return b.String()
}

func writeHTML(b *strings.Builder, n Node) {
	switch t := n.(type) {
	case Element:
		b.WriteByte('<')
		b.WriteString(t.Tag())
		for _, a := range t.Attrs() {
			b.WriteByte(' ')
			b.WriteString(a.Name)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(a.Value))
			b.WriteByte('"')
		}
		b.WriteByte('>')
		if voidElements[t.Tag()] {
			return
		}
		for _, c := range t.Children() {
			writeHTML(b, c)
		}
		b.WriteString("</")
		b.WriteString(t.Tag())
		b.WriteByte('>')
	case Text:
		b.WriteString(html.EscapeString(t.Text()))
	case Anchor:
		b.WriteString("<!--")
		b.WriteString(t.Label())
		b.WriteString("-->")
	case Raw:
		b.WriteString(t.HTML())
	}
}

// InnerHTML serializes only an element's children.
func InnerHTML(el Element) string {
	var b strings.Builder
	for _, c := range el.Children() {
		writeHTML(&b, c)
	}
	return b.String()
}

// FindElement returns the first element under root (depth-first, root
// included) satisfying pred, nil when none matches.
func FindElement(root Node, pred func(Element) bool) Element {
	el, ok := root.(Element)
	if !ok {
		return nil
	}
	if pred(el) {
		return el
	}
	for _, c := range el.Children() {
		if found := FindElement(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// FindByTag returns the first element with the given tag.
func FindByTag(root Node, tag string) Element {
	return FindElement(root, func(e Element) bool { return e.Tag() == tag })
}

// FindByAttr returns the first element whose named attribute equals value.
func FindByAttr(root Node, name, value string) Element {
	return FindElement(root, func(e Element) bool {
		v, ok := e.Attr(name)
		return ok && v == value
	})
}

// Texts collects the text content under root in document order, raw and
// anchor nodes excluded.
func Texts(root Node) []string {
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case Element:
			for _, c := range t.Children() {
				walk(c)
			}
		case Text:
			out = append(out, t.Text())
		}
	}
	walk(root)
	return out
}
