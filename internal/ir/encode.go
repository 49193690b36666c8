package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// The MarshalJSON implementations below emit the same "kind"-tagged wire
// shapes DecodeDocument accepts. Field order is fixed by struct declaration
// order and map keys are sorted, so the output is byte-stable for a given
// document. The inspect command and the document hash both rely on that.

func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	fmt.Fprintf(&buf, `"name":%s`, mustJSON(d.Name))
	fmt.Fprintf(&buf, `,"ir_version":%s`, mustJSON(d.IRVersion))

	buf.WriteString(`,"imports":`)
	if err := writeSortedAnyMap(&buf, d.Imports); err != nil {
		return nil, fmt.Errorf("imports: %w", err)
	}

	buf.WriteString(`,"styles":{`)
	styleNames := sortedKeys(d.Styles)
	for i, name := range styleNames {
		if i > 0 {
			buf.WriteByte(',')
		}
		preset := d.Styles[name]
		fmt.Fprintf(&buf, `%s:{"extends":`, mustJSON(name))
		if err := writeJSONValue(&buf, stringsOrEmpty(preset.Extends)); err != nil {
			return nil, err
		}
		buf.WriteString(`,"value":`)
		if err := writeSortedAnyMap(&buf, preset.Value); err != nil {
			return nil, fmt.Errorf("style %q: %w", name, err)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	buf.WriteString(`,"routes":[`)
	for i, r := range d.Routes {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `{"pattern":%s,"component":%s}`, mustJSON(r.Pattern), mustJSON(r.Component))
	}
	buf.WriteByte(']')

	buf.WriteString(`,"components":[`)
	for i, c := range d.Components {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `{"name":%s,"root":`, mustJSON(c.Name))
		if err := writeNodeList(&buf, c.Root); err != nil {
			return nil, fmt.Errorf("component %q: %w", c.Name, err)
		}
		buf.WriteByte('}')
	}
	buf.WriteString(`]}`)

	return buf.Bytes(), nil
}

func (n *Element) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"kind":"element","tag":%s`, mustJSON(n.Tag))
	if n.Ref != "" {
		fmt.Fprintf(&buf, `,"ref":%s`, mustJSON(n.Ref))
	}
	buf.WriteString(`,"props":[`)
	for i, p := range n.Props {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := p.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteString(`],"children":`)
	if err := writeNodeList(&buf, n.Children); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (n *Text) MarshalJSON() ([]byte, error) {
	return tagged("text", pair{"expr", n.Expr})
}

func (n *If) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"kind":"if","cond":`)
	if err := writeJSONValue(&buf, n.Cond); err != nil {
		return nil, err
	}
	buf.WriteString(`,"then":`)
	if err := writeNodeList(&buf, n.Then); err != nil {
		return nil, err
	}
	buf.WriteString(`,"else":`)
	if err := writeNodeList(&buf, n.Else); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (n *Each) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"kind":"each","items":`)
	if err := writeJSONValue(&buf, n.Items); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, `,"bind":%s`, mustJSON(n.Bind))
	if n.IndexBind != "" {
		fmt.Fprintf(&buf, `,"index_bind":%s`, mustJSON(n.IndexBind))
	}
	if n.Key != nil {
		buf.WriteString(`,"key":`)
		if err := writeJSONValue(&buf, n.Key); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`,"body":`)
	if err := writeNodeList(&buf, n.Body); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Markdown and CodeBlock round-trip their rendered form. Decoding a dump
// therefore does not re-render sources; the leaves are already final.
func (n *Markdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		HTML string `json:"html"`
	}{"markdown_html", n.HTML})
}

func (n *CodeBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		HTML string `json:"html"`
	}{"code_html", n.HTML})
}

func (p Prop) MarshalJSON() ([]byte, error) {
	if p.Handler != nil {
		var buf bytes.Buffer
		fmt.Fprintf(&buf, `{"kind":"on","event":%s,"action":%s`,
			mustJSON(p.Handler.Event), mustJSON(p.Handler.Action))
		if pl := p.Handler.Payload; pl != nil {
			buf.WriteString(`,"payload":`)
			if pl.Expr != nil {
				if err := writeJSONValue(&buf, pl.Expr); err != nil {
					return nil, err
				}
			} else {
				buf.WriteString(`{"fields":{`)
				names := sortedKeys(pl.Fields)
				for i, name := range names {
					if i > 0 {
						buf.WriteByte(',')
					}
					fmt.Fprintf(&buf, `%s:`, mustJSON(name))
					if err := writeJSONValue(&buf, pl.Fields[name]); err != nil {
						return nil, err
					}
				}
				buf.WriteString(`}}`)
			}
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return tagged("attr", pair{"name", p.Name}, pair{"value", p.Value})
}

func (e *Lit) MarshalJSON() ([]byte, error) {
	return tagged("lit", pair{"value", e.Value})
}

func (e *StateRef) MarshalJSON() ([]byte, error) {
	return tagged("state", pair{"name", e.Name}, pair{"path", stringsOrEmpty(e.Path)})
}

func (e *VarRef) MarshalJSON() ([]byte, error) {
	return tagged("var", pair{"name", e.Name}, pair{"path", stringsOrEmpty(e.Path)})
}

func (e *Binary) MarshalJSON() ([]byte, error) {
	return tagged("binary", pair{"op", string(e.Op)}, pair{"left", e.Left}, pair{"right", e.Right})
}

func (e *Not) MarshalJSON() ([]byte, error) {
	return tagged("not", pair{"operand", e.Operand})
}

func (e *Cond) MarshalJSON() ([]byte, error) {
	pairs := []pair{{"if", e.If}, {"then", e.Then}}
	if e.Else != nil {
		pairs = append(pairs, pair{"else", e.Else})
	}
	return tagged("cond", pairs...)
}

func (e *PropGet) MarshalJSON() ([]byte, error) {
	return tagged("prop", pair{"base", e.Base}, pair{"path", stringsOrEmpty(e.Path)})
}

func (e *ImportRef) MarshalJSON() ([]byte, error) {
	return tagged("import", pair{"name", e.Name}, pair{"path", stringsOrEmpty(e.Path)})
}

func (e *Index) MarshalJSON() ([]byte, error) {
	return tagged("index", pair{"base", e.Base}, pair{"key", e.Key})
}

func (e *Concat) MarshalJSON() ([]byte, error) {
	parts := e.Parts
	if parts == nil {
		parts = []Expr{}
	}
	return tagged("concat", pair{"parts", parts})
}

func (e *Call) MarshalJSON() ([]byte, error) {
	args := e.Args
	if args == nil {
		args = []Expr{}
	}
	return tagged("call", pair{"target", e.Target}, pair{"method", e.Method}, pair{"args", args})
}

func (e *Lambda) MarshalJSON() ([]byte, error) {
	pairs := []pair{{"param", e.Param}}
	if e.IndexParam != "" {
		pairs = append(pairs, pair{"index_param", e.IndexParam})
	}
	pairs = append(pairs, pair{"body", e.Body})
	return tagged("lambda", pairs...)
}

func (e *RouteParamRef) MarshalJSON() ([]byte, error) {
	return tagged("route_param", pair{"name", e.Name})
}

func (e *StyleRef) MarshalJSON() ([]byte, error) {
	return tagged("style", pair{"name", e.Name})
}

func (e *ValidityRef) MarshalJSON() ([]byte, error) {
	return tagged("validity", pair{"ref", e.Ref}, pair{"field", e.Field})
}

func (e *ElemRef) MarshalJSON() ([]byte, error) {
	return tagged("elem", pair{"name", e.Name})
}

// --- helpers ---

type pair struct {
	key string
	val any
}

// tagged writes {"kind":<kind>, <pairs in order>}.
func tagged(kind string, pairs ...pair) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"kind":%s`, mustJSON(kind))
	for _, p := range pairs {
		fmt.Fprintf(&buf, `,%s:`, mustJSON(p.key))
		if err := writeJSONValue(&buf, p.val); err != nil {
			return nil, fmt.Errorf("%s: %w", p.key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, v any) error {
	if m, ok := v.(map[string]any); ok {
		return writeSortedAnyMap(buf, m)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func writeNodeList(buf *bytes.Buffer, nodes []Node) error {
	buf.WriteByte('[')
	for i, n := range nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return nil
}

// writeSortedAnyMap emits a map with keys in canonical order, recursing into
// nested maps so the whole dump stays byte-stable.
func writeSortedAnyMap(buf *bytes.Buffer, m map[string]any) error {
	buf.WriteByte('{')
	keys := sortedKeys(m)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(buf, `%s:`, mustJSON(k))
		if err := writeJSONValue(buf, m[k]); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
