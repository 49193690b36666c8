package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
)

// markdown renders static markdown leaves once, at decode time. The runtime
// never re-renders them.
var markdown = goldmark.New()

// DecodeDocument parses compiled document JSON. Decoding is strict: an
// unknown node or expression kind, an unknown operator, or a malformed
// payload aborts the whole load with an error. This is the one place a
// compiler/runtime version mismatch is allowed to be fatal.
func DecodeDocument(data []byte) (*Document, error) {
	var raw struct {
		Name       string                     `json:"name"`
		IRVersion  string                     `json:"ir_version"`
		Imports    map[string]any             `json:"imports"`
		Styles     map[string]json.RawMessage `json:"styles"`
		Routes     []struct {
			Pattern   string `json:"pattern"`
			Component string `json:"component"`
		} `json:"routes"`
		Components []struct {
			Name string            `json:"name"`
			Root []json.RawMessage `json:"root"`
		} `json:"components"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	doc := &Document{
		Name:      raw.Name,
		IRVersion: raw.IRVersion,
		Imports:   raw.Imports,
	}

	if len(raw.Styles) > 0 {
		doc.Styles = make(map[string]StylePreset, len(raw.Styles))
		for name, msg := range raw.Styles {
			preset, err := decodeStylePreset(msg)
			if err != nil {
				return nil, fmt.Errorf("style %q: %w", name, err)
			}
			doc.Styles[name] = preset
		}
	}

	for _, r := range raw.Routes {
		doc.Routes = append(doc.Routes, Route{Pattern: r.Pattern, Component: r.Component})
	}

	for _, c := range raw.Components {
		comp := &Component{Name: c.Name}
		for i, msg := range c.Root {
			n, err := UnmarshalNode(msg)
			if err != nil {
				return nil, fmt.Errorf("component %q root[%d]: %w", c.Name, i, err)
			}
			comp.Root = append(comp.Root, n)
		}
		doc.Components = append(doc.Components, comp)
	}

	return doc, nil
}

func decodeStylePreset(data []byte) (StylePreset, error) {
	var raw struct {
		Extends []string       `json:"extends"`
		Value   map[string]any `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return StylePreset{}, err
	}
	return StylePreset{Extends: raw.Extends, Value: raw.Value}, nil
}

// kindOf peeks at the "kind" tag of a union member without committing to a
// concrete shape yet.
func kindOf(data []byte) (string, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	if probe.Kind == "" {
		return "", fmt.Errorf("missing kind tag")
	}
	return probe.Kind, nil
}

// UnmarshalNode decodes one "kind"-tagged tree node.
func UnmarshalNode(data []byte) (Node, error) {
	kind, err := kindOf(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "element":
		var raw struct {
			Tag      string            `json:"tag"`
			Ref      string            `json:"ref"`
			Props    []json.RawMessage `json:"props"`
			Children []json.RawMessage `json:"children"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw.Tag == "" {
			return nil, fmt.Errorf("element: empty tag")
		}
		el := &Element{Tag: raw.Tag, Ref: raw.Ref}
		for i, msg := range raw.Props {
			p, err := unmarshalProp(msg)
			if err != nil {
				return nil, fmt.Errorf("element <%s> props[%d]: %w", raw.Tag, i, err)
			}
			el.Props = append(el.Props, p)
		}
		for i, msg := range raw.Children {
			n, err := UnmarshalNode(msg)
			if err != nil {
				return nil, fmt.Errorf("element <%s> children[%d]: %w", raw.Tag, i, err)
			}
			el.Children = append(el.Children, n)
		}
		return el, nil

	case "text":
		var raw struct {
			Expr json.RawMessage `json:"expr"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		e, err := UnmarshalExpr(raw.Expr)
		if err != nil {
			return nil, fmt.Errorf("text: %w", err)
		}
		return &Text{Expr: e}, nil

	case "if":
		var raw struct {
			Cond json.RawMessage   `json:"cond"`
			Then []json.RawMessage `json:"then"`
			Else []json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		cond, err := UnmarshalExpr(raw.Cond)
		if err != nil {
			return nil, fmt.Errorf("if cond: %w", err)
		}
		out := &If{Cond: cond}
		for i, msg := range raw.Then {
			n, err := UnmarshalNode(msg)
			if err != nil {
				return nil, fmt.Errorf("if then[%d]: %w", i, err)
			}
			out.Then = append(out.Then, n)
		}
		for i, msg := range raw.Else {
			n, err := UnmarshalNode(msg)
			if err != nil {
				return nil, fmt.Errorf("if else[%d]: %w", i, err)
			}
			out.Else = append(out.Else, n)
		}
		return out, nil

	case "each":
		var raw struct {
			Items     json.RawMessage   `json:"items"`
			Bind      string            `json:"bind"`
			IndexBind string            `json:"index_bind"`
			Key       json.RawMessage   `json:"key"`
			Body      []json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		items, err := UnmarshalExpr(raw.Items)
		if err != nil {
			return nil, fmt.Errorf("each items: %w", err)
		}
		out := &Each{Items: items, Bind: raw.Bind, IndexBind: raw.IndexBind}
		if len(raw.Key) > 0 && !bytes.Equal(raw.Key, []byte("null")) {
			key, err := UnmarshalExpr(raw.Key)
			if err != nil {
				return nil, fmt.Errorf("each key: %w", err)
			}
			out.Key = key
		}
		for i, msg := range raw.Body {
			n, err := UnmarshalNode(msg)
			if err != nil {
				return nil, fmt.Errorf("each body[%d]: %w", i, err)
			}
			out.Body = append(out.Body, n)
		}
		return out, nil

	case "markdown":
		var raw struct {
			Source string `json:"source"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(raw.Source), &buf); err != nil {
			return nil, fmt.Errorf("markdown: %w", err)
		}
		return &Markdown{HTML: buf.String()}, nil

	case "code":
		var raw struct {
			Source string `json:"source"`
			Lang   string `json:"lang"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &CodeBlock{HTML: renderCodeBlock(raw.Source, raw.Lang)}, nil

	default:
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}
}

// renderCodeBlock escapes a code listing into a static pre/code leaf.
func renderCodeBlock(source, lang string) string {
	var b strings.Builder
	b.WriteString("<pre><code")
	if lang != "" {
		fmt.Fprintf(&b, " class=%q", "language-"+lang)
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(source))
	b.WriteString("</code></pre>")
	return b.String()
}

func unmarshalProp(data []byte) (Prop, error) {
	kind, err := kindOf(data)
	if err != nil {
		return Prop{}, err
	}

	switch kind {
	case "attr":
		var raw struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return Prop{}, err
		}
		if raw.Name == "" {
			return Prop{}, fmt.Errorf("attr: empty name")
		}
		v, err := UnmarshalExpr(raw.Value)
		if err != nil {
			return Prop{}, fmt.Errorf("attr %q: %w", raw.Name, err)
		}
		return Prop{Name: raw.Name, Value: v}, nil

	case "on":
		var raw struct {
			Event   string          `json:"event"`
			Action  string          `json:"action"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return Prop{}, err
		}
		h := &Handler{Event: raw.Event, Action: raw.Action}
		if len(raw.Payload) > 0 && !bytes.Equal(raw.Payload, []byte("null")) {
			p, err := unmarshalPayload(raw.Payload)
			if err != nil {
				return Prop{}, fmt.Errorf("on %q payload: %w", raw.Event, err)
			}
			h.Payload = p
		}
		return Prop{Handler: h}, nil

	default:
		return Prop{}, fmt.Errorf("unknown prop kind %q", kind)
	}
}

// unmarshalPayload accepts either a bare expression (object with a "kind"
// tag) or a {"fields": {...}} map of named expressions.
func unmarshalPayload(data []byte) (*Payload, error) {
	var probe struct {
		Kind   string                     `json:"kind"`
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if probe.Kind != "" {
		e, err := UnmarshalExpr(data)
		if err != nil {
			return nil, err
		}
		return &Payload{Expr: e}, nil
	}

	if probe.Fields == nil {
		return nil, fmt.Errorf("payload is neither an expression nor a fields map")
	}
	out := &Payload{Fields: make(map[string]Expr, len(probe.Fields))}
	for name, msg := range probe.Fields {
		e, err := UnmarshalExpr(msg)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out.Fields[name] = e
	}
	return out, nil
}

// UnmarshalExpr decodes one "kind"-tagged expression.
func UnmarshalExpr(data []byte) (Expr, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	kind, err := kindOf(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "lit":
		var raw struct {
			Value any `json:"value"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &Lit{Value: raw.Value}, nil

	case "state":
		var raw struct {
			Name string   `json:"name"`
			Path []string `json:"path"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw.Name == "" {
			return nil, fmt.Errorf("state ref: empty name")
		}
		return &StateRef{Name: raw.Name, Path: raw.Path}, nil

	case "var":
		var raw struct {
			Name string   `json:"name"`
			Path []string `json:"path"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw.Name == "" {
			return nil, fmt.Errorf("var ref: empty name")
		}
		return &VarRef{Name: raw.Name, Path: raw.Path}, nil

	case "binary":
		var raw struct {
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if !ValidBinaryOps[BinaryOp(raw.Op)] {
			return nil, fmt.Errorf("unknown binary operator %q", raw.Op)
		}
		left, err := UnmarshalExpr(raw.Left)
		if err != nil {
			return nil, fmt.Errorf("binary %s left: %w", raw.Op, err)
		}
		right, err := UnmarshalExpr(raw.Right)
		if err != nil {
			return nil, fmt.Errorf("binary %s right: %w", raw.Op, err)
		}
		return &Binary{Op: BinaryOp(raw.Op), Left: left, Right: right}, nil

	case "not":
		var raw struct {
			Operand json.RawMessage `json:"operand"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		op, err := UnmarshalExpr(raw.Operand)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return &Not{Operand: op}, nil

	case "cond":
		var raw struct {
			If   json.RawMessage `json:"if"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		condIf, err := UnmarshalExpr(raw.If)
		if err != nil {
			return nil, fmt.Errorf("cond if: %w", err)
		}
		then, err := UnmarshalExpr(raw.Then)
		if err != nil {
			return nil, fmt.Errorf("cond then: %w", err)
		}
		out := &Cond{If: condIf, Then: then}
		if len(raw.Else) > 0 && !bytes.Equal(raw.Else, []byte("null")) {
			els, err := UnmarshalExpr(raw.Else)
			if err != nil {
				return nil, fmt.Errorf("cond else: %w", err)
			}
			out.Else = els
		}
		return out, nil

	case "prop":
		var raw struct {
			Base json.RawMessage `json:"base"`
			Path []string        `json:"path"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		base, err := UnmarshalExpr(raw.Base)
		if err != nil {
			return nil, fmt.Errorf("prop base: %w", err)
		}
		if len(raw.Path) == 0 {
			return nil, fmt.Errorf("prop: empty path")
		}
		return &PropGet{Base: base, Path: raw.Path}, nil

	case "import":
		var raw struct {
			Name string   `json:"name"`
			Path []string `json:"path"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw.Name == "" {
			return nil, fmt.Errorf("import ref: empty name")
		}
		return &ImportRef{Name: raw.Name, Path: raw.Path}, nil

	case "index":
		var raw struct {
			Base json.RawMessage `json:"base"`
			Key  json.RawMessage `json:"key"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		base, err := UnmarshalExpr(raw.Base)
		if err != nil {
			return nil, fmt.Errorf("index base: %w", err)
		}
		key, err := UnmarshalExpr(raw.Key)
		if err != nil {
			return nil, fmt.Errorf("index key: %w", err)
		}
		return &Index{Base: base, Key: key}, nil

	case "concat":
		var raw struct {
			Parts []json.RawMessage `json:"parts"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		out := &Concat{}
		for i, msg := range raw.Parts {
			p, err := UnmarshalExpr(msg)
			if err != nil {
				return nil, fmt.Errorf("concat parts[%d]: %w", i, err)
			}
			out.Parts = append(out.Parts, p)
		}
		return out, nil

	case "call":
		var raw struct {
			Target json.RawMessage   `json:"target"`
			Method string            `json:"method"`
			Args   []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw.Method == "" {
			return nil, fmt.Errorf("call: empty method")
		}
		target, err := UnmarshalExpr(raw.Target)
		if err != nil {
			return nil, fmt.Errorf("call %s target: %w", raw.Method, err)
		}
		out := &Call{Target: target, Method: raw.Method}
		for i, msg := range raw.Args {
			a, err := UnmarshalExpr(msg)
			if err != nil {
				return nil, fmt.Errorf("call %s args[%d]: %w", raw.Method, i, err)
			}
			out.Args = append(out.Args, a)
		}
		return out, nil

	case "lambda":
		var raw struct {
			Param      string          `json:"param"`
			IndexParam string          `json:"index_param"`
			Body       json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw.Param == "" {
			return nil, fmt.Errorf("lambda: empty param")
		}
		body, err := UnmarshalExpr(raw.Body)
		if err != nil {
			return nil, fmt.Errorf("lambda body: %w", err)
		}
		return &Lambda{Param: raw.Param, IndexParam: raw.IndexParam, Body: body}, nil

	case "route_param":
		var raw struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &RouteParamRef{Name: raw.Name}, nil

	case "style":
		var raw struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &StyleRef{Name: raw.Name}, nil

	case "validity":
		var raw struct {
			Ref   string `json:"ref"`
			Field string `json:"field"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &ValidityRef{Ref: raw.Ref, Field: raw.Field}, nil

	case "elem":
		var raw struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &ElemRef{Name: raw.Name}, nil

	default:
		return nil, fmt.Errorf("unknown expression kind %q", kind)
	}
}
