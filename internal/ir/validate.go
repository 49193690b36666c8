package ir

import (
	"fmt"
)

// ValidationError represents a structural fault with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsForbiddenSegment reports whether a path or key segment names prototype
// machinery. Such segments are rejected at compile time here and re-checked
// at every runtime traversal point; they must never reach a host object.
func IsForbiddenSegment(s string) bool {
	switch s {
	case "__proto__", "constructor", "prototype":
		return true
	}
	return false
}

// Validate checks a decoded document against structural rules.
// Returns all errors (not fail-fast) for better compiler diagnostics.
func (d *Document) Validate() []ValidationError {
	v := &validator{refs: collectRefs(d)}

	if len(d.Components) == 0 {
		v.addf("components", "at least one component is required")
	}
	seen := make(map[string]bool)
	for i, c := range d.Components {
		field := fmt.Sprintf("components[%d]", i)
		if c.Name == "" {
			v.addf(field+".name", "empty component name")
		}
		if seen[c.Name] {
			v.addf(field+".name", "duplicate component name: %q", c.Name)
		}
		seen[c.Name] = true
		v.nodes(field+".root", c.Root)
	}

	for i, r := range d.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		if r.Pattern == "" {
			v.addf(field+".pattern", "empty route pattern")
		}
		if d.Component(r.Component) == nil {
			v.addf(field+".component", "route targets unknown component %q", r.Component)
		}
	}

	for name, preset := range d.Styles {
		for _, parent := range preset.Extends {
			if _, ok := d.Styles[parent]; !ok {
				v.addf(fmt.Sprintf("styles[%q].extends", name), "unknown parent preset %q", parent)
			}
		}
	}

	return v.errs
}

// collectRefs gathers every Element.Ref declared anywhere in the document,
// so validity and element references can be checked against it.
func collectRefs(d *Document) map[string]bool {
	refs := make(map[string]bool)
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch t := n.(type) {
			case *Element:
				if t.Ref != "" {
					refs[t.Ref] = true
				}
				walk(t.Children)
			case *If:
				walk(t.Then)
				walk(t.Else)
			case *Each:
				walk(t.Body)
			}
		}
	}
	for _, c := range d.Components {
		walk(c.Root)
	}
	return refs
}

type validator struct {
	refs map[string]bool
	errs []ValidationError
}

func (v *validator) addf(field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) nodes(field string, nodes []Node) {
	for i, n := range nodes {
		v.node(fmt.Sprintf("%s[%d]", field, i), n)
	}
}

func (v *validator) node(field string, n Node) {
	switch t := n.(type) {
	case *Element:
		if t.Tag == "" {
			v.addf(field, "element with empty tag")
		}
		for i, p := range t.Props {
			v.prop(fmt.Sprintf("%s.props[%d]", field, i), p)
		}
		v.nodes(field+".children", t.Children)

	case *Text:
		v.expr(field+".expr", t.Expr, false)

	case *If:
		v.expr(field+".cond", t.Cond, false)
		v.nodes(field+".then", t.Then)
		v.nodes(field+".else", t.Else)

	case *Each:
		if t.Bind == "" {
			v.addf(field+".bind", "empty item binding name")
		}
		if t.IndexBind != "" && t.IndexBind == t.Bind {
			v.addf(field+".index_bind", "index binding shadows item binding %q", t.Bind)
		}
		v.expr(field+".items", t.Items, false)
		if t.Key != nil {
			v.expr(field+".key", t.Key, false)
		}
		v.nodes(field+".body", t.Body)

	case *Markdown, *CodeBlock:
		// Pre-rendered leaves carry no evaluable content.

	case nil:
		v.addf(field, "nil node")

	default:
		v.addf(field, "unknown node type %T", n)
	}
}

func (v *validator) prop(field string, p Prop) {
	if p.Handler != nil {
		h := p.Handler
		if _, ok := KnownEvents[h.Event]; !ok {
			v.addf(field+".event", "unknown event %q", h.Event)
		}
		if h.Action == "" {
			v.addf(field+".action", "empty action name")
		}
		if h.Payload != nil {
			if h.Payload.Expr != nil {
				v.expr(field+".payload", h.Payload.Expr, false)
			}
			for name, e := range h.Payload.Fields {
				if IsForbiddenSegment(name) {
					v.addf(field+".payload", "forbidden payload field name %q", name)
				}
				v.expr(fmt.Sprintf("%s.payload[%q]", field, name), e, false)
			}
		}
		return
	}
	if p.Name == "" {
		v.addf(field+".name", "empty attribute name")
	}
	v.expr(field+".value", p.Value, false)
}

// expr validates one expression subtree. lambdaOK is true only directly
// under a Call argument list; a Lambda anywhere else is a compiler fault.
func (v *validator) expr(field string, e Expr, lambdaOK bool) {
	switch t := e.(type) {
	case *Lit:
		// Any decoded JSON literal is acceptable.

	case *StateRef:
		if t.Name == "" {
			v.addf(field, "state ref with empty name")
		}
		v.path(field, t.Path)

	case *VarRef:
		if t.Name == "" {
			v.addf(field, "var ref with empty name")
		}
		v.path(field, t.Path)

	case *Binary:
		if !ValidBinaryOps[t.Op] {
			v.addf(field, "unknown binary operator %q", t.Op)
		}
		v.expr(field+".left", t.Left, false)
		v.expr(field+".right", t.Right, false)

	case *Not:
		v.expr(field+".operand", t.Operand, false)

	case *Cond:
		v.expr(field+".if", t.If, false)
		v.expr(field+".then", t.Then, false)
		if t.Else != nil {
			v.expr(field+".else", t.Else, false)
		}

	case *PropGet:
		if len(t.Path) == 0 {
			v.addf(field, "property get with empty path")
		}
		v.expr(field+".base", t.Base, false)
		v.path(field, t.Path)

	case *ImportRef:
		if t.Name == "" {
			v.addf(field, "import ref with empty name")
		}
		v.path(field, t.Path)

	case *Index:
		v.expr(field+".base", t.Base, false)
		v.expr(field+".key", t.Key, false)

	case *Concat:
		for i, p := range t.Parts {
			v.expr(fmt.Sprintf("%s.parts[%d]", field, i), p, false)
		}

	case *Call:
		if t.Method == "" {
			v.addf(field, "call with empty method")
		}
		v.expr(field+".target", t.Target, false)
		for i, a := range t.Args {
			v.expr(fmt.Sprintf("%s.args[%d]", field, i), a, true)
		}

	case *Lambda:
		if !lambdaOK {
			v.addf(field, "lambda outside a call argument position")
		}
		if t.Param == "" {
			v.addf(field, "lambda with empty parameter name")
		}
		if t.IndexParam != "" && t.IndexParam == t.Param {
			v.addf(field, "lambda index parameter shadows %q", t.Param)
		}
		v.expr(field+".body", t.Body, false)

	case *RouteParamRef:
		if t.Name == "" {
			v.addf(field, "route param ref with empty name")
		}

	case *StyleRef:
		if t.Name == "" {
			v.addf(field, "style ref with empty name")
		}

	case *ValidityRef:
		if t.Ref == "" {
			v.addf(field, "validity ref with empty element ref")
		} else if !v.refs[t.Ref] {
			v.addf(field, "validity ref targets undeclared element ref %q", t.Ref)
		}
		if t.Field == "" {
			v.addf(field, "validity ref with empty field")
		}

	case *ElemRef:
		if t.Name == "" {
			v.addf(field, "element ref with empty name")
		} else if !v.refs[t.Name] {
			v.addf(field, "element ref targets undeclared ref %q", t.Name)
		}

	case nil:
		v.addf(field, "nil expression")

	default:
		v.addf(field, "unknown expression type %T", e)
	}
}

func (v *validator) path(field string, path []string) {
	for i, seg := range path {
		if seg == "" {
			v.addf(fmt.Sprintf("%s.path[%d]", field, i), "empty path segment")
		}
		if IsForbiddenSegment(seg) {
			v.addf(fmt.Sprintf("%s.path[%d]", field, i), "forbidden path segment %q", seg)
		}
	}
}
