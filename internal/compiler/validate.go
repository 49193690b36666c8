package compiler

import (
	"fmt"

	"github.com/weftlabs/weft/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrNoDocument = "E100" // nil or empty document

	// Document structure errors (E101-E109)
	ErrNoComponents         = "E101" // at least one component required
	ErrDuplicateComponent   = "E102" // duplicate component name
	ErrDuplicateRef         = "E103" // duplicate element ref within a component
	ErrRouteUnknownTarget   = "E104" // route references unknown component
	ErrHandlerIncomplete    = "E105" // handler missing event or action
	ErrEachMissingBind      = "E106" // each node without an item binding
	ErrUnknownStylePreset   = "E107" // style expression names unknown preset
	ErrStyleExtendsUnknown  = "E108" // preset extends unknown preset
	ErrStyleExtendsCycle    = "E109" // preset extends chain forms a cycle
	ErrUndeclaredElementRef = "E110" // validity/elem expression names undeclared ref
)

// ValidationError represents a structural validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a decoded document against structural rules the CUE
// schema cannot express: name uniqueness, cross-references between routes,
// refs, and the style table. Returns all errors found (does not fail-fast).
// Style extends chains are checked separately by FlattenStyles.
func Validate(doc *ir.Document) []ValidationError {
	if doc == nil {
		return []ValidationError{{
			Field:   "document",
			Message: "no document",
			Code:    ErrNoDocument,
		}}
	}

	var errs []ValidationError

	// E101: at least one component required
	if len(doc.Components) == 0 {
		errs = append(errs, ValidationError{
			Field:   "components",
			Message: "at least one component is required",
			Code:    ErrNoComponents,
		})
	}

	// E102: duplicate component names
	componentNames := make(map[string]bool)
	for i, comp := range doc.Components {
		if componentNames[comp.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("components[%d].name", i),
				Message: fmt.Sprintf("duplicate component name: %q", comp.Name),
				Code:    ErrDuplicateComponent,
			})
		}
		componentNames[comp.Name] = true
	}

	// E104: routes must target declared components
	for i, route := range doc.Routes {
		if !componentNames[route.Component] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("routes[%d].component", i),
				Message: fmt.Sprintf("route %q targets unknown component %q", route.Pattern, route.Component),
				Code:    ErrRouteUnknownTarget,
			})
		}
	}

	for i, comp := range doc.Components {
		errs = append(errs, validateComponent(doc, i, comp)...)
	}

	return errs
}

// validateComponent checks one component subtree. Refs are collected first
// so that elem/validity expressions anywhere in the tree can reference a
// ref declared in any branch, matching the runtime's static ref table.
func validateComponent(doc *ir.Document, idx int, comp *ir.Component) []ValidationError {
	var errs []ValidationError
	prefix := fmt.Sprintf("components[%d]", idx)

	refs := make(map[string]bool)
	walkNodes(comp.Root, func(n ir.Node) {
		if el, ok := n.(*ir.Element); ok && el.Ref != "" {
			// E103: duplicate element ref
			if refs[el.Ref] {
				errs = append(errs, ValidationError{
					Field:   prefix,
					Message: fmt.Sprintf("duplicate element ref %q", el.Ref),
					Code:    ErrDuplicateRef,
				})
			}
			refs[el.Ref] = true
		}
	})

	walkNodes(comp.Root, func(n ir.Node) {
		switch t := n.(type) {
		case *ir.Element:
			for _, p := range t.Props {
				if p.Handler != nil {
					// E105: handler must name both event and action
					if p.Handler.Event == "" || p.Handler.Action == "" {
						errs = append(errs, ValidationError{
							Field:   fmt.Sprintf("%s <%s>", prefix, t.Tag),
							Message: "handler requires both event and action",
							Code:    ErrHandlerIncomplete,
						})
					}
					errs = append(errs, validatePayloadExprs(doc, prefix, refs, p.Handler.Payload)...)
					continue
				}
				errs = append(errs, validateExpr(doc, prefix, refs, p.Value)...)
			}
		case *ir.Text:
			errs = append(errs, validateExpr(doc, prefix, refs, t.Expr)...)
		case *ir.If:
			errs = append(errs, validateExpr(doc, prefix, refs, t.Cond)...)
		case *ir.Each:
			// E106: each requires an item binding
			if t.Bind == "" {
				errs = append(errs, ValidationError{
					Field:   prefix,
					Message: "each requires a non-empty bind name",
					Code:    ErrEachMissingBind,
				})
			}
			errs = append(errs, validateExpr(doc, prefix, refs, t.Items)...)
			errs = append(errs, validateExpr(doc, prefix, refs, t.Key)...)
		}
	})

	return errs
}

func validatePayloadExprs(doc *ir.Document, prefix string, refs map[string]bool, p *ir.Payload) []ValidationError {
	if p == nil {
		return nil
	}
	var errs []ValidationError
	errs = append(errs, validateExpr(doc, prefix, refs, p.Expr)...)
	for _, e := range p.Fields {
		errs = append(errs, validateExpr(doc, prefix, refs, e)...)
	}
	return errs
}

// validateExpr checks cross-references inside one expression tree.
func validateExpr(doc *ir.Document, prefix string, refs map[string]bool, root ir.Expr) []ValidationError {
	var errs []ValidationError
	walkExpr(root, func(e ir.Expr) {
		switch t := e.(type) {
		case *ir.StyleRef:
			// E107: style expressions must name a declared preset
			if _, ok := doc.Styles[t.Name]; !ok {
				errs = append(errs, ValidationError{
					Field:   prefix,
					Message: fmt.Sprintf("style expression names unknown preset %q", t.Name),
					Code:    ErrUnknownStylePreset,
				})
			}
		case *ir.ValidityRef:
			// E110: validity must target a declared ref
			if !refs[t.Ref] {
				errs = append(errs, ValidationError{
					Field:   prefix,
					Message: fmt.Sprintf("validity expression targets undeclared ref %q", t.Ref),
					Code:    ErrUndeclaredElementRef,
				})
			}
		case *ir.ElemRef:
			// E110: elem must target a declared ref
			if !refs[t.Name] {
				errs = append(errs, ValidationError{
					Field:   prefix,
					Message: fmt.Sprintf("elem expression targets undeclared ref %q", t.Name),
					Code:    ErrUndeclaredElementRef,
				})
			}
		}
	})
	return errs
}

// walkNodes calls fn for every node in the subtree, depth-first.
func walkNodes(nodes []ir.Node, fn func(ir.Node)) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		fn(n)
		switch t := n.(type) {
		case *ir.Element:
			walkNodes(t.Children, fn)
		case *ir.If:
			walkNodes(t.Then, fn)
			walkNodes(t.Else, fn)
		case *ir.Each:
			walkNodes(t.Body, fn)
		}
	}
}

// walkExpr calls fn for every expression in the tree, depth-first.
func walkExpr(e ir.Expr, fn func(ir.Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch t := e.(type) {
	case *ir.Binary:
		walkExpr(t.Left, fn)
		walkExpr(t.Right, fn)
	case *ir.Not:
		walkExpr(t.Operand, fn)
	case *ir.Cond:
		walkExpr(t.If, fn)
		walkExpr(t.Then, fn)
		walkExpr(t.Else, fn)
	case *ir.PropGet:
		walkExpr(t.Base, fn)
	case *ir.Index:
		walkExpr(t.Base, fn)
		walkExpr(t.Key, fn)
	case *ir.Concat:
		for _, p := range t.Parts {
			walkExpr(p, fn)
		}
	case *ir.Call:
		walkExpr(t.Target, fn)
		for _, a := range t.Args {
			walkExpr(a, fn)
		}
	case *ir.Lambda:
		walkExpr(t.Body, fn)
	}
}
