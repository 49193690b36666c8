package ir

import "strings"

// Document is one compiled UI document: a set of named component trees plus
// the static tables the expression language can reach (imports, styles,
// routes). Documents arrive as JSON produced by the compiler front end;
// DecodeDocument is the only constructor used in production paths.
type Document struct {
	Name       string
	IRVersion  string
	Imports    map[string]any
	Styles     map[string]StylePreset
	Routes     []Route
	Components []*Component
}

// Component is a named subtree. The first component in a document is its
// default mount root.
type Component struct {
	Name string
	Root []Node
}

// Component returns the named component, or nil when absent.
func (d *Document) Component(name string) *Component {
	for _, c := range d.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// RootComponent returns the default mount root, or nil for an empty document.
func (d *Document) RootComponent() *Component {
	if len(d.Components) == 0 {
		return nil
	}
	return d.Components[0]
}

// StylePreset is one entry of the document's style table as compiled.
// Extends lists parent presets merged base-first; the flattened form used by
// evaluation is produced by the compiler package, not here.
type StylePreset struct {
	Extends []string
	Value   map[string]any
}

// Route maps a path pattern to a component. Pattern segments starting with
// ':' capture route parameters ("/todo/:id" captures "id").
type Route struct {
	Pattern   string
	Component string
}

// Match tests path against the route pattern and extracts parameters.
// Matching is segment-wise and exact in length; a trailing slash is
// insignificant on either side.
func (r Route) Match(path string) (map[string]string, bool) {
	pat := splitPath(r.Pattern)
	got := splitPath(path)
	if len(pat) != len(got) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range pat {
		if strings.HasPrefix(seg, ":") {
			params[seg[1:]] = got[i]
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}

// MatchRoute finds the first route whose pattern matches path.
func (d *Document) MatchRoute(path string) (Route, map[string]string, bool) {
	for _, r := range d.Routes {
		if params, ok := r.Match(path); ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
