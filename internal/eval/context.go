package eval

import (
	"log/slog"
	"maps"
	"time"
)

// StateReader is the evaluator's view of the state store. The production
// implementation backs each field with a signal, so Get performed under a
// running effect subscribes that effect.
type StateReader interface {
	Get(name string) any
}

// RefResolver resolves a ref name to its live host element, nil if absent.
type RefResolver func(name string) any

// ValidityResolver answers validity queries for a ref-named form element.
type ValidityResolver func(ref, field string) any

// Context carries everything one evaluation can reach. Contexts are values:
// the With* methods derive a new Context rather than mutating, so a derived
// context can never leak bindings back into its parent.
type Context struct {
	State    StateReader
	Locals   map[string]any
	Scopes   []*Scope
	Routes   map[string]string
	Imports  map[string]any
	Styles   map[string]any
	Refs     RefResolver
	Validity ValidityResolver
	Logger   *slog.Logger

	// Now supplies the clock behind the time namespace. Tests inject a
	// fixed clock here to keep rendered output deterministic.
	Now func() time.Time
}

// NewContext creates a context with the given state reader and defaults for
// everything else.
func NewContext(state StateReader) *Context {
	return &Context{
		State:  state,
		Logger: slog.Default(),
		Now:    time.Now,
	}
}

// WithLocal derives a context with one additional local binding.
func (c *Context) WithLocal(name string, value any) *Context {
	out := *c
	out.Locals = maps.Clone(c.Locals)
	if out.Locals == nil {
		out.Locals = make(map[string]any, 1)
	}
	out.Locals[name] = value
	return &out
}

// WithLocals derives a context with the given bindings layered over the
// existing ones.
func (c *Context) WithLocals(locals map[string]any) *Context {
	out := *c
	out.Locals = maps.Clone(c.Locals)
	if out.Locals == nil {
		out.Locals = make(map[string]any, len(locals))
	}
	maps.Copy(out.Locals, locals)
	return &out
}

// WithScope derives a context with an additional innermost list scope.
func (c *Context) WithScope(s *Scope) *Context {
	out := *c
	out.Scopes = make([]*Scope, len(c.Scopes), len(c.Scopes)+1)
	copy(out.Scopes, c.Scopes)
	out.Scopes = append(out.Scopes, s)
	return &out
}

// WithRoute derives a context with the given route parameters.
func (c *Context) WithRoute(params map[string]string) *Context {
	out := *c
	out.Routes = params
	return &out
}

// logger is never nil even on a zero-ish context.
func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// lookupVar resolves a bare variable name: innermost list scopes first,
// then local bindings, then the safe global namespaces.
func (c *Context) lookupVar(name string) (any, bool) {
	for i := len(c.Scopes) - 1; i >= 0; i-- {
		if v, ok := c.Scopes[i].lookup(name); ok {
			return v, true
		}
	}
	if v, ok := c.Locals[name]; ok {
		return v, true
	}
	if ns, ok := safeGlobals[name]; ok {
		return ns, true
	}
	return nil, false
}
