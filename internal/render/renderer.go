package render

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/weftlabs/weft/internal/action"
	"github.com/weftlabs/weft/internal/eval"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/reactive"
	"github.com/weftlabs/weft/internal/state"
)

// Renderer turns compiled documents into live host trees. One Renderer
// serves one document against one host; each Mount call opens an
// independent session with its own ref table and cleanup tree.
//
// All methods must be called from the dispatcher goroutine. The renderer
// performs no locking; single-threaded cooperative execution is the
// concurrency model of the whole runtime core.
type Renderer struct {
	doc    *ir.Document
	host   host.Document
	rt     *reactive.Runtime
	state  state.Store
	exec   action.Executor
	styles map[string]any
	logger *slog.Logger
	tokens TokenSource
	now    func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// WithExecutor sets the action executor invoked by event bindings.
func WithExecutor(exec action.Executor) Option {
	return func(r *Renderer) { r.exec = exec }
}

// WithTokenSource sets the mount token generator. Tests use a fixed source
// for stable tokens.
func WithTokenSource(src TokenSource) Option {
	return func(r *Renderer) { r.tokens = src }
}

// WithStyles installs the flattened style-preset table consumed by style
// reads.
func WithStyles(styles map[string]any) Option {
	return func(r *Renderer) { r.styles = styles }
}

// WithNow fixes the clock behind date expressions.
func WithNow(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// New creates a Renderer over a compiled document. rt must be the same
// runtime that backs st, or state reads will not subscribe.
func New(doc *ir.Document, hostDoc host.Document, rt *reactive.Runtime, st state.Store, opts ...Option) *Renderer {
	r := &Renderer{
		doc:    doc,
		host:   hostDoc,
		rt:     rt,
		state:  st,
		exec:   action.Discard{},
		logger: slog.Default(),
		tokens: NewTokenSource(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MountOption configures one mount session.
type MountOption func(*mountConfig)

type mountConfig struct {
	routeParams map[string]string
}

// WithRouteParams supplies route parameter bindings for this session.
func WithRouteParams(params map[string]string) MountOption {
	return func(c *mountConfig) { c.routeParams = params }
}

// Mount is one live rendering session: the bridge between a compiled
// component and a region of the host tree. Dispose tears down every effect,
// listener and owned host node the session created.
type Mount struct {
	r      *Renderer
	token  string
	root   host.Element
	refs   map[string]host.Element
	ctx    *eval.Context
	cl     *cleanups
	logger *slog.Logger
	err    error
}

// Build mounts a component in build mode: the host subtree is constructed
// from nothing under root. Returns an error for unknown components and for
// fatal faults hit during initial construction.
func (r *Renderer) Build(component string, root host.Element, opts ...MountOption) (*Mount, error) {
	m, comp, err := r.newMount(component, root, opts...)
	if err != nil {
		return nil, err
	}
	nodes := m.buildNodes(comp.Root, m.ctx, m.cl)
	for _, n := range nodes {
		root.InsertBefore(n, nil)
	}
	// Build mode owns everything it constructed; attach mode leaves claimed
	// markup in place on dispose.
	m.cl.add(func() { removeNodes(nodes) })
	if m.err != nil {
		m.Dispose()
		return nil, m.err
	}
	m.logger.Info("mounted", "mode", "build", "component", component)
	return m, nil
}

// Attach mounts a component in attach mode: root already holds the host
// subtree an equivalent build-mode mount would have produced, and the
// session binds listeners and update effects onto it without rebuilding.
func (r *Renderer) Attach(component string, root host.Element, opts ...MountOption) (*Mount, error) {
	m, comp, err := r.newMount(component, root, opts...)
	if err != nil {
		return nil, err
	}
	w := newWalker(root)
	m.attachNodes(comp.Root, w, m.ctx, m.cl)
	if m.err != nil {
		m.Dispose()
		return nil, m.err
	}
	m.logger.Info("mounted", "mode", "attach", "component", component)
	return m, nil
}

func (r *Renderer) newMount(component string, root host.Element, opts ...MountOption) (*Mount, *ir.Component, error) {
	var cfg mountConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	comp := r.doc.Component(component)
	if comp == nil {
		return nil, nil, fmt.Errorf("mount: unknown component %q", component)
	}
	m := &Mount{
		r:     r,
		token: r.tokens.Generate(),
		root:  root,
		refs:  make(map[string]host.Element),
		cl:    newCleanups(),
	}
	m.logger = r.logger.With("mount", m.token)
	m.ctx = m.baseContext(cfg.routeParams)
	return m, comp, nil
}

func (m *Mount) baseContext(routeParams map[string]string) *eval.Context {
	ctx := eval.NewContext(m.r.state)
	ctx.Logger = m.logger
	ctx.Now = m.r.now
	ctx.Imports = m.r.doc.Imports
	ctx.Styles = m.r.styles
	ctx.Routes = routeParams
	ctx.Refs = func(name string) any {
		if el, ok := m.refs[name]; ok {
			return el
		}
		return nil
	}
	ctx.Validity = func(ref, field string) any {
		return host.Validity(m.refs[ref], field)
	}
	return ctx
}

// Token returns the session's correlation token.
func (m *Mount) Token() string { return m.token }

// Err returns the first fatal fault the session has hit, nil when healthy.
func (m *Mount) Err() error { return m.err }

// Ref returns the host element registered under a ref name, nil if absent.
func (m *Mount) Ref(name string) host.Element { return m.refs[name] }

// Dispose tears the session down: every effect is disposed, every listener
// removed, every owned host node released. Idempotent.
func (m *Mount) Dispose() {
	m.cl.run()
}

// fatal records a fatal fault. The first one is kept for the caller;
// every one is logged. Rendering continues degraded, in keeping with the
// log-and-continue dispatch policy.
func (m *Mount) fatal(err error) {
	if m.err == nil {
		m.err = err
	}
	m.logger.Error("render fault", "error", err)
}

// eval evaluates an expression, degrading fatal faults to no value.
func (m *Mount) eval(e ir.Expr, ctx *eval.Context) any {
	return eval.EvaluateOrLog(e, ctx, m.fatal)
}

// cleanups is an owned teardown list. Run executes in reverse registration
// order, then empties the list, so a cleanups value can be reused by a
// region that rebuilds its content. Running twice is harmless.
type cleanups struct {
	fns []func()
}

func newCleanups() *cleanups { return &cleanups{} }

func (c *cleanups) add(fn func()) { c.fns = append(c.fns, fn) }

func (c *cleanups) run() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
	c.fns = nil
}
