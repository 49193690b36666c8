package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/weftlabs/weft/internal/action"
	"github.com/weftlabs/weft/internal/compiler"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/query"
	"github.com/weftlabs/weft/internal/reactive"
	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/internal/state"
)

// Mount modes recorded on results and golden snapshots.
const (
	ModeBuild  = "build"
	ModeAttach = "attach"
)

// session holds the live collaborators of one scenario run. Every run gets
// fresh infrastructure; scenarios never share host documents or runtimes.
type session struct {
	scenario *Scenario
	mode     string

	hostDoc *host.MemoryDocument
	rt      *reactive.Runtime
	st      *state.Map
	mount   *render.Mount
	matcher *query.Matcher

	// mountMark scopes journal observations to this session's own mutations,
	// excluding the pre-rendered markup an attach run starts from.
	mountMark int64
	faulted   bool
	result    *Result
}

// Run executes a scenario in build mode and returns its result. The error
// return covers setup problems (unreadable document, compile failure,
// unknown component); scripted steps that misbehave are recorded on the
// result instead, so a failing scenario still yields its trace.
func Run(scenario *Scenario) (*Result, error) {
	return RunMode(scenario, ModeBuild)
}

// RunMode executes a scenario with the chosen mount mode.
//
// An attach run first renders the document with a throwaway build session
// and normalizes the host tree, reproducing the markup a client receives
// from a server render: same shape, adjacent text runs merged, none of the
// build session's listeners or effects surviving into the attach.
func RunMode(scenario *Scenario, mode string) (*Result, error) {
	if mode != ModeBuild && mode != ModeAttach {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	compiled, err := CompileDocument(scenario)
	if err != nil {
		return nil, err
	}

	hostDoc := host.NewMemoryDocument()
	if mode == ModeAttach {
		if _, err := newSession(scenario, compiled, hostDoc, ModeBuild); err != nil {
			return nil, fmt.Errorf("pre-render: %w", err)
		}
		hostDoc.Normalize()
	}

	s, err := newSession(scenario, compiled, hostDoc, mode)
	if err != nil {
		return nil, err
	}
	return s.run(), nil
}

// CompileDocument compiles the scenario's document source, read from the
// referenced file or taken from the inline literal.
func CompileDocument(scenario *Scenario) (*compiler.CompiledDocument, error) {
	var name string
	var data []byte
	if scenario.Document != "" {
		b, err := os.ReadFile(scenario.Document)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		name, data = scenario.Document, b
	} else {
		name, data = scenario.Name+".json", []byte(scenario.Inline)
	}
	compiled, errs := compiler.Compile(name, data)
	if len(errs) > 0 {
		return nil, fmt.Errorf("compile %s: %w", name, errors.Join(errs...))
	}
	return compiled, nil
}

func newSession(scenario *Scenario, compiled *compiler.CompiledDocument, hostDoc *host.MemoryDocument, mode string) (*session, error) {
	component := scenario.Component
	if component == "" {
		root := compiled.Doc.RootComponent()
		if root == nil {
			return nil, fmt.Errorf("document %s has no components", compiled.Doc.Name)
		}
		component = root.Name
	}

	initial, err := normalizeState(scenario.State)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := reactive.New(reactive.WithLogger(logger))
	st := state.NewMap(rt, initial, state.WithLogger(logger))
	r := render.New(compiled.Doc, hostDoc, rt, st,
		render.WithLogger(logger),
		render.WithExecutor(BindActions(scenario.Actions)),
		render.WithStyles(compiled.Styles),
		render.WithTokenSource(render.NewFixedTokenSource("scenario-"+mode)),
	)

	s := &session{
		scenario: scenario,
		mode:     mode,
		hostDoc:  hostDoc,
		rt:       rt,
		st:       st,
		result:   NewResult(mode),
	}
	s.mountMark = hostDoc.Mark()

	var mount *render.Mount
	if mode == ModeAttach {
		mount, err = r.Attach(component, hostDoc.Root())
	} else {
		mount, err = r.Build(component, hostDoc.Root())
	}
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", component, err)
	}
	s.mount = mount
	s.matcher = &query.Matcher{Refs: mount.Ref}
	return s, nil
}

// BindActions builds an action executor from scenario bindings. Each named
// action maps to one of the stock state transforms.
func BindActions(bindings map[string]ActionBinding) action.Executor {
	m := make(action.FuncMap, len(bindings))
	for name, b := range bindings {
		switch b.Do {
		case DoSet:
			m[name] = action.SetField(b.Field)
		case DoToggle:
			m[name] = action.Toggle(b.Field)
		case DoAppend:
			m[name] = action.Append(b.Field)
		case DoRemoveAt:
			m[name] = action.RemoveAt(b.Field)
		}
	}
	return m
}

// run drives the scripted steps. Entry 0 of the trace is the mount itself;
// entry n is the state of the world after step n.
func (s *session) run() *Result {
	s.checkFaults(0)
	s.capture(0, s.mode, s.mountMark)

	for i, step := range s.scenario.Steps {
		n := i + 1
		mark := s.hostDoc.Mark()
		label := s.apply(n, step)
		s.checkFaults(n)
		s.capture(n, label, mark)
		s.expect(n, step.Expect, mark)
	}

	s.expect(len(s.scenario.Steps), s.scenario.Expect, s.mountMark)
	return s.result
}

// apply performs one step and returns the trace label describing it.
func (s *session) apply(n int, step Step) string {
	switch {
	case step.Set != nil:
		v, err := normalizeValue(step.Set.Value)
		if err != nil {
			s.result.AddError(fmt.Sprintf("step %d: set %s: %v", n, step.Set.Field, err))
			return "set " + step.Set.Field
		}
		s.st.Set(step.Set.Field, v)
		return "set " + step.Set.Field

	case step.Dispatch != nil:
		d := step.Dispatch
		label := fmt.Sprintf("dispatch %s at %s", d.Event, d.At)
		sel, err := query.Compile(d.At)
		if err != nil {
			s.result.AddError(fmt.Sprintf("step %d: %v", n, err))
			return label
		}
		el, ok := s.matcher.First(s.hostDoc.Root(), sel)
		if !ok {
			s.result.AddError(fmt.Sprintf("step %d: no element matches %q", n, d.At))
			return label
		}
		data, err := normalizeState(d.Data)
		if err != nil {
			s.result.AddError(fmt.Sprintf("step %d: data: %v", n, err))
			return label
		}
		el.Dispatch(host.Event{Name: d.Event, Value: d.Value, Checked: d.Checked, Data: data})
		return label

	case step.Normalize:
		s.hostDoc.Normalize()
		return "normalize"
	}
	return "noop"
}

// checkFaults surfaces reactive and render faults on the result. The
// renderer's policy is log-and-continue, so without this check a cycle or
// quota fault would only leave a stale region behind.
func (s *session) checkFaults(n int) {
	if err := s.rt.TakeError(); err != nil {
		s.result.AddError(fmt.Sprintf("step %d: reactive fault: %v", n, err))
	}
	if s.mount == nil || s.faulted {
		return
	}
	if err := s.mount.Err(); err != nil {
		s.faulted = true
		s.result.AddError(fmt.Sprintf("step %d: render fault: %v", n, err))
	}
}

// capture appends a trace entry for the window since mark.
func (s *session) capture(n int, label string, mark int64) {
	ops := s.hostDoc.OpsSince(mark)
	s.result.AddTrace(TraceEntry{
		Step:    n,
		Action:  label,
		HTML:    host.InnerHTML(s.hostDoc.Root()),
		State:   s.st.Snapshot(),
		Ops:     countByKind(ops),
		Journal: ops,
	})
}

func countByKind(ops []host.Op) map[string]int {
	counts := make(map[string]int)
	for _, op := range ops {
		counts[string(op.Kind)]++
	}
	return counts
}
