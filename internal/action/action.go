// Package action defines the executor contract event bindings invoke, plus
// the stock executors: a name-keyed function map for real behavior, a
// recorder for tests and traces, and field-mutation helpers covering the
// common write patterns.
//
// The runtime core treats execution as opaque: it hands over an invocation
// and an environment and does not consume a result. Executors run on the
// dispatcher goroutine and may write state synchronously; anything
// asynchronous must hop back through the dispatcher queue.
package action

import (
	"fmt"
	"log/slog"

	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/state"
)

// Invocation is one fired action: the descriptor from the compiled handler
// plus the evaluated payload and the event-derived locals.
type Invocation struct {
	Mount   string
	Action  string
	Payload any
	Locals  map[string]any
}

// Env bundles what an action may touch.
type Env struct {
	State  state.Store
	Refs   func(name string) host.Element
	Logger *slog.Logger
}

// Executor handles invocations.
type Executor interface {
	Execute(inv Invocation, env Env) error
}

// Discard ignores every invocation. It is the default executor so a mount
// without wired actions still renders.
type Discard struct{}

func (Discard) Execute(Invocation, Env) error { return nil }

// Func handles one action.
type Func func(inv Invocation, env Env) error

// FuncMap dispatches invocations by action name.
type FuncMap map[string]Func

func (f FuncMap) Execute(inv Invocation, env Env) error {
	fn, ok := f[inv.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", inv.Action)
	}
	return fn(inv, env)
}

// Recorder captures invocations in order, forwarding to Next when set.
type Recorder struct {
	Next        Executor
	Invocations []Invocation
}

func (r *Recorder) Execute(inv Invocation, env Env) error {
	r.Invocations = append(r.Invocations, inv)
	if r.Next == nil {
		return nil
	}
	return r.Next.Execute(inv, env)
}

// SetField writes the payload into a state field.
func SetField(field string) Func {
	return func(inv Invocation, env Env) error {
		env.State.Set(field, inv.Payload)
		return nil
	}
}

// Toggle flips a boolean state field.
func Toggle(field string) Func {
	return func(_ Invocation, env Env) error {
		b, _ := env.State.Get(field).(bool)
		env.State.Set(field, !b)
		return nil
	}
}

// Append adds the payload to the end of an array state field. The write
// builds a fresh slice: mutating the stored one in place would defeat the
// changed-value check in the signal layer.
func Append(field string) Func {
	return func(inv Invocation, env Env) error {
		old, _ := env.State.Get(field).([]any)
		next := make([]any, 0, len(old)+1)
		next = append(next, old...)
		next = append(next, inv.Payload)
		env.State.Set(field, next)
		return nil
	}
}

// RemoveAt removes the element at the payload index from an array field.
// Out-of-range or non-numeric payloads leave the field untouched.
func RemoveAt(field string) Func {
	return func(inv Invocation, env Env) error {
		idx, ok := inv.Payload.(float64)
		if !ok || idx != float64(int(idx)) {
			return nil
		}
		old, _ := env.State.Get(field).([]any)
		i := int(idx)
		if i < 0 || i >= len(old) {
			return nil
		}
		next := make([]any, 0, len(old)-1)
		next = append(next, old[:i]...)
		next = append(next, old[i+1:]...)
		env.State.Set(field, next)
		return nil
	}
}
