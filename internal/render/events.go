package render

import (
	"github.com/weftlabs/weft/internal/action"
	"github.com/weftlabs/weft/internal/eval"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/ir"
)

// bindHandler attaches a listener that, when the event fires, derives the
// event locals, evaluates the payload against the merged context and hands
// the invocation to the action executor. Executor failures are logged and
// dispatch continues; retrying would make replay nondeterministic.
func (m *Mount) bindHandler(el host.Element, h *ir.Handler, ctx *eval.Context, cl *cleanups) {
	handler := *h
	remove := el.Listen(handler.Event, func(ev host.Event) {
		locals := eventLocals(handler.Event, ev)
		payload, err := eval.EvaluatePayload(handler.Payload, ctx.WithLocals(locals))
		if err != nil {
			m.fatal(err)
			return
		}
		inv := action.Invocation{
			Mount:   m.token,
			Action:  handler.Action,
			Payload: payload,
			Locals:  locals,
		}
		env := action.Env{
			State:  m.r.state,
			Refs:   m.Ref,
			Logger: m.logger,
		}
		if err := m.r.exec.Execute(inv, env); err != nil {
			m.logger.Error("action failed",
				"action", handler.Action,
				"event", handler.Event,
				"error", err,
			)
		}
	})
	cl.add(remove)
}

// eventLocals derives the local bindings visible to payload expressions.
// Input-like events surface the control's current value and checked state.
func eventLocals(event string, ev host.Event) map[string]any {
	locals := map[string]any{"event": eventDetail(ev)}
	if ir.KnownEvents[event] {
		locals["value"] = ev.Value
		locals["checked"] = ev.Checked
	}
	return locals
}

func eventDetail(ev host.Event) map[string]any {
	detail := map[string]any{"name": ev.Name}
	for k, v := range ev.Data {
		if ir.IsForbiddenSegment(k) {
			continue
		}
		detail[k] = v
	}
	return detail
}
