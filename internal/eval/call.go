package eval

import (
	"time"

	"github.com/weftlabs/weft/internal/ir"
)

// evalCall resolves the target, evaluates arguments (lambdas are bound, not
// evaluated), then dispatches on the target's runtime type. A nil target, an
// unknown method, or a badly typed argument all yield no value.
func evalCall(c *ir.Call, ctx *Context) (any, error) {
	target, err := Evaluate(c.Target, ctx)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}

	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		if lam, ok := a.(*ir.Lambda); ok {
			args[i] = bindLambda(lam, ctx)
			continue
		}
		v, err := Evaluate(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch recv := target.(type) {
	case []any:
		return callArray(recv, c.Method, args)
	case string:
		return callString(recv, c.Method, args), nil
	case float64:
		return callNumber(recv, c.Method, args), nil
	case time.Time:
		return callTime(recv, c.Method, args), nil
	case map[string]any:
		// Namespace dispatch: member functions carry no receiver state, so
		// plucking one out of its parent map loses nothing.
		if ir.IsForbiddenSegment(c.Method) {
			return nil, nil
		}
		if fn, ok := recv[c.Method].(Func); ok {
			return fn(ctx, args), nil
		}
		return nil, nil
	case Func:
		// A function plucked off a namespace by path and called directly.
		if c.Method != "" {
			return nil, nil
		}
		return recv(ctx, args), nil
	default:
		return nil, nil
	}
}
