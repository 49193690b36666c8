package eval

import "github.com/weftlabs/weft/internal/ir"

// Callable is a bound lambda: the body expression closed over the context it
// was written in, invocable as (item, index). The error mirrors Evaluate's
// fatal faults and is propagated unchanged by the array dispatcher.
type Callable func(item, index any) (any, error)

func bindLambda(l *ir.Lambda, ctx *Context) Callable {
	return func(item, index any) (any, error) {
		locals := map[string]any{}
		if l.Param != "" {
			locals[l.Param] = item
		}
		if l.IndexParam != "" {
			locals[l.IndexParam] = index
		}
		return Evaluate(l.Body, ctx.WithLocals(locals))
	}
}
