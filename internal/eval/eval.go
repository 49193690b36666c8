package eval

import (
	"fmt"

	"github.com/weftlabs/weft/internal/ir"
)

// Evaluate interprets a compiled expression against ctx.
//
// The error return is reserved for the two fatal faults (unknown expression
// kind, unknown binary operator); both indicate a compiler/runtime version
// mismatch. All data-level anomalies return (nil, nil): nil is "no value".
// Evaluation never mutates the expression or the context.
func Evaluate(e ir.Expr, ctx *Context) (any, error) {
	switch t := e.(type) {
	case *ir.Lit:
		return t.Value, nil

	case *ir.StateRef:
		if ctx.State == nil {
			return nil, nil
		}
		return descend(ctx.State.Get(t.Name), t.Path), nil

	case *ir.VarRef:
		v, ok := ctx.lookupVar(t.Name)
		if !ok {
			return nil, nil
		}
		return descend(v, t.Path), nil

	case *ir.Binary:
		return evalBinary(t, ctx)

	case *ir.Not:
		v, err := Evaluate(t.Operand, ctx)
		if err != nil {
			return nil, err
		}
		return !Truthy(v), nil

	case *ir.Cond:
		c, err := Evaluate(t.If, ctx)
		if err != nil {
			return nil, err
		}
		if Truthy(c) {
			return Evaluate(t.Then, ctx)
		}
		if t.Else == nil {
			return nil, nil
		}
		return Evaluate(t.Else, ctx)

	case *ir.PropGet:
		base, err := Evaluate(t.Base, ctx)
		if err != nil {
			return nil, err
		}
		return descend(base, t.Path), nil

	case *ir.ImportRef:
		if ctx.Imports == nil {
			return nil, nil
		}
		table, ok := ctx.Imports[t.Name]
		if !ok {
			return nil, nil
		}
		return descend(table, t.Path), nil

	case *ir.Index:
		return evalIndex(t, ctx)

	case *ir.Concat:
		return evalConcat(t, ctx)

	case *ir.Call:
		return evalCall(t, ctx)

	case *ir.Lambda:
		// Only meaningful as a call argument; standalone it is no value.
		return nil, nil

	case *ir.RouteParamRef:
		if v, ok := ctx.Routes[t.Name]; ok {
			return v, nil
		}
		return nil, nil

	case *ir.StyleRef:
		if v, ok := ctx.Styles[t.Name]; ok {
			return v, nil
		}
		return nil, nil

	case *ir.ValidityRef:
		if ctx.Validity == nil {
			return nil, nil
		}
		return ctx.Validity(t.Ref, t.Field), nil

	case *ir.ElemRef:
		if ctx.Refs == nil {
			return nil, nil
		}
		return ctx.Refs(t.Name), nil

	case nil:
		return nil, fmt.Errorf("evaluate: nil expression")

	default:
		return nil, fmt.Errorf("evaluate: unknown expression kind %T", e)
	}
}

func evalIndex(t *ir.Index, ctx *Context) (any, error) {
	base, err := Evaluate(t.Base, ctx)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, nil
	}
	key, err := Evaluate(t.Key, ctx)
	if err != nil {
		return nil, err
	}

	switch b := base.(type) {
	case []any:
		i, ok := key.(float64)
		if !ok || i != float64(int(i)) {
			return nil, nil
		}
		idx := int(i)
		if idx < 0 || idx >= len(b) {
			return nil, nil
		}
		return b[idx], nil
	case map[string]any:
		k, ok := key.(string)
		if !ok || ir.IsForbiddenSegment(k) {
			return nil, nil
		}
		return b[k], nil
	default:
		return nil, nil
	}
}

func evalConcat(t *ir.Concat, ctx *Context) (any, error) {
	out := ""
	for _, part := range t.Parts {
		v, err := Evaluate(part, ctx)
		if err != nil {
			return nil, err
		}
		out += Stringify(v)
	}
	return out, nil
}

// EvaluateOrLog is the renderer's convenience wrapper: fatal faults are
// reported through the callback exactly once per call and render as no
// value so the surrounding tree keeps working.
func EvaluateOrLog(e ir.Expr, ctx *Context, onFatal func(error)) any {
	v, err := Evaluate(e, ctx)
	if err != nil {
		if onFatal != nil {
			onFatal(err)
		}
		return nil
	}
	return v
}
