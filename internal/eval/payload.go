package eval

import "github.com/weftlabs/weft/internal/ir"

// EvaluatePayload resolves a handler payload to the value handed to the
// action executor. A single-expression payload yields that value; a field
// map yields a fresh map with every field evaluated independently. Fields
// named __proto__, constructor, or prototype are dropped, never written.
func EvaluatePayload(p *ir.Payload, ctx *Context) (any, error) {
	if p == nil {
		return nil, nil
	}
	if p.Expr != nil {
		return Evaluate(p.Expr, ctx)
	}
	out := make(map[string]any, len(p.Fields))
	for name, expr := range p.Fields {
		if ir.IsForbiddenSegment(name) {
			continue
		}
		v, err := Evaluate(expr, ctx)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
