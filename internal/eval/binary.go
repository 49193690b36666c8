package eval

import (
	"fmt"
	"math"

	"github.com/weftlabs/weft/internal/ir"
)

func evalBinary(b *ir.Binary, ctx *Context) (any, error) {
	// Logical operators short-circuit and yield the deciding operand, not
	// a coerced boolean.
	switch b.Op {
	case ir.OpAnd:
		left, err := Evaluate(b.Left, ctx)
		if err != nil {
			return nil, err
		}
		if !Truthy(left) {
			return left, nil
		}
		return Evaluate(b.Right, ctx)
	case ir.OpOr:
		left, err := Evaluate(b.Left, ctx)
		if err != nil {
			return nil, err
		}
		if Truthy(left) {
			return left, nil
		}
		return Evaluate(b.Right, ctx)
	}

	left, err := Evaluate(b.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := Evaluate(b.Right, ctx)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case ir.OpAdd:
		lf, lok := left.(float64)
		rf, rok := right.(float64)
		if lok && rok {
			return lf + rf, nil
		}
		return Stringify(left) + Stringify(right), nil

	case ir.OpSub:
		return toNumber(left) - toNumber(right), nil

	case ir.OpMul:
		return toNumber(left) * toNumber(right), nil

	case ir.OpDiv:
		// IEEE semantics: 0/0 is NaN, n/0 is signed infinity.
		return toNumber(left) / toNumber(right), nil

	case ir.OpMod:
		return math.Mod(toNumber(left), toNumber(right)), nil

	case ir.OpEq:
		return strictEqual(left, right), nil

	case ir.OpNeq:
		return !strictEqual(left, right), nil

	case ir.OpLt:
		c, ok := compareValues(left, right)
		return ok && c < 0, nil

	case ir.OpLte:
		c, ok := compareValues(left, right)
		return ok && c <= 0, nil

	case ir.OpGt:
		c, ok := compareValues(left, right)
		return ok && c > 0, nil

	case ir.OpGte:
		c, ok := compareValues(left, right)
		return ok && c >= 0, nil

	default:
		return nil, fmt.Errorf("evaluate: unknown binary operator %q", b.Op)
	}
}
