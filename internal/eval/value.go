package eval

import (
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/weftlabs/weft/internal/ir"
)

// Truthy reports the truthiness of a runtime value: nil, false, 0, NaN and
// the empty string are falsy; everything else (including empty arrays and
// objects) is truthy.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case string:
		return val != ""
	default:
		return true
	}
}

// toNumber coerces a value for the arithmetic operators: float64 passes
// through, everything else is 0. The string-concatenation fallback of "+"
// is handled before this coercion ever applies.
func toNumber(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

// Stringify renders a value for text output and concatenation. No value is
// the empty string. Arrays and objects render as canonical JSON; times as
// UTC ISO-8601.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(val)
	case time.Time:
		return isoString(val)
	case []any, map[string]any:
		return ir.CanonicalKey(val)
	case Func:
		return ""
	default:
		return ir.CanonicalKey(val)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatInt(int64(f), 10)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

func isoString(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// strictEqual implements the equality operators: same kind and same value,
// no cross-kind coercion. Arrays and objects compare by identity of the
// underlying storage, never by structure. NaN is not equal to itself.
func strictEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		return ok && sameBacking(av, bv)
	case map[string]any:
		bv, ok := b.(map[string]any)
		return ok && sameBacking(av, bv)
	default:
		return false
	}
}

// sameBacking reports whether two slices or maps share storage identity.
func sameBacking(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Slice {
		if ra.Len() != rb.Len() {
			return false
		}
		if ra.Len() == 0 {
			// Two empty slices have no storage to compare; treat as equal.
			return true
		}
		return ra.Pointer() == rb.Pointer()
	}
	return ra.Pointer() == rb.Pointer()
}

// compareValues implements the ordering operators. Numeric ordering applies
// only when both operands are numbers; otherwise both sides are stringified
// and compared lexicographically. Returns -1, 0, or 1; ok is false when the
// comparison is unordered (a NaN operand under numeric comparison).
func compareValues(a, b any) (int, bool) {
	af, aIsNum := a.(float64)
	bf, bIsNum := b.(float64)
	if aIsNum && bIsNum {
		if math.IsNaN(af) || math.IsNaN(bf) {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, bs := Stringify(a), Stringify(b)
	switch {
	case as < bs:
		return -1, true
	case as > bs:
		return 1, true
	default:
		return 0, true
	}
}
