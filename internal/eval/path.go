package eval

import (
	"unicode/utf8"

	"github.com/weftlabs/weft/internal/ir"
)

// descend walks a dotted property path over a value. A forbidden segment
// (__proto__, constructor, prototype) aborts the walk; so does stepping
// through nil or through a value with no such property. The result of an
// aborted walk is nil.
func descend(v any, path []string) any {
	for _, seg := range path {
		if ir.IsForbiddenSegment(seg) {
			return nil
		}
		switch cur := v.(type) {
		case map[string]any:
			v = cur[seg]
		case []any:
			if seg != "length" {
				return nil
			}
			v = float64(len(cur))
		case string:
			if seg != "length" {
				return nil
			}
			v = float64(utf8.RuneCountInString(cur))
		default:
			return nil
		}
	}
	return v
}
