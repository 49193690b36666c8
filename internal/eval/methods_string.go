package eval

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// callString dispatches a whitelisted string method. Positions and lengths
// are in runes, so multi-byte text indexes the way an author counting
// characters expects.
func callString(recv, method string, args []any) any {
	switch method {
	case "length":
		return float64(utf8.RuneCountInString(recv))

	case "charAt":
		runes := []rune(recv)
		i := intArg(args, 0, 0)
		if i < 0 || i >= len(runes) {
			return ""
		}
		return string(runes[i])

	case "substring":
		runes := []rune(recv)
		a := clampBound(arg(args, 0), len(runes), 0)
		b := clampBound(arg(args, 1), len(runes), len(runes))
		if a > b {
			a, b = b, a
		}
		return string(runes[a:b])

	case "slice":
		runes := []rune(recv)
		a := sliceBound(arg(args, 0), len(runes), 0)
		b := sliceBound(arg(args, 1), len(runes), len(runes))
		if a >= b {
			return ""
		}
		return string(runes[a:b])

	case "split":
		sep, ok := arg(args, 0).(string)
		if !ok {
			return []any{recv}
		}
		var parts []string
		if sep == "" {
			runes := []rune(recv)
			parts = make([]string, len(runes))
			for i, r := range runes {
				parts[i] = string(r)
			}
		} else {
			parts = strings.Split(recv, sep)
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out

	case "trim":
		return strings.TrimSpace(recv)

	case "toUpperCase":
		return cases.Upper(language.Und).String(recv)

	case "toLowerCase":
		return cases.Lower(language.Und).String(recv)

	case "replace":
		// First occurrence only.
		return strings.Replace(recv, Stringify(arg(args, 0)), Stringify(arg(args, 1)), 1)

	case "includes":
		return strings.Contains(recv, Stringify(arg(args, 0)))

	case "startsWith":
		return strings.HasPrefix(recv, Stringify(arg(args, 0)))

	case "endsWith":
		return strings.HasSuffix(recv, Stringify(arg(args, 0)))

	case "indexOf":
		byteIdx := strings.Index(recv, Stringify(arg(args, 0)))
		if byteIdx < 0 {
			return float64(-1)
		}
		return float64(utf8.RuneCountInString(recv[:byteIdx]))

	default:
		return nil
	}
}

// clampBound resolves a substring endpoint: absent or non-numeric arguments
// keep the default, and the result is clamped to [0, n] with negatives
// treated as 0.
func clampBound(v any, n, def int) int {
	f, ok := v.(float64)
	if !ok || f != f {
		return def
	}
	i := int(f)
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i
}
