package eval

import (
	"encoding/json"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/weftlabs/weft/internal/ir"
)

// Func is a callable installed in the safe-globals table. Implementations
// receive the evaluation context so logging and clock reads go through the
// runtime rather than ambient process state. Namespace members are plain
// closures, so plucking one off its parent map keeps it fully invocable.
type Func func(ctx *Context, args []any) any

// safeGlobals is the fixed whitelist of namespaces a variable read falls
// back to when no scope or local binding matches. Built once at startup and
// never mutated; locals may shadow any entry.
var safeGlobals = map[string]any{
	"Math":    mathNamespace(),
	"JSON":    jsonNamespace(),
	"console": consoleNamespace(),
	"Number":  numberNamespace(),
	"String":  stringNamespace(),
	"Array":   arrayNamespace(),
	"Date":    dateNamespace(),
	"Boolean": map[string]any{},
}

func mathNamespace() map[string]any {
	unary := func(f func(float64) float64) Func {
		return func(_ *Context, args []any) any {
			return f(toNumber(arg(args, 0)))
		}
	}
	return map[string]any{
		"PI":    math.Pi,
		"E":     math.E,
		"abs":   unary(math.Abs),
		"ceil":  unary(math.Ceil),
		"floor": unary(math.Floor),
		"sqrt":  unary(math.Sqrt),
		"trunc": unary(math.Trunc),
		"sign": unary(func(f float64) float64 {
			switch {
			case f != f || f == 0:
				return f
			case f < 0:
				return -1
			default:
				return 1
			}
		}),
		// Halves round up, toward positive infinity.
		"round": unary(func(f float64) float64 {
			return math.Floor(f + 0.5)
		}),
		"pow": Func(func(_ *Context, args []any) any {
			return math.Pow(toNumber(arg(args, 0)), toNumber(arg(args, 1)))
		}),
		"min": Func(func(_ *Context, args []any) any {
			acc := math.Inf(1)
			for _, a := range args {
				f := toNumber(a)
				if f != f {
					return f
				}
				acc = math.Min(acc, f)
			}
			return acc
		}),
		"max": Func(func(_ *Context, args []any) any {
			acc := math.Inf(-1)
			for _, a := range args {
				f := toNumber(a)
				if f != f {
					return f
				}
				acc = math.Max(acc, f)
			}
			return acc
		}),
		"random": Func(func(_ *Context, _ []any) any {
			return rand.Float64()
		}),
	}
}

func jsonNamespace() map[string]any {
	return map[string]any{
		"stringify": Func(func(_ *Context, args []any) any {
			b, err := ir.MarshalCanonical(arg(args, 0))
			if err != nil {
				return nil
			}
			return string(b)
		}),
		"parse": Func(func(_ *Context, args []any) any {
			s, ok := arg(args, 0).(string)
			if !ok {
				return nil
			}
			var out any
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil
			}
			return out
		}),
	}
}

func consoleNamespace() map[string]any {
	emit := func(log func(l *slog.Logger, msg string)) Func {
		return func(ctx *Context, args []any) any {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = Stringify(a)
			}
			log(ctx.logger(), strings.Join(parts, " "))
			return nil
		}
	}
	return map[string]any{
		"log":   emit(func(l *slog.Logger, msg string) { l.Info(msg) }),
		"warn":  emit(func(l *slog.Logger, msg string) { l.Warn(msg) }),
		"error": emit(func(l *slog.Logger, msg string) { l.Error(msg) }),
	}
}

func numberNamespace() map[string]any {
	return map[string]any{
		"parseFloat": Func(func(_ *Context, args []any) any {
			p := numericPrefix(strings.TrimSpace(Stringify(arg(args, 0))))
			if p == "" {
				return math.NaN()
			}
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return math.NaN()
			}
			return f
		}),
		"parseInt": Func(func(_ *Context, args []any) any {
			return parseIntPrefix(
				strings.TrimSpace(Stringify(arg(args, 0))),
				intArg(args, 1, 10),
			)
		}),
		"isInteger": Func(func(_ *Context, args []any) any {
			f, ok := arg(args, 0).(float64)
			return ok && !math.IsInf(f, 0) && math.Trunc(f) == f
		}),
		"isFinite": Func(func(_ *Context, args []any) any {
			f, ok := arg(args, 0).(float64)
			return ok && !math.IsInf(f, 0) && !math.IsNaN(f)
		}),
		"isNaN": Func(func(_ *Context, args []any) any {
			f, ok := arg(args, 0).(float64)
			return ok && math.IsNaN(f)
		}),
	}
}

func stringNamespace() map[string]any {
	return map[string]any{
		"fromCharCode": Func(func(_ *Context, args []any) any {
			var b strings.Builder
			for _, a := range args {
				if f, ok := a.(float64); ok {
					b.WriteRune(rune(int(f)))
				}
			}
			return b.String()
		}),
	}
}

func arrayNamespace() map[string]any {
	return map[string]any{
		"isArray": Func(func(_ *Context, args []any) any {
			_, ok := arg(args, 0).([]any)
			return ok
		}),
		"from": Func(func(_ *Context, args []any) any {
			switch v := arg(args, 0).(type) {
			case []any:
				out := make([]any, len(v))
				copy(out, v)
				return out
			case string:
				runes := []rune(v)
				out := make([]any, len(runes))
				for i, r := range runes {
					out[i] = string(r)
				}
				return out
			default:
				return nil
			}
		}),
	}
}

func dateNamespace() map[string]any {
	return map[string]any{
		"now": Func(func(ctx *Context, _ []any) any {
			return float64(ctx.now().UnixMilli())
		}),
		"parse": Func(func(_ *Context, args []any) any {
			s, ok := arg(args, 0).(string)
			if !ok {
				return math.NaN()
			}
			t, ok := parseDate(s)
			if !ok {
				return math.NaN()
			}
			return float64(t.UnixMilli())
		}),
		// from stands in for the date constructor: milliseconds, an ISO
		// string, or an existing date all produce a date value.
		"from": Func(func(_ *Context, args []any) any {
			switch v := arg(args, 0).(type) {
			case float64:
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil
				}
				return time.UnixMilli(int64(v)).UTC()
			case string:
				if t, ok := parseDate(v); ok {
					return t
				}
				return nil
			case time.Time:
				return v
			default:
				return nil
			}
		}),
	}
}

func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// numericPrefix returns the longest leading substring of s that forms a
// decimal number literal (optional sign, digits, fraction, exponent).
func numericPrefix(s string) string {
	i, n := 0, len(s)
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := false
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
		digits = true
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
			digits = true
		}
	}
	if !digits {
		return ""
	}
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < n && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := false
		for j < n && s[j] >= '0' && s[j] <= '9' {
			j++
			expDigits = true
		}
		if expDigits {
			i = j
		}
	}
	return s[:i]
}

func parseIntPrefix(s string, radix int) any {
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if radix == 16 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s = s[2:]
	}
	end := 0
	for end < len(s) && digitVal(s[end]) < radix {
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	v, err := strconv.ParseInt(s[:end], radix, 64)
	if err != nil {
		// Out of int64 range: decimal prefixes still have a float value.
		if radix == 10 {
			if f, ferr := strconv.ParseFloat(s[:end], 64); ferr == nil {
				if neg {
					return -f
				}
				return f
			}
		}
		return math.NaN()
	}
	f := float64(v)
	if neg {
		f = -f
	}
	return f
}

func digitVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 99
}
