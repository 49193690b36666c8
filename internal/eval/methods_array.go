package eval

import "strings"

// callArray dispatches a whitelisted array method. Higher-order methods
// require a bound lambda as their sole argument and forward its fatal
// errors; everything else is infallible.
func callArray(recv []any, method string, args []any) (any, error) {
	switch method {
	case "length":
		return float64(len(recv)), nil

	case "at":
		i := intArg(args, 0, 0)
		if i < 0 {
			i += len(recv)
		}
		if i < 0 || i >= len(recv) {
			return nil, nil
		}
		return recv[i], nil

	case "includes":
		v := arg(args, 0)
		for _, it := range recv {
			if strictEqual(it, v) {
				return true, nil
			}
		}
		return false, nil

	case "indexOf":
		v := arg(args, 0)
		for i, it := range recv {
			if strictEqual(it, v) {
				return float64(i), nil
			}
		}
		return float64(-1), nil

	case "slice":
		start := sliceBound(arg(args, 0), len(recv), 0)
		end := sliceBound(arg(args, 1), len(recv), len(recv))
		if start >= end {
			return []any{}, nil
		}
		out := make([]any, end-start)
		copy(out, recv[start:end])
		return out, nil

	case "join":
		sep := ","
		if s, ok := arg(args, 0).(string); ok {
			sep = s
		}
		parts := make([]string, len(recv))
		for i, it := range recv {
			parts[i] = Stringify(it)
		}
		return strings.Join(parts, sep), nil

	case "filter":
		cb, ok := arg(args, 0).(Callable)
		if !ok {
			return nil, nil
		}
		out := []any{}
		for i, it := range recv {
			keep, err := cb(it, float64(i))
			if err != nil {
				return nil, err
			}
			if Truthy(keep) {
				out = append(out, it)
			}
		}
		return out, nil

	case "map":
		cb, ok := arg(args, 0).(Callable)
		if !ok {
			return nil, nil
		}
		out := make([]any, len(recv))
		for i, it := range recv {
			v, err := cb(it, float64(i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case "find":
		cb, ok := arg(args, 0).(Callable)
		if !ok {
			return nil, nil
		}
		for i, it := range recv {
			hit, err := cb(it, float64(i))
			if err != nil {
				return nil, err
			}
			if Truthy(hit) {
				return it, nil
			}
		}
		return nil, nil

	case "findIndex":
		cb, ok := arg(args, 0).(Callable)
		if !ok {
			return nil, nil
		}
		for i, it := range recv {
			hit, err := cb(it, float64(i))
			if err != nil {
				return nil, err
			}
			if Truthy(hit) {
				return float64(i), nil
			}
		}
		return float64(-1), nil

	case "some":
		cb, ok := arg(args, 0).(Callable)
		if !ok {
			return nil, nil
		}
		for i, it := range recv {
			hit, err := cb(it, float64(i))
			if err != nil {
				return nil, err
			}
			if Truthy(hit) {
				return true, nil
			}
		}
		return false, nil

	case "every":
		cb, ok := arg(args, 0).(Callable)
		if !ok {
			return nil, nil
		}
		for i, it := range recv {
			hit, err := cb(it, float64(i))
			if err != nil {
				return nil, err
			}
			if !Truthy(hit) {
				return false, nil
			}
		}
		return true, nil

	default:
		return nil, nil
	}
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func intArg(args []any, i, def int) int {
	f, ok := arg(args, i).(float64)
	if !ok || f != f {
		return def
	}
	return int(f)
}

// sliceBound resolves a slice endpoint: absent or non-numeric arguments keep
// the default, negatives count from the end, and the result is clamped to
// [0, n].
func sliceBound(v any, n, def int) int {
	f, ok := v.(float64)
	if !ok || f != f {
		return def
	}
	i := int(f)
	if i < 0 {
		i += n
	}
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i
}
