package eval

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

func callNumber(recv float64, method string, args []any) any {
	switch method {
	case "toFixed":
		digits := intArg(args, 0, 0)
		if digits < 0 {
			digits = 0
		}
		if digits > 20 {
			digits = 20
		}
		if math.IsNaN(recv) {
			return "NaN"
		}
		return strconv.FormatFloat(recv, 'f', digits, 64)

	case "toString":
		return formatNumber(recv)

	default:
		return nil
	}
}

// callTime dispatches date instance methods. Calendar accessors read the
// value in whatever location it carries; toISOString normalizes to UTC.
func callTime(recv time.Time, method string, args []any) any {
	switch method {
	case "getTime":
		return float64(recv.UnixMilli())
	case "getFullYear":
		return float64(recv.Year())
	case "getMonth":
		// Zero-based, January is 0.
		return float64(int(recv.Month()) - 1)
	case "getDate":
		return float64(recv.Day())
	case "getDay":
		// Zero-based, Sunday is 0.
		return float64(int(recv.Weekday()))
	case "getHours":
		return float64(recv.Hour())
	case "getMinutes":
		return float64(recv.Minute())
	case "getSeconds":
		return float64(recv.Second())
	case "toISOString":
		return isoString(recv)
	case "toLocaleDateString":
		return fmt.Sprintf("%d/%d/%d", int(recv.Month()), recv.Day(), recv.Year())
	case "toLocaleTimeString":
		return recv.Format("3:04:05 PM")
	default:
		return nil
	}
}
