package ir

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Canonical encoding of evaluated values, RFC 8785 style. Two entry points:
//
//   - MarshalCanonical: strict. Used for document hashing and trace output.
//     Rejects NaN and the infinities, which have no canonical JSON form.
//   - CanonicalKey: total. Used for keyed-list identity, where any evaluated
//     value must map to a stable key string. Non-finite numbers encode as
//     the literals NaN / Infinity / -Infinity.
//
// Shared rules: object keys sorted by UTF-16 code units (NOT UTF-8 bytes),
// strings NFC normalized, no HTML escaping, numbers in shortest round-trip
// form with integral floats printed as integers (so 1 and 1.0 collapse).

// MarshalCanonical produces canonical JSON for v. v is a runtime value:
// nil, bool, float64, string, []any, or map[string]any. Plain ints are
// accepted and widened for convenience in tests and fixtures.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalKey returns the canonical string form of v for use as a map key.
// Total: never fails for values the evaluator can produce.
func CanonicalKey(v any) string {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v, true); err != nil {
		// Only reachable for values outside the runtime model.
		return fmt.Sprintf("!%T", v)
	}
	return buf.String()
}

func writeCanonical(buf *bytes.Buffer, v any, total bool) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		writeCanonicalString(buf, val)
		return nil
	case float64:
		return writeCanonicalNumber(buf, val, total)
	case int:
		return writeCanonicalNumber(buf, float64(val), total)
	case int64:
		return writeCanonicalNumber(buf, float64(val), total)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem, total); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		buf.WriteByte('{')
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysUTF16)
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k], total); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("unsupported type for canonical encoding: %T", v)
	}
}

func writeCanonicalNumber(buf *bytes.Buffer, f float64, total bool) error {
	switch {
	case math.IsNaN(f):
		if !total {
			return fmt.Errorf("NaN has no canonical JSON form")
		}
		buf.WriteString("NaN")
		return nil
	case math.IsInf(f, 1):
		if !total {
			return fmt.Errorf("Infinity has no canonical JSON form")
		}
		buf.WriteString("Infinity")
		return nil
	case math.IsInf(f, -1):
		if !total {
			return fmt.Errorf("-Infinity has no canonical JSON form")
		}
		buf.WriteString("-Infinity")
		return nil
	}
	// Negative zero collapses to zero, matching JSON serialization in the
	// ECMA numeric model.
	if f == 0 {
		buf.WriteByte('0')
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// writeCanonicalString emits an NFC-normalized JSON string without HTML
// escaping. Only the quote, the backslash, and control characters are
// escaped; the two-char forms are used where RFC 8785 defines them.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// compareKeysUTF16 orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison is UTF-8 byte order, which disagrees for
// characters beyond the BMP, so the conversion is not optional.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := len(a16)
	if len(b16) < n {
		n = len(b16)
	}
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
