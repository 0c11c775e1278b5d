// Package coerce converts untrusted decoded JSON values into typed Go values.
// Every function is total: any input, including nil and wrong-typed trees,
// yields a value of the requested type.
package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// maxExactInt bounds integer conversions to the range a float64 represents exactly.
const maxExactInt = 1 << 53

// String returns v as a string. Nil, empty strings, objects and arrays yield def.
func String(v any, def string) string {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		if x == "" {
			return def
		}
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return def
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, _ := Number(x)
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return def
	}
}

// Number parses v as a finite float64. Strings may carry surrounding
// whitespace, thousands separators, a currency sign or a percent sign.
func Number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimPrefix(s, "$")
		s = strings.TrimSuffix(s, "%")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Float returns v as a finite number, or def when it is not numeric.
func Float(v any, def float64) float64 {
	if f, ok := Number(v); ok {
		return f
	}
	return def
}

// NonNegative is Float with negative results raised to zero.
func NonNegative(v any, def float64) float64 {
	return math.Max(0, Float(v, def))
}

// Int truncates v toward zero. Non-numeric input yields def.
func Int(v any, def int) int {
	f, ok := Number(v)
	if !ok {
		return def
	}
	f = math.Trunc(f)
	if f > maxExactInt {
		return maxExactInt
	}
	if f < -maxExactInt {
		return -maxExactInt
	}
	return int(f)
}

// NonNegativeInt is Int with negative results raised to zero.
func NonNegativeInt(v any, def int) int {
	return max(0, Int(v, def))
}

// ClampInt is Int bounded to [lo, hi]. def is used for non-numeric input
// and is clamped as well.
func ClampInt(v any, lo, hi, def int) int {
	return min(hi, max(lo, Int(v, def)))
}

// Enum returns the member of allowed matching v case-insensitively, or def.
func Enum(v any, allowed []string, def string) string {
	s, ok := v.(string)
	if !ok {
		return def
	}
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if strings.EqualFold(a, s) {
			return a
		}
	}
	return def
}

// Bool reports whether v is the boolean true or the string "true".
func Bool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	default:
		return false
	}
}

// Map returns v as an object. Anything else is treated as an empty object.
func Map(v any) map[string]any {
	if m, ok := v.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

// Slice returns v as an array and whether it was one.
func Slice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// Limit truncates s to at most n elements.
func Limit[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Path walks nested objects by key and returns the value found, or nil.
// Integer-like keys of the form "[i]" index into arrays.
func Path(v any, keys ...string) any {
	cur := v
	for _, k := range keys {
		if strings.HasPrefix(k, "[") && strings.HasSuffix(k, "]") {
			arr, ok := Slice(cur)
			if !ok {
				return nil
			}
			i, err := strconv.Atoi(k[1 : len(k)-1])
			if err != nil || i < 0 || i >= len(arr) {
				return nil
			}
			cur = arr[i]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

// Strings maps an array to its non-empty string elements, keeping at most n.
// def is returned when v is not an array.
func Strings(v any, n int, def []string) []string {
	arr, ok := Slice(v)
	if !ok {
		return def
	}
	out := make([]string, 0, min(len(arr), n))
	for _, e := range arr {
		if len(out) == n {
			break
		}
		if s := String(e, ""); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Canonical converts a typed Go value into its decoded-JSON form so that it can
// be fed back through a normalizer. Values that are already untyped pass through.
func Canonical(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, map[string]any, []any:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
