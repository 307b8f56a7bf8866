package ast

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/km-arc/go-binding/framework/observation"
)

// Value semantics follow the dynamic rules binding expressions are written
// for: numbers are float64, nil is "undefined", strings concatenate.

// Truthy reports whether v counts as true in a condition.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if n, ok := toFloat(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

// ToNumber converts v to a number; unconvertible values give NaN.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	}
	if n, ok := toFloat(v); ok {
		return n
	}
	return math.NaN()
}

// ToString renders v for concatenation and interpolation. nil renders empty.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = ToString(p)
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return x.String()
	}
	if n, ok := toFloat(v); ok {
		return formatNumber(n)
	}
	return fmt.Sprint(v)
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// TypeOf names v's dynamic type.
func TypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case bool:
		return "boolean"
	case string:
		return "string"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	if observation.IsCallable(v) {
		return "function"
	}
	return "object"
}

// LooseEqual compares with number, string and bool coercion.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return as == bs
	}
	if isScalar(a) && isScalar(b) {
		return ToNumber(a) == ToNumber(b)
	}
	return observation.Same(a, b)
}

// StrictEqual compares without coercion. Numbers of any Go type compare by
// value.
func StrictEqual(a, b any) bool { return observation.Same(a, b) }

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	_, ok := toFloat(v)
	return ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int8, int16, uint8, uint16:
		return reflect.ValueOf(n).Convert(reflect.TypeOf(float64(0))).Float(), true
	}
	return 0, false
}

// normalize turns every Go number into float64 so results compare and
// print uniformly.
func normalize(v any) any {
	if n, ok := toFloat(v); ok {
		return n
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
