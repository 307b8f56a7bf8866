package observation

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// PropertyGetter is implemented by values that expose named properties
// themselves. dom.Element and *Object both satisfy it.
type PropertyGetter interface {
	GetProperty(name string) any
}

// PropertySetter is the write side of PropertyGetter.
type PropertySetter interface {
	SetProperty(name string, value any)
}

// PropertyChecker reports property presence for the "in" operator and for
// scope resolution. Getters without it are checked for a non-nil value.
type PropertyChecker interface {
	HasProperty(name string) bool
}

// Func is the calling convention for anything invoked from an expression.
type Func func(args ...any) (any, error)

// IsObject reports whether v can carry properties: maps, slices, structs,
// pointers to them and property getters. Primitives and nil are not objects.
func IsObject(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(PropertyGetter); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	case reflect.Func:
		return true
	}
	return false
}

// PropertyKey converts a keyed-access key to a property name. Integral
// numbers print without a fraction so 1.0 and 1 address the same slot.
func PropertyKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case float64:
		if k == math.Trunc(k) && !math.IsInf(k, 0) {
			return strconv.FormatInt(int64(k), 10)
		}
		return strconv.FormatFloat(k, 'f', -1, 64)
	case nil:
		return "undefined"
	}
	return fmt.Sprint(key)
}

// HasProperty reports whether obj has a property called name.
func HasProperty(obj any, name string) bool {
	switch o := obj.(type) {
	case nil:
		return false
	case PropertyChecker:
		return o.HasProperty(name)
	case PropertyGetter:
		return o.GetProperty(name) != nil
	case map[string]any:
		_, ok := o[name]
		return ok
	}

	rv := reflect.ValueOf(obj)
	if method(rv, name).IsValid() {
		return true
	}
	rv = indirect(rv)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return false
		}
		return rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())).IsValid()
	case reflect.Struct:
		return field(rv, name).IsValid()
	case reflect.Slice, reflect.Array, reflect.String:
		if name == "length" {
			return true
		}
		i, err := strconv.Atoi(name)
		return err == nil && i >= 0 && i < rv.Len()
	}
	return false
}

// GetProperty reads obj[name]. Missing properties read as nil. Slices and
// strings expose "length" and numeric indexes; methods read as Func.
func GetProperty(obj any, name string) any {
	switch o := obj.(type) {
	case nil:
		return nil
	case PropertyGetter:
		return o.GetProperty(name)
	case map[string]any:
		return o[name]
	}

	rv := reflect.ValueOf(obj)
	if m := method(rv, name); m.IsValid() {
		fn, _ := ToFunc(m.Interface())
		return fn
	}
	rv = indirect(rv)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	case reflect.Struct:
		f := field(rv, name)
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	case reflect.Slice, reflect.Array, reflect.String:
		if name == "length" {
			return float64(rv.Len())
		}
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil
		}
		if rv.Kind() == reflect.String {
			return string(rv.String()[i])
		}
		return rv.Index(i).Interface()
	}
	return nil
}

// SetProperty writes obj[name] = value and reports whether the write landed.
// Struct targets must be addressable (passed by pointer).
func SetProperty(obj any, name string, value any) bool {
	switch o := obj.(type) {
	case nil:
		return false
	case PropertySetter:
		o.SetProperty(name, value)
		return true
	case map[string]any:
		o[name] = value
		return true
	}

	rv := indirect(reflect.ValueOf(obj))
	switch rv.Kind() {
	case reflect.Map:
		kt, vt := rv.Type().Key(), rv.Type().Elem()
		if kt.Kind() != reflect.String || rv.IsNil() {
			return false
		}
		v, ok := convertTo(value, vt)
		if !ok {
			return false
		}
		rv.SetMapIndex(reflect.ValueOf(name).Convert(kt), v)
		return true
	case reflect.Struct:
		f := field(rv, name)
		if !f.IsValid() || !f.CanSet() {
			return false
		}
		v, ok := convertTo(value, f.Type())
		if !ok {
			return false
		}
		f.Set(v)
		return true
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= rv.Len() {
			return false
		}
		elem := rv.Index(i)
		v, ok := convertTo(value, elem.Type())
		if !ok || !elem.CanSet() {
			return false
		}
		elem.Set(v)
		return true
	}
	return false
}

// Keys returns the enumerable property names of obj, sorted.
func Keys(obj any) []string {
	type keyer interface{ Keys() []string }
	if k, ok := obj.(keyer); ok {
		return k.Keys()
	}
	rv := indirect(reflect.ValueOf(obj))
	var out []string
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		for _, k := range rv.MapKeys() {
			out = append(out, k.String())
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.IsExported() && !f.Anonymous {
				out = append(out, lowerFirst(f.Name))
			}
		}
	}
	sort.Strings(out)
	return out
}

// GetFunction looks up name on obj as something callable. A missing or nil
// member gives (nil, false); a present, non-callable member gives
// (nil, true) so the caller can tell "absent" from "not a function".
func GetFunction(obj any, name string) (Func, bool) {
	if obj == nil {
		return nil, false
	}
	rv := reflect.ValueOf(obj)
	if m := method(rv, name); m.IsValid() {
		fn, _ := ToFunc(m.Interface())
		return fn, true
	}
	v := GetProperty(obj, name)
	if v == nil {
		return nil, false
	}
	fn, ok := ToFunc(v)
	if !ok {
		return nil, true
	}
	return fn, true
}

// ToFunc adapts a Go function value to Func. Arguments are converted to the
// parameter types where a conversion exists (float64 to int, nil to zero).
// A trailing error result is returned as the error.
func ToFunc(v any) (Func, bool) {
	switch f := v.(type) {
	case nil:
		return nil, false
	case Func:
		return f, f != nil
	case func(args ...any) (any, error):
		return f, f != nil
	case func(args ...any) any:
		return func(args ...any) (any, error) { return f(args...), nil }, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, false
	}
	return func(args ...any) (any, error) { return callReflect(rv, args) }, true
}

// IsCallable reports whether v is a function value.
func IsCallable(v any) bool {
	_, ok := ToFunc(v)
	return ok
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func callReflect(fn reflect.Value, args []any) (any, error) {
	ft := fn.Type()
	n := ft.NumIn()
	count := n
	if ft.IsVariadic() {
		count = max(n-1, len(args))
	}
	in := make([]reflect.Value, 0, count)
	for i := 0; i < count; i++ {
		pt := ft.In(min(i, n-1))
		if ft.IsVariadic() && i >= n-1 {
			pt = ft.In(n - 1).Elem()
		}
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		v, ok := convertTo(arg, pt)
		if !ok {
			return nil, fmt.Errorf("observation: argument %d of %s: cannot use %T as %s", i, ft, arg, pt)
		}
		in = append(in, v)
	}

	out := fn.Call(in)
	switch {
	case len(out) == 0:
		return nil, nil
	case len(out) == 2 && ft.Out(1).Implements(errorType):
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), nil
	}
}

// convertTo turns value into a reflect.Value assignable to t.
func convertTo(value any, t reflect.Type) (reflect.Value, bool) {
	if value == nil {
		return reflect.Zero(t), true
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, true
	}
	if isNumberKind(v.Kind()) && isNumberKind(t.Kind()) {
		return v.Convert(t), true
	}
	if v.Type().ConvertibleTo(t) && v.Kind() == t.Kind() {
		return v.Convert(t), true
	}
	return reflect.Value{}, false
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func method(rv reflect.Value, name string) reflect.Value {
	if !rv.IsValid() || name == "" {
		return reflect.Value{}
	}
	if m := rv.MethodByName(name); m.IsValid() {
		return m
	}
	return rv.MethodByName(upperFirst(name))
}

func field(rv reflect.Value, name string) reflect.Value {
	if name == "" {
		return reflect.Value{}
	}
	if f := rv.FieldByName(upperFirst(name)); f.IsValid() {
		return f
	}
	return rv.FieldByName(name)
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
