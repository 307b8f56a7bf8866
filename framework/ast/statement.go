package ast

import (
	"math"
	"reflect"
	"sort"

	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/reporter"
)

// ── Assign ────────────────────────────────────────────────────────────────────

// Assign is "Target = Value". Evaluating it performs the assignment.
type Assign struct {
	pure
	Target Expression
	Value  Expression
}

func NewAssign(target, value Expression) *Assign { return &Assign{Target: target, Value: value} }

func (e *Assign) Kind() Kind { return KindAssign }

func (e *Assign) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	v, err := e.Value.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	return e.Target.Assign(flags, scope, locator, v)
}

// Assign writes value to both sides, so "a = b" chains: "c = (a = b)".
func (e *Assign) Assign(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, value any) (any, error) {
	if _, err := e.Value.Assign(flags, scope, locator, value); err != nil {
		return nil, err
	}
	return e.Target.Assign(flags, scope, locator, value)
}

func (e *Assign) Accept(v Visitor) any { return v.VisitAssign(e) }

// ── Conditional ───────────────────────────────────────────────────────────────

// Conditional is "Condition ? Yes : No".
type Conditional struct {
	readOnly
	Condition Expression
	Yes       Expression
	No        Expression
}

func NewConditional(condition, yes, no Expression) *Conditional {
	return &Conditional{Condition: condition, Yes: yes, No: no}
}

func (e *Conditional) Kind() Kind { return KindConditional }

func (e *Conditional) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	c, err := e.Condition.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	if Truthy(c) {
		return e.Yes.Evaluate(flags, scope, locator)
	}
	return e.No.Evaluate(flags, scope, locator)
}

// Connect connects the condition and the branch it currently selects.
func (e *Conditional) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	c, err := peek(e.Condition, flags, scope, binding)
	if err != nil {
		return err
	}
	if err := e.Condition.Connect(flags, scope, binding); err != nil {
		return err
	}
	if Truthy(c) {
		return e.Yes.Connect(flags, scope, binding)
	}
	return e.No.Connect(flags, scope, binding)
}

func (e *Conditional) Accept(v Visitor) any { return v.VisitConditional(e) }

// ── ForOfStatement ────────────────────────────────────────────────────────────

// ForOfStatement is "Declaration of Iterable", the expression of a
// repeater. Evaluate yields the iterable; Count and Iterate walk it.
//
// Supported iterables: slices and arrays, maps (entries as [key, value]
// pairs in key order), sets (map[K]struct{}, keys in order), non-negative
// numbers (a 0..n-1 range) and nil (empty).
type ForOfStatement struct {
	readOnly
	Declaration Expression
	Iterable    Expression
}

func NewForOfStatement(declaration, iterable Expression) *ForOfStatement {
	return &ForOfStatement{Declaration: declaration, Iterable: iterable}
}

func (e *ForOfStatement) Kind() Kind { return KindForOfStatement }

func (e *ForOfStatement) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	return e.Iterable.Evaluate(flags, scope, locator)
}

// Count returns how many items Iterate would visit.
func (e *ForOfStatement) Count(flags observation.LifecycleFlags, result any) (int, error) {
	items, err := collect(flags, result)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Iterate calls fn for every item of result. collection is the full item
// list, shared between calls.
func (e *ForOfStatement) Iterate(flags observation.LifecycleFlags, result any, fn func(collection []any, index int, item any)) error {
	items, err := collect(flags, result)
	if err != nil {
		return err
	}
	for i, item := range items {
		fn(items, i, item)
	}
	return nil
}

// Declare binds item to the declaration in scope: the loop variable, or
// every name of a destructuring pattern.
func (e *ForOfStatement) Declare(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, item any) error {
	_, err := e.Declaration.Assign(flags, scope, locator, item)
	return err
}

func (e *ForOfStatement) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	if err := e.Declaration.Connect(flags, scope, binding); err != nil {
		return err
	}
	return e.Iterable.Connect(flags, scope, binding)
}

func (e *ForOfStatement) Bind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding) error {
	if b, ok := e.Iterable.(Binder); ok {
		return b.Bind(flags, scope, binding)
	}
	return nil
}

func (e *ForOfStatement) Unbind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding) error {
	if b, ok := e.Iterable.(Binder); ok {
		return b.Unbind(flags, scope, binding)
	}
	return nil
}

func (e *ForOfStatement) Accept(v Visitor) any { return v.VisitForOfStatement(e) }

// collect flattens result into its items. Under the proxy strategy plain
// map items of a []any are replaced in place by observable proxies, so
// later reads through the collection see the proxy too.
func collect(flags observation.LifecycleFlags, result any) ([]any, error) {
	switch r := result.(type) {
	case nil:
		return nil, nil
	case []any:
		if flags&observation.ProxyStrategy != 0 {
			for i, item := range r {
				r[i] = observation.NewProxy(item)
			}
		}
		return r, nil
	}
	if n, ok := toFloat(result); ok {
		if math.IsNaN(n) || n <= 0 {
			return nil, nil
		}
		if math.IsInf(n, 1) {
			return nil, reporter.New(reporter.CodeNotIterable, "ast.ForOfStatement.Iterate", "Infinity")
		}
		out := make([]any, int(math.Ceil(n)))
		for i := range out {
			out[i] = float64(i)
		}
		return out, nil
	}

	rv := reflect.ValueOf(result)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
			if flags&observation.ProxyStrategy != 0 {
				out[i] = observation.NewProxy(out[i])
			}
		}
		return out, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i].Interface(), keys[j].Interface()) })
		set := rv.Type().Elem() == reflect.TypeOf(struct{}{})
		out := make([]any, len(keys))
		for i, k := range keys {
			if set {
				out[i] = k.Interface()
			} else {
				out[i] = []any{k.Interface(), rv.MapIndex(k).Interface()}
			}
		}
		return out, nil
	}
	return nil, reporter.New(reporter.CodeNotIterable, "ast.ForOfStatement.Iterate", TypeOf(result))
}

func lessKey(a, b any) bool {
	x, xok := toFloat(a)
	y, yok := toFloat(b)
	if xok && yok {
		return x < y
	}
	return ToString(a) < ToString(b)
}

// ── Binding patterns ──────────────────────────────────────────────────────────

// BindingIdentifier names a loop variable. Assigning it declares the name
// on the scope's override context.
type BindingIdentifier struct {
	pure
	Name string
}

func NewBindingIdentifier(name string) *BindingIdentifier { return &BindingIdentifier{Name: name} }

func (e *BindingIdentifier) Kind() Kind { return KindBindingIdentifier }

func (e *BindingIdentifier) Evaluate(observation.LifecycleFlags, *observation.Scope, observation.ServiceLocator) (any, error) {
	return e.Name, nil
}

func (e *BindingIdentifier) Assign(flags observation.LifecycleFlags, scope *observation.Scope, _ observation.ServiceLocator, value any) (any, error) {
	if scope == nil || scope.OverrideContext == nil {
		return nil, reporter.New(reporter.CodeNilScope, "ast.BindingIdentifier.Assign", e.Name)
	}
	assignProperty(flags, scope.OverrideContext, e.Name, value)
	return value, nil
}

func (e *BindingIdentifier) Accept(v Visitor) any { return v.VisitBindingIdentifier(e) }

// ArrayBindingPattern destructures a sequence: "[a, b] of pairs".
type ArrayBindingPattern struct {
	pure
	Elements []Expression
}

func NewArrayBindingPattern(elements []Expression) *ArrayBindingPattern {
	return &ArrayBindingPattern{Elements: elements}
}

func (e *ArrayBindingPattern) Kind() Kind { return KindArrayBindingPattern }

func (e *ArrayBindingPattern) Evaluate(observation.LifecycleFlags, *observation.Scope, observation.ServiceLocator) (any, error) {
	return nil, nil
}

func (e *ArrayBindingPattern) Assign(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, value any) (any, error) {
	for i, el := range e.Elements {
		var item any
		if isSequence(value) {
			item = observation.GetProperty(value, observation.PropertyKey(i))
		}
		if _, err := el.Assign(flags, scope, locator, item); err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (e *ArrayBindingPattern) Accept(v Visitor) any { return v.VisitArrayBindingPattern(e) }

// ObjectBindingPattern destructures an object: "{id, name: label} of rows".
// Keys and Values are parallel.
type ObjectBindingPattern struct {
	pure
	Keys   []string
	Values []Expression
}

func NewObjectBindingPattern(keys []string, values []Expression) *ObjectBindingPattern {
	return &ObjectBindingPattern{Keys: keys, Values: values}
}

func (e *ObjectBindingPattern) Kind() Kind { return KindObjectBindingPattern }

func (e *ObjectBindingPattern) Evaluate(observation.LifecycleFlags, *observation.Scope, observation.ServiceLocator) (any, error) {
	return nil, nil
}

func (e *ObjectBindingPattern) Assign(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, value any) (any, error) {
	for i, k := range e.Keys {
		var item any
		if observation.IsObject(value) {
			item = observation.GetProperty(value, k)
		}
		if _, err := e.Values[i].Assign(flags, scope, locator, item); err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (e *ObjectBindingPattern) Accept(v Visitor) any { return v.VisitObjectBindingPattern(e) }
