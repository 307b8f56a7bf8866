package ast

import (
	"reflect"
	"strconv"

	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/reporter"
)

// ── AccessThis ────────────────────────────────────────────────────────────────

// AccessThis reads a binding context: "$this" (Ancestor 0), "$parent" (1),
// and so on up the override-context chain.
type AccessThis struct {
	readOnly
	pure
	Ancestor int
}

var (
	This   = &AccessThis{}
	Parent = &AccessThis{Ancestor: 1}
)

func NewAccessThis(ancestor int) *AccessThis { return &AccessThis{Ancestor: ancestor} }

func (e *AccessThis) Kind() Kind { return KindAccessThis }

func (e *AccessThis) Evaluate(_ observation.LifecycleFlags, scope *observation.Scope, _ observation.ServiceLocator) (any, error) {
	if scope == nil {
		return nil, reporter.New(reporter.CodeNilScope, "ast.AccessThis.Evaluate", "$this")
	}
	oc := scope.OverrideContext
	for i := e.Ancestor; i > 0 && oc != nil; i-- {
		oc = oc.Parent
	}
	if oc == nil {
		return nil, nil
	}
	return oc.BindingContext, nil
}

func (e *AccessThis) Accept(v Visitor) any { return v.VisitAccessThis(e) }

// ── AccessScope ───────────────────────────────────────────────────────────────

// AccessScope reads a name from the scope chain.
type AccessScope struct {
	Name     string
	Ancestor int
}

func NewAccessScope(name string, ancestor int) *AccessScope {
	return &AccessScope{Name: name, Ancestor: ancestor}
}

func (e *AccessScope) Kind() Kind { return KindAccessScope }

func (e *AccessScope) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, _ observation.ServiceLocator) (any, error) {
	ctx, err := observation.ResolveContext(scope, e.Name, e.Ancestor, flags)
	if err != nil {
		return nil, err
	}
	return observation.GetProperty(ctx, e.Name), nil
}

func (e *AccessScope) Assign(flags observation.LifecycleFlags, scope *observation.Scope, _ observation.ServiceLocator, value any) (any, error) {
	ctx, err := observation.ResolveContext(scope, e.Name, e.Ancestor, flags)
	if err != nil {
		return nil, err
	}
	if !observation.IsObject(ctx) {
		return nil, nil
	}
	assignProperty(flags, ctx, e.Name, value)
	return value, nil
}

func (e *AccessScope) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	ctx, err := observation.ResolveContext(scope, e.Name, e.Ancestor, flags)
	if err != nil {
		return err
	}
	if ctx != nil {
		binding.ObserveProperty(flags, ctx, e.Name)
	}
	return nil
}

func (e *AccessScope) Accept(v Visitor) any { return v.VisitAccessScope(e) }

// ── AccessMember ──────────────────────────────────────────────────────────────

// AccessMember reads Object.Name.
type AccessMember struct {
	Object Expression
	Name   string
}

func NewAccessMember(object Expression, name string) *AccessMember {
	return &AccessMember{Object: object, Name: name}
}

func (e *AccessMember) Kind() Kind { return KindAccessMember }

func (e *AccessMember) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	instance, err := e.Object.Evaluate(flags, scope, locator)
	if err != nil || instance == nil {
		return nil, err
	}
	return observation.GetProperty(instance, e.Name), nil
}

// Assign writes the member. When the object is not an object yet, the
// object expression is assigned {Name: value} instead.
func (e *AccessMember) Assign(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, value any) (any, error) {
	obj, err := e.Object.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	if observation.IsObject(obj) {
		assignProperty(flags, obj, e.Name, value)
	} else if _, err := e.Object.Assign(flags, scope, locator, map[string]any{e.Name: value}); err != nil {
		return nil, err
	}
	return value, nil
}

func (e *AccessMember) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	obj, err := peek(e.Object, flags, scope, binding)
	if err != nil {
		return err
	}
	if err := e.Object.Connect(flags, scope, binding); err != nil {
		return err
	}
	if observation.IsObject(obj) {
		binding.ObserveProperty(flags, obj, e.Name)
	}
	return nil
}

func (e *AccessMember) Accept(v Visitor) any { return v.VisitAccessMember(e) }

// ── AccessKeyed ───────────────────────────────────────────────────────────────

// AccessKeyed reads Object[Key].
type AccessKeyed struct {
	Object Expression
	Key    Expression
}

func NewAccessKeyed(object, key Expression) *AccessKeyed {
	return &AccessKeyed{Object: object, Key: key}
}

func (e *AccessKeyed) Kind() Kind { return KindAccessKeyed }

func (e *AccessKeyed) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	instance, err := e.Object.Evaluate(flags, scope, locator)
	if err != nil || !observation.IsObject(instance) {
		return nil, err
	}
	key, err := e.Key.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	return observation.GetProperty(instance, observation.PropertyKey(key)), nil
}

func (e *AccessKeyed) Assign(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, value any) (any, error) {
	instance, err := e.Object.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	key, err := e.Key.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	assignProperty(flags, instance, observation.PropertyKey(key), value)
	return value, nil
}

// Connect observes the keyed property. Numeric indexes into sequences are
// only observed under the proxy strategy.
func (e *AccessKeyed) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	obj, err := peek(e.Object, flags, scope, binding)
	if err != nil {
		return err
	}
	if err := e.Object.Connect(flags, scope, binding); err != nil {
		return err
	}
	if !observation.IsObject(obj) {
		return nil
	}
	if err := e.Key.Connect(flags, scope, binding); err != nil {
		return err
	}
	key, err := peek(e.Key, flags, scope, binding)
	if err != nil {
		return err
	}
	if isSequence(obj) && isNumeric(key) {
		if flags&observation.ProxyStrategy != 0 {
			binding.ObserveProperty(flags, obj, observation.PropertyKey(key))
		}
		return nil
	}
	binding.ObserveProperty(flags, obj, observation.PropertyKey(key))
	return nil
}

func (e *AccessKeyed) Accept(v Visitor) any { return v.VisitAccessKeyed(e) }

func isSequence(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func isNumeric(v any) bool {
	switch k := v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case string:
		_, err := strconv.ParseFloat(k, 64)
		return err == nil
	}
	return false
}
