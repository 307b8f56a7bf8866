package observation

import (
	"reflect"
	"sync"
)

// Subscriber is notified when an observed value changes.
type Subscriber interface {
	HandleChange(newValue, oldValue any, flags LifecycleFlags)
}

// SubscriberFunc adapts a function to Subscriber. Being a func it cannot be
// unsubscribed; wrap it in a pointer type when removal matters.
type SubscriberFunc func(newValue, oldValue any, flags LifecycleFlags)

func (f SubscriberFunc) HandleChange(newValue, oldValue any, flags LifecycleFlags) {
	f(newValue, oldValue, flags)
}

// Accessor reads and writes one property of one object.
type Accessor interface {
	GetValue() any
	SetValue(value any, flags LifecycleFlags)
}

// Observer is an Accessor that can also report changes.
type Observer interface {
	Accessor
	Subscribe(s Subscriber)
	Unsubscribe(s Subscriber)
}

// ── Subscribers ───────────────────────────────────────────────────────────────

// Subscribers is an ordered subscriber set, embedded by observers.
type Subscribers struct {
	mu   sync.RWMutex
	subs []Subscriber
}

func (c *Subscribers) Subscribe(s Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.subs {
		if sameSubscriber(existing, s) {
			return
		}
	}
	c.subs = append(c.subs, s)
}

func (c *Subscribers) Unsubscribe(s Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.subs {
		if sameSubscriber(existing, s) {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

// HasSubscriber reports whether s is subscribed.
func (c *Subscribers) HasSubscriber(s Subscriber) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, existing := range c.subs {
		if sameSubscriber(existing, s) {
			return true
		}
	}
	return false
}

// SubscriberCount returns the number of subscribers.
func (c *Subscribers) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Notify calls every subscriber with a snapshot taken before the first call.
func (c *Subscribers) Notify(newValue, oldValue any, flags LifecycleFlags) {
	c.mu.RLock()
	subs := append([]Subscriber(nil), c.subs...)
	c.mu.RUnlock()
	for _, s := range subs {
		s.HandleChange(newValue, oldValue, flags)
	}
}

func sameSubscriber(a, b Subscriber) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return sameValue(reflect.ValueOf(a), reflect.ValueOf(b))
}

// ── SetterObserver ────────────────────────────────────────────────────────────

// SetterObserver owns a plain property. Writes through SetValue update the
// object and notify subscribers with UpdateTargetInstance.
type SetterObserver struct {
	Subscribers

	mu      sync.Mutex
	obj     any
	name    string
	current any
}

// NewSetterObserver observes obj[name], starting from its current value.
// Observable objects get the observer recorded in their table; a second call
// for the same property returns the recorded observer.
func NewSetterObserver(flags LifecycleFlags, obj any, name string) *SetterObserver {
	create := func() *SetterObserver {
		return &SetterObserver{obj: obj, name: name, current: GetProperty(obj, name)}
	}
	if o, ok := obj.(Observable); ok {
		return o.Observers().getOrAdd(name, create)
	}
	return create()
}

func (o *SetterObserver) Object() any          { return o.obj }
func (o *SetterObserver) PropertyName() string { return o.name }

func (o *SetterObserver) GetValue() any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *SetterObserver) SetValue(value any, flags LifecycleFlags) {
	o.mu.Lock()
	old := o.current
	if Same(old, value) {
		o.mu.Unlock()
		return
	}
	o.current = value
	o.mu.Unlock()

	if raw, ok := o.obj.(RawPropertySetter); ok {
		raw.SetRawProperty(o.name, value)
	} else {
		SetProperty(o.obj, o.name, value)
	}
	o.Notify(value, old, flags|UpdateTargetInstance)
}

// ── PropertyAccessor & PrimitiveObserver ──────────────────────────────────────

// PropertyAccessor reads and writes obj[name] without observing it.
type PropertyAccessor struct {
	Obj          any
	PropertyName string
}

func (a *PropertyAccessor) GetValue() any { return GetProperty(a.Obj, a.PropertyName) }

func (a *PropertyAccessor) SetValue(value any, _ LifecycleFlags) {
	SetProperty(a.Obj, a.PropertyName, value)
}

// PrimitiveObserver stands in for properties of primitives, which never
// change. Subscriptions are ignored.
type PrimitiveObserver struct {
	Obj          any
	PropertyName string
}

func (o *PrimitiveObserver) GetValue() any                { return GetProperty(o.Obj, o.PropertyName) }
func (o *PrimitiveObserver) SetValue(any, LifecycleFlags) {}
func (o *PrimitiveObserver) Subscribe(Subscriber)         {}
func (o *PrimitiveObserver) Unsubscribe(Subscriber)       {}

// ── Identity ──────────────────────────────────────────────────────────────────

// Same is strict equality: scalars compare by value, maps, slices and funcs
// by identity. Structs and arrays compare field by field under the same
// rules, so a struct holding a map never reaches a panicking ==. Numbers of
// different Go types are equal when they hold the same value.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return sameValue(reflect.ValueOf(a), reflect.ValueOf(b))
}

// sameValue compares two values of the same type.
func sameValue(va, vb reflect.Value) bool {
	switch va.Kind() {
	case reflect.Map, reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		ea, eb := va.Elem(), vb.Elem()
		return ea.Type() == eb.Type() && sameValue(ea, eb)
	case reflect.Struct:
		for i := range va.NumField() {
			if !sameValue(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := range va.Len() {
			if !sameValue(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true
	}
	return va.Equal(vb)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
