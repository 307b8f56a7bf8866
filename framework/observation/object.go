package observation

import (
	"sort"
	"sync"
)

// Observable values keep their property observers in an ObserverTable, so
// that an assignment through an expression reaches the observer (and its
// subscribers) instead of writing the raw property.
//
// Embedding an ObserverTable in a view-model struct makes its pointer
// Observable.
type Observable interface {
	Observers() *ObserverTable
}

// RawPropertySetter writes a property without routing through observers.
// SetterObserver uses it on values whose SetProperty notifies.
type RawPropertySetter interface {
	SetRawProperty(name string, value any)
}

// ObserverTable maps property names to their setter observers. The zero
// value is ready to use.
type ObserverTable struct {
	mu        sync.RWMutex
	observers map[string]*SetterObserver
}

func (t *ObserverTable) Observers() *ObserverTable { return t }

// Get returns the observer for name, if one was created.
func (t *ObserverTable) Get(name string) (*SetterObserver, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.observers[name]
	return o, ok
}

// Names returns the observed property names, sorted.
func (t *ObserverTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.observers))
	for n := range t.observers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (t *ObserverTable) getOrAdd(name string, create func() *SetterObserver) *SetterObserver {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o, ok := t.observers[name]; ok {
		return o
	}
	if t.observers == nil {
		t.observers = make(map[string]*SetterObserver)
	}
	o := create()
	t.observers[name] = o
	return o
}

// ── Object ────────────────────────────────────────────────────────────────────

// Object is an observable property bag, the usual shape of a view-model.
//
//	vm := observation.NewObject(map[string]any{"firstName": "Ada"})
//	vm.SetProperty("firstName", "Grace") // notifies bound observers
type Object struct {
	ObserverTable

	mu     sync.RWMutex
	values map[string]any
	proxy  bool
}

// NewObject wraps values. The map is used as storage, not copied; a nil map
// starts empty.
func NewObject(values map[string]any) *Object {
	if values == nil {
		values = make(map[string]any)
	}
	return &Object{values: values}
}

func (o *Object) GetProperty(name string) any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.values[name]
}

func (o *Object) HasProperty(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.values[name]
	return ok
}

// SetProperty writes name through its observer when one exists.
func (o *Object) SetProperty(name string, value any) {
	if obs, ok := o.Get(name); ok {
		obs.SetValue(value, FlagsNone)
		return
	}
	o.SetRawProperty(name, value)
}

func (o *Object) SetRawProperty(name string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[name] = value
}

// Delete removes name.
func (o *Object) Delete(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.values, name)
}

func (o *Object) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.values))
	for k := range o.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Raw returns the backing map.
func (o *Object) Raw() map[string]any { return o.values }

// Snapshot copies the current values, unwrapping nested Objects.
func (o *Object) Snapshot() map[string]any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]any, len(o.values))
	for k, v := range o.values {
		if nested, ok := v.(*Object); ok {
			v = nested.Snapshot()
		}
		out[k] = v
	}
	return out
}
