package observation

import (
	"reflect"
	"sync"

	"github.com/km-arc/go-binding/framework/container"
)

// TargetObserverLocator supplies observers for host (DOM) objects.
// GetObserver returns nil when the property has no specialised observer.
type TargetObserverLocator interface {
	GetObserver(flags LifecycleFlags, lifecycle Lifecycle, locator *ObserverLocator, obj any, name string) Accessor
	OverridesAccessor(flags LifecycleFlags, obj any, name string) bool
	Handles(flags LifecycleFlags, obj any) bool
}

// TargetAccessorLocator supplies write-only accessors for host objects.
type TargetAccessorLocator interface {
	GetAccessor(flags LifecycleFlags, lifecycle Lifecycle, obj any, name string) Accessor
	Handles(flags LifecycleFlags, obj any) bool
}

// Injection keys for the observation services.
var (
	ILifecycle = container.CreateInterface("ILifecycle").WithDefault(
		func(b *container.ResolverBuilder) (container.Resolver, error) {
			return b.Singleton(&container.Class{Name: "Queue", New: NewQueue})
		})

	ISignaler = container.CreateInterface("ISignaler").WithDefault(
		func(b *container.ResolverBuilder) (container.Resolver, error) {
			return b.Singleton(&container.Class{Name: "Signaler", New: NewSignaler})
		})

	ITargetObserverLocator = container.CreateInterface("ITargetObserverLocator").NoDefault()
	ITargetAccessorLocator = container.CreateInterface("ITargetAccessorLocator").NoDefault()

	IObserverLocator = container.CreateInterface("IObserverLocator").WithDefault(
		func(b *container.ResolverBuilder) (container.Resolver, error) {
			return b.Singleton(ObserverLocatorClass)
		})
)

// ObserverLocatorClass builds the locator from the container. The target
// locators are optional; without them every object is treated as plain.
var ObserverLocatorClass = &container.Class{
	Name: "ObserverLocator",
	Inject: []container.Key{
		ILifecycle,
		container.Optional(ITargetObserverLocator),
		container.Optional(ITargetAccessorLocator),
	},
	New: NewObserverLocator,
}

type cacheKey struct {
	id   any
	name string
}

// ObserverLocator hands out one observer per (object, property). Host
// objects are delegated to the target locators; everything else gets a
// SetterObserver.
type ObserverLocator struct {
	lifecycle       Lifecycle
	targetObservers TargetObserverLocator
	targetAccessors TargetAccessorLocator
	proxies         *ProxyRegistry

	mu    sync.Mutex
	cache map[cacheKey]Accessor
}

func NewObserverLocator(lifecycle Lifecycle, targetObservers TargetObserverLocator, targetAccessors TargetAccessorLocator) *ObserverLocator {
	return &ObserverLocator{
		lifecycle:       lifecycle,
		targetObservers: targetObservers,
		targetAccessors: targetAccessors,
		proxies:         NewProxyRegistry(),
		cache:           make(map[cacheKey]Accessor),
	}
}

func (l *ObserverLocator) Lifecycle() Lifecycle { return l.lifecycle }

// Proxies returns the registry of proxies used under ProxyStrategy.
func (l *ObserverLocator) Proxies() *ProxyRegistry { return l.proxies }

// GetObserver returns the cached observer for obj[name], creating it on
// first use.
func (l *ObserverLocator) GetObserver(flags LifecycleFlags, obj any, name string) Accessor {
	if o, ok := obj.(Observable); ok && !l.handlesTarget(flags, obj) {
		return NewSetterObserver(flags, o, name)
	}

	id, cacheable := identity(obj)
	if !cacheable {
		return l.createPropertyObserver(flags, obj, name)
	}
	key := cacheKey{id: id, name: name}

	l.mu.Lock()
	if cached, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return cached
	}
	l.mu.Unlock()

	created := l.createPropertyObserver(flags, obj, name)

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.cache[key]; ok {
		return cached
	}
	l.cache[key] = created
	return created
}

// GetAccessor returns something that can write obj[name]. Host properties
// the target locator claims get the full observer.
func (l *ObserverLocator) GetAccessor(flags LifecycleFlags, obj any, name string) Accessor {
	if l.targetAccessors != nil && l.targetAccessors.Handles(flags, obj) {
		if l.targetObservers != nil && l.targetObservers.OverridesAccessor(flags, obj, name) {
			return l.GetObserver(flags, obj, name)
		}
		return l.targetAccessors.GetAccessor(flags, l.lifecycle, obj, name)
	}
	if flags&ProxyStrategy != 0 {
		if p, ok := l.proxies.GetOrCreate(obj).(*Object); ok {
			return NewSetterObserver(flags, p, name)
		}
	}
	return &PropertyAccessor{Obj: obj, PropertyName: name}
}

func (l *ObserverLocator) handlesTarget(flags LifecycleFlags, obj any) bool {
	return l.targetObservers != nil && l.targetObservers.Handles(flags, obj)
}

func (l *ObserverLocator) createPropertyObserver(flags LifecycleFlags, obj any, name string) Accessor {
	if !IsObject(obj) {
		return &PrimitiveObserver{Obj: obj, PropertyName: name}
	}
	if l.handlesTarget(flags, obj) {
		if o := l.targetObservers.GetObserver(flags, l.lifecycle, l, obj, name); o != nil {
			return o
		}
	}
	if flags&ProxyStrategy != 0 {
		if p, ok := l.proxies.GetOrCreate(obj).(*Object); ok {
			return NewSetterObserver(flags, p, name)
		}
	}
	return NewSetterObserver(flags, obj, name)
}

// identity returns a comparable stand-in for obj's identity. Values without
// one (structs held by value, slices) are not cached.
func identity(obj any) (any, bool) {
	if obj == nil {
		return nil, false
	}
	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return obj, true
	case reflect.Map:
		type mapID struct {
			t reflect.Type
			p uintptr
		}
		return mapID{rv.Type(), rv.Pointer()}, true
	}
	return nil, false
}
