package container

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/km-arc/go-binding/framework/reporter"
)

// Key identifies a dependency: an *InterfaceSymbol, a *Class, a resolver, or
// any comparable primitive (typically a string).
type Key = any

var emptyInterfaceType = reflect.TypeOf((*any)(nil)).Elem()

// validateKey rejects nil, typed-nil pointers, non-comparable values and the
// bare empty-interface type.
func validateKey(key Key, op string) error {
	if key == nil {
		return reporter.New(reporter.CodeInvalidKey, op, key)
	}
	if t, ok := key.(reflect.Type); ok && t == emptyInterfaceType {
		return reporter.New(reporter.CodeInvalidKey, op, key)
	}
	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			return reporter.New(reporter.CodeInvalidKey, op, key)
		}
	}
	if !v.Type().Comparable() {
		return reporter.New(reporter.CodeInvalidKey, op, fmt.Sprintf("%T", key))
	}
	return nil
}

// KeyRegistrar is implemented by keys that know how to register themselves
// when they are first requested from a container that has no resolver for
// them. A nil resolver with a nil error means "look at what I registered".
type KeyRegistrar interface {
	RegisterKey(c *Container, key Key) (Resolver, error)
}

// ── Interface symbols ─────────────────────────────────────────────────────────

// InterfaceSymbol is a nominal injection token.
//
//	var ILogger = container.CreateInterface("ILogger").WithDefault(
//	    func(b *container.ResolverBuilder) (container.Resolver, error) {
//	        return b.Singleton(consoleLoggerClass)
//	    })
type InterfaceSymbol struct {
	FriendlyName string

	mu        sync.Mutex
	configure func(b *ResolverBuilder) (Resolver, error)
}

// CreateInterface declares a new interface token. An empty name becomes "Interface".
func CreateInterface(friendlyName string) *InterfaceSymbol {
	if friendlyName == "" {
		friendlyName = "Interface"
	}
	return &InterfaceSymbol{FriendlyName: friendlyName}
}

// NoDefault marks the symbol as having no default registration.
func (s *InterfaceSymbol) NoDefault() *InterfaceSymbol { return s }

// WithDefault installs the resolver used when the symbol is requested and
// nothing is registered. It may be called once; a second call panics with
// a CodeDefaultAlreadySet error.
func (s *InterfaceSymbol) WithDefault(configure func(b *ResolverBuilder) (Resolver, error)) *InterfaceSymbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configure != nil {
		panic(reporter.New(reporter.CodeDefaultAlreadySet, "container.InterfaceSymbol.WithDefault", s.FriendlyName))
	}
	s.configure = configure
	return s
}

// RegisterKey runs the default configuration against c.
func (s *InterfaceSymbol) RegisterKey(c *Container, key Key) (Resolver, error) {
	s.mu.Lock()
	configure := s.configure
	s.mu.Unlock()

	if configure == nil {
		return nil, reporter.New(reporter.CodeNoRegistration, "container.InterfaceSymbol.RegisterKey", s.FriendlyName)
	}
	if key == nil {
		key = s
	}
	return configure(&ResolverBuilder{container: c, key: key})
}

func (s *InterfaceSymbol) String() string { return s.FriendlyName }

// ResolverBuilder registers a single strategy for a fixed key.
type ResolverBuilder struct {
	container *Container
	key       Key
}

func (b *ResolverBuilder) Instance(value any) (Resolver, error) {
	return b.container.RegisterResolver(b.key, newResolver(b.key, StrategyInstance, value))
}

func (b *ResolverBuilder) Singleton(cls *Class) (Resolver, error) {
	return b.container.RegisterResolver(b.key, newResolver(b.key, StrategySingleton, cls))
}

func (b *ResolverBuilder) Transient(cls *Class) (Resolver, error) {
	return b.container.RegisterResolver(b.key, newResolver(b.key, StrategyTransient, cls))
}

func (b *ResolverBuilder) Callback(fn ResolveCallback) (Resolver, error) {
	return b.container.RegisterResolver(b.key, newResolver(b.key, StrategyCallback, fn))
}

func (b *ResolverBuilder) AliasTo(destination Key) (Resolver, error) {
	return b.container.RegisterResolver(b.key, newResolver(b.key, StrategyAlias, destination))
}

// IContainer always resolves to the container doing the asking.
var IContainer = CreateInterface("IContainer").NoDefault()
