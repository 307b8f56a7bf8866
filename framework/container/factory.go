package container

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/km-arc/go-binding/framework/reporter"
)

// Class describes a constructable type: a constructor plus the keys of the
// values it takes, in order. Dependencies are always declared explicitly.
//
// New is either an untyped shape (func() any, func(any) any, … up to five
// any parameters), which is invoked directly, or any other Go function whose
// parameters line up with Inject, invoked through reflection. Typed
// constructors may return (T) or (T, error).
//
//	var serviceClass = &container.Class{
//	    Name:   "Service",
//	    Inject: []container.Key{ILogger, "config"},
//	    New: func(logger, cfg any) any {
//	        return &Service{Logger: logger.(*slog.Logger), Config: cfg.(*config.Config)}
//	    },
//	}
type Class struct {
	Name   string
	Inject []Key
	New    any

	// Registrar, when set, is used both by Register and by JIT registration.
	Registrar func(c *Container, key Key) (Resolver, error)
}

func (cls *Class) String() string {
	if cls.Name != "" {
		return cls.Name
	}
	return fmt.Sprintf("%T", cls.New)
}

// Register registers the class through its Registrar, or as a singleton
// keyed by itself.
func (cls *Class) Register(c *Container) error {
	_, err := cls.RegisterKey(c, cls)
	return err
}

func (cls *Class) RegisterKey(c *Container, key Key) (Resolver, error) {
	if cls.Registrar != nil {
		return cls.Registrar(c, key)
	}
	return c.RegisterResolver(cls, newResolver(cls, StrategySingleton, cls))
}

// AsSingleton makes the class register itself as a singleton.
func (cls *Class) AsSingleton() *Class {
	cls.Registrar = func(c *Container, _ Key) (Resolver, error) {
		return Registration.Singleton(cls, cls).RegisterKey(c, cls)
	}
	return cls
}

// AsTransient makes the class register itself as a transient.
func (cls *Class) AsTransient() *Class {
	cls.Registrar = func(c *Container, _ Key) (Resolver, error) {
		return Registration.Transient(cls, cls).RegisterKey(c, cls)
	}
	return cls
}

// ── Invokers ──────────────────────────────────────────────────────────────────

type invoker func(c *Container, ctor any, deps []Key) (any, error)

var classInvokers = [...]invoker{
	func(_ *Container, ctor any, _ []Key) (any, error) {
		return ctor.(func() any)(), nil
	},
	func(c *Container, ctor any, deps []Key) (any, error) {
		a, err := c.getEach(deps)
		if err != nil {
			return nil, err
		}
		return ctor.(func(any) any)(a[0]), nil
	},
	func(c *Container, ctor any, deps []Key) (any, error) {
		a, err := c.getEach(deps)
		if err != nil {
			return nil, err
		}
		return ctor.(func(any, any) any)(a[0], a[1]), nil
	},
	func(c *Container, ctor any, deps []Key) (any, error) {
		a, err := c.getEach(deps)
		if err != nil {
			return nil, err
		}
		return ctor.(func(any, any, any) any)(a[0], a[1], a[2]), nil
	},
	func(c *Container, ctor any, deps []Key) (any, error) {
		a, err := c.getEach(deps)
		if err != nil {
			return nil, err
		}
		return ctor.(func(any, any, any, any) any)(a[0], a[1], a[2], a[3]), nil
	},
	func(c *Container, ctor any, deps []Key) (any, error) {
		a, err := c.getEach(deps)
		if err != nil {
			return nil, err
		}
		return ctor.(func(any, any, any, any, any) any)(a[0], a[1], a[2], a[3], a[4]), nil
	},
}

// hasClassInvokerShape reports whether ctor is the untyped function shape
// matching arity.
func hasClassInvokerShape(ctor any, arity int) bool {
	switch ctor.(type) {
	case func() any:
		return arity == 0
	case func(any) any:
		return arity == 1
	case func(any, any) any:
		return arity == 2
	case func(any, any, any) any:
		return arity == 3
	case func(any, any, any, any) any:
		return arity == 4
	case func(any, any, any, any, any) any:
		return arity == 5
	}
	return false
}

func fallbackInvoker(c *Container, ctor any, deps []Key) (any, error) {
	return invokeWithDynamicDependencies(c, ctor, deps, nil)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func invokeWithDynamicDependencies(c *Container, ctor any, static []Key, dynamic []any) (any, error) {
	args, err := c.getEach(static)
	if err != nil {
		return nil, err
	}
	args = append(args, dynamic...)

	fn := reflect.ValueOf(ctor)
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("container: constructor %T is not a function", ctor)
	}
	ft := fn.Type()
	if (!ft.IsVariadic() && ft.NumIn() != len(args)) || (ft.IsVariadic() && len(args) < ft.NumIn()-1) {
		return nil, fmt.Errorf("container: constructor %s takes %d arguments, got %d", ft, ft.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= ft.NumIn()-1 {
			pt = ft.In(ft.NumIn() - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		av := reflect.ValueOf(arg)
		if !av.Type().AssignableTo(pt) {
			return nil, fmt.Errorf("container: argument %d of %s: %T is not assignable to %s", i, ft, arg, pt)
		}
		in[i] = av
	}

	out := fn.Call(in)
	switch len(out) {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if !ft.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("container: constructor %s must return (T) or (T, error)", ft)
		}
		if e, _ := out[1].Interface().(error); e != nil {
			return nil, e
		}
		return out[0].Interface(), nil
	default:
		return nil, fmt.Errorf("container: constructor %s must return (T) or (T, error)", ft)
	}
}

// ── Factory ───────────────────────────────────────────────────────────────────

// Factory constructs instances of a Class and applies transformers in
// registration order. One Factory exists per Class per container tree.
type Factory struct {
	Class *Class

	invoke       invoker
	dependencies []Key

	mu           sync.Mutex
	transformers []func(instance any) any
}

func newFactory(cls *Class) *Factory {
	deps := cls.Inject
	inv := invoker(fallbackInvoker)
	if len(deps) < len(classInvokers) && hasClassInvokerShape(cls.New, len(deps)) {
		inv = classInvokers[len(deps)]
	}
	return &Factory{Class: cls, invoke: inv, dependencies: deps}
}

// Construct builds an instance resolving dependencies from c. Dynamic
// dependencies are appended after the declared ones.
func (f *Factory) Construct(c *Container, dynamic ...any) (any, error) {
	var (
		instance any
		err      error
	)
	if len(dynamic) > 0 {
		instance, err = invokeWithDynamicDependencies(c, f.Class.New, f.dependencies, dynamic)
	} else {
		instance, err = f.invoke(c, f.Class.New, f.dependencies)
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	transformers := f.transformers
	f.mu.Unlock()

	for _, transform := range transformers {
		instance = transform(instance)
	}
	return instance, nil
}

// RegisterTransformer appends a post-construction transformer.
func (f *Factory) RegisterTransformer(transform func(instance any) any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transformers = append(f.transformers, transform)
	return true
}

// factoryCache is shared by pointer between a container and its descendants.
type factoryCache struct {
	mu sync.Mutex
	m  map[*Class]*Factory
}

func (fc *factoryCache) get(cls *Class) *Factory {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	f, ok := fc.m[cls]
	if !ok {
		f = newFactory(cls)
		fc.m[cls] = f
	}
	return f
}

// getEach resolves keys in order. A nil key is a CodeNilDependency error.
func (c *Container) getEach(keys []Key) ([]any, error) {
	args := make([]any, len(keys))
	for i, key := range keys {
		if key == nil {
			return nil, reporter.New(reporter.CodeNilDependency, "container.Factory.Construct", i, "constructor")
		}
		v, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
