package container

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/km-arc/go-binding/framework/reporter"
)

// maxRegisterDepth bounds nested Register calls.
const maxRegisterDepth = 100

// Registry is anything that can register itself into a container.
type Registry interface {
	Register(c *Container) error
}

// RegistryFunc adapts a function to Registry.
type RegistryFunc func(c *Container) error

func (f RegistryFunc) Register(c *Container) error { return f(c) }

// hooks are shared by a container and all of its descendants.
type hooks struct {
	mu             sync.RWMutex
	afterResolving []func(key Key, instance any)
	logger         *slog.Logger
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container resolves keys to values through resolvers. Containers form a
// tree: lookups walk from the requesting container to the root, and keys
// unknown everywhere are registered just-in-time at the root.
//
// It supports:
//   - Register / RegisterResolver / Registration.* entries
//   - Get / GetAll / Has / GetResolver
//   - Instance / Singleton / Bind / Alias / Extend shorthands
//   - CreateChild with a shared factory cache and a snapshot of resources
//   - AfterResolving callbacks
type Container struct {
	*tree

	// Call context. Registries and constructors receive a view of the
	// container carrying how deep Register has nested and which singleton
	// construction they run under.
	depth    int
	building *resolution
}

// tree is the state shared by a container and its views.
type tree struct {
	self *Container

	mu sync.RWMutex

	parent *Container

	// key → resolver, one slot per key
	resolvers map[Key]Resolver

	// string keys, copied into children on CreateChild
	resourceLookup map[string]Resolver

	factories *factoryCache
	hooks     *hooks
}

// New creates an empty root container.
func New() *Container {
	return newContainer(nil, &factoryCache{m: make(map[*Class]*Factory)}, make(map[string]Resolver), &hooks{})
}

func newContainer(parent *Container, factories *factoryCache, lookup map[string]Resolver, h *hooks) *Container {
	c := &Container{tree: &tree{
		parent:         parent,
		resolvers:      make(map[Key]Resolver),
		resourceLookup: lookup,
		factories:      factories,
		hooks:          h,
	}}
	c.self = c
	c.resolvers[IContainer] = containerResolver
	return c
}

// view returns c with a different call context.
func (c *Container) view(depth int, building *resolution) *Container {
	return &Container{tree: c.tree, depth: depth, building: building}
}

// active returns the singleton construction c is resolving under, or nil
// once that construction has finished.
func (c *Container) active() *resolution {
	if c.building == nil || c.building.finished.Load() {
		return nil
	}
	return c.building
}

// SetLogger routes the container tree's debug output to logger.
func (c *Container) SetLogger(logger *slog.Logger) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.logger = logger
}

func (c *Container) logger() *slog.Logger {
	c.hooks.mu.RLock()
	defer c.hooks.mu.RUnlock()
	if c.hooks.logger == nil {
		return slog.Default()
	}
	return c.hooks.logger
}

// Parent returns the parent container, or nil for a root.
func (c *Container) Parent() *Container { return c.parent }

// ── Registration ──────────────────────────────────────────────────────────────

// Register adds entries to the container. An entry is a Registry (including
// *Class and Registration.* results), a map[string]any whose values are
// registered in key order, or a []any registered in order.
//
//	err := c.Register(
//	    container.Registration.Instance("config", cfg),
//	    serviceClass,
//	    map[string]any{"a": behaviorA, "b": behaviorB},
//	)
func (c *Container) Register(entries ...any) error {
	depth := c.depth + 1
	if depth >= maxRegisterDepth {
		return reporter.New(reporter.CodeRegistrationDepth, "container.Register", maxRegisterDepth)
	}

	nested := c.view(depth, c.building)
	for _, entry := range entries {
		if err := nested.registerEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) registerEntry(entry any) error {
	switch e := entry.(type) {
	case Registry:
		return e.Register(c)
	case map[string]any:
		names := make([]string, 0, len(e))
		for name := range e {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value := e[name]
			if reg, ok := value.(Registry); ok {
				if err := reg.Register(c); err != nil {
					return err
				}
				continue
			}
			if err := c.Register(value); err != nil {
				return err
			}
		}
		return nil
	case []any:
		return c.Register(e...)
	default:
		return reporter.New(reporter.CodeUnsupportedEntry, "container.Register", entry)
	}
}

// RegisterResolver stores r under key. The first registration owns the
// slot; later ones turn it into an array resolver that keeps every
// contribution in order. String keys are also indexed as resources.
func (c *Container) RegisterResolver(key Key, r Resolver) (Resolver, error) {
	if err := validateKey(key, "container.RegisterResolver"); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.resolvers[key]
	switch {
	case !ok:
		c.resolvers[key] = r
		if name, isString := key.(string); isString {
			c.resourceLookup[name] = r
		}
	case isArray(existing):
		existing.(*StrategyResolver).tryAppend(r)
	default:
		c.resolvers[key] = newResolver(key, StrategyArray, []Resolver{existing, r})
	}
	return r, nil
}

func isArray(r Resolver) bool {
	sr, ok := r.(*StrategyResolver)
	return ok && sr.Strategy() == StrategyArray
}

// RegisterTransformer adds a post-construction transformer to the factory
// behind key. It reports false when key does not resolve through a factory.
func (c *Container) RegisterTransformer(key Key, transform func(instance any) any) bool {
	r, err := c.GetResolver(key, true)
	if err != nil || r == nil {
		return false
	}
	fr, ok := r.(FactoryResolver)
	if !ok {
		return false
	}
	f := fr.GetFactory(c)
	if f == nil {
		return false
	}
	return f.RegisterTransformer(transform)
}

// ── Resolution ────────────────────────────────────────────────────────────────

func (c *Container) lookup(key Key) Resolver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolvers[key]
}

// GetResolver finds the resolver for key, walking up the tree. Keys that are
// themselves resolvers are returned as-is. When nothing is found and
// autoRegister is set, the key is registered just-in-time at the root.
func (c *Container) GetResolver(key Key, autoRegister bool) (Resolver, error) {
	if err := validateKey(key, "container.GetResolver"); err != nil {
		return nil, err
	}
	if r, ok := key.(Resolver); ok {
		return r, nil
	}

	for current := c; current != nil; current = current.parent {
		if r := current.lookup(key); r != nil {
			return r, nil
		}
		if current.parent == nil && autoRegister {
			return c.jitRegister(key, current)
		}
	}
	return nil, nil
}

// Has reports whether key is registered in c, or in any ancestor when
// searchAncestors is set.
func (c *Container) Has(key Key, searchAncestors bool) bool {
	if validateKey(key, "container.Has") != nil {
		return false
	}
	if c.lookup(key) != nil {
		return true
	}
	return searchAncestors && c.parent != nil && c.parent.Has(key, true)
}

// Get resolves one value for key. Array registrations yield their first entry.
//
//	svc, err := c.Get(serviceClass)
func (c *Container) Get(key Key) (any, error) {
	if err := validateKey(key, "container.Get"); err != nil {
		return nil, err
	}
	if r, ok := key.(Resolver); ok {
		return r.Resolve(c.self, c)
	}

	for current := c; current != nil; current = current.parent {
		r := current.lookup(key)
		if r == nil {
			if current.parent != nil {
				continue
			}
			var err error
			if r, err = c.jitRegister(key, current); err != nil {
				return nil, err
			}
		}
		instance, err := r.Resolve(current.self, c)
		if err != nil {
			return nil, err
		}
		c.fireAfterResolving(key, instance)
		return instance, nil
	}
	return nil, nil
}

// GetAll resolves every registration of key in the nearest container that
// has one. Nothing registered yields an empty slice.
func (c *Container) GetAll(key Key) ([]any, error) {
	if err := validateKey(key, "container.GetAll"); err != nil {
		return nil, err
	}

	for current := c; current != nil; current = current.parent {
		if r := current.lookup(key); r != nil {
			return resolveAll(r, current.self, c)
		}
	}
	return []any{}, nil
}

func (c *Container) jitRegister(key Key, handler *Container) (Resolver, error) {
	registrar, ok := key.(KeyRegistrar)
	if !ok {
		return nil, reporter.New(reporter.CodeNoRegistration, "container.Get", fmt.Sprint(key))
	}

	r, err := registrar.RegisterKey(handler, key)
	if err != nil {
		return nil, err
	}
	if r == nil {
		if existing := handler.lookup(key); existing != nil {
			return existing, nil
		}
		return nil, reporter.New(reporter.CodeInvalidResolver, "container.Get", key)
	}

	c.logger().Debug("container: registered just-in-time", "key", fmt.Sprint(key))
	// a concurrent Get may have registered the key first; resolve through
	// whatever owns the slot
	if slot := handler.lookup(key); slot != nil {
		return slot, nil
	}
	return r, nil
}

// GetFactory returns the memoized factory for cls.
func (c *Container) GetFactory(cls *Class) *Factory {
	return c.factories.get(cls)
}

// CreateChild returns a container whose lookups fall back to c. The child
// shares c's factory cache and receives a copy of its resource lookup.
func (c *Container) CreateChild() *Container {
	c.mu.RLock()
	lookup := make(map[string]Resolver, len(c.resourceLookup))
	for k, v := range c.resourceLookup {
		lookup[k] = v
	}
	c.mu.RUnlock()

	return newContainer(c.self, c.factories, lookup, c.hooks)
}

// ── Resources ─────────────────────────────────────────────────────────────────

// Resource returns the resolver indexed under name, as seen from c.
func (c *Container) Resource(name string) (Resolver, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.resourceLookup[name]
	return r, ok
}

// Resources lists the resource names visible from c, sorted.
func (c *Container) Resources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.resourceLookup))
	for name := range c.resourceLookup {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ── Shorthands ────────────────────────────────────────────────────────────────

// BuildFunc builds a value with access to the resolving container.
type BuildFunc func(c *Container) (any, error)

func buildClass(key Key, build BuildFunc) *Class {
	return &Class{
		Name:   fmt.Sprint(key),
		Inject: []Key{IContainer},
		New:    func(c *Container) (any, error) { return build(c) },
	}
}

// Instance registers a pre-built value.
//
//	c.Instance("config", cfg)
func (c *Container) Instance(key Key, value any) error {
	_, err := c.RegisterResolver(key, newResolver(key, StrategyInstance, value))
	return err
}

// Singleton registers a builder whose result is cached after first resolution.
//
//	c.Singleton("logger", func(c *container.Container) (any, error) {
//	    return logging.New(cfg), nil
//	})
func (c *Container) Singleton(key Key, build BuildFunc) error {
	_, err := c.RegisterResolver(key, newResolver(key, StrategySingleton, buildClass(key, build)))
	return err
}

// Bind registers a builder invoked on every resolution, with the requesting
// container as argument.
func (c *Container) Bind(key Key, build BuildFunc) error {
	_, err := c.RegisterResolver(key, newResolver(key, StrategyTransient, buildClass(key, build)))
	return err
}

// Alias makes alias resolve to whatever original resolves to.
func (c *Container) Alias(original, alias Key) error {
	if err := validateKey(original, "container.Alias"); err != nil {
		return err
	}
	if err := validateKey(alias, "container.Alias"); err != nil {
		return err
	}
	if original == alias {
		return fmt.Errorf("container: [%v] is aliased to itself", original)
	}
	_, err := c.RegisterResolver(alias, newResolver(alias, StrategyAlias, original))
	return err
}

// Extend decorates instances constructed for key. Same as RegisterTransformer.
func (c *Container) Extend(key Key, fn func(instance any) any) bool {
	return c.RegisterTransformer(key, fn)
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after every successful Get in
// the container tree.
func (c *Container) AfterResolving(cb func(key Key, instance any)) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.afterResolving = append(c.hooks.afterResolving, cb)
}

func (c *Container) fireAfterResolving(key Key, instance any) {
	c.hooks.mu.RLock()
	cbs := c.hooks.afterResolving
	c.hooks.mu.RUnlock()
	for _, cb := range cbs {
		cb(key, instance)
	}
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result.
//
//	cfg, err := container.Resolve[*config.Config](c, "config")
func Resolve[T any](c *Container, key Key) (T, error) {
	var zero T
	instance, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%T]: [%v] resolved to %T", zero, key, instance)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](c *Container, key Key) T {
	typed, err := Resolve[T](c, key)
	if err != nil {
		panic(err)
	}
	return typed
}
