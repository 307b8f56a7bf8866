package container

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/km-arc/go-binding/framework/reporter"
)

// Resolver decides how a key produces a value. handler is the container the
// resolver was found in; requestor is the container Get was called on.
type Resolver interface {
	Resolve(handler, requestor *Container) (any, error)
}

// FactoryResolver is implemented by resolvers that construct through a Factory.
type FactoryResolver interface {
	Resolver
	GetFactory(c *Container) *Factory
}

// ResolveCallback backs the callback strategy.
type ResolveCallback func(handler, requestor *Container, r Resolver) (any, error)

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(handler, requestor *Container) (any, error)

func (f ResolverFunc) Resolve(handler, requestor *Container) (any, error) { return f(handler, requestor) }

// ── Strategies ────────────────────────────────────────────────────────────────

// Strategy enumerates how a StrategyResolver produces its value.
type Strategy int

const (
	StrategyInstance Strategy = iota
	StrategySingleton
	StrategyTransient
	StrategyCallback
	StrategyArray
	StrategyAlias
)

func (s Strategy) String() string {
	switch s {
	case StrategyInstance:
		return "instance"
	case StrategySingleton:
		return "singleton"
	case StrategyTransient:
		return "transient"
	case StrategyCallback:
		return "callback"
	case StrategyArray:
		return "array"
	case StrategyAlias:
		return "alias"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// StrategyResolver is the built-in resolver. Its state depends on the strategy:
//
//	instance  → the value
//	singleton → *Class until first resolve, then the value (strategy becomes instance)
//	transient → *Class
//	callback  → ResolveCallback
//	array     → []Resolver
//	alias     → the original Key
type StrategyResolver struct {
	key Key

	mu       sync.Mutex
	strategy Strategy
	state    any
	pending  *construction
}

// construction is a singleton being built. Other callers wait on done.
type construction struct {
	owner *resolution
	done  chan struct{}
}

// resolution is one singleton construction within a chain of nested ones.
// All resolutions of a chain share a flow.
type resolution struct {
	parent   *resolution
	flow     *flow
	finished atomic.Bool
}

// flow records which singleton a chain is blocked on.
type flow struct {
	waiting atomic.Pointer[StrategyResolver]
}

func (n *resolution) within(ancestor *resolution) bool {
	for ; n != nil; n = n.parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

func newResolver(key Key, strategy Strategy, state any) *StrategyResolver {
	return &StrategyResolver{key: key, strategy: strategy, state: state}
}

// Key returns the key the resolver was created for.
func (r *StrategyResolver) Key() Key { return r.key }

// Strategy returns the current strategy.
func (r *StrategyResolver) Strategy() Strategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.strategy
}

// Register makes StrategyResolver usable as a registry entry.
func (r *StrategyResolver) Register(c *Container) error {
	_, err := r.RegisterKey(c, nil)
	return err
}

// RegisterKey registers r under key, or under its own key when key is nil.
func (r *StrategyResolver) RegisterKey(c *Container, key Key) (Resolver, error) {
	if key == nil {
		key = r.key
	}
	return c.RegisterResolver(key, r)
}

func (r *StrategyResolver) Resolve(handler, requestor *Container) (any, error) {
	r.mu.Lock()
	strategy, state := r.strategy, r.state

	switch strategy {
	case StrategyInstance:
		r.mu.Unlock()
		return state, nil

	case StrategySingleton:
		r.mu.Unlock()
		return r.resolveSingleton(handler, requestor)

	case StrategyTransient:
		r.mu.Unlock()
		// transients are built from the requesting container
		return handler.GetFactory(state.(*Class)).Construct(requestor)

	case StrategyCallback:
		r.mu.Unlock()
		return state.(ResolveCallback)(handler, requestor, r)

	case StrategyArray:
		first := state.([]Resolver)[0]
		r.mu.Unlock()
		return first.Resolve(handler, requestor)

	case StrategyAlias:
		r.mu.Unlock()
		return handler.view(requestor.depth, requestor.building).Get(state)

	default:
		r.mu.Unlock()
		return nil, reporter.New(reporter.CodeInvalidStrategy, "container.Resolve", strategy)
	}
}

// resolveSingleton constructs the instance once. Callers arriving while
// another chain constructs it wait for the result. A caller whose own chain
// is the one constructing it, directly or through other waiting chains,
// gets CodeSingletonCycle.
func (r *StrategyResolver) resolveSingleton(handler, requestor *Container) (any, error) {
	current := requestor.active()
	for {
		r.mu.Lock()
		if r.strategy == StrategyInstance {
			instance := r.state
			r.mu.Unlock()
			return instance, nil
		}
		if p := r.pending; p != nil {
			r.mu.Unlock()
			if err := r.await(p, current); err != nil {
				return nil, err
			}
			continue
		}

		node := &resolution{parent: current, flow: &flow{}}
		if current != nil {
			node.flow = current.flow
		}
		p := &construction{owner: node, done: make(chan struct{})}
		r.pending = p
		cls := r.state.(*Class)
		r.mu.Unlock()

		instance, err := handler.GetFactory(cls).Construct(handler.view(0, node))
		node.finished.Store(true)

		r.mu.Lock()
		r.pending = nil
		if err == nil {
			r.strategy = StrategyInstance
			r.state = instance
		}
		r.mu.Unlock()
		close(p.done)

		if err != nil {
			return nil, err
		}
		return instance, nil
	}
}

func (r *StrategyResolver) await(p *construction, current *resolution) error {
	if current == nil {
		// not constructing anything, so no chain can be waiting on this one
		<-p.done
		return nil
	}

	current.flow.waiting.Store(r)
	defer current.flow.waiting.Store(nil)
	if blocks(p.owner, current) {
		return reporter.New(reporter.CodeSingletonCycle, "container.Resolve", r.key)
	}
	<-p.done
	return nil
}

// blocks reports whether owner is current's own chain, or waits on it
// through other constructing chains.
func blocks(owner, current *resolution) bool {
	seen := map[*flow]bool{}
	for owner != nil && !seen[owner.flow] {
		if current.within(owner) {
			return true
		}
		seen[owner.flow] = true
		next := owner.flow.waiting.Load()
		if next == nil {
			return false
		}
		owner = next.pendingOwner()
	}
	return false
}

func (r *StrategyResolver) pendingOwner() *resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return nil
	}
	return r.pending.owner
}

// GetFactory returns the factory for singleton and transient strategies.
func (r *StrategyResolver) GetFactory(c *Container) *Factory {
	r.mu.Lock()
	strategy, state := r.strategy, r.state
	r.mu.Unlock()

	switch strategy {
	case StrategySingleton, StrategyTransient:
		return c.GetFactory(state.(*Class))
	default:
		return nil
	}
}

// resolvers returns the entries of an array resolver, or nil.
func (r *StrategyResolver) resolvers() []Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.strategy != StrategyArray {
		return nil
	}
	out := make([]Resolver, len(r.state.([]Resolver)))
	copy(out, r.state.([]Resolver))
	return out
}

// tryAppend adds next to an array resolver. It reports false when r is not one.
func (r *StrategyResolver) tryAppend(next Resolver) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.strategy != StrategyArray {
		return false
	}
	r.state = append(r.state.([]Resolver), next)
	return true
}

func resolveAll(r Resolver, handler, requestor *Container) ([]any, error) {
	if sr, ok := r.(*StrategyResolver); ok {
		if entries := sr.resolvers(); entries != nil {
			out := make([]any, len(entries))
			for i, entry := range entries {
				v, err := entry.Resolve(handler, requestor)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}
	}
	v, err := r.Resolve(handler, requestor)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

var containerResolver = ResolverFunc(func(_, requestor *Container) (any, error) {
	return requestor, nil
})

// ── Resolver keys ─────────────────────────────────────────────────────────────

type allResolver struct{ key Key }

func (r *allResolver) Resolve(_, requestor *Container) (any, error) {
	return requestor.GetAll(r.key)
}

// All is a key that resolves to every registration of key, in order.
//
//	cls := &container.Class{Inject: []container.Key{container.All(IPlugin)}, ...}
func All(key Key) Resolver { return &allResolver{key: key} }

// LazyFunc defers a lookup until first call and caches the result.
type LazyFunc func() (any, error)

type lazyResolver struct{ key Key }

func (r *lazyResolver) Resolve(_, requestor *Container) (any, error) {
	var (
		once     sync.Once
		instance any
		err      error
	)
	return LazyFunc(func() (any, error) {
		once.Do(func() { instance, err = requestor.Get(r.key) })
		return instance, err
	}), nil
}

// Lazy is a key that resolves to a LazyFunc for key.
func Lazy(key Key) Resolver { return &lazyResolver{key: key} }

type optionalResolver struct{ key Key }

func (r *optionalResolver) Resolve(_, requestor *Container) (any, error) {
	if requestor.Has(r.key, true) {
		return requestor.Get(r.key)
	}
	return nil, nil
}

// Optional is a key that resolves to key's value when it is registered
// somewhere in the chain, and to nil otherwise. It never JIT-registers.
func Optional(key Key) Resolver { return &optionalResolver{key: key} }

// ── InstanceProvider ──────────────────────────────────────────────────────────

// InstanceProvider is a resolver whose value is supplied later via Prepare.
// Resolving before Prepare is a CodeProviderNotPrepared error.
type InstanceProvider struct {
	name string

	mu       sync.Mutex
	instance any
	prepared bool
}

// NewInstanceProvider creates an unprepared provider; name appears in errors.
func NewInstanceProvider(name string) *InstanceProvider {
	return &InstanceProvider{name: name}
}

func (p *InstanceProvider) Prepare(instance any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instance = instance
	p.prepared = true
}

func (p *InstanceProvider) Resolve(_, _ *Container) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.prepared {
		return nil, reporter.New(reporter.CodeProviderNotPrepared, "container.InstanceProvider.Resolve", p.name)
	}
	return p.instance, nil
}

// Dispose drops the instance and returns the provider to the unprepared state.
func (p *InstanceProvider) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instance = nil
	p.prepared = false
}
