package container

import (
	"fmt"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations.
//
// Register binds services into the container. Boot is called after every
// provider has been registered, so it may resolve anything.
//
//	type ResourcesProvider struct{ container.BaseProvider }
//
//	func (p *ResourcesProvider) Register(app *container.Container) error {
//	    return app.Register(resources.OneTimeBehavior, resources.TwoWayBehavior)
//	}
type ServiceProvider interface {
	Register(app *Container) error

	// Boot is called after all providers are registered.
	Boot(app *Container) error

	// Provides lists the keys a deferred provider registers.
	Provides() []Key

	// IsDeferred returns true if this provider should be loaded lazily,
	// only when one of its Provides() keys is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot, Provides and IsDeferred.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []Key         { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred ones.
type ProviderRegistry struct {
	app *Container

	mu         sync.Mutex
	eager      []ServiceProvider
	deferred   map[ServiceProvider]*deferredEntry
	registered map[ServiceProvider]bool
	booted     bool
}

// deferredEntry holds the child container a deferred provider is loaded
// into, so its keys do not collide with the interceptors in app.
type deferredEntry struct {
	once  sync.Once
	child *Container
	err   error
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		deferred:   make(map[ServiceProvider]*deferredEntry),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method (unless deferred).
// Providers added after Boot are booted immediately.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		entry := &deferredEntry{}
		r.deferred[provider] = entry
		r.mu.Unlock()
		return r.interceptDeferred(provider, entry)
	}

	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	if err := provider.Register(r.app); err != nil {
		return err
	}
	if booted {
		return provider.Boot(r.app)
	}
	return nil
}

// interceptDeferred registers a callback for each provided key. The first
// resolution loads the provider into a child of app and resolves from there.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider, entry *deferredEntry) error {
	for _, key := range provider.Provides() {
		k := key
		cb := ResolveCallback(func(_, requestor *Container, _ Resolver) (any, error) {
			entry.once.Do(func() {
				child := r.app.CreateChild()
				if entry.err = provider.Register(child); entry.err != nil {
					return
				}
				if r.Booted() {
					entry.err = provider.Boot(child)
				}
				entry.child = child
			})
			if entry.err != nil {
				return nil, entry.err
			}
			if !entry.child.Has(k, false) {
				return nil, fmt.Errorf("container: deferred provider %T did not register [%v]", provider, k)
			}
			return entry.child.Get(k)
		})
		if _, err := r.app.RegisterResolver(k, Registration.Callback(k, cb)); err != nil {
			return err
		}
	}
	return nil
}

// Boot calls Boot on all eager providers. Later calls are no-ops.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	eager := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range eager {
		if err := provider.Boot(r.app); err != nil {
			return err
		}
	}
	return nil
}

// Booted returns true if Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// Loaded reports whether a deferred provider has been loaded.
func (r *ProviderRegistry) Loaded(provider ServiceProvider) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.deferred[provider]
	if !ok {
		return r.registered[provider]
	}
	return entry.child != nil
}
