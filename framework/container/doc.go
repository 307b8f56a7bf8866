// Package container provides a hierarchical dependency injection container
// and the Service Provider system built on it.
//
// # Overview
//
// A Container maps keys to resolvers. A resolver decides how a key yields a
// value: a stored instance, a singleton constructed once, a transient
// constructed per request, a callback, an alias to another key, or an array
// of several registrations for the same key.
//
// Containers form a tree. Lookups walk from the requesting container to the
// root; children share their parent's factory cache and receive a snapshot
// of its string-keyed resources.
//
// Go has no constructor metadata, so every constructable type is described
// by a *Class with an explicit dependency list.
//
// # Registrations
//
//	c := container.New()
//
//	// Pre-built value
//	c.Register(container.Registration.Instance("config", cfg))
//
//	// Singleton keyed by an interface token
//	var ILogger = container.CreateInterface("ILogger")
//	c.Register(container.Registration.Singleton(ILogger, consoleLoggerClass))
//
//	// Transient, built from the requesting container each time
//	c.Register(container.Registration.Transient("request", requestClass))
//
//	// Alias
//	c.Register(container.Registration.Alias(ILogger, "logger"))
//
// # Shorthands
//
//	c.Instance("config", cfg)
//	c.Singleton("cache", func(c *container.Container) (any, error) { return newCache(), nil })
//	c.Bind("request", func(c *container.Container) (any, error) { return &Request{}, nil })
//	c.Extend(serviceClass, func(v any) any { return &tracedService{v.(*Service)} })
//
// # Resolving
//
//	raw, err := c.Get(ILogger)
//	all, err := c.GetAll("plugin")
//	cfg := container.MustResolve[*config.Config](c, "config")
//
// Keys unknown anywhere in the tree are registered just-in-time at the root:
// a *Class becomes a singleton of itself, an *InterfaceSymbol runs its
// WithDefault configuration, and any other KeyRegistrar registers itself.
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    return app.Singleton("mailer", newMailer)
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot()
//
// Deferred providers are only loaded when one of their Provides() keys is
// first resolved.
package container
