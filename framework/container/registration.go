package container

// Registration builds the standard registry entries.
//
//	c.Register(
//	    container.Registration.Instance("config", cfg),
//	    container.Registration.Singleton(ILogger, consoleLoggerClass),
//	    container.Registration.Alias(ILogger, "logger"),
//	)
var Registration registrations

type registrations struct{}

// Instance resolves key to value every time.
func (registrations) Instance(key Key, value any) *StrategyResolver {
	return newResolver(key, StrategyInstance, value)
}

// Singleton constructs cls once, through the container that owns the
// registration.
func (registrations) Singleton(key Key, cls *Class) *StrategyResolver {
	return newResolver(key, StrategySingleton, cls)
}

// Transient constructs cls on every resolution, through the requesting container.
func (registrations) Transient(key Key, cls *Class) *StrategyResolver {
	return newResolver(key, StrategyTransient, cls)
}

// Callback calls fn on every resolution.
func (registrations) Callback(key Key, fn ResolveCallback) *StrategyResolver {
	return newResolver(key, StrategyCallback, fn)
}

// Alias makes aliasKey resolve whatever originalKey resolves to.
func (registrations) Alias(originalKey, aliasKey Key) *StrategyResolver {
	return newResolver(aliasKey, StrategyAlias, originalKey)
}

// Interpret resolves interpreterKey into a Registry and registers it. When
// the key is backed by a factory, rest is passed as extra constructor
// arguments.
func (registrations) Interpret(interpreterKey Key, rest ...any) Registry {
	return RegistryFunc(func(c *Container) error {
		r, err := c.GetResolver(interpreterKey, true)
		if err != nil || r == nil {
			return err
		}

		var registry any
		if fr, ok := r.(FactoryResolver); ok {
			if f := fr.GetFactory(c); f != nil {
				if registry, err = f.Construct(c, rest...); err != nil {
					return err
				}
			}
		} else if registry, err = r.Resolve(c, c); err != nil {
			return err
		}

		if reg, ok := registry.(Registry); ok {
			return reg.Register(c)
		}
		return nil
	})
}
