package observation

// ServiceLocator resolves keys. *container.Container satisfies it.
type ServiceLocator interface {
	Get(key any) (any, error)
}

// Binding is the part of a binding the expression engine needs.
type Binding interface {
	Locator() ServiceLocator
}

// ConnectableBinding records the properties an expression read while it was
// connected, and is notified when any of them changes.
type ConnectableBinding interface {
	Binding
	Subscriber
	ObserveProperty(flags LifecycleFlags, obj any, name string)
}
