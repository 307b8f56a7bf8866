// Package binding holds the bindings that drive the expression engine: a
// PropertyBinding keeps a target property in sync with a source expression,
// a Listener evaluates an expression when a DOM event fires. Both record
// what they observe through Connectable and can be registered with a
// Tracker for inspection.
package binding

import (
	"sync"

	"github.com/km-arc/go-binding/framework/observation"
)

// Dependency is one property a binding currently observes.
type Dependency struct {
	Object   any
	Property string
}

type slot struct {
	dep     Dependency
	version int
}

// Connectable records the observers an expression read during connect and
// keeps the binding subscribed to exactly those. Each connect pass starts a
// new version; UnobserveStale then drops the observers the pass did not
// touch.
type Connectable struct {
	subscriber      observation.Subscriber
	observerLocator *observation.ObserverLocator

	mu      sync.Mutex
	version int
	slots   map[observation.Observer]*slot
}

func (c *Connectable) initConnectable(subscriber observation.Subscriber, observerLocator *observation.ObserverLocator) {
	c.subscriber = subscriber
	c.observerLocator = observerLocator
	c.slots = make(map[observation.Observer]*slot)
}

// ObserveProperty subscribes to obj[name] and stamps it with the current
// version. Properties without an observer are ignored.
func (c *Connectable) ObserveProperty(flags observation.LifecycleFlags, obj any, name string) {
	if c.observerLocator == nil {
		return
	}
	observer, ok := c.observerLocator.GetObserver(flags, obj, name).(observation.Observer)
	if !ok {
		return
	}

	c.mu.Lock()
	s, exists := c.slots[observer]
	if exists {
		s.version = c.version
		c.mu.Unlock()
		return
	}
	c.slots[observer] = &slot{dep: Dependency{Object: obj, Property: name}, version: c.version}
	c.mu.Unlock()

	observer.Subscribe(c.subscriber)
}

// nextVersion starts a connect pass.
func (c *Connectable) nextVersion() {
	c.mu.Lock()
	c.version++
	c.mu.Unlock()
}

// UnobserveStale unsubscribes from every observer not touched since the
// last connect pass started.
func (c *Connectable) UnobserveStale() {
	c.mu.Lock()
	var stale []observation.Observer
	for o, s := range c.slots {
		if s.version != c.version {
			stale = append(stale, o)
			delete(c.slots, o)
		}
	}
	c.mu.Unlock()

	for _, o := range stale {
		o.Unsubscribe(c.subscriber)
	}
}

// UnobserveAll unsubscribes from everything.
func (c *Connectable) UnobserveAll() {
	c.mu.Lock()
	all := make([]observation.Observer, 0, len(c.slots))
	for o := range c.slots {
		all = append(all, o)
	}
	c.slots = make(map[observation.Observer]*slot)
	c.mu.Unlock()

	for _, o := range all {
		o.Unsubscribe(c.subscriber)
	}
}

// Dependencies returns a snapshot of the observed properties.
func (c *Connectable) Dependencies() []Dependency {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Dependency, 0, len(c.slots))
	for _, s := range c.slots {
		out = append(out, s.dep)
	}
	return out
}
