// Package runtimehtml connects the observation layer to DOM nodes. Its
// target locators decide, per element property, whether a binding talks to
// a live observer (which also listens for the DOM events that signal user
// edits) or to a write-only accessor.
//
// Register it with the document the bindings render into:
//
//	c := container.New()
//	c.Register(runtimehtml.Configure(dom.NewDocument()))
//	locator := container.MustResolve[*observation.ObserverLocator](c, observation.IObserverLocator)
package runtimehtml

import (
	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/resources"
)

// Injection keys for the host capabilities.
var (
	IDOM = container.CreateInterface("IDOM").NoDefault()

	ISVGAnalyzer = container.CreateInterface("ISVGAnalyzer").WithDefault(
		func(b *container.ResolverBuilder) (container.Resolver, error) {
			return b.Singleton(&container.Class{Name: "NoSVGAnalyzer", New: func() *NoSVGAnalyzer { return &NoSVGAnalyzer{} }})
		})
)

var TargetObserverLocatorClass = &container.Class{
	Name:   "TargetObserverLocator",
	Inject: []container.Key{IDOM, ISVGAnalyzer},
	New:    NewTargetObserverLocator,
}

var TargetAccessorLocatorClass = &container.Class{
	Name:   "TargetAccessorLocator",
	Inject: []container.Key{IDOM, ISVGAnalyzer},
	New:    NewTargetAccessorLocator,
}

// Configure registers d as the DOM, both target locators and the attr and
// self binding behaviors.
func Configure(d dom.DOM) container.Registry {
	return container.RegistryFunc(func(c *container.Container) error {
		return c.Register(
			container.Registration.Instance(IDOM, d),
			container.Registration.Singleton(observation.ITargetObserverLocator, TargetObserverLocatorClass),
			container.Registration.Singleton(observation.ITargetAccessorLocator, TargetAccessorLocatorClass),
			resources.BehaviorInstance("attr", AttrBehavior),
			resources.Behavior("self", SelfBehaviorClass),
		)
	})
}
