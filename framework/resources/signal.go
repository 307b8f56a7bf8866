package resources

import (
	"errors"
	"fmt"
	"sync"

	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/observation"
)

// SignalBehavior subscribes a binding to the named signals:
//
//	value.bind="price | currency & signal:'locale-changed'"
type SignalBehavior struct {
	signaler *observation.Signaler

	mu      sync.Mutex
	signals map[observation.Subscriber][]string
}

// SignalBehaviorClass resolves the behavior with the shared signaler.
var SignalBehaviorClass = &container.Class{
	Name:   "SignalBehavior",
	Inject: []container.Key{observation.ISignaler},
	New:    NewSignalBehavior,
}

func NewSignalBehavior(signaler *observation.Signaler) *SignalBehavior {
	return &SignalBehavior{signaler: signaler, signals: make(map[observation.Subscriber][]string)}
}

func (b *SignalBehavior) Bind(_ observation.LifecycleFlags, _ *observation.Scope, binding observation.Binding, args ...any) error {
	sub, ok := binding.(observation.Subscriber)
	if !ok {
		return fmt.Errorf("resources: only bindings that handle changes can be signaled, got %T", binding)
	}
	if len(args) == 0 {
		return errors.New("resources: signal name is required")
	}
	names := make([]string, 0, len(args))
	for _, a := range args {
		names = append(names, fmt.Sprint(a))
	}
	for _, n := range names {
		b.signaler.AddSignalListener(n, sub)
	}
	b.mu.Lock()
	b.signals[sub] = names
	b.mu.Unlock()
	return nil
}

func (b *SignalBehavior) Unbind(_ observation.LifecycleFlags, _ *observation.Scope, binding observation.Binding) error {
	sub, ok := binding.(observation.Subscriber)
	if !ok {
		return nil
	}
	b.mu.Lock()
	names := b.signals[sub]
	delete(b.signals, sub)
	b.mu.Unlock()
	for _, n := range names {
		b.signaler.RemoveSignalListener(n, sub)
	}
	return nil
}

// Builtins registers oneTime, toView, fromView, twoWay and signal.
var Builtins = container.RegistryFunc(func(c *container.Container) error {
	return c.Register(
		BehaviorInstance("oneTime", OneTimeBehavior),
		BehaviorInstance("toView", ToViewBehavior),
		BehaviorInstance("fromView", FromViewBehavior),
		BehaviorInstance("twoWay", TwoWayBehavior),
		Behavior("signal", SignalBehaviorClass),
	)
})
