package runtimehtml

import (
	"fmt"
	"sync"

	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/reporter"
)

// TargetBinding is a binding that writes to a DOM target through a
// replaceable target observer.
type TargetBinding interface {
	observation.Binding
	Target() any
	TargetProperty() string
	SetTargetObserver(a observation.Accessor)
}

// CallSource handles a DOM event for a listener binding.
type CallSource = func(ev *dom.Event) (any, error)

// EventBinding is a listener binding whose event handling can be wrapped.
type EventBinding interface {
	observation.Binding
	Target() any
	TargetEvent() string
	CallSource() CallSource
	SetCallSource(fn CallSource)
}

// ── attr ──────────────────────────────────────────────────────────────────────

// AttrBehavior ("& attr") makes a property binding write its target as an
// attribute rather than an element property.
var AttrBehavior = &attrBehavior{}

type attrBehavior struct{}

func (*attrBehavior) Bind(_ observation.LifecycleFlags, _ *observation.Scope, binding observation.Binding, _ ...any) error {
	tb, ok := binding.(TargetBinding)
	if !ok {
		return fmt.Errorf("runtimehtml: attr behavior needs a property binding, got %T", binding)
	}
	el, ok := tb.Target().(dom.Element)
	if !ok {
		return fmt.Errorf("runtimehtml: attr behavior needs an element target, got %T", tb.Target())
	}
	var lifecycle observation.Lifecycle
	if locator := binding.Locator(); locator != nil {
		if v, err := locator.Get(observation.ILifecycle); err == nil {
			lifecycle, _ = v.(observation.Lifecycle)
		}
	}
	tb.SetTargetObserver(NewDataAttributeAccessor(lifecycle, el, tb.TargetProperty()))
	return nil
}

func (*attrBehavior) Unbind(observation.LifecycleFlags, *observation.Scope, observation.Binding) error {
	return nil
}

// ── self ──────────────────────────────────────────────────────────────────────

// SelfBehavior ("& self") makes a listener ignore events that bubbled up
// from descendants: only events whose original target is the listener's
// own target are handled.
type SelfBehavior struct {
	mu        sync.Mutex
	originals map[EventBinding]CallSource
}

var SelfBehaviorClass = &container.Class{Name: "SelfBehavior", New: NewSelfBehavior}

func NewSelfBehavior() *SelfBehavior {
	return &SelfBehavior{originals: make(map[EventBinding]CallSource)}
}

func (b *SelfBehavior) Bind(_ observation.LifecycleFlags, _ *observation.Scope, binding observation.Binding, _ ...any) error {
	eb, ok := binding.(EventBinding)
	if !ok || eb.CallSource() == nil || eb.TargetEvent() == "" {
		return reporter.New(reporter.CodeSelfBehaviorMisuse, "runtimehtml.SelfBehavior.Bind", binding)
	}
	original := eb.CallSource()
	target := eb.Target()

	b.mu.Lock()
	b.originals[eb] = original
	b.mu.Unlock()

	eb.SetCallSource(func(ev *dom.Event) (any, error) {
		if any(ev.OriginalTarget()) != target {
			return nil, nil
		}
		return original(ev)
	})
	return nil
}

func (b *SelfBehavior) Unbind(_ observation.LifecycleFlags, _ *observation.Scope, binding observation.Binding) error {
	eb, ok := binding.(EventBinding)
	if !ok {
		return nil
	}
	b.mu.Lock()
	original, applied := b.originals[eb]
	delete(b.originals, eb)
	b.mu.Unlock()
	if applied {
		eb.SetCallSource(original)
	}
	return nil
}
