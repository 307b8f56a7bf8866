package resources

import (
	"fmt"
	"sync"

	"github.com/km-arc/go-binding/framework/observation"
)

// ModeBehavior forces a binding mode while applied and restores the
// binding's own mode on unbind. One instance serves every binding.
type ModeBehavior struct {
	mode observation.BindingMode

	mu       sync.Mutex
	original map[ModeBinding]observation.BindingMode
}

func NewModeBehavior(mode observation.BindingMode) *ModeBehavior {
	return &ModeBehavior{mode: mode, original: make(map[ModeBinding]observation.BindingMode)}
}

func (b *ModeBehavior) Mode() observation.BindingMode { return b.mode }

func (b *ModeBehavior) Bind(_ observation.LifecycleFlags, _ *observation.Scope, binding observation.Binding, _ ...any) error {
	mb, ok := binding.(ModeBinding)
	if !ok {
		return fmt.Errorf("resources: %s behavior needs a binding with a mode, got %T", b.mode, binding)
	}
	b.mu.Lock()
	b.original[mb] = mb.Mode()
	b.mu.Unlock()
	mb.SetMode(b.mode)
	return nil
}

func (b *ModeBehavior) Unbind(_ observation.LifecycleFlags, _ *observation.Scope, binding observation.Binding) error {
	mb, ok := binding.(ModeBinding)
	if !ok {
		return nil
	}
	b.mu.Lock()
	original, applied := b.original[mb]
	delete(b.original, mb)
	b.mu.Unlock()
	if applied {
		mb.SetMode(original)
	}
	return nil
}

// Built-in mode behaviors, registered by Builtins.
var (
	OneTimeBehavior  = NewModeBehavior(observation.OneTime)
	ToViewBehavior   = NewModeBehavior(observation.ToView)
	FromViewBehavior = NewModeBehavior(observation.FromView)
	TwoWayBehavior   = NewModeBehavior(observation.TwoWay)
)
