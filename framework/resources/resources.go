// Package resources defines the named, container-resolved decorators an
// expression can apply: binding behaviors ("& name") and value converters
// ("| name"), and ships the built-in mode and signal behaviors.
//
// Resources are registered under derived string keys, so they also show up
// in the container's resource lookup:
//
//	c.Register(resources.Converter("upper", upperClass))
//	conv, err := resources.GetConverter(c, "upper")
package resources

import (
	"fmt"

	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/observation"
)

const (
	BehaviorPrefix  = "binding-behavior:"
	ConverterPrefix = "value-converter:"
)

// BehaviorKey is the container key of the binding behavior called name.
func BehaviorKey(name string) string { return BehaviorPrefix + name }

// ConverterKey is the container key of the value converter called name.
func ConverterKey(name string) string { return ConverterPrefix + name }

// BindingBehavior hooks into a binding's bind/unbind. Args are the
// evaluated behavior arguments.
type BindingBehavior interface {
	Bind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding, args ...any) error
	Unbind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding) error
}

// BehaviorHost is a binding that remembers which behaviors are applied to
// it, keyed by BehaviorKey. A nil behavior clears the slot.
type BehaviorHost interface {
	AppliedBehavior(key string) BindingBehavior
	SetAppliedBehavior(key string, b BindingBehavior)
}

// ModeBinding is a binding whose mode a behavior can change.
type ModeBinding interface {
	Mode() observation.BindingMode
	SetMode(mode observation.BindingMode)
}

// ── Value converters ──────────────────────────────────────────────────────────

// ToViewConverter converts source values on their way to the view.
type ToViewConverter interface {
	ToView(value any, args ...any) (any, error)
}

// FromViewConverter converts view values on their way back to the source.
type FromViewConverter interface {
	FromView(value any, args ...any) (any, error)
}

// SignalSource lists the signals that force re-evaluation of expressions
// using the converter.
type SignalSource interface {
	Signals() []string
}

// ConverterFuncs builds a converter from plain functions. Nil functions are
// pass-through.
type ConverterFuncs struct {
	To     func(value any, args ...any) (any, error)
	From   func(value any, args ...any) (any, error)
	Signal []string
}

func (c *ConverterFuncs) ToView(value any, args ...any) (any, error) {
	if c.To == nil {
		return value, nil
	}
	return c.To(value, args...)
}

func (c *ConverterFuncs) FromView(value any, args ...any) (any, error) {
	if c.From == nil {
		return value, nil
	}
	return c.From(value, args...)
}

func (c *ConverterFuncs) Signals() []string { return c.Signal }

// ── Registration ──────────────────────────────────────────────────────────────

// Behavior registers cls as the singleton binding behavior called name.
func Behavior(name string, cls *container.Class) container.Registry {
	return container.Registration.Singleton(BehaviorKey(name), cls)
}

// BehaviorInstance registers a ready-made behavior.
func BehaviorInstance(name string, b BindingBehavior) container.Registry {
	return container.Registration.Instance(BehaviorKey(name), b)
}

// Converter registers cls as the singleton value converter called name.
func Converter(name string, cls *container.Class) container.Registry {
	return container.Registration.Singleton(ConverterKey(name), cls)
}

// ConverterInstance registers a ready-made converter.
func ConverterInstance(name string, converter any) container.Registry {
	return container.Registration.Instance(ConverterKey(name), converter)
}

// GetBehavior resolves the behavior called name. A missing registration or a
// value that is not a BindingBehavior yields (nil, nil).
func GetBehavior(locator observation.ServiceLocator, name string) (BindingBehavior, error) {
	v, err := lookup(locator, BehaviorKey(name))
	if err != nil || v == nil {
		return nil, err
	}
	b, ok := v.(BindingBehavior)
	if !ok {
		return nil, fmt.Errorf("resources: %s resolved to %T, which is not a binding behavior", BehaviorKey(name), v)
	}
	return b, nil
}

// GetConverter resolves the converter called name, or (nil, nil).
func GetConverter(locator observation.ServiceLocator, name string) (any, error) {
	return lookup(locator, ConverterKey(name))
}

// lookup treats "no registration" as a missing resource rather than an
// error, since string keys cannot be JIT-registered.
func lookup(locator observation.ServiceLocator, key string) (any, error) {
	if c, ok := locator.(*container.Container); ok {
		if !c.Has(key, true) {
			return nil, nil
		}
		return c.Get(key)
	}
	v, err := locator.Get(key)
	if err != nil {
		return nil, nil
	}
	return v, nil
}
