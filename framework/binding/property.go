package binding

import (
	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/logging"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/resources"
)

// PropertyBinding keeps target[targetProperty] in sync with an expression.
//
//	OneTime   evaluates once on bind.
//	ToView    re-evaluates when anything the expression read changes.
//	FromView  assigns the target value back through the expression.
//	TwoWay    both.
//
// Default behaves as ToView.
type PropertyBinding struct {
	Connectable

	sourceExpression ast.Expression
	target           any
	targetProperty   string
	mode             observation.BindingMode
	locator          observation.ServiceLocator
	logger           *logging.Logger

	targetObserver   observation.Accessor
	targetSubscriber *targetSubscriber
	subscribed       bool
	behaviors        map[string]resources.BindingBehavior

	scope *observation.Scope
	bound bool
}

func NewPropertyBinding(
	sourceExpression ast.Expression,
	target any,
	targetProperty string,
	mode observation.BindingMode,
	observerLocator *observation.ObserverLocator,
	locator observation.ServiceLocator,
) *PropertyBinding {
	b := &PropertyBinding{
		sourceExpression: sourceExpression,
		target:           target,
		targetProperty:   targetProperty,
		mode:             mode,
		locator:          locator,
		logger:           logging.Default(),
		behaviors:        make(map[string]resources.BindingBehavior),
	}
	b.targetSubscriber = &targetSubscriber{binding: b}
	b.initConnectable(b, observerLocator)
	return b
}

// targetSubscriber receives target changes, keeping them apart from the
// source changes the binding itself subscribes to.
type targetSubscriber struct{ binding *PropertyBinding }

func (s *targetSubscriber) HandleChange(newValue, _ any, flags observation.LifecycleFlags) {
	s.binding.updateSource(newValue, flags|observation.UpdateSourceExpression)
}

// SetLogger replaces the logger evaluation errors are reported to.
func (b *PropertyBinding) SetLogger(l *logging.Logger) { b.logger = l }

func (b *PropertyBinding) Locator() observation.ServiceLocator { return b.locator }
func (b *PropertyBinding) SourceExpression() ast.Expression    { return b.sourceExpression }
func (b *PropertyBinding) Target() any                         { return b.target }
func (b *PropertyBinding) TargetProperty() string              { return b.targetProperty }
func (b *PropertyBinding) IsBound() bool                       { return b.bound }
func (b *PropertyBinding) Scope() *observation.Scope           { return b.scope }

func (b *PropertyBinding) Mode() observation.BindingMode     { return b.mode }
func (b *PropertyBinding) SetMode(m observation.BindingMode) { b.mode = m }

// TargetObserver returns the accessor the binding writes the target through,
// or nil before the first bind.
func (b *PropertyBinding) TargetObserver() observation.Accessor { return b.targetObserver }

func (b *PropertyBinding) SetTargetObserver(a observation.Accessor) { b.targetObserver = a }

func (b *PropertyBinding) AppliedBehavior(key string) resources.BindingBehavior {
	return b.behaviors[key]
}

func (b *PropertyBinding) SetAppliedBehavior(key string, behavior resources.BindingBehavior) {
	if behavior == nil {
		delete(b.behaviors, key)
		return
	}
	b.behaviors[key] = behavior
}

// effectiveMode resolves Default.
func (b *PropertyBinding) effectiveMode() observation.BindingMode {
	if b.mode == observation.Default || b.mode == 0 {
		return observation.ToView
	}
	return b.mode
}

// Bind attaches the binding to scope. Binding again to the same scope is a
// no-op; binding to another scope unbinds first.
func (b *PropertyBinding) Bind(flags observation.LifecycleFlags, scope *observation.Scope) error {
	if b.bound {
		if b.scope == scope {
			return nil
		}
		if err := b.Unbind(flags | observation.FromBind); err != nil {
			return err
		}
	}
	flags |= observation.FromBind
	b.scope = scope

	if binder, ok := b.sourceExpression.(ast.Binder); ok {
		if err := binder.Bind(flags, scope, b); err != nil {
			b.scope = nil
			return err
		}
	}

	mode := b.effectiveMode()
	if b.targetObserver == nil {
		if mode&observation.FromView != 0 {
			b.targetObserver = b.observerLocator.GetObserver(flags, b.target, b.targetProperty)
		} else {
			b.targetObserver = b.observerLocator.GetAccessor(flags, b.target, b.targetProperty)
		}
	}
	b.bound = true

	if mode&(observation.OneTime|observation.ToView) != 0 {
		value, err := b.sourceExpression.Evaluate(flags, scope, b.locator)
		if err != nil {
			return err
		}
		b.targetObserver.SetValue(value, flags)
	}
	if mode&observation.ToView != 0 {
		b.nextVersion()
		if err := b.sourceExpression.Connect(flags, scope, b); err != nil {
			return err
		}
	}
	if mode&observation.FromView != 0 {
		if o, ok := b.targetObserver.(observation.Observer); ok {
			o.Subscribe(b.targetSubscriber)
			b.subscribed = true
		}
	}
	return nil
}

// Unbind detaches the binding. Unbinding an unbound binding is a no-op.
func (b *PropertyBinding) Unbind(flags observation.LifecycleFlags) error {
	if !b.bound {
		return nil
	}
	flags |= observation.FromUnbind

	var err error
	if binder, ok := b.sourceExpression.(ast.Binder); ok {
		err = binder.Unbind(flags, b.scope, b)
	}
	if b.subscribed {
		if o, ok := b.targetObserver.(observation.Observer); ok {
			o.Unsubscribe(b.targetSubscriber)
		}
		b.subscribed = false
	}
	b.UnobserveAll()
	b.scope = nil
	b.bound = false
	return err
}

// HandleChange reacts to a change of something the source expression
// read, or, with only UpdateSourceExpression set, to a new target value.
func (b *PropertyBinding) HandleChange(newValue, _ any, flags observation.LifecycleFlags) {
	if flags&observation.UpdateSourceExpression != 0 && flags&observation.UpdateTargetInstance == 0 {
		b.updateSource(newValue, flags)
		return
	}
	b.updateTarget(flags)
}

func (b *PropertyBinding) updateTarget(flags observation.LifecycleFlags) {
	if !b.bound || b.effectiveMode()&observation.ToView == 0 {
		return
	}
	value, err := b.sourceExpression.Evaluate(flags, b.scope, b.locator)
	if err != nil {
		b.logger.Warn("binding: evaluate failed", "expression", ast.Unparse(b.sourceExpression), "error", err)
		return
	}
	if !observation.Same(value, b.targetObserver.GetValue()) {
		b.targetObserver.SetValue(value, flags)
	}
	b.nextVersion()
	if err := b.sourceExpression.Connect(flags, b.scope, b); err != nil {
		b.logger.Warn("binding: connect failed", "expression", ast.Unparse(b.sourceExpression), "error", err)
	}
	b.UnobserveStale()
}

func (b *PropertyBinding) updateSource(value any, flags observation.LifecycleFlags) {
	if !b.bound || b.effectiveMode()&observation.FromView == 0 {
		return
	}
	if current, err := b.sourceExpression.Evaluate(flags, b.scope, b.locator); err == nil && observation.Same(current, value) {
		return
	}
	if _, err := b.sourceExpression.Assign(flags, b.scope, b.locator, value); err != nil {
		b.logger.Warn("binding: assign failed", "expression", ast.Unparse(b.sourceExpression), "error", err)
	}
}
