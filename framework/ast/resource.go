package ast

import (
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/reporter"
	"github.com/km-arc/go-binding/framework/resources"
)

// ── BindingBehavior ───────────────────────────────────────────────────────────

// BindingBehavior is "Expression & Name:Args". It is transparent to
// evaluation and hooks the named behavior into bind and unbind.
type BindingBehavior struct {
	Expression Expression
	Name       string
	Args       []Expression
}

func NewBindingBehavior(expression Expression, name string, args []Expression) *BindingBehavior {
	return &BindingBehavior{Expression: expression, Name: name, Args: args}
}

func (e *BindingBehavior) Kind() Kind { return KindBindingBehavior }

// BehaviorKey is the key the applied behavior is stored under on a
// BehaviorHost binding.
func (e *BindingBehavior) BehaviorKey() string { return resources.BehaviorKey(e.Name) }

func (e *BindingBehavior) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	return e.Expression.Evaluate(flags, scope, locator)
}

func (e *BindingBehavior) Assign(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, value any) (any, error) {
	return e.Expression.Assign(flags, scope, locator, value)
}

func (e *BindingBehavior) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	return e.Expression.Connect(flags, scope, binding)
}

// Bind applies the behavior to binding. Applying the same behavior twice
// to one binding is reported and otherwise ignored.
func (e *BindingBehavior) Bind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding) error {
	const op = "ast.BindingBehavior.Bind"
	if scope == nil {
		return reporter.New(reporter.CodeNilScope, op, e.Name)
	}
	if binding == nil {
		return reporter.New(reporter.CodeNoBinding, op, e.Name)
	}
	locator := binding.Locator()
	if locator == nil {
		return reporter.New(reporter.CodeNoLocator, op, e.Name)
	}
	if inner, ok := e.Expression.(Binder); ok {
		if err := inner.Bind(flags, scope, binding); err != nil {
			return err
		}
	}

	behavior, err := resources.GetBehavior(locator, e.Name)
	if err != nil {
		return err
	}
	if behavior == nil {
		return reporter.New(reporter.CodeNoBehaviorFound, op, e.Name)
	}

	if host, ok := binding.(resources.BehaviorHost); ok {
		key := e.BehaviorKey()
		if host.AppliedBehavior(key) != nil {
			reporter.Write(reporter.CodeBehaviorAlreadyApplied, op, e.Name)
			return nil
		}
		host.SetAppliedBehavior(key, behavior)
	}

	args, err := evalList(flags, scope, locator, e.Args)
	if err != nil {
		return err
	}
	return behavior.Bind(flags, scope, binding, args...)
}

// Unbind removes the behavior, then unbinds the wrapped expression. Unbind
// without a matching Bind is reported and otherwise ignored.
func (e *BindingBehavior) Unbind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding) error {
	const op = "ast.BindingBehavior.Unbind"
	if binding == nil {
		return reporter.New(reporter.CodeNoBinding, op, e.Name)
	}

	if host, ok := binding.(resources.BehaviorHost); ok {
		key := e.BehaviorKey()
		if behavior := host.AppliedBehavior(key); behavior != nil {
			if err := behavior.Unbind(flags, scope, binding); err != nil {
				return err
			}
			host.SetAppliedBehavior(key, nil)
		} else {
			reporter.Write(reporter.CodeUnbindWithoutBind, op, e.Name)
		}
	} else if locator := binding.Locator(); locator != nil {
		behavior, err := resources.GetBehavior(locator, e.Name)
		if err != nil {
			return err
		}
		if behavior != nil {
			if err := behavior.Unbind(flags, scope, binding); err != nil {
				return err
			}
		}
	}

	if inner, ok := e.Expression.(Binder); ok {
		return inner.Unbind(flags, scope, binding)
	}
	return nil
}

func (e *BindingBehavior) Accept(v Visitor) any { return v.VisitBindingBehavior(e) }

// ── ValueConverter ────────────────────────────────────────────────────────────

// ValueConverter is "Expression | Name:Args". Values pass through the
// converter's ToView on evaluate and FromView on assign.
type ValueConverter struct {
	Expression Expression
	Name       string
	Args       []Expression
}

func NewValueConverter(expression Expression, name string, args []Expression) *ValueConverter {
	return &ValueConverter{Expression: expression, Name: name, Args: args}
}

func (e *ValueConverter) Kind() Kind { return KindValueConverter }

// ConverterKey is the container key of the converter.
func (e *ValueConverter) ConverterKey() string { return resources.ConverterKey(e.Name) }

func (e *ValueConverter) converter(op string, locator observation.ServiceLocator) (any, error) {
	if locator == nil {
		return nil, reporter.New(reporter.CodeNoLocator, op, e.Name)
	}
	conv, err := resources.GetConverter(locator, e.Name)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, reporter.New(reporter.CodeNoConverterFound, op, e.Name)
	}
	return conv, nil
}

func (e *ValueConverter) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	conv, err := e.converter("ast.ValueConverter.Evaluate", locator)
	if err != nil {
		return nil, err
	}
	value, err := e.Expression.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	to, ok := conv.(resources.ToViewConverter)
	if !ok {
		return value, nil
	}
	args, err := evalList(flags, scope, locator, e.Args)
	if err != nil {
		return nil, err
	}
	return to.ToView(value, args...)
}

func (e *ValueConverter) Assign(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, value any) (any, error) {
	conv, err := e.converter("ast.ValueConverter.Assign", locator)
	if err != nil {
		return nil, err
	}
	if from, ok := conv.(resources.FromViewConverter); ok {
		args, err := evalList(flags, scope, locator, e.Args)
		if err != nil {
			return nil, err
		}
		if value, err = from.FromView(value, args...); err != nil {
			return nil, err
		}
	}
	return e.Expression.Assign(flags, scope, locator, value)
}

// Connect connects the wrapped expression and the arguments, and subscribes
// binding to the converter's signals.
func (e *ValueConverter) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	const op = "ast.ValueConverter.Connect"
	if scope == nil {
		return reporter.New(reporter.CodeNilScope, op, e.Name)
	}
	if binding == nil {
		return reporter.New(reporter.CodeNoBinding, op, e.Name)
	}
	conv, err := e.converter(op, binding.Locator())
	if err != nil {
		return err
	}
	if err := e.Expression.Connect(flags, scope, binding); err != nil {
		return err
	}
	if err := connectList(flags, scope, binding, e.Args); err != nil {
		return err
	}
	signals := signalsOf(conv)
	if len(signals) == 0 {
		return nil
	}
	signaler, err := signalerOf(binding.Locator())
	if err != nil {
		return err
	}
	for _, s := range signals {
		signaler.AddSignalListener(s, binding)
	}
	return nil
}

func (e *ValueConverter) Bind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding) error {
	if inner, ok := e.Expression.(Binder); ok {
		return inner.Bind(flags, scope, binding)
	}
	return nil
}

// Unbind drops the signal subscriptions Connect made.
func (e *ValueConverter) Unbind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding) error {
	const op = "ast.ValueConverter.Unbind"
	if binding == nil {
		return reporter.New(reporter.CodeNoBinding, op, e.Name)
	}
	conv, err := e.converter(op, binding.Locator())
	if err != nil {
		return err
	}
	if sub, ok := binding.(observation.Subscriber); ok {
		if signals := signalsOf(conv); len(signals) > 0 {
			signaler, err := signalerOf(binding.Locator())
			if err != nil {
				return err
			}
			for _, s := range signals {
				signaler.RemoveSignalListener(s, sub)
			}
		}
	}
	if inner, ok := e.Expression.(Binder); ok {
		return inner.Unbind(flags, scope, binding)
	}
	return nil
}

func (e *ValueConverter) Accept(v Visitor) any { return v.VisitValueConverter(e) }

func signalsOf(conv any) []string {
	if s, ok := conv.(resources.SignalSource); ok {
		return s.Signals()
	}
	return nil
}

func signalerOf(locator observation.ServiceLocator) (*observation.Signaler, error) {
	v, err := locator.Get(observation.ISignaler)
	if err != nil {
		return nil, err
	}
	s, ok := v.(*observation.Signaler)
	if !ok {
		return nil, reporter.New(reporter.CodeNoLocator, "ast.signalerOf", "ISignaler")
	}
	return s, nil
}
