package binding

import (
	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/logging"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/resources"
	"github.com/km-arc/go-binding/framework/runtimehtml"
)

// Listener evaluates an expression each time its target dispatches an
// event. The event is visible to the expression as "$event". Unless the
// expression returns true, the event's default action is prevented when
// preventDefault is set.
type Listener struct {
	targetEvent      string
	sourceExpression ast.Expression
	target           dom.Element
	preventDefault   bool
	locator          observation.ServiceLocator
	logger           *logging.Logger

	callSource runtimehtml.CallSource
	behaviors  map[string]resources.BindingBehavior

	scope *observation.Scope
	bound bool
}

func NewListener(
	targetEvent string,
	sourceExpression ast.Expression,
	target dom.Element,
	preventDefault bool,
	locator observation.ServiceLocator,
) *Listener {
	l := &Listener{
		targetEvent:      targetEvent,
		sourceExpression: sourceExpression,
		target:           target,
		preventDefault:   preventDefault,
		locator:          locator,
		logger:           logging.Default(),
		behaviors:        make(map[string]resources.BindingBehavior),
	}
	l.callSource = l.evaluate
	return l
}

// SetLogger replaces the logger handler errors are reported to.
func (l *Listener) SetLogger(logger *logging.Logger) { l.logger = logger }

func (l *Listener) Locator() observation.ServiceLocator { return l.locator }
func (l *Listener) SourceExpression() ast.Expression    { return l.sourceExpression }
func (l *Listener) Target() any                         { return l.target }
func (l *Listener) TargetEvent() string                 { return l.targetEvent }
func (l *Listener) IsBound() bool                       { return l.bound }

// CallSource returns the function events are handed to. Behaviors such as
// self wrap it.
func (l *Listener) CallSource() runtimehtml.CallSource { return l.callSource }

func (l *Listener) SetCallSource(fn runtimehtml.CallSource) { l.callSource = fn }

func (l *Listener) AppliedBehavior(key string) resources.BindingBehavior {
	return l.behaviors[key]
}

func (l *Listener) SetAppliedBehavior(key string, behavior resources.BindingBehavior) {
	if behavior == nil {
		delete(l.behaviors, key)
		return
	}
	l.behaviors[key] = behavior
}

// evaluate is the unwrapped call source.
func (l *Listener) evaluate(ev *dom.Event) (any, error) {
	oc := l.scope.OverrideContext
	oc.SetRawProperty("$event", ev)
	defer oc.DeleteProperty("$event")
	return l.sourceExpression.Evaluate(observation.MustEvaluate, l.scope, l.locator)
}

// HandleEvent implements dom.EventHandler.
func (l *Listener) HandleEvent(ev *dom.Event) {
	if !l.bound {
		return
	}
	result, err := l.callSource(ev)
	if err != nil {
		l.logger.Warn("listener: handler failed",
			"event", l.targetEvent,
			"expression", ast.Unparse(l.sourceExpression),
			"error", err,
		)
	}
	if l.preventDefault && result != true {
		ev.PreventDefault()
	}
}

// Bind starts listening. Binding again to the same scope is a no-op.
func (l *Listener) Bind(flags observation.LifecycleFlags, scope *observation.Scope) error {
	if l.bound {
		if l.scope == scope {
			return nil
		}
		if err := l.Unbind(flags | observation.FromBind); err != nil {
			return err
		}
	}
	flags |= observation.FromBind
	l.scope = scope

	if binder, ok := l.sourceExpression.(ast.Binder); ok {
		if err := binder.Bind(flags, scope, l); err != nil {
			l.scope = nil
			return err
		}
	}
	l.target.AddEventListener(l.targetEvent, l)
	l.bound = true
	return nil
}

// Unbind stops listening. Unbinding an unbound listener is a no-op.
func (l *Listener) Unbind(flags observation.LifecycleFlags) error {
	if !l.bound {
		return nil
	}
	flags |= observation.FromUnbind

	var err error
	if binder, ok := l.sourceExpression.(ast.Binder); ok {
		err = binder.Unbind(flags, l.scope, l)
	}
	l.target.RemoveEventListener(l.targetEvent, l)
	l.scope = nil
	l.bound = false
	return err
}
