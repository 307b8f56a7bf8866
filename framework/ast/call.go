package ast

import (
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/reporter"
)

// getFunction looks name up on obj. A missing member is nil unless the
// flags demand evaluation; a member that is present but not callable is
// always an error.
func getFunction(flags observation.LifecycleFlags, obj any, name string) (observation.Func, error) {
	fn, found := observation.GetFunction(obj, name)
	if fn != nil {
		return fn, nil
	}
	if !found && flags&observation.MustEvaluate == 0 {
		return nil, nil
	}
	return nil, reporter.New(reporter.CodeNotAFunction, "ast.getFunction", name)
}

// ── CallScope ─────────────────────────────────────────────────────────────────

// CallScope calls a function found on the scope chain: "name(args)".
type CallScope struct {
	readOnly
	Name     string
	Args     []Expression
	Ancestor int
}

func NewCallScope(name string, args []Expression, ancestor int) *CallScope {
	return &CallScope{Name: name, Args: args, Ancestor: ancestor}
}

func (e *CallScope) Kind() Kind { return KindCallScope }

func (e *CallScope) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	args, err := evalList(flags, scope, locator, e.Args)
	if err != nil {
		return nil, err
	}
	ctx, err := observation.ResolveContext(scope, e.Name, e.Ancestor, flags)
	if err != nil {
		return nil, err
	}
	fn, err := getFunction(flags, ctx, e.Name)
	if err != nil || fn == nil {
		return nil, err
	}
	return fn(args...)
}

// Connect connects the arguments when the callee currently resolves to a
// function. The callee itself is not observed.
func (e *CallScope) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	ctx, err := observation.ResolveContext(scope, e.Name, e.Ancestor, flags)
	if err != nil {
		return err
	}
	if fn, _ := getFunction(flags&^observation.MustEvaluate, ctx, e.Name); fn == nil {
		return nil
	}
	return connectList(flags, scope, binding, e.Args)
}

func (e *CallScope) Accept(v Visitor) any { return v.VisitCallScope(e) }

// ── CallMember ────────────────────────────────────────────────────────────────

// CallMember calls a method: "object.name(args)".
type CallMember struct {
	readOnly
	Object Expression
	Name   string
	Args   []Expression
}

func NewCallMember(object Expression, name string, args []Expression) *CallMember {
	return &CallMember{Object: object, Name: name, Args: args}
}

func (e *CallMember) Kind() Kind { return KindCallMember }

func (e *CallMember) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	instance, err := e.Object.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	args, err := evalList(flags, scope, locator, e.Args)
	if err != nil {
		return nil, err
	}
	fn, err := getFunction(flags, instance, e.Name)
	if err != nil || fn == nil {
		return nil, err
	}
	return fn(args...)
}

func (e *CallMember) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	obj, err := peek(e.Object, flags, scope, binding)
	if err != nil {
		return err
	}
	if err := e.Object.Connect(flags, scope, binding); err != nil {
		return err
	}
	if fn, _ := getFunction(flags&^observation.MustEvaluate, obj, e.Name); fn == nil {
		return nil
	}
	return connectList(flags, scope, binding, e.Args)
}

func (e *CallMember) Accept(v Visitor) any { return v.VisitCallMember(e) }

// ── CallFunction ──────────────────────────────────────────────────────────────

// CallFunction calls the value of an expression: "(expr)(args)".
type CallFunction struct {
	readOnly
	Func Expression
	Args []Expression
}

func NewCallFunction(fn Expression, args []Expression) *CallFunction {
	return &CallFunction{Func: fn, Args: args}
}

func (e *CallFunction) Kind() Kind { return KindCallFunction }

func (e *CallFunction) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	v, err := e.Func.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	fn, ok := observation.ToFunc(v)
	if !ok {
		if v == nil && flags&observation.MustEvaluate == 0 {
			return nil, nil
		}
		return nil, reporter.New(reporter.CodeNotAFunction, "ast.CallFunction.Evaluate", Unparse(e.Func))
	}
	args, err := evalList(flags, scope, locator, e.Args)
	if err != nil {
		return nil, err
	}
	return fn(args...)
}

func (e *CallFunction) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	v, err := peek(e.Func, flags, scope, binding)
	if err != nil {
		return err
	}
	if err := e.Func.Connect(flags, scope, binding); err != nil {
		return err
	}
	if !observation.IsCallable(v) {
		return nil
	}
	return connectList(flags, scope, binding, e.Args)
}

func (e *CallFunction) Accept(v Visitor) any { return v.VisitCallFunction(e) }

// ── TaggedTemplate ────────────────────────────────────────────────────────────

// TaggedTemplate calls Func with the cooked strings followed by the
// evaluated expressions: "tag`a${b}c`".
type TaggedTemplate struct {
	readOnly
	Cooked      []string
	Raw         []string
	Func        Expression
	Expressions []Expression
}

func NewTaggedTemplate(cooked, raw []string, fn Expression, expressions []Expression) *TaggedTemplate {
	if raw == nil {
		raw = cooked
	}
	return &TaggedTemplate{Cooked: cooked, Raw: raw, Func: fn, Expressions: expressions}
}

func (e *TaggedTemplate) Kind() Kind { return KindTaggedTemplate }

func (e *TaggedTemplate) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	results, err := evalList(flags, scope, locator, e.Expressions)
	if err != nil {
		return nil, err
	}
	v, err := e.Func.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	fn, ok := observation.ToFunc(v)
	if !ok {
		return nil, reporter.New(reporter.CodeNotAFunction, "ast.TaggedTemplate.Evaluate", Unparse(e.Func))
	}
	args := make([]any, 0, len(results)+1)
	args = append(args, e.Cooked)
	return fn(append(args, results...)...)
}

func (e *TaggedTemplate) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	if err := connectList(flags, scope, binding, e.Expressions); err != nil {
		return err
	}
	return e.Func.Connect(flags, scope, binding)
}

func (e *TaggedTemplate) Accept(v Visitor) any { return v.VisitTaggedTemplate(e) }
