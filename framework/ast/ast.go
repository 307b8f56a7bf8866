// Package ast is the binding expression engine: a closed set of expression
// nodes that evaluate against a scope, assign back into it, and connect,
// which registers every property an evaluation reads with a binding so
// later changes re-trigger it.
//
// Nodes are immutable once built and safe to share between bindings.
//
//	expr := ast.NewBinary("+", ast.NewAccessScope("firstName", 0), ast.NewPrimitiveLiteral("!"))
//	v, err := expr.Evaluate(observation.FlagsNone, observation.NewScope(vm), c)
package ast

import (
	"github.com/km-arc/go-binding/framework/observation"
)

// Kind identifies an expression node type.
type Kind uint8

const (
	KindAccessThis Kind = iota + 1
	KindAccessScope
	KindAccessMember
	KindAccessKeyed
	KindCallScope
	KindCallMember
	KindCallFunction
	KindBinary
	KindUnary
	KindPrimitiveLiteral
	KindHtmlLiteral
	KindArrayLiteral
	KindObjectLiteral
	KindTemplate
	KindTaggedTemplate
	KindAssign
	KindConditional
	KindForOfStatement
	KindInterpolation
	KindBindingBehavior
	KindValueConverter
	KindArrayBindingPattern
	KindObjectBindingPattern
	KindBindingIdentifier
)

var kindNames = [...]string{
	KindAccessThis:           "AccessThis",
	KindAccessScope:          "AccessScope",
	KindAccessMember:         "AccessMember",
	KindAccessKeyed:          "AccessKeyed",
	KindCallScope:            "CallScope",
	KindCallMember:           "CallMember",
	KindCallFunction:         "CallFunction",
	KindBinary:               "Binary",
	KindUnary:                "Unary",
	KindPrimitiveLiteral:     "PrimitiveLiteral",
	KindHtmlLiteral:          "HtmlLiteral",
	KindArrayLiteral:         "ArrayLiteral",
	KindObjectLiteral:        "ObjectLiteral",
	KindTemplate:             "Template",
	KindTaggedTemplate:       "TaggedTemplate",
	KindAssign:               "Assign",
	KindConditional:          "Conditional",
	KindForOfStatement:       "ForOfStatement",
	KindInterpolation:        "Interpolation",
	KindBindingBehavior:      "BindingBehavior",
	KindValueConverter:       "ValueConverter",
	KindArrayBindingPattern:  "ArrayBindingPattern",
	KindObjectBindingPattern: "ObjectBindingPattern",
	KindBindingIdentifier:    "BindingIdentifier",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// Expression is implemented by every node.
type Expression interface {
	Kind() Kind

	// Evaluate computes the value of the expression in scope. The locator
	// resolves value converters and binding behaviors.
	Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error)

	// Assign writes value to what the expression designates and returns the
	// value written. Kinds that designate nothing return (nil, nil).
	Assign(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, value any) (any, error)

	// Connect registers the properties the expression currently reads with
	// binding. It mutates nothing but the binding's dependency set.
	Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error

	Accept(v Visitor) any
}

// Binder is implemented by nodes that take part in a binding's bind and
// unbind: binding behaviors, value converters and for-of statements.
type Binder interface {
	Bind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding) error
	Unbind(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.Binding) error
}

type readOnly struct{}

func (readOnly) Assign(observation.LifecycleFlags, *observation.Scope, observation.ServiceLocator, any) (any, error) {
	return nil, nil
}

type pure struct{}

func (pure) Connect(observation.LifecycleFlags, *observation.Scope, observation.ConnectableBinding) error {
	return nil
}

func evalList(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator, list []Expression) ([]any, error) {
	out := make([]any, len(list))
	for i, e := range list {
		v, err := e.Evaluate(flags, scope, locator)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func connectList(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding, list []Expression) error {
	for _, e := range list {
		if err := e.Connect(flags, scope, binding); err != nil {
			return err
		}
	}
	return nil
}

// peek evaluates e the way Connect does: without forcing not-a-function
// errors, using the binding's locator.
func peek(e Expression, flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) (any, error) {
	return e.Evaluate(flags&^observation.MustEvaluate, scope, binding.Locator())
}

// assignProperty writes obj[name], through the property's observer when obj
// is observable and has one.
func assignProperty(flags observation.LifecycleFlags, obj any, name string, value any) {
	if o, ok := obj.(observation.Observable); ok {
		if obs, ok := o.Observers().Get(name); ok {
			obs.SetValue(value, flags)
			return
		}
	}
	observation.SetProperty(obj, name, value)
}

// IsPureLiteral reports whether e is built from literals only.
func IsPureLiteral(e Expression) bool {
	switch n := e.(type) {
	case *PrimitiveLiteral:
		return true
	case *ArrayLiteral:
		return arePureLiterals(n.Elements)
	case *ObjectLiteral:
		return arePureLiterals(n.Values)
	case *Template:
		return arePureLiterals(n.Expressions)
	}
	return false
}

func arePureLiterals(list []Expression) bool {
	for _, e := range list {
		if !IsPureLiteral(e) {
			return false
		}
	}
	return true
}
