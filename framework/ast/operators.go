package ast

import (
	"math"
	"reflect"

	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/reporter"
)

type evalFunc func(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error)

// ── Binary ────────────────────────────────────────────────────────────────────

type binaryOp func(left, right evalFunc, f observation.LifecycleFlags, s *observation.Scope, l observation.ServiceLocator) (any, error)

// binaryOps is the dispatch table for every binary operator the expression
// grammar produces.
var binaryOps = map[string]binaryOp{
	"&&": func(left, right evalFunc, f observation.LifecycleFlags, s *observation.Scope, l observation.ServiceLocator) (any, error) {
		lv, err := left(f, s, l)
		if err != nil || !Truthy(lv) {
			return lv, err
		}
		return right(f, s, l)
	},
	"||": func(left, right evalFunc, f observation.LifecycleFlags, s *observation.Scope, l observation.ServiceLocator) (any, error) {
		lv, err := left(f, s, l)
		if err != nil || Truthy(lv) {
			return lv, err
		}
		return right(f, s, l)
	},
	"==":  both(func(a, b any) any { return LooseEqual(a, b) }),
	"!=":  both(func(a, b any) any { return !LooseEqual(a, b) }),
	"===": both(func(a, b any) any { return StrictEqual(a, b) }),
	"!==": both(func(a, b any) any { return !StrictEqual(a, b) }),
	"instanceof": both(func(a, b any) any {
		t, ok := b.(reflect.Type)
		if !ok || a == nil {
			return false
		}
		at := reflect.TypeOf(a)
		if t.Kind() == reflect.Interface {
			return at.Implements(t)
		}
		return at == t || (at.Kind() == reflect.Pointer && at.Elem() == t)
	}),
	"in": both(func(a, b any) any {
		if !observation.IsObject(b) {
			return false
		}
		return observation.HasProperty(b, observation.PropertyKey(a))
	}),
	"+": both(func(a, b any) any {
		_, as := a.(string)
		_, bs := b.(string)
		if as || bs {
			return ToString(a) + ToString(b)
		}
		return ToNumber(a) + ToNumber(b)
	}),
	"-":  both(func(a, b any) any { return ToNumber(a) - ToNumber(b) }),
	"*":  both(func(a, b any) any { return ToNumber(a) * ToNumber(b) }),
	"/":  both(func(a, b any) any { return ToNumber(a) / ToNumber(b) }),
	"%":  both(func(a, b any) any { return math.Mod(ToNumber(a), ToNumber(b)) }),
	"<":  both(compare(func(c int) bool { return c < 0 })),
	">":  both(compare(func(c int) bool { return c > 0 })),
	"<=": both(compare(func(c int) bool { return c <= 0 })),
	">=": both(compare(func(c int) bool { return c >= 0 })),
}

// both evaluates left then right and applies fn.
func both(fn func(a, b any) any) binaryOp {
	return func(left, right evalFunc, f observation.LifecycleFlags, s *observation.Scope, l observation.ServiceLocator) (any, error) {
		a, err := left(f, s, l)
		if err != nil {
			return nil, err
		}
		b, err := right(f, s, l)
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	}
}

// compare orders two strings lexically and anything else numerically. Any
// NaN makes the comparison false.
func compare(accept func(c int) bool) func(a, b any) any {
	return func(a, b any) any {
		as, aStr := a.(string)
		bs, bStr := b.(string)
		if aStr && bStr {
			switch {
			case as < bs:
				return accept(-1)
			case as > bs:
				return accept(1)
			}
			return accept(0)
		}
		x, y := ToNumber(a), ToNumber(b)
		switch {
		case math.IsNaN(x) || math.IsNaN(y):
			return false
		case x < y:
			return accept(-1)
		case x > y:
			return accept(1)
		}
		return accept(0)
	}
}

// Binary is "Left Operation Right". The operator is looked up once, when
// the node is built.
type Binary struct {
	readOnly
	Operation string
	Left      Expression
	Right     Expression

	op binaryOp
}

func NewBinary(operation string, left, right Expression) *Binary {
	return &Binary{Operation: operation, Left: left, Right: right, op: binaryOps[operation]}
}

func (e *Binary) Kind() Kind { return KindBinary }

func (e *Binary) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	if e.op == nil {
		return nil, reporter.New(reporter.CodeUnknownOperator, "ast.Binary.Evaluate", e.Operation)
	}
	return e.op(e.Left.Evaluate, e.Right.Evaluate, flags, scope, locator)
}

// Connect connects the right side only when it would be evaluated.
func (e *Binary) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	left, err := peek(e.Left, flags, scope, binding)
	if err != nil {
		return err
	}
	if err := e.Left.Connect(flags, scope, binding); err != nil {
		return err
	}
	if (e.Operation == "&&" && !Truthy(left)) || (e.Operation == "||" && Truthy(left)) {
		return nil
	}
	return e.Right.Connect(flags, scope, binding)
}

func (e *Binary) Accept(v Visitor) any { return v.VisitBinary(e) }

// ── Unary ─────────────────────────────────────────────────────────────────────

type unaryOp func(v any) any

var unaryOps = map[string]unaryOp{
	"void":   func(any) any { return nil },
	"typeof": func(v any) any { return TypeOf(v) },
	"!":      func(v any) any { return !Truthy(v) },
	"-":      func(v any) any { return -ToNumber(v) },
	"+":      func(v any) any { return ToNumber(v) },
}

// Unary is "Operation Expression".
type Unary struct {
	readOnly
	Operation  string
	Expression Expression

	op unaryOp
}

func NewUnary(operation string, expression Expression) *Unary {
	return &Unary{Operation: operation, Expression: expression, op: unaryOps[operation]}
}

func (e *Unary) Kind() Kind { return KindUnary }

func (e *Unary) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	if e.op == nil {
		return nil, reporter.New(reporter.CodeUnknownOperator, "ast.Unary.Evaluate", e.Operation)
	}
	v, err := e.Expression.Evaluate(flags, scope, locator)
	if err != nil {
		return nil, err
	}
	return e.op(v), nil
}

func (e *Unary) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	return e.Expression.Connect(flags, scope, binding)
}

func (e *Unary) Accept(v Visitor) any { return v.VisitUnary(e) }

// BinaryOperators and UnaryOperators list the supported operators.
func BinaryOperators() []string { return sortedKeys(binaryOps) }
func UnaryOperators() []string  { return sortedKeys(unaryOps) }
