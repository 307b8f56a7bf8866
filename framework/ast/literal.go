package ast

import (
	"strings"

	"github.com/km-arc/go-binding/framework/observation"
)

// ── PrimitiveLiteral ──────────────────────────────────────────────────────────

// PrimitiveLiteral is a constant: a string, number, bool or nil
// ("undefined"/"null").
type PrimitiveLiteral struct {
	readOnly
	pure
	Value any
}

var (
	Undefined = &PrimitiveLiteral{}
	True      = &PrimitiveLiteral{Value: true}
	False     = &PrimitiveLiteral{Value: false}
	Empty     = &PrimitiveLiteral{Value: ""}
)

// NewPrimitiveLiteral stores numbers as float64.
func NewPrimitiveLiteral(value any) *PrimitiveLiteral {
	return &PrimitiveLiteral{Value: normalize(value)}
}

func (e *PrimitiveLiteral) Kind() Kind { return KindPrimitiveLiteral }

func (e *PrimitiveLiteral) Evaluate(observation.LifecycleFlags, *observation.Scope, observation.ServiceLocator) (any, error) {
	return e.Value, nil
}

func (e *PrimitiveLiteral) Accept(v Visitor) any { return v.VisitPrimitiveLiteral(e) }

// ── HtmlLiteral ───────────────────────────────────────────────────────────────

// HtmlLiteral concatenates its parts. Parts evaluating to nil are skipped.
type HtmlLiteral struct {
	readOnly
	Parts []Expression
}

func NewHtmlLiteral(parts []Expression) *HtmlLiteral { return &HtmlLiteral{Parts: parts} }

func (e *HtmlLiteral) Kind() Kind { return KindHtmlLiteral }

func (e *HtmlLiteral) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	var b strings.Builder
	for _, p := range e.Parts {
		v, err := p.Evaluate(flags, scope, locator)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		b.WriteString(ToString(v))
	}
	return b.String(), nil
}

func (e *HtmlLiteral) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	return connectList(flags, scope, binding, e.Parts)
}

func (e *HtmlLiteral) Accept(v Visitor) any { return v.VisitHtmlLiteral(e) }

// ── ArrayLiteral ──────────────────────────────────────────────────────────────

// ArrayLiteral evaluates to a fresh []any.
type ArrayLiteral struct {
	readOnly
	Elements []Expression
}

func NewArrayLiteral(elements []Expression) *ArrayLiteral { return &ArrayLiteral{Elements: elements} }

func (e *ArrayLiteral) Kind() Kind { return KindArrayLiteral }

func (e *ArrayLiteral) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	return evalList(flags, scope, locator, e.Elements)
}

func (e *ArrayLiteral) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	return connectList(flags, scope, binding, e.Elements)
}

func (e *ArrayLiteral) Accept(v Visitor) any { return v.VisitArrayLiteral(e) }

// ── ObjectLiteral ─────────────────────────────────────────────────────────────

// ObjectLiteral evaluates to a fresh map[string]any. Keys and Values are
// parallel.
type ObjectLiteral struct {
	readOnly
	Keys   []string
	Values []Expression
}

func NewObjectLiteral(keys []string, values []Expression) *ObjectLiteral {
	return &ObjectLiteral{Keys: keys, Values: values}
}

func (e *ObjectLiteral) Kind() Kind { return KindObjectLiteral }

func (e *ObjectLiteral) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	out := make(map[string]any, len(e.Keys))
	for i, k := range e.Keys {
		v, err := e.Values[i].Evaluate(flags, scope, locator)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (e *ObjectLiteral) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	return connectList(flags, scope, binding, e.Values)
}

func (e *ObjectLiteral) Accept(v Visitor) any { return v.VisitObjectLiteral(e) }

// ── Template ──────────────────────────────────────────────────────────────────

// Template is an untagged template string: Cooked[0] expr[0] Cooked[1] ...
// len(Cooked) is len(Expressions)+1.
type Template struct {
	readOnly
	Cooked      []string
	Expressions []Expression
}

func NewTemplate(cooked []string, expressions []Expression) *Template {
	return &Template{Cooked: cooked, Expressions: expressions}
}

func (e *Template) Kind() Kind { return KindTemplate }

func (e *Template) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	values, err := evalList(flags, scope, locator, e.Expressions)
	if err != nil {
		return nil, err
	}
	return interleave(e.Cooked, values), nil
}

func (e *Template) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	return connectList(flags, scope, binding, e.Expressions)
}

func (e *Template) Accept(v Visitor) any { return v.VisitTemplate(e) }

// ── Interpolation ─────────────────────────────────────────────────────────────

// Interpolation is attribute or text content with "${}" holes. It is bound
// as a single binding, so Evaluate renders the whole string.
type Interpolation struct {
	readOnly
	Parts       []string
	Expressions []Expression
}

func NewInterpolation(parts []string, expressions []Expression) *Interpolation {
	return &Interpolation{Parts: parts, Expressions: expressions}
}

func (e *Interpolation) Kind() Kind { return KindInterpolation }

// IsMulti reports whether there is more than one hole or any static text.
func (e *Interpolation) IsMulti() bool {
	if len(e.Expressions) != 1 {
		return true
	}
	for _, p := range e.Parts {
		if p != "" {
			return true
		}
	}
	return false
}

// FirstExpression is the only expression of a single-hole interpolation.
func (e *Interpolation) FirstExpression() Expression {
	if len(e.Expressions) == 0 {
		return nil
	}
	return e.Expressions[0]
}

func (e *Interpolation) Evaluate(flags observation.LifecycleFlags, scope *observation.Scope, locator observation.ServiceLocator) (any, error) {
	values, err := evalList(flags, scope, locator, e.Expressions)
	if err != nil {
		return nil, err
	}
	return interleave(e.Parts, values), nil
}

func (e *Interpolation) Connect(flags observation.LifecycleFlags, scope *observation.Scope, binding observation.ConnectableBinding) error {
	return connectList(flags, scope, binding, e.Expressions)
}

func (e *Interpolation) Accept(v Visitor) any { return v.VisitInterpolation(e) }

func interleave(parts []string, values []any) string {
	var b strings.Builder
	for i, p := range parts {
		b.WriteString(p)
		if i < len(values) {
			b.WriteString(ToString(values[i]))
		}
	}
	return b.String()
}
