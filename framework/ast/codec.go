package ast

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ── Tree codec ────────────────────────────────────────────────────────────────
//
// Trees are generic maps tagged with "$kind":
//
//	$kind: Binary
//	operation: "+"
//	left:  {$kind: AccessScope, name: firstName}
//	right: {$kind: PrimitiveLiteral, value: "!"}
//
// This is the form compiled templates hand expressions over in.

// KindField is the map key carrying the node kind.
const KindField = "$kind"

// Encode converts e to its tree form.
func Encode(e Expression) map[string]any {
	if e == nil {
		return nil
	}
	m, _ := e.Accept(encoder{}).(map[string]any)
	return m
}

// EncodeYAML renders the tree form of e as YAML.
func EncodeYAML(e Expression) ([]byte, error) {
	return yaml.Marshal(Encode(e))
}

// DecodeYAML reads a tree from YAML or JSON.
func DecodeYAML(data []byte) (Expression, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("ast: decode tree: %w", err)
	}
	return Decode(tree)
}

// Decode builds an expression from its tree form.
func Decode(tree map[string]any) (Expression, error) {
	return decodeNode(tree, "$")
}

type encoder struct{}

func node(kind Kind, kv ...any) map[string]any {
	m := map[string]any{KindField: kind.String()}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func encodeList(list []Expression) []any {
	out := make([]any, len(list))
	for i, e := range list {
		out[i] = Encode(e)
	}
	return out
}

func (encoder) VisitAccessThis(e *AccessThis) any {
	return node(KindAccessThis, "ancestor", e.Ancestor)
}
func (encoder) VisitAccessScope(e *AccessScope) any {
	return node(KindAccessScope, "name", e.Name, "ancestor", e.Ancestor)
}
func (encoder) VisitAccessMember(e *AccessMember) any {
	return node(KindAccessMember, "object", Encode(e.Object), "name", e.Name)
}
func (encoder) VisitAccessKeyed(e *AccessKeyed) any {
	return node(KindAccessKeyed, "object", Encode(e.Object), "key", Encode(e.Key))
}
func (encoder) VisitCallScope(e *CallScope) any {
	return node(KindCallScope, "name", e.Name, "args", encodeList(e.Args), "ancestor", e.Ancestor)
}
func (encoder) VisitCallMember(e *CallMember) any {
	return node(KindCallMember, "object", Encode(e.Object), "name", e.Name, "args", encodeList(e.Args))
}
func (encoder) VisitCallFunction(e *CallFunction) any {
	return node(KindCallFunction, "func", Encode(e.Func), "args", encodeList(e.Args))
}
func (encoder) VisitBinary(e *Binary) any {
	return node(KindBinary, "operation", e.Operation, "left", Encode(e.Left), "right", Encode(e.Right))
}
func (encoder) VisitUnary(e *Unary) any {
	return node(KindUnary, "operation", e.Operation, "expression", Encode(e.Expression))
}
func (encoder) VisitPrimitiveLiteral(e *PrimitiveLiteral) any {
	return node(KindPrimitiveLiteral, "value", e.Value)
}
func (encoder) VisitHtmlLiteral(e *HtmlLiteral) any {
	return node(KindHtmlLiteral, "parts", encodeList(e.Parts))
}
func (encoder) VisitArrayLiteral(e *ArrayLiteral) any {
	return node(KindArrayLiteral, "elements", encodeList(e.Elements))
}
func (encoder) VisitObjectLiteral(e *ObjectLiteral) any {
	return node(KindObjectLiteral, "keys", stringList(e.Keys), "values", encodeList(e.Values))
}
func (encoder) VisitTemplate(e *Template) any {
	return node(KindTemplate, "cooked", stringList(e.Cooked), "expressions", encodeList(e.Expressions))
}
func (encoder) VisitTaggedTemplate(e *TaggedTemplate) any {
	return node(KindTaggedTemplate, "cooked", stringList(e.Cooked), "raw", stringList(e.Raw),
		"func", Encode(e.Func), "expressions", encodeList(e.Expressions))
}
func (encoder) VisitAssign(e *Assign) any {
	return node(KindAssign, "target", Encode(e.Target), "value", Encode(e.Value))
}
func (encoder) VisitConditional(e *Conditional) any {
	return node(KindConditional, "condition", Encode(e.Condition), "yes", Encode(e.Yes), "no", Encode(e.No))
}
func (encoder) VisitForOfStatement(e *ForOfStatement) any {
	return node(KindForOfStatement, "declaration", Encode(e.Declaration), "iterable", Encode(e.Iterable))
}
func (encoder) VisitInterpolation(e *Interpolation) any {
	return node(KindInterpolation, "parts", stringList(e.Parts), "expressions", encodeList(e.Expressions))
}
func (encoder) VisitBindingBehavior(e *BindingBehavior) any {
	return node(KindBindingBehavior, "expression", Encode(e.Expression), "name", e.Name, "args", encodeList(e.Args))
}
func (encoder) VisitValueConverter(e *ValueConverter) any {
	return node(KindValueConverter, "expression", Encode(e.Expression), "name", e.Name, "args", encodeList(e.Args))
}
func (encoder) VisitArrayBindingPattern(e *ArrayBindingPattern) any {
	return node(KindArrayBindingPattern, "elements", encodeList(e.Elements))
}
func (encoder) VisitObjectBindingPattern(e *ObjectBindingPattern) any {
	return node(KindObjectBindingPattern, "keys", stringList(e.Keys), "values", encodeList(e.Values))
}
func (encoder) VisitBindingIdentifier(e *BindingIdentifier) any {
	return node(KindBindingIdentifier, "name", e.Name)
}

func stringList(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// ── Decoding ──────────────────────────────────────────────────────────────────

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if name != "" {
			m[name] = Kind(k)
		}
	}
	return m
}()

// reader pulls typed fields out of one tree node and remembers the first
// error, so decoders can read every field before checking.
type reader struct {
	m    map[string]any
	path string
	err  error
}

func (r *reader) fail(field, format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("ast: %s.%s: %s", r.path, field, fmt.Sprintf(format, args...))
	}
}

func (r *reader) expr(field string) Expression {
	v, ok := r.m[field]
	if !ok || v == nil {
		r.fail(field, "missing expression")
		return nil
	}
	m, ok := asMap(v)
	if !ok {
		r.fail(field, "want node, got %T", v)
		return nil
	}
	e, err := decodeNode(m, r.path+"."+field)
	if err != nil && r.err == nil {
		r.err = err
	}
	return e
}

func (r *reader) exprs(field string) []Expression {
	list, ok := r.m[field].([]any)
	if !ok {
		if r.m[field] != nil {
			r.fail(field, "want list, got %T", r.m[field])
		}
		return nil
	}
	out := make([]Expression, len(list))
	for i, v := range list {
		m, ok := asMap(v)
		if !ok {
			r.fail(field, "item %d: want node, got %T", i, v)
			return nil
		}
		e, err := decodeNode(m, fmt.Sprintf("%s.%s[%d]", r.path, field, i))
		if err != nil {
			if r.err == nil {
				r.err = err
			}
			return nil
		}
		out[i] = e
	}
	return out
}

func (r *reader) str(field string) string {
	switch v := r.m[field].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		r.fail(field, "want string, got %T", v)
		return ""
	}
}

func (r *reader) strs(field string) []string {
	list, ok := r.m[field].([]any)
	if !ok {
		return nil
	}
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = ToString(v)
	}
	return out
}

func (r *reader) integer(field string) int {
	v := r.m[field]
	if v == nil {
		return 0
	}
	n, ok := toFloat(v)
	if !ok {
		r.fail(field, "want number, got %T", v)
		return 0
	}
	return int(n)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func decodeNode(m map[string]any, path string) (Expression, error) {
	name, _ := m[KindField].(string)
	kind, ok := kindsByName[name]
	if !ok {
		return nil, fmt.Errorf("ast: %s: unknown %s %q", path, KindField, name)
	}
	r := &reader{m: m, path: path}

	var e Expression
	switch kind {
	case KindAccessThis:
		e = NewAccessThis(r.integer("ancestor"))
	case KindAccessScope:
		e = NewAccessScope(r.str("name"), r.integer("ancestor"))
	case KindAccessMember:
		e = NewAccessMember(r.expr("object"), r.str("name"))
	case KindAccessKeyed:
		e = NewAccessKeyed(r.expr("object"), r.expr("key"))
	case KindCallScope:
		e = NewCallScope(r.str("name"), r.exprs("args"), r.integer("ancestor"))
	case KindCallMember:
		e = NewCallMember(r.expr("object"), r.str("name"), r.exprs("args"))
	case KindCallFunction:
		e = NewCallFunction(r.expr("func"), r.exprs("args"))
	case KindBinary:
		e = NewBinary(r.str("operation"), r.expr("left"), r.expr("right"))
	case KindUnary:
		e = NewUnary(r.str("operation"), r.expr("expression"))
	case KindPrimitiveLiteral:
		e = NewPrimitiveLiteral(m["value"])
	case KindHtmlLiteral:
		e = NewHtmlLiteral(r.exprs("parts"))
	case KindArrayLiteral:
		e = NewArrayLiteral(r.exprs("elements"))
	case KindObjectLiteral:
		e = NewObjectLiteral(r.strs("keys"), r.exprs("values"))
	case KindTemplate:
		e = NewTemplate(r.strs("cooked"), r.exprs("expressions"))
	case KindTaggedTemplate:
		e = NewTaggedTemplate(r.strs("cooked"), r.strs("raw"), r.expr("func"), r.exprs("expressions"))
	case KindAssign:
		e = NewAssign(r.expr("target"), r.expr("value"))
	case KindConditional:
		e = NewConditional(r.expr("condition"), r.expr("yes"), r.expr("no"))
	case KindForOfStatement:
		e = NewForOfStatement(r.expr("declaration"), r.expr("iterable"))
	case KindInterpolation:
		e = NewInterpolation(r.strs("parts"), r.exprs("expressions"))
	case KindBindingBehavior:
		e = NewBindingBehavior(r.expr("expression"), r.str("name"), r.exprs("args"))
	case KindValueConverter:
		e = NewValueConverter(r.expr("expression"), r.str("name"), r.exprs("args"))
	case KindArrayBindingPattern:
		e = NewArrayBindingPattern(r.exprs("elements"))
	case KindObjectBindingPattern:
		e = NewObjectBindingPattern(r.strs("keys"), r.exprs("values"))
	case KindBindingIdentifier:
		e = NewBindingIdentifier(r.str("name"))
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := validate(e, path); err != nil {
		return nil, err
	}
	return e, nil
}

// validate checks what the constructors cannot: operators exist and
// parallel lists line up.
func validate(e Expression, path string) error {
	switch n := e.(type) {
	case *Binary:
		if n.op == nil {
			return fmt.Errorf("ast: %s: unknown binary operator %q", path, n.Operation)
		}
	case *Unary:
		if n.op == nil {
			return fmt.Errorf("ast: %s: unknown unary operator %q", path, n.Operation)
		}
	case *ObjectLiteral:
		if len(n.Keys) != len(n.Values) {
			return fmt.Errorf("ast: %s: %d keys for %d values", path, len(n.Keys), len(n.Values))
		}
	case *ObjectBindingPattern:
		if len(n.Keys) != len(n.Values) {
			return fmt.Errorf("ast: %s: %d keys for %d values", path, len(n.Keys), len(n.Values))
		}
	case *Template:
		if len(n.Cooked) != len(n.Expressions)+1 {
			return fmt.Errorf("ast: %s: %d strings for %d expressions", path, len(n.Cooked), len(n.Expressions))
		}
	}
	return nil
}
