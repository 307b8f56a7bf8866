package ast

import (
	"strings"
)

// Visitor walks an expression tree. Each node's Accept calls the matching
// method and returns its result.
type Visitor interface {
	VisitAccessThis(e *AccessThis) any
	VisitAccessScope(e *AccessScope) any
	VisitAccessMember(e *AccessMember) any
	VisitAccessKeyed(e *AccessKeyed) any
	VisitCallScope(e *CallScope) any
	VisitCallMember(e *CallMember) any
	VisitCallFunction(e *CallFunction) any
	VisitBinary(e *Binary) any
	VisitUnary(e *Unary) any
	VisitPrimitiveLiteral(e *PrimitiveLiteral) any
	VisitHtmlLiteral(e *HtmlLiteral) any
	VisitArrayLiteral(e *ArrayLiteral) any
	VisitObjectLiteral(e *ObjectLiteral) any
	VisitTemplate(e *Template) any
	VisitTaggedTemplate(e *TaggedTemplate) any
	VisitAssign(e *Assign) any
	VisitConditional(e *Conditional) any
	VisitForOfStatement(e *ForOfStatement) any
	VisitInterpolation(e *Interpolation) any
	VisitBindingBehavior(e *BindingBehavior) any
	VisitValueConverter(e *ValueConverter) any
	VisitArrayBindingPattern(e *ArrayBindingPattern) any
	VisitObjectBindingPattern(e *ObjectBindingPattern) any
	VisitBindingIdentifier(e *BindingIdentifier) any
}

// Unparse renders e back to binding syntax. Operators and converter or
// behavior applications are fully parenthesized:
//
//	ast.Unparse(ast.NewBinary("+", ast.NewAccessScope("a", 0), ast.NewPrimitiveLiteral(1)))
//	// (a + 1)
func Unparse(e Expression) string {
	if e == nil {
		return ""
	}
	u := &unparser{}
	e.Accept(u)
	return u.b.String()
}

type unparser struct {
	b strings.Builder
}

func (u *unparser) write(s ...string) {
	for _, p := range s {
		u.b.WriteString(p)
	}
}

func (u *unparser) list(open, end string, list []Expression) {
	u.write(open)
	for i, e := range list {
		if i > 0 {
			u.write(",")
		}
		e.Accept(u)
	}
	u.write(end)
}

func (u *unparser) ancestors(n int) {
	for i := 0; i < n; i++ {
		u.write("$parent.")
	}
}

func (u *unparser) VisitAccessThis(e *AccessThis) any {
	if e.Ancestor == 0 {
		u.write("$this")
		return nil
	}
	u.write(strings.TrimSuffix(strings.Repeat("$parent.", e.Ancestor), "."))
	return nil
}

func (u *unparser) VisitAccessScope(e *AccessScope) any {
	u.ancestors(e.Ancestor)
	u.write(e.Name)
	return nil
}

func (u *unparser) VisitAccessMember(e *AccessMember) any {
	e.Object.Accept(u)
	u.write(".", e.Name)
	return nil
}

func (u *unparser) VisitAccessKeyed(e *AccessKeyed) any {
	e.Object.Accept(u)
	u.write("[")
	e.Key.Accept(u)
	u.write("]")
	return nil
}

func (u *unparser) VisitCallScope(e *CallScope) any {
	u.ancestors(e.Ancestor)
	u.write(e.Name)
	u.list("(", ")", e.Args)
	return nil
}

func (u *unparser) VisitCallMember(e *CallMember) any {
	e.Object.Accept(u)
	u.write(".", e.Name)
	u.list("(", ")", e.Args)
	return nil
}

func (u *unparser) VisitCallFunction(e *CallFunction) any {
	e.Func.Accept(u)
	u.list("(", ")", e.Args)
	return nil
}

func (u *unparser) VisitBinary(e *Binary) any {
	u.write("(")
	e.Left.Accept(u)
	u.write(" ", e.Operation, " ")
	e.Right.Accept(u)
	u.write(")")
	return nil
}

func (u *unparser) VisitUnary(e *Unary) any {
	u.write("(", e.Operation)
	if e.Operation != "" && e.Operation[0] >= 'a' {
		u.write(" ")
	}
	e.Expression.Accept(u)
	u.write(")")
	return nil
}

func (u *unparser) VisitPrimitiveLiteral(e *PrimitiveLiteral) any {
	switch v := e.Value.(type) {
	case nil:
		u.write("undefined")
	case string:
		u.write("'", strings.ReplaceAll(v, "'", `\'`), "'")
	default:
		u.write(ToString(v))
	}
	return nil
}

func (u *unparser) VisitHtmlLiteral(e *HtmlLiteral) any {
	for _, p := range e.Parts {
		p.Accept(u)
	}
	return nil
}

func (u *unparser) VisitArrayLiteral(e *ArrayLiteral) any {
	u.list("[", "]", e.Elements)
	return nil
}

func (u *unparser) VisitObjectLiteral(e *ObjectLiteral) any {
	u.keyed(e.Keys, e.Values)
	return nil
}

func (u *unparser) keyed(keys []string, values []Expression) {
	u.write("{")
	for i, k := range keys {
		if i > 0 {
			u.write(",")
		}
		u.write("'", k, "':")
		values[i].Accept(u)
	}
	u.write("}")
}

func (u *unparser) template(cooked []string, expressions []Expression) {
	u.write("`")
	for i, c := range cooked {
		u.write(c)
		if i < len(expressions) {
			u.write("${")
			expressions[i].Accept(u)
			u.write("}")
		}
	}
	u.write("`")
}

func (u *unparser) VisitTemplate(e *Template) any {
	u.template(e.Cooked, e.Expressions)
	return nil
}

func (u *unparser) VisitTaggedTemplate(e *TaggedTemplate) any {
	e.Func.Accept(u)
	u.template(e.Cooked, e.Expressions)
	return nil
}

func (u *unparser) VisitAssign(e *Assign) any {
	u.write("(")
	e.Target.Accept(u)
	u.write("=")
	e.Value.Accept(u)
	u.write(")")
	return nil
}

func (u *unparser) VisitConditional(e *Conditional) any {
	u.write("(")
	e.Condition.Accept(u)
	u.write("?")
	e.Yes.Accept(u)
	u.write(":")
	e.No.Accept(u)
	u.write(")")
	return nil
}

func (u *unparser) VisitForOfStatement(e *ForOfStatement) any {
	e.Declaration.Accept(u)
	u.write(" of ")
	e.Iterable.Accept(u)
	return nil
}

func (u *unparser) VisitInterpolation(e *Interpolation) any {
	for i, p := range e.Parts {
		u.write(p)
		if i < len(e.Expressions) {
			u.write("${")
			e.Expressions[i].Accept(u)
			u.write("}")
		}
	}
	return nil
}

func (u *unparser) resource(expr Expression, sep, name string, args []Expression) {
	u.write("(")
	expr.Accept(u)
	u.write(sep, name)
	for _, a := range args {
		u.write(":")
		a.Accept(u)
	}
	u.write(")")
}

func (u *unparser) VisitBindingBehavior(e *BindingBehavior) any {
	u.resource(e.Expression, "&", e.Name, e.Args)
	return nil
}

func (u *unparser) VisitValueConverter(e *ValueConverter) any {
	u.resource(e.Expression, "|", e.Name, e.Args)
	return nil
}

func (u *unparser) VisitArrayBindingPattern(e *ArrayBindingPattern) any {
	u.list("[", "]", e.Elements)
	return nil
}

func (u *unparser) VisitObjectBindingPattern(e *ObjectBindingPattern) any {
	u.keyed(e.Keys, e.Values)
	return nil
}

func (u *unparser) VisitBindingIdentifier(e *BindingIdentifier) any {
	u.write(e.Name)
	return nil
}
