package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ── Queries ──────────────────────────────────────────────────────────────────

// Walk calls fn for root and each descendant in document order until fn
// returns false.
func Walk(root Node, fn func(n Node) bool) bool {
	if root == nil {
		return true
	}
	if !fn(root) {
		return false
	}
	for _, c := range root.ChildNodes() {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// GetElementByID returns the first element below root (root included) whose
// id attribute is id, or nil.
func GetElementByID(root Node, id string) Element {
	var found Element
	Walk(root, func(n Node) bool {
		if el, ok := n.(Element); ok {
			if v, ok := el.GetAttribute("id"); ok && v == id {
				found = el
				return false
			}
		}
		return true
	})
	return found
}

// ── Serialization ────────────────────────────────────────────────────────────

// Render serializes the in-memory tree below n as HTML. The style attribute
// is written from the live declaration. Properties such as value or checked
// are state, not markup, and are not written.
func Render(nodes ...Node) (string, error) {
	var sb strings.Builder
	for _, n := range nodes {
		converted := toHTML(n)
		if converted == nil {
			continue
		}
		if err := html.Render(&sb, converted); err != nil {
			return "", fmt.Errorf("dom: render: %w", err)
		}
	}
	return sb.String(), nil
}

func toHTML(n Node) *html.Node {
	switch n := n.(type) {
	case *TextNode:
		return &html.Node{Type: html.TextNode, Data: n.TextContent()}
	case *ElementNode:
		out := &html.Node{Type: html.ElementNode}
		switch n.namespace {
		case SVGNS:
			out.Namespace = "svg"
			out.Data = n.tagName
		case MathMLNS:
			out.Namespace = "math"
			out.Data = n.tagName
		default:
			out.Data = strings.ToLower(n.tagName)
		}
		out.DataAtom = atom.Lookup([]byte(out.Data))
		out.Attr = renderAttrs(n)
		for _, c := range n.ChildNodes() {
			if child := toHTML(c); child != nil {
				out.AppendChild(child)
			}
		}
		return out
	}
	return nil
}

func renderAttrs(e *ElementNode) []html.Attribute {
	css := e.style.CSSText()

	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]html.Attribute, 0, len(e.attrOrder)+1)
	wroteStyle := false
	for _, k := range e.attrOrder {
		a := e.attrs[k]
		if k.namespace == "" && a.qualified == "style" {
			wroteStyle = true
			if css != "" {
				out = append(out, html.Attribute{Key: "style", Val: css})
			}
			continue
		}
		attr := html.Attribute{Key: a.qualified, Val: a.value}
		if prefix, local, ok := strings.Cut(a.qualified, ":"); ok && k.namespace != "" {
			attr.Namespace, attr.Key = prefix, local
		}
		out = append(out, attr)
	}
	if !wroteStyle && css != "" {
		out = append(out, html.Attribute{Key: "style", Val: css})
	}
	return out
}
