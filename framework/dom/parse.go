package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses markup as the children of a <div> and converts the
// result into in-memory nodes. Comments and doctypes are dropped.
//
//	nodes, err := doc.ParseFragment(`<input type="checkbox" checked>`)
func (d *Document) ParseFragment(markup string) ([]Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	parsed, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}

	out := make([]Node, 0, len(parsed))
	for _, n := range parsed {
		if converted := convert(n); converted != nil {
			out = append(out, converted)
		}
	}
	return out, nil
}

// ParseElement parses markup and returns its first element.
func (d *Document) ParseElement(markup string) (*ElementNode, error) {
	nodes, err := d.ParseFragment(markup)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if el, ok := n.(*ElementNode); ok {
			return el, nil
		}
	}
	return nil, fmt.Errorf("dom: no element in %q", markup)
}

func convert(n *html.Node) Node {
	switch n.Type {
	case html.TextNode:
		return &TextNode{text: n.Data}
	case html.ElementNode:
		ns := HTMLNS
		switch n.Namespace {
		case "svg":
			ns = SVGNS
		case "math":
			ns = MathMLNS
		}
		el := newElement(ns, n.Data)
		for _, a := range n.Attr {
			switch a.Namespace {
			case "xlink":
				el.SetAttributeNS(XLinkNS, "xlink:"+a.Key, a.Val)
			case "xml":
				el.SetAttributeNS(XMLNS, "xml:"+a.Key, a.Val)
			case "xmlns":
				el.SetAttributeNS(XMLNSNS, "xmlns:"+a.Key, a.Val)
			default:
				el.SetAttribute(a.Key, a.Val)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := convert(c); child != nil {
				el.AppendChild(child)
			}
		}
		return el
	default:
		return nil
	}
}
