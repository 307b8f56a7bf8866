package dom

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Document is an in-memory DOM. It is safe for concurrent use; handlers are
// invoked without holding any lock.
type Document struct{}

// NewDocument returns an empty in-memory document.
func NewDocument() *Document { return &Document{} }

func (d *Document) IsNodeInstance(v any) bool {
	switch v.(type) {
	case *ElementNode, *TextNode:
		return true
	}
	return false
}

func (d *Document) CreateElement(tagName string) Element {
	return newElement(HTMLNS, tagName)
}

func (d *Document) CreateElementNS(namespace, qualifiedName string) Element {
	return newElement(namespace, qualifiedName)
}

func (d *Document) CreateTextNode(text string) Node {
	return &TextNode{text: text}
}

// ── Text nodes ───────────────────────────────────────────────────────────────

// TextNode is a text node.
type TextNode struct {
	mu     sync.RWMutex
	text   string
	parent Node
}

func (t *TextNode) NodeName() string   { return "#text" }
func (t *TextNode) ChildNodes() []Node { return nil }

func (t *TextNode) ParentNode() Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.parent
}

func (t *TextNode) TextContent() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

func (t *TextNode) SetTextContent(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = text
}

func (t *TextNode) setParent(p Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parent = p
}

// ── Elements ─────────────────────────────────────────────────────────────────

type attrKey struct {
	namespace string
	local     string
}

type attr struct {
	qualified string
	value     string
}

// ElementNode is an in-memory element.
type ElementNode struct {
	mu        sync.RWMutex
	namespace string
	tagName   string
	parent    Node
	children  []Node
	attrs     map[attrKey]*attr
	attrOrder []attrKey
	props     map[string]any
	listeners map[string][]EventHandler
	style     *styleDecl
	classes   *classList
}

func newElement(namespace, qualifiedName string) *ElementNode {
	tag := qualifiedName
	if namespace == HTMLNS {
		tag = strings.ToUpper(qualifiedName)
	}
	el := &ElementNode{
		namespace: namespace,
		tagName:   tag,
		attrs:     make(map[attrKey]*attr),
		props:     make(map[string]any),
		listeners: make(map[string][]EventHandler),
		style:     &styleDecl{values: make(map[string]styleValue)},
	}
	el.classes = &classList{el: el}
	return el
}

func (e *ElementNode) NodeName() string     { return e.tagName }
func (e *ElementNode) TagName() string      { return e.tagName }
func (e *ElementNode) NamespaceURI() string { return e.namespace }

func (e *ElementNode) ParentNode() Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parent
}

func (e *ElementNode) ChildNodes() []Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Node(nil), e.children...)
}

// AppendChild adds child as the last child of e.
func (e *ElementNode) AppendChild(child Node) {
	switch c := child.(type) {
	case *ElementNode:
		c.mu.Lock()
		c.parent = e
		c.mu.Unlock()
	case *TextNode:
		c.setParent(e)
	}
	e.mu.Lock()
	e.children = append(e.children, child)
	e.mu.Unlock()
}

// Children returns the element children of e.
func (e *ElementNode) Children() []*ElementNode {
	var out []*ElementNode
	for _, n := range e.ChildNodes() {
		if el, ok := n.(*ElementNode); ok {
			out = append(out, el)
		}
	}
	return out
}

func (e *ElementNode) TextContent() string {
	var sb strings.Builder
	for _, n := range e.ChildNodes() {
		sb.WriteString(n.TextContent())
	}
	return sb.String()
}

func (e *ElementNode) SetTextContent(text string) {
	t := &TextNode{text: text, parent: e}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.children = []Node{t}
}

// ── Attributes ───────────────────────────────────────────────────────────────

func (e *ElementNode) GetAttribute(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, k := range e.attrOrder {
		if a := e.attrs[k]; a.qualified == name {
			return a.value, true
		}
	}
	return "", false
}

func (e *ElementNode) SetAttribute(name, value string) {
	e.SetAttributeNS("", name, value)
}

func (e *ElementNode) RemoveAttribute(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, k := range e.attrOrder {
		if e.attrs[k].qualified == name {
			e.removeAttrLocked(k)
			return
		}
	}
}

func (e *ElementNode) HasAttribute(name string) bool {
	_, ok := e.GetAttribute(name)
	return ok
}

func (e *ElementNode) GetAttributeNS(namespace, localName string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if a, ok := e.attrs[attrKey{namespace, localName}]; ok {
		return a.value, true
	}
	return "", false
}

func (e *ElementNode) SetAttributeNS(namespace, qualifiedName, value string) {
	local := qualifiedName
	if namespace != "" {
		if i := strings.IndexByte(qualifiedName, ':'); i >= 0 {
			local = qualifiedName[i+1:]
		}
	}
	k := attrKey{namespace, local}

	e.mu.Lock()
	if a, ok := e.attrs[k]; ok {
		a.value = value
	} else {
		e.attrs[k] = &attr{qualified: qualifiedName, value: value}
		e.attrOrder = append(e.attrOrder, k)
	}
	e.mu.Unlock()

	if namespace == "" && qualifiedName == "style" {
		e.style.setCSSText(value)
	}
}

func (e *ElementNode) RemoveAttributeNS(namespace, localName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeAttrLocked(attrKey{namespace, localName})
}

func (e *ElementNode) removeAttrLocked(k attrKey) {
	if _, ok := e.attrs[k]; !ok {
		return
	}
	delete(e.attrs, k)
	for i, existing := range e.attrOrder {
		if existing == k {
			e.attrOrder = append(e.attrOrder[:i], e.attrOrder[i+1:]...)
			break
		}
	}
}

// Attributes returns qualified name → value for every attribute.
func (e *ElementNode) Attributes() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]string, len(e.attrs))
	for _, k := range e.attrOrder {
		a := e.attrs[k]
		out[a.qualified] = a.value
	}
	return out
}

// ── Properties ───────────────────────────────────────────────────────────────

// GetProperty returns JS-style element state. Unset "value" reads the value
// attribute, unset "checked" reads false, "textContent" reads the text of
// the subtree, and "className" mirrors the class attribute.
func (e *ElementNode) GetProperty(name string) any {
	switch name {
	case "textContent", "innerHTML":
		return e.TextContent()
	case "className":
		v, _ := e.GetAttribute("class")
		return v
	case "tagName":
		return e.tagName
	}

	e.mu.RLock()
	v, ok := e.props[name]
	e.mu.RUnlock()
	if ok {
		return v
	}

	switch name {
	case "value":
		if e.tagName == "SELECT" {
			return e.selectValue()
		}
		if e.tagName == "OPTION" {
			if a, ok := e.GetAttribute("value"); ok {
				return a
			}
			return e.TextContent()
		}
		a, _ := e.GetAttribute("value")
		return a
	case "checked":
		return e.HasAttribute("checked")
	case "selected":
		return e.HasAttribute("selected")
	case "multiple":
		return e.HasAttribute("multiple")
	case "type":
		a, _ := e.GetAttribute("type")
		return a
	case "scrollTop", "scrollLeft":
		return 0.0
	}
	return nil
}

func (e *ElementNode) SetProperty(name string, value any) {
	switch name {
	case "textContent", "innerHTML":
		e.SetTextContent(fmt.Sprint(value))
		return
	case "className":
		e.SetAttribute("class", fmt.Sprint(value))
		return
	}
	if name == "value" && e.tagName == "SELECT" {
		s := fmt.Sprint(value)
		for _, opt := range e.Options() {
			opt.SetProperty("selected", opt.GetProperty("value") == s)
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.props[name] = value
}

// Options returns the OPTION descendants of a SELECT, in document order.
func (e *ElementNode) Options() []*ElementNode {
	var out []*ElementNode
	var walk func(n *ElementNode)
	walk = func(n *ElementNode) {
		for _, c := range n.Children() {
			if c.tagName == "OPTION" {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

func (e *ElementNode) selectValue() any {
	for _, opt := range e.Options() {
		if opt.GetProperty("selected") == true {
			return opt.GetProperty("value")
		}
	}
	return ""
}

// ── Events ───────────────────────────────────────────────────────────────────

func (e *ElementNode) AddEventListener(eventType string, h EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.listeners[eventType] {
		if existing == h {
			return
		}
	}
	e.listeners[eventType] = append(e.listeners[eventType], h)
}

func (e *ElementNode) RemoveEventListener(eventType string, h EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.listeners[eventType]
	for i, existing := range list {
		if existing == h {
			e.listeners[eventType] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of handlers for eventType.
func (e *ElementNode) ListenerCount(eventType string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[eventType])
}

// DispatchEvent delivers ev to e's handlers and bubbles it to ancestors.
func (e *ElementNode) DispatchEvent(ev *Event) {
	if ev.Target == nil {
		ev.Target = e
	}
	for n := Node(e); n != nil; n = n.ParentNode() {
		el, ok := n.(*ElementNode)
		if !ok {
			continue
		}
		el.mu.RLock()
		handlers := append([]EventHandler(nil), el.listeners[ev.Type]...)
		el.mu.RUnlock()
		for _, h := range handlers {
			h.HandleEvent(ev)
		}
	}
}

// ── ClassList ────────────────────────────────────────────────────────────────

type classList struct{ el *ElementNode }

func (c *classList) Values() []string {
	v, _ := c.el.GetAttribute("class")
	return strings.Fields(v)
}

func (c *classList) Contains(token string) bool {
	for _, t := range c.Values() {
		if t == token {
			return true
		}
	}
	return false
}

func (c *classList) Add(tokens ...string) {
	current := c.Values()
	for _, t := range tokens {
		if t != "" && !contains(current, t) {
			current = append(current, t)
		}
	}
	c.el.SetAttribute("class", strings.Join(current, " "))
}

func (c *classList) Remove(tokens ...string) {
	current := c.Values()
	kept := current[:0]
	for _, t := range current {
		if !contains(tokens, t) {
			kept = append(kept, t)
		}
	}
	c.el.SetAttribute("class", strings.Join(kept, " "))
}

func (e *ElementNode) ClassList() ClassList { return e.classes }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ── Style ────────────────────────────────────────────────────────────────────

type styleValue struct {
	value    string
	priority string
	order    int
}

type styleDecl struct {
	mu     sync.RWMutex
	values map[string]styleValue
	next   int
}

func (s *styleDecl) SetProperty(name, value, priority string) {
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.values, name)
		return
	}
	order := s.next
	if existing, ok := s.values[name]; ok {
		order = existing.order
	} else {
		s.next++
	}
	s.values[name] = styleValue{value: value, priority: priority, order: order}
}

func (s *styleDecl) RemoveProperty(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
}

func (s *styleDecl) GetPropertyValue(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name].value
}

func (s *styleDecl) GetPropertyPriority(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name].priority
}

func (s *styleDecl) CSSText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.values))
	for n := range s.values {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return s.values[names[i]].order < s.values[names[j]].order })

	parts := make([]string, 0, len(names))
	for _, n := range names {
		v := s.values[n]
		if v.priority != "" {
			parts = append(parts, fmt.Sprintf("%s: %s !%s;", n, v.value, v.priority))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s;", n, v.value))
		}
	}
	return strings.Join(parts, " ")
}

// setCSSText replaces every declaration with those parsed from text.
func (s *styleDecl) setCSSText(text string) {
	s.mu.Lock()
	s.values = make(map[string]styleValue)
	s.next = 0
	s.mu.Unlock()
	for _, decl := range strings.Split(text, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		priority := ""
		if i := strings.Index(value, "!important"); i >= 0 {
			value = value[:i]
			priority = "important"
		}
		s.SetProperty(name, value, priority)
	}
}

func (e *ElementNode) Style() Style { return e.style }
