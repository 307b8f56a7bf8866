// Package dom defines the slice of the document object model the binding
// layer talks to, plus an in-memory implementation of it.
//
// Observers and accessors only depend on the interfaces. The in-memory
// Document is what the console, the inspector and the tests render into;
// a browser-backed implementation would satisfy the same interfaces.
package dom

// Namespaces used by namespaced attributes.
const (
	HTMLNS   = "http://www.w3.org/1999/xhtml"
	MathMLNS = "http://www.w3.org/1998/Math/MathML"
	SVGNS    = "http://www.w3.org/2000/svg"
	XLinkNS  = "http://www.w3.org/1999/xlink"
	XMLNS    = "http://www.w3.org/XML/1998/namespace"
	XMLNSNS  = "http://www.w3.org/2000/xmlns/"
)

// Node is any node in a document tree.
type Node interface {
	NodeName() string
	ParentNode() Node
	ChildNodes() []Node
	TextContent() string
	SetTextContent(text string)
}

// EventHandler receives dispatched events. Implementations must be
// comparable (pointer receivers) so they can be removed again.
type EventHandler interface {
	HandleEvent(e *Event)
}

// EventTarget can have handlers attached per event type.
type EventTarget interface {
	AddEventListener(eventType string, h EventHandler)
	RemoveEventListener(eventType string, h EventHandler)
	DispatchEvent(e *Event)
}

// Event is a dispatched DOM event.
type Event struct {
	Type string

	// Target is the node the event was dispatched on.
	Target Node

	// Path is the composed path when the event crossed shadow roots; the
	// first entry is then the original target.
	Path []Node

	Detail any

	defaultPrevented bool
}

// NewEvent creates an event of eventType.
func NewEvent(eventType string) *Event { return &Event{Type: eventType} }

func (e *Event) PreventDefault()        { e.defaultPrevented = true }
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// OriginalTarget returns the first node of the composed path, or Target.
func (e *Event) OriginalTarget() Node {
	if len(e.Path) > 0 {
		return e.Path[0]
	}
	return e.Target
}

// ClassList is an element's class token set.
type ClassList interface {
	Add(tokens ...string)
	Remove(tokens ...string)
	Contains(token string) bool
	Values() []string
}

// Style is an element's inline style declaration.
type Style interface {
	SetProperty(name, value, priority string)
	RemoveProperty(name string)
	GetPropertyValue(name string) string
	GetPropertyPriority(name string) string
	CSSText() string
}

// Element is an element node.
type Element interface {
	Node
	EventTarget

	// TagName is upper-case for HTML elements.
	TagName() string
	NamespaceURI() string

	GetAttribute(name string) (string, bool)
	SetAttribute(name, value string)
	RemoveAttribute(name string)
	HasAttribute(name string) bool

	GetAttributeNS(namespace, localName string) (string, bool)
	SetAttributeNS(namespace, qualifiedName, value string)
	RemoveAttributeNS(namespace, localName string)

	ClassList() ClassList
	Style() Style

	// GetProperty and SetProperty expose JS-style element properties
	// (value, checked, files, scrollTop, arbitrary expandos).
	GetProperty(name string) any
	SetProperty(name string, value any)
}

// DOM is the host capability injected into the binding layer.
type DOM interface {
	IsNodeInstance(v any) bool
	CreateElement(tagName string) Element
	CreateElementNS(namespace, qualifiedName string) Element
	CreateTextNode(text string) Node
}
