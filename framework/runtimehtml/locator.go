package runtimehtml

import (
	"strings"
	"sync"

	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/observation"
)

type nsAttribute struct {
	localName string
	namespace string
}

// nsAttributes are the namespaced attributes HTML allows on foreign
// elements.
var nsAttributes = map[string]nsAttribute{
	"xlink:actuate": {"actuate", dom.XLinkNS},
	"xlink:arcrole": {"arcrole", dom.XLinkNS},
	"xlink:href":    {"href", dom.XLinkNS},
	"xlink:role":    {"role", dom.XLinkNS},
	"xlink:show":    {"show", dom.XLinkNS},
	"xlink:title":   {"title", dom.XLinkNS},
	"xlink:type":    {"type", dom.XLinkNS},
	"xml:lang":      {"lang", dom.XMLNS},
	"xml:space":     {"space", dom.XMLNS},
	"xmlns":         {"xmlns", dom.XMLNSNS},
	"xmlns:xlink":   {"xlink", dom.XMLNSNS},
}

// overrideProps must never be written through the plain element property,
// so the accessor path hands out the observer for them.
var overrideProps = func() map[string]struct{} {
	m := toSet("class", "style", "css", "checked", "value", "model")
	for name := range nsAttributes {
		m[name] = struct{}{}
	}
	return m
}()

// dataAttributes remembers names known to be aria-/data- attributes.
var dataAttributes sync.Map

// isDataAttribute reports whether name must be written as an attribute:
// aria-* and data-* always, standard SVG attributes per element.
func isDataAttribute(obj any, name string, svg SVGAnalyzer) bool {
	if _, ok := dataAttributes.Load(name); ok {
		return true
	}
	if strings.HasPrefix(name, "aria-") || strings.HasPrefix(name, "data-") {
		dataAttributes.Store(name, true)
		return true
	}
	return svg != nil && svg.IsStandardSVGAttribute(obj, name)
}

// ── TargetObserverLocator ─────────────────────────────────────────────────────

// TargetObserverLocator supplies observers for DOM nodes.
type TargetObserverLocator struct {
	dom dom.DOM
	svg SVGAnalyzer
}

func NewTargetObserverLocator(d dom.DOM, svg SVGAnalyzer) *TargetObserverLocator {
	return &TargetObserverLocator{dom: d, svg: svg}
}

// GetObserver classifies name in this order: the special-cased element
// properties, the namespaced attributes, then data attributes. Anything
// else yields nil and is observed as a plain property.
func (l *TargetObserverLocator) GetObserver(flags observation.LifecycleFlags, lifecycle observation.Lifecycle, _ *observation.ObserverLocator, obj any, name string) observation.Accessor {
	el, ok := obj.(dom.Element)
	if !ok {
		if _, isNode := obj.(dom.Node); isNode && name == "textContent" {
			return NewElementPropertyAccessor(lifecycle, obj, name)
		}
		return nil
	}

	switch name {
	case "checked":
		return NewCheckedObserver(lifecycle, NewEventSubscriber(inputEvents...), el)
	case "value":
		if el.TagName() == "SELECT" {
			return NewSelectValueObserver(lifecycle, NewEventSubscriber(selectEvents...), el)
		}
		return NewValueAttributeObserver(lifecycle, NewEventSubscriber(inputEvents...), el, name)
	case "files":
		return NewValueAttributeObserver(lifecycle, NewEventSubscriber(inputEvents...), el, name)
	case "textContent", "innerHTML":
		return NewValueAttributeObserver(lifecycle, NewEventSubscriber(contentEvents...), el, name)
	case "scrollTop", "scrollLeft":
		return NewValueAttributeObserver(lifecycle, NewEventSubscriber(scrollEvents...), el, name)
	case "class":
		return NewClassAttributeAccessor(lifecycle, el)
	case "style", "css":
		return NewStyleAttributeAccessor(lifecycle, el)
	case "model":
		return observation.NewSetterObserver(flags, el, name)
	case "role":
		return NewDataAttributeAccessor(lifecycle, el, name)
	}
	if ns, ok := nsAttributes[name]; ok {
		return NewAttributeNSAccessor(lifecycle, el, ns.localName, ns.namespace)
	}
	if isDataAttribute(el, name, l.svg) {
		return NewDataAttributeAccessor(lifecycle, el, name)
	}
	return nil
}

func (l *TargetObserverLocator) OverridesAccessor(_ observation.LifecycleFlags, _ any, name string) bool {
	_, ok := overrideProps[name]
	return ok
}

func (l *TargetObserverLocator) Handles(_ observation.LifecycleFlags, obj any) bool {
	return l.dom.IsNodeInstance(obj)
}

// ── TargetAccessorLocator ─────────────────────────────────────────────────────

// TargetAccessorLocator supplies write-only accessors for DOM nodes.
type TargetAccessorLocator struct {
	dom dom.DOM
	svg SVGAnalyzer
}

func NewTargetAccessorLocator(d dom.DOM, svg SVGAnalyzer) *TargetAccessorLocator {
	return &TargetAccessorLocator{dom: d, svg: svg}
}

// GetAccessor always returns an accessor; the element property accessor
// is the fallback.
func (l *TargetAccessorLocator) GetAccessor(_ observation.LifecycleFlags, lifecycle observation.Lifecycle, obj any, name string) observation.Accessor {
	el, ok := obj.(dom.Element)
	if !ok {
		return NewElementPropertyAccessor(lifecycle, obj, name)
	}

	switch name {
	case "textContent":
		return NewElementPropertyAccessor(lifecycle, el, name)
	case "class":
		return NewClassAttributeAccessor(lifecycle, el)
	case "style", "css":
		return NewStyleAttributeAccessor(lifecycle, el)
	case "src", "href", "role":
		return NewDataAttributeAccessor(lifecycle, el, name)
	}
	if ns, ok := nsAttributes[name]; ok {
		return NewAttributeNSAccessor(lifecycle, el, ns.localName, ns.namespace)
	}
	if isDataAttribute(el, name, l.svg) {
		return NewDataAttributeAccessor(lifecycle, el, name)
	}
	return NewElementPropertyAccessor(lifecycle, el, name)
}

func (l *TargetAccessorLocator) Handles(_ observation.LifecycleFlags, obj any) bool {
	return l.dom.IsNodeInstance(obj)
}
