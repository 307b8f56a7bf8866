package runtimehtml

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/observation"
)

// ── targetWriter ──────────────────────────────────────────────────────────────

// targetWriter holds the value a binding last wrote and applies it to the
// DOM, either right away (no lifecycle, FromBind or FromFlush) or on the
// next flush of the lifecycle queue.
type targetWriter struct {
	mu        sync.Mutex
	lifecycle observation.Lifecycle
	self      observation.Flushable
	apply     func(value any, flags observation.LifecycleFlags)
	current   any
	old       any
	pending   bool
}

func (w *targetWriter) init(lifecycle observation.Lifecycle, self observation.Flushable, initial any, apply func(any, observation.LifecycleFlags)) {
	w.lifecycle = lifecycle
	w.self = self
	w.apply = apply
	w.current = initial
	w.old = initial
}

func (w *targetWriter) write(value any, flags observation.LifecycleFlags) {
	w.mu.Lock()
	if observation.Same(w.current, value) {
		w.mu.Unlock()
		return
	}
	w.current = value
	if w.lifecycle == nil || flags&(observation.FromBind|observation.FromFlush) != 0 {
		w.pending = false
		w.old = value
		w.mu.Unlock()
		w.apply(value, flags)
		return
	}
	w.pending = true
	w.mu.Unlock()
	w.lifecycle.EnqueueFlush(w.self)
}

// Flush applies a pending write.
func (w *targetWriter) Flush(flags observation.LifecycleFlags) {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	value := w.current
	w.old = value
	w.mu.Unlock()
	w.apply(value, flags)
}

// HasChanges reports whether a write is waiting for a flush.
func (w *targetWriter) HasChanges() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

func (w *targetWriter) currentValue() any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// ── ClassAttributeAccessor ────────────────────────────────────────────────────

// ClassAttributeAccessor adds the classes of each written value and removes
// the classes the previous write added that the new one does not name.
// Classes added by anyone else are left alone.
//
// Values may be a space-separated string, a list of names, or a map of
// name to condition.
type ClassAttributeAccessor struct {
	targetWriter
	obj dom.Element

	names   map[string]int
	version int
}

func NewClassAttributeAccessor(lifecycle observation.Lifecycle, obj dom.Element) *ClassAttributeAccessor {
	a := &ClassAttributeAccessor{obj: obj, names: make(map[string]int)}
	a.init(lifecycle, a, "", a.setValueCore)
	return a
}

func (a *ClassAttributeAccessor) GetValue() any { return a.currentValue() }

func (a *ClassAttributeAccessor) SetValue(value any, flags observation.LifecycleFlags) {
	a.write(value, flags)
}

func (a *ClassAttributeAccessor) setValueCore(value any, _ observation.LifecycleFlags) {
	version := a.version
	for _, name := range classNames(value) {
		a.names[name] = version
		a.obj.ClassList().Add(name)
	}
	a.version++
	if version == 0 {
		return
	}
	version--
	for name, v := range a.names {
		if v == version {
			a.obj.ClassList().Remove(name)
			delete(a.names, name)
		}
	}
}

func classNames(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return strings.Fields(v)
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, strings.Fields(ast.ToString(item))...)
		}
		return out
	}
	if observation.IsObject(value) {
		var out []string
		for _, k := range observation.Keys(value) {
			if ast.Truthy(observation.GetProperty(value, k)) {
				out = append(out, strings.Fields(k)...)
			}
		}
		return out
	}
	return strings.Fields(ast.ToString(value))
}

// ── StyleAttributeAccessor ────────────────────────────────────────────────────

// StyleAttributeAccessor applies CSS text or a property map to an element's
// inline style. Every declaration it writes is stamped with the current
// version; after a write, declarations still carrying the previous version
// were not part of the new value and are removed. Declarations set by
// anyone else are never touched.
type StyleAttributeAccessor struct {
	targetWriter
	obj dom.Element

	styles  map[string]int
	version int
}

func NewStyleAttributeAccessor(lifecycle observation.Lifecycle, obj dom.Element) *StyleAttributeAccessor {
	a := &StyleAttributeAccessor{obj: obj, styles: make(map[string]int)}
	a.init(lifecycle, a, obj.Style().CSSText(), a.setValueCore)
	return a
}

// GetValue returns the element's current CSS text.
func (a *StyleAttributeAccessor) GetValue() any { return a.obj.Style().CSSText() }

func (a *StyleAttributeAccessor) SetValue(value any, flags observation.LifecycleFlags) {
	a.write(value, flags)
}

// Version is the number of writes applied so far.
func (a *StyleAttributeAccessor) Version() int { return a.version }

var (
	// styleDeclaration matches one "name: value" pair. Values may contain
	// function calls with quoted or nested arguments and commas.
	styleDeclaration = regexp.MustCompile(`\s*([\w\-]+)\s*:\s*((?:(?:[\w\-]+\(\s*(?:"(?:\\"|[^"])*"|'(?:\\'|[^'])*'|[\w\-]+\(\s*(?:[^"](?:\\"|[^"])*"|'(?:\\'|[^'])*'|[^\)]*)\),?|[^\)]*)\),?|"(?:\\"|[^"])*"|'(?:\\'|[^'])*'|[^;]*),?\s*)+);?`)
	upperCase        = regexp.MustCompile(`[A-Z]`)
)

func (a *StyleAttributeAccessor) setValueCore(value any, _ observation.LifecycleFlags) {
	version := a.version

	switch v := value.(type) {
	case nil:
	case string:
		for _, m := range styleDeclaration.FindAllStringSubmatch(v, -1) {
			if m[1] == "" {
				continue
			}
			a.styles[m[1]] = version
			a.setProperty(m[1], m[2])
		}
	default:
		if observation.IsObject(value) {
			keys := observation.Keys(value)
			sort.Strings(keys)
			for _, k := range keys {
				name := kebabCase(k)
				a.styles[name] = version
				a.setProperty(name, ast.ToString(observation.GetProperty(value, k)))
			}
		}
	}

	a.version++
	if version == 0 {
		return
	}
	version--
	for name, v := range a.styles {
		if v == version {
			a.obj.Style().RemoveProperty(name)
			delete(a.styles, name)
		}
	}
}

// setProperty moves a "!important" marker into the priority.
func (a *StyleAttributeAccessor) setProperty(name, value string) {
	priority := ""
	if strings.Contains(value, "!important") {
		priority = "important"
		value = strings.Replace(value, "!important", "", 1)
	}
	a.obj.Style().SetProperty(name, value, priority)
}

func kebabCase(s string) string {
	return upperCase.ReplaceAllStringFunc(s, func(m string) string { return "-" + strings.ToLower(m) })
}

// ── DataAttributeAccessor ─────────────────────────────────────────────────────

// DataAttributeAccessor writes an attribute. nil removes it.
type DataAttributeAccessor struct {
	targetWriter
	obj           dom.Element
	attributeName string
}

func NewDataAttributeAccessor(lifecycle observation.Lifecycle, obj dom.Element, attributeName string) *DataAttributeAccessor {
	a := &DataAttributeAccessor{obj: obj, attributeName: attributeName}
	a.init(lifecycle, a, a.GetValue(), a.setValueCore)
	return a
}

func (a *DataAttributeAccessor) AttributeName() string { return a.attributeName }

func (a *DataAttributeAccessor) GetValue() any {
	if v, ok := a.obj.GetAttribute(a.attributeName); ok {
		return v
	}
	return nil
}

func (a *DataAttributeAccessor) SetValue(value any, flags observation.LifecycleFlags) {
	a.write(value, flags)
}

func (a *DataAttributeAccessor) setValueCore(value any, _ observation.LifecycleFlags) {
	if value == nil {
		a.obj.RemoveAttribute(a.attributeName)
		return
	}
	a.obj.SetAttribute(a.attributeName, ast.ToString(value))
}

// ── AttributeNSAccessor ───────────────────────────────────────────────────────

// AttributeNSAccessor writes a namespaced attribute such as xlink:href.
type AttributeNSAccessor struct {
	targetWriter
	obj           dom.Element
	attributeName string
	namespace     string
}

func NewAttributeNSAccessor(lifecycle observation.Lifecycle, obj dom.Element, attributeName, namespace string) *AttributeNSAccessor {
	a := &AttributeNSAccessor{obj: obj, attributeName: attributeName, namespace: namespace}
	a.init(lifecycle, a, a.GetValue(), a.setValueCore)
	return a
}

func (a *AttributeNSAccessor) Namespace() string { return a.namespace }

func (a *AttributeNSAccessor) GetValue() any {
	if v, ok := a.obj.GetAttributeNS(a.namespace, a.attributeName); ok {
		return v
	}
	return nil
}

func (a *AttributeNSAccessor) SetValue(value any, flags observation.LifecycleFlags) {
	a.write(value, flags)
}

func (a *AttributeNSAccessor) setValueCore(value any, _ observation.LifecycleFlags) {
	if value == nil {
		a.obj.RemoveAttributeNS(a.namespace, a.attributeName)
		return
	}
	a.obj.SetAttributeNS(a.namespace, a.attributeName, ast.ToString(value))
}

// ── ElementPropertyAccessor ───────────────────────────────────────────────────

// ElementPropertyAccessor writes a node property. Text nodes only carry
// textContent.
type ElementPropertyAccessor struct {
	targetWriter
	obj          any
	propertyName string
}

func NewElementPropertyAccessor(lifecycle observation.Lifecycle, obj any, propertyName string) *ElementPropertyAccessor {
	a := &ElementPropertyAccessor{obj: obj, propertyName: propertyName}
	a.init(lifecycle, a, a.GetValue(), a.setValueCore)
	return a
}

func (a *ElementPropertyAccessor) GetValue() any {
	if el, ok := a.obj.(dom.Element); ok {
		return el.GetProperty(a.propertyName)
	}
	if n, ok := a.obj.(dom.Node); ok && a.propertyName == "textContent" {
		return n.TextContent()
	}
	return observation.GetProperty(a.obj, a.propertyName)
}

func (a *ElementPropertyAccessor) SetValue(value any, flags observation.LifecycleFlags) {
	a.write(value, flags)
}

func (a *ElementPropertyAccessor) setValueCore(value any, _ observation.LifecycleFlags) {
	if value == nil && (a.propertyName == "textContent" || a.propertyName == "innerHTML") {
		value = ""
	}
	if el, ok := a.obj.(dom.Element); ok {
		el.SetProperty(a.propertyName, value)
		return
	}
	if n, ok := a.obj.(dom.Node); ok && a.propertyName == "textContent" {
		n.SetTextContent(ast.ToString(value))
		return
	}
	observation.SetProperty(a.obj, a.propertyName, value)
}
