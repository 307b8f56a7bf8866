package runtimehtml

import (
	"reflect"
	"sync"

	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/observation"
)

// Events each observer listens to.
var (
	inputEvents   = []string{"change", "input"}
	selectEvents  = []string{"change"}
	contentEvents = []string{"change", "input", "blur", "keyup", "paste"}
	scrollEvents  = []string{"scroll"}
)

// ── EventSubscriber ───────────────────────────────────────────────────────────

// EventSubscriber attaches one handler to a fixed set of event types on a
// single target, and detaches it again on Dispose.
type EventSubscriber struct {
	mu      sync.Mutex
	events  []string
	target  dom.EventTarget
	handler dom.EventHandler
}

func NewEventSubscriber(events ...string) *EventSubscriber {
	return &EventSubscriber{events: events}
}

func (s *EventSubscriber) Events() []string { return s.events }

// Subscribe listens on target. Subscribing to another target first
// releases the previous one.
func (s *EventSubscriber) Subscribe(target dom.EventTarget, handler dom.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == target && s.handler == handler {
		return
	}
	s.disposeLocked()
	s.target, s.handler = target, handler
	for _, e := range s.events {
		target.AddEventListener(e, handler)
	}
}

// Dispose removes the listeners. It is safe to call more than once.
func (s *EventSubscriber) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposeLocked()
}

func (s *EventSubscriber) disposeLocked() {
	if s.target == nil {
		return
	}
	for _, e := range s.events {
		s.target.RemoveEventListener(e, s.handler)
	}
	s.target, s.handler = nil, nil
}

// ── shared observer plumbing ──────────────────────────────────────────────────

// domObserver is the subscriber side every element observer shares: the
// DOM listeners exist exactly while someone is subscribed.
type domObserver struct {
	observation.Subscribers
	targetWriter
	handler *EventSubscriber
}

func (o *domObserver) subscribe(target dom.EventTarget, self dom.EventHandler, s observation.Subscriber) {
	o.Subscribers.Subscribe(s)
	if o.SubscriberCount() == 1 {
		o.handler.Subscribe(target, self)
	}
}

func (o *domObserver) unsubscribe(s observation.Subscriber) {
	o.Subscribers.Unsubscribe(s)
	if o.SubscriberCount() == 0 {
		o.handler.Dispose()
	}
}

// publish records a value read from the DOM and notifies subscribers when
// it differs from the last known one.
func (o *domObserver) publish(value any, equal func(a, b any) bool) {
	o.targetWriter.mu.Lock()
	old := o.current
	if equal(old, value) {
		o.targetWriter.mu.Unlock()
		return
	}
	o.current = value
	o.old = old
	o.targetWriter.mu.Unlock()
	o.Notify(value, old, observation.UpdateSourceExpression|observation.FromDOMEvent)
}

// ── ValueAttributeObserver ────────────────────────────────────────────────────

// ValueAttributeObserver observes an element property that user input
// changes: value, files, textContent, innerHTML and the scroll offsets.
type ValueAttributeObserver struct {
	domObserver
	obj          dom.Element
	propertyName string
}

func NewValueAttributeObserver(lifecycle observation.Lifecycle, handler *EventSubscriber, obj dom.Element, propertyName string) *ValueAttributeObserver {
	o := &ValueAttributeObserver{obj: obj, propertyName: propertyName}
	o.handler = handler
	o.init(lifecycle, o, obj.GetProperty(propertyName), o.setValueCore)
	return o
}

func (o *ValueAttributeObserver) PropertyName() string { return o.propertyName }

func (o *ValueAttributeObserver) GetValue() any { return o.currentValue() }

func (o *ValueAttributeObserver) SetValue(value any, flags observation.LifecycleFlags) {
	o.write(value, flags)
}

func (o *ValueAttributeObserver) setValueCore(value any, _ observation.LifecycleFlags) {
	if value == nil && o.propertyName != "files" {
		value = ""
	}
	o.obj.SetProperty(o.propertyName, value)
}

func (o *ValueAttributeObserver) HandleEvent(*dom.Event) {
	o.publish(o.obj.GetProperty(o.propertyName), observation.Same)
}

func (o *ValueAttributeObserver) Subscribe(s observation.Subscriber)   { o.subscribe(o.obj, o, s) }
func (o *ValueAttributeObserver) Unsubscribe(s observation.Subscriber) { o.unsubscribe(s) }

// ── CheckedObserver ───────────────────────────────────────────────────────────

// CheckedObserver observes the checked state of checkboxes and radios.
//
// A checkbox bound to a list is checked while the list contains the
// element's model (or value); toggling it adds or removes that entry. A
// checkbox bound to anything else is checked while the value is truthy. A
// radio is checked while the bound value matches its model.
type CheckedObserver struct {
	domObserver
	obj dom.Element
}

func NewCheckedObserver(lifecycle observation.Lifecycle, handler *EventSubscriber, obj dom.Element) *CheckedObserver {
	o := &CheckedObserver{obj: obj}
	o.handler = handler
	o.init(lifecycle, o, obj.GetProperty("checked"), o.setValueCore)
	return o
}

func (o *CheckedObserver) GetValue() any { return o.currentValue() }

func (o *CheckedObserver) SetValue(value any, flags observation.LifecycleFlags) {
	o.write(value, flags)
}

func (o *CheckedObserver) setValueCore(value any, _ observation.LifecycleFlags) {
	elementValue := modelOf(o.obj)
	match := matcherOf(o.obj)

	var checked bool
	if o.obj.GetProperty("type") == "radio" {
		checked = match(value, elementValue)
	} else if list, ok := asList(value); ok {
		checked = indexOf(list, elementValue, match) >= 0
	} else {
		checked = ast.Truthy(value)
	}
	o.obj.SetProperty("checked", checked)
}

func (o *CheckedObserver) HandleEvent(*dom.Event) {
	checked := o.obj.GetProperty("checked") == true
	elementValue := modelOf(o.obj)
	match := matcherOf(o.obj)

	var value any
	if o.obj.GetProperty("type") == "checkbox" {
		if list, ok := asList(o.currentValue()); ok {
			i := indexOf(list, elementValue, match)
			switch {
			case checked && i < 0:
				list = append(list, elementValue)
			case !checked && i >= 0:
				list = append(list[:i:i], list[i+1:]...)
			default:
				return
			}
			value = list
		} else {
			value = checked
		}
	} else if checked {
		value = elementValue
	} else {
		return
	}
	o.publish(value, observation.Same)
}

func (o *CheckedObserver) Subscribe(s observation.Subscriber)   { o.subscribe(o.obj, o, s) }
func (o *CheckedObserver) Unsubscribe(s observation.Subscriber) { o.unsubscribe(s) }

// ── SelectValueObserver ───────────────────────────────────────────────────────

// SelectValueObserver observes the value of a SELECT: the model (or value)
// of the selected option, or a list of them for a multiple select.
type SelectValueObserver struct {
	domObserver
	obj dom.Element
}

func NewSelectValueObserver(lifecycle observation.Lifecycle, handler *EventSubscriber, obj dom.Element) *SelectValueObserver {
	o := &SelectValueObserver{obj: obj}
	o.handler = handler
	o.init(lifecycle, o, o.readValue(), o.setValueCore)
	return o
}

func (o *SelectValueObserver) GetValue() any { return o.currentValue() }

func (o *SelectValueObserver) SetValue(value any, flags observation.LifecycleFlags) {
	o.write(value, flags)
}

// SynchronizeOptions re-applies the current value to the options, for
// when options were added or replaced.
func (o *SelectValueObserver) SynchronizeOptions(flags observation.LifecycleFlags) {
	o.setValueCore(o.currentValue(), flags)
}

func (o *SelectValueObserver) setValueCore(value any, _ observation.LifecycleFlags) {
	multiple := o.obj.GetProperty("multiple") == true
	list, isList := asList(value)
	match := matcherOf(o.obj)
	for _, opt := range options(o.obj) {
		v := modelOf(opt)
		if multiple && isList {
			opt.SetProperty("selected", indexOf(list, v, match) >= 0)
		} else {
			opt.SetProperty("selected", match(v, value))
		}
	}
}

func (o *SelectValueObserver) readValue() any {
	if o.obj.GetProperty("multiple") == true {
		values := []any{}
		for _, opt := range options(o.obj) {
			if opt.GetProperty("selected") == true {
				values = append(values, modelOf(opt))
			}
		}
		return values
	}
	for _, opt := range options(o.obj) {
		if opt.GetProperty("selected") == true {
			return modelOf(opt)
		}
	}
	return nil
}

func (o *SelectValueObserver) HandleEvent(*dom.Event) {
	o.publish(o.readValue(), sameOrEqualList)
}

func (o *SelectValueObserver) Subscribe(s observation.Subscriber)   { o.subscribe(o.obj, o, s) }
func (o *SelectValueObserver) Unsubscribe(s observation.Subscriber) { o.unsubscribe(s) }

// ── helpers ───────────────────────────────────────────────────────────────────

// modelOf is the value an option or checkbox stands for: its "model"
// property when one was bound, else its value.
func modelOf(el dom.Element) any {
	if m := el.GetProperty("model"); m != nil {
		return m
	}
	return el.GetProperty("value")
}

// matcherOf returns the element's "matcher" property when it is a
// comparison function, else strict equality.
func matcherOf(el dom.Element) func(a, b any) bool {
	if fn, ok := el.GetProperty("matcher").(func(a, b any) bool); ok {
		return fn
	}
	return observation.Same
}

func options(el dom.Element) []dom.Element {
	var out []dom.Element
	var walk func(n dom.Node)
	walk = func(n dom.Node) {
		for _, c := range n.ChildNodes() {
			if opt, ok := c.(dom.Element); ok {
				if opt.TagName() == "OPTION" {
					out = append(out, opt)
				}
				walk(opt)
			}
		}
	}
	walk(el)
	return out
}

// asList copies a slice or array value into a fresh []any.
func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func indexOf(list []any, v any, match func(a, b any) bool) int {
	for i, item := range list {
		if match(item, v) {
			return i
		}
	}
	return -1
}

func sameOrEqualList(a, b any) bool {
	la, aok := asList(a)
	lb, bok := asList(b)
	if !aok || !bok {
		return observation.Same(a, b)
	}
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if !observation.Same(la[i], lb[i]) {
			return false
		}
	}
	return true
}
