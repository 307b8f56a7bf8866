package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/observation"
)

// ── Definitions ──────────────────────────────────────────────────────────────

// ViewDefinition is markup plus the bindings to create on it, as read from
// a view file:
//
//	markup: <p id="greeting"></p><input id="name">
//	scope:
//	  name: Ada
//	bindings:
//	  - target: greeting
//	    property: textContent
//	    expression: {$kind: AccessScope, name: name}
//	  - target: name
//	    property: value
//	    mode: twoWay
//	    expression: {$kind: AccessScope, name: name}
type ViewDefinition struct {
	Markup   string              `yaml:"markup" validate:"required"`
	Scope    map[string]any      `yaml:"scope"`
	Bindings []BindingDefinition `yaml:"bindings" validate:"dive"`
}

// BindingDefinition describes one binding. Target is an element id. Event
// makes it a listener; otherwise Property is bound with Mode.
type BindingDefinition struct {
	Target         string         `yaml:"target" validate:"required"`
	Property       string         `yaml:"property" validate:"required_without=Event"`
	Event          string         `yaml:"event"`
	Mode           string         `yaml:"mode" validate:"omitempty,oneof=oneTime toView fromView twoWay default"`
	PreventDefault bool           `yaml:"preventDefault"`
	Expression     map[string]any `yaml:"expression" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseView decodes and validates a view definition.
func ParseView(data []byte) (*ViewDefinition, error) {
	var def ViewDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("app: parse view: %w", err)
	}
	if err := validate.Struct(&def); err != nil {
		return nil, fmt.Errorf("app: invalid view: %w", err)
	}
	return &def, nil
}

// LoadView reads a view definition from path.
func LoadView(path string) (*ViewDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app: read view %s: %w", path, err)
	}
	return ParseView(data)
}

// LoadScope reads a YAML mapping from path, for View.Apply.
func LoadScope(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app: read scope %s: %w", path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("app: parse scope %s: %w", path, err)
	}
	return values, nil
}

// ── Views ────────────────────────────────────────────────────────────────────

// View is a mounted definition: parsed nodes, the view-model they are bound
// to and the bindings' tracker ids.
type View struct {
	app   *Application
	nodes []dom.Node
	vm    *observation.Object
	scope *observation.Scope
	ids   []string
}

// Mount parses def's markup into the application document and binds every
// binding to a fresh view-model built from def.Scope. On error, whatever
// was bound is unbound again.
func (a *Application) Mount(def *ViewDefinition) (*View, error) {
	nodes, err := a.document.ParseFragment(def.Markup)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(def.Scope))
	for k, v := range def.Scope {
		values[k] = v
	}
	vm := observation.NewObject(values)
	v := &View{app: a, nodes: nodes, vm: vm, scope: observation.NewScope(vm)}

	for i, bd := range def.Bindings {
		if err := v.bind(bd); err != nil {
			return nil, errors.Join(fmt.Errorf("app: binding %d (#%s): %w", i, bd.Target, err), v.Unmount())
		}
	}
	a.Flush()
	return v, nil
}

func (v *View) bind(bd BindingDefinition) error {
	expr, err := ast.Decode(bd.Expression)
	if err != nil {
		return err
	}
	el := v.Element(bd.Target)
	if el == nil {
		return fmt.Errorf("no element with id %q", bd.Target)
	}

	var id string
	if bd.Event != "" {
		id, _, err = v.app.Listen(bd.Event, expr, el, bd.PreventDefault, v.scope)
	} else {
		id, _, err = v.app.BindProperty(expr, el, bd.Property, observation.ParseBindingMode(bd.Mode), v.scope)
	}
	if err != nil {
		return err
	}
	v.ids = append(v.ids, id)
	return nil
}

// Element returns the element with id, or nil.
func (v *View) Element(id string) dom.Element {
	for _, n := range v.nodes {
		if el := dom.GetElementByID(n, id); el != nil {
			return el
		}
	}
	return nil
}

func (v *View) ViewModel() *observation.Object { return v.vm }

// Bindings returns the tracker ids of the view's bindings.
func (v *View) Bindings() []string { return append([]string(nil), v.ids...) }

// Apply writes values onto the view-model and flushes the resulting target
// updates.
func (v *View) Apply(values map[string]any) {
	for k, val := range values {
		v.vm.SetProperty(k, val)
	}
	v.app.Flush()
}

// Dispatch fires an event of eventType on the element with id.
func (v *View) Dispatch(id, eventType string) error {
	el := v.Element(id)
	if el == nil {
		return fmt.Errorf("app: no element with id %q", id)
	}
	el.DispatchEvent(&dom.Event{Type: eventType, Target: el})
	v.app.Flush()
	return nil
}

// Render flushes pending writes and serializes the view's nodes.
func (v *View) Render() (string, error) {
	v.app.Flush()
	return dom.Render(v.nodes...)
}

// Unmount unbinds and untracks every binding of the view.
func (v *View) Unmount() error {
	tracker := v.app.Tracker()
	var errs []error
	for _, id := range v.ids {
		if b, ok := tracker.Get(id); ok {
			errs = append(errs, b.Unbind(observation.FromUnbind))
		}
		tracker.Untrack(id)
	}
	v.ids = nil
	return errors.Join(errs...)
}
