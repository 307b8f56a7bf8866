package observation

import "github.com/km-arc/go-binding/framework/reporter"

// OverrideContext is one link of the chain a Scope carries. Besides its
// binding context it holds per-activation values such as "$index", loop
// variables and "$event". Those values are observable.
type OverrideContext struct {
	BindingContext any
	Parent         *OverrideContext

	values *Object
}

// NewOverrideContext creates a context for bindingContext below parent.
func NewOverrideContext(bindingContext any, parent *OverrideContext) *OverrideContext {
	return &OverrideContext{BindingContext: bindingContext, Parent: parent, values: NewObject(nil)}
}

func (oc *OverrideContext) GetProperty(name string) any       { return oc.values.GetProperty(name) }
func (oc *OverrideContext) SetProperty(name string, v any)    { oc.values.SetProperty(name, v) }
func (oc *OverrideContext) SetRawProperty(name string, v any) { oc.values.SetRawProperty(name, v) }
func (oc *OverrideContext) HasProperty(name string) bool      { return oc.values.HasProperty(name) }
func (oc *OverrideContext) DeleteProperty(name string)        { oc.values.Delete(name) }
func (oc *OverrideContext) Observers() *ObserverTable         { return oc.values.Observers() }
func (oc *OverrideContext) Keys() []string                    { return oc.values.Keys() }

// Scope is what expressions evaluate against.
type Scope struct {
	BindingContext  any
	OverrideContext *OverrideContext
}

// NewScope creates a root scope for bindingContext.
func NewScope(bindingContext any) *Scope {
	return &Scope{
		BindingContext:  bindingContext,
		OverrideContext: NewOverrideContext(bindingContext, nil),
	}
}

// FromParent creates a scope for bindingContext whose override context
// chains to parent's, so "$parent" and ancestor lookups reach it.
func FromParent(parent *Scope, bindingContext any) *Scope {
	var poc *OverrideContext
	if parent != nil {
		poc = parent.OverrideContext
	}
	return &Scope{
		BindingContext:  bindingContext,
		OverrideContext: NewOverrideContext(bindingContext, poc),
	}
}

// ResolveContext finds the object name should be read from or written to.
//
// With ancestor > 0 it walks that many override contexts up and returns the
// context itself when it holds name, else its binding context (nil when the
// chain is too short). With ancestor == 0 it walks up until a context or its
// binding context holds name; when nothing does it falls back to the scope's
// own binding context, so assignments create the property there.
func ResolveContext(scope *Scope, name string, ancestor int, flags LifecycleFlags) (any, error) {
	if scope == nil {
		return nil, reporter.New(reporter.CodeNilScope, "observation.ResolveContext", name)
	}
	oc := scope.OverrideContext

	if ancestor > 0 {
		for ; ancestor > 0; ancestor-- {
			if oc == nil {
				return nil, nil
			}
			oc = oc.Parent
		}
		if oc == nil {
			return nil, nil
		}
		if oc.HasProperty(name) {
			return oc, nil
		}
		return oc.BindingContext, nil
	}

	for oc != nil && !oc.HasProperty(name) && !HasProperty(oc.BindingContext, name) {
		oc = oc.Parent
	}
	if oc != nil {
		if oc.HasProperty(name) {
			return oc, nil
		}
		return oc.BindingContext, nil
	}

	if scope.BindingContext != nil {
		return scope.BindingContext, nil
	}
	return scope.OverrideContext, nil
}
