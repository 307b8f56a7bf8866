package binding

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/observation"
)

// Bindable is what the Tracker can manage.
type Bindable interface {
	Bind(flags observation.LifecycleFlags, scope *observation.Scope) error
	Unbind(flags observation.LifecycleFlags) error
	IsBound() bool
	SourceExpression() ast.Expression
}

// Kind names for Record.Kind.
const (
	KindProperty = "property"
	KindListener = "listener"
)

// Record describes a tracked binding.
type Record struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Expression string    `json:"expression"`
	Target     string    `json:"target"`
	Mode       string    `json:"mode,omitempty"`
	Bound      bool      `json:"bound"`
	Created    time.Time `json:"created"`
}

type tracked struct {
	id      string
	seq     int
	binding Bindable
	created time.Time
}

// ITracker resolves the container's Tracker.
var ITracker = container.CreateInterface("ITracker").WithDefault(
	func(b *container.ResolverBuilder) (container.Resolver, error) {
		return b.Singleton(&container.Class{Name: "Tracker", New: NewTracker})
	})

// Tracker keeps the bindings an application created, keyed by a random
// identifier, so the inspector and metrics can list and count them.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*tracked
	seq     int
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*tracked)}
}

// Track registers b and returns its identifier.
func (t *Tracker) Track(b Bindable) string {
	id := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.entries[id] = &tracked{id: id, seq: t.seq, binding: b, created: time.Now()}
	return id
}

// Untrack forgets id. It reports whether id was tracked.
func (t *Tracker) Untrack(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; !ok {
		return false
	}
	delete(t.entries, id)
	return true
}

// Get returns the binding tracked under id.
func (t *Tracker) Get(id string) (Bindable, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	return e.binding, true
}

// Len returns the number of tracked bindings.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Records describes every tracked binding, oldest first.
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	entries := make([]*tracked, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, describe(e))
	}
	return out
}

// Counts returns how many tracked bindings of each kind are bound.
func (t *Tracker) Counts() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	counts := map[string]int{KindProperty: 0, KindListener: 0}
	for _, e := range t.entries {
		if e.binding.IsBound() {
			counts[kindOf(e.binding)]++
		}
	}
	return counts
}

// UnbindAll unbinds every tracked binding and returns the first error.
func (t *Tracker) UnbindAll(flags observation.LifecycleFlags) error {
	t.mu.RLock()
	list := make([]Bindable, 0, len(t.entries))
	for _, e := range t.entries {
		list = append(list, e.binding)
	}
	t.mu.RUnlock()

	var first error
	for _, b := range list {
		if err := b.Unbind(flags); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func kindOf(b Bindable) string {
	if _, ok := b.(*Listener); ok {
		return KindListener
	}
	return KindProperty
}

func describe(e *tracked) Record {
	r := Record{
		ID:         e.id,
		Kind:       kindOf(e.binding),
		Expression: ast.Unparse(e.binding.SourceExpression()),
		Bound:      e.binding.IsBound(),
		Created:    e.created,
	}
	switch b := e.binding.(type) {
	case *PropertyBinding:
		r.Target = targetName(b.Target()) + "." + b.TargetProperty()
		r.Mode = b.Mode().String()
	case *Listener:
		r.Target = targetName(b.Target()) + "@" + b.TargetEvent()
	}
	return r
}

func targetName(target any) string {
	if n, ok := target.(interface{ NodeName() string }); ok {
		return n.NodeName()
	}
	return fmt.Sprintf("%T", target)
}
