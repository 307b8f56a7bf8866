package binding_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/binding"
	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/logging"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/resources"
	"github.com/km-arc/go-binding/framework/runtimehtml"
)

type env struct {
	c        *container.Container
	doc      *dom.Document
	observer *observation.ObserverLocator
	queue    *observation.Queue
}

func newEnv(t *testing.T) *env {
	t.Helper()
	doc := dom.NewDocument()
	c := container.New()
	require.NoError(t, c.Register(resources.Builtins, runtimehtml.Configure(doc)))
	return &env{
		c:        c,
		doc:      doc,
		observer: container.MustResolve[*observation.ObserverLocator](c, observation.IObserverLocator),
		queue:    container.MustResolve[*observation.Queue](c, observation.ILifecycle),
	}
}

func (e *env) property(expr ast.Expression, target any, property string, mode observation.BindingMode) *binding.PropertyBinding {
	b := binding.NewPropertyBinding(expr, target, property, mode, e.observer, e.c)
	b.SetLogger(logging.Discard())
	return b
}

func (e *env) element(tag string) *dom.ElementNode {
	return e.doc.CreateElement(tag).(*dom.ElementNode)
}

func name(n string) *ast.AccessScope { return ast.NewAccessScope(n, 0) }

func lit(v any) *ast.PrimitiveLiteral { return ast.NewPrimitiveLiteral(v) }

func properties(deps []binding.Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.Property)
	}
	return out
}

// ── PropertyBinding ───────────────────────────────────────────────────────────

func TestPropertyBinding_ToView(t *testing.T) {
	e := newEnv(t)
	vm := observation.NewObject(map[string]any{"name": "Ada"})
	span := e.element("span")

	b := e.property(ast.NewBinary("+", lit("Hi "), name("name")), span, "textContent", observation.ToView)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	assert.True(t, b.IsBound())
	assert.Equal(t, "Hi Ada", span.TextContent(), "bind writes immediately")
	assert.Equal(t, []string{"name"}, properties(b.Dependencies()))

	vm.SetProperty("name", "Bob")
	assert.Equal(t, "Hi Ada", span.TextContent(), "later writes wait for the flush")
	assert.Equal(t, 1, e.queue.Pending())

	e.queue.ProcessFlushQueue(observation.FromFlush)
	assert.Equal(t, "Hi Bob", span.TextContent())

	require.NoError(t, b.Unbind(observation.FlagsNone))
	assert.Empty(t, b.Dependencies())
	vm.SetProperty("name", "Eve")
	assert.Equal(t, 0, e.queue.Pending())
}

func TestPropertyBinding_TwoWay(t *testing.T) {
	e := newEnv(t)
	vm := observation.NewObject(map[string]any{"name": "Ada"})
	input, err := e.doc.ParseElement(`<input value="">`)
	require.NoError(t, err)

	b := e.property(name("name"), input, "value", observation.TwoWay)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	assert.Equal(t, "Ada", input.GetProperty("value"))
	assert.IsType(t, &runtimehtml.ValueAttributeObserver{}, b.TargetObserver())
	assert.Equal(t, 1, input.ListenerCount("input"))

	input.SetProperty("value", "Grace")
	input.DispatchEvent(dom.NewEvent("input"))
	assert.Equal(t, "Grace", vm.GetProperty("name"))
	assert.Equal(t, 0, e.queue.Pending(), "the round trip does not write the target again")

	vm.SetProperty("name", "Hopper")
	e.queue.ProcessFlushQueue(observation.FromFlush)
	assert.Equal(t, "Hopper", input.GetProperty("value"))

	require.NoError(t, b.Unbind(observation.FlagsNone))
	assert.Equal(t, 0, input.ListenerCount("input"))
}

func TestPropertyBinding_FromView(t *testing.T) {
	e := newEnv(t)
	vm := observation.NewObject(map[string]any{"name": "Ada"})
	input, err := e.doc.ParseElement(`<input value="initial">`)
	require.NoError(t, err)

	b := e.property(name("name"), input, "value", observation.FromView)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	assert.Equal(t, "initial", input.GetProperty("value"), "from-view never writes the target")
	assert.Empty(t, b.Dependencies())

	input.SetProperty("value", "typed")
	input.DispatchEvent(dom.NewEvent("change"))
	assert.Equal(t, "typed", vm.GetProperty("name"))
}

func TestPropertyBinding_OneTime(t *testing.T) {
	e := newEnv(t)
	vm := observation.NewObject(map[string]any{"x": 1.0})
	target := map[string]any{}

	b := e.property(name("x"), target, "v", observation.OneTime)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	assert.Equal(t, 1.0, target["v"])
	assert.Empty(t, b.Dependencies())

	vm.SetProperty("x", 2.0)
	assert.Equal(t, 1.0, target["v"])
}

func TestPropertyBinding_DefaultModeIsToView(t *testing.T) {
	e := newEnv(t)
	vm := observation.NewObject(map[string]any{"x": 1.0})
	target := map[string]any{}

	b := e.property(name("x"), target, "v", observation.Default)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	vm.SetProperty("x", 2.0)
	assert.Equal(t, 2.0, target["v"])
}

func TestPropertyBinding_ReconnectDropsStaleDependencies(t *testing.T) {
	e := newEnv(t)
	vm := observation.NewObject(map[string]any{"useA": true, "a": "A", "b": "B"})
	target := map[string]any{}

	b := e.property(ast.NewConditional(name("useA"), name("a"), name("b")), target, "v", observation.ToView)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	assert.Equal(t, "A", target["v"])
	assert.ElementsMatch(t, []string{"useA", "a"}, properties(b.Dependencies()))

	vm.SetProperty("useA", false)
	assert.Equal(t, "B", target["v"])
	assert.ElementsMatch(t, []string{"useA", "b"}, properties(b.Dependencies()))

	vm.SetProperty("a", "A2")
	assert.Equal(t, "B", target["v"], "a is no longer observed")

	vm.SetProperty("b", "B2")
	assert.Equal(t, "B2", target["v"])
}

func TestPropertyBinding_BindIsIdempotent(t *testing.T) {
	e := newEnv(t)
	first := observation.NewObject(map[string]any{"x": "first"})
	second := observation.NewObject(map[string]any{"x": "second"})
	target := map[string]any{}

	b := e.property(name("x"), target, "v", observation.ToView)
	s1 := observation.NewScope(first)
	require.NoError(t, b.Bind(observation.FlagsNone, s1))
	require.NoError(t, b.Bind(observation.FlagsNone, s1))
	assert.Len(t, b.Dependencies(), 1)

	s2 := observation.NewScope(second)
	require.NoError(t, b.Bind(observation.FlagsNone, s2))
	assert.Same(t, s2, b.Scope())
	assert.Equal(t, "second", target["v"])

	first.SetProperty("x", "changed")
	assert.Equal(t, "second", target["v"], "the old scope is released")

	require.NoError(t, b.Unbind(observation.FlagsNone))
	require.NoError(t, b.Unbind(observation.FlagsNone))
	assert.False(t, b.IsBound())
	assert.Nil(t, b.Scope())
}

func TestPropertyBinding_ModeBehavior(t *testing.T) {
	e := newEnv(t)
	vm := observation.NewObject(map[string]any{"x": 1.0})
	target := map[string]any{}

	expr := ast.NewBindingBehavior(name("x"), "oneTime", nil)
	b := e.property(expr, target, "v", observation.TwoWay)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	assert.Equal(t, observation.OneTime, b.Mode())
	assert.NotNil(t, b.AppliedBehavior(expr.BehaviorKey()))

	vm.SetProperty("x", 2.0)
	assert.Equal(t, 1.0, target["v"])

	require.NoError(t, b.Unbind(observation.FlagsNone))
	assert.Equal(t, observation.TwoWay, b.Mode())
	assert.Nil(t, b.AppliedBehavior(expr.BehaviorKey()))
}

func TestPropertyBinding_SignalBehavior(t *testing.T) {
	e := newEnv(t)
	calls := 0.0
	vm := observation.NewObject(map[string]any{"now": func() float64 { calls++; return calls }})
	target := map[string]any{}

	expr := ast.NewBindingBehavior(ast.NewCallScope("now", nil, 0), "signal", []ast.Expression{lit("tick")})
	b := e.property(expr, target, "v", observation.ToView)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	assert.Equal(t, 1.0, target["v"])

	signaler := container.MustResolve[*observation.Signaler](e.c, observation.ISignaler)
	assert.Equal(t, 1, signaler.ListenerCount("tick"))

	signaler.DispatchSignal("tick", observation.FlagsNone)
	assert.Equal(t, 2.0, target["v"])

	require.NoError(t, b.Unbind(observation.FlagsNone))
	assert.Equal(t, 0, signaler.ListenerCount("tick"))
}

func TestPropertyBinding_AttrBehavior(t *testing.T) {
	e := newEnv(t)
	vm := observation.NewObject(map[string]any{"tip": "hello"})
	div := e.element("div")

	b := e.property(ast.NewBindingBehavior(name("tip"), "attr", nil), div, "title", observation.ToView)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	assert.IsType(t, &runtimehtml.DataAttributeAccessor{}, b.TargetObserver())

	v, ok := div.GetAttribute("title")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Nil(t, div.GetProperty("title"))
}

func TestPropertyBinding_ValueConverter(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.c.Register(resources.ConverterInstance("double", &resources.ConverterFuncs{
		To:   func(v any, _ ...any) (any, error) { return v.(float64) * 2, nil },
		From: func(v any, _ ...any) (any, error) { return v.(float64) / 2, nil },
	})))
	vm := observation.NewObject(map[string]any{"n": 2.0})
	target := observation.NewObject(nil)

	b := e.property(ast.NewValueConverter(name("n"), "double", nil), target, "v", observation.TwoWay)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(vm)))
	assert.Equal(t, 4.0, target.GetProperty("v"))

	target.SetProperty("v", 10.0)
	assert.Equal(t, 5.0, vm.GetProperty("n"))
}

// ── Listener ──────────────────────────────────────────────────────────────────

func TestListener(t *testing.T) {
	e := newEnv(t)
	var got *dom.Event
	vm := observation.NewObject(map[string]any{
		"clicked": func(ev *dom.Event) bool { got = ev; return false },
	})
	div := e.element("div")

	l := binding.NewListener("click", ast.NewCallScope("clicked", []ast.Expression{name("$event")}, 0), div, true, e.c)
	scope := observation.NewScope(vm)
	require.NoError(t, l.Bind(observation.FlagsNone, scope))
	assert.Equal(t, 1, div.ListenerCount("click"))

	ev := dom.NewEvent("click")
	div.DispatchEvent(ev)
	assert.Same(t, ev, got)
	assert.True(t, ev.DefaultPrevented())
	assert.False(t, scope.OverrideContext.HasProperty("$event"), "$event only lives for the call")

	require.NoError(t, l.Unbind(observation.FlagsNone))
	require.NoError(t, l.Unbind(observation.FlagsNone))
	assert.Equal(t, 0, div.ListenerCount("click"))
}

func TestListener_TrueKeepsDefault(t *testing.T) {
	e := newEnv(t)
	vm := observation.NewObject(map[string]any{"ok": func() bool { return true }})
	div := e.element("div")

	l := binding.NewListener("submit", ast.NewCallScope("ok", nil, 0), div, true, e.c)
	require.NoError(t, l.Bind(observation.FlagsNone, observation.NewScope(vm)))

	ev := dom.NewEvent("submit")
	div.DispatchEvent(ev)
	assert.False(t, ev.DefaultPrevented())
}

func TestListener_MissingHandler(t *testing.T) {
	e := newEnv(t)
	div := e.element("div")

	l := binding.NewListener("click", ast.NewCallScope("missing", nil, 0), div, false, e.c)
	l.SetLogger(logging.Discard())
	require.NoError(t, l.Bind(observation.FlagsNone, observation.NewScope(observation.NewObject(nil))))

	_, err := l.CallSource()(dom.NewEvent("click"))
	assert.Error(t, err, "handlers are evaluated with MustEvaluate")
	assert.NotPanics(t, func() { div.DispatchEvent(dom.NewEvent("click")) })
}

func TestListener_SelfBehavior(t *testing.T) {
	e := newEnv(t)
	calls := 0
	vm := observation.NewObject(map[string]any{"clicked": func() { calls++ }})
	div, err := e.doc.ParseElement(`<div><button></button></div>`)
	require.NoError(t, err)
	button := div.Children()[0]

	expr := ast.NewBindingBehavior(ast.NewCallScope("clicked", nil, 0), "self", nil)
	l := binding.NewListener("click", expr, div, false, e.c)
	require.NoError(t, l.Bind(observation.FlagsNone, observation.NewScope(vm)))

	button.DispatchEvent(dom.NewEvent("click"))
	assert.Equal(t, 0, calls, "events from descendants are ignored")

	div.DispatchEvent(dom.NewEvent("click"))
	assert.Equal(t, 1, calls)

	require.NoError(t, l.Unbind(observation.FlagsNone))
	require.NoError(t, l.Bind(observation.FlagsNone, observation.NewScope(vm)))
	div.DispatchEvent(dom.NewEvent("click"))
	assert.Equal(t, 2, calls)
}

// ── Tracker ───────────────────────────────────────────────────────────────────

func TestTracker(t *testing.T) {
	e := newEnv(t)
	tracker := container.MustResolve[*binding.Tracker](e.c, binding.ITracker)
	assert.Same(t, tracker, container.MustResolve[*binding.Tracker](e.c, binding.ITracker))

	span := e.element("span")
	div := e.element("div")
	vm := observation.NewObject(map[string]any{"name": "Ada", "go": func() {}})

	pb := e.property(name("name"), span, "textContent", observation.ToView)
	ls := binding.NewListener("click", ast.NewCallScope("go", nil, 0), div, false, e.c)

	pid := tracker.Track(pb)
	lid := tracker.Track(ls)
	_, err := uuid.Parse(pid)
	require.NoError(t, err)
	assert.NotEqual(t, pid, lid)
	assert.Equal(t, 2, tracker.Len())
	assert.Equal(t, map[string]int{binding.KindProperty: 0, binding.KindListener: 0}, tracker.Counts())

	scope := observation.NewScope(vm)
	require.NoError(t, pb.Bind(observation.FlagsNone, scope))
	require.NoError(t, ls.Bind(observation.FlagsNone, scope))
	assert.Equal(t, map[string]int{binding.KindProperty: 1, binding.KindListener: 1}, tracker.Counts())

	records := tracker.Records()
	require.Len(t, records, 2)
	assert.Equal(t, binding.Record{
		ID: pid, Kind: binding.KindProperty, Expression: "name", Target: "SPAN.textContent",
		Mode: "toView", Bound: true, Created: records[0].Created,
	}, records[0])
	assert.Equal(t, lid, records[1].ID)
	assert.Equal(t, "DIV@click", records[1].Target)
	assert.Equal(t, "go()", records[1].Expression)

	got, ok := tracker.Get(pid)
	require.True(t, ok)
	assert.Same(t, pb, got)

	require.NoError(t, tracker.UnbindAll(observation.FlagsNone))
	assert.False(t, pb.IsBound())
	assert.False(t, ls.IsBound())

	assert.True(t, tracker.Untrack(pid))
	assert.False(t, tracker.Untrack(pid))
	assert.Equal(t, 1, tracker.Len())
}
