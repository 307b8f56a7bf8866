package container_test

import (
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/reporter"
)

// ── fixtures ─────────────────────────────────────────────────────────────────

type logger struct{ prefix string }

type service struct {
	Logger *logger
	Name   string
}

var loggerClass = &container.Class{
	Name: "logger",
	New:  func() any { return &logger{prefix: ">"} },
}

func newServiceClass() *container.Class {
	return &container.Class{
		Name:   "service",
		Inject: []container.Key{loggerClass, "name"},
		New: func(l, name any) any {
			return &service{Logger: l.(*logger), Name: name.(string)}
		},
	}
}

type counter struct{ n int }

func counterClass() (*container.Class, *counter) {
	cnt := &counter{}
	return &container.Class{
		Name: "counted",
		New: func() any {
			cnt.n++
			return &struct{ id int }{cnt.n}
		},
	}, cnt
}

// ── Strategies ───────────────────────────────────────────────────────────────

func TestGet_Instance(t *testing.T) {
	c := container.New()
	v := &logger{}
	require.NoError(t, c.Register(container.Registration.Instance("logger", v)))

	for range 3 {
		got, err := c.Get("logger")
		require.NoError(t, err)
		assert.Same(t, v, got)
	}
}

func TestGet_SingletonConstructsOnce(t *testing.T) {
	c := container.New()
	cls, cnt := counterClass()
	r := container.Registration.Singleton("s", cls)
	require.NoError(t, c.Register(r))

	a, err := c.Get("s")
	require.NoError(t, err)
	b, err := c.Get("s")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, cnt.n)
	assert.Equal(t, container.StrategyInstance, r.Strategy())
}

func TestGet_TransientConstructsEachTime(t *testing.T) {
	c := container.New()
	cls, cnt := counterClass()
	require.NoError(t, c.Register(container.Registration.Transient("t", cls)))

	a, _ := c.Get("t")
	b, _ := c.Get("t")

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, cnt.n)
}

func TestGet_TransientUsesRequestor(t *testing.T) {
	root := container.New()
	require.NoError(t, root.Register(
		container.Registration.Transient("svc", newServiceClass()),
		container.Registration.Instance("name", "root"),
	))

	child := root.CreateChild()
	require.NoError(t, child.Register(container.Registration.Instance("name", "child")))

	fromChild, err := container.Resolve[*service](child, "svc")
	require.NoError(t, err)
	assert.Equal(t, "child", fromChild.Name)

	fromRoot, err := container.Resolve[*service](root, "svc")
	require.NoError(t, err)
	assert.Equal(t, "root", fromRoot.Name)
}

func TestGet_Callback(t *testing.T) {
	c := container.New()
	calls := 0
	require.NoError(t, c.Register(container.Registration.Callback("cb",
		func(handler, requestor *container.Container, r container.Resolver) (any, error) {
			calls++
			assert.Same(t, c, handler)
			assert.NotNil(t, r)
			return calls, nil
		})))

	a, _ := c.Get("cb")
	b, _ := c.Get("cb")
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestGet_Alias(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(
		container.Registration.Instance("original", 42),
		container.Registration.Alias("original", "alias"),
	))

	got, err := c.Get("alias")
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

// ── Array registrations ──────────────────────────────────────────────────────

func TestRegisterTwice_GetReturnsFirst_GetAllReturnsBoth(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(
		container.Registration.Instance("plugin", "a"),
		container.Registration.Instance("plugin", "b"),
		container.Registration.Instance("plugin", "c"),
	))

	first, err := c.Get("plugin")
	require.NoError(t, err)
	assert.Equal(t, "a", first)

	all, err := c.GetAll("plugin")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, all)
}

func TestGetAll_NothingRegistered(t *testing.T) {
	c := container.New().CreateChild()
	all, err := c.GetAll("missing")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetAll_SingleRegistration(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Instance("one", 1))
	all, err := c.GetAll("one")
	require.NoError(t, err)
	assert.Equal(t, []any{1}, all)
}

// ── Hierarchy ────────────────────────────────────────────────────────────────

func TestCreateChild_ChildKeysInvisibleToParent(t *testing.T) {
	parent := container.New()
	require.NoError(t, parent.Instance("shared", "p"))
	child := parent.CreateChild()
	require.NoError(t, child.Instance("local", "c"))

	got, err := child.Get("shared")
	require.NoError(t, err)
	assert.Equal(t, "p", got)

	assert.True(t, child.Has("shared", true))
	assert.False(t, child.Has("shared", false))
	assert.False(t, parent.Has("local", true))

	_, err = parent.Get("local")
	assert.True(t, reporter.HasCode(err, reporter.CodeNoRegistration))
}

func TestCreateChild_ResourceLookupIsSnapshot(t *testing.T) {
	parent := container.New()
	require.NoError(t, parent.Instance("before", 1))
	child := parent.CreateChild()
	require.NoError(t, parent.Instance("after", 2))

	_, ok := child.Resource("before")
	assert.True(t, ok)
	_, ok = child.Resource("after")
	assert.False(t, ok)
	assert.Equal(t, []string{"after", "before"}, parent.Resources())
}

func TestCreateChild_SharesFactoryCache(t *testing.T) {
	parent := container.New()
	child := parent.CreateChild()
	assert.Same(t, parent.GetFactory(loggerClass), child.GetFactory(loggerClass))
}

func TestIContainer_ResolvesToRequestor(t *testing.T) {
	parent := container.New()
	child := parent.CreateChild()

	got, err := child.Get(container.IContainer)
	require.NoError(t, err)
	assert.Same(t, child, got)

	got, err = parent.Get(container.IContainer)
	require.NoError(t, err)
	assert.Same(t, parent, got)
}

// ── JIT registration ─────────────────────────────────────────────────────────

func TestGet_ClassIsJITRegisteredAsRootSingleton(t *testing.T) {
	root := container.New()
	require.NoError(t, root.Instance("name", "svc"))
	child := root.CreateChild()

	// both classes are unknown everywhere: registered at the root
	svc, err := container.Resolve[*service](child, newServiceClass())
	require.NoError(t, err)
	assert.Equal(t, ">", svc.Logger.prefix)
	assert.True(t, root.Has(loggerClass, false))
	assert.False(t, child.Has(loggerClass, false))

	again, err := child.Get(loggerClass)
	require.NoError(t, err)
	assert.Same(t, svc.Logger, again)
}

func TestGet_ClassWithTransientRegistrar(t *testing.T) {
	c := container.New()
	cls, cnt := counterClass()
	cls.AsTransient()

	a, _ := c.Get(cls)
	b, _ := c.Get(cls)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, cnt.n)
}

func TestGet_RegistrarReturningNilUsesWhatItRegistered(t *testing.T) {
	c := container.New()
	cls := &container.Class{Name: "self", New: func() any { return "built" }}
	cls.Registrar = func(c *container.Container, key container.Key) (container.Resolver, error) {
		_, err := c.RegisterResolver(key, container.Registration.Instance(key, "registered"))
		return nil, err
	}

	got, err := c.Get(cls)
	require.NoError(t, err)
	assert.Equal(t, "registered", got)
}

func TestGet_RegistrarReturningNothingIsConfigurationError(t *testing.T) {
	c := container.New()
	cls := &container.Class{Name: "broken", New: func() any { return nil }}
	cls.Registrar = func(*container.Container, container.Key) (container.Resolver, error) { return nil, nil }

	_, err := c.Get(cls)
	require.Error(t, err)
	assert.Equal(t, reporter.CodeInvalidResolver, reporter.CodeOf(err))
	assert.Equal(t, reporter.KindConfiguration, reporter.KindOf(err))
}

func TestGetResolver_NoAutoRegister(t *testing.T) {
	c := container.New()
	r, err := c.GetResolver(loggerClass, false)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.False(t, c.Has(loggerClass, true))
}

func TestGetResolver_ResolverKeyReturnedAsIs(t *testing.T) {
	c := container.New()
	r := container.Registration.Instance("x", 1)
	got, err := c.GetResolver(r, true)
	require.NoError(t, err)
	assert.Same(t, r, got)

	v, err := c.Get(r)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

// ── Keys ─────────────────────────────────────────────────────────────────────

func TestGet_InvalidKeys(t *testing.T) {
	c := container.New()
	tests := []struct {
		name string
		key  container.Key
	}{
		{"nil", nil},
		{"typed nil", (*container.Class)(nil)},
		{"empty interface type", reflect.TypeOf((*any)(nil)).Elem()},
		{"slice", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Get(tt.key)
			require.Error(t, err)
			assert.Equal(t, reporter.CodeInvalidKey, reporter.CodeOf(err))
			assert.Equal(t, reporter.KindPrecondition, reporter.KindOf(err))
		})
	}
}

func TestGet_PrimitiveKeyWithoutRegistration(t *testing.T) {
	_, err := container.New().Get("nothing")
	assert.Equal(t, reporter.CodeNoRegistration, reporter.CodeOf(err))
}

// ── Interfaces ───────────────────────────────────────────────────────────────

func TestCreateInterface_NoDefault(t *testing.T) {
	ifc := container.CreateInterface("IThing").NoDefault()
	_, err := container.New().Get(ifc)
	require.Error(t, err)
	assert.Equal(t, reporter.CodeNoRegistration, reporter.CodeOf(err))
	assert.Contains(t, err.Error(), "IThing")
}

func TestCreateInterface_WithDefault(t *testing.T) {
	ifc := container.CreateInterface("ILogger").WithDefault(func(b *container.ResolverBuilder) (container.Resolver, error) {
		return b.Singleton(loggerClass)
	})
	c := container.New()

	a, err := c.Get(ifc)
	require.NoError(t, err)
	b, err := c.Get(ifc)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.True(t, c.Has(ifc, false))
}

func TestCreateInterface_WithDefaultTwicePanics(t *testing.T) {
	ifc := container.CreateInterface("")
	assert.Equal(t, "Interface", ifc.String())
	ifc.WithDefault(func(b *container.ResolverBuilder) (container.Resolver, error) { return b.Instance(1) })

	assert.PanicsWithError(t,
		reporter.New(reporter.CodeDefaultAlreadySet, "container.InterfaceSymbol.WithDefault", "Interface").Error(),
		func() {
			ifc.WithDefault(func(b *container.ResolverBuilder) (container.Resolver, error) { return b.Instance(2) })
		})
}

func TestCreateInterface_AliasTo(t *testing.T) {
	ifc := container.CreateInterface("IAliased").WithDefault(func(b *container.ResolverBuilder) (container.Resolver, error) {
		return b.AliasTo("target")
	})
	c := container.New()
	require.NoError(t, c.Instance("target", "t"))

	got, err := c.Get(ifc)
	require.NoError(t, err)
	assert.Equal(t, "t", got)
}

// ── Register ─────────────────────────────────────────────────────────────────

func TestRegister_MapAndSliceEntries(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(
		map[string]any{
			"b": container.Registration.Instance("k", "b"),
			"a": container.Registration.Instance("k", "a"),
			"nested": map[string]any{
				"x": container.Registration.Instance("x", 1),
			},
		},
		[]any{container.Registration.Instance("y", 2)},
	))

	all, err := c.GetAll("k")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, all)
	assert.True(t, c.Has("x", false))
	assert.True(t, c.Has("y", false))
}

func TestRegister_BareClassBecomesSingleton(t *testing.T) {
	c := container.New()
	cls, cnt := counterClass()
	require.NoError(t, c.Register(cls))

	a, _ := c.Get(cls)
	b, _ := c.Get(cls)
	assert.Same(t, a, b)
	assert.Equal(t, 1, cnt.n)
}

func TestRegister_DepthGuard(t *testing.T) {
	var nested any = map[string]any{}
	for range 150 {
		nested = map[string]any{"level": nested}
	}

	c := container.New()
	err := c.Register(nested)
	require.Error(t, err)
	assert.Equal(t, reporter.CodeRegistrationDepth, reporter.CodeOf(err))
	assert.Equal(t, reporter.KindConfiguration, reporter.KindOf(err))

	require.NoError(t, c.Register(container.Registration.Instance("after", true)))
}

type selfRegistering struct{}

func (r selfRegistering) Register(c *container.Container) error { return c.Register(r) }

func TestRegister_DepthGuardFollowsRegistries(t *testing.T) {
	err := container.New().Register(selfRegistering{})
	assert.Equal(t, reporter.CodeRegistrationDepth, reporter.CodeOf(err))
}

func TestRegister_ConcurrentCallsKeepTheirOwnDepth(t *testing.T) {
	var nested any = map[string]any{}
	for range 90 {
		nested = map[string]any{"level": nested}
	}

	c := container.New()
	errs := make([]error, 16)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.Register(nested)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestRegister_UnsupportedEntry(t *testing.T) {
	err := container.New().Register(42)
	assert.Equal(t, reporter.CodeUnsupportedEntry, reporter.CodeOf(err))
}

// ── Factory ──────────────────────────────────────────────────────────────────

func TestFactory_ArityInvokers(t *testing.T) {
	c := container.New()
	for i, k := range []string{"a", "b", "c", "d", "e", "f"} {
		require.NoError(t, c.Instance(k, i))
	}

	tests := []struct {
		name string
		cls  *container.Class
		want any
	}{
		{"0", &container.Class{New: func() any { return 0 }}, 0},
		{"1", &container.Class{Inject: []container.Key{"a"}, New: func(a any) any { return a }}, 0},
		{"2", &container.Class{Inject: []container.Key{"a", "b"}, New: func(a, b any) any { return a.(int) + b.(int) }}, 1},
		{"3", &container.Class{Inject: []container.Key{"a", "b", "c"}, New: func(a, b, c any) any { return a.(int) + b.(int) + c.(int) }}, 3},
		{"4", &container.Class{Inject: []container.Key{"a", "b", "c", "d"}, New: func(a, b, c, d any) any { return d }}, 3},
		{"5", &container.Class{Inject: []container.Key{"a", "b", "c", "d", "e"}, New: func(a, b, c, d, e any) any { return e }}, 4},
		{"6 reflective", &container.Class{
			Inject: []container.Key{"a", "b", "c", "d", "e", "f"},
			New:    func(a, b, c, d, e, f int) int { return a + b + c + d + e + f },
		}, 15},
		{"typed", &container.Class{Inject: []container.Key{"c"}, New: func(n int) (string, error) { return "n" + string(rune('0'+n)), nil }}, "n2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.GetFactory(tt.cls).Construct(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFactory_DynamicDependencies(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Instance("a", "A"))
	cls := &container.Class{Inject: []container.Key{"a"}, New: func(a, b string) string { return a + b }}

	got, err := c.GetFactory(cls).Construct(c, "B")
	require.NoError(t, err)
	assert.Equal(t, "AB", got)
}

func TestFactory_NilDependency(t *testing.T) {
	c := container.New()
	cls := &container.Class{Inject: []container.Key{nil}, New: func(a any) any { return a }}
	_, err := c.GetFactory(cls).Construct(c)
	assert.Equal(t, reporter.CodeNilDependency, reporter.CodeOf(err))
}

func TestRegisterTransformer_AppliedInOrder(t *testing.T) {
	c := container.New()
	cls := &container.Class{New: func() any { return "x" }}
	require.NoError(t, c.Register(container.Registration.Transient("t", cls)))

	assert.True(t, c.RegisterTransformer("t", func(v any) any { return v.(string) + "1" }))
	assert.True(t, c.Extend("t", func(v any) any { return v.(string) + "2" }))

	got, err := c.Get("t")
	require.NoError(t, err)
	assert.Equal(t, "x12", got)
}

func TestRegisterTransformer_InstanceHasNoFactory(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Instance("i", 1))
	assert.False(t, c.RegisterTransformer("i", func(v any) any { return v }))
}

func TestSingleton_CycleIsReported(t *testing.T) {
	c := container.New()
	a := &container.Class{Name: "a"}
	b := &container.Class{Name: "b", Inject: []container.Key{a}, New: func(x any) any { return x }}
	a.Inject = []container.Key{b}
	a.New = func(x any) any { return x }

	_, err := c.Get(a)
	require.Error(t, err)
	assert.Equal(t, reporter.CodeSingletonCycle, reporter.CodeOf(err))
}

func TestSingleton_CycleThroughBuildersIsReported(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Singleton("x", func(c *container.Container) (any, error) { return c.Get("y") }))
	require.NoError(t, c.Singleton("y", func(c *container.Container) (any, error) { return c.Get("x") }))

	_, err := c.Get("x")
	require.Error(t, err)
	assert.Equal(t, reporter.CodeSingletonCycle, reporter.CodeOf(err))
}

func TestSingleton_ConcurrentGetWaitsForConstruction(t *testing.T) {
	var built atomic.Int32
	slow := &container.Class{Name: "slow", New: func() any {
		built.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &logger{}
	}}

	c := container.New()
	results := make([]any, 8)
	errs := make([]error, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Get(slow)
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), built.Load())
}

func TestSingleton_SharedDependencyAcrossGoroutines(t *testing.T) {
	var built atomic.Int32
	shared := &container.Class{Name: "shared", New: func() any {
		built.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &logger{prefix: "shared"}
	}}
	c := container.New()
	require.NoError(t, c.Bind("user", func(c *container.Container) (any, error) {
		l, err := container.Resolve[*logger](c, shared)
		if err != nil {
			return nil, err
		}
		return &service{Logger: l}, nil
	}))

	errs := make([]error, 4)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Get("user")
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), built.Load())
}

// ── Shorthands & hooks ───────────────────────────────────────────────────────

func TestShorthands(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Singleton("single", func(*container.Container) (any, error) { return &logger{}, nil }))
	require.NoError(t, c.Bind("fresh", func(*container.Container) (any, error) { return &logger{}, nil }))
	require.NoError(t, c.Alias("single", "alias"))
	assert.Error(t, c.Alias("x", "x"))

	s1 := container.MustResolve[*logger](c, "single")
	s2 := container.MustResolve[*logger](c, "alias")
	assert.Same(t, s1, s2)

	f1 := container.MustResolve[*logger](c, "fresh")
	f2 := container.MustResolve[*logger](c, "fresh")
	assert.NotSame(t, f1, f2)

	_, err := container.Resolve[string](c, "single")
	assert.Error(t, err)
}

func TestAfterResolving_SharedWithChildren(t *testing.T) {
	c := container.New()
	var seen []container.Key
	c.AfterResolving(func(key container.Key, _ any) { seen = append(seen, key) })
	require.NoError(t, c.Instance("k", 1))

	_, _ = c.CreateChild().Get("k")
	assert.Equal(t, []container.Key{"k"}, seen)
}

// ── Resolver keys ────────────────────────────────────────────────────────────

func TestResolverKeys_AllLazyOptional(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(
		container.Registration.Instance("p", 1),
		container.Registration.Instance("p", 2),
	))
	cls := &container.Class{
		Inject: []container.Key{container.All("p"), container.Lazy("p"), container.Optional("missing")},
		New: func(all, lazy, opt any) any {
			return []any{all, lazy, opt}
		},
	}

	got, err := c.GetFactory(cls).Construct(c)
	require.NoError(t, err)
	parts := got.([]any)

	assert.Equal(t, []any{1, 2}, parts[0])
	lazy := parts[1].(container.LazyFunc)
	v, err := lazy()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Nil(t, parts[2])
	assert.False(t, c.Has("missing", true))
}

func TestInstanceProvider(t *testing.T) {
	c := container.New()
	p := container.NewInstanceProvider("element")
	require.NoError(t, c.Register(container.Registration.Callback("el", func(h, r *container.Container, _ container.Resolver) (any, error) {
		return p.Resolve(h, r)
	})))

	_, err := c.Get("el")
	assert.Equal(t, reporter.CodeProviderNotPrepared, reporter.CodeOf(err))

	p.Prepare("div")
	got, err := c.Get(p)
	require.NoError(t, err)
	assert.Equal(t, "div", got)

	p.Dispose()
	_, err = c.Get(p)
	assert.Error(t, err)
}

// ── Interpret ────────────────────────────────────────────────────────────────

type interpreted struct{ keys []any }

func (i *interpreted) Register(c *container.Container) error {
	for _, k := range i.keys {
		if err := c.Instance(k, true); err != nil {
			return err
		}
	}
	return nil
}

func TestRegistration_Interpret(t *testing.T) {
	c := container.New()
	interpreter := &container.Class{
		Name: "interpreter",
		New:  func(keys ...any) *interpreted { return &interpreted{keys: keys} },
	}

	require.NoError(t, c.Register(container.Registration.Interpret(interpreter, "one", "two")))
	assert.True(t, c.Has("one", false))
	assert.True(t, c.Has("two", false))
}
