package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-binding/framework/app"
	"github.com/km-arc/go-binding/framework/binding"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/providers"
)

func newApp(t *testing.T, configYAML string) *app.Application {
	t.Helper()
	t.Setenv("APP_ENV", "testing")
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	path := filepath.Join(dir, "go-binding.yaml")
	if configYAML != "" {
		require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))
	}
	a, err := app.New(app.Options{ConfigFile: path, EnvFiles: []string{filepath.Join(dir, ".env")}})
	require.NoError(t, err)
	require.NoError(t, a.Boot())
	return a
}

const greeter = `
markup: <p id="greeting"></p><input id="name">
scope:
  name: Ada
bindings:
  - target: greeting
    property: textContent
    expression:
      $kind: Binary
      operation: "+"
      left: {$kind: PrimitiveLiteral, value: "Hi "}
      right: {$kind: AccessScope, name: name}
  - target: name
    property: value
    mode: twoWay
    expression: {$kind: AccessScope, name: name}
`

const counter = `
markup: <button id="inc">+</button><span id="count"></span>
scope:
  count: 0
bindings:
  - target: count
    property: textContent
    expression: {$kind: AccessScope, name: count}
  - target: inc
    event: click
    expression:
      $kind: Assign
      target: {$kind: AccessScope, name: count}
      value:
        $kind: Binary
        operation: "+"
        left: {$kind: AccessScope, name: count}
        right: {$kind: PrimitiveLiteral, value: 1}
`

func mount(t *testing.T, a *app.Application, source string) *app.View {
	t.Helper()
	def, err := app.ParseView([]byte(source))
	require.NoError(t, err)
	v, err := a.Mount(def)
	require.NoError(t, err)
	return v
}

// ── Bootstrap ────────────────────────────────────────────────────────────────

func TestNew_Boot(t *testing.T) {
	a := newApp(t, "app:\n  name: Demo\nbinding:\n  proxy_strategy: true\n")

	cfg, err := a.Config()
	require.NoError(t, err)
	assert.Equal(t, "Demo", cfg.App.Name)
	assert.True(t, a.IsTesting())
	assert.False(t, a.IsProduction())
	assert.Equal(t, observation.ProxyStrategy, a.Flags())

	same, err := a.Get("configuration")
	require.NoError(t, err)
	assert.Same(t, cfg, same)

	assert.NotNil(t, a.Logger())
	assert.Same(t, a.Tracker(), a.Tracker())

	srv, err := a.Inspector()
	require.NoError(t, err)
	assert.NotNil(t, srv)
	again, err := a.Inspector()
	require.NoError(t, err)
	assert.Same(t, srv, again)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	a, err := app.New(app.Options{ConfigFile: filepath.Join(t.TempDir(), "none.yaml")})
	require.NoError(t, err)
	assert.Error(t, a.Boot())
}

// ── Views ────────────────────────────────────────────────────────────────────

func TestMount_TwoWay(t *testing.T) {
	a := newApp(t, "")
	v := mount(t, a, greeter)

	html, err := v.Render()
	require.NoError(t, err)
	assert.Equal(t, `<p id="greeting">Hi Ada</p><input id="name"/>`, html)

	input := v.Element("name")
	require.NotNil(t, input)
	assert.Equal(t, "Ada", input.GetProperty("value"))

	input.SetProperty("value", "Bob")
	require.NoError(t, v.Dispatch("name", "input"))
	assert.Equal(t, "Bob", v.ViewModel().GetProperty("name"))
	assert.Equal(t, "Hi Bob", v.Element("greeting").TextContent())

	v.Apply(map[string]any{"name": "Eve"})
	assert.Equal(t, "Eve", input.GetProperty("value"))
	assert.Equal(t, "Hi Eve", v.Element("greeting").TextContent())

	assert.Len(t, v.Bindings(), 2)
	assert.Equal(t, 2, a.Tracker().Counts()[binding.KindProperty])
}

func TestMount_Listener(t *testing.T) {
	a := newApp(t, "")
	v := mount(t, a, counter)
	assert.Equal(t, "0", v.Element("count").TextContent())

	require.NoError(t, v.Dispatch("inc", "click"))
	require.NoError(t, v.Dispatch("inc", "click"))
	assert.Equal(t, "2", v.Element("count").TextContent())
	assert.Equal(t, 1, a.Tracker().Counts()[binding.KindListener])

	assert.Error(t, v.Dispatch("missing", "click"))
}

func TestMount_UnknownTargetRollsBack(t *testing.T) {
	a := newApp(t, "")
	def, err := app.ParseView([]byte(`
markup: <p id="a"></p>
bindings:
  - target: a
    property: textContent
    expression: {$kind: AccessScope, name: x}
  - target: b
    property: textContent
    expression: {$kind: AccessScope, name: x}
`))
	require.NoError(t, err)

	_, err = a.Mount(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"b"`)
	assert.Equal(t, 0, a.Tracker().Len())
}

func TestUnmount(t *testing.T) {
	a := newApp(t, "")
	v := mount(t, a, greeter)
	require.NoError(t, v.Unmount())
	assert.Equal(t, 0, a.Tracker().Len())

	v.Apply(map[string]any{"name": "Zed"})
	assert.Equal(t, "Hi Ada", v.Element("greeting").TextContent())
}

func TestParseView_Invalid(t *testing.T) {
	tests := map[string]string{
		"no markup":        "bindings: []\n",
		"no property":      "markup: <p id=a></p>\nbindings:\n  - target: a\n    expression: {$kind: AccessThis}\n",
		"bad mode":         "markup: <p id=a></p>\nbindings:\n  - target: a\n    property: x\n    mode: sometimes\n    expression: {$kind: AccessThis}\n",
		"no expression":    "markup: <p id=a></p>\nbindings:\n  - target: a\n    property: x\n",
		"not yaml mapping": "- a\n- b\n",
	}
	for name, source := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := app.ParseView([]byte(source))
			assert.Error(t, err)
		})
	}
}

func TestLoadScope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Ada\ntags: [a, b]\n"), 0o600))

	values, err := app.LoadScope(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ada", "tags": []any{"a", "b"}}, values)

	_, err = app.LoadScope(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// ── Run ──────────────────────────────────────────────────────────────────────

func TestRun_UnbindsOnCancel(t *testing.T) {
	a := newApp(t, "")
	v := mount(t, a, greeter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.Run(ctx))

	for _, id := range v.Bindings() {
		b, ok := a.Tracker().Get(id)
		require.True(t, ok)
		assert.False(t, b.IsBound())
	}
}

func TestProvidersKeys(t *testing.T) {
	a := newApp(t, "")
	assert.True(t, a.Has(providers.ConfigKey, false))
	assert.True(t, a.Has(providers.LoggerKey, false))
	assert.True(t, a.Has(providers.InspectorKey, false), "deferred providers register an interceptor")
}
