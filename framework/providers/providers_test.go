package providers_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-binding/framework/config"
	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/inspect"
	"github.com/km-arc/go-binding/framework/logging"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/providers"
	"github.com/km-arc/go-binding/framework/resources"
	"github.com/km-arc/go-binding/framework/runtimehtml"
)

func registry(t *testing.T) (*container.Container, *container.ProviderRegistry, *providers.InspectorServiceProvider) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()

	c := container.New()
	reg := container.NewProviderRegistry(c)
	inspector := &providers.InspectorServiceProvider{}
	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{File: filepath.Join(dir, "none.yaml"), EnvFiles: []string{filepath.Join(dir, ".env")}},
		&providers.LoggingServiceProvider{},
		&providers.BindingServiceProvider{},
		&providers.MetricsServiceProvider{},
		inspector,
	} {
		require.NoError(t, reg.Register(p))
	}
	require.NoError(t, reg.Boot())
	return c, reg, inspector
}

func TestProviders_Bindings(t *testing.T) {
	c, _, _ := registry(t)

	cfg := container.MustResolve[*config.Config](c, providers.ConfigKey)
	assert.Equal(t, "GoBinding", cfg.App.Name)

	logger := container.MustResolve[*logging.Logger](c, providers.LoggerKey)
	assert.Equal(t, logging.LevelError, logger.Level())

	_, err := c.Get(runtimehtml.IDOM)
	require.NoError(t, err)
	b, err := resources.GetBehavior(c, "attr")
	require.NoError(t, err)
	assert.Same(t, runtimehtml.AttrBehavior, b)
}

func TestInspectorProvider_IsDeferred(t *testing.T) {
	c, reg, inspector := registry(t)
	assert.False(t, reg.Loaded(inspector))

	srv, err := container.Resolve[*inspect.Server](c, providers.InspectorKey)
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.True(t, reg.Loaded(inspector))
}

func TestFlags(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, observation.FlagsNone, providers.Flags(cfg))
	cfg.Binding.ProxyStrategy = true
	assert.Equal(t, observation.ProxyStrategy, providers.Flags(cfg))
}
