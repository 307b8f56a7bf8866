package providers

import (
	"github.com/km-arc/go-binding/framework/binding"
	"github.com/km-arc/go-binding/framework/config"
	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/inspect"
	"github.com/km-arc/go-binding/framework/logging"
	"github.com/km-arc/go-binding/framework/metrics"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/reporter"
	"github.com/km-arc/go-binding/framework/resources"
	"github.com/km-arc/go-binding/framework/runtimehtml"
)

// Container keys bound by the framework providers.
const (
	ConfigKey    = "config"
	LoggerKey    = "logger"
	InspectorKey = "inspector"
)

// ── ConfigServiceProvider ────────────────────────────────────────────────────

// ConfigServiceProvider loads the configuration from File, .env and the
// process environment and binds it as "config".
//
// Bound abstracts:
//   - "config"         → *config.Config
//   - "configuration"  → alias of "config"
type ConfigServiceProvider struct {
	container.BaseProvider
	File     string
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	file, envFiles := p.File, p.EnvFiles
	if err := app.Singleton(ConfigKey, func(*container.Container) (any, error) {
		return config.LoadFile(file, envFiles...)
	}); err != nil {
		return err
	}
	return app.Alias(ConfigKey, "configuration")
}

// ── LoggingServiceProvider ───────────────────────────────────────────────────

// LoggingServiceProvider binds the application logger and, on boot, routes
// container diagnostics and reported framework errors through it.
//
// Bound abstracts:
//   - "logger"  → *logging.Logger
//
// Configuration keys read from "config":
//   - log.level, log.format, app.name
type LoggingServiceProvider struct {
	container.BaseProvider
}

func (p *LoggingServiceProvider) Register(app *container.Container) error {
	return app.Singleton(LoggerKey, func(c *container.Container) (any, error) {
		cfg, err := container.Resolve[*config.Config](c, ConfigKey)
		if err != nil {
			return nil, err
		}
		return logging.New(logging.Config{
			Level:   logging.ParseLevel(cfg.Log.Level),
			JSON:    cfg.Log.Format == "json",
			Service: cfg.App.Name,
		}), nil
	})
}

func (p *LoggingServiceProvider) Boot(app *container.Container) error {
	logger, err := container.Resolve[*logging.Logger](app, LoggerKey)
	if err != nil {
		return err
	}
	app.SetLogger(logger.Slog())
	reporter.SetHandler(&reporter.LogHandler{Logger: logger.Slog()})
	return nil
}

// ── BindingServiceProvider ───────────────────────────────────────────────────

// BindingServiceProvider registers the built-in binding resources and the
// DOM target locators. A nil DOM gets a fresh in-memory document.
//
// Bound abstracts:
//   - runtimehtml.IDOM, the target observer/accessor locators
//   - binding behaviors oneTime, toView, fromView, twoWay, signal, attr, self
type BindingServiceProvider struct {
	container.BaseProvider
	DOM dom.DOM
}

func (p *BindingServiceProvider) Register(app *container.Container) error {
	d := p.DOM
	if d == nil {
		d = dom.NewDocument()
	}
	return app.Register(resources.Builtins, runtimehtml.Configure(d))
}

// ── MetricsServiceProvider ───────────────────────────────────────────────────

// MetricsServiceProvider instruments the container and exports the number
// of tracked bindings once every provider is registered.
type MetricsServiceProvider struct {
	container.BaseProvider
}

func (p *MetricsServiceProvider) Register(*container.Container) error { return nil }

func (p *MetricsServiceProvider) Boot(app *container.Container) error {
	m, err := container.Resolve[*metrics.Metrics](app, metrics.IMetrics)
	if err != nil {
		return err
	}
	tracker, err := container.Resolve[*binding.Tracker](app, binding.ITracker)
	if err != nil {
		return err
	}
	m.Instrument(app)
	m.TrackBindings(tracker)
	return nil
}

// ── InspectorServiceProvider ─────────────────────────────────────────────────

// InspectorServiceProvider is deferred: the inspector server is only built
// when "inspector" is first resolved.
//
// Bound abstracts:
//   - "inspector"  → *inspect.Server
//
// Configuration keys read from "config":
//   - binding.proxy_strategy
type InspectorServiceProvider struct {
	container.BaseProvider
}

func (p *InspectorServiceProvider) IsDeferred() bool          { return true }
func (p *InspectorServiceProvider) Provides() []container.Key { return []container.Key{InspectorKey} }

func (p *InspectorServiceProvider) Register(app *container.Container) error {
	return app.Singleton(InspectorKey, func(c *container.Container) (any, error) {
		cfg, err := container.Resolve[*config.Config](c, ConfigKey)
		if err != nil {
			return nil, err
		}
		logger, err := container.Resolve[*logging.Logger](c, LoggerKey)
		if err != nil {
			return nil, err
		}
		return inspect.New(c,
			inspect.WithLogger(logger.With("component", "inspector")),
			inspect.WithFlags(Flags(cfg)),
		)
	})
}

// Flags derives the lifecycle flags bindings start with from cfg.
func Flags(cfg *config.Config) observation.LifecycleFlags {
	if cfg.Binding.ProxyStrategy {
		return observation.ProxyStrategy
	}
	return observation.FlagsNone
}
