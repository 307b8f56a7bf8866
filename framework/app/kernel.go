package app

import (
	"context"
	"errors"

	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/binding"
	"github.com/km-arc/go-binding/framework/config"
	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/inspect"
	"github.com/km-arc/go-binding/framework/logging"
	"github.com/km-arc/go-binding/framework/metrics"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/providers"
)

// Version is reported by the console and the inspector.
const Version = "0.1.0"

// Application is the top-level application container. It embeds the
// Container and ProviderRegistry so callers can Register and Get directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	document *dom.Document
}

// Options configures New. The zero value reads go-binding.yaml if present
// and .env.
type Options struct {
	ConfigFile string
	EnvFiles   []string

	// Document receives mounted views. Nil creates an empty one.
	Document *dom.Document
}

// New creates the application and registers the framework providers.
// Providers are booted by Boot, or lazily by Run.
func New(opts Options) (*Application, error) {
	if opts.ConfigFile == "" {
		opts.ConfigFile = "go-binding.yaml"
	}
	if opts.Document == nil {
		opts.Document = dom.NewDocument()
	}

	c := container.New()
	app := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		document:  opts.Document,
	}

	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{File: opts.ConfigFile, EnvFiles: opts.EnvFiles},
		&providers.LoggingServiceProvider{},
		&providers.BindingServiceProvider{DOM: opts.Document},
		&providers.MetricsServiceProvider{},
		&providers.InspectorServiceProvider{},
	} {
		if err := app.Register(p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot phase on all providers. The configuration is loaded
// first so a broken config file fails here rather than on first use.
func (a *Application) Boot() error {
	if _, err := a.Config(); err != nil {
		return err
	}
	return a.Providers.Boot()
}

// ── Services ─────────────────────────────────────────────────────────────────

func (a *Application) Config() (*config.Config, error) {
	return container.Resolve[*config.Config](a.Container, providers.ConfigKey)
}

func (a *Application) Logger() *logging.Logger {
	logger, err := container.Resolve[*logging.Logger](a.Container, providers.LoggerKey)
	if err != nil {
		return logging.Default()
	}
	return logger
}

func (a *Application) Tracker() *binding.Tracker {
	return container.MustResolve[*binding.Tracker](a.Container, binding.ITracker)
}

func (a *Application) Metrics() *metrics.Metrics {
	return container.MustResolve[*metrics.Metrics](a.Container, metrics.IMetrics)
}

func (a *Application) ObserverLocator() *observation.ObserverLocator {
	return container.MustResolve[*observation.ObserverLocator](a.Container, observation.IObserverLocator)
}

func (a *Application) Queue() *observation.Queue {
	return container.MustResolve[*observation.Queue](a.Container, observation.ILifecycle)
}

// Inspector builds the inspector server on first use.
func (a *Application) Inspector() (*inspect.Server, error) {
	return container.Resolve[*inspect.Server](a.Container, providers.InspectorKey)
}

func (a *Application) Document() *dom.Document { return a.document }

// Flags returns the lifecycle flags bindings are bound with.
func (a *Application) Flags() observation.LifecycleFlags {
	cfg, err := a.Config()
	if err != nil {
		return observation.FlagsNone
	}
	return providers.Flags(cfg)
}

// Flush applies the deferred target writes.
func (a *Application) Flush() {
	a.Queue().ProcessFlushQueue(observation.FromFlush)
}

// ── Bindings ─────────────────────────────────────────────────────────────────

// BindProperty creates a property binding, tracks it and binds it to scope.
func (a *Application) BindProperty(expr ast.Expression, target any, property string, mode observation.BindingMode, scope *observation.Scope) (string, *binding.PropertyBinding, error) {
	b := binding.NewPropertyBinding(expr, target, property, mode, a.ObserverLocator(), a.Container)
	b.SetLogger(a.Logger())
	id := a.Tracker().Track(b)
	if err := b.Bind(a.Flags(), scope); err != nil {
		a.Tracker().Untrack(id)
		return "", nil, err
	}
	return id, b, nil
}

// Listen creates a listener binding for event on target, tracks it and binds
// it to scope.
func (a *Application) Listen(event string, expr ast.Expression, target dom.Element, preventDefault bool, scope *observation.Scope) (string, *binding.Listener, error) {
	l := binding.NewListener(event, expr, target, preventDefault, a.Container)
	l.SetLogger(a.Logger())
	id := a.Tracker().Track(l)
	if err := l.Bind(a.Flags(), scope); err != nil {
		a.Tracker().Untrack(id)
		return "", nil, err
	}
	return id, l, nil
}

// ── Run ──────────────────────────────────────────────────────────────────────

// Run boots the application (if needed), serves the inspector when it is
// enabled and blocks until ctx is done. Every tracked binding is unbound on
// the way out.
func (a *Application) Run(ctx context.Context) error {
	if !a.Providers.Booted() {
		if err := a.Boot(); err != nil {
			return err
		}
	}
	cfg, err := a.Config()
	if err != nil {
		return err
	}
	logger := a.Logger()
	logger.Info("application started", "env", cfg.App.Env, "version", Version)

	var runErr error
	if cfg.Inspector.Enabled {
		srv, err := a.Inspector()
		if err != nil {
			return err
		}
		runErr = srv.ListenAndServe(ctx, cfg.Inspector.Addr)
	} else {
		<-ctx.Done()
	}

	return errors.Join(runErr, a.Tracker().UnbindAll(observation.FromUnbind))
}

// ── Environment ──────────────────────────────────────────────────────────────

// Environment returns APP_ENV.
func (a *Application) Environment() string {
	cfg, err := a.Config()
	if err != nil {
		return ""
	}
	return cfg.App.Env
}

func (a *Application) IsLocal() bool      { return a.Environment() == "local" }
func (a *Application) IsProduction() bool { return a.Environment() == "production" }
func (a *Application) IsTesting() bool    { return a.Environment() == "testing" }
