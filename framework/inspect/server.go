// Package inspect serves a small HTTP API for looking into a running
// application: the registered resources, the tracked bindings, ad-hoc
// expression evaluation and the Prometheus metrics.
package inspect

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/binding"
	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/logging"
	"github.com/km-arc/go-binding/framework/metrics"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/reporter"
	"github.com/km-arc/go-binding/framework/resources"
)

// Server exposes the inspector routes for one container.
type Server struct {
	container *container.Container
	tracker   *binding.Tracker
	metrics   *metrics.Metrics
	logger    *logging.Logger
	router    *Router
	flags     observation.LifecycleFlags
}

// Option configures a Server.
type Option func(s *Server)

// WithLogger replaces the default logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithFlags sets the flags used by POST /evaluate, e.g. ProxyStrategy.
func WithFlags(flags observation.LifecycleFlags) Option {
	return func(s *Server) { s.flags = flags }
}

// New resolves the tracker and metrics from c and mounts the routes.
func New(c *container.Container, opts ...Option) (*Server, error) {
	tracker, err := container.Resolve[*binding.Tracker](c, binding.ITracker)
	if err != nil {
		return nil, err
	}
	m, err := container.Resolve[*metrics.Metrics](c, metrics.IMetrics)
	if err != nil {
		return nil, err
	}

	s := &Server{
		container: c,
		tracker:   tracker,
		metrics:   m,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = NewRouter(s.logger)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Get("/healthz", s.health)
	r.Get("/resources", s.resources)
	r.Prefix("/bindings", func(r *Router) {
		r.Get("/", s.bindings)
		r.Get("/{id}", s.binding)
	})
	r.Post("/evaluate", s.evaluate)
	r.Handle("/metrics", s.metrics.Handler())
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("inspect: listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("inspect: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// ── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	NewResponse(w).Success(map[string]any{"status": "ok"})
}

func (s *Server) resources(w http.ResponseWriter, _ *http.Request) {
	behaviors := []string{}
	converters := []string{}
	for _, name := range s.container.Resources() {
		switch {
		case strings.HasPrefix(name, resources.BehaviorPrefix):
			behaviors = append(behaviors, strings.TrimPrefix(name, resources.BehaviorPrefix))
		case strings.HasPrefix(name, resources.ConverterPrefix):
			converters = append(converters, strings.TrimPrefix(name, resources.ConverterPrefix))
		}
	}
	sort.Strings(behaviors)
	sort.Strings(converters)
	NewResponse(w).Success(map[string]any{
		"behaviors":  behaviors,
		"converters": converters,
	})
}

func (s *Server) bindings(w http.ResponseWriter, _ *http.Request) {
	NewResponse(w).Success(map[string]any{
		"bindings": s.tracker.Records(),
		"counts":   s.tracker.Counts(),
	})
}

func (s *Server) binding(w http.ResponseWriter, r *http.Request) {
	id := Param(r, "id")
	for _, rec := range s.tracker.Records() {
		if rec.ID == id {
			NewResponse(w).Success(rec)
			return
		}
	}
	NewResponse(w).NotFound("No binding with id " + id + ".")
}

// EvaluateRequest is the body of POST /evaluate. Expression is an encoded
// expression tree; Scope becomes the binding context.
type EvaluateRequest struct {
	Expression map[string]any `json:"expression" yaml:"expression" validate:"required"`
	Scope      map[string]any `json:"scope" yaml:"scope"`
}

// EvaluateResult is the data of a successful POST /evaluate.
type EvaluateResult struct {
	Source string         `json:"source"`
	Value  any            `json:"value"`
	Scope  map[string]any `json:"scope"`
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	req := NewRequest(r)
	res := NewResponse(w)

	var body EvaluateRequest
	if err := req.Bind(&body); err != nil {
		res.Error(http.StatusBadRequest, err.Error())
		return
	}
	if bag := Validate(&body); bag != nil {
		res.ValidationError(bag)
		return
	}
	expr, err := ast.Decode(body.Expression)
	if err != nil {
		bag := &Errors{}
		bag.add("expression", err.Error())
		res.ValidationError(bag)
		return
	}

	if body.Scope == nil {
		body.Scope = map[string]any{}
	}
	vm := observation.NewObject(body.Scope)

	start := time.Now()
	value, err := expr.Evaluate(s.flags|observation.MustEvaluate, observation.NewScope(vm), s.container)
	s.metrics.ObserveEvaluation(time.Since(start), err)
	if err != nil {
		s.logger.Debug("inspect: evaluation failed", "source", ast.Unparse(expr), "error", err)
		res.ErrorWithCode(http.StatusBadRequest, err.Error(), reporter.CodeOf(err))
		return
	}

	res.Success(EvaluateResult{
		Source: ast.Unparse(expr),
		Value:  plain(value),
		Scope:  plain(vm.Snapshot()).(map[string]any),
	})
}

// plain converts an evaluation result into something encoding/json accepts.
func plain(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ast.ToString(v)
		}
		return v
	case *observation.Object:
		return plain(v.Snapshot())
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plain(item)
		}
		return out
	}
	if ast.TypeOf(v) == "function" {
		return "[function]"
	}
	return v
}
