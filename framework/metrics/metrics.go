// Package metrics exposes Prometheus metrics for the container and the
// bindings it hosts. Everything registers on a private registry so several
// applications (and tests) can coexist in one process.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-binding/framework/binding"
	"github.com/km-arc/go-binding/framework/container"
)

// IMetrics resolves the application's Metrics.
var IMetrics = container.CreateInterface("IMetrics").WithDefault(
	func(b *container.ResolverBuilder) (container.Resolver, error) {
		return b.Singleton(&container.Class{Name: "Metrics", New: New})
	})

// Metrics groups the collectors.
type Metrics struct {
	registry *prometheus.Registry

	resolutions        *prometheus.CounterVec
	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "binding_container_resolutions_total",
			Help: "Instances handed out by the container, by key",
		}, []string{"key"}),

		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "binding_expression_evaluations_total",
			Help: "Expressions evaluated on request, by result",
		}, []string{"result"}),

		evaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "binding_expression_evaluation_duration_seconds",
			Help:    "Duration of requested expression evaluations",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Instrument counts every resolution made through c and its children.
func (m *Metrics) Instrument(c *container.Container) {
	c.AfterResolving(func(key container.Key, _ any) {
		m.resolutions.WithLabelValues(fmt.Sprint(key)).Inc()
	})
}

// TrackBindings exports the number of bound bindings per kind.
func (m *Metrics) TrackBindings(t *binding.Tracker) {
	for _, kind := range []string{binding.KindProperty, binding.KindListener} {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "binding_bound",
			Help:        "Tracked bindings that are currently bound",
			ConstLabels: prometheus.Labels{"kind": kind},
		}, func() float64 { return float64(t.Counts()[kind]) }))
	}
}

// ObserveEvaluation records one evaluation.
func (m *Metrics) ObserveEvaluation(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.evaluations.WithLabelValues(result).Inc()
	m.evaluationDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
