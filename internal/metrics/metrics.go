package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-shades/internal/workflow"
)

// Namespace prefixes every metric name.
const Namespace = "shades"

// Collector holds the worker's Prometheus metrics on a private registry.
//
// All methods are safe on a nil *Collector, so components can take one
// optionally.
type Collector struct {
	registry *prometheus.Registry

	unitsTotal     *prometheus.CounterVec
	unitDuration   *prometheus.HistogramVec
	unitAttempts   *prometheus.HistogramVec
	commandsTotal  *prometheus.CounterVec
	devicesMissing *prometheus.CounterVec
	firingsTotal   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates a collector with its own registry. Go runtime and process
// collectors are registered alongside the worker metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		unitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "units_total",
			Help:      "Finished execution units by unit name and status.",
		}, []string{"unit", "status"}),

		unitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "unit_duration_seconds",
			Help:      "Wall time of execution units.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"unit"}),

		unitAttempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "unit_attempts",
			Help:      "Attempts taken by execution units.",
			Buckets:   []float64{1, 2, 3, 5, 10},
		}, []string{"unit"}),

		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commands_total",
			Help:      "Device commands issued to the bridge by command and status.",
		}, []string{"command", "status"}),

		devicesMissing: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "devices_missing_total",
			Help:      "Requested devices absent from the bridge enumeration.",
		}, []string{"unit"}),

		firingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "firings_total",
			Help:      "Automation firings by automation name.",
		}, []string{"automation"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Ops API requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Ops API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// UnitFinished records a finished unit. It satisfies workflow.Observer.
func (c *Collector) UnitFinished(o workflow.Outcome) {
	if c == nil {
		return
	}
	c.unitsTotal.WithLabelValues(o.Unit, string(o.Status)).Inc()
	c.unitDuration.WithLabelValues(o.Unit).Observe(o.Duration().Seconds())
	c.unitAttempts.WithLabelValues(o.Unit).Observe(float64(o.Attempts))
}

// CommandIssued records one device command with its result,
// "ok" or "error".
func (c *Collector) CommandIssued(command string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.commandsTotal.WithLabelValues(command, status).Inc()
}

// DevicesMissing adds n missing devices for unit.
func (c *Collector) DevicesMissing(unit string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.devicesMissing.WithLabelValues(unit).Add(float64(n))
}

// FiringStarted counts a firing of automation.
func (c *Collector) FiringStarted(automation string) {
	if c == nil {
		return
	}
	c.firingsTotal.WithLabelValues(automation).Inc()
}

// HTTPRequest records one ops API request.
func (c *Collector) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

var _ workflow.Observer = (*Collector)(nil)
