// Package metrics exposes orchestration and HTTP telemetry through a dedicated
// Prometheus registry.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dispatch/internal/core/ports"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dispatch"

// Recorder implements ports.MetricsRecorder and the distance fallback recorder.
// It is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	passes       *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	routes       *prometheus.CounterVec
	assigned     *prometheus.CounterVec
	unassigned   *prometheus.CounterVec
	efficiency   *prometheus.GaugeVec
	degraded     prometheus.Counter
	conflicts    prometheus.Counter
	skippedTicks *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them, together with the Go
// and process collectors, on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "orchestration_passes_total", Help: "Orchestration passes by trigger, mode and outcome."},
			[]string{"trigger", "mode", "outcome"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "orchestration_pass_duration_seconds", Help: "Orchestration pass duration in seconds.", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}},
			[]string{"mode"},
		),
		routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "routes_created_total", Help: "Routes produced by orchestration passes."},
			[]string{"mode"},
		),
		assigned: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "drops_assigned_total", Help: "Drops placed on a route."},
			[]string{"mode"},
		),
		unassigned: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "drops_unassigned_total", Help: "Drops left unassigned, by reason."},
			[]string{"mode", "reason"},
		),
		efficiency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "orchestration_efficiency_score", Help: "Efficiency score of the last pass (0-100)."},
			[]string{"mode"},
		),
		degraded: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "degraded_estimates_total", Help: "Route legs estimated with the haversine fallback."},
		),
		conflicts: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "claim_conflicts_total", Help: "Routes rolled back because a concurrent pass claimed their drops."},
		),
		skippedTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "scheduler_skipped_ticks_total", Help: "Scheduler ticks skipped because a pass was still running."},
			[]string{"job"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "distance_fallbacks_total", Help: "Distance estimator calls answered by the haversine fallback."},
			[]string{"reason"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"method", "path", "status"},
		),
	}

	r.registry.MustRegister(
		r.passes,
		r.passDuration,
		r.routes,
		r.assigned,
		r.unassigned,
		r.efficiency,
		r.degraded,
		r.conflicts,
		r.skippedTicks,
		r.fallbacks,
		r.httpRequests,
		r.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) RecordPass(s ports.PassSummary) {
	outcome := "success"
	if s.Failed {
		outcome = "failed"
	}

	r.passes.WithLabelValues(s.Trigger, s.Mode, outcome).Inc()
	r.passDuration.WithLabelValues(s.Mode).Observe(s.Duration.Seconds())
	if s.Failed {
		return
	}

	r.routes.WithLabelValues(s.Mode).Add(float64(s.Routes))
	r.assigned.WithLabelValues(s.Mode).Add(float64(s.AssignedDrops))
	for reason, n := range s.UnassignedByReason {
		r.unassigned.WithLabelValues(s.Mode, reason).Add(float64(n))
	}
	r.efficiency.WithLabelValues(s.Mode).Set(s.EfficiencyScore)
	r.degraded.Add(float64(s.DegradedEstimates))
	r.conflicts.Add(float64(s.Conflicts))
}

func (r *Recorder) RecordSkippedTick(job string) {
	r.skippedTicks.WithLabelValues(job).Inc()
}

func (r *Recorder) RecordEstimatorFallback(reason string) {
	r.fallbacks.WithLabelValues(reason).Inc()
}

// EchoMiddleware counts requests by route template, so path parameters do not
// blow up label cardinality.
func (r *Recorder) EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			labels := []string{c.Request().Method, path, strconv.Itoa(status)}
			r.httpRequests.WithLabelValues(labels...).Inc()
			r.httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
