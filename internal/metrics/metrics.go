// Package metrics exposes Prometheus metrics for the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	uploads  *prometheus.CounterVec
}

// New registers the HTTP collectors, the Go and process collectors, and an
// app_info gauge carrying the service version.
func New(appName, version string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etf_uploads_total",
			Help: "ETF uploads by resulting error code (0 on success).",
		}, []string{"code"}),
	}

	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "app_info",
		Help:        "Application info.",
		ConstLabels: prometheus.Labels{"version": version, "app_name": appName},
	})
	info.Set(1)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.uploads,
		info,
	)
	return m
}

// Middleware records every request under its matched route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		labels := prometheus.Labels{
			"method": c.Method(),
			"path":   c.Route().Path,
			"status": strconv.Itoa(status),
		}
		m.requests.With(labels).Inc()
		m.duration.With(labels).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// ObserveUpload counts one upload outcome; code is 0 for success.
func (m *Metrics) ObserveUpload(code int) {
	m.uploads.WithLabelValues(strconv.Itoa(code)).Inc()
}
