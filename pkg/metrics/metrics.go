package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/babisteps/admin-api/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	Reports       *prometheus.CounterVec
	ReportSeconds *prometheus.HistogramVec
	Events        *prometheus.CounterVec
	Issues        *prometheus.CounterVec
	Exports       *prometheus.CounterVec
	Requests      *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "babis_reports_total",
			Help: "Reports computed, by kind and status.",
		}, []string{"kind", "status"}),
		ReportSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "babis_report_duration_seconds",
			Help:    "Time spent computing a report.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "babis_report_events_total",
			Help: "Calendar events seen by reports, by outcome.",
		}, []string{"kind", "outcome"}),
		Issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "babis_report_issues_total",
			Help: "Component errors swallowed into degraded reports.",
		}, []string{"component", "kind"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "babis_exports_total",
			Help: "Worksheet exports, by target and result.",
		}, []string{"target", "result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "babis_http_requests_total",
			Help: "HTTP requests, by route and status code class.",
		}, []string{"route", "code"}),
	}
	m.Registry.MustRegister(
		m.Reports, m.ReportSeconds, m.Events, m.Issues, m.Exports, m.Requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveReport records one computed report
func (m *Metrics) ObserveReport(kind string, meta models.ReportMeta, took time.Duration) {
	if m == nil {
		return
	}
	m.Reports.WithLabelValues(kind, meta.Status).Inc()
	m.ReportSeconds.WithLabelValues(kind).Observe(took.Seconds())
	m.Events.WithLabelValues(kind, "fetched").Add(float64(meta.EventsFetched))
	m.Events.WithLabelValues(kind, "matched").Add(float64(meta.EventsMatched))
	m.Events.WithLabelValues(kind, "skipped").Add(float64(meta.EventsSkipped))
	for _, is := range meta.Issues {
		m.Issues.WithLabelValues(is.Component, string(is.Kind)).Inc()
	}
}

// ObserveExport records one export attempt
func (m *Metrics) ObserveExport(target string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Exports.WithLabelValues(target, result).Inc()
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.Requests.WithLabelValues(route, fmt.Sprintf("%dxx", status/100)).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
