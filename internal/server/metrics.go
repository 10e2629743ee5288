package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/rfm-cli/internal/analysis"
)

// Metrics holds the Prometheus collectors for the upload server. Each
// server owns its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Scoring metrics
	Analyses        *prometheus.CounterVec
	AnalysisRows    prometheus.Histogram
	AnalysisSeconds prometheus.Histogram
	BinningFailures *prometheus.CounterVec
	Segments        *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rfm_http_requests_total",
				Help: "Total HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rfm_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"route"},
		),

		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rfm_analyses_total",
				Help: "Total analyses by result (ok, invalid_input, too_large, error)",
			},
			[]string{"result"},
		),

		AnalysisRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rfm_analysis_rows",
				Help:    "Number of transactions per analysis",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
		),

		AnalysisSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rfm_analysis_duration_seconds",
				Help:    "Time spent loading and scoring one upload",
				Buckets: prometheus.DefBuckets,
			},
		),

		BinningFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rfm_binning_failures_total",
				Help: "Metrics whose scores were zero-filled because binning failed",
			},
			[]string{"metric"},
		),

		Segments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rfm_customer_segment_rows_total",
				Help: "Scored rows by customer segment",
			},
			[]string{"segment"},
		),
	}

	m.registry.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.Analyses,
		m.AnalysisRows,
		m.AnalysisSeconds,
		m.BinningFailures,
		m.Segments,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method string, code int, d time.Duration) {
	m.Requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveReport records a successful analysis.
func (m *Metrics) ObserveReport(rep *analysis.Report, d time.Duration) {
	m.Analyses.WithLabelValues("ok").Inc()
	m.AnalysisRows.Observe(float64(len(rep.Rows)))
	m.AnalysisSeconds.Observe(d.Seconds())
	for _, mr := range rep.Metrics {
		if mr.Err != nil {
			m.BinningFailures.WithLabelValues(string(mr.Metric)).Inc()
		}
	}
	for _, sc := range rep.CustomerCounts {
		m.Segments.WithLabelValues(sc.Segment).Add(float64(sc.Count))
	}
}

// ObserveFailure records an analysis that did not produce a report.
func (m *Metrics) ObserveFailure(result string) {
	m.Analyses.WithLabelValues(result).Inc()
}
