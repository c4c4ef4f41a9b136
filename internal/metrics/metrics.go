// Package metrics provides Prometheus instrumentation for the bot.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "congressbot"

// Metrics holds every collector the bot exports.
type Metrics struct {
	// Runs
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	LastRunTimestamp prometheus.Gauge

	// Buy phase
	DisclosuresFetched  prometheus.Counter
	DisclosuresRetained prometheus.Counter
	CandidatesSkipped   *prometheus.CounterVec
	PriceLookups        *prometheus.CounterVec

	// Orders and exits
	OrdersTotal  *prometheus.CounterVec
	ExitSignals  *prometheus.CounterVec
	ExitDeferred prometheus.Counter

	// Reporting
	SinkErrors *prometheus.CounterVec

	// Read API
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WSClients           prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers every collector with reg. Pass prometheus.NewRegistry() in
// tests so registrations do not collide.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by outcome",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		DisclosuresFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buy",
			Name:      "disclosures_fetched_total",
			Help:      "Disclosure records received from the feed",
		}),
		DisclosuresRetained: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buy",
			Name:      "disclosures_retained_total",
			Help:      "Disclosure records inside the recency window",
		}),
		CandidatesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buy",
			Name:      "candidates_skipped_total",
			Help:      "Ranked candidates not turned into buys, by reason",
		}, []string{"reason"}),
		PriceLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buy",
			Name:      "price_lookups_total",
			Help:      "Price lookups by source (cache, broker, unavailable)",
		}, []string{"source"}),
		OrdersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Submitted orders by side and outcome",
		}, []string{"side", "outcome"}),
		ExitSignals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exit",
			Name:      "signals_total",
			Help:      "Positions selected for liquidation, by reason",
		}, []string{"reason"}),
		ExitDeferred: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exit",
			Name:      "deferred_total",
			Help:      "Sell-eligible positions left open by the daily cap",
		}),
		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_sink_errors_total",
			Help:      "Report sink failures by sink",
		}, []string{"sink"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Read API requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Read API request duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "route"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected WebSocket clients",
		}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(started, finished time.Time, errs int) {
	outcome := "ok"
	if errs > 0 {
		outcome = "error"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(finished.Sub(started).Seconds())
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// ObserveOrder records one order attempt.
func (m *Metrics) ObserveOrder(side string, success bool) {
	outcome := "ok"
	if !success {
		outcome = "failed"
	}
	m.OrdersTotal.WithLabelValues(side, outcome).Inc()
}

// Middleware records request count and latency, labelled by the chi route
// pattern to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: ResponseWriter does not support hijacking")
	}
	return h.Hijack()
}
