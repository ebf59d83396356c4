// Package metrics provides Prometheus instrumentation for the
// portfolio service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// TradesIngested counts trade events stored from Kafka, by source.
	TradesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_trades_ingested_total",
		Help: "Trade events ingested from Kafka",
	}, []string{"source"})

	// LedgerReplays counts cost basis replays, by accounting method.
	LedgerReplays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_ledger_replays_total",
		Help: "Cost basis ledger replays",
	}, []string{"method"})

	// PriceFetchFailures counts failed upstream market data requests.
	PriceFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_price_fetch_failures_total",
		Help: "Failed market data fetches",
	})

	// SnapshotDaysComputed counts daily snapshots computed by backfill.
	SnapshotDaysComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_snapshot_days_computed_total",
		Help: "Daily portfolio snapshots computed",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portfolio_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
// The path label is the matched route template, not the raw URL, so
// parameterized routes stay one series instead of one per symbol.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePath(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
