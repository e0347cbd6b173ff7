package metrics

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/geocontrol/internal/measurement"
)

const namespace = "geocontrol"

// Metrics holds every Prometheus collector GeoControl exports.
//
// It is the measurement pipeline's Observer and a measurement.Sink, and
// provides the HTTP instrumentation middleware and scrape handler.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	ingested     prometheus.Counter
	outliers     prometheus.Counter
	aggregation  *prometheus.HistogramVec
	wsClients    prometheus.Gauge
}

// New registers the collectors on reg. Passing a fresh prometheus.Registry
// keeps tests isolated from the global default registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ingested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_ingested_total",
			Help:      "Total number of measurements stored",
		}),
		outliers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outliers_flagged_total",
			Help:      "Total number of measurements returned as outliers",
		}),
		aggregation: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of statistics and outlier computations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Number of connected live-stream clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveAggregation records how long a pipeline operation took.
func (m *Metrics) ObserveAggregation(operation string, d time.Duration) {
	m.aggregation.WithLabelValues(operation).Observe(d.Seconds())
}

// OutliersFlagged counts measurements returned as outliers.
func (m *Metrics) OutliersFlagged(n int) {
	m.outliers.Add(float64(n))
}

// Name identifies the metrics sink.
func (m *Metrics) Name() string { return "metrics" }

// Write counts a stored batch.
func (m *Metrics) Write(_ context.Context, b measurement.Batch) error {
	m.ingested.Add(float64(len(b.Measurements)))
	return nil
}

// ClientConnected increments the live-stream client gauge.
func (m *Metrics) ClientConnected() { m.wsClients.Inc() }

// ClientDisconnected decrements the live-stream client gauge.
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }

// Middleware records the request count and latency per route pattern.
// Unmatched requests are labelled "unmatched" so arbitrary paths cannot
// blow up label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection over for the WebSocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}
