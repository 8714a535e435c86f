package metrics

import (
	"net/http"
	"strconv"
	"time"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the service metrics
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	customersTotal      *prometheus.CounterVec
	batchFailuresTotal  *prometheus.CounterVec
}

var _ ports.SyncMetrics = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration", Buckets: prometheus.DefBuckets},
			[]string{"method", "route"},
		),
		customersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "customer_sync_customers_total", Help: "Customer creations attempted, by outcome"},
			[]string{"flow", "outcome"},
		),
		batchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "customer_sync_batch_failures_total", Help: "Sync runs that failed as a whole"},
			[]string{"flow"},
		),
	}
	reg.MustRegister(c.httpRequestsTotal, c.httpRequestDuration, c.customersTotal, c.batchFailuresTotal)
	return c
}

// ObserveResults counts per-customer outcomes
func (c *Collector) ObserveResults(flow string, results []domain.SyncResult) {
	for _, r := range results {
		outcome := "failure"
		if r.Success {
			outcome = "success"
		}
		c.customersTotal.WithLabelValues(flow, outcome).Inc()
	}
}

// ObserveBatchFailure counts a run that produced no per-customer results
func (c *Collector) ObserveBatchFailure(flow string) {
	c.batchFailuresTotal.WithLabelValues(flow).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latencies labelled by chi route pattern
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		route := routePattern(r)
		c.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
