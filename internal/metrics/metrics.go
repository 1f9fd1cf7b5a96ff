package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rajulearn/backend/internal/models"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CommissionsCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissions_credited_total",
			Help: "Commission legs credited, by kind",
		},
		[]string{"kind"},
	)

	CommissionAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_amount_total",
			Help: "Sum of credited commission amounts, by kind",
		},
		[]string{"kind"},
	)

	CommissionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_outcomes_total",
			Help: "ProcessPurchase results by error code (ok on success)",
		},
		[]string{"source", "code"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// RecordOutcome counts one ProcessPurchase result. An empty code counts as ok.
func RecordOutcome(source, code string) {
	if code == "" {
		code = "ok"
	}
	CommissionOutcomes.WithLabelValues(source, code).Inc()
}

// Notifier counts credited legs. It implements commission.Notifier.
type Notifier struct{}

func (Notifier) CommissionCredited(_ context.Context, c *models.Commission) {
	CommissionsCredited.WithLabelValues(string(c.Kind)).Inc()
	CommissionAmount.WithLabelValues(string(c.Kind)).Add(c.Amount.InexactFloat64())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records request counts and latencies. Unmatched paths share
// one label so scanners cannot grow the series set.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rec.status == http.StatusNotFound {
			path = "unmatched"
		}
		HttpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		ResponseTimeHistogram.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
