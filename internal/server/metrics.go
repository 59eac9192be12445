package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ntm-sim/ntm-sim/sim"
)

const unmatched = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ntm_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ntm_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ntm_runs_total",
			Help: "Total number of decided inputs, by verdict.",
		},
		[]string{"verdict"},
	)

	runRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ntm_run_rounds",
			Help:    "Rounds processed per run.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	tapeClonesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ntm_tape_clones_total",
			Help: "Deep tape copies made across all runs.",
		},
	)

	tapeSegmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ntm_tape_segments_total",
			Help: "Tape segments allocated across all runs.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runRounds)
	prometheus.MustRegister(tapeClonesTotal)
	prometheus.MustRegister(tapeSegmentsTotal)
}

// observeRun records one run outcome.
func observeRun(res *sim.Result) {
	runsTotal.WithLabelValues(res.Verdict.String()).Inc()
	runRounds.Observe(float64(res.Rounds))
	tapeClonesTotal.Add(float64(res.Metrics.TapeClones))
	tapeSegmentsTotal.Add(float64(res.Metrics.SegmentsAllocated))
}

// metricsMiddleware records request count and duration for every HTTP request.
// Uses the chi route pattern (not the raw path) to avoid unbounded cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePattern extracts the matched chi route pattern, falling back to "unmatched".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

// metricsHandler returns the Prometheus metrics handler.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
