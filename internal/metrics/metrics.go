// Package metrics exposes the Prometheus instruments for the ladder planner.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ladderd",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests, partitioned by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ladderd",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	FillComputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ladderd",
		Name:      "fill_computations_total",
		Help:      "Ladder fill recomputations, partitioned by side.",
	}, []string{"side"})

	AlertsFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ladderd",
		Name:      "alerts_fired_total",
		Help:      "Level proximity alerts dispatched.",
	})

	ConsensusFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ladderd",
		Name:      "price_consensus_failures_total",
		Help:      "Consensus price fetches that did not reach quorum.",
	})

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ladderd",
		Name:      "ws_clients",
		Help:      "Active websocket clients.",
	})
)

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. Routes are labelled by the
// first two path segments so per-ID URLs do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeLabel(r.URL.Path)
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routeLabel(path string) string {
	segments := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	switch {
	case len(segments) >= 2 && segments[1] != "":
		return "/" + segments[0] + "/" + segments[1]
	case segments[0] != "":
		return "/" + segments[0]
	default:
		return "/"
	}
}
