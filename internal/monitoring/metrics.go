package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platepick_searches_total",
		Help: "Searches run, by outcome.",
	}, []string{"outcome"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "platepick_search_duration_seconds",
		Help:    "End to end duration of a search.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	restaurantsDegradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platepick_restaurant_degraded_total",
		Help: "Restaurants that lost reviews or image, by reason.",
	}, []string{"reason"})

	reviewScoreFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platepick_review_score_failures_total",
		Help: "Reviews the classifier could not score.",
	})

	historyWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platepick_history_writes_total",
		Help: "Top pick history writes, by outcome.",
	}, []string{"outcome"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests.",
	}, []string{"route"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"route", "method", "code"})
)

func ObserveSearch(elapsed time.Duration, outcome string) {
	searchesTotal.WithLabelValues(outcome).Inc()
	searchDuration.Observe(elapsed.Seconds())
}

func ObserveDegraded(reason string) {
	restaurantsDegradedTotal.WithLabelValues(reason).Inc()
}

func ObserveScoreFailure(error) {
	reviewScoreFailuresTotal.Inc()
}

func ObserveHistoryWrite(outcome string) {
	historyWritesTotal.WithLabelValues(outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// PrometheusMiddleware records request counts and latency by chi route
// pattern so path parameters do not explode label cardinality.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
