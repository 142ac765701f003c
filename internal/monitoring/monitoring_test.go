package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorHealthTracksProbe(t *testing.T) {
	health := NewHealth()
	flag := health.Register("classifier")

	var fail atomic.Bool
	fail.Store(true)
	probe := func(context.Context) error {
		if fail.Load() {
			return errors.New("model not loaded")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go MonitorHealth(ctx, "classifier", probe, flag, 5*time.Millisecond)

	require.Eventually(t, func() bool { return !health.Healthy() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"classifier"}, health.Unhealthy())

	fail.Store(false)
	require.Eventually(t, health.Healthy, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]bool{"classifier": true}, health.Snapshot())
}

func TestRegisterIsIdempotent(t *testing.T) {
	health := NewHealth()
	a := health.Register("valkey")
	b := health.Register("valkey")
	assert.Same(t, a, b)
	assert.True(t, a.Load())
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(historyWritesTotal.WithLabelValues("written"))
	ObserveHistoryWrite("written")
	assert.Equal(t, before+1, testutil.ToFloat64(historyWritesTotal.WithLabelValues("written")))

	beforeFailures := testutil.ToFloat64(reviewScoreFailuresTotal)
	ObserveScoreFailure(errors.New("timeout"))
	assert.Equal(t, beforeFailures+1, testutil.ToFloat64(reviewScoreFailuresTotal))
}

func TestPrometheusMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMiddleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/items/{id}", "GET", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/items/{id}", "GET", "418")))
}
