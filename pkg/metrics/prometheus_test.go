package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.RecordProviderRequest("OVERVIEW", "ok")
	r.RecordProviderRequest("OVERVIEW", "ok")
	r.RecordProviderThrottle("OVERVIEW")
	r.RecordError("store")
	r.ObservePipeline("ok", 2*time.Second)
	r.ObserveFinalRate(64)
	r.ObserveHTTP("/api/rating", http.MethodPost, 200, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.providerRequests.WithLabelValues("OVERVIEW", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerThrottle.WithLabelValues("OVERVIEW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("store")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("/api/rating", "POST", "200")))
}

func TestRecorderIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestHandler(t *testing.T) {
	r := New()
	r.RecordError("provider")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockrate_errors_total")
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordError("x")
		r.ObservePipeline("ok", time.Second)
		r.ObserveFinalRate(1)
		r.RecordProviderRequest("a", "b")
		r.RecordProviderThrottle("a")
		r.ObserveHTTP("/", "GET", 200, time.Second)
	})
	assert.Nil(t, r.Registry())
}
