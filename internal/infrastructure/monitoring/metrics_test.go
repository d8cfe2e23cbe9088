package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFlushMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordNotification()
	m.RecordFlush("ok", 3, time.Millisecond)
	m.RecordFlush("transport", 1, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Flushes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Flushes.WithLabelValues("transport")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Flushes)
	assert.Equal(t, int64(1), snap.FlushErrors)
	assert.Equal(t, 2.0, snap.AvgBatchSize)
}

func TestRoundTripGauge(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RoundTripStarted()
	m.RoundTripStarted()
	m.RoundTripSettled("resolved")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundTripsPending))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundTrips.WithLabelValues("resolved")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordAppend("SetAttribute")
		m.RecordFlush("ok", 1, time.Millisecond)
		m.RecordInvocation("click", "ok", time.Millisecond)
		m.ContextOpened()
		NewTimer(m, "grpc", "call").Stop("ok")
	})
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/healthz", "204")))
}
