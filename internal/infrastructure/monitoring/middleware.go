package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(method, path, status, time.Since(start))
	}
}

// Timer measures a host transport round trip.
type Timer struct {
	start     time.Time
	metrics   *Metrics
	transport string
	kind      string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, transport, kind string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   metrics,
		transport: transport,
		kind:      kind,
	}
}

// Stop stops the timer and records the duration
func (t *Timer) Stop(status string) {
	t.metrics.RecordTransportCall(t.transport, t.kind, status, time.Since(t.start))
}
