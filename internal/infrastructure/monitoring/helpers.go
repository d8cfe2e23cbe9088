package monitoring

import "time"

// Snapshot holds current metric values for the JSON stats endpoint.
type Snapshot struct {
	Flushes        int64   `json:"flushes"`
	FlushErrors    int64   `json:"flush_errors"`
	RecordsFlushed int64   `json:"records_flushed"`
	Notifications  int64   `json:"notifications"`
	Invocations    int64   `json:"invocations"`
	ActiveContexts int64   `json:"active_contexts"`
	WSConnections  int64   `json:"ws_connections"`
	AvgBatchSize   float64 `json:"avg_batch_size"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// Snapshot returns a copy of the tracked values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.Flushes > 0 {
		s.AvgBatchSize = float64(s.RecordsFlushed) / float64(s.Flushes)
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
