package modem

import (
	"time"

	"go.uber.org/atomic"
)

// ConnectionStats is a point-in-time copy of the lifetime counters. The
// counters only grow; they reset with the process. This is observability
// data, not a source of truth for control flow.
type ConnectionStats struct {
	SuccessfulConnections  uint32
	FailedConnections      uint32
	HTTPRequestsSent       uint32
	HTTPRequestsSuccessful uint32
	BytesTransmitted       uint64
	BytesReceived          uint64
	TotalConnectedSeconds  uint64
	LastConnectionTime     time.Time
	LastError              string
}

// statsLedger holds the live counters. Counter pairs are updated together
// at terminal points while the operation guard is held, so a snapshot
// never observes attempted-but-undecided exchanges.
type statsLedger struct {
	successfulConnections  atomic.Uint32
	failedConnections      atomic.Uint32
	httpRequestsSent       atomic.Uint32
	httpRequestsSuccessful atomic.Uint32
	bytesTransmitted       atomic.Uint64
	bytesReceived          atomic.Uint64
	totalConnectedSeconds  atomic.Uint64
	lastConnectionUnix     atomic.Int64
	lastError              atomic.String
}

func (l *statsLedger) connectSucceeded(at time.Time) {
	l.successfulConnections.Inc()
	l.lastConnectionUnix.Store(at.Unix())
}

func (l *statsLedger) connectFailed(reason string) {
	l.failedConnections.Inc()
	l.lastError.Store(reason)
}

func (l *statsLedger) requestSent() {
	l.httpRequestsSent.Inc()
}

func (l *statsLedger) requestSucceeded(txBytes, rxBytes int) {
	l.httpRequestsSuccessful.Inc()
	l.bytesTransmitted.Add(uint64(txBytes))
	if rxBytes > 0 {
		l.bytesReceived.Add(uint64(rxBytes))
	}
}

func (l *statsLedger) requestFailed(reason string) {
	l.lastError.Store(reason)
}

func (l *statsLedger) addConnectedTime(d time.Duration) {
	if d > 0 {
		l.totalConnectedSeconds.Add(uint64(d / time.Second))
	}
}

func (l *statsLedger) snapshot() ConnectionStats {
	stats := ConnectionStats{
		SuccessfulConnections:  l.successfulConnections.Load(),
		FailedConnections:      l.failedConnections.Load(),
		HTTPRequestsSent:       l.httpRequestsSent.Load(),
		HTTPRequestsSuccessful: l.httpRequestsSuccessful.Load(),
		BytesTransmitted:       l.bytesTransmitted.Load(),
		BytesReceived:          l.bytesReceived.Load(),
		TotalConnectedSeconds:  l.totalConnectedSeconds.Load(),
		LastError:              l.lastError.Load(),
	}
	if unix := l.lastConnectionUnix.Load(); unix > 0 {
		stats.LastConnectionTime = time.Unix(unix, 0)
	}
	return stats
}

// Stats returns a copy of the lifetime statistics, never a live reference.
func (m *Modem) Stats() ConnectionStats {
	return m.stats.snapshot()
}
