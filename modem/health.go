package modem

import (
	"context"
	"time"

	"arborsense.dev/field/cellgw/at"
)

// HealthCheck probes the module: AT responsiveness, SIM readiness and a
// minimum usable signal level. It is a diagnostic, not a state change;
// the connection state machine is untouched.
func (m *Modem) HealthCheck(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.is(StateUninitialized) {
		return false
	}

	m.log.Info("performing module health check")
	healthy := true

	if !m.command(ctx, at.CmdPing, at.OK, 1, time.Second).Matched() {
		m.log.Error("no AT response")
		healthy = false
	}

	if cerr := m.checkSIMReady(ctx); cerr != nil {
		m.log.Error("SIM not ready", "reason", cerr.Reason.String())
		healthy = false
	}

	m.refreshSignalInfo(ctx)
	if m.signal.RSSI == at.SignalUnknown || m.signal.RSSI < -110 {
		m.log.Warn("poor or no signal", "rssi_dbm", m.signal.RSSI)
		healthy = false
	}

	if healthy {
		m.log.Info("health check passed")
	} else {
		m.log.Warn("health check failed")
	}
	return healthy
}
