package modem

import (
	"context"

	"arborsense.dev/field/cellgw/at"
)

// SignalInfo describes current signal quality and network attachment.
// Metric fields hold at.SignalUnknown until a refresh succeeds.
type SignalInfo struct {
	RSSI         int    // received signal strength, dBm
	BER          int    // bit error rate code, 0-7 or at.BERUnknown
	RSRP         int    // LTE reference signal received power, dBm
	RSRQ         int    // LTE reference signal received quality, dB
	SINR         int    // LTE signal to interference plus noise ratio, dB
	NetworkType  string // "LTE", "3G", "2G" or "" when unknown
	OperatorName string
	Roaming      bool
}

func newSignalInfo() SignalInfo {
	return SignalInfo{
		RSSI: at.SignalUnknown,
		BER:  at.BERUnknown,
		RSRP: at.SignalUnknown,
		RSRQ: at.SignalUnknown,
		SINR: at.SignalUnknown,
	}
}

// SIMInfo describes the installed SIM card.
type SIMInfo struct {
	IMEI         string
	IMSI         string
	ICCID        string
	OperatorName string
	PINRequired  bool
	Ready        bool
}

// Signal refreshes and returns the current signal information. Fields
// whose query or parse fails keep their previous value.
func (m *Modem) Signal(ctx context.Context) SignalInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed && !m.is(StateUninitialized) {
		m.refreshSignalInfo(ctx)
	}
	return m.signal
}

// SIM refreshes and returns the current SIM card information.
func (m *Modem) SIM(ctx context.Context) SIMInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed && !m.is(StateUninitialized) {
		m.refreshSIMInfo(ctx)
	}
	return m.sim
}

// refreshSignalInfo queries signal quality, system info and the operator
// name. Caller holds the operation guard. Absent patterns leave fields
// untouched, never produce an error.
func (m *Modem) refreshSignalInfo(ctx context.Context) {
	if out := m.command(ctx, at.CmdSignalQuality, at.OK, 1, 0); out.Matched() {
		if rssi, ber, ok := at.ParseSignalQuality(out.Raw); ok {
			m.signal.RSSI = rssi
			m.signal.BER = ber
		}
	}

	if out := m.command(ctx, at.CmdSystemInfo, at.OK, 1, 0); out.Matched() {
		info := at.ParseSystemInfo(out.Raw)
		if info.NetworkType != "" {
			m.signal.NetworkType = info.NetworkType
		}
		if info.HasLTEMetrics {
			m.signal.RSRP = info.RSRP
			m.signal.RSRQ = info.RSRQ
			m.signal.SINR = info.SINR
		}
	}

	if out := m.command(ctx, at.CmdOperator, at.OK, 1, 0); out.Matched() {
		if name, ok := at.ParseOperator(out.Raw); ok {
			m.signal.OperatorName = name
		}
	}
}

// refreshSIMInfo queries the module and card identities. Caller holds the
// operation guard.
func (m *Modem) refreshSIMInfo(ctx context.Context) {
	if out := m.command(ctx, at.CmdIMEI, at.OK, 1, 0); out.Matched() {
		if id, ok := at.ParseIdentity(out.Raw); ok {
			m.sim.IMEI = id
		}
	}

	if out := m.command(ctx, at.CmdIMSI, at.OK, 1, 0); out.Matched() {
		if id, ok := at.ParseIdentity(out.Raw); ok {
			m.sim.IMSI = id
		}
	}

	if out := m.command(ctx, at.CmdICCID, at.OK, 1, 0); out.Matched() {
		if id, ok := at.ParseICCID(out.Raw); ok {
			m.sim.ICCID = id
		}
	}

	if out := m.command(ctx, at.CmdSimOperator, at.OK, 1, 0); out.Matched() {
		if name, ok := at.ParseSimOperator(out.Raw); ok {
			m.sim.OperatorName = name
		}
	}
}
