package modem

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arborsense.dev/field/cellgw/at"
)

const (
	// registrationPollInterval paces the +CREG? wait loop.
	registrationPollInterval = time.Second
	// contextActivationTimeout allows for the several seconds a PDP
	// context activation can legitimately take.
	contextActivationTimeout = 10 * time.Second
	// contextActivationAttempts bounds activation retries.
	contextActivationAttempts = 3
)

// Connect brings the module onto the network: SIM readiness, APN
// configuration, registration wait, packet data context activation and a
// signal/SIM info refresh, strictly in that order. Calling Connect while
// already connected is a no-op success with no transport traffic.
//
// The context cancels the registration wait, which can span up to the
// configured registration timeout; on battery hardware an uncancellable
// minute-long wait is a real energy cost.
//
// The statistics ledger is updated exactly once per call: the failure
// counter on the first failing step, or the success counter and the
// connection start time on reaching the connected state.
func (m *Modem) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAlreadyClosed
	}
	if m.is(StateConnected) {
		return nil
	}
	if !m.is(StateInitialized) && !m.is(StateDisconnected) {
		return ErrNotInitialized
	}

	m.log.Info("connecting to cellular network")
	m.transition(ctx, eventDial)

	if cerr := m.establish(ctx); cerr != nil {
		m.stats.connectFailed(cerr.Error())
		m.transition(ctx, eventAbandon)
		m.log.Error("connect failed", "reason", cerr.Reason.String(), "detail", cerr.Detail)
		return cerr
	}

	m.transition(ctx, eventEstablished)
	m.connectedAt = time.Now()
	m.stats.connectSucceeded(m.connectedAt)

	m.log.Info("connected",
		"operator", m.signal.OperatorName,
		"network", m.signal.NetworkType,
		"rssi_dbm", m.signal.RSSI,
		"roaming", m.signal.Roaming)
	return nil
}

// establish runs the ordered handshake. It returns on the first failing
// step; no step is retried out of order.
func (m *Modem) establish(ctx context.Context) *ConnectError {
	if cerr := m.checkSIMReady(ctx); cerr != nil {
		return cerr
	}

	// APN misconfiguration is not immediately fatal, some networks
	// apply a default profile.
	if err := m.configureAPN(ctx); err != nil {
		m.log.Warn("APN configuration failed, continuing", "error", err)
	}

	if cerr := m.waitForRegistration(ctx); cerr != nil {
		return cerr
	}

	if cerr := m.activateContext(ctx); cerr != nil {
		return cerr
	}

	// Observability refresh; failures here leave fields unset but do not
	// fail the connection.
	m.refreshSignalInfo(ctx)
	m.refreshSIMInfo(ctx)
	return nil
}

// checkSIMReady verifies the SIM answers READY. Failure modes are
// distinguished because they need different external interventions.
// The executor already retried at the transport level, so any SIM
// failure is terminal for this attempt.
func (m *Modem) checkSIMReady(ctx context.Context) *ConnectError {
	out := m.command(ctx, at.CmdSimStatus, at.SimReady, m.config.MaxAttempts, 0)
	if out.Matched() {
		m.sim.Ready = true
		m.sim.PINRequired = false
		return nil
	}

	m.sim.Ready = false
	detail := firstDataLine(out.Raw)
	switch {
	case strings.Contains(out.Raw, at.SimPin):
		m.sim.PINRequired = true
		return &ConnectError{Reason: FailureSIMPinRequired, Detail: detail}
	case strings.Contains(out.Raw, at.SimPuk):
		return &ConnectError{Reason: FailureSIMPukRequired, Detail: detail}
	default:
		return &ConnectError{Reason: FailureSIMNotReady, Detail: detail}
	}
}

// configureAPN sets the packet data profile and, when credentials are
// configured, the authentication parameters. Authentication is optional;
// not all firmware supports +CGAUTH.
func (m *Modem) configureAPN(ctx context.Context) error {
	m.log.Info("configuring APN", "apn", m.config.APN)

	apnCmd := fmt.Sprintf(`+CGDCONT=1,"IP","%s"`, m.config.APN)
	if out := m.command(ctx, apnCmd, at.OK, 1, 0); !out.Matched() {
		return fmt.Errorf("set APN %q: %s", m.config.APN, out.Kind)
	}

	if m.config.APNUsername != "" || m.config.APNPassword != "" {
		authCmd := fmt.Sprintf(`+CGAUTH=1,1,"%s","%s"`, m.config.APNUsername, m.config.APNPassword)
		if out := m.command(ctx, authCmd, at.OK, 1, 0); !out.Matched() {
			m.log.Warn("APN authentication rejected", "outcome", out.Kind.String())
		}
	}
	return nil
}

// waitForRegistration polls +CREG? once per interval until the modem
// reports attachment (home or roaming), the network denies registration,
// the budget is exhausted, or the caller cancels.
func (m *Modem) waitForRegistration(ctx context.Context) *ConnectError {
	m.log.Info("waiting for network registration", "timeout", m.config.RegistrationTimeout)

	deadline := time.Now().Add(m.config.RegistrationTimeout)
	for {
		if out := m.command(ctx, at.CmdRegStatus, at.OK, 1, 0); out.Matched() {
			status, ok := at.ParseRegistration(out.Raw)
			switch {
			case ok && status.Registered():
				m.signal.Roaming = status.Roaming()
				m.log.Info("registered on network", "roaming", status.Roaming())
				return nil
			case ok && status.Denied():
				return &ConnectError{Reason: FailureRegistrationDenied, Detail: firstDataLine(out.Raw)}
			case ok:
				m.log.Debug("still searching for network", "status", int(status))
			}
		}

		if time.Now().After(deadline) {
			return &ConnectError{Reason: FailureRegistrationTimeout}
		}
		if !sleepCtx(ctx, registrationPollInterval) {
			return &ConnectError{Reason: FailureRegistrationTimeout, Detail: "cancelled"}
		}
	}
}

// activateContext brings up the packet data context. An already-active
// context is left alone; activation otherwise gets an extended timeout
// because it can take several seconds on a congested cell.
func (m *Modem) activateContext(ctx context.Context) *ConnectError {
	if out := m.command(ctx, at.CmdContextQuery, at.RespCgactActive, 1, 0); out.Matched() {
		m.log.Debug("packet data context already active")
		return nil
	}

	out := m.command(ctx, at.CmdContextUp, at.OK, contextActivationAttempts, contextActivationTimeout)
	if !out.Matched() {
		return &ConnectError{Reason: FailureContextActivation, Detail: firstDataLine(out.Raw)}
	}

	m.log.Info("packet data context activated")
	return nil
}

// Disconnect tears the connection down best-effort: the HTTP session is
// closed if open, the packet data context deactivated, and the elapsed
// connected time accumulated into the lifetime counter. Deactivation
// failures are logged, not propagated; the device must be able to re-enter
// its power-down cycle regardless.
func (m *Modem) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAlreadyClosed
	}
	if !m.is(StateConnected) {
		return nil
	}

	m.log.Info("disconnecting from cellular network")
	m.transition(ctx, eventHangup)

	if m.httpActive {
		m.terminateHTTPService(ctx)
	}

	if out := m.command(ctx, at.CmdContextDown, at.OK, 1, 0); !out.Matched() {
		m.log.Warn("context deactivation failed", "outcome", out.Kind.String())
	}

	if !m.connectedAt.IsZero() {
		m.stats.addConnectedTime(time.Since(m.connectedAt))
		m.connectedAt = time.Time{}
	}

	m.transition(ctx, eventDown)
	m.log.Info("disconnected")
	return nil
}
