package modem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"arborsense.dev/field/cellgw/at"
	"arborsense.dev/field/cellgw/logging"
)

// Connection states. The serial line is half-duplex and the modem is a
// single shared device, so the engine owns the transport exclusively and
// serializes every public operation behind one guard.
const (
	StateUninitialized = "UNINITIALIZED"
	StateInitialized   = "INITIALIZED"
	StateConnecting    = "CONNECTING"
	StateConnected     = "CONNECTED"
	StateDisconnecting = "DISCONNECTING"
	StateDisconnected  = "DISCONNECTED"
	StateFaulted       = "FAULTED"
)

const (
	eventInitialize  = "initialize"
	eventDial        = "dial"
	eventEstablished = "established"
	eventAbandon     = "abandon"
	eventHangup      = "hangup"
	eventDown        = "down"
	eventReset       = "reset"
	eventFault       = "fault"
)

const (
	// retryBackoff is the fixed delay between command attempts.
	retryBackoff = 500 * time.Millisecond
	// pollInterval paces the accumulator when the transport is silent.
	pollInterval = 10 * time.Millisecond
	// resetSettle is how long the module takes to reboot after AT+CFUN=1,1.
	resetSettle = 10 * time.Second
)

// errReadTimeout marks an accumulator return with no terminal token.
var errReadTimeout = errors.New("response timeout")

// Modem drives a cellular module over an AT command channel: network
// attachment, HTTP-over-AT data upload, SMS, clock and signal queries.
//
// All exported methods acquire the single operation guard before touching
// the transport or mutable state, so concurrent callers are serialized,
// never interleaved on the wire.
type Modem struct {
	// mu is the single exclusive operation guard.
	mu sync.Mutex
	// transport is the byte channel to the module.
	transport Transport
	// config contains the engine configuration settings.
	config Config
	// log is the injected logging capability.
	log logging.Logger
	// states tracks the connection lifecycle.
	states *fsm.FSM
	// closed indicates the engine has been shut down.
	closed bool
	// httpActive indicates an HTTP session is configured on the module.
	httpActive bool
	// connectedAt is when the current connection was established.
	connectedAt time.Time
	// signal and sim are refreshed on demand, never persisted.
	signal SignalInfo
	sim    SIMInfo
	// stats is the lifetime statistics ledger.
	stats statsLedger
}

// New dials the transport and initializes the module: AT sanity check,
// echo off, verbose errors, registration reporting, SIM PIN entry when
// required, and an initial SIM info refresh. On failure the transport is
// closed and an error returned.
func New(ctx context.Context, config Config) (*Modem, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	m := &Modem{
		transport: transport,
		config:    config,
		log:       config.Logger,
		signal:    newSignalInfo(),
	}
	m.states = fsm.NewFSM(
		StateUninitialized,
		fsm.Events{
			{Name: eventInitialize, Src: []string{StateUninitialized}, Dst: StateInitialized},
			{Name: eventDial, Src: []string{StateInitialized, StateDisconnected}, Dst: StateConnecting},
			{Name: eventEstablished, Src: []string{StateConnecting}, Dst: StateConnected},
			{Name: eventAbandon, Src: []string{StateConnecting}, Dst: StateDisconnected},
			{Name: eventHangup, Src: []string{StateConnected}, Dst: StateDisconnecting},
			{Name: eventDown, Src: []string{StateDisconnecting}, Dst: StateDisconnected},
			{Name: eventReset, Src: []string{
				StateInitialized, StateConnecting, StateConnected,
				StateDisconnecting, StateDisconnected, StateFaulted,
			}, Dst: StateUninitialized},
			{Name: eventFault, Src: []string{
				StateUninitialized, StateInitialized, StateConnecting,
				StateConnected, StateDisconnecting, StateDisconnected,
			}, Dst: StateFaulted},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.log.Debug("state change", "from", e.Src, "to", e.Dst)
			},
		},
	)

	if err := m.initialize(ctx); err != nil {
		transport.Close()
		return nil, fmt.Errorf("initialize modem: %w", err)
	}

	return m, nil
}

// State returns the current connection state.
func (m *Modem) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states.Current()
}

func (m *Modem) is(state string) bool {
	return m.states.Current() == state
}

func (m *Modem) transition(ctx context.Context, event string) {
	if err := m.states.Event(ctx, event); err != nil {
		// Transitions are driven internally in lockstep with the guard,
		// so a rejection here is a programming error worth surfacing.
		m.log.Error("illegal state transition", "event", event, "state", m.states.Current(), "error", err)
	}
}

// Close shuts down the engine and releases the transport. A connected
// engine is disconnected best-effort first. After Close the engine cannot
// be reused.
func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAlreadyClosed
	}
	m.closed = true

	if m.transport != nil {
		return m.transport.Close()
	}
	return nil
}

// Connected reports whether the engine believes it is attached and the
// module still answers a cheap AT ping. Ping traffic only occurs in the
// connected state.
func (m *Modem) Connected(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.is(StateConnected) {
		return false
	}
	return m.command(ctx, at.CmdPing, at.OK, 1, time.Second).Matched()
}

// initialize performs the module setup sequence. Called from New and
// from Reset; the caller holds the guard in the Reset path.
func (m *Modem) initialize(ctx context.Context) error {
	// Wake-up / sanity check. The module may need a few attempts after
	// power-on.
	if out := m.command(ctx, at.CmdPing, at.OK, m.config.MaxAttempts, 0); !out.Matched() {
		return fmt.Errorf("modem not responding: %s", out.Kind)
	}

	if out := m.command(ctx, at.CmdEchoOff, at.OK, 1, 0); !out.Matched() {
		return fmt.Errorf("could not disable echo: %s", out.Kind)
	}

	if out := m.command(ctx, at.CmdModuleModel, at.OK, 1, 0); out.Matched() {
		m.log.Info("module identified", "model", firstDataLine(out.Raw))
	}

	// Verbose errors and registration reporting are quality-of-life
	// toggles; some firmware rejects them.
	for _, cmd := range []string{at.CmdVerboseErrors, at.CmdCregReports, at.CmdCgregReports} {
		if out := m.command(ctx, cmd, at.OK, 1, 0); !out.Matched() {
			m.log.Warn("setup command rejected", "command", cmd, "outcome", out.Kind.String())
		}
	}

	if err := m.unlockSIM(ctx); err != nil {
		return err
	}

	m.refreshSIMInfo(ctx)

	m.transition(ctx, eventInitialize)
	m.log.Info("modem initialized")
	return nil
}

// unlockSIM enters the configured PIN when the SIM asks for one and waits
// for the card to come up. A PIN prompt without a configured PIN is a
// provisioning problem, not something software can retry.
func (m *Modem) unlockSIM(ctx context.Context) error {
	out := m.command(ctx, at.CmdSimStatus, at.OK, 1, 0)
	switch {
	case strings.Contains(out.Raw, at.SimReady):
		return nil

	case strings.Contains(out.Raw, at.SimPin):
		if m.config.SimPIN == "" {
			return &ConnectError{Reason: FailureSIMPinRequired, Detail: firstDataLine(out.Raw)}
		}
		pinCmd := fmt.Sprintf(`+CPIN="%s"`, m.config.SimPIN)
		if out := m.command(ctx, pinCmd, at.OK, 1, 0); !out.Matched() {
			return fmt.Errorf("enter SIM PIN: %s", out.Kind)
		}
		return m.waitForSIMReady(ctx, 30*time.Second)

	case strings.Contains(out.Raw, at.SimPuk):
		return &ConnectError{Reason: FailureSIMPukRequired, Detail: firstDataLine(out.Raw)}

	default:
		return &ConnectError{Reason: FailureSIMNotReady, Detail: firstDataLine(out.Raw)}
	}
}

// waitForSIMReady polls the SIM status until it reports ready. The card
// needs time to authenticate after a PIN entry.
func (m *Modem) waitForSIMReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if out := m.command(ctx, at.CmdSimStatus, at.SimReady, 1, 0); out.Matched() {
			return nil
		}
		if time.Now().After(deadline) {
			return &ConnectError{Reason: FailureSIMNotReady, Detail: "SIM did not become ready after PIN entry"}
		}
		if !sleepCtx(ctx, 500*time.Millisecond) {
			return ctx.Err()
		}
	}
}

// Reset performs a software reset of the module (AT+CFUN=1,1), waits for
// it to reboot and re-runs the initialization sequence. Any connection
// state is lost.
func (m *Modem) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAlreadyClosed
	}

	m.log.Warn("resetting module")
	m.command(ctx, at.CmdSoftReset, at.OK, 1, 0)

	m.httpActive = false
	m.connectedAt = time.Time{}
	if !m.is(StateUninitialized) {
		m.transition(ctx, eventReset)
	}

	if !sleepCtx(ctx, resetSettle) {
		return ctx.Err()
	}
	return m.initialize(ctx)
}

// command frames and transmits one AT command, then accumulates response
// text until expect, a negative token, or the timeout. Timeouts and
// transport hiccups are retried up to attempts with a fixed backoff; an
// explicit rejection short-circuits the remaining attempts.
//
// A zero timeout selects the configured command timeout. The caller must
// hold the operation guard (or be on the single-threaded construction
// path).
func (m *Modem) command(ctx context.Context, mnemonic, expect string, attempts int, timeout time.Duration) ResponseOutcome {
	if attempts < 1 {
		attempts = 1
	}
	if timeout <= 0 {
		timeout = m.config.CommandTimeout
	}
	wire := []byte("AT" + mnemonic + at.CRLF)

	last := ResponseOutcome{Kind: OutcomeTimedOut}
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			m.log.Debug("retrying command", "command", mnemonic, "attempt", attempt)
			if !sleepCtx(ctx, retryBackoff) {
				return last
			}
		}

		if err := m.transport.ResetInputBuffer(); err != nil {
			last = ResponseOutcome{Kind: OutcomeTransportFailure, Raw: err.Error()}
			continue
		}

		m.log.Debug("tx", "command", "AT"+mnemonic)
		if _, err := m.transport.Write(wire); err != nil {
			m.log.Warn("write failed", "command", mnemonic, "error", err)
			last = ResponseOutcome{Kind: OutcomeTransportFailure, Raw: err.Error()}
			continue
		}

		text, err := m.readUntil(ctx, timeout, expect, at.ERROR, at.CmeError, at.CmsError)
		m.log.Debug("rx", "response", text)

		switch {
		case err == nil && strings.Contains(text, expect):
			return ResponseOutcome{Kind: OutcomeMatched, Raw: text}
		case err == nil && at.Negative(text):
			return ResponseOutcome{Kind: OutcomeNegative, Raw: text}
		case errors.Is(err, errReadTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			last = ResponseOutcome{Kind: OutcomeTimedOut, Raw: text}
		default:
			last = ResponseOutcome{Kind: OutcomeTransportFailure, Raw: text}
		}
	}
	return last
}

// readUntil accumulates transport bytes until any terminal token is a
// substring of the buffer or the timeout elapses. The timeout is wall
// clock from the start of this call, not cumulative across retries. On
// timeout the partial buffer is returned with errReadTimeout; callers
// must treat it as potentially unusable.
func (m *Modem) readUntil(ctx context.Context, timeout time.Duration, tokens ...string) (string, error) {
	deadline := time.Now().Add(timeout)
	var buf strings.Builder
	chunk := make([]byte, 256)

	for {
		if err := ctx.Err(); err != nil {
			return buf.String(), err
		}

		n, err := m.transport.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			text := buf.String()
			for _, token := range tokens {
				if token != "" && strings.Contains(text, token) {
					return text, nil
				}
			}
		}
		if err != nil {
			return buf.String(), fmt.Errorf("transport read: %w", err)
		}
		if time.Now().After(deadline) {
			return buf.String(), errReadTimeout
		}
		if n == 0 {
			time.Sleep(pollInterval)
		}
	}
}

// writeRaw puts bytes on the wire without command framing. HTTP payload
// bytes are not text commands and must not be terminated or escaped.
func (m *Modem) writeRaw(p []byte) error {
	n, err := m.transport.Write(p)
	if err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("short payload write: %d of %d bytes", n, len(p))
	}
	return nil
}

// firstDataLine returns the first non-empty line that is not a bare
// terminal token, for compact logging of one-line replies.
func firstDataLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == at.OK || at.Classify(line) == at.TypeFinal {
			continue
		}
		return line
	}
	return ""
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
