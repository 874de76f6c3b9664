package modem

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a Modem
	// that has not been successfully initialized.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Modem that has
	// already been closed.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrNotConnected is returned by operations that require an active
	// data connection, such as HTTP transfers, when the engine is not in
	// the connected state. No transport traffic is generated.
	ErrNotConnected = errors.New("modem not connected")

	// ErrNoEndpoint is returned when an HTTP transfer is attempted without
	// a configured endpoint URL.
	ErrNoEndpoint = errors.New("no HTTP endpoint configured")
)

// ConnectFailure identifies why a connection attempt failed. SIM-level
// failures require external intervention (a provisioning step or a human
// with the PIN); the others are safe to retry on a later cycle.
type ConnectFailure int

const (
	FailureNone ConnectFailure = iota
	FailureSIMPinRequired
	FailureSIMPukRequired
	FailureSIMNotReady
	FailureRegistrationDenied
	FailureRegistrationTimeout
	FailureContextActivation
)

func (f ConnectFailure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureSIMPinRequired:
		return "SIM PIN required"
	case FailureSIMPukRequired:
		return "SIM PUK required"
	case FailureSIMNotReady:
		return "SIM not ready"
	case FailureRegistrationDenied:
		return "network registration denied"
	case FailureRegistrationTimeout:
		return "network registration timeout"
	case FailureContextActivation:
		return "packet data context activation failed"
	default:
		return "unknown"
	}
}

// ConnectError reports a failed Connect with the step that failed and the
// raw diagnostic text the modem produced, if any.
type ConnectError struct {
	Reason ConnectFailure
	Detail string
}

func (e *ConnectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("connect: %s", e.Reason)
	}
	return fmt.Sprintf("connect: %s: %q", e.Reason, e.Detail)
}
