package modem

import (
	"context"
	"io"
)

// Transport represents an established, bidirectional byte stream to a
// cellular modem.
//
// A Transport is assumed to be already connected and ready for use. It
// provides the low-level I/O primitives required to send AT commands and
// receive responses. Read must not block indefinitely: implementations
// return (0, nil) when no data arrives within their internal read
// timeout, so the engine's accumulator can poll against its own deadline.
// Typical implementations include serial ports and in-memory fakes used
// for testing.
type Transport interface {
	io.ReadWriteCloser

	// ResetInputBuffer discards any unread bytes buffered on the receive
	// side. The executor clears stale input before every command attempt.
	ResetInputBuffer() error
}

// Dialer opens a Transport to a cellular modem.
//
// Dialer abstracts how the modem connection is created (for example, via a
// serial port or a test double) and is intended to be used during engine
// construction only. Once a Transport is obtained, the Dialer is no longer
// needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context. Dial returns an error if the transport
	// cannot be established.
	Dial(ctx context.Context) (Transport, error)
}
