package modem

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"arborsense.dev/field/cellgw/at"
)

// ScriptTransport is a test helper that simulates the modem end of the
// serial line. Every Write is handed to Respond, whose return value (if
// any) is queued as pending receive data; Read drains the queue and
// returns (0, nil) when it is empty, matching the poll semantics of a
// serial port with a read timeout.
//
// Exported for use by package tests and by bench tooling that wants to
// exercise the engine without hardware.
type ScriptTransport struct {
	mu sync.Mutex

	// Respond maps one transmitted frame to the bytes the modem sends
	// back. A nil Respond or an empty return queues nothing, which the
	// engine observes as a silent modem.
	Respond func(written string) string

	pending  bytes.Buffer
	writes   []string
	commands []string
	flushes  int
	closed   bool
}

func NewScriptTransport(respond func(written string) string) *ScriptTransport {
	return &ScriptTransport{Respond: respond}
}

func (t *ScriptTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	written := string(p)
	t.writes = append(t.writes, written)
	if cmd, ok := frameCommand(written); ok {
		t.commands = append(t.commands, cmd)
	}
	if t.Respond != nil {
		if resp := t.Respond(written); resp != "" {
			t.pending.WriteString(resp)
		}
	}
	return len(p), nil
}

func (t *ScriptTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// An empty queue reads as (0, nil), not io.EOF: the line is idle, not
	// closed.
	if t.pending.Len() == 0 {
		return 0, nil
	}
	return t.pending.Read(p)
}

func (t *ScriptTransport) ResetInputBuffer() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending.Reset()
	t.flushes++
	return nil
}

func (t *ScriptTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Writes returns every frame transmitted, commands and raw payloads alike.
func (t *ScriptTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

// Commands returns the AT command lines transmitted, without framing.
func (t *ScriptTransport) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.commands...)
}

// Closed reports whether Close was called.
func (t *ScriptTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// frameCommand strips AT framing from a transmitted frame, reporting
// whether the frame was a command at all (as opposed to raw payload).
func frameCommand(written string) (string, bool) {
	if !strings.HasPrefix(written, "AT") || !strings.HasSuffix(written, at.CRLF) {
		return "", false
	}
	return strings.TrimSuffix(written, at.CRLF), true
}

// ScriptDialer hands a prepared ScriptTransport to the engine.
type ScriptDialer struct {
	Transport *ScriptTransport
}

func (d ScriptDialer) Dial(ctx context.Context) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Transport, nil
}
