package modem

import (
	"context"
	"fmt"
	"strings"

	"arborsense.dev/field/cellgw/at"
)

// SendSMS sends a text message to the specified recipient. Field units
// use this for out-of-band alerts when the data endpoint is unreachable.
//
// The message is sent in text mode. The recipient should be in
// international format (e.g., "+441234567890"). This method blocks until
// the message is accepted by the network or an error occurs; delivery to
// the final recipient happens asynchronously.
func (m *Modem) SendSMS(ctx context.Context, recipient, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAlreadyClosed
	}
	if m.is(StateUninitialized) || m.is(StateFaulted) {
		return ErrNotInitialized
	}

	if out := m.command(ctx, at.CmdTextMode, at.OK, 1, 0); !out.Matched() {
		return fmt.Errorf("set SMS text mode: %s", out.Kind)
	}

	sendCmd := fmt.Sprintf(`+CMGS="%s"`, recipient)
	if out := m.command(ctx, sendCmd, at.Prompt, 1, 0); !out.Matched() {
		return fmt.Errorf("did not receive SMS prompt, got: %q", firstDataLine(out.Raw))
	}

	// The body bypasses command framing and is terminated by Ctrl-Z.
	if err := m.writeRaw([]byte(message + at.CtrlZ)); err != nil {
		return fmt.Errorf("SMS body: %w", err)
	}

	// Network acceptance can take several seconds.
	text, err := m.readUntil(ctx, m.config.HTTPTimeout, at.OK, at.ERROR, at.CmsError)
	if err != nil {
		return fmt.Errorf("SMS send: %w", err)
	}
	if !strings.Contains(text, at.OK) {
		return fmt.Errorf("unexpected SMS response: %q", firstDataLine(text))
	}

	m.log.Info("SMS sent", "recipient", recipient)
	return nil
}
