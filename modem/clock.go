package modem

import (
	"context"
	"fmt"

	"arborsense.dev/field/cellgw/at"
)

// NetworkTime queries the module clock and returns the timestamp string
// in the modem's "YY/MM/DD,HH:MM:SS±ZZ" shape, verbatim, for the time
// manager to consume. Shape validity can be checked with at.ValidClock;
// semantic validity is not this engine's concern.
func (m *Modem) NetworkTime(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrAlreadyClosed
	}
	if m.is(StateUninitialized) {
		return "", ErrNotInitialized
	}

	out := m.command(ctx, at.CmdClock, at.OK, 1, 0)
	if !out.Matched() {
		return "", fmt.Errorf("query clock: %s", out.Kind)
	}

	timeStr, ok := at.ParseClock(out.Raw)
	if !ok {
		return "", fmt.Errorf("no clock string in response %q", firstDataLine(out.Raw))
	}

	m.log.Debug("network time", "time", timeStr)
	return timeStr, nil
}

// EnableAutoTimeZone turns on network-provided time and time-zone updates
// (NITZ). Fire-and-forget configuration toggle.
func (m *Modem) EnableAutoTimeZone(ctx context.Context) error {
	return m.toggle(ctx, at.CmdAutoTimeZone)
}

// EnableTimeZoneReports turns on unsolicited time-zone change reports.
func (m *Modem) EnableTimeZoneReports(ctx context.Context) error {
	return m.toggle(ctx, at.CmdTimeZoneRpt)
}

func (m *Modem) toggle(ctx context.Context, cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAlreadyClosed
	}
	if out := m.command(ctx, cmd, at.OK, 1, 0); !out.Matched() {
		return fmt.Errorf("AT%s: %s", cmd, out.Kind)
	}
	return nil
}
