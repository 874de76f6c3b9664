package modem_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"arborsense.dev/field/cellgw/modem"
)

func TestModemNew(t *testing.T) {
	t.Run("initialization success", func(t *testing.T) {
		m, tr := scriptModem(t, happyResponses)

		if got := m.State(); got != modem.StateInitialized {
			t.Errorf("expected state %s, got %s", modem.StateInitialized, got)
		}
		if countCommands(tr, "ATE0") != 1 {
			t.Error("expected echo to be disabled during initialization")
		}

		sim := m.SIM(context.Background())
		if sim.IMEI != "867584030012345" {
			t.Errorf("unexpected IMEI: %q", sim.IMEI)
		}
		if sim.ICCID != "8944110068203351234" {
			t.Errorf("unexpected ICCID: %q", sim.ICCID)
		}
		if !sim.Ready {
			t.Error("expected SIM to be ready")
		}
	})

	t.Run("dialer error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := modem.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, errors.New("device not found"))

		config, err := modem.NewConfigBuilder().WithDialer(mockDialer).Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		m, err := modem.New(context.Background(), config)
		if err == nil {
			t.Error("expected error from dialer failure")
		}
		if m != nil {
			t.Error("New() should return nil modem when dialer fails")
		}
	})

	t.Run("ErrNotInitialized when dialer returns nil transport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := modem.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, nil)

		config, err := modem.NewConfigBuilder().WithDialer(mockDialer).Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		_, err = modem.New(context.Background(), config)
		if !errors.Is(err, modem.ErrNotInitialized) {
			t.Errorf("expected ErrNotInitialized, got: %v", err)
		}
	})

	t.Run("silent modem retries then fails and closes transport", func(t *testing.T) {
		tr := modem.NewScriptTransport(nil)

		config, err := modem.NewConfigBuilder().
			WithDialer(modem.ScriptDialer{Transport: tr}).
			WithMaxAttempts(2).
			WithCommandTimeout(40 * time.Millisecond).
			Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		m, err := modem.New(context.Background(), config)
		if err == nil || !strings.Contains(err.Error(), "not responding") {
			t.Errorf("expected not-responding error, got: %v", err)
		}
		if m != nil {
			t.Error("New() should return nil modem on initialization failure")
		}
		if got := countCommands(tr, "AT"); got != 2 {
			t.Errorf("expected 2 ping attempts, got %d", got)
		}
		if !tr.Closed() {
			t.Error("expected transport to be closed on initialization failure")
		}
	})

	t.Run("SIM PIN required but not configured", func(t *testing.T) {
		tr := modem.NewScriptTransport(func(written string) string {
			cmd := strings.TrimSuffix(written, "\r\n")
			if cmd == "AT+CPIN?" {
				return "+CPIN: SIM PIN\r\n\r\nOK\r\n"
			}
			return happyResponses(cmd)
		})

		config, err := modem.NewConfigBuilder().
			WithDialer(modem.ScriptDialer{Transport: tr}).
			WithCommandTimeout(40 * time.Millisecond).
			Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		_, err = modem.New(context.Background(), config)

		var cerr *modem.ConnectError
		if !errors.As(err, &cerr) || cerr.Reason != modem.FailureSIMPinRequired {
			t.Errorf("expected SIM PIN required failure, got: %v", err)
		}
		if !tr.Closed() {
			t.Error("expected transport to be closed")
		}
	})

	t.Run("SIM PIN entry unlocks the card", func(t *testing.T) {
		unlocked := false
		tr := modem.NewScriptTransport(func(written string) string {
			cmd := strings.TrimSuffix(written, "\r\n")
			switch {
			case cmd == "AT+CPIN?" && !unlocked:
				return "+CPIN: SIM PIN\r\n\r\nOK\r\n"
			case cmd == `AT+CPIN="7342"`:
				unlocked = true
				return okResp
			}
			return happyResponses(cmd)
		})

		config, err := modem.NewConfigBuilder().
			WithDialer(modem.ScriptDialer{Transport: tr}).
			WithSimPIN("7342").
			WithCommandTimeout(40 * time.Millisecond).
			Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		m, err := modem.New(context.Background(), config)
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}
		defer m.Close()

		if countCommands(tr, `AT+CPIN="7342"`) != 1 {
			t.Error("expected exactly one PIN entry")
		}
		if got := m.State(); got != modem.StateInitialized {
			t.Errorf("expected state %s, got %s", modem.StateInitialized, got)
		}
	})
}

func TestModemClose(t *testing.T) {
	t.Run("double close returns ErrAlreadyClosed", func(t *testing.T) {
		m, tr := scriptModem(t, happyResponses)

		if err := m.Close(); err != nil {
			t.Errorf("unexpected error from Close(): %v", err)
		}
		if !tr.Closed() {
			t.Error("expected transport to be closed")
		}
		if err := m.Close(); !errors.Is(err, modem.ErrAlreadyClosed) {
			t.Errorf("expected ErrAlreadyClosed, got: %v", err)
		}
	})

	t.Run("operations after close fail without traffic", func(t *testing.T) {
		m, tr := scriptModem(t, happyResponses)
		if err := m.Close(); err != nil {
			t.Fatalf("unexpected error from Close(): %v", err)
		}
		before := len(tr.Commands())

		ctx := context.Background()
		if err := m.Connect(ctx); !errors.Is(err, modem.ErrAlreadyClosed) {
			t.Errorf("Connect: expected ErrAlreadyClosed, got: %v", err)
		}
		if _, err := m.SendData(ctx, []byte("x")); !errors.Is(err, modem.ErrAlreadyClosed) {
			t.Errorf("SendData: expected ErrAlreadyClosed, got: %v", err)
		}
		if _, err := m.NetworkTime(ctx); !errors.Is(err, modem.ErrAlreadyClosed) {
			t.Errorf("NetworkTime: expected ErrAlreadyClosed, got: %v", err)
		}
		if m.Connected(ctx) {
			t.Error("Connected should report false after close")
		}
		if got := len(tr.Commands()); got != before {
			t.Errorf("expected no transport traffic after close, got %d new commands", got-before)
		}
	})
}

func TestConnected(t *testing.T) {
	t.Run("no ping traffic unless connected", func(t *testing.T) {
		m, tr := scriptModem(t, happyResponses)
		before := len(tr.Commands())

		if m.Connected(context.Background()) {
			t.Error("expected Connected to report false before Connect")
		}
		if got := len(tr.Commands()); got != before {
			t.Error("Connected should not touch the transport when not connected")
		}
	})

	t.Run("pings the module when connected", func(t *testing.T) {
		m, tr := connectModem(t, happyResponses)
		before := countCommands(tr, "AT")

		if !m.Connected(context.Background()) {
			t.Error("expected Connected to report true")
		}
		if countCommands(tr, "AT") != before+1 {
			t.Error("expected exactly one ping")
		}
	})
}

func TestReset(t *testing.T) {
	t.Run("cancelled context aborts the settle wait", func(t *testing.T) {
		m, _ := scriptModem(t, happyResponses)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := m.Reset(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
		if got := m.State(); got != modem.StateUninitialized {
			t.Errorf("expected state %s after aborted reset, got %s", modem.StateUninitialized, got)
		}
		if _, err := m.NetworkTime(context.Background()); !errors.Is(err, modem.ErrNotInitialized) {
			t.Errorf("expected ErrNotInitialized after aborted reset, got: %v", err)
		}
	})
}

func TestConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  modem.ConnectError
		want string
	}{
		{"without detail", modem.ConnectError{Reason: modem.FailureRegistrationTimeout}, "connect: network registration timeout"},
		{"with detail", modem.ConnectError{Reason: modem.FailureSIMNotReady, Detail: "+CME ERROR: SIM failure"}, `connect: SIM not ready: "+CME ERROR: SIM failure"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
