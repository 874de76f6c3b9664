package modem_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"arborsense.dev/field/cellgw/modem"
)

const (
	okResp  = "OK\r\n"
	testURL = "https://ingest.example.net/v1/telemetry"
)

// happyResponses answers like a healthy module on its home network with
// an inactive packet data context. Tests override individual exchanges
// by wrapping it.
func happyResponses(cmd string) string {
	switch {
	case cmd == "AT", cmd == "ATE0", cmd == "AT+CMEE=2", cmd == "AT+CREG=2",
		cmd == "AT+CGREG=2", cmd == "AT+CGACT=1,1", cmd == "AT+CGACT=0,1",
		cmd == "AT+HTTPINIT", cmd == "AT+HTTPTERM", cmd == "AT+CMGF=1",
		cmd == "AT+CTZU=1", cmd == "AT+CTZR=1":
		return okResp
	case cmd == "AT+CGMM":
		return "SIM7600G-H\r\n\r\nOK\r\n"
	case cmd == "AT+CPIN?":
		return "+CPIN: READY\r\n\r\nOK\r\n"
	case cmd == "AT+CGSN":
		return "867584030012345\r\n\r\nOK\r\n"
	case cmd == "AT+CIMI":
		return "234159876543210\r\n\r\nOK\r\n"
	case cmd == "AT+CCID":
		return "+CCID: 8944110068203351234\r\n\r\nOK\r\n"
	case cmd == "AT+CSPN?":
		return "+CSPN: \"EE\",0\r\n\r\nOK\r\n"
	case cmd == "AT+CREG?":
		return "+CREG: 2,1\r\n\r\nOK\r\n"
	case cmd == "AT+CGACT?":
		return "+CGACT: 1,0\r\n\r\nOK\r\n"
	case cmd == "AT+CSQ":
		return "+CSQ: 20,0\r\n\r\nOK\r\n"
	case cmd == "AT+CPSI?":
		return "+CPSI: LTE,Online,234-15,0x1A2B,123456789,201,EUTRAN-BAND3,1617\r\n\r\nOK\r\n"
	case cmd == "AT+COPS?":
		return "+COPS: 0,0,\"EE\",7\r\n\r\nOK\r\n"
	case cmd == "AT+CCLK?":
		return "+CCLK: \"25/07/29,14:30:00+04\"\r\n\r\nOK\r\n"
	case strings.HasPrefix(cmd, "AT+CGDCONT="), strings.HasPrefix(cmd, "AT+CGAUTH="),
		strings.HasPrefix(cmd, "AT+HTTPPARA="):
		return okResp
	case strings.HasPrefix(cmd, "AT+HTTPDATA="):
		return "DOWNLOAD\r\n"
	case cmd == "AT+HTTPACTION=1":
		return "OK\r\n\r\n+HTTPACTION: 1,200,0\r\n"
	default:
		return ""
	}
}

// scriptModem builds an initialized engine over a scripted transport.
// Command frames reach respond stripped of their CRLF terminator; raw
// payload frames reach it verbatim. Timeouts are shrunk so failure paths
// stay fast.
func scriptModem(t *testing.T, respond func(cmd string) string) (*modem.Modem, *modem.ScriptTransport) {
	t.Helper()

	tr := modem.NewScriptTransport(func(written string) string {
		if strings.HasPrefix(written, "AT") && strings.HasSuffix(written, "\r\n") {
			return respond(strings.TrimSuffix(written, "\r\n"))
		}
		return respond(written)
	})

	config, err := modem.NewConfigBuilder().
		WithDialer(modem.ScriptDialer{Transport: tr}).
		WithEndpoint(testURL, "application/json").
		WithMaxAttempts(2).
		WithCommandTimeout(40 * time.Millisecond).
		WithHTTPTimeout(200 * time.Millisecond).
		WithRegistrationTimeout(300 * time.Millisecond).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	m, err := modem.New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, tr
}

// connectModem is scriptModem plus a successful Connect.
func connectModem(t *testing.T, respond func(cmd string) string) (*modem.Modem, *modem.ScriptTransport) {
	t.Helper()
	m, tr := scriptModem(t, respond)
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error from Connect(): %v", err)
	}
	return m, tr
}

func countCommands(tr *modem.ScriptTransport, cmd string) int {
	n := 0
	for _, c := range tr.Commands() {
		if c == cmd {
			n++
		}
	}
	return n
}

// rawPayload concatenates every non-command frame in transmit order,
// reassembling what the receiving endpoint would have seen.
func rawPayload(tr *modem.ScriptTransport) string {
	var b strings.Builder
	for _, w := range tr.Writes() {
		if strings.HasPrefix(w, "AT") && strings.HasSuffix(w, "\r\n") {
			continue
		}
		b.WriteString(w)
	}
	return b.String()
}
