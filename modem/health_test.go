package modem_test

import (
	"context"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	t.Run("healthy module", func(t *testing.T) {
		m, _ := scriptModem(t, happyResponses)
		if !m.HealthCheck(context.Background()) {
			t.Error("expected health check to pass")
		}
	})

	t.Run("no detectable signal", func(t *testing.T) {
		m, _ := scriptModem(t, func(cmd string) string {
			if cmd == "AT+CSQ" {
				return "+CSQ: 99,99\r\n\r\nOK\r\n"
			}
			return happyResponses(cmd)
		})
		if m.HealthCheck(context.Background()) {
			t.Error("expected health check to fail without signal")
		}
	})

	t.Run("SIM dropped out", func(t *testing.T) {
		initialized := false
		m, _ := scriptModem(t, func(cmd string) string {
			if cmd == "AT+CPIN?" {
				if !initialized {
					initialized = true
					return "+CPIN: READY\r\n\r\nOK\r\n"
				}
				return "+CME ERROR: SIM not inserted\r\n"
			}
			return happyResponses(cmd)
		})
		if m.HealthCheck(context.Background()) {
			t.Error("expected health check to fail when the SIM is gone")
		}
	})
}
