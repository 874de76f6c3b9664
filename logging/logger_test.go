package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"arborsense.dev/field/cellgw/logging"
)

func TestStdLogger(t *testing.T) {
	t.Run("formats key value pairs", func(t *testing.T) {
		var buf bytes.Buffer
		log := logging.NewStdLogger(&buf, false)

		log.Info("connected", "operator", "EE", "rssi_dbm", -73)

		got := buf.String()
		if !strings.Contains(got, "INFO connected") {
			t.Errorf("missing level and message: %q", got)
		}
		if !strings.Contains(got, "operator=EE") || !strings.Contains(got, "rssi_dbm=-73") {
			t.Errorf("missing key value pairs: %q", got)
		}
	})

	t.Run("debug suppressed unless enabled", func(t *testing.T) {
		var buf bytes.Buffer

		logging.NewStdLogger(&buf, false).Debug("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected no debug output, got %q", buf.String())
		}

		logging.NewStdLogger(&buf, true).Debug("visible")
		if !strings.Contains(buf.String(), "DEBUG visible") {
			t.Errorf("expected debug output, got %q", buf.String())
		}
	})
}

func TestNopLogger(t *testing.T) {
	// Must be safe with any argument shape.
	log := logging.NopLogger()
	log.Debug("a")
	log.Info("b", "k")
	log.Warn("c", "k", "v")
	log.Error("d", "k", "v", "extra")
}
