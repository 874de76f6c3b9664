package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config, err := LoadConfig(WithDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyUSB2" {
			t.Errorf("unexpected default serial port: %q", config.SerialPort)
		}
		if config.BaudRate != 115200 {
			t.Errorf("unexpected default baud rate: %d", config.BaudRate)
		}
		if config.APN.Name != "everywhere" {
			t.Errorf("unexpected default APN: %q", config.APN.Name)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cellgw.yaml")
		body := `
serial_port: /dev/ttyAMA0
log_level: debug
apn:
  name: m2m.tele2.com
  username: user
endpoint:
  url: https://ingest.example.net/v1/telemetry
chunk_size: 2048
`
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, err := LoadConfig(WithDefaults(), WithFile(path))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyAMA0" {
			t.Errorf("file value not applied: %q", config.SerialPort)
		}
		if config.BaudRate != 115200 {
			t.Errorf("default lost: %d", config.BaudRate)
		}
		if config.APN.Name != "m2m.tele2.com" || config.APN.Username != "user" {
			t.Errorf("APN not applied: %+v", config.APN)
		}
		if config.Endpoint.URL != "https://ingest.example.net/v1/telemetry" {
			t.Errorf("endpoint not applied: %q", config.Endpoint.URL)
		}
		if config.ChunkSize != 2048 {
			t.Errorf("chunk size not applied: %d", config.ChunkSize)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(WithDefaults(), WithFile("/nonexistent/cellgw.yaml"))
		if err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("SERIAL_PORT", "/dev/ttyUSB9")
		t.Setenv("APN", "internet")

		config, err := LoadConfig(WithDefaults(), WithEnv())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyUSB9" {
			t.Errorf("env value not applied: %q", config.SerialPort)
		}
		if config.APN.Name != "internet" {
			t.Errorf("env APN not applied: %q", config.APN.Name)
		}
	})

	t.Run("flags override everything", func(t *testing.T) {
		fSet := flag.NewFlagSet("test", flag.ContinueOnError)
		fSet.String("serial-port", "/dev/ttyUSB2", "")
		fSet.Int("baud-rate", 115200, "")
		if err := fSet.Parse([]string{"-serial-port", "/dev/ttyS0", "-baud-rate", "9600"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, err := LoadConfig(WithDefaults(), WithFlags(fSet))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyS0" {
			t.Errorf("flag value not applied: %q", config.SerialPort)
		}
		if config.BaudRate != 9600 {
			t.Errorf("flag value not applied: %d", config.BaudRate)
		}
	})
}
