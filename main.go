package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"arborsense.dev/field/cellgw/logging"
	"arborsense.dev/field/cellgw/modem"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	scanFile := flag.String("scan-file", "", "Scan data file to upload, one record per line")
	flag.String("serial-port", "/dev/ttyUSB2", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("log-level", "info", "Log level (debug, info)")
	flag.String("log-file", "", "Rotated log file path (empty logs to stdout)")
	flag.String("sim-pin", "", "SIM card PIN code (if required)")
	flag.String("apn", "everywhere", "Access point name")
	flag.String("endpoint-url", "", "Telemetry ingest endpoint URL")
	flag.Int("chunk-size", 4096, "Upload chunk size in bytes")
	flag.Parse()

	opts := []ConfigOption{WithDefaults()}
	if *configPath != "" {
		opts = append(opts, WithFile(*configPath))
	}
	opts = append(opts, WithEnv(), WithFlags(flag.CommandLine))

	config, err := LoadConfig(opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger := logging.NewZapLogger(logging.ZapOptions{
		LogFile:    config.LogFile,
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
		DebugLevel: config.LogLevel == "debug",
		Console:    true,
	})

	modemConfig, err := modem.NewConfigBuilder().
		WithLogger(logger).
		WithSimPIN(config.SimPIN).
		WithAPN(config.APN.Name, config.APN.Username, config.APN.Password).
		WithEndpoint(config.Endpoint.URL, config.Endpoint.ContentType).
		WithUserAgent(config.Endpoint.UserAgent).
		WithChunkSize(config.ChunkSize).
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		Build()
	if err != nil {
		logger.Error("failed to create modem config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := modem.New(ctx, modemConfig)
	if err != nil {
		logger.Error("failed to initialize modem", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if err := m.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	// Best-effort teardown so the module is not left with an active
	// context when the process exits.
	defer m.Disconnect(context.Background())

	if ts, err := m.NetworkTime(ctx); err == nil {
		logger.Info("network time", "time", ts)
	}

	if *scanFile != "" {
		lines, err := readLines(*scanFile)
		if err != nil {
			logger.Error("failed to read scan file", "file", *scanFile, "error", err)
			os.Exit(1)
		}

		sent, err := m.SendLines(ctx, lines, 0)
		if err != nil {
			logger.Error("upload failed", "chunks_sent", sent, "error", err)
			os.Exit(1)
		}
		logger.Info("upload complete", "file", *scanFile, "chunks", sent)
	}

	stats := m.Stats()
	logger.Info("session statistics",
		"successful_connections", stats.SuccessfulConnections,
		"failed_connections", stats.FailedConnections,
		"http_requests_sent", stats.HTTPRequestsSent,
		"http_requests_successful", stats.HTTPRequestsSuccessful,
		"bytes_transmitted", stats.BytesTransmitted,
		"bytes_received", stats.BytesReceived)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
