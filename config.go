package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB2")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level ("debug" or "info")
	LogLevel string `yaml:"log_level"`
	// LogFile is the rotated log file path; empty logs to stdout only
	LogFile string `yaml:"log_file"`
	// SimPIN is the SIM card PIN code
	SimPIN string `yaml:"sim_pin"`
	// APN is the packet data profile
	APN APNConfig `yaml:"apn"`
	// Endpoint is the telemetry ingest endpoint
	Endpoint EndpointConfig `yaml:"endpoint"`
	// ChunkSize bounds one upload chunk in bytes
	ChunkSize int `yaml:"chunk_size"`
}

type APNConfig struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type EndpointConfig struct {
	URL         string `yaml:"url"`
	ContentType string `yaml:"content_type"`
	UserAgent   string `yaml:"user_agent"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.SerialPort = "/dev/ttyUSB2"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.APN.Name = "everywhere"
		c.Endpoint.ContentType = "application/json"
		c.ChunkSize = 4096
		return nil
	}
}

// WithFile loads configuration from a YAML file
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %q: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if file := os.Getenv("LOG_FILE"); file != "" {
			c.LogFile = file
		}

		if simPIN := os.Getenv("SIM_PIN"); simPIN != "" {
			c.SimPIN = simPIN
		}

		if apn := os.Getenv("APN"); apn != "" {
			c.APN.Name = apn
		}

		if user := os.Getenv("APN_USERNAME"); user != "" {
			c.APN.Username = user
		}

		if pass := os.Getenv("APN_PASSWORD"); pass != "" {
			c.APN.Password = pass
		}

		if url := os.Getenv("ENDPOINT_URL"); url != "" {
			c.Endpoint.URL = url
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "log-file":
				c.LogFile = f.Value.String()
			case "sim-pin":
				c.SimPIN = f.Value.String()
			case "apn":
				c.APN.Name = f.Value.String()
			case "endpoint-url":
				c.Endpoint.URL = f.Value.String()
			case "chunk-size":
				if n, err := strconv.Atoi(f.Value.String()); err == nil {
					c.ChunkSize = n
				}
			}
		})
		return nil
	}
}
