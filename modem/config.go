package modem

import (
	"time"

	"arborsense.dev/field/cellgw/logging"
)

// Config holds the engine settings. Use NewConfigBuilder for fluent
// construction; zero values are replaced by defaults in setDefaults.
type Config struct {
	Dialer Dialer
	Logger logging.Logger

	// SIM and network
	SimPIN      string
	APN         string
	APNUsername string
	APNPassword string

	// HTTP endpoint
	EndpointURL string
	ContentType string
	UserAgent   string

	// Protocol tuning
	MaxAttempts         int
	CommandTimeout      time.Duration
	HTTPTimeout         time.Duration
	RegistrationTimeout time.Duration
	ChunkSize           int
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = logging.NopLogger()
	}
	if c.APN == "" {
		c.APN = "everywhere"
	}
	if c.ContentType == "" {
		c.ContentType = "application/json"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 5 * time.Second
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.RegistrationTimeout == 0 {
		c.RegistrationTimeout = 60 * time.Second
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 4096
	}
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithLogger(l logging.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) WithSimPIN(pin string) *ConfigBuilder {
	b.config.SimPIN = pin
	return b
}

func (b *ConfigBuilder) WithAPN(apn, username, password string) *ConfigBuilder {
	b.config.APN = apn
	b.config.APNUsername = username
	b.config.APNPassword = password
	return b
}

func (b *ConfigBuilder) WithEndpoint(url, contentType string) *ConfigBuilder {
	b.config.EndpointURL = url
	b.config.ContentType = contentType
	return b
}

func (b *ConfigBuilder) WithUserAgent(ua string) *ConfigBuilder {
	b.config.UserAgent = ua
	return b
}

func (b *ConfigBuilder) WithMaxAttempts(n int) *ConfigBuilder {
	b.config.MaxAttempts = n
	return b
}

func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.config.CommandTimeout = d
	return b
}

func (b *ConfigBuilder) WithHTTPTimeout(d time.Duration) *ConfigBuilder {
	b.config.HTTPTimeout = d
	return b
}

func (b *ConfigBuilder) WithRegistrationTimeout(d time.Duration) *ConfigBuilder {
	b.config.RegistrationTimeout = d
	return b
}

func (b *ConfigBuilder) WithChunkSize(n int) *ConfigBuilder {
	b.config.ChunkSize = n
	return b
}

// Build validates the assembled Config and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	config.setDefaults()
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
