package relay

import (
	"net/http"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds the relay settings. Every field can be set from the
// environment, see LoadConfig.
type Config struct {
	URL     string            `env:"EVENTER_RELAY_URL"`
	Headers map[string]string `env:"EVENTER_RELAY_HEADERS"`

	PingInterval     time.Duration `env:"EVENTER_RELAY_PING_INTERVAL"      envDefault:"15s"`
	HandshakeTimeout time.Duration `env:"EVENTER_RELAY_HANDSHAKE_TIMEOUT"  envDefault:"10s"`
	WriteTimeout     time.Duration `env:"EVENTER_RELAY_WRITE_TIMEOUT"      envDefault:"1s"`
	MaxBackoff       time.Duration `env:"EVENTER_RELAY_MAX_BACKOFF"        envDefault:"30s"`
	// HealthyThreshold is how long a connection must have lived for its loss
	// to reset the reconnection attempts.
	HealthyThreshold time.Duration `env:"EVENTER_RELAY_HEALTHY_THRESHOLD"  envDefault:"1m"`
	// ReopenInterval forces a fresh connection periodically. Zero disables it.
	ReopenInterval time.Duration `env:"EVENTER_RELAY_REOPEN_INTERVAL"`
	// MaxConnectAttempts bounds consecutive failed dials. Zero retries forever.
	MaxConnectAttempts int `env:"EVENTER_RELAY_MAX_CONNECT_ATTEMPTS" envDefault:"0"`
}

// DefaultConfig returns the settings LoadConfig uses when the environment is
// empty.
func DefaultConfig() Config {
	return Config{
		PingInterval:     15 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     time.Second,
		MaxBackoff:       30 * time.Second,
		HealthyThreshold: time.Minute,
	}
}

// LoadConfig reads EVENTER_RELAY_* variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse relay env")
	}
	return cfg, nil
}

// Validate checks that the URL is a websocket URL and durations are sane.
func (c Config) Validate() error {
	if _, err := c.endpoint(); err != nil {
		return err
	}

	if c.PingInterval < 0 || c.ReopenInterval < 0 || c.MaxBackoff < 0 {
		return errors.Wrap(ErrInvalidConfig, "intervals must not be negative")
	}
	if c.MaxConnectAttempts < 0 {
		return errors.Wrap(ErrInvalidConfig, "max connect attempts must not be negative")
	}
	return nil
}

// DialParams converts the URL and headers into the params used on every dial.
func (c Config) DialParams() (DialParams, error) {
	u, err := c.endpoint()
	if err != nil {
		return DialParams{}, err
	}

	header := make(http.Header, len(c.Headers))
	for k, v := range c.Headers {
		header.Set(k, v)
	}

	return DialParams{URL: *u, Header: header}, nil
}

func (c Config) endpoint() (*url.URL, error) {
	if c.URL == "" {
		return nil, errors.Wrap(ErrInvalidConfig, "missing url")
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "cannot parse url %q: %s", c.URL, err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.Wrapf(ErrInvalidConfig, "url %q must use ws or wss", c.URL)
	}
	return u, nil
}
