package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sd400mp/mp-go/pkg/log"
)

// Authorization schemes.
const (
	SchemeToken    = "GlbToken"
	SchemeTokenJWT = "GlbTokenJwt"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is the server root, e.g. "http://mp.local:8080".
	BaseURL string

	// User and Password are the login credentials.
	User     string
	Password string

	// JWT, when set, is sent instead of the password with SchemeTokenJWT.
	JWT string

	// Culture selects the language of tag titles and PD class names.
	Culture string

	// Timeout bounds a single HTTP request. Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client

	// DecodeOffset shifts every decoded timestamp.
	DecodeOffset time.Duration

	// DecodeLocal uses the local zone offset instead of DecodeOffset.
	DecodeLocal bool

	// StrictDecode turns corrupt payloads into errors.
	StrictDecode bool

	// MaxConcurrentLookups bounds parallel data-source lookups during Subscribe.
	MaxConcurrentLookups int

	// Logger is the operational logger. If nil, slog.Default is used.
	Logger *slog.Logger

	// ProtocolLogger receives a capture event per exchange. Optional.
	ProtocolLogger log.Logger

	// Registerer receives the client metrics. Optional.
	Registerer prometheus.Registerer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Culture:              "en",
		Timeout:              DefaultTimeout,
		MaxConcurrentLookups: 8,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url is empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base url scheme %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base url has no host", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	if c.MaxConcurrentLookups < 0 {
		return fmt.Errorf("%w: negative lookup limit", ErrInvalidConfig)
	}
	return nil
}
