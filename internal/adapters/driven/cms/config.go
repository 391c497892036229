package cms

import (
	"log/slog"
	"net/http"
	"time"
)

// Config contains configuration for the upstream CMS client.
type Config struct {
	// BaseURL is the REST API root, e.g. https://example.com/wp-json/wp/v2
	BaseURL string

	// Username and Password enable HTTP Basic auth when both are set.
	Username string
	Password string

	// Timeout bounds a single HTTP request. Default is 30s.
	Timeout time.Duration

	// MaxAttempts bounds attempts per request, first one included.
	// 1 disables retries. Default is 3.
	MaxAttempts int

	// InitialBackoff is the first retry delay. Default is 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps a single retry delay. Default is 10s.
	MaxBackoff time.Duration

	// UserAgent is sent on every request.
	UserAgent string

	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		UserAgent:      "cms-mirror",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
