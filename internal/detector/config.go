// Package detector implements core.Detector against the Reality Defender
// REST API: presigned upload, result polling and verdict mapping.
package detector

import (
	"time"

	"mediacheck/internal/httpclient"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.prd.realitydefender.xyz"

// Config holds everything a detector instance needs. It is built once at
// startup and shared read-only by every per-request instance.
type Config struct {
	APIKey  string
	BaseURL string

	// PollInterval is the pause between result polls (default: 5s)
	PollInterval time.Duration

	// MaxPollAttempts bounds the number of polls; 0 polls until the job
	// concludes or the context ends.
	MaxPollAttempts int

	// MaxRetries enables retries of transient API errors (default: 0)
	MaxRetries int

	HTTP httpclient.ClientConfig
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:       apiKey,
		BaseURL:      DefaultBaseURL,
		PollInterval: 5 * time.Second,
		HTTP:         httpclient.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.HTTP == (httpclient.ClientConfig{}) {
		c.HTTP = httpclient.DefaultConfig()
	}
	return c
}
