// Package ai calls the hosted chat-completions API in JSON mode and
// validates the structures it returns. All tuning lives in an explicit
// Config resolved once at startup; the client performs no ambient
// environment lookups.
package ai

import "time"

// Defaults applied by Config.withDefaults.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
	DefaultTopP        = 1.0
	DefaultTimeout     = 120 * time.Second
	maxRetries         = 3
	initialRetryDelay  = time.Second
)

// Config carries the model and sampling parameters for every AI call.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.TopP == 0 {
		c.TopP = DefaultTopP
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}
