// Package anthropic implements engine.LlmCaller against the Anthropic
// messages endpoint, per spec §6: x-api-key auth, anthropic-version
// 2023-06-01, system prompt as a top-level field, and SSE streaming with
// content-block start/delta/stop events.
package anthropic

import (
	"fmt"
	"os"
)

// Config holds connection settings for the Anthropic API.
type Config struct {
	APIKey    string
	BaseURL   string // empty uses the SDK default
	MaxTokens int64  // default 4096 when unset
}

// NewConfigFromEnv builds a Config from ANTHROPIC_API_KEY, the recognized
// default named in spec §6.
func NewConfigFromEnv() (*Config, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	return &Config{APIKey: apiKey, BaseURL: os.Getenv("ANTHROPIC_BASE_URL")}, nil
}
