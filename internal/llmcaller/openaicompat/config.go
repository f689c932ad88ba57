// Package openaicompat implements engine.LlmCaller against any
// OpenAI-compatible chat-completions endpoint (OpenAI, Groq, Ollama, and
// other vendors reachable by varying BaseURL/APIKey), per spec §6.
package openaicompat

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds connection settings for an OpenAI-compatible endpoint.
type Config struct {
	APIKey      string
	BaseURL     string  // empty uses the vendor's default (api.openai.com)
	Temperature *float32
	MaxTokens   int // 0 = no explicit limit
	HTTPTimeout int // seconds, default 300
}

// NewConfigFromEnv builds a Config from OPENAI_API_KEY / OPENAI_BASE_URL /
// OPENAI_HTTP_TIMEOUT, the recognized defaults named in spec §6.
func NewConfigFromEnv() (*Config, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := 300
	if raw := os.Getenv("OPENAI_HTTP_TIMEOUT"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			timeout = v
		}
	}
	return &Config{
		APIKey:      apiKey,
		BaseURL:     os.Getenv("OPENAI_BASE_URL"),
		HTTPTimeout: timeout,
	}, nil
}
