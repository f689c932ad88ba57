package llmcaller

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pocketomega/fsmagent/internal/engine"
)

const maxBackoff = 60 * time.Second

// RetryCaller wraps any engine.LlmCaller with exponential-backoff retry,
// per spec §4.10. Streams are not retried mid-stream: the wrapper defers
// to the inner caller for the first (and only) attempt of CallStream,
// matching the spec's note that Planning already falls back to a
// non-streaming Call on stream failure.
type RetryCaller struct {
	inner      engine.LlmCaller
	maxRetries int
}

// NewRetryCaller wraps inner with up to maxRetries retries on transient
// failures.
func NewRetryCaller(inner engine.LlmCaller, maxRetries int) *RetryCaller {
	return &RetryCaller{inner: inner, maxRetries: maxRetries}
}

func isAuthError(err error) bool {
	lower := strings.ToLower(err.Error())
	for _, pat := range []string{"401", "403", "unauthorized", "forbidden", "invalid api key", "authentication"} {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

func isRateLimitError(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests")
}

func backoffFor(attempt int, rateLimited bool) time.Duration {
	base := time.Second
	if rateLimited {
		base = 5 * time.Second
	}
	d := base << attempt
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Call implements engine.LlmCaller.Call with retry.
func (c *RetryCaller) Call(ctx context.Context, memory *engine.AgentMemory, tools engine.ToolExecutor, model string) (engine.LlmResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.inner.Call(ctx, memory, tools, model)
		if err == nil {
			return resp, nil
		}
		if isAuthError(err) {
			log.Printf("[RetryCaller] auth error, not retrying: %v", err)
			return engine.LlmResponse{}, err
		}
		lastErr = err
		if attempt < c.maxRetries {
			wait := backoffFor(attempt, isRateLimitError(err))
			log.Printf("[RetryCaller] attempt %d/%d failed, retrying in %v: %v", attempt+1, c.maxRetries, wait, err)
			select {
			case <-ctx.Done():
				return engine.LlmResponse{}, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return engine.LlmResponse{}, lastErr
}

// CallStream implements engine.LlmCaller.CallStream. The first attempt is
// delegated directly to inner; mid-stream failures are not retried here.
func (c *RetryCaller) CallStream(ctx context.Context, memory *engine.AgentMemory, tools engine.ToolExecutor, model string, sink engine.OutputSink) (<-chan engine.StreamEvent, error) {
	return c.inner.CallStream(ctx, memory, tools, model, sink)
}
