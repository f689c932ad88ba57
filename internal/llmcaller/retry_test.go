package llmcaller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// countingCaller fails with the given error for the first failCount calls,
// then succeeds. Backoffs are real waits, so the retry tests keep failCount
// and maxRetries small enough that only the 1s attempt-0 backoff is awaited.
type countingCaller struct {
	calls     int32
	failCount int32
	err       error
}

func (c *countingCaller) Call(context.Context, *engine.AgentMemory, engine.ToolExecutor, string) (engine.LlmResponse, error) {
	n := atomic.AddInt32(&c.calls, 1)
	if n <= c.failCount {
		return engine.LlmResponse{}, c.err
	}
	return engine.LlmResponse{Kind: engine.ResponseFinalAnswer, Content: "ok"}, nil
}

func (c *countingCaller) CallStream(context.Context, *engine.AgentMemory, engine.ToolExecutor, string, engine.OutputSink) (<-chan engine.StreamEvent, error) {
	panic("not used in these tests")
}

func TestRetryCaller_RetriesTransientErrorsThenSucceeds(t *testing.T) {
	inner := &countingCaller{failCount: 1, err: errors.New("connection reset")}
	caller := NewRetryCaller(inner, 2)

	resp, err := caller.Call(context.Background(), nil, nil, "model")
	if err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want %q", resp.Content, "ok")
	}
	if inner.calls != 2 {
		t.Errorf("inner.calls = %d, want 2", inner.calls)
	}
}

func TestRetryCaller_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &countingCaller{failCount: 100, err: errors.New("connection reset")}
	caller := NewRetryCaller(inner, 1)

	_, err := caller.Call(context.Background(), nil, nil, "model")
	if err == nil {
		t.Fatal("Call should fail after exhausting retries")
	}
	if inner.calls != 2 {
		t.Errorf("inner.calls = %d, want maxRetries+1 = 2", inner.calls)
	}
}

func TestRetryCaller_AuthErrorShortCircuits(t *testing.T) {
	inner := &countingCaller{failCount: 100, err: errors.New("401 unauthorized: invalid api key")}
	caller := NewRetryCaller(inner, 5)

	_, err := caller.Call(context.Background(), nil, nil, "model")
	if err == nil {
		t.Fatal("Call should fail on an auth error")
	}
	if inner.calls != 1 {
		t.Errorf("inner.calls = %d, want exactly 1 for an auth error", inner.calls)
	}
}

func TestBackoffFor(t *testing.T) {
	if d := backoffFor(0, false); d != time.Second {
		t.Errorf("backoffFor(0, false) = %v, want 1s", d)
	}
	if d := backoffFor(0, true); d != 5*time.Second {
		t.Errorf("backoffFor(0, true) = %v, want 5s", d)
	}
	if d := backoffFor(10, false); d != maxBackoff {
		t.Errorf("backoffFor(10, false) = %v, want capped at %v", d, maxBackoff)
	}
}
