package llmcaller

import (
	"context"
	"fmt"
	"sync"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// MockCaller returns a scripted list of responses in order, one per Call
// (or CallStream) invocation. Grounded on the original implementation's
// MockLlmCaller: a fixed response queue plus a call log for test assertions.
type MockCaller struct {
	mu        sync.Mutex
	responses []engine.LlmResponse
	callLog   []string // model passed to each call, in order
}

// NewMockCaller returns a MockCaller that yields responses in order.
func NewMockCaller(responses []engine.LlmResponse) *MockCaller {
	return &MockCaller{responses: append([]engine.LlmResponse(nil), responses...)}
}

// CallCount returns the number of times Call/CallStream was invoked.
func (m *MockCaller) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.callLog)
}

// ModelForCall returns the model string passed on the nth call (0-indexed).
func (m *MockCaller) ModelForCall(n int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.callLog) {
		return "", false
	}
	return m.callLog[n], true
}

func (m *MockCaller) next(model string) (engine.LlmResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callLog = append(m.callLog, model)
	if len(m.responses) == 0 {
		return engine.LlmResponse{}, fmt.Errorf("MockCaller: no more programmed responses")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// Call implements engine.LlmCaller.Call.
func (m *MockCaller) Call(_ context.Context, _ *engine.AgentMemory, _ engine.ToolExecutor, model string) (engine.LlmResponse, error) {
	return m.next(model)
}

// CallStream implements engine.LlmCaller.CallStream by wrapping the next
// scripted response in a single Done chunk — the mock never streams partial
// content, matching the original implementation's behavior.
func (m *MockCaller) CallStream(_ context.Context, _ *engine.AgentMemory, _ engine.ToolExecutor, model string, _ engine.OutputSink) (<-chan engine.StreamEvent, error) {
	resp, err := m.next(model)
	out := make(chan engine.StreamEvent, 1)
	if err != nil {
		out <- engine.StreamEvent{Err: err}
	} else {
		out <- engine.StreamEvent{Chunk: engine.LlmStreamChunk{Kind: engine.ChunkDone, Response: resp}}
	}
	close(out)
	return out, nil
}
