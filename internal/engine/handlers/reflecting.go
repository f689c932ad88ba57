package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// Reflecting is the handler of spec §4.7: an intentional minimum history
// compression pass. It collapses all history into one synthetic entry and
// resets the retry counter. Richer, LLM-assisted compression is a valid
// replacement handler as long as it preserves the history-entry invariant.
type Reflecting struct{}

func (Reflecting) Name() engine.State { return engine.StateReflecting }

func (Reflecting) Handle(_ context.Context, m *engine.AgentMemory, _ engine.ToolExecutor, _ engine.LlmCaller, _ engine.OutputSink) engine.Event {
	n := len(m.History)
	observation := fmt.Sprintf("Compressed %d tool call(s). Task: %s. Recent history available in context.", n, m.Task)

	m.History = []engine.HistoryEntry{{
		Step:        m.Step,
		Tool:        engine.ToolCall{Name: "[SUMMARY]", Args: json.RawMessage("{}")},
		Observation: observation,
		Success:     true,
	}}
	m.RetryCount = 0

	return engine.EventReflectDone
}
