package handlers

import (
	"context"
	"strings"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// Observing is the handler of spec §4.6: folds the current cycle's tool
// result(s) into history and decides whether a reflection pass is due.
type Observing struct{}

func (Observing) Name() engine.State { return engine.StateObserving }

func (Observing) Handle(_ context.Context, m *engine.AgentMemory, _ engine.ToolExecutor, _ engine.LlmCaller, _ engine.OutputSink) engine.Event {
	if m.CurrentToolCall != nil && m.LastObservation != nil {
		obs := *m.LastObservation
		m.History = append(m.History, engine.HistoryEntry{
			Step:        m.Step,
			Tool:        *m.CurrentToolCall,
			Observation: obs,
			Success:     strings.HasPrefix(obs, "SUCCESS:"),
		})
		m.CurrentToolCall = nil
		m.LastObservation = nil
	}

	for _, r := range m.ParallelResults {
		m.History = append(m.History, engine.HistoryEntry{
			Step:        m.Step,
			Tool:        engine.ToolCall{Name: r.Name, Args: r.Args, Id: r.Id},
			Observation: r.Output,
			Success:     r.Success,
		})
	}
	m.ParallelResults = nil

	if m.Config.ReflectEveryNSteps > 0 && m.Step%m.Config.ReflectEveryNSteps == 0 {
		return engine.EventNeedsReflection
	}
	return engine.EventContinue
}
