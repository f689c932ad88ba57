package handlers

import (
	"context"
	"log"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// Done is the handler of spec §4.8 for the terminal success state. Its
// Start event is never consumed — the engine has already stopped looping by
// the time a terminal state's handler would run again.
type Done struct{}

func (Done) Name() engine.State { return engine.StateDone }

func (Done) Handle(_ context.Context, m *engine.AgentMemory, _ engine.ToolExecutor, _ engine.LlmCaller, sink engine.OutputSink) engine.Event {
	answer := ""
	if m.FinalAnswer != nil {
		answer = *m.FinalAnswer
	}
	log.Printf("[Done] TASK_COMPLETE session=%s", m.SessionId)
	if sink != nil {
		sink.Send(engine.AgentOutput{Kind: engine.OutputFinalAnswer, Message: answer})
	}
	return engine.EventStart
}

// Error is the handler of spec §4.8 for the terminal failure state.
type Error struct{}

func (Error) Name() engine.State { return engine.StateError }

func (Error) Handle(_ context.Context, m *engine.AgentMemory, _ engine.ToolExecutor, _ engine.LlmCaller, sink engine.OutputSink) engine.Event {
	msg := "unknown error"
	if m.Error != nil {
		msg = *m.Error
	}
	log.Printf("[Error] AGENT_FAILED session=%s: %s", m.SessionId, msg)
	if sink != nil {
		sink.Send(engine.AgentOutput{Kind: engine.OutputError, Message: msg})
	}
	return engine.EventStart
}
