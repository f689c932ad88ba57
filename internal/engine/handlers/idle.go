// Package handlers implements the nine state handlers of spec §4.3-§4.9:
// Idle, Planning, Acting, ParallelActing, Observing, Reflecting, Done,
// Error, WaitingForHuman.
package handlers

import (
	"context"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// Idle is a pass-through handler: its only job is to kick off the run.
type Idle struct{}

func (Idle) Name() engine.State { return engine.StateIdle }

func (Idle) Handle(_ context.Context, _ *engine.AgentMemory, _ engine.ToolExecutor, _ engine.LlmCaller, sink engine.OutputSink) engine.Event {
	if sink != nil {
		sink.Send(engine.AgentOutput{Kind: engine.OutputStateStarted, State: engine.StateIdle})
	}
	return engine.EventStart
}
