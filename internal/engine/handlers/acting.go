package handlers

import (
	"context"
	"log"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// Acting is the handler of spec §4.4: executes the single pending tool call
// synchronously. An unknown tool name is not fatal — it surfaces as a
// failed observation, never a panic.
type Acting struct{}

func (Acting) Name() engine.State { return engine.StateActing }

func (Acting) Handle(ctx context.Context, m *engine.AgentMemory, tools engine.ToolExecutor, _ engine.LlmCaller, sink engine.OutputSink) engine.Event {
	if m.CurrentToolCall == nil {
		msg := "Acting entered with no pending tool call"
		m.Error = &msg
		log.Printf("[Acting] %s", msg)
		return engine.EventFatalError
	}

	call := *m.CurrentToolCall
	if sink != nil {
		sink.Send(engine.AgentOutput{Kind: engine.OutputToolCallStarted, Tool: call})
	}

	result, err := tools.Execute(ctx, call.Name, call.Args)

	var observation string
	success := err == nil
	if err != nil {
		observation = "ERROR: " + err.Error()
		log.Printf("[Acting] tool %q failed: %v", call.Name, err)
	} else {
		observation = "SUCCESS: " + result
	}
	m.LastObservation = &observation

	if sink != nil {
		sink.Send(engine.AgentOutput{Kind: engine.OutputToolCallFinished, Tool: call, Success: success})
	}

	if success {
		return engine.EventToolSuccess
	}
	return engine.EventToolFailure
}
