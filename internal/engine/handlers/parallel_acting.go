package handlers

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// ParallelActing is the handler of spec §4.5: fans the pending tool calls
// out to one goroutine each, waits for all of them (no fail-fast), and
// merges their ToolResults back into memory on the engine's own goroutine.
type ParallelActing struct{}

func (ParallelActing) Name() engine.State { return engine.StateParallelActing }

func (ParallelActing) Handle(ctx context.Context, m *engine.AgentMemory, tools engine.ToolExecutor, _ engine.LlmCaller, sink engine.OutputSink) engine.Event {
	calls := m.PendingToolCalls
	if len(calls) == 0 {
		m.ParallelResults = nil
		return engine.EventToolSuccess
	}

	results := make([]engine.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		if sink != nil {
			sink.Send(engine.AgentOutput{Kind: engine.OutputToolCallStarted, Tool: call})
		}
		wg.Add(1)
		go func(idx int, c engine.ToolCall) {
			defer wg.Done()
			start := time.Now()
			out, err := tools.Execute(ctx, c.Name, c.Args)
			latency := time.Since(start).Milliseconds()

			success := err == nil
			var output string
			if err != nil {
				output = "ERROR: " + err.Error()
				log.Printf("[ParallelActing] tool %q failed: %v", c.Name, err)
			} else {
				output = "SUCCESS: " + out
			}
			results[idx] = engine.ToolResult{
				Name: c.Name, Args: c.Args, Id: c.Id,
				Output: output, Success: success, LatencyMs: latency,
			}
		}(i, call)
	}
	wg.Wait()

	anySuccess := false
	for _, r := range results {
		if sink != nil {
			sink.Send(engine.AgentOutput{Kind: engine.OutputToolCallFinished, Tool: engine.ToolCall{Name: r.Name, Args: r.Args, Id: r.Id}, Success: r.Success})
		}
		if r.Success {
			anySuccess = true
		}
	}

	m.ParallelResults = results
	m.PendingToolCalls = nil

	if anySuccess {
		return engine.EventToolSuccess
	}
	return engine.EventToolFailure
}
