package handlers

import (
	"context"
	"log"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// Planning is the handler of spec §4.3: resolves a model, calls the LLM
// (streaming first, falling back to a single non-streaming call), and
// dispatches on the response variant.
type Planning struct{}

func (Planning) Name() engine.State { return engine.StatePlanning }

func (Planning) Handle(ctx context.Context, m *engine.AgentMemory, tools engine.ToolExecutor, llm engine.LlmCaller, sink engine.OutputSink) engine.Event {
	if m.Step >= m.Config.MaxSteps {
		msg := "Max steps exceeded"
		m.Error = &msg
		log.Printf("[Planning] MAX_STEPS step=%d maxSteps=%d", m.Step, m.Config.MaxSteps)
		return engine.EventMaxSteps
	}

	if m.Budget != nil && m.Budget.Exceeded(m.TotalUsage) {
		msg := "Token budget exceeded"
		m.Error = &msg
		log.Printf("[Planning] token budget exceeded: %+v", m.TotalUsage)
		return engine.EventFatalError
	}

	m.Step++
	log.Printf("[Planning] STEP_START step=%d", m.Step)

	model := m.Config.ResolveModel(m.TaskType)

	response, err := callWithStreamFallback(ctx, m, tools, llm, model, sink)
	if err != nil {
		msg := "LLM call failed: " + err.Error()
		m.Error = &msg
		log.Printf("[Planning] %s", msg)
		return engine.EventFatalError
	}

	if response.Usage != nil {
		m.TotalUsage = m.TotalUsage.Add(*response.Usage)
	}

	switch response.Kind {
	case engine.ResponseFinalAnswer:
		if len([]rune(response.Content)) < m.Config.MinAnswerLength {
			log.Printf("[Planning] ANSWER_TOO_SHORT len=%d", len(response.Content))
			return engine.EventAnswerTooShort
		}
		answer := response.Content
		m.FinalAnswer = &answer
		return engine.EventLlmFinalAnswer

	case engine.ResponseToolCall:
		tool := response.Tool
		if m.BlacklistedTools[tool.Name] {
			log.Printf("[Planning] TOOL_BLACKLISTED name=%s", tool.Name)
			return engine.EventToolBlacklisted
		}
		if response.Confidence < m.Config.ConfidenceThreshold && m.RetryCount < m.Config.MaxRetries {
			m.RetryCount++
			log.Printf("[Planning] LOW_CONFIDENCE confidence=%.2f retry=%d", response.Confidence, m.RetryCount)
			return engine.EventLowConfidence
		}
		if m.ApprovalPolicy != nil && m.ApprovalPolicy.NeedsApproval(tool) {
			m.PendingApproval = &engine.ApprovalRequest{Tool: tool, SessionId: m.SessionId, Step: m.Step}
			m.CurrentToolCall = &tool
			return engine.EventHumanApprovalRequired
		}
		m.CurrentToolCall = &tool
		m.PendingToolCalls = nil
		return engine.EventLlmToolCall

	case engine.ResponseParallelToolCalls:
		m.PendingToolCalls = response.Tools
		m.CurrentToolCall = nil
		m.ParallelResults = nil
		return engine.EventLlmParallelToolCalls

	default:
		msg := "unknown LLM response variant"
		m.Error = &msg
		return engine.EventFatalError
	}
}

// callWithStreamFallback attempts llm.CallStream, accumulating chunks and
// draining them to sink; if the stream errors or ends without a terminal
// Done chunk, it falls back to a single llm.Call attempt.
func callWithStreamFallback(ctx context.Context, m *engine.AgentMemory, tools engine.ToolExecutor, llm engine.LlmCaller, model string, sink engine.OutputSink) (engine.LlmResponse, error) {
	events, err := llm.CallStream(ctx, m, tools, model, sink)
	if err == nil {
		var final *engine.LlmResponse
		var streamErr error
		for ev := range events {
			if ev.Err != nil {
				streamErr = ev.Err
				break
			}
			switch ev.Chunk.Kind {
			case engine.ChunkContent:
				if sink != nil {
					sink.Send(engine.AgentOutput{Kind: engine.OutputLlmToken, Token: ev.Chunk.Content})
				}
			case engine.ChunkToolCallDelta:
				if sink != nil {
					sink.Send(engine.AgentOutput{Kind: engine.OutputToolCallDelta, Tool: engine.ToolCall{Name: ev.Chunk.ToolName, Args: []byte(ev.Chunk.ArgsJsonAccum)}})
				}
			case engine.ChunkDone:
				r := ev.Chunk.Response
				final = &r
			}
		}
		if streamErr == nil && final != nil {
			return *final, nil
		}
		if streamErr != nil {
			log.Printf("[Planning] stream error, falling back to non-streaming call: %v", streamErr)
		} else {
			log.Printf("[Planning] stream ended without Done chunk, falling back to non-streaming call")
		}
	} else {
		log.Printf("[Planning] CallStream failed, falling back to non-streaming call: %v", err)
	}

	return llm.Call(ctx, m, tools, model)
}
