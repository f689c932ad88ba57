package handlers

import (
	"context"
	"log"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// WaitingForHuman is the handler of spec §4.9: invokes the configured
// approval callback with the pending request and maps its decision back
// onto an event.
type WaitingForHuman struct{}

func (WaitingForHuman) Name() engine.State { return engine.StateWaitingForHuman }

func (WaitingForHuman) Handle(ctx context.Context, m *engine.AgentMemory, _ engine.ToolExecutor, _ engine.LlmCaller, _ engine.OutputSink) engine.Event {
	if m.PendingApproval == nil || m.ApprovalCallback == nil {
		msg := "WaitingForHuman entered with no pending approval or callback"
		m.Error = &msg
		log.Printf("[WaitingForHuman] %s", msg)
		return engine.EventFatalError
	}

	req := *m.PendingApproval
	decision, err := m.ApprovalCallback(ctx, req)
	if err != nil {
		msg := "approval callback failed: " + err.Error()
		m.Error = &msg
		log.Printf("[WaitingForHuman] %s", msg)
		return engine.EventFatalError
	}

	m.PendingApproval = nil

	switch decision.Kind {
	case engine.DecisionApproved:
		return engine.EventHumanApproved
	case engine.DecisionRejected:
		obs := "REJECTED: " + decision.Reason
		m.LastObservation = &obs
		return engine.EventHumanRejected
	case engine.DecisionModified:
		modified := decision.Modified
		m.CurrentToolCall = &modified
		return engine.EventHumanModified
	default:
		msg := "unknown human decision kind"
		m.Error = &msg
		return engine.EventFatalError
	}
}
