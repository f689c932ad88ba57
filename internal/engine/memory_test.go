package engine

import (
	"context"
	"testing"
)

func TestAgentMemory_CloneIsIndependent(t *testing.T) {
	m := NewAgentMemory("s1", "do it", DefaultAgentConfig())
	m.History = append(m.History, HistoryEntry{Step: 1, Observation: "SUCCESS: ok", Success: true})
	m.BlacklistedTools["x"] = true

	clone := m.Clone()
	clone.History[0].Observation = "mutated"
	clone.BlacklistedTools["y"] = true

	if m.History[0].Observation != "SUCCESS: ok" {
		t.Error("mutating the clone's history should not affect the original")
	}
	if m.BlacklistedTools["y"] {
		t.Error("mutating the clone's blacklist should not affect the original")
	}
}

func TestAgentMemory_ClonePreservesPolicyAndCallback(t *testing.T) {
	m := NewAgentMemory("s1", "do it", DefaultAgentConfig())
	policy := testPolicy{}
	m.ApprovalPolicy = policy
	m.ApprovalCallback = testCallback

	clone := m.Clone()
	if clone.ApprovalPolicy == nil {
		t.Error("Clone should preserve ApprovalPolicy")
	}
	if clone.ApprovalCallback == nil {
		t.Error("Clone should preserve ApprovalCallback")
	}
}

type testPolicy struct{}

func (testPolicy) NeedsApproval(ToolCall) bool { return false }

func testCallback(ctx context.Context, req ApprovalRequest) (HumanDecision, error) {
	return HumanDecision{}, nil
}

func TestAgentMemory_BuildMessagesOrdering(t *testing.T) {
	m := NewAgentMemory("s1", "the task", DefaultAgentConfig())
	m.SystemPrompt = "be helpful"
	m.History = []HistoryEntry{
		{Step: 1, Tool: ToolCall{Name: "a", Id: "A"}, Observation: "SUCCESS: a-out", Success: true},
		{Step: 1, Tool: ToolCall{Name: "b", Id: "B"}, Observation: "SUCCESS: b-out", Success: true},
		{Step: 2, Tool: ToolCall{Name: "c", Id: "C"}, Observation: "SUCCESS: c-out", Success: true},
	}

	msgs := m.BuildMessages()

	if msgs[0].Role != RoleSystem || msgs[0].Content != "be helpful" {
		t.Errorf("msgs[0] = %+v, want system prompt", msgs[0])
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "the task" {
		t.Errorf("msgs[1] = %+v, want user task", msgs[1])
	}

	// Step 1: one assistant message grouping both tool calls, then two tool messages.
	if msgs[2].Role != RoleAssistant || len(msgs[2].ToolCalls) != 2 {
		t.Errorf("msgs[2] = %+v, want an assistant message with 2 grouped tool calls", msgs[2])
	}
	if msgs[3].Role != RoleTool || msgs[3].ToolCallId != "A" {
		t.Errorf("msgs[3] = %+v, want tool result for call A", msgs[3])
	}
	if msgs[4].Role != RoleTool || msgs[4].ToolCallId != "B" {
		t.Errorf("msgs[4] = %+v, want tool result for call B", msgs[4])
	}

	// Step 2: a fresh assistant message with just one grouped tool call.
	if msgs[5].Role != RoleAssistant || len(msgs[5].ToolCalls) != 1 {
		t.Errorf("msgs[5] = %+v, want an assistant message with 1 grouped tool call", msgs[5])
	}
	if msgs[6].Role != RoleTool || msgs[6].ToolCallId != "C" {
		t.Errorf("msgs[6] = %+v, want tool result for call C", msgs[6])
	}
}
