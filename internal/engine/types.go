// Package engine implements the deterministic finite-state machine that
// drives an LLM through plan/act/observe/reflect cycles: named states and
// events, a static transition table, per-session memory, and the loop that
// pumps handlers and applies transitions.
package engine

import (
	"context"
	"encoding/json"
)

// State names a node in the transition table. Users may register additional
// names beyond the well-known set below.
type State string

const (
	StateIdle            State = "Idle"
	StatePlanning        State = "Planning"
	StateActing          State = "Acting"
	StateParallelActing  State = "ParallelActing"
	StateObserving       State = "Observing"
	StateReflecting      State = "Reflecting"
	StateDone            State = "Done"
	StateError           State = "Error"
	StateWaitingForHuman State = "WaitingForHuman"
)

// Event names the outcome of a handler invocation, used to look up the next
// state in the transition table.
type Event string

const (
	EventStart                 Event = "Start"
	EventLlmToolCall           Event = "LlmToolCall"
	EventLlmParallelToolCalls  Event = "LlmParallelToolCalls"
	EventLlmFinalAnswer        Event = "LlmFinalAnswer"
	EventMaxSteps              Event = "MaxSteps"
	EventLowConfidence         Event = "LowConfidence"
	EventAnswerTooShort        Event = "AnswerTooShort"
	EventToolBlacklisted       Event = "ToolBlacklisted"
	EventFatalError            Event = "FatalError"
	EventToolSuccess           Event = "ToolSuccess"
	EventToolFailure           Event = "ToolFailure"
	EventContinue              Event = "Continue"
	EventNeedsReflection       Event = "NeedsReflection"
	EventReflectDone           Event = "ReflectDone"
	EventHumanApprovalRequired Event = "HumanApprovalRequired"
	EventHumanApproved         Event = "HumanApproved"
	EventHumanRejected         Event = "HumanRejected"
	EventHumanModified         Event = "HumanModified"
)

// ToolCall names a tool and the JSON arguments an LLM wants to invoke it
// with. Id is an optional correlation token echoed back by providers that
// support it (required to pair a tool_use block with its tool_result).
type ToolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
	Id   string          `json:"id,omitempty"`
}

// HistoryEntry records one completed tool invocation. Observation of an
// executed tool is prefixed "SUCCESS: " or "ERROR: " so downstream code can
// classify it without re-inspecting Success; a call rejected by a human
// carries "REJECTED: ", and the synthetic entry left by Reflecting carries
// an unprefixed summary.
type HistoryEntry struct {
	Step        int      `json:"step"`
	Tool        ToolCall `json:"tool"`
	Observation string   `json:"observation"`
	Success     bool     `json:"success"`
}

// ToolResult is the immutable output of one worker in ParallelActingState.
// Workers never touch AgentMemory directly; the engine merges these in.
type ToolResult struct {
	Name      string `json:"name"`
	Args      json.RawMessage
	Id        string `json:"id,omitempty"`
	Output    string `json:"output"`
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latency_ms"`
}

// ResponseKind tags the variant held by an LlmResponse.
type ResponseKind int

const (
	ResponseToolCall ResponseKind = iota
	ResponseParallelToolCalls
	ResponseFinalAnswer
)

// LlmResponse is a tagged union over the three shapes an LLM turn can take.
// Only the fields relevant to Kind are populated.
type LlmResponse struct {
	Kind       ResponseKind
	Tool       ToolCall
	Tools      []ToolCall
	Content    string
	Confidence float64
	Usage      *TokenUsage
}

// StreamChunkKind tags the variant held by an LlmStreamChunk.
type StreamChunkKind int

const (
	ChunkContent StreamChunkKind = iota
	ChunkToolCallDelta
	ChunkDone
)

// LlmStreamChunk is one unit produced while a streaming call is in flight.
type LlmStreamChunk struct {
	Kind          StreamChunkKind
	Content       string
	ToolName      string // ToolCallDelta: present only when the name becomes known
	ArgsJsonAccum string // ToolCallDelta: accumulated partial JSON so far
	ToolIndex     int    // ToolCallDelta: index of the tool call this delta belongs to
	Response      LlmResponse
}

// OutputKind tags the variant held by an AgentOutput.
type OutputKind int

const (
	OutputStateStarted OutputKind = iota
	OutputLlmToken
	OutputToolCallDelta
	OutputToolCallStarted
	OutputToolCallFinished
	OutputAction
	OutputFinalAnswer
	OutputError
)

// AgentOutput is one externally observable event emitted while running in
// streaming mode.
type AgentOutput struct {
	Kind    OutputKind
	State   State
	Token   string
	Tool    ToolCall
	Success bool
	Message string
}

// OutputSink receives AgentOutput values during a streaming run. Handlers
// never block indefinitely on it; a nil sink means outputs are discarded.
type OutputSink interface {
	Send(AgentOutput)
}

// TokenUsage accumulates input/output token counts. Total always equals
// Input+Output; Add keeps that invariant across accumulation.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Add returns the componentwise sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		Input:  u.Input + other.Input,
		Output: u.Output + other.Output,
		Total:  u.Input + other.Input + u.Output + other.Output,
	}
}

// TokenBudget optionally caps token usage. A nil pointer on any field means
// that cap is not enforced.
type TokenBudget struct {
	MaxTotal  *int `json:"max_total,omitempty"`
	MaxInput  *int `json:"max_input,omitempty"`
	MaxOutput *int `json:"max_output,omitempty"`
}

// Exceeded reports whether any configured cap is strictly less than the
// corresponding usage field.
func (b *TokenBudget) Exceeded(usage TokenUsage) bool {
	if b == nil {
		return false
	}
	if b.MaxTotal != nil && *b.MaxTotal < usage.Total {
		return true
	}
	if b.MaxInput != nil && *b.MaxInput < usage.Input {
		return true
	}
	if b.MaxOutput != nil && *b.MaxOutput < usage.Output {
		return true
	}
	return false
}

// AgentConfig holds the tunables a Planning/Observing/Reflecting cycle reads
// every step. Models maps a task type to a provider model name; key
// "default" is the fallback used when TaskType has no specific entry.
type AgentConfig struct {
	MaxSteps            int               `yaml:"max_steps"`
	MaxRetries          int               `yaml:"max_retries"`
	ConfidenceThreshold float64           `yaml:"confidence_threshold"`
	ReflectEveryNSteps  int               `yaml:"reflect_every_n_steps"`
	MinAnswerLength     int               `yaml:"min_answer_length"`
	ParallelTools       bool              `yaml:"parallel_tools"`
	Models              map[string]string `yaml:"models"`
}

// DefaultAgentConfig returns the config defaults named in the data model.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxSteps:            15,
		MaxRetries:          3,
		ConfidenceThreshold: 0.4,
		ReflectEveryNSteps:  5,
		MinAnswerLength:     5,
		ParallelTools:       true,
		Models:              map[string]string{},
	}
}

// ResolveModel implements the fixed taskType → "default" → "" lookup order.
func (c AgentConfig) ResolveModel(taskType string) string {
	if m, ok := c.Models[taskType]; ok && m != "" {
		return m
	}
	if m, ok := c.Models["default"]; ok && m != "" {
		return m
	}
	return ""
}

// ApprovalPolicy decides whether a proposed tool call must pause for human
// sign-off. Handlers consult NeedsApproval; they never inspect RiskLevel
// directly.
type ApprovalPolicy interface {
	NeedsApproval(tool ToolCall) bool
}

// HumanDecisionKind tags the variant held by a HumanDecision.
type HumanDecisionKind int

const (
	DecisionApproved HumanDecisionKind = iota
	DecisionRejected
	DecisionModified
)

// HumanDecision is returned by an ApprovalCallback in response to a
// PendingApproval request.
type HumanDecision struct {
	Kind     HumanDecisionKind
	Reason   string   // set for Rejected
	Modified ToolCall // set for Modified
}

// ApprovalRequest is handed to an ApprovalCallback.
type ApprovalRequest struct {
	Tool      ToolCall
	SessionId string
	Step      int
}

// ApprovalCallback resolves a pending approval request. It may block (e.g.
// on a human operator) and must honor ctx cancellation.
type ApprovalCallback func(ctx context.Context, req ApprovalRequest) (HumanDecision, error)
