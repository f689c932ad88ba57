package engine

import "sync"

// Role names who produced a Message in the conversation built by
// BuildMessages.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one provider-agnostic turn. Implementers of LlmCaller translate
// a slice of Message into their wire format. ToolCalls is populated only on
// assistant messages that proposed calls; ToolCallId is populated only on
// tool messages, echoing back the call it answers.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallId string
}

// AgentMemory is the single mutable session state described in spec §3. The
// engine owns it exclusively; handlers mutate it in place during their turn.
// It is cloned verbatim into every checkpoint.
type AgentMemory struct {
	mu sync.Mutex `json:"-"`

	// Identity
	Task         string `json:"task"`
	TaskType     string `json:"task_type"`
	SystemPrompt string `json:"system_prompt"`
	SessionId    string `json:"session_id"`

	// Counters
	Step            int          `json:"step"`
	RetryCount      int          `json:"retry_count"`
	ConfidenceScore float64      `json:"confidence_score"`
	TotalUsage      TokenUsage   `json:"total_usage"`
	Budget          *TokenBudget `json:"budget,omitempty"`

	// Current cycle
	CurrentToolCall  *ToolCall    `json:"current_tool_call,omitempty"`
	LastObservation  *string      `json:"last_observation,omitempty"`
	PendingToolCalls []ToolCall   `json:"pending_tool_calls,omitempty"`
	ParallelResults  []ToolResult `json:"parallel_results,omitempty"`

	// Outcome
	History     []HistoryEntry `json:"history"`
	FinalAnswer *string        `json:"final_answer,omitempty"`
	Error       *string        `json:"error,omitempty"`

	// Policy. ApprovalPolicy and ApprovalCallback are live collaborators, not
	// data — they are excluded from checkpoint serialization and must be
	// re-supplied by the builder on resume (spec §4.12's resume protocol
	// replays state, not callbacks).
	Config           AgentConfig      `json:"config"`
	BlacklistedTools map[string]bool  `json:"blacklisted_tools"`
	ApprovalPolicy   ApprovalPolicy   `json:"-"`
	ApprovalCallback ApprovalCallback `json:"-"`
	PendingApproval  *ApprovalRequest `json:"pending_approval,omitempty"`

	// Observability
	Trace *Trace `json:"trace"`
}

// NewAgentMemory constructs a fresh session in state Idle-ready shape: step
// zero, empty history, a fresh trace.
func NewAgentMemory(sessionId, task string, cfg AgentConfig) *AgentMemory {
	return &AgentMemory{
		Task:             task,
		TaskType:         "default",
		SessionId:        sessionId,
		Config:           cfg,
		BlacklistedTools: make(map[string]bool),
		Trace:            NewTrace(),
	}
}

// Clone returns a deep copy suitable for checkpointing: mutating the
// original afterward must not affect the returned value.
func (m *AgentMemory) Clone() *AgentMemory {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &AgentMemory{
		Task:            m.Task,
		TaskType:        m.TaskType,
		SystemPrompt:    m.SystemPrompt,
		SessionId:       m.SessionId,
		Step:            m.Step,
		RetryCount:      m.RetryCount,
		ConfidenceScore: m.ConfidenceScore,
		TotalUsage:      m.TotalUsage,
		Config:          m.Config,
		ApprovalPolicy:  m.ApprovalPolicy,
		ApprovalCallback: m.ApprovalCallback,
	}
	if m.Budget != nil {
		b := *m.Budget
		c.Budget = &b
	}
	if m.CurrentToolCall != nil {
		tc := *m.CurrentToolCall
		c.CurrentToolCall = &tc
	}
	if m.LastObservation != nil {
		s := *m.LastObservation
		c.LastObservation = &s
	}
	if m.FinalAnswer != nil {
		s := *m.FinalAnswer
		c.FinalAnswer = &s
	}
	if m.Error != nil {
		s := *m.Error
		c.Error = &s
	}
	if m.PendingApproval != nil {
		pa := *m.PendingApproval
		c.PendingApproval = &pa
	}
	c.PendingToolCalls = append([]ToolCall(nil), m.PendingToolCalls...)
	c.ParallelResults = append([]ToolResult(nil), m.ParallelResults...)
	c.History = append([]HistoryEntry(nil), m.History...)
	c.BlacklistedTools = make(map[string]bool, len(m.BlacklistedTools))
	for k, v := range m.BlacklistedTools {
		c.BlacklistedTools[k] = v
	}
	if m.Trace != nil {
		c.Trace = m.Trace.Clone()
	}
	return c
}

// BuildMessages implements the message-construction rule of spec §4.10:
// system (if non-empty), then the user task, then, for each run of history
// entries sharing a step number, one assistant message carrying all of that
// step's tool calls followed by one tool message per entry.
func (m *AgentMemory) BuildMessages() []Message {
	var msgs []Message
	if m.SystemPrompt != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: m.SystemPrompt})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: m.Task})

	i := 0
	for i < len(m.History) {
		step := m.History[i].Step
		j := i
		var calls []ToolCall
		for j < len(m.History) && m.History[j].Step == step {
			calls = append(calls, m.History[j].Tool)
			j++
		}
		msgs = append(msgs, Message{Role: RoleAssistant, ToolCalls: calls})
		for k := i; k < j; k++ {
			msgs = append(msgs, Message{
				Role:       RoleTool,
				Content:    m.History[k].Observation,
				ToolCallId: m.History[k].Tool.Id,
			})
		}
		i = j
	}
	return msgs
}
