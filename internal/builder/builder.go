// Package builder implements the fluent AgentBuilder that assembles an
// engine.Engine: provider shortcuts, tool registration, MCP bridging,
// checkpoint/resume wiring, and sub-agent-as-tool conversion, per spec §4.
package builder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/pocketomega/fsmagent/internal/engine"
	"github.com/pocketomega/fsmagent/internal/engine/handlers"
	"github.com/pocketomega/fsmagent/internal/llmcaller"
	"github.com/pocketomega/fsmagent/internal/llmcaller/anthropic"
	"github.com/pocketomega/fsmagent/internal/llmcaller/openaicompat"
	"github.com/pocketomega/fsmagent/internal/mcpbridge"
	"github.com/pocketomega/fsmagent/internal/tool"
)

const (
	openaiBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"
	ollamaBaseURL = "http://localhost:11434/v1"
)

// transitionEdge is a single user-supplied (from, event) -> to override,
// applied at Build time on top of the default transition table.
type transitionEdge struct {
	from  engine.State
	event engine.Event
	to    engine.State
}

// AgentBuilder assembles an engine.Engine from a task description, an LLM
// caller, a tool registry, and optional policy/checkpoint/extension
// settings. Grounded on original_source/src/builder.rs's method-chaining
// shape, translated from Rust's consuming-builder style into Go's
// mutate-and-return-receiver style.
type AgentBuilder struct {
	memory *engine.AgentMemory
	tools  *tool.Registry

	llm        engine.LlmCaller
	retryCount int

	customHandlers map[engine.State]engine.Handler
	customEdges    []transitionEdge
	extraTerminal  []engine.State

	checkpointStore engine.CheckpointStore
	sessionId       string
	initialState    *engine.State

	buildErr error // first error encountered by a chained call; surfaced by Build
}

// New starts a builder for task, with a fresh random session id.
func New(task string) *AgentBuilder {
	sessionId := uuid.NewString()
	return &AgentBuilder{
		memory:         engine.NewAgentMemory(sessionId, task, engine.DefaultAgentConfig()),
		tools:          tool.NewRegistry(),
		customHandlers: make(map[engine.State]engine.Handler),
		sessionId:      sessionId,
	}
}

// TaskType sets the task type used for model resolution (spec §4.3 step 4).
func (b *AgentBuilder) TaskType(t string) *AgentBuilder {
	b.memory.TaskType = t
	return b
}

// SystemPrompt sets the system prompt included in every LLM call.
func (b *AgentBuilder) SystemPrompt(p string) *AgentBuilder {
	b.memory.SystemPrompt = p
	return b
}

// LLM sets the caller explicitly, overriding any provider shortcut.
func (b *AgentBuilder) LLM(caller engine.LlmCaller) *AgentBuilder {
	b.llm = caller
	return b
}

// OpenAI configures the standard OpenAI API. An empty apiKey falls back to
// OPENAI_API_KEY from the environment.
func (b *AgentBuilder) OpenAI(apiKey string) *AgentBuilder {
	if apiKey == "" {
		return b.setOpenAICompatFromEnv()
	}
	return b.setOpenAICompat(&openaicompat.Config{APIKey: apiKey, BaseURL: openaiBaseURL})
}

// Groq configures Groq's OpenAI-compatible inference API.
func (b *AgentBuilder) Groq(apiKey string) *AgentBuilder {
	return b.setOpenAICompat(&openaicompat.Config{APIKey: apiKey, BaseURL: groqBaseURL})
}

// Ollama configures a local Ollama instance. An empty baseURL defaults to
// http://localhost:11434/v1.
func (b *AgentBuilder) Ollama(baseURL string) *AgentBuilder {
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}
	return b.setOpenAICompat(&openaicompat.Config{APIKey: "ollama", BaseURL: baseURL})
}

func (b *AgentBuilder) setOpenAICompatFromEnv() *AgentBuilder {
	client, err := openaicompat.NewClientFromEnv()
	if err != nil {
		b.buildErr = err
		return b
	}
	b.llm = client
	return b
}

func (b *AgentBuilder) setOpenAICompat(cfg *openaicompat.Config) *AgentBuilder {
	client, err := openaicompat.NewClient(cfg)
	if err != nil {
		b.buildErr = err
		return b
	}
	b.llm = client
	return b
}

// Anthropic configures the Anthropic messages API. An empty apiKey falls
// back to ANTHROPIC_API_KEY from the environment.
func (b *AgentBuilder) Anthropic(apiKey string) *AgentBuilder {
	var client *anthropic.Client
	var err error
	if apiKey == "" {
		client, err = anthropic.NewClientFromEnv()
	} else {
		client, err = anthropic.NewClient(&anthropic.Config{APIKey: apiKey})
	}
	if err != nil {
		b.buildErr = err
		return b
	}
	b.llm = client
	return b
}

// MaxTokens sets a total-usage token budget cap.
func (b *AgentBuilder) MaxTokens(max int) *AgentBuilder {
	b.memory.Budget = &engine.TokenBudget{MaxTotal: &max}
	return b
}

// TokenBudget sets a detailed, multi-field token budget.
func (b *AgentBuilder) TokenBudget(budget engine.TokenBudget) *AgentBuilder {
	b.memory.Budget = &budget
	return b
}

// RetryOnError wraps the configured LLM caller with n retries at Build time.
func (b *AgentBuilder) RetryOnError(n int) *AgentBuilder {
	b.retryCount = n
	return b
}

// Config overrides the default AgentConfig wholesale. Call this before any
// of MaxSteps/ParallelTools/Model/ModelFor/Models if you want those to win;
// each applies immediately, in call order, directly to the underlying
// AgentConfig rather than being deferred to Build time.
func (b *AgentBuilder) Config(cfg engine.AgentConfig) *AgentBuilder {
	b.memory.Config = cfg
	return b
}

// MaxSteps overrides AgentConfig.MaxSteps.
func (b *AgentBuilder) MaxSteps(n int) *AgentBuilder {
	b.memory.Config.MaxSteps = n
	return b
}

// ParallelTools toggles AgentConfig.ParallelTools.
func (b *AgentBuilder) ParallelTools(enabled bool) *AgentBuilder {
	b.memory.Config.ParallelTools = enabled
	return b
}

// ApprovalPolicy installs the policy consulted by Planning before a tool
// call proceeds (spec §4.3 step 8).
func (b *AgentBuilder) ApprovalPolicy(policy engine.ApprovalPolicy) *AgentBuilder {
	b.memory.ApprovalPolicy = policy
	return b
}

// OnApproval installs the callback WaitingForHuman invokes for a pending
// approval request.
func (b *AgentBuilder) OnApproval(cb engine.ApprovalCallback) *AgentBuilder {
	b.memory.ApprovalCallback = cb
	return b
}

// Model sets the "default" entry of AgentConfig.Models.
func (b *AgentBuilder) Model(model string) *AgentBuilder {
	return b.ModelFor("default", model)
}

// ModelFor sets a specific task-type entry of AgentConfig.Models.
func (b *AgentBuilder) ModelFor(taskType, model string) *AgentBuilder {
	if b.memory.Config.Models == nil {
		b.memory.Config.Models = make(map[string]string)
	}
	b.memory.Config.Models[taskType] = model
	return b
}

// Models supplies the full task-type -> model map at once.
func (b *AgentBuilder) Models(models map[string]string) *AgentBuilder {
	b.memory.Config.Models = models
	return b
}

// CheckpointStore sets the store used after every successful transition.
func (b *AgentBuilder) CheckpointStore(store engine.CheckpointStore) *AgentBuilder {
	b.checkpointStore = store
	return b
}

// SessionId overrides the random default session id.
func (b *AgentBuilder) SessionId(id string) *AgentBuilder {
	b.sessionId = id
	b.memory.SessionId = id
	return b
}

// Resume loads the latest checkpoint for sessionId from the configured
// store and restores memory/session id/initial state from it. A checkpoint
// store must be set first.
func (b *AgentBuilder) Resume(sessionId string) *AgentBuilder {
	if b.checkpointStore == nil {
		b.buildErr = &engine.BuildError{Message: "checkpoint store must be set before calling .Resume()"}
		return b
	}
	cp, err := b.checkpointStore.LoadLatest(sessionId)
	if err != nil {
		b.buildErr = &engine.BuildError{Message: "failed to load checkpoint", Cause: err}
		return b
	}
	if cp == nil {
		b.buildErr = &engine.BuildError{Message: fmt.Sprintf("no checkpoint found for session %q", sessionId)}
		return b
	}
	b.memory = cp.Memory
	b.sessionId = cp.SessionId
	state := cp.State
	b.initialState = &state
	return b
}

// Tool registers a raw callable tool.
func (b *AgentBuilder) Tool(name, description string, schema []byte, fn tool.Callable) *AgentBuilder {
	b.tools.Register(name, description, schema, fn)
	return b
}

// Registry exposes the builder's tool registry directly, so callers can use
// internal/tool/builtin's RegisterX(registry, ...) functions without going
// through the single-tool Tool method.
func (b *AgentBuilder) Registry() *tool.Registry {
	return b.tools
}

// BlacklistTool marks name as disallowed; Planning loops back to itself if
// the LLM proposes it (spec §4.3).
func (b *AgentBuilder) BlacklistTool(name string) *AgentBuilder {
	b.memory.BlacklistedTools[name] = true
	return b
}

// MCPServer connects a single MCP server over stdio and registers every
// tool it exposes, named "mcp_<server>__<tool>" per spec §4.11. Errors are
// recorded and surfaced by Build.
func (b *AgentBuilder) MCPServer(name, command string, args []string) *AgentBuilder {
	cli := mcpbridge.NewClient(mcpbridge.ServerConfig{Name: name, Transport: "stdio", Command: command, Args: args})
	ctx := context.Background()
	if err := cli.Connect(ctx); err != nil {
		b.buildErr = fmt.Errorf("mcp server %q: %w", name, err)
		return b
	}
	infos, err := cli.ListTools(ctx)
	if err != nil {
		b.buildErr = fmt.Errorf("mcp server %q: %w", name, err)
		return b
	}
	for _, ti := range infos {
		info := ti
		toolName := fmt.Sprintf("mcp_%s__%s", name, info.Name)
		schema := []byte(info.InputSchema)
		if len(schema) == 0 {
			schema = tool.BuildSchema()
		}
		b.tools.Register(toolName, info.Description, schema, func(ctx context.Context, args json.RawMessage) (string, error) {
			var params map[string]any
			if len(args) > 0 {
				if err := json.Unmarshal(args, &params); err != nil {
					return "", fmt.Errorf("parsing arguments: %w", err)
				}
			}
			return cli.CallTool(ctx, info.Name, params)
		})
	}
	return b
}

// State registers a handler for a custom (non-built-in) state name.
func (b *AgentBuilder) State(name engine.State, handler engine.Handler) *AgentBuilder {
	b.customHandlers[name] = handler
	return b
}

// Transition adds or overrides a single (from, event) -> to edge.
func (b *AgentBuilder) Transition(from engine.State, event engine.Event, to engine.State) *AgentBuilder {
	b.customEdges = append(b.customEdges, transitionEdge{from, event, to})
	return b
}

// TerminalState marks an additional state name as terminal.
func (b *AgentBuilder) TerminalState(name engine.State) *AgentBuilder {
	b.extraTerminal = append(b.extraTerminal, name)
	return b
}

// AsTool returns the (name, description, schema, callable) quadruple that
// Tool needs to expose b as a tool: invoking it clones b,
// assigns the supplied task, builds a fresh engine, runs it, and returns
// the final answer or an error. Per spec §4.11, the child session id is
// derived as "<parent>/sub-<n>" so nested checkpoints never collide with
// the parent's.
func (b *AgentBuilder) AsTool(name, description string) (string, string, []byte, tool.Callable) {
	n := 0
	schema := tool.BuildSchema(tool.SchemaParam{
		Name: "task", Type: "string",
		Description: "The task to delegate to this specialized sub-agent", Required: true,
	})
	fn := func(ctx context.Context, args json.RawMessage) (string, error) {
		var a struct {
			Task string `json:"task"`
		}
		if len(args) > 0 {
			if err := json.Unmarshal(args, &a); err != nil {
				return "", fmt.Errorf("parsing arguments: %w", err)
			}
		}
		if a.Task == "" {
			return "", fmt.Errorf("missing required 'task' parameter for sub-agent")
		}

		n++
		child := b.Clone()
		child.memory.Task = a.Task
		child.sessionId = fmt.Sprintf("%s/sub-%d", b.sessionId, n)
		child.memory.SessionId = child.sessionId

		eng, err := child.Build()
		if err != nil {
			return "", fmt.Errorf("building sub-agent: %w", err)
		}
		answer, err := eng.Run(ctx)
		if err != nil {
			return "", fmt.Errorf("sub-agent failed: %w", err)
		}
		return answer, nil
	}
	return name, description, schema, fn
}

// AddSubAgent registers sub as a tool named name on b.
func (b *AgentBuilder) AddSubAgent(name, description string, sub *AgentBuilder) *AgentBuilder {
	toolName, desc, schema, fn := sub.AsTool(name, description)
	return b.Tool(toolName, desc, schema, fn)
}

// Clone returns an independent copy of b, suitable as the starting point
// for a sub-agent: the tool registry is shared read-only via WithExtra, and
// memory is deep-copied so the clone's run cannot mutate the parent's.
func (b *AgentBuilder) Clone() *AgentBuilder {
	c := *b
	c.memory = b.memory.Clone()
	c.tools = b.tools.WithExtra()
	c.customHandlers = make(map[engine.State]engine.Handler, len(b.customHandlers))
	for k, v := range b.customHandlers {
		c.customHandlers[k] = v
	}
	c.customEdges = append([]transitionEdge(nil), b.customEdges...)
	c.extraTerminal = append([]engine.State(nil), b.extraTerminal...)
	return &c
}

// Build assembles the Engine. Requires an LLM caller (set explicitly or via
// a provider shortcut); its absence, or any error recorded by an earlier
// chained call, is returned here rather than panicking mid-chain.
func (b *AgentBuilder) Build() (*engine.Engine, error) {
	if b.buildErr != nil {
		return nil, b.buildErr
	}
	if b.llm == nil {
		return nil, &engine.BuildError{Message: "LLM caller is required"}
	}

	llm := b.llm
	if b.retryCount > 0 {
		llm = llmcaller.NewRetryCaller(llm, b.retryCount)
	}

	handlerSet := handlers.Default()
	for name, h := range b.customHandlers {
		handlerSet[name] = h
	}

	transitions := engine.NewTransitionTable(nil)
	for _, e := range b.customEdges {
		transitions.AddEdge(e.from, e.event, e.to)
	}

	eng := engine.New(b.memory, b.tools, llm, transitions, handlerSet, b.extraTerminal, b.checkpointStore)
	if b.initialState != nil {
		eng.SetState(*b.initialState)
	}
	return eng, nil
}
