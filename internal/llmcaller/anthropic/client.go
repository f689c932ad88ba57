package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pocketomega/fsmagent/internal/engine"
	"github.com/pocketomega/fsmagent/internal/tool"
)

const defaultMaxTokens = 4096

// Client implements engine.LlmCaller against the Anthropic messages API.
// Grounded on the accumulation-across-events tool-call pattern common to
// Anthropic SDK integrations: content_block_start carries the tool's id and
// name, content_block_delta streams its partial JSON, content_block_stop
// finalizes it.
type Client struct {
	inner     anthropic.Client
	maxTokens int64
}

// NewClient wraps the Anthropic API described by cfg.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("anthropic: config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{inner: anthropic.NewClient(opts...), maxTokens: maxTokens}, nil
}

// NewClientFromEnv builds a Client from ANTHROPIC_API_KEY.
func NewClientFromEnv() (*Client, error) {
	cfg, err := NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg)
}

func (c *Client) buildParams(memory *engine.AgentMemory, tools engine.ToolExecutor, model string) (anthropic.MessageNewParams, error) {
	messages, err := toAnthropicMessages(memory.BuildMessages())
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}
	if memory.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: memory.SystemPrompt}}
	}
	if schemas := tools.Schemas(); len(schemas) > 0 {
		toolParams, err := toAnthropicTools(schemas)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = toolParams
	}
	return params, nil
}

// Call implements engine.LlmCaller.Call.
func (c *Client) Call(ctx context.Context, memory *engine.AgentMemory, tools engine.ToolExecutor, model string) (engine.LlmResponse, error) {
	params, err := c.buildParams(memory, tools, model)
	if err != nil {
		return engine.LlmResponse{}, err
	}

	msg, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return engine.LlmResponse{}, fmt.Errorf("anthropic: message create failed: %w", err)
	}

	usage := &engine.TokenUsage{
		Input:  int(msg.Usage.InputTokens),
		Output: int(msg.Usage.OutputTokens),
		Total:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}

	var text strings.Builder
	var calls []engine.ToolCall
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			calls = append(calls, engine.ToolCall{Name: variant.Name, Args: json.RawMessage(variant.Input), Id: variant.ID})
		}
	}

	return responseFromBlocks(text.String(), calls, usage), nil
}

// CallStream implements engine.LlmCaller.CallStream.
func (c *Client) CallStream(ctx context.Context, memory *engine.AgentMemory, tools engine.ToolExecutor, model string, sink engine.OutputSink) (<-chan engine.StreamEvent, error) {
	params, err := c.buildParams(memory, tools, model)
	if err != nil {
		return nil, err
	}

	stream := c.inner.Messages.NewStreaming(ctx, params)

	out := make(chan engine.StreamEvent)
	go func() {
		defer close(out)

		var text strings.Builder
		var calls []engine.ToolCall
		var currentToolId, currentToolName string
		var currentArgs strings.Builder
		var inputTokens, outputTokens int

		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case "message_start":
				ms := event.AsMessageStart()
				inputTokens = int(ms.Message.Usage.InputTokens)

			case "content_block_start":
				cbs := event.AsContentBlockStart()
				if tu, ok := cbs.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					currentToolId = tu.ID
					currentToolName = tu.Name
					currentArgs.Reset()
				}

			case "content_block_delta":
				cbd := event.AsContentBlockDelta()
				switch delta := cbd.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" {
						text.WriteString(delta.Text)
						out <- engine.StreamEvent{Chunk: engine.LlmStreamChunk{Kind: engine.ChunkContent, Content: delta.Text}}
					}
				case anthropic.InputJSONDelta:
					if delta.PartialJSON != "" {
						currentArgs.WriteString(delta.PartialJSON)
						out <- engine.StreamEvent{Chunk: engine.LlmStreamChunk{
							Kind: engine.ChunkToolCallDelta, ToolName: currentToolName, ArgsJsonAccum: currentArgs.String(),
						}}
					}
				}

			case "content_block_stop":
				if currentToolName != "" {
					calls = append(calls, engine.ToolCall{Name: currentToolName, Args: json.RawMessage(currentArgs.String()), Id: currentToolId})
					currentToolName = ""
				}

			case "message_delta":
				md := event.AsMessageDelta()
				if md.Usage.OutputTokens > 0 {
					outputTokens = int(md.Usage.OutputTokens)
				}
			}
		}

		if err := stream.Err(); err != nil {
			out <- engine.StreamEvent{Err: fmt.Errorf("anthropic: stream error: %w", err)}
			return
		}

		usage := &engine.TokenUsage{Input: inputTokens, Output: outputTokens, Total: inputTokens + outputTokens}
		response := responseFromBlocks(text.String(), calls, usage)
		out <- engine.StreamEvent{Chunk: engine.LlmStreamChunk{Kind: engine.ChunkDone, Response: response}}
	}()

	return out, nil
}

// responseFromBlocks converts accumulated text + tool_use blocks into the
// tagged-union engine.LlmResponse. Confidence is always 1.0: Anthropic's
// wire protocol does not self-report a confidence score (spec §9).
func responseFromBlocks(text string, calls []engine.ToolCall, usage *engine.TokenUsage) engine.LlmResponse {
	if len(calls) == 1 {
		return engine.LlmResponse{Kind: engine.ResponseToolCall, Tool: calls[0], Confidence: 1.0, Usage: usage}
	}
	if len(calls) > 1 {
		return engine.LlmResponse{Kind: engine.ResponseParallelToolCalls, Tools: calls, Confidence: 1.0, Usage: usage}
	}
	return engine.LlmResponse{Kind: engine.ResponseFinalAnswer, Content: text, Usage: usage}
}

func toAnthropicMessages(msgs []engine.Message) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam
	for _, m := range msgs {
		if m.Role == engine.RoleSystem {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		if m.Content != "" && m.Role != engine.RoleTool {
			content = append(content, anthropic.NewTextBlock(m.Content))
		}
		if m.Role == engine.RoleTool {
			content = append(content, anthropic.NewToolResultBlock(m.ToolCallId, m.Content, strings.HasPrefix(m.Content, "ERROR:")))
		}
		for _, tc := range m.ToolCalls {
			var input map[string]any
			if len(tc.Args) > 0 {
				if err := json.Unmarshal(tc.Args, &input); err != nil {
					return nil, fmt.Errorf("anthropic: invalid tool call args for %q: %w", tc.Name, err)
				}
			}
			content = append(content, anthropic.NewToolUseBlock(tc.Id, input, tc.Name))
		}
		if len(content) == 0 {
			continue
		}

		if m.Role == engine.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(content...))
		} else {
			out = append(out, anthropic.NewUserMessage(content...))
		}
	}
	return out, nil
}

func toAnthropicTools(defs []tool.Definition) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(d.Schema, &schema); err != nil {
			return nil, fmt.Errorf("anthropic: invalid schema for tool %q: %w", d.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, d.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(d.Description)
		}
		out = append(out, param)
	}
	return out, nil
}
