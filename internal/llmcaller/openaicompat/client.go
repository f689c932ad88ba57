package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	openailib "github.com/sashabaranov/go-openai"

	"github.com/pocketomega/fsmagent/internal/engine"
	"github.com/pocketomega/fsmagent/internal/tool"
)

// Client implements engine.LlmCaller against an OpenAI-compatible
// chat-completions endpoint. Adapted from the teacher's internal/llm/openai
// client, generalized from a fixed Config.Model to the per-call model
// argument the engine resolves via AgentConfig.Models.
type Client struct {
	inner *openailib.Client
	cfg   *Config
}

// NewClient wraps an OpenAI-compatible endpoint described by cfg.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("openaicompat: config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openaicompat: API key is required")
	}
	clientConfig := openailib.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 300
	}
	clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	return &Client{inner: openailib.NewClientWithConfig(clientConfig), cfg: cfg}, nil
}

// NewClientFromEnv builds a Client from OPENAI_API_KEY/OPENAI_BASE_URL.
func NewClientFromEnv() (*Client, error) {
	cfg, err := NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg)
}

func (c *Client) buildRequest(memory *engine.AgentMemory, tools engine.ToolExecutor, model string, stream bool) (openailib.ChatCompletionRequest, error) {
	messages, err := toOpenAIMessages(memory.BuildMessages())
	if err != nil {
		return openailib.ChatCompletionRequest{}, err
	}

	req := openailib.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
	}
	if c.cfg.Temperature != nil {
		req.Temperature = *c.cfg.Temperature
	}
	if c.cfg.MaxTokens > 0 {
		req.MaxTokens = c.cfg.MaxTokens
	}
	if schemas := tools.Schemas(); len(schemas) > 0 {
		req.Tools = toOpenAITools(schemas)
	}
	return req, nil
}

// Call implements engine.LlmCaller.Call.
func (c *Client) Call(ctx context.Context, memory *engine.AgentMemory, tools engine.ToolExecutor, model string) (engine.LlmResponse, error) {
	req, err := c.buildRequest(memory, tools, model, false)
	if err != nil {
		return engine.LlmResponse{}, err
	}

	resp, err := c.inner.CreateChatCompletion(ctx, req)
	if err != nil {
		return engine.LlmResponse{}, fmt.Errorf("openaicompat: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return engine.LlmResponse{}, fmt.Errorf("openaicompat: no choices returned")
	}

	usage := &engine.TokenUsage{
		Input:  resp.Usage.PromptTokens,
		Output: resp.Usage.CompletionTokens,
		Total:  resp.Usage.TotalTokens,
	}
	return responseFromMessage(resp.Choices[0].Message, usage)
}

// CallStream implements engine.LlmCaller.CallStream.
func (c *Client) CallStream(ctx context.Context, memory *engine.AgentMemory, tools engine.ToolExecutor, model string, sink engine.OutputSink) (<-chan engine.StreamEvent, error) {
	req, err := c.buildRequest(memory, tools, model, true)
	if err != nil {
		return nil, err
	}
	req.StreamOptions = &openailib.StreamOptions{IncludeUsage: true}

	stream, err := c.inner.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: stream creation failed: %w", err)
	}

	out := make(chan engine.StreamEvent)
	go func() {
		defer close(out)
		defer stream.Close()

		var content strings.Builder
		type accumCall struct {
			id, name string
			args     strings.Builder
		}
		calls := map[int]*accumCall{}
		var order []int
		var usage *engine.TokenUsage

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				out <- engine.StreamEvent{Err: fmt.Errorf("openaicompat: stream recv error: %w", err)}
				return
			}
			if chunk.Usage != nil {
				usage = &engine.TokenUsage{
					Input:  chunk.Usage.PromptTokens,
					Output: chunk.Usage.CompletionTokens,
					Total:  chunk.Usage.TotalTokens,
				}
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			if delta.Content != "" {
				content.WriteString(delta.Content)
				out <- engine.StreamEvent{Chunk: engine.LlmStreamChunk{Kind: engine.ChunkContent, Content: delta.Content}}
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				ac, ok := calls[idx]
				if !ok {
					ac = &accumCall{}
					calls[idx] = ac
					order = append(order, idx)
				}
				if tc.ID != "" {
					ac.id = tc.ID
				}
				if tc.Function.Name != "" {
					ac.name = tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					ac.args.WriteString(tc.Function.Arguments)
				}
				out <- engine.StreamEvent{Chunk: engine.LlmStreamChunk{
					Kind: engine.ChunkToolCallDelta, ToolName: ac.name, ArgsJsonAccum: ac.args.String(), ToolIndex: idx,
				}}
			}
		}

		var response engine.LlmResponse
		if len(order) > 0 {
			toolCalls := make([]engine.ToolCall, 0, len(order))
			for _, idx := range order {
				ac := calls[idx]
				toolCalls = append(toolCalls, engine.ToolCall{Name: ac.name, Args: json.RawMessage(ac.args.String()), Id: ac.id})
			}
			if len(toolCalls) == 1 {
				response = engine.LlmResponse{Kind: engine.ResponseToolCall, Tool: toolCalls[0], Confidence: 1.0, Usage: usage}
			} else {
				response = engine.LlmResponse{Kind: engine.ResponseParallelToolCalls, Tools: toolCalls, Confidence: 1.0, Usage: usage}
			}
		} else {
			response = engine.LlmResponse{Kind: engine.ResponseFinalAnswer, Content: content.String(), Usage: usage}
		}
		out <- engine.StreamEvent{Chunk: engine.LlmStreamChunk{Kind: engine.ChunkDone, Response: response}}
	}()

	if sink != nil {
		log.Printf("[openaicompat] streaming call started, model=%s", model)
	}
	return out, nil
}

func toOpenAIMessages(msgs []engine.Message) ([]openailib.ChatCompletionMessage, error) {
	out := make([]openailib.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		om := openailib.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
		if m.Role == engine.RoleTool {
			om.ToolCallID = m.ToolCallId
		}
		if len(m.ToolCalls) > 0 {
			tcs := make([]openailib.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				tcs[i] = openailib.ToolCall{
					ID:   tc.Id,
					Type: openailib.ToolTypeFunction,
					Function: openailib.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Args),
					},
				}
			}
			om.ToolCalls = tcs
		}
		out = append(out, om)
	}
	return out, nil
}

func toOpenAITools(defs []tool.Definition) []openailib.Tool {
	out := make([]openailib.Tool, len(defs))
	for i, d := range defs {
		var params any
		_ = json.Unmarshal(d.Schema, &params)
		out[i] = openailib.Tool{
			Type: openailib.ToolTypeFunction,
			Function: &openailib.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		}
	}
	return out
}

// responseFromMessage converts a complete chat-completion message into the
// tagged-union engine.LlmResponse. Confidence is always 1.0: per spec §9's
// open-question resolution, none of the observed LLM wire protocols
// self-report a confidence score.
func responseFromMessage(msg openailib.ChatCompletionMessage, usage *engine.TokenUsage) (engine.LlmResponse, error) {
	if len(msg.ToolCalls) == 1 {
		tc := msg.ToolCalls[0]
		return engine.LlmResponse{
			Kind:       engine.ResponseToolCall,
			Tool:       engine.ToolCall{Name: tc.Function.Name, Args: json.RawMessage(tc.Function.Arguments), Id: tc.ID},
			Confidence: 1.0,
			Usage:      usage,
		}, nil
	}
	if len(msg.ToolCalls) > 1 {
		calls := make([]engine.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			calls[i] = engine.ToolCall{Name: tc.Function.Name, Args: json.RawMessage(tc.Function.Arguments), Id: tc.ID}
		}
		return engine.LlmResponse{Kind: engine.ResponseParallelToolCalls, Tools: calls, Confidence: 1.0, Usage: usage}, nil
	}
	return engine.LlmResponse{Kind: engine.ResponseFinalAnswer, Content: msg.Content, Usage: usage}, nil
}
