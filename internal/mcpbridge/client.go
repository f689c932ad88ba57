// Package mcpbridge bridges external tools served by an MCP subprocess (or
// SSE endpoint) into the engine's tool.Registry, per spec §4.11/§6: spawn,
// handshake (initialize / notifications/initialized), enumerate (tools/list),
// and register each enumerated tool as a synchronous callable that issues
// tools/call.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	sdkclient "github.com/mark3labs/mcp-go/client"
	sdkmcp "github.com/mark3labs/mcp-go/mcp"
)

// configFile mirrors the top-level structure of an mcp.json document.
type configFile struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig describes a single MCP server connection. Name is populated
// from the map key in the config file, not from a JSON field.
type ServerConfig struct {
	Name      string   // derived from the map key
	Transport string   `json:"transport"` // "stdio" | "sse"
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args,omitempty"`
	URL       string   `json:"url,omitempty"`
	Env       []string `json:"env,omitempty"`
}

// LoadConfig reads and parses an mcp.json-shaped file at path.
func LoadConfig(path string) (map[string]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: read config %q: %w", path, err)
	}
	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("mcpbridge: parse config %q: %w", path, err)
	}
	if file.MCPServers == nil {
		return map[string]ServerConfig{}, nil
	}
	for key, cfg := range file.MCPServers {
		cfg.Name = key
		file.MCPServers[key] = cfg
	}
	return file.MCPServers, nil
}

// ToolInfo captures the metadata of a single tool exposed by an MCP server.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Client wraps the mcp-go SDK client for a single MCP server. Safe for
// concurrent use by multiple goroutines.
type Client struct {
	mu    sync.RWMutex
	cfg   ServerConfig
	inner sdkclient.MCPClient
}

// NewClient creates an unconnected Client for the given server config.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the transport (stdio subprocess or SSE) and performs
// the MCP initialize handshake, followed by notifications/initialized.
func (c *Client) Connect(ctx context.Context) error {
	var inner sdkclient.MCPClient

	switch c.cfg.Transport {
	case "stdio", "":
		cli, err := sdkclient.NewStdioMCPClient(c.cfg.Command, c.cfg.Env, c.cfg.Args...)
		if err != nil {
			return fmt.Errorf("mcpbridge: start stdio server %q: %w", c.cfg.Name, err)
		}
		inner = cli
	case "sse":
		cli, err := sdkclient.NewSSEMCPClient(c.cfg.URL)
		if err != nil {
			return fmt.Errorf("mcpbridge: create SSE client %q: %w", c.cfg.Name, err)
		}
		if err := cli.Start(ctx); err != nil {
			return fmt.Errorf("mcpbridge: start SSE client %q: %w", c.cfg.Name, err)
		}
		inner = cli
	default:
		return fmt.Errorf("mcpbridge: unknown transport %q for server %q", c.cfg.Transport, c.cfg.Name)
	}

	_, err := inner.Initialize(ctx, sdkmcp.InitializeRequest{
		Params: sdkmcp.InitializeParams{
			ProtocolVersion: sdkmcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdkmcp.Implementation{
				Name:    "fsmagent",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		_ = inner.Close()
		return fmt.Errorf("mcpbridge: initialize server %q: %w", c.cfg.Name, err)
	}

	c.mu.Lock()
	c.inner = inner
	c.mu.Unlock()
	return nil
}

// ListTools returns metadata for all tools exposed by this MCP server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	if inner == nil {
		return nil, fmt.Errorf("mcpbridge: client %q not connected", c.cfg.Name)
	}

	result, err := inner.ListTools(ctx, sdkmcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: list tools %q: %w", c.cfg.Name, err)
	}

	tools := make([]ToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = json.RawMessage("{}")
		}
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return tools, nil
}

// CallTool invokes the named tool on the MCP server and returns the
// concatenated text content of the response. A server-reported IsError is
// surfaced as a returned error, distinct from an infrastructure failure.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	if inner == nil {
		return "", fmt.Errorf("mcpbridge: client %q not connected", c.cfg.Name)
	}

	req := sdkmcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := inner.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcpbridge: call tool %q on %q: %w", name, c.cfg.Name, err)
	}

	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(sdkmcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")

	if result.IsError {
		return "", fmt.Errorf("mcpbridge: tool %q returned error: %s", name, text)
	}
	return text, nil
}

// Close terminates the connection and releases resources. Safe to call once.
func (c *Client) Close() error {
	c.mu.Lock()
	inner := c.inner
	c.inner = nil
	c.mu.Unlock()
	if inner == nil {
		return nil
	}
	return inner.Close()
}
