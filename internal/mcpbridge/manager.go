package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pocketomega/fsmagent/internal/tool"
)

// toolTimeout caps a single MCP tool call so that a hung MCP server fails
// quickly and returns control to the engine, which can still emit a
// ToolFailure observation and continue the run.
const toolTimeout = 60 * time.Second

// Manager owns the lifecycle of all MCP server connections named in an
// mcp.json-shaped config file, and registers each server's tools into a
// tool.Registry under the name "mcp_<server>__<tool>" (double underscore,
// unambiguous against single-underscore server/tool names).
type Manager struct {
	configPath string
	mu         sync.Mutex
	clients    map[string]*Client
}

// NewManager creates a Manager for the given config path. No connections are
// established until ConnectAll is called.
func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath, clients: make(map[string]*Client)}
}

// ConnectAll loads the config and connects to every configured server.
// Failures are per-server and best-effort: one server failing to connect
// does not prevent the others from connecting.
func (m *Manager) ConnectAll(ctx context.Context) (int, []error) {
	configs, err := LoadConfig(m.configPath)
	if err != nil {
		return 0, []error{fmt.Errorf("mcpbridge: load config: %w", err)}
	}

	var errs []error
	connected := 0
	for name, cfg := range configs {
		cli := NewClient(cfg)
		if err := cli.Connect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server %q: %w", name, err))
			log.Printf("[mcpbridge] connect failed: %s: %v", name, err)
			continue
		}
		m.mu.Lock()
		m.clients[name] = cli
		m.mu.Unlock()
		connected++
		log.Printf("[mcpbridge] connected: %s (%s)", name, cfg.Transport)
	}
	return connected, errs
}

// RegisterTools lists the tools on every connected server and registers each
// as a tool.Callable in registry.
func (m *Manager) RegisterTools(ctx context.Context, registry *tool.Registry) error {
	m.mu.Lock()
	snap := make(map[string]*Client, len(m.clients))
	for name, cli := range m.clients {
		snap[name] = cli
	}
	m.mu.Unlock()

	for serverName, cli := range snap {
		tools, err := cli.ListTools(ctx)
		if err != nil {
			return fmt.Errorf("mcpbridge: list tools for %q: %w", serverName, err)
		}
		for _, ti := range tools {
			registerAdapter(registry, serverName, ti, cli)
		}
		log.Printf("[mcpbridge] registered %d tool(s) from %q", len(tools), serverName)
	}
	return nil
}

func registerAdapter(registry *tool.Registry, serverName string, info ToolInfo, cli *Client) {
	name := fmt.Sprintf("mcp_%s__%s", serverName, info.Name)
	schema := info.InputSchema
	if len(schema) == 0 {
		schema = tool.BuildSchema()
	}

	registry.Register(name, info.Description, schema, func(ctx context.Context, args json.RawMessage) (string, error) {
		var params map[string]any
		if len(args) > 0 && string(args) != "null" {
			if err := json.Unmarshal(args, &params); err != nil {
				return "", fmt.Errorf("mcpbridge: parse args for %q: %w", name, err)
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()
		return cli.CallTool(callCtx, info.Name, params)
	})
}

// CloseAll terminates all active MCP server connections. Safe to call
// multiple times.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for name, cli := range clients {
		if err := cli.Close(); err != nil {
			log.Printf("[mcpbridge] close error for %q: %v", name, err)
		}
	}
}
