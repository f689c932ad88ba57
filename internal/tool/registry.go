package tool

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

type entry struct {
	name        string
	description string
	schema      []byte
	fn          Callable
}

// Registry is the Tool Registry of spec §4.11: a thread-safe map from tool
// name to (description, schema, callable). A Registry can be a "root"
// registry (parent == nil) or a "view" created by WithExtra that overlays
// additional tools on top of a parent — used for sub-agent tool wrapping,
// where a nested engine's registry extends the parent's without mutating it.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]entry
	parent *Registry
}

// NewRegistry creates an empty root tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register installs a tool entry. If a tool with the same name already
// exists, it is overwritten and a warning is logged.
func (r *Registry) Register(name, description string, schema []byte, fn Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		log.Printf("[Registry] WARNING: overwriting existing tool %q", name)
	}
	r.tools[name] = entry{name: name, description: description, schema: schema, fn: fn}
}

// Unregister removes a tool from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

func (r *Registry) lookup(name string) (entry, bool) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if ok {
		return e, true
	}
	if r.parent != nil {
		return r.parent.lookup(name)
	}
	return entry{}, false
}

// Execute runs the named tool's callable with the given JSON args.
// Per spec §4.4/§4.11 an unknown tool name is not fatal to the caller — it
// returns a plain error the ActingState formats as "ERROR: Tool '<name>' not
// found in registry", not a panic.
func (r *Registry) Execute(ctx context.Context, name string, args []byte) (string, error) {
	e, ok := r.lookup(name)
	if !ok {
		return "", fmt.Errorf("Tool '%s' not found in registry", name)
	}
	return e.fn(ctx, args)
}

// Schemas returns the full tool-definition list for LLM tool-list injection,
// sorted by name for deterministic prompt construction.
func (r *Registry) Schemas() []Definition {
	names := r.allNames()
	defs := make([]Definition, 0, len(names))
	for _, n := range names {
		e, ok := r.lookup(n)
		if !ok {
			continue
		}
		defs = append(defs, Definition{Name: e.name, Description: e.description, Schema: e.schema})
	}
	return defs
}

func (r *Registry) allNames() []string {
	seen := make(map[string]bool)
	var collect func(reg *Registry)
	collect = func(reg *Registry) {
		if reg == nil {
			return
		}
		reg.mu.RLock()
		for n := range reg.tools {
			seen[n] = true
		}
		reg.mu.RUnlock()
		collect(reg.parent)
	}
	collect(r)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithExtra returns a view of this Registry with additional tool entries
// overlaid; extras take precedence over parent tools with the same name.
// Used to give a sub-agent its own registry built from the parent's.
func (r *Registry) WithExtra() *Registry {
	return &Registry{parent: r, tools: make(map[string]entry)}
}
