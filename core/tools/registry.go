// Package tools implements the closed set of actions the agent can take.
// Arguments arrive as loosely-typed maps parsed from model output and are
// decoded into per-tool argument structs before any tool runs.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownTool indicates a tool name outside the registered set.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArgs indicates arguments that failed decode or validation.
	ErrInvalidArgs = errors.New("invalid tool arguments")
)

// Tool is one action the agent can dispatch.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry is the closed tool set. Tools register at construction time;
// nothing is added afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding exactly the given tools.
func NewRegistry(toolset ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(toolset))}
	for _, t := range toolset {
		r.tools[t.Name()] = t
	}
	return r
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Has reports whether the tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Execute dispatches to the named tool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return t.Execute(ctx, args)
}

// Describe renders the tool list for the agent persona prompt.
func (r *Registry) Describe() string {
	var sb strings.Builder
	for _, t := range r.List() {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name(), t.Description())
		if schema := t.Schema(); len(schema) > 0 {
			data, err := json.Marshal(schema)
			if err == nil {
				fmt.Fprintf(&sb, "  arguments: %s\n", data)
			}
		}
	}
	return sb.String()
}

// decodeArgs round-trips the loose argument map through JSON into a typed
// argument struct, rejecting unknown fields.
func decodeArgs(args map[string]any, dest any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}
