// Package tools provides the tool framework and implementations for the agent.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/wardenhq/warden/internal/provider"
)

// Tool is the interface that all agent tools must implement.
type Tool interface {
	// Name returns the canonical tool identifier used for dispatch.
	Name() string
	// Description returns a human-readable description for the LLM.
	Description() string
	// Parameters returns the JSON Schema for tool parameters.
	Parameters() map[string]any
	// Execute runs the tool with the given parameters. The raw outcome is
	// normalized into a result envelope by the caller; structured results
	// (maps, slices) pass through as-is.
	Execute(ctx context.Context, params map[string]any) (any, error)
}

// FilesystemTool is an optional interface for tools whose invocations touch
// the filesystem. TargetPath reports the path a call would affect so the
// permission layer can authorize the enclosing directory before execution.
type FilesystemTool interface {
	Tool
	// TargetPath returns the filesystem path this call targets, or false when
	// the call carries no usable path.
	TargetPath(params map[string]any) (string, bool)
}

// Registry manages tool registration and execution.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Registration fails when the tool's
// name is not already canonical, so naming mistakes surface at startup
// instead of at dispatch time.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if !IsCanonical(name) {
		return fmt.Errorf("tool name %q is not canonical (want %q)", name, Canonicalize(name))
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// MustRegister registers a tool and panics on failure. Intended for static
// registration at startup.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get returns a tool by canonical name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	result := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Definitions returns tool definitions in the uniform function-calling format.
func (r *Registry) Definitions() []provider.ToolDefinition {
	tools := r.List()
	result := make([]provider.ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		result = append(result, provider.ToolDefinition{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return result
}

// Execute runs a tool by canonical name with the given parameters.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (any, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(ctx, params)
}

// GetString extracts a string parameter with a default value.
func GetString(params map[string]any, key string, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// GetInt extracts an int parameter with a default value.
func GetInt(params map[string]any, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return defaultVal
}

// GetBool extracts a bool parameter with a default value.
func GetBool(params map[string]any, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}
