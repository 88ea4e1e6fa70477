package toolexecutor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// registeredTool is a resolved registry entry
type registeredTool struct {
	tool   Tool
	schema *gojsonschema.Schema
}

// Registry maps tool names to implementations and their compiled argument schemas.
// Resolve is safe for concurrent use while a batch executes.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*registeredTool),
	}
}

// Register adds a tool, replacing any tool already registered under the same name
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("invalid tool definition: tool is nil")
	}

	if err := validateTool(tool); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schema, err := generateJSONSchema(tool.Parameters())
	if err != nil {
		return fmt.Errorf("failed to generate schema for %s: %w", tool.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if existing, ok := r.tools[name]; ok {
		log.Warn().
			Str("tool", name).
			Str("replaced", existing.tool.Description()).
			Msg("Tool re-registered, replacing previous implementation")
	}

	r.tools[name] = &registeredTool{tool: tool, schema: schema}

	log.Debug().Str("tool", name).Msg("Tool registered")

	return nil
}

// RegisterFunc registers a function-backed tool definition
func (r *Registry) RegisterFunc(def ToolDefinition) error {
	if def.Handler == nil {
		return fmt.Errorf("invalid tool definition: tool handler cannot be nil")
	}
	return r.Register(def.AsTool())
}

// Resolve looks up a tool by exact name
func (r *Registry) Resolve(name string) (Tool, bool) {
	entry, ok := r.lookup(name)
	if !ok {
		return nil, false
	}
	return entry.tool, true
}

func (r *Registry) lookup(name string) (*registeredTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.tools[name]
	return entry, ok
}

// List returns all registered tool names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// validateTool validates a tool's declared metadata
func validateTool(tool Tool) error {
	if tool.Name() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Description() == "" {
		return fmt.Errorf("tool description cannot be empty")
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
		"any": true,
	}

	seen := make(map[string]bool)
	for _, param := range tool.Parameters() {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if seen[param.Name] {
			return fmt.Errorf("duplicate parameter %s", param.Name)
		}
		seen[param.Name] = true
		if param.Type == "" {
			return fmt.Errorf("parameter type cannot be empty for %s", param.Name)
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
	}

	return nil
}
