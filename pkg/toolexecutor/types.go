package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrInvalidStrategy is returned when a batch names an unknown execution strategy.
	ErrInvalidStrategy = errors.New("invalid execution strategy")

	// ErrToolNotFound marks a lookup of an unregistered tool name.
	ErrToolNotFound = errors.New("tool not found")
)

// Strategy selects how a batch is executed
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyParallel   Strategy = "parallel"
)

// ParseStrategy converts a configuration value into a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySequential, StrategyParallel:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: %q (must be one of: sequential, parallel)", ErrInvalidStrategy, s)
}

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string      `json:"name" yaml:"name"`
	Type        string      `json:"type" yaml:"type"`
	Description string      `json:"description" yaml:"description"`
	Required    bool        `json:"required" yaml:"required"`
	Default     interface{} `json:"default,omitempty" yaml:"default,omitempty"`
}

// Tool is an executable capability registered by name.
//
// Execute receives arguments that already passed schema validation. Returning
// an error (or panicking) produces a failure ToolResult for that call only.
type Tool interface {
	Name() string
	Description() string
	Parameters() []ToolParameter
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// ToolHandler is the function signature for tool execution
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// ToolDefinition is a function-backed Tool
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Timeout     time.Duration   `json:"-"` // zero means the invoker default applies
	Handler     ToolHandler     `json:"-"`
}

// AsTool adapts the definition to the Tool interface
func (d ToolDefinition) AsTool() Tool {
	return definitionTool{def: d}
}

type definitionTool struct {
	def ToolDefinition
}

func (t definitionTool) Name() string                { return t.def.Name }
func (t definitionTool) Description() string         { return t.def.Description }
func (t definitionTool) Parameters() []ToolParameter { return t.def.Parameters }
func (t definitionTool) Timeout() time.Duration      { return t.def.Timeout }

func (t definitionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if t.def.Handler == nil {
		return nil, fmt.Errorf("tool %s has no handler", t.def.Name)
	}
	return t.def.Handler(ctx, args)
}

// timeoutTool is implemented by tools that enforce their own execution deadline.
type timeoutTool interface {
	Timeout() time.Duration
}

// ToolCall is one requested invocation. The engine never mutates it.
type ToolCall struct {
	ID        string                 `json:"id" yaml:"id"`
	Name      string                 `json:"name" yaml:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// NewToolCall builds a call with a generated identifier
func NewToolCall(name string, args map[string]interface{}) ToolCall {
	return ToolCall{
		ID:        NewCallID(),
		Name:      name,
		Arguments: args,
	}
}

// NewCallID returns a fresh call identifier of the form call_<nanoid>.
func NewCallID() string {
	id, err := gonanoid.New()
	if err != nil {
		// crypto/rand failure; fall back to a time-derived suffix
		return fmt.Sprintf("call_%d", time.Now().UnixNano())
	}
	return "call_" + id
}

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Success   bool                   `json:"success"`
	Output    interface{}            `json:"output,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Truncated bool                   `json:"truncated,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func successResult(output interface{}, truncated bool, metadata map[string]interface{}) ToolResult {
	return ToolResult{
		Success:   true,
		Output:    output,
		Truncated: truncated,
		Metadata:  metadata,
	}
}

func failureResult(errMsg string, metadata map[string]interface{}) ToolResult {
	if errMsg == "" {
		errMsg = "tool execution failed"
	}
	return ToolResult{
		Success:  false,
		Error:    errMsg,
		Metadata: metadata,
	}
}

// ExecutionBatch is the ordered set of calls produced by one reasoning turn
type ExecutionBatch []ToolCall

// CallOutcome pairs a call with its result
type CallOutcome struct {
	Call   ToolCall   `json:"call"`
	Result ToolResult `json:"result"`
}

// ExecutionOutcome is index-aligned with the batch it was produced from
type ExecutionOutcome []CallOutcome

// Results returns just the results, in batch order
func (o ExecutionOutcome) Results() []ToolResult {
	results := make([]ToolResult, len(o))
	for i, entry := range o {
		results[i] = entry.Result
	}
	return results
}

// Failures returns the entries whose result failed
func (o ExecutionOutcome) Failures() []CallOutcome {
	var failed []CallOutcome
	for _, entry := range o {
		if !entry.Result.Success {
			failed = append(failed, entry)
		}
	}
	return failed
}

// Succeeded reports whether every call in the outcome succeeded
func (o ExecutionOutcome) Succeeded() bool {
	for _, entry := range o {
		if !entry.Result.Success {
			return false
		}
	}
	return true
}
