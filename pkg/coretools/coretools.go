package coretools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/agentpress/pkg/toolexecutor"
)

// MaxWaitSeconds bounds the wait tool
const MaxWaitSeconds = 300

// RegisterCoreTools registers the built-in tools: echo, wait and fail.
func RegisterCoreTools(registry *toolexecutor.Registry) error {
	if registry == nil {
		return errors.New("tool registry is required")
	}

	tools := []toolexecutor.ToolDefinition{
		echoTool(),
		waitTool(),
		failTool(),
	}

	for _, tool := range tools {
		if err := registry.RegisterFunc(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func echoTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "echo",
		Description: "Return the given value unchanged.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "x", Type: "any", Description: "Value to echo", Required: false},
			{Name: "text", Type: "string", Description: "Text to echo", Required: false},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			for _, key := range []string{"x", "text"} {
				if v, ok := params[key]; ok {
					return v, nil
				}
			}
			return nil, errors.New("nothing to echo: provide x or text")
		},
	}
}

// waitTool sleeps for the requested duration. It is the latency-bound tool used
// to compare sequential and parallel execution.
func waitTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "wait",
		Description: "Wait for a number of seconds, then return the message.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "seconds", Type: "number", Description: "Seconds to wait (0-300)", Required: true},
			{Name: "message", Type: "string", Description: "Message returned after waiting", Required: false},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			seconds, err := numberParam(params, "seconds")
			if err != nil {
				return nil, err
			}
			if seconds < 0 || seconds > MaxWaitSeconds {
				return nil, fmt.Errorf("seconds must be between 0 and %d, got %v", MaxWaitSeconds, seconds)
			}

			message, _ := params["message"].(string)
			if message == "" {
				message = fmt.Sprintf("waited %v seconds", seconds)
			}

			timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
			defer timer.Stop()

			select {
			case <-timer.C:
				log.Debug().Float64("seconds", seconds).Msg("Wait completed")
				return message, nil
			case <-ctx.Done():
				return nil, fmt.Errorf("wait interrupted: %w", ctx.Err())
			}
		},
	}
}

func failTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "fail",
		Description: "Always fail with the given reason. Useful for exercising failure handling.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "reason", Type: "string", Description: "Failure description", Required: false},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			reason, _ := params["reason"].(string)
			if reason == "" {
				reason = "requested failure"
			}
			return nil, errors.New(reason)
		},
	}
}

func numberParam(params map[string]interface{}, name string) (float64, error) {
	switch v := params[name].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case nil:
		return 0, fmt.Errorf("%s is required", name)
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", name, v)
	}
}
