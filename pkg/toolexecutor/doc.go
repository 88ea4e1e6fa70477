// Package toolexecutor resolves and executes batches of structured tool calls for agents.
//
// Invariants:
// - Every call in a batch gets exactly one result, at the same index as the call.
// - Arguments are schema-validated before a tool runs.
// - Per-call failures (unknown tool, invalid arguments, tool error, panic, timeout)
//   become failure results; only an unknown strategy or a cancelled batch fails Execute.
// - Registering a name twice replaces the earlier tool.
//
// Usage:
//
//	reg := toolexecutor.NewRegistry()
//	_ = reg.RegisterFunc(toolexecutor.ToolDefinition{
//		Name:        "echo",
//		Description: "Echo input",
//		Parameters:  []toolexecutor.ToolParameter{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return params["text"], nil },
//	})
//	d := toolexecutor.NewDispatcher(toolexecutor.NewInvoker(reg))
//	outcome, err := d.Execute(ctx, batch, "parallel")
package toolexecutor
