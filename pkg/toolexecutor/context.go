package toolexecutor

import "context"

type (
	callContextKey   struct{}
	policyContextKey struct{}
	batchContextKey  struct{}
)

// ContextWithPolicy attaches a tool policy that the invoker enforces for every call.
func ContextWithPolicy(ctx context.Context, policy *ToolPolicy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if policy == nil {
		return ctx
	}
	return context.WithValue(ctx, policyContextKey{}, policy)
}

// PolicyFromContext extracts the tool policy from a context.Context.
func PolicyFromContext(ctx context.Context) *ToolPolicy {
	if ctx == nil {
		return nil
	}
	if policy, ok := ctx.Value(policyContextKey{}).(*ToolPolicy); ok {
		return policy
	}
	return nil
}

func contextWithCall(ctx context.Context, call ToolCall) context.Context {
	return context.WithValue(ctx, callContextKey{}, call)
}

// CallFromContext returns the call a tool handler is executing for.
func CallFromContext(ctx context.Context) (ToolCall, bool) {
	if ctx == nil {
		return ToolCall{}, false
	}
	call, ok := ctx.Value(callContextKey{}).(ToolCall)
	return call, ok
}

func contextWithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchContextKey{}, batchID)
}

// BatchIDFromContext returns the identifier of the batch being dispatched, if any.
func BatchIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(batchContextKey{}).(string); ok {
		return id
	}
	return ""
}
