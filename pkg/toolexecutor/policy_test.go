package toolexecutor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestToolPolicy_IsToolAllowed_AllowAll tests allowing all tools with wildcard
func TestToolPolicy_IsToolAllowed_AllowAll(t *testing.T) {
	policy := &ToolPolicy{
		Allow: []string{"*"},
		Deny:  []string{},
	}

	assert.True(t, policy.IsToolAllowed("any_tool"))
	assert.True(t, policy.IsToolAllowed("another_tool"))
	assert.True(t, policy.IsToolAllowed("exec"))
}

// TestToolPolicy_IsToolAllowed_DenyAll tests denying all tools with wildcard
func TestToolPolicy_IsToolAllowed_DenyAll(t *testing.T) {
	policy := &ToolPolicy{
		Allow: []string{"*"},
		Deny:  []string{"*"},
	}

	// Deny overrides allow
	assert.False(t, policy.IsToolAllowed("any_tool"))
	assert.False(t, policy.IsToolAllowed("exec"))
}

func TestToolPolicy_IsToolAllowed_NilPolicy(t *testing.T) {
	var policy *ToolPolicy

	assert.True(t, policy.IsToolAllowed("any_tool"))
	assert.True(t, policy.IsToolAllowed("exec"))
}

func TestToolPolicy_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		policy   *ToolPolicy
		toolName string
		expected bool
	}{
		{
			name:     "allow all except specific",
			policy:   &ToolPolicy{Allow: []string{"*"}, Deny: []string{"exec", "delete"}},
			toolName: "read",
			expected: true,
		},
		{
			name:     "deny overrides allow for same tool",
			policy:   &ToolPolicy{Allow: []string{"exec"}, Deny: []string{"exec"}},
			toolName: "exec",
			expected: false,
		},
		{
			name:     "empty allow list denies all",
			policy:   &ToolPolicy{},
			toolName: "any_tool",
			expected: false,
		},
		{
			name:     "prefix wildcard allows family",
			policy:   &ToolPolicy{Allow: []string{"fs_*"}},
			toolName: "fs_read",
			expected: true,
		},
		{
			name:     "prefix wildcard does not leak",
			policy:   &ToolPolicy{Allow: []string{"fs_*"}},
			toolName: "shell",
			expected: false,
		},
		{
			name:     "prefix deny inside allow all",
			policy:   &ToolPolicy{Allow: []string{"*"}, Deny: []string{"net_*"}},
			toolName: "net_fetch",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.policy.IsToolAllowed(tt.toolName))
		})
	}
}

func TestPolicyContext(t *testing.T) {
	assert.Nil(t, PolicyFromContext(context.Background()))

	policy := &ToolPolicy{Allow: []string{"echo"}}
	ctx := ContextWithPolicy(context.Background(), policy)
	assert.Same(t, policy, PolicyFromContext(ctx))

	// a nil policy leaves the context untouched
	assert.Same(t, policy, PolicyFromContext(ContextWithPolicy(ctx, nil)))
}

func TestDispatcher_PolicyAppliesPerCall(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterFunc(echoDefinition("echo")))
	require.NoError(t, reg.RegisterFunc(echoDefinition("exec")))

	ctx := ContextWithPolicy(context.Background(), &ToolPolicy{Allow: []string{"echo"}})
	batch := ExecutionBatch{
		{ID: "1", Name: "echo", Arguments: map[string]interface{}{"message": "a"}},
		{ID: "2", Name: "exec", Arguments: map[string]interface{}{"message": "b"}},
	}

	outcome, err := NewDispatcher(NewInvoker(reg)).Execute(ctx, batch, "parallel")
	require.NoError(t, err)
	require.Len(t, outcome, 2)

	assert.True(t, outcome[0].Result.Success)
	assert.False(t, outcome[1].Result.Success)
	assert.Contains(t, outcome[1].Result.Error, "not allowed")
}
