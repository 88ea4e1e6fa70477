package modes

import (
	"encoding/json"

	"github.com/harun/agentpress/pkg/toolexecutor"
)

// Mode is one custom mode definition
type Mode struct {
	Slug               string   `json:"slug"`
	Name               string   `json:"name,omitempty"`
	RoleDefinition     string   `json:"roleDefinition,omitempty"`
	CustomInstructions string   `json:"customInstructions,omitempty"`
	Tools              []string `json:"tools,omitempty"`       // allowed tool names or patterns; empty allows all
	DeniedTools        []string `json:"deniedTools,omitempty"` // overrides Tools

	// Raw keeps the full entry, including keys this package does not interpret.
	Raw json.RawMessage `json:"-"`
}

// Details returns the full mode entry as a generic map
func (m Mode) Details() map[string]interface{} {
	details := map[string]interface{}{}
	if len(m.Raw) > 0 {
		_ = json.Unmarshal(m.Raw, &details)
	}
	return details
}

// Policy converts the mode's tool lists into a tool policy.
// A mode that lists no tools and denies none returns nil, which allows every tool.
func (m Mode) Policy() *toolexecutor.ToolPolicy {
	if len(m.Tools) == 0 && len(m.DeniedTools) == 0 {
		return nil
	}

	allow := m.Tools
	if len(allow) == 0 {
		allow = []string{"*"}
	}

	return &toolexecutor.ToolPolicy{
		Allow: append([]string(nil), allow...),
		Deny:  append([]string(nil), m.DeniedTools...),
	}
}

type modesFile struct {
	CustomModes []json.RawMessage `json:"customModes"`
}
