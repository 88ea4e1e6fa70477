package toolexecutor

import "strings"

// ToolPolicy defines which tools a caller may use
type ToolPolicy struct {
	Allow []string `json:"allow"` // List of allowed tools (* for all)
	Deny  []string `json:"deny"`  // List of denied tools (overrides allow)
}

// IsToolAllowed checks if a tool is allowed by the policy
func (tp *ToolPolicy) IsToolAllowed(toolName string) bool {
	if tp == nil {
		// No policy means allow all
		return true
	}

	// Check deny list first (overrides allow list)
	for _, denied := range tp.Deny {
		if matchToolPattern(denied, toolName) {
			return false
		}
	}

	for _, allowed := range tp.Allow {
		if matchToolPattern(allowed, toolName) {
			return true
		}
	}

	// If no explicit allow, deny by default
	return false
}

// matchToolPattern matches exact names, "*" and trailing-wildcard prefixes such as "fs_*".
func matchToolPattern(pattern, toolName string) bool {
	if pattern == "*" || pattern == toolName {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok && prefix != "" {
		return strings.HasPrefix(toolName, prefix)
	}
	return false
}
