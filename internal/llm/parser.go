package llm

import "strings"

// stripJSONFence removes ```json ... ``` wrapping that some models add around
// their output even when a JSON response format was requested. Anything that
// is not fence-wrapped passes through untouched.
func stripJSONFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}

	// Drop the opening fence line, whatever language tag it carries.
	idx := strings.Index(trimmed, "\n")
	if idx < 0 {
		return s
	}
	inner := trimmed[idx+1:]

	if lastFence := strings.LastIndex(inner, "```"); lastFence >= 0 {
		inner = inner[:lastFence]
	}
	return strings.TrimSpace(inner)
}
