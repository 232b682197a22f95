package openai

import "strings"

// cleanCompletion drops <think> blocks emitted by reasoning models,
// strips markdown code fences and trims whitespace.
func cleanCompletion(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end < 0 {
			// Unterminated block: the reply never left the reasoning phase.
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```markdown")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
