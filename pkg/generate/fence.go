package generate

import "strings"

// StripFences removes service-emitted Markdown code fencing from a final
// accumulated payload. Both language-tagged fences ("```html") and bare
// fences are handled; surrounding whitespace is trimmed. Text without
// fencing is returned trimmed but otherwise unchanged.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[len("```"):]
	// Drop the language tag up to the first newline, if any.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		head := strings.TrimSpace(s[:i])
		if !strings.ContainsAny(head, " \t") {
			s = s[i+1:]
		}
	} else {
		// Single-line fenced payload like "```<div/>```".
		s = strings.TrimSuffix(s, "```")
		return strings.TrimSpace(s)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
