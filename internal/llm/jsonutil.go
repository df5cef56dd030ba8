package llm

import (
	"regexp"
	"strings"
)

var (
	fencedObject  = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*\\})\\s*```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls the JSON object out of a completion. Backends in JSON
// mode return a bare object; others wrap it in a markdown fence or add prose
// around it. Trailing commas are dropped. Returns "" when no object is found.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if m := fencedObject.FindStringSubmatch(content); len(m) > 1 {
		return trailingComma.ReplaceAllString(m[1], "$1")
	}
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end < start {
		return ""
	}
	return trailingComma.ReplaceAllString(content[start:end+1], "$1")
}

// Preview returns at most n bytes of s for log lines.
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
