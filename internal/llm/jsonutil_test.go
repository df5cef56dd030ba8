package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/property-intake/internal/llm"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":1} hope it helps", `{"a":1}`},
		{"trailing comma", `{"a":1,"b":[1,2,],}`, `{"a":1,"b":[1,2]}`},
		{"no object", "nothing here", ""},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llm.ExtractJSON(tt.input))
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", llm.Preview("abc", 5))
	assert.Equal(t, "ab...(truncated)", llm.Preview("abcdef", 2))
}
