package classify

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/property-intake/constants"
)

// PrefixRunes bounds how much document text is sent for classification.
const PrefixRunes = 3000

const systemPrompt = "You are an expert at classifying real estate and mortgage documents. Always respond with valid JSON."

// Prefix returns at most n runes of text.
func Prefix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

func buildUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Classify this real estate/mortgage document into ONE of these types:\n\nDOCUMENT TYPES:\n")
	for _, t := range constants.AllDocumentTypes() {
		fmt.Fprintf(&b, "- %s: %s\n", t, t.Description())
	}
	b.WriteString("\nDOCUMENT TEXT:\n")
	b.WriteString(Prefix(text, PrefixRunes))
	b.WriteString("\n\nRespond with JSON in this exact format:\n")
	b.WriteString(`{"document_type": "one_of_the_types_above", "confidence": 0.95, "reasoning": "brief explanation"}`)
	return b.String()
}

// envelopeSchema is the JSON schema the classification reply must satisfy.
func envelopeSchema() map[string]any {
	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []string{"document_type", "confidence"},
		"properties": map[string]any{
			"document_type": map[string]any{"type": "string", "minLength": 1},
			"confidence":    map[string]any{"type": "number"},
			"reasoning":     map[string]any{"type": []string{"string", "null"}},
		},
	}
}
