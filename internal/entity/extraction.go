package entity

import "github.com/joseph-ayodele/property-intake/constants"

// Classification is the classifier's verdict for one document.
type Classification struct {
	DocumentType constants.DocumentType `json:"document_type"`
	Confidence   float64                `json:"confidence"`
	Reasoning    string                 `json:"reasoning"`
	Model        string                 `json:"model,omitempty"`
	// Degraded is true when the verdict was synthesized after a backend or parse failure.
	Degraded bool `json:"degraded,omitempty"`
}

// ExtractedField is one value read from a document, with provenance.
// Value is nil, a string or a float64.
type ExtractedField struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	SourceText string  `json:"source_text"`
}

// IsEmpty reports a null value or a blank string.
func (f ExtractedField) IsEmpty() bool {
	switch v := f.Value.(type) {
	case nil:
		return true
	case string:
		return len(v) == 0 || isBlank(v)
	}
	return false
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// ExtractionResult is the extractor's output for one document.
type ExtractionResult struct {
	Fields            map[string]ExtractedField `json:"fields"`
	OverallConfidence float64                   `json:"overall_confidence"`
	Model             string                    `json:"model,omitempty"`
	TokensUsed        int                       `json:"tokens_used,omitempty"`
	Truncated         bool                      `json:"truncated,omitempty"`
}

// Issue kinds reported by validation.
const (
	IssueMissingRequiredField = "MISSING_REQUIRED_FIELD"
	IssueLowConfidence        = "LOW_CONFIDENCE"
)

// ValidationIssue is a single error or warning.
type ValidationIssue struct {
	Field   string `json:"field"`
	Kind    string `json:"type"`
	Message string `json:"message"`
}

// ValidationResult is derived from an ExtractionResult and a DocumentType.
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}
