// Package validate checks an extraction result against the required fields
// of its document type and a minimum per-field confidence.
package validate

import (
	"fmt"
	"sort"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/entity"
	"github.com/joseph-ayodele/property-intake/internal/schema"
)

// Validate is pure and deterministic. Every field present is checked for
// confidence, null values included, so a null required field can raise both
// an error and a warning. Errors follow
// the required-field order, warnings follow schema order with unknown field
// names sorted last.
func Validate(res *entity.ExtractionResult, docType constants.DocumentType, registry *schema.Registry, minConfidence float64) entity.ValidationResult {
	if registry == nil {
		registry = schema.Default()
	}
	s := registry.Lookup(docType)

	var fields map[string]entity.ExtractedField
	if res != nil {
		fields = res.Fields
	}

	out := entity.ValidationResult{
		Errors:   []entity.ValidationIssue{},
		Warnings: []entity.ValidationIssue{},
	}

	for _, name := range s.Required() {
		f, ok := fields[name]
		if !ok || f.IsEmpty() {
			out.Errors = append(out.Errors, entity.ValidationIssue{
				Field:   name,
				Kind:    entity.IssueMissingRequiredField,
				Message: fmt.Sprintf("Required field '%s' is missing", name),
			})
		}
	}

	for _, name := range warningOrder(fields, s) {
		f := fields[name]
		if f.Confidence < minConfidence {
			out.Warnings = append(out.Warnings, entity.ValidationIssue{
				Field:   name,
				Kind:    entity.IssueLowConfidence,
				Message: fmt.Sprintf("Low confidence (%.2f) for field '%s'", f.Confidence, name),
			})
		}
	}

	out.IsValid = len(out.Errors) == 0
	return out
}

func warningOrder(fields map[string]entity.ExtractedField, s *schema.Schema) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := s.Position(names[i]), s.Position(names[j])
		switch {
		case pi >= 0 && pj >= 0:
			return pi < pj
		case pi >= 0:
			return true
		case pj >= 0:
			return false
		}
		return names[i] < names[j]
	})
	return names
}
