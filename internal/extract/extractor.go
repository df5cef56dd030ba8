// Package extract reads the schema fields of a classified document out of
// its text using the completion backend.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/entity"
	"github.com/joseph-ayodele/property-intake/internal/llm"
	"github.com/joseph-ayodele/property-intake/internal/schema"
)

const (
	temperature = 0.1
	// DefaultOverallConfidence is used when the reply omits overall_confidence.
	DefaultOverallConfidence = 0.8
)

// Extractor produces an ExtractionResult for a document of a known type.
type Extractor struct {
	backend  llm.Completer
	model    string
	registry *schema.Registry
	logger   *slog.Logger
}

// NewExtractor builds an extractor. A nil registry uses schema.Default().
func NewExtractor(backend llm.Completer, model string, registry *schema.Registry, logger *slog.Logger) (*Extractor, error) {
	if backend == nil {
		return nil, errors.New("extractor: backend is required")
	}
	if registry == nil {
		registry = schema.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{backend: backend, model: model, registry: registry, logger: logger}, nil
}

// Model returns the configured backend model name.
func (e *Extractor) Model() string { return e.model }

// Extract reads every schema field of docType out of text. Types with an
// empty schema return an empty result without calling the backend.
func (e *Extractor) Extract(ctx context.Context, text string, docType constants.DocumentType) (*entity.ExtractionResult, error) {
	s := e.registry.Lookup(docType)
	if s.Len() == 0 {
		e.logger.Info("extract.skipped", "document_type", docType, "reason", "empty schema")
		return &entity.ExtractionResult{Fields: map[string]entity.ExtractedField{}}, nil
	}

	budget := TokenBudget(s.Len())
	req := llm.Request{
		Operation: "extract",
		Model:     e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt(docType)},
			{Role: llm.RoleUser, Content: buildUserPrompt(text, s)},
		},
		Temperature: temperature,
		MaxTokens:   budget,
		JSONMode:    true,
	}

	e.logger.Info("extract.start",
		"document_type", docType,
		"fields", s.Len(),
		"text_len", len(text),
		"max_tokens", budget,
	)

	resp, err := e.backend.Complete(ctx, req)
	if err != nil {
		return nil, &ExtractionError{Kind: KindBackend, DocumentType: docType, Err: err}
	}

	truncated := resp.Truncated()
	if truncated {
		e.logger.Warn("extract.response.truncated",
			"document_type", docType,
			"max_tokens", budget,
			"completion_tokens", resp.Usage.CompletionTokens,
		)
	}

	out, err := e.parse(resp.Content, s)
	if err != nil {
		e.logger.Error("extract.parse_failed",
			"document_type", docType,
			"truncated", truncated,
			"content_len", len(resp.Content),
			"preview", llm.Preview(resp.Content, 200),
			"error", err,
		)
		return nil, &ExtractionError{Kind: KindParse, DocumentType: docType, Truncated: truncated, Err: err}
	}
	out.Model = resp.Model
	out.TokensUsed = resp.Usage.TotalTokens
	out.Truncated = truncated

	e.logger.Info("extract.ok",
		"document_type", docType,
		"fields_found", countPresent(out.Fields),
		"overall_confidence", out.OverallConfidence,
		"tokens", out.TokensUsed,
	)
	return out, nil
}

func (e *Extractor) parse(content string, s *schema.Schema) (*entity.ExtractionResult, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return nil, errors.New("response contained no JSON object")
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}

	if err := s.ValidateEnvelope([]byte(raw)); err != nil {
		changed := sanitizeEnvelope(doc)
		cleaned, mErr := json.Marshal(doc)
		if mErr != nil {
			return nil, fmt.Errorf("re-encode sanitized response: %w", mErr)
		}
		if vErr := s.ValidateEnvelope(cleaned); vErr != nil {
			return nil, fmt.Errorf("extraction response does not match schema: %w", vErr)
		}
		e.logger.Warn("extract.lenient_sanitize_applied",
			"document_type", s.DocumentType(),
			"changed", changed,
			"first_error", err.Error(),
		)
	}

	return buildResult(doc, s, e.logger), nil
}

func buildResult(doc map[string]any, s *schema.Schema, logger *slog.Logger) *entity.ExtractionResult {
	entries, _ := doc["fields"].(map[string]any)

	out := &entity.ExtractionResult{
		Fields:            make(map[string]entity.ExtractedField, s.Len()),
		OverallConfidence: DefaultOverallConfidence,
	}
	if oc, ok := doc["overall_confidence"].(float64); ok {
		out.OverallConfidence = clampConfidence(oc)
	}

	var uncoercible []string
	for _, f := range s.Fields() {
		entry, ok := entries[f.Name].(map[string]any)
		if !ok {
			out.Fields[f.Name] = entity.ExtractedField{}
			continue
		}
		conf, _ := confidenceOf(entry["confidence"])
		src, _ := entry["source_text"].(string)
		val, ok := Coerce(entry["value"], f.Type)
		if !ok {
			uncoercible = append(uncoercible, f.Name)
			conf = 0
		}
		out.Fields[f.Name] = entity.ExtractedField{Value: val, Confidence: conf, SourceText: src}
	}

	dropped := 0
	for name := range entries {
		if _, known := s.Field(name); !known {
			dropped++
		}
	}
	if dropped > 0 || len(uncoercible) > 0 {
		logger.Warn("extract.fields.adjusted",
			"document_type", s.DocumentType(),
			"dropped_unknown", dropped,
			"uncoercible", uncoercible,
		)
	}
	return out
}

func countPresent(fields map[string]entity.ExtractedField) int {
	n := 0
	for _, f := range fields {
		if !f.IsEmpty() {
			n++
		}
	}
	return n
}
