// Package classify maps normalized document text onto one of the known
// document types.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/entity"
	"github.com/joseph-ayodele/property-intake/internal/llm"
	"github.com/joseph-ayodele/property-intake/internal/schema"
)

const (
	temperature = 0.1
	maxTokens   = 500
)

// Classifier asks the backend for a document type. It never fails: any
// backend or parse problem degrades to unknown with zero confidence.
type Classifier struct {
	backend       llm.Completer
	model         string
	minConfidence float64
	logger        *slog.Logger
	envelope      *jsonschema.Schema
}

// NewClassifier builds a classifier. minConfidence only controls the
// low-confidence warning; results below it are still returned.
func NewClassifier(backend llm.Completer, model string, minConfidence float64, logger *slog.Logger) (*Classifier, error) {
	if backend == nil {
		return nil, errors.New("classifier: backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	env, err := schema.Compile(envelopeSchema())
	if err != nil {
		return nil, fmt.Errorf("compile classification schema: %w", err)
	}
	return &Classifier{
		backend:       backend,
		model:         model,
		minConfidence: minConfidence,
		logger:        logger,
		envelope:      env,
	}, nil
}

// Model returns the configured backend model name.
func (c *Classifier) Model() string { return c.model }

type reply struct {
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// Classify returns the document type of text.
func (c *Classifier) Classify(ctx context.Context, text string) entity.Classification {
	req := llm.Request{
		Operation: "classify",
		Model:     c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: buildUserPrompt(text)},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		JSONMode:    true,
	}

	resp, err := c.backend.Complete(ctx, req)
	if err != nil {
		return c.degrade(fmt.Errorf("backend: %w", err), "")
	}

	out, err := c.parse(resp.Content)
	if err != nil {
		return c.degrade(err, resp.Model)
	}
	out.Model = resp.Model

	if out.Confidence < c.minConfidence {
		c.logger.Warn("classify.low_confidence",
			"document_type", out.DocumentType,
			"confidence", out.Confidence,
			"threshold", c.minConfidence,
		)
	}
	c.logger.Info("classify.ok",
		"document_type", out.DocumentType,
		"confidence", out.Confidence,
		"model", out.Model,
	)
	return out
}

// ClassifyBatch classifies texts one after another, preserving order.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string) []entity.Classification {
	out := make([]entity.Classification, 0, len(texts))
	for _, t := range texts {
		out = append(out, c.Classify(ctx, t))
	}
	return out
}

func (c *Classifier) parse(content string) (entity.Classification, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return entity.Classification{}, errors.New("response contained no JSON object")
	}
	if err := schema.ValidateJSON(c.envelope, []byte(raw)); err != nil {
		return entity.Classification{}, fmt.Errorf("invalid classification response: %w", err)
	}
	var r reply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return entity.Classification{}, fmt.Errorf("decode classification: %w", err)
	}
	dt, ok := constants.ParseDocumentType(r.DocumentType)
	if !ok {
		return entity.Classification{}, fmt.Errorf("document type %q is not recognized", r.DocumentType)
	}
	return entity.Classification{
		DocumentType: dt,
		Confidence:   normalizeConfidence(r.Confidence),
		Reasoning:    strings.TrimSpace(r.Reasoning),
	}, nil
}

// normalizeConfidence maps a percentage reply (95) onto [0,1] and clamps the rest.
func normalizeConfidence(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1 && f <= 100:
		return f / 100
	case f > 1:
		return 1
	}
	return f
}

func (c *Classifier) degrade(err error, model string) entity.Classification {
	c.logger.Warn("classify.degraded", "error", err, "model", model)
	return entity.Classification{
		DocumentType: constants.Unknown,
		Confidence:   0,
		Reasoning:    "Classification failed: " + err.Error(),
		Model:        model,
		Degraded:     true,
	}
}
