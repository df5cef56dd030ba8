// Package vertex serves completions from Gemini models on Vertex AI.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/joseph-ayodele/property-intake/internal/llm"
)

// Client implements llm.Completer using the Vertex AI genai SDK.
type Client struct {
	base   *genai.Client
	logger *slog.Logger
}

// NewClient dials Vertex AI for project in region.
func NewClient(ctx context.Context, project, region string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if project == "" || region == "" {
		return nil, errors.New("vertex: project and region are required")
	}
	base, err := genai.NewClient(ctx, project, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	logger.Info("llm.vertex.connected", "project", project, "region", region)
	return &Client{base: base, logger: logger}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.base.Close()
}

// Complete implements llm.Completer.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if req.Model == "" {
		return nil, llm.NewFatalError(errors.New("vertex: model is required"))
	}
	model := c.base.GenerativeModel(req.Model)
	configureModel(model, req)

	resp, err := model.GenerateContent(ctx, userParts(req.Messages)...)
	if err != nil {
		c.logger.Error("llm.vertex.generate_failed", "model", req.Model, "error", err)
		return nil, llm.NewTransientError(fmt.Errorf("vertex generate: %w", err))
	}
	return toResponse(resp, req.Model)
}

func configureModel(model *genai.GenerativeModel, req llm.Request) {
	if sys := systemText(req.Messages); sys != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	}
	model.GenerationConfig = generationConfig(req)
}

func generationConfig(req llm.Request) genai.GenerationConfig {
	cfg := genai.GenerationConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = genai.Ptr(int32(req.MaxTokens))
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func systemText(msgs []llm.Message) string {
	var parts []string
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func userParts(msgs []llm.Message) []genai.Part {
	var parts []genai.Part
	for _, m := range msgs {
		if m.Role != llm.RoleSystem {
			parts = append(parts, genai.Text(m.Content))
		}
	}
	return parts
}

func toResponse(resp *genai.GenerateContentResponse, model string) (*llm.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, llm.NewFatalError(errors.New("vertex: empty response"))
	}
	cand := resp.Candidates[0]

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}

	out := &llm.Response{
		Content:      strings.TrimSpace(b.String()),
		Model:        model,
		FinishReason: finishReason(cand.FinishReason),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func finishReason(r genai.FinishReason) string {
	switch r {
	case genai.FinishReasonMaxTokens:
		return llm.FinishReasonLength
	case genai.FinishReasonStop:
		return "stop"
	case genai.FinishReasonUnspecified:
		return ""
	default:
		return strings.ToLower(r.String())
	}
}
