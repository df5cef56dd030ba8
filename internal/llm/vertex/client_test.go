package vertex_test

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/internal/llm"
	"github.com/joseph-ayodele/property-intake/internal/llm/vertex"
)

func TestGenerationConfig(t *testing.T) {
	cfg := vertex.GenerationConfig(llm.Request{Temperature: 0.1, MaxTokens: 500, JSONMode: true})
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.1, *cfg.Temperature, 1e-6)
	require.NotNil(t, cfg.MaxOutputTokens)
	assert.Equal(t, int32(500), *cfg.MaxOutputTokens)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)

	cfg = vertex.GenerationConfig(llm.Request{})
	assert.Nil(t, cfg.MaxOutputTokens)
	assert.Empty(t, cfg.ResponseMIMEType)
}

func TestMessageSplit(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: "a"},
		{Role: llm.RoleUser, Content: "doc"},
		{Role: llm.RoleSystem, Content: "b"},
	}
	assert.Equal(t, "a\n\nb", vertex.SystemText(msgs))
	parts := vertex.UserParts(msgs)
	require.Len(t, parts, 1)
	assert.Equal(t, genai.Text("doc"), parts[0])
}

func TestToResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
			FinishReason: genai.FinishReasonMaxTokens,
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15},
	}
	out, err := vertex.ToResponse(resp, "gemini-1.5-pro")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out.Content)
	assert.True(t, out.Truncated())
	assert.Equal(t, 15, out.Usage.TotalTokens)
	assert.Equal(t, "gemini-1.5-pro", out.Model)

	_, err = vertex.ToResponse(&genai.GenerateContentResponse{}, "m")
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
}
