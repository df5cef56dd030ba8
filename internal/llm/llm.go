// Package llm is the text-understanding backend used by the classifier and
// the extractor: provider-neutral request/response types, a metered client
// and the JSON helpers shared by both stages.
package llm

import "context"

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// FinishReasonLength is reported when the completion hit the token budget.
const FinishReasonLength = "length"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	// Operation labels the call in logs and metrics ("classify", "extract").
	Operation   string
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a provider-neutral completion response.
type Response struct {
	RequestID    string
	Content      string
	Model        string
	FinishReason string
	Usage        Usage
}

// Truncated reports a length-limited stop.
func (r *Response) Truncated() bool {
	return r != nil && r.FinishReason == FinishReasonLength
}

// Completer is implemented by providers and by Client.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// TokenMeter exposes cumulative token usage for cost accounting.
type TokenMeter interface {
	TokensUsed() int64
	ResetTokensUsed()
}
