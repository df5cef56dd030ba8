// Package testutil provides a scripted llm.Completer for tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joseph-ayodele/property-intake/internal/llm"
)

// Reply is one scripted backend answer.
type Reply struct {
	Content      string
	FinishReason string
	Tokens       int
	Err          error
	// Delay holds the reply back; the call fails early if ctx ends first.
	Delay time.Duration
}

// MockBackend replays scripted replies in order. When the script runs out
// the last reply repeats. Respond, when set, takes precedence over the script.
type MockBackend struct {
	mu       sync.Mutex
	Replies  []Reply
	Respond  func(req llm.Request) Reply
	Model    string
	requests []llm.Request
}

// NewMockBackend returns a backend replaying replies.
func NewMockBackend(replies ...Reply) *MockBackend {
	return &MockBackend{Replies: replies, Model: "mock-model"}
}

// Complete implements llm.Completer.
func (m *MockBackend) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	idx := len(m.requests)
	m.requests = append(m.requests, req)
	var r Reply
	switch {
	case m.Respond != nil:
		r = m.Respond(req)
	case len(m.Replies) == 0:
		m.mu.Unlock()
		return nil, llm.NewFatalError(errors.New("mock: no scripted reply"))
	case idx < len(m.Replies):
		r = m.Replies[idx]
	default:
		r = m.Replies[len(m.Replies)-1]
	}
	m.mu.Unlock()

	if r.Delay > 0 {
		t := time.NewTimer(r.Delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	finish := r.FinishReason
	if finish == "" {
		finish = "stop"
	}
	model := req.Model
	if model == "" {
		model = m.Model
	}
	return &llm.Response{
		Content:      r.Content,
		Model:        model,
		FinishReason: finish,
		Usage:        llm.Usage{TotalTokens: r.Tokens, CompletionTokens: r.Tokens},
	}, nil
}

// Calls returns how many requests were received.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of the received requests.
func (m *MockBackend) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockBackend) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}
