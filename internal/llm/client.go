package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Client wraps a provider with the per-call request timeout, an optional
// rate limit and the cumulative token counter.
type Client struct {
	provider    Completer
	name        string
	logger      *slog.Logger
	timeout     time.Duration
	limiter     *rate.Limiter
	logRequests bool
	observer    func(op string, d time.Duration, r *Response, err error)

	tokens atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestTimeout bounds each backend call.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps calls per second; rps <= 0 leaves calls unthrottled.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRequestLogging logs every request/response at info instead of debug.
func WithRequestLogging(enabled bool) ClientOption {
	return func(c *Client) { c.logRequests = enabled }
}

// WithObserver registers a hook called after every backend call.
func WithObserver(fn func(op string, d time.Duration, r *Response, err error)) ClientOption {
	return func(c *Client) { c.observer = fn }
}

// NewClient builds a Client around provider. name identifies the provider in logs.
func NewClient(provider Completer, name string, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		name:     name,
		logger:   slog.Default(),
		timeout:  60 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete sends req to the provider and records token usage.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	level := slog.LevelDebug
	if c.logRequests {
		level = slog.LevelInfo
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewTransientError(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Log(ctx, level, "llm.request",
		"req_id", rid,
		"provider", c.name,
		"op", req.Operation,
		"model", req.Model,
		"max_tokens", req.MaxTokens,
		"messages", len(req.Messages),
	)

	resp, err := c.provider.Complete(ctx, req)
	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer(req.Operation, elapsed, resp, err)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = NewTransientError(fmt.Errorf("backend request timed out after %s: %w", c.timeout, err))
		}
		c.logger.Error("llm.request.failed",
			"req_id", rid,
			"provider", c.name,
			"op", req.Operation,
			"class", ErrorClass(err),
			"error", err,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		return nil, err
	}

	if resp.RequestID == "" {
		resp.RequestID = rid
	}
	c.tokens.Add(int64(resp.Usage.TotalTokens))
	if t := tallyFrom(ctx); t != nil {
		t.n.Add(int64(resp.Usage.TotalTokens))
	}

	c.logger.Log(ctx, level, "llm.response",
		"req_id", rid,
		"provider", c.name,
		"op", req.Operation,
		"model", resp.Model,
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
		"content_len", len(resp.Content),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

// TokensUsed returns the tokens consumed since creation or the last reset.
func (c *Client) TokensUsed() int64 {
	return c.tokens.Load()
}

// ResetTokensUsed zeroes the counter.
func (c *Client) ResetTokensUsed() {
	c.tokens.Store(0)
}

type tallyKey struct{}

// Tally counts the tokens of every call made with a context returned by
// WithTally. Batches running on different workers share one Client, so the
// per-document figure comes from the tally rather than the client counter.
type Tally struct {
	n atomic.Int64
}

// Tokens returns the tokens counted so far.
func (t *Tally) Tokens() int64 { return t.n.Load() }

// WithTally attaches a fresh Tally to ctx.
func WithTally(ctx context.Context) (context.Context, *Tally) {
	t := &Tally{}
	return context.WithValue(ctx, tallyKey{}, t), t
}

func tallyFrom(ctx context.Context) *Tally {
	t, _ := ctx.Value(tallyKey{}).(*Tally)
	return t
}
