package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/internal/llm"
	"github.com/joseph-ayodele/property-intake/internal/llm/testutil"
)

func TestClientCountsTokens(t *testing.T) {
	mock := testutil.NewMockBackend(
		testutil.Reply{Content: `{"a":1}`, Tokens: 120},
		testutil.Reply{Content: `{"b":2}`, Tokens: 80},
	)
	c := llm.NewClient(mock, "mock")

	_, err := c.Complete(context.Background(), llm.Request{Operation: "classify", Model: "m"})
	require.NoError(t, err)
	resp, err := c.Complete(context.Background(), llm.Request{Operation: "extract", Model: "m"})
	require.NoError(t, err)

	assert.Equal(t, `{"b":2}`, resp.Content)
	assert.NotEmpty(t, resp.RequestID)
	assert.EqualValues(t, 200, c.TokensUsed())

	c.ResetTokensUsed()
	assert.Zero(t, c.TokensUsed())
}

func TestClientTallyIsScopedToContext(t *testing.T) {
	mock := testutil.NewMockBackend(testutil.Reply{Content: `{}`, Tokens: 50})
	c := llm.NewClient(mock, "mock")

	ctx, tally := llm.WithTally(context.Background())
	_, err := c.Complete(ctx, llm.Request{Model: "m"})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), llm.Request{Model: "m"})
	require.NoError(t, err)

	assert.EqualValues(t, 50, tally.Tokens())
	assert.EqualValues(t, 100, c.TokensUsed())
}

func TestClientPropagatesErrors(t *testing.T) {
	mock := testutil.NewMockBackend(testutil.Reply{Err: llm.NewFatalError(errors.New("bad request"))})
	var observed []string
	c := llm.NewClient(mock, "mock", llm.WithObserver(func(op string, _ time.Duration, _ *llm.Response, err error) {
		observed = append(observed, op+":"+llm.ErrorClass(err))
	}))

	_, err := c.Complete(context.Background(), llm.Request{Operation: "extract"})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Zero(t, c.TokensUsed())
	assert.Equal(t, []string{"extract:fatal"}, observed)
}

func TestClientRateLimitHonoursContext(t *testing.T) {
	mock := testutil.NewMockBackend(testutil.Reply{Content: "{}"})
	c := llm.NewClient(mock, "mock", llm.WithRateLimit(0.001))

	_, err := c.Complete(context.Background(), llm.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, llm.Request{})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, 1, mock.Calls())
}

func TestClientRequestTimeoutIsTransient(t *testing.T) {
	mock := testutil.NewMockBackend(testutil.Reply{Content: "{}", Delay: time.Second})
	c := llm.NewClient(mock, "mock", llm.WithRequestTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := c.Complete(context.Background(), llm.Request{Operation: "extract"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, llm.IsTransient(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, "transient", llm.ErrorClass(err))
}

func TestClassifyHTTPError(t *testing.T) {
	assert.True(t, llm.IsTransient(llm.ClassifyHTTPError(429, "slow down")))
	assert.True(t, llm.IsTransient(llm.ClassifyHTTPError(503, "")))
	assert.True(t, llm.IsTransient(llm.ClassifyHTTPError(408, "")))
	assert.True(t, llm.IsFatal(llm.ClassifyHTTPError(400, "bad")))
	assert.True(t, llm.IsFatal(llm.ClassifyHTTPError(401, "key")))
	assert.Equal(t, "none", llm.ErrorClass(nil))
	assert.Equal(t, "unknown", llm.ErrorClass(errors.New("x")))
}
