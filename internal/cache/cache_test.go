package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/internal/cache"
)

func TestMemory_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := cache.NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))

	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	now = now.Add(2 * time.Minute)
	_, ok, _ = m.Get(ctx, "a")
	assert.False(t, ok)

	_, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok, "zero ttl never expires")
}

func TestMemory_Evict(t *testing.T) {
	now := time.Now()
	m := cache.NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "x", []byte("x"), time.Second))
	require.NoError(t, m.Set(ctx, "y", []byte("y"), time.Hour))

	now = now.Add(time.Minute)
	assert.Equal(t, 1, m.Evict())
	assert.Equal(t, 1, m.Len())
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	m := cache.NewMemory()
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf, 0))
	buf[0] = 'z'
	v, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	r := cache.NewRedis(addr, "", 0, "intake-test:")
	defer func() { _ = r.Close() }()
	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))

	require.NoError(t, r.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	_, ok, err = r.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
