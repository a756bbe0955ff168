package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache(withClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, c.SetBytes(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.SetBytes(ctx, "b", []byte("2"), 0))

	b, ok, err := c.GetBytes(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), b)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.GetBytes(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "b")
	assert.True(t, ok, "zero ttl never expires")
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheMaxEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache(WithMaxEntries(2), withClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, c.SetBytes(ctx, "short", []byte("x"), time.Second))
	require.NoError(t, c.SetBytes(ctx, "long", []byte("y"), time.Hour))
	require.NoError(t, c.SetBytes(ctx, "new", []byte("z"), time.Hour))

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.GetBytes(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "new")
	assert.True(t, ok)

	require.NoError(t, c.SetBytes(ctx, "long", []byte("y2"), time.Hour))
	assert.Equal(t, 2, c.Len())
}

func TestNewSelectsBackend(t *testing.T) {
	_, ok := New(Config{}).(*TTLCache)
	assert.True(t, ok)
	r, ok := New(Config{RedisAddr: "127.0.0.1:0", Prefix: "cc:"}).(*RedisCache)
	require.True(t, ok)
	assert.Equal(t, "cc:k", r.key("k"))
	_ = r.Close()
}
