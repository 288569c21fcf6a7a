package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheNoTTLAndDelete(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Delete(ctx, "a"))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	got, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx := context.Background()
	buf := []byte("abc")

	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	_, err := NewRedisClient(RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisClient)(nil)
)
