package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/portrait-studio/internal/config"
)

type version struct {
	ID string `json:"id"`
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.RedisConnection{AddressRedis: mr.Addr()}
	c, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestSetAndGet(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	expected := version{ID: "3f2b"}
	require.NoError(t, c.Set(ctx, "model_version:alice/fluxmodel-a", expected, time.Minute))

	var actual version
	found, err := c.Get(ctx, "model_version:alice/fluxmodel-a", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	c, _ := setupTestCache(t)

	var out version
	found, err := c.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiration(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	var out string
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Invalidate(ctx, "k"))

	var out string
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetCorruptedValue(t *testing.T) {
	c, mr := setupTestCache(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var out version
	_, err := c.Get(context.Background(), "k", &out)
	assert.Error(t, err)
}

func TestInitServer_Unreachable(t *testing.T) {
	cfg := config.RedisConnection{AddressRedis: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}
	_, err := InitServer(context.Background(), cfg)
	assert.Error(t, err)
}
