package cache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/justclothing/pricing-api/internal/cache"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.New(client, time.Minute)
	ctx := context.Background()

	var missed payload
	found, err := c.GetJSON(ctx, cache.KeyZones, &missed)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.SetJSON(ctx, cache.KeyZones, payload{Name: "dhaka", Count: 3}))

	var got payload
	found, err = c.GetJSON(ctx, cache.KeyZones, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "dhaka", got.Name)
	require.Equal(t, 3, got.Count)

	require.NoError(t, c.Invalidate(ctx, cache.KeyZones))
	found, err = c.GetJSON(ctx, cache.KeyZones, &got)
	require.NoError(t, err)
	require.False(t, found)
}

func TestCacheNilClientNoop(t *testing.T) {
	c := cache.New(nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", payload{}))
	var got payload
	found, err := c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	require.False(t, found)
}
