package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// newTestCache needs a disposable Redis; set REDIS_TEST_ADDR to run.
func newTestCache(t *testing.T, cfg RegionConfig) (*Cache, *redis.Client) {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := Connect(context.Background(), Config{Addr: addr, DB: 15})
	require.NoError(t, err)
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, zerolog.Nop(), cfg, nil), client
}

func TestCache_PutGet(t *testing.T) {
	c, _ := newTestCache(t, RegionConfig{Capacity: 10, AccessTTL: time.Minute, WriteTTL: time.Minute})
	ctx := context.Background()

	_, ok := c.Get(ctx, ports.RegionItems, "1")
	assert.False(t, ok)

	c.Put(ctx, ports.RegionItems, "1", []byte(`{"id":1}`))
	v, ok := c.Get(ctx, ports.RegionItems, "1")
	require.True(t, ok)
	assert.Equal(t, `{"id":1}`, string(v))

	st := c.Stats(ports.RegionItems)
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, 1, st.Size)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, RegionConfig{Capacity: 2, AccessTTL: time.Minute, WriteTTL: time.Minute})
	ctx := context.Background()

	clock := time.Now()
	c.now = func() time.Time { return clock }

	c.Put(ctx, ports.RegionLoans, "a", []byte("A"))
	clock = clock.Add(time.Millisecond)
	c.Put(ctx, ports.RegionLoans, "b", []byte("B"))
	clock = clock.Add(time.Millisecond)
	_, ok := c.Get(ctx, ports.RegionLoans, "a")
	require.True(t, ok)
	clock = clock.Add(time.Millisecond)
	c.Put(ctx, ports.RegionLoans, "c", []byte("C"))

	_, ok = c.Get(ctx, ports.RegionLoans, "b")
	assert.False(t, ok)
	_, ok = c.Get(ctx, ports.RegionLoans, "a")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats(ports.RegionLoans).Evictions)
}

func TestCache_AccessTTL(t *testing.T) {
	c, _ := newTestCache(t, RegionConfig{Capacity: 10, AccessTTL: time.Second, WriteTTL: time.Hour})
	ctx := context.Background()

	clock := time.Now()
	c.now = func() time.Time { return clock }

	c.Put(ctx, ports.RegionAuthors, "7", []byte("x"))
	clock = clock.Add(2 * time.Second)
	_, ok := c.Get(ctx, ports.RegionAuthors, "7")
	assert.False(t, ok)
}

func TestCache_AccessTTLBoundary(t *testing.T) {
	c, _ := newTestCache(t, RegionConfig{Capacity: 10, AccessTTL: time.Second, WriteTTL: time.Hour})
	ctx := context.Background()

	clock := time.Now()
	c.now = func() time.Time { return clock }

	c.Put(ctx, ports.RegionAuthors, "7", []byte("x"))
	clock = clock.Add(999 * time.Millisecond)
	_, ok := c.Get(ctx, ports.RegionAuthors, "7")
	require.True(t, ok)

	clock = clock.Add(time.Second)
	_, ok = c.Get(ctx, ports.RegionAuthors, "7")
	assert.False(t, ok, "an entry idle for exactly the access TTL has expired")
}

func TestCache_FillRefusedAfterInvalidate(t *testing.T) {
	c, _ := newTestCache(t, RegionConfig{Capacity: 10, AccessTTL: time.Minute, WriteTTL: time.Minute})
	ctx := context.Background()

	gen := c.Generation(ctx, ports.RegionLoans)
	c.Invalidate(ctx, ports.RegionLoans, ports.InvalidateAll)
	assert.False(t, c.Fill(ctx, ports.RegionLoans, "1", []byte("stale"), gen))
	_, ok := c.Get(ctx, ports.RegionLoans, "1")
	assert.False(t, ok)

	gen = c.Generation(ctx, ports.RegionLoans)
	c.Invalidate(ctx, ports.RegionLoans, "9")
	assert.False(t, c.Fill(ctx, ports.RegionLoans, "1", []byte("stale"), gen), "single-key invalidation also advances the region")

	gen = c.Generation(ctx, ports.RegionLoans)
	require.True(t, c.Fill(ctx, ports.RegionLoans, "1", []byte("fresh"), gen))
	v, ok := c.Get(ctx, ports.RegionLoans, "1")
	require.True(t, ok)
	assert.Equal(t, "fresh", string(v))
}

func TestCache_InvalidateRegion(t *testing.T) {
	c, _ := newTestCache(t, RegionConfig{Capacity: 10, AccessTTL: time.Minute, WriteTTL: time.Minute})
	ctx := context.Background()

	c.Put(ctx, ports.RegionItemsByAuthor, "1", []byte("x"))
	c.Put(ctx, ports.RegionItemsByAuthor, "2", []byte("y"))
	c.Put(ctx, ports.RegionItems, "1", []byte("z"))

	c.Invalidate(ctx, ports.RegionItemsByAuthor, ports.InvalidateAll)

	_, ok := c.Get(ctx, ports.RegionItemsByAuthor, "1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, ports.RegionItemsByAuthor, "2")
	assert.False(t, ok)
	_, ok = c.Get(ctx, ports.RegionItems, "1")
	assert.True(t, ok, "other regions are untouched")

	c.Invalidate(ctx, ports.RegionItems, "1")
	_, ok = c.Get(ctx, ports.RegionItems, "1")
	assert.False(t, ok)
}

func TestCache_UnreachableRedisIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	c := NewCache(client, zerolog.Nop(), RegionConfig{Capacity: 1, WriteTTL: time.Minute}, nil)
	ctx := context.Background()

	c.Put(ctx, ports.RegionItems, "1", []byte("x"))
	_, ok := c.Get(ctx, ports.RegionItems, "1")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats(ports.RegionItems).Misses)

	gen := c.Generation(ctx, ports.RegionItems)
	assert.False(t, c.Fill(ctx, ports.RegionItems, "1", []byte("x"), gen))
}
