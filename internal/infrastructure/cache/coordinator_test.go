package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCoordinator_PutGet(t *testing.T) {
	ctx := context.Background()
	c := New(DefaultRegionConfig())

	_, ok := c.Get(ctx, "loans", "1")
	assert.False(t, ok)

	c.Put(ctx, "loans", "1", []byte("one"))
	v, ok := c.Get(ctx, "loans", "1")
	require.True(t, ok)
	assert.Equal(t, []byte("one"), v)

	_, ok = c.Get(ctx, "items", "1")
	assert.False(t, ok, "regions must not share keys")

	s := c.Stats("loans")
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 1, s.Size)
}

func TestCoordinator_AccessTTL(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := New(RegionConfig{Capacity: 10, AccessTTL: time.Minute, WriteTTL: time.Hour}, WithClock(clk.Now))

	c.Put(ctx, "r", "k", []byte("v"))

	clk.Advance(50 * time.Second)
	_, ok := c.Get(ctx, "r", "k")
	require.True(t, ok, "read within access TTL")

	// the read above refreshed last access
	clk.Advance(50 * time.Second)
	_, ok = c.Get(ctx, "r", "k")
	require.True(t, ok)

	clk.Advance(time.Minute)
	_, ok = c.Get(ctx, "r", "k")
	assert.False(t, ok, "idle past access TTL")
	assert.Equal(t, 0, c.Stats("r").Size, "expired entry is purged")
}

func TestCoordinator_WriteTTL(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := New(RegionConfig{Capacity: 10, AccessTTL: time.Minute, WriteTTL: 3 * time.Minute}, WithClock(clk.Now))

	c.Put(ctx, "r", "k", []byte("v"))
	for i := 0; i < 5; i++ {
		clk.Advance(40 * time.Second)
		_, ok := c.Get(ctx, "r", "k")
		if i < 4 {
			require.True(t, ok, "step %d", i)
		} else {
			assert.False(t, ok, "write TTL holds even for hot entries")
		}
	}
}

func TestCoordinator_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := New(DefaultRegionConfig(), WithRegion("small", RegionConfig{Capacity: 2}))

	c.Put(ctx, "small", "a", []byte("a"))
	c.Put(ctx, "small", "b", []byte("b"))
	_, _ = c.Get(ctx, "small", "a")
	c.Put(ctx, "small", "c", []byte("c"))

	_, ok := c.Get(ctx, "small", "b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get(ctx, "small", "a")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "small", "c")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats("small").Evictions)
}

func TestCoordinator_Invalidate(t *testing.T) {
	ctx := context.Background()
	c := New(DefaultRegionConfig())

	c.Put(ctx, "items", "1", []byte("x"))
	c.Put(ctx, "items", "2", []byte("y"))
	c.Put(ctx, "loans", "1", []byte("z"))

	c.Invalidate(ctx, "items", "1")
	_, ok := c.Get(ctx, "items", "1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "items", "2")
	assert.True(t, ok)

	c.Invalidate(ctx, "items", ports.InvalidateAll)
	_, ok = c.Get(ctx, "items", "2")
	assert.False(t, ok)

	_, ok = c.Get(ctx, "loans", "1")
	assert.True(t, ok, "blanket invalidation is scoped to its region")
}

func TestCoordinator_FillRefusedAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	c := New(DefaultRegionConfig())

	gen := c.Generation(ctx, "loans")
	c.Invalidate(ctx, "loans", ports.InvalidateAll)

	assert.False(t, c.Fill(ctx, "loans", "1", []byte("stale"), gen))
	_, ok := c.Get(ctx, "loans", "1")
	assert.False(t, ok)

	gen = c.Generation(ctx, "loans")
	assert.True(t, c.Fill(ctx, "loans", "1", []byte("fresh"), gen))
	v, ok := c.Get(ctx, "loans", "1")
	require.True(t, ok)
	assert.Equal(t, "fresh", string(v))

	assert.Equal(t, gen, c.Generation(ctx, "loans"), "reads and fills leave the generation alone")
	assert.True(t, c.Fill(ctx, "items", "1", []byte("x"), c.Generation(ctx, "items")))
	c.Invalidate(ctx, "items", "1")
	assert.Equal(t, gen, c.Generation(ctx, "loans"), "generations are per region")
}

func TestCoordinator_StatsUnknownRegion(t *testing.T) {
	c := New(DefaultRegionConfig())
	assert.Equal(t, ports.CacheStats{}, c.Stats("nope"))
}

func TestCoordinator_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := New(RegionConfig{Capacity: 16})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := string(rune('a' + (n+j)%26))
				c.Put(ctx, "r", key, []byte{byte(j)})
				c.Get(ctx, "r", key)
				if j%50 == 0 {
					c.Invalidate(ctx, "r", ports.InvalidateAll)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats("r").Size, 16)
}
