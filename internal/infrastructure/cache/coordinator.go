// Package cache holds the in-process cache coordinator: named regions, each
// an LRU with an access TTL and a write TTL.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

const (
	DefaultCapacity  = 500
	DefaultAccessTTL = 30 * time.Minute
	DefaultWriteTTL  = time.Hour
)

// RegionConfig bounds a single region.
type RegionConfig struct {
	Capacity  int
	AccessTTL time.Duration
	WriteTTL  time.Duration
}

func DefaultRegionConfig() RegionConfig {
	return RegionConfig{Capacity: DefaultCapacity, AccessTTL: DefaultAccessTTL, WriteTTL: DefaultWriteTTL}
}

func (c RegionConfig) withDefaults() RegionConfig {
	d := DefaultRegionConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = d.AccessTTL
	}
	if c.WriteTTL <= 0 {
		c.WriteTTL = d.WriteTTL
	}
	return c
}

type entry struct {
	value      []byte
	created    time.Time
	lastAccess time.Time
}

type region struct {
	mu    sync.Mutex
	cfg   RegionConfig
	items *lru.Cache[string, *entry]
	stats ports.CacheStats
	gen   uint64
}

// Coordinator implements ports.Cache in memory. Regions are created on
// first use with the defaults unless configured with WithRegion.
type Coordinator struct {
	mu        sync.Mutex
	defaults  RegionConfig
	overrides map[string]RegionConfig
	regions   map[string]*region
	now       func() time.Time
}

type Option func(*Coordinator)

// WithRegion overrides the bounds of one region.
func WithRegion(name string, cfg RegionConfig) Option {
	return func(c *Coordinator) { c.overrides[name] = cfg.withDefaults() }
}

// WithClock replaces time.Now. Tests use it to move time forward.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func New(defaults RegionConfig, opts ...Option) *Coordinator {
	c := &Coordinator{
		defaults:  defaults.withDefaults(),
		overrides: make(map[string]RegionConfig),
		regions:   make(map[string]*region),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Cache = (*Coordinator)(nil)

func (c *Coordinator) region(name string) *region {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.regions[name]; ok {
		return r
	}
	cfg, ok := c.overrides[name]
	if !ok {
		cfg = c.defaults
	}
	// lru.New only fails for a non-positive size, which withDefaults rules out.
	items, _ := lru.New[string, *entry](cfg.Capacity)
	r := &region{cfg: cfg, items: items}
	c.regions[name] = r
	return r
}

func (c *Coordinator) Get(_ context.Context, regionName, key string) ([]byte, bool) {
	r := c.region(regionName)
	now := c.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items.Get(key)
	if !ok {
		r.stats.Misses++
		return nil, false
	}
	if now.Sub(e.lastAccess) >= r.cfg.AccessTTL || now.Sub(e.created) >= r.cfg.WriteTTL {
		r.items.Remove(key)
		r.stats.Misses++
		return nil, false
	}
	e.lastAccess = now
	r.stats.Hits++
	return e.value, true
}

func (c *Coordinator) Put(_ context.Context, regionName, key string, value []byte) {
	r := c.region(regionName)
	now := c.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.add(key, value, now)
}

func (c *Coordinator) Generation(_ context.Context, regionName string) uint64 {
	r := c.region(regionName)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

func (c *Coordinator) Fill(_ context.Context, regionName, key string, value []byte, gen uint64) bool {
	r := c.region(regionName)
	now := c.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen != gen {
		return false
	}
	r.add(key, value, now)
	return true
}

// add stores value; the caller holds r.mu.
func (r *region) add(key string, value []byte, now time.Time) {
	if r.items.Add(key, &entry{value: value, created: now, lastAccess: now}) {
		r.stats.Evictions++
	}
}

func (c *Coordinator) Invalidate(_ context.Context, regionName, key string) {
	r := c.region(regionName)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	if key == ports.InvalidateAll {
		r.items.Purge()
		return
	}
	r.items.Remove(key)
}

func (c *Coordinator) Stats(regionName string) ports.CacheStats {
	c.mu.Lock()
	r, ok := c.regions[regionName]
	c.mu.Unlock()
	if !ok {
		return ports.CacheStats{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Size = r.items.Len()
	return s
}
