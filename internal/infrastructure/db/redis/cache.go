package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// RegionConfig bounds one cache region.
type RegionConfig struct {
	Capacity  int
	AccessTTL time.Duration
	WriteTTL  time.Duration
}

// Cache implements ports.Cache on a shared Redis so several processes see
// the same regions. Values live under cache:<region>:<key> with the write TTL
// as their expiry; a sorted set per region scores keys by last access and is
// used both for the access TTL and for least-recently-used eviction. The
// region generation is a counter at cache-gen:<region>, bumped on every
// invalidation and watched by Fill.
//
// Redis failures degrade to misses and are logged.
type Cache struct {
	client   *redis.Client
	log      zerolog.Logger
	defaults RegionConfig
	regions  map[string]RegionConfig
	now      func() time.Time

	mu    sync.Mutex
	stats map[string]*counters
}

type counters struct {
	hits, misses, evictions atomic.Uint64
}

var _ ports.Cache = (*Cache)(nil)

// NewCache wraps client. regions overrides defaults per region name.
func NewCache(client *redis.Client, log zerolog.Logger, defaults RegionConfig, regions map[string]RegionConfig) *Cache {
	return &Cache{
		client:   client,
		log:      log,
		defaults: defaults,
		regions:  regions,
		now:      time.Now,
		stats:    make(map[string]*counters),
	}
}

func (c *Cache) config(region string) RegionConfig {
	if cfg, ok := c.regions[region]; ok {
		return cfg
	}
	return c.defaults
}

func (c *Cache) counters(region string) *counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[region]
	if !ok {
		s = &counters{}
		c.stats[region] = s
	}
	return s
}

func (c *Cache) Get(ctx context.Context, region, key string) ([]byte, bool) {
	cfg := c.config(region)
	st := c.counters(region)
	k := c.key(region, key)
	now := c.now()

	if cfg.AccessTTL > 0 {
		score, err := c.client.ZScore(ctx, c.index(region), key).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				c.log.Warn().Err(err).Str("region", region).Msg("cache access lookup failed")
			}
			st.misses.Add(1)
			return nil, false
		}
		if now.Sub(time.UnixMilli(int64(score))) >= cfg.AccessTTL {
			c.drop(ctx, region, key)
			st.misses.Add(1)
			return nil, false
		}
	}

	val, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("region", region).Msg("cache get failed")
		}
		// The value expired by write TTL; forget its access entry too.
		c.client.ZRem(ctx, c.index(region), key)
		st.misses.Add(1)
		return nil, false
	}

	c.client.ZAdd(ctx, c.index(region), redis.Z{Score: float64(now.UnixMilli()), Member: key})
	st.hits.Add(1)
	return val, true
}

func (c *Cache) Put(ctx context.Context, region, key string, value []byte) {
	cfg := c.config(region)
	now := c.now()

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.write(ctx, pipe, region, key, value, cfg.WriteTTL, now)
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("region", region).Msg("cache put failed")
		return
	}
	c.evict(ctx, region, cfg.Capacity)
}

func (c *Cache) write(ctx context.Context, pipe redis.Pipeliner, region, key string, value []byte, ttl time.Duration, now time.Time) {
	pipe.Set(ctx, c.key(region, key), value, ttl)
	pipe.ZAdd(ctx, c.index(region), redis.Z{Score: float64(now.UnixMilli()), Member: key})
}

// Generation reads the region counter. A failed read returns a sentinel
// that Fill always refuses.
func (c *Cache) Generation(ctx context.Context, region string) uint64 {
	gen, err := c.client.Get(ctx, c.generation(region)).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Str("region", region).Msg("cache generation lookup failed")
		return staleGeneration
	}
	return gen
}

var errStaleFill = errors.New("region invalidated")

// staleGeneration is never stored; INCR from zero cannot reach it.
const staleGeneration = ^uint64(0)

func (c *Cache) Fill(ctx context.Context, region, key string, value []byte, gen uint64) bool {
	if gen == staleGeneration {
		return false
	}
	cfg := c.config(region)
	now := c.now()
	genKey := c.generation(region)

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			c.write(ctx, pipe, region, key, value, cfg.WriteTTL, now)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		return false
	default:
		c.log.Warn().Err(err).Str("region", region).Msg("cache fill failed")
		return false
	}
	c.evict(ctx, region, cfg.Capacity)
	return true
}

// evict pops least recently used keys until the region fits its capacity.
func (c *Cache) evict(ctx context.Context, region string, capacity int) {
	if capacity <= 0 {
		return
	}
	size, err := c.client.ZCard(ctx, c.index(region)).Result()
	if err != nil {
		c.log.Warn().Err(err).Str("region", region).Msg("cache size lookup failed")
		return
	}
	over := size - int64(capacity)
	if over <= 0 {
		return
	}
	popped, err := c.client.ZPopMin(ctx, c.index(region), over).Result()
	if err != nil {
		c.log.Warn().Err(err).Str("region", region).Msg("cache eviction failed")
		return
	}
	keys := make([]string, 0, len(popped))
	for _, z := range popped {
		if m, ok := z.Member.(string); ok {
			keys = append(keys, c.key(region, m))
		}
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
	c.counters(region).evictions.Add(uint64(len(popped)))
}

func (c *Cache) Invalidate(ctx context.Context, region, key string) {
	if key != ports.InvalidateAll {
		_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, c.generation(region))
			pipe.Del(ctx, c.key(region, key))
			pipe.ZRem(ctx, c.index(region), key)
			return nil
		})
		if err != nil {
			c.log.Warn().Err(err).Str("region", region).Str("key", key).Msg("cache invalidation failed")
		}
		return
	}

	// Bump first so loads already in flight cannot refill what is deleted below.
	if err := c.client.Incr(ctx, c.generation(region)).Err(); err != nil {
		c.log.Warn().Err(err).Str("region", region).Msg("cache generation bump failed")
	}

	members, err := c.client.ZRange(ctx, c.index(region), 0, -1).Result()
	if err != nil {
		c.log.Warn().Err(err).Str("region", region).Msg("cache invalidation failed")
		return
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, c.key(region, m))
	}
	keys = append(keys, c.index(region))
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Str("region", region).Msg("cache invalidation failed")
	}
}

func (c *Cache) drop(ctx context.Context, region, key string) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key(region, key))
		pipe.ZRem(ctx, c.index(region), key)
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("region", region).Str("key", key).Msg("cache delete failed")
	}
}

// Stats reports this process's hit and miss counters and the shared size.
func (c *Cache) Stats(region string) ports.CacheStats {
	st := c.counters(region)
	out := ports.CacheStats{
		Hits:      st.hits.Load(),
		Misses:    st.misses.Load(),
		Evictions: st.evictions.Load(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if n, err := c.client.ZCard(ctx, c.index(region)).Result(); err == nil {
		out.Size = int(n)
	}
	return out
}

func (c *Cache) key(region, key string) string {
	return fmt.Sprintf("cache:%s:%s", region, key)
}

func (c *Cache) index(region string) string {
	return "cache-lru:" + region
}

func (c *Cache) generation(region string) string {
	return "cache-gen:" + region
}
