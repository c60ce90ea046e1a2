package service

import (
	"context"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func idKey(id int64) string { return strconv.FormatInt(id, 10) }

// readThrough returns the cached value under region/key or loads, caches and
// returns it. Undecodable entries are dropped and reloaded. A load that
// overlaps an invalidation of the region is returned but not cached.
func readThrough[T any](ctx context.Context, c ports.Cache, log zerolog.Logger, region, key string, load func() (T, error)) (T, error) {
	gen := c.Generation(ctx, region)
	if raw, ok := c.Get(ctx, region, key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		log.Warn().Str("region", region).Str("key", key).Msg("dropping undecodable cache entry")
		c.Invalidate(ctx, region, key)
		gen = c.Generation(ctx, region)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if !c.Fill(ctx, region, key, raw, gen) {
			log.Debug().Str("region", region).Str("key", key).Msg("region invalidated during load, not caching")
		}
	}
	return v, nil
}
