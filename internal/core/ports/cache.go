package ports

import "context"

// Cache regions used by the services.
const (
	RegionLoans         = "loans"
	RegionItems         = "items"
	RegionItemsByAuthor = "itemsByAuthor"
	RegionAuthors       = "authors"
)

// InvalidateAll as a key clears a whole region.
const InvalidateAll = "*"

// CacheStats are the counters kept per region.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// Cache is a set of named, independently bounded and expiring regions.
// A miss is a normal result; implementations never fail a caller.
//
// Every Invalidate advances the region's generation. A reader that loads
// after a miss takes the generation first and stores with Fill, so a value
// read before a concurrent invalidation is never written back.
type Cache interface {
	Get(ctx context.Context, region, key string) ([]byte, bool)
	Put(ctx context.Context, region, key string, value []byte)
	Invalidate(ctx context.Context, region, key string)
	Generation(ctx context.Context, region string) uint64
	// Fill stores value only while the region is still at generation gen.
	Fill(ctx context.Context, region, key string, value []byte, gen uint64) bool
	Stats(region string) CacheStats
}
