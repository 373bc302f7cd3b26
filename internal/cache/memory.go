package cache

import (
	"time"

	"github.com/maypok86/otter"

	"github.com/rafaeljc/mimir/internal/projectconfig"
)

// MemoryCache is the L1 layer holding compiled configurations keyed by SDK
// key, backed by the contention-free S3-FIFO algorithm from the 'otter'
// library. Entries are immutable *projectconfig.Config values, so a Get
// needs no copying and no locking on the caller's side.
type MemoryCache struct {
	store otter.Cache[string, *projectconfig.Config]
}

// NewMemoryCache initializes the in-memory cache.
// capacity caps the number of compiled configs (one per SDK key);
// ttl expires entries for projects that stop being refreshed.
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	cache, err := otter.MustBuilder[string, *projectconfig.Config](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &MemoryCache{store: cache}, nil
}

// Get retrieves a compiled config.
func (c *MemoryCache) Get(sdkKey string) (*projectconfig.Config, bool) {
	return c.store.Get(sdkKey)
}

// Set swaps in a freshly compiled config. The previous entry, if any, is
// dropped whole; a config is never patched in place.
func (c *MemoryCache) Set(sdkKey string, cfg *projectconfig.Config) {
	c.store.Set(sdkKey, cfg)
}

// Del removes a project's compiled config.
func (c *MemoryCache) Del(sdkKey string) {
	c.store.Delete(sdkKey)
}

// Len reports the number of compiled configs currently held.
func (c *MemoryCache) Len() int {
	return c.store.Size()
}

// Close gracefully shuts down the cache and its background goroutines.
func (c *MemoryCache) Close() {
	c.store.Close()
}
