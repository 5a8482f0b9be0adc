package match

import "github.com/tidwall/tinylru"

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// DefaultCacheSize is used by NewLRUProgramCache for non-positive sizes.
const DefaultCacheSize = 256

type lruProgramCache struct {
	lru tinylru.LRU
}

// NewLRUProgramCache returns a ProgramCache holding at most size programs,
// evicting the least recently used. It is safe for concurrent use.
func NewLRUProgramCache(size int) ProgramCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c := &lruProgramCache{}
	c.lru.Resize(size)
	return c
}

func (c *lruProgramCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

func (c *lruProgramCache) Set(key string, value any) {
	c.lru.Set(key, value)
}
