package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a small in-process TTL cache. The webhook pipeline uses it
// as a fast front for the processed-event table so replays within the
// retention window never hit postgres.
type Cache struct {
	store *gocache.Cache
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		store: gocache.New(ttl, 2*ttl),
	}
}

func (c *Cache) Set(key string, value interface{}) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *Cache) Has(key string) bool {
	_, ok := c.store.Get(key)
	return ok
}

func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}
