// Package cache remembers the responses of non-idempotent pet interactions so
// that a client retrying with the same Idempotency-Key gets the original
// answer instead of petting or feeding the pet twice.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/maypok86/otter"
	"github.com/spaolacci/murmur3"

	"github.com/rafaeljc/petlife/internal/observability"
	"github.com/rafaeljc/petlife/internal/pet"
)

// stripes is the number of key-hashed locks serialising concurrent requests
// that carry the same key.
const stripes = 64

// Entry is a replayable response.
type Entry struct {
	Status int
	Pet    pet.Pet
}

// IdempotencyCache is an S3-FIFO cache (otter) bounded by item count and TTL.
type IdempotencyCache struct {
	store otter.Cache[string, Entry]
	locks [stripes]sync.Mutex
}

// Key builds the cache key for one interaction. Keys are scoped to the
// user, the pet and the action so a client cannot replay a feeding response
// for a petting request.
func Key(user, petName, action, idempotencyKey string) string {
	return strings.Join([]string{user, petName, action, idempotencyKey}, "\x00")
}

// NewIdempotencyCache initializes the cache.
// capacity: max number of remembered responses.
// ttl: how long a response can be replayed.
func NewIdempotencyCache(capacity int, ttl time.Duration) (*IdempotencyCache, error) {
	store, err := otter.MustBuilder[string, Entry](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &IdempotencyCache{store: store}, nil
}

// Get returns the remembered response for key.
func (c *IdempotencyCache) Get(key string) (Entry, bool) {
	e, ok := c.store.Get(key)
	if ok {
		observability.IdempotencyHits.Inc()
	} else {
		observability.IdempotencyMisses.Inc()
	}
	return e, ok
}

// Set remembers a response for key.
func (c *IdempotencyCache) Set(key string, e Entry) {
	c.store.Set(key, e)
}

// Do returns the remembered response for key, or runs fn and remembers its
// result. Concurrent calls with the same key run fn at most once. Only 2xx
// results are remembered; a client may retry after a 404 or a 507.
func (c *IdempotencyCache) Do(key string, fn func() Entry) (e Entry, replayed bool) {
	mu := &c.locks[murmur3.Sum32([]byte(key))%stripes]
	mu.Lock()
	defer mu.Unlock()

	if e, ok := c.Get(key); ok {
		return e, true
	}

	e = fn()
	if e.Status >= 200 && e.Status < 300 {
		c.Set(key, e)
	}
	return e, false
}

// Size returns the number of remembered responses.
func (c *IdempotencyCache) Size() int {
	return c.store.Size()
}

// RunMetricsCollector publishes the cache size every interval until ctx is done.
func (c *IdempotencyCache) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.IdempotencyItems.Set(float64(c.store.Size()))
		}
	}
}

// Close stops otter's background cleanup goroutines.
func (c *IdempotencyCache) Close() {
	c.store.Close()
}
