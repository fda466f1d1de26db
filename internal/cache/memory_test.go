package cache_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/petlife/internal/cache"
	"github.com/rafaeljc/petlife/internal/pet"
	"github.com/rafaeljc/petlife/internal/testsupport"
)

func newCache(t *testing.T) *cache.IdempotencyCache {
	t.Helper()
	c, err := cache.NewIdempotencyCache(100, time.Minute)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestKey(t *testing.T) {
	a := cache.Key("Alex", "Buddy", "petting", "k1")

	assert.Equal(t, a, cache.Key("Alex", "Buddy", "petting", "k1"))
	assert.NotEqual(t, a, cache.Key("Alex", "Buddy", "feeding", "k1"))
	assert.NotEqual(t, a, cache.Key("Alex", "Rex", "petting", "k1"))
	assert.NotEqual(t, cache.Key("ab", "c", "x", "k"), cache.Key("a", "bc", "x", "k"))
}

func TestIdempotencyCache_Do(t *testing.T) {
	buddy := pet.Pet{Name: "Buddy", Category: pet.CategoryDog, Happiness: 100}

	t.Run("Should run once and replay afterwards", func(t *testing.T) {
		c := newCache(t)
		calls := 0
		fn := func() cache.Entry {
			calls++
			return cache.Entry{Status: http.StatusOK, Pet: buddy}
		}

		first, replayed := c.Do("k", fn)
		assert.False(t, replayed)
		second, replayed := c.Do("k", fn)
		assert.True(t, replayed)

		assert.Equal(t, 1, calls)
		assert.Equal(t, first, second)
	})

	t.Run("Should not remember failed interactions", func(t *testing.T) {
		c := newCache(t)
		calls := 0
		fn := func() cache.Entry {
			calls++
			return cache.Entry{Status: http.StatusInsufficientStorage}
		}

		c.Do("k", fn)
		_, replayed := c.Do("k", fn)

		assert.False(t, replayed)
		assert.Equal(t, 2, calls)
	})

	t.Run("Should run at most once under concurrent retries", func(t *testing.T) {
		c := newCache(t)
		var calls atomic.Int32

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Do("same", func() cache.Entry {
					calls.Add(1)
					time.Sleep(time.Millisecond)
					return cache.Entry{Status: http.StatusOK, Pet: buddy}
				})
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, calls.Load())
	})
}

func TestIdempotencyCache_Metrics(t *testing.T) {
	c := newCache(t)

	t.Run("misses", func(t *testing.T) {
		testsupport.AssertMetricDelta(t, testsupport.MetricIdempotencyMisses, nil, 1, func() {
			_, found := c.Get("absent")
			assert.False(t, found)
		})
	})

	t.Run("hits", func(t *testing.T) {
		c.Set("present", cache.Entry{Status: http.StatusOK})
		testsupport.AssertMetricDelta(t, testsupport.MetricIdempotencyHits, nil, 1, func() {
			_, found := c.Get("present")
			assert.True(t, found)
		})
	})

	t.Run("reflects items count", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		go c.RunMetricsCollector(ctx, 10*time.Millisecond)

		require.Eventually(t, func() bool {
			return testsupport.GetMetricValue(t, testsupport.MetricIdempotencyItems, nil) >= 1
		}, 2*time.Second, 20*time.Millisecond)
	})
}
