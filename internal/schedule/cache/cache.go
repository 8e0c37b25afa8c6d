// Package cache provides the TTL-bounded memoization store used by the
// schedule engine: day results, registry snapshots and catalog snapshots each
// get their own instance with independent TTL and invalidation.
package cache

import (
	"container/heap"
	"sync"
	"time"
)

const (
	DefaultTTL       = 24 * time.Hour
	DefaultHighWater = 1200
)

// Options configures a Cache.
//
// Semantics:
//   - TTL == 0       : DefaultTTL
//   - TTL < 0        : entries never expire (invalidation only)
//   - HighWater <= 0 : DefaultHighWater
type Options struct {
	TTL       time.Duration
	HighWater int

	// Now is the clock; nil means time.Now. Injectable for tests.
	Now func() time.Time
}

type entry[V any] struct {
	value      V
	computedAt time.Time
	version    uint64
	seq        uint64
}

// Cache is a concurrency-safe TTL cache.
//
// Reads take a shared lock only; writes lock per operation, never across a
// recomputation (callers compute outside and Put the result, so two callers
// racing on the same key is wasted work, not corruption).
//
// Entries are tagged with a version. A Get with a newer version treats older
// entries as misses, so wholesale invalidation can be done either by Clear or
// by bumping the version the callers pass.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	expiry  expiryHeap[K]
	seq     uint64

	ttl       time.Duration
	highWater int
	now       func() time.Time
}

// New builds a cache with the given options.
func New[K comparable, V any](opts Options) *Cache[K, V] {
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	hw := opts.HighWater
	if hw <= 0 {
		hw = DefaultHighWater
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache[K, V]{
		entries:   make(map[K]entry[V]),
		ttl:       ttl,
		highWater: hw,
		now:       now,
	}
}

// Get returns the cached value for key if it is fresh and at least as new as
// version. Expired or outdated entries are misses; expired ones are evicted
// lazily.
func (c *Cache[K, V]) Get(key K, version uint64) (V, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok || e.version < version {
		return zero, false
	}
	if c.expired(e, now) {
		// Lazy eviction; re-check under the write lock, a writer may have
		// refreshed the entry meanwhile.
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.seq == e.seq {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Put stores value under key tagged with version. Crossing the high-water
// mark triggers an eager sweep of expired entries before the insert; if the
// cache is still over the mark, the entries closest to expiry are dropped.
func (c *Cache[K, V]) Put(key K, value V, version uint64) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.highWater {
		c.sweepLocked(now)
		for len(c.entries) >= c.highWater {
			if !c.evictSoonestLocked() {
				break
			}
		}
	}

	c.seq++
	e := entry[V]{value: value, computedAt: now, version: version, seq: c.seq}
	c.entries[key] = e
	if c.ttl > 0 {
		heap.Push(&c.expiry, expiryItem[K]{key: key, expires: now.Add(c.ttl), seq: c.seq})
	}
}

// Clear drops every entry. Used for wholesale invalidation on scheme change.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]entry[V])
	c.expiry = c.expiry[:0]
	c.mu.Unlock()
}

// Sweep eagerly removes all expired entries and returns how many were
// dropped. Cost is proportional to the number of expired entries, not the
// cache size.
func (c *Cache[K, V]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	n := c.sweepLocked(now)
	c.mu.Unlock()
	return n
}

// Len returns the number of stored entries (including not-yet-swept expired ones).
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[K, V]) expired(e entry[V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.computedAt) > c.ttl
}

// sweepLocked pops the expiry heap while its head is past due. Heap items
// whose seq no longer matches the live entry are leftovers from overwrites
// and are discarded without touching the map.
func (c *Cache[K, V]) sweepLocked(now time.Time) int {
	n := 0
	for len(c.expiry) > 0 && !c.expiry[0].expires.After(now) {
		it := heap.Pop(&c.expiry).(expiryItem[K])
		if e, ok := c.entries[it.key]; ok && e.seq == it.seq {
			delete(c.entries, it.key)
			n++
		}
	}
	return n
}

// evictSoonestLocked drops the live entry closest to expiry. Returns false
// when there is nothing left to evict.
func (c *Cache[K, V]) evictSoonestLocked() bool {
	for len(c.expiry) > 0 {
		it := heap.Pop(&c.expiry).(expiryItem[K])
		if e, ok := c.entries[it.key]; ok && e.seq == it.seq {
			delete(c.entries, it.key)
			return true
		}
	}
	return false
}

// ---- expiry heap ----

type expiryItem[K comparable] struct {
	key     K
	expires time.Time
	seq     uint64
}

type expiryHeap[K comparable] []expiryItem[K]

func (h expiryHeap[K]) Len() int            { return len(h) }
func (h expiryHeap[K]) Less(i, j int) bool  { return h[i].expires.Before(h[j].expires) }
func (h expiryHeap[K]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap[K]) Push(x any)         { *h = append(*h, x.(expiryItem[K])) }
func (h *expiryHeap[K]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
