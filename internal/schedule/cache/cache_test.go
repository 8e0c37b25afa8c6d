package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock shared by a cache under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestGetRespectsTTL(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	c := New[string, int](Options{TTL: time.Minute, Now: clk.Now})

	c.Put("k", 42, 1)
	if v, ok := c.Get("k", 1); !ok || v != 42 {
		t.Fatalf("Get = %d/%v, want 42/true", v, ok)
	}

	clk.Advance(61 * time.Second)
	if _, ok := c.Get("k", 1); ok {
		t.Fatal("expected expired entry to miss")
	}
	// lazy eviction removed it
	if c.Len() != 0 {
		t.Fatalf("Len = %d after lazy eviction, want 0", c.Len())
	}
}

func TestGetVersionTagging(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	c := New[string, string](Options{TTL: time.Hour, Now: clk.Now})

	c.Put("day", "old", 1)
	if _, ok := c.Get("day", 2); ok {
		t.Fatal("entry from older version must be a miss")
	}
	// older readers may still use newer entries
	c.Put("day", "new", 2)
	if v, ok := c.Get("day", 1); !ok || v != "new" {
		t.Fatalf("Get = %q/%v, want new/true", v, ok)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	c := New[int, int](Options{TTL: time.Hour, Now: clk.Now})
	for i := 0; i < 10; i++ {
		c.Put(i, i, 1)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len = %d after Clear, want 0", c.Len())
	}
	if _, ok := c.Get(3, 1); ok {
		t.Fatal("expected miss after Clear")
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	c := New[string, int](Options{TTL: time.Minute, Now: clk.Now})

	c.Put("old", 1, 1)
	clk.Advance(45 * time.Second)
	c.Put("young", 2, 1)
	clk.Advance(30 * time.Second) // "old" is 75s, "young" is 30s

	if n := c.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if _, ok := c.Get("young", 1); !ok {
		t.Fatal("young entry should survive sweep")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestHighWaterSweepAndEviction(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	c := New[int, int](Options{TTL: time.Minute, HighWater: 10, Now: clk.Now})

	for i := 0; i < 10; i++ {
		c.Put(i, i, 1)
	}
	clk.Advance(2 * time.Minute)
	// All prior entries are expired; crossing the mark sweeps them first.
	c.Put(100, 100, 1)
	if c.Len() != 1 {
		t.Fatalf("Len = %d after high-water sweep, want 1", c.Len())
	}

	// With nothing expired, the entries closest to expiry are evicted instead.
	for i := 0; i < 9; i++ {
		c.Put(i, i, 1)
		clk.Advance(time.Second)
	}
	c.Put(200, 200, 1)
	if c.Len() > 10 {
		t.Fatalf("Len = %d, want <= high-water mark 10", c.Len())
	}
	if _, ok := c.Get(200, 1); !ok {
		t.Fatal("latest insert must survive eviction")
	}
}

func TestOverwriteLeavesNoStaleHeapEviction(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	c := New[string, int](Options{TTL: time.Minute, Now: clk.Now})

	c.Put("k", 1, 1)
	clk.Advance(50 * time.Second)
	c.Put("k", 2, 1) // refresh before expiry
	clk.Advance(20 * time.Second)

	// The first heap item (70s old) is past due but refers to the overwritten
	// seq; the live entry (20s) must survive the sweep.
	c.Sweep()
	if v, ok := c.Get("k", 1); !ok || v != 2 {
		t.Fatalf("Get = %d/%v, want 2/true", v, ok)
	}
}

func TestNegativeTTLNeverExpires(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	c := New[string, int](Options{TTL: -1, Now: clk.Now})

	c.Put("k", 7, 1)
	clk.Advance(1000 * time.Hour)
	if v, ok := c.Get("k", 1); !ok || v != 7 {
		t.Fatalf("Get = %d/%v, want 7/true", v, ok)
	}
	if n := c.Sweep(); n != 0 {
		t.Fatalf("Sweep = %d, want 0", n)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	t.Parallel()
	c := New[string, int](Options{TTL: time.Hour})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", i%50)
				if w%2 == 0 {
					c.Put(key, i, 1)
				} else {
					_, _ = c.Get(key, 1)
				}
			}
		}(w)
	}
	wg.Wait()
}
