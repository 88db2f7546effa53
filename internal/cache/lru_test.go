package cache

import (
	"testing"
	"time"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	clk := &stepClock{now: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](2, time.Minute, clk)

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	clk := &stepClock{now: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute, clk)

	c.Set("owner", "ledger")
	clk.now = clk.now.Add(30 * time.Second)
	if _, ok := c.Get("owner"); !ok {
		t.Fatal("entry expired too early")
	}

	c.Set("other", "x")
	clk.now = clk.now.Add(45 * time.Second)
	if _, ok := c.Get("owner"); ok {
		t.Error("entry should have expired")
	}
	clk.now = clk.now.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d/%d, want 1/1", hits, misses)
	}
}

func TestLRUCache_Delete(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute, nil)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
}

func TestManager_CleanNowAndStop(t *testing.T) {
	clk := &stepClock{now: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](4, time.Second, clk)
	c.Set("a", 1)
	c.Set("b", 2)
	clk.now = clk.now.Add(2 * time.Second)

	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 2 {
		t.Errorf("CleanNow() = %d, want 2", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
