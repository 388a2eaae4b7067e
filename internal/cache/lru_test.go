package cache

import (
	"testing"
	"time"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string, string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("fresh entry missing")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", removed)
	}
	if c.Len() != 0 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestLRUDeleteAndOverwrite(t *testing.T) {
	c := NewLRU[int, string](3, 0)
	c.Set(1, "x")
	c.Set(1, "y")
	if v, _ := c.Get(1); v != "y" || c.Len() != 1 {
		t.Fatalf("overwrite failed: %q len=%d", v, c.Len())
	}
	c.Delete(1)
	c.Delete(42)
	if _, ok := c.Get(1); ok {
		t.Fatal("deleted key still present")
	}
}

func TestJanitorSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string, int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(time.Hour)

	var reported int
	j := NewJanitor(func(n int) { reported = n })
	j.Register(c)
	if got := j.Sweep(); got != 2 || reported != 2 {
		t.Fatalf("sweep = %d, reported = %d", got, reported)
	}

	j.Start(time.Hour)
	j.Stop()
	j.Stop()
}
