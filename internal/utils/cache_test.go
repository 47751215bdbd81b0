package utils

import (
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[int](2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should be gone")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed, len=%d", c.Len())
	}
}

func TestTTLCacheEviction(t *testing.T) {
	c := NewTTLCache[string](2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear should empty the cache")
	}
}
