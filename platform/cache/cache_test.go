package cache

import (
	"testing"
	"time"
)

func TestTTL_GetSetExpiry(t *testing.T) {
	c := NewTTL[int](time.Minute)
	current := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return current }

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss for absent key")
	}

	c.Set("score:abc", 73)
	got, ok := c.Get("score:abc")
	if !ok || got != 73 {
		t.Fatalf("expected hit with 73, got %d ok=%v", got, ok)
	}

	current = current.Add(61 * time.Second)
	if _, ok := c.Get("score:abc"); ok {
		t.Fatalf("expected expiry after ttl elapsed")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped on read, len=%d", c.Len())
	}
}

func TestTTL_Invalidate(t *testing.T) {
	c := NewTTL[string](time.Hour)
	c.Set("k", "v")
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected invalidated entry to be gone")
	}
}

func TestTTL_SetRefreshesExpiry(t *testing.T) {
	c := NewTTL[int](time.Minute)
	current := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return current }

	c.Set("k", 1)
	current = current.Add(45 * time.Second)
	c.Set("k", 2)
	current = current.Add(45 * time.Second)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Fatalf("expected refreshed entry with 2, got %d ok=%v", got, ok)
	}
}
