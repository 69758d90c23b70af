package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/advogai/juris-rag/internal/core/domain"
)

func TestGetMissesAfterTTL(t *testing.T) {
	c := NewResultCache(time.Minute, 10)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.Set("k", domain.RetrievalResult{RenderedContext: "ctx"})

	if _, ok := c.Get("k"); !ok {
		t.Fatalf("fresh entry should hit")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be deleted on sight, len = %d", c.Len())
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := NewResultCache(time.Minute, 10)
	c.Set("k", domain.RetrievalResult{RenderedContext: "original"})

	got, ok := c.Get("k")
	if !ok {
		t.Fatalf("expected hit")
	}
	got.RenderedContext = "mutated"

	again, _ := c.Get("k")
	if again.RenderedContext != "original" {
		t.Fatalf("cached value was mutated through the returned pointer")
	}
}

func TestSetEvictsOldestWhenFull(t *testing.T) {
	c := NewResultCache(time.Hour, 20)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	for i := 0; i < 21; i++ {
		current = current.Add(time.Second)
		c.Set(fmt.Sprintf("k%02d", i), domain.RetrievalResult{})
	}

	// Crossing max size drops the oldest ~10% (2 of 21).
	if c.Len() != 19 {
		t.Fatalf("len after eviction = %d, want 19", c.Len())
	}
	if _, ok := c.Get("k00"); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	if _, ok := c.Get("k01"); ok {
		t.Fatalf("second-oldest entry should have been evicted")
	}
	if _, ok := c.Get("k20"); !ok {
		t.Fatalf("newest entry should survive eviction")
	}
}

func TestInvalidateClearsEverything(t *testing.T) {
	c := NewResultCache(time.Hour, 10)
	c.Set("a", domain.RetrievalResult{})
	c.Set("b", domain.RetrievalResult{})

	c.InvalidateTenant("tenant-x")
	if c.Len() != 0 {
		t.Fatalf("tenant invalidation should clear the cache, len = %d", c.Len())
	}

	c.Set("a", domain.RetrievalResult{})
	c.InvalidateCase("tenant-x", "case-1")
	if c.Len() != 0 {
		t.Fatalf("case invalidation should clear the cache, len = %d", c.Len())
	}
}
