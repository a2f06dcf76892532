package osrm

import (
	"fmt"
	"testing"

	"github.com/routesketch/routesketch/internal/core/domain"
)

func TestSnapCachePutGet(t *testing.T) {
	c := newSnapCache(4)

	pt := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	c.put("k1", pt)

	got, ok := c.get("k1")
	if !ok || got != pt {
		t.Fatalf("expected %v, got %v (ok=%v)", pt, got, ok)
	}
	if _, ok := c.get("missing"); ok {
		t.Error("unexpected hit for missing key")
	}
}

func TestSnapCacheEvictsOldestFirst(t *testing.T) {
	c := newSnapCache(3)

	for i := 0; i < 5; i++ {
		c.put(fmt.Sprintf("k%d", i), domain.GeoPoint{Lat: float64(i)})
	}

	if c.len() != 3 {
		t.Fatalf("expected capacity 3, got %d entries", c.len())
	}
	if _, ok := c.get("k0"); ok {
		t.Error("k0 should have been evicted")
	}
	if _, ok := c.get("k1"); ok {
		t.Error("k1 should have been evicted")
	}
	if _, ok := c.get("k4"); !ok {
		t.Error("k4 should still be cached")
	}
}

func TestSnapCacheOverwriteDoesNotGrow(t *testing.T) {
	c := newSnapCache(2)

	c.put("k", domain.GeoPoint{Lat: 1})
	c.put("k", domain.GeoPoint{Lat: 2})

	if c.len() != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", c.len())
	}
	got, _ := c.get("k")
	if got.Lat != 2 {
		t.Errorf("expected overwritten value, got %v", got)
	}
}
