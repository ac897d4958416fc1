package availability

import (
	"context"
	"testing"
	"time"
)

type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

func (c *mockClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testKey() SnapshotKey {
	return SnapshotKey{CourtID: "1", Date: "2025-06-02"}
}

func TestMemoryCachePutGet(t *testing.T) {
	clock := &mockClock{now: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)}
	cache := NewMemorySnapshotCache(time.Minute, clock)
	ctx := context.Background()

	snap := Snapshot{
		Slots:   []Slot{{StartTime: "09:00:00", EndTime: "10:00:00", IsAvailable: true}},
		Version: 1,
	}
	if err := cache.Put(ctx, testKey(), snap); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := cache.Get(ctx, testKey())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Version != 1 || len(got.Slots) != 1 {
		t.Errorf("got snapshot %+v", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	clock := &mockClock{now: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)}
	cache := NewMemorySnapshotCache(time.Minute, clock)
	ctx := context.Background()

	if err := cache.Put(ctx, testKey(), Snapshot{Version: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}

	clock.Advance(61 * time.Second)
	if _, ok, _ := cache.Get(ctx, testKey()); ok {
		t.Error("expected entry to expire")
	}
}

func TestMemoryCacheIgnoresStaleWrite(t *testing.T) {
	cache := NewMemorySnapshotCache(time.Minute, nil)
	ctx := context.Background()

	if err := cache.Put(ctx, testKey(), Snapshot{Version: 5}); err != nil {
		t.Fatalf("put v5: %v", err)
	}
	// A slower fetch that started earlier finishes later. Its write loses.
	if err := cache.Put(ctx, testKey(), Snapshot{Version: 3}); err != nil {
		t.Fatalf("put v3: %v", err)
	}

	got, ok, _ := cache.Get(ctx, testKey())
	if !ok || got.Version != 5 {
		t.Errorf("got version %d (hit=%v), want 5", got.Version, ok)
	}
}

func TestMemoryCacheKeySeparatesPolicies(t *testing.T) {
	cache := NewMemorySnapshotCache(time.Minute, nil)
	ctx := context.Background()

	publicKey := testKey()
	adminKey := testKey()
	adminKey.IncludeCompleted = true

	if err := cache.Put(ctx, publicKey, Snapshot{Version: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, adminKey); ok {
		t.Error("admin view hit the public view's snapshot")
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	cache := NewMemorySnapshotCache(time.Minute, nil)
	ctx := context.Background()

	if err := cache.Put(ctx, testKey(), Snapshot{Version: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := cache.Invalidate(ctx, testKey()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, testKey()); ok {
		t.Error("expected miss after invalidate")
	}
}

func TestMemoryCacheCopiesSlots(t *testing.T) {
	cache := NewMemorySnapshotCache(time.Minute, nil)
	ctx := context.Background()

	slots := []Slot{{StartTime: "09:00:00", EndTime: "10:00:00", IsAvailable: true}}
	if err := cache.Put(ctx, testKey(), Snapshot{Slots: slots, Version: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	slots[0].IsAvailable = false

	got, _, _ := cache.Get(ctx, testKey())
	if !got.Slots[0].IsAvailable {
		t.Error("cache shared the caller's slice")
	}
	got.Slots[0].IsAvailable = false

	again, _, _ := cache.Get(ctx, testKey())
	if !again.Slots[0].IsAvailable {
		t.Error("cache handed out its internal slice")
	}
}
