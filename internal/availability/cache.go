package availability

import (
	"context"
	"sync"
	"time"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SnapshotKey identifies one cached availability grid. IncludeCompleted is
// part of the key because admin and public views see different grids.
type SnapshotKey struct {
	CourtID          string
	Date             string
	IncludeCompleted bool
}

// Snapshot is a cached availability result tagged with the monotonic
// version of the fetch that produced it.
type Snapshot struct {
	Slots   []Slot
	Version int64
}

// SnapshotCache stores availability snapshots keyed by (court, date).
// Writes are last-write-wins guarded by Snapshot.Version: a Put carrying an
// older version than the stored snapshot must be ignored, so an in-flight
// stale fetch can never overwrite a newer result.
type SnapshotCache interface {
	Get(ctx context.Context, key SnapshotKey) (Snapshot, bool, error)
	Put(ctx context.Context, key SnapshotKey, snap Snapshot) error
	Invalidate(ctx context.Context, key SnapshotKey) error
}

// memoryCache is the in-process SnapshotCache.
type memoryCache struct {
	ttl   time.Duration
	clock Clock

	mu      sync.RWMutex
	entries map[SnapshotKey]memoryEntry
}

type memoryEntry struct {
	snap     Snapshot
	storedAt time.Time
}

// NewMemorySnapshotCache returns an in-process cache whose entries expire
// after ttl. A nil clock uses the system time.
func NewMemorySnapshotCache(ttl time.Duration, clock Clock) SnapshotCache {
	if clock == nil {
		clock = realClock{}
	}
	return &memoryCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[SnapshotKey]memoryEntry),
	}
}

func (c *memoryCache) Get(_ context.Context, key SnapshotKey) (Snapshot, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return Snapshot{}, false, nil
	}
	if c.ttl > 0 && c.clock.Now().Sub(entry.storedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return Snapshot{}, false, nil
	}

	// Hand out a copy so callers cannot mutate the cached slice.
	snap := Snapshot{
		Slots:   append([]Slot(nil), entry.snap.Slots...),
		Version: entry.snap.Version,
	}
	return snap, true, nil
}

func (c *memoryCache) Put(_ context.Context, key SnapshotKey, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok && existing.snap.Version > snap.Version {
		// Stale write from a slower in-flight fetch; keep the newer snapshot.
		return nil
	}
	c.entries[key] = memoryEntry{
		snap: Snapshot{
			Slots:   append([]Slot(nil), snap.Slots...),
			Version: snap.Version,
		},
		storedAt: c.clock.Now(),
	}
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, key SnapshotKey) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
