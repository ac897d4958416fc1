// Package events is the in-process change feed behind availability
// recomputation. Store writes publish coarse change records; watchers
// subscribe by court or venue scope and get poked when anything relevant
// changes. No diff travels with an event — subscribers refetch.
package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Table names the upstream table a change touched.
type Table string

const (
	TableBookings      Table = "bookings"
	TableBlockedSlots  Table = "blocked_slots"
	TableSlotTemplates Table = "slot_templates"
	TableCourts        Table = "courts"
	TableVenues        Table = "venues"
)

// Change describes one mutation of upstream data.
type Change struct {
	Table    Table
	VenueID  string
	CourtIDs []string
	Date     string
}

// Disposer releases a subscription. Safe to call more than once.
type Disposer func()

type subscription struct {
	courtIDs map[string]struct{}
	venueID  string
	fn       func(Change)
}

func (s *subscription) matches(change Change) bool {
	if s.venueID != "" && s.venueID == change.VenueID {
		return true
	}
	for _, id := range change.CourtIDs {
		if _, ok := s.courtIDs[id]; ok {
			return true
		}
	}
	return false
}

// Bus fans change records out to matching subscribers. Delivery is
// synchronous on the publisher's goroutine; handlers must stay cheap and
// schedule their own work.
type Bus struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[int64]*subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int64]*subscription)}
}

// Publish delivers the change to every subscriber whose scope it touches.
func (b *Bus) Publish(change Change) {
	b.mu.RLock()
	var matched []func(Change)
	for _, sub := range b.subs {
		if sub.matches(change) {
			matched = append(matched, sub.fn)
		}
	}
	b.mu.RUnlock()

	log.Debug().
		Str("table", string(change.Table)).
		Str("venue_id", change.VenueID).
		Strs("court_ids", change.CourtIDs).
		Int("subscribers", len(matched)).
		Msg("Change published")

	for _, fn := range matched {
		fn(change)
	}
}

// SubscribeCourts registers fn for changes touching any of the given
// courts. The returned disposer is idempotent.
func (b *Bus) SubscribeCourts(courtIDs []string, fn func(Change)) Disposer {
	set := make(map[string]struct{}, len(courtIDs))
	for _, id := range courtIDs {
		set[id] = struct{}{}
	}
	return b.add(&subscription{courtIDs: set, fn: fn})
}

// SubscribeVenue registers fn for changes touching the venue.
func (b *Bus) SubscribeVenue(venueID string, fn func(Change)) Disposer {
	return b.add(&subscription{venueID: venueID, fn: fn})
}

func (b *Bus) add(sub *subscription) Disposer {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
