package availability

import (
	"reflect"
	"testing"
)

func candidateSlots() []Slot {
	return []Slot{
		{StartTime: "09:00:00", EndTime: "10:00:00", IsAvailable: true},
		{StartTime: "10:00:00", EndTime: "11:00:00", IsAvailable: true},
		{StartTime: "11:00:00", EndTime: "12:00:00", IsAvailable: true},
	}
}

func TestReduceBookingOccupiesExactWindow(t *testing.T) {
	occ := Occupancy{
		Bookings: []Booking{
			{CourtID: "1", StartTime: "10:00:00", EndTime: "11:00:00", Status: BookingConfirmed},
		},
	}

	reduced := Reduce(candidateSlots(), occ)
	want := []bool{true, false, true}
	for i, slot := range reduced {
		if slot.IsAvailable != want[i] {
			t.Errorf("slot %d availability = %v, want %v", i, slot.IsAvailable, want[i])
		}
	}
}

func TestReduceNormalizesBookingTimes(t *testing.T) {
	// "10:00" must hit the "10:00:00" slot.
	occ := Occupancy{
		Bookings: []Booking{
			{CourtID: "1", StartTime: "10:00", EndTime: "11:00", Status: BookingPending},
		},
	}

	reduced := Reduce(candidateSlots(), occ)
	if reduced[1].IsAvailable {
		t.Error("short-form booking window did not occupy the matching slot")
	}
}

func TestReduceExactMatchOnly(t *testing.T) {
	// A misaligned window blocks nothing: matching is window equality, not
	// interval overlap.
	occ := Occupancy{
		Bookings: []Booking{
			{CourtID: "1", StartTime: "09:30:00", EndTime: "10:30:00", Status: BookingConfirmed},
		},
	}

	reduced := Reduce(candidateSlots(), occ)
	for i, slot := range reduced {
		if !slot.IsAvailable {
			t.Errorf("slot %d occupied by a misaligned window", i)
		}
	}
}

func TestReduceStatusPolicy(t *testing.T) {
	tests := []struct {
		name             string
		status           BookingStatus
		includeCompleted bool
		wantOccupied     bool
	}{
		{name: "pending occupies", status: BookingPending, wantOccupied: true},
		{name: "confirmed occupies", status: BookingConfirmed, wantOccupied: true},
		{name: "cancelled never occupies", status: BookingCancelled, wantOccupied: false},
		{name: "completed excluded by default", status: BookingCompleted, wantOccupied: false},
		{name: "completed included on request", status: BookingCompleted, includeCompleted: true, wantOccupied: true},
		{name: "unknown status ignored", status: BookingStatus("no_show"), wantOccupied: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ := Occupancy{
				Bookings: []Booking{
					{CourtID: "1", StartTime: "09:00:00", EndTime: "10:00:00", Status: tt.status},
				},
				IncludeCompleted: tt.includeCompleted,
			}
			reduced := Reduce(candidateSlots(), occ)
			if got := !reduced[0].IsAvailable; got != tt.wantOccupied {
				t.Errorf("occupied = %v, want %v", got, tt.wantOccupied)
			}
		})
	}
}

func TestReduceBlockAlwaysOccupies(t *testing.T) {
	occ := Occupancy{
		Blocks: []BlockedSlot{
			{CourtID: "1", StartTime: "11:00", EndTime: "12:00", Reason: "maintenance"},
		},
	}

	reduced := Reduce(candidateSlots(), occ)
	if reduced[2].IsAvailable {
		t.Error("blocked window still available")
	}
}

func TestReduceIsStrictlyAdditive(t *testing.T) {
	candidates := []Slot{
		{StartTime: "09:00:00", EndTime: "10:00:00", IsAvailable: false},
	}
	// No occupancy record can re-open a default-unavailable slot.
	reduced := Reduce(candidates, Occupancy{})
	if reduced[0].IsAvailable {
		t.Error("reduce re-opened a default-unavailable slot")
	}
}

func TestReduceMalformedRowBlocksNothing(t *testing.T) {
	occ := Occupancy{
		Bookings: []Booking{
			{CourtID: "1", StartTime: "bogus", EndTime: "also bogus", Status: BookingConfirmed},
		},
	}

	reduced := Reduce(candidateSlots(), occ)
	for i, slot := range reduced {
		if !slot.IsAvailable {
			t.Errorf("slot %d occupied by a malformed row", i)
		}
	}
}

func TestReduceIsPure(t *testing.T) {
	candidates := candidateSlots()
	occ := Occupancy{
		Bookings: []Booking{
			{CourtID: "1", StartTime: "09:00:00", EndTime: "10:00:00", Status: BookingConfirmed},
		},
	}

	first := Reduce(candidates, occ)
	second := Reduce(candidates, occ)
	if !reflect.DeepEqual(first, second) {
		t.Error("reduce is not deterministic for identical inputs")
	}
	if !candidates[0].IsAvailable {
		t.Error("reduce mutated its input slice")
	}
}

func TestReducePreservesOrderAndCount(t *testing.T) {
	occ := Occupancy{
		Blocks: []BlockedSlot{
			{CourtID: "1", StartTime: "09:00:00", EndTime: "10:00:00"},
			{CourtID: "1", StartTime: "11:00:00", EndTime: "12:00:00"},
		},
	}

	candidates := candidateSlots()
	reduced := Reduce(candidates, occ)
	if len(reduced) != len(candidates) {
		t.Fatalf("got %d slots, want %d", len(reduced), len(candidates))
	}
	for i := range reduced {
		if reduced[i].StartTime != candidates[i].StartTime {
			t.Errorf("slot %d order changed", i)
		}
	}
}
