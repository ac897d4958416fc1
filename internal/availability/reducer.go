package availability

// Occupancy is the set of records that render windows unavailable for a
// date across a court group. Bookings and blocks for every court in the
// group belong here: the courts share a physical resource, so occupancy on
// one implies occupancy on all.
type Occupancy struct {
	Bookings []Booking
	Blocks   []BlockedSlot

	// IncludeCompleted controls whether completed bookings count as
	// occupying. Admin views include them; live-availability views leave
	// them out. Each consumer states this policy explicitly.
	IncludeCompleted bool
}

// occupies reports whether a booking in the given status holds its window.
// Cancelled bookings never occupy.
func (o Occupancy) occupies(status BookingStatus) bool {
	switch status {
	case BookingPending, BookingConfirmed:
		return true
	case BookingCompleted:
		return o.IncludeCompleted
	default:
		return false
	}
}

// Reduce overlays occupancy onto candidate slots and returns a new slice
// with the same order and count. A slot becomes unavailable when its
// normalized (start, end) window exactly matches a booking or block on any
// court in the group. Occupancy is strictly additive: nothing here can
// re-open a slot the template already marks unavailable.
//
// Matching is exact window equality, not interval overlap. The domain's
// slots are fixed-granularity and bookings always target slot boundaries,
// so a row that does not align to a template boundary blocks nothing.
//
// Reduce is a pure function: calling it twice with the same inputs yields
// the same output.
func Reduce(candidates []Slot, occ Occupancy) []Slot {
	occupied := make(map[string]struct{}, len(occ.Bookings)+len(occ.Blocks))
	for _, booking := range occ.Bookings {
		if !occ.occupies(booking.Status) {
			continue
		}
		if key := windowKey(booking.StartTime, booking.EndTime); key != "" {
			occupied[key] = struct{}{}
		}
	}
	for _, block := range occ.Blocks {
		if key := windowKey(block.StartTime, block.EndTime); key != "" {
			occupied[key] = struct{}{}
		}
	}

	reduced := make([]Slot, len(candidates))
	for i, slot := range candidates {
		reduced[i] = slot
		if !slot.IsAvailable {
			continue
		}
		if _, taken := occupied[windowKey(slot.StartTime, slot.EndTime)]; taken {
			reduced[i].IsAvailable = false
		}
	}
	return reduced
}
