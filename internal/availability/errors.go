package availability

import "fmt"

// InvalidInputError reports a malformed courtID or date. The engine fails
// fast on these and never partially computes.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GroupLookupError reports a failed court-group resolution. It is always
// propagated: silently degrading to single-court occupancy could show a
// double-booked slot as available.
type GroupLookupError struct {
	CourtID string
	Err     error
}

func (e GroupLookupError) Error() string {
	return fmt.Sprintf("resolve court group for %s: %v", e.CourtID, e.Err)
}

func (e GroupLookupError) Unwrap() error { return e.Err }

// OccupancyFetchError reports a failed fetch of templates, bookings or
// blocks. Kind names the source that failed. Consumers should show a retry
// affordance, never a guessed "fully available" grid.
type OccupancyFetchError struct {
	Kind string
	Err  error
}

func (e OccupancyFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e OccupancyFetchError) Unwrap() error { return e.Err }

// SubscriptionError reports that a change subscription could not be
// established or was lost. The last known snapshot stays valid; consumers
// should surface a "may be stale" indicator and fall back to manual refresh.
type SubscriptionError struct {
	Err error
}

func (e SubscriptionError) Error() string {
	return fmt.Sprintf("change subscription: %v", e.Err)
}

func (e SubscriptionError) Unwrap() error { return e.Err }
