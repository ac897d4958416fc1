package availability

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DateLayout is the calendar-date form used throughout the engine.
const DateLayout = "2006-01-02"

// Disposer releases a resource acquired from a provider. Calling it more
// than once is safe.
type Disposer func()

// TemplateSource lists the recurring weekly templates for a court.
type TemplateSource interface {
	ListTemplates(ctx context.Context, courtID string) ([]SlotTemplate, error)
}

// GroupResolver expands a court into its court group: the set of courts
// sharing one physical resource. An ungrouped court resolves to itself.
type GroupResolver interface {
	ResolveCourtGroup(ctx context.Context, courtID string) ([]string, error)
}

// OccupancySource lists the bookings and blocks for a set of courts on a
// date. The two lists are independent and may be fetched concurrently.
type OccupancySource interface {
	ListBookings(ctx context.Context, courtIDs []string, date time.Time, statuses []BookingStatus) ([]Booking, error)
	ListBlockedSlots(ctx context.Context, courtIDs []string, date time.Time) ([]BlockedSlot, error)
}

// ChangeSource delivers a coarse invalidation signal whenever a booking,
// block, court or venue row that could affect the given courts changes.
// onChange carries no diff; the subscriber re-runs the pipeline from
// scratch.
type ChangeSource interface {
	SubscribeToChanges(ctx context.Context, courtIDs []string, onChange func()) (Disposer, error)
}

// Providers bundles the host-supplied data sources the engine reads from.
type Providers struct {
	Templates TemplateSource
	Groups    GroupResolver
	Occupancy OccupancySource
	Changes   ChangeSource
}

// Engine computes and watches slot availability. It has read-only access
// to the booking and block stores and never retries internally; retry
// policy belongs to the host.
type Engine struct {
	providers Providers
	cache     SnapshotCache
	debounce  time.Duration
	clock     Clock

	fetchSeq atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSnapshotCache installs a cache for computed grids. Without one every
// query recomputes from the providers.
func WithSnapshotCache(cache SnapshotCache) Option {
	return func(e *Engine) { e.cache = cache }
}

// WithDebounce sets the window in which change-event bursts coalesce into
// a single recompute. Zero disables coalescing; every burst still ends in
// a trailing recompute either way.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithClock overrides the engine clock, for tests.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// DefaultDebounce is the coalescing window applied when none is configured.
const DefaultDebounce = 250 * time.Millisecond

// New builds an Engine over the given providers.
func New(providers Providers, opts ...Option) (*Engine, error) {
	if providers.Templates == nil {
		return nil, InvalidInputError{Field: "providers", Reason: "template source is required"}
	}
	if providers.Groups == nil {
		return nil, InvalidInputError{Field: "providers", Reason: "group resolver is required"}
	}
	if providers.Occupancy == nil {
		return nil, InvalidInputError{Field: "providers", Reason: "occupancy source is required"}
	}

	e := &Engine{
		providers: providers,
		debounce:  DefaultDebounce,
		clock:     realClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// QueryOptions selects the occupancy policy for one availability query.
type QueryOptions struct {
	// IncludeCompleted counts completed bookings as occupying. Admin
	// consumers set this; live-availability consumers leave it off.
	IncludeCompleted bool

	// MinVersion is an optional cache-busting token: a cached snapshot
	// older than this version is recomputed. Zero accepts any snapshot.
	MinVersion int64
}

// GetAvailability returns the slot grid for a court on a date: templates
// expanded, then reduced against bookings and blocks across the whole
// court group. Bookings and blocks are fetched concurrently.
//
// Failures are never papered over. A group-lookup failure surfaces as
// GroupLookupError rather than degrading to single-court occupancy, and a
// failed occupancy fetch surfaces as OccupancyFetchError rather than an
// optimistic grid.
func (e *Engine) GetAvailability(ctx context.Context, courtID string, date time.Time, opts QueryOptions) ([]Slot, error) {
	courtID = strings.TrimSpace(courtID)
	if courtID == "" {
		return nil, InvalidInputError{Field: "courtId", Reason: "must not be empty"}
	}
	if date.IsZero() {
		return nil, InvalidInputError{Field: "date", Reason: "must be a calendar date"}
	}

	key := SnapshotKey{
		CourtID:          courtID,
		Date:             date.Format(DateLayout),
		IncludeCompleted: opts.IncludeCompleted,
	}
	if e.cache != nil {
		snap, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("court_id", courtID).Msg("Snapshot cache read failed")
		} else if ok && snap.Version >= opts.MinVersion {
			return snap.Slots, nil
		}
	}

	return e.refresh(ctx, key, courtID, date, opts)
}

// refresh recomputes the grid from the providers, bypassing any cached
// snapshot, and stores the result. The version is claimed before the fetch
// starts so a slower, older fetch can never overwrite a newer one.
func (e *Engine) refresh(ctx context.Context, key SnapshotKey, courtID string, date time.Time, opts QueryOptions) ([]Slot, error) {
	version := e.nextVersion(opts.MinVersion)

	slots, err := e.compute(ctx, courtID, date, opts.IncludeCompleted)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Put(ctx, key, Snapshot{Slots: slots, Version: version}); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("court_id", courtID).Msg("Snapshot cache write failed")
		}
	}
	return slots, nil
}

func (e *Engine) compute(ctx context.Context, courtID string, date time.Time, includeCompleted bool) ([]Slot, error) {
	templates, err := e.providers.Templates.ListTemplates(ctx, courtID)
	if err != nil {
		return nil, OccupancyFetchError{Kind: "templates", Err: err}
	}

	candidates := ResolveSlots(templates, date)
	if len(candidates) == 0 {
		// No templates for this weekday: the court is closed, not erroring.
		return []Slot{}, nil
	}

	group, err := e.providers.Groups.ResolveCourtGroup(ctx, courtID)
	if err != nil {
		return nil, GroupLookupError{CourtID: courtID, Err: err}
	}
	group = ensureMember(group, courtID)

	statuses := []BookingStatus{BookingPending, BookingConfirmed}
	if includeCompleted {
		statuses = append(statuses, BookingCompleted)
	}

	// Bookings and blocks have no ordering dependency; fetch them together.
	var bookings []Booking
	var blocks []BlockedSlot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		listed, err := e.providers.Occupancy.ListBookings(gctx, group, date, statuses)
		if err != nil {
			return OccupancyFetchError{Kind: "bookings", Err: err}
		}
		bookings = listed
		return nil
	})
	g.Go(func() error {
		listed, err := e.providers.Occupancy.ListBlockedSlots(gctx, group, date)
		if err != nil {
			return OccupancyFetchError{Kind: "blocks", Err: err}
		}
		blocks = listed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Reduce(candidates, Occupancy{
		Bookings:         bookings,
		Blocks:           blocks,
		IncludeCompleted: includeCompleted,
	}), nil
}

// nextVersion advances the fetch counter, keeping it at or above the
// consumer-supplied floor so cache-busting tokens stay satisfiable.
func (e *Engine) nextVersion(floor int64) int64 {
	for {
		current := e.fetchSeq.Load()
		next := current + 1
		if next < floor {
			next = floor
		}
		if e.fetchSeq.CompareAndSwap(current, next) {
			return next
		}
	}
}

func ensureMember(group []string, courtID string) []string {
	for _, id := range group {
		if id == courtID {
			return group
		}
	}
	return append(group, courtID)
}
