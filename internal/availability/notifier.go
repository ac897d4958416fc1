package availability

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// WatchState is the lifecycle state of a Watcher.
type WatchState int32

const (
	StateDisconnected WatchState = iota
	StateSubscribing
	StateSubscribed
	StateUnsubscribing
)

func (s WatchState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateUnsubscribing:
		return "unsubscribing"
	default:
		return "unknown"
	}
}

// UpdateFunc receives freshly recomputed slot grids.
type UpdateFunc func(slots []Slot)

// WatchOptions configures one watch.
type WatchOptions struct {
	QueryOptions

	// OnError receives recompute failures after the subscription is live.
	// The last delivered snapshot stays valid; the watch itself survives.
	OnError func(error)
}

// Watcher is a live availability subscription for one (court, date) pair.
// Independent watchers share no state. Stop is idempotent and callable
// from any state; cancelling the watch context also stops the watcher, so
// a subscription can never outlive its scope.
type Watcher struct {
	engine   *Engine
	ctx      context.Context
	courtID  string
	date     time.Time
	key      SnapshotKey
	opts     WatchOptions
	onUpdate UpdateFunc

	state atomic.Int32
	gen   atomic.Int64

	mu       sync.Mutex
	timer    *time.Timer
	disposer Disposer

	stopOnce sync.Once
	done     chan struct{}
}

// WatchAvailability subscribes to upstream changes affecting the court's
// group and invokes onUpdate with a recomputed grid: once immediately, and
// again after every relevant change. Change bursts within the engine's
// debounce window coalesce into a single recompute; the trailing recompute
// always runs, so the consumer never ends up stale.
//
// The watcher does not diff what changed. Every signal re-runs the resolve
// and reduce pipeline from scratch; the recompute is bounded by the slots
// in one day, so correctness wins over incremental updates.
func (e *Engine) WatchAvailability(ctx context.Context, courtID string, date time.Time, opts WatchOptions, onUpdate UpdateFunc) (*Watcher, error) {
	courtID = strings.TrimSpace(courtID)
	if courtID == "" {
		return nil, InvalidInputError{Field: "courtId", Reason: "must not be empty"}
	}
	if date.IsZero() {
		return nil, InvalidInputError{Field: "date", Reason: "must be a calendar date"}
	}
	if onUpdate == nil {
		return nil, InvalidInputError{Field: "onUpdate", Reason: "callback is required"}
	}
	if e.providers.Changes == nil {
		return nil, SubscriptionError{Err: InvalidInputError{Field: "providers", Reason: "change source is required"}}
	}

	w := &Watcher{
		engine:  e,
		ctx:     ctx,
		courtID: courtID,
		date:    date,
		key: SnapshotKey{
			CourtID:          courtID,
			Date:             date.Format(DateLayout),
			IncludeCompleted: opts.IncludeCompleted,
		},
		opts:     opts,
		onUpdate: onUpdate,
		done:     make(chan struct{}),
	}
	w.state.Store(int32(StateSubscribing))

	// The subscription filter covers the whole group: a booking on any
	// grouped court changes this court's availability.
	group, err := e.providers.Groups.ResolveCourtGroup(ctx, courtID)
	if err != nil {
		w.state.Store(int32(StateDisconnected))
		return nil, SubscriptionError{Err: GroupLookupError{CourtID: courtID, Err: err}}
	}
	group = ensureMember(group, courtID)

	disposer, err := e.providers.Changes.SubscribeToChanges(ctx, group, w.scheduleRecompute)
	if err != nil {
		w.state.Store(int32(StateDisconnected))
		return nil, SubscriptionError{Err: err}
	}
	w.disposer = disposer
	w.state.Store(int32(StateSubscribed))

	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.done:
		}
	}()

	// Deliver the initial snapshot off the caller's goroutine.
	go w.recompute()

	return w, nil
}

// State reports the watcher's current lifecycle state.
func (w *Watcher) State() WatchState {
	return WatchState(w.state.Load())
}

// Stop tears the subscription down. It is idempotent, callable from any
// state, and always leaves the watcher disconnected. In-flight recomputes
// are discarded, never delivered after Stop returns the watcher to
// disconnected.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.state.Store(int32(StateUnsubscribing))
		close(w.done)

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		disposer := w.disposer
		w.disposer = nil
		w.mu.Unlock()

		if disposer != nil {
			disposer()
		}

		// Invalidate any recompute still in flight.
		w.gen.Add(1)
		w.state.Store(int32(StateDisconnected))
	})
}

// scheduleRecompute is the change-event entry point. It must stay cheap:
// the transport may deliver events on any goroutine.
func (w *Watcher) scheduleRecompute() {
	if w.State() != StateSubscribed {
		return
	}
	debounce := w.engine.debounce
	if debounce <= 0 {
		go w.recompute()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		// A trailing recompute is already pending; it will refetch from
		// scratch and observe this change too.
		return
	}
	w.timer = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()
		w.recompute()
	})
}

func (w *Watcher) recompute() {
	gen := w.gen.Add(1)

	slots, err := w.engine.refresh(w.ctx, w.key, w.courtID, w.date, w.opts.QueryOptions)

	// A newer recompute started, or the watcher stopped: this result no
	// longer matches the consumer's current selection. Discard it.
	if w.gen.Load() != gen || w.State() != StateSubscribed {
		return
	}

	if err != nil {
		if w.opts.OnError != nil {
			w.opts.OnError(err)
			return
		}
		log.Ctx(w.ctx).Error().Err(err).
			Str("court_id", w.courtID).
			Str("date", w.key.Date).
			Msg("Availability recompute failed")
		return
	}
	w.onUpdate(slots)
}
