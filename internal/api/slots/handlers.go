// Package slots serves computed availability grids: one-shot queries and
// a server-sent-events stream that pushes a fresh grid whenever bookings,
// blocks or templates change underneath it.
package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/api/apiutil"
	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/store"
)

const (
	availabilityQueryTimeout = 5 * time.Second
	courtIDParam             = "id"
	includeCompletedQueryKey = "include_completed"
)

var (
	engine *availability.Engine
	courts *store.Store
	once   sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *availability.Engine, s *store.Store) {
	if e == nil || s == nil {
		return
	}
	once.Do(func() {
		engine = e
		courts = s
	})
}

// GET /api/v1/courts/{id}/availability?date=YYYY-MM-DD
//
// Public consumers get the live-availability policy: completed bookings do
// not occupy. Admin consumers pass include_completed=1.
func HandleGetAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil || courts == nil {
		logger.Error().Msg("Availability engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	courtID, err := apiutil.IDFromPath(r, courtIDParam)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := apiutil.DateFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	if _, err := courts.GetCourt(ctx, courtID); err != nil {
		apiutil.WriteStoreError(w, r, err, "load court")
		return
	}

	slots, err := engine.GetAvailability(ctx, strconv.FormatInt(courtID, 10), date, availability.QueryOptions{
		IncludeCompleted: apiutil.BoolFromQuery(r, includeCompletedQueryKey),
	})
	if err != nil {
		apiutil.WriteAvailabilityError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"courtId": courtID,
		"date":    date.Format(availability.DateLayout),
		"slots":   slots,
	}); err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to write availability response")
	}
}

// GET /api/v1/courts/{id}/availability/watch?date=YYYY-MM-DD
//
// Streams availability as server-sent events. The first event carries the
// current grid; later events fire after relevant upstream changes, with
// bursts coalesced by the engine's debounce window. Recompute failures
// surface as "stale" events so the client can show a refresh affordance
// while keeping its last grid.
func HandleWatchAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil || courts == nil {
		logger.Error().Msg("Availability engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	courtID, err := apiutil.IDFromPath(r, courtIDParam)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := apiutil.DateFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lookupCtx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	if _, err := courts.GetCourt(lookupCtx, courtID); err != nil {
		cancel()
		apiutil.WriteStoreError(w, r, err, "load court")
		return
	}
	cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error().Msg("Response writer does not support streaming")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates := make(chan []availability.Slot, 1)
	staleness := make(chan error, 1)

	opts := availability.WatchOptions{
		QueryOptions: availability.QueryOptions{
			IncludeCompleted: apiutil.BoolFromQuery(r, includeCompletedQueryKey),
		},
		OnError: func(err error) {
			select {
			case staleness <- err:
			default:
			}
		},
	}

	watcher, err := engine.WatchAvailability(r.Context(), strconv.FormatInt(courtID, 10), date, opts, func(slots []availability.Slot) {
		// Latest grid wins; an unread older one is worthless.
		for {
			select {
			case updates <- slots:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	if err != nil {
		apiutil.WriteAvailabilityError(w, r, err)
		return
	}
	defer watcher.Stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.Info().
		Int64("court_id", courtID).
		Str("date", date.Format(availability.DateLayout)).
		Msg("Availability watch opened")

	for {
		select {
		case <-r.Context().Done():
			logger.Info().Int64("court_id", courtID).Msg("Availability watch closed")
			return
		case slots := <-updates:
			data, err := json.Marshal(map[string]any{
				"courtId": courtID,
				"date":    date.Format(availability.DateLayout),
				"slots":   slots,
			})
			if err != nil {
				logger.Error().Err(err).Msg("Failed to encode availability event")
				continue
			}
			fmt.Fprintf(w, "event: availability\ndata: %s\n\n", data)
			flusher.Flush()
		case err := <-staleness:
			fmt.Fprintf(w, "event: stale\ndata: {\"error\": %q}\n\n", err.Error())
			flusher.Flush()
		}
	}
}
