package apiutil

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/store"
)

// WriteAvailabilityError maps the engine's error taxonomy onto HTTP
// status codes. Each failure class gets a distinct message so clients can
// tell "bad request" from "availability may be wrong, retry" — the engine
// never substitutes an optimistic grid, and neither does this layer.
func WriteAvailabilityError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var invalid availability.InvalidInputError
	if errors.As(err, &invalid) {
		http.Error(w, invalid.Error(), http.StatusBadRequest)
		return
	}

	var groupErr availability.GroupLookupError
	if errors.As(err, &groupErr) {
		logger.Error().Err(err).Str("court_id", groupErr.CourtID).Msg("Court group lookup failed")
		http.Error(w, "Failed to resolve court group", http.StatusInternalServerError)
		return
	}

	var fetchErr availability.OccupancyFetchError
	if errors.As(err, &fetchErr) {
		logger.Error().Err(err).Str("kind", fetchErr.Kind).Msg("Occupancy fetch failed")
		http.Error(w, "Failed to load availability, please retry", http.StatusInternalServerError)
		return
	}

	var subErr availability.SubscriptionError
	if errors.As(err, &subErr) {
		logger.Error().Err(err).Msg("Change subscription failed")
		http.Error(w, "Availability updates unavailable, refresh manually", http.StatusServiceUnavailable)
		return
	}

	logger.Error().Err(err).Msg("Availability query failed")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// WriteStoreError maps store errors onto HTTP status codes.
func WriteStoreError(w http.ResponseWriter, r *http.Request, err error, action string) {
	logger := log.Ctx(r.Context())

	switch {
	case errors.Is(err, store.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, store.ErrSlotTaken):
		http.Error(w, "Slot already booked or blocked", http.StatusConflict)
	case errors.Is(err, store.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.Error().Err(err).Msg("Failed to " + action)
		http.Error(w, "Failed to "+action, http.StatusInternalServerError)
	}
}
