// Package bookings exposes the booking write paths: create, confirm,
// cancel and fetch.
package bookings

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/api/apiutil"
	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/store"
)

const queryTimeout = 5 * time.Second

var (
	bookingStore *store.Store
	once         sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *store.Store) {
	if s == nil {
		return
	}
	once.Do(func() {
		bookingStore = s
	})
}

type createRequest struct {
	CourtID   int64  `json:"courtId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status,omitempty"`
}

// POST /api/v1/bookings
func HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if bookingStore == nil {
		logger.Error().Msg("Booking store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CourtID <= 0 {
		http.Error(w, "courtId must be greater than 0", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	booking, err := bookingStore.CreateBooking(ctx, store.CreateBookingParams{
		CourtID:   req.CourtID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    availability.BookingStatus(req.Status),
	})
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "create booking")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, booking); err != nil {
		logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("Failed to write booking response")
	}
}

// GET /api/v1/bookings/{id}
func HandleGetBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if bookingStore == nil {
		logger.Error().Msg("Booking store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	booking, err := bookingStore.GetBooking(ctx, id)
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "load booking")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, booking); err != nil {
		logger.Error().Err(err).Int64("booking_id", id).Msg("Failed to write booking response")
	}
}

// POST /api/v1/bookings/{id}/confirm
func HandleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if bookingStore == nil {
		logger.Error().Msg("Booking store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	booking, err := bookingStore.ConfirmBooking(ctx, id)
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "confirm booking")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, booking); err != nil {
		logger.Error().Err(err).Int64("booking_id", id).Msg("Failed to write booking response")
	}
}

// DELETE /api/v1/bookings/{id}
//
// Cancellation frees the booking's window for the whole court group.
func HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if bookingStore == nil {
		logger.Error().Msg("Booking store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	booking, err := bookingStore.CancelBooking(ctx, id)
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "cancel booking")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, booking); err != nil {
		logger.Error().Err(err).Int64("booking_id", id).Msg("Failed to write booking response")
	}
}
