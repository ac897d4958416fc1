// Package courts exposes venue, court and weekly-template administration.
package courts

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/api/apiutil"
	"github.com/courtbook/courtbook/internal/store"
)

const queryTimeout = 5 * time.Second

var (
	courtStore *store.Store
	once       sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *store.Store) {
	if s == nil {
		return
	}
	once.Do(func() {
		courtStore = s
	})
}

type createVenueRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Timezone string `json:"timezone,omitempty"`
}

// POST /api/v1/venues
func HandleCreateVenue(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if courtStore == nil {
		logger.Error().Msg("Court store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req createVenueRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Slug == "" {
		http.Error(w, "name and slug are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	venue, err := courtStore.CreateVenue(ctx, req.Name, req.Slug, req.Timezone)
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "create venue")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, venue); err != nil {
		logger.Error().Err(err).Int64("venue_id", venue.ID).Msg("Failed to write venue response")
	}
}

type createCourtRequest struct {
	VenueID  int64  `json:"venueId"`
	Name     string `json:"name"`
	GroupKey string `json:"groupKey,omitempty"`
}

// POST /api/v1/courts
func HandleCreateCourt(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if courtStore == nil {
		logger.Error().Msg("Court store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req createCourtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.VenueID <= 0 || req.Name == "" {
		http.Error(w, "venueId and name are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	court, err := courtStore.CreateCourt(ctx, req.VenueID, req.Name, req.GroupKey)
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "create court")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, court); err != nil {
		logger.Error().Err(err).Int64("court_id", court.ID).Msg("Failed to write court response")
	}
}

// GET /api/v1/courts/{id}
func HandleGetCourt(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if courtStore == nil {
		logger.Error().Msg("Court store not initialized")
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

	court, err := courtStore.GetCourt(ctx, id)
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "load court")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, court); err != nil {
		logger.Error().Err(err).Int64("court_id", id).Msg("Failed to write court response")
	}
}

// GET /api/v1/venues/{id}/courts
func HandleListCourts(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if courtStore == nil {
		logger.Error().Msg("Court store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	venueID, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	courts, err := courtStore.ListCourtsByVenue(ctx, venueID)
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "list courts")
		return
	}
	if courts == nil {
		courts = []store.Court{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": courts}); err != nil {
		logger.Error().Err(err).Int64("venue_id", venueID).Msg("Failed to write courts response")
	}
}

type templateRequest struct {
	DayOfWeek            int    `json:"dayOfWeek"`
	StartTime            string `json:"startTime"`
	EndTime              string `json:"endTime"`
	IsAvailableByDefault bool   `json:"isAvailableByDefault"`
}

// PUT /api/v1/courts/{id}/templates
//
// Replaces the court's whole weekly rule set in one shot.
func HandleReplaceTemplates(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if courtStore == nil {
		logger.Error().Msg("Court store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	courtID, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Templates []templateRequest `json:"templates"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	params := make([]store.TemplateParams, len(req.Templates))
	for i, tmpl := range req.Templates {
		params[i] = store.TemplateParams{
			DayOfWeek:            tmpl.DayOfWeek,
			StartTime:            tmpl.StartTime,
			EndTime:              tmpl.EndTime,
			IsAvailableByDefault: tmpl.IsAvailableByDefault,
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	if err := courtStore.ReplaceTemplates(ctx, courtID, params); err != nil {
		apiutil.WriteStoreError(w, r, err, "replace templates")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/courts/{id}/templates
func HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if courtStore == nil {
		logger.Error().Msg("Court store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	courtID, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	if _, err := courtStore.GetCourt(ctx, courtID); err != nil {
		apiutil.WriteStoreError(w, r, err, "load court")
		return
	}

	templates, err := courtStore.ListTemplatesByCourt(ctx, courtID)
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "list templates")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"templates": templates}); err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to write templates response")
	}
}
