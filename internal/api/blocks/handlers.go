// Package blocks exposes the admin block endpoints. A block takes a
// window out of circulation regardless of booking state; deleting it
// re-opens the window unless a booking holds it.
package blocks

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
	blockStore *store.Store
	once       sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *store.Store) {
	if s == nil {
		return
	}
	once.Do(func() {
		blockStore = s
	})
}

type createRequest struct {
	CourtID   int64  `json:"courtId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Reason    string `json:"reason,omitempty"`
}

// POST /api/v1/blocks
func HandleCreateBlock(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if blockStore == nil {
		logger.Error().Msg("Block store not initialized")
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

	block, err := blockStore.CreateBlock(ctx, store.CreateBlockParams{
		CourtID:   req.CourtID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	})
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "create block")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, block); err != nil {
		logger.Error().Err(err).Int64("block_id", block.ID).Msg("Failed to write block response")
	}
}

// GET /api/v1/blocks/{id}
func HandleGetBlock(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if blockStore == nil {
		logger.Error().Msg("Block store not initialized")
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

	block, err := blockStore.GetBlock(ctx, id)
	if err != nil {
		apiutil.WriteStoreError(w, r, err, "load block")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, block); err != nil {
		logger.Error().Err(err).Int64("block_id", id).Msg("Failed to write block response")
	}
}

// DELETE /api/v1/blocks/{id}
func HandleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if blockStore == nil {
		logger.Error().Msg("Block store not initialized")
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

	if err := blockStore.DeleteBlock(ctx, id); err != nil {
		apiutil.WriteStoreError(w, r, err, "delete block")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
