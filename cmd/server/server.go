// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/courtbook/courtbook/internal/api"
	"github.com/courtbook/courtbook/internal/api/blocks"
	"github.com/courtbook/courtbook/internal/api/bookings"
	"github.com/courtbook/courtbook/internal/api/courts"
	"github.com/courtbook/courtbook/internal/api/slots"
	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/config"
	"github.com/courtbook/courtbook/internal/store"
)

func newServer(cfg *config.Config, engine *availability.Engine, st *store.Store) *http.Server {
	slots.InitHandlers(engine, st)
	bookings.InitHandlers(st)
	blocks.InitHandlers(st)
	courts.InitHandlers(st)

	router := http.NewServeMux()
	registerRoutes(router)

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.App.Port),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the availability watch endpoint holds its
		// response open for the life of the subscription.
		IdleTimeout: 60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", slots.HandleGetAvailability)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability/watch", slots.HandleWatchAvailability)

	// Bookings
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", bookings.HandleConfirmBooking)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", bookings.HandleCancelBooking)

	// Admin blocks
	mux.HandleFunc("POST /api/v1/blocks", blocks.HandleCreateBlock)
	mux.HandleFunc("GET /api/v1/blocks/{id}", blocks.HandleGetBlock)
	mux.HandleFunc("DELETE /api/v1/blocks/{id}", blocks.HandleDeleteBlock)

	// Venues, courts and templates
	mux.HandleFunc("POST /api/v1/venues", courts.HandleCreateVenue)
	mux.HandleFunc("GET /api/v1/venues/{id}/courts", courts.HandleListCourts)
	mux.HandleFunc("POST /api/v1/courts", courts.HandleCreateCourt)
	mux.HandleFunc("GET /api/v1/courts/{id}", courts.HandleGetCourt)
	mux.HandleFunc("PUT /api/v1/courts/{id}/templates", courts.HandleReplaceTemplates)
	mux.HandleFunc("GET /api/v1/courts/{id}/templates", courts.HandleListTemplates)
}
