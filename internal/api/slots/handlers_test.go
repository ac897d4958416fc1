package slots

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/events"
	"github.com/courtbook/courtbook/internal/store"
	"github.com/courtbook/courtbook/internal/testutil"
)

type availabilityResponse struct {
	CourtID int64               `json:"courtId"`
	Date    string              `json:"date"`
	Slots   []availability.Slot `json:"slots"`
}

// One test function: InitHandlers binds the package singletons once, so all
// scenarios share the same store and engine.
func TestAvailabilityHandlers(t *testing.T) {
	bus := events.NewBus()
	s := store.New(testutil.NewTestDB(t), bus)

	engine, err := availability.New(availability.Providers{
		Templates: s, Groups: s, Occupancy: s, Changes: s,
	}, availability.WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	InitHandlers(engine, s)

	venue := testutil.SeedVenue(t, s)
	court := testutil.SeedCourt(t, s, venue.ID, "Court 1", "")
	testutil.SeedTemplates(t, s, court.ID, []store.TemplateParams{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", IsAvailableByDefault: true},
		{DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", IsAvailableByDefault: true},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", HandleGetAvailability)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability/watch", HandleWatchAvailability)

	gridURL := fmt.Sprintf("/api/v1/courts/%d/availability?date=2025-06-02", court.ID)

	t.Run("open grid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, gridURL, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp availabilityResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Slots) != 2 {
			t.Fatalf("got %d slots, want 2", len(resp.Slots))
		}
		for _, slot := range resp.Slots {
			if !slot.IsAvailable {
				t.Errorf("slot %s-%s unavailable on an open grid", slot.StartTime, slot.EndTime)
			}
		}
	})

	t.Run("booking occupies", func(t *testing.T) {
		if _, err := s.CreateBooking(context.Background(), store.CreateBookingParams{
			CourtID: court.ID, Date: "2025-06-02", StartTime: "09:00", EndTime: "10:00",
		}); err != nil {
			t.Fatalf("create booking: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, gridURL, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		var resp availabilityResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Slots[0].IsAvailable {
			t.Error("booked slot still available")
		}
		if !resp.Slots[1].IsAvailable {
			t.Error("unbooked slot unavailable")
		}
	})

	t.Run("missing date", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/api/v1/courts/%d/availability", court.ID), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown court", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/courts/9999/availability?date=2025-06-02", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("closed day", func(t *testing.T) {
		// No templates for Tuesday.
		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/api/v1/courts/%d/availability?date=2025-06-03", court.ID), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp availabilityResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Slots) != 0 {
			t.Errorf("closed day returned %d slots", len(resp.Slots))
		}
	})

	t.Run("watch streams initial grid", func(t *testing.T) {
		server := httptest.NewServer(mux)
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		url := fmt.Sprintf("%s/api/v1/courts/%d/availability/watch?date=2025-06-02", server.URL, court.ID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("open stream: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
			t.Fatalf("content type = %q", ct)
		}

		scanner := bufio.NewScanner(resp.Body)
		var sawEvent bool
		for scanner.Scan() {
			line := scanner.Text()
			if line == "event: availability" {
				sawEvent = true
			}
			if sawEvent && strings.HasPrefix(line, "data: ") {
				var payload availabilityResponse
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload); err != nil {
					t.Fatalf("decode event: %v", err)
				}
				if len(payload.Slots) != 2 {
					t.Errorf("event carried %d slots, want 2", len(payload.Slots))
				}
				return
			}
		}
		t.Fatalf("stream closed without an availability event: %v", scanner.Err())
	})
}
