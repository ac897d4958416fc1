package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/courtbook/courtbook/internal/db"
	"github.com/courtbook/courtbook/internal/store"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedVenue inserts a venue and returns it.
func SeedVenue(t *testing.T, s *store.Store) store.Venue {
	t.Helper()

	venue, err := s.CreateVenue(context.Background(), "Test Venue", "test-venue", "UTC")
	if err != nil {
		t.Fatalf("seed venue: %v", err)
	}
	return venue
}

// SeedCourt inserts a court under the venue. groupKey may be empty.
func SeedCourt(t *testing.T, s *store.Store, venueID int64, name, groupKey string) store.Court {
	t.Helper()

	court, err := s.CreateCourt(context.Background(), venueID, name, groupKey)
	if err != nil {
		t.Fatalf("seed court %s: %v", name, err)
	}
	return court
}

// SeedTemplates replaces the court's weekly templates.
func SeedTemplates(t *testing.T, s *store.Store, courtID int64, templates []store.TemplateParams) {
	t.Helper()

	if err := s.ReplaceTemplates(context.Background(), courtID, templates); err != nil {
		t.Fatalf("seed templates for court %d: %v", courtID, err)
	}
}

// AllDayTemplates returns one open template per weekday for the window.
func AllDayTemplates(start, end string) []store.TemplateParams {
	templates := make([]store.TemplateParams, 7)
	for day := 0; day < 7; day++ {
		templates[day] = store.TemplateParams{
			DayOfWeek:            day,
			StartTime:            start,
			EndTime:              end,
			IsAvailableByDefault: true,
		}
	}
	return templates
}
