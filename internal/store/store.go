// Package store is the SQLite-backed system of record for venues, courts,
// templates, bookings and blocks. It implements the availability engine's
// provider interfaces on the read side and owns the write paths the engine
// deliberately does not: creating and cancelling bookings, blocking and
// unblocking slots, replacing templates. Every successful write publishes a
// change event so live watchers recompute.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/db"
	"github.com/courtbook/courtbook/internal/events"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSlotTaken         = errors.New("slot already booked or blocked")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrInvalidArgument   = errors.New("invalid argument")
)

type Store struct {
	db  *db.DB
	bus *events.Bus
}

// New binds a store to the database and, optionally, a change bus. A nil
// bus disables change publication; reads and writes still work.
func New(database *db.DB, bus *events.Bus) *Store {
	return &Store{db: database, bus: bus}
}

type Venue struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Timezone string `json:"timezone"`
}

type Court struct {
	ID       int64  `json:"id"`
	VenueID  int64  `json:"venueId"`
	Name     string `json:"name"`
	GroupKey string `json:"groupKey,omitempty"`
}

type Booking struct {
	ID        int64                      `json:"id"`
	Reference string                     `json:"reference"`
	CourtID   int64                      `json:"courtId"`
	Date      string                     `json:"bookingDate"`
	StartTime string                     `json:"startTime"`
	EndTime   string                     `json:"endTime"`
	Status    availability.BookingStatus `json:"status"`
}

type Block struct {
	ID        int64  `json:"id"`
	CourtID   int64  `json:"courtId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Reason    string `json:"reason,omitempty"`
}

// parseDate validates a calendar date in YYYY-MM-DD form.
func parseDate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := time.Parse(availability.DateLayout, trimmed)
	if err != nil {
		return "", fmt.Errorf("date %q must be YYYY-MM-DD: %w", raw, ErrInvalidArgument)
	}
	return parsed.Format(availability.DateLayout), nil
}

// normalizeWindow validates and normalizes a start/end pair.
func normalizeWindow(startTime, endTime string) (string, string, error) {
	start, err := availability.NormalizeTime(startTime)
	if err != nil {
		return "", "", fmt.Errorf("start time %v: %w", err, ErrInvalidArgument)
	}
	end, err := availability.NormalizeTime(endTime)
	if err != nil {
		return "", "", fmt.Errorf("end time %v: %w", err, ErrInvalidArgument)
	}
	if start >= end {
		return "", "", fmt.Errorf("start time must be before end time: %w", ErrInvalidArgument)
	}
	return start, end, nil
}

// parseCourtIDs converts the engine's string identifiers to row IDs.
func parseCourtIDs(courtIDs []string) ([]int64, error) {
	ids := make([]int64, 0, len(courtIDs))
	for _, raw := range courtIDs {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("court id %q must be a positive integer: %w", raw, ErrInvalidArgument)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// placeholders renders "?, ?, ?" for n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// publish emits a change event for a court-scoped mutation. Publication is
// best effort after commit; a missing court row only costs the venue scope.
func (s *Store) publish(ctx context.Context, table events.Table, courtID int64, date string) {
	if s.bus == nil {
		return
	}

	var venueID int64
	err := s.db.QueryRowContext(ctx, "SELECT venue_id FROM courts WHERE id = ?", courtID).Scan(&venueID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("court_id", courtID).Msg("Failed to resolve venue for change event")
	}

	change := events.Change{
		Table:    table,
		CourtIDs: []string{strconv.FormatInt(courtID, 10)},
		Date:     date,
	}
	if venueID > 0 {
		change.VenueID = strconv.FormatInt(venueID, 10)
	}
	s.bus.Publish(change)
}

// groupMembers resolves the court group for a court row. An ungrouped
// court resolves to itself; an unknown court is ErrNotFound.
func (s *Store) groupMembers(ctx context.Context, courtID int64) ([]int64, error) {
	var groupKey sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT group_key FROM courts WHERE id = ?", courtID).Scan(&groupKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("court %d: %w", courtID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load court %d: %w", courtID, err)
	}

	if !groupKey.Valid || groupKey.String == "" {
		return []int64{courtID}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM courts WHERE group_key = ? ORDER BY id",
		groupKey.String,
	)
	if err != nil {
		return nil, fmt.Errorf("list court group %q: %w", groupKey.String, err)
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan court group member: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate court group: %w", err)
	}
	return members, nil
}
