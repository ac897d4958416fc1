package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/events"
)

// The store is the engine's provider bundle. Compile-time checks keep the
// two packages honest with each other.
var (
	_ availability.TemplateSource  = (*Store)(nil)
	_ availability.GroupResolver   = (*Store)(nil)
	_ availability.OccupancySource = (*Store)(nil)
	_ availability.ChangeSource    = (*Store)(nil)
)

// ListTemplates returns the weekly slot templates for a court, all days.
func (s *Store) ListTemplates(ctx context.Context, courtID string) ([]availability.SlotTemplate, error) {
	ids, err := parseCourtIDs([]string{courtID})
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT court_id, day_of_week, start_time, end_time, is_available_by_default
		FROM slot_templates
		WHERE court_id = ?
		ORDER BY day_of_week, start_time`,
		ids[0],
	)
	if err != nil {
		return nil, fmt.Errorf("list slot templates: %w", err)
	}
	defer rows.Close()

	var templates []availability.SlotTemplate
	for rows.Next() {
		var (
			rowCourtID       int64
			dayOfWeek        int
			startTime        string
			endTime          string
			availableDefault bool
		)
		if err := rows.Scan(&rowCourtID, &dayOfWeek, &startTime, &endTime, &availableDefault); err != nil {
			return nil, fmt.Errorf("scan slot template: %w", err)
		}
		templates = append(templates, availability.SlotTemplate{
			CourtID:              strconv.FormatInt(rowCourtID, 10),
			DayOfWeek:            dayOfWeek,
			StartTime:            startTime,
			EndTime:              endTime,
			IsAvailableByDefault: availableDefault,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot templates: %w", err)
	}
	return templates, nil
}

// ResolveCourtGroup expands a court into every court sharing its group
// key. Group membership is an equivalence class: symmetric and transitive
// by construction of the shared key.
func (s *Store) ResolveCourtGroup(ctx context.Context, courtID string) ([]string, error) {
	ids, err := parseCourtIDs([]string{courtID})
	if err != nil {
		return nil, err
	}

	members, err := s.groupMembers(ctx, ids[0])
	if err != nil {
		return nil, err
	}

	group := make([]string, len(members))
	for i, id := range members {
		group[i] = strconv.FormatInt(id, 10)
	}
	return group, nil
}

// ListBookings returns the bookings for the given courts and date whose
// status is in statuses.
func (s *Store) ListBookings(ctx context.Context, courtIDs []string, date time.Time, statuses []availability.BookingStatus) ([]availability.Booking, error) {
	if len(courtIDs) == 0 || len(statuses) == 0 {
		return nil, nil
	}
	ids, err := parseCourtIDs(courtIDs)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT court_id, booking_date, start_time, end_time, status
		FROM bookings
		WHERE court_id IN (%s) AND booking_date = ? AND status IN (%s)
		ORDER BY start_time`,
		placeholders(len(ids)), placeholders(len(statuses)),
	)
	args := int64Args(ids)
	args = append(args, date.Format(availability.DateLayout))
	for _, status := range statuses {
		args = append(args, string(status))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []availability.Booking
	for rows.Next() {
		var (
			rowCourtID  int64
			bookingDate string
			startTime   string
			endTime     string
			status      string
		)
		if err := rows.Scan(&rowCourtID, &bookingDate, &startTime, &endTime, &status); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, availability.Booking{
			CourtID:   strconv.FormatInt(rowCourtID, 10),
			Date:      bookingDate,
			StartTime: startTime,
			EndTime:   endTime,
			Status:    availability.BookingStatus(status),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}

// ListBlockedSlots returns the admin blocks for the given courts and date.
func (s *Store) ListBlockedSlots(ctx context.Context, courtIDs []string, date time.Time) ([]availability.BlockedSlot, error) {
	if len(courtIDs) == 0 {
		return nil, nil
	}
	ids, err := parseCourtIDs(courtIDs)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT court_id, block_date, start_time, end_time, COALESCE(reason, '')
		FROM blocked_slots
		WHERE court_id IN (%s) AND block_date = ?
		ORDER BY start_time`,
		placeholders(len(ids)),
	)
	args := int64Args(ids)
	args = append(args, date.Format(availability.DateLayout))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}
	defer rows.Close()

	var blocks []availability.BlockedSlot
	for rows.Next() {
		var (
			rowCourtID int64
			blockDate  string
			startTime  string
			endTime    string
			reason     string
		)
		if err := rows.Scan(&rowCourtID, &blockDate, &startTime, &endTime, &reason); err != nil {
			return nil, fmt.Errorf("scan blocked slot: %w", err)
		}
		blocks = append(blocks, availability.BlockedSlot{
			CourtID:   strconv.FormatInt(rowCourtID, 10),
			Date:      blockDate,
			StartTime: startTime,
			EndTime:   endTime,
			Reason:    reason,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocked slots: %w", err)
	}
	return blocks, nil
}

// SubscribeToChanges wires the engine's change notifications to the bus.
func (s *Store) SubscribeToChanges(_ context.Context, courtIDs []string, onChange func()) (availability.Disposer, error) {
	if s.bus == nil {
		return nil, fmt.Errorf("change bus not configured")
	}
	disposer := s.bus.SubscribeCourts(courtIDs, func(events.Change) {
		onChange()
	})
	return availability.Disposer(disposer), nil
}
