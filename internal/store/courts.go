package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/events"
)

// CreateVenue inserts a venue.
func (s *Store) CreateVenue(ctx context.Context, name, slug, timezone string) (Venue, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO venues (name, slug, timezone) VALUES (?, ?, ?)",
		name, slug, timezone,
	)
	if err != nil {
		return Venue{}, fmt.Errorf("insert venue: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Venue{}, fmt.Errorf("venue id: %w", err)
	}
	return Venue{ID: id, Name: name, Slug: slug, Timezone: timezone}, nil
}

// CreateCourt inserts a court. An empty groupKey leaves the court
// ungrouped; courts created with the same groupKey share one physical
// resource and occupy each other's windows.
func (s *Store) CreateCourt(ctx context.Context, venueID int64, name, groupKey string) (Court, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO courts (venue_id, name, group_key) VALUES (?, ?, NULLIF(?, ''))",
		venueID, name, groupKey,
	)
	if err != nil {
		return Court{}, fmt.Errorf("insert court: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Court{}, fmt.Errorf("court id: %w", err)
	}
	return Court{ID: id, VenueID: venueID, Name: name, GroupKey: groupKey}, nil
}

// GetCourt loads one court by ID.
func (s *Store) GetCourt(ctx context.Context, id int64) (Court, error) {
	var court Court
	var groupKey sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, venue_id, name, group_key FROM courts WHERE id = ?",
		id,
	).Scan(&court.ID, &court.VenueID, &court.Name, &groupKey)
	if errors.Is(err, sql.ErrNoRows) {
		return Court{}, fmt.Errorf("court %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Court{}, fmt.Errorf("load court %d: %w", id, err)
	}
	court.GroupKey = groupKey.String
	return court, nil
}

// ListCourtsByVenue lists a venue's courts.
func (s *Store) ListCourtsByVenue(ctx context.Context, venueID int64) ([]Court, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, venue_id, name, group_key FROM courts WHERE venue_id = ? ORDER BY id",
		venueID,
	)
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		var court Court
		var groupKey sql.NullString
		if err := rows.Scan(&court.ID, &court.VenueID, &court.Name, &groupKey); err != nil {
			return nil, fmt.Errorf("scan court: %w", err)
		}
		court.GroupKey = groupKey.String
		courts = append(courts, court)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courts: %w", err)
	}
	return courts, nil
}

type TemplateParams struct {
	DayOfWeek            int
	StartTime            string
	EndTime              string
	IsAvailableByDefault bool
}

// ReplaceTemplates swaps a court's entire weekly template set in one
// transaction. Templates have no partial edit path: admins replace the
// whole rule set, which keeps the no-overlap invariant an authoring-time
// concern.
func (s *Store) ReplaceTemplates(ctx context.Context, courtID int64, templates []TemplateParams) error {
	if _, err := s.groupMembers(ctx, courtID); err != nil {
		return err
	}

	normalized := make([]TemplateParams, len(templates))
	for i, tmpl := range templates {
		if tmpl.DayOfWeek < 0 || tmpl.DayOfWeek > 6 {
			return fmt.Errorf("template %d: day_of_week must be between 0 and 6: %w", i, ErrInvalidArgument)
		}
		start, end, err := normalizeWindow(tmpl.StartTime, tmpl.EndTime)
		if err != nil {
			return fmt.Errorf("template %d: %w", i, err)
		}
		normalized[i] = TemplateParams{
			DayOfWeek:            tmpl.DayOfWeek,
			StartTime:            start,
			EndTime:              end,
			IsAvailableByDefault: tmpl.IsAvailableByDefault,
		}
	}

	err := s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM slot_templates WHERE court_id = ?", courtID); err != nil {
			return fmt.Errorf("clear slot templates: %w", err)
		}
		for _, tmpl := range normalized {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO slot_templates (court_id, day_of_week, start_time, end_time, is_available_by_default)
				VALUES (?, ?, ?, ?, ?)`,
				courtID, tmpl.DayOfWeek, tmpl.StartTime, tmpl.EndTime, tmpl.IsAvailableByDefault,
			)
			if err != nil {
				return fmt.Errorf("insert slot template: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TableSlotTemplates, courtID, "")
	return nil
}

// ListTemplatesByCourt is the int64-keyed convenience around the
// engine-facing ListTemplates, for admin handlers.
func (s *Store) ListTemplatesByCourt(ctx context.Context, courtID int64) ([]availability.SlotTemplate, error) {
	return s.ListTemplates(ctx, fmt.Sprintf("%d", courtID))
}
