package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/events"
)

type CreateBlockParams struct {
	CourtID   int64
	Date      string
	StartTime string
	EndTime   string
	Reason    string
}

// CreateBlock records an admin block for a window. Blocks always occupy,
// so no conflict check runs: blocking an already-booked window is a valid
// admin action (the booking stays, the slot just reads unavailable).
func (s *Store) CreateBlock(ctx context.Context, params CreateBlockParams) (Block, error) {
	date, err := parseDate(params.Date)
	if err != nil {
		return Block{}, err
	}
	start, end, err := normalizeWindow(params.StartTime, params.EndTime)
	if err != nil {
		return Block{}, err
	}

	// Fail on unknown courts before inserting.
	if _, err := s.groupMembers(ctx, params.CourtID); err != nil {
		return Block{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO blocked_slots (court_id, block_date, start_time, end_time, reason)
		VALUES (?, ?, ?, ?, NULLIF(?, ''))`,
		params.CourtID, date, start, end, params.Reason,
	)
	if err != nil {
		return Block{}, fmt.Errorf("insert blocked slot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Block{}, fmt.Errorf("blocked slot id: %w", err)
	}

	block := Block{
		ID:        id,
		CourtID:   params.CourtID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Reason:    params.Reason,
	}

	log.Ctx(ctx).Info().
		Int64("block_id", block.ID).
		Int64("court_id", block.CourtID).
		Str("date", block.Date).
		Str("window", block.StartTime+"-"+block.EndTime).
		Msg("Created blocked slot")

	s.publish(ctx, events.TableBlockedSlots, block.CourtID, block.Date)
	return block, nil
}

// GetBlock loads one block by ID.
func (s *Store) GetBlock(ctx context.Context, id int64) (Block, error) {
	var block Block
	err := s.db.QueryRowContext(ctx, `
		SELECT id, court_id, block_date, start_time, end_time, COALESCE(reason, '')
		FROM blocked_slots WHERE id = ?`,
		id,
	).Scan(&block.ID, &block.CourtID, &block.Date, &block.StartTime, &block.EndTime, &block.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return Block{}, fmt.Errorf("blocked slot %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Block{}, fmt.Errorf("load blocked slot %d: %w", id, err)
	}
	return block, nil
}

// DeleteBlock removes an admin block, re-opening the window unless a
// booking holds it.
func (s *Store) DeleteBlock(ctx context.Context, id int64) error {
	block, err := s.GetBlock(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM blocked_slots WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete blocked slot %d: %w", id, err)
	}

	log.Ctx(ctx).Info().
		Int64("block_id", id).
		Int64("court_id", block.CourtID).
		Str("date", block.Date).
		Msg("Deleted blocked slot")

	s.publish(ctx, events.TableBlockedSlots, block.CourtID, block.Date)
	return nil
}
