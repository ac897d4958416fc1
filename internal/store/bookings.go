package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/events"
)

type CreateBookingParams struct {
	CourtID   int64
	Date      string
	StartTime string
	EndTime   string
	// Status defaults to pending. Only pending and confirmed are valid
	// at creation time.
	Status availability.BookingStatus
}

// CreateBooking reserves a window on a court. The conflict check runs in
// the insert transaction and spans the whole court group: a window held on
// any grouped court is held on all of them. The partial unique index on
// active bookings is the single-court backstop.
func (s *Store) CreateBooking(ctx context.Context, params CreateBookingParams) (Booking, error) {
	date, err := parseDate(params.Date)
	if err != nil {
		return Booking{}, err
	}
	start, end, err := normalizeWindow(params.StartTime, params.EndTime)
	if err != nil {
		return Booking{}, err
	}

	status := params.Status
	if status == "" {
		status = availability.BookingPending
	}
	if status != availability.BookingPending && status != availability.BookingConfirmed {
		return Booking{}, fmt.Errorf("status %q: %w", status, ErrInvalidTransition)
	}

	group, err := s.groupMembers(ctx, params.CourtID)
	if err != nil {
		return Booking{}, err
	}

	booking := Booking{
		Reference: uuid.New().String(),
		CourtID:   params.CourtID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    status,
	}

	err = s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		taken, err := windowOccupied(ctx, tx, group, date, start, end)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (reference, court_id, booking_date, start_time, end_time, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			booking.Reference, booking.CourtID, booking.Date, booking.StartTime, booking.EndTime, string(booking.Status),
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		booking.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("booking id: %w", err)
		}
		return nil
	})
	if err != nil {
		return Booking{}, err
	}

	log.Ctx(ctx).Info().
		Int64("booking_id", booking.ID).
		Int64("court_id", booking.CourtID).
		Str("date", booking.Date).
		Str("window", booking.StartTime+"-"+booking.EndTime).
		Str("status", string(booking.Status)).
		Msg("Created booking")

	s.publish(ctx, events.TableBookings, booking.CourtID, booking.Date)
	return booking, nil
}

// GetBooking loads one booking by ID.
func (s *Store) GetBooking(ctx context.Context, id int64) (Booking, error) {
	var booking Booking
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, reference, court_id, booking_date, start_time, end_time, status
		FROM bookings WHERE id = ?`,
		id,
	).Scan(&booking.ID, &booking.Reference, &booking.CourtID, &booking.Date, &booking.StartTime, &booking.EndTime, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return Booking{}, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Booking{}, fmt.Errorf("load booking %d: %w", id, err)
	}
	booking.Status = availability.BookingStatus(status)
	return booking, nil
}

// CancelBooking moves a pending or confirmed booking to cancelled, freeing
// its window. Cancelled and completed bookings cannot transition.
func (s *Store) CancelBooking(ctx context.Context, id int64) (Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if booking.Status != availability.BookingPending && booking.Status != availability.BookingConfirmed {
		return Booking{}, fmt.Errorf("booking %d is %s: %w", id, booking.Status, ErrInvalidTransition)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE bookings SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('pending', 'confirmed')`,
		id,
	)
	if err != nil {
		return Booking{}, fmt.Errorf("cancel booking %d: %w", id, err)
	}
	booking.Status = availability.BookingCancelled

	log.Ctx(ctx).Info().
		Int64("booking_id", id).
		Int64("court_id", booking.CourtID).
		Str("date", booking.Date).
		Msg("Cancelled booking")

	s.publish(ctx, events.TableBookings, booking.CourtID, booking.Date)
	return booking, nil
}

// ConfirmBooking moves a pending booking to confirmed.
func (s *Store) ConfirmBooking(ctx context.Context, id int64) (Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if booking.Status != availability.BookingPending {
		return Booking{}, fmt.Errorf("booking %d is %s: %w", id, booking.Status, ErrInvalidTransition)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE bookings SET status = 'confirmed', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`,
		id,
	)
	if err != nil {
		return Booking{}, fmt.Errorf("confirm booking %d: %w", id, err)
	}
	booking.Status = availability.BookingConfirmed

	s.publish(ctx, events.TableBookings, booking.CourtID, booking.Date)
	return booking, nil
}

// CompleteExpiredBookings marks confirmed bookings whose window has passed
// as completed and publishes a change per affected court/date. Returns the
// number of bookings completed.
func (s *Store) CompleteExpiredBookings(ctx context.Context, now time.Time) (int64, error) {
	today := now.Format(availability.DateLayout)
	clock := now.Format("15:04:05")

	type affected struct {
		courtID int64
		date    string
	}
	var completed []affected

	err := s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, court_id, booking_date FROM bookings
			WHERE status = 'confirmed'
			  AND (booking_date < ? OR (booking_date = ? AND end_time <= ?))`,
			today, today, clock,
		)
		if err != nil {
			return fmt.Errorf("list expired bookings: %w", err)
		}
		defer rows.Close()

		var ids []int64
		for rows.Next() {
			var id int64
			var a affected
			if err := rows.Scan(&id, &a.courtID, &a.date); err != nil {
				return fmt.Errorf("scan expired booking: %w", err)
			}
			ids = append(ids, id)
			completed = append(completed, a)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate expired bookings: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		query := fmt.Sprintf(`
			UPDATE bookings SET status = 'completed', updated_at = CURRENT_TIMESTAMP
			WHERE id IN (%s)`, placeholders(len(ids)))
		if _, err := tx.ExecContext(ctx, query, int64Args(ids)...); err != nil {
			return fmt.Errorf("complete bookings: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, a := range completed {
		s.publish(ctx, events.TableBookings, a.courtID, a.date)
	}
	return int64(len(completed)), nil
}

// windowOccupied reports whether any court in the group already holds the
// exact window via an active booking or a block.
func windowOccupied(ctx context.Context, tx *sql.Tx, group []int64, date, start, end string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM bookings
		WHERE court_id IN (%s) AND booking_date = ? AND start_time = ? AND end_time = ?
		  AND status IN ('pending', 'confirmed')`,
		placeholders(len(group)),
	)
	args := int64Args(group)
	args = append(args, date, start, end)

	var bookingCount int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&bookingCount); err != nil {
		return false, fmt.Errorf("count conflicting bookings: %w", err)
	}
	if bookingCount > 0 {
		return true, nil
	}

	query = fmt.Sprintf(`
		SELECT COUNT(*) FROM blocked_slots
		WHERE court_id IN (%s) AND block_date = ? AND start_time = ? AND end_time = ?`,
		placeholders(len(group)),
	)
	var blockCount int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&blockCount); err != nil {
		return false, fmt.Errorf("count conflicting blocks: %w", err)
	}
	return blockCount > 0, nil
}
