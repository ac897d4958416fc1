// Package availability computes bookable time slots for a court on a date.
//
// The pipeline has two pure stages: ResolveSlots expands a court's recurring
// weekly templates into candidate slots for a date, and Reduce overlays live
// bookings and admin blocks (across the whole court group) to mark each slot
// available or not. The Engine wires both stages to host-supplied data
// providers, and Watcher keeps consumers current when upstream rows change.
package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Slot is a concrete, dated time window. Slots are computed projections:
// they are never persisted, only recomputed on every query.
type Slot struct {
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsAvailable bool   `json:"isAvailable"`
}

// SlotTemplate is a recurring weekly availability rule for one court.
// DayOfWeek follows time.Weekday numbering (0 = Sunday).
type SlotTemplate struct {
	CourtID              string `json:"courtId"`
	DayOfWeek            int    `json:"dayOfWeek"`
	StartTime            string `json:"startTime"`
	EndTime              string `json:"endTime"`
	IsAvailableByDefault bool   `json:"isAvailableByDefault"`
}

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking is an externally owned reservation record. The engine only reads
// bookings; creating and mutating them is the host's responsibility.
type Booking struct {
	CourtID   string        `json:"courtId"`
	Date      string        `json:"bookingDate"`
	StartTime string        `json:"startTime"`
	EndTime   string        `json:"endTime"`
	Status    BookingStatus `json:"status"`
}

// BlockedSlot is an admin override that renders a window unavailable
// regardless of bookings or template defaults.
type BlockedSlot struct {
	CourtID   string `json:"courtId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Reason    string `json:"reason,omitempty"`
}

// NormalizeTime pads a wall-clock value to HH:MM:SS so that times written
// with and without seconds compare equal ("09:00" == "09:00:00"). The
// padding is load-bearing: every window comparison in this package goes
// through it.
func NormalizeTime(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("time value is required")
	}

	var padded string
	switch strings.Count(trimmed, ":") {
	case 1:
		padded = trimmed + ":00"
	case 2:
		padded = trimmed
	default:
		return "", fmt.Errorf("time %q must be HH:MM or HH:MM:SS", value)
	}

	parsed, err := time.Parse("15:04:05", padded)
	if err != nil {
		return "", fmt.Errorf("time %q must be HH:MM or HH:MM:SS", value)
	}
	return parsed.Format("15:04:05"), nil
}

// windowKey builds the exact-match occupancy key for a time window. Both
// sides are normalized so "18:00" and "18:00:00" land on the same key.
// Values that fail to normalize yield an empty key, which matches nothing;
// a malformed upstream row silently blocks no slot rather than all of them.
func windowKey(startTime, endTime string) string {
	start, err := NormalizeTime(startTime)
	if err != nil {
		return ""
	}
	end, err := NormalizeTime(endTime)
	if err != nil {
		return ""
	}
	return start + "-" + end
}

// sortSlots orders slots ascending by normalized start time, then end time.
func sortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		si, _ := NormalizeTime(slots[i].StartTime)
		sj, _ := NormalizeTime(slots[j].StartTime)
		if si != sj {
			return si < sj
		}
		ei, _ := NormalizeTime(slots[i].EndTime)
		ej, _ := NormalizeTime(slots[j].EndTime)
		return ei < ej
	})
}
