package availability

import (
	"testing"
	"time"
)

// 2025-06-02 is a Monday.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "pads minutes form", input: "09:00", want: "09:00:00"},
		{name: "keeps seconds form", input: "09:00:00", want: "09:00:00"},
		{name: "trims whitespace", input: " 18:30 ", want: "18:30:00"},
		{name: "rejects empty", input: "", wantErr: true},
		{name: "rejects bare hour", input: "9", wantErr: true},
		{name: "rejects out of range", input: "25:00", wantErr: true},
		{name: "rejects garbage", input: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeTime(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeTime(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeTime(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveSlotsFiltersByWeekday(t *testing.T) {
	templates := []SlotTemplate{
		{CourtID: "1", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", IsAvailableByDefault: true},
		{CourtID: "1", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", IsAvailableByDefault: true},
		{CourtID: "1", DayOfWeek: 2, StartTime: "09:00", EndTime: "10:00", IsAvailableByDefault: true},
	}

	slots := ResolveSlots(templates, monday)
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}
	for _, slot := range slots {
		if !slot.IsAvailable {
			t.Errorf("slot %s-%s should default available", slot.StartTime, slot.EndTime)
		}
	}
}

func TestResolveSlotsNormalizesAndSorts(t *testing.T) {
	templates := []SlotTemplate{
		{CourtID: "1", DayOfWeek: 1, StartTime: "18:00", EndTime: "19:00", IsAvailableByDefault: true},
		{CourtID: "1", DayOfWeek: 1, StartTime: "09:00:00", EndTime: "10:00:00", IsAvailableByDefault: true},
	}

	slots := ResolveSlots(templates, monday)
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}
	if slots[0].StartTime != "09:00:00" || slots[1].StartTime != "18:00:00" {
		t.Errorf("slots not sorted or normalized: %+v", slots)
	}
}

func TestResolveSlotsEmptyWeekday(t *testing.T) {
	templates := []SlotTemplate{
		{CourtID: "1", DayOfWeek: 3, StartTime: "09:00", EndTime: "10:00", IsAvailableByDefault: true},
	}

	slots := ResolveSlots(templates, monday)
	if len(slots) != 0 {
		t.Fatalf("got %d slots for a closed day, want 0", len(slots))
	}
}

func TestResolveSlotsSkipsMalformedTemplates(t *testing.T) {
	templates := []SlotTemplate{
		{CourtID: "1", DayOfWeek: 1, StartTime: "bogus", EndTime: "10:00", IsAvailableByDefault: true},
		{CourtID: "1", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", IsAvailableByDefault: true},
	}

	slots := ResolveSlots(templates, monday)
	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1", len(slots))
	}
	if slots[0].StartTime != "10:00:00" {
		t.Errorf("surviving slot = %+v", slots[0])
	}
}

func TestResolveSlotsPreservesDefaultUnavailable(t *testing.T) {
	templates := []SlotTemplate{
		{CourtID: "1", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", IsAvailableByDefault: false},
	}

	slots := ResolveSlots(templates, monday)
	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1", len(slots))
	}
	if slots[0].IsAvailable {
		t.Error("default-unavailable template produced an available slot")
	}
}
