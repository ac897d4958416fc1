package availability

import "time"

// ResolveSlots expands the weekly templates matching the weekday of date
// into ordered candidate slots. Each slot starts out with the template's
// default availability; occupancy is overlaid later by Reduce.
//
// A court with no templates for that weekday yields an empty slice, not an
// error: that is the "venue closed that day" state. Templates whose time
// values fail to normalize are skipped.
func ResolveSlots(templates []SlotTemplate, date time.Time) []Slot {
	weekday := int(date.Weekday())

	slots := make([]Slot, 0, len(templates))
	for _, tmpl := range templates {
		if tmpl.DayOfWeek != weekday {
			continue
		}
		start, err := NormalizeTime(tmpl.StartTime)
		if err != nil {
			continue
		}
		end, err := NormalizeTime(tmpl.EndTime)
		if err != nil {
			continue
		}
		slots = append(slots, Slot{
			StartTime:   start,
			EndTime:     end,
			IsAvailable: tmpl.IsAvailableByDefault,
		})
	}

	sortSlots(slots)
	return slots
}
