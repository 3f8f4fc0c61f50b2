package booking

import (
	"strings"
	"time"

	"meetsync/models"
)

// Time-of-day buckets for preference phrases, in provider-local hours.
var dayBuckets = map[string][2]int{
	"morning":   {9, 12},
	"afternoon": {14, 17},
	"evening":   {17, 20},
}

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ResolveWindow turns a free-text time preference ("tomorrow afternoon",
// "next week", "friday morning") into a concrete search window in the
// given location. Unrecognized day words default to tomorrow; an absent
// bucket defaults to business hours 9-17.
func ResolveWindow(preference string, now time.Time, loc *time.Location) (models.SlotWindow, error) {
	if strings.TrimSpace(preference) == "" {
		return models.SlotWindow{}, &ValidationError{Field: "preferred date/time", Message: "time preference is empty"}
	}

	now = now.In(loc)
	lower := strings.ToLower(preference)

	target := now.AddDate(0, 0, 1) // default: tomorrow
	switch {
	case strings.Contains(lower, "today"):
		target = now
	case strings.Contains(lower, "tomorrow"):
		target = now.AddDate(0, 0, 1)
	case strings.Contains(lower, "next week"):
		target = now.AddDate(0, 0, 7)
	default:
		for name, wd := range weekdayNames {
			if strings.Contains(lower, name) {
				daysAhead := int(wd-now.Weekday()+7) % 7
				if daysAhead == 0 {
					daysAhead = 7
				}
				target = now.AddDate(0, 0, daysAhead)
				break
			}
		}
	}

	startHour, endHour := 9, 17
	for word, bucket := range dayBuckets {
		if strings.Contains(lower, word) {
			startHour, endHour = bucket[0], bucket[1]
			break
		}
	}

	start := time.Date(target.Year(), target.Month(), target.Day(), startHour, 0, 0, 0, loc)
	end := time.Date(target.Year(), target.Month(), target.Day(), endHour, 0, 0, 0, loc)

	return models.SlotWindow{Start: start, End: end, Timezone: loc.String()}, nil
}

// widenWindow shifts the window one day later, keeping the same
// time-of-day bucket. Used when the preferred day turned out empty.
func widenWindow(w models.SlotWindow) models.SlotWindow {
	return models.SlotWindow{
		Start:    w.Start.AddDate(0, 0, 1),
		End:      w.End.AddDate(0, 0, 1),
		Timezone: w.Timezone,
	}
}
