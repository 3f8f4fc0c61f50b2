// Package availability turns a calendar busy/free query into an ordered
// list of bookable slots. Pure computation: no I/O, no hidden state,
// safe to call repeatedly with different busy sets.
package availability

import (
	"sort"
	"time"

	"meetsync/models"
)

// FreeSlots computes every slot of exactly slotDuration that fits fully
// inside the window without strictly overlapping any busy interval.
//
// A slot that merely touches a busy interval (slot end == busy start, or
// slot start == busy end) is free. Partial-duration remainders at the end
// of a free range are dropped, never truncated. All comparisons happen in
// the window's timezone; busy input in other locations is normalized
// first, and output slots carry the window's timezone.
func FreeSlots(window models.SlotWindow, busy []models.BusyInterval, slotDuration time.Duration) []models.BookingSlot {
	if slotDuration <= 0 || !window.Start.Before(window.End) {
		return nil
	}

	loc := window.Location()
	start := window.Start.In(loc)
	end := window.End.In(loc)

	merged := mergeBusy(clipBusy(start, end, busy, loc))
	free := complement(start, end, merged)

	var slots []models.BookingSlot
	for _, rng := range free {
		for cur := rng.Start; !cur.Add(slotDuration).After(rng.End); cur = cur.Add(slotDuration) {
			slots = append(slots, models.BookingSlot{
				Start:    cur,
				End:      cur.Add(slotDuration),
				Timezone: window.Timezone,
			})
		}
	}
	return slots
}

// clipBusy normalizes busy intervals into the window's location and clips
// them to the window, discarding intervals with non-positive overlap.
func clipBusy(start, end time.Time, busy []models.BusyInterval, loc *time.Location) []models.BusyInterval {
	clipped := make([]models.BusyInterval, 0, len(busy))
	for _, b := range busy {
		bs, be := b.Start.In(loc), b.End.In(loc)
		if bs.Before(start) {
			bs = start
		}
		if be.After(end) {
			be = end
		}
		if bs.Before(be) {
			clipped = append(clipped, models.BusyInterval{Start: bs, End: be})
		}
	}
	return clipped
}

// mergeBusy folds sorted busy intervals into maximal disjoint ranges.
// Intervals that overlap or touch are merged.
func mergeBusy(busy []models.BusyInterval) []models.BusyInterval {
	if len(busy) == 0 {
		return nil
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	merged := []models.BusyInterval{busy[0]}
	for _, b := range busy[1:] {
		last := &merged[len(merged)-1]
		if !b.Start.After(last.End) {
			if b.End.After(last.End) {
				last.End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// complement derives the free ranges inside [start, end): the gap before
// the first busy range, the gaps between consecutive ranges, and the gap
// after the last one. With no busy ranges the whole window is free.
func complement(start, end time.Time, merged []models.BusyInterval) []models.BusyInterval {
	var free []models.BusyInterval
	cur := start
	for _, b := range merged {
		if cur.Before(b.Start) {
			free = append(free, models.BusyInterval{Start: cur, End: b.Start})
		}
		if b.End.After(cur) {
			cur = b.End
		}
	}
	if cur.Before(end) {
		free = append(free, models.BusyInterval{Start: cur, End: end})
	}
	return free
}
