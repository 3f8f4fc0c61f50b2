package booking

import (
	"testing"
	"time"
)

func kyivNow(t *testing.T) (time.Time, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// Monday noon.
	return time.Date(2025, time.March, 10, 12, 0, 0, 0, loc), loc
}

func TestResolveWindowBuckets(t *testing.T) {
	now, loc := kyivNow(t)

	tests := []struct {
		pref      string
		wantDay   int
		wantStart int
		wantEnd   int
	}{
		{"tomorrow afternoon", 11, 14, 17},
		{"tomorrow morning", 11, 9, 12},
		{"tomorrow evening", 11, 17, 20},
		{"today morning", 10, 9, 12},
		{"tomorrow", 11, 9, 17}, // no bucket: business hours
		{"sometime soon", 11, 9, 17},
	}

	for _, tt := range tests {
		w, err := ResolveWindow(tt.pref, now, loc)
		if err != nil {
			t.Fatalf("ResolveWindow(%q): %v", tt.pref, err)
		}
		if w.Start.Day() != tt.wantDay || w.Start.Hour() != tt.wantStart || w.End.Hour() != tt.wantEnd {
			t.Errorf("ResolveWindow(%q) = %v - %v, want day %d hours %d-%d",
				tt.pref, w.Start, w.End, tt.wantDay, tt.wantStart, tt.wantEnd)
		}
		if w.Timezone != "Europe/Kyiv" {
			t.Errorf("ResolveWindow(%q) timezone = %q", tt.pref, w.Timezone)
		}
	}
}

func TestResolveWindowWeekdays(t *testing.T) {
	now, loc := kyivNow(t) // Monday March 10

	w, err := ResolveWindow("friday morning", now, loc)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if w.Start.Weekday() != time.Friday || w.Start.Day() != 14 {
		t.Fatalf("friday resolved to %v", w.Start)
	}
	if w.Start.Hour() != 9 || w.End.Hour() != 12 {
		t.Fatalf("morning bucket = %d-%d", w.Start.Hour(), w.End.Hour())
	}

	// Naming today's weekday means next week, not today.
	w, err = ResolveWindow("monday", now, loc)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if w.Start.Day() != 17 {
		t.Fatalf("monday from a Monday resolved to day %d, want 17", w.Start.Day())
	}
}

func TestResolveWindowNextWeek(t *testing.T) {
	now, loc := kyivNow(t)

	w, err := ResolveWindow("next week", now, loc)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if w.Start.Day() != 17 || w.Start.Hour() != 9 || w.End.Hour() != 17 {
		t.Fatalf("next week = %v - %v", w.Start, w.End)
	}
}

func TestResolveWindowRejectsEmpty(t *testing.T) {
	now, loc := kyivNow(t)

	if _, err := ResolveWindow("  ", now, loc); err == nil {
		t.Fatal("expected an error for a blank preference")
	}
	var ve *ValidationError
	_, err := ResolveWindow("", now, loc)
	if !asValidation(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestWidenWindowKeepsBucket(t *testing.T) {
	now, loc := kyivNow(t)

	w, err := ResolveWindow("tomorrow afternoon", now, loc)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	wider := widenWindow(w)
	if wider.Start.Day() != w.Start.Day()+1 {
		t.Fatalf("widened start day = %d", wider.Start.Day())
	}
	if wider.Start.Hour() != 14 || wider.End.Hour() != 17 {
		t.Fatalf("widened bucket = %d-%d, want 14-17", wider.Start.Hour(), wider.End.Hour())
	}
	if wider.Timezone != w.Timezone {
		t.Fatalf("widened timezone = %q", wider.Timezone)
	}
}
