package models

import (
	"fmt"
	"time"
)

// BusyInterval is a time range the calendar reports as occupied.
// Produced only by the calendar gateway; start < end.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotWindow is the search window for availability queries.
type SlotWindow struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone"`
}

// Location resolves the window's IANA timezone, falling back to UTC.
func (w SlotWindow) Location() *time.Location {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BookingSlot is a bookable time range of fixed duration. Slots are
// advisory and perishable: they are only valid against the busy data
// they were computed from and must be re-verified at commit time.
type BookingSlot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone"`
}

func (s BookingSlot) Equal(other BookingSlot) bool {
	return s.Start.Equal(other.Start) && s.End.Equal(other.End)
}

func (s BookingSlot) String() string {
	return fmt.Sprintf("%s - %s", s.Start.Format("Mon Jan 2 15:04"), s.End.Format("15:04"))
}

// UserInfo holds the qualification fields collected during conversation.
type UserInfo struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	TimePreference string `json:"timePreference"`
}

// Complete reports whether every qualification field has been provided.
func (u UserInfo) Complete() bool {
	return u.Name != "" && u.Email != "" && u.TimePreference != ""
}

// SlotProposal is the ordered, deduplicated list of slots presented to
// the user. Regenerated whenever the qualification data changes.
type SlotProposal struct {
	Slots       []BookingSlot `json:"slots"`
	Window      SlotWindow    `json:"window"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// Contains reports whether the given slot is a member of the proposal.
func (p *SlotProposal) Contains(slot BookingSlot) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Slots {
		if s.Equal(slot) {
			return true
		}
	}
	return false
}

// BookingRequest is the committed intent, created only after the user
// explicitly confirmed the full summary. Token is the idempotency
// fingerprint computed at confirmation time.
type BookingRequest struct {
	User  UserInfo    `json:"user"`
	Slot  BookingSlot `json:"slot"`
	Token string      `json:"token"`
}

// Booking result statuses.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusFailed    = "failed"
)

// BookingResult is the terminal outcome of a booking transaction. A
// confirmed result exists only if the calendar create call succeeded
// for that exact slot.
type BookingResult struct {
	EventID string `json:"eventId"`
	Link    string `json:"link,omitempty"`
	Status  string `json:"status"`
}

// CalendarEvent is the gateway's view of a created calendar event.
type CalendarEvent struct {
	EventID string `json:"eventId"`
	Link    string `json:"link"`
	Status  string `json:"status"`
}

// BookingRecord is the persisted trace of a completed booking.
type BookingRecord struct {
	ID            string    `bson:"id" json:"id"`
	SessionID     string    `bson:"sessionId" json:"sessionId"`
	EventID       string    `bson:"eventId" json:"eventId"`
	Link          string    `bson:"link,omitempty" json:"link,omitempty"`
	AttendeeName  string    `bson:"attendeeName" json:"attendeeName"`
	AttendeeEmail string    `bson:"attendeeEmail" json:"attendeeEmail"`
	Start         time.Time `bson:"start" json:"start"`
	End           time.Time `bson:"end" json:"end"`
	Timezone      string    `bson:"timezone" json:"timezone"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}
