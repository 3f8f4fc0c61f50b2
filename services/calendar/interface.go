// Package calendar is the gateway to the organizer's calendar backend.
// The booking engine consumes this interface only; it never talks to the
// Google API directly.
package calendar

import (
	"context"

	"meetsync/models"
)

// Gateway queries busy time and creates events. Both operations can fail
// and both are subject to the caller's context deadline.
type Gateway interface {
	// QueryBusy returns the busy intervals overlapping the window.
	QueryBusy(ctx context.Context, window models.SlotWindow) ([]models.BusyInterval, error)

	// CreateEvent books the slot with the given summary and invites the
	// attendee, asking the backend to send notifications.
	CreateEvent(ctx context.Context, slot models.BookingSlot, summary, attendeeEmail string) (*models.CalendarEvent, error)
}
