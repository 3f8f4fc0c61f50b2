package calendar

import (
	"context"
	"fmt"
	"time"

	"meetsync/models"
	"meetsync/utils"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const gatewayCallTimeout = 10 * time.Second

// GoogleCalendarGateway implements Gateway against the Google Calendar v3
// API using the organizer's service-account credentials.
type GoogleCalendarGateway struct {
	svc        *calendar.Service
	calendarID string
}

// NewGoogleCalendarGateway builds the gateway from a credentials file.
func NewGoogleCalendarGateway(ctx context.Context, credentialsFile, calendarID string) (*GoogleCalendarGateway, error) {
	svc, err := calendar.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(calendar.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendarGateway{svc: svc, calendarID: calendarID}, nil
}

// QueryBusy runs a freebusy query over the window and parses the busy
// periods of the organizer's calendar.
func (g *GoogleCalendarGateway) QueryBusy(ctx context.Context, window models.SlotWindow) ([]models.BusyInterval, error) {
	logger := utils.GetLogger()

	ctx, cancel := context.WithTimeout(ctx, gatewayCallTimeout)
	defer cancel()

	req := &calendar.FreeBusyRequest{
		TimeMin:  window.Start.Format(time.RFC3339),
		TimeMax:  window.End.Format(time.RFC3339),
		TimeZone: window.Timezone,
		Items:    []*calendar.FreeBusyRequestItem{{Id: g.calendarID}},
	}

	resp, err := g.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		logger.Error("freebusy query failed", zap.Error(err))
		return nil, classify("queryBusy", err)
	}

	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		return nil, &APIError{Op: "queryBusy", Err: fmt.Errorf("calendar %q missing from freebusy response", g.calendarID)}
	}

	busy := make([]models.BusyInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, &APIError{Op: "queryBusy", Err: fmt.Errorf("bad busy start %q: %w", period.Start, err)}
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, &APIError{Op: "queryBusy", Err: fmt.Errorf("bad busy end %q: %w", period.End, err)}
		}
		busy = append(busy, models.BusyInterval{Start: start, End: end})
	}

	logger.Debug("freebusy query done",
		zap.String("calendarID", g.calendarID),
		zap.Int("busyIntervals", len(busy)))
	return busy, nil
}

// CreateEvent inserts the event with the slot times serialized as explicit
// RFC 3339 instants plus the slot's timezone, and asks Google to notify
// the attendee.
func (g *GoogleCalendarGateway) CreateEvent(ctx context.Context, slot models.BookingSlot, summary, attendeeEmail string) (*models.CalendarEvent, error) {
	logger := utils.GetLogger()

	ctx, cancel := context.WithTimeout(ctx, gatewayCallTimeout)
	defer cancel()

	event := &calendar.Event{
		Summary:     summary,
		Description: "Booked via scheduling assistant",
		Start: &calendar.EventDateTime{
			DateTime: slot.Start.Format(time.RFC3339),
			TimeZone: slot.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: slot.End.Format(time.RFC3339),
			TimeZone: slot.Timezone,
		},
		Attendees: []*calendar.EventAttendee{{Email: attendeeEmail}},
	}

	created, err := g.svc.Events.Insert(g.calendarID, event).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		logger.Error("event insert failed", zap.Error(err))
		return nil, classify("createEvent", err)
	}

	logger.Info("calendar event created",
		zap.String("eventID", created.Id),
		zap.String("attendee", attendeeEmail))

	return &models.CalendarEvent{
		EventID: created.Id,
		Link:    created.HtmlLink,
		Status:  created.Status,
	}, nil
}
