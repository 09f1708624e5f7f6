// internal/common/google/calendar.go
package google

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarService abstracts interview event creation so the dispatcher can
// be tested without the live API.
type CalendarService interface {
	// CreateEvent inserts an event with the candidate as attendee and
	// returns the created event id.
	CreateEvent(ctx context.Context, req EventRequest) (string, error)
}

// EventRequest describes one interview slot.
type EventRequest struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
	Timezone      string
}

// CalendarClient implements CalendarService over the Google Calendar API.
type CalendarClient struct {
	svc        *calendar.Service
	calendarID string
}

// NewCalendarClient builds a Calendar-backed event service.
func NewCalendarClient(ctx context.Context, credentialsFile, calendarID string) (*CalendarClient, error) {
	opts := []option.ClientOption{
		option.WithScopes(calendar.CalendarEventsScope),
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}
	return &CalendarClient{svc: svc, calendarID: calendarID}, nil
}

func (c *CalendarClient) CreateEvent(ctx context.Context, req EventRequest) (string, error) {
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}

	event := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: req.End.Format(time.RFC3339),
			TimeZone: tz,
		},
		Attendees: []*calendar.EventAttendee{
			{Email: req.AttendeeEmail},
		},
		Reminders: &calendar.EventReminders{UseDefault: true, ForceSendFields: []string{"UseDefault"}},
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}

	return created.Id, nil
}
