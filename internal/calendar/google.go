package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Google writes events to one Google Calendar.
type Google struct {
	events     *gcal.EventsService
	calendarID string
}

// NewGoogle builds a client for calendarID ("primary" when empty).
func NewGoogle(ctx context.Context, calendarID string, opts ...option.ClientOption) (*Google, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Google{events: gcal.NewEventsService(svc), calendarID: calendarID}, nil
}

// CredentialOptions turns a credentials setting into client options. The
// value is either inline JSON or a path to a service-account key file.
func CredentialOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{
			option.WithCredentialsJSON([]byte(creds)),
			option.WithScopes(gcal.CalendarEventsScope),
		}
	}
	return []option.ClientOption{
		option.WithCredentialsFile(creds),
		option.WithScopes(gcal.CalendarEventsScope),
	}
}

func (g *Google) CreateEvent(ctx context.Context, e Event) (string, error) {
	d := e.Duration
	if d <= 0 {
		d = taskDuration
	}
	ev := &gcal.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Start:       &gcal.EventDateTime{DateTime: e.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: e.Start.Add(d).Format(time.RFC3339)},
	}
	created, err := g.events.Insert(g.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("inserting calendar event: %w", err)
	}
	return created.Id, nil
}
