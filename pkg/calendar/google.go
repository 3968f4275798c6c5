package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/babisteps/admin-api/pkg/models"
)

// Google is a Store backed by the Calendar v3 API
type Google struct {
	svc *gcal.Service
}

// NewGoogle authorizes with a service-account file for read-only calendar access
func NewGoogle(ctx context.Context, credentialsFile string) (*Google, error) {
	if credentialsFile == "" {
		return nil, models.ConfigError("calendar", fmt.Errorf("SERVICE_ACCOUNT_FILE: %w", models.ErrNotConfigured))
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		return nil, models.ConfigError("calendar", fmt.Errorf("service account file: %w", err))
	}
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarReadonlyScope),
	)
	if err != nil {
		return nil, models.ProviderError("calendar", err)
	}
	return &Google{svc: svc}, nil
}

func (g *Google) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, max int64) ([]RawEvent, error) {
	resp, err := g.svc.Events.List(calendarID).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		TimeMax(timeMax.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(max).
		Context(ctx).Do()
	if err != nil {
		return nil, models.ProviderError("calendar", fmt.Errorf("list %s: %w", calendarID, err))
	}

	events := make([]RawEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Status == "cancelled" {
			continue
		}
		ev := RawEvent{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Location:    item.Location,
		}
		if item.Start != nil {
			ev.StartDateTime, ev.StartDate = item.Start.DateTime, item.Start.Date
		}
		if item.End != nil {
			ev.EndDateTime, ev.EndDate = item.End.DateTime, item.End.Date
		}
		if item.Organizer != nil {
			ev.OrganizerEmail = item.Organizer.Email
		}
		if item.Creator != nil {
			ev.CreatorEmail = item.Creator.Email
		}
		for _, a := range item.Attendees {
			if a != nil && a.Email != "" {
				ev.Attendees = append(ev.Attendees, a.Email)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}
