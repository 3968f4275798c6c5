package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/babisteps/admin-api/pkg/models"
)

// DefaultMaxResults caps one list query
const DefaultMaxResults = 1000

// Fetcher reads the events of a local-time window from a calendar Store
type Fetcher struct {
	Store      Store
	CalendarID string
	MaxResults int64
	Location   *time.Location
}

// NewFetcher creates a Fetcher. A nil store makes every fetch fail with a
// config error.
func NewFetcher(store Store, calendarID string, maxResults int64, loc *time.Location) *Fetcher {
	if calendarID == "" {
		calendarID = "primary"
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Fetcher{Store: store, CalendarID: calendarID, MaxResults: maxResults, Location: loc}
}

// FetchMonth returns the events of one calendar month in the fetcher's timezone
func (f *Fetcher) FetchMonth(ctx context.Context, year, month int) ([]models.CalendarEvent, error) {
	start, end := MonthWindow(year, month, f.Location)
	return f.FetchEvents(ctx, start, end)
}

// FetchEvents returns events starting in [startInclusive, endExclusive).
// The bounds are taken as local dates: their calendar day is re-anchored to
// midnight in the fetcher's timezone before the query is converted to UTC.
// On failure it returns an empty slice and a classified error.
//
// Events with unparsable boundaries are passed through with zero Start/End
// so the aggregators can count them as skipped.
func (f *Fetcher) FetchEvents(ctx context.Context, startInclusive, endExclusive time.Time) ([]models.CalendarEvent, error) {
	if f == nil || f.Store == nil {
		return []models.CalendarEvent{}, models.ConfigError("calendar", fmt.Errorf("calendar store: %w", models.ErrNotConfigured))
	}
	start := localMidnight(startInclusive, f.Location)
	end := localMidnight(endExclusive, f.Location)
	if !end.After(start) {
		return []models.CalendarEvent{}, nil
	}

	raw, err := f.Store.ListEvents(ctx, f.CalendarID, start.UTC(), end.UTC(), f.MaxResults)
	if err != nil {
		var me *models.Error
		if !errors.As(err, &me) {
			err = models.ProviderError("calendar", err)
		}
		return []models.CalendarEvent{}, err
	}

	events := make([]models.CalendarEvent, 0, len(raw))
	for _, r := range raw {
		ev, err := Convert(r, f.Location)
		if err != nil {
			slog.Debug("calendar event has unparsable dates", "id", r.ID, "error", err)
			events = append(events, ev)
			continue
		}
		if ev.Start.Before(start) || !ev.Start.Before(end) {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Convert turns a provider record into a CalendarEvent in loc. It returns a
// data error, and an event with zero Start/End, when a boundary is missing
// or cannot be parsed.
func Convert(r RawEvent, loc *time.Location) (models.CalendarEvent, error) {
	ev := models.CalendarEvent{
		ID:             r.ID,
		Title:          r.Summary,
		OrganizerEmail: r.OrganizerEmail,
		CreatorEmail:   r.CreatorEmail,
		Description:    r.Description,
		Location:       r.Location,
		Attendees:      r.Attendees,
		RawStart:       r.StartValue(),
		RawEnd:         r.EndValue(),
	}
	start, allDay, err := parseBoundary(ev.RawStart, loc)
	if err != nil {
		return ev, models.DataError("calendar", fmt.Errorf("event %s start: %w", r.ID, err))
	}
	end, _, err := parseBoundary(ev.RawEnd, loc)
	if err != nil {
		return ev, models.DataError("calendar", fmt.Errorf("event %s end: %w", r.ID, err))
	}
	ev.Start = start.In(loc)
	ev.End = end.In(loc)
	ev.AllDay = allDay
	return ev, nil
}

func localMidnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
