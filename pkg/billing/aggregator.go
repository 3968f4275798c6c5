package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/babisteps/admin-api/pkg/calendar"
	"github.com/babisteps/admin-api/pkg/directory"
	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/overrides"
)

// Directory supplies the client names and instructor usernames of a pass
type Directory interface {
	Prefetch(ctx context.Context) directory.Snapshot
}

// EventSource supplies the calendar events of a month
type EventSource interface {
	FetchMonth(ctx context.Context, year, month int) ([]models.CalendarEvent, error)
}

// Aggregator computes billing and payment reports. One aggregator serves
// every front end; it holds no per-request state.
type Aggregator struct {
	Directory   Directory
	Events      EventSource
	Rates       overrides.Store
	Wages       overrides.Store
	Defaults    overrides.Defaults
	AllDayHours float64
}

// pass is the shared first half of every report: lookups, events and the
// per-event client and instructor resolution.
type pass struct {
	meta    models.ReportMeta
	matched []models.MatchedEvent
	// all holds every event with parseable dates, matched or not
	all []models.MatchedEvent
}

func (p *pass) issue(component string, err error) {
	slog.Warn("report component failed", "component", component, "kind", models.KindOf(err), "error", err)
	p.meta.Issues = append(p.meta.Issues, models.IssueFrom(component, err))
}

func (p *pass) finish() {
	p.meta.Status = models.StatusSuccess
	if len(p.meta.Issues) > 0 {
		p.meta.Status = models.StatusDegraded
	}
}

// run fetches lookups and events and resolves each event under policy.
// It never fails: component errors become issues on the report.
func (a *Aggregator) run(ctx context.Context, month, year int, policy models.OrganizerPolicy) *pass {
	p := &pass{meta: models.ReportMeta{Month: month, Year: year}}

	var snap directory.Snapshot
	if a.Directory != nil {
		snap = a.Directory.Prefetch(ctx)
	} else {
		snap.ClientsErr = models.ConfigError("directory", models.ErrNotConfigured)
		snap.InstructorsErr = snap.ClientsErr
	}
	if snap.ClientsErr != nil {
		p.issue("clients", snap.ClientsErr)
	}
	if snap.InstructorsErr != nil {
		p.issue("instructors", snap.InstructorsErr)
	}

	var events []models.CalendarEvent
	var err error
	if a.Events == nil {
		err = models.ConfigError("calendar", models.ErrNotConfigured)
	} else {
		events, err = a.Events.FetchMonth(ctx, year, month)
	}
	if err != nil {
		p.issue("calendar", err)
	}
	p.meta.EventsFetched = len(events)

	for _, ev := range events {
		client, _ := snap.Clients.Match(ev.Title)

		instructor, known := resolveInstructor(ev, snap.Usernames)
		if !known && policy == models.OrganizerKnownOnly {
			if client != "" {
				p.meta.EventsSkipped++
				slog.Debug("event organizer is not a known instructor", "id", ev.ID, "organizer", ev.OrganizerEmail)
			}
			continue
		}

		if ev.Start.IsZero() || ev.End.IsZero() || ev.End.Before(ev.Start) {
			if client != "" {
				p.meta.EventsSkipped++
			}
			slog.Debug("event has unusable dates", "id", ev.ID, "start", ev.RawStart, "end", ev.RawEnd)
			continue
		}

		m := models.MatchedEvent{
			CalendarEvent: ev,
			Client:        client,
			Instructor:    instructor,
			DurationHours: calendar.DurationHours(ev.Start, ev.End, ev.AllDay, a.allDayHours()),
		}
		p.all = append(p.all, m)
		if client == "" {
			continue
		}
		p.matched = append(p.matched, m)
	}
	p.meta.EventsMatched = len(p.matched)
	return p
}

// resolveInstructor maps the organizer username to a display name. Unknown
// usernames come back as themselves, and a missing organizer as "".
func resolveInstructor(ev models.CalendarEvent, usernames map[string]string) (string, bool) {
	username := ev.OrganizerUsername()
	if username == "" {
		return "", false
	}
	if name, ok := usernames[username]; ok {
		return name, true
	}
	return username, false
}

func (a *Aggregator) allDayHours() float64 {
	if a.AllDayHours > 0 {
		return a.AllDayHours
	}
	return 8
}

// overrideIndex lists a month's overrides, recording an issue on failure
func (a *Aggregator) overrideIndex(ctx context.Context, p *pass, component string, store overrides.Store) overrides.Index {
	if store == nil {
		return overrides.Index{}
	}
	list, err := store.List(ctx, p.meta.Month, p.meta.Year)
	if err != nil {
		p.issue(component, err)
		return overrides.Index{}
	}
	return overrides.NewIndex(list)
}

// MonthOf returns the month and year of t
func MonthOf(t time.Time) (int, int) {
	return int(t.Month()), t.Year()
}
