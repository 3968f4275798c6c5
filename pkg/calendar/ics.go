package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/babisteps/admin-api/pkg/models"
)

// maxOccurrencesPerEvent caps recurrence expansion of a single VEVENT
const maxOccurrencesPerEvent = 5000

// ICS is a Store that reads a published iCalendar feed. It is used when the
// calendar is shared by secret address instead of a service account.
type ICS struct {
	URL    string
	Client *http.Client
}

// NewICS creates an ICS store for url
func NewICS(url string) *ICS {
	return &ICS{URL: url, Client: &http.Client{Timeout: 15 * time.Second}}
}

// ListEvents fetches the feed, expands recurrences into the window and
// returns single events ordered by start. calendarID is ignored.
func (s *ICS) ListEvents(ctx context.Context, _ string, timeMin, timeMax time.Time, max int64) ([]RawEvent, error) {
	if s.URL == "" {
		return nil, models.ConfigError("calendar", fmt.Errorf("CALENDAR_ICS_URL: %w", models.ErrNotConfigured))
	}
	body, err := s.fetch(ctx)
	if err != nil {
		return nil, models.ProviderError("calendar", err)
	}
	events, err := ParseICS(body, timeMin, timeMax)
	if err != nil {
		return nil, models.ProviderError("calendar", err)
	}
	if max > 0 && int64(len(events)) > max {
		events = events[:max]
	}
	return events, nil
}

func (s *ICS) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return io.ReadAll(resp.Body)
}

type icsEvent struct {
	raw       RawEvent
	start     time.Time
	end       time.Time
	allDay    bool
	rrule     string
	exdates   []time.Time
	recurID   *time.Time
	uid       string
	cancelled bool
}

// ParseICS parses an iCalendar payload and expands it into single events
// overlapping [timeMin, timeMax), ordered by start.
func ParseICS(body []byte, timeMin, timeMax time.Time) ([]RawEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	var base []icsEvent
	overrides := make(map[string][]icsEvent)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			slog.Warn("skipping vevent", "error", err)
			continue
		}
		if ev.recurID != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
			continue
		}
		base = append(base, ev)
	}

	var out []icsEvent
	for _, ev := range base {
		out = append(out, expand(ev, overrides[ev.uid], timeMin, timeMax)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })

	events := make([]RawEvent, 0, len(out))
	for _, ev := range out {
		if ev.cancelled {
			continue
		}
		events = append(events, ev.toRaw())
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (icsEvent, error) {
	var ev icsEvent
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.uid = p.Value
	}
	ev.raw.ID = ev.uid
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.raw.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.raw.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.raw.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		ev.raw.OrganizerEmail = trimMailto(p.Value)
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		if email := trimMailto(p.Value); email != "" {
			ev.raw.Attendees = append(ev.raw.Attendees, email)
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		ev.cancelled = strings.EqualFold(p.Value, "CANCELLED")
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, fmt.Errorf("vevent %s: missing DTSTART", ev.uid)
	}
	ev.allDay = !strings.Contains(dtStart.Value, "T")
	if vs, ok := dtStart.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		ev.allDay = true
	}

	var err error
	if ev.allDay {
		if ev.start, err = parseICSTime(dtStart.Value); err != nil {
			return ev, fmt.Errorf("vevent %s: %w", ev.uid, err)
		}
		ev.end = ev.start.AddDate(0, 0, 1)
		if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			if end, err := parseICSTime(p.Value); err == nil && end.After(ev.start) {
				ev.end = end
			}
		}
	} else {
		if ev.start, err = ve.GetStartAt(); err != nil {
			return ev, fmt.Errorf("vevent %s: %w", ev.uid, err)
		}
		ev.end = ev.start
		if end, err := ve.GetEndAt(); err == nil {
			ev.end = end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rrule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := propTime(p, part); err == nil {
				ev.exdates = append(ev.exdates, t)
			} else {
				slog.Warn("skipping EXDATE", "uid", ev.uid, "value", part, "error", err)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		t, err := propTime(p, p.Value)
		if err != nil {
			return ev, fmt.Errorf("vevent %s: RECURRENCE-ID: %w", ev.uid, err)
		}
		ev.recurID = &t
	}
	return ev, nil
}

func expand(ev icsEvent, overrides []icsEvent, timeMin, timeMax time.Time) []icsEvent {
	if ev.rrule == "" {
		if overlaps(ev.start, ev.end, timeMin, timeMax) {
			return []icsEvent{ev}
		}
		return nil
	}

	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		slog.Warn("bad RRULE", "uid", ev.uid, "rrule", ev.rrule, "error", err)
		return nil
	}
	r.DTStart(ev.start)
	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exdates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	dur := ev.end.Sub(ev.start)
	// widen the lower bound by the duration so occurrences that started
	// before the window but overlap it are kept
	starts := set.Between(timeMin.Add(-dur).In(ev.start.Location()), timeMax.In(ev.start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}

	out := make([]icsEvent, 0, len(starts))
	for _, s := range starts {
		occ := ev
		occ.rrule = ""
		occ.start = s
		occ.end = s.Add(dur)
		occ.raw.ID = ev.uid + "_" + s.UTC().Format("20060102T150405Z")
		for _, o := range overrides {
			if o.recurID.Equal(s) {
				o.raw.ID = occ.raw.ID
				occ = o
				break
			}
		}
		if overlaps(occ.start, occ.end, timeMin, timeMax) {
			out = append(out, occ)
		}
	}
	return out
}

func (ev icsEvent) toRaw() RawEvent {
	raw := ev.raw
	if ev.allDay {
		raw.StartDate = ev.start.Format("2006-01-02")
		raw.EndDate = ev.end.Format("2006-01-02")
	} else {
		raw.StartDateTime = ev.start.Format(time.RFC3339)
		raw.EndDateTime = ev.end.Format(time.RFC3339)
	}
	return raw
}

func overlaps(start, end, timeMin, timeMax time.Time) bool {
	if !end.After(start) {
		return !start.Before(timeMin) && start.Before(timeMax)
	}
	return start.Before(timeMax) && end.After(timeMin)
}

// propTime parses one value of a date-time property, honouring its TZID
// parameter for local times.
func propTime(p *ical.IANAProperty, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	tz, ok := p.ICalParameters["TZID"]
	if !ok || len(tz) == 0 || strings.HasSuffix(v, "Z") || !strings.Contains(v, "T") {
		return parseICSTime(v)
	}
	loc, err := time.LoadLocation(strings.Trim(tz[0], `"`))
	if err != nil {
		return time.Time{}, fmt.Errorf("TZID %q: %w", tz[0], err)
	}
	return time.ParseInLocation("20060102T150405", v, loc)
}

// parseICSTime parses the basic UTC, floating and date forms of iCalendar
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.UTC)
	default:
		return time.ParseInLocation("20060102", v, time.UTC)
	}
}
