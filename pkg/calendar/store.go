package calendar

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// RawEvent is a provider record before date parsing. Start and End hold
// either an RFC 3339 dateTime or a YYYY-MM-DD date, as Google returns them.
type RawEvent struct {
	ID             string
	Summary        string
	StartDateTime  string
	StartDate      string
	EndDateTime    string
	EndDate        string
	OrganizerEmail string
	CreatorEmail   string
	Description    string
	Location       string
	Attendees      []string
}

// StartValue returns dateTime if present, otherwise date
func (r RawEvent) StartValue() string {
	if r.StartDateTime != "" {
		return r.StartDateTime
	}
	return r.StartDate
}

// EndValue returns dateTime if present, otherwise date
func (r RawEvent) EndValue() string {
	if r.EndDateTime != "" {
		return r.EndDateTime
	}
	return r.EndDate
}

// Store is the calendar collaborator. ListEvents returns single (expanded)
// events overlapping [timeMin, timeMax), ordered by start, at most max.
type Store interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, max int64) ([]RawEvent, error)
}

// Memory is an in-process Store for tests and local runs
type Memory struct {
	mu     sync.Mutex
	events []RawEvent

	// Fail, when set, is returned by ListEvents
	Fail error
	// Calls counts ListEvents invocations
	Calls int
}

// NewMemory creates a Memory store holding events
func NewMemory(events ...RawEvent) *Memory {
	return &Memory{events: events}
}

// Add appends events
func (m *Memory) Add(events ...RawEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// ListEvents filters by overlap with the window like the Google API does.
// Unparsable events are returned as-is so callers see them.
func (m *Memory) ListEvents(_ context.Context, _ string, timeMin, timeMax time.Time, max int64) ([]RawEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Fail != nil {
		return nil, m.Fail
	}

	type keyed struct {
		ev    RawEvent
		start time.Time
	}
	var out []keyed
	for _, ev := range m.events {
		start, _, errS := parseBoundary(ev.StartValue(), time.UTC)
		end, _, errE := parseBoundary(ev.EndValue(), time.UTC)
		if errS == nil && errE == nil {
			if !start.Before(timeMax) || !end.After(timeMin) {
				continue
			}
		}
		out = append(out, keyed{ev: ev, start: start})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })

	events := make([]RawEvent, 0, len(out))
	for _, k := range out {
		if max > 0 && int64(len(events)) >= max {
			break
		}
		events = append(events, k.ev)
	}
	return events, nil
}

// trimMailto strips a leading mailto: from ICS calendar addresses
func trimMailto(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		return v[7:]
	}
	return v
}
