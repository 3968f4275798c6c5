package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

const weeklyFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly-1\r\n" +
	"SUMMARY:Acme lesson\r\n" +
	"ORGANIZER;CN=Dana:mailto:dana@school.com\r\n" +
	"DTSTART:20240304T080000Z\r\n" +
	"DTEND:20240304T093000Z\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=6\r\n" +
	"EXDATE:20240311T080000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:allday-1\r\n" +
	"SUMMARY:Workshop\r\n" +
	"DTSTART;VALUE=DATE:20240320\r\n" +
	"DTEND;VALUE=DATE:20240321\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS_ExpandsRecurrence(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	events, err := ParseICS([]byte(weeklyFeed), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mar 4, 18, 25 (11 excluded) plus the all-day workshop
	weekly := 0
	for _, ev := range events {
		if strings.HasPrefix(ev.ID, "weekly-1") {
			weekly++
			if ev.OrganizerEmail != "dana@school.com" {
				t.Errorf("Expected organizer without mailto, got %q", ev.OrganizerEmail)
			}
			if ev.StartDateTime == "" {
				t.Errorf("Expected dateTime start for timed event %s", ev.ID)
			}
		}
	}
	if weekly != 3 {
		t.Errorf("Expected 3 weekly occurrences in March, got %d", weekly)
	}
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}

	var allDay *RawEvent
	for i := range events {
		if events[i].ID == "allday-1" {
			allDay = &events[i]
		}
	}
	if allDay == nil || allDay.StartDate != "2024-03-20" || allDay.EndDate != "2024-03-21" {
		t.Errorf("Expected all-day event on 2024-03-20, got %+v", allDay)
	}
}

func TestICSStore_FetchesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(weeklyFeed))
	}))
	defer srv.Close()

	store := NewICS(srv.URL)
	f := NewFetcher(store, "", 0, time.UTC)
	events, err := f.FetchMonth(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 4 {
		t.Errorf("Expected 4 events, got %d", len(events))
	}
}

func TestICSStore_HTTPErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := NewICS(srv.URL).ListEvents(context.Background(), "", time.Now(), time.Now().Add(time.Hour), 10)
	if err == nil {
		t.Fatal("Expected an error")
	}
}

const zonedFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:zoned-1\r\n" +
	"SUMMARY:Acme lesson\r\n" +
	"DTSTART;TZID=Asia/Jerusalem:20240304T100000\r\n" +
	"DTEND;TZID=Asia/Jerusalem:20240304T110000\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=4\r\n" +
	"EXDATE;TZID=Asia/Jerusalem:20240311T100000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:zoned-1\r\n" +
	"SUMMARY:Acme lesson\r\n" +
	"RECURRENCE-ID;TZID=Asia/Jerusalem:20240318T100000\r\n" +
	"DTSTART;TZID=Asia/Jerusalem:20240318T100000\r\n" +
	"DTEND;TZID=Asia/Jerusalem:20240318T130000\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS_ZonedExceptions(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, loc)

	events, err := ParseICS([]byte(zonedFeed), start, end)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Mar 4, 18 (moved), 25; Mar 11 is excluded
	if len(events) != 3 {
		t.Fatalf("Expected 3 occurrences, got %d: %+v", len(events), events)
	}
	for _, ev := range events {
		s, err := time.Parse(time.RFC3339, ev.StartDateTime)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if s.In(loc).Day() == 11 {
			t.Errorf("Expected the excluded occurrence to be dropped, got %s", ev.StartDateTime)
		}
	}

	moved, err := time.Parse(time.RFC3339, events[1].EndDateTime)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if want := time.Date(2024, 3, 18, 13, 0, 0, 0, loc); !moved.Equal(want) {
		t.Errorf("Expected the overridden occurrence to end at %s, got %s", want, moved)
	}
	if events[1].ID != "zoned-1_20240318T080000Z" {
		t.Errorf("Expected the occurrence ID to be kept, got %s", events[1].ID)
	}
}
