package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/babisteps/admin-api/pkg/models"
)

var jerusalem = time.FixedZone("IST", 2*3600)

type recordingStore struct {
	Memory
	timeMin, timeMax time.Time
	max              int64
}

func (r *recordingStore) ListEvents(ctx context.Context, id string, timeMin, timeMax time.Time, max int64) ([]RawEvent, error) {
	r.timeMin, r.timeMax, r.max = timeMin, timeMax, max
	return r.Memory.ListEvents(ctx, id, timeMin, timeMax, max)
}

func TestFetchMonth_WindowIsLocalMonthInUTC(t *testing.T) {
	store := &recordingStore{}
	f := NewFetcher(store, "", 0, jerusalem)

	if _, err := f.FetchMonth(context.Background(), 2024, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantMin := time.Date(2024, 2, 29, 22, 0, 0, 0, time.UTC)
	wantMax := time.Date(2024, 3, 31, 22, 0, 0, 0, time.UTC)
	if !store.timeMin.Equal(wantMin) || store.timeMin.Location() != time.UTC {
		t.Errorf("Expected timeMin %v, got %v", wantMin, store.timeMin)
	}
	if !store.timeMax.Equal(wantMax) {
		t.Errorf("Expected timeMax %v, got %v", wantMax, store.timeMax)
	}
	if store.max != DefaultMaxResults {
		t.Errorf("Expected max results %d, got %d", DefaultMaxResults, store.max)
	}
}

func TestFetchEvents_HalfOpenBoundary(t *testing.T) {
	store := NewMemory(
		RawEvent{ID: "before", Summary: "Acme", StartDateTime: "2024-02-29T23:59:00+02:00", EndDateTime: "2024-03-01T01:00:00+02:00"},
		RawEvent{ID: "first", Summary: "Acme", StartDateTime: "2024-03-01T00:00:00+02:00", EndDateTime: "2024-03-01T01:00:00+02:00"},
		RawEvent{ID: "last", Summary: "Acme", StartDateTime: "2024-03-31T23:30:00+02:00", EndDateTime: "2024-04-01T00:30:00+02:00"},
		RawEvent{ID: "next", Summary: "Acme", StartDateTime: "2024-04-01T00:00:00+02:00", EndDateTime: "2024-04-01T01:00:00+02:00"},
	)
	f := NewFetcher(store, "primary", 1000, jerusalem)

	events, err := f.FetchMonth(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].ID != "first" || events[1].ID != "last" {
		t.Errorf("Expected [first last], got [%s %s]", events[0].ID, events[1].ID)
	}
}

func TestFetchEvents_StoreFailureYieldsEmptyProviderError(t *testing.T) {
	store := NewMemory()
	store.Fail = errors.New("quota exceeded")
	f := NewFetcher(store, "primary", 0, jerusalem)

	events, err := f.FetchMonth(context.Background(), 2024, 3)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if events == nil || len(events) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", events)
	}
	if models.KindOf(err) != models.KindProvider {
		t.Errorf("Expected provider error, got %s", models.KindOf(err))
	}
}

func TestFetchEvents_NilStoreIsConfigError(t *testing.T) {
	f := NewFetcher(nil, "", 0, jerusalem)
	events, err := f.FetchMonth(context.Background(), 2024, 3)
	if models.KindOf(err) != models.KindConfig {
		t.Errorf("Expected config error, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
}

func TestFetchEvents_PassesUnparsableThrough(t *testing.T) {
	store := NewMemory(RawEvent{ID: "bad", Summary: "Acme", StartDateTime: "not-a-date", EndDateTime: ""})
	f := NewFetcher(store, "primary", 0, jerusalem)

	events, err := f.FetchMonth(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || !events[0].Start.IsZero() {
		t.Fatalf("Expected one event with zero start, got %+v", events)
	}
}

func TestConvert_AllDayAndNaive(t *testing.T) {
	ev, err := Convert(RawEvent{ID: "a", StartDate: "2024-03-10", EndDate: "2024-03-12"}, jerusalem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ev.AllDay {
		t.Error("Expected all-day event")
	}
	if got := DurationHours(ev.Start, ev.End, ev.AllDay, 8); got != 16 {
		t.Errorf("Expected 16 hours for a two-day all-day event, got %f", got)
	}

	ev, err = Convert(RawEvent{ID: "b", StartDateTime: "2024-03-10T10:00:00", EndDateTime: "2024-03-10T12:30:00"}, jerusalem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.AllDay {
		t.Error("Expected timed event")
	}
	if ev.Start.UTC().Hour() != 8 {
		t.Errorf("Expected naive time localized to +02:00, got %v", ev.Start.UTC())
	}
	if got := DurationHours(ev.Start, ev.End, ev.AllDay, 8); got != 2.5 {
		t.Errorf("Expected 2.5 hours, got %f", got)
	}

	if _, err := Convert(RawEvent{ID: "c", StartDateTime: "2024-03-10T10:00:00Z"}, jerusalem); models.KindOf(err) != models.KindData {
		t.Errorf("Expected data error for missing end, got %v", err)
	}
}
