package billing

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/babisteps/admin-api/pkg/calendar"
	"github.com/babisteps/admin-api/pkg/config"
	"github.com/babisteps/admin-api/pkg/directory"
	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/overrides"
	"github.com/babisteps/admin-api/pkg/sheets"
)

var ist = time.FixedZone("IST", 2*3600)

var defaults = overrides.Defaults{HourlyRate: 350, DiscountPct: 0, HourlyWage: 200}

type fixture struct {
	sheet *sheets.Memory
	cal   *calendar.Memory
	rates *overrides.Sheet
	wages *overrides.Sheet
	agg   *Aggregator
}

func newFixture(clients []string, events ...calendar.RawEvent) *fixture {
	tabs := config.Default().Tabs
	priv := make([][]string, 0, len(clients))
	for _, c := range clients {
		priv = append(priv, []string{c})
	}
	mem := sheets.NewMemory().
		Seed(tabs.PrivateClients, []string{"שם", "טלפון"}, priv...).
		Seed(tabs.InstitutionalClients, []string{"גוף", "איש קשר"}).
		Seed(tabs.Instructors, []string{"שם", "טלפון", "מייל"},
			[]string{"Dana Cohen", "", "dana@school.com"},
			[]string{"Eli Levi", "", "eli@school.com"},
		)
	cal := calendar.NewMemory(events...)
	f := &fixture{
		sheet: mem,
		cal:   cal,
		rates: overrides.NewRateSheet(mem, tabs.RatesDiscounts, defaults),
		wages: overrides.NewWageSheet(mem, tabs.Wages, defaults),
	}
	f.agg = &Aggregator{
		Directory:   directory.New(mem, tabs),
		Events:      calendar.NewFetcher(cal, "primary", 1000, ist),
		Rates:       f.rates,
		Wages:       f.wages,
		Defaults:    defaults,
		AllDayHours: 8,
	}
	return f
}

func event(id, title, organizer, start, end string) calendar.RawEvent {
	return calendar.RawEvent{ID: id, Summary: title, OrganizerEmail: organizer, StartDateTime: start, EndDateTime: end}
}

func findBilling(r models.BillingReport, client string) *models.BillingRecord {
	for i := range r.Records {
		if r.Records[i].Client == client {
			return &r.Records[i]
		}
	}
	return nil
}

func TestComputeBilling_SingleMatch(t *testing.T) {
	f := newFixture([]string{"Acme", "Beta"},
		event("1", "Acme lesson", "dana@school.com", "2024-03-05T10:00:00+02:00", "2024-03-05T12:30:00+02:00"),
		event("2", "Team meeting", "dana@school.com", "2024-03-06T10:00:00+02:00", "2024-03-06T11:00:00+02:00"),
		event("3", "Beta", "eli@school.com", "2024-03-07T10:00:00+02:00", "2024-03-07T11:00:00+02:00"),
	)

	r := f.agg.ComputeBilling(context.Background(), 3, 2024, true)
	if r.Status != models.StatusSuccess {
		t.Errorf("Expected success, got %s: %+v", r.Status, r.Issues)
	}
	if len(r.Records) != 2 {
		t.Fatalf("Expected 2 clients, got %d", len(r.Records))
	}
	if r.Records[0].Client != "Acme" || r.Records[1].Client != "Beta" {
		t.Errorf("Expected records sorted by client, got %s, %s", r.Records[0].Client, r.Records[1].Client)
	}
	acme := r.Records[0]
	if acme.TotalHours != 2.5 {
		t.Errorf("Expected 2.5 hours for Acme, got %f", acme.TotalHours)
	}
	if acme.HoursByInstructor["Dana Cohen"] != 2.5 {
		t.Errorf("Expected hours attributed to Dana Cohen, got %v", acme.HoursByInstructor)
	}
	if acme.Rate != 350 || acme.DiscountPct != 0 || acme.Total != 875 {
		t.Errorf("Expected default pricing 2.5*350=875, got rate=%v discount=%v total=%v", acme.Rate, acme.DiscountPct, acme.Total)
	}
	if r.EventsFetched != 3 || r.EventsMatched != 2 {
		t.Errorf("Expected 3 fetched / 2 matched, got %d / %d", r.EventsFetched, r.EventsMatched)
	}
}

func TestComputeBilling_AmbiguousTitleTieBreak(t *testing.T) {
	f := newFixture([]string{"Acme Labs", "Acme"},
		event("1", "Acme Labs session", "dana@school.com", "2024-03-05T10:00:00+02:00", "2024-03-05T11:00:00+02:00"),
	)
	r := f.agg.ComputeBilling(context.Background(), 3, 2024, false)
	if len(r.Records) != 1 {
		t.Fatalf("Expected event to count once, got %d records", len(r.Records))
	}
	if r.Records[0].Client != "Acme" {
		t.Errorf("Expected first name in canonical order (Acme), got %q", r.Records[0].Client)
	}
}

func TestComputeBilling_RateAndDiscount(t *testing.T) {
	f := newFixture([]string{"Acme"},
		event("1", "Acme", "dana@school.com", "2024-03-05T10:00:00+02:00", "2024-03-05T12:30:00+02:00"),
	)
	ctx := context.Background()
	if err := f.rates.Set(ctx, "Acme", models.OverrideDiscountPct, 10, 3, 2024); err != nil {
		t.Fatalf("set discount: %v", err)
	}

	r := f.agg.ComputeBilling(ctx, 3, 2024, true)
	if got := r.Records[0].Total; got != 787.50 {
		t.Errorf("Expected 2.5*350*0.9 = 787.50, got %v", got)
	}

	// other months keep the defaults
	f.cal.Add(event("2", "Acme", "dana@school.com", "2024-04-05T10:00:00+03:00", "2024-04-05T11:00:00+03:00"))
	r = f.agg.ComputeBilling(ctx, 4, 2024, true)
	if r.Records[0].Rate != 350 || r.Records[0].DiscountPct != 0 {
		t.Errorf("Expected defaults without override, got %+v", r.Records[0])
	}

	// includeRates=false ignores overrides
	r = f.agg.ComputeBilling(ctx, 3, 2024, false)
	if r.Records[0].Total != 875 {
		t.Errorf("Expected 875 without rates, got %v", r.Records[0].Total)
	}
}

func TestOrganizerAsymmetry(t *testing.T) {
	f := newFixture([]string{"Acme"},
		event("1", "Acme", "bob@co.com", "2024-03-05T10:00:00+02:00", "2024-03-05T11:00:00+02:00"),
		event("2", "Acme", "", "2024-03-06T10:00:00+02:00", "2024-03-06T11:00:00+02:00"),
		event("3", "Acme", "eli@school.com", "2024-03-07T10:00:00+02:00", "2024-03-07T12:00:00+02:00"),
	)
	ctx := context.Background()

	b := f.agg.ComputeBilling(ctx, 3, 2024, false)
	acme := findBilling(b, "Acme")
	if acme == nil || acme.TotalHours != 4 {
		t.Fatalf("Expected billing to count all 4 hours, got %+v", acme)
	}
	if acme.HoursByInstructor["bob"] != 1 {
		t.Errorf("Expected unknown organizer labelled bob, got %v", acme.HoursByInstructor)
	}
	if acme.HoursByInstructor[""] != 1 {
		t.Errorf("Expected missing organizer labelled empty, got %v", acme.HoursByInstructor)
	}

	p := f.agg.ComputePayment(ctx, 3, 2024)
	if len(p.Records) != 1 || p.Records[0].Instructor != "Eli Levi" {
		t.Fatalf("Expected only Eli Levi to be paid, got %+v", p.Records)
	}
	if p.Records[0].TotalHours != 2 || p.Records[0].TotalPayment != 400 {
		t.Errorf("Expected 2h at default wage 200, got %+v", p.Records[0])
	}
	if p.EventsSkipped != 2 {
		t.Errorf("Expected 2 skipped events, got %d", p.EventsSkipped)
	}
}

func TestComputePayment_WageOverride(t *testing.T) {
	f := newFixture([]string{"Acme", "Beta"},
		event("1", "Acme", "dana@school.com", "2024-03-05T10:00:00+02:00", "2024-03-05T11:30:00+02:00"),
		event("2", "Beta", "dana@school.com", "2024-03-06T10:00:00+02:00", "2024-03-06T11:00:00+02:00"),
	)
	ctx := context.Background()
	if err := f.wages.Set(ctx, "Dana Cohen", models.OverrideHourlyWage, 250, 3, 2024); err != nil {
		t.Fatalf("set wage: %v", err)
	}
	p := f.agg.ComputePayment(ctx, 3, 2024)
	if len(p.Records) != 1 {
		t.Fatalf("Expected 1 instructor, got %d", len(p.Records))
	}
	rec := p.Records[0]
	if rec.HourlyWage != 250 || rec.TotalPayment != 625 {
		t.Errorf("Expected 2.5h * 250 = 625, got wage=%v total=%v", rec.HourlyWage, rec.TotalPayment)
	}
	if rec.HoursByClient["Acme"] != 1.5 || rec.HoursByClient["Beta"] != 1 {
		t.Errorf("Unexpected per-client hours %v", rec.HoursByClient)
	}
}

func TestHoursByInstructorSumsToTotal(t *testing.T) {
	f := newFixture([]string{"Acme"},
		event("1", "Acme", "dana@school.com", "2024-03-05T10:00:00+02:00", "2024-03-05T10:45:00+02:00"),
		event("2", "Acme", "eli@school.com", "2024-03-06T10:00:00+02:00", "2024-03-06T11:15:00+02:00"),
		event("3", "Acme", "dana@school.com", "2024-03-07T10:00:00+02:00", "2024-03-07T11:30:00+02:00"),
	)
	r := f.agg.ComputeBilling(context.Background(), 3, 2024, false)
	acme := r.Records[0]
	sum := 0.0
	for _, h := range acme.HoursByInstructor {
		sum += h
	}
	if sum != acme.TotalHours || acme.TotalHours != 3.5 {
		t.Errorf("Expected per-instructor hours (%v) to sum to total %v", sum, acme.TotalHours)
	}
}

func TestBadDatesAndAllDay(t *testing.T) {
	f := newFixture([]string{"Acme"},
		event("1", "Acme", "dana@school.com", "garbage", "2024-03-05T12:00:00+02:00"),
		calendar.RawEvent{ID: "2", Summary: "Acme retreat", OrganizerEmail: "dana@school.com", StartDate: "2024-03-10", EndDate: "2024-03-11"},
	)
	ctx := context.Background()

	b := f.agg.ComputeBilling(ctx, 3, 2024, false)
	if b.EventsSkipped != 1 {
		t.Errorf("Expected the unparsable event to be skipped, got %d", b.EventsSkipped)
	}
	if b.Records[0].TotalHours != 8 {
		t.Errorf("Expected all-day event to count 8 hours, got %v", b.Records[0].TotalHours)
	}

	p := f.agg.ComputePayment(ctx, 3, 2024)
	if p.Records[0].TotalHours != 8 {
		t.Errorf("Expected payment to apply the same all-day policy, got %v", p.Records[0].TotalHours)
	}
}

func TestMonthBoundary(t *testing.T) {
	f := newFixture([]string{"Acme"},
		event("start", "Acme", "dana@school.com", "2024-03-01T00:00:00+02:00", "2024-03-01T01:00:00+02:00"),
		event("end", "Acme", "dana@school.com", "2024-04-01T00:00:00+02:00", "2024-04-01T01:00:00+02:00"),
	)
	r := f.agg.ComputeBilling(context.Background(), 3, 2024, false)
	if r.EventsMatched != 1 || r.Records[0].TotalHours != 1 {
		t.Errorf("Expected only the month-start event, got %+v", r)
	}
}

func TestIdempotent(t *testing.T) {
	f := newFixture([]string{"Acme", "Beta"},
		event("1", "Acme", "dana@school.com", "2024-03-05T10:00:00+02:00", "2024-03-05T12:00:00+02:00"),
		event("2", "Beta", "bob@co.com", "2024-03-06T10:00:00+02:00", "2024-03-06T11:00:00+02:00"),
	)
	ctx := context.Background()
	if err := f.rates.Set(ctx, "Acme", models.OverrideHourlyRate, 400, 3, 2024); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	before := f.sheet.Grid(config.Default().Tabs.RatesDiscounts)

	first := f.agg.ComputeBilling(ctx, 3, 2024, true)
	second := f.agg.ComputeBilling(ctx, 3, 2024, true)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical reports, got %+v and %+v", first, second)
	}
	if !reflect.DeepEqual(before, f.sheet.Grid(config.Default().Tabs.RatesDiscounts)) {
		t.Error("Expected overrides to be left untouched")
	}
}

func TestProviderOutageDegrades(t *testing.T) {
	f := newFixture([]string{"Acme"},
		event("1", "Acme", "dana@school.com", "2024-03-05T10:00:00+02:00", "2024-03-05T12:00:00+02:00"),
	)
	f.cal.Fail = errors.New("backend error")

	r := f.agg.ComputeBilling(context.Background(), 3, 2024, true)
	if r.Status != models.StatusDegraded {
		t.Errorf("Expected degraded status, got %s", r.Status)
	}
	if len(r.Records) != 0 {
		t.Errorf("Expected no records, got %d", len(r.Records))
	}
	if len(r.Issues) != 1 || r.Issues[0].Component != "calendar" || r.Issues[0].Kind != models.KindProvider {
		t.Errorf("Expected one calendar provider issue, got %+v", r.Issues)
	}

	empty := &Aggregator{Defaults: defaults}
	r = empty.ComputeBilling(context.Background(), 3, 2024, true)
	if r.Status != models.StatusDegraded || len(r.Records) != 0 {
		t.Errorf("Expected unconfigured aggregator to degrade, got %+v", r)
	}
	for _, is := range r.Issues {
		if is.Kind != models.KindConfig {
			t.Errorf("Expected config issues, got %+v", is)
		}
	}
}

func TestDrillDowns(t *testing.T) {
	f := newFixture([]string{"Acme", "Beta"},
		event("1", "Acme", "dana@school.com", "2024-03-05T10:00:00+02:00", "2024-03-05T11:00:00+02:00"),
		event("2", "Staff meeting", "dana@school.com", "2024-03-05T08:00:00+02:00", "2024-03-05T09:00:00+02:00"),
		event("3", "Beta", "eli@school.com", "2024-03-05T12:00:00+02:00", "2024-03-05T13:00:00+02:00"),
		event("4", "Acme", "eli@school.com", "2024-03-09T12:00:00+02:00", "2024-03-09T13:00:00+02:00"),
	)
	ctx := context.Background()

	ce := f.agg.ClientEvents(ctx, "Acme", 3, 2024)
	if len(ce.Events) != 2 || ce.Events[0].ID != "1" || ce.Events[1].ID != "4" {
		t.Errorf("Unexpected client events %+v", ce.Events)
	}

	ie := f.agg.InstructorEvents(ctx, "Dana Cohen", 3, 2024)
	if len(ie.Events) != 2 || ie.Events[0].ID != "2" || ie.Events[0].Client != "" {
		t.Errorf("Expected both of Dana's events in start order, got %+v", ie.Events)
	}

	cv := f.agg.CalendarDays(ctx, 3, 2024)
	if len(cv.Days) != 2 || cv.Days[0].Day != 5 || len(cv.Days[0].Events) != 2 || cv.Days[1].Day != 9 {
		t.Errorf("Unexpected calendar days %+v", cv.Days)
	}
}
