package billing

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/overrides"
)

var hundred = decimal.NewFromInt(100)

// ComputeBilling sums the month's matched hours per client and prices them.
// With includeRates false the default rate and discount are used without
// reading the override store.
func (a *Aggregator) ComputeBilling(ctx context.Context, month, year int, includeRates bool) models.BillingReport {
	p := a.run(ctx, month, year, models.OrganizerFallback)

	type acc struct {
		total   decimal.Decimal
		byInstr map[string]decimal.Decimal
	}
	byClient := make(map[string]*acc)
	for _, m := range p.matched {
		c := byClient[m.Client]
		if c == nil {
			c = &acc{byInstr: make(map[string]decimal.Decimal)}
			byClient[m.Client] = c
		}
		h := decimal.NewFromFloat(m.DurationHours)
		c.total = c.total.Add(h)
		c.byInstr[m.Instructor] = c.byInstr[m.Instructor].Add(h)
	}

	rates := overrides.Index{}
	if includeRates {
		rates = a.overrideIndex(ctx, p, "rates", a.Rates)
	}

	records := make([]models.BillingRecord, 0, len(byClient))
	for client, c := range byClient {
		rate := rates.Value(client, models.OverrideHourlyRate, a.Defaults.HourlyRate)
		discount := rates.Value(client, models.OverrideDiscountPct, a.Defaults.DiscountPct)
		rec := models.BillingRecord{
			Client:            client,
			TotalHours:        c.total.InexactFloat64(),
			HoursByInstructor: make(map[string]float64, len(c.byInstr)),
			Rate:              rate,
			DiscountPct:       discount,
			Total:             BillingTotal(c.total, rate, discount),
		}
		for instr, h := range c.byInstr {
			rec.HoursByInstructor[instr] = h.InexactFloat64()
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Client < records[j].Client })

	p.finish()
	return models.BillingReport{ReportMeta: p.meta, Records: records}
}

// ComputePayment sums the month's matched hours per known instructor and
// applies the instructor's hourly wage. Events whose organizer is not a
// known instructor are not paid.
func (a *Aggregator) ComputePayment(ctx context.Context, month, year int) models.PaymentReport {
	p := a.run(ctx, month, year, models.OrganizerKnownOnly)

	type acc struct {
		total    decimal.Decimal
		byClient map[string]decimal.Decimal
	}
	byInstr := make(map[string]*acc)
	for _, m := range p.matched {
		c := byInstr[m.Instructor]
		if c == nil {
			c = &acc{byClient: make(map[string]decimal.Decimal)}
			byInstr[m.Instructor] = c
		}
		h := decimal.NewFromFloat(m.DurationHours)
		c.total = c.total.Add(h)
		c.byClient[m.Client] = c.byClient[m.Client].Add(h)
	}

	wages := a.overrideIndex(ctx, p, "wages", a.Wages)

	records := make([]models.PaymentRecord, 0, len(byInstr))
	for instr, c := range byInstr {
		wage := wages.Value(instr, models.OverrideHourlyWage, a.Defaults.HourlyWage)
		rec := models.PaymentRecord{
			Instructor:    instr,
			TotalHours:    c.total.InexactFloat64(),
			HoursByClient: make(map[string]float64, len(c.byClient)),
			HourlyWage:    wage,
			TotalPayment:  PaymentTotal(c.total, wage),
		}
		for client, h := range c.byClient {
			rec.HoursByClient[client] = h.InexactFloat64()
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Instructor < records[j].Instructor })

	p.finish()
	return models.PaymentReport{ReportMeta: p.meta, Records: records}
}

// BillingTotal is hours * rate * (1 - discount/100), rounded to 2 decimals
func BillingTotal(hours decimal.Decimal, rate, discountPct float64) float64 {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountPct).Div(hundred))
	return hours.Mul(decimal.NewFromFloat(rate)).Mul(factor).Round(2).InexactFloat64()
}

// PaymentTotal is hours * wage, rounded to 2 decimals
func PaymentTotal(hours decimal.Decimal, wage float64) float64 {
	return hours.Mul(decimal.NewFromFloat(wage)).Round(2).InexactFloat64()
}

// EventList is a drill-down result
type EventList struct {
	models.ReportMeta
	Events []models.MatchedEvent `json:"data"`
}

// ClientEvents returns the month's events attributed to client, in start order
func (a *Aggregator) ClientEvents(ctx context.Context, client string, month, year int) EventList {
	p := a.run(ctx, month, year, models.OrganizerFallback)
	out := make([]models.MatchedEvent, 0)
	for _, m := range p.matched {
		if m.Client == client {
			out = append(out, m)
		}
	}
	sortByStart(out)
	p.finish()
	return EventList{ReportMeta: p.meta, Events: out}
}

// InstructorEvents returns every event of the month organized by the known
// instructor with display name instructor, whether or not it names a client.
func (a *Aggregator) InstructorEvents(ctx context.Context, instructor string, month, year int) EventList {
	p := a.run(ctx, month, year, models.OrganizerKnownOnly)
	out := make([]models.MatchedEvent, 0)
	for _, m := range p.all {
		if m.Instructor == instructor {
			out = append(out, m)
		}
	}
	sortByStart(out)
	p.finish()
	return EventList{ReportMeta: p.meta, Events: out}
}

// Day is one day of the calendar view
type Day struct {
	Day    int                   `json:"day"`
	Events []models.MatchedEvent `json:"events"`
}

// CalendarView is the month's matched events grouped by day of month
type CalendarView struct {
	models.ReportMeta
	Days []Day `json:"data"`
}

// CalendarDays groups the month's client events by the local day they start on
func (a *Aggregator) CalendarDays(ctx context.Context, month, year int) CalendarView {
	p := a.run(ctx, month, year, models.OrganizerFallback)
	byDay := make(map[int][]models.MatchedEvent)
	for _, m := range p.matched {
		d := m.Start.Day()
		byDay[d] = append(byDay[d], m)
	}
	days := make([]Day, 0, len(byDay))
	for d, evs := range byDay {
		sortByStart(evs)
		days = append(days, Day{Day: d, Events: evs})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	p.finish()
	return CalendarView{ReportMeta: p.meta, Days: days}
}

func sortByStart(evs []models.MatchedEvent) {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Start.Before(evs[j].Start) })
}
