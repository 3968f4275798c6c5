package overrides

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/sheets"
)

// Sheet type labels for the rates tab. The English API names are accepted on read too.
const (
	LabelHourlyRate  = "תמחור שעה"
	LabelDiscountPct = "הנחה %"
)

var typeLabels = map[string]models.OverrideType{
	LabelHourlyRate:                    models.OverrideHourlyRate,
	LabelDiscountPct:                   models.OverrideDiscountPct,
	string(models.OverrideHourlyRate):  models.OverrideHourlyRate,
	string(models.OverrideDiscountPct): models.OverrideDiscountPct,
	string(models.OverrideHourlyWage):  models.OverrideHourlyWage,
}

// layout describes the columns of an override tab. An empty typeCol means
// the tab holds a single type.
type layout struct {
	keyCol, monthCol, yearCol, typeCol, valueCol string
	fixedType                                    models.OverrideType
}

func (l layout) headers() []string {
	h := []string{l.keyCol, l.monthCol, l.yearCol}
	if l.typeCol != "" {
		h = append(h, l.typeCol)
	}
	return append(h, l.valueCol)
}

func (l layout) accepts(typ models.OverrideType) bool {
	if l.typeCol == "" {
		return typ == l.fixedType
	}
	return typ == models.OverrideHourlyRate || typ == models.OverrideDiscountPct
}

var (
	rateLayout = layout{keyCol: "לקוח", monthCol: "חודש", yearCol: "שנה", typeCol: "סוג", valueCol: "ערך"}
	wageLayout = layout{keyCol: "מדריך", monthCol: "חודש", yearCol: "שנה", valueCol: "שכר שעה", fixedType: models.OverrideHourlyWage}
)

// Sheet is a Store backed by one spreadsheet tab
type Sheet struct {
	Store    sheets.Store
	Tab      string
	Defaults Defaults
	layout   layout
}

// NewRateSheet stores hourly rate and discount overrides per client
func NewRateSheet(store sheets.Store, tab string, defaults Defaults) *Sheet {
	return &Sheet{Store: store, Tab: tab, Defaults: defaults, layout: rateLayout}
}

// NewWageSheet stores hourly wage overrides per instructor
func NewWageSheet(store sheets.Store, tab string, defaults Defaults) *Sheet {
	return &Sheet{Store: store, Tab: tab, Defaults: defaults, layout: wageLayout}
}

type sheetEntry struct {
	models.Override
	row int
}

func (s *Sheet) entries(ctx context.Context) ([]string, []sheetEntry, error) {
	if s == nil || s.Store == nil {
		return nil, nil, models.ConfigError("overrides", fmt.Errorf("override spreadsheet: %w", models.ErrNotConfigured))
	}
	headers, rows, err := s.Store.ReadRows(ctx, s.Tab)
	if errors.Is(err, sheets.ErrTabNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		var me *models.Error
		if errors.As(err, &me) {
			return nil, nil, err
		}
		return nil, nil, models.ProviderError("overrides", fmt.Errorf("tab %s: %w", s.Tab, err))
	}

	out := make([]sheetEntry, 0, len(rows))
	for _, r := range rows {
		e, ok := s.parse(r)
		if !ok {
			continue
		}
		out = append(out, e)
	}
	return headers, out, nil
}

func (s *Sheet) parse(r sheets.Row) (sheetEntry, bool) {
	l := s.layout
	e := sheetEntry{row: r.Number}
	e.Key = r.Get(l.keyCol)
	if e.Key == "" {
		return e, false
	}
	month, okM := parseInt(r.Get(l.monthCol))
	year, okY := parseInt(r.Get(l.yearCol))
	value, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(r.Get(l.valueCol), "%")), 64)
	if !okM || !okY || err != nil {
		return e, false
	}
	e.Month, e.Year, e.Value = month, year, value
	if l.typeCol == "" {
		e.Type = l.fixedType
		return e, true
	}
	typ, ok := typeLabels[r.Get(l.typeCol)]
	if !ok {
		return e, false
	}
	e.Type = typ
	return e, true
}

func (s *Sheet) Get(ctx context.Context, key string, typ models.OverrideType, month, year int) (float64, bool, error) {
	_, entries, err := s.entries(ctx)
	if err != nil {
		return 0, false, err
	}
	key = strings.TrimSpace(key)
	for _, e := range entries {
		if e.Key == key && e.Type == typ && e.Month == month && e.Year == year {
			return e.Value, true, nil
		}
	}
	return 0, false, nil
}

func (s *Sheet) List(ctx context.Context, month, year int) ([]models.Override, error) {
	_, entries, err := s.entries(ctx)
	if err != nil {
		return []models.Override{}, err
	}
	out := make([]models.Override, 0, len(entries))
	for _, e := range entries {
		if e.Month == month && e.Year == year {
			out = append(out, e.Override)
		}
	}
	return out, nil
}

// Set updates the first matching row or appends one. Writing the default
// removes every matching row.
func (s *Sheet) Set(ctx context.Context, key string, typ models.OverrideType, value float64, month, year int) error {
	if err := Validate(key, typ, value, month, year); err != nil {
		return err
	}
	if !s.layout.accepts(typ) {
		return fmt.Errorf("%w: type %q not stored in %s", ErrInvalid, typ, s.Tab)
	}
	key = strings.TrimSpace(key)

	if s.Store != nil {
		if err := s.Store.EnsureTab(ctx, s.Tab, s.layout.headers()); err != nil {
			return models.ProviderError("overrides", err)
		}
	}
	headers, entries, err := s.entries(ctx)
	if err != nil {
		return err
	}
	var matches []int
	for _, e := range entries {
		if e.Key == key && e.Type == typ && e.Month == month && e.Year == year {
			matches = append(matches, e.row)
		}
	}

	if value == s.Defaults.For(typ) {
		// bottom-up so earlier row numbers stay valid
		for i := len(matches) - 1; i >= 0; i-- {
			if err := s.Store.DeleteRow(ctx, s.Tab, matches[i]); err != nil {
				return models.ProviderError("overrides", err)
			}
		}
		return nil
	}

	formatted := strconv.FormatFloat(value, 'f', -1, 64)
	if len(matches) > 0 {
		col := len(s.layout.headers())
		for i, h := range headers {
			if h == s.layout.valueCol {
				col = i + 1
			}
		}
		if err := s.Store.UpdateCell(ctx, s.Tab, matches[0], col, formatted); err != nil {
			return models.ProviderError("overrides", err)
		}
		return nil
	}

	values := map[string]string{
		s.layout.keyCol:   key,
		s.layout.monthCol: strconv.Itoa(month),
		s.layout.yearCol:  strconv.Itoa(year),
		s.layout.valueCol: formatted,
	}
	if s.layout.typeCol != "" {
		values[s.layout.typeCol] = labelFor(typ)
	}
	if err := s.Store.AppendRow(ctx, s.Tab, s.ordered(headers, values)); err != nil {
		return models.ProviderError("overrides", err)
	}
	return nil
}

// ordered lays values out in the tab's header order, or in the default
// column order when the tab has no header row.
func (s *Sheet) ordered(headers []string, values map[string]string) []string {
	if len(headers) == 0 {
		headers = s.layout.headers()
	}
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = values[strings.TrimSpace(h)]
	}
	return out
}

func labelFor(typ models.OverrideType) string {
	switch typ {
	case models.OverrideHourlyRate:
		return LabelHourlyRate
	case models.OverrideDiscountPct:
		return LabelDiscountPct
	}
	return string(typ)
}

// parseInt accepts "3", "03" and "3.0", which is how sheets may render numbers
func parseInt(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
