package export

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/babisteps/admin-api/pkg/models"
)

// HebrewMonths names months 1..12 as they appear in worksheet titles
var HebrewMonths = [12]string{
	"ינואר", "פברואר", "מרץ", "אפריל", "מאי", "יוני",
	"יולי", "אוגוסט", "ספטמבר", "אוקטובר", "נובמבר", "דצמבר",
}

var (
	BillingHeaders = []string{"לקוח", "סהכ שעות", "לפי מדריך", "מדריך", "תמחור שעה", "הנחה %", "סיכום"}
	PaymentHeaders = []string{"מדריך", "סהכ שעות", "לפי לקוח", "לקוח", "שכר שעה", "סיכום"}
)

// Table is a report laid out for a worksheet: a header row and string cells
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Grid returns the header row followed by the data rows
func (t Table) Grid() [][]string {
	grid := make([][]string, 0, len(t.Rows)+1)
	grid = append(grid, t.Headers)
	return append(grid, t.Rows...)
}

// WorksheetName is the title of a month's export tab, e.g. "מרץ 2024"
func WorksheetName(month, year int) string {
	if month < 1 || month > 12 {
		return strconv.Itoa(year)
	}
	return fmt.Sprintf("%s %d", HebrewMonths[month-1], year)
}

// ParseWorksheetName is the inverse of WorksheetName
func ParseWorksheetName(name string) (month, year int, ok bool) {
	parts := strings.Fields(name)
	if len(parts) != 2 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	for i, m := range HebrewMonths {
		if m == parts[0] {
			return i + 1, y, true
		}
	}
	return 0, 0, false
}

// BillingTable lays out a billing report. The per-instructor breakdown goes
// into two multi-line cells: hours, and the matching instructor names.
func BillingTable(r models.BillingReport) Table {
	t := Table{Title: WorksheetName(r.Month, r.Year), Headers: BillingHeaders}
	for _, rec := range r.Records {
		names, hours := breakdown(rec.HoursByInstructor)
		t.Rows = append(t.Rows, []string{
			rec.Client,
			number(rec.TotalHours),
			hours,
			names,
			number(rec.Rate),
			number(rec.DiscountPct),
			number(rec.Total),
		})
	}
	return t
}

// PaymentTable lays out a payment report
func PaymentTable(r models.PaymentReport) Table {
	t := Table{Title: WorksheetName(r.Month, r.Year), Headers: PaymentHeaders}
	for _, rec := range r.Records {
		names, hours := breakdown(rec.HoursByClient)
		t.Rows = append(t.Rows, []string{
			rec.Instructor,
			number(rec.TotalHours),
			hours,
			names,
			number(rec.HourlyWage),
			number(rec.TotalPayment),
		})
	}
	return t
}

func breakdown(m map[string]float64) (names, hours string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	n := make([]string, len(keys))
	h := make([]string, len(keys))
	for i, k := range keys {
		n[i] = k
		h[i] = number(m[k])
	}
	return strings.Join(n, "\n"), strings.Join(h, "\n")
}

// number renders v without trailing zeros
func number(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
