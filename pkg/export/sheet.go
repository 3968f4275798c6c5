package export

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/sheets"
)

// Result describes one export to a worksheet
type Result struct {
	Worksheet   string `json:"worksheet"`
	Created     bool   `json:"created"`
	RowsWritten int    `json:"rows_written"`
	Rows        int    `json:"rows"`
}

// Worksheet is a month-named export tab
type Worksheet struct {
	Title string `json:"title"`
	Month int    `json:"month"`
	Year  int    `json:"year"`
}

// ToSheet writes t to the tab named t.Title, creating it if needed.
// Only rows that differ from the current contents are rewritten; stale rows
// below the new table are blanked.
func ToSheet(ctx context.Context, store sheets.Store, t Table) (Result, error) {
	res := Result{Worksheet: t.Title, Rows: len(t.Rows)}
	if store == nil {
		return res, models.ConfigError("export", fmt.Errorf("export spreadsheet: %w", models.ErrNotConfigured))
	}

	headers, rows, err := store.ReadRows(ctx, t.Title)
	if errors.Is(err, sheets.ErrTabNotFound) {
		if err := store.EnsureTab(ctx, t.Title, nil); err != nil {
			return res, models.ProviderError("export", err)
		}
		res.Created = true
		headers, rows, err = nil, nil, nil
	}
	if err != nil {
		return res, models.ProviderError("export", err)
	}

	current := currentGrid(headers, rows)
	next := t.Grid()
	width := len(t.Headers)
	for i, row := range next {
		if i < len(current) && equalRow(current[i], row) {
			continue
		}
		if err := store.UpdateRange(ctx, t.Title, sheets.RowRange(i+1, width), [][]string{row}); err != nil {
			return res, models.ProviderError("export", err)
		}
		res.RowsWritten++
	}
	for i := len(next); i < len(current); i++ {
		if isEmpty(current[i]) {
			continue
		}
		w := len(current[i])
		if w < width {
			w = width
		}
		if err := store.UpdateRange(ctx, t.Title, sheets.RowRange(i+1, w), [][]string{make([]string, w)}); err != nil {
			return res, models.ProviderError("export", err)
		}
		res.RowsWritten++
	}
	return res, nil
}

// Worksheets lists the month-named tabs of store, newest first
func Worksheets(ctx context.Context, store sheets.Store) ([]Worksheet, error) {
	if store == nil {
		return []Worksheet{}, models.ConfigError("export", fmt.Errorf("export spreadsheet: %w", models.ErrNotConfigured))
	}
	titles, err := store.Tabs(ctx)
	if err != nil {
		return []Worksheet{}, models.ProviderError("export", err)
	}
	out := make([]Worksheet, 0, len(titles))
	for _, title := range titles {
		if m, y, ok := ParseWorksheetName(title); ok {
			out = append(out, Worksheet{Title: title, Month: m, Year: y})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

// currentGrid rebuilds the positional grid of a tab from its keyed rows
func currentGrid(headers []string, rows []sheets.Row) [][]string {
	if len(headers) == 0 {
		return nil
	}
	last := 1
	if len(rows) > 0 {
		last = rows[len(rows)-1].Number
	}
	grid := make([][]string, last)
	grid[0] = headers
	for _, r := range rows {
		vals := make([]string, len(headers))
		for i, h := range headers {
			vals[i] = r.Values[h]
		}
		grid[r.Number-1] = vals
	}
	return grid
}

func equalRow(a, b []string) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y string
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return false
		}
	}
	return true
}

func isEmpty(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
