package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrTabNotFound is returned when a worksheet does not exist
var ErrTabNotFound = errors.New("worksheet not found")

// Row is one data row of a worksheet, keyed by header.
// Number is the 1-based sheet row (the header is row 1, so data starts at 2).
type Row struct {
	Number int
	Values map[string]string
}

// Get returns the trimmed value of the first header present
func (r Row) Get(headers ...string) string {
	for _, h := range headers {
		if v, ok := r.Values[h]; ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Store is the spreadsheet collaborator. One Store is bound to one
// spreadsheet; tabs are addressed by title.
type Store interface {
	// ReadRows returns the header row and every data row of tab
	ReadRows(ctx context.Context, tab string) ([]string, []Row, error)
	// AppendRow adds values after the last data row
	AppendRow(ctx context.Context, tab string, values []string) error
	// UpdateCell sets a single cell; row and col are 1-based
	UpdateCell(ctx context.Context, tab string, row, col int, value string) error
	// UpdateRange writes a grid starting at the top-left of an A1 range
	UpdateRange(ctx context.Context, tab string, a1Range string, values [][]string) error
	// DeleteRow removes a 1-based row, shifting the rows below up
	DeleteRow(ctx context.Context, tab string, row int) error
	// EnsureTab creates tab with the given header row if it does not exist
	EnsureTab(ctx context.Context, tab string, headers []string) error
	// Tabs lists worksheet titles in sheet order
	Tabs(ctx context.Context) ([]string, error)
}

// rowsFromGrid turns a raw value grid into header + keyed rows.
// Rows that are entirely empty are skipped but keep their numbering.
func rowsFromGrid(grid [][]string) ([]string, []Row) {
	if len(grid) == 0 {
		return []string{}, []Row{}
	}
	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(grid)-1)
	for i, raw := range grid[1:] {
		if isBlank(raw) {
			continue
		}
		values := make(map[string]string, len(headers))
		for col, h := range headers {
			if h == "" {
				continue
			}
			if col < len(raw) {
				values[h] = raw[col]
			} else {
				values[h] = ""
			}
		}
		rows = append(rows, Row{Number: i + 2, Values: values})
	}
	return headers, rows
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ColumnLetter converts a 1-based column index to its A1 letters
func ColumnLetter(col int) string {
	if col < 1 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// RowRange returns the A1 range covering width columns of one row, e.g. A5:G5
func RowRange(row, width int) string {
	return fmt.Sprintf("A%d:%s%d", row, ColumnLetter(width), row)
}

// parseA1Start returns the 1-based row and column of the top-left cell of a range
func parseA1Start(a1 string) (row, col int, err error) {
	cell := a1
	if i := strings.Index(cell, ":"); i >= 0 {
		cell = cell[:i]
	}
	cell = strings.ToUpper(strings.TrimSpace(cell))
	i := 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		col = col*26 + int(cell[i]-'A'+1)
		i++
	}
	if i == 0 || i == len(cell) {
		return 0, 0, fmt.Errorf("invalid A1 range %q", a1)
	}
	for ; i < len(cell); i++ {
		if cell[i] < '0' || cell[i] > '9' {
			return 0, 0, fmt.Errorf("invalid A1 range %q", a1)
		}
		row = row*10 + int(cell[i]-'0')
	}
	if row < 1 {
		return 0, 0, fmt.Errorf("invalid A1 range %q", a1)
	}
	return row, col, nil
}
