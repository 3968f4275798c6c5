package sheets

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store. It backs tests and local runs without
// Google credentials.
type Memory struct {
	mu    sync.Mutex
	order []string
	tabs  map[string][][]string

	// Fail, when set, is returned by every call
	Fail error
}

// NewMemory creates an empty in-memory spreadsheet
func NewMemory() *Memory {
	return &Memory{tabs: make(map[string][][]string)}
}

// Seed replaces tab with the given header and rows
func (m *Memory) Seed(tab string, headers []string, rows ...[]string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	grid := [][]string{append([]string{}, headers...)}
	for _, r := range rows {
		grid = append(grid, append([]string{}, r...))
	}
	if _, ok := m.tabs[tab]; !ok {
		m.order = append(m.order, tab)
	}
	m.tabs[tab] = grid
	return m
}

// Grid returns a copy of the raw cells of tab
func (m *Memory) Grid(tab string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.tabs[tab]
	out := make([][]string, len(src))
	for i, r := range src {
		out[i] = append([]string{}, r...)
	}
	return out
}

func (m *Memory) ReadRows(_ context.Context, tab string) ([]string, []Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, nil, m.Fail
	}
	grid, ok := m.tabs[tab]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	headers, rows := rowsFromGrid(grid)
	return headers, rows, nil
}

func (m *Memory) AppendRow(_ context.Context, tab string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	grid, ok := m.tabs[tab]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	last := len(grid)
	for last > 1 && isBlank(grid[last-1]) {
		last--
	}
	row := append([]string{}, values...)
	if last < len(grid) {
		grid[last] = row
	} else {
		grid = append(grid, row)
	}
	m.tabs[tab] = grid
	return nil
}

func (m *Memory) UpdateCell(ctx context.Context, tab string, row, col int, value string) error {
	return m.UpdateRange(ctx, tab, fmt.Sprintf("%s%d", ColumnLetter(col), row), [][]string{{value}})
}

func (m *Memory) UpdateRange(_ context.Context, tab string, a1Range string, values [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	grid, ok := m.tabs[tab]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	row, col, err := parseA1Start(a1Range)
	if err != nil {
		return err
	}
	for i, vals := range values {
		r := row - 1 + i
		for len(grid) <= r {
			grid = append(grid, []string{})
		}
		for j, v := range vals {
			c := col - 1 + j
			for len(grid[r]) <= c {
				grid[r] = append(grid[r], "")
			}
			grid[r][c] = v
		}
	}
	m.tabs[tab] = grid
	return nil
}

func (m *Memory) DeleteRow(_ context.Context, tab string, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	grid, ok := m.tabs[tab]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	if row < 1 || row > len(grid) {
		return fmt.Errorf("row %d out of range", row)
	}
	m.tabs[tab] = append(grid[:row-1], grid[row:]...)
	return nil
}

func (m *Memory) EnsureTab(_ context.Context, tab string, headers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if _, ok := m.tabs[tab]; ok {
		return nil
	}
	m.order = append(m.order, tab)
	m.tabs[tab] = [][]string{append([]string{}, headers...)}
	return nil
}

func (m *Memory) Tabs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	return append([]string{}, m.order...), nil
}
