package sheets

import (
	"context"
	"errors"
	"testing"
)

func TestMemory_ReadAppendUpdateDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory().Seed("tab", []string{"name", "phone"}, []string{"a", "1"}, []string{"", ""}, []string{"b", "2"})

	headers, rows, err := m.ReadRows(ctx, "tab")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(headers) != 2 || len(rows) != 2 {
		t.Fatalf("Expected 2 headers and 2 rows, got %v %v", headers, rows)
	}
	if rows[1].Number != 4 || rows[1].Get("name") != "b" {
		t.Errorf("Expected blank rows to keep numbering, got %+v", rows[1])
	}

	if err := m.AppendRow(ctx, "tab", []string{"c", "3"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := m.UpdateCell(ctx, "tab", 2, 2, "9"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := m.DeleteRow(ctx, "tab", 3); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	grid := m.Grid("tab")
	if len(grid) != 4 || grid[1][1] != "9" || grid[3][0] != "c" {
		t.Errorf("Unexpected grid %v", grid)
	}
}

func TestMemory_Tabs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, _, err := m.ReadRows(ctx, "missing"); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("Expected ErrTabNotFound, got %v", err)
	}
	_ = m.EnsureTab(ctx, "b", []string{"x"})
	_ = m.EnsureTab(ctx, "a", nil)
	_ = m.EnsureTab(ctx, "b", []string{"ignored"})
	tabs, _ := m.Tabs(ctx)
	if len(tabs) != 2 || tabs[0] != "b" {
		t.Errorf("Expected tabs in creation order, got %v", tabs)
	}
	if m.Grid("b")[0][0] != "x" {
		t.Error("Expected EnsureTab not to overwrite an existing tab")
	}
}

func TestColumnLetterAndRange(t *testing.T) {
	if ColumnLetter(1) != "A" || ColumnLetter(27) != "AA" || ColumnLetter(0) != "" {
		t.Error("Unexpected column letters")
	}
	if RowRange(5, 7) != "A5:G5" {
		t.Errorf("Unexpected range %s", RowRange(5, 7))
	}
	row, col, err := parseA1Start("C12:D12")
	if err != nil || row != 12 || col != 3 {
		t.Errorf("Unexpected parse %d %d %v", row, col, err)
	}
	if _, _, err := parseA1Start("12"); err == nil {
		t.Error("Expected invalid range error")
	}
}
