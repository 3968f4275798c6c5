package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/babisteps/admin-api/pkg/models"
)

// Scopes requested for the service account
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive",
}

const valueInputOption = "USER_ENTERED"

// Google is a Store backed by the Sheets v4 API
type Google struct {
	svc           *gsheets.Service
	spreadsheetID string

	// sheet IDs by title, needed for structural requests such as row deletion
	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewGoogle authorizes with a service-account file and binds to one spreadsheet.
// Missing settings yield a config error so callers can fail closed.
func NewGoogle(ctx context.Context, credentialsFile, spreadsheetID string) (*Google, error) {
	if spreadsheetID == "" {
		return nil, models.ConfigError("sheets", fmt.Errorf("spreadsheet id: %w", models.ErrNotConfigured))
	}
	if credentialsFile == "" {
		return nil, models.ConfigError("sheets", fmt.Errorf("SERVICE_ACCOUNT_FILE: %w", models.ErrNotConfigured))
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		return nil, models.ConfigError("sheets", fmt.Errorf("service account file: %w", err))
	}

	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(Scopes...),
	)
	if err != nil {
		return nil, models.ProviderError("sheets", err)
	}
	return &Google{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *Google) ReadRows(ctx context.Context, tab string) ([]string, []Row, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, quoteTab(tab)).Context(ctx).Do()
	if err != nil {
		if g.missingTab(ctx, tab, err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
		}
		return nil, nil, models.ProviderError("sheets", fmt.Errorf("read %s: %w", tab, err))
	}
	grid := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		grid[i] = make([]string, len(raw))
		for j, v := range raw {
			grid[i][j] = fmt.Sprint(v)
		}
	}
	headers, rows := rowsFromGrid(grid)
	return headers, rows, nil
}

func (g *Google) AppendRow(ctx context.Context, tab string, values []string) error {
	vr := &gsheets.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, quoteTab(tab), vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return models.ProviderError("sheets", fmt.Errorf("append %s: %w", tab, err))
	}
	return nil
}

func (g *Google) UpdateCell(ctx context.Context, tab string, row, col int, value string) error {
	return g.UpdateRange(ctx, tab, fmt.Sprintf("%s%d", ColumnLetter(col), row), [][]string{{value}})
}

func (g *Google) UpdateRange(ctx context.Context, tab string, a1Range string, values [][]string) error {
	grid := make([][]interface{}, len(values))
	for i, r := range values {
		grid[i] = toInterfaces(r)
	}
	rng := quoteTab(tab) + "!" + a1Range
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, &gsheets.ValueRange{Values: grid}).
		ValueInputOption(valueInputOption).
		Context(ctx).Do()
	if err != nil {
		return models.ProviderError("sheets", fmt.Errorf("update %s: %w", rng, err))
	}
	return nil
}

func (g *Google) DeleteRow(ctx context.Context, tab string, row int) error {
	sheetID, err := g.sheetID(ctx, tab)
	if err != nil {
		return err
	}
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return models.ProviderError("sheets", fmt.Errorf("delete row %d of %s: %w", row, tab, err))
	}
	return nil
}

func (g *Google) EnsureTab(ctx context.Context, tab string, headers []string) error {
	if _, err := g.sheetID(ctx, tab); err == nil {
		return nil
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: tab},
			},
		}},
	}
	resp, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return models.ProviderError("sheets", fmt.Errorf("add sheet %s: %w", tab, err))
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		g.mu.Lock()
		if g.sheetIDs == nil {
			g.sheetIDs = make(map[string]int64)
		}
		g.sheetIDs[tab] = resp.Replies[0].AddSheet.Properties.SheetId
		g.mu.Unlock()
	}
	if len(headers) == 0 {
		return nil
	}
	return g.UpdateRange(ctx, tab, RowRange(1, len(headers)), [][]string{headers})
}

func (g *Google) Tabs(ctx context.Context) ([]string, error) {
	return g.loadSheetIDs(ctx)
}

func (g *Google) sheetID(ctx context.Context, tab string) (int64, error) {
	g.mu.Lock()
	id, ok := g.sheetIDs[tab]
	g.mu.Unlock()
	if ok {
		return id, nil
	}
	if _, err := g.loadSheetIDs(ctx); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.sheetIDs[tab]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
}

// loadSheetIDs refreshes the title to ID cache and returns titles in sheet order
func (g *Google) loadSheetIDs(ctx context.Context) ([]string, error) {
	resp, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, models.ProviderError("sheets", err)
	}
	ids := make(map[string]int64, len(resp.Sheets))
	titles := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		ids[s.Properties.Title] = s.Properties.SheetId
		titles = append(titles, s.Properties.Title)
	}
	g.mu.Lock()
	g.sheetIDs = ids
	g.mu.Unlock()
	return titles, nil
}

// missingTab reports whether err is the 400 "Unable to parse range" the API
// returns for an unknown tab. The title list is reloaded to confirm, since
// malformed ranges get the same status.
func (g *Google) missingTab(ctx context.Context, tab string, err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusBadRequest {
		return false
	}
	titles, lerr := g.loadSheetIDs(ctx)
	return lerr == nil && !slices.Contains(titles, tab)
}

// quoteTab wraps a sheet title for use in an A1 range. Embedded
// apostrophes are doubled.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
