package app

import (
	"context"
	"log/slog"

	"github.com/babisteps/admin-api/pkg/auth"
	"github.com/babisteps/admin-api/pkg/billing"
	"github.com/babisteps/admin-api/pkg/calendar"
	"github.com/babisteps/admin-api/pkg/config"
	"github.com/babisteps/admin-api/pkg/database"
	"github.com/babisteps/admin-api/pkg/directory"
	"github.com/babisteps/admin-api/pkg/export"
	"github.com/babisteps/admin-api/pkg/handlers"
	"github.com/babisteps/admin-api/pkg/metrics"
	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/overrides"
	"github.com/babisteps/admin-api/pkg/sheets"
	"gorm.io/gorm"
)

// Build wires every component from cfg. Missing Google settings leave the
// matching component unconfigured: its requests degrade instead of failing
// startup. Only a database that cannot be opened is fatal.
func Build(ctx context.Context, cfg *config.Config) (*handlers.Handler, error) {
	loc := cfg.Location()

	db, err := database.InitDB(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		slog.Warn("could not ensure admin user", "error", err)
	}

	mainBook := openSheet(ctx, cfg, "main", cfg.SpreadsheetID)
	billingBook := openSheet(ctx, cfg, "billing", cfg.BillingSpreadsheetID)
	paymentsBook := openSheet(ctx, cfg, "payments", cfg.PaymentsSpreadsheetID)

	defaults := overrides.Defaults{
		HourlyRate:  cfg.DefaultHourlyRate,
		DiscountPct: cfg.DefaultDiscountPct,
		HourlyWage:  cfg.DefaultHourlyWage,
	}
	rates, wages := overrideStores(cfg, db, defaults, billingBook, paymentsBook)

	dir := directory.New(mainBook, cfg.Tabs)
	m := metrics.New()
	agg := &billing.Aggregator{
		Directory:   dir,
		Events:      calendar.NewFetcher(openCalendar(ctx, cfg), cfg.CalendarID, cfg.CalendarMaxResults, loc),
		Rates:       rates,
		Wages:       wages,
		Defaults:    defaults,
		AllDayHours: cfg.AllDayHours,
	}

	return &handlers.Handler{
		DB:       db,
		Keys:     auth.NewKeys(cfg.JWTSecret, cfg.APIMasterSecret),
		Agg:      agg,
		Dir:      dir,
		Rates:    rates,
		Wages:    wages,
		Defaults: defaults,
		Export:   &export.Service{Agg: agg, Billing: billingBook, Payments: paymentsBook, Metrics: m},
		Cache:    billing.NewCache(cfg.ReportCacheTTL),
		Metrics:  m,
		Location: loc,
	}, nil
}

// openSheet returns nil (not a typed nil) when the spreadsheet is unavailable
func openSheet(ctx context.Context, cfg *config.Config, name, id string) sheets.Store {
	g, err := sheets.NewGoogle(ctx, cfg.ServiceAccountFile, id)
	if err != nil {
		slog.Warn("spreadsheet unavailable", "spreadsheet", name, "kind", models.KindOf(err), "error", err)
		return nil
	}
	return g
}

// openCalendar prefers the ICS feed when one is configured
func openCalendar(ctx context.Context, cfg *config.Config) calendar.Store {
	if cfg.CalendarICSURL != "" {
		slog.Info("using ICS calendar feed")
		return calendar.NewICS(cfg.CalendarICSURL)
	}
	g, err := calendar.NewGoogle(ctx, cfg.ServiceAccountFile)
	if err != nil {
		slog.Warn("calendar unavailable", "kind", models.KindOf(err), "error", err)
		return nil
	}
	return g
}

func overrideStores(cfg *config.Config, db *gorm.DB, defaults overrides.Defaults, billingBook, paymentsBook sheets.Store) (overrides.Store, overrides.Store) {
	if cfg.OverrideBackend == config.BackendDB {
		store := overrides.NewDB(db, defaults)
		return overrides.Filter{Store: store, Types: []models.OverrideType{models.OverrideHourlyRate, models.OverrideDiscountPct}},
			overrides.Filter{Store: store, Types: []models.OverrideType{models.OverrideHourlyWage}}
	}
	var rates, wages overrides.Store
	if billingBook != nil {
		rates = overrides.NewRateSheet(billingBook, cfg.Tabs.RatesDiscounts, defaults)
	}
	if paymentsBook != nil {
		wages = overrides.NewWageSheet(paymentsBook, cfg.Tabs.Wages, defaults)
	}
	return rates, wages
}
