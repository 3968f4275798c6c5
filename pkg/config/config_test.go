package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != "8000" || cfg.CalendarID != "primary" || cfg.CalendarMaxResults != 1000 {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.DefaultHourlyRate != 350 || cfg.DefaultHourlyWage != 200 || cfg.AllDayHours != 8 {
		t.Errorf("Unexpected money defaults %+v", cfg)
	}
	if cfg.AuthEnabled() {
		t.Error("Expected auth to be off without secrets")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SPREADSHEET_ID", "main")
	t.Setenv("payment_SPREADSHEET_ID", "pay")
	t.Setenv("INSTRUCTORS_SHEET_NAME", "Staff")
	t.Setenv("DEFAULT_HOURLY_RATE", "420.5")
	t.Setenv("REPORT_CACHE_TTL", "30s")
	t.Setenv("OVERRIDE_BACKEND", "db")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != "9000" || cfg.SpreadsheetID != "main" || cfg.PaymentsSpreadsheetID != "pay" {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.Tabs.Instructors != "Staff" || cfg.Tabs.PrivateClients != "לקוחות פרטיים" {
		t.Errorf("Unexpected tabs %+v", cfg.Tabs)
	}
	if cfg.DefaultHourlyRate != 420.5 || cfg.ReportCacheTTL != 30*time.Second {
		t.Errorf("Unexpected values %v %v", cfg.DefaultHourlyRate, cfg.ReportCacheTTL)
	}
	if cfg.OverrideBackend != BackendDB || !cfg.AuthEnabled() {
		t.Errorf("Unexpected backend/auth %q %v", cfg.OverrideBackend, cfg.AuthEnabled())
	}
}

func TestLoad_BadNumberKeepsDefault(t *testing.T) {
	t.Setenv("ALL_DAY_HOURS", "eight")
	cfg, err := Load()
	if err == nil {
		t.Error("Expected an error for a non-numeric value")
	}
	if cfg.AllDayHours != 8 {
		t.Errorf("Expected default 8, got %v", cfg.AllDayHours)
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "timezone: Europe/London\ntabs:\n  wages: Pay\ndefault_hourly_wage: 180\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DEFAULT_HOURLY_WAGE", "190")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Timezone != "Europe/London" || cfg.Tabs.Wages != "Pay" {
		t.Errorf("Expected YAML values, got %+v", cfg)
	}
	if cfg.DefaultHourlyWage != 190 {
		t.Errorf("Expected env to win over YAML, got %v", cfg.DefaultHourlyWage)
	}
	if cfg.Tabs.Instructors != "מדריכים" {
		t.Errorf("Expected untouched tabs to keep defaults, got %q", cfg.Tabs.Instructors)
	}
}

func TestNormalize(t *testing.T) {
	cfg := &Config{OverrideBackend: "redis", ReportCacheTTL: -time.Second}
	cfg.Normalize()
	if cfg.OverrideBackend != BackendSheets || cfg.ReportCacheTTL != 0 || cfg.Port != "8000" {
		t.Errorf("Unexpected normalized config %+v", cfg)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Error("Expected UTC for an unknown timezone")
	}
}

func TestLoad_BadFileKeepsEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_MASTER_SECRET", "s3cret")
	t.Setenv("SPREADSHEET_ID", "main")
	t.Setenv("OVERRIDE_BACKEND", "bogus")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Expected the file error to be reported")
	}
	if !cfg.AuthEnabled() || cfg.SpreadsheetID != "main" {
		t.Errorf("Expected env vars to apply despite the file error, got %+v", cfg)
	}
	if cfg.OverrideBackend != BackendSheets || cfg.Port != "8000" {
		t.Errorf("Expected normalized defaults, got %+v", cfg)
	}
}
