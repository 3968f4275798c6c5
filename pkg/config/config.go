package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Tabs holds worksheet names. They may be overridden by the YAML overlay.
type Tabs struct {
	Instructors          string `yaml:"instructors"`
	PrivateClients       string `yaml:"private_clients"`
	InstitutionalClients string `yaml:"institutional_clients"`
	RatesDiscounts       string `yaml:"rates_discounts"`
	Wages                string `yaml:"wages"`
}

// Config is the runtime configuration, read from the environment
type Config struct {
	Port     string `yaml:"port"`
	Timezone string `yaml:"timezone"`

	ServiceAccountFile    string `yaml:"service_account_file"`
	SpreadsheetID         string `yaml:"spreadsheet_id"`
	BillingSpreadsheetID  string `yaml:"billing_spreadsheet_id"`
	PaymentsSpreadsheetID string `yaml:"payments_spreadsheet_id"`
	Tabs                  Tabs   `yaml:"tabs"`

	CalendarID         string `yaml:"calendar_id"`
	CalendarICSURL     string `yaml:"calendar_ics_url"`
	CalendarMaxResults int64  `yaml:"calendar_max_results"`

	DefaultHourlyRate  float64 `yaml:"default_hourly_rate"`
	DefaultDiscountPct float64 `yaml:"default_discount_pct"`
	DefaultHourlyWage  float64 `yaml:"default_hourly_wage"`
	AllDayHours        float64 `yaml:"all_day_hours"`

	ReportCacheTTL  time.Duration `yaml:"report_cache_ttl"`
	OverrideBackend string        `yaml:"override_backend"`
	ExportCron      string        `yaml:"export_cron"`

	DatabaseURL string `yaml:"-"`
	DataPath    string `yaml:"data_path"`

	JWTSecret       string `yaml:"-"`
	APIMasterSecret string `yaml:"-"`
	AdminUsername   string `yaml:"-"`
	AdminPassword   string `yaml:"-"`
}

// AuthEnabled reports whether admin login and API keys are enforced
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != "" || c.APIMasterSecret != ""
}

// Override backends
const (
	BackendSheets = "sheets"
	BackendDB     = "db"
)

// LoadDotenv loads the first .env found in the working directory or its parents
func LoadDotenv() {
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}
}

// Default returns the configuration used when no env var is set
func Default() *Config {
	return &Config{
		Port:     "8000",
		Timezone: "Asia/Jerusalem",
		Tabs: Tabs{
			Instructors:          "מדריכים",
			PrivateClients:       "לקוחות פרטיים",
			InstitutionalClients: "לקוחות מוסדיים",
			RatesDiscounts:       "תעריפים והנחות",
			Wages:                "שכר שעה",
		},
		CalendarID:         "primary",
		CalendarMaxResults: 1000,
		DefaultHourlyRate:  350,
		DefaultDiscountPct: 0,
		DefaultHourlyWage:  200,
		AllDayHours:        8,
		OverrideBackend:    BackendSheets,
		DataPath:           "babis.db",
	}
}

// Load builds the configuration from the environment. If CONFIG_FILE is set,
// the YAML file at that path is applied on top of the defaults first, so env
// vars still win. Env vars are applied even when the file is unreadable.
func Load() (*Config, error) {
	cfg := Default()

	var errs []error
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file := Default()
		if err := file.applyFile(path); err != nil {
			errs = append(errs, fmt.Errorf("config file %s: %w", path, err))
		} else {
			cfg = file
		}
	}

	setString(&cfg.Port, "PORT")
	setString(&cfg.Timezone, "TIMEZONE")
	setString(&cfg.ServiceAccountFile, "SERVICE_ACCOUNT_FILE")
	setString(&cfg.SpreadsheetID, "SPREADSHEET_ID")
	setString(&cfg.BillingSpreadsheetID, "billing_SPREADSHEET_ID")
	setString(&cfg.PaymentsSpreadsheetID, "payments_SPREADSHEET_ID")
	setString(&cfg.PaymentsSpreadsheetID, "payment_SPREADSHEET_ID")
	setString(&cfg.Tabs.Instructors, "INSTRUCTORS_SHEET_NAME")
	setString(&cfg.Tabs.PrivateClients, "clients_private_SHEET_NAME")
	setString(&cfg.Tabs.InstitutionalClients, "clients_institutional_SHEET_NAME")
	setString(&cfg.Tabs.RatesDiscounts, "RATES_SHEET_NAME")
	setString(&cfg.Tabs.Wages, "WAGES_SHEET_NAME")
	setString(&cfg.CalendarID, "CALENDAR_ID")
	setString(&cfg.CalendarICSURL, "CALENDAR_ICS_URL")
	setString(&cfg.OverrideBackend, "OVERRIDE_BACKEND")
	setString(&cfg.ExportCron, "EXPORT_CRON")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DataPath, "DATA_PATH")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.APIMasterSecret, "API_MASTER_SECRET")
	setString(&cfg.AdminUsername, "ADMIN_USERNAME")
	setString(&cfg.AdminPassword, "ADMIN_PASSWORD")

	errs = append(errs,
		setInt(&cfg.CalendarMaxResults, "CALENDAR_MAX_RESULTS"),
		setFloat(&cfg.DefaultHourlyRate, "DEFAULT_HOURLY_RATE"),
		setFloat(&cfg.DefaultDiscountPct, "DEFAULT_DISCOUNT_PCT"),
		setFloat(&cfg.DefaultHourlyWage, "DEFAULT_HOURLY_WAGE"),
		setFloat(&cfg.AllDayHours, "ALL_DAY_HOURS"),
		setDuration(&cfg.ReportCacheTTL, "REPORT_CACHE_TTL"),
	)

	cfg.Normalize()
	return cfg, errors.Join(errs...)
}

// Normalize replaces invalid values with defaults
func (c *Config) Normalize() {
	def := Default()
	if c.Port == "" {
		c.Port = def.Port
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.CalendarID == "" {
		c.CalendarID = def.CalendarID
	}
	if c.CalendarMaxResults <= 0 {
		c.CalendarMaxResults = def.CalendarMaxResults
	}
	if c.AllDayHours <= 0 {
		c.AllDayHours = def.AllDayHours
	}
	if c.ReportCacheTTL < 0 {
		c.ReportCacheTTL = 0
	}
	switch c.OverrideBackend {
	case BackendSheets, BackendDB:
	default:
		c.OverrideBackend = BackendSheets
	}
	if c.Tabs.Instructors == "" {
		c.Tabs.Instructors = def.Tabs.Instructors
	}
	if c.Tabs.PrivateClients == "" {
		c.Tabs.PrivateClients = def.Tabs.PrivateClients
	}
	if c.Tabs.InstitutionalClients == "" {
		c.Tabs.InstitutionalClients = def.Tabs.InstitutionalClients
	}
	if c.Tabs.RatesDiscounts == "" {
		c.Tabs.RatesDiscounts = def.Tabs.RatesDiscounts
	}
	if c.Tabs.Wages == "" {
		c.Tabs.Wages = def.Tabs.Wages
	}
}

// Location resolves the configured timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
