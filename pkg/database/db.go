package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Key       string     `gorm:"unique;not null" json:"key"`
	Name      string     `gorm:"not null" json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used"`
}

// ReportUsage represents the report_usage table: one row per key, report kind and day
type ReportUsage struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	KeyID         uint   `gorm:"uniqueIndex:idx_key_kind_date;not null" json:"key_id"`
	Kind          string `gorm:"uniqueIndex:idx_key_kind_date;not null" json:"kind"`
	Date          string `gorm:"uniqueIndex:idx_key_kind_date;not null" json:"date"`
	RequestCount  int    `gorm:"default:0" json:"request_count"`
	DegradedCount int    `gorm:"default:0" json:"degraded_count"`
	TotalEvents   int    `gorm:"default:0" json:"total_events"`
	TotalRecords  int    `gorm:"default:0" json:"total_records"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Override represents the overrides table used when OVERRIDE_BACKEND=db
type Override struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex:idx_override;not null" json:"key"`
	Type      string    `gorm:"uniqueIndex:idx_override;not null" json:"type"`
	Month     int       `gorm:"uniqueIndex:idx_override;not null" json:"month"`
	Year      int       `gorm:"uniqueIndex:idx_override;not null" json:"year"`
	Value     float64   `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitDB opens Postgres when databaseURL is set, otherwise SQLite at dataPath,
// and migrates the schema.
func InitDB(databaseURL, dataPath string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if databaseURL != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  databaseURL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		if dataPath == "" {
			dataPath = "babis.db"
		}
		db, err = gorm.Open(sqlite.Open(dataPath), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(&APIKey{}, &ReportUsage{}, &MasterUser{}, &Override{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// RecordReport adds one report request to today's usage row of keyID
func RecordReport(db *gorm.DB, keyID uint, kind string, events, records int, degraded bool) error {
	today := time.Now().Format("2006-01-02")
	d := 0
	if degraded {
		d = 1
	}

	// single-query upsert, supported by both Postgres and SQLite
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "kind"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":  gorm.Expr("request_count + ?", 1),
			"degraded_count": gorm.Expr("degraded_count + ?", d),
			"total_events":   gorm.Expr("total_events + ?", events),
			"total_records":  gorm.Expr("total_records + ?", records),
		}),
	}).Create(&ReportUsage{
		KeyID:         keyID,
		Kind:          kind,
		Date:          today,
		RequestCount:  1,
		DegradedCount: d,
		TotalEvents:   events,
		TotalRecords:  records,
	}).Error
	if err != nil {
		slog.Warn("record usage failed", "kind", kind, "error", err)
	}
	return err
}
