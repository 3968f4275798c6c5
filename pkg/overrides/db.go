package overrides

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/babisteps/admin-api/pkg/database"
	"github.com/babisteps/admin-api/pkg/models"
)

// DB is a Store backed by the overrides table. It holds every override type.
type DB struct {
	Conn     *gorm.DB
	Defaults Defaults
}

// NewDB creates a database-backed Store
func NewDB(conn *gorm.DB, defaults Defaults) *DB {
	return &DB{Conn: conn, Defaults: defaults}
}

func (s *DB) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.Conn == nil {
		return nil, models.ConfigError("overrides", models.ErrNotConfigured)
	}
	return s.Conn.WithContext(ctx), nil
}

func (s *DB) Get(ctx context.Context, key string, typ models.OverrideType, month, year int) (float64, bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, false, err
	}
	var row database.Override
	err = db.Where("key = ? AND type = ? AND month = ? AND year = ?", strings.TrimSpace(key), string(typ), month, year).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, models.ProviderError("overrides", err)
	}
	return row.Value, true, nil
}

func (s *DB) List(ctx context.Context, month, year int) ([]models.Override, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return []models.Override{}, err
	}
	var rows []database.Override
	if err := db.Where("month = ? AND year = ?", month, year).Order("key, type").Find(&rows).Error; err != nil {
		return []models.Override{}, models.ProviderError("overrides", err)
	}
	out := make([]models.Override, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Override{
			Key:   r.Key,
			Type:  models.OverrideType(r.Type),
			Month: r.Month,
			Year:  r.Year,
			Value: r.Value,
		})
	}
	return out, nil
}

// Set upserts the override; writing the default deletes it
func (s *DB) Set(ctx context.Context, key string, typ models.OverrideType, value float64, month, year int) error {
	if err := Validate(key, typ, value, month, year); err != nil {
		return err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)

	if value == s.Defaults.For(typ) {
		err := db.Where("key = ? AND type = ? AND month = ? AND year = ?", key, string(typ), month, year).
			Delete(&database.Override{}).Error
		if err != nil {
			return models.ProviderError("overrides", err)
		}
		return nil
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "type"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&database.Override{Key: key, Type: string(typ), Month: month, Year: year, Value: value}).Error
	if err != nil {
		return models.ProviderError("overrides", err)
	}
	return nil
}

// Filter narrows a Store to the given types, so one table can serve as both
// the rate store and the wage store.
type Filter struct {
	Store
	Types []models.OverrideType
}

func (f Filter) List(ctx context.Context, month, year int) ([]models.Override, error) {
	list, err := f.Store.List(ctx, month, year)
	if err != nil {
		return list, err
	}
	out := list[:0]
	for _, o := range list {
		for _, t := range f.Types {
			if o.Type == t {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}
