package overrides

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/babisteps/admin-api/pkg/models"
)

// ErrInvalid is wrapped by validation failures of Set
var ErrInvalid = errors.New("invalid override")

// Store persists per-month overrides keyed by (key, type, month, year).
// Absence of a row means the default applies.
type Store interface {
	// Get returns the override value and whether one is stored
	Get(ctx context.Context, key string, typ models.OverrideType, month, year int) (float64, bool, error)
	// Set stores value, or removes the override when value equals the default
	Set(ctx context.Context, key string, typ models.OverrideType, value float64, month, year int) error
	// List returns every override of the month
	List(ctx context.Context, month, year int) ([]models.Override, error)
}

// Defaults are the values used when no override is stored
type Defaults struct {
	HourlyRate  float64
	DiscountPct float64
	HourlyWage  float64
}

// For returns the default of typ
func (d Defaults) For(typ models.OverrideType) float64 {
	switch typ {
	case models.OverrideHourlyRate:
		return d.HourlyRate
	case models.OverrideDiscountPct:
		return d.DiscountPct
	case models.OverrideHourlyWage:
		return d.HourlyWage
	}
	return 0
}

// Validate checks an override before it is written
func Validate(key string, typ models.OverrideType, value float64, month, year int) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("%w: key is required", ErrInvalid)
	case month < 1 || month > 12:
		return fmt.Errorf("%w: month %d", ErrInvalid, month)
	case year < 1:
		return fmt.Errorf("%w: year %d", ErrInvalid, year)
	case value < 0:
		return fmt.Errorf("%w: negative value %v", ErrInvalid, value)
	}
	switch typ {
	case models.OverrideHourlyRate, models.OverrideHourlyWage:
	case models.OverrideDiscountPct:
		if value > 100 {
			return fmt.Errorf("%w: discount %v%% above 100", ErrInvalid, value)
		}
	default:
		return fmt.Errorf("%w: type %q", ErrInvalid, typ)
	}
	return nil
}

// Index is a month's overrides looked up by key and type
type Index map[string]map[models.OverrideType]float64

// NewIndex builds an Index from a List result
func NewIndex(list []models.Override) Index {
	idx := make(Index, len(list))
	for _, o := range list {
		if idx[o.Key] == nil {
			idx[o.Key] = make(map[models.OverrideType]float64, 2)
		}
		if _, ok := idx[o.Key][o.Type]; !ok {
			idx[o.Key][o.Type] = o.Value
		}
	}
	return idx
}

// Value returns the override of key and typ, or def when none is stored
func (i Index) Value(key string, typ models.OverrideType, def float64) float64 {
	if v, ok := i[key][typ]; ok {
		return v
	}
	return def
}
