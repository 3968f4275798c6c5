package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/overrides"
	"github.com/gin-gonic/gin"
)

type saveOverrideRequest struct {
	Client     string              `json:"client"`
	Instructor string              `json:"instructor"`
	Type       models.OverrideType `json:"type"`
	Value      *float64            `json:"value" binding:"required"`
	Month      int                 `json:"month"`
	Year       int                 `json:"year"`
}

// GetRatesDiscounts returns the month's rate and discount overrides by client
func (h *Handler) GetRatesDiscounts(c *gin.Context) {
	h.listOverrides(c, h.Rates, gin.H{
		string(models.OverrideHourlyRate):  h.Defaults.HourlyRate,
		string(models.OverrideDiscountPct): h.Defaults.DiscountPct,
	})
}

// GetWages returns the month's wage overrides by instructor
func (h *Handler) GetWages(c *gin.Context) {
	h.listOverrides(c, h.Wages, gin.H{
		string(models.OverrideHourlyWage): h.Defaults.HourlyWage,
	})
}

func (h *Handler) listOverrides(c *gin.Context, store overrides.Store, defaults gin.H) {
	p, err := h.queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	if store == nil {
		fail(c, models.ConfigError("overrides", models.ErrNotConfigured))
		return
	}
	list, err := store.List(c.Request.Context(), p.Month, p.Year)
	if err != nil {
		fail(c, err)
		return
	}
	data := make(map[string]map[models.OverrideType]float64)
	for _, o := range list {
		if data[o.Key] == nil {
			data[o.Key] = make(map[models.OverrideType]float64)
		}
		data[o.Key][o.Type] = o.Value
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   models.StatusSuccess,
		"month":    p.Month,
		"year":     p.Year,
		"defaults": defaults,
		"data":     data,
	})
}

// SaveRateDiscount stores a client's hourly rate or discount for a month
func (h *Handler) SaveRateDiscount(c *gin.Context) {
	var req saveOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Type != models.OverrideHourlyRate && req.Type != models.OverrideDiscountPct {
		fail(c, fmt.Errorf("%w: type must be hourlyRate or discountPct", overrides.ErrInvalid))
		return
	}
	h.saveOverride(c, h.Rates, req.Client, req)
}

// SaveWage stores an instructor's hourly wage for a month
func (h *Handler) SaveWage(c *gin.Context) {
	var req saveOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	req.Type = models.OverrideHourlyWage
	h.saveOverride(c, h.Wages, req.Instructor, req)
}

func (h *Handler) saveOverride(c *gin.Context, store overrides.Store, key string, req saveOverrideRequest) {
	p := h.defaulted(period{Month: req.Month, Year: req.Year})
	key = strings.TrimSpace(key)
	if err := overrides.Validate(key, req.Type, *req.Value, p.Month, p.Year); err != nil {
		fail(c, err)
		return
	}
	if store == nil {
		fail(c, models.ConfigError("overrides", models.ErrNotConfigured))
		return
	}
	if err := store.Set(c.Request.Context(), key, req.Type, *req.Value, p.Month, p.Year); err != nil {
		fail(c, err)
		return
	}
	h.Cache.Invalidate(p.Month, p.Year)
	c.JSON(http.StatusOK, gin.H{
		"status": models.StatusSuccess,
		"data": models.Override{
			Key:   key,
			Type:  req.Type,
			Month: p.Month,
			Year:  p.Year,
			Value: *req.Value,
		},
	})
}
