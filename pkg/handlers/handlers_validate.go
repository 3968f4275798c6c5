package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/babisteps/admin-api/pkg/models"
	"github.com/gin-gonic/gin"
)

var errBadRequest = errors.New("bad request")

// period is the month and year a request is about
type period struct {
	Month int `json:"month" form:"month"`
	Year  int `json:"year" form:"year"`
}

func (h *Handler) now() time.Time {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// defaulted fills a missing month or year from the current local date
func (h *Handler) defaulted(p period) period {
	now := h.now()
	if p.Month == 0 {
		p.Month = int(now.Month())
	}
	if p.Year == 0 {
		p.Year = now.Year()
	}
	return p
}

func (p period) validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month must be 1-12, got %d", errBadRequest, p.Month)
	}
	if p.Year < 2000 || p.Year > 2100 {
		return fmt.Errorf("%w: year out of range: %d", errBadRequest, p.Year)
	}
	return nil
}

// queryPeriod reads month and year from the query string, defaulting to now
func (h *Handler) queryPeriod(c *gin.Context) (period, error) {
	var p period
	if err := c.ShouldBindQuery(&p); err != nil {
		return p, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	p = h.defaulted(p)
	return p, p.validate()
}

// bodyPeriod reads month and year from a JSON body, defaulting to now
func (h *Handler) bodyPeriod(c *gin.Context) (period, error) {
	var p period
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&p); err != nil {
			return p, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	p = h.defaulted(p)
	return p, p.validate()
}

// boolQuery accepts true/false/1/0/yes/no; a missing key is def
func boolQuery(c *gin.Context, key string, def bool) (bool, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s must be a boolean", errBadRequest, key)
	}
	return b, nil
}

// requiredQuery returns a non-empty trimmed query value
func requiredQuery(c *gin.Context, key string) (string, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", errBadRequest, key)
	}
	return v, nil
}

// sheetRow parses the :row path parameter
func sheetRow(c *gin.Context) (int, error) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil || row < 2 {
		return 0, fmt.Errorf("%w: invalid sheet row %q", errBadRequest, c.Param("row"))
	}
	return row, nil
}

// clientKind parses the :kind path parameter
func clientKind(c *gin.Context) (models.ClientKind, error) {
	kind := models.ClientKind(c.Param("kind"))
	if !kind.Valid() {
		return kind, fmt.Errorf("%w: unknown client kind %q", errBadRequest, kind)
	}
	return kind, nil
}
