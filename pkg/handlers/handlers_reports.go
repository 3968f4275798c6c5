package handlers

import (
	"net/http"
	"time"

	"github.com/babisteps/admin-api/pkg/billing"
	"github.com/babisteps/admin-api/pkg/database"
	"github.com/babisteps/admin-api/pkg/models"
	"github.com/gin-gonic/gin"
)

// GetBilling returns the per-client billing report of a month
func (h *Handler) GetBilling(c *gin.Context) {
	p, err := h.queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	includeRates, err := boolQuery(c, "include_rates", true)
	if err != nil {
		fail(c, err)
		return
	}

	key := billing.CacheKey{Kind: "billing", Month: p.Month, Year: p.Year, IncludeRates: includeRates}
	if v, ok := h.Cache.Get(key); ok {
		c.JSON(http.StatusOK, v)
		return
	}

	start := time.Now()
	report := h.Agg.ComputeBilling(c.Request.Context(), p.Month, p.Year, includeRates)
	h.Metrics.ObserveReport("billing", report.ReportMeta, time.Since(start))
	h.recordUsage(c, "billing", report.ReportMeta, len(report.Records))
	if report.Status == models.StatusSuccess {
		h.Cache.Put(key, report)
	}
	c.JSON(http.StatusOK, report)
}

// GetPayments returns the per-instructor payment report of a month
func (h *Handler) GetPayments(c *gin.Context) {
	p, err := h.queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}

	key := billing.CacheKey{Kind: "payments", Month: p.Month, Year: p.Year}
	if v, ok := h.Cache.Get(key); ok {
		c.JSON(http.StatusOK, v)
		return
	}

	start := time.Now()
	report := h.Agg.ComputePayment(c.Request.Context(), p.Month, p.Year)
	h.Metrics.ObserveReport("payments", report.ReportMeta, time.Since(start))
	h.recordUsage(c, "payments", report.ReportMeta, len(report.Records))
	if report.Status == models.StatusSuccess {
		h.Cache.Put(key, report)
	}
	c.JSON(http.StatusOK, report)
}

// GetCalendar returns the month's client events grouped by day
func (h *Handler) GetCalendar(c *gin.Context) {
	p, err := h.queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	view := h.Agg.CalendarDays(c.Request.Context(), p.Month, p.Year)
	h.recordUsage(c, "calendar", view.ReportMeta, len(view.Days))
	c.JSON(http.StatusOK, view)
}

// GetInstructorEvents returns every event of a known instructor in a month
func (h *Handler) GetInstructorEvents(c *gin.Context) {
	name, err := requiredQuery(c, "instructor")
	if err != nil {
		fail(c, err)
		return
	}
	p, err := h.queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	list := h.Agg.InstructorEvents(c.Request.Context(), name, p.Month, p.Year)
	h.recordUsage(c, "instructor_events", list.ReportMeta, len(list.Events))
	c.JSON(http.StatusOK, list)
}

// GetClientEvents returns the events billed to a client in a month
func (h *Handler) GetClientEvents(c *gin.Context) {
	name, err := requiredQuery(c, "client")
	if err != nil {
		fail(c, err)
		return
	}
	p, err := h.queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	list := h.Agg.ClientEvents(c.Request.Context(), name, p.Month, p.Year)
	h.recordUsage(c, "client_events", list.ReportMeta, len(list.Events))
	c.JSON(http.StatusOK, list)
}

// recordUsage adds the request to the calling key's daily usage row
func (h *Handler) recordUsage(c *gin.Context, kind string, meta models.ReportMeta, records int) {
	if h.DB == nil {
		return
	}
	raw, ok := c.Get("apiKey")
	if !ok {
		return
	}
	apiKey := raw.(*database.APIKey)
	_ = database.RecordReport(h.DB, apiKey.ID, kind, meta.EventsFetched, records, meta.Status == models.StatusDegraded)
}
