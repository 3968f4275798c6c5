package handlers

import (
	"net/http"

	"github.com/babisteps/admin-api/pkg/database"
	"github.com/gin-gonic/gin"
)

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "database not configured"})
		return
	}
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "usage is tracked per API key"})
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	var usage []database.ReportUsage
	if err := h.DB.Where("key_id = ?", apiKey.ID).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Could not fetch usage details"})
		return
	}

	// totals over the returned window
	var totalRequests, totalDegraded, totalEvents, totalRecords int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalDegraded += int64(u.DegradedCount)
		totalEvents += int64(u.TotalEvents)
		totalRecords += int64(u.TotalRecords)
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"usage_history": usage,
		"totals": gin.H{
			"requests": totalRequests,
			"degraded": totalDegraded,
			"events":   totalEvents,
			"records":  totalRecords,
		},
	})
}
