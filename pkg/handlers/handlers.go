package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/babisteps/admin-api/pkg/auth"
	"github.com/babisteps/admin-api/pkg/billing"
	"github.com/babisteps/admin-api/pkg/database"
	"github.com/babisteps/admin-api/pkg/directory"
	"github.com/babisteps/admin-api/pkg/export"
	"github.com/babisteps/admin-api/pkg/metrics"
	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/overrides"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	DB       *gorm.DB
	Keys     *auth.Keys
	Agg      *billing.Aggregator
	Dir      *directory.Directory
	Rates    overrides.Store
	Wages    overrides.Store
	Defaults overrides.Defaults
	Export   *export.Service
	Cache    *billing.Cache
	Metrics  *metrics.Metrics
	Location *time.Location
	Now      func() time.Time
}

// NewRouter builds the gin engine with every route
func (h *Handler) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), h.RequestID(), h.Observe())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Babis admin API",
			"version": "1.0.0",
		})
	})
	r.GET("/health", h.Health)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	r.POST("/admin/login", h.Login)
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.GET("/billing", h.GetBilling)
		api.GET("/payments", h.GetPayments)
		api.GET("/calendar", h.GetCalendar)
		api.GET("/get_instructor_events", h.GetInstructorEvents)
		api.GET("/get_client_events", h.GetClientEvents)

		api.GET("/get_rates_discounts", h.GetRatesDiscounts)
		api.POST("/save_rate_discount", h.SaveRateDiscount)
		api.GET("/get_wages", h.GetWages)
		api.POST("/save_wage", h.SaveWage)

		api.POST("/export_billing", h.ExportBilling)
		api.POST("/export_payments", h.ExportPayments)
		api.GET("/export_billing.xlsx", h.DownloadBilling)
		api.GET("/export_payments.xlsx", h.DownloadPayments)
		api.GET("/billing/worksheets", h.BillingWorksheets)
		api.GET("/payments/worksheets", h.PaymentWorksheets)

		api.GET("/instructors", h.ListInstructors)
		api.POST("/instructors", h.AddInstructor)
		api.PUT("/instructors/:row", h.UpdateInstructor)
		api.GET("/clients/:kind", h.ListClients)
		api.POST("/clients/:kind", h.AddClient)
		api.PUT("/clients/:kind/:row", h.UpdateClient)

		api.GET("/usage", h.GetMyUsage)
	}
	return r
}

// RequestID tags every request with an id, reusing the caller's X-Request-ID
func (h *Handler) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// Observe counts requests per route template
func (h *Handler) Observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.Metrics.ObserveRequest(c.FullPath(), c.Writer.Status())
	}
}

// AuthMiddleware verifies the JWT token for admin routes.
// Without JWT_SECRET admin routes are closed.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Keys == nil || len(h.Keys.JWTSecret) == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "admin auth not configured"})
			c.Abort()
			return
		}
		token := bearer(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Authorization header required"})
			c.Abort()
			return
		}

		claims, err := h.Keys.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key of /api routes. An admin JWT is
// accepted too. With neither secret configured the API is open.
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Keys == nil || (len(h.Keys.MasterSecret) == 0 && len(h.Keys.JWTSecret) == 0) {
			c.Next()
			return
		}
		key := bearer(c)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "API Key required"})
			c.Abort()
			return
		}

		if claims, err := h.Keys.VerifyToken(key); err == nil {
			c.Set("username", claims.Username)
			c.Next()
			return
		}

		userID, err := h.Keys.VerifyHMACKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		if h.DB != nil {
			apiKey, err := auth.TrackAPIKey(h.DB, key, userID)
			if err != nil {
				slog.Warn("could not track api key", "user", userID, "error", err)
			} else {
				c.Set("apiKey", apiKey)
			}
		}
		c.Set("userID", userID)
		c.Next()
	}
}

// Health reports which collaborators are wired
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"components": gin.H{
			"directory": h.Dir != nil && h.Dir.Store != nil,
			"calendar":  h.Agg != nil && h.Agg.Events != nil,
			"rates":     h.Rates != nil,
			"wages":     h.Wages != nil,
			"export":    h.Export != nil,
			"database":  h.DB != nil,
		},
	})
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if h.DB == nil || h.Keys == nil || len(h.Keys.JWTSecret) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "admin auth not configured"})
		return
	}

	user, ok := auth.Authenticate(h.DB, req.Username, req.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Invalid credentials"})
		return
	}

	token, err := h.Keys.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	key, err := h.Keys.GenerateHMACKey(req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	apiKey := database.APIKey{Key: key, Name: req.Name}
	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": apiKey.ID, "name": req.Name, "key": key})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	if err := h.DB.Order("id").Find(&keys).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Could not list keys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key. HMAC keys stay verifiable until the master
// secret rotates; revoking removes the record and its usage history.
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key_id = ?", id).Delete(&database.ReportUsage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&database.APIKey{}, id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Could not delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.ReportUsage
	if err := h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		slog.Error("reading key usage", "key_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Could not fetch usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

func bearer(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = token[7:]
	}
	return strings.TrimSpace(token)
}

// fail writes an error response, choosing the status from the error
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, overrides.ErrInvalid),
		errors.Is(err, directory.ErrNameRequired),
		errors.Is(err, directory.ErrUnknownKind),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, directory.ErrRowNotFound):
		status = http.StatusNotFound
	case errors.Is(err, export.ErrIncompleteReport):
		status = http.StatusConflict
	case models.KindOf(err) == models.KindConfig:
		status = http.StatusServiceUnavailable
	case models.KindOf(err) == models.KindProvider:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		slog.Error("request failed", "path", c.FullPath(), "request_id", c.GetString("requestID"), "error", err)
	}
	c.JSON(status, gin.H{"status": "error", "error": err.Error()})
}
