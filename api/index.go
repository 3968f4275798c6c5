package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/babisteps/admin-api/pkg/app"
	"github.com/babisteps/admin-api/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("invalid configuration, falling back to env and defaults", "error", err)
	}
	// serverless functions have no writable disk besides /tmp
	if cfg.DatabaseURL == "" && cfg.DataPath == config.Default().DataPath {
		cfg.DataPath = "/tmp/babis.db"
	}

	h, err := app.Build(context.Background(), cfg)
	if err != nil {
		slog.Error("could not initialize", "error", err)
		r = gin.New()
		r.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "service unavailable"})
		})
		return
	}
	r = h.NewRouter()
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
