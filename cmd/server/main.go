package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/babisteps/admin-api/pkg/app"
	"github.com/babisteps/admin-api/pkg/config"
	"github.com/babisteps/admin-api/pkg/jobs"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadDotenv()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("invalid configuration, falling back to env and defaults", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("could not start", "error", err)
		os.Exit(1)
	}

	if cfg.ExportCron != "" {
		sched := jobs.New(h.Export, cfg.Location())
		if err := sched.Start(cfg.ExportCron); err != nil {
			slog.Error("export scheduler not started", "error", err)
		} else {
			defer sched.Stop()
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("server starting", "port", cfg.Port, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("could not run server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		slog.Error("shutdown", "error", err)
	}
}
