package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/babisteps/admin-api/pkg/config"
	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/overrides"
	"github.com/gin-gonic/gin"
)

func TestBuild_Unconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.DataPath = filepath.Join(t.TempDir(), "test.db")

	h, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if h.Rates != nil || h.Wages != nil {
		t.Error("Expected sheet override stores to be absent without spreadsheets")
	}

	w := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(w, httptest.NewRequest("GET", "/api/billing?month=3&year=2024", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var report models.BillingReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Status != models.StatusDegraded || len(report.Records) != 0 {
		t.Errorf("Expected an empty degraded report, got %+v", report)
	}
	if len(report.Issues) == 0 {
		t.Error("Expected issues naming the missing components")
	}
}

func TestBuild_DatabaseOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.DataPath = filepath.Join(t.TempDir(), "test.db")
	cfg.OverrideBackend = config.BackendDB

	h, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	ctx := context.Background()
	if err := h.Rates.Set(ctx, "Acme", models.OverrideHourlyRate, 400, 3, 2024); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := h.Wages.Set(ctx, "Dana", models.OverrideHourlyWage, 250, 3, 2024); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	rates, _ := h.Rates.List(ctx, 3, 2024)
	wages, _ := h.Wages.List(ctx, 3, 2024)
	if len(rates) != 1 || rates[0].Key != "Acme" {
		t.Errorf("Expected only the rate override, got %+v", rates)
	}
	if len(wages) != 1 || wages[0].Key != "Dana" {
		t.Errorf("Expected only the wage override, got %+v", wages)
	}
	if _, ok := h.Rates.(overrides.Filter); !ok {
		t.Errorf("Expected a filtered store, got %T", h.Rates)
	}
}
