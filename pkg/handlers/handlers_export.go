package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"github.com/babisteps/admin-api/pkg/export"
	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/sheets"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportBilling writes the month's billing report to the billing spreadsheet
func (h *Handler) ExportBilling(c *gin.Context) {
	p, err := h.bodyPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	if h.Export == nil {
		fail(c, models.ConfigError("export", models.ErrNotConfigured))
		return
	}
	res, err := h.Export.ExportBilling(c.Request.Context(), p.Month, p.Year)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "data": res})
}

// ExportPayments writes the month's payment report to the payments spreadsheet
func (h *Handler) ExportPayments(c *gin.Context) {
	p, err := h.bodyPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	if h.Export == nil {
		fail(c, models.ConfigError("export", models.ErrNotConfigured))
		return
	}
	res, err := h.Export.ExportPayments(c.Request.Context(), p.Month, p.Year)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "data": res})
}

// DownloadBilling streams the month's billing report as an XLSX workbook
func (h *Handler) DownloadBilling(c *gin.Context) {
	p, err := h.queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	report := h.Agg.ComputeBilling(c.Request.Context(), p.Month, p.Year, true)
	h.sendXLSX(c, "billing", export.BillingTable(report), report.ReportMeta)
}

// DownloadPayments streams the month's payment report as an XLSX workbook
func (h *Handler) DownloadPayments(c *gin.Context) {
	p, err := h.queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	report := h.Agg.ComputePayment(c.Request.Context(), p.Month, p.Year)
	h.sendXLSX(c, "payments", export.PaymentTable(report), report.ReportMeta)
}

func (h *Handler) sendXLSX(c *gin.Context, kind string, t export.Table, meta models.ReportMeta) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, t); err != nil {
		fail(c, err)
		return
	}
	name := fmt.Sprintf("%s-%04d-%02d.xlsx", kind, meta.Year, meta.Month)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, name, url.PathEscape(name)))
	c.Header("X-Report-Status", meta.Status)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// BillingWorksheets lists the month tabs of the billing spreadsheet
func (h *Handler) BillingWorksheets(c *gin.Context) {
	h.worksheets(c, func(s *export.Service) sheets.Store { return s.Billing })
}

// PaymentWorksheets lists the month tabs of the payments spreadsheet
func (h *Handler) PaymentWorksheets(c *gin.Context) {
	h.worksheets(c, func(s *export.Service) sheets.Store { return s.Payments })
}

func (h *Handler) worksheets(c *gin.Context, pick func(*export.Service) sheets.Store) {
	var store sheets.Store
	if h.Export != nil {
		store = pick(h.Export)
	}
	list, err := export.Worksheets(c.Request.Context(), store)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "data": list})
}
