package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/babisteps/admin-api/pkg/billing"
	"github.com/babisteps/admin-api/pkg/metrics"
	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/sheets"
)

// ErrIncompleteReport is returned when a report lost a component and
// exporting it would overwrite good worksheet rows with partial data.
var ErrIncompleteReport = errors.New("report is incomplete")

// Targets
const (
	TargetBilling  = "billing"
	TargetPayments = "payments"
)

// Service computes reports and writes them to the billing and payments spreadsheets
type Service struct {
	Agg      *billing.Aggregator
	Billing  sheets.Store
	Payments sheets.Store
	Metrics  *metrics.Metrics
}

// BillingResult is the outcome of a billing export
type BillingResult struct {
	Result
	Report models.BillingReport `json:"report"`
}

// PaymentResult is the outcome of a payment export
type PaymentResult struct {
	Result
	Report models.PaymentReport `json:"report"`
}

// ExportBilling writes the billing report of month/year to its month tab
func (s *Service) ExportBilling(ctx context.Context, month, year int) (BillingResult, error) {
	report := s.Agg.ComputeBilling(ctx, month, year, true)
	out := BillingResult{Report: report}
	if err := complete(report.ReportMeta); err != nil {
		s.Metrics.ObserveExport(TargetBilling, err)
		return out, err
	}
	res, err := ToSheet(ctx, s.Billing, BillingTable(report))
	out.Result = res
	s.Metrics.ObserveExport(TargetBilling, err)
	if err != nil {
		return out, err
	}
	slog.Info("billing exported", "worksheet", res.Worksheet, "rows", res.Rows, "written", res.RowsWritten)
	return out, nil
}

// ExportPayments writes the payment report of month/year to its month tab
func (s *Service) ExportPayments(ctx context.Context, month, year int) (PaymentResult, error) {
	report := s.Agg.ComputePayment(ctx, month, year)
	out := PaymentResult{Report: report}
	if err := complete(report.ReportMeta); err != nil {
		s.Metrics.ObserveExport(TargetPayments, err)
		return out, err
	}
	res, err := ToSheet(ctx, s.Payments, PaymentTable(report))
	out.Result = res
	s.Metrics.ObserveExport(TargetPayments, err)
	if err != nil {
		return out, err
	}
	slog.Info("payments exported", "worksheet", res.Worksheet, "rows", res.Rows, "written", res.RowsWritten)
	return out, nil
}

// complete rejects reports that lost the directory or the calendar.
// Data issues (single bad events) do not block an export.
func complete(meta models.ReportMeta) error {
	for _, is := range meta.Issues {
		if is.Kind != models.KindData {
			return fmt.Errorf("%w: %s: %s", ErrIncompleteReport, is.Component, is.Message)
		}
	}
	return nil
}
