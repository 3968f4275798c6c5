package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/babisteps/admin-api/pkg/export"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the month-end export at 06:00 on the 1st, for the
// month that just ended.
const DefaultSchedule = "0 6 1 * *"

// Exporter is the part of export.Service the scheduler drives
type Exporter interface {
	ExportBilling(ctx context.Context, month, year int) (export.BillingResult, error)
	ExportPayments(ctx context.Context, month, year int) (export.PaymentResult, error)
}

// Scheduler runs the month-end export on a cron schedule
type Scheduler struct {
	Exporter Exporter
	Location *time.Location
	Timeout  time.Duration
	Now      func() time.Time

	cron *cron.Cron
}

// New creates a scheduler; call Start to run it
func New(exp Exporter, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{Exporter: exp, Location: loc, Timeout: 5 * time.Minute, Now: time.Now}
}

// Start registers the export job under schedule (DefaultSchedule when
// empty) and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New(cron.WithLocation(s.Location))
	if _, err := c.AddFunc(schedule, func() { s.RunPreviousMonth(context.Background()) }); err != nil {
		return fmt.Errorf("export schedule %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()
	slog.Info("export scheduler started", "schedule", schedule, "timezone", s.Location.String())
	return nil
}

// Stop halts the cron loop and waits for a running export to finish
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunPreviousMonth exports billing and payments for the month before now.
// Both exports run even if the first one fails.
func (s *Scheduler) RunPreviousMonth(ctx context.Context) (month, year int, err error) {
	month, year = PreviousMonth(s.now().In(s.Location))

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	log := slog.With("month", month, "year", year)
	var errs []error
	if _, e := s.Exporter.ExportBilling(ctx, month, year); e != nil {
		log.Error("scheduled billing export failed", "error", e)
		errs = append(errs, e)
	}
	if _, e := s.Exporter.ExportPayments(ctx, month, year); e != nil {
		log.Error("scheduled payments export failed", "error", e)
		errs = append(errs, e)
	}
	if len(errs) == 0 {
		log.Info("scheduled export finished")
		return month, year, nil
	}
	return month, year, fmt.Errorf("scheduled export: %d of 2 failed: %w", len(errs), errs[0])
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// PreviousMonth returns the month and year before t
func PreviousMonth(t time.Time) (int, int) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	prev := first.AddDate(0, -1, 0)
	return int(prev.Month()), prev.Year()
}

// ParseSchedule validates a five-field cron expression
func ParseSchedule(schedule string) error {
	_, err := cron.ParseStandard(schedule)
	return err
}
