package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/core/events"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
	"github.com/robfig/cron/v3"
)

// LedgerReader is the slice of the inventory ledger the jobs need.
type LedgerReader interface {
	ItemsOutLongerThan(ctx context.Context, days int) ([]*inventory.CheckedOutItemDetail, error)
	AuditConsistency(ctx context.Context) ([]inventory.Inconsistency, error)
}

// Scheduler runs the periodic inventory jobs.
type Scheduler struct {
	cron      *cron.Cron
	ledger    LedgerReader
	publisher events.Publisher
	cfg       internal.SchedulerConfig
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewScheduler(cfg internal.SchedulerConfig, ledger LedgerReader, publisher events.Publisher, logger *slog.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	return &Scheduler{
		cron:      c,
		ledger:    ledger,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		timeout:   5 * time.Minute,
		now:       time.Now,
	}
}

// RegisterJobs adds the overdue scan and the consistency audit.
func (s *Scheduler) RegisterJobs() error {
	if _, err := s.cron.AddFunc(s.cfg.OverdueScan, s.runWithRecovery("overdue_scan", s.OverdueScan)); err != nil {
		return fmt.Errorf("register overdue scan: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.ConsistencyAudit, s.runWithRecovery("consistency_audit", s.ConsistencyAudit)); err != nil {
		return fmt.Errorf("register consistency audit: %w", err)
	}

	s.logger.Info("scheduler jobs registered",
		"overdue_scan", s.cfg.OverdueScan,
		"consistency_audit", s.cfg.ConsistencyAudit)
	return nil
}

// OverdueScan publishes one overdue event per item out for at least
// OverdueDays days.
func (s *Scheduler) OverdueScan(ctx context.Context) error {
	overdue, err := s.ledger.ItemsOutLongerThan(ctx, s.cfg.OverdueDays)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	for _, detail := range overdue {
		event := events.NewCheckoutOverdueEvent(
			detail.Item.ID,
			detail.Item.Name,
			detail.CheckoutRecord.UserID,
			detail.CheckoutRecord.ID,
			detail.DaysOut,
			now,
		)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish overdue event", "error", err, "item_id", detail.Item.ID)
		}
	}

	s.logger.Info("overdue scan finished", "overdue_items", len(overdue), "threshold_days", s.cfg.OverdueDays)
	return nil
}

// ConsistencyAudit logs and publishes every item whose status disagrees
// with its open checkout records.
func (s *Scheduler) ConsistencyAudit(ctx context.Context) error {
	mismatches, err := s.ledger.AuditConsistency(ctx)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	for _, m := range mismatches {
		s.logger.Error("inventory consistency violation",
			"item_id", m.ItemID,
			"status", m.Status,
			"active_checkouts", m.ActiveCheckouts)
		event := events.NewConsistencyMismatchEvent(m.ItemID, string(m.Status), m.ActiveCheckouts, now)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish consistency event", "error", err, "item_id", m.ItemID)
		}
	}

	if len(mismatches) == 0 {
		s.logger.Debug("consistency audit clean")
	}
	return nil
}

func (s *Scheduler) runWithRecovery(name string, job func(ctx context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduled job panicked", "job", name, "panic", r)
			}
		}()

		ctx, cancel := internal.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err, "duration", time.Since(start))
			return
		}
		s.logger.Debug("scheduled job completed", "job", name, "duration", time.Since(start))
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("starting cron scheduler")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping cron scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("cron scheduler stopped")
}

func (s *Scheduler) EntryCount() int {
	return len(s.cron.Entries())
}
