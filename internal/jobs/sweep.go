// Package jobs runs the scheduled background work: the nightly sweep that
// re-attempts settlement matching and rule-based categorization for every
// tenant.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oakfieldhq/backoffice/internal/application/categorize"
	"github.com/oakfieldhq/backoffice/internal/application/reconcile"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// DefaultSchedule runs the sweep at 02:00 every day.
const DefaultSchedule = "0 2 * * *"

// Sweeper runs the daily reconciliation and categorization sweep.
type Sweeper struct {
	repo        storage.Repository
	reconciler  *reconcile.Service
	categorizer *categorize.Service
	logger      *slog.Logger
	cron        *cron.Cron
}

// SweepSummary reports what one sweep pass did.
type SweepSummary struct {
	Tenants        int
	DepositsTried  int
	AutoReconciled int
	Suggested      int
	Errors         int
}

// NewSweeper creates a sweeper. A nil logger falls back to slog.Default.
func NewSweeper(repo storage.Repository, reconciler *reconcile.Service, categorizer *categorize.Service, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		repo:        repo,
		reconciler:  reconciler,
		categorizer: categorizer,
		logger:      logger,
	}
}

// Start schedules the sweep. An empty schedule uses DefaultSchedule.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		s.Run(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("sweep scheduled", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Run executes one sweep pass across all tenants. Per-tenant failures are
// logged and counted but never abort the pass.
func (s *Sweeper) Run(ctx context.Context) SweepSummary {
	start := time.Now()
	summary := SweepSummary{}

	tenants, err := s.repo.Tenants()
	if err != nil {
		s.logger.Error("sweep cannot list tenants", "error", err)
		summary.Errors++
		return summary
	}

	for _, tenant := range tenants {
		summary.Tenants++
		s.sweepTenant(ctx, tenant, &summary)
	}

	s.logger.Info("sweep complete",
		"tenants", summary.Tenants,
		"deposits_tried", summary.DepositsTried,
		"auto_reconciled", summary.AutoReconciled,
		"suggested", summary.Suggested,
		"errors", summary.Errors,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return summary
}

func (s *Sweeper) sweepTenant(ctx context.Context, tenant string, summary *SweepSummary) {
	deposits, err := s.repo.UnmatchedDeposits(tenant)
	if err != nil {
		s.logger.Warn("sweep cannot list deposits", "tenant", tenant, "error", err)
		summary.Errors++
		return
	}

	for _, deposit := range deposits {
		summary.DepositsTried++
		result, err := s.reconciler.FindSettlementMatches(ctx, tenant, deposit.ID)
		if err != nil {
			s.logger.Warn("sweep reconcile failed",
				"tenant", tenant, "deposit_id", deposit.ID, "error", err)
			summary.Errors++
			continue
		}
		if result.AutoReconciled {
			summary.AutoReconciled++
		}
	}

	run, err := s.categorizer.SuggestCategories(ctx, tenant, categorize.Options{})
	if err != nil {
		s.logger.Warn("sweep categorization failed", "tenant", tenant, "error", err)
		summary.Errors++
		return
	}
	summary.Suggested += run.Suggested
}
