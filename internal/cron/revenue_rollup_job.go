package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/nearbuyhq/nearbuy-backend/internal/reconciliation"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// RevenueRollupJob keeps the revenue snapshots fresh: yesterday's daily
// record and the running current month, both rebuilt from scratch.
type RevenueRollupJob struct {
	reconciler reconciliation.Service
	now        func() time.Time
}

// NewRevenueRollupJob builds the revenue rollup job.
func NewRevenueRollupJob(reconciler reconciliation.Service) (*RevenueRollupJob, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("reconciliation service required")
	}
	return &RevenueRollupJob{reconciler: reconciler, now: time.Now}, nil
}

// Name identifies the job in logs and metrics.
func (j *RevenueRollupJob) Name() string { return "revenue-rollup" }

// Run rebuilds both periods; a failure in one does not skip the other.
func (j *RevenueRollupJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	var errs error
	if _, _, err := j.reconciler.Reconcile(ctx, reconciliation.ReconcileInput{
		Date:        now.AddDate(0, 0, -1),
		PeriodType:  enums.PeriodTypeDaily,
		Recalculate: true,
	}); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("daily rollup: %w", err))
	}

	if _, _, err := j.reconciler.Reconcile(ctx, reconciliation.ReconcileInput{
		Date:        now,
		PeriodType:  enums.PeriodTypeMonthly,
		Recalculate: true,
	}); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("monthly rollup: %w", err))
	}
	return errs
}
