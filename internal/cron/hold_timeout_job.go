package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/nearbuyhq/nearbuy-backend/internal/escrow"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

// staleHoldSource lists orders whose payment hold has been sitting in
// authorized since before the cutoff.
type staleHoldSource interface {
	FindAuthorizedBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

// HoldTimeoutJob settles payment holds that aged past the configured
// maximum. Pickup orders are refunded; shipping orders already marked
// delivered are released to the seller. Anything else stays untouched
// for manual review. Settlement goes through the same escrow paths as
// live callers, so a racing human simply wins the conditional update.
type HoldTimeoutJob struct {
	source  staleHoldSource
	settler escrow.Service
	logg    *logger.Logger
	maxAge  time.Duration
	now     func() time.Time
}

// NewHoldTimeoutJob builds the hold timeout job.
func NewHoldTimeoutJob(source staleHoldSource, settler escrow.Service, logg *logger.Logger, maxAge time.Duration) (*HoldTimeoutJob, error) {
	if source == nil {
		return nil, fmt.Errorf("order source required")
	}
	if settler == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("hold max age must be positive")
	}
	return &HoldTimeoutJob{
		source:  source,
		settler: settler,
		logg:    logg,
		maxAge:  maxAge,
		now:     time.Now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *HoldTimeoutJob) Name() string { return "hold-timeout" }

// Run settles every expired hold it can and reports the rest.
func (j *HoldTimeoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	stale, err := j.source.FindAuthorizedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale holds: %w", err)
	}

	var errs error
	for _, order := range stale {
		if err := j.settle(ctx, order); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}
	return errs
}

func (j *HoldTimeoutJob) settle(ctx context.Context, order models.Order) error {
	logCtx := j.logg.WithOrderID(ctx, order.ID.String())

	var err error
	switch {
	case order.FulfillmentMethod == enums.FulfillmentMethodPickup:
		// The pickup window passed without a confirmation; the buyer
		// gets their money back.
		_, err = j.settler.RefundHold(ctx, escrow.RefundInput{
			OrderID: order.ID,
			System:  true,
		})
	case order.Status == enums.OrderStatusDelivered:
		// Delivered but never confirmed by the buyer; the seller held
		// up their side, release the funds.
		_, err = j.settler.ReleaseHold(ctx, escrow.ReleaseInput{
			OrderID: order.ID,
			Reason:  enums.ReleaseReasonAutoTimeout,
			System:  true,
		})
	default:
		j.logg.Warn(logCtx, "stale hold left for manual review")
		return nil
	}

	if err != nil {
		// A state conflict means someone settled the order between the
		// listing and this call, which is the desired outcome anyway.
		if pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
			j.logg.Info(logCtx, "stale hold settled concurrently")
			return nil
		}
		return err
	}
	j.logg.Info(logCtx, "stale hold settled by timeout policy")
	return nil
}
