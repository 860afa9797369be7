package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/pkg/config"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
)

// OrderSource is the read slice of the order record store the aggregator
// consumes. It never writes orders.
type OrderSource interface {
	FindCreatedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error)
}

// Service computes period revenue snapshots. A run is a pure function of
// the orders in the window: load everything, aggregate in memory, then
// write the full row once. Partial snapshots are never persisted.
type Service interface {
	Reconcile(ctx context.Context, input ReconcileInput) (*models.PlatformRevenue, bool, error)
}

// ReconcileInput selects the period. Recalculate forces a rebuild even
// when a snapshot already exists.
type ReconcileInput struct {
	Date        time.Time
	PeriodType  enums.PeriodType
	Recalculate bool
}

type service struct {
	repo   Repository
	source OrderSource
	cfg    config.ReconcileConfig
	now    func() time.Time
}

// NewService wires the revenue aggregator.
func NewService(repo Repository, source OrderSource, cfg config.ReconcileConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reconciliation repository required")
	}
	if source == nil {
		return nil, fmt.Errorf("order source required")
	}
	return &service{repo: repo, source: source, cfg: cfg, now: time.Now}, nil
}

func (s *service) Reconcile(ctx context.Context, input ReconcileInput) (*models.PlatformRevenue, bool, error) {
	if !input.PeriodType.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "invalid period type")
	}
	if input.Date.IsZero() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "period date required")
	}

	periodDate, start, end := periodWindow(input.Date, input.PeriodType)

	existing, err := s.repo.FindByPeriod(ctx, periodDate, input.PeriodType)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load revenue snapshot")
	}
	if existing != nil && !input.Recalculate {
		return existing, false, nil
	}

	orders, err := s.source.FindCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load period orders")
	}

	record := s.aggregate(orders, periodDate, input.PeriodType)
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write revenue snapshot")
	}
	return record, true, nil
}

func (s *service) aggregate(orders []models.Order, periodDate time.Time, periodType enums.PeriodType) *models.PlatformRevenue {
	var (
		gross       int64
		commissions int64
		fees        int64
		refunds     int64
		sellers     = map[uuid.UUID]struct{}{}
		buyers      = map[uuid.UUID]struct{}{}
	)

	for _, order := range orders {
		sellers[order.SellerID] = struct{}{}
		buyers[order.BuyerID] = struct{}{}

		switch order.PaymentHoldStatus {
		case enums.PaymentHoldStatusCaptured:
			gross += order.TotalCents
			commissions += order.CommissionCents
			fees += s.feeEstimateCents(order.TotalCents)
		case enums.PaymentHoldStatusRefunded:
			refunds += order.TotalCents
		}
	}

	return &models.PlatformRevenue{
		PeriodDate:            periodDate,
		PeriodType:            periodType,
		GrossSalesCents:       gross,
		TotalCommissionsCents: commissions,
		GatewayFeesCents:      fees,
		RefundsIssuedCents:    refunds,
		NetRevenueCents:       commissions - fees,
		OrderCount:            len(orders),
		SellerCount:           len(sellers),
		BuyerCount:            len(buyers),
		CalculationMethod:     fmt.Sprintf("fee_estimate_%dbp_plus_%dc", s.cfg.FeeBasisPoints, s.cfg.FeeFixedCents),
		RecalculatedAt:        s.now().UTC(),
	}
}

// feeEstimateCents approximates the gateway's cut of one captured
// transaction: a percentage of the amount plus a fixed per-transaction
// charge, until a real settlement report feed replaces the estimate.
func (s *service) feeEstimateCents(totalCents int64) int64 {
	percentage := decimal.NewFromInt(totalCents).
		Mul(decimal.NewFromInt(int64(s.cfg.FeeBasisPoints))).
		Div(decimal.NewFromInt(10000)).
		Round(0)
	return percentage.IntPart() + int64(s.cfg.FeeFixedCents)
}

// periodWindow normalizes the requested date to the period's canonical
// date and returns the half-open [start, end) interval it covers.
func periodWindow(date time.Time, periodType enums.PeriodType) (periodDate, start, end time.Time) {
	d := date.UTC()
	switch periodType {
	case enums.PeriodTypeMonthly:
		start = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	case enums.PeriodTypeYearly:
		start = time.Date(d.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	default:
		start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	}
	return start, start, end
}
