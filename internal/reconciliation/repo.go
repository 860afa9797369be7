package reconciliation

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nearbuyhq/nearbuy-backend/internal/repo"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

type gormRepo struct {
	repo.Base
}

// NewRepository builds the gorm-backed revenue snapshot repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepo{Base: repo.NewBase(db)}
}

func (r *gormRepo) WithTx(tx *gorm.DB) Repository {
	return &gormRepo{Base: r.Base.WithTx(tx)}
}

func (r *gormRepo) FindByPeriod(ctx context.Context, periodDate time.Time, periodType enums.PeriodType) (*models.PlatformRevenue, error) {
	var record models.PlatformRevenue
	err := r.DB(ctx).
		Where("period_date = ? AND period_type = ?", periodDate, periodType).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormRepo) Upsert(ctx context.Context, record *models.PlatformRevenue) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "period_date"}, {Name: "period_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"gross_sales_cents",
				"total_commissions_cents",
				"gateway_fees_cents",
				"refunds_issued_cents",
				"net_revenue_cents",
				"order_count",
				"seller_count",
				"buyer_count",
				"calculation_method",
				"recalculated_at",
			}),
		}).
		Create(record).Error
}
