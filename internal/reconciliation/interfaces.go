package reconciliation

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// Repository persists period revenue snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByPeriod(ctx context.Context, periodDate time.Time, periodType enums.PeriodType) (*models.PlatformRevenue, error)
	// Upsert writes the whole row keyed on (period_date, period_type),
	// replacing any previous snapshot in one statement.
	Upsert(ctx context.Context, record *models.PlatformRevenue) error
}
