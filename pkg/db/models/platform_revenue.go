package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// PlatformRevenue is the aggregate revenue snapshot for one period. At most
// one row exists per (period_date, period_type); recalculation replaces the
// row wholesale, never field by field.
type PlatformRevenue struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PeriodDate            time.Time        `gorm:"column:period_date;type:date;not null;uniqueIndex:idx_platform_revenue_period"`
	PeriodType            enums.PeriodType `gorm:"column:period_type;type:period_type;not null;uniqueIndex:idx_platform_revenue_period"`
	GrossSalesCents       int64            `gorm:"column:gross_sales_cents;not null;default:0"`
	TotalCommissionsCents int64            `gorm:"column:total_commissions_cents;not null;default:0"`
	GatewayFeesCents      int64            `gorm:"column:gateway_fees_cents;not null;default:0"`
	RefundsIssuedCents    int64            `gorm:"column:refunds_issued_cents;not null;default:0"`
	NetRevenueCents       int64            `gorm:"column:net_revenue_cents;not null;default:0"`
	OrderCount            int              `gorm:"column:order_count;not null;default:0"`
	SellerCount           int              `gorm:"column:seller_count;not null;default:0"`
	BuyerCount            int              `gorm:"column:buyer_count;not null;default:0"`
	CalculationMethod     string           `gorm:"column:calculation_method;not null"`
	RecalculatedAt        time.Time        `gorm:"column:recalculated_at;not null"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the historical table name used by the reporting jobs.
func (PlatformRevenue) TableName() string {
	return "platform_revenue"
}
