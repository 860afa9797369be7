package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// DiscountCode is a seller-scoped promotional code. The usage counter is
// only ever advanced through a conditional increment so a cap can never be
// exceeded under concurrent checkouts.
type DiscountCode struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string             `gorm:"column:code;not null;uniqueIndex:idx_discount_codes_seller_code"`
	SellerID         uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:idx_discount_codes_seller_code"`
	DiscountType     enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	Value            int64              `gorm:"column:value;not null"`
	MaxDiscountCents *int64             `gorm:"column:max_discount_cents"`
	UsageCount       int                `gorm:"column:usage_count;not null;default:0"`
	UsageLimit       *int               `gorm:"column:usage_limit"`
	PerUserLimit     *int               `gorm:"column:per_user_limit"`
	ValidFrom        time.Time          `gorm:"column:valid_from;not null"`
	ValidUntil       time.Time          `gorm:"column:valid_until;not null"`
	IsActive         bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
