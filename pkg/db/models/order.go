package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// Order represents one buyer/seller transaction. Rows are never deleted;
// settled orders are retained for reconciliation and audit.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID           uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID          uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	TotalCents        int64                   `gorm:"column:total_cents;not null"`
	CommissionCents   int64                   `gorm:"column:commission_cents;not null;default:0"`
	Status            enums.OrderStatus       `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentHoldStatus enums.PaymentHoldStatus `gorm:"column:payment_hold_status;type:payment_hold_status;not null;default:'none'"`
	PaymentHoldRef    *string                 `gorm:"column:payment_hold_ref"`
	FulfillmentMethod enums.FulfillmentMethod `gorm:"column:fulfillment_method;type:fulfillment_method;not null"`
	DiscountCode      *string                 `gorm:"column:discount_code"`
	DiscountCents     int64                   `gorm:"column:discount_cents;not null;default:0"`
	PickupConfirmedAt *time.Time              `gorm:"column:pickup_confirmed_at"`
	CompletedAt       *time.Time              `gorm:"column:completed_at"`
	CancelledAt       *time.Time              `gorm:"column:cancelled_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// IsParty reports whether the given user is the order's buyer or seller.
func (o Order) IsParty(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}
