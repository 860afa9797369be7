package discounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
)

// Repository defines persistence for seller discount codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, code *models.DiscountCode) (*models.DiscountCode, error)
	FindBySellerAndCode(ctx context.Context, sellerID uuid.UUID, code string) (*models.DiscountCode, error)
	// ConsumeUse advances usage_count by one only while the global cap
	// still has room. Returns false when the cap is already reached, which
	// resolves last-use races without locks.
	ConsumeUse(ctx context.Context, codeID uuid.UUID) (bool, error)
}

// OrderStore is the slice of the order record store the validator needs:
// per-user usage comes from counting the buyer's orders that carry the
// code, and redemption stamps the code onto the order row.
type OrderStore interface {
	CountByBuyerAndDiscountCode(ctx context.Context, buyerID, sellerID uuid.UUID, code string) (int64, error)
	SetDiscount(ctx context.Context, orderID uuid.UUID, code string, discountCents int64) error
}
