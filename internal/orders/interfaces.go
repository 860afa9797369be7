package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// Repository defines persistence operations for the order record store.
// All settlement-relevant mutations go through conditional single-row
// updates; the returned bool reports whether this caller won the write.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// TransitionHold flips payment_hold_status from -> to in a single
	// conditional update, applying extra column updates in the same
	// statement. It is the sole serialization point for settlement races.
	TransitionHold(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentHoldStatus, updates map[string]any) (bool, error)
	// TransitionStatus flips status from -> to conditionally, same contract.
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	FindAuthorizedBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	FindCreatedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error)
	CountByBuyerAndDiscountCode(ctx context.Context, buyerID, sellerID uuid.UUID, code string) (int64, error)
	SetDiscount(ctx context.Context, orderID uuid.UUID, code string, discountCents int64) error
}
