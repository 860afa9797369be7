package discounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/pkg/db"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
)

// Rejection reasons carried in a validation result. These are data, not
// errors: an invalid code is a normal checkout outcome.
const (
	ReasonNotFound      = "not_found"
	ReasonInactive      = "inactive"
	ReasonNotYetActive  = "not_yet_active"
	ReasonExpired       = "expired"
	ReasonUsageExceeded = "usage_exceeded"
	ReasonPerUserLimit  = "per_user_limit"
)

// Service validates and redeems seller discount codes. Discount amounts
// are computed once at checkout, before the payment hold is placed, and
// never applied retroactively to an existing order.
type Service interface {
	Validate(ctx context.Context, input ValidateInput) (*Result, error)
	Redeem(ctx context.Context, input RedeemInput) (int64, error)
	CreateCode(ctx context.Context, input CreateCodeInput) (*models.DiscountCode, error)
}

// ValidateInput describes a checkout asking whether a code applies.
type ValidateInput struct {
	Code          string
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	CartTotal     int64
	ShippingCents int64
}

// RedeemInput consumes one use of a code for an order at checkout.
type RedeemInput struct {
	Code          string
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	OrderID       uuid.UUID
	CartTotal     int64
	ShippingCents int64
}

// CreateCodeInput declares a new seller code.
type CreateCodeInput struct {
	SellerID         uuid.UUID
	Code             string
	DiscountType     enums.DiscountType
	Value            int64
	MaxDiscountCents *int64
	UsageLimit       *int
	PerUserLimit     *int
	ValidFrom        time.Time
	ValidUntil       time.Time
}

// Result is the structured outcome of a validation. Reason is empty when
// Valid is true.
type Result struct {
	Valid         bool   `json:"valid"`
	DiscountCents int64  `json:"discount_cents"`
	Reason        string `json:"reason,omitempty"`
}

type service struct {
	repo   Repository
	orders OrderStore
	now    func() time.Time
}

// NewService builds the discount validator.
func NewService(repo Repository, orderStore OrderStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discounts repository required")
	}
	if orderStore == nil {
		return nil, fmt.Errorf("order store required")
	}
	return &service{repo: repo, orders: orderStore, now: time.Now}, nil
}

// normalizeCode case-folds and trims so "SAVE10" and " save10 " match the
// stored lowercase code.
func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func (s *service) Validate(ctx context.Context, input ValidateInput) (*Result, error) {
	if input.SellerID == uuid.Nil || input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller ids required")
	}
	if input.CartTotal < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total must not be negative")
	}

	code := normalizeCode(input.Code)
	if code == "" {
		return &Result{Reason: ReasonNotFound}, nil
	}

	record, err := s.repo.FindBySellerAndCode(ctx, input.SellerID, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Result{Reason: ReasonNotFound}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up discount code")
	}

	if reason := s.checkEligibility(record); reason != "" {
		return &Result{Reason: reason}, nil
	}

	if record.PerUserLimit != nil {
		used, err := s.orders.CountByBuyerAndDiscountCode(ctx, input.BuyerID, input.SellerID, code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count code usage")
		}
		if used >= int64(*record.PerUserLimit) {
			return &Result{Reason: ReasonPerUserLimit}, nil
		}
	}

	return &Result{
		Valid:         true,
		DiscountCents: discountAmount(record, input.CartTotal, input.ShippingCents),
	}, nil
}

// checkEligibility applies the state checks that do not depend on the
// buyer: active flag, validity window, global cap.
func (s *service) checkEligibility(record *models.DiscountCode) string {
	if !record.IsActive {
		return ReasonInactive
	}
	now := s.now().UTC()
	if now.Before(record.ValidFrom) {
		return ReasonNotYetActive
	}
	if now.After(record.ValidUntil) {
		return ReasonExpired
	}
	if record.UsageLimit != nil && record.UsageCount >= *record.UsageLimit {
		return ReasonUsageExceeded
	}
	return ""
}

// discountAmount computes the cents knocked off the cart. Never exceeds
// the cart total, and an optional per-code cap bounds every type.
func discountAmount(record *models.DiscountCode, cartTotal, shippingCents int64) int64 {
	var amount int64
	switch record.DiscountType {
	case enums.DiscountTypePercentage:
		amount = cartTotal * record.Value / 100
	case enums.DiscountTypeFixed:
		amount = record.Value
	case enums.DiscountTypeFreeShipping:
		amount = shippingCents
	}
	if record.MaxDiscountCents != nil && amount > *record.MaxDiscountCents {
		amount = *record.MaxDiscountCents
	}
	if amount > cartTotal {
		amount = cartTotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// Redeem re-validates, consumes one use through the conditional counter
// increment, and stamps the code onto the order row. Losing the last-use
// race surfaces as a conflict carrying the usage_exceeded reason.
func (s *service) Redeem(ctx context.Context, input RedeemInput) (int64, error) {
	if input.OrderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	result, err := s.Validate(ctx, ValidateInput{
		Code:          input.Code,
		BuyerID:       input.BuyerID,
		SellerID:      input.SellerID,
		CartTotal:     input.CartTotal,
		ShippingCents: input.ShippingCents,
	})
	if err != nil {
		return 0, err
	}
	if !result.Valid {
		return 0, pkgerrors.New(pkgerrors.CodeConflict, "discount code not applicable").
			WithDetails(map[string]string{"reason": result.Reason})
	}

	code := normalizeCode(input.Code)
	record, err := s.repo.FindBySellerAndCode(ctx, input.SellerID, code)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up discount code")
	}

	consumed, err := s.repo.ConsumeUse(ctx, record.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume discount use")
	}
	if !consumed {
		return 0, pkgerrors.New(pkgerrors.CodeConflict, "discount code not applicable").
			WithDetails(map[string]string{"reason": ReasonUsageExceeded})
	}

	if err := s.orders.SetDiscount(ctx, input.OrderID, code, result.DiscountCents); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach discount to order")
	}
	return result.DiscountCents, nil
}

func (s *service) CreateCode(ctx context.Context, input CreateCodeInput) (*models.DiscountCode, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	code := normalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.Value < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value must not be negative")
	}
	if input.DiscountType == enums.DiscountTypePercentage && input.Value > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage must not exceed 100")
	}
	if !input.ValidUntil.After(input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity window must not be empty")
	}

	created, err := s.repo.Create(ctx, &models.DiscountCode{
		SellerID:         input.SellerID,
		Code:             code,
		DiscountType:     input.DiscountType,
		Value:            input.Value,
		MaxDiscountCents: input.MaxDiscountCents,
		UsageLimit:       input.UsageLimit,
		PerUserLimit:     input.PerUserLimit,
		ValidFrom:        input.ValidFrom.UTC(),
		ValidUntil:       input.ValidUntil.UTC(),
		IsActive:         true,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_discount_codes_seller_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "code already exists for this seller")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount code")
	}
	return created, nil
}
