package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
)

const defaultCommissionBasisPoints = 1000 // 10% marketplace commission

// Service defines order lifecycle operations driven by fulfillment events.
// The final transition to completed is owned by the escrow service and is
// deliberately absent here.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	MarkShipped(ctx context.Context, orderID, actorID uuid.UUID) error
	MarkReadyForPickup(ctx context.Context, orderID, actorID uuid.UUID) error
	MarkDelivered(ctx context.Context, orderID, actorID uuid.UUID) error
	Cancel(ctx context.Context, orderID, actorID uuid.UUID) error
}

// CreateInput captures a checkout result. TotalCents is the final amount
// after any discount; it is fixed here, before the escrow hold is placed.
type CreateInput struct {
	BuyerID           uuid.UUID
	SellerID          uuid.UUID
	TotalCents        int64
	FulfillmentMethod enums.FulfillmentMethod
	DiscountCode      *string
	DiscountCents     int64
}

type service struct {
	repo                 Repository
	commissionBasisPoint int
	now                  func() time.Time
}

// NewService builds the order lifecycle service.
func NewService(repo Repository, commissionBasisPoints int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if commissionBasisPoints <= 0 {
		commissionBasisPoints = defaultCommissionBasisPoints
	}
	return &service{
		repo:                 repo,
		commissionBasisPoint: commissionBasisPoints,
		now:                  time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.BuyerID == input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller must differ")
	}
	if input.TotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total must not be negative")
	}
	if !input.FulfillmentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment method")
	}

	order := &models.Order{
		BuyerID:           input.BuyerID,
		SellerID:          input.SellerID,
		TotalCents:        input.TotalCents,
		CommissionCents:   commissionFor(input.TotalCents, s.commissionBasisPoint),
		Status:            enums.OrderStatusPending,
		PaymentHoldStatus: enums.PaymentHoldStatusNone,
		FulfillmentMethod: input.FulfillmentMethod,
		DiscountCode:      input.DiscountCode,
		DiscountCents:     input.DiscountCents,
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return created, nil
}

func (s *service) MarkShipped(ctx context.Context, orderID, actorID uuid.UUID) error {
	return s.fulfillmentTransition(ctx, orderID, actorID, enums.OrderStatusShipped, nil)
}

func (s *service) MarkReadyForPickup(ctx context.Context, orderID, actorID uuid.UUID) error {
	return s.fulfillmentTransition(ctx, orderID, actorID, enums.OrderStatusReadyForPickup, nil)
}

func (s *service) MarkDelivered(ctx context.Context, orderID, actorID uuid.UUID) error {
	return s.fulfillmentTransition(ctx, orderID, actorID, enums.OrderStatusDelivered, nil)
}

// fulfillmentTransition applies a seller-attested forward edge. The
// conditional update re-checks the current status so a stale read cannot
// drive an undefined transition.
func (s *service) fulfillmentTransition(ctx context.Context, orderID, actorID uuid.UUID, target enums.OrderStatus, updates map[string]any) error {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.SellerID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller may record fulfillment events")
	}
	if !CanTransitionStatus(order.Status, target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
	}

	won, err := s.repo.TransitionStatus(ctx, orderID, order.Status, target, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !won {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed concurrently")
	}
	return nil
}

// Cancel closes an unpaid order. Orders with an authorized hold must go
// through the escrow refund path instead, which refunds the hold and
// cancels the order in one settlement.
func (s *service) Cancel(ctx context.Context, orderID, actorID uuid.UUID) error {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.IsParty(actorID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order")
	}
	if order.PaymentHoldStatus != enums.PaymentHoldStatusNone {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has a payment hold; refund it to cancel")
	}
	if !CanTransitionStatus(order.Status, enums.OrderStatusCancelled) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been completed or cancelled")
	}

	won, err := s.repo.TransitionStatus(ctx, orderID, order.Status, enums.OrderStatusCancelled, map[string]any{
		"cancelled_at": s.now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if !won {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed concurrently")
	}
	return nil
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func commissionFor(totalCents int64, basisPoints int) int64 {
	return totalCents * int64(basisPoints) / 10000
}
