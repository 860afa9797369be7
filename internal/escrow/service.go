package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/internal/orders"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

// Gateway is the slice of the payment provider the settlement service
// needs. All three operations are idempotent by hold reference, so a
// retried call after a transient failure cannot double-move money.
type Gateway interface {
	Authorize(ctx context.Context, amountCents int64, sourceID, referenceID string) (string, error)
	Capture(ctx context.Context, holdRef string) error
	Refund(ctx context.Context, holdRef string) error
}

// Notifier delivers fire-and-forget messages. Failures are logged and
// never roll back a settlement decision.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, kind enums.NotificationType, title, body string, deepLink *string) error
}

// Service mediates the one-way transitions on an order's payment hold,
// guaranteeing exactly-once capture/refund under concurrent callers.
type Service interface {
	PlaceHold(ctx context.Context, input PlaceHoldInput) (*models.Order, error)
	ReleaseHold(ctx context.Context, input ReleaseInput) (*models.Order, error)
	RefundHold(ctx context.Context, input RefundInput) (*models.Order, error)
}

// PlaceHoldInput authorizes the buyer's payment for an order total that is
// already final (discounts applied at checkout, never retroactively).
type PlaceHoldInput struct {
	OrderID  uuid.UUID
	SourceID string
}

// ReleaseInput asks to capture the hold. System marks requests from
// scheduled jobs; human callers can never set it through the API surface.
type ReleaseInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Reason  enums.ReleaseReason
	System  bool
}

// RefundInput asks to void the hold and cancel the order.
type RefundInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	System  bool
}

type actorRole int

const (
	roleBuyer actorRole = iota
	roleSeller
	roleSystem
)

// releaseAuthz maps each release reason to the role that may assert it.
// Consulted before the state check so an authorization failure and a
// settle race stay distinguishable in responses and logs.
var releaseAuthz = map[enums.ReleaseReason]actorRole{
	enums.ReleaseReasonSellerConfirm: roleSeller,
	enums.ReleaseReasonBuyerConfirm:  roleBuyer,
	enums.ReleaseReasonAutoTimeout:   roleSystem,
}

type service struct {
	repo     orders.Repository
	gateway  Gateway
	notifier Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the escrow settlement dependencies.
func NewService(repo orders.Repository, gateway Gateway, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) PlaceHold(ctx context.Context, input PlaceHoldInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.SourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source required")
	}

	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentHoldStatus != enums.PaymentHoldStatusNone {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a payment hold")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been completed or cancelled")
	}

	holdRef, err := s.gateway.Authorize(ctx, order.TotalCents, input.SourceID, order.ID.String())
	if err != nil {
		return nil, s.gatewayError(err, "authorize payment hold")
	}

	won, err := s.repo.TransitionHold(ctx, order.ID,
		enums.PaymentHoldStatusNone, enums.PaymentHoldStatusAuthorized,
		map[string]any{"payment_hold_ref": holdRef})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment hold")
	}
	if !won {
		// Another checkout attempt authorized first; that hold stands.
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Warn(logCtx, "orphaned payment authorization, hold already recorded")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a payment hold")
	}

	order.PaymentHoldStatus = enums.PaymentHoldStatusAuthorized
	order.PaymentHoldRef = &holdRef
	return order, nil
}

func (s *service) ReleaseHold(ctx context.Context, input ReleaseInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid release reason")
	}

	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRelease(order, input); err != nil {
		return nil, err
	}
	holdRef, err := s.settleableHoldRef(order)
	if err != nil {
		return nil, err
	}

	// Capture before the local transition: a gateway failure leaves the
	// row untouched and retryable, and the capture itself is idempotent
	// by hold reference if two racers both reach it.
	if err := s.gateway.Capture(ctx, holdRef); err != nil {
		return nil, s.gatewayError(err, "capture payment hold")
	}

	now := s.now().UTC()
	updates := map[string]any{
		"status":       enums.OrderStatusCompleted,
		"completed_at": now,
	}
	if input.Reason == enums.ReleaseReasonSellerConfirm &&
		order.FulfillmentMethod == enums.FulfillmentMethodPickup &&
		order.PickupConfirmedAt == nil {
		updates["pickup_confirmed_at"] = now
	}

	won, err := s.repo.TransitionHold(ctx, order.ID,
		enums.PaymentHoldStatusAuthorized, enums.PaymentHoldStatusCaptured, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record capture")
	}
	if !won {
		// The other party settled first; the capture above was a no-op
		// repeat against the same hold reference.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been completed or cancelled")
	}

	order.PaymentHoldStatus = enums.PaymentHoldStatusCaptured
	order.Status = enums.OrderStatusCompleted
	order.CompletedAt = &now

	s.notifyBoth(ctx, order, enums.NotificationOrderCompleted,
		"Order completed",
		"Payment has been released to the seller.")
	return order, nil
}

func (s *service) RefundHold(ctx context.Context, input RefundInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !input.System && !order.IsParty(input.ActorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order")
	}
	holdRef, err := s.settleableHoldRef(order)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.Refund(ctx, holdRef); err != nil {
		return nil, s.gatewayError(err, "refund payment hold")
	}

	now := s.now().UTC()
	won, err := s.repo.TransitionHold(ctx, order.ID,
		enums.PaymentHoldStatusAuthorized, enums.PaymentHoldStatusRefunded,
		map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
	}
	if !won {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been completed or cancelled")
	}

	order.PaymentHoldStatus = enums.PaymentHoldStatusRefunded
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now

	s.notifyBoth(ctx, order, enums.NotificationOrderCancelled,
		"Order cancelled",
		"The payment hold has been refunded to the buyer.")
	return order, nil
}

// authorizeRelease checks the (reason, required role) pairing independently
// of order state.
func (s *service) authorizeRelease(order *models.Order, input ReleaseInput) error {
	required, ok := releaseAuthz[input.Reason]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid release reason")
	}
	switch required {
	case roleSystem:
		if !input.System {
			return pkgerrors.New(pkgerrors.CodeForbidden, "reason is reserved for scheduled jobs")
		}
		return nil
	case roleSeller:
		if input.ActorID != order.SellerID {
			if !order.IsParty(input.ActorID) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order")
			}
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller may attest fulfillment")
		}
		return nil
	case roleBuyer:
		if input.ActorID != order.BuyerID {
			if !order.IsParty(input.ActorID) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order")
			}
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may confirm receipt")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "unmapped release reason")
}

func (s *service) settleableHoldRef(order *models.Order) (string, error) {
	switch order.PaymentHoldStatus {
	case enums.PaymentHoldStatusAuthorized:
	case enums.PaymentHoldStatusCaptured, enums.PaymentHoldStatusRefunded:
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been completed or cancelled")
	default:
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order has no authorized payment hold")
	}
	if order.PaymentHoldRef == nil || *order.PaymentHoldRef == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "authorized hold is missing its gateway reference")
	}
	return *order.PaymentHoldRef, nil
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) gatewayError(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" failed")
}

func (s *service) notifyBoth(ctx context.Context, order *models.Order, kind enums.NotificationType, title, body string) {
	link := "/orders/" + order.ID.String()
	for _, recipient := range []uuid.UUID{order.BuyerID, order.SellerID} {
		if err := s.notifier.Notify(ctx, recipient, kind, title, body, &link); err != nil {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Warn(logCtx, "notification delivery failed: "+err.Error())
		}
	}
}
