package escrow

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/internal/orders"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

type stubRepo struct {
	order            *models.Order
	findErr          error
	transitionHoldFn func(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentHoldStatus, updates map[string]any) (bool, error)

	holdCalls   int
	lastFrom    enums.PaymentHoldStatus
	lastTo      enums.PaymentHoldStatus
	lastUpdates map[string]any
}

func (s *stubRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubRepo) TransitionHold(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentHoldStatus, updates map[string]any) (bool, error) {
	s.holdCalls++
	s.lastFrom = from
	s.lastTo = to
	s.lastUpdates = updates
	if s.transitionHoldFn != nil {
		return s.transitionHoldFn(ctx, orderID, from, to, updates)
	}
	return true, nil
}

func (s *stubRepo) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	return true, nil
}

func (s *stubRepo) FindAuthorizedBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return nil, nil
}

func (s *stubRepo) FindCreatedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	return nil, nil
}

func (s *stubRepo) CountByBuyerAndDiscountCode(ctx context.Context, buyerID, sellerID uuid.UUID, code string) (int64, error) {
	return 0, nil
}

func (s *stubRepo) SetDiscount(ctx context.Context, orderID uuid.UUID, code string, discountCents int64) error {
	return nil
}

type stubGateway struct {
	authorizeErr error
	captureErr   error
	refundErr    error

	authorizeCalls int
	captureCalls   int
	refundCalls    int
	lastHoldRef    string
}

func (g *stubGateway) Authorize(ctx context.Context, amountCents int64, sourceID, referenceID string) (string, error) {
	g.authorizeCalls++
	if g.authorizeErr != nil {
		return "", g.authorizeErr
	}
	return "hold-" + referenceID, nil
}

func (g *stubGateway) Capture(ctx context.Context, holdRef string) error {
	g.captureCalls++
	g.lastHoldRef = holdRef
	return g.captureErr
}

func (g *stubGateway) Refund(ctx context.Context, holdRef string) error {
	g.refundCalls++
	g.lastHoldRef = holdRef
	return g.refundErr
}

type stubNotifier struct {
	err        error
	recipients []uuid.UUID
	kinds      []enums.NotificationType
}

func (n *stubNotifier) Notify(ctx context.Context, recipientID uuid.UUID, kind enums.NotificationType, title, body string, deepLink *string) error {
	n.recipients = append(n.recipients, recipientID)
	n.kinds = append(n.kinds, kind)
	return n.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "escrow-test", Output: io.Discard})
}

func heldOrder(method enums.FulfillmentMethod) *models.Order {
	ref := "hold-abc"
	return &models.Order{
		ID:                uuid.New(),
		BuyerID:           uuid.New(),
		SellerID:          uuid.New(),
		TotalCents:        10000,
		CommissionCents:   1000,
		Status:            enums.OrderStatusConfirmed,
		PaymentHoldStatus: enums.PaymentHoldStatusAuthorized,
		PaymentHoldRef:    &ref,
		FulfillmentMethod: method,
	}
}

func newTestService(t *testing.T, repo *stubRepo, gw *stubGateway, notifier *stubNotifier) Service {
	t.Helper()
	svc, err := NewService(repo, gw, notifier, testLogger())
	require.NoError(t, err)
	return svc
}

func TestReleaseHoldSellerConfirm(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	notifier := &stubNotifier{}
	svc := newTestService(t, repo, gw, notifier)

	settled, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.SellerID,
		Reason:  enums.ReleaseReasonSellerConfirm,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, gw.captureCalls)
	assert.Equal(t, "hold-abc", gw.lastHoldRef)
	assert.Equal(t, enums.PaymentHoldStatusAuthorized, repo.lastFrom)
	assert.Equal(t, enums.PaymentHoldStatusCaptured, repo.lastTo)
	assert.Equal(t, enums.OrderStatusCompleted, repo.lastUpdates["status"])
	assert.Contains(t, repo.lastUpdates, "completed_at")

	assert.Equal(t, enums.PaymentHoldStatusCaptured, settled.PaymentHoldStatus)
	assert.Equal(t, enums.OrderStatusCompleted, settled.Status)
	require.NotNil(t, settled.CompletedAt)

	assert.ElementsMatch(t, []uuid.UUID{order.BuyerID, order.SellerID}, notifier.recipients)
	assert.Equal(t, enums.NotificationOrderCompleted, notifier.kinds[0])
}

func TestReleaseHoldPickupStampsConfirmation(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodPickup)
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	_, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.SellerID,
		Reason:  enums.ReleaseReasonSellerConfirm,
	})
	require.NoError(t, err)
	assert.Contains(t, repo.lastUpdates, "pickup_confirmed_at")
}

func TestReleaseHoldBuyerConfirm(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	_, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.BuyerID,
		Reason:  enums.ReleaseReasonBuyerConfirm,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, gw.captureCalls)
}

func TestReleaseHoldWrongPartyForReason(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	// The buyer cannot attest the seller's fulfillment.
	_, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.BuyerID,
		Reason:  enums.ReleaseReasonSellerConfirm,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	assert.Zero(t, gw.captureCalls)
	assert.Zero(t, repo.holdCalls)
}

func TestReleaseHoldStrangerForbiddenEvenWhenSettled(t *testing.T) {
	// Authorization is checked before state, so a stranger probing a
	// settled order still sees a permission error, not a state error.
	order := heldOrder(enums.FulfillmentMethodShipping)
	order.PaymentHoldStatus = enums.PaymentHoldStatusCaptured
	repo := &stubRepo{order: order}
	svc := newTestService(t, repo, &stubGateway{}, &stubNotifier{})

	_, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: uuid.New(),
		Reason:  enums.ReleaseReasonBuyerConfirm,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestReleaseHoldAutoTimeoutRequiresSystem(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{order: order}
	svc := newTestService(t, repo, &stubGateway{}, &stubNotifier{})

	_, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.SellerID,
		Reason:  enums.ReleaseReasonAutoTimeout,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		Reason:  enums.ReleaseReasonAutoTimeout,
		System:  true,
	})
	assert.NoError(t, err)
}

func TestReleaseHoldAlreadySettled(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	order.PaymentHoldStatus = enums.PaymentHoldStatusCaptured
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	_, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.SellerID,
		Reason:  enums.ReleaseReasonSellerConfirm,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Zero(t, gw.captureCalls)
}

func TestReleaseHoldNoHold(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	order.PaymentHoldStatus = enums.PaymentHoldStatusNone
	order.PaymentHoldRef = nil
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	_, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.SellerID,
		Reason:  enums.ReleaseReasonSellerConfirm,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Zero(t, gw.captureCalls)
}

func TestReleaseHoldGatewayFailureLeavesOrderUntouched(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{order: order}
	gw := &stubGateway{captureErr: errors.New("square: timeout")}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	_, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.SellerID,
		Reason:  enums.ReleaseReasonSellerConfirm,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.Retryable(err))
	assert.Zero(t, repo.holdCalls)
}

func TestReleaseHoldLostRace(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{
		order: order,
		transitionHoldFn: func(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentHoldStatus, updates map[string]any) (bool, error) {
			return false, nil
		},
	}
	gw := &stubGateway{}
	notifier := &stubNotifier{}
	svc := newTestService(t, repo, gw, notifier)

	_, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.SellerID,
		Reason:  enums.ReleaseReasonSellerConfirm,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, notifier.recipients)
}

func TestReleaseHoldNotificationFailureIsSwallowed(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{order: order}
	notifier := &stubNotifier{err: errors.New("insert failed")}
	svc := newTestService(t, repo, &stubGateway{}, notifier)

	settled, err := svc.ReleaseHold(context.Background(), ReleaseInput{
		OrderID: order.ID,
		ActorID: order.SellerID,
		Reason:  enums.ReleaseReasonSellerConfirm,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, settled.Status)
	assert.Len(t, notifier.recipients, 2)
}

func TestRefundHoldByBuyer(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	notifier := &stubNotifier{}
	svc := newTestService(t, repo, gw, notifier)

	cancelled, err := svc.RefundHold(context.Background(), RefundInput{
		OrderID: order.ID,
		ActorID: order.BuyerID,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, gw.refundCalls)
	assert.Equal(t, enums.PaymentHoldStatusRefunded, repo.lastTo)
	assert.Equal(t, enums.OrderStatusCancelled, repo.lastUpdates["status"])
	assert.Contains(t, repo.lastUpdates, "cancelled_at")
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.NotificationOrderCancelled, notifier.kinds[0])
}

func TestRefundHoldByStranger(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	_, err := svc.RefundHold(context.Background(), RefundInput{
		OrderID: order.ID,
		ActorID: uuid.New(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	assert.Zero(t, gw.refundCalls)
}

func TestRefundHoldSystemActor(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodPickup)
	repo := &stubRepo{order: order}
	svc := newTestService(t, repo, &stubGateway{}, &stubNotifier{})

	_, err := svc.RefundHold(context.Background(), RefundInput{
		OrderID: order.ID,
		System:  true,
	})
	assert.NoError(t, err)
}

func TestRefundHoldAlreadyRefunded(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	order.PaymentHoldStatus = enums.PaymentHoldStatusRefunded
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	_, err := svc.RefundHold(context.Background(), RefundInput{
		OrderID: order.ID,
		ActorID: order.BuyerID,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Zero(t, gw.refundCalls)
}

func TestPlaceHold(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	order.PaymentHoldStatus = enums.PaymentHoldStatusNone
	order.PaymentHoldRef = nil
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	held, err := svc.PlaceHold(context.Background(), PlaceHoldInput{
		OrderID:  order.ID,
		SourceID: "cnon:card-nonce",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, gw.authorizeCalls)
	assert.Equal(t, enums.PaymentHoldStatusNone, repo.lastFrom)
	assert.Equal(t, enums.PaymentHoldStatusAuthorized, repo.lastTo)
	require.NotNil(t, held.PaymentHoldRef)
	assert.Equal(t, "hold-"+order.ID.String(), *held.PaymentHoldRef)
}

func TestPlaceHoldExistingHold(t *testing.T) {
	order := heldOrder(enums.FulfillmentMethodShipping)
	repo := &stubRepo{order: order}
	gw := &stubGateway{}
	svc := newTestService(t, repo, gw, &stubNotifier{})

	_, err := svc.PlaceHold(context.Background(), PlaceHoldInput{
		OrderID:  order.ID,
		SourceID: "cnon:card-nonce",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Zero(t, gw.authorizeCalls)
}

func TestPlaceHoldOrderNotFound(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo, &stubGateway{}, &stubNotifier{})

	_, err := svc.PlaceHold(context.Background(), PlaceHoldInput{
		OrderID:  uuid.New(),
		SourceID: "cnon:card-nonce",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
