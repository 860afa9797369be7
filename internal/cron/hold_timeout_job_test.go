package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbuyhq/nearbuy-backend/internal/escrow"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

type fakeStaleSource struct {
	orders []models.Order
	err    error

	cutoff time.Time
}

func (f *fakeStaleSource) FindAuthorizedBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	f.cutoff = cutoff
	return f.orders, f.err
}

type fakeEscrow struct {
	releaseErr error
	refundErr  error

	released []escrow.ReleaseInput
	refunded []escrow.RefundInput
}

func (f *fakeEscrow) PlaceHold(ctx context.Context, input escrow.PlaceHoldInput) (*models.Order, error) {
	return nil, nil
}

func (f *fakeEscrow) ReleaseHold(ctx context.Context, input escrow.ReleaseInput) (*models.Order, error) {
	f.released = append(f.released, input)
	return nil, f.releaseErr
}

func (f *fakeEscrow) RefundHold(ctx context.Context, input escrow.RefundInput) (*models.Order, error) {
	f.refunded = append(f.refunded, input)
	return nil, f.refundErr
}

func cronTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func staleOrder(method enums.FulfillmentMethod, status enums.OrderStatus) models.Order {
	return models.Order{
		ID:                uuid.New(),
		BuyerID:           uuid.New(),
		SellerID:          uuid.New(),
		Status:            status,
		PaymentHoldStatus: enums.PaymentHoldStatusAuthorized,
		FulfillmentMethod: method,
	}
}

func TestHoldTimeoutJobPolicies(t *testing.T) {
	pickup := staleOrder(enums.FulfillmentMethodPickup, enums.OrderStatusConfirmed)
	delivered := staleOrder(enums.FulfillmentMethodShipping, enums.OrderStatusDelivered)
	inFlight := staleOrder(enums.FulfillmentMethodShipping, enums.OrderStatusShipped)

	source := &fakeStaleSource{orders: []models.Order{pickup, delivered, inFlight}}
	settler := &fakeEscrow{}
	job, err := NewHoldTimeoutJob(source, settler, cronTestLogger(), 168*time.Hour)
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))

	require.Len(t, settler.refunded, 1)
	assert.Equal(t, pickup.ID, settler.refunded[0].OrderID)
	assert.True(t, settler.refunded[0].System)

	require.Len(t, settler.released, 1)
	assert.Equal(t, delivered.ID, settler.released[0].OrderID)
	assert.Equal(t, enums.ReleaseReasonAutoTimeout, settler.released[0].Reason)
	assert.True(t, settler.released[0].System)
}

func TestHoldTimeoutJobCutoff(t *testing.T) {
	source := &fakeStaleSource{}
	job, err := NewHoldTimeoutJob(source, &fakeEscrow{}, cronTestLogger(), 48*time.Hour)
	require.NoError(t, err)

	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, fixed.Add(-48*time.Hour), source.cutoff)
}

func TestHoldTimeoutJobTreatsLostRaceAsSettled(t *testing.T) {
	delivered := staleOrder(enums.FulfillmentMethodShipping, enums.OrderStatusDelivered)
	source := &fakeStaleSource{orders: []models.Order{delivered}}
	settler := &fakeEscrow{
		releaseErr: pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been completed or cancelled"),
	}
	job, err := NewHoldTimeoutJob(source, settler, cronTestLogger(), time.Hour)
	require.NoError(t, err)

	assert.NoError(t, job.Run(context.Background()))
}

func TestHoldTimeoutJobCollectsFailures(t *testing.T) {
	first := staleOrder(enums.FulfillmentMethodPickup, enums.OrderStatusConfirmed)
	second := staleOrder(enums.FulfillmentMethodPickup, enums.OrderStatusConfirmed)
	source := &fakeStaleSource{orders: []models.Order{first, second}}
	settler := &fakeEscrow{
		refundErr: pkgerrors.New(pkgerrors.CodeDependency, "gateway unavailable"),
	}
	job, err := NewHoldTimeoutJob(source, settler, cronTestLogger(), time.Hour)
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	// Both orders were attempted despite the first failure.
	assert.Len(t, settler.refunded, 2)
}

func TestHoldTimeoutJobListFailure(t *testing.T) {
	source := &fakeStaleSource{err: errors.New("connection reset")}
	job, err := NewHoldTimeoutJob(source, &fakeEscrow{}, cronTestLogger(), time.Hour)
	require.NoError(t, err)

	assert.Error(t, job.Run(context.Background()))
}
