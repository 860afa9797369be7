package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nearbuyhq/nearbuy-backend/api/middleware"
	"github.com/nearbuyhq/nearbuy-backend/internal/escrow"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

type fakeEscrow struct {
	placeFn   func(ctx context.Context, input escrow.PlaceHoldInput) (*models.Order, error)
	releaseFn func(ctx context.Context, input escrow.ReleaseInput) (*models.Order, error)
	refundFn  func(ctx context.Context, input escrow.RefundInput) (*models.Order, error)
}

func (f *fakeEscrow) PlaceHold(ctx context.Context, input escrow.PlaceHoldInput) (*models.Order, error) {
	return f.placeFn(ctx, input)
}

func (f *fakeEscrow) ReleaseHold(ctx context.Context, input escrow.ReleaseInput) (*models.Order, error) {
	return f.releaseFn(ctx, input)
}

func (f *fakeEscrow) RefundHold(ctx context.Context, input escrow.RefundInput) (*models.Order, error) {
	return f.refundFn(ctx, input)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

func settlementRequest(t *testing.T, method, path, body string, orderID, actorID uuid.UUID) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderID", orderID.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithActorID(ctx, actorID)
	return req.WithContext(ctx)
}

func TestReleaseHoldPassesActorAndReason(t *testing.T) {
	orderID := uuid.New()
	actorID := uuid.New()

	var got escrow.ReleaseInput
	svc := &fakeEscrow{
		releaseFn: func(_ context.Context, input escrow.ReleaseInput) (*models.Order, error) {
			got = input
			return &models.Order{ID: orderID}, nil
		},
	}

	req := settlementRequest(t, http.MethodPost, "/orders/x/release", `{"reason":"buyer_confirm"}`, orderID, actorID)
	rec := httptest.NewRecorder()
	ReleaseHold(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.OrderID != orderID || got.ActorID != actorID {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.Reason != enums.ReleaseReasonBuyerConfirm {
		t.Fatalf("unexpected reason %s", got.Reason)
	}
	if got.System {
		t.Fatal("API callers must never be marked as system")
	}
}

func TestReleaseHoldRejectsUnknownReason(t *testing.T) {
	svc := &fakeEscrow{
		releaseFn: func(context.Context, escrow.ReleaseInput) (*models.Order, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	req := settlementRequest(t, http.MethodPost, "/orders/x/release", `{"reason":"because"}`, uuid.New(), uuid.New())
	rec := httptest.NewRecorder()
	ReleaseHold(svc, testLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReleaseHoldMapsStateConflictTo422(t *testing.T) {
	svc := &fakeEscrow{
		releaseFn: func(context.Context, escrow.ReleaseInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been completed or cancelled")
		},
	}

	req := settlementRequest(t, http.MethodPost, "/orders/x/release", `{"reason":"seller_confirm"}`, uuid.New(), uuid.New())
	rec := httptest.NewRecorder()
	ReleaseHold(svc, testLogger())(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestRefundHoldMapsForbiddenTo403(t *testing.T) {
	svc := &fakeEscrow{
		refundFn: func(context.Context, escrow.RefundInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order")
		},
	}

	req := settlementRequest(t, http.MethodPost, "/orders/x/refund", "", uuid.New(), uuid.New())
	rec := httptest.NewRecorder()
	RefundHold(svc, testLogger())(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestPlaceHoldRequiresSourceID(t *testing.T) {
	svc := &fakeEscrow{
		placeFn: func(context.Context, escrow.PlaceHoldInput) (*models.Order, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	req := settlementRequest(t, http.MethodPost, "/orders/x/hold", `{}`, uuid.New(), uuid.New())
	rec := httptest.NewRecorder()
	PlaceHold(svc, testLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
