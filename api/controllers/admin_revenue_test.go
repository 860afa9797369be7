package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nearbuyhq/nearbuy-backend/internal/reconciliation"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

type fakeReconciler struct {
	input reconciliation.ReconcileInput
}

func (f *fakeReconciler) Reconcile(_ context.Context, input reconciliation.ReconcileInput) (*models.PlatformRevenue, bool, error) {
	f.input = input
	return &models.PlatformRevenue{PeriodType: input.PeriodType}, input.Recalculate, nil
}

func TestReconcileRevenueParsesRequest(t *testing.T) {
	svc := &fakeReconciler{}
	body := strings.NewReader(`{"date":"2026-03-15","period_type":"monthly","recalculate":true}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/revenue/reconcile", body)
	rec := httptest.NewRecorder()

	ReconcileRevenue(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.input.PeriodType != enums.PeriodTypeMonthly {
		t.Fatalf("unexpected period type %s", svc.input.PeriodType)
	}
	if !svc.input.Recalculate {
		t.Fatal("expected recalculate flag to pass through")
	}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !svc.input.Date.Equal(want) {
		t.Fatalf("unexpected date %s", svc.input.Date)
	}
}

func TestReconcileRevenueDefaultsToYesterdayDaily(t *testing.T) {
	svc := &fakeReconciler{}
	req := httptest.NewRequest(http.MethodPost, "/admin/revenue/reconcile", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	ReconcileRevenue(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.input.PeriodType != enums.PeriodTypeDaily {
		t.Fatalf("unexpected period type %s", svc.input.PeriodType)
	}
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	if svc.input.Date.Format("2006-01-02") != yesterday.Format("2006-01-02") {
		t.Fatalf("unexpected default date %s", svc.input.Date)
	}
}

func TestReconcileRevenueRejectsBadPeriod(t *testing.T) {
	svc := &fakeReconciler{}
	req := httptest.NewRequest(http.MethodPost, "/admin/revenue/reconcile", strings.NewReader(`{"period_type":"weekly"}`))
	rec := httptest.NewRecorder()

	ReconcileRevenue(svc, testLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
