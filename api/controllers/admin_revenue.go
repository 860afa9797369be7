package controllers

import (
	"net/http"
	"time"

	"github.com/nearbuyhq/nearbuy-backend/api/responses"
	"github.com/nearbuyhq/nearbuy-backend/api/validators"
	"github.com/nearbuyhq/nearbuy-backend/internal/reconciliation"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

type reconcileRevenueRequest struct {
	Date        string `json:"date,omitempty"`
	PeriodType  string `json:"period_type,omitempty"`
	Recalculate bool   `json:"recalculate,omitempty"`
}

type reconcileRevenueResponse struct {
	Record       *models.PlatformRevenue `json:"record"`
	Recalculated bool                    `json:"recalculated"`
}

// ReconcileRevenue builds or rebuilds one revenue snapshot on demand.
// Defaults to yesterday's daily period when the body omits both fields.
func ReconcileRevenue(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reconcileRevenueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date := time.Now().UTC().AddDate(0, 0, -1)
		if req.Date != "" {
			parsed, err := time.Parse("2006-01-02", req.Date)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date"))
				return
			}
			date = parsed
		}

		periodType := enums.PeriodTypeDaily
		if req.PeriodType != "" {
			parsed, err := enums.ParsePeriodType(req.PeriodType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid period type"))
				return
			}
			periodType = parsed
		}

		record, recalculated, err := svc.Reconcile(r.Context(), reconciliation.ReconcileInput{
			Date:        date,
			PeriodType:  periodType,
			Recalculate: req.Recalculate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reconcileRevenueResponse{Record: record, Recalculated: recalculated})
	}
}
