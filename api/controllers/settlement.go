package controllers

import (
	"net/http"

	"github.com/nearbuyhq/nearbuy-backend/api/middleware"
	"github.com/nearbuyhq/nearbuy-backend/api/responses"
	"github.com/nearbuyhq/nearbuy-backend/api/validators"
	"github.com/nearbuyhq/nearbuy-backend/internal/escrow"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

type placeHoldRequest struct {
	SourceID string `json:"source_id" validate:"required"`
}

// PlaceHold authorizes payment for a pending order. The charge is held,
// not captured; capture happens at release.
func PlaceHold(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req placeHoldRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceHold(r.Context(), escrow.PlaceHoldInput{
			OrderID:  orderID,
			SourceID: req.SourceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type releaseHoldRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ReleaseHold captures the payment hold and completes the order. The
// reason determines which party may call it; the automatic timeout
// reason is reserved for the scheduler and rejected here.
func ReleaseHold(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req releaseHoldRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason, err := enums.ParseReleaseReason(req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid release reason"))
			return
		}

		order, err := svc.ReleaseHold(r.Context(), escrow.ReleaseInput{
			OrderID: orderID,
			ActorID: middleware.ActorIDFromContext(r.Context()),
			Reason:  reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// RefundHold voids the payment hold and cancels the order.
func RefundHold(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RefundHold(r.Context(), escrow.RefundInput{
			OrderID: orderID,
			ActorID: middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
