package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/api/middleware"
	"github.com/nearbuyhq/nearbuy-backend/api/responses"
	"github.com/nearbuyhq/nearbuy-backend/api/validators"
	"github.com/nearbuyhq/nearbuy-backend/internal/discounts"
	"github.com/nearbuyhq/nearbuy-backend/internal/orders"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

type createOrderRequest struct {
	SellerID          string  `json:"seller_id" validate:"required,uuid4"`
	TotalCents        int64   `json:"total_cents" validate:"required,min=1"`
	FulfillmentMethod string  `json:"fulfillment_method" validate:"required"`
	DiscountCode      *string `json:"discount_code,omitempty"`
	ShippingCents     int64   `json:"shipping_cents,omitempty" validate:"min=0"`
}

// CreateOrder records a checkout result as a pending order. The buyer is
// the acting user; payment is a separate call so a failed authorization
// leaves a retryable order behind. A discount code is validated against
// the pre-discount total, the order is written with the reduced amount,
// and the code use is consumed afterwards; losing the last-use race
// cancels the fresh order instead of honoring a phantom discount.
func CreateOrder(svc orders.Service, discountsSvc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID := middleware.ActorIDFromContext(r.Context())

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := uuid.Parse(req.SellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
			return
		}

		method, err := enums.ParseFulfillmentMethod(req.FulfillmentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment method"))
			return
		}

		var discountCents int64
		if req.DiscountCode != nil {
			result, err := discountsSvc.Validate(r.Context(), discounts.ValidateInput{
				Code:          *req.DiscountCode,
				BuyerID:       buyerID,
				SellerID:      sellerID,
				CartTotal:     req.TotalCents,
				ShippingCents: req.ShippingCents,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !result.Valid {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeConflict, "discount code not applicable").
						WithDetails(map[string]any{"reason": result.Reason}))
				return
			}
			discountCents = result.DiscountCents
		}

		order, err := svc.Create(r.Context(), orders.CreateInput{
			BuyerID:           buyerID,
			SellerID:          sellerID,
			TotalCents:        req.TotalCents - discountCents,
			FulfillmentMethod: method,
			DiscountCode:      req.DiscountCode,
			DiscountCents:     discountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if req.DiscountCode != nil {
			if _, err := discountsSvc.Redeem(r.Context(), discounts.RedeemInput{
				Code:          *req.DiscountCode,
				BuyerID:       buyerID,
				SellerID:      sellerID,
				OrderID:       order.ID,
				CartTotal:     req.TotalCents,
				ShippingCents: req.ShippingCents,
			}); err != nil {
				if cancelErr := svc.Cancel(r.Context(), order.ID, buyerID); cancelErr != nil {
					logg.Error(r.Context(), "failed to cancel order after discount race", cancelErr)
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder returns one order to either of its parties.
func GetOrder(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := repo.FindByID(r.Context(), orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order"))
			return
		}

		if !order.IsParty(middleware.ActorIDFromContext(r.Context())) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// MarkOrderShipped is a seller attestation for shipping orders.
func MarkOrderShipped(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return fulfillmentHandler(svc.MarkShipped, logg)
}

// MarkOrderReadyForPickup is a seller attestation for pickup orders.
func MarkOrderReadyForPickup(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return fulfillmentHandler(svc.MarkReadyForPickup, logg)
}

// MarkOrderDelivered is a seller attestation that the package arrived.
func MarkOrderDelivered(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return fulfillmentHandler(svc.MarkDelivered, logg)
}

// CancelOrder closes an unpaid order. Held orders go through the refund
// endpoint instead.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return fulfillmentHandler(svc.Cancel, logg)
}

func fulfillmentHandler(op func(ctx context.Context, orderID, actorID uuid.UUID) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := op(r.Context(), orderID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}
