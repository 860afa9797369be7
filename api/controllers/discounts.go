package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nearbuyhq/nearbuy-backend/api/middleware"
	"github.com/nearbuyhq/nearbuy-backend/api/responses"
	"github.com/nearbuyhq/nearbuy-backend/api/validators"
	"github.com/nearbuyhq/nearbuy-backend/internal/discounts"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

type validateDiscountRequest struct {
	Code          string `json:"code" validate:"required"`
	SellerID      string `json:"seller_id" validate:"required,uuid4"`
	CartTotal     int64  `json:"cart_total_cents" validate:"required,min=1"`
	ShippingCents int64  `json:"shipping_cents" validate:"min=0"`
}

// ValidateDiscount answers whether a code applies to the buyer's cart.
// An inapplicable code is a 200 with valid=false and a reason; only a
// malformed request errors.
func ValidateDiscount(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateDiscountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := uuid.Parse(req.SellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
			return
		}

		result, err := svc.Validate(r.Context(), discounts.ValidateInput{
			Code:          req.Code,
			BuyerID:       middleware.ActorIDFromContext(r.Context()),
			SellerID:      sellerID,
			CartTotal:     req.CartTotal,
			ShippingCents: req.ShippingCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type createDiscountCodeRequest struct {
	Code             string `json:"code" validate:"required,min=3,max=32"`
	DiscountType     string `json:"discount_type" validate:"required"`
	Value            int64  `json:"value" validate:"required,min=1"`
	MaxDiscountCents *int64 `json:"max_discount_cents,omitempty"`
	UsageLimit       *int   `json:"usage_limit,omitempty"`
	PerUserLimit     *int   `json:"per_user_limit,omitempty"`
	ValidFrom        string `json:"valid_from" validate:"required"`
	ValidUntil       string `json:"valid_until" validate:"required"`
}

// CreateDiscountCode lets a seller declare a code for their own storefront.
func CreateDiscountCode(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := pathUUID(r, "sellerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if middleware.ActorIDFromContext(r.Context()) != sellerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller may manage their codes"))
			return
		}

		var req createDiscountCodeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseDiscountType(req.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
			return
		}

		validFrom, err := time.Parse(time.RFC3339, req.ValidFrom)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid valid_from timestamp"))
			return
		}
		validUntil, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid valid_until timestamp"))
			return
		}

		code, err := svc.CreateCode(r.Context(), discounts.CreateCodeInput{
			SellerID:         sellerID,
			Code:             req.Code,
			DiscountType:     discountType,
			Value:            req.Value,
			MaxDiscountCents: req.MaxDiscountCents,
			UsageLimit:       req.UsageLimit,
			PerUserLimit:     req.PerUserLimit,
			ValidFrom:        validFrom,
			ValidUntil:       validUntil,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, code)
	}
}
