package scheduling

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
)

// Service manages seller pickup availability and buyer slot claims.
type Service interface {
	CreateSlot(ctx context.Context, input CreateSlotInput) (*models.PickupSlot, error)
	ListAvailableSlots(ctx context.Context, sellerID uuid.UUID) ([]models.PickupSlot, error)
	ClaimSlot(ctx context.Context, input ClaimInput) (*models.PickupAppointment, error)
	CompleteAppointment(ctx context.Context, appointmentID, actorID uuid.UUID) error
}

// CreateSlotInput declares one availability window.
type CreateSlotInput struct {
	SellerID  uuid.UUID
	Date      time.Time
	TimeStart time.Time
	TimeEnd   time.Time
}

// ClaimInput books a slot for a pickup order.
type ClaimInput struct {
	SlotID  uuid.UUID
	OrderID uuid.UUID
	BuyerID uuid.UUID
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     TxRunner
	now    func() time.Time
}

// NewService wires the fulfillment scheduler.
func NewService(repo Repository, orderRepo orders.Repository, tx TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("scheduling repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, orders: orderRepo, tx: tx, now: time.Now}, nil
}

func (s *service) CreateSlot(ctx context.Context, input CreateSlotInput) (*models.PickupSlot, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if !input.TimeEnd.After(input.TimeStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot window must not be empty")
	}
	day := input.Date.UTC().Truncate(24 * time.Hour)
	today := s.now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot date is in the past")
	}

	created, err := s.repo.CreateSlot(ctx, &models.PickupSlot{
		SellerID:    input.SellerID,
		Date:        day,
		TimeStart:   input.TimeStart.UTC(),
		TimeEnd:     input.TimeEnd.UTC(),
		IsAvailable: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pickup slot")
	}
	return created, nil
}

func (s *service) ListAvailableSlots(ctx context.Context, sellerID uuid.UUID) ([]models.PickupSlot, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	slots, err := s.repo.ListAvailableSlots(ctx, sellerID, s.now().UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pickup slots")
	}
	return slots, nil
}

// ClaimSlot books the slot and confirms the order in one transaction. The
// conditional availability flip decides slot races; the unique slot index
// on appointments backstops it.
func (s *service) ClaimSlot(ctx context.Context, input ClaimInput) (*models.PickupAppointment, error) {
	if input.SlotID == uuid.Nil || input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot id and order id required")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may book a pickup slot")
	}
	if order.FulfillmentMethod != enums.FulfillmentMethodPickup {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a pickup order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a confirmed schedule")
	}

	slot, err := s.repo.FindSlotByID(ctx, input.SlotID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pickup slot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup slot")
	}
	if slot.SellerID != order.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot belongs to a different seller")
	}

	var appt *models.PickupAppointment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txOrders := s.orders.WithTx(tx)

		claimed, err := txRepo.ClaimSlot(ctx, slot.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim pickup slot")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "pickup slot is no longer available")
		}

		appt, err = txRepo.CreateAppointment(ctx, &models.PickupAppointment{
			SlotID:   slot.ID,
			OrderID:  order.ID,
			BuyerID:  order.BuyerID,
			SellerID: order.SellerID,
			Status:   enums.AppointmentStatusScheduled,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create appointment")
		}

		confirmed, err := txOrders.TransitionStatus(ctx, order.ID,
			enums.OrderStatusPending, enums.OrderStatusConfirmed, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
		}
		if !confirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *service) CompleteAppointment(ctx context.Context, appointmentID, actorID uuid.UUID) error {
	if appointmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "appointment id required")
	}

	appt, err := s.repo.FindAppointmentByID(ctx, appointmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load appointment")
	}
	if appt.SellerID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller may complete a pickup")
	}

	done, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID,
		enums.AppointmentStatusScheduled, enums.AppointmentStatusCompleted)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete appointment")
	}
	if !done {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "appointment is not scheduled")
	}
	return nil
}
