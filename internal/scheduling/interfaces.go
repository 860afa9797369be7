package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// Repository defines persistence for pickup slots and appointments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSlot(ctx context.Context, slot *models.PickupSlot) (*models.PickupSlot, error)
	FindSlotByID(ctx context.Context, slotID uuid.UUID) (*models.PickupSlot, error)
	ListAvailableSlots(ctx context.Context, sellerID uuid.UUID, from time.Time) ([]models.PickupSlot, error)
	// ClaimSlot flips is_available in a single conditional update; false
	// means another buyer claimed the slot first.
	ClaimSlot(ctx context.Context, slotID uuid.UUID) (bool, error)
	CreateAppointment(ctx context.Context, appt *models.PickupAppointment) (*models.PickupAppointment, error)
	FindAppointmentByID(ctx context.Context, appointmentID uuid.UUID) (*models.PickupAppointment, error)
	FindAppointmentByOrder(ctx context.Context, orderID uuid.UUID) (*models.PickupAppointment, error)
	UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, from, to enums.AppointmentStatus) (bool, error)
}

// TxRunner executes a closure inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
