package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// PickupAppointment links a claimed slot to an order and its parties.
type PickupAppointment struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SlotID    uuid.UUID               `gorm:"column:slot_id;type:uuid;not null;uniqueIndex"`
	OrderID   uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	BuyerID   uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID  uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	Status    enums.AppointmentStatus `gorm:"column:status;type:appointment_status;not null;default:'scheduled'"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
