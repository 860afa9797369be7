package models

import (
	"time"

	"github.com/google/uuid"
)

// PickupSlot is a seller-declared availability window. Claiming a slot
// atomically flips IsAvailable so two buyers can never double-book it.
type PickupSlot struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Date        time.Time `gorm:"column:date;type:date;not null"`
	TimeStart   time.Time `gorm:"column:time_start;not null"`
	TimeEnd     time.Time `gorm:"column:time_end;not null"`
	IsAvailable bool      `gorm:"column:is_available;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
