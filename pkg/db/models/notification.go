package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// Notification is a row-backed message for a marketplace user. Delivery is
// fire-and-forget from the settlement core's perspective.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	Type        enums.NotificationType `gorm:"column:type;not null"`
	Title       string                 `gorm:"column:title;not null"`
	Body        string                 `gorm:"column:body;not null"`
	DeepLink    *string                `gorm:"column:deep_link"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
