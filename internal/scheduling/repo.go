package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/internal/repo"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

type gormRepo struct {
	repo.Base
}

// NewRepository builds the gorm-backed scheduling repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepo{Base: repo.NewBase(db)}
}

func (r *gormRepo) WithTx(tx *gorm.DB) Repository {
	return &gormRepo{Base: r.Base.WithTx(tx)}
}

func (r *gormRepo) CreateSlot(ctx context.Context, slot *models.PickupSlot) (*models.PickupSlot, error) {
	if err := r.DB(ctx).Create(slot).Error; err != nil {
		return nil, err
	}
	return slot, nil
}

func (r *gormRepo) FindSlotByID(ctx context.Context, slotID uuid.UUID) (*models.PickupSlot, error) {
	var slot models.PickupSlot
	if err := r.DB(ctx).Where("id = ?", slotID).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *gormRepo) ListAvailableSlots(ctx context.Context, sellerID uuid.UUID, from time.Time) ([]models.PickupSlot, error) {
	var slots []models.PickupSlot
	err := r.DB(ctx).
		Where("seller_id = ? AND is_available = true AND date >= ?", sellerID, from).
		Order("date ASC, time_start ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *gormRepo) ClaimSlot(ctx context.Context, slotID uuid.UUID) (bool, error) {
	result := r.DB(ctx).
		Model(&models.PickupSlot{}).
		Where("id = ? AND is_available = true", slotID).
		Update("is_available", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepo) CreateAppointment(ctx context.Context, appt *models.PickupAppointment) (*models.PickupAppointment, error) {
	if err := r.DB(ctx).Create(appt).Error; err != nil {
		return nil, err
	}
	return appt, nil
}

func (r *gormRepo) FindAppointmentByID(ctx context.Context, appointmentID uuid.UUID) (*models.PickupAppointment, error) {
	var appt models.PickupAppointment
	if err := r.DB(ctx).Where("id = ?", appointmentID).First(&appt).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *gormRepo) FindAppointmentByOrder(ctx context.Context, orderID uuid.UUID) (*models.PickupAppointment, error) {
	var appt models.PickupAppointment
	if err := r.DB(ctx).Where("order_id = ?", orderID).First(&appt).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *gormRepo) UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, from, to enums.AppointmentStatus) (bool, error) {
	result := r.DB(ctx).
		Model(&models.PickupAppointment{}).
		Where("id = ? AND status = ?", appointmentID, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
