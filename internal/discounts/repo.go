package discounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/internal/repo"
	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
)

type gormRepo struct {
	repo.Base
}

// NewRepository builds the gorm-backed discount code repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepo{Base: repo.NewBase(db)}
}

func (r *gormRepo) WithTx(tx *gorm.DB) Repository {
	return &gormRepo{Base: r.Base.WithTx(tx)}
}

func (r *gormRepo) Create(ctx context.Context, code *models.DiscountCode) (*models.DiscountCode, error) {
	if err := r.DB(ctx).Create(code).Error; err != nil {
		return nil, err
	}
	return code, nil
}

func (r *gormRepo) FindBySellerAndCode(ctx context.Context, sellerID uuid.UUID, code string) (*models.DiscountCode, error) {
	var found models.DiscountCode
	err := r.DB(ctx).
		Where("seller_id = ? AND code = ?", sellerID, code).
		First(&found).Error
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *gormRepo) ConsumeUse(ctx context.Context, codeID uuid.UUID) (bool, error) {
	result := r.DB(ctx).
		Model(&models.DiscountCode{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", codeID).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
