package discounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nearbuyhq/nearbuy-backend/pkg/db/models"
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
	pkgerrors "github.com/nearbuyhq/nearbuy-backend/pkg/errors"
)

type stubRepo struct {
	code       *models.DiscountCode
	createErr  error
	consumeOK  bool
	consumeErr error

	consumeCalls int
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, code *models.DiscountCode) (*models.DiscountCode, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	code.ID = uuid.New()
	return code, nil
}

func (s *stubRepo) FindBySellerAndCode(ctx context.Context, sellerID uuid.UUID, code string) (*models.DiscountCode, error) {
	if s.code == nil || s.code.Code != code || s.code.SellerID != sellerID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.code, nil
}

func (s *stubRepo) ConsumeUse(ctx context.Context, codeID uuid.UUID) (bool, error) {
	s.consumeCalls++
	if s.consumeErr != nil {
		return false, s.consumeErr
	}
	return s.consumeOK, nil
}

type stubOrders struct {
	usedByBuyer int64

	discountOrderID uuid.UUID
	discountCode    string
	discountCents   int64
}

func (s *stubOrders) CountByBuyerAndDiscountCode(ctx context.Context, buyerID, sellerID uuid.UUID, code string) (int64, error) {
	return s.usedByBuyer, nil
}

func (s *stubOrders) SetDiscount(ctx context.Context, orderID uuid.UUID, code string, discountCents int64) error {
	s.discountOrderID = orderID
	s.discountCode = code
	s.discountCents = discountCents
	return nil
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func activeCode(sellerID uuid.UUID) *models.DiscountCode {
	now := time.Now().UTC()
	return &models.DiscountCode{
		ID:           uuid.New(),
		Code:         "save10",
		SellerID:     sellerID,
		DiscountType: enums.DiscountTypePercentage,
		Value:        10,
		ValidFrom:    now.Add(-24 * time.Hour),
		ValidUntil:   now.Add(24 * time.Hour),
		IsActive:     true,
	}
}

func newValidator(t *testing.T, repo *stubRepo, orderStore *stubOrders) Service {
	t.Helper()
	svc, err := NewService(repo, orderStore)
	require.NoError(t, err)
	return svc
}

func TestValidatePercentage(t *testing.T) {
	sellerID := uuid.New()
	repo := &stubRepo{code: activeCode(sellerID)}
	svc := newValidator(t, repo, &stubOrders{})

	result, err := svc.Validate(context.Background(), ValidateInput{
		Code:      "  SAVE10 ",
		BuyerID:   uuid.New(),
		SellerID:  sellerID,
		CartTotal: 12000,
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, int64(1200), result.DiscountCents)
	assert.Empty(t, result.Reason)
}

func TestValidateFixedCappedByTotal(t *testing.T) {
	sellerID := uuid.New()
	code := activeCode(sellerID)
	code.DiscountType = enums.DiscountTypeFixed
	code.Value = 5000
	repo := &stubRepo{code: code}
	svc := newValidator(t, repo, &stubOrders{})

	result, err := svc.Validate(context.Background(), ValidateInput{
		Code:      "save10",
		BuyerID:   uuid.New(),
		SellerID:  sellerID,
		CartTotal: 3000,
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, int64(3000), result.DiscountCents)
}

func TestValidateFreeShipping(t *testing.T) {
	sellerID := uuid.New()
	code := activeCode(sellerID)
	code.DiscountType = enums.DiscountTypeFreeShipping
	code.Value = 0
	repo := &stubRepo{code: code}
	svc := newValidator(t, repo, &stubOrders{})

	result, err := svc.Validate(context.Background(), ValidateInput{
		Code:          "save10",
		BuyerID:       uuid.New(),
		SellerID:      sellerID,
		CartTotal:     8000,
		ShippingCents: 650,
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, int64(650), result.DiscountCents)
}

func TestValidateMaxDiscountCap(t *testing.T) {
	sellerID := uuid.New()
	code := activeCode(sellerID)
	code.Value = 50
	code.MaxDiscountCents = int64Ptr(1000)
	repo := &stubRepo{code: code}
	svc := newValidator(t, repo, &stubOrders{})

	result, err := svc.Validate(context.Background(), ValidateInput{
		Code:      "save10",
		BuyerID:   uuid.New(),
		SellerID:  sellerID,
		CartTotal: 10000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.DiscountCents)
}

func TestValidateRejections(t *testing.T) {
	sellerID := uuid.New()
	now := time.Now().UTC()

	cases := []struct {
		name   string
		mutate func(code *models.DiscountCode)
		orders *stubOrders
		reason string
	}{
		{
			name:   "inactive",
			mutate: func(code *models.DiscountCode) { code.IsActive = false },
			reason: ReasonInactive,
		},
		{
			name:   "not yet active",
			mutate: func(code *models.DiscountCode) { code.ValidFrom = now.Add(time.Hour) },
			reason: ReasonNotYetActive,
		},
		{
			name:   "expired",
			mutate: func(code *models.DiscountCode) { code.ValidUntil = now.Add(-time.Hour) },
			reason: ReasonExpired,
		},
		{
			name: "usage exceeded",
			mutate: func(code *models.DiscountCode) {
				code.UsageLimit = intPtr(5)
				code.UsageCount = 5
			},
			reason: ReasonUsageExceeded,
		},
		{
			name:   "per user limit",
			mutate: func(code *models.DiscountCode) { code.PerUserLimit = intPtr(1) },
			orders: &stubOrders{usedByBuyer: 1},
			reason: ReasonPerUserLimit,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code := activeCode(sellerID)
			tc.mutate(code)
			orderStore := tc.orders
			if orderStore == nil {
				orderStore = &stubOrders{}
			}
			svc := newValidator(t, &stubRepo{code: code}, orderStore)

			result, err := svc.Validate(context.Background(), ValidateInput{
				Code:      "save10",
				BuyerID:   uuid.New(),
				SellerID:  sellerID,
				CartTotal: 10000,
			})
			require.NoError(t, err)
			assert.False(t, result.Valid)
			assert.Equal(t, tc.reason, result.Reason)
			assert.Zero(t, result.DiscountCents)
		})
	}
}

func TestValidateUnknownCode(t *testing.T) {
	svc := newValidator(t, &stubRepo{}, &stubOrders{})

	result, err := svc.Validate(context.Background(), ValidateInput{
		Code:      "nope",
		BuyerID:   uuid.New(),
		SellerID:  uuid.New(),
		CartTotal: 1000,
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonNotFound, result.Reason)
}

func TestValidateWrongSeller(t *testing.T) {
	repo := &stubRepo{code: activeCode(uuid.New())}
	svc := newValidator(t, repo, &stubOrders{})

	result, err := svc.Validate(context.Background(), ValidateInput{
		Code:      "save10",
		BuyerID:   uuid.New(),
		SellerID:  uuid.New(),
		CartTotal: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, result.Reason)
}

func TestRedeemStampsOrder(t *testing.T) {
	sellerID := uuid.New()
	orderID := uuid.New()
	repo := &stubRepo{code: activeCode(sellerID), consumeOK: true}
	orderStore := &stubOrders{}
	svc := newValidator(t, repo, orderStore)

	cents, err := svc.Redeem(context.Background(), RedeemInput{
		Code:      "SAVE10",
		BuyerID:   uuid.New(),
		SellerID:  sellerID,
		OrderID:   orderID,
		CartTotal: 10000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cents)
	assert.Equal(t, 1, repo.consumeCalls)
	assert.Equal(t, orderID, orderStore.discountOrderID)
	assert.Equal(t, "save10", orderStore.discountCode)
	assert.Equal(t, int64(1000), orderStore.discountCents)
}

func TestRedeemLastUseRace(t *testing.T) {
	sellerID := uuid.New()
	repo := &stubRepo{code: activeCode(sellerID), consumeOK: false}
	orderStore := &stubOrders{}
	svc := newValidator(t, repo, orderStore)

	_, err := svc.Redeem(context.Background(), RedeemInput{
		Code:      "save10",
		BuyerID:   uuid.New(),
		SellerID:  sellerID,
		OrderID:   uuid.New(),
		CartTotal: 10000,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, uuid.Nil, orderStore.discountOrderID)
}

func TestRedeemInvalidCode(t *testing.T) {
	sellerID := uuid.New()
	code := activeCode(sellerID)
	code.IsActive = false
	repo := &stubRepo{code: code, consumeOK: true}
	svc := newValidator(t, repo, &stubOrders{})

	_, err := svc.Redeem(context.Background(), RedeemInput{
		Code:      "save10",
		BuyerID:   uuid.New(),
		SellerID:  sellerID,
		OrderID:   uuid.New(),
		CartTotal: 10000,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	assert.Zero(t, repo.consumeCalls)
}

func TestCreateCodeValidation(t *testing.T) {
	svc := newValidator(t, &stubRepo{}, &stubOrders{})
	now := time.Now().UTC()

	_, err := svc.CreateCode(context.Background(), CreateCodeInput{
		SellerID:     uuid.New(),
		Code:         "over",
		DiscountType: enums.DiscountTypePercentage,
		Value:        150,
		ValidFrom:    now,
		ValidUntil:   now.Add(time.Hour),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	created, err := svc.CreateCode(context.Background(), CreateCodeInput{
		SellerID:     uuid.New(),
		Code:         " Welcome5 ",
		DiscountType: enums.DiscountTypeFixed,
		Value:        500,
		ValidFrom:    now,
		ValidUntil:   now.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "welcome5", created.Code)
	assert.True(t, created.IsActive)
}

func TestCreateCodeDuplicateMapsToConflict(t *testing.T) {
	repo := &stubRepo{createErr: errors.New(`duplicate key value violates unique constraint "idx_discount_codes_seller_code"`)}
	svc := newValidator(t, repo, &stubOrders{})
	now := time.Now().UTC()

	_, err := svc.CreateCode(context.Background(), CreateCodeInput{
		SellerID:     uuid.New(),
		Code:         "save10",
		DiscountType: enums.DiscountTypePercentage,
		Value:        10,
		ValidFrom:    now,
		ValidUntil:   now.Add(24 * time.Hour),
	})
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}
