package repository

import (
	"context"

	"github.com/RISHIK92/gift-mama-backend/internal/model"

	"gorm.io/gorm"
)

type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	FindByID(ctx context.Context, id uint) (*model.Coupon, error)
	CountUsages(ctx context.Context, tx *gorm.DB, couponID uint) (int64, error)
	CountUserUsages(ctx context.Context, tx *gorm.DB, couponID uint, userID string) (int64, error)
	CreateUsage(ctx context.Context, tx *gorm.DB, usage *model.CouponUsage) error
}

type couponRepoImpl struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepoImpl{
		db: db,
	}
}

func (r *couponRepoImpl) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepoImpl) FindByID(ctx context.Context, id uint) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).First(&coupon, id).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Usage counts are always derived from coupon_usages rows. Settlement passes
// its own transaction so the limit check and the usage insert see the same
// state; read-only callers pass nil.
func (r *couponRepoImpl) CountUsages(ctx context.Context, tx *gorm.DB, couponID uint) (int64, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&model.CouponUsage{}).
		Where("coupon_id = ?", couponID).
		Count(&count).Error
	return count, err
}

func (r *couponRepoImpl) CountUserUsages(ctx context.Context, tx *gorm.DB, couponID uint, userID string) (int64, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&model.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

func (r *couponRepoImpl) CreateUsage(ctx context.Context, tx *gorm.DB, usage *model.CouponUsage) error {
	return tx.WithContext(ctx).Create(usage).Error
}

func (r *couponRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
