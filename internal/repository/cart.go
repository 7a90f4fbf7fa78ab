package repository

import (
	"context"
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Cart, error)
	FindOrCreateByUserID(ctx context.Context, userID string) (*model.Cart, error)
	FindItemForUser(ctx context.Context, itemID uint, userID string) (*model.CartItem, error)
	UpsertItem(ctx context.Context, cartID, productID uint, quantity int) error
	UpdateItemQuantity(ctx context.Context, itemID uint, quantity int) error
	UpdateItemCustomization(ctx context.Context, itemID uint, payload model.CustomizationPayload) error
	RemoveItem(ctx context.Context, itemID uint) error
	ClearItems(ctx context.Context, tx *gorm.DB, cartID uint) error
	SetCoupon(ctx context.Context, tx *gorm.DB, cartID uint, couponID *uint, discount decimal.Decimal) error
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{
		db: db,
	}
}

func (r *cartRepoImpl) FindByUserID(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.id")
		}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepoImpl) FindOrCreateByUserID(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where(model.Cart{UserID: userID}).
		FirstOrCreate(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepoImpl) FindItemForUser(ctx context.Context, itemID uint, userID string) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpsertItem adds a product line or atomically increments the existing one.
// The increment happens in the store, not read-then-write, so two tabs
// adding the same product cannot lose an update.
func (r *cartRepoImpl) UpsertItem(ctx context.Context, cartID, productID uint, quantity int) error {
	item := model.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
}

func (r *cartRepoImpl) UpdateItemQuantity(ctx context.Context, itemID uint, quantity int) error {
	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepoImpl) UpdateItemCustomization(ctx context.Context, itemID uint, payload model.CustomizationPayload) error {
	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ?", itemID).
		Update("customization", payload)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepoImpl) RemoveItem(ctx context.Context, itemID uint) error {
	return r.db.WithContext(ctx).Delete(&model.CartItem{}, itemID).Error
}

func (r *cartRepoImpl) ClearItems(ctx context.Context, tx *gorm.DB, cartID uint) error {
	return tx.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error
}

func (r *cartRepoImpl) SetCoupon(ctx context.Context, tx *gorm.DB, cartID uint, couponID *uint, discount decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"applied_coupon_id": couponID,
			"discount_amount":   discount,
			"updated_at":        time.Now(),
		}).Error
}
