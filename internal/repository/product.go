package repository

import (
	"context"
	"errors"

	"github.com/RISHIK92/gift-mama-backend/internal/model"

	"gorm.io/gorm"
)

// ErrInsufficientStock is returned when a guarded stock decrement matches no
// row, i.e. the product no longer has enough units.
var ErrInsufficientStock = errors.New("insufficient product stock")

type ProductRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindMany(ctx context.Context, ids []uint) ([]*model.Product, error)
	List(ctx context.Context) ([]*model.Product, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, productID uint, quantity int) error
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepoImpl) FindMany(ctx context.Context, ids []uint) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepoImpl) List(ctx context.Context) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).Order("id").Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// DecrementStock is a guarded decrement: it only matches while enough stock
// remains, so concurrent settlements cannot oversell.
func (r *productRepoImpl) DecrementStock(ctx context.Context, tx *gorm.DB, productID uint, quantity int) error {
	result := tx.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
