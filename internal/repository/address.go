package repository

import (
	"context"

	"github.com/RISHIK92/gift-mama-backend/internal/model"

	"gorm.io/gorm"
)

type AddressRepository interface {
	FindForUser(ctx context.Context, id uint, userID string) (*model.Address, error)
}

type addressRepoImpl struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepoImpl{
		db: db,
	}
}

func (r *addressRepoImpl) FindForUser(ctx context.Context, id uint, userID string) (*model.Address, error) {
	var address model.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}
