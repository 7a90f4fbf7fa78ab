package repository

import (
	"context"
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/model"

	"gorm.io/gorm"
)

type IntentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, intent *model.PaymentIntent) error
	FindByIntentID(ctx context.Context, intentID string) (*model.PaymentIntent, error)
	MarkConfirmed(ctx context.Context, tx *gorm.DB, intentID string) (bool, error)
}

type intentRepoImpl struct {
	db *gorm.DB
}

func NewIntentRepository(db *gorm.DB) IntentRepository {
	return &intentRepoImpl{
		db: db,
	}
}

func (r *intentRepoImpl) Create(ctx context.Context, tx *gorm.DB, intent *model.PaymentIntent) error {
	return tx.WithContext(ctx).Create(intent).Error
}

func (r *intentRepoImpl) FindByIntentID(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	var intent model.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("intent_id = ?", intentID).
		First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// MarkConfirmed reports false when the intent was already confirmed, which
// makes top-up verification idempotent under redelivery.
func (r *intentRepoImpl) MarkConfirmed(ctx context.Context, tx *gorm.DB, intentID string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.PaymentIntent{}).
		Where("intent_id = ? AND status = ?", intentID, model.IntentStatusCreated).
		Updates(map[string]interface{}{
			"status":     model.IntentStatusConfirmed,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
