package repository

import (
	"context"
	"errors"

	"github.com/RISHIK92/gift-mama-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientBalance is returned when a guarded debit matches no row,
// i.e. the wallet balance is lower than the requested amount.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

type WalletRepository interface {
	FindOrCreate(ctx context.Context, userID string) (*model.Wallet, error)
	IncrementBalance(ctx context.Context, tx *gorm.DB, walletID uint, amount decimal.Decimal) error
	DecrementBalance(ctx context.Context, tx *gorm.DB, walletID uint, amount decimal.Decimal) error
	CreateTransaction(ctx context.Context, tx *gorm.DB, txn *model.WalletTransaction) error
	Transactions(ctx context.Context, walletID uint, limit, offset int) ([]*model.WalletTransaction, int64, error)
	RecentTransactions(ctx context.Context, walletID uint, limit int) ([]*model.WalletTransaction, error)
}

type walletRepoImpl struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepoImpl{
		db: db,
	}
}

// FindOrCreate lazily creates a zero-balance wallet on first access.
func (r *walletRepoImpl) FindOrCreate(ctx context.Context, userID string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.WithContext(ctx).
		Where(model.Wallet{UserID: userID}).
		FirstOrCreate(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepoImpl) IncrementBalance(ctx context.Context, tx *gorm.DB, walletID uint, amount decimal.Decimal) error {
	result := tx.WithContext(ctx).Model(&model.Wallet{}).
		Where("id = ?", walletID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementBalance is guarded: the update only matches while the balance
// covers the amount, so a race can never drive a wallet negative.
func (r *walletRepoImpl) DecrementBalance(ctx context.Context, tx *gorm.DB, walletID uint, amount decimal.Decimal) error {
	result := tx.WithContext(ctx).Model(&model.Wallet{}).
		Where("id = ? AND balance >= ?", walletID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (r *walletRepoImpl) CreateTransaction(ctx context.Context, tx *gorm.DB, txn *model.WalletTransaction) error {
	return tx.WithContext(ctx).Create(txn).Error
}

func (r *walletRepoImpl) Transactions(ctx context.Context, walletID uint, limit, offset int) ([]*model.WalletTransaction, int64, error) {
	var txns []*model.WalletTransaction
	var total int64

	err := r.db.WithContext(ctx).Model(&model.WalletTransaction{}).
		Where("wallet_id = ?", walletID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}

func (r *walletRepoImpl) RecentTransactions(ctx context.Context, walletID uint, limit int) ([]*model.WalletTransaction, error) {
	var txns []*model.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
