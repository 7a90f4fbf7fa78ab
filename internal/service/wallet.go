package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/RISHIK92/gift-mama-backend/internal/apperr"
	"github.com/RISHIK92/gift-mama-backend/internal/client"
	"github.com/RISHIK92/gift-mama-backend/internal/dto"
	"github.com/RISHIK92/gift-mama-backend/internal/model"
	"github.com/RISHIK92/gift-mama-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService is the stored-value ledger. Balances only ever move through
// Credit/Debit (or their in-transaction Ledger variants), each of which pairs
// the balance update with exactly one transaction-log insert.
type WalletService interface {
	Balance(ctx context.Context, userID string) (*dto.WalletBalanceResponse, error)
	Transactions(ctx context.Context, userID string, page, limit int) (*dto.TransactionsResponse, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal, description string) (string, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal, description string) (string, error)

	// LedgerCredit/LedgerDebit run inside a caller-owned transaction so other
	// coordinators (settlement, top-up) can fold a wallet movement into their
	// atomic unit. The wallet row must already exist.
	LedgerCredit(ctx context.Context, tx *gorm.DB, walletID uint, amount decimal.Decimal, description string) (string, error)
	LedgerDebit(ctx context.Context, tx *gorm.DB, walletID uint, amount decimal.Decimal, description string) (string, error)

	InitiateTopUp(ctx context.Context, userID string, amount decimal.Decimal) (*dto.TopUpResponse, error)
	VerifyTopUp(ctx context.Context, userID string, req *dto.VerifyTopUpRequest) (*dto.TopUpVerifyResponse, error)
}

type walletServiceImpl struct {
	db            *gorm.DB
	walletRepo    repository.WalletRepository
	intentRepo    repository.IntentRepository
	gatewayClient client.GatewayClient
	currency      string
}

func NewWalletService(
	db *gorm.DB,
	walletRepo repository.WalletRepository,
	intentRepo repository.IntentRepository,
	gatewayClient client.GatewayClient,
	currency string,
) WalletService {
	return &walletServiceImpl{
		db:            db,
		walletRepo:    walletRepo,
		intentRepo:    intentRepo,
		gatewayClient: gatewayClient,
		currency:      currency,
	}
}

func (s *walletServiceImpl) Balance(ctx context.Context, userID string) (*dto.WalletBalanceResponse, error) {
	wallet, err := s.walletRepo.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	txns, err := s.walletRepo.RecentTransactions(ctx, wallet.ID, 10)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &dto.WalletBalanceResponse{
		Balance:      wallet.Balance,
		Transactions: transactionResponses(txns),
	}, nil
}

func (s *walletServiceImpl) Transactions(ctx context.Context, userID string, page, limit int) (*dto.TransactionsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	wallet, err := s.walletRepo.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	txns, total, err := s.walletRepo.Transactions(ctx, wallet.ID, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &dto.TransactionsResponse{
		Transactions: transactionResponses(txns),
		Pagination: dto.Pagination{
			CurrentPage:       page,
			TotalPages:        totalPages,
			TotalTransactions: total,
		},
	}, nil
}

func (s *walletServiceImpl) Credit(ctx context.Context, userID string, amount decimal.Decimal, description string) (string, error) {
	if !amount.IsPositive() {
		return "", apperr.Validation("amount must be positive")
	}

	wallet, err := s.walletRepo.FindOrCreate(ctx, userID)
	if err != nil {
		return "", apperr.Internal(err)
	}

	var txnID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txnID, err = s.LedgerCredit(ctx, tx, wallet.ID, amount, description)
		return err
	})
	if err != nil {
		return "", err
	}
	return txnID, nil
}

func (s *walletServiceImpl) Debit(ctx context.Context, userID string, amount decimal.Decimal, description string) (string, error) {
	if !amount.IsPositive() {
		return "", apperr.Validation("amount must be positive")
	}

	wallet, err := s.walletRepo.FindOrCreate(ctx, userID)
	if err != nil {
		return "", apperr.Internal(err)
	}

	var txnID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txnID, err = s.LedgerDebit(ctx, tx, wallet.ID, amount, description)
		return err
	})
	if err != nil {
		return "", err
	}
	return txnID, nil
}

func (s *walletServiceImpl) LedgerCredit(ctx context.Context, tx *gorm.DB, walletID uint, amount decimal.Decimal, description string) (string, error) {
	if err := s.walletRepo.IncrementBalance(ctx, tx, walletID, amount); err != nil {
		return "", apperr.Internal(err)
	}

	txn := &model.WalletTransaction{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Amount:      amount,
		Type:        model.TransactionTypeCredit,
		Description: description,
	}
	if err := s.walletRepo.CreateTransaction(ctx, tx, txn); err != nil {
		return "", apperr.Internal(err)
	}
	return txn.ID, nil
}

func (s *walletServiceImpl) LedgerDebit(ctx context.Context, tx *gorm.DB, walletID uint, amount decimal.Decimal, description string) (string, error) {
	if err := s.walletRepo.DecrementBalance(ctx, tx, walletID, amount); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return "", apperr.InsufficientBalance()
		}
		return "", apperr.Internal(err)
	}

	txn := &model.WalletTransaction{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Amount:      amount.Neg(),
		Type:        model.TransactionTypeDebit,
		Description: description,
	}
	if err := s.walletRepo.CreateTransaction(ctx, tx, txn); err != nil {
		return "", apperr.Internal(err)
	}
	return txn.ID, nil
}

func (s *walletServiceImpl) InitiateTopUp(ctx context.Context, userID string, amount decimal.Decimal) (*dto.TopUpResponse, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("please provide a valid amount")
	}

	receipt := "wallet_topup_" + uuid.NewString()
	resp, err := s.gatewayClient.CreateIntent(ctx, amount, s.currency, receipt, map[string]string{
		"purpose": "Wallet Top-up",
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	intent := &model.PaymentIntent{
		IntentID: resp.IntentID,
		UserID:   userID,
		Purpose:  model.IntentPurposeWalletTopUp,
		Amount:   amount,
		Currency: s.currency,
		Status:   model.IntentStatusCreated,
	}
	if err := s.intentRepo.Create(ctx, s.db, intent); err != nil {
		return nil, apperr.Internal(err)
	}

	return &dto.TopUpResponse{
		IntentID: resp.IntentID,
		Amount:   amount,
		Currency: s.currency,
	}, nil
}

// VerifyTopUp authenticates a gateway confirmation and credits the wallet
// once. Redelivery of an already-confirmed intent returns the current
// balance without a second credit.
func (s *walletServiceImpl) VerifyTopUp(ctx context.Context, userID string, req *dto.VerifyTopUpRequest) (*dto.TopUpVerifyResponse, error) {
	if req.IntentID == "" || req.PaymentRef == "" || req.Signature == "" {
		return nil, apperr.Validation("missing payment verification details")
	}

	if err := s.gatewayClient.VerifyConfirmation(req.IntentID, req.PaymentRef, req.Signature); err != nil {
		slog.Warn("wallet top-up signature mismatch", "intent_id", req.IntentID, "user_id", userID)
		return nil, apperr.SignatureMismatch()
	}

	intent, err := s.intentRepo.FindByIntentID(ctx, req.IntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("wallet top-up order not found")
		}
		return nil, apperr.Internal(err)
	}
	if intent.UserID != userID || intent.Purpose != model.IntentPurposeWalletTopUp {
		return nil, apperr.NotFound("wallet top-up order not found")
	}

	wallet, err := s.walletRepo.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if intent.Status == model.IntentStatusConfirmed {
		return &dto.TopUpVerifyResponse{Status: "already_processed", NewBalance: wallet.Balance}, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		confirmed, err := s.intentRepo.MarkConfirmed(ctx, tx, intent.IntentID)
		if err != nil {
			return apperr.Internal(err)
		}
		if !confirmed {
			// lost the race to a concurrent delivery; nothing to do
			return nil
		}
		_, err = s.LedgerCredit(ctx, tx, wallet.ID, intent.Amount, "Wallet top-up via payment gateway")
		return err
	})
	if err != nil {
		return nil, err
	}

	wallet, err = s.walletRepo.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &dto.TopUpVerifyResponse{Status: "success", NewBalance: wallet.Balance}, nil
}

func transactionResponses(txns []*model.WalletTransaction) []dto.TransactionResponse {
	out := make([]dto.TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, dto.TransactionResponse{
			ID:          txn.ID,
			Amount:      txn.Amount,
			Type:        txn.Type,
			Description: txn.Description,
			CreatedAt:   txn.CreatedAt,
		})
	}
	return out
}
