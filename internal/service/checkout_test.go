package service

import (
	"context"
	"testing"
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/apperr"
	"github.com/RISHIK92/gift-mama-backend/internal/dto"
	"github.com/RISHIK92/gift-mama-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiateEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.checkoutService.Initiate(context.Background(), "user-1", &dto.InitiateCheckoutRequest{
		Address: inlineAddress(),
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
}

func TestInitiateRequiresAddress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 1))

	_, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)

	// saved address of another user is invisible
	other := &model.Address{UserID: "user-2", Line1: "1 Oak St", City: "Pune", PostalCode: "411001", Country: "IN"}
	require.NoError(t, env.db.Create(other).Error)
	_, err = env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{AddressID: &other.ID})
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestInitiateWalletValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))

	// wallet amount must stay below the order total
	_, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address:      inlineAddress(),
		UseWallet:    true,
		WalletAmount: dec("1000"),
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)

	// and must be covered by the balance
	_, err = env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address:      inlineAddress(),
		UseWallet:    true,
		WalletAmount: dec("300"),
	})
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInsufficientBalance, appErr.Code)
}

func TestInitiateSizesIntentAfterWalletSplit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))
	_, err := env.walletService.Credit(ctx, "user-1", dec("300"), "Top-up")
	require.NoError(t, err)

	resp, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address:      inlineAddress(),
		UseWallet:    true,
		WalletAmount: dec("300"),
	})
	require.NoError(t, err)

	// 1000 total minus 300 wallet: the gateway only ever sees 700
	assert.True(t, resp.AmountDue.Equal(dec("700")))
	assert.True(t, env.gateway.lastAmount.Equal(dec("700")))

	var order model.Order
	require.NoError(t, env.db.Where("order_id = ?", resp.OrderID).First(&order).Error)
	assert.Equal(t, model.OrderStatusInitiated, order.Status)
	assert.True(t, order.Amount.Equal(dec("1000")))
	assert.True(t, order.WalletAmount.Equal(dec("300")))
	assert.Equal(t, "Bengaluru", order.ShipCity)

	// initiating reserves nothing
	var fresh model.Product
	require.NoError(t, env.db.First(&fresh, product.ID).Error)
	assert.Equal(t, 5, fresh.Stock)
	balance, err := env.walletService.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(dec("300")))
}

func TestSettleHappyPathWithWalletSplit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))
	_, err := env.walletService.Credit(ctx, "user-1", dec("300"), "Top-up")
	require.NoError(t, err)

	initiated, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address:      inlineAddress(),
		UseWallet:    true,
		WalletAmount: dec("300"),
	})
	require.NoError(t, err)

	settled, err := env.checkoutService.Settle(ctx, "user-1", &dto.SettleRequest{
		OrderID:    initiated.OrderID,
		IntentID:   initiated.IntentID,
		PaymentRef: "pay_abc",
		Signature:  signFor(initiated.IntentID, "pay_abc"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, settled.Status)
	assert.Equal(t, "pay_abc", settled.PaymentRef)
	assert.True(t, settled.WalletAmount.Equal(dec("300")))

	// wallet drained by exactly one debit row
	balance, err := env.walletService.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, balance.Balance.IsZero())
	var debits []*model.WalletTransaction
	require.NoError(t, env.db.Where("type = ?", model.TransactionTypeDebit).Find(&debits).Error)
	require.Len(t, debits, 1)
	assert.True(t, debits[0].Amount.Equal(dec("-300")))

	// items materialized at settle-time unit prices, stock decremented
	var items []*model.OrderItem
	require.NoError(t, env.db.Where("order_id = ?", initiated.OrderID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(dec("500")))
	var fresh model.Product
	require.NoError(t, env.db.First(&fresh, product.ID).Error)
	assert.Equal(t, 3, fresh.Stock)

	// cart is empty afterwards
	snapshot, err := env.cartService.Snapshot(ctx, "user-1", time.Now())
	require.NoError(t, err)
	assert.True(t, snapshot.IsEmpty())
}

func TestSettleBadSignatureLeavesOrderInitiated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 1))

	initiated, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address: inlineAddress(),
	})
	require.NoError(t, err)

	_, err = env.checkoutService.Settle(ctx, "user-1", &dto.SettleRequest{
		OrderID:    initiated.OrderID,
		IntentID:   initiated.IntentID,
		PaymentRef: "pay_abc",
		Signature:  "forged",
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeSignatureMismatch, appErr.Code)

	var order model.Order
	require.NoError(t, env.db.Where("order_id = ?", initiated.OrderID).First(&order).Error)
	assert.Equal(t, model.OrderStatusInitiated, order.Status)
	var fresh model.Product
	require.NoError(t, env.db.First(&fresh, product.ID).Error)
	assert.Equal(t, 5, fresh.Stock)
}

func TestSettleTwiceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))
	_, err := env.walletService.Credit(ctx, "user-1", dec("300"), "Top-up")
	require.NoError(t, err)

	initiated, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address:      inlineAddress(),
		UseWallet:    true,
		WalletAmount: dec("300"),
	})
	require.NoError(t, err)

	req := &dto.SettleRequest{
		OrderID:    initiated.OrderID,
		IntentID:   initiated.IntentID,
		PaymentRef: "pay_abc",
		Signature:  signFor(initiated.IntentID, "pay_abc"),
	}
	first, err := env.checkoutService.Settle(ctx, "user-1", req)
	require.NoError(t, err)

	// redelivered confirmation reports the same outcome without re-running
	// the debit, the item snapshot or the stock decrement
	second, err := env.checkoutService.Settle(ctx, "user-1", req)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.OrderID, second.OrderID)

	balance, err := env.walletService.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, balance.Balance.IsZero())
	var debitCount int64
	require.NoError(t, env.db.Model(&model.WalletTransaction{}).
		Where("type = ?", model.TransactionTypeDebit).Count(&debitCount).Error)
	assert.Equal(t, int64(1), debitCount)

	var itemCount int64
	require.NoError(t, env.db.Model(&model.OrderItem{}).
		Where("order_id = ?", initiated.OrderID).Count(&itemCount).Error)
	assert.Equal(t, int64(1), itemCount)

	var fresh model.Product
	require.NoError(t, env.db.First(&fresh, product.ID).Error)
	assert.Equal(t, 3, fresh.Stock)
}

func TestSettleIntentMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 1))

	initiated, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address: inlineAddress(),
	})
	require.NoError(t, err)

	_, err = env.checkoutService.Settle(ctx, "user-1", &dto.SettleRequest{
		OrderID:    initiated.OrderID,
		IntentID:   "intent_other",
		PaymentRef: "pay_abc",
		Signature:  signFor("intent_other", "pay_abc"),
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeConflict, appErr.Code)
}

func TestSettleOrderOfAnotherUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 1))

	initiated, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address: inlineAddress(),
	})
	require.NoError(t, err)

	_, err = env.checkoutService.Settle(ctx, "user-2", &dto.SettleRequest{
		OrderID:    initiated.OrderID,
		IntentID:   initiated.IntentID,
		PaymentRef: "pay_abc",
		Signature:  signFor(initiated.IntentID, "pay_abc"),
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestSettleRecordsCouponUsageOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	coupon := seedCoupon(t, env.db, &model.Coupon{
		Code:          "FLAT100",
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: dec("100"),
		IsActive:      true,
	})
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))
	_, err := env.cartService.ApplyCoupon(ctx, "user-1", coupon.Code)
	require.NoError(t, err)

	initiated, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address: inlineAddress(),
	})
	require.NoError(t, err)
	assert.True(t, initiated.AmountDue.Equal(dec("900")))

	req := &dto.SettleRequest{
		OrderID:    initiated.OrderID,
		IntentID:   initiated.IntentID,
		PaymentRef: "pay_abc",
		Signature:  signFor(initiated.IntentID, "pay_abc"),
	}
	_, err = env.checkoutService.Settle(ctx, "user-1", req)
	require.NoError(t, err)
	_, err = env.checkoutService.Settle(ctx, "user-1", req)
	require.NoError(t, err)

	var usages int64
	require.NoError(t, env.db.Model(&model.CouponUsage{}).
		Where("coupon_id = ?", coupon.ID).Count(&usages).Error)
	assert.Equal(t, int64(1), usages)

	// coupon detached from the cleared cart
	var cart model.Cart
	require.NoError(t, env.db.Where("user_id = ?", "user-1").First(&cart).Error)
	assert.Nil(t, cart.AppliedCouponID)
}

func TestSettleInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))
	_, err := env.walletService.Credit(ctx, "user-1", dec("300"), "Top-up")
	require.NoError(t, err)

	initiated, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address:      inlineAddress(),
		UseWallet:    true,
		WalletAmount: dec("300"),
	})
	require.NoError(t, err)

	// stock sold elsewhere between initiation and settlement
	require.NoError(t, env.db.Model(&model.Product{}).
		Where("id = ?", product.ID).Update("stock", 1).Error)

	_, err = env.checkoutService.Settle(ctx, "user-1", &dto.SettleRequest{
		OrderID:    initiated.OrderID,
		IntentID:   initiated.IntentID,
		PaymentRef: "pay_abc",
		Signature:  signFor(initiated.IntentID, "pay_abc"),
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeConflict, appErr.Code)

	// everything rolled back together: status, wallet and stock
	var order model.Order
	require.NoError(t, env.db.Where("order_id = ?", initiated.OrderID).First(&order).Error)
	assert.Equal(t, model.OrderStatusInitiated, order.Status)
	balance, err := env.walletService.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(dec("300")))
	var fresh model.Product
	require.NoError(t, env.db.First(&fresh, product.ID).Error)
	assert.Equal(t, 1, fresh.Stock)
}

func TestOrderLookup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 5)
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))

	initiated, err := env.checkoutService.Initiate(ctx, "user-1", &dto.InitiateCheckoutRequest{
		Address: inlineAddress(),
	})
	require.NoError(t, err)

	_, err = env.checkoutService.Settle(ctx, "user-1", &dto.SettleRequest{
		OrderID:    initiated.OrderID,
		IntentID:   initiated.IntentID,
		PaymentRef: "pay_abc",
		Signature:  signFor(initiated.IntentID, "pay_abc"),
	})
	require.NoError(t, err)

	order, err := env.checkoutService.Order(ctx, "user-1", initiated.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.True(t, order.Amount.Equal(dec("1000")))
	require.Len(t, order.Items, 1)
	assert.Equal(t, product.ID, order.Items[0].ProductID)

	// other users cannot see it
	_, err = env.checkoutService.Order(ctx, "user-2", initiated.OrderID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}
