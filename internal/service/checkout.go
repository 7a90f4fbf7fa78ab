package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/apperr"
	"github.com/RISHIK92/gift-mama-backend/internal/client"
	"github.com/RISHIK92/gift-mama-backend/internal/dto"
	"github.com/RISHIK92/gift-mama-backend/internal/model"
	"github.com/RISHIK92/gift-mama-backend/internal/pricing"
	"github.com/RISHIK92/gift-mama-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errSettlementRaced signals that another delivery of the same confirmation
// won the INITIATED -> PAID compare-and-set while this one was in flight.
var errSettlementRaced = errors.New("settlement raced")

// CheckoutService coordinates order settlement: pricing the cart into an
// INITIATED order with a gateway intent, then, on a verified confirmation,
// committing wallet debit, order items, coupon usage and cart clearing as
// one atomic unit.
type CheckoutService interface {
	Initiate(ctx context.Context, userID string, req *dto.InitiateCheckoutRequest) (*dto.InitiateCheckoutResponse, error)
	Settle(ctx context.Context, userID string, req *dto.SettleRequest) (*dto.SettleResponse, error)
	Order(ctx context.Context, userID, orderID string) (*dto.OrderResponse, error)
}

type checkoutServiceImpl struct {
	db            *gorm.DB
	gatewayClient client.GatewayClient
	cartService   CartService
	walletService WalletService
	cartRepo      repository.CartRepository
	couponRepo    repository.CouponRepository
	walletRepo    repository.WalletRepository
	addressRepo   repository.AddressRepository
	orderRepo     repository.OrderRepository
	intentRepo    repository.IntentRepository
	productRepo   repository.ProductRepository
	currency      string
}

func NewCheckoutService(
	db *gorm.DB,
	gatewayClient client.GatewayClient,
	cartService CartService,
	walletService WalletService,
	cartRepo repository.CartRepository,
	couponRepo repository.CouponRepository,
	walletRepo repository.WalletRepository,
	addressRepo repository.AddressRepository,
	orderRepo repository.OrderRepository,
	intentRepo repository.IntentRepository,
	productRepo repository.ProductRepository,
	currency string,
) CheckoutService {
	return &checkoutServiceImpl{
		db:            db,
		gatewayClient: gatewayClient,
		cartService:   cartService,
		walletService: walletService,
		cartRepo:      cartRepo,
		couponRepo:    couponRepo,
		walletRepo:    walletRepo,
		addressRepo:   addressRepo,
		orderRepo:     orderRepo,
		intentRepo:    intentRepo,
		productRepo:   productRepo,
		currency:      currency,
	}
}

func (s *checkoutServiceImpl) Initiate(ctx context.Context, userID string, req *dto.InitiateCheckoutRequest) (*dto.InitiateCheckoutResponse, error) {
	now := time.Now()

	snapshot, err := s.cartService.Snapshot(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if snapshot.IsEmpty() {
		return nil, apperr.Validation("your cart is empty")
	}

	order := &model.Order{
		OrderID:  uuid.NewString(),
		UserID:   userID,
		Status:   model.OrderStatusInitiated,
		Currency: s.currency,
		Notes:    req.Notes,
	}

	if err := s.resolveAddress(ctx, userID, req, order); err != nil {
		return nil, err
	}

	summary := snapshot.Summary
	order.Subtotal = summary.Subtotal
	order.Discount = summary.Discount
	order.Tax = summary.Tax
	order.DeliveryFee = summary.DeliveryFee
	order.Amount = summary.Total
	if snapshot.Coupon != nil {
		couponID := snapshot.Coupon.ID
		order.CouponID = &couponID
	}

	walletAmount := decimal.Zero
	if req.UseWallet {
		walletAmount = req.WalletAmount
		if !walletAmount.IsPositive() {
			return nil, apperr.Validation("wallet amount must be positive")
		}
		if walletAmount.GreaterThanOrEqual(summary.Total) {
			return nil, apperr.Validation("wallet amount must be less than the order total")
		}
		wallet, err := s.walletRepo.FindOrCreate(ctx, userID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if wallet.Balance.LessThan(walletAmount) {
			return nil, apperr.InsufficientBalance()
		}
	}
	order.UseWallet = req.UseWallet
	order.WalletAmount = walletAmount

	// the wallet portion never reaches the external gateway
	amountDue := summary.Total.Sub(walletAmount)

	intentResp, err := s.gatewayClient.CreateIntent(ctx, amountDue, s.currency, order.OrderID, map[string]string{
		"order_id": order.OrderID,
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("gateway create intent: %w", err))
	}
	order.IntentID = intentResp.IntentID
	order.CustomizationMeta = customizationMeta(snapshot.Items)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.intentRepo.Create(ctx, tx, &model.PaymentIntent{
			IntentID: intentResp.IntentID,
			UserID:   userID,
			Purpose:  model.IntentPurposeOrder,
			Amount:   amountDue,
			Currency: s.currency,
			Status:   model.IntentStatusCreated,
			OrderID:  order.OrderID,
		}); err != nil {
			return fmt.Errorf("store payment intent: %w", err)
		}
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &dto.InitiateCheckoutResponse{
		OrderID:   order.OrderID,
		IntentID:  intentResp.IntentID,
		AmountDue: amountDue,
		Currency:  s.currency,
	}, nil
}

func (s *checkoutServiceImpl) resolveAddress(ctx context.Context, userID string, req *dto.InitiateCheckoutRequest, order *model.Order) error {
	if req.AddressID != nil {
		address, err := s.addressRepo.FindForUser(ctx, *req.AddressID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("address not found")
			}
			return apperr.Internal(err)
		}
		address.Snapshot(order)
		return nil
	}

	if req.Address == nil {
		return apperr.Validation("shipping address is required")
	}
	a := req.Address
	if a.Line1 == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
		return apperr.Validation("address line1, city, postal code and country are required")
	}
	order.ShipName = a.Name
	order.ShipLine1 = a.Line1
	order.ShipLine2 = a.Line2
	order.ShipCity = a.City
	order.ShipState = a.State
	order.ShipPostalCode = a.PostalCode
	order.ShipCountry = a.Country
	order.ShipPhone = a.Phone
	return nil
}

// Settle commits an order on a verified payment confirmation. Steps after
// signature verification run in one database transaction gated by a
// compare-and-set on the order status, so at-least-once confirmation
// delivery can neither double-debit the wallet nor duplicate order items.
func (s *checkoutServiceImpl) Settle(ctx context.Context, userID string, req *dto.SettleRequest) (*dto.SettleResponse, error) {
	if req.OrderID == "" || req.IntentID == "" || req.PaymentRef == "" || req.Signature == "" {
		return nil, apperr.Validation("missing payment verification details")
	}

	if err := s.gatewayClient.VerifyConfirmation(req.IntentID, req.PaymentRef, req.Signature); err != nil {
		slog.Warn("settlement signature mismatch", "intent_id", req.IntentID, "order_id", req.OrderID)
		return nil, apperr.SignatureMismatch()
	}

	order, err := s.orderRepo.FindByOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal(err)
	}
	if order.UserID != userID {
		return nil, apperr.NotFound("order not found")
	}
	if order.IntentID != req.IntentID {
		return nil, apperr.Conflict("payment intent does not match order")
	}
	if order.Status == model.OrderStatusPaid {
		return settleResponse(order), nil
	}

	now := time.Now()
	snapshot, err := s.cartService.Snapshot(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	var wallet *model.Wallet
	if order.UseWallet && order.WalletAmount.IsPositive() {
		wallet, err = s.walletRepo.FindOrCreate(ctx, userID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paid, err := s.orderRepo.MarkPaid(ctx, tx, order.OrderID, req.PaymentRef, req.Signature)
		if err != nil {
			return apperr.Internal(err)
		}
		if !paid {
			return errSettlementRaced
		}

		if wallet != nil {
			// amount from the order snapshot, never from the request
			_, err := s.walletService.LedgerDebit(ctx, tx, wallet.ID, order.WalletAmount,
				"Payment for order "+order.OrderID)
			if err != nil {
				return err
			}
		}

		if err := s.materializeItems(ctx, tx, order, snapshot, now); err != nil {
			return err
		}

		if snapshot.Coupon != nil {
			if err := s.recordCouponUsage(ctx, tx, snapshot.Coupon, userID, order.OrderID); err != nil {
				return err
			}
		}

		if err := s.cartRepo.ClearItems(ctx, tx, snapshot.Cart.ID); err != nil {
			return apperr.Internal(err)
		}
		if err := s.cartRepo.SetCoupon(ctx, tx, snapshot.Cart.ID, nil, decimal.Zero); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errSettlementRaced) {
			return s.settledOutcome(ctx, order.OrderID)
		}
		return nil, err
	}

	order.Status = model.OrderStatusPaid
	order.PaymentRef = req.PaymentRef
	return settleResponse(order), nil
}

// settledOutcome resolves a lost settlement race: if the concurrent delivery
// committed, this one reports the same result.
func (s *checkoutServiceImpl) settledOutcome(ctx context.Context, orderID string) (*dto.SettleResponse, error) {
	order, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if order.Status != model.OrderStatusPaid {
		return nil, apperr.Conflict("order is not awaiting settlement")
	}
	return settleResponse(order), nil
}

// materializeItems snapshots the current cart into order items at current
// unit prices, decrementing stock line by line.
func (s *checkoutServiceImpl) materializeItems(ctx context.Context, tx *gorm.DB, order *model.Order, snapshot *CartSnapshot, now time.Time) error {
	if snapshot.IsEmpty() {
		return apperr.Conflict("cart is empty")
	}

	items := make([]*model.OrderItem, 0, len(snapshot.Items))
	for _, cartItem := range snapshot.Items {
		product, ok := snapshot.Products[cartItem.ProductID]
		if !ok {
			continue
		}

		if err := s.productRepo.DecrementStock(ctx, tx, product.ID, cartItem.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return apperr.Conflict(fmt.Sprintf("insufficient stock for product %d", product.ID))
			}
			return apperr.Internal(err)
		}

		line := lineFor(snapshot, cartItem.ProductID)
		items = append(items, &model.OrderItem{
			OrderID:       order.OrderID,
			ProductID:     product.ID,
			Quantity:      cartItem.Quantity,
			UnitPrice:     line.UnitPriceAt(now),
			Currency:      order.Currency,
			Customization: cartItem.Customization,
		})
	}
	if len(items) == 0 {
		return apperr.Conflict("cart is empty")
	}

	if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// recordCouponUsage inserts the redemption row after re-deriving the global
// count inside the settlement transaction, so two settlements racing for the
// last unit of a limited coupon cannot both win.
func (s *checkoutServiceImpl) recordCouponUsage(ctx context.Context, tx *gorm.DB, coupon *model.Coupon, userID, orderID string) error {
	if coupon.UsageLimit != nil {
		count, err := s.couponRepo.CountUsages(ctx, tx, coupon.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		if count >= int64(*coupon.UsageLimit) {
			return apperr.Ineligible(apperr.ReasonUsageLimitReached,
				"this coupon has reached its usage limit")
		}
	}
	if coupon.PerUserLimit != nil {
		count, err := s.couponRepo.CountUserUsages(ctx, tx, coupon.ID, userID)
		if err != nil {
			return apperr.Internal(err)
		}
		if count >= int64(*coupon.PerUserLimit) {
			return apperr.Ineligible(apperr.ReasonPerUserLimitReached,
				"you have already used this coupon the maximum number of times")
		}
	}
	return s.couponRepo.CreateUsage(ctx, tx, &model.CouponUsage{
		CouponID: coupon.ID,
		UserID:   userID,
		OrderID:  orderID,
	})
}

func (s *checkoutServiceImpl) Order(ctx context.Context, userID, orderID string) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal(err)
	}
	if order.UserID != userID {
		return nil, apperr.NotFound("order not found")
	}

	items, err := s.orderRepo.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	resp := &dto.OrderResponse{
		OrderID:      order.OrderID,
		Status:       order.Status,
		Subtotal:     order.Subtotal,
		Discount:     order.Discount,
		Tax:          order.Tax,
		DeliveryFee:  order.DeliveryFee,
		Amount:       order.Amount,
		Currency:     order.Currency,
		UseWallet:    order.UseWallet,
		WalletAmount: order.WalletAmount,
		CreatedAt:    order.CreatedAt,
		Items:        []dto.OrderItemResponse{},
	}
	for _, item := range items {
		resp.Items = append(resp.Items, dto.OrderItemResponse{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Currency:      item.Currency,
			Customization: item.Customization,
		})
	}
	return resp, nil
}

func lineFor(snapshot *CartSnapshot, productID uint) pricing.Line {
	for _, line := range snapshot.Lines {
		if line.ProductID == productID {
			return line
		}
	}
	return pricing.Line{}
}

func customizationMeta(items []model.CartItem) model.OrderCustomizationList {
	var meta model.OrderCustomizationList
	for _, item := range items {
		normalized := item.Customization.Normalized()
		if normalized.IsZero() {
			continue
		}
		meta = append(meta, model.OrderCustomization{
			ProductID: item.ProductID,
			Payload:   normalized,
		})
	}
	return meta
}

func settleResponse(order *model.Order) *dto.SettleResponse {
	return &dto.SettleResponse{
		OrderID:      order.OrderID,
		Status:       order.Status,
		PaymentRef:   order.PaymentRef,
		Amount:       order.Amount,
		WalletAmount: order.WalletAmount,
	}
}
