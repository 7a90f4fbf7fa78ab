package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/apperr"
	"github.com/RISHIK92/gift-mama-backend/internal/dto"
	"github.com/RISHIK92/gift-mama-backend/internal/model"
	"github.com/RISHIK92/gift-mama-backend/internal/pricing"
	"github.com/RISHIK92/gift-mama-backend/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartSnapshot is a cart resolved against live product and coupon state:
// lines ready for pricing, the validated coupon (nil when none survives
// re-evaluation), and the freshly computed summary.
type CartSnapshot struct {
	Cart     *model.Cart
	Items    []model.CartItem
	Products map[uint]*model.Product
	Lines    []pricing.Line
	Coupon   *model.Coupon
	Summary  pricing.Summary
}

func (s *CartSnapshot) IsEmpty() bool {
	return s.Cart == nil || len(s.Lines) == 0
}

type CartService interface {
	GetCart(ctx context.Context, userID string) (*dto.CartResponse, error)
	AddItem(ctx context.Context, userID string, productID uint, quantity int) error
	UpdateItemQuantity(ctx context.Context, userID string, itemID uint, quantity int) error
	RemoveItem(ctx context.Context, userID string, itemID uint) error
	Clear(ctx context.Context, userID string) error
	LinkCustomization(ctx context.Context, userID string, itemID uint, payload model.CustomizationPayload) error
	ApplyCoupon(ctx context.Context, userID, code string) (*dto.CouponResponse, error)
	AppliedCoupon(ctx context.Context, userID string) (*dto.CouponResponse, error)
	RemoveCoupon(ctx context.Context, userID string) error

	// Snapshot is the read path settlement and the cart endpoints share. The
	// discount is always recomputed here; a coupon whose conditions no longer
	// hold is detached rather than honored stale.
	Snapshot(ctx context.Context, userID string, now time.Time) (*CartSnapshot, error)
}

type cartServiceImpl struct {
	db            *gorm.DB
	cartRepo      repository.CartRepository
	productRepo   repository.ProductRepository
	couponRepo    repository.CouponRepository
	couponService CouponService
	calculator    pricing.Calculator
}

func NewCartService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	couponService CouponService,
	calculator pricing.Calculator,
) CartService {
	return &cartServiceImpl{
		db:            db,
		cartRepo:      cartRepo,
		productRepo:   productRepo,
		couponRepo:    couponRepo,
		couponService: couponService,
		calculator:    calculator,
	}
}

func (s *cartServiceImpl) Snapshot(ctx context.Context, userID string, now time.Time) (*CartSnapshot, error) {
	snapshot := &CartSnapshot{Products: map[uint]*model.Product{}}

	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return snapshot, nil
		}
		return nil, apperr.Internal(err)
	}
	snapshot.Cart = cart
	snapshot.Items = cart.Items

	productIDs := make([]uint, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	if len(productIDs) > 0 {
		products, err := s.productRepo.FindMany(ctx, productIDs)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for _, p := range products {
			snapshot.Products[p.ID] = p
		}
	}

	for _, item := range cart.Items {
		product, ok := snapshot.Products[item.ProductID]
		if !ok {
			// product removed from catalog; the line cannot be priced
			continue
		}
		snapshot.Lines = append(snapshot.Lines, pricing.Line{
			ProductID:       product.ID,
			Quantity:        item.Quantity,
			ListPrice:       product.Price,
			DiscountedPrice: product.DiscountedPrice,
			FlashSalePrice:  item.FlashSalePrice,
			FlashSaleEndsAt: item.FlashSaleEndsAt,
			DeliveryFee:     product.DeliveryFee,
		})
	}

	var terms *pricing.CouponTerms
	if cart.AppliedCouponID != nil {
		coupon, discount, err := s.revalidateCoupon(ctx, cart, snapshot, userID, now)
		if err != nil {
			return nil, err
		}
		snapshot.Coupon = coupon
		if coupon != nil {
			t := CouponTerms(coupon)
			terms = &t
			// keep the cached amount in sync with what we just computed
			if !discount.Equal(cart.DiscountAmount) {
				if err := s.cartRepo.SetCoupon(ctx, s.db, cart.ID, &coupon.ID, discount); err != nil {
					return nil, apperr.Internal(err)
				}
			}
		}
	}

	snapshot.Summary = s.calculator.Summarize(now, snapshot.Lines, terms)
	return snapshot, nil
}

// revalidateCoupon re-runs eligibility against current cart contents and
// detaches the coupon when it no longer qualifies, mirroring how removing
// items can drop a cart below a coupon's minimum purchase.
func (s *cartServiceImpl) revalidateCoupon(ctx context.Context, cart *model.Cart, snapshot *CartSnapshot, userID string, now time.Time) (*model.Coupon, decimal.Decimal, error) {
	coupon, err := s.couponRepo.FindByID(ctx, *cart.AppliedCouponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, decimal.Zero, s.detachCoupon(ctx, cart.ID)
		}
		return nil, decimal.Zero, apperr.Internal(err)
	}

	discount, err := s.couponService.Evaluate(ctx, nil, coupon, s.couponView(snapshot, now), userID, now)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, decimal.Zero, s.detachCoupon(ctx, cart.ID)
		}
		return nil, decimal.Zero, err
	}
	return coupon, discount, nil
}

func (s *cartServiceImpl) detachCoupon(ctx context.Context, cartID uint) error {
	if err := s.cartRepo.SetCoupon(ctx, s.db, cartID, nil, decimal.Zero); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *cartServiceImpl) couponView(snapshot *CartSnapshot, now time.Time) CouponCartView {
	view := CouponCartView{Subtotal: s.calculator.Subtotal(now, snapshot.Lines)}
	for _, line := range snapshot.Lines {
		item := CouponCartItem{ProductID: line.ProductID}
		if product, ok := snapshot.Products[line.ProductID]; ok {
			item.Categories = product.Categories
		}
		view.Items = append(view.Items, item)
	}
	return view
}

func (s *cartServiceImpl) GetCart(ctx context.Context, userID string) (*dto.CartResponse, error) {
	now := time.Now()
	snapshot, err := s.Snapshot(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	resp := &dto.CartResponse{
		Items:   []dto.CartItemResponse{},
		Summary: snapshot.Summary,
	}

	for _, item := range snapshot.Items {
		product, ok := snapshot.Products[item.ProductID]
		if !ok {
			continue
		}
		line := pricing.Line{
			Quantity:        item.Quantity,
			ListPrice:       product.Price,
			DiscountedPrice: product.DiscountedPrice,
			FlashSalePrice:  item.FlashSalePrice,
			FlashSaleEndsAt: item.FlashSaleEndsAt,
		}
		resp.Items = append(resp.Items, dto.CartItemResponse{
			ID:       item.ID,
			Quantity: item.Quantity,
			Product: dto.CartItemProduct{
				ID:              product.ID,
				Name:            product.Name,
				Price:           product.Price,
				DiscountedPrice: product.DiscountedPrice,
				DeliveryFee:     product.DeliveryFee,
				Stock:           product.Stock,
				IsCustomizable:  product.IsCustomizable,
			},
			FlashSalePrice: item.FlashSalePrice,
			UnitPrice:      line.UnitPriceAt(now),
			Customization:  item.Customization,
		})
	}

	if snapshot.Coupon != nil {
		resp.AppliedCoupon = couponResponse(snapshot.Coupon, snapshot.Summary.Discount)
	}

	return resp, nil
}

func (s *cartServiceImpl) AddItem(ctx context.Context, userID string, productID uint, quantity int) error {
	if productID == 0 {
		return apperr.Validation("product id is required")
	}
	if quantity < 1 {
		return apperr.Validation("quantity must be at least 1")
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("product not found")
		}
		return apperr.Internal(err)
	}

	cart, err := s.cartRepo.FindOrCreateByUserID(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := s.cartRepo.UpsertItem(ctx, cart.ID, productID, quantity); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *cartServiceImpl) UpdateItemQuantity(ctx context.Context, userID string, itemID uint, quantity int) error {
	if quantity < 1 {
		return apperr.Validation("quantity must be at least 1")
	}

	item, err := s.cartRepo.FindItemForUser(ctx, itemID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("cart item not found")
		}
		return apperr.Internal(err)
	}

	product, err := s.productRepo.FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("product not found")
		}
		return apperr.Internal(err)
	}
	if quantity > product.Stock {
		return apperr.Validation(fmt.Sprintf("only %d items available in stock", product.Stock))
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID string, itemID uint) error {
	if _, err := s.cartRepo.FindItemForUser(ctx, itemID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("item not found in cart")
		}
		return apperr.Internal(err)
	}

	if err := s.cartRepo.RemoveItem(ctx, itemID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *cartServiceImpl) Clear(ctx context.Context, userID string) error {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperr.Internal(err)
	}

	if err := s.cartRepo.ClearItems(ctx, s.db, cart.ID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *cartServiceImpl) LinkCustomization(ctx context.Context, userID string, itemID uint, payload model.CustomizationPayload) error {
	normalized := payload.Normalized()
	if normalized.IsZero() {
		return apperr.Validation("customization payload is empty")
	}

	if _, err := s.cartRepo.FindItemForUser(ctx, itemID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("cart item not found")
		}
		return apperr.Internal(err)
	}

	if err := s.cartRepo.UpdateItemCustomization(ctx, itemID, normalized); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ApplyCoupon is idempotent: re-applying the same code recomputes instead of
// stacking, and a new code replaces whatever was attached before.
func (s *cartServiceImpl) ApplyCoupon(ctx context.Context, userID, code string) (*dto.CouponResponse, error) {
	if code == "" {
		return nil, apperr.Validation("coupon code is required")
	}

	coupon, err := s.couponRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("coupon not found")
		}
		return nil, apperr.Internal(err)
	}

	now := time.Now()
	snapshot, err := s.Snapshot(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if snapshot.IsEmpty() {
		return nil, apperr.Validation("your cart is empty")
	}

	discount, err := s.couponService.Evaluate(ctx, nil, coupon, s.couponView(snapshot, now), userID, now)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.SetCoupon(ctx, s.db, snapshot.Cart.ID, &coupon.ID, discount); err != nil {
		return nil, apperr.Internal(err)
	}

	return couponResponse(coupon, discount), nil
}

func (s *cartServiceImpl) AppliedCoupon(ctx context.Context, userID string) (*dto.CouponResponse, error) {
	snapshot, err := s.Snapshot(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}
	if snapshot.Coupon == nil {
		return nil, apperr.NotFound("no coupon applied to cart")
	}
	return couponResponse(snapshot.Coupon, snapshot.Summary.Discount), nil
}

func (s *cartServiceImpl) RemoveCoupon(ctx context.Context, userID string) error {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("cart not found")
		}
		return apperr.Internal(err)
	}
	if cart.AppliedCouponID == nil {
		return apperr.Validation("no coupon applied to remove")
	}

	if err := s.cartRepo.SetCoupon(ctx, s.db, cart.ID, nil, decimal.Zero); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func couponResponse(coupon *model.Coupon, discount decimal.Decimal) *dto.CouponResponse {
	return &dto.CouponResponse{
		Code:              coupon.Code,
		Description:       coupon.Description,
		DiscountType:      coupon.DiscountType,
		DiscountValue:     coupon.DiscountValue,
		MinPurchaseAmount: coupon.MinPurchaseAmount,
		MaxDiscountAmount: coupon.MaxDiscountAmount,
		DiscountAmount:    discount,
	}
}
