package service

import (
	"context"
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/apperr"
	"github.com/RISHIK92/gift-mama-backend/internal/model"
	"github.com/RISHIK92/gift-mama-backend/internal/pricing"
	"github.com/RISHIK92/gift-mama-backend/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponCartItem is the slice of a cart line the evaluator needs for
// product/category restriction checks.
type CouponCartItem struct {
	ProductID  uint
	Categories model.StringList
}

// CouponCartView is a cart as the evaluator sees it.
type CouponCartView struct {
	Subtotal decimal.Decimal
	Items    []CouponCartItem
}

// CouponService validates coupons against a cart and a user's redemption
// history. It never writes CouponUsage rows; that happens at settlement.
type CouponService interface {
	// Evaluate runs the eligibility checks in order, first failure wins, and
	// returns the discount amount on success. tx scopes the usage-count reads
	// when the caller is inside a settlement transaction; nil reads live state.
	Evaluate(ctx context.Context, tx *gorm.DB, coupon *model.Coupon, cart CouponCartView, userID string, now time.Time) (decimal.Decimal, error)
}

type couponServiceImpl struct {
	couponRepo repository.CouponRepository
}

func NewCouponService(couponRepo repository.CouponRepository) CouponService {
	return &couponServiceImpl{
		couponRepo: couponRepo,
	}
}

func (s *couponServiceImpl) Evaluate(ctx context.Context, tx *gorm.DB, coupon *model.Coupon, cart CouponCartView, userID string, now time.Time) (decimal.Decimal, error) {
	if !coupon.IsActive || now.Before(coupon.StartDate) || now.After(coupon.EndDate) {
		return decimal.Zero, apperr.Ineligible(apperr.ReasonExpiredOrInactive,
			"this coupon is not valid at this time")
	}

	if coupon.UsageLimit != nil {
		count, err := s.couponRepo.CountUsages(ctx, tx, coupon.ID)
		if err != nil {
			return decimal.Zero, apperr.Internal(err)
		}
		if count >= int64(*coupon.UsageLimit) {
			return decimal.Zero, apperr.Ineligible(apperr.ReasonUsageLimitReached,
				"this coupon has reached its usage limit")
		}
	}

	if len(coupon.ApplicableUserIDs) > 0 && !coupon.ApplicableUserIDs.Contains(userID) {
		return decimal.Zero, apperr.Ineligible(apperr.ReasonNotApplicableAccount,
			"this coupon is not applicable for your account")
	}

	if coupon.PerUserLimit != nil {
		count, err := s.couponRepo.CountUserUsages(ctx, tx, coupon.ID, userID)
		if err != nil {
			return decimal.Zero, apperr.Internal(err)
		}
		if count >= int64(*coupon.PerUserLimit) {
			return decimal.Zero, apperr.Ineligible(apperr.ReasonPerUserLimitReached,
				"you have already used this coupon the maximum number of times")
		}
	}

	if coupon.MinPurchaseAmount.Valid && cart.Subtotal.LessThan(coupon.MinPurchaseAmount.Decimal) {
		return decimal.Zero, apperr.Ineligible(apperr.ReasonBelowMinimumPurchase,
			"minimum purchase amount of "+coupon.MinPurchaseAmount.Decimal.StringFixed(2)+" required for this coupon")
	}

	if len(coupon.ApplicableProductIDs) > 0 || len(coupon.ApplicableCategories) > 0 {
		if !s.cartMatchesRestrictions(coupon, cart.Items) {
			return decimal.Zero, apperr.Ineligible(apperr.ReasonNotApplicableToCart,
				"this coupon is not applicable for the items in your cart")
		}
	}

	return pricing.Discount(cart.Subtotal, CouponTerms(coupon)), nil
}

func (s *couponServiceImpl) cartMatchesRestrictions(coupon *model.Coupon, items []CouponCartItem) bool {
	for _, item := range items {
		if len(coupon.ApplicableProductIDs) > 0 && coupon.ApplicableProductIDs.Contains(item.ProductID) {
			return true
		}
		if len(coupon.ApplicableCategories) > 0 {
			for _, category := range item.Categories {
				if coupon.ApplicableCategories.Contains(category) {
					return true
				}
			}
		}
	}
	return false
}

// CouponTerms maps a coupon to the calculator's discount terms.
func CouponTerms(coupon *model.Coupon) pricing.CouponTerms {
	return pricing.CouponTerms{
		Type:        pricing.DiscountType(coupon.DiscountType),
		Value:       coupon.DiscountValue,
		MaxDiscount: coupon.MaxDiscountAmount,
	}
}
