// Package pricing computes cart monetary summaries. It is pure: no I/O, no
// persistence, and an empty cart always yields a zero summary.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

type DeliveryFeePolicy string

const (
	DeliveryPerItem DeliveryFeePolicy = "per_item"
	DeliveryFlat    DeliveryFeePolicy = "flat"
)

// Line is one cart line with every price source it may carry.
type Line struct {
	ProductID       uint
	Quantity        int
	ListPrice       decimal.Decimal
	DiscountedPrice decimal.NullDecimal
	FlashSalePrice  decimal.NullDecimal
	FlashSaleEndsAt *time.Time
	DeliveryFee     decimal.Decimal
}

// UnitPriceAt resolves the effective unit price: an unexpired flash-sale
// override wins, then the product's discounted price, then list price.
func (l Line) UnitPriceAt(now time.Time) decimal.Decimal {
	if l.FlashSalePrice.Valid {
		if l.FlashSaleEndsAt == nil || now.Before(*l.FlashSaleEndsAt) {
			return l.FlashSalePrice.Decimal
		}
	}
	if l.DiscountedPrice.Valid {
		return l.DiscountedPrice.Decimal
	}
	return l.ListPrice
}

// CouponTerms is the discount-relevant slice of an applied coupon.
type CouponTerms struct {
	Type        DiscountType
	Value       decimal.Decimal
	MaxDiscount decimal.NullDecimal
}

type Summary struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
}

// Calculator carries the configured pricing policy. Tax rate and delivery
// strategy are fixed at construction so every endpoint prices identically.
type Calculator struct {
	TaxRate         decimal.Decimal
	DeliveryPolicy  DeliveryFeePolicy
	FlatDeliveryFee decimal.Decimal
}

func (c Calculator) Subtotal(now time.Time, lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		subtotal = subtotal.Add(l.UnitPriceAt(now).Mul(qty))
	}
	return subtotal
}

// Discount computes the coupon discount for a subtotal, clamped so it never
// exceeds the subtotal nor the coupon's maximum discount cap.
func Discount(subtotal decimal.Decimal, coupon CouponTerms) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case DiscountPercentage:
		discount = subtotal.Mul(coupon.Value).Div(decimal.NewFromInt(100)).Round(2)
		if coupon.MaxDiscount.Valid && discount.GreaterThan(coupon.MaxDiscount.Decimal) {
			discount = coupon.MaxDiscount.Decimal
		}
	case DiscountFixed:
		discount = coupon.Value
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

func (c Calculator) deliveryFee(lines []Line) decimal.Decimal {
	if len(lines) == 0 {
		return decimal.Zero
	}
	if c.DeliveryPolicy == DeliveryFlat {
		return c.FlatDeliveryFee
	}
	fee := decimal.Zero
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		fee = fee.Add(l.DeliveryFee.Mul(qty))
	}
	return fee
}

// Summarize prices a cart. coupon may be nil.
func (c Calculator) Summarize(now time.Time, lines []Line, coupon *CouponTerms) Summary {
	subtotal := c.Subtotal(now, lines)

	discount := decimal.Zero
	if coupon != nil {
		discount = Discount(subtotal, *coupon)
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(c.TaxRate).Round(2)
	deliveryFee := c.deliveryFee(lines)

	total := taxable.Add(tax).Add(deliveryFee)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Summary{
		Subtotal:    subtotal,
		Discount:    discount,
		Tax:         tax,
		DeliveryFee: deliveryFee,
		Total:       total,
	}
}
