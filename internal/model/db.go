package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusInitiated = "INITIATED"
	OrderStatusPaid      = "PAID"

	IntentStatusCreated   = "CREATED"
	IntentStatusConfirmed = "CONFIRMED"
	IntentStatusFailed    = "FAILED"

	IntentPurposeOrder       = "ORDER"
	IntentPurposeWalletTopUp = "WALLET_TOPUP"

	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED"

	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

type Product struct {
	ID              uint            `gorm:"primaryKey"`
	Name            string          `gorm:"size:255;not null"`
	Description     string          `gorm:"type:text"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountedPrice decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	DeliveryFee     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Stock           int             `gorm:"not null;default:0"`
	Categories      StringList      `gorm:"type:text"`
	IsCustomizable  bool            `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Address struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     string `gorm:"size:64;index;not null"`
	Name       string `gorm:"size:128"`
	Line1      string `gorm:"size:255;not null"`
	Line2      string `gorm:"size:255"`
	City       string `gorm:"size:128;not null"`
	State      string `gorm:"size:128"`
	PostalCode string `gorm:"size:16;not null"`
	Country    string `gorm:"size:64;not null"`
	Phone      string `gorm:"size:32"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Cart is the single open cart per user (enforced by the unique index).
// DiscountAmount is the discount last computed for the applied coupon; reads
// always recompute it from live cart contents before trusting it.
type Cart struct {
	ID              uint            `gorm:"primaryKey"`
	UserID          string          `gorm:"size:64;uniqueIndex;not null"`
	AppliedCouponID *uint           `gorm:"index"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Items           []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CartItem struct {
	ID              uint `gorm:"primaryKey"`
	CartID          uint `gorm:"uniqueIndex:idx_cart_items_cart_product;not null"`
	ProductID       uint `gorm:"uniqueIndex:idx_cart_items_cart_product;index;not null"`
	Quantity        int  `gorm:"not null"`
	FlashSalePrice  decimal.NullDecimal  `gorm:"type:decimal(12,2)"`
	FlashSaleEndsAt *time.Time
	Customization   CustomizationPayload `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Coupon struct {
	ID                   uint            `gorm:"primaryKey"`
	Code                 string          `gorm:"size:64;uniqueIndex;not null"`
	Description          string          `gorm:"size:255"`
	DiscountType         string          `gorm:"size:16;not null"` // PERCENTAGE | FIXED
	DiscountValue        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MinPurchaseAmount    decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	MaxDiscountAmount    decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	UsageLimit           *int
	PerUserLimit         *int
	IsActive             bool      `gorm:"not null;default:true"`
	StartDate            time.Time `gorm:"index"`
	EndDate              time.Time `gorm:"index"`
	ApplicableUserIDs    StringList `gorm:"type:text"`
	ApplicableProductIDs IDList     `gorm:"type:text"`
	ApplicableCategories StringList `gorm:"type:text"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CouponUsage is the append-only redemption ledger: one row per
// (coupon, user, order), written only when an order settles. Limits are
// always counted from these rows, never from a cached counter.
type CouponUsage struct {
	ID        uint   `gorm:"primaryKey"`
	CouponID  uint   `gorm:"index:idx_coupon_usages_coupon_user;not null"`
	UserID    string `gorm:"size:64;index:idx_coupon_usages_coupon_user;not null"`
	OrderID   string `gorm:"size:64;uniqueIndex:idx_coupon_usages_coupon_order;not null"`
	CreatedAt time.Time
}

type Wallet struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    string          `gorm:"size:64;uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WalletTransaction is immutable once written. Balance mutations always pair
// with exactly one of these in the same database transaction.
type WalletTransaction struct {
	ID          string          `gorm:"primaryKey;size:64;not null"`
	WalletID    uint            `gorm:"index;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"` // signed
	Type        string          `gorm:"size:16;not null"`            // credit | debit
	Description string          `gorm:"size:255"`
	CreatedAt   time.Time       `gorm:"index"`
}

type PaymentIntent struct {
	IntentID  string          `gorm:"primaryKey;size:64;not null"` // gateway assigned
	UserID    string          `gorm:"size:64;index;not null"`
	Purpose   string          `gorm:"size:16;index;not null"` // ORDER | WALLET_TOPUP
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency  string          `gorm:"size:8;not null"`
	Status    string          `gorm:"size:16;index;not null"` // CREATED, CONFIRMED, FAILED
	OrderID   string          `gorm:"size:64;index"`          // empty for wallet top-ups
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order snapshots everything at initiation time. Address fields are copied,
// not referenced, so later address edits cannot alter history.
type Order struct {
	OrderID      string          `gorm:"primaryKey;size:64;not null"`
	UserID       string          `gorm:"size:64;index;not null"`
	Status       string          `gorm:"size:16;index;not null"` // INITIATED, PAID
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Tax          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DeliveryFee  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency     string          `gorm:"size:8;not null"`
	UseWallet    bool            `gorm:"not null;default:false"`
	WalletAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CouponID     *uint

	IntentID         string `gorm:"size:64;index"`
	PaymentRef       string `gorm:"size:64"`
	PaymentSignature string `gorm:"size:128"`

	ShipName       string `gorm:"size:128"`
	ShipLine1      string `gorm:"size:255"`
	ShipLine2      string `gorm:"size:255"`
	ShipCity       string `gorm:"size:128"`
	ShipState      string `gorm:"size:128"`
	ShipPostalCode string `gorm:"size:16"`
	ShipCountry    string `gorm:"size:64"`
	ShipPhone      string `gorm:"size:32"`

	Notes             string                 `gorm:"size:512"`
	CustomizationMeta OrderCustomizationList `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OrderItem struct {
	ID            uint            `gorm:"primaryKey"`
	OrderID       string          `gorm:"size:64;index;not null"`
	ProductID     uint            `gorm:"index;not null"`
	Quantity      int             `gorm:"not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency      string          `gorm:"size:8;not null"`
	Customization CustomizationPayload `gorm:"type:text"`
	CreatedAt     time.Time
}

func (a *Address) Snapshot(o *Order) {
	o.ShipName = a.Name
	o.ShipLine1 = a.Line1
	o.ShipLine2 = a.Line2
	o.ShipCity = a.City
	o.ShipState = a.State
	o.ShipPostalCode = a.PostalCode
	o.ShipCountry = a.Country
	o.ShipPhone = a.Phone
}
