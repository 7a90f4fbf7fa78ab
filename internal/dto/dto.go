package dto

import (
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/model"
	"github.com/RISHIK92/gift-mama-backend/internal/pricing"

	"github.com/shopspring/decimal"
)

// -------- cart --------

type AddItemRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type LinkCustomizationRequest struct {
	TemplateID int64                       `json:"templateId"`
	Areas      []model.CustomizationArea   `json:"areas"`
	ImageURLs  []string                    `json:"imageUrls"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

type CartItemProduct struct {
	ID              uint                `json:"id"`
	Name            string              `json:"name"`
	Price           decimal.Decimal     `json:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice"`
	DeliveryFee     decimal.Decimal     `json:"deliveryFee"`
	Stock           int                 `json:"stock"`
	IsCustomizable  bool                `json:"isCustomizable"`
}

type CartItemResponse struct {
	ID             uint                       `json:"id"`
	Quantity       int                        `json:"quantity"`
	Product        CartItemProduct            `json:"product"`
	FlashSalePrice decimal.NullDecimal        `json:"flashSalePrice"`
	UnitPrice      decimal.Decimal            `json:"unitPrice"`
	Customization  model.CustomizationPayload `json:"customization,omitempty"`
}

type CouponResponse struct {
	Code              string              `json:"code"`
	Description       string              `json:"description,omitempty"`
	DiscountType      string              `json:"discountType"`
	DiscountValue     decimal.Decimal     `json:"discountValue"`
	MinPurchaseAmount decimal.NullDecimal `json:"minPurchaseAmount"`
	MaxDiscountAmount decimal.NullDecimal `json:"maxDiscountAmount"`
	DiscountAmount    decimal.Decimal     `json:"discountAmount"`
}

type CartResponse struct {
	Items         []CartItemResponse `json:"items"`
	Summary       pricing.Summary    `json:"summary"`
	AppliedCoupon *CouponResponse    `json:"appliedCoupon,omitempty"`
}

// -------- wallet --------

type TransactionResponse struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type WalletBalanceResponse struct {
	Balance      decimal.Decimal       `json:"balance"`
	Transactions []TransactionResponse `json:"transactions"`
}

type Pagination struct {
	CurrentPage       int   `json:"currentPage"`
	TotalPages        int   `json:"totalPages"`
	TotalTransactions int64 `json:"totalTransactions"`
}

type TransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   Pagination            `json:"pagination"`
}

type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type TopUpResponse struct {
	IntentID string          `json:"intentId"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type VerifyTopUpRequest struct {
	IntentID   string `json:"intentId"`
	PaymentRef string `json:"paymentRef"`
	Signature  string `json:"signature"`
}

type TopUpVerifyResponse struct {
	Status     string          `json:"status"`
	NewBalance decimal.Decimal `json:"newBalance"`
}

// -------- checkout --------

type AddressRequest struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

type InitiateCheckoutRequest struct {
	AddressID    *uint           `json:"addressId"`
	Address      *AddressRequest `json:"address"`
	UseWallet    bool            `json:"useWallet"`
	WalletAmount decimal.Decimal `json:"walletAmount"`
	Notes        string          `json:"notes"`
}

type InitiateCheckoutResponse struct {
	OrderID   string          `json:"orderId"`
	IntentID  string          `json:"intentId"`
	AmountDue decimal.Decimal `json:"amountDue"`
	Currency  string          `json:"currency"`
}

type SettleRequest struct {
	OrderID    string `json:"orderId"`
	IntentID   string `json:"intentId"`
	PaymentRef string `json:"paymentRef"`
	Signature  string `json:"signature"`
}

type SettleResponse struct {
	OrderID      string          `json:"orderId"`
	Status       string          `json:"status"`
	PaymentRef   string          `json:"paymentRef"`
	Amount       decimal.Decimal `json:"amount"`
	WalletAmount decimal.Decimal `json:"walletAmount"`
}

type OrderItemResponse struct {
	ProductID     uint                       `json:"productId"`
	Quantity      int                        `json:"quantity"`
	UnitPrice     decimal.Decimal            `json:"unitPrice"`
	Currency      string                     `json:"currency"`
	Customization model.CustomizationPayload `json:"customization,omitempty"`
}

type OrderResponse struct {
	OrderID      string              `json:"orderId"`
	Status       string              `json:"status"`
	Subtotal     decimal.Decimal     `json:"subtotal"`
	Discount     decimal.Decimal     `json:"discount"`
	Tax          decimal.Decimal     `json:"tax"`
	DeliveryFee  decimal.Decimal     `json:"deliveryFee"`
	Amount       decimal.Decimal     `json:"amount"`
	Currency     string              `json:"currency"`
	UseWallet    bool                `json:"useWallet"`
	WalletAmount decimal.Decimal     `json:"walletAmount"`
	Items        []OrderItemResponse `json:"items"`
	CreatedAt    time.Time           `json:"createdAt"`
}
