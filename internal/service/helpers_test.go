package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/client"
	"github.com/RISHIK92/gift-mama-backend/internal/dto"
	"github.com/RISHIK92/gift-mama-backend/internal/model"
	"github.com/RISHIK92/gift-mama-backend/internal/pricing"
	"github.com/RISHIK92/gift-mama-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testGatewaySecret = "test_gateway_secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, client.AutoMigrate(db))
	return db
}

// stubGateway stands in for the external payment gateway: intents get
// sequential ids and confirmations are signed with testGatewaySecret.
type stubGateway struct {
	intentSeq   int
	lastAmount  decimal.Decimal
	lastReceipt string
}

func (g *stubGateway) CreateIntent(_ context.Context, amount decimal.Decimal, currency, receipt string, _ map[string]string) (*client.CreateIntentResponse, error) {
	g.intentSeq++
	g.lastAmount = amount
	g.lastReceipt = receipt
	return &client.CreateIntentResponse{
		IntentID: fmt.Sprintf("intent_%d", g.intentSeq),
		Amount:   amount,
		Currency: currency,
	}, nil
}

func (g *stubGateway) VerifyConfirmation(intentID, paymentRef, suppliedSignature string) error {
	if !hmac.Equal([]byte(signFor(intentID, paymentRef)), []byte(suppliedSignature)) {
		return fmt.Errorf("signature mismatch for intent %s", intentID)
	}
	return nil
}

func signFor(intentID, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(testGatewaySecret))
	mac.Write([]byte(intentID + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

type testEnv struct {
	db      *gorm.DB
	gateway *stubGateway

	couponService   CouponService
	cartService     CartService
	walletService   WalletService
	checkoutService CheckoutService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	gateway := &stubGateway{}

	calculator := pricing.Calculator{
		TaxRate:        decimal.Zero,
		DeliveryPolicy: pricing.DeliveryPerItem,
	}

	productRepo := repository.NewProductRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	cartRepo := repository.NewCartRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	intentRepo := repository.NewIntentRepository(db)

	couponService := NewCouponService(couponRepo)
	cartService := NewCartService(db, cartRepo, productRepo, couponRepo, couponService, calculator)
	walletService := NewWalletService(db, walletRepo, intentRepo, gateway, "INR")
	checkoutService := NewCheckoutService(
		db, gateway, cartService, walletService,
		cartRepo, couponRepo, walletRepo, addressRepo,
		orderRepo, intentRepo, productRepo,
		"INR",
	)

	return &testEnv{
		db:              db,
		gateway:         gateway,
		couponService:   couponService,
		cartService:     cartService,
		walletService:   walletService,
		checkoutService: checkoutService,
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(s), Valid: true}
}

func intPtr(n int) *int { return &n }

func seedProduct(t *testing.T, db *gorm.DB, name string, price decimal.Decimal, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: price, Stock: stock}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedCoupon(t *testing.T, db *gorm.DB, coupon *model.Coupon) *model.Coupon {
	t.Helper()
	if coupon.StartDate.IsZero() {
		coupon.StartDate = time.Now().Add(-time.Hour)
	}
	if coupon.EndDate.IsZero() {
		coupon.EndDate = time.Now().Add(time.Hour)
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

func inlineAddress() *dto.AddressRequest {
	return &dto.AddressRequest{
		Name:       "Asha Rao",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
	}
}
