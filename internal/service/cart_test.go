package service

import (
	"context"
	"testing"
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/apperr"
	"github.com/RISHIK92/gift-mama-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemIncrementsExistingLine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Photo Mug", dec("299"), 10)

	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 1))
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))

	resp, err := env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity)
	assert.True(t, resp.Summary.Subtotal.Equal(dec("897")))
}

func TestAddItemUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	err := env.cartService.AddItem(context.Background(), "user-1", 999, 1)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestUpdateItemQuantityBoundedByStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("450"), 3)

	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 1))

	resp, err := env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	itemID := resp.Items[0].ID

	err = env.cartService.UpdateItemQuantity(ctx, "user-1", itemID, 5)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)

	require.NoError(t, env.cartService.UpdateItemQuantity(ctx, "user-1", itemID, 3))
	resp, err = env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Items[0].Quantity)
}

func TestUpdateItemOfAnotherUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("450"), 3)

	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 1))
	resp, err := env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)

	err = env.cartService.UpdateItemQuantity(ctx, "user-2", resp.Items[0].ID, 2)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestRemoveItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Cushion", dec("350"), 10)

	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))
	resp, err := env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, env.cartService.RemoveItem(ctx, "user-1", resp.Items[0].ID))

	resp, err = env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Summary.Total.IsZero())
}

func TestLinkCustomization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Photo Mug", dec("299"), 10)

	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 1))
	resp, err := env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	itemID := resp.Items[0].ID

	err = env.cartService.LinkCustomization(ctx, "user-1", itemID, model.CustomizationPayload{})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)

	payload := model.CustomizationPayload{
		TemplateID: 42,
		Areas: []model.CustomizationArea{
			{AreaID: 1, ImageURL: "https://cdn.example.com/u/1.png", Scale: 1.2},
			{AreaID: 2, ImageURL: "https://cdn.example.com/u/1.png"},
		},
		ImageURLs: []string{"https://cdn.example.com/u/2.png"},
	}
	require.NoError(t, env.cartService.LinkCustomization(ctx, "user-1", itemID, payload))

	resp, err = env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	got := resp.Items[0].Customization
	assert.Equal(t, int64(42), got.TemplateID)
	// duplicate area URL collapses into one entry
	assert.Equal(t, []string{"https://cdn.example.com/u/1.png", "https://cdn.example.com/u/2.png"}, got.ImageURLs)
}

func TestApplyAndRemoveCoupon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("500"), 10)
	seedCoupon(t, env.db, &model.Coupon{
		Code:          "FLAT100",
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: dec("100"),
		IsActive:      true,
	})

	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))

	coupon, err := env.cartService.ApplyCoupon(ctx, "user-1", "FLAT100")
	require.NoError(t, err)
	assert.True(t, coupon.DiscountAmount.Equal(dec("100")))

	resp, err := env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, resp.AppliedCoupon)
	assert.True(t, resp.Summary.Discount.Equal(dec("100")))
	assert.True(t, resp.Summary.Total.Equal(dec("900")))

	// applying a coupon never writes a redemption row
	var usages int64
	require.NoError(t, env.db.Model(&model.CouponUsage{}).Count(&usages).Error)
	assert.Zero(t, usages)

	require.NoError(t, env.cartService.RemoveCoupon(ctx, "user-1"))
	resp, err = env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, resp.AppliedCoupon)
	assert.True(t, resp.Summary.Discount.IsZero())
}

func TestApplyCouponEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	seedCoupon(t, env.db, &model.Coupon{
		Code:          "FLAT100",
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: dec("100"),
		IsActive:      true,
	})

	_, err := env.cartService.ApplyCoupon(context.Background(), "user-1", "FLAT100")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
}

func TestSnapshotDetachesIneligibleCoupon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	expensive := seedProduct(t, env.db, "Hamper", dec("800"), 10)
	cheap := seedProduct(t, env.db, "Keychain", dec("99"), 10)
	seedCoupon(t, env.db, &model.Coupon{
		Code:              "BIG100",
		DiscountType:      model.DiscountTypeFixed,
		DiscountValue:     dec("100"),
		MinPurchaseAmount: nullDec("500"),
		IsActive:          true,
	})

	require.NoError(t, env.cartService.AddItem(ctx, "user-1", expensive.ID, 1))
	require.NoError(t, env.cartService.AddItem(ctx, "user-1", cheap.ID, 1))

	_, err := env.cartService.ApplyCoupon(ctx, "user-1", "BIG100")
	require.NoError(t, err)

	// dropping the expensive item takes the cart below the coupon minimum
	resp, err := env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	for _, item := range resp.Items {
		if item.Product.ID == expensive.ID {
			require.NoError(t, env.cartService.RemoveItem(ctx, "user-1", item.ID))
		}
	}

	snapshot, err := env.cartService.Snapshot(ctx, "user-1", time.Now())
	require.NoError(t, err)
	assert.Nil(t, snapshot.Coupon)
	assert.True(t, snapshot.Summary.Discount.IsZero())

	var cart model.Cart
	require.NoError(t, env.db.Where("user_id = ?", "user-1").First(&cart).Error)
	assert.Nil(t, cart.AppliedCouponID)
	assert.True(t, cart.DiscountAmount.IsZero())
}

func TestSnapshotPrefersFlashSalePrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Poster", dec("400"), 10)
	require.NoError(t, env.db.Model(&model.Product{}).
		Where("id = ?", product.ID).
		Update("discounted_price", dec("350")).Error)

	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 1))

	resp, err := env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, resp.Items[0].UnitPrice.Equal(dec("350")))

	ends := time.Now().Add(time.Hour)
	require.NoError(t, env.db.Model(&model.CartItem{}).
		Where("id = ?", resp.Items[0].ID).
		Updates(map[string]interface{}{"flash_sale_price": dec("199"), "flash_sale_ends_at": ends}).Error)

	resp, err = env.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, resp.Items[0].UnitPrice.Equal(dec("199")))
	assert.True(t, resp.Summary.Subtotal.Equal(dec("199")))
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env.db, "Frame", dec("450"), 10)

	require.NoError(t, env.cartService.AddItem(ctx, "user-1", product.ID, 2))
	require.NoError(t, env.cartService.Clear(ctx, "user-1"))

	snapshot, err := env.cartService.Snapshot(ctx, "user-1", time.Now())
	require.NoError(t, err)
	assert.True(t, snapshot.IsEmpty())

	// clearing a user with no cart is a no-op
	require.NoError(t, env.cartService.Clear(ctx, "user-2"))
}
