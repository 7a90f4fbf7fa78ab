package handler

import (
	"net/http"
	"strconv"

	"github.com/RISHIK92/gift-mama-backend/internal/dto"
	"github.com/RISHIK92/gift-mama-backend/internal/middleware"
	"github.com/RISHIK92/gift-mama-backend/internal/model"
	"github.com/RISHIK92/gift-mama-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

func itemIDFromPath(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("itemID"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	return uint(id), nil
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	cart, err := h.cartService.GetCart(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.cartService.AddItem(ctx, middleware.UserID(c), req.ProductID, req.Quantity); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]string{"message": "item added to cart"})
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := itemIDFromPath(c)
	if err != nil {
		return err
	}

	var req dto.UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.cartService.UpdateItemQuantity(ctx, middleware.UserID(c), itemID, req.Quantity); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "cart item updated"})
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := itemIDFromPath(c)
	if err != nil {
		return err
	}

	if err := h.cartService.RemoveItem(ctx, middleware.UserID(c), itemID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "item removed from cart"})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.cartService.Clear(ctx, middleware.UserID(c)); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "cart cleared"})
}

func (h *CartHandler) LinkCustomization(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := itemIDFromPath(c)
	if err != nil {
		return err
	}

	var req dto.LinkCustomizationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	payload := model.CustomizationPayload{
		TemplateID: req.TemplateID,
		Areas:      req.Areas,
		ImageURLs:  req.ImageURLs,
	}
	if err := h.cartService.LinkCustomization(ctx, middleware.UserID(c), itemID, payload); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "customization linked"})
}

func (h *CartHandler) GetCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	coupon, err := h.cartService.AppliedCoupon(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, coupon)
}

func (h *CartHandler) ApplyCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ApplyCouponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	coupon, err := h.cartService.ApplyCoupon(ctx, middleware.UserID(c), req.Code)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "coupon applied successfully",
		"coupon":  coupon,
	})
}

func (h *CartHandler) RemoveCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.cartService.RemoveCoupon(ctx, middleware.UserID(c)); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "coupon removed successfully"})
}
