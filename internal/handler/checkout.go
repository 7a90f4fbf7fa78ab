package handler

import (
	"net/http"

	"github.com/RISHIK92/gift-mama-backend/internal/dto"
	"github.com/RISHIK92/gift-mama-backend/internal/middleware"
	"github.com/RISHIK92/gift-mama-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

func (h *CheckoutHandler) Initiate(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.InitiateCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	resp, err := h.checkoutService.Initiate(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) Settle(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SettleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	resp, err := h.checkoutService.Settle(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	resp, err := h.checkoutService.Order(ctx, middleware.UserID(c), c.Param("orderID"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}
