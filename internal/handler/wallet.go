package handler

import (
	"net/http"
	"strconv"

	"github.com/RISHIK92/gift-mama-backend/internal/dto"
	"github.com/RISHIK92/gift-mama-backend/internal/middleware"
	"github.com/RISHIK92/gift-mama-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type WalletHandler struct {
	walletService service.WalletService
}

func NewWalletHandler(walletService service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

func (h *WalletHandler) GetBalance(c echo.Context) error {
	ctx := c.Request().Context()

	balance, err := h.walletService.Balance(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, balance)
}

func (h *WalletHandler) GetTransactions(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	txns, err := h.walletService.Transactions(ctx, middleware.UserID(c), page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, txns)
}

func (h *WalletHandler) InitiateTopUp(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.TopUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	resp, err := h.walletService.InitiateTopUp(ctx, middleware.UserID(c), req.Amount)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *WalletHandler) VerifyTopUp(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.VerifyTopUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	resp, err := h.walletService.VerifyTopUp(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}
