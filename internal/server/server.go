package server

import (
	"log/slog"
	"net/http"

	"github.com/RISHIK92/gift-mama-backend/internal/apperr"
	"github.com/RISHIK92/gift-mama-backend/internal/handler"
	appmiddleware "github.com/RISHIK92/gift-mama-backend/internal/middleware"
	"github.com/RISHIK92/gift-mama-backend/internal/repository"
	"github.com/RISHIK92/gift-mama-backend/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo            *echo.Echo
	jwtSecret       string
	cartHandler     *handler.CartHandler
	walletHandler   *handler.WalletHandler
	checkoutHandler *handler.CheckoutHandler
	productHandler  *handler.ProductHandler
}

func NewServer(
	jwtSecret string,
	development bool,
	cartService service.CartService,
	walletService service.WalletService,
	checkoutService service.CheckoutService,
	productRepo repository.ProductRepository,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = newHTTPErrorHandler(development)

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		jwtSecret:       jwtSecret,
		cartHandler:     handler.NewCartHandler(cartService),
		walletHandler:   handler.NewWalletHandler(walletService),
		checkoutHandler: handler.NewCheckoutHandler(checkoutService),
		productHandler:  handler.NewProductHandler(productRepo),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.GET("/products", s.productHandler.ListProducts)
	api.GET("/products/:productID", s.productHandler.GetProduct)

	auth := appmiddleware.AuthMiddleware(s.jwtSecret)

	// -------- cart --------
	cart := api.Group("/cart", auth)
	cart.GET("", s.cartHandler.GetCart)
	cart.DELETE("", s.cartHandler.ClearCart)
	cart.POST("/items", s.cartHandler.AddItem)
	cart.PUT("/items/:itemID", s.cartHandler.UpdateItem)
	cart.DELETE("/items/:itemID", s.cartHandler.RemoveItem)
	cart.POST("/items/:itemID/customization", s.cartHandler.LinkCustomization)
	cart.GET("/coupon", s.cartHandler.GetCoupon)
	cart.POST("/coupon", s.cartHandler.ApplyCoupon)
	cart.DELETE("/coupon", s.cartHandler.RemoveCoupon)

	// -------- wallet --------
	wallet := api.Group("/wallet", auth)
	wallet.GET("/balance", s.walletHandler.GetBalance)
	wallet.GET("/transactions", s.walletHandler.GetTransactions)
	wallet.POST("/topup", s.walletHandler.InitiateTopUp)
	wallet.POST("/topup/verify", s.walletHandler.VerifyTopUp)

	// -------- checkout / settlement --------
	checkout := api.Group("/checkout", auth)
	checkout.POST("", s.checkoutHandler.Initiate)
	checkout.POST("/settle", s.checkoutHandler.Settle)
	checkout.GET("/orders/:orderID", s.checkoutHandler.GetOrder)
}

// newHTTPErrorHandler maps the application error taxonomy onto stable
// {code, message} responses. Causes are only echoed back in development.
func newHTTPErrorHandler(development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if appErr, ok := apperr.As(err); ok {
			body := map[string]interface{}{
				"code":    appErr.Code,
				"message": appErr.Message,
			}
			if appErr.Reason != "" {
				body["reason"] = appErr.Reason
			}
			if development {
				if cause := appErr.Unwrap(); cause != nil {
					body["detail"] = cause.Error()
				}
			}
			if appErr.Code == apperr.CodeInternal {
				slog.Error("request failed", "path", c.Path(), "error", err)
			}
			_ = c.JSON(appErr.Status, body)
			return
		}

		if httpErr, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(httpErr.Code, map[string]interface{}{
				"code":    apperr.CodeValidation,
				"message": httpErr.Message,
			})
			return
		}

		slog.Error("unhandled error", "path", c.Path(), "error", err)
		body := map[string]interface{}{
			"code":    apperr.CodeInternal,
			"message": "internal server error",
		}
		if development {
			body["detail"] = err.Error()
		}
		_ = c.JSON(http.StatusInternalServerError, body)
	}
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
