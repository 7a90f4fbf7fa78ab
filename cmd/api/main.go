package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/RISHIK92/gift-mama-backend/internal/client"
	"github.com/RISHIK92/gift-mama-backend/internal/config"
	"github.com/RISHIK92/gift-mama-backend/internal/pricing"
	"github.com/RISHIK92/gift-mama-backend/internal/repository"
	"github.com/RISHIK92/gift-mama-backend/internal/server"
	"github.com/RISHIK92/gift-mama-backend/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	db := client.InitDBClient(cfg.DatabaseURL)
	gatewayClient := client.NewGatewayClient(&cfg.Gateway)

	calculator := pricing.Calculator{
		TaxRate:         cfg.Pricing.TaxRate,
		DeliveryPolicy:  pricing.DeliveryFeePolicy(cfg.Pricing.DeliveryFeePolicy),
		FlatDeliveryFee: cfg.Pricing.FlatDeliveryFee,
	}

	productRepo := repository.NewProductRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	cartRepo := repository.NewCartRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	intentRepo := repository.NewIntentRepository(db)

	couponService := service.NewCouponService(couponRepo)
	cartService := service.NewCartService(db, cartRepo, productRepo, couponRepo, couponService, calculator)
	walletService := service.NewWalletService(db, walletRepo, intentRepo, gatewayClient, cfg.Pricing.Currency)
	checkoutService := service.NewCheckoutService(
		db, gatewayClient, cartService, walletService,
		cartRepo, couponRepo, walletRepo, addressRepo,
		orderRepo, intentRepo, productRepo,
		cfg.Pricing.Currency,
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(
		cfg.JWTSecret,
		cfg.Environment.IsDevelopment(),
		cartService,
		walletService,
		checkoutService,
		productRepo,
	)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	if err := srv.Shutdown(); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}

func setupLogger(cfg config.Log) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
