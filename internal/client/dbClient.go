package client

import (
	"log"
	"strings"
	"time"

	"github.com/RISHIK92/gift-mama-backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func InitDBClient(databaseURL string) *gorm.DB {
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseURL, "file:") || databaseURL == ":memory:" {
		dialector = sqlite.Open(databaseURL)
	} else {
		dialector = mysql.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal(err)
	}

	// Connection pool (important for webhooks)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	return db
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Address{},
		&model.Cart{},
		&model.CartItem{},
		&model.Coupon{},
		&model.CouponUsage{},
		&model.Wallet{},
		&model.WalletTransaction{},
		&model.PaymentIntent{},
		&model.Order{},
		&model.OrderItem{},
	)
}
