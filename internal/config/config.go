package config

import "github.com/shopspring/decimal"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`

	Gateway Gateway `envPrefix:"GATEWAY_"`
	Pricing Pricing `envPrefix:"PRICING_"`
}

// Gateway holds the external payment gateway credentials. KeySecret is
// also the shared secret confirmations are signed with.
type Gateway struct {
	BaseApiURL string `env:"BASE_API_URL"`
	KeyID      string `env:"KEY_ID"`
	KeySecret  string `env:"KEY_SECRET"`
}

// Pricing is the one canonical pricing policy: tax rate and delivery fee
// strategy are configured here, never per endpoint.
type Pricing struct {
	TaxRate           decimal.Decimal `env:"TAX_RATE" envDefault:"0"`
	DeliveryFeePolicy string          `env:"DELIVERY_FEE_POLICY" envDefault:"per_item"` // per_item | flat
	FlatDeliveryFee   decimal.Decimal `env:"FLAT_DELIVERY_FEE" envDefault:"0"`
	Currency          string          `env:"CURRENCY" envDefault:"INR"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

func (e Environment) IsDevelopment() bool {
	return e.Name == "development"
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
