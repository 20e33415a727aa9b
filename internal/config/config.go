package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:5173"`
	SeedCatalog bool   `env:"SEED_CATALOG" envDefault:"false"`

	Database Database `envPrefix:"DATABASE_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Order    Order    `envPrefix:"ORDER_"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"` // sqlite | mysql
	URL    string `env:"URL" envDefault:"storefront.db"`
}

// Redis caching is disabled when Addr is empty.
type Redis struct {
	Addr       string        `env:"ADDR"`
	Password   string        `env:"PASSWORD"`
	DB         int           `env:"DB" envDefault:"0"`
	ProductTTL time.Duration `env:"PRODUCT_TTL" envDefault:"10m"`
	CartTTL    time.Duration `env:"CART_TTL" envDefault:"15m"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

type Stripe struct {
	SecretKey     string        `env:"SECRET_KEY"`
	WebhookSecret string        `env:"WEBHOOK_SECRET"`
	Currency      string        `env:"CURRENCY" envDefault:"inr"`
	APIBaseURL    string        `env:"API_BASE_URL"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"15s"`

	// circuit breaker around outbound Stripe calls
	BreakerMaxFailures uint32        `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerOpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
}

type Order struct {
	TaxPercent int64 `env:"TAX_PERCENT" envDefault:"2"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host           string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"20s"`
	AllowedOrigins []string      `env:"HTTP_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
}
