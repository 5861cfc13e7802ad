package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Database  Database  `envPrefix:"DATABASE_"`
	Auth      Auth      `envPrefix:"AUTH_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
	Sweeper   Sweeper   `envPrefix:"SWEEPER_"`
	Kafka     Kafka     `envPrefix:"KAFKA_"`
	Redis     Redis     `envPrefix:"REDIS_"`

	Flutterwave Flutterwave `envPrefix:"FLUTTERWAVE_"`
	Paypal      Paypal      `envPrefix:"PAYPAL_"`
	BrainTree   Braintree   `envPrefix:"BRAINTREE_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"`
	URL             string        `env:"URL" envDefault:"dinedash.db"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
	SeedCatalog     bool          `env:"SEED_CATALOG" envDefault:"false"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me"`
}

type RateLimit struct {
	RPS   float64       `env:"RPS" envDefault:"5"`
	Burst int           `env:"BURST" envDefault:"10"`
	TTL   time.Duration `env:"TTL" envDefault:"3m"`
}

// Sweeper controls the housekeeping loop that fails payments stuck in pending.
type Sweeper struct {
	Enabled    bool          `env:"ENABLED" envDefault:"true"`
	Interval   time.Duration `env:"INTERVAL" envDefault:"10m"`
	PendingTTL time.Duration `env:"PENDING_TTL" envDefault:"24h"`
	BatchSize  int           `env:"BATCH_SIZE" envDefault:"100"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"order-topic"`
}

type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TRACKING_TTL" envDefault:"30s"`
}

type Flutterwave struct {
	BaseApiURL  string `env:"BASE_API_URL" envDefault:"https://api.flutterwave.com"`
	SecretKey   string `env:"SECRET_KEY"`
	Currency    string `env:"CURRENCY" envDefault:"GHS"`
	RedirectURL string `env:"REDIRECT_URL"`
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Currency     string `env:"CURRENCY" envDefault:"USD"`
}

type Braintree struct {
	Environment string `env:"ENVIRONMENT" envDefault:"sandbox"`
	MerchantID  string `env:"MERCHANT_ID"`
	PublicKey   string `env:"PUBLIC_KEY"`
	PrivateKey  string `env:"PRIVATE_KEY"`
}

func (f Flutterwave) Enabled() bool { return f.SecretKey != "" }

func (p Paypal) Enabled() bool { return p.ClientID != "" && p.ClientSecret != "" }

func (b Braintree) Enabled() bool { return b.MerchantID != "" && b.PrivateKey != "" }

// Load parses the process environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "mysql" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return cfg, nil
}

func (c *Config) Address() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}
