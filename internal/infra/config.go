package infra

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Runtime environment: production, staging, development.
	Environment string `env:"APP_ENV" envDefault:"development"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"gatepay"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"gatepay"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"gatepay"`

	// JWT (user sessions)
	JWTSecret     string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTUserExpiry string `env:"JWT_USER_EXPIRY" envDefault:"24h"`

	// Payment session tokens
	PaymentTokenSecret   string `env:"PAYMENT_TOKEN_SECRET" envDefault:"change-me-in-production"`
	PaymentTokenExpiry   string `env:"PAYMENT_TOKEN_EXPIRY" envDefault:"10m"`
	PaymentTokenIssuer   string `env:"PAYMENT_TOKEN_ISSUER" envDefault:"gatepay"`
	PaymentTokenAudience string `env:"PAYMENT_TOKEN_AUDIENCE" envDefault:"gatepay-checkout"`
	PaymentURLHost       string `env:"PAYMENT_URL_HOST" envDefault:"pay.gatepay.dev"`

	// P2P settlement
	P2PFeeRate    string `env:"P2P_FEE_RATE" envDefault:"0.02"`
	P2PProviderID int64  `env:"P2P_PROVIDER_ID" envDefault:"1"`

	// Wallet transfer bounds, decimal strings.
	TransferFloor   string `env:"TRANSFER_FLOOR" envDefault:"1.00"`
	TransferCeiling string `env:"TRANSFER_CEILING" envDefault:"10000.00"`

	// Acquirer (BerryPay-compatible gateway)
	AcquirerAPIURL      string `env:"ACQUIRER_API_URL" envDefault:"https://api.berrypay.test/v1/payment"`
	AcquirerPublicKey   string `env:"ACQUIRER_PUBLIC_KEY"`
	AcquirerSecretKey   string `env:"ACQUIRER_SECRET_KEY"`
	AcquirerAPIKey      string `env:"ACQUIRER_API_KEY"`
	AcquirerCallbackURL string `env:"ACQUIRER_CALLBACK_URL" envDefault:"https://api.gatepay.dev/outside/callback"`

	// Identities that receive the fixed OTP code outside production.
	OTPWhitelist []string `env:"OTP_WHITELIST" envSeparator:","`

	// Proof image uploads
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	UploadBaseURL string `env:"UPLOAD_BASE_URL" envDefault:"https://cdn.gatepay.dev/proofs"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3100"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	for name, secret := range map[string]string{
		"JWT_SECRET":           c.JWTSecret,
		"PAYMENT_TOKEN_SECRET": c.PaymentTokenSecret,
	} {
		if secret == "change-me-in-production" {
			return fmt.Errorf("%s is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev", name)
		}
		if len(secret) < 32 {
			return fmt.Errorf("%s is too short (%d chars); minimum 32 characters required", name, len(secret))
		}
	}
	return nil
}

// IsProduction reports whether the runtime environment is production. The OTP
// delivery whitelist must never activate when this returns true.
func (c *Config) IsProduction() bool {
	return c.Environment != "development" && c.Environment != "staging"
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
