package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Paystack   PaystackConfig
	Credits    CreditsConfig
	Fal        FalConfig
	Cloudinary CloudinaryConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	BaseURL     string // public base URL of this service, no trailing slash
	ReadTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// PaystackConfig holds the secret key used both as the HMAC key for
// webhook signatures and as the bearer token for the verify REST call.
type PaystackConfig struct {
	BaseURL   string
	SecretKey string
}

type CreditsConfig struct {
	// PricePerCredit is the price of one credit in major currency units (KSh).
	PricePerCredit int64
	// ApplySecret guards the privileged apply-credits endpoint. Distinct
	// from the Paystack key.
	ApplySecret string
	// ApplyURL, when set, routes webhook credit application to a remote
	// ledger service instead of the local database.
	ApplyURL string
	// ApplyTimeout bounds each delegate call from the webhook receiver.
	ApplyTimeout time.Duration
}

type FalConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Load builds the Config from process environment (.env honored when present)
// and validates required secrets. An error here must abort startup: running
// the webhook without its secrets would accept forged events.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{
		Server: ServerConfig{
			Port:        envOr("PORT", "10000"),
			Env:         envOr("ENV", "development"),
			BaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("SITE_BASE_URL")), "/"),
			ReadTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envOr("DATABASE_DSN", "calevid:calevid@tcp(localhost:3306)/calevid?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  envOr("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: envOr("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "calevid",
		},
		Paystack: PaystackConfig{
			BaseURL:   envOr("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			SecretKey: strings.TrimSpace(os.Getenv("PAYSTACK_SECRET_KEY")),
		},
		Credits: CreditsConfig{
			PricePerCredit: envInt64("CREDIT_PRICE", 150),
			ApplySecret:    strings.TrimSpace(os.Getenv("CREDIT_APPLY_SECRET")),
			ApplyURL:       strings.TrimSpace(os.Getenv("CREDIT_APPLY_URL")),
			ApplyTimeout:   15 * time.Second,
		},
		Fal: FalConfig{
			BaseURL: envOr("FAL_BASE_URL", "https://queue.fal.run"),
			APIKey:  strings.TrimSpace(os.Getenv("FAL_KEY")),
			Model:   envOr("FAL_MODEL", "fal-ai/ovi"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails closed when a required secret is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.Paystack.SecretKey == "" {
		missing = append(missing, "PAYSTACK_SECRET_KEY")
	}
	if c.Credits.ApplySecret == "" {
		missing = append(missing, "CREDIT_APPLY_SECRET")
	}
	if c.Fal.APIKey == "" {
		missing = append(missing, "FAL_KEY")
	}
	if c.Server.BaseURL == "" {
		missing = append(missing, "SITE_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment: %s", strings.Join(missing, ", "))
	}
	if c.Credits.PricePerCredit <= 0 {
		return fmt.Errorf("CREDIT_PRICE must be positive, got %d", c.Credits.PricePerCredit)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
