package config

import (
	"os"
	"strconv"
	"time"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Environment string
	DB          PostgresConfig
	Gemini      GeminiConfig
	Stripe      StripeConfig
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Name     string
}

type GeminiConfig struct {
	APIKey       string
	BackupAPIKey string
	ProModel     string
	FlashModel   string
	BaseURL      string
	Timeout      time.Duration
}

type StripeConfig struct {
	SecretKey             string
	WebhookSecret         string
	PriceIDPremiumMonthly string
	FrontendURL           string
}

const defaultGeminiTimeoutSeconds = 90

func LoadConfig() (*Config, error) {
	timeoutSeconds := defaultGeminiTimeoutSeconds
	if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSeconds = parsed
		}
	}

	proModel := os.Getenv("GEMINI_PRO_MODEL")
	if proModel == "" {
		proModel = "gemini-2.5-pro"
	}
	flashModel := os.Getenv("GEMINI_FLASH_MODEL")
	if flashModel == "" {
		flashModel = "gemini-2.5-flash"
	}

	cfg := &Config{
		Environment: os.Getenv("ENV"),
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
			Name:     os.Getenv("POSTGRES_DB"),
		},
		Gemini: GeminiConfig{
			APIKey:       os.Getenv("GEMINI_API_KEY"),
			BackupAPIKey: os.Getenv("GEMINI_BACKUP_API_KEY"),
			ProModel:     proModel,
			FlashModel:   flashModel,
			BaseURL:      os.Getenv("GEMINI_BASE_URL"),
			Timeout:      time.Duration(timeoutSeconds) * time.Second,
		},
		Stripe: StripeConfig{
			SecretKey:             os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:         os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDPremiumMonthly: os.Getenv("STRIPE_PRICE_ID_PREMIUM_MONTHLY"),
			FrontendURL:           os.Getenv("FRONTEND_URL"),
		},
	}

	return cfg, nil
}

// IsProduction controls whether internal error detail is withheld from
// client responses.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
