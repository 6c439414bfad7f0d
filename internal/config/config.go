package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreDriverFirestore = "firestore"
	StoreDriverMemory    = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	ClientURL   string `mapstructure:"CLIENT_URL"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	PaymentCurrency     string `mapstructure:"PAYMENT_CURRENCY"`
	PremiumPriceCents   int64  `mapstructure:"PREMIUM_PRICE_CENTS"`
	BoostPriceCents     int64  `mapstructure:"BOOST_PRICE_CENTS"`

	FreeIssueQuota int `mapstructure:"FREE_ISSUE_QUOTA"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"` // empty disables the issue cache
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	IssueCacheTTL time.Duration `mapstructure:"ISSUE_CACHE_TTL"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"` // empty disables event publishing
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	SweepSchedule string        `mapstructure:"SWEEP_SCHEDULE"` // cron spec, empty disables the sweeper
	SweepLookback time.Duration `mapstructure:"SWEEP_LOOKBACK"`
}

var appConfig *Config

var envKeys = []string{
	"PORT", "GIN_MODE", "CLIENT_URL", "STORE_DRIVER",
	"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "PAYMENT_CURRENCY", "PREMIUM_PRICE_CENTS", "BOOST_PRICE_CENTS",
	"FREE_ISSUE_QUOTA",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "ISSUE_CACHE_TTL",
	"RABBITMQ_URL", "RABBITMQ_EXCHANGE",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"SWEEP_SCHEDULE", "SWEEP_LOOKBACK",
}

// LoadConfig loads configuration from environment variables using Viper.
// Outside release mode a local .env file is loaded first when present, and
// CONFIG_FILE may point at an additional file in any format viper reads.
func LoadConfig() (*Config, error) {
	if !strings.EqualFold(os.Getenv("GIN_MODE"), "release") {
		_ = godotenv.Load() // .env is optional
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.New("failed to read config file: " + err.Error())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfig = &cfg
	return appConfig, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("STORE_DRIVER", StoreDriverFirestore)
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("PREMIUM_PRICE_CENTS", 1000)
	v.SetDefault("BOOST_PRICE_CENTS", 100)
	v.SetDefault("FREE_ISSUE_QUOTA", 3)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ISSUE_CACHE_TTL", "5m")
	v.SetDefault("RABBITMQ_EXCHANGE", "reportify.events")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("SWEEP_SCHEDULE", "@every 5m")
	v.SetDefault("SWEEP_LOOKBACK", "24h")
}

// Validate checks that the settings required by the enabled drivers are present.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
		if c.GoogleApplicationCredentials == "" && c.FirebaseServiceAccountJSONBase64 == "" {
			return errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
		}
	case StoreDriverMemory:
	default:
		return errors.New("STORE_DRIVER must be 'firestore' or 'memory'")
	}

	if c.StripeSecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.FreeIssueQuota < 0 {
		return errors.New("FREE_ISSUE_QUOTA cannot be negative")
	}
	if c.PremiumPriceCents <= 0 || c.BoostPriceCents <= 0 {
		return errors.New("PREMIUM_PRICE_CENTS and BOOST_PRICE_CENTS must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// IsRelease reports whether gin runs in release mode.
func (c *Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}

// GetConfig returns the loaded application configuration.
// It will panic if LoadConfig has not been called successfully.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded; call LoadConfig first")
	}
	return appConfig
}
