package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMemoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GIN_MODE", "release")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setMemoryEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 3, cfg.FreeIssueQuota)
	assert.Equal(t, "usd", cfg.PaymentCurrency)
	assert.Equal(t, 5*time.Minute, cfg.IssueCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.SweepLookback)
	assert.True(t, cfg.IsRelease())
	assert.Same(t, cfg, GetConfig())
}

func TestLoadConfig_Overrides(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("FREE_ISSUE_QUOTA", "5")
	t.Setenv("SWEEP_LOOKBACK", "2h")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.FreeIssueQuota)
	assert.Equal(t, 2*time.Hour, cfg.SweepLookback)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadConfig_FirestoreRequiresCredentials(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("STORE_DRIVER", "firestore")
	t.Setenv("FIREBASE_PROJECT_ID", "reportify-test")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_APPLICATION_CREDENTIALS")
}

func TestValidate(t *testing.T) {
	valid := Config{
		StoreDriver:         StoreDriverMemory,
		StripeSecretKey:     "sk",
		StripeWebhookSecret: "wh",
		FreeIssueQuota:      3,
		PremiumPriceCents:   1000,
		BoostPriceCents:     100,
		RateLimitRPS:        1,
		RateLimitBurst:      1,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "postgres" }},
		{"missing stripe key", func(c *Config) { c.StripeSecretKey = "" }},
		{"missing webhook secret", func(c *Config) { c.StripeWebhookSecret = "" }},
		{"negative quota", func(c *Config) { c.FreeIssueQuota = -1 }},
		{"zero boost price", func(c *Config) { c.BoostPriceCents = 0 }},
		{"zero rate", func(c *Config) { c.RateLimitRPS = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
