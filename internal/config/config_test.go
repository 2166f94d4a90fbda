package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:           "8081",
		SQLiteDBPath:   "./fintrack-test.db",
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		TokenTTL:       24 * time.Hour,
		AdvisorTimeout: 30 * time.Second,
		SyncBackoff:    time.Second,
		SyncMaxTry:     3,
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.AdvisorTimeout)
	assert.False(t, cfg.WelcomeIncomeEnabled)
	assert.Empty(t, cfg.AMQPURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("EXPENSE_CATEGORIES", "Rent, Groceries ,Fun")
	t.Setenv("WELCOME_INCOME_ENABLED", "true")
	t.Setenv("WELCOME_INCOME_CENTS", "5000")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"Rent", "Groceries", "Fun"}, cfg.ExpenseCategories)
	assert.True(t, cfg.WelcomeIncomeEnabled)
	assert.Equal(t, int64(5000), cfg.WelcomeIncomeCents)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.JWTSecret = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("short secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.JWTSecret = "short"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Port = "not-a-port"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad amqp scheme", func(t *testing.T) {
		cfg := validConfig()
		cfg.AMQPURL = "http://localhost:5672"
		cfg.AMQPExchange = "fintrack"
		cfg.AMQPQueue = "q"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheme")
	})

	t.Run("collects multiple failures", func(t *testing.T) {
		cfg := validConfig()
		cfg.Port = "0"
		cfg.JWTSecret = ""
		cfg.SyncMaxTry = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port")
		assert.Contains(t, err.Error(), "JWT_SECRET")
		assert.Contains(t, err.Error(), "sync max attempts")
	})
}
