package config

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("TRADER_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9000")
	t.Setenv("STARTING_BALANCE", "250000")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.True(t, cfg.StartingBalance.Equal(decimal.NewFromInt(250000)))
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, ".NS", cfg.MarketSuffix)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRADER_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.StartingBalance.Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, "https://query1.finance.yahoo.com", cfg.QuoteBaseURL)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("TRADER_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_NonPositiveBalance(t *testing.T) {
	cfg := &Config{
		JWTSecret:       "x",
		StartingBalance: decimal.Zero,
	}
	assert.Error(t, cfg.Validate())
}
