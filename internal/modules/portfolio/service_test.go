package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papertrade/terminal/internal/domain"
	"github.com/papertrade/terminal/internal/modules/accounts"
)

// stubPrices returns a fixed price per symbol and fails on missing entries
type stubPrices struct {
	prices map[string]float64
}

func (s *stubPrices) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, ok := s.prices[symbol]
	if !ok {
		return 0, errors.New("feed down")
	}
	return price, nil
}

func setupPortfolioDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE accounts (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			balance TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE positions (
			account_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			avg_price TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (account_id, symbol)
		);
	`)
	require.NoError(t, err)

	return db
}

func seedAccount(t *testing.T, db *sql.DB, id, balance string) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := accounts.NewAccountRepository(db, log)
	require.NoError(t, repo.Create(accounts.Account{
		ID:           id,
		Email:        id + "@example.com",
		Name:         "Test",
		PasswordHash: "x",
		Balance:      decimal.RequireFromString(balance),
		CreatedAt:    time.Now().UTC(),
	}))
}

func seedPosition(t *testing.T, db *sql.DB, accountID, symbol string, quantity int64, avgPrice string) {
	_, err := db.Exec(
		"INSERT INTO positions (account_id, symbol, quantity, avg_price, updated_at) VALUES (?, ?, ?, ?, ?)",
		accountID, symbol, quantity, avgPrice, time.Now().Unix(),
	)
	require.NoError(t, err)
}

func TestGetSummary(t *testing.T) {
	db := setupPortfolioDB(t)
	defer db.Close()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	seedAccount(t, db, "acct1", "497000")
	seedPosition(t, db, "acct1", "INFY", 10, "150")
	seedPosition(t, db, "acct1", "TCS", 5, "200")

	prices := &stubPrices{prices: map[string]float64{"INFY": 180, "TCS": 190}}
	service := NewService(NewPositionRepository(db, log), accounts.NewAccountRepository(db, log), prices, log)

	summary, err := service.GetSummary(context.Background(), "acct1")
	require.NoError(t, err)

	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(497000)))
	// Invested: 10*150 + 5*200 = 2500
	assert.True(t, summary.Invested.Equal(decimal.NewFromInt(2500)), "invested %s", summary.Invested)
	// Current: 10*180 + 5*190 = 2750
	assert.True(t, summary.CurrentValue.Equal(decimal.NewFromInt(2750)), "current %s", summary.CurrentValue)
	assert.True(t, summary.TotalPnL.Equal(decimal.NewFromInt(250)))
	assert.True(t, summary.TotalPnLPct.Equal(decimal.NewFromInt(10)), "pnl pct %s", summary.TotalPnLPct)
	assert.True(t, summary.AccountValue.Equal(decimal.NewFromInt(499750)))

	require.Len(t, summary.Positions, 2)
	for _, v := range summary.Positions {
		assert.False(t, v.PriceIsStale)
	}
}

func TestGetSummary_PriceFailureFallsBack(t *testing.T) {
	db := setupPortfolioDB(t)
	defer db.Close()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	seedAccount(t, db, "acct1", "497000")
	seedPosition(t, db, "acct1", "INFY", 10, "150")
	seedPosition(t, db, "acct1", "TCS", 5, "200")

	// Only INFY resolves; TCS must fall back to its average price
	prices := &stubPrices{prices: map[string]float64{"INFY": 180}}
	service := NewService(NewPositionRepository(db, log), accounts.NewAccountRepository(db, log), prices, log)

	summary, err := service.GetSummary(context.Background(), "acct1")
	require.NoError(t, err)
	require.Len(t, summary.Positions, 2)

	byName := map[string]PositionValuation{}
	for _, v := range summary.Positions {
		byName[v.Symbol] = v
	}

	infy := byName["INFY"]
	assert.False(t, infy.PriceIsStale)
	assert.True(t, infy.PnL.Equal(decimal.NewFromInt(300)))

	tcs := byName["TCS"]
	assert.True(t, tcs.PriceIsStale)
	assert.True(t, tcs.CurrentPrice.Equal(decimal.NewFromInt(200)))
	assert.True(t, tcs.CurrentValue.Equal(decimal.NewFromInt(1000)))
	assert.True(t, tcs.PnL.IsZero())
	assert.True(t, tcs.PnLPercent.IsZero())

	// Totals include the fallback valuation
	assert.True(t, summary.CurrentValue.Equal(decimal.NewFromInt(2800)), "current %s", summary.CurrentValue)
}

func TestGetSummary_EmptyPortfolio(t *testing.T) {
	db := setupPortfolioDB(t)
	defer db.Close()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	seedAccount(t, db, "acct1", "500000")

	service := NewService(NewPositionRepository(db, log), accounts.NewAccountRepository(db, log), &stubPrices{}, log)

	summary, err := service.GetSummary(context.Background(), "acct1")
	require.NoError(t, err)

	assert.Empty(t, summary.Positions)
	assert.True(t, summary.Invested.IsZero())
	assert.True(t, summary.TotalPnL.IsZero())
	assert.True(t, summary.TotalPnLPct.IsZero())
	assert.True(t, summary.AccountValue.Equal(decimal.NewFromInt(500000)))
}

func TestGetSummary_UnknownAccount(t *testing.T) {
	db := setupPortfolioDB(t)
	defer db.Close()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewService(NewPositionRepository(db, log), accounts.NewAccountRepository(db, log), &stubPrices{}, log)

	_, err := service.GetSummary(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
