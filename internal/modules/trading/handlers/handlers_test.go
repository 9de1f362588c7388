package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papertrade/terminal/internal/clients/yahoo"
	"github.com/papertrade/terminal/internal/modules/accounts"
	"github.com/papertrade/terminal/internal/modules/portfolio"
	"github.com/papertrade/terminal/internal/modules/trading"
)

type stubPrices struct {
	price float64
	err   error
}

func (s *stubPrices) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}

type testEnv struct {
	router *chi.Mux
	token  string
	db     *sql.DB
	prices *stubPrices
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

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
		CREATE TABLE trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			price TEXT NOT NULL,
			total TEXT NOT NULL,
			executed_at INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)

	accountRepo := accounts.NewAccountRepository(db, log)
	positionRepo := portfolio.NewPositionRepository(db, log)
	tradeRepo := trading.NewTradeRepository(db, log)
	engine := trading.NewEngine(db, accountRepo, positionRepo, tradeRepo, log)

	require.NoError(t, accountRepo.Create(accounts.Account{
		ID:           "acct1",
		Email:        "trader@example.com",
		Name:         "Trader",
		PasswordHash: "x",
		Balance:      decimal.NewFromInt(500000),
		CreatedAt:    time.Now().UTC(),
	}))

	tokens := accounts.NewTokenService("test-secret")
	token, err := tokens.Issue("acct1")
	require.NoError(t, err)

	prices := &stubPrices{price: 100}
	handler := NewHandler(engine, tradeRepo, prices, log)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(accounts.RequireAuth(tokens))
		handler.RegisterRoutes(r)
	})

	return &testEnv{router: router, token: token, db: db, prices: prices}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type tradeResponse struct {
	Trade      trading.Trade   `json:"trade"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

func TestHandleTrade_Buy(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodPost, "/trade", `{"symbol": "INFY", "type": "buy", "quantity": 10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp tradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.NewBalance.Equal(decimal.NewFromInt(499000)), resp.NewBalance.String())
}

func TestHandleTrade_ClientPrice(t *testing.T) {
	env := setupTestEnv(t)
	env.prices.price = 100

	// The price the client quoted wins over the feed price.
	rec := env.do(t, http.MethodPost, "/trade", `{"symbol": "INFY", "type": "buy", "quantity": 10, "price": 250}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp tradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Trade.Price.Equal(decimal.NewFromInt(250)), resp.Trade.Price.String())
	assert.True(t, resp.NewBalance.Equal(decimal.NewFromInt(497500)), resp.NewBalance.String())

	var stored string
	require.NoError(t, env.db.QueryRow(`SELECT price FROM trades WHERE account_id = 'acct1'`).Scan(&stored))
	assert.Equal(t, "250", stored)
}

func TestHandleTrade_ClientPriceNegative(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodPost, "/trade", `{"symbol": "INFY", "type": "buy", "quantity": 10, "price": -5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTrade_FeedFallbackWhenPriceOmitted(t *testing.T) {
	env := setupTestEnv(t)
	env.prices.price = 80

	rec := env.do(t, http.MethodPost, "/trade", `{"symbol": "INFY", "type": "buy", "quantity": 5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp tradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Trade.Price.Equal(decimal.NewFromInt(80)), resp.Trade.Price.String())
}

func TestHandleTrade_InsufficientFunds(t *testing.T) {
	env := setupTestEnv(t)
	env.prices.price = 1000000

	rec := env.do(t, http.MethodPost, "/trade", `{"symbol": "INFY", "type": "buy", "quantity": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient balance")
}

func TestHandleTrade_SellWithoutPosition(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodPost, "/trade", `{"symbol": "INFY", "type": "sell", "quantity": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no position")
}

func TestHandleTrade_InvalidRequests(t *testing.T) {
	env := setupTestEnv(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{not json`},
		{"missing symbol", `{"type": "buy", "quantity": 1}`},
		{"zero quantity", `{"symbol": "INFY", "type": "buy", "quantity": 0}`},
		{"negative quantity", `{"symbol": "INFY", "type": "buy", "quantity": -5}`},
		{"bad side", `{"symbol": "INFY", "type": "hold", "quantity": 1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/trade", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleTrade_QuoteUnavailable(t *testing.T) {
	env := setupTestEnv(t)
	env.prices.err = yahoo.ErrQuoteUnavailable

	rec := env.do(t, http.MethodPost, "/trade", `{"symbol": "INFY", "type": "buy", "quantity": 1}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleTrade_PriceLookupError(t *testing.T) {
	env := setupTestEnv(t)
	env.prices.err = errors.New("boom")

	rec := env.do(t, http.MethodPost, "/trade", `{"symbol": "INFY", "type": "buy", "quantity": 1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleTrade_RequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/trade", strings.NewReader(`{"symbol": "INFY", "type": "buy", "quantity": 1}`))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGetTrades(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodPost, "/trade", `{"symbol": "INFY", "type": "buy", "quantity": 1}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/trades", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Trades []trading.Trade `json:"trades"`
		Count  int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Trades, 3)

	// Limit applies
	rec = env.do(t, http.MethodGet, "/trades?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	// Bad limit rejected
	rec = env.do(t, http.MethodGet, "/trades?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
