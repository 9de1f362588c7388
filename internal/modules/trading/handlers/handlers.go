// Package handlers provides HTTP handlers for trade execution and history.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/papertrade/terminal/internal/clients/yahoo"
	"github.com/papertrade/terminal/internal/domain"
	"github.com/papertrade/terminal/internal/modules/accounts"
	"github.com/papertrade/terminal/internal/modules/trading"
)

// PriceProvider resolves the current market price for a symbol
type PriceProvider interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// maxHistoryLimit caps the limit query parameter on trade history
const maxHistoryLimit = 500

// Handler handles trading HTTP requests
type Handler struct {
	engine   *trading.Engine
	trades   *trading.TradeRepository
	prices   PriceProvider
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(engine *trading.Engine, trades *trading.TradeRepository, prices PriceProvider, log zerolog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		trades:   trades,
		prices:   prices,
		validate: validator.New(),
		log:      log.With().Str("handler", "trading").Logger(),
	}
}

// TradeRequest represents a request to execute a trade. The client quotes
// the symbol before submitting and sends the price it saw; when price is
// omitted the server resolves the current market price instead.
type TradeRequest struct {
	Symbol   string  `json:"symbol" validate:"required"`
	Type     string  `json:"type" validate:"required"`
	Quantity int64   `json:"quantity" validate:"required,gt=0"`
	Price    float64 `json:"price" validate:"omitempty,gt=0"`
}

// HandleTrade handles POST /api/trade
func (h *Handler) HandleTrade(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accounts.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	side, err := trading.SideFromString(req.Type)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	price := req.Price
	if price == 0 {
		price, err = h.prices.CurrentPrice(r.Context(), req.Symbol)
		if err != nil {
			h.log.Warn().Err(err).Str("symbol", req.Symbol).Msg("Price lookup failed")
			if errors.Is(err, yahoo.ErrQuoteUnavailable) {
				h.writeError(w, http.StatusBadGateway, "Market price unavailable")
				return
			}
			h.writeError(w, http.StatusInternalServerError, "Failed to resolve price")
			return
		}
	}

	receipt, err := h.engine.Execute(r.Context(), accountID, req.Symbol, side, req.Quantity, decimal.NewFromFloat(price))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Trade executed",
		"trade":       receipt.Trade,
		"new_balance": receipt.NewBalance,
	})
}

// HandleGetTrades handles GET /api/trades
func (h *Handler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accounts.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > maxHistoryLimit {
			parsed = maxHistoryLimit
		}
		limit = parsed
	}

	trades, err := h.trades.GetHistory(accountID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get trade history")
		h.writeError(w, http.StatusInternalServerError, "Failed to get trades")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	})
}

// writeEngineError maps trade engine failures to HTTP statuses.
// Validation and business-rule failures are client errors.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidSide),
		errors.Is(err, domain.ErrInvalidSymbol),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrNoPosition),
		errors.Is(err, domain.ErrInsufficientShares):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Trade execution failed")
		h.writeError(w, http.StatusInternalServerError, "Trade failed")
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
