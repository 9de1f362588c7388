// Package handlers provides HTTP handlers for market data lookups.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/papertrade/terminal/internal/clients/yahoo"
	"github.com/papertrade/terminal/internal/modules/marketdata"
)

// Handler handles market data HTTP requests
type Handler struct {
	service *marketdata.Service
	log     zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(service *marketdata.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "marketdata").Logger(),
	}
}

// HandleGetQuote handles GET /api/stocks/quote/{symbol}
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	quote, stale, err := h.service.GetQuote(r.Context(), symbol)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote lookup failed")
		if errors.Is(err, yahoo.ErrQuoteUnavailable) {
			h.writeError(w, http.StatusBadGateway, "Quote unavailable")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to get quote")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"quote": quote,
		"stale": stale,
	})
}

// HandleSearch handles GET /api/stocks/search/{query}
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.log.Warn().Err(err).Str("query", query).Msg("Symbol search failed")
		h.writeError(w, http.StatusBadGateway, "Search unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// HandleGetIndices handles GET /api/stocks/indices
func (h *Handler) HandleGetIndices(w http.ResponseWriter, r *http.Request) {
	indices, stale, err := h.service.GetIndices(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Index lookup failed")
		h.writeError(w, http.StatusBadGateway, "Indices unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"indices": indices,
		"stale":   stale,
	})
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
