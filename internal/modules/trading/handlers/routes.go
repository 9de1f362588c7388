package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes. All of them require auth;
// the caller mounts them inside an authenticated route group.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/trade", h.HandleTrade)
	r.Get("/trades", h.HandleGetTrades)
}
