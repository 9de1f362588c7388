package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/papertrade/terminal/internal/modules/accounts"
)

// RegisterRoutes registers all account routes. Registration and login are
// public; the user endpoint requires a bearer token.
func (h *Handler) RegisterRoutes(r chi.Router, tokens *accounts.TokenService) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(accounts.RequireAuth(tokens))
		r.Get("/user", h.HandleGetUser)
	})
}
