// Package handlers provides HTTP handlers for account operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/papertrade/terminal/internal/domain"
	"github.com/papertrade/terminal/internal/modules/accounts"
)

// Handler handles account HTTP requests
type Handler struct {
	service  *accounts.Service
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(service *accounts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		log:      log.With().Str("handler", "accounts").Logger(),
	}
}

// RegisterRequest represents a request to create an account
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister handles POST /api/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, token, err := h.service.Register(req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			h.writeError(w, http.StatusBadRequest, domain.ErrEmailTaken.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to register account")
		h.writeError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  h.accountResponse(account),
	})
}

// HandleLogin handles POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to login")
		h.writeError(w, http.StatusInternalServerError, "Failed to login")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  h.accountResponse(account),
	})
}

// HandleGetUser handles GET /api/user
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accounts.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	account, err := h.service.Get(accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, domain.ErrAccountNotFound.Error())
			return
		}
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get account")
		h.writeError(w, http.StatusInternalServerError, "Failed to get account")
		return
	}

	h.writeJSON(w, http.StatusOK, h.accountResponse(account))
}

func (h *Handler) accountResponse(account *accounts.Account) map[string]interface{} {
	return map[string]interface{}{
		"id":      account.ID,
		"email":   account.Email,
		"name":    account.Name,
		"balance": account.Balance,
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
