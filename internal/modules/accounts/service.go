package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/papertrade/terminal/internal/domain"
)

// Service handles account registration and login
type Service struct {
	repo            *AccountRepository
	tokens          *TokenService
	startingBalance decimal.Decimal
	log             zerolog.Logger
}

// NewService creates a new account service
func NewService(repo *AccountRepository, tokens *TokenService, startingBalance decimal.Decimal, log zerolog.Logger) *Service {
	return &Service{
		repo:            repo,
		tokens:          tokens,
		startingBalance: startingBalance,
		log:             log.With().Str("service", "accounts").Logger(),
	}
}

// Register creates a new account with the starting balance and returns it
// together with a signed token. Every account starts with the same balance.
func (s *Service) Register(email, name, password string) (*Account, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to register: %w", err)
	}
	if existing != nil {
		return nil, "", domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	account := Account{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Balance:      s.startingBalance,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(account); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", err
	}

	return &account, token, nil
}

// Login verifies credentials and returns the account with a fresh token.
// Both an unknown email and a wrong password report the same error so the
// response does not leak which accounts exist.
func (s *Service) Login(email, password string) (*Account, string, error) {
	account, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to login: %w", err)
	}
	if account == nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", err
	}

	s.log.Debug().Str("account_id", account.ID).Msg("Login successful")

	return account, token, nil
}

// Get returns the account for an ID, or domain.ErrAccountNotFound.
func (s *Service) Get(accountID string) (*Account, error) {
	account, err := s.repo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}
