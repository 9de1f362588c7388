package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a registered paper-trading account.
// The balance is virtual cash; it is mutated only by the trade engine.
type Account struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	PasswordHash string          `json:"-"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Validate validates account data and normalizes the email
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if a.Balance.IsNegative() {
		return fmt.Errorf("balance cannot be negative")
	}

	a.Email = strings.ToLower(strings.TrimSpace(a.Email))

	return nil
}
