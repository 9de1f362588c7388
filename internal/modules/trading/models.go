// Package trading implements order execution against the paper ledger.
package trading

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/terminal/internal/domain"
)

// TradeSide is the direction of an executed trade
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// SideFromString parses a trade side, accepting any casing
func SideFromString(s string) (TradeSide, error) {
	switch TradeSide(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", domain.ErrInvalidSide
	}
}

// IsValid checks whether the side is one of the two known values
func (s TradeSide) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Trade is one executed order. Trades are append only; a trade row is never
// updated or deleted after it is written.
type Trade struct {
	ID         int64           `json:"id"`
	AccountID  string          `json:"account_id"`
	Symbol     string          `json:"symbol"`
	Side       TradeSide       `json:"type"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Total      decimal.Decimal `json:"total"`
	ExecutedAt time.Time       `json:"timestamp"`
}

// Validate checks trade fields before persistence
func (t Trade) Validate() error {
	if t.AccountID == "" {
		return domain.ErrAccountNotFound
	}
	if !t.Side.IsValid() {
		return domain.ErrInvalidSide
	}
	if t.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if !t.Price.IsPositive() {
		return domain.ErrInvalidPrice
	}
	return nil
}

// Receipt is returned to the caller after a trade commits. It carries the
// persisted trade plus the account balance after settlement.
type Receipt struct {
	Trade      Trade           `json:"trade"`
	NewBalance decimal.Decimal `json:"new_balance"`
}
