// Package portfolio tracks open positions and values them at market prices.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open holding in one symbol. A position only exists while
// its quantity is positive; selling down to zero removes the row entirely.
type Position struct {
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CostBasis returns the total invested amount for the position
func (p Position) CostBasis() decimal.Decimal {
	return p.AvgPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// PositionValuation is a position marked to its current market price
type PositionValuation struct {
	Symbol        string          `json:"symbol"`
	Quantity      int64           `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Invested      decimal.Decimal `json:"invested"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	PnL           decimal.Decimal `json:"pnl"`
	PnLPercent    decimal.Decimal `json:"pnl_percent"`
	PriceIsStale  bool            `json:"price_is_stale"`
}

// Summary aggregates all holdings of an account with the cash balance
type Summary struct {
	Balance       decimal.Decimal     `json:"balance"`
	Invested      decimal.Decimal     `json:"invested"`
	CurrentValue  decimal.Decimal     `json:"current_value"`
	TotalPnL      decimal.Decimal     `json:"total_pnl"`
	TotalPnLPct   decimal.Decimal     `json:"total_pnl_percent"`
	AccountValue  decimal.Decimal     `json:"account_value"`
	Positions     []PositionValuation `json:"positions"`
}
