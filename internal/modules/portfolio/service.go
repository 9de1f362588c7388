package portfolio

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/papertrade/terminal/internal/domain"
	"github.com/papertrade/terminal/internal/modules/accounts"
)

// PriceProvider resolves the current market price for a symbol
type PriceProvider interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Service values an account's holdings at current market prices
type Service struct {
	positions *PositionRepository
	accounts  *accounts.AccountRepository
	prices    PriceProvider
	log       zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(positions *PositionRepository, accountRepo *accounts.AccountRepository, prices PriceProvider, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		accounts:  accountRepo,
		prices:    prices,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// GetSummary values every open position and aggregates the account totals.
// Prices are fetched concurrently, one lookup per symbol. A failed lookup
// never fails the summary: that position falls back to its average price
// with zero unrealized P&L and is flagged as stale.
func (s *Service) GetSummary(ctx context.Context, accountID string) (*Summary, error) {
	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	positions, err := s.positions.List(accountID)
	if err != nil {
		return nil, err
	}

	valuations := make([]PositionValuation, len(positions))

	var wg sync.WaitGroup
	for i, pos := range positions {
		wg.Add(1)
		go func(i int, pos Position) {
			defer wg.Done()
			valuations[i] = s.value(ctx, pos)
		}(i, pos)
	}
	wg.Wait()

	summary := &Summary{
		Balance:   account.Balance,
		Positions: valuations,
	}

	for _, v := range valuations {
		summary.Invested = summary.Invested.Add(v.Invested)
		summary.CurrentValue = summary.CurrentValue.Add(v.CurrentValue)
	}

	summary.TotalPnL = summary.CurrentValue.Sub(summary.Invested)
	if summary.Invested.IsPositive() {
		summary.TotalPnLPct = summary.TotalPnL.Div(summary.Invested).Mul(decimal.NewFromInt(100)).Round(2)
	}
	summary.AccountValue = summary.Balance.Add(summary.CurrentValue)

	return summary, nil
}

// value marks one position to market
func (s *Service) value(ctx context.Context, pos Position) PositionValuation {
	quantity := decimal.NewFromInt(pos.Quantity)
	invested := pos.AvgPrice.Mul(quantity)

	val := PositionValuation{
		Symbol:   pos.Symbol,
		Quantity: pos.Quantity,
		AvgPrice: pos.AvgPrice,
		Invested: invested,
	}

	price, err := s.prices.CurrentPrice(ctx, pos.Symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("Price lookup failed, using average price")
		val.CurrentPrice = pos.AvgPrice
		val.CurrentValue = invested
		val.PnL = decimal.Zero
		val.PnLPercent = decimal.Zero
		val.PriceIsStale = true
		return val
	}

	val.CurrentPrice = decimal.NewFromFloat(price)
	val.CurrentValue = val.CurrentPrice.Mul(quantity)
	val.PnL = val.CurrentValue.Sub(invested)
	if invested.IsPositive() {
		val.PnLPercent = val.PnL.Div(invested).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return val
}

// GetPositions returns the raw open positions for an account
func (s *Service) GetPositions(accountID string) ([]Position, error) {
	positions, err := s.positions.List(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return positions, nil
}
