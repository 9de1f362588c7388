package trading

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/papertrade/terminal/internal/database"
	"github.com/papertrade/terminal/internal/domain"
	"github.com/papertrade/terminal/internal/modules/accounts"
	"github.com/papertrade/terminal/internal/modules/portfolio"
)

// Engine executes trades against the ledger. All mutations for one trade
// happen inside a single transaction, so a failed trade leaves the balance,
// positions and trade history exactly as they were.
type Engine struct {
	ledgerDB  *sql.DB
	accounts  *accounts.AccountRepository
	positions *portfolio.PositionRepository
	trades    *TradeRepository
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a new trade engine
func NewEngine(
	ledgerDB *sql.DB,
	accountRepo *accounts.AccountRepository,
	positionRepo *portfolio.PositionRepository,
	tradeRepo *TradeRepository,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		ledgerDB:  ledgerDB,
		accounts:  accountRepo,
		positions: positionRepo,
		trades:    tradeRepo,
		log:       log.With().Str("component", "trade_engine").Logger(),
		locks:     make(map[string]*sync.Mutex),
	}
}

// accountLock returns the mutex serializing trades for one account.
// Trades on different accounts run in parallel.
func (e *Engine) accountLock(accountID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[accountID] = lock
	}
	return lock
}

// Execute runs one BUY or SELL order at the given price and returns a
// receipt with the persisted trade and the settled balance.
func (e *Engine) Execute(ctx context.Context, accountID, symbol string, side TradeSide, quantity int64, price decimal.Decimal) (*Receipt, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}
	if !side.IsValid() {
		return nil, domain.ErrInvalidSide
	}
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := e.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	var receipt *Receipt
	err := database.WithTransaction(e.ledgerDB, func(tx *sql.Tx) error {
		var txErr error
		switch side {
		case SideBuy:
			receipt, txErr = e.buy(tx, accountID, symbol, quantity, price)
		case SideSell:
			receipt, txErr = e.sell(tx, accountID, symbol, quantity, price)
		}
		return txErr
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("account_id", accountID).
		Str("symbol", symbol).
		Str("side", string(side)).
		Int64("quantity", quantity).
		Str("price", price.String()).
		Str("new_balance", receipt.NewBalance.String()).
		Msg("Trade executed")

	return receipt, nil
}

// buy debits the account, folds the lot into the position at weighted
// average cost and appends the trade row
func (e *Engine) buy(tx *sql.Tx, accountID, symbol string, quantity int64, price decimal.Decimal) (*Receipt, error) {
	total := price.Mul(decimal.NewFromInt(quantity))

	newBalance, err := e.accounts.AdjustBalanceTx(tx, accountID, total.Neg())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	pos, err := e.positions.GetTx(tx, accountID, symbol)
	if err != nil {
		return nil, err
	}

	if pos == nil {
		pos = &portfolio.Position{
			AccountID: accountID,
			Symbol:    symbol,
			Quantity:  quantity,
			AvgPrice:  price,
		}
	} else {
		// Weighted average cost: (held cost + new cost) / total shares
		heldCost := pos.AvgPrice.Mul(decimal.NewFromInt(pos.Quantity))
		newQuantity := pos.Quantity + quantity
		pos.AvgPrice = heldCost.Add(total).Div(decimal.NewFromInt(newQuantity))
		pos.Quantity = newQuantity
	}
	pos.UpdatedAt = now

	if err := e.positions.UpsertTx(tx, *pos); err != nil {
		return nil, err
	}

	trade, err := e.trades.AppendTx(tx, Trade{
		AccountID:  accountID,
		Symbol:     symbol,
		Side:       SideBuy,
		Quantity:   quantity,
		Price:      price,
		Total:      total,
		ExecutedAt: now,
	})
	if err != nil {
		return nil, err
	}

	return &Receipt{Trade: trade, NewBalance: newBalance}, nil
}

// sell credits the account and shrinks or removes the position.
// The average price of the remaining shares never changes on a sell.
func (e *Engine) sell(tx *sql.Tx, accountID, symbol string, quantity int64, price decimal.Decimal) (*Receipt, error) {
	pos, err := e.positions.GetTx(tx, accountID, symbol)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, domain.ErrNoPosition
	}
	if pos.Quantity < quantity {
		return nil, domain.ErrInsufficientShares
	}

	total := price.Mul(decimal.NewFromInt(quantity))

	newBalance, err := e.accounts.AdjustBalanceTx(tx, accountID, total)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	remaining := pos.Quantity - quantity
	if remaining == 0 {
		if err := e.positions.DeleteTx(tx, accountID, symbol); err != nil {
			return nil, err
		}
	} else {
		pos.Quantity = remaining
		pos.UpdatedAt = now
		if err := e.positions.UpsertTx(tx, *pos); err != nil {
			return nil, err
		}
	}

	trade, err := e.trades.AppendTx(tx, Trade{
		AccountID:  accountID,
		Symbol:     symbol,
		Side:       SideSell,
		Quantity:   quantity,
		Price:      price,
		Total:      total,
		ExecutedAt: now,
	})
	if err != nil {
		return nil, err
	}

	return &Receipt{Trade: trade, NewBalance: newBalance}, nil
}
