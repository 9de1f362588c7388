package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// defaultHistoryLimit caps how many trades GetHistory returns when the
// caller does not ask for a specific limit
const defaultHistoryLimit = 50

// TradeRepository handles trade history database operations
type TradeRepository struct {
	ledgerDB *sql.DB // ledger.db - trades table
	log      zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(ledgerDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "trade").Logger(),
	}
}

// AppendTx writes one trade row inside a transaction and returns the trade
// with its assigned ID filled in
func (r *TradeRepository) AppendTx(tx *sql.Tx, trade Trade) (Trade, error) {
	if err := trade.Validate(); err != nil {
		return trade, err
	}

	query := `
		INSERT INTO trades (account_id, symbol, side, quantity, price, total, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.Exec(query,
		trade.AccountID,
		trade.Symbol,
		string(trade.Side),
		trade.Quantity,
		trade.Price.String(),
		trade.Total.String(),
		trade.ExecutedAt.Unix(),
	)
	if err != nil {
		return trade, fmt.Errorf("failed to append trade: %w", err)
	}

	trade.ID, err = result.LastInsertId()
	if err != nil {
		return trade, fmt.Errorf("failed to get trade id: %w", err)
	}

	return trade, nil
}

// GetHistory returns an account's trades, most recent first.
// A limit <= 0 falls back to the default.
func (r *TradeRepository) GetHistory(accountID string, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `
		SELECT id, account_id, symbol, side, quantity, price, total, executed_at
		FROM trades
		WHERE account_id = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.ledgerDB.Query(query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]Trade, 0, limit)
	for rows.Next() {
		trade, err := r.scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}

	return trades, nil
}

// scanTrade scans a database row into a Trade struct
func (r *TradeRepository) scanTrade(rows *sql.Rows) (Trade, error) {
	var trade Trade
	var side string
	var price, total string
	var executedAt int64

	err := rows.Scan(
		&trade.ID,
		&trade.AccountID,
		&trade.Symbol,
		&side,
		&trade.Quantity,
		&price,
		&total,
		&executedAt,
	)
	if err != nil {
		return trade, fmt.Errorf("failed to scan trade: %w", err)
	}

	trade.Side = TradeSide(side)

	trade.Price, err = decimal.NewFromString(price)
	if err != nil {
		return trade, fmt.Errorf("corrupt price for trade %d: %w", trade.ID, err)
	}

	trade.Total, err = decimal.NewFromString(total)
	if err != nil {
		return trade, fmt.Errorf("corrupt total for trade %d: %w", trade.ID, err)
	}

	trade.ExecutedAt = time.Unix(executedAt, 0).UTC()

	return trade, nil
}
