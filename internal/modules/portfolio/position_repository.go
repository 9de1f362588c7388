package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PositionRepository handles position database operations
type PositionRepository struct {
	ledgerDB *sql.DB // ledger.db - positions table
	log      zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(ledgerDB *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "position").Logger(),
	}
}

// List returns all open positions for an account, ordered by symbol
func (r *PositionRepository) List(accountID string) ([]Position, error) {
	query := `
		SELECT account_id, symbol, quantity, avg_price, updated_at
		FROM positions
		WHERE account_id = ?
		ORDER BY symbol
	`

	rows, err := r.ledgerDB.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var pos Position
		var avgPrice string
		var updatedAt int64

		if err := rows.Scan(&pos.AccountID, &pos.Symbol, &pos.Quantity, &avgPrice, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}

		pos.AvgPrice, err = decimal.NewFromString(avgPrice)
		if err != nil {
			return nil, fmt.Errorf("corrupt avg price for %s/%s: %w", pos.AccountID, pos.Symbol, err)
		}
		pos.UpdatedAt = time.Unix(updatedAt, 0).UTC()

		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	return positions, nil
}

// GetTx reads one position inside a transaction. Returns nil when the
// account holds no position in the symbol.
func (r *PositionRepository) GetTx(tx *sql.Tx, accountID, symbol string) (*Position, error) {
	query := `
		SELECT account_id, symbol, quantity, avg_price, updated_at
		FROM positions
		WHERE account_id = ? AND symbol = ?
	`

	var pos Position
	var avgPrice string
	var updatedAt int64

	err := tx.QueryRow(query, accountID, symbol).Scan(
		&pos.AccountID, &pos.Symbol, &pos.Quantity, &avgPrice, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	pos.AvgPrice, err = decimal.NewFromString(avgPrice)
	if err != nil {
		return nil, fmt.Errorf("corrupt avg price for %s/%s: %w", accountID, symbol, err)
	}
	pos.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &pos, nil
}

// UpsertTx inserts or replaces a position inside a transaction.
// Callers must never pass a non-positive quantity; DeleteTx handles closes.
func (r *PositionRepository) UpsertTx(tx *sql.Tx, pos Position) error {
	if pos.Quantity <= 0 {
		return fmt.Errorf("refusing to upsert position with quantity %d", pos.Quantity)
	}

	query := `
		INSERT INTO positions (account_id, symbol, quantity, avg_price, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			avg_price = excluded.avg_price,
			updated_at = excluded.updated_at
	`

	_, err := tx.Exec(query,
		pos.AccountID,
		pos.Symbol,
		pos.Quantity,
		pos.AvgPrice.String(),
		pos.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	return nil
}

// DeleteTx removes a fully closed position inside a transaction
func (r *PositionRepository) DeleteTx(tx *sql.Tx, accountID, symbol string) error {
	_, err := tx.Exec("DELETE FROM positions WHERE account_id = ? AND symbol = ?", accountID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}
