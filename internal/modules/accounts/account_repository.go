package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/papertrade/terminal/internal/domain"
)

// accountsColumns is the list of columns for the accounts table
// Used to avoid SELECT * which can break when schema changes
// Column order must match scanAccount() expectations
const accountsColumns = `id, email, name, password_hash, balance, created_at`

// AccountRepository handles account database operations
type AccountRepository struct {
	ledgerDB *sql.DB // ledger.db - accounts table
	log      zerolog.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(ledgerDB *sql.DB, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "account").Logger(),
	}
}

// Create inserts a new account record
func (r *AccountRepository) Create(account Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	query := `
		INSERT INTO accounts (id, email, name, password_hash, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.ledgerDB.Exec(query,
		account.ID,
		account.Email,
		account.Name,
		account.PasswordHash,
		account.Balance.String(),
		account.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.log.Info().
		Str("account_id", account.ID).
		Str("email", account.Email).
		Msg("Account created")

	return nil
}

// GetByID retrieves an account by ID. Returns nil when not found.
func (r *AccountRepository) GetByID(id string) (*Account, error) {
	query := "SELECT " + accountsColumns + " FROM accounts WHERE id = ?"

	account, err := r.scanAccount(r.ledgerDB.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return &account, nil
}

// GetByEmail retrieves an account by email. Returns nil when not found.
func (r *AccountRepository) GetByEmail(email string) (*Account, error) {
	query := "SELECT " + accountsColumns + " FROM accounts WHERE email = ?"

	account, err := r.scanAccount(r.ledgerDB.QueryRow(query, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return &account, nil
}

// GetBalanceTx reads an account balance inside a transaction.
// Returns domain.ErrAccountNotFound when the account does not exist.
func (r *AccountRepository) GetBalanceTx(tx *sql.Tx, accountID string) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRow("SELECT balance FROM accounts WHERE id = ?", accountID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt balance for account %s: %w", accountID, err)
	}

	return balance, nil
}

// AdjustBalanceTx applies a delta to an account balance inside a transaction
// and returns the new balance. Fails with domain.ErrInsufficientFunds if the
// resulting balance would go negative - checked before applying, not after.
func (r *AccountRepository) AdjustBalanceTx(tx *sql.Tx, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	balance, err := r.GetBalanceTx(tx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := balance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientFunds
	}

	_, err = tx.Exec("UPDATE accounts SET balance = ? WHERE id = ?", newBalance.String(), accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to adjust balance: %w", err)
	}

	return newBalance, nil
}

// scanAccount scans a database row into an Account struct
func (r *AccountRepository) scanAccount(row *sql.Row) (Account, error) {
	var account Account
	var balance string
	var createdAt int64

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.PasswordHash,
		&balance,
		&createdAt,
	)
	if err != nil {
		return account, err
	}

	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return account, fmt.Errorf("corrupt balance for account %s: %w", account.ID, err)
	}

	account.CreatedAt = time.Unix(createdAt, 0).UTC()

	return account, nil
}
