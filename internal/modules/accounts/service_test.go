package accounts

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papertrade/terminal/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE accounts (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			balance TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func setupService(t *testing.T, db *sql.DB) *Service {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewAccountRepository(db, log)
	tokens := NewTokenService("test-secret")
	return NewService(repo, tokens, decimal.NewFromInt(500000), log)
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	service := setupService(t, db)

	account, token, err := service.Register("Trader@Example.com", "Trader One", "s3cret99")
	require.NoError(t, err)
	require.NotNil(t, account)

	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "trader@example.com", account.Email)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(500000)))
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "s3cret99", account.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	service := setupService(t, db)

	_, _, err := service.Register("trader@example.com", "Trader One", "s3cret99")
	require.NoError(t, err)

	_, _, err = service.Register("TRADER@example.com", "Impostor", "other-pass")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	service := setupService(t, db)

	registered, _, err := service.Register("trader@example.com", "Trader One", "s3cret99")
	require.NoError(t, err)

	account, token, err := service.Login("trader@example.com", "s3cret99")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, account.ID)
	assert.NotEmpty(t, token)
}

func TestLogin_WrongPassword(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	service := setupService(t, db)

	_, _, err := service.Register("trader@example.com", "Trader One", "s3cret99")
	require.NoError(t, err)

	_, _, err = service.Login("trader@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	service := setupService(t, db)

	_, _, err := service.Login("nobody@example.com", "whatever")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := NewTokenService("test-secret")

	token, err := tokens.Issue("account-42")
	require.NoError(t, err)

	accountID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "account-42", accountID)
}

func TestTokenService_RejectsBadTokens(t *testing.T) {
	tokens := NewTokenService("test-secret")

	_, err := tokens.Verify("not-a-token")
	assert.Error(t, err)

	// Token signed with a different secret
	other := NewTokenService("other-secret")
	token, err := other.Issue("account-42")
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	assert.Error(t, err)
}
