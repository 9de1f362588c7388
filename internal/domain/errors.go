// Package domain holds types shared across modules.
// Keeping the trade failure taxonomy here lets repositories, the trade engine
// and HTTP handlers agree on error identity without import cycles.
package domain

import "errors"

// Trade execution failure taxonomy.
// Validation errors are rejected before any lookup; business-rule errors are
// rejected inside the transaction with no side effects. Every one of these
// leaves account, positions and trade history unchanged.
var (
	// ErrAccountNotFound - the account does not exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidQuantity - quantity must be a positive integer
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidPrice - price must be positive
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrInvalidSide - side must be BUY or SELL
	ErrInvalidSide = errors.New("invalid trade side")

	// ErrInvalidSymbol - empty or unresolvable symbol
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrInsufficientFunds - buy total exceeds the cash balance
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrNoPosition - sell against a symbol the account does not hold
	ErrNoPosition = errors.New("no position for symbol")

	// ErrInsufficientShares - sell quantity exceeds the held quantity
	ErrInsufficientShares = errors.New("insufficient shares to sell")

	// ErrEmailTaken - registration with an email that already exists
	ErrEmailTaken = errors.New("user already exists")

	// ErrInvalidCredentials - login with unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
)
