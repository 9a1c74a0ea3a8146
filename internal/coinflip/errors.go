package coinflip

import "errors"

var (
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidPoolID      = errors.New("pool id required")
	ErrAccountMismatch    = errors.New("custody account does not match asset or derived authority")
	ErrPoolMismatch       = errors.New("custody account does not match pool")
	ErrAlreadyInitialized = errors.New("pool already initialized")
	ErrPoolNotFound       = errors.New("pool not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTransferFailure    = errors.New("transfer failed")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrClockUnavailable   = errors.New("clock unavailable")

	// Causas devolvidas pelo ledger; chegam ao chamador embrulhadas em ErrTransferFailure.
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("authorizer does not own source account")
	ErrAssetMismatch     = errors.New("accounts hold different assets")
)
