package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")

	// ErrOrderNotMatched means no pending order matched the observed payment amount.
	ErrOrderNotMatched = errors.New("no pending order matched payment")
	// ErrAlreadySettled is the idempotency outcome: the order is VERIFIED and
	// first-settled-wins, so a duplicate delivery must not write anything.
	ErrAlreadySettled     = errors.New("order already settled")
	ErrInsufficientAmount = errors.New("insufficient amount")

	ErrTransactionNotFound = errors.New("transaction not found on chain")
	ErrOnChainFailure      = errors.New("transaction failed on chain")
	ErrWrongRecipient      = errors.New("transfer recipient mismatch")
	ErrTransferLogMissing  = errors.New("no token transfer log in receipt")

	// ErrConfigMissing indicates the deployment is not ready to receive webhooks.
	// It must fail loudly rather than silently accept unverified payments.
	ErrConfigMissing   = errors.New("required configuration missing")
	ErrEmailDisabled   = errors.New("email delivery disabled")
	ErrOrderNotSettled = errors.New("order not settled")
)
