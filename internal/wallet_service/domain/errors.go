package domain

import "errors"

var (
	// ErrWalletNotFound indicates the account has no wallet record.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrAccountNotFound indicates no account matches the given identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTransactionNotFound indicates the transaction record is absent.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrRequestNotFound indicates the purchase/recharge/withdrawal record is absent.
	ErrRequestNotFound = errors.New("request not found")
	// ErrOfferNotAvailable indicates the offer is inactive or soft-deleted.
	ErrOfferNotAvailable = errors.New("offer not available")
	// ErrOperatorNotAvailable indicates the recharge operator is inactive.
	ErrOperatorNotAvailable = errors.New("operator not available")
	// ErrIncomeNotFound indicates the account has no income record.
	ErrIncomeNotFound = errors.New("income not found")

	// ErrInsufficientFunds is returned when a conditional debit fails its
	// balance check. The ledger is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrDuplicateReference is the idempotency guard: the reference was already
	// applied, so the caller should look up the existing transaction instead of
	// retrying.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	// ErrInvalidStateTransition is returned when reconciling or updating a
	// request that already reached a terminal state.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrSelfTransfer  = errors.New("cannot transfer to yourself")
)
