package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
)

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx.
// Every mutating repository method takes one so the caller decides the atomic
// scope; multi-row mutations always run inside a single transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner runs fn inside one database transaction; any error rolls the whole
// scope back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q Querier) error) error
}

type WalletRepository interface {
	GetByAccountID(ctx context.Context, q Querier, accountID string) (*domain.Wallet, error)
	// EnsureWallet lazily provisions a zero-balance wallet for the account and
	// returns it (lazy-provisioning rule for transfer recipients).
	EnsureWallet(ctx context.Context, q Querier, accountID string) (*domain.Wallet, error)
	// Credit applies an unconditional additive update and returns the new balance.
	Credit(ctx context.Context, q Querier, walletID string, amount int64) (int64, error)
	// DebitIfSufficient applies "balance = balance - amount WHERE balance >= amount"
	// as one conditional statement. ErrInsufficientFunds when the guard fails;
	// no mutation in that case.
	DebitIfSufficient(ctx context.Context, q Querier, walletID string, amount int64) (int64, error)
	SetLastTransaction(ctx context.Context, q Querier, walletID, transactionID string) error
}

type TransactionRepository interface {
	// Create inserts the immutable record. A duplicate reference maps to
	// domain.ErrDuplicateReference.
	Create(ctx context.Context, q Querier, txn *domain.Transaction) (*domain.Transaction, error)
	GetByID(ctx context.Context, q Querier, id string) (*domain.Transaction, error)
	GetByReference(ctx context.Context, q Querier, reference string) (*domain.Transaction, error)
	// UpdateStatus moves a pending transaction to a new status; terminal rows
	// are never touched (domain.ErrInvalidStateTransition).
	UpdateStatus(ctx context.Context, q Querier, id string, status domain.TransactionStatus) error
	ListByWallet(ctx context.Context, q Querier, walletID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error)
}

type PurchaseRequestRepository interface {
	Create(ctx context.Context, q Querier, req *domain.PurchaseRequest) (*domain.PurchaseRequest, error)
	GetByID(ctx context.Context, q Querier, id string) (*domain.PurchaseRequest, error)
	// GetByIDForUpdate locks the row for the duration of the surrounding
	// transaction so concurrent reconciliations serialize.
	GetByIDForUpdate(ctx context.Context, q Querier, id string) (*domain.PurchaseRequest, error)
	MarkProcessed(ctx context.Context, q Querier, id string, status domain.RequestStatus, actor, note string) error
	ListByAccount(ctx context.Context, q Querier, accountID string, status domain.RequestStatus) ([]domain.PurchaseRequest, error)
}

type RechargeRequestRepository interface {
	Create(ctx context.Context, q Querier, req *domain.RechargeRequest) (*domain.RechargeRequest, error)
	GetByID(ctx context.Context, q Querier, id string) (*domain.RechargeRequest, error)
	GetByIDForUpdate(ctx context.Context, q Querier, id string) (*domain.RechargeRequest, error)
	MarkReconciled(ctx context.Context, q Querier, id string, status domain.RequestStatus, message string) error
	ListByAccount(ctx context.Context, q Querier, accountID string) ([]domain.RechargeRequest, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, q Querier, w *domain.Withdrawal) (*domain.Withdrawal, error)
	GetByID(ctx context.Context, q Querier, id string) (*domain.Withdrawal, error)
	GetByIDForUpdate(ctx context.Context, q Querier, id string) (*domain.Withdrawal, error)
	UpdateStatus(ctx context.Context, q Querier, id string, status domain.WithdrawalStatus, actor string) error
	ListByAccount(ctx context.Context, q Querier, accountID string) ([]domain.Withdrawal, error)
	List(ctx context.Context, q Querier, filter domain.WithdrawalFilter) ([]domain.Withdrawal, int, error)
}

type IncomeRepository interface {
	GetByAccountID(ctx context.Context, q Querier, accountID string) (*domain.Income, error)
	EnsureIncome(ctx context.Context, q Querier, accountID string) (*domain.Income, error)
	// Accrue credits the given source bucket and returns the new total.
	Accrue(ctx context.Context, q Querier, incomeID string, source domain.IncomeSource, amount int64) (int64, error)
	// DebitIfSufficient withdraws from the total, draining referral earnings
	// first. ErrInsufficientFunds when the total is short.
	DebitIfSufficient(ctx context.Context, q Querier, incomeID string, amount int64) (int64, error)
	SetLastTransaction(ctx context.Context, q Querier, incomeID, transactionID string) error
}

// OfferRepository reads the externally-owned offer catalog.
type OfferRepository interface {
	GetByID(ctx context.Context, q Querier, id string) (*domain.Offer, error)
	ListActive(ctx context.Context, q Querier) ([]domain.Offer, error)
}

// OperatorRepository reads the externally-owned recharge operator catalog.
type OperatorRepository interface {
	GetByCode(ctx context.Context, q Querier, code string) (*domain.RechargeOperator, error)
	ListActive(ctx context.Context, q Querier) ([]domain.RechargeOperator, error)
}

// AccountDirectory resolves stable external identifiers at the identity
// provider boundary.
type AccountDirectory interface {
	ResolveByPhone(ctx context.Context, q Querier, phoneNumber string) (string, error)
}
