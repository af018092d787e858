package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

type pgWalletRepository struct{}

// NewPgWalletRepository creates the PostgreSQL WalletRepository. It is
// stateless; every call receives its Querier from the caller's atomic scope.
func NewPgWalletRepository() repository.WalletRepository {
	return &pgWalletRepository{}
}

const walletColumns = `id, account_id, balance, last_transaction_id, is_deleted, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.AccountID, &w.Balance, &w.LastTransactionID, &w.IsDeleted, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *pgWalletRepository) GetByAccountID(ctx context.Context, q repository.Querier, accountID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_id = $1 AND NOT is_deleted`
	return scanWallet(q.QueryRow(ctx, query, accountID))
}

func (r *pgWalletRepository) EnsureWallet(ctx context.Context, q repository.Querier, accountID string) (*domain.Wallet, error) {
	query := `
		INSERT INTO wallets (id, account_id, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (account_id) DO NOTHING
	`
	if _, err := q.Exec(ctx, query, uuid.NewString(), accountID); err != nil {
		return nil, err
	}
	return r.GetByAccountID(ctx, q, accountID)
}

func (r *pgWalletRepository) Credit(ctx context.Context, q repository.Querier, walletID string, amount int64) (int64, error) {
	var balance int64
	query := `
		UPDATE wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
		RETURNING balance
	`
	err := q.QueryRow(ctx, query, walletID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrWalletNotFound
		}
		return 0, err
	}
	return balance, nil
}

// DebitIfSufficient is the atomic read-check-subtract-write: the balance guard
// lives in the WHERE clause, so a losing race yields zero rows and no change.
func (r *pgWalletRepository) DebitIfSufficient(ctx context.Context, q repository.Querier, walletID string, amount int64) (int64, error) {
	var balance int64
	query := `
		UPDATE wallets
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted AND balance >= $2
		RETURNING balance
	`
	err := q.QueryRow(ctx, query, walletID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing wallet from a failed balance guard.
			if _, getErr := r.getByID(ctx, q, walletID); getErr != nil {
				return 0, getErr
			}
			return 0, domain.ErrInsufficientFunds
		}
		return 0, err
	}
	return balance, nil
}

func (r *pgWalletRepository) getByID(ctx context.Context, q repository.Querier, walletID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 AND NOT is_deleted`
	return scanWallet(q.QueryRow(ctx, query, walletID))
}

func (r *pgWalletRepository) SetLastTransaction(ctx context.Context, q repository.Querier, walletID, transactionID string) error {
	query := `UPDATE wallets SET last_transaction_id = $2, updated_at = NOW() WHERE id = $1`
	tag, err := q.Exec(ctx, query, walletID, transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}
