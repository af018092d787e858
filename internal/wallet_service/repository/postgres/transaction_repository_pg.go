package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

const pgUniqueViolation = "23505"

type pgTransactionRepository struct{}

func NewPgTransactionRepository() repository.TransactionRepository {
	return &pgTransactionRepository{}
}

const transactionColumns = `id, account_id, wallet_id, amount, type, status, description, reference, metadata, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(&t.ID, &t.AccountID, &t.WalletID, &t.Amount, &t.Type, &t.Status,
		&t.Description, &t.Reference, &t.Metadata, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *pgTransactionRepository) Create(ctx context.Context, q repository.Querier, txn *domain.Transaction) (*domain.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	if txn.Metadata == nil {
		txn.Metadata = map[string]string{}
	}

	query := `
		INSERT INTO transactions (id, account_id, wallet_id, amount, type, status, description, reference, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.Exec(ctx, query,
		txn.ID, txn.AccountID, txn.WalletID, txn.Amount, txn.Type, txn.Status,
		txn.Description, txn.Reference, txn.Metadata, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.ErrDuplicateReference
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return txn, nil
}

func (r *pgTransactionRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(q.QueryRow(ctx, query, id))
}

func (r *pgTransactionRepository) GetByReference(ctx context.Context, q repository.Querier, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	return scanTransaction(q.QueryRow(ctx, query, reference))
}

// UpdateStatus only moves non-terminal rows; completed/rejected/refunded/
// cancelled history is immutable.
func (r *pgTransactionRepository) UpdateStatus(ctx context.Context, q repository.Querier, id string, status domain.TransactionStatus) error {
	query := `
		UPDATE transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'failed', 'reversed')
	`
	tag, err := q.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, q, id); getErr != nil {
			return getErr
		}
		return domain.ErrInvalidStateTransition
	}
	return nil
}

func (r *pgTransactionRepository) ListByWallet(ctx context.Context, q repository.Querier, walletID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	filter = filter.Normalized()

	where := `WHERE wallet_id = $1`
	args := []any{walletID}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(
		`SELECT %s FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)-1, len(args),
	)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.WalletID, &t.Amount, &t.Type, &t.Status,
			&t.Description, &t.Reference, &t.Metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
