package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

type pgIncomeRepository struct{}

func NewPgIncomeRepository() repository.IncomeRepository {
	return &pgIncomeRepository{}
}

const incomeColumns = `id, account_id, from_referral, from_shopping, from_referral + from_shopping, last_transaction_id, created_at, updated_at`

func scanIncome(row pgx.Row) (*domain.Income, error) {
	in := &domain.Income{}
	err := row.Scan(&in.ID, &in.AccountID, &in.FromReferral, &in.FromShopping, &in.Total,
		&in.LastTransactionID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIncomeNotFound
		}
		return nil, err
	}
	return in, nil
}

func (r *pgIncomeRepository) GetByAccountID(ctx context.Context, q repository.Querier, accountID string) (*domain.Income, error) {
	query := `SELECT ` + incomeColumns + ` FROM incomes WHERE account_id = $1`
	return scanIncome(q.QueryRow(ctx, query, accountID))
}

func (r *pgIncomeRepository) EnsureIncome(ctx context.Context, q repository.Querier, accountID string) (*domain.Income, error) {
	query := `
		INSERT INTO incomes (id, account_id, from_referral, from_shopping, created_at, updated_at)
		VALUES ($1, $2, 0, 0, NOW(), NOW())
		ON CONFLICT (account_id) DO NOTHING
	`
	if _, err := q.Exec(ctx, query, uuid.NewString(), accountID); err != nil {
		return nil, err
	}
	return r.GetByAccountID(ctx, q, accountID)
}

func (r *pgIncomeRepository) Accrue(ctx context.Context, q repository.Querier, incomeID string, source domain.IncomeSource, amount int64) (int64, error) {
	column := "from_referral"
	if source == domain.IncomeSourceShopping {
		column = "from_shopping"
	}
	var total int64
	query := `
		UPDATE incomes
		SET ` + column + ` = ` + column + ` + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING from_referral + from_shopping
	`
	err := q.QueryRow(ctx, query, incomeID, amount).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrIncomeNotFound
		}
		return 0, err
	}
	return total, nil
}

// DebitIfSufficient drains referral earnings first, then shopping, guarded by
// the combined total in the WHERE clause so the non-negative invariant holds
// per bucket and in aggregate.
func (r *pgIncomeRepository) DebitIfSufficient(ctx context.Context, q repository.Querier, incomeID string, amount int64) (int64, error) {
	var total int64
	query := `
		UPDATE incomes
		SET from_referral = GREATEST(from_referral - $2, 0),
		    from_shopping = from_shopping - GREATEST($2 - from_referral, 0),
		    updated_at = NOW()
		WHERE id = $1 AND from_referral + from_shopping >= $2
		RETURNING from_referral + from_shopping
	`
	err := q.QueryRow(ctx, query, incomeID, amount).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.getByID(ctx, q, incomeID); getErr != nil {
				return 0, getErr
			}
			return 0, domain.ErrInsufficientFunds
		}
		return 0, err
	}
	return total, nil
}

func (r *pgIncomeRepository) getByID(ctx context.Context, q repository.Querier, incomeID string) (*domain.Income, error) {
	query := `SELECT ` + incomeColumns + ` FROM incomes WHERE id = $1`
	return scanIncome(q.QueryRow(ctx, query, incomeID))
}

func (r *pgIncomeRepository) SetLastTransaction(ctx context.Context, q repository.Querier, incomeID, transactionID string) error {
	query := `UPDATE incomes SET last_transaction_id = $2, updated_at = NOW() WHERE id = $1`
	tag, err := q.Exec(ctx, query, incomeID, transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIncomeNotFound
	}
	return nil
}
