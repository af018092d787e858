package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

type pgWithdrawalRepository struct{}

func NewPgWithdrawalRepository() repository.WithdrawalRepository {
	return &pgWithdrawalRepository{}
}

const withdrawalColumns = `id, account_id, amount, method, source, status,
	mobile_operator, mobile_number, bank_name, bank_branch_name, bank_account_number, account_holder_name,
	transaction_id, processed_at, processed_by, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	w := &domain.Withdrawal{}
	err := row.Scan(&w.ID, &w.AccountID, &w.Amount, &w.Method, &w.Source, &w.Status,
		&w.MobileOperator, &w.MobileNumber, &w.BankName, &w.BankBranchName, &w.BankAccountNumber, &w.AccountHolderName,
		&w.TransactionID, &w.ProcessedAt, &w.ProcessedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *pgWithdrawalRepository) Create(ctx context.Context, q repository.Querier, w *domain.Withdrawal) (*domain.Withdrawal, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	if w.Status == "" {
		w.Status = domain.WithdrawalStatusPending
	}

	query := `
		INSERT INTO withdrawals (id, account_id, amount, method, source, status,
			mobile_operator, mobile_number, bank_name, bank_branch_name, bank_account_number, account_holder_name,
			transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := q.Exec(ctx, query,
		w.ID, w.AccountID, w.Amount, w.Method, w.Source, w.Status,
		w.MobileOperator, w.MobileNumber, w.BankName, w.BankBranchName, w.BankAccountNumber, w.AccountHolderName,
		w.TransactionID, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *pgWithdrawalRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	return scanWithdrawal(q.QueryRow(ctx, query, id))
}

func (r *pgWithdrawalRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 FOR UPDATE`
	return scanWithdrawal(q.QueryRow(ctx, query, id))
}

func (r *pgWithdrawalRepository) UpdateStatus(ctx context.Context, q repository.Querier, id string, status domain.WithdrawalStatus, actor string) error {
	query := `
		UPDATE withdrawals
		SET status = $2, processed_by = $3, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := q.Exec(ctx, query, id, status, actor)
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

func (r *pgWithdrawalRepository) ListByAccount(ctx context.Context, q repository.Querier, accountID string) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE account_id = $1 ORDER BY created_at DESC`
	rows, err := q.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWithdrawals(rows)
}

func (r *pgWithdrawalRepository) List(ctx context.Context, q repository.Querier, filter domain.WithdrawalFilter) ([]domain.Withdrawal, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	where := `WHERE TRUE`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Method != "" {
		args = append(args, filter.Method)
		where += fmt.Sprintf(" AND method = $%d", len(args))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawals `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM withdrawals %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		withdrawalColumns, where, len(args)-1, len(args))
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := collectWithdrawals(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func collectWithdrawals(rows pgx.Rows) ([]domain.Withdrawal, error) {
	var out []domain.Withdrawal
	for rows.Next() {
		var w domain.Withdrawal
		if err := rows.Scan(&w.ID, &w.AccountID, &w.Amount, &w.Method, &w.Source, &w.Status,
			&w.MobileOperator, &w.MobileNumber, &w.BankName, &w.BankBranchName, &w.BankAccountNumber, &w.AccountHolderName,
			&w.TransactionID, &w.ProcessedAt, &w.ProcessedBy, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
