package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

type pgRechargeRequestRepository struct{}

func NewPgRechargeRequestRepository() repository.RechargeRequestRepository {
	return &pgRechargeRequestRepository{}
}

const rechargeColumns = `id, account_id, operator_code, phone_number, amount, status, message, transaction_id, created_at, updated_at`

func scanRechargeRequest(row pgx.Row) (*domain.RechargeRequest, error) {
	rr := &domain.RechargeRequest{}
	err := row.Scan(&rr.ID, &rr.AccountID, &rr.OperatorCode, &rr.PhoneNumber, &rr.Amount,
		&rr.Status, &rr.Message, &rr.TransactionID, &rr.CreatedAt, &rr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return rr, nil
}

func (r *pgRechargeRequestRepository) Create(ctx context.Context, q repository.Querier, req *domain.RechargeRequest) (*domain.RechargeRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = domain.RequestStatusPending
	}

	query := `
		INSERT INTO recharge_requests (id, account_id, operator_code, phone_number, amount, status, message, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.Exec(ctx, query,
		req.ID, req.AccountID, req.OperatorCode, req.PhoneNumber, req.Amount,
		req.Status, req.Message, req.TransactionID, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *pgRechargeRequestRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.RechargeRequest, error) {
	query := `SELECT ` + rechargeColumns + ` FROM recharge_requests WHERE id = $1`
	return scanRechargeRequest(q.QueryRow(ctx, query, id))
}

func (r *pgRechargeRequestRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.RechargeRequest, error) {
	query := `SELECT ` + rechargeColumns + ` FROM recharge_requests WHERE id = $1 FOR UPDATE`
	return scanRechargeRequest(q.QueryRow(ctx, query, id))
}

func (r *pgRechargeRequestRepository) MarkReconciled(ctx context.Context, q repository.Querier, id string, status domain.RequestStatus, message string) error {
	query := `
		UPDATE recharge_requests
		SET status = $2, message = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := q.Exec(ctx, query, id, status, message)
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

func (r *pgRechargeRequestRepository) ListByAccount(ctx context.Context, q repository.Querier, accountID string) ([]domain.RechargeRequest, error) {
	query := `SELECT ` + rechargeColumns + ` FROM recharge_requests WHERE account_id = $1 ORDER BY created_at DESC`
	rows, err := q.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RechargeRequest
	for rows.Next() {
		var rr domain.RechargeRequest
		if err := rows.Scan(&rr.ID, &rr.AccountID, &rr.OperatorCode, &rr.PhoneNumber, &rr.Amount,
			&rr.Status, &rr.Message, &rr.TransactionID, &rr.CreatedAt, &rr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}
