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

type pgPurchaseRequestRepository struct{}

func NewPgPurchaseRequestRepository() repository.PurchaseRequestRepository {
	return &pgPurchaseRequestRepository{}
}

const purchaseColumns = `id, account_id, offer_id, phone_number, amount, region, status, admin_note, transaction_id, processed_at, processed_by, created_at, updated_at`

func scanPurchaseRequest(row pgx.Row) (*domain.PurchaseRequest, error) {
	p := &domain.PurchaseRequest{}
	err := row.Scan(&p.ID, &p.AccountID, &p.OfferID, &p.PhoneNumber, &p.Amount, &p.Region,
		&p.Status, &p.AdminNote, &p.TransactionID, &p.ProcessedAt, &p.ProcessedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *pgPurchaseRequestRepository) Create(ctx context.Context, q repository.Querier, req *domain.PurchaseRequest) (*domain.PurchaseRequest, error) {
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
		INSERT INTO purchase_requests (id, account_id, offer_id, phone_number, amount, region, status, admin_note, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.Exec(ctx, query,
		req.ID, req.AccountID, req.OfferID, req.PhoneNumber, req.Amount, req.Region,
		req.Status, req.AdminNote, req.TransactionID, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *pgPurchaseRequestRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.PurchaseRequest, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchase_requests WHERE id = $1`
	return scanPurchaseRequest(q.QueryRow(ctx, query, id))
}

func (r *pgPurchaseRequestRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.PurchaseRequest, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchase_requests WHERE id = $1 FOR UPDATE`
	return scanPurchaseRequest(q.QueryRow(ctx, query, id))
}

func (r *pgPurchaseRequestRepository) MarkProcessed(ctx context.Context, q repository.Querier, id string, status domain.RequestStatus, actor, note string) error {
	query := `
		UPDATE purchase_requests
		SET status = $2, processed_by = $3, admin_note = $4, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := q.Exec(ctx, query, id, status, actor, note)
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

func (r *pgPurchaseRequestRepository) ListByAccount(ctx context.Context, q repository.Querier, accountID string, status domain.RequestStatus) ([]domain.PurchaseRequest, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchase_requests WHERE account_id = $1`
	args := []any{accountID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PurchaseRequest
	for rows.Next() {
		var p domain.PurchaseRequest
		if err := rows.Scan(&p.ID, &p.AccountID, &p.OfferID, &p.PhoneNumber, &p.Amount, &p.Region,
			&p.Status, &p.AdminNote, &p.TransactionID, &p.ProcessedAt, &p.ProcessedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
