package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

// The offer and operator catalogs are owned by an external admin service; the
// ledger only ever reads them.

type pgOfferRepository struct{}

func NewPgOfferRepository() repository.OfferRepository {
	return &pgOfferRepository{}
}

const offerColumns = `id, title, description, operator_code, offer_type, price, discount_amount, actual_price, validity_days, is_active, is_deleted, created_at`

func (r *pgOfferRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.Offer, error) {
	o := &domain.Offer{}
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`
	err := q.QueryRow(ctx, query, id).Scan(&o.ID, &o.Title, &o.Description, &o.OperatorCode,
		&o.OfferType, &o.Price, &o.DiscountAmount, &o.ActualPrice, &o.ValidityDays,
		&o.IsActive, &o.IsDeleted, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOfferNotAvailable
		}
		return nil, err
	}
	return o, nil
}

func (r *pgOfferRepository) ListActive(ctx context.Context, q repository.Querier) ([]domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE is_active AND NOT is_deleted ORDER BY created_at DESC`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Offer
	for rows.Next() {
		var o domain.Offer
		if err := rows.Scan(&o.ID, &o.Title, &o.Description, &o.OperatorCode,
			&o.OfferType, &o.Price, &o.DiscountAmount, &o.ActualPrice, &o.ValidityDays,
			&o.IsActive, &o.IsDeleted, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type pgOperatorRepository struct{}

func NewPgOperatorRepository() repository.OperatorRepository {
	return &pgOperatorRepository{}
}

func (r *pgOperatorRepository) GetByCode(ctx context.Context, q repository.Querier, code string) (*domain.RechargeOperator, error) {
	op := &domain.RechargeOperator{}
	query := `SELECT id, name, code, is_active FROM recharge_operators WHERE code = $1`
	err := q.QueryRow(ctx, query, code).Scan(&op.ID, &op.Name, &op.Code, &op.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOperatorNotAvailable
		}
		return nil, err
	}
	return op, nil
}

func (r *pgOperatorRepository) ListActive(ctx context.Context, q repository.Querier) ([]domain.RechargeOperator, error) {
	query := `SELECT id, name, code, is_active FROM recharge_operators WHERE is_active ORDER BY name`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RechargeOperator
	for rows.Next() {
		var op domain.RechargeOperator
		if err := rows.Scan(&op.ID, &op.Name, &op.Code, &op.IsActive); err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// pgAccountDirectory resolves phone numbers against the accounts table kept in
// sync by the external identity provider.
type pgAccountDirectory struct{}

func NewPgAccountDirectory() repository.AccountDirectory {
	return &pgAccountDirectory{}
}

func (r *pgAccountDirectory) ResolveByPhone(ctx context.Context, q repository.Querier, phoneNumber string) (string, error) {
	var accountID string
	err := q.QueryRow(ctx, `SELECT id FROM accounts WHERE phone_number = $1 AND NOT is_deleted`, phoneNumber).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrAccountNotFound
		}
		return "", err
	}
	return accountID, nil
}
