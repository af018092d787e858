package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

// IncomeService accrues referral and shopping earnings. Earnings live in their
// own buckets beside the wallet and are only spendable through an income
// withdrawal.
type IncomeService struct {
	runner  repository.TxRunner
	db      repository.Querier
	incomes repository.IncomeRepository
	txns    repository.TransactionRepository
	wallets repository.WalletRepository
	logger  *slog.Logger
}

func NewIncomeService(
	runner repository.TxRunner,
	db repository.Querier,
	incomes repository.IncomeRepository,
	txns repository.TransactionRepository,
	wallets repository.WalletRepository,
	logger *slog.Logger,
) *IncomeService {
	return &IncomeService{
		runner:  runner,
		db:      db,
		incomes: incomes,
		txns:    txns,
		wallets: wallets,
		logger:  logger.With("service", "income"),
	}
}

// Accrue credits an earnings bucket and records the transaction atomically.
// The income row is lazily provisioned on first accrual.
func (s *IncomeService) Accrue(ctx context.Context, accountID string, source domain.IncomeSource, amount int64) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !source.Valid() {
		return nil, fmt.Errorf("unknown income source %q", source)
	}

	var txn *domain.Transaction
	err := s.runner.InTx(ctx, func(q repository.Querier) error {
		income, err := s.incomes.EnsureIncome(ctx, q, accountID)
		if err != nil {
			return err
		}
		if _, err := s.incomes.Accrue(ctx, q, income.ID, source, amount); err != nil {
			return err
		}
		wallet, err := s.wallets.EnsureWallet(ctx, q, accountID)
		if err != nil {
			return err
		}
		txn, err = s.txns.Create(ctx, q, &domain.Transaction{
			AccountID:   accountID,
			WalletID:    wallet.ID,
			Amount:      amount,
			Type:        domain.TransactionTypeCredit,
			Status:      domain.TransactionStatusCompleted,
			Description: fmt.Sprintf("Income from %s", source),
			Reference:   "INC-" + uuid.NewString(),
			Metadata:    map[string]string{"source": string(source)},
		})
		if err != nil {
			return err
		}
		return s.incomes.SetLastTransaction(ctx, q, income.ID, txn.ID)
	})
	if err != nil {
		ledgerOpsCounter.WithLabelValues("income_accrue", "error").Inc()
		return nil, err
	}
	ledgerOpsCounter.WithLabelValues("income_accrue", "ok").Inc()

	s.logger.InfoContext(ctx, "Income accrued", "account_id", accountID, "source", source, "amount", amount)
	return txn, nil
}

// GetIncome returns the earnings buckets for an account.
func (s *IncomeService) GetIncome(ctx context.Context, accountID string) (*domain.Income, error) {
	return s.incomes.GetByAccountID(ctx, s.db, accountID)
}
