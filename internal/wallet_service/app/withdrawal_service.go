package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

// WithdrawalService handles payout requests against either the wallet balance
// or accumulated income. The debit happens when the request is created, so a
// pending withdrawal can never be spent twice; rejection credits the funds
// back to the source they came from.
type WithdrawalService struct {
	runner      repository.TxRunner
	db          repository.Querier
	ledger      *LedgerService
	withdrawals repository.WithdrawalRepository
	txns        repository.TransactionRepository
	wallets     repository.WalletRepository
	incomes     repository.IncomeRepository
	notifier    Notifier
	logger      *slog.Logger
}

func NewWithdrawalService(
	runner repository.TxRunner,
	db repository.Querier,
	ledger *LedgerService,
	withdrawals repository.WithdrawalRepository,
	txns repository.TransactionRepository,
	wallets repository.WalletRepository,
	incomes repository.IncomeRepository,
	notifier Notifier,
	logger *slog.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		runner:      runner,
		db:          db,
		ledger:      ledger,
		withdrawals: withdrawals,
		txns:        txns,
		wallets:     wallets,
		incomes:     incomes,
		notifier:    notifier,
		logger:      logger.With("service", "withdrawal"),
	}
}

// Request opens a withdrawal and debits the chosen source in the same atomic
// scope. The reservation transaction stays pending until an operator settles
// or rejects the request.
func (s *WithdrawalService) Request(ctx context.Context, w *domain.Withdrawal) (*domain.Withdrawal, error) {
	if w.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if err := w.ValidateDestination(); err != nil {
		return nil, err
	}
	if w.Source != domain.WithdrawalSourceWallet && w.Source != domain.WithdrawalSourceIncome {
		return nil, fmt.Errorf("unknown withdrawal source %q", w.Source)
	}
	w.ID = uuid.NewString()
	w.Status = domain.WithdrawalStatusPending

	var created *domain.Withdrawal
	err := s.runner.InTx(ctx, func(q repository.Querier) error {
		txn, err := s.debitSource(ctx, q, w)
		if err != nil {
			return err
		}
		w.TransactionID = txn.ID
		created, err = s.withdrawals.Create(ctx, q, w)
		return err
	})
	if err != nil {
		ledgerOpsCounter.WithLabelValues("withdrawal_reserve", "error").Inc()
		return nil, err
	}
	ledgerOpsCounter.WithLabelValues("withdrawal_reserve", "ok").Inc()

	s.logger.InfoContext(ctx, "Withdrawal requested",
		"withdrawal_id", created.ID, "account_id", created.AccountID,
		"amount", created.Amount, "source", created.Source)
	return created, nil
}

// debitSource reserves the amount from the wallet or the income buckets. An
// income debit still records its transaction against the account's wallet so
// the trail stays in one place; the income row keeps its own last-transaction
// pointer.
func (s *WithdrawalService) debitSource(ctx context.Context, q repository.Querier, w *domain.Withdrawal) (*domain.Transaction, error) {
	if w.Source == domain.WithdrawalSourceWallet {
		return s.ledger.applyDelta(ctx, q, ApplyDeltaInput{
			AccountID:   w.AccountID,
			Amount:      w.Amount,
			Direction:   domain.TransactionTypeDebit,
			Description: fmt.Sprintf("Withdrawal via %s", w.Method),
			Reference:   "WDR-" + w.ID,
			Metadata:    map[string]string{"withdrawal_id": w.ID, "source": string(w.Source)},
		}, domain.TransactionStatusPending)
	}

	income, err := s.incomes.GetByAccountID(ctx, q, w.AccountID)
	if err != nil {
		return nil, err
	}
	if _, err := s.incomes.DebitIfSufficient(ctx, q, income.ID, w.Amount); err != nil {
		return nil, err
	}
	wallet, err := s.wallets.EnsureWallet(ctx, q, w.AccountID)
	if err != nil {
		return nil, err
	}
	txn, err := s.txns.Create(ctx, q, &domain.Transaction{
		AccountID:   w.AccountID,
		WalletID:    wallet.ID,
		Amount:      w.Amount,
		Type:        domain.TransactionTypeDebit,
		Status:      domain.TransactionStatusPending,
		Description: fmt.Sprintf("Income withdrawal via %s", w.Method),
		Reference:   "WDR-" + w.ID,
		Metadata:    map[string]string{"withdrawal_id": w.ID, "source": string(w.Source)},
	})
	if err != nil {
		return nil, err
	}
	return txn, s.incomes.SetLastTransaction(ctx, q, income.ID, txn.ID)
}

// Settle applies an operator decision to a pending withdrawal. Success marks
// the payout done; rejection refunds the reserved amount to the source it was
// taken from. A withdrawal that already reached a terminal status cannot
// transition again: settling it is an operator mistake, not a replay, and
// fails with ErrInvalidStateTransition.
func (s *WithdrawalService) Settle(ctx context.Context, withdrawalID string, status domain.WithdrawalStatus, actor string) (*domain.Withdrawal, error) {
	if status != domain.WithdrawalStatusSuccess && status != domain.WithdrawalStatusRejected {
		return nil, fmt.Errorf("cannot settle to status %q", status)
	}
	start := time.Now()

	var w *domain.Withdrawal
	err := s.runner.InTx(ctx, func(q repository.Querier) error {
		var err error
		w, err = s.withdrawals.GetByIDForUpdate(ctx, q, withdrawalID)
		if err != nil {
			return err
		}
		if w.Status.Terminal() {
			return domain.ErrInvalidStateTransition
		}

		if err := s.withdrawals.UpdateStatus(ctx, q, withdrawalID, status, actor); err != nil {
			return err
		}
		if status == domain.WithdrawalStatusSuccess {
			return s.txns.UpdateStatus(ctx, q, w.TransactionID, domain.TransactionStatusCompleted)
		}

		if err := s.txns.UpdateStatus(ctx, q, w.TransactionID, domain.TransactionStatusRejected); err != nil {
			return err
		}
		return s.refundSource(ctx, q, w)
	})
	if err != nil {
		reconcileCounter.WithLabelValues("withdrawal", "error").Inc()
		return nil, err
	}
	outcome := "approved"
	if status == domain.WithdrawalStatusRejected {
		outcome = "rejected"
	}
	reconcileCounter.WithLabelValues("withdrawal", outcome).Inc()
	reconcileDurationHist.WithLabelValues("withdrawal").Observe(time.Since(start).Seconds())

	w.Status = status
	s.notifyOutcome(ctx, w)
	return w, nil
}

func (s *WithdrawalService) refundSource(ctx context.Context, q repository.Querier, w *domain.Withdrawal) error {
	if w.Source == domain.WithdrawalSourceWallet {
		_, err := s.ledger.applyDelta(ctx, q, ApplyDeltaInput{
			AccountID:   w.AccountID,
			Amount:      w.Amount,
			Direction:   domain.TransactionTypeCredit,
			Description: "Refund for rejected withdrawal",
			Reference:   "WRF-" + w.ID,
			Metadata:    map[string]string{"withdrawal_id": w.ID},
		}, domain.TransactionStatusCompleted)
		return err
	}

	income, err := s.incomes.GetByAccountID(ctx, q, w.AccountID)
	if err != nil {
		return err
	}
	// Refunds land in the shopping bucket; the original referral/shopping split
	// of the debit is not tracked.
	if _, err := s.incomes.Accrue(ctx, q, income.ID, domain.IncomeSourceShopping, w.Amount); err != nil {
		return err
	}
	wallet, err := s.wallets.EnsureWallet(ctx, q, w.AccountID)
	if err != nil {
		return err
	}
	txn, err := s.txns.Create(ctx, q, &domain.Transaction{
		AccountID:   w.AccountID,
		WalletID:    wallet.ID,
		Amount:      w.Amount,
		Type:        domain.TransactionTypeCredit,
		Status:      domain.TransactionStatusCompleted,
		Description: "Refund for rejected income withdrawal",
		Reference:   "WRF-" + w.ID,
		Metadata:    map[string]string{"withdrawal_id": w.ID},
	})
	if err != nil {
		return err
	}
	return s.incomes.SetLastTransaction(ctx, q, income.ID, txn.ID)
}

func (s *WithdrawalService) notifyOutcome(ctx context.Context, w *domain.Withdrawal) {
	title := "Withdrawal completed"
	body := "Your withdrawal has been paid out."
	if w.Status == domain.WithdrawalStatusRejected {
		title = "Withdrawal rejected"
		body = "Your withdrawal was rejected and the amount credited back."
	}
	if err := s.notifier.Notify(ctx, w.AccountID, title, body, map[string]string{
		"withdrawal_id": w.ID,
		"type":          "withdrawal",
	}); err != nil {
		s.logger.WarnContext(ctx, "Withdrawal notification failed", "withdrawal_id", w.ID, "error", err)
	}
}

// GetWithdrawal returns a single withdrawal.
func (s *WithdrawalService) GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	return s.withdrawals.GetByID(ctx, s.db, id)
}

// ListByAccount returns an account's withdrawals, newest first.
func (s *WithdrawalService) ListByAccount(ctx context.Context, accountID string) ([]domain.Withdrawal, error) {
	return s.withdrawals.ListByAccount(ctx, s.db, accountID)
}

// List returns a filtered page of withdrawals for operator review.
func (s *WithdrawalService) List(ctx context.Context, filter domain.WithdrawalFilter) ([]domain.Withdrawal, int, error) {
	return s.withdrawals.List(ctx, s.db, filter)
}
