package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

// LedgerService owns every balance mutation. The wallet row is the unit of
// mutual exclusion: all changes go through the conditional-update primitive
// inside one transaction scope, never an unguarded read-modify-write pair.
type LedgerService struct {
	db           repository.Querier
	runner       repository.TxRunner
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	accounts     repository.AccountDirectory
	logger       *slog.Logger
}

func NewLedgerService(
	db repository.Querier,
	runner repository.TxRunner,
	wallets repository.WalletRepository,
	transactions repository.TransactionRepository,
	accounts repository.AccountDirectory,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		db:           db,
		runner:       runner,
		wallets:      wallets,
		transactions: transactions,
		accounts:     accounts,
		logger:       logger.With("service", "ledger"),
	}
}

// ApplyDeltaInput describes one balance change. Amount is a positive
// magnitude; Reference must be globally unique and doubles as the idempotency
// key.
type ApplyDeltaInput struct {
	AccountID   string
	Amount      int64
	Direction   domain.TransactionType
	Description string
	Reference   string
	Metadata    map[string]string
}

func (in ApplyDeltaInput) validate() error {
	if in.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if in.Direction != domain.TransactionTypeCredit && in.Direction != domain.TransactionTypeDebit {
		return fmt.Errorf("unknown direction %q", in.Direction)
	}
	if in.Reference == "" {
		return errors.New("reference is required")
	}
	return nil
}

// ApplyDelta mutates the wallet balance and records the transaction in one
// atomic scope. A debit that fails its balance guard returns
// ErrInsufficientFunds with no mutation; a duplicate reference returns
// ErrDuplicateReference and rolls back the balance write.
func (s *LedgerService) ApplyDelta(ctx context.Context, in ApplyDeltaInput) (*domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var txn *domain.Transaction
	err := s.runner.InTx(ctx, func(q repository.Querier) error {
		var err error
		txn, err = s.applyDelta(ctx, q, in, domain.TransactionStatusCompleted)
		return err
	})
	s.countOp("apply_delta", err)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// applyDelta runs inside the caller's transaction scope so workflows can bundle
// the mutation with their own records. The amount guard lives here too: a
// zero-priced offer or request must fail as invalid input, not as a database
// constraint violation.
func (s *LedgerService) applyDelta(ctx context.Context, q repository.Querier, in ApplyDeltaInput, status domain.TransactionStatus) (*domain.Transaction, error) {
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	wallet, err := s.wallets.GetByAccountID(ctx, q, in.AccountID)
	if err != nil {
		return nil, err
	}

	if in.Direction == domain.TransactionTypeDebit {
		if _, err := s.wallets.DebitIfSufficient(ctx, q, wallet.ID, in.Amount); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.wallets.Credit(ctx, q, wallet.ID, in.Amount); err != nil {
			return nil, err
		}
	}

	txn, err := s.transactions.Create(ctx, q, &domain.Transaction{
		AccountID:   in.AccountID,
		WalletID:    wallet.ID,
		Amount:      in.Amount,
		Type:        in.Direction,
		Status:      status,
		Description: in.Description,
		Reference:   in.Reference,
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	if err := s.wallets.SetLastTransaction(ctx, q, wallet.ID, txn.ID); err != nil {
		return nil, err
	}
	return txn, nil
}

// TransferInput moves funds between two accounts. The recipient is resolved by
// phone number and lazily provisioned with a zero-balance wallet.
type TransferInput struct {
	FromAccountID string
	ToPhoneNumber string
	Amount        int64
	Reference     string
}

// Transfer debits the sender and credits the recipient with all-or-nothing
// semantics; both legs and both transaction records share one atomic scope.
// The sender-side transaction is returned; the recipient-side record is a side
// effect carrying a derived reference.
func (s *LedgerService) Transfer(ctx context.Context, in TransferInput) (*domain.Transaction, error) {
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if in.Reference == "" {
		return nil, errors.New("reference is required")
	}

	var senderTxn *domain.Transaction
	err := s.runner.InTx(ctx, func(q repository.Querier) error {
		toAccountID, err := s.accounts.ResolveByPhone(ctx, q, in.ToPhoneNumber)
		if err != nil {
			return err
		}
		if toAccountID == in.FromAccountID {
			return domain.ErrSelfTransfer
		}

		senderTxn, err = s.applyDelta(ctx, q, ApplyDeltaInput{
			AccountID:   in.FromAccountID,
			Amount:      in.Amount,
			Direction:   domain.TransactionTypeDebit,
			Description: fmt.Sprintf("Transfer to %s", in.ToPhoneNumber),
			Reference:   in.Reference,
			Metadata:    map[string]string{"recipient_account_id": toAccountID},
		}, domain.TransactionStatusCompleted)
		if err != nil {
			return err
		}

		recipientWallet, err := s.wallets.EnsureWallet(ctx, q, toAccountID)
		if err != nil {
			return err
		}
		if _, err := s.wallets.Credit(ctx, q, recipientWallet.ID, in.Amount); err != nil {
			return err
		}
		// The reference column is unique across all transactions, so the
		// recipient leg gets a derived one.
		recipientTxn, err := s.transactions.Create(ctx, q, &domain.Transaction{
			AccountID:   toAccountID,
			WalletID:    recipientWallet.ID,
			Amount:      in.Amount,
			Type:        domain.TransactionTypeCredit,
			Status:      domain.TransactionStatusCompleted,
			Description: "Transfer received",
			Reference:   in.Reference + ":credit",
			Metadata:    map[string]string{"sender_account_id": in.FromAccountID},
		})
		if err != nil {
			return err
		}
		return s.wallets.SetLastTransaction(ctx, q, recipientWallet.ID, recipientTxn.ID)
	})
	s.countOp("transfer", err)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Transfer completed",
		"from_account_id", in.FromAccountID, "amount", in.Amount, "reference", in.Reference)
	return senderTxn, nil
}

// GetWallet returns the wallet for an account.
func (s *LedgerService) GetWallet(ctx context.Context, accountID string) (*domain.Wallet, error) {
	return s.wallets.GetByAccountID(ctx, s.db, accountID)
}

// GetTransactionByReference looks up the already-applied result for a
// conflicting reference.
func (s *LedgerService) GetTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return s.transactions.GetByReference(ctx, s.db, reference)
}

// ListTransactions returns a page of wallet history plus the total count.
func (s *LedgerService) ListTransactions(ctx context.Context, accountID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	wallet, err := s.wallets.GetByAccountID(ctx, s.db, accountID)
	if err != nil {
		return nil, 0, err
	}
	return s.transactions.ListByWallet(ctx, s.db, wallet.ID, filter)
}

func (s *LedgerService) countOp(op string, err error) {
	switch {
	case err == nil:
		ledgerOpsCounter.WithLabelValues(op, "ok").Inc()
	case errors.Is(err, domain.ErrInsufficientFunds):
		ledgerOpsCounter.WithLabelValues(op, "insufficient_funds").Inc()
	case errors.Is(err, domain.ErrDuplicateReference):
		ledgerOpsCounter.WithLabelValues(op, "conflict").Inc()
	default:
		ledgerOpsCounter.WithLabelValues(op, "error").Inc()
	}
}
