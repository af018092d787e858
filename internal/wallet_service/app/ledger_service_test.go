package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
)

type ledgerTestComponents struct {
	service  *LedgerService
	wallets  *MockWalletRepository
	txns     *MockTransactionRepository
	accounts *MockAccountDirectory
}

func setupLedgerTest(t *testing.T) ledgerTestComponents {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wallets := new(MockWalletRepository)
	txns := new(MockTransactionRepository)
	accounts := new(MockAccountDirectory)

	service := NewLedgerService(nil, &fakeTxRunner{}, wallets, txns, accounts, logger)
	return ledgerTestComponents{service: service, wallets: wallets, txns: txns, accounts: accounts}
}

func TestLedgerService_ApplyDelta_CreditSuccess(t *testing.T) {
	comps := setupLedgerTest(t)
	wallet := &domain.Wallet{ID: "wal-1", AccountID: "acc-1", Balance: 500}

	comps.wallets.On("GetByAccountID", mock.Anything, mock.Anything, "acc-1").Return(wallet, nil).Once()
	comps.wallets.On("Credit", mock.Anything, mock.Anything, "wal-1", int64(1000)).Return(int64(1500), nil).Once()
	comps.txns.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(txn *domain.Transaction) bool {
		return txn.WalletID == "wal-1" &&
			txn.Amount == 1000 &&
			txn.Type == domain.TransactionTypeCredit &&
			txn.Status == domain.TransactionStatusCompleted &&
			txn.Reference == "TOPUP-1"
	})).Return(&domain.Transaction{ID: "txn-1", Reference: "TOPUP-1"}, nil).Once()
	comps.wallets.On("SetLastTransaction", mock.Anything, mock.Anything, "wal-1", "txn-1").Return(nil).Once()

	txn, err := comps.service.ApplyDelta(context.Background(), ApplyDeltaInput{
		AccountID: "acc-1",
		Amount:    1000,
		Direction: domain.TransactionTypeCredit,
		Reference: "TOPUP-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "txn-1", txn.ID)
	comps.wallets.AssertExpectations(t)
	comps.txns.AssertExpectations(t)
}

func TestLedgerService_ApplyDelta_DebitInsufficientFunds(t *testing.T) {
	comps := setupLedgerTest(t)
	wallet := &domain.Wallet{ID: "wal-1", AccountID: "acc-1", Balance: 100}

	comps.wallets.On("GetByAccountID", mock.Anything, mock.Anything, "acc-1").Return(wallet, nil).Once()
	comps.wallets.On("DebitIfSufficient", mock.Anything, mock.Anything, "wal-1", int64(500)).
		Return(int64(0), domain.ErrInsufficientFunds).Once()

	_, err := comps.service.ApplyDelta(context.Background(), ApplyDeltaInput{
		AccountID: "acc-1",
		Amount:    500,
		Direction: domain.TransactionTypeDebit,
		Reference: "BILL-1",
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	comps.txns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	comps.wallets.AssertExpectations(t)
}

func TestLedgerService_ApplyDelta_DuplicateReference(t *testing.T) {
	comps := setupLedgerTest(t)
	wallet := &domain.Wallet{ID: "wal-1", AccountID: "acc-1", Balance: 1000}

	comps.wallets.On("GetByAccountID", mock.Anything, mock.Anything, "acc-1").Return(wallet, nil).Once()
	comps.wallets.On("DebitIfSufficient", mock.Anything, mock.Anything, "wal-1", int64(200)).Return(int64(800), nil).Once()
	comps.txns.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrDuplicateReference).Once()

	_, err := comps.service.ApplyDelta(context.Background(), ApplyDeltaInput{
		AccountID: "acc-1",
		Amount:    200,
		Direction: domain.TransactionTypeDebit,
		Reference: "BILL-1",
	})

	assert.ErrorIs(t, err, domain.ErrDuplicateReference)
	comps.wallets.AssertNotCalled(t, "SetLastTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_ApplyDelta_RejectsInvalidInput(t *testing.T) {
	comps := setupLedgerTest(t)

	_, err := comps.service.ApplyDelta(context.Background(), ApplyDeltaInput{
		AccountID: "acc-1",
		Amount:    0,
		Direction: domain.TransactionTypeCredit,
		Reference: "X-1",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = comps.service.ApplyDelta(context.Background(), ApplyDeltaInput{
		AccountID: "acc-1",
		Amount:    100,
		Direction: domain.TransactionTypeCredit,
	})
	assert.Error(t, err)

	comps.wallets.AssertNotCalled(t, "GetByAccountID", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_GetTransactionByReference_AfterConflict(t *testing.T) {
	comps := setupLedgerTest(t)
	wallet := &domain.Wallet{ID: "wal-1", AccountID: "acc-1", Balance: 1000}
	applied := &domain.Transaction{ID: "txn-1", AccountID: "acc-1", Reference: "BILL-1"}

	comps.wallets.On("GetByAccountID", mock.Anything, mock.Anything, "acc-1").Return(wallet, nil).Once()
	comps.wallets.On("DebitIfSufficient", mock.Anything, mock.Anything, "wal-1", int64(200)).Return(int64(800), nil).Once()
	comps.txns.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrDuplicateReference).Once()
	comps.txns.On("GetByReference", mock.Anything, mock.Anything, "BILL-1").Return(applied, nil).Once()

	// A retried reference conflicts; the caller polls for the result that was
	// already applied instead of retrying the mutation.
	_, err := comps.service.ApplyDelta(context.Background(), ApplyDeltaInput{
		AccountID: "acc-1",
		Amount:    200,
		Direction: domain.TransactionTypeDebit,
		Reference: "BILL-1",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateReference)

	txn, err := comps.service.GetTransactionByReference(context.Background(), "BILL-1")
	assert.NoError(t, err)
	assert.Equal(t, "txn-1", txn.ID)
	comps.txns.AssertExpectations(t)
}

func TestLedgerService_Transfer_Success(t *testing.T) {
	comps := setupLedgerTest(t)
	senderWallet := &domain.Wallet{ID: "wal-1", AccountID: "acc-1", Balance: 5000}
	recipientWallet := &domain.Wallet{ID: "wal-2", AccountID: "acc-2", Balance: 0}

	comps.accounts.On("ResolveByPhone", mock.Anything, mock.Anything, "+8801700000000").Return("acc-2", nil).Once()
	comps.wallets.On("GetByAccountID", mock.Anything, mock.Anything, "acc-1").Return(senderWallet, nil).Once()
	comps.wallets.On("DebitIfSufficient", mock.Anything, mock.Anything, "wal-1", int64(1500)).Return(int64(3500), nil).Once()
	comps.txns.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(txn *domain.Transaction) bool {
		return txn.WalletID == "wal-1" && txn.Type == domain.TransactionTypeDebit && txn.Reference == "TRF-9"
	})).Return(&domain.Transaction{ID: "txn-out", Reference: "TRF-9"}, nil).Once()
	comps.wallets.On("SetLastTransaction", mock.Anything, mock.Anything, "wal-1", "txn-out").Return(nil).Once()

	comps.wallets.On("EnsureWallet", mock.Anything, mock.Anything, "acc-2").Return(recipientWallet, nil).Once()
	comps.wallets.On("Credit", mock.Anything, mock.Anything, "wal-2", int64(1500)).Return(int64(1500), nil).Once()
	comps.txns.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(txn *domain.Transaction) bool {
		return txn.WalletID == "wal-2" && txn.Type == domain.TransactionTypeCredit && txn.Reference == "TRF-9:credit"
	})).Return(&domain.Transaction{ID: "txn-in", Reference: "TRF-9:credit"}, nil).Once()
	comps.wallets.On("SetLastTransaction", mock.Anything, mock.Anything, "wal-2", "txn-in").Return(nil).Once()

	txn, err := comps.service.Transfer(context.Background(), TransferInput{
		FromAccountID: "acc-1",
		ToPhoneNumber: "+8801700000000",
		Amount:        1500,
		Reference:     "TRF-9",
	})

	assert.NoError(t, err)
	assert.Equal(t, "txn-out", txn.ID)
	comps.wallets.AssertExpectations(t)
	comps.txns.AssertExpectations(t)
	comps.accounts.AssertExpectations(t)
}

func TestLedgerService_Transfer_SelfTransferRejected(t *testing.T) {
	comps := setupLedgerTest(t)

	comps.accounts.On("ResolveByPhone", mock.Anything, mock.Anything, "+8801700000000").Return("acc-1", nil).Once()

	_, err := comps.service.Transfer(context.Background(), TransferInput{
		FromAccountID: "acc-1",
		ToPhoneNumber: "+8801700000000",
		Amount:        100,
		Reference:     "TRF-1",
	})

	assert.ErrorIs(t, err, domain.ErrSelfTransfer)
	comps.wallets.AssertNotCalled(t, "GetByAccountID", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_Transfer_RecipientUnknown(t *testing.T) {
	comps := setupLedgerTest(t)

	comps.accounts.On("ResolveByPhone", mock.Anything, mock.Anything, "+8801711111111").
		Return("", domain.ErrAccountNotFound).Once()

	_, err := comps.service.Transfer(context.Background(), TransferInput{
		FromAccountID: "acc-1",
		ToPhoneNumber: "+8801711111111",
		Amount:        100,
		Reference:     "TRF-2",
	})

	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestLedgerService_Transfer_CreditFailureRollsBackDebit(t *testing.T) {
	comps := setupLedgerTest(t)
	senderWallet := &domain.Wallet{ID: "wal-1", AccountID: "acc-1", Balance: 5000}
	recipientWallet := &domain.Wallet{ID: "wal-2", AccountID: "acc-2", Balance: 0}

	comps.accounts.On("ResolveByPhone", mock.Anything, mock.Anything, "+8801700000000").Return("acc-2", nil).Once()
	comps.wallets.On("GetByAccountID", mock.Anything, mock.Anything, "acc-1").Return(senderWallet, nil).Once()
	comps.wallets.On("DebitIfSufficient", mock.Anything, mock.Anything, "wal-1", int64(1500)).Return(int64(3500), nil).Once()
	comps.txns.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Transaction{ID: "txn-out"}, nil).Once()
	comps.wallets.On("SetLastTransaction", mock.Anything, mock.Anything, "wal-1", "txn-out").Return(nil).Once()

	// Fault injected between the debit and credit legs: the recipient credit
	// fails after the sender's debit already ran. The error must surface out of
	// the transaction scope so the debit rolls back with everything else.
	comps.wallets.On("EnsureWallet", mock.Anything, mock.Anything, "acc-2").Return(recipientWallet, nil).Once()
	creditErr := errors.New("connection reset")
	comps.wallets.On("Credit", mock.Anything, mock.Anything, "wal-2", int64(1500)).
		Return(int64(0), creditErr).Once()

	txn, err := comps.service.Transfer(context.Background(), TransferInput{
		FromAccountID: "acc-1",
		ToPhoneNumber: "+8801700000000",
		Amount:        1500,
		Reference:     "TRF-8",
	})

	assert.ErrorIs(t, err, creditErr)
	assert.Nil(t, txn)
	comps.txns.AssertNumberOfCalls(t, "Create", 1)
	comps.wallets.AssertExpectations(t)
}

func TestLedgerService_Transfer_InsufficientFundsStopsBothLegs(t *testing.T) {
	comps := setupLedgerTest(t)
	senderWallet := &domain.Wallet{ID: "wal-1", AccountID: "acc-1", Balance: 100}

	comps.accounts.On("ResolveByPhone", mock.Anything, mock.Anything, "+8801700000000").Return("acc-2", nil).Once()
	comps.wallets.On("GetByAccountID", mock.Anything, mock.Anything, "acc-1").Return(senderWallet, nil).Once()
	comps.wallets.On("DebitIfSufficient", mock.Anything, mock.Anything, "wal-1", int64(1500)).
		Return(int64(0), domain.ErrInsufficientFunds).Once()

	_, err := comps.service.Transfer(context.Background(), TransferInput{
		FromAccountID: "acc-1",
		ToPhoneNumber: "+8801700000000",
		Amount:        1500,
		Reference:     "TRF-3",
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	comps.wallets.AssertNotCalled(t, "EnsureWallet", mock.Anything, mock.Anything, mock.Anything)
	comps.wallets.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
