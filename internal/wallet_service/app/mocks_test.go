package app

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/telcocash/walletd/internal/platform/messagebroker"
	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

// fakeTxRunner executes the scope function directly; rollback semantics are
// covered by asserting that errors propagate and later calls never happen.
type fakeTxRunner struct {
	beginErr error
}

func (f *fakeTxRunner) InTx(ctx context.Context, fn func(q repository.Querier) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(nil)
}

// --- Repository mocks ---

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetByAccountID(ctx context.Context, q repository.Querier, accountID string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) EnsureWallet(ctx context.Context, q repository.Querier, accountID string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Credit(ctx context.Context, q repository.Querier, walletID string, amount int64) (int64, error) {
	args := m.Called(ctx, q, walletID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepository) DebitIfSufficient(ctx context.Context, q repository.Querier, walletID string, amount int64) (int64, error) {
	args := m.Called(ctx, q, walletID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepository) SetLastTransaction(ctx context.Context, q repository.Querier, walletID, transactionID string) error {
	args := m.Called(ctx, q, walletID, transactionID)
	return args.Error(0)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, q repository.Querier, txn *domain.Transaction) (*domain.Transaction, error) {
	args := m.Called(ctx, q, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.Transaction, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, q repository.Querier, reference string) (*domain.Transaction, error) {
	args := m.Called(ctx, q, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, q repository.Querier, id string, status domain.TransactionStatus) error {
	args := m.Called(ctx, q, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByWallet(ctx context.Context, q repository.Querier, walletID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	args := m.Called(ctx, q, walletID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Transaction), args.Int(1), args.Error(2)
}

type MockAccountDirectory struct {
	mock.Mock
}

func (m *MockAccountDirectory) ResolveByPhone(ctx context.Context, q repository.Querier, phoneNumber string) (string, error) {
	args := m.Called(ctx, q, phoneNumber)
	return args.String(0), args.Error(1)
}

type MockPurchaseRequestRepository struct {
	mock.Mock
}

func (m *MockPurchaseRequestRepository) Create(ctx context.Context, q repository.Querier, req *domain.PurchaseRequest) (*domain.PurchaseRequest, error) {
	args := m.Called(ctx, q, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseRequest), args.Error(1)
}

func (m *MockPurchaseRequestRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.PurchaseRequest, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseRequest), args.Error(1)
}

func (m *MockPurchaseRequestRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.PurchaseRequest, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseRequest), args.Error(1)
}

func (m *MockPurchaseRequestRepository) MarkProcessed(ctx context.Context, q repository.Querier, id string, status domain.RequestStatus, actor, note string) error {
	args := m.Called(ctx, q, id, status, actor, note)
	return args.Error(0)
}

func (m *MockPurchaseRequestRepository) ListByAccount(ctx context.Context, q repository.Querier, accountID string, status domain.RequestStatus) ([]domain.PurchaseRequest, error) {
	args := m.Called(ctx, q, accountID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PurchaseRequest), args.Error(1)
}

type MockRechargeRequestRepository struct {
	mock.Mock
}

func (m *MockRechargeRequestRepository) Create(ctx context.Context, q repository.Querier, req *domain.RechargeRequest) (*domain.RechargeRequest, error) {
	args := m.Called(ctx, q, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RechargeRequest), args.Error(1)
}

func (m *MockRechargeRequestRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.RechargeRequest, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RechargeRequest), args.Error(1)
}

func (m *MockRechargeRequestRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.RechargeRequest, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RechargeRequest), args.Error(1)
}

func (m *MockRechargeRequestRepository) MarkReconciled(ctx context.Context, q repository.Querier, id string, status domain.RequestStatus, message string) error {
	args := m.Called(ctx, q, id, status, message)
	return args.Error(0)
}

func (m *MockRechargeRequestRepository) ListByAccount(ctx context.Context, q repository.Querier, accountID string) ([]domain.RechargeRequest, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RechargeRequest), args.Error(1)
}

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, q repository.Querier, w *domain.Withdrawal) (*domain.Withdrawal, error) {
	args := m.Called(ctx, q, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.Withdrawal, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.Withdrawal, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) UpdateStatus(ctx context.Context, q repository.Querier, id string, status domain.WithdrawalStatus, actor string) error {
	args := m.Called(ctx, q, id, status, actor)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) ListByAccount(ctx context.Context, q repository.Querier, accountID string) ([]domain.Withdrawal, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) List(ctx context.Context, q repository.Querier, filter domain.WithdrawalFilter) ([]domain.Withdrawal, int, error) {
	args := m.Called(ctx, q, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Withdrawal), args.Int(1), args.Error(2)
}

type MockIncomeRepository struct {
	mock.Mock
}

func (m *MockIncomeRepository) GetByAccountID(ctx context.Context, q repository.Querier, accountID string) (*domain.Income, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Income), args.Error(1)
}

func (m *MockIncomeRepository) EnsureIncome(ctx context.Context, q repository.Querier, accountID string) (*domain.Income, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Income), args.Error(1)
}

func (m *MockIncomeRepository) Accrue(ctx context.Context, q repository.Querier, incomeID string, source domain.IncomeSource, amount int64) (int64, error) {
	args := m.Called(ctx, q, incomeID, source, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockIncomeRepository) DebitIfSufficient(ctx context.Context, q repository.Querier, incomeID string, amount int64) (int64, error) {
	args := m.Called(ctx, q, incomeID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockIncomeRepository) SetLastTransaction(ctx context.Context, q repository.Querier, incomeID, transactionID string) error {
	args := m.Called(ctx, q, incomeID, transactionID)
	return args.Error(0)
}

type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.Offer, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockOfferRepository) ListActive(ctx context.Context, q repository.Querier) ([]domain.Offer, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Offer), args.Error(1)
}

type MockOperatorRepository struct {
	mock.Mock
}

func (m *MockOperatorRepository) GetByCode(ctx context.Context, q repository.Querier, code string) (*domain.RechargeOperator, error) {
	args := m.Called(ctx, q, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RechargeOperator), args.Error(1)
}

func (m *MockOperatorRepository) ListActive(ctx context.Context, q repository.Querier) ([]domain.RechargeOperator, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RechargeOperator), args.Error(1)
}

// --- Broker mocks ---

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, accountID, title, body string, data map[string]string) error {
	args := m.Called(ctx, accountID, title, body, data)
	return args.Error(0)
}

type MockQueueMessage struct {
	mock.Mock
	payload []byte
}

func (m *MockQueueMessage) Data() []byte { return m.payload }

func (m *MockQueueMessage) Ack() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockQueueMessage) Nak(delay time.Duration) error {
	args := m.Called(delay)
	return args.Error(0)
}

var _ messagebroker.QueueMessage = (*MockQueueMessage)(nil)
