package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/telcocash/walletd/internal/platform/messagebroker"
	"github.com/telcocash/walletd/internal/wallet_service/domain"
)

func setupConsumerTest(t *testing.T) (*ReconcileConsumer, rechargeTestComponents) {
	t.Helper()
	comps := setupRechargeTest(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	consumer := NewReconcileConsumer(nil, comps.service, "wallet.recharge.response.v1", "walletd-reconciler", logger)
	return consumer, comps
}

func TestReconcileConsumer_Handle_ApprovedResultIsAcked(t *testing.T) {
	consumer, comps := setupConsumerTest(t)
	pending := &domain.RechargeRequest{
		ID: "req-1", AccountID: "acc-1", Amount: 200,
		Status: domain.RequestStatusPending, TransactionID: "txn-1",
	}

	comps.requests.On("GetByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pending, nil).Once()
	comps.requests.On("MarkReconciled", mock.Anything, mock.Anything, "req-1", domain.RequestStatusApproved, "ok").Return(nil).Once()
	comps.txns.On("UpdateStatus", mock.Anything, mock.Anything, "txn-1", domain.TransactionStatusCompleted).Return(nil).Once()
	comps.notifier.On("Notify", mock.Anything, "acc-1", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	msg := &MockQueueMessage{payload: []byte(`{"request_id":"req-1","status":"approved","message":"ok"}`)}
	msg.On("Ack").Return(nil).Once()

	consumer.handle(context.Background(), msg)

	msg.AssertExpectations(t)
	comps.requests.AssertExpectations(t)
}

func TestReconcileConsumer_Handle_MalformedPayloadIsDropped(t *testing.T) {
	consumer, comps := setupConsumerTest(t)

	msg := &MockQueueMessage{payload: []byte(`not json`)}
	msg.On("Ack").Return(nil).Once()

	consumer.handle(context.Background(), msg)

	msg.AssertExpectations(t)
	msg.AssertNotCalled(t, "Nak", mock.Anything)
	comps.requests.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileConsumer_Handle_UnknownStatusIsDropped(t *testing.T) {
	consumer, comps := setupConsumerTest(t)

	msg := &MockQueueMessage{payload: []byte(`{"request_id":"req-1","status":"maybe"}`)}
	msg.On("Ack").Return(nil).Once()

	consumer.handle(context.Background(), msg)

	msg.AssertExpectations(t)
	comps.requests.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileConsumer_Handle_UnknownRequestIsRequeued(t *testing.T) {
	consumer, comps := setupConsumerTest(t)

	comps.requests.On("GetByIDForUpdate", mock.Anything, mock.Anything, "req-404").
		Return(nil, domain.ErrRequestNotFound).Once()

	msg := &MockQueueMessage{payload: []byte(`{"request_id":"req-404","status":"approved"}`)}
	msg.On("Nak", requeueDelay).Return(nil).Once()

	consumer.handle(context.Background(), msg)

	msg.AssertExpectations(t)
	msg.AssertNotCalled(t, "Ack")
}

func TestReconcileConsumer_Handle_InfraErrorIsRequeued(t *testing.T) {
	consumer, comps := setupConsumerTest(t)

	comps.requests.On("GetByIDForUpdate", mock.Anything, mock.Anything, "req-1").
		Return(nil, errors.New("connection reset")).Once()

	msg := &MockQueueMessage{payload: []byte(`{"request_id":"req-1","status":"rejected"}`)}
	msg.On("Nak", requeueDelay).Return(nil).Once()

	consumer.handle(context.Background(), msg)

	msg.AssertExpectations(t)
	msg.AssertNotCalled(t, "Ack")
}

func TestReconcileConsumer_Handle_TerminalReplayIsAcked(t *testing.T) {
	consumer, comps := setupConsumerTest(t)
	settled := &domain.RechargeRequest{
		ID: "req-1", AccountID: "acc-1", Amount: 200,
		Status: domain.RequestStatusApproved, TransactionID: "txn-1",
	}

	comps.requests.On("GetByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(settled, nil).Once()

	msg := &MockQueueMessage{payload: []byte(`{"request_id":"req-1","status":"approved"}`)}
	msg.On("Ack").Return(nil).Once()

	consumer.handle(context.Background(), msg)

	msg.AssertExpectations(t)
	comps.requests.AssertNotCalled(t, "MarkReconciled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileConsumer_Run_StopsOnContextCancel(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	consumer.subscriber = &failingSubscriber{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := consumer.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingSubscriber struct{}

func (f *failingSubscriber) PullSubscribe(subject, durable string) (messagebroker.QueueSubscription, error) {
	return nil, errors.New("broker unavailable")
}
