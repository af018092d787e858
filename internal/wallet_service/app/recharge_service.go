package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
	"github.com/telcocash/walletd/internal/wallet_service/repository"
)

// RechargeService runs the broker-reconciled recharge workflow. Funds are
// reserved in the same transaction that opens the request; the fulfillment job
// is published only after that commit, and the provider's verdict arrives
// asynchronously on the response queue.
type RechargeService struct {
	runner         repository.TxRunner
	db             repository.Querier
	ledger         *LedgerService
	requests       repository.RechargeRequestRepository
	txns           repository.TransactionRepository
	operators      repository.OperatorRepository
	publisher      Publisher
	requestSubject string
	notifier       Notifier
	logger         *slog.Logger
}

func NewRechargeService(
	runner repository.TxRunner,
	db repository.Querier,
	ledger *LedgerService,
	requests repository.RechargeRequestRepository,
	txns repository.TransactionRepository,
	operators repository.OperatorRepository,
	publisher Publisher,
	requestSubject string,
	notifier Notifier,
	logger *slog.Logger,
) *RechargeService {
	return &RechargeService{
		runner:         runner,
		db:             db,
		ledger:         ledger,
		requests:       requests,
		txns:           txns,
		operators:      operators,
		publisher:      publisher,
		requestSubject: requestSubject,
		notifier:       notifier,
		logger:         logger.With("service", "recharge"),
	}
}

type RechargeInput struct {
	AccountID    string
	OperatorCode string
	PhoneNumber  string
	Amount       int64
}

// Recharge reserves the amount and opens a pending request, then hands the job
// to the fulfillment queue. A failed publish does not undo the committed
// reservation: the request stays pending and the job is retried by the
// operations replay tooling, so funds are never released while fulfillment is
// undecided.
func (s *RechargeService) Recharge(ctx context.Context, in RechargeInput) (*domain.RechargeRequest, error) {
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	requestID := uuid.NewString()

	var request *domain.RechargeRequest
	err := s.runner.InTx(ctx, func(q repository.Querier) error {
		operator, err := s.operators.GetByCode(ctx, q, in.OperatorCode)
		if err != nil {
			return err
		}
		if !operator.IsActive {
			return domain.ErrOperatorNotAvailable
		}

		txn, err := s.ledger.applyDelta(ctx, q, ApplyDeltaInput{
			AccountID:   in.AccountID,
			Amount:      in.Amount,
			Direction:   domain.TransactionTypeDebit,
			Description: fmt.Sprintf("Recharge %s (%s)", in.PhoneNumber, operator.Name),
			Reference:   "RCG-" + requestID,
			Metadata:    map[string]string{"operator_code": operator.Code, "request_id": requestID},
		}, domain.TransactionStatusPending)
		if err != nil {
			return err
		}

		request, err = s.requests.Create(ctx, q, &domain.RechargeRequest{
			ID:            requestID,
			AccountID:     in.AccountID,
			OperatorCode:  operator.Code,
			PhoneNumber:   in.PhoneNumber,
			Amount:        in.Amount,
			Status:        domain.RequestStatusPending,
			TransactionID: txn.ID,
		})
		return err
	})
	if err != nil {
		ledgerOpsCounter.WithLabelValues("recharge_reserve", "error").Inc()
		return nil, err
	}
	ledgerOpsCounter.WithLabelValues("recharge_reserve", "ok").Inc()

	s.publishJob(ctx, request)
	return request, nil
}

func (s *RechargeService) publishJob(ctx context.Context, request *domain.RechargeRequest) {
	payload, err := json.Marshal(domain.RechargeJobEvent{
		RequestID:    request.ID,
		AccountID:    request.AccountID,
		PhoneNumber:  request.PhoneNumber,
		Amount:       request.Amount,
		OperatorCode: request.OperatorCode,
	})
	if err != nil {
		fulfillmentPublishCounter.WithLabelValues("error").Inc()
		s.logger.ErrorContext(ctx, "Failed to encode recharge job", "request_id", request.ID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, s.requestSubject, payload); err != nil {
		fulfillmentPublishCounter.WithLabelValues("error").Inc()
		s.logger.ErrorContext(ctx, "Failed to publish recharge job; request stays pending",
			"request_id", request.ID, "error", err)
		return
	}
	fulfillmentPublishCounter.WithLabelValues("ok").Inc()
	s.logger.InfoContext(ctx, "Recharge job published", "request_id", request.ID, "subject", s.requestSubject)
}

// Reconcile applies the fulfillment verdict to a pending recharge request.
// Success settles the reservation; failure refunds it. Terminal requests are
// untouched, which makes redelivered responses safe to replay.
func (s *RechargeService) Reconcile(ctx context.Context, requestID string, outcome domain.ReconcileOutcome, message string) (*domain.RechargeRequest, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("unknown outcome %q", outcome)
	}
	start := time.Now()

	var request *domain.RechargeRequest
	alreadyTerminal := false
	err := s.runner.InTx(ctx, func(q repository.Querier) error {
		var err error
		request, err = s.requests.GetByIDForUpdate(ctx, q, requestID)
		if err != nil {
			return err
		}
		if request.Status.Terminal() {
			alreadyTerminal = true
			return nil
		}

		if outcome == domain.OutcomeApproved {
			if err := s.requests.MarkReconciled(ctx, q, requestID, domain.RequestStatusApproved, message); err != nil {
				return err
			}
			return s.txns.UpdateStatus(ctx, q, request.TransactionID, domain.TransactionStatusCompleted)
		}

		if err := s.requests.MarkReconciled(ctx, q, requestID, domain.RequestStatusRejected, message); err != nil {
			return err
		}
		if err := s.txns.UpdateStatus(ctx, q, request.TransactionID, domain.TransactionStatusRejected); err != nil {
			return err
		}
		_, err = s.ledger.applyDelta(ctx, q, ApplyDeltaInput{
			AccountID:   request.AccountID,
			Amount:      request.Amount,
			Direction:   domain.TransactionTypeCredit,
			Description: "Refund for failed recharge",
			Reference:   "RFD-" + requestID,
			Metadata:    map[string]string{"request_id": requestID, "refunds_transaction_id": request.TransactionID},
		}, domain.TransactionStatusCompleted)
		return err
	})
	if err != nil {
		reconcileCounter.WithLabelValues("recharge", "error").Inc()
		return nil, err
	}
	if alreadyTerminal {
		s.logger.InfoContext(ctx, "Recharge reconcile replayed on terminal request",
			"request_id", requestID, "status", request.Status)
		return request, nil
	}
	reconcileCounter.WithLabelValues("recharge", string(outcome)).Inc()
	reconcileDurationHist.WithLabelValues("recharge").Observe(time.Since(start).Seconds())

	request.Status = domain.RequestStatus(outcome)
	s.notifyOutcome(ctx, request, outcome)
	return request, nil
}

func (s *RechargeService) notifyOutcome(ctx context.Context, request *domain.RechargeRequest, outcome domain.ReconcileOutcome) {
	title := "Recharge successful"
	body := fmt.Sprintf("Your recharge of %s completed.", request.PhoneNumber)
	if outcome == domain.OutcomeRejected {
		title = "Recharge failed"
		body = "Your recharge could not be completed and the amount was refunded to your wallet."
	}
	if err := s.notifier.Notify(ctx, request.AccountID, title, body, map[string]string{
		"request_id": request.ID,
		"type":       "recharge",
	}); err != nil {
		s.logger.WarnContext(ctx, "Recharge notification failed", "request_id", request.ID, "error", err)
	}
}

// GetRequest returns a single recharge request.
func (s *RechargeService) GetRequest(ctx context.Context, requestID string) (*domain.RechargeRequest, error) {
	return s.requests.GetByID(ctx, s.db, requestID)
}

// ListRequests returns an account's recharge requests, newest first.
func (s *RechargeService) ListRequests(ctx context.Context, accountID string) ([]domain.RechargeRequest, error) {
	return s.requests.ListByAccount(ctx, s.db, accountID)
}

// ListOperators returns the active recharge operator catalog.
func (s *RechargeService) ListOperators(ctx context.Context) ([]domain.RechargeOperator, error) {
	return s.operators.ListActive(ctx, s.db)
}
