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

// PurchaseService runs the admin-reconciled offer purchase workflow: reserve
// funds with a pending debit, hold them against the request, then settle or
// refund when an operator reviews the request.
type PurchaseService struct {
	runner   repository.TxRunner
	db       repository.Querier
	ledger   *LedgerService
	requests repository.PurchaseRequestRepository
	txns     repository.TransactionRepository
	offers   repository.OfferRepository
	notifier Notifier
	logger   *slog.Logger
}

func NewPurchaseService(
	runner repository.TxRunner,
	db repository.Querier,
	ledger *LedgerService,
	requests repository.PurchaseRequestRepository,
	txns repository.TransactionRepository,
	offers repository.OfferRepository,
	notifier Notifier,
	logger *slog.Logger,
) *PurchaseService {
	return &PurchaseService{
		runner:   runner,
		db:       db,
		ledger:   ledger,
		requests: requests,
		txns:     txns,
		offers:   offers,
		notifier: notifier,
		logger:   logger.With("service", "purchase"),
	}
}

type PurchaseInput struct {
	AccountID   string
	OfferID     string
	PhoneNumber string
	Region      string
}

// Purchase reserves the offer's effective price and opens a pending request.
// The reservation, the transaction record and the request row commit together;
// the balance is reduced immediately so the held funds cannot be double-spent
// while the request awaits review.
func (s *PurchaseService) Purchase(ctx context.Context, in PurchaseInput) (*domain.PurchaseRequest, error) {
	requestID := uuid.NewString()

	var request *domain.PurchaseRequest
	err := s.runner.InTx(ctx, func(q repository.Querier) error {
		offer, err := s.offers.GetByID(ctx, q, in.OfferID)
		if err != nil {
			return err
		}
		if !offer.Available() {
			return domain.ErrOfferNotAvailable
		}
		price := offer.EffectivePrice()

		txn, err := s.ledger.applyDelta(ctx, q, ApplyDeltaInput{
			AccountID:   in.AccountID,
			Amount:      price,
			Direction:   domain.TransactionTypeDebit,
			Description: fmt.Sprintf("Offer purchase: %s", offer.Title),
			Reference:   "PUR-" + requestID,
			Metadata:    map[string]string{"offer_id": offer.ID, "request_id": requestID},
		}, domain.TransactionStatusPending)
		if err != nil {
			return err
		}

		request, err = s.requests.Create(ctx, q, &domain.PurchaseRequest{
			ID:            requestID,
			AccountID:     in.AccountID,
			OfferID:       offer.ID,
			PhoneNumber:   in.PhoneNumber,
			Amount:        price,
			Region:        in.Region,
			Status:        domain.RequestStatusPending,
			TransactionID: txn.ID,
		})
		return err
	})
	s.countOp(err)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Purchase request opened",
		"request_id", request.ID, "account_id", in.AccountID, "amount", request.Amount)
	return request, nil
}

// Reconcile applies an admin decision to a pending purchase request. Approval
// settles the reservation; rejection refunds it with a compensating credit.
// A request already in a terminal state is left untouched so replayed
// decisions are harmless.
func (s *PurchaseService) Reconcile(ctx context.Context, requestID string, outcome domain.ReconcileOutcome, actor, note string) (*domain.PurchaseRequest, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("unknown outcome %q", outcome)
	}
	start := time.Now()

	var request *domain.PurchaseRequest
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
			if err := s.requests.MarkProcessed(ctx, q, requestID, domain.RequestStatusApproved, actor, note); err != nil {
				return err
			}
			return s.txns.UpdateStatus(ctx, q, request.TransactionID, domain.TransactionStatusCompleted)
		}

		if err := s.requests.MarkProcessed(ctx, q, requestID, domain.RequestStatusRejected, actor, note); err != nil {
			return err
		}
		if err := s.txns.UpdateStatus(ctx, q, request.TransactionID, domain.TransactionStatusRejected); err != nil {
			return err
		}
		_, err = s.ledger.applyDelta(ctx, q, ApplyDeltaInput{
			AccountID:   request.AccountID,
			Amount:      request.Amount,
			Direction:   domain.TransactionTypeCredit,
			Description: "Refund for rejected offer purchase",
			Reference:   "RFD-" + requestID,
			Metadata:    map[string]string{"request_id": requestID, "refunds_transaction_id": request.TransactionID},
		}, domain.TransactionStatusCompleted)
		return err
	})
	if err != nil {
		reconcileCounter.WithLabelValues("purchase", "error").Inc()
		return nil, err
	}
	if alreadyTerminal {
		s.logger.InfoContext(ctx, "Purchase reconcile replayed on terminal request",
			"request_id", requestID, "status", request.Status)
		return request, nil
	}
	reconcileCounter.WithLabelValues("purchase", string(outcome)).Inc()
	reconcileDurationHist.WithLabelValues("purchase").Observe(time.Since(start).Seconds())

	request.Status = domain.RequestStatus(outcome)
	s.notifyOutcome(ctx, request, outcome)
	return request, nil
}

func (s *PurchaseService) notifyOutcome(ctx context.Context, request *domain.PurchaseRequest, outcome domain.ReconcileOutcome) {
	title := "Purchase successful"
	body := "Your offer purchase has been approved."
	if outcome == domain.OutcomeRejected {
		title = "Purchase rejected"
		body = "Your offer purchase was rejected and the amount refunded to your wallet."
	}
	if err := s.notifier.Notify(ctx, request.AccountID, title, body, map[string]string{
		"request_id": request.ID,
		"type":       "purchase",
	}); err != nil {
		s.logger.WarnContext(ctx, "Purchase notification failed", "request_id", request.ID, "error", err)
	}
}

// GetRequest returns a single purchase request.
func (s *PurchaseService) GetRequest(ctx context.Context, requestID string) (*domain.PurchaseRequest, error) {
	return s.requests.GetByID(ctx, s.db, requestID)
}

// ListRequests returns an account's purchase requests, optionally filtered by
// status ("" means all).
func (s *PurchaseService) ListRequests(ctx context.Context, accountID string, status domain.RequestStatus) ([]domain.PurchaseRequest, error) {
	return s.requests.ListByAccount(ctx, s.db, accountID, status)
}

// ListOffers returns the purchasable catalog.
func (s *PurchaseService) ListOffers(ctx context.Context) ([]domain.Offer, error) {
	return s.offers.ListActive(ctx, s.db)
}

func (s *PurchaseService) countOp(err error) {
	if err == nil {
		ledgerOpsCounter.WithLabelValues("purchase_reserve", "ok").Inc()
		return
	}
	ledgerOpsCounter.WithLabelValues("purchase_reserve", "error").Inc()
}
