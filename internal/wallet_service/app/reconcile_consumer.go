package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/telcocash/walletd/internal/platform/messagebroker"
	"github.com/telcocash/walletd/internal/wallet_service/domain"
)

const (
	fetchWait    = 5 * time.Second
	requeueDelay = 10 * time.Second
	resubDelay   = 2 * time.Second
)

// ReconcileConsumer drains the recharge response queue one message at a time
// and applies each verdict through RechargeService. Acknowledgment is manual:
// a message is acked only after its reconciliation commits (or is provably a
// no-op), and nacked for redelivery on any infrastructure failure, so a crash
// between commit and ack at worst replays onto a terminal request.
type ReconcileConsumer struct {
	subscriber messagebroker.QueueSubscriber
	recharges  *RechargeService
	subject    string
	durable    string
	logger     *slog.Logger
}

func NewReconcileConsumer(
	subscriber messagebroker.QueueSubscriber,
	recharges *RechargeService,
	subject, durable string,
	logger *slog.Logger,
) *ReconcileConsumer {
	return &ReconcileConsumer{
		subscriber: subscriber,
		recharges:  recharges,
		subject:    subject,
		durable:    durable,
		logger:     logger.With("component", "reconcile_consumer"),
	}
}

// Run blocks until ctx is canceled. The subscription is re-established with a
// delay whenever it breaks.
func (c *ReconcileConsumer) Run(ctx context.Context) error {
	for {
		sub, err := c.subscriber.PullSubscribe(c.subject, c.durable)
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to subscribe to response queue", "subject", c.subject, "error", err)
			if !sleepCtx(ctx, resubDelay) {
				return ctx.Err()
			}
			continue
		}
		c.logger.InfoContext(ctx, "Consuming recharge responses", "subject", c.subject, "durable", c.durable)

		err = c.consume(ctx, sub)
		_ = sub.Unsubscribe()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WarnContext(ctx, "Response queue subscription lost; resubscribing", "error", err)
		if !sleepCtx(ctx, resubDelay) {
			return ctx.Err()
		}
	}
}

func (c *ReconcileConsumer) consume(ctx context.Context, sub messagebroker.QueueSubscription) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetchCtx, cancel := context.WithTimeout(ctx, fetchWait)
		msgs, err := sub.Fetch(fetchCtx, 1)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue // empty poll window
			}
			return err
		}
		for _, msg := range msgs {
			c.handle(ctx, msg)
		}
	}
}

func (c *ReconcileConsumer) handle(ctx context.Context, msg messagebroker.QueueMessage) {
	var event domain.RechargeResultEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		// Malformed payloads can never succeed; redelivering them would wedge
		// the queue behind a poison message.
		c.logger.ErrorContext(ctx, "Dropping undecodable response message", "error", err)
		c.ackCounted(ctx, msg, "dropped")
		return
	}

	outcome := domain.ReconcileOutcome(event.Status)
	if !outcome.Valid() {
		c.logger.ErrorContext(ctx, "Dropping response with unknown status",
			"request_id", event.RequestID, "status", event.Status)
		c.ackCounted(ctx, msg, "dropped")
		return
	}

	_, err := c.recharges.Reconcile(ctx, event.RequestID, outcome, event.Message)
	switch {
	case err == nil:
		c.ackCounted(ctx, msg, "acked")
	case errors.Is(err, domain.ErrRequestNotFound):
		// The response may have outrun the request commit; retry later.
		c.logger.WarnContext(ctx, "Response for unknown request; requeueing",
			"request_id", event.RequestID)
		c.nakCounted(ctx, msg)
	default:
		c.logger.ErrorContext(ctx, "Reconciliation failed; requeueing",
			"request_id", event.RequestID, "error", err)
		c.nakCounted(ctx, msg)
	}
}

func (c *ReconcileConsumer) ackCounted(ctx context.Context, msg messagebroker.QueueMessage, disposition string) {
	if err := msg.Ack(); err != nil {
		c.logger.ErrorContext(ctx, "Failed to ack message", "error", err)
		return
	}
	queueMessagesCounter.WithLabelValues(disposition).Inc()
}

func (c *ReconcileConsumer) nakCounted(ctx context.Context, msg messagebroker.QueueMessage) {
	if err := msg.Nak(requeueDelay); err != nil {
		c.logger.ErrorContext(ctx, "Failed to nak message", "error", err)
		return
	}
	queueMessagesCounter.WithLabelValues("requeued").Inc()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
