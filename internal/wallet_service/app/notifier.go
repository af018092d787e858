package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
)

// Publisher sends a persistent message to a broker subject. Satisfied by
// *messagebroker.NatsClient.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Notifier hands terminal-state notifications to the push dispatcher. Delivery
// is always best-effort: failures are logged and never roll back a ledger
// mutation.
type Notifier interface {
	Notify(ctx context.Context, accountID, title, body string, data map[string]string) error
}

// QueueNotifier publishes notification events for the out-of-process
// dispatcher to deliver.
type QueueNotifier struct {
	publisher Publisher
	subject   string
	logger    *slog.Logger
}

func NewQueueNotifier(publisher Publisher, subject string, logger *slog.Logger) *QueueNotifier {
	return &QueueNotifier{
		publisher: publisher,
		subject:   subject,
		logger:    logger.With("component", "notifier"),
	}
}

func (n *QueueNotifier) Notify(ctx context.Context, accountID, title, body string, data map[string]string) error {
	event := domain.NotificationEvent{
		AccountID: accountID,
		Title:     title,
		Body:      body,
		Data:      data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(ctx, n.subject, payload); err != nil {
		n.logger.WarnContext(ctx, "Failed to publish notification event", "account_id", accountID, "error", err)
		return err
	}
	return nil
}
