package domain

import "time"

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusReversed  TransactionStatus = "reversed"
	TransactionStatusRejected  TransactionStatus = "rejected"
	TransactionStatusRefunded  TransactionStatus = "refunded"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Terminal reports whether the status closes the transaction. A terminal
// transaction is immutable; corrections are new compensating transactions.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusRejected,
		TransactionStatusRefunded, TransactionStatusCancelled:
		return true
	}
	return false
}

// Transaction is the immutable audit record of one balance change. Amount is
// always a positive magnitude; Type carries the direction. Reference is unique
// across all transactions and doubles as the idempotency key.
type Transaction struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"account_id"`
	WalletID    string            `json:"wallet_id"`
	Amount      int64             `json:"amount"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
	Reference   string            `json:"reference"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TransactionFilter narrows paginated history queries.
type TransactionFilter struct {
	Type      TransactionType
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

func (f TransactionFilter) Normalized() TransactionFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 10
	}
	return f
}
