package domain

import "time"

// Wallet is the balance-holding record for one account. Balances are integer
// minor units (e.g. paisa). A wallet is created once when the owning account
// registers and is only ever soft-deleted.
type Wallet struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"account_id"`
	Balance           int64     `json:"balance"`
	LastTransactionID *string   `json:"last_transaction_id,omitempty"`
	IsDeleted         bool      `json:"is_deleted"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Income holds accrued earnings for one account, split by source. It behaves
// like a second wallet: non-negative, mutated only through conditional updates,
// withdrawable when the withdrawal source is "income".
type Income struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"account_id"`
	FromReferral      int64     `json:"from_referral"`
	FromShopping      int64     `json:"from_shopping"`
	Total             int64     `json:"total"`
	LastTransactionID *string   `json:"last_transaction_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IncomeSource identifies which earnings bucket an accrual lands in.
type IncomeSource string

const (
	IncomeSourceReferral IncomeSource = "referral"
	IncomeSourceShopping IncomeSource = "shopping"
)

func (s IncomeSource) Valid() bool {
	return s == IncomeSourceReferral || s == IncomeSourceShopping
}
