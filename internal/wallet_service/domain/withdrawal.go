package domain

import (
	"errors"
	"time"
)

type WithdrawalMethod string

const (
	WithdrawalMethodMobileBanking WithdrawalMethod = "mobile_banking"
	WithdrawalMethodBankTransfer  WithdrawalMethod = "bank_transfer"
)

// WithdrawalSource selects which balance the withdrawal debits.
type WithdrawalSource string

const (
	WithdrawalSourceWallet WithdrawalSource = "wallet"
	WithdrawalSourceIncome WithdrawalSource = "income"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusSuccess  WithdrawalStatus = "success"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalStatusSuccess || s == WithdrawalStatusRejected
}

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusSuccess, WithdrawalStatusRejected:
		return true
	}
	return false
}

// Withdrawal is a payout request. Funds leave the ledger when the request is
// created; a rejection credits them back with a compensating transaction.
type Withdrawal struct {
	ID        string           `json:"id"`
	AccountID string           `json:"account_id"`
	Amount    int64            `json:"amount"`
	Method    WithdrawalMethod `json:"method"`
	Source    WithdrawalSource `json:"source"`
	Status    WithdrawalStatus `json:"status"`

	// Mobile banking destination.
	MobileOperator string `json:"mobile_operator,omitempty"`
	MobileNumber   string `json:"mobile_number,omitempty"`

	// Bank transfer destination.
	BankName          string `json:"bank_name,omitempty"`
	BankBranchName    string `json:"bank_branch_name,omitempty"`
	BankAccountNumber string `json:"bank_account_number,omitempty"`
	AccountHolderName string `json:"account_holder_name,omitempty"`

	TransactionID string     `json:"transaction_id"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	ProcessedBy   *string    `json:"processed_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ValidateDestination checks that the fields required by the chosen method are
// present.
func (w *Withdrawal) ValidateDestination() error {
	switch w.Method {
	case WithdrawalMethodMobileBanking:
		if w.MobileOperator == "" || w.MobileNumber == "" {
			return errors.New("mobile operator and number are required")
		}
	case WithdrawalMethodBankTransfer:
		if w.BankName == "" || w.BankBranchName == "" || w.BankAccountNumber == "" || w.AccountHolderName == "" {
			return errors.New("all bank details are required")
		}
	default:
		return errors.New("unknown withdrawal method")
	}
	return nil
}

// WithdrawalFilter narrows admin listing queries.
type WithdrawalFilter struct {
	Status   WithdrawalStatus
	Method   WithdrawalMethod
	Page     int
	PageSize int
}
