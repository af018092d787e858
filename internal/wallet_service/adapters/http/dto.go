package http

import (
	"time"

	"github.com/telcocash/walletd/internal/wallet_service/domain"
)

// --- Request DTOs ---

type TransferRequestDTO struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Reference   string `json:"reference" validate:"required,max=64"`
}

type PurchaseRequestDTO struct {
	OfferID     string `json:"offer_id" validate:"required,uuid"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Region      string `json:"region" validate:"omitempty,max=64"`
}

type RechargeRequestDTO struct {
	OperatorCode string `json:"operator_code" validate:"required,max=32"`
	PhoneNumber  string `json:"phone_number" validate:"required,e164"`
	Amount       int64  `json:"amount" validate:"required,gt=0"`
}

type WithdrawalRequestDTO struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Method string `json:"method" validate:"required,oneof=mobile_banking bank_transfer"`
	Source string `json:"source" validate:"required,oneof=wallet income"`

	MobileOperator string `json:"mobile_operator" validate:"required_if=Method mobile_banking"`
	MobileNumber   string `json:"mobile_number" validate:"required_if=Method mobile_banking"`

	BankName          string `json:"bank_name" validate:"required_if=Method bank_transfer"`
	BankBranchName    string `json:"bank_branch_name" validate:"required_if=Method bank_transfer"`
	BankAccountNumber string `json:"bank_account_number" validate:"required_if=Method bank_transfer"`
	AccountHolderName string `json:"account_holder_name" validate:"required_if=Method bank_transfer"`
}

type ReconcileRequestDTO struct {
	Outcome string `json:"outcome" validate:"required,oneof=approved rejected"`
	Note    string `json:"note" validate:"omitempty,max=512"`
}

type SettleWithdrawalRequestDTO struct {
	Status string `json:"status" validate:"required,oneof=success rejected"`
}

type AdjustmentRequestDTO struct {
	AccountID   string `json:"account_id" validate:"required,uuid"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Direction   string `json:"direction" validate:"required,oneof=credit debit"`
	Description string `json:"description" validate:"omitempty,max=256"`
	Reference   string `json:"reference" validate:"required,max=64"`
}

type AccrueIncomeRequestDTO struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Source    string `json:"source" validate:"required,oneof=referral shopping"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
}

// --- Response DTOs ---

type WalletResponseDTO struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"account_id"`
	Balance           int64     `json:"balance"`
	LastTransactionID *string   `json:"last_transaction_id,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toWalletResponse(w *domain.Wallet) WalletResponseDTO {
	return WalletResponseDTO{
		ID:                w.ID,
		AccountID:         w.AccountID,
		Balance:           w.Balance,
		LastTransactionID: w.LastTransactionID,
		UpdatedAt:         w.UpdatedAt,
	}
}

type TransactionListResponseDTO struct {
	Transactions []domain.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
}

type IncomeResponseDTO struct {
	AccountID    string `json:"account_id"`
	FromReferral int64  `json:"from_referral"`
	FromShopping int64  `json:"from_shopping"`
	Total        int64  `json:"total"`
}

func toIncomeResponse(in *domain.Income) IncomeResponseDTO {
	return IncomeResponseDTO{
		AccountID:    in.AccountID,
		FromReferral: in.FromReferral,
		FromShopping: in.FromShopping,
		Total:        in.Total,
	}
}

type WithdrawalListResponseDTO struct {
	Withdrawals []domain.Withdrawal `json:"withdrawals"`
	Total       int                 `json:"total"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
}
