package domain

import "time"

// RequestStatus is the lifecycle of a purchase or recharge request:
// pending -> approved, or pending -> rejected. Terminal states are final.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// ReconcileOutcome is the externally-sourced decision applied to a pending
// request.
type ReconcileOutcome string

const (
	OutcomeApproved ReconcileOutcome = "approved"
	OutcomeRejected ReconcileOutcome = "rejected"
)

func (o ReconcileOutcome) Valid() bool {
	return o == OutcomeApproved || o == OutcomeRejected
}

// PurchaseRequest links an account, an offer and the reservation transaction
// for an admin-reconciled offer purchase.
type PurchaseRequest struct {
	ID            string        `json:"id"`
	AccountID     string        `json:"account_id"`
	OfferID       string        `json:"offer_id"`
	PhoneNumber   string        `json:"phone_number"`
	Amount        int64         `json:"amount"`
	Region        string        `json:"region"`
	Status        RequestStatus `json:"status"`
	AdminNote     string        `json:"admin_note,omitempty"`
	TransactionID string        `json:"transaction_id"`
	ProcessedAt   *time.Time    `json:"processed_at,omitempty"`
	ProcessedBy   *string       `json:"processed_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// RechargeRequest is the broker-reconciled workflow record for a telecom
// recharge. The reservation transaction holds the funds until the fulfillment
// provider answers on the response queue.
type RechargeRequest struct {
	ID            string        `json:"id"`
	AccountID     string        `json:"account_id"`
	OperatorCode  string        `json:"operator_code"`
	PhoneNumber   string        `json:"phone_number"`
	Amount        int64         `json:"amount"`
	Status        RequestStatus `json:"status"`
	Message       string        `json:"message,omitempty"`
	TransactionID string        `json:"transaction_id"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
