package domain

// Broker payloads for the recharge fulfillment round trip and push
// notification hand-off. The subject names are configuration, not domain.

// RechargeJobEvent is published to the fulfillment queue after a reservation
// commits.
type RechargeJobEvent struct {
	RequestID    string `json:"request_id"`
	AccountID    string `json:"account_id"`
	PhoneNumber  string `json:"phone_number"`
	Amount       int64  `json:"amount"`
	OperatorCode string `json:"operator_code"`
}

// RechargeResultEvent is consumed from the response queue, one at a time, with
// manual acknowledgment.
type RechargeResultEvent struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"` // "approved" or "rejected"
	Message   string `json:"message,omitempty"`
}

// NotificationEvent is the best-effort hand-off to the push dispatcher.
type NotificationEvent struct {
	AccountID string            `json:"account_id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}
