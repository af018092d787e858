package domain

import "time"

// Offer is a read-only view of the telecom offer catalog. The catalog itself
// is owned by an external admin service; the ledger only reads price and
// availability.
type Offer struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	OperatorCode   string    `json:"operator_code"`
	OfferType      string    `json:"offer_type"` // internet, combo, minutes
	Price          int64     `json:"price"`
	DiscountAmount int64     `json:"discount_amount"`
	ActualPrice    int64     `json:"actual_price"`
	ValidityDays   int       `json:"validity_days"`
	IsActive       bool      `json:"is_active"`
	IsDeleted      bool      `json:"is_deleted"`
	CreatedAt      time.Time `json:"created_at"`
}

// EffectivePrice is what the buyer pays: the discounted price when set,
// otherwise the list price.
func (o *Offer) EffectivePrice() int64 {
	if o.ActualPrice > 0 {
		return o.ActualPrice
	}
	return o.Price
}

// Available reports whether the offer can be purchased.
func (o *Offer) Available() bool {
	return o.IsActive && !o.IsDeleted
}

// RechargeOperator is a read-only view of the operator catalog.
type RechargeOperator struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	IsActive bool   `json:"is_active"`
}
