package models

import "time"

// PaymentType is the domain effect a payment unlocks.
type PaymentType string

const (
	PaymentPremium PaymentType = "premium"
	PaymentBoost   PaymentType = "boost"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	return t == PaymentPremium || t == PaymentBoost
}

// Payment is the ledger record of one applied provider event. The provider's
// payment-intent id is the document ID and the idempotency key; a record is
// never mutated after it is written.
type Payment struct {
	PaymentIntentID string      `json:"paymentIntentId" firestore:"-"`
	Email           string      `json:"email" firestore:"email"`
	Amount          int64       `json:"amount" firestore:"amount"` // smallest currency unit
	Currency        string      `json:"currency" firestore:"currency"`
	Status          string      `json:"status" firestore:"status"`
	Type            PaymentType `json:"type" firestore:"type"`
	IssueID         string      `json:"issueId,omitempty" firestore:"issueId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt" firestore:"createdAt"`
	Month           int         `json:"month" firestore:"month"`
	Year            int         `json:"year" firestore:"year"`
}
