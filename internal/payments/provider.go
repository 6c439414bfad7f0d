package payments

import (
	"context"
	"errors"

	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/models"
)

var (
	// ErrProvider wraps failures talking to the payment provider.
	ErrProvider = errors.New("payment provider call failed")
	// ErrSignature is returned for webhook payloads that fail verification.
	ErrSignature = errors.New("webhook signature verification failed")
	// ErrPayload is returned for verified webhook events whose body cannot be
	// decoded. Redelivering the same event cannot succeed.
	ErrPayload = errors.New("webhook payload could not be decoded")
)

// Metadata keys carried on checkout sessions.
const (
	MetadataKind    = "kind"
	MetadataIssueID = "issueId"
	MetadataEmail   = "email"
)

// CheckoutRequest describes a checkout to start.
type CheckoutRequest struct {
	Kind       models.PaymentType
	Email      string
	IssueID    string // boost only
	IssueTitle string
}

// Session is the provider-neutral view of a checkout session.
type Session struct {
	ID              string             `json:"id"`
	URL             string             `json:"url,omitempty"`
	PaymentIntentID string             `json:"paymentIntentId,omitempty"`
	PaymentStatus   string             `json:"paymentStatus"`
	Email           string             `json:"email,omitempty"`
	Amount          int64              `json:"amount"`
	Currency        string             `json:"currency"`
	Kind            models.PaymentType `json:"kind"`
	IssueID         string             `json:"issueId,omitempty"`
}

// Paid reports whether the provider considers the session paid.
func (s *Session) Paid() bool {
	return s.PaymentStatus == "paid"
}

// PaymentEvent converts a paid session into the reconciler's input.
func (s *Session) PaymentEvent() core.PaymentEvent {
	return core.PaymentEvent{
		PaymentIntentID: s.PaymentIntentID,
		Kind:            s.Kind,
		Email:           s.Email,
		Amount:          s.Amount,
		Currency:        s.Currency,
		Status:          s.PaymentStatus,
		IssueID:         s.IssueID,
	}
}

// Provider is the payment boundary the API layer talks to.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
	// ParseWebhook verifies a webhook delivery. It returns a nil session for
	// event types that carry no payment to reconcile.
	ParseWebhook(payload []byte, signature string) (*Session, error)
}
