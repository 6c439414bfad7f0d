package db

import (
	"context"
	"time"

	"reportify-backend-go/internal/models"
)

// UserMutator changes a user snapshot inside an atomic update. Returning an
// error aborts the update and nothing is written.
type UserMutator func(user *models.User) error

// IssueMutator changes an issue snapshot inside an atomic update.
type IssueMutator func(issue *models.Issue) error

// UserRepository defines the interface for user data storage operations.
// Users are keyed by email.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Create fails with ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, user *models.User) error
	// Update applies mutate to the current document as one conditional
	// read-modify-write and returns the stored result.
	Update(ctx context.Context, email string, mutate UserMutator) (*models.User, error)
	// Delete removes the user if check accepts the current document.
	Delete(ctx context.Context, email string, check func(user *models.User) error) error
}

// IssueRepository defines the interface for issue data storage operations.
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) (string, error) // Returns new issue ID
	GetByID(ctx context.Context, issueID string) (*models.Issue, error)
	Update(ctx context.Context, issueID string, mutate IssueMutator) (*models.Issue, error)
	// UpdateWithPayment records payment in the ledger and applies mutate to the
	// issue as one atomic unit. It fails with ErrAlreadyExists when the payment
	// intent is already recorded and with ErrNotFound when the issue is gone.
	// Any error from mutate, ErrSkipWrite included, aborts both writes.
	UpdateWithPayment(ctx context.Context, issueID string, payment *models.Payment, mutate IssueMutator) (*models.Issue, error)
	// Delete removes the issue if check accepts the current document and
	// returns the deleted snapshot.
	Delete(ctx context.Context, issueID string, check func(issue *models.Issue) error) (*models.Issue, error)
}

// PaymentRepository is the payment ledger keyed by provider payment-intent id.
type PaymentRepository interface {
	GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	// Create fails with ErrAlreadyExists when a record for the intent id exists.
	Create(ctx context.Context, payment *models.Payment) error
	ListByEmail(ctx context.Context, email string) ([]*models.Payment, error)
	ListCreatedSince(ctx context.Context, since time.Time) ([]*models.Payment, error)
}

// AuditRepository defines the interface for audit log data storage operations.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}
