package core

import (
	"context"
	"time"

	"reportify-backend-go/internal/models"
)

// RoleAuthority classifies a verified identity and gates operations by role.
type RoleAuthority interface {
	Resolve(ctx context.Context, email string) (*models.User, error)
	Classify(ctx context.Context, email string) (models.Role, error)
	RequireRole(ctx context.Context, email string, roles ...models.Role) (*models.User, error)
}

// UserService defines the interface for account registration and lookup.
type UserService interface {
	// Register creates a citizen account for email. When the account already
	// exists it is returned unchanged with created=false.
	Register(ctx context.Context, email string, req models.RegisterUserRequest) (user *models.User, created bool, err error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	RemainingQuota(user *models.User) int
}

// IssueService defines the issue lifecycle operations.
type IssueService interface {
	CreateIssue(ctx context.Context, actor Actor, req models.CreateIssueRequest) (*models.Issue, error)
	GetIssue(ctx context.Context, issueID string) (*models.Issue, error)
	UpdateIssue(ctx context.Context, actor Actor, issueID string, req models.UpdateIssueRequest) (*models.Issue, error)
	DeleteIssue(ctx context.Context, actor Actor, issueID string) error
	AssignStaff(ctx context.Context, actor Actor, issueID, staffEmail string) (*models.Issue, error)
	// Transition moves an issue to status `to`, appending one timeline entry.
	Transition(ctx context.Context, actor Actor, issueID string, to models.IssueStatus, message string) (*models.Issue, error)
}

// UpvoteLedger records at most one upvote per citizen per issue.
type UpvoteLedger interface {
	Upvote(ctx context.Context, actor Actor, issueID string) (*models.Issue, error)
}

// PaymentReconciler applies verified provider payments exactly once.
type PaymentReconciler interface {
	Reconcile(ctx context.Context, event PaymentEvent) (*ReconcileResult, error)
	// ApplyEffect re-derives the domain effect of a stored payment. It is a
	// no-op when the effect is already in place and reports whether it wrote.
	ApplyEffect(ctx context.Context, payment *models.Payment) (bool, error)
	ListPayments(ctx context.Context, email string) ([]*models.Payment, error)
	// CheckBoostEligibility validates a boost purchase before checkout.
	CheckBoostEligibility(ctx context.Context, actor Actor, issueID string) (*models.Issue, error)
}

// AdminService defines account governance operations.
type AdminService interface {
	CreateStaff(ctx context.Context, actor Actor, req models.CreateStaffRequest) (*models.User, error)
	RemoveStaff(ctx context.Context, actor Actor, email string) error
	SetBlocked(ctx context.Context, actor Actor, email string, blocked bool) (*models.User, error)
	ChangeRole(ctx context.Context, actor Actor, email string, role models.Role) (*models.User, error)
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}

// Event is a domain event emitted after a successful mutation.
type Event struct {
	Type       string                 `json:"type"`
	SubjectID  string                 `json:"subjectId"`
	ActorEmail string                 `json:"actorEmail,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// Event types.
const (
	EventIssueCreated      = "issue.created"
	EventIssueUpdated      = "issue.updated"
	EventIssueDeleted      = "issue.deleted"
	EventIssueAssigned     = "issue.assigned"
	EventIssueTransitioned = "issue.transitioned"
	EventIssueUpvoted      = "issue.upvoted"
	EventIssueBoosted      = "issue.boosted"
	EventPremiumActivated  = "user.premium_activated"
	EventPaymentRecorded   = "payment.recorded"
)

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }
