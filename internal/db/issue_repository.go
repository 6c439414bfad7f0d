package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reportify-backend-go/internal/models"
)

const issuesCollection = "issues"

// firestoreIssueRepository implements the IssueRepository interface using Firestore.
type firestoreIssueRepository struct {
	client *firestore.Client
}

// NewFirestoreIssueRepository creates a new instance of firestoreIssueRepository.
func NewFirestoreIssueRepository(client *firestore.Client) IssueRepository {
	return &firestoreIssueRepository{client: client}
}

// Create adds a new issue document with an auto-generated ID.
func (r *firestoreIssueRepository) Create(ctx context.Context, issue *models.Issue) (string, error) {
	docRef := r.client.Collection(issuesCollection).NewDoc()
	if _, err := docRef.Create(ctx, issue); err != nil {
		return "", fmt.Errorf("failed to create issue: %w", err)
	}
	issue.ID = docRef.ID
	return docRef.ID, nil
}

// GetByID retrieves an issue document by its ID.
func (r *firestoreIssueRepository) GetByID(ctx context.Context, issueID string) (*models.Issue, error) {
	if issueID == "" {
		return nil, fmt.Errorf("issue ID cannot be empty: %w", ErrNotFound)
	}
	docSnap, err := r.client.Collection(issuesCollection).Doc(issueID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("issue with ID '%s' not found: %w", issueID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get issue with ID '%s': %w", issueID, err)
	}
	return decodeIssue(docSnap)
}

// Update reads the issue, applies mutate and writes it back inside one
// transaction. The transaction may retry mutate on contention, so mutate must
// only depend on the snapshot it receives.
func (r *firestoreIssueRepository) Update(ctx context.Context, issueID string, mutate IssueMutator) (*models.Issue, error) {
	if issueID == "" {
		return nil, fmt.Errorf("issue ID cannot be empty: %w", ErrNotFound)
	}
	ref := r.client.Collection(issuesCollection).Doc(issueID)
	var result *models.Issue
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("issue with ID '%s' not found: %w", issueID, ErrNotFound)
			}
			return err
		}
		issue, err := decodeIssue(docSnap)
		if err != nil {
			return err
		}
		if err := mutate(issue); err != nil {
			if errors.Is(err, ErrSkipWrite) {
				result = issue
				return nil
			}
			return err
		}
		result = issue
		return tx.Set(ref, issue)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateWithPayment writes the payment document and the mutated issue in one
// transaction. Both documents are read first, as Firestore requires every
// read of a transaction to precede its writes.
func (r *firestoreIssueRepository) UpdateWithPayment(ctx context.Context, issueID string, payment *models.Payment, mutate IssueMutator) (*models.Issue, error) {
	if issueID == "" {
		return nil, fmt.Errorf("issue ID cannot be empty: %w", ErrNotFound)
	}
	if payment == nil || payment.PaymentIntentID == "" {
		return nil, errors.New("payment intent ID cannot be empty for UpdateWithPayment operation")
	}
	issueRef := r.client.Collection(issuesCollection).Doc(issueID)
	paymentRef := r.client.Collection(paymentsCollection).Doc(payment.PaymentIntentID)

	var result *models.Issue
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// The ledger is checked first: a replayed intent must report
		// AlreadyExists even if the issue changed since.
		if _, err := tx.Get(paymentRef); err == nil {
			return fmt.Errorf("payment '%s' already recorded: %w", payment.PaymentIntentID, ErrAlreadyExists)
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		docSnap, err := tx.Get(issueRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("issue with ID '%s' not found: %w", issueID, ErrNotFound)
			}
			return err
		}
		issue, err := decodeIssue(docSnap)
		if err != nil {
			return err
		}
		if err := mutate(issue); err != nil {
			return err
		}

		if err := tx.Create(paymentRef, payment); err != nil {
			return err
		}
		result = issue
		return tx.Set(issueRef, issue)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the issue when check accepts the stored state.
func (r *firestoreIssueRepository) Delete(ctx context.Context, issueID string, check func(issue *models.Issue) error) (*models.Issue, error) {
	if issueID == "" {
		return nil, fmt.Errorf("issue ID cannot be empty: %w", ErrNotFound)
	}
	ref := r.client.Collection(issuesCollection).Doc(issueID)
	var deleted *models.Issue
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("issue with ID '%s' not found: %w", issueID, ErrNotFound)
			}
			return err
		}
		issue, err := decodeIssue(docSnap)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(issue); err != nil {
				return err
			}
		}
		deleted = issue
		return tx.Delete(ref)
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func decodeIssue(docSnap *firestore.DocumentSnapshot) (*models.Issue, error) {
	var issue models.Issue
	if err := docSnap.DataTo(&issue); err != nil {
		return nil, fmt.Errorf("failed to decode issue data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	issue.ID = docSnap.Ref.ID
	return &issue, nil
}
