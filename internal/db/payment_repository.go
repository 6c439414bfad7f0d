package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reportify-backend-go/internal/models"
)

const paymentsCollection = "payments"

// firestorePaymentRepository stores the payment ledger. The payment-intent id
// is the document ID, so Create doubles as the idempotency check.
type firestorePaymentRepository struct {
	client *firestore.Client
}

// NewFirestorePaymentRepository creates a new instance of firestorePaymentRepository.
func NewFirestorePaymentRepository(client *firestore.Client) PaymentRepository {
	return &firestorePaymentRepository{client: client}
}

// GetByIntentID retrieves the payment recorded for a payment intent.
func (r *firestorePaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	if intentID == "" {
		return nil, errors.New("payment intent ID cannot be empty")
	}
	docSnap, err := r.client.Collection(paymentsCollection).Doc(intentID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("payment '%s' not found: %w", intentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment '%s': %w", intentID, err)
	}
	return decodePayment(docSnap)
}

// Create persists a payment. Firestore's Create fails when the document
// exists, which makes concurrent duplicate deliveries collide here.
func (r *firestorePaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.PaymentIntentID == "" {
		return errors.New("payment intent ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(paymentsCollection).Doc(payment.PaymentIntentID).Create(ctx, payment)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("payment '%s' already recorded: %w", payment.PaymentIntentID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create payment '%s': %w", payment.PaymentIntentID, err)
	}
	return nil
}

// ListByEmail returns the payments of one account, newest first.
func (r *firestorePaymentRepository) ListByEmail(ctx context.Context, email string) ([]*models.Payment, error) {
	query := r.client.Collection(paymentsCollection).
		Where("email", "==", NormalizeEmail(email)).
		OrderBy("createdAt", firestore.Desc)
	return r.collect(ctx, query)
}

// ListCreatedSince returns payments created at or after since, oldest first.
func (r *firestorePaymentRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]*models.Payment, error) {
	query := r.client.Collection(paymentsCollection).
		Where("createdAt", ">=", since).
		OrderBy("createdAt", firestore.Asc)
	return r.collect(ctx, query)
}

func (r *firestorePaymentRepository) collect(ctx context.Context, query firestore.Query) ([]*models.Payment, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var payments []*models.Payment
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate payments: %w", err)
		}
		payment, err := decodePayment(docSnap)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func decodePayment(docSnap *firestore.DocumentSnapshot) (*models.Payment, error) {
	var payment models.Payment
	if err := docSnap.DataTo(&payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment data for '%s': %w", docSnap.Ref.ID, err)
	}
	payment.PaymentIntentID = docSnap.Ref.ID
	return &payment, nil
}
