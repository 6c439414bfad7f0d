package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reportify-backend-go/internal/models"
)

const usersCollection = "users"

// firestoreUserRepository implements the UserRepository interface using Firestore.
// The normalized email is the document ID.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

// NormalizeEmail is the key form used for accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *firestoreUserRepository) doc(email string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(NormalizeEmail(email))
}

// Create adds a new user document. It fails with ErrAlreadyExists when an
// account with the same email is already stored.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Email == "" {
		return errors.New("user email cannot be empty for Create operation")
	}
	user.Email = NormalizeEmail(user.Email)
	_, err := r.doc(user.Email).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user '%s' already exists: %w", user.Email, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user '%s': %w", user.Email, err)
	}
	return nil
}

// GetByEmail retrieves a user document by email.
func (r *firestoreUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty for GetByEmail operation")
	}
	docSnap, err := r.doc(email).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user '%s' not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", email, err)
	}
	return decodeUser(docSnap)
}

// Update runs mutate inside a Firestore transaction so that concurrent
// updates of the same account serialize.
func (r *firestoreUserRepository) Update(ctx context.Context, email string, mutate UserMutator) (*models.User, error) {
	ref := r.doc(email)
	var result *models.User
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("user '%s' not found: %w", email, ErrNotFound)
			}
			return err
		}
		user, err := decodeUser(docSnap)
		if err != nil {
			return err
		}
		if err := mutate(user); err != nil {
			if errors.Is(err, ErrSkipWrite) {
				result = user
				return nil
			}
			return err
		}
		result = user
		return tx.Set(ref, user)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the user document when check accepts the stored state.
func (r *firestoreUserRepository) Delete(ctx context.Context, email string, check func(user *models.User) error) error {
	ref := r.doc(email)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("user '%s' not found: %w", email, ErrNotFound)
			}
			return err
		}
		user, err := decodeUser(docSnap)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(user); err != nil {
				return err
			}
		}
		return tx.Delete(ref)
	})
}

func decodeUser(docSnap *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for '%s': %w", docSnap.Ref.ID, err)
	}
	user.Email = docSnap.Ref.ID
	return &user, nil
}
