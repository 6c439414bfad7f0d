package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/models"
)

// userService implements the UserService interface.
type userService struct {
	userRepo db.UserRepository
	guard    *EntitlementGuard
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo db.UserRepository, guard *EntitlementGuard) UserService {
	return &userService{userRepo: userRepo, guard: guard}
}

// Register creates a citizen account on first sign-in. Existing accounts are
// returned as they are, whatever their role.
func (s *userService) Register(ctx context.Context, email string, req models.RegisterUserRequest) (*models.User, bool, error) {
	email = db.NormalizeEmail(email)
	if email == "" {
		return nil, false, ErrUnauthorized
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: failed to look up account: %v", ErrInternal, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:     email,
		Name:      req.Name,
		PhotoURL:  req.PhotoURL,
		Role:      models.RoleCitizen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			// Lost a race with a concurrent registration of the same email.
			existing, getErr := s.userRepo.GetByEmail(ctx, email)
			if getErr != nil {
				return nil, false, fmt.Errorf("%w: failed to load account: %v", ErrInternal, getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("%w: failed to create account: %v", ErrInternal, err)
	}
	return user, true, nil
}

// GetByEmail returns the account of email.
func (s *userService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err, "account")
	}
	return user, nil
}

// RemainingQuota reports the free-tier issues left; -1 means unlimited.
func (s *userService) RemainingQuota(user *models.User) int {
	if user.Role != models.RoleCitizen {
		return 0
	}
	return s.guard.RemainingQuota(user)
}
