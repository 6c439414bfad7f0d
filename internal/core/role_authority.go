package core

import (
	"context"
	"errors"
	"fmt"

	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/models"
)

// roleAuthority classifies verified identities against the account store.
type roleAuthority struct {
	userRepo db.UserRepository
}

// NewRoleAuthority creates a RoleAuthority backed by userRepo.
func NewRoleAuthority(userRepo db.UserRepository) RoleAuthority {
	return &roleAuthority{userRepo: userRepo}
}

// Resolve loads the account of a verified email. A missing account is
// Forbidden for any role-gated operation.
func (a *roleAuthority) Resolve(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	user, err := a.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: no account registered for %s", ErrForbidden, email)
		}
		return nil, fmt.Errorf("%w: failed to load account: %v", ErrInternal, err)
	}
	return user, nil
}

// Classify returns the role of the account behind email.
func (a *roleAuthority) Classify(ctx context.Context, email string) (models.Role, error) {
	user, err := a.Resolve(ctx, email)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// RequireRole succeeds when the account behind email holds one of roles.
func (a *roleAuthority) RequireRole(ctx context.Context, email string, roles ...models.Role) (*models.User, error) {
	user, err := a.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if user.Role == r {
			return user, nil
		}
	}
	return nil, fmt.Errorf("%w: role %s not permitted", ErrForbidden, user.Role)
}
