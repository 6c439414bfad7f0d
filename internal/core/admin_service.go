package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/models"
)

// Audit actions written by the admin service.
const (
	AuditStaffCreate = "STAFF_CREATE"
	AuditStaffRemove = "STAFF_REMOVE"
	AuditUserBlock   = "USER_BLOCK"
	AuditUserUnblock = "USER_UNBLOCK"
	AuditRoleChange  = "USER_ROLE_CHANGE"
)

// adminService implements the AdminService interface.
type adminService struct {
	userRepo     db.UserRepository
	auditService AuditService
	logger       *zap.Logger
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(ur db.UserRepository, as AuditService, logger *zap.Logger) AdminService {
	return &adminService{userRepo: ur, auditService: as, logger: logger}
}

// CreateStaff registers a new staff account.
func (s *adminService) CreateStaff(ctx context.Context, actor Actor, req models.CreateStaffRequest) (*models.User, error) {
	if err := Authorize(actor, CapManageAccounts, nil); err != nil {
		return nil, err
	}
	email := db.NormalizeEmail(req.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalid)
	}

	now := time.Now().UTC()
	staff := &models.User{
		Email:     email,
		Name:      req.Name,
		PhotoURL:  req.PhotoURL,
		Role:      models.RoleStaff,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, staff); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: account %s already exists", ErrDuplicate, email)
		}
		return nil, fmt.Errorf("%w: failed to create staff: %v", ErrInternal, err)
	}

	s.audit(ctx, actor, AuditStaffCreate, email, map[string]interface{}{"name": req.Name})
	return staff, nil
}

// RemoveStaff deletes a staff account. Accounts with any other role are left
// alone.
func (s *adminService) RemoveStaff(ctx context.Context, actor Actor, email string) error {
	if err := Authorize(actor, CapManageAccounts, nil); err != nil {
		return err
	}
	email = db.NormalizeEmail(email)
	err := s.userRepo.Delete(ctx, email, func(u *models.User) error {
		if u.Role != models.RoleStaff {
			return fmt.Errorf("%w: %s is not a staff account", ErrInvalid, email)
		}
		return nil
	})
	if err != nil {
		return storeError(err, "account")
	}

	s.audit(ctx, actor, AuditStaffRemove, email, nil)
	return nil
}

// SetBlocked blocks or unblocks an account. Admins cannot block themselves.
func (s *adminService) SetBlocked(ctx context.Context, actor Actor, email string, blocked bool) (*models.User, error) {
	if err := Authorize(actor, CapManageAccounts, nil); err != nil {
		return nil, err
	}
	email = db.NormalizeEmail(email)
	if email == actor.Email {
		return nil, fmt.Errorf("%w: cannot change the blocked flag of your own account", ErrInvalid)
	}

	user, err := s.userRepo.Update(ctx, email, func(u *models.User) error {
		if u.IsBlocked == blocked {
			return db.ErrSkipWrite
		}
		u.IsBlocked = blocked
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, storeError(err, "account")
	}

	action := AuditUserUnblock
	if blocked {
		action = AuditUserBlock
	}
	s.audit(ctx, actor, action, email, nil)
	return user, nil
}

// ChangeRole sets the role of another account.
func (s *adminService) ChangeRole(ctx context.Context, actor Actor, email string, role models.Role) (*models.User, error) {
	if err := Authorize(actor, CapManageAccounts, nil); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalid, role)
	}
	email = db.NormalizeEmail(email)
	if email == actor.Email {
		return nil, fmt.Errorf("%w: cannot change your own role", ErrInvalid)
	}

	var previous models.Role
	user, err := s.userRepo.Update(ctx, email, func(u *models.User) error {
		previous = u.Role
		if u.Role == role {
			return db.ErrSkipWrite
		}
		u.Role = role
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, storeError(err, "account")
	}

	s.audit(ctx, actor, AuditRoleChange, email, map[string]interface{}{"from": string(previous), "to": string(role)})
	return user, nil
}

func (s *adminService) audit(ctx context.Context, actor Actor, action, target string, details map[string]interface{}) {
	recordAudit(ctx, s.auditService, s.logger, models.AuditLog{
		ActorEmail: actor.Email,
		Action:     action,
		TargetType: "USER",
		TargetID:   target,
		Details:    details,
	})
}
