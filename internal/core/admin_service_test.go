package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportify-backend-go/internal/models"
)

func TestAdmin_CreateAndRemoveStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "a@x.io", models.RoleAdmin)
	citizen := f.addUser(t, "c@x.io", models.RoleCitizen)

	staff, err := f.admin.CreateStaff(ctx, admin, models.CreateStaffRequest{Email: "New.Staff@x.io", Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "new.staff@x.io", staff.Email)
	assert.Equal(t, models.RoleStaff, staff.Role)

	_, err = f.admin.CreateStaff(ctx, admin, models.CreateStaffRequest{Email: "new.staff@x.io"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = f.admin.CreateStaff(ctx, citizen, models.CreateStaffRequest{Email: "z@x.io"})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, f.admin.RemoveStaff(ctx, admin, citizen.Email), ErrInvalid)
	require.NoError(t, f.admin.RemoveStaff(ctx, admin, staff.Email))
	assert.ErrorIs(t, f.admin.RemoveStaff(ctx, admin, staff.Email), ErrNotFound)

	actions := make([]string, 0)
	for _, entry := range f.store.AuditLogs() {
		actions = append(actions, entry.Action)
		assert.Equal(t, admin.Email, entry.ActorEmail)
	}
	assert.Equal(t, []string{AuditStaffCreate, AuditStaffRemove}, actions)
}

func TestAdmin_BlockAndRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "a@x.io", models.RoleAdmin)
	citizen := f.addUser(t, "c@x.io", models.RoleCitizen)

	u, err := f.admin.SetBlocked(ctx, admin, citizen.Email, true)
	require.NoError(t, err)
	assert.True(t, u.IsBlocked)

	u, err = f.admin.SetBlocked(ctx, admin, citizen.Email, false)
	require.NoError(t, err)
	assert.False(t, u.IsBlocked)

	_, err = f.admin.SetBlocked(ctx, admin, admin.Email, true)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.admin.SetBlocked(ctx, admin, "ghost@x.io", true)
	assert.ErrorIs(t, err, ErrNotFound)

	u, err = f.admin.ChangeRole(ctx, admin, citizen.Email, models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, u.Role)

	_, err = f.admin.ChangeRole(ctx, admin, citizen.Email, models.Role("superuser"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.admin.ChangeRole(ctx, admin, admin.Email, models.RoleCitizen)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.admin.ChangeRole(ctx, ActorFromUser(f.user(t, citizen.Email)), admin.Email, models.RoleCitizen)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Len(t, f.store.AuditLogs(), 3)
}

func TestRoleAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "s@x.io", models.RoleStaff)

	role, err := f.authority.Classify(ctx, "s@x.io")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, role)

	_, err = f.authority.Classify(ctx, "ghost@x.io")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.authority.Classify(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	u, err := f.authority.RequireRole(ctx, "s@x.io", models.RoleStaff, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "s@x.io", u.Email)

	_, err = f.authority.RequireRole(ctx, "s@x.io", models.RoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUserService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, created, err := f.users.Register(ctx, "New@x.io", models.RegisterUserRequest{Name: "New"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "new@x.io", u.Email)
	assert.Equal(t, models.RoleCitizen, u.Role)
	assert.False(t, u.IsPremium)
	assert.False(t, u.IsBlocked)
	assert.Zero(t, u.IssueCount)
	assert.False(t, u.CreatedAt.IsZero())

	again, created, err := f.users.Register(ctx, "new@x.io", models.RegisterUserRequest{Name: "Other"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "New", again.Name)

	_, _, err = f.users.Register(ctx, "", models.RegisterUserRequest{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, 3, f.users.RemainingQuota(u))
}
