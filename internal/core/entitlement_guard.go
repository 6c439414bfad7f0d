package core

import (
	"fmt"

	"reportify-backend-go/internal/models"
)

// DefaultFreeIssueQuota is the number of issues a non-premium citizen may hold.
const DefaultFreeIssueQuota = 3

// EntitlementGuard decides whether a citizen may file another issue.
type EntitlementGuard struct {
	freeQuota int
}

// NewEntitlementGuard creates a guard with the given free-tier quota.
func NewEntitlementGuard(freeQuota int) *EntitlementGuard {
	if freeQuota < 0 {
		freeQuota = DefaultFreeIssueQuota
	}
	return &EntitlementGuard{freeQuota: freeQuota}
}

// CanCreateIssue returns ErrBlocked, ErrQuotaExceeded or nil.
func (g *EntitlementGuard) CanCreateIssue(user *models.User) error {
	if user.IsBlocked {
		return fmt.Errorf("%w: %s", ErrBlocked, user.Email)
	}
	if !user.IsPremium && user.IssueCount >= g.freeQuota {
		return fmt.Errorf("%w: %d of %d issues used", ErrQuotaExceeded, user.IssueCount, g.freeQuota)
	}
	return nil
}

// RemainingQuota reports how many more issues user may file; -1 means unlimited.
func (g *EntitlementGuard) RemainingQuota(user *models.User) int {
	if user.IsPremium {
		return -1
	}
	if left := g.freeQuota - user.IssueCount; left > 0 {
		return left
	}
	return 0
}
