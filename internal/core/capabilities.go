package core

import (
	"fmt"

	"reportify-backend-go/internal/models"
)

// Actor is the authenticated caller as seen by authorization checks.
type Actor struct {
	Email     string
	Role      models.Role
	IsBlocked bool
}

// ActorFromUser builds an Actor from a stored account.
func ActorFromUser(u *models.User) Actor {
	return Actor{Email: u.Email, Role: u.Role, IsBlocked: u.IsBlocked}
}

// Capability names an action on an issue or on accounts.
type Capability string

const (
	CapCreateIssue    Capability = "issue:create"
	CapEditIssue      Capability = "issue:edit"
	CapDeleteIssue    Capability = "issue:delete"
	CapUpvoteIssue    Capability = "issue:upvote"
	CapBoostIssue     Capability = "issue:boost"
	CapAdvanceIssue   Capability = "issue:advance"
	CapAssignIssue    Capability = "issue:assign"
	CapRejectIssue    Capability = "issue:reject"
	CapCloseIssue     Capability = "issue:close"
	CapManageAccounts Capability = "accounts:manage"
	CapBuyPremium     Capability = "payments:premium"
)

// Authorize decides whether actor holds capability on issue. It is a pure
// function of its inputs; issue may be nil for capabilities that do not
// depend on a resource. Issue state is not considered here.
func Authorize(actor Actor, capability Capability, issue *models.Issue) error {
	if actor.Email == "" {
		return ErrUnauthorized
	}

	switch capability {
	case CapCreateIssue, CapUpvoteIssue, CapBoostIssue, CapBuyPremium:
		if actor.Role != models.RoleCitizen {
			return fmt.Errorf("%w: only citizens may perform %s", ErrForbidden, capability)
		}
		if actor.IsBlocked {
			return fmt.Errorf("%w: %s", ErrBlocked, actor.Email)
		}
		return nil

	case CapEditIssue, CapDeleteIssue:
		if actor.Role != models.RoleCitizen || issue == nil || issue.CitizenEmail != actor.Email {
			return fmt.Errorf("%w: only the reporting citizen may modify this issue", ErrForbidden)
		}
		return nil

	case CapAdvanceIssue:
		if actor.Role != models.RoleStaff || issue == nil || issue.AssignedStaff == "" || issue.AssignedStaff != actor.Email {
			return fmt.Errorf("%w: issue is not assigned to %s", ErrForbidden, actor.Email)
		}
		return nil

	case CapAssignIssue, CapRejectIssue, CapManageAccounts:
		if actor.Role != models.RoleAdmin {
			return fmt.Errorf("%w: admin role required", ErrForbidden)
		}
		return nil

	case CapCloseIssue:
		if actor.Role == models.RoleAdmin {
			return nil
		}
		if actor.Role == models.RoleCitizen && issue != nil && issue.CitizenEmail == actor.Email {
			return nil
		}
		return fmt.Errorf("%w: only the reporting citizen or an admin may close this issue", ErrForbidden)
	}

	return fmt.Errorf("%w: unknown capability %q", ErrForbidden, capability)
}
