package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/metrics"
	"reportify-backend-go/internal/models"
)

// issueService implements the IssueService interface.
type issueService struct {
	issueRepo db.IssueRepository
	userRepo  db.UserRepository
	guard     *EntitlementGuard
	events    EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewIssueService creates a new IssueService instance.
func NewIssueService(
	ir db.IssueRepository,
	ur db.UserRepository,
	guard *EntitlementGuard,
	events EventPublisher,
	logger *zap.Logger,
) IssueService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &issueService{
		issueRepo: ir,
		userRepo:  ur,
		guard:     guard,
		events:    events,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateIssue files a new pending issue for a citizen. The entitlement check
// runs against a fresh account snapshot. The issue insert is the primary
// write; the issueCount increment follows it and a failure there is logged
// for repair instead of rolling the issue back.
func (s *issueService) CreateIssue(ctx context.Context, actor Actor, req models.CreateIssueRequest) (*models.Issue, error) {
	if err := Authorize(actor, CapCreateIssue, nil); err != nil {
		if errors.Is(err, ErrBlocked) {
			metrics.RecordEntitlementDenial("blocked")
		}
		return nil, err
	}
	if err := validateIssueFields(req.Title, req.Description, req.Category, req.Location); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, actor.Email)
	if err != nil {
		return nil, storeError(err, "account")
	}
	if err := s.guard.CanCreateIssue(user); err != nil {
		if errors.Is(err, ErrBlocked) {
			metrics.RecordEntitlementDenial("blocked")
		} else {
			metrics.RecordEntitlementDenial("quota")
		}
		return nil, err
	}

	now := s.now()
	issue := &models.Issue{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Category:     strings.TrimSpace(req.Category),
		Location:     strings.TrimSpace(req.Location),
		Image:        req.Image,
		CitizenEmail: actor.Email,
		Status:       models.StatusPending,
		Priority:     models.PriorityNormal,
		Upvotes:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	issue.AppendTimeline(models.StatusPending, "Issue reported by citizen", models.RoleCitizen, now)

	if _, err := s.issueRepo.Create(ctx, issue); err != nil {
		return nil, fmt.Errorf("%w: failed to store issue: %v", ErrInternal, err)
	}
	metrics.RecordIssueCreated()

	if _, err := s.userRepo.Update(ctx, actor.Email, func(u *models.User) error {
		u.IssueCount++
		u.UpdatedAt = now
		return nil
	}); err != nil {
		metrics.RecordReconcileRequired("issue_count_increment")
		s.logger.Error("reconcile_required: issue stored but issueCount not incremented",
			zap.String("issueId", issue.ID),
			zap.String("email", actor.Email),
			zap.Error(err))
	}

	s.emit(ctx, Event{Type: EventIssueCreated, SubjectID: issue.ID, ActorEmail: actor.Email,
		Data: map[string]interface{}{"category": issue.Category}})
	return issue, nil
}

// GetIssue returns a single issue.
func (s *issueService) GetIssue(ctx context.Context, issueID string) (*models.Issue, error) {
	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, storeError(err, "issue")
	}
	return issue, nil
}

// UpdateIssue edits the descriptive fields of a pending issue. Only the
// reporting citizen may edit.
func (s *issueService) UpdateIssue(ctx context.Context, actor Actor, issueID string, req models.UpdateIssueRequest) (*models.Issue, error) {
	if req.Title == nil && req.Description == nil && req.Category == nil && req.Location == nil && req.Image == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	for _, f := range []*string{req.Title, req.Description, req.Category, req.Location} {
		if f != nil && strings.TrimSpace(*f) == "" {
			return nil, fmt.Errorf("%w: title, description, category and location cannot be blank", ErrInvalid)
		}
	}

	updated, err := s.issueRepo.Update(ctx, issueID, func(issue *models.Issue) error {
		if err := Authorize(actor, CapEditIssue, issue); err != nil {
			return err
		}
		if issue.Status != models.StatusPending {
			return fmt.Errorf("%w: issue is %s", ErrInvalidState, issue.Status)
		}
		if req.Title != nil {
			issue.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			issue.Description = strings.TrimSpace(*req.Description)
		}
		if req.Category != nil {
			issue.Category = strings.TrimSpace(*req.Category)
		}
		if req.Location != nil {
			issue.Location = strings.TrimSpace(*req.Location)
		}
		if req.Image != nil {
			issue.Image = *req.Image
		}
		issue.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, storeError(err, "issue")
	}

	s.emit(ctx, Event{Type: EventIssueUpdated, SubjectID: issueID, ActorEmail: actor.Email})
	return updated, nil
}

// DeleteIssue removes a pending issue owned by actor and gives back one unit
// of the owner's quota.
func (s *issueService) DeleteIssue(ctx context.Context, actor Actor, issueID string) error {
	deleted, err := s.issueRepo.Delete(ctx, issueID, func(issue *models.Issue) error {
		if err := Authorize(actor, CapDeleteIssue, issue); err != nil {
			return err
		}
		if issue.Status != models.StatusPending {
			return fmt.Errorf("%w: issue is %s", ErrInvalidState, issue.Status)
		}
		return nil
	})
	if err != nil {
		return storeError(err, "issue")
	}

	if _, err := s.userRepo.Update(ctx, deleted.CitizenEmail, func(u *models.User) error {
		if u.IssueCount <= 0 {
			s.logger.Warn("issueCount already zero on issue delete",
				zap.String("issueId", issueID), zap.String("email", u.Email))
			return db.ErrSkipWrite
		}
		u.IssueCount--
		u.UpdatedAt = s.now()
		return nil
	}); err != nil {
		metrics.RecordReconcileRequired("issue_count_decrement")
		s.logger.Error("reconcile_required: issue deleted but issueCount not decremented",
			zap.String("issueId", issueID),
			zap.String("email", deleted.CitizenEmail),
			zap.Error(err))
	}

	s.emit(ctx, Event{Type: EventIssueDeleted, SubjectID: issueID, ActorEmail: actor.Email})
	return nil
}

// AssignStaff sets the responsible staff member. Status is left unchanged;
// the assignee moves the issue to in-progress with their first advance.
func (s *issueService) AssignStaff(ctx context.Context, actor Actor, issueID, staffEmail string) (*models.Issue, error) {
	if err := Authorize(actor, CapAssignIssue, nil); err != nil {
		return nil, err
	}
	staffEmail = db.NormalizeEmail(staffEmail)
	if staffEmail == "" {
		return nil, fmt.Errorf("%w: staff email is required", ErrInvalid)
	}

	staff, err := s.userRepo.GetByEmail(ctx, staffEmail)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: no staff account for %s", ErrInvalid, staffEmail)
		}
		return nil, storeError(err, "account")
	}
	if staff.Role != models.RoleStaff {
		return nil, fmt.Errorf("%w: %s is not a staff account", ErrInvalid, staffEmail)
	}

	updated, err := s.issueRepo.Update(ctx, issueID, func(issue *models.Issue) error {
		switch issue.Status {
		case models.StatusPending, models.StatusInProgress, models.StatusWorking:
		default:
			return fmt.Errorf("%w: cannot assign an issue that is %s", ErrInvalidState, issue.Status)
		}
		if issue.AssignedStaff == staffEmail {
			return db.ErrSkipWrite
		}
		now := s.now()
		issue.AssignedStaff = staffEmail
		issue.AppendTimeline(issue.Status, "Issue assigned to staff "+staffEmail, models.RoleAdmin, now)
		issue.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err, "issue")
	}

	s.emit(ctx, Event{Type: EventIssueAssigned, SubjectID: issueID, ActorEmail: actor.Email,
		Data: map[string]interface{}{"staff": staffEmail}})
	return updated, nil
}

// Transition is the single entry point for status changes. The actor's
// authority over the target status is checked first, then the edge against
// the state machine, both on the same snapshot that gets written.
func (s *issueService) Transition(ctx context.Context, actor Actor, issueID string, to models.IssueStatus, message string) (*models.Issue, error) {
	capability, ok := RequiredCapability(to)
	if !ok {
		return nil, fmt.Errorf("%w: status %q cannot be requested", ErrInvalidTransition, to)
	}

	var from models.IssueStatus
	updated, err := s.issueRepo.Update(ctx, issueID, func(issue *models.Issue) error {
		if err := Authorize(actor, capability, issue); err != nil {
			return err
		}
		if err := ValidateTransition(issue.Status, to); err != nil {
			return err
		}
		from = issue.Status
		now := s.now()
		issue.Status = to
		issue.AppendTimeline(to, transitionMessage(to, strings.TrimSpace(message)), actor.Role, now)
		issue.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err, "issue")
	}

	metrics.RecordTransition(string(from), string(to))
	s.emit(ctx, Event{Type: EventIssueTransitioned, SubjectID: issueID, ActorEmail: actor.Email,
		Data: map[string]interface{}{"from": string(from), "to": string(to)}})
	return updated, nil
}

func (s *issueService) emit(ctx context.Context, ev Event) {
	publish(ctx, s.events, s.logger, ev)
}

func validateIssueFields(fields ...string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: title, description, category and location are required", ErrInvalid)
		}
	}
	return nil
}

// storeError maps repository errors onto domain kinds. Errors that already
// carry a domain kind pass through.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case isDomainError(err):
		return err
	default:
		return fmt.Errorf("%w: %s store: %v", ErrInternal, what, err)
	}
}

func isDomainError(err error) bool {
	for _, kind := range []error{
		ErrUnauthorized, ErrForbidden, ErrNotFound, ErrInvalidTransition, ErrInvalidState,
		ErrQuotaExceeded, ErrBlocked, ErrDuplicate, ErrSelfVote, ErrInvalid, ErrInternal,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// publish sends an event and logs delivery failures; the mutation it
// describes has already been committed.
func publish(ctx context.Context, events EventPublisher, logger *zap.Logger, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := events.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish event",
			zap.String("type", ev.Type),
			zap.String("subjectId", ev.SubjectID),
			zap.Error(err))
	}
}
