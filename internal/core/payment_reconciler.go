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

// ReconcileOutcome is the result kind of a reconciliation.
type ReconcileOutcome string

const (
	OutcomeApplied          ReconcileOutcome = "applied"
	OutcomeAlreadyProcessed ReconcileOutcome = "already_processed"
)

// PaymentEvent is a provider payment already verified as paid by the caller.
type PaymentEvent struct {
	PaymentIntentID string
	Kind            models.PaymentType
	Email           string
	Amount          int64
	Currency        string
	Status          string
	IssueID         string // boost only
}

// ReconcileResult describes what Reconcile did.
type ReconcileResult struct {
	Outcome ReconcileOutcome `json:"outcome"`
	Payment *models.Payment  `json:"payment"`
	User    *models.User     `json:"user,omitempty"`  // premium
	Issue   *models.Issue    `json:"issue,omitempty"` // boost
}

const boostTimelineMessage = "Issue boosted to high priority"

type paymentReconciler struct {
	paymentRepo db.PaymentRepository
	userRepo    db.UserRepository
	issueRepo   db.IssueRepository
	events      EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentReconciler creates a new PaymentReconciler instance.
func NewPaymentReconciler(
	pr db.PaymentRepository,
	ur db.UserRepository,
	ir db.IssueRepository,
	events EventPublisher,
	logger *zap.Logger,
) PaymentReconciler {
	if events == nil {
		events = NoopPublisher{}
	}
	return &paymentReconciler{
		paymentRepo: pr,
		userRepo:    ur,
		issueRepo:   ir,
		events:      events,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile applies a verified payment. The ledger keyed by payment-intent id
// decides whether the event was seen before. A boost records the payment and
// boosts the issue in one atomic write, checked against the same snapshot. A
// premium payment is written before the effect, so a crash in between leaves a
// record the sweeper can re-derive the effect from, and a replay can never
// apply the effect twice.
func (r *paymentReconciler) Reconcile(ctx context.Context, ev PaymentEvent) (*ReconcileResult, error) {
	ev.Email = db.NormalizeEmail(ev.Email)
	if err := validatePaymentEvent(ev); err != nil {
		metrics.RecordReconciliation(string(ev.Kind), "invalid")
		return nil, err
	}

	existing, err := r.paymentRepo.GetByIntentID(ctx, ev.PaymentIntentID)
	if err == nil {
		return r.alreadyProcessed(existing), nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: payment ledger lookup: %v", ErrInternal, err)
	}

	now := r.now()
	payment := &models.Payment{
		PaymentIntentID: ev.PaymentIntentID,
		Email:           ev.Email,
		Amount:          ev.Amount,
		Currency:        strings.ToLower(ev.Currency),
		Status:          ev.Status,
		Type:            ev.Kind,
		CreatedAt:       now,
		Month:           int(now.Month()),
		Year:            now.Year(),
	}

	var result *ReconcileResult
	switch payment.Type {
	case models.PaymentBoost:
		payment.IssueID = ev.IssueID
		result, err = r.reconcileBoost(ctx, payment)
	default:
		result, err = r.reconcilePremium(ctx, payment)
	}
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			metrics.RecordReconciliation(string(ev.Kind), "invalid")
		}
		return nil, err
	}
	if result.Outcome == OutcomeApplied {
		metrics.RecordReconciliation(string(ev.Kind), string(OutcomeApplied))
		r.logger.Info("payment reconciled",
			zap.String("paymentIntentId", payment.PaymentIntentID),
			zap.String("type", string(payment.Type)),
			zap.String("email", payment.Email))
	}
	return result, nil
}

// reconcileBoost records the payment and boosts the issue in one write. The
// boost preconditions are evaluated inside that write, so a boost that lost a
// race against another intent for the same issue is Invalid and leaves no
// payment behind.
func (r *paymentReconciler) reconcileBoost(ctx context.Context, payment *models.Payment) (*ReconcileResult, error) {
	issue, err := r.issueRepo.UpdateWithPayment(ctx, payment.IssueID, payment, func(is *models.Issue) error {
		if err := boostable(is); err != nil {
			return err
		}
		applyBoostFields(is, r.now())
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, db.ErrAlreadyExists):
		return r.ledgerWinner(ctx, payment), nil
	case errors.Is(err, db.ErrNotFound):
		return r.rejected(ctx, payment, fmt.Errorf("%w: issue %s does not exist", ErrInvalid, payment.IssueID))
	case errors.Is(err, ErrInvalid):
		return r.rejected(ctx, payment, err)
	default:
		// Nothing was written, a retry is safe.
		return nil, fmt.Errorf("%w: failed to record boost payment: %v", ErrInternal, err)
	}

	r.publishPaymentRecorded(ctx, payment)
	publish(ctx, r.events, r.logger, Event{Type: EventIssueBoosted, SubjectID: issue.ID, ActorEmail: payment.Email,
		Data: map[string]interface{}{"paymentIntentId": payment.PaymentIntentID}})
	return &ReconcileResult{Outcome: OutcomeApplied, Payment: payment, Issue: issue}, nil
}

// reconcilePremium writes the payment first and then flags the account.
func (r *paymentReconciler) reconcilePremium(ctx context.Context, payment *models.Payment) (*ReconcileResult, error) {
	if _, err := r.userRepo.GetByEmail(ctx, payment.Email); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return r.rejected(ctx, payment, fmt.Errorf("%w: no account for %s", ErrInvalid, payment.Email))
		}
		return nil, fmt.Errorf("%w: account lookup: %v", ErrInternal, err)
	}

	if err := r.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			return r.ledgerWinner(ctx, payment), nil
		}
		return nil, fmt.Errorf("%w: failed to record payment: %v", ErrInternal, err)
	}
	r.publishPaymentRecorded(ctx, payment)

	user, _, err := r.applyPremium(ctx, payment)
	if err != nil {
		return nil, r.effectFailed(payment, err)
	}
	return &ReconcileResult{Outcome: OutcomeApplied, Payment: payment, User: user}, nil
}

// rejected reports err unless a concurrent delivery of the same intent was
// recorded meanwhile, in which case the event counts as already processed.
func (r *paymentReconciler) rejected(ctx context.Context, payment *models.Payment, err error) (*ReconcileResult, error) {
	if stored, getErr := r.paymentRepo.GetByIntentID(ctx, payment.PaymentIntentID); getErr == nil {
		return r.alreadyProcessed(stored), nil
	}
	return nil, err
}

// ledgerWinner returns the record written by the delivery that won the race.
func (r *paymentReconciler) ledgerWinner(ctx context.Context, payment *models.Payment) *ReconcileResult {
	stored, err := r.paymentRepo.GetByIntentID(ctx, payment.PaymentIntentID)
	if err != nil {
		stored = payment
	}
	return r.alreadyProcessed(stored)
}

func (r *paymentReconciler) alreadyProcessed(stored *models.Payment) *ReconcileResult {
	metrics.RecordReconciliation(string(stored.Type), string(OutcomeAlreadyProcessed))
	return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Payment: stored}
}

func (r *paymentReconciler) publishPaymentRecorded(ctx context.Context, payment *models.Payment) {
	publish(ctx, r.events, r.logger, Event{Type: EventPaymentRecorded, SubjectID: payment.PaymentIntentID,
		ActorEmail: payment.Email, Data: map[string]interface{}{"type": string(payment.Type), "amount": payment.Amount}})
}

// ApplyEffect re-derives the effect of a stored payment.
func (r *paymentReconciler) ApplyEffect(ctx context.Context, payment *models.Payment) (bool, error) {
	switch payment.Type {
	case models.PaymentPremium:
		_, wrote, err := r.applyPremium(ctx, payment)
		return wrote, err
	case models.PaymentBoost:
		_, wrote, err := r.applyBoost(ctx, payment)
		return wrote, err
	}
	return false, fmt.Errorf("%w: unknown payment type %q", ErrInvalid, payment.Type)
}

// ListPayments returns the payments of one account.
func (r *paymentReconciler) ListPayments(ctx context.Context, email string) ([]*models.Payment, error) {
	payments, err := r.paymentRepo.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list payments: %v", ErrInternal, err)
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}

// CheckBoostEligibility verifies that actor may buy a boost for issueID.
func (r *paymentReconciler) CheckBoostEligibility(ctx context.Context, actor Actor, issueID string) (*models.Issue, error) {
	if err := Authorize(actor, CapBoostIssue, nil); err != nil {
		return nil, err
	}
	issue, err := r.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, storeError(err, "issue")
	}
	if err := boostable(issue); err != nil {
		return nil, err
	}
	return issue, nil
}

func (r *paymentReconciler) applyPremium(ctx context.Context, payment *models.Payment) (*models.User, bool, error) {
	wrote := false
	user, err := r.userRepo.Update(ctx, payment.Email, func(u *models.User) error {
		wrote = false
		if u.IsPremium {
			return db.ErrSkipWrite
		}
		u.IsPremium = true
		u.UpdatedAt = r.now()
		wrote = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if wrote {
		publish(ctx, r.events, r.logger, Event{Type: EventPremiumActivated, SubjectID: user.Email,
			Data: map[string]interface{}{"paymentIntentId": payment.PaymentIntentID}})
	}
	return user, wrote, nil
}

// applyBoost re-derives the boost of a recorded payment. An issue that is
// already boosted, or has been closed or rejected since, is left untouched.
func (r *paymentReconciler) applyBoost(ctx context.Context, payment *models.Payment) (*models.Issue, bool, error) {
	wrote := false
	issue, err := r.issueRepo.Update(ctx, payment.IssueID, func(is *models.Issue) error {
		// The store may run this more than once; only the committed attempt counts.
		wrote = false
		if is.IsBoosted {
			return db.ErrSkipWrite
		}
		if is.Status.IsTerminal() {
			r.logger.Warn("boost payment targets a finished issue, effect skipped",
				zap.String("paymentIntentId", payment.PaymentIntentID),
				zap.String("issueId", payment.IssueID),
				zap.String("status", string(is.Status)))
			return db.ErrSkipWrite
		}
		applyBoostFields(is, r.now())
		wrote = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !wrote {
		return issue, false, nil
	}
	publish(ctx, r.events, r.logger, Event{Type: EventIssueBoosted, SubjectID: issue.ID, ActorEmail: payment.Email,
		Data: map[string]interface{}{"paymentIntentId": payment.PaymentIntentID}})
	return issue, true, nil
}

func applyBoostFields(is *models.Issue, now time.Time) {
	is.IsBoosted = true
	is.Priority = models.PriorityHigh
	is.AppendTimeline(is.Status, boostTimelineMessage, models.RoleCitizen, now)
	is.UpdatedAt = now
}

func (r *paymentReconciler) effectFailed(payment *models.Payment, err error) error {
	metrics.RecordReconcileRequired("payment_effect")
	r.logger.Error("reconcile_required: payment recorded but effect not applied",
		zap.String("paymentIntentId", payment.PaymentIntentID),
		zap.String("type", string(payment.Type)),
		zap.Error(err))
	return fmt.Errorf("%w: payment %s recorded, effect pending: %v", ErrInternal, payment.PaymentIntentID, err)
}

func validatePaymentEvent(ev PaymentEvent) error {
	if ev.PaymentIntentID == "" {
		return fmt.Errorf("%w: payment intent id is required", ErrInvalid)
	}
	if !ev.Kind.Valid() {
		return fmt.Errorf("%w: unknown payment kind %q", ErrInvalid, ev.Kind)
	}
	if ev.Email == "" {
		return fmt.Errorf("%w: payer email is required", ErrInvalid)
	}
	if ev.Status != "paid" {
		return fmt.Errorf("%w: payment status is %q", ErrInvalid, ev.Status)
	}
	if ev.Kind == models.PaymentBoost && ev.IssueID == "" {
		return fmt.Errorf("%w: boost payment without issue id", ErrInvalid)
	}
	return nil
}

func boostable(issue *models.Issue) error {
	if issue.IsBoosted {
		return fmt.Errorf("%w: issue %s is already boosted", ErrInvalid, issue.ID)
	}
	if issue.Status.IsTerminal() {
		return fmt.Errorf("%w: issue %s is %s", ErrInvalid, issue.ID, issue.Status)
	}
	return nil
}
