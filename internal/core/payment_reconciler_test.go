package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/models"
)

func boostEvent(intentID, email, issueID string) PaymentEvent {
	return PaymentEvent{
		PaymentIntentID: intentID,
		Kind:            models.PaymentBoost,
		Email:           email,
		Amount:          100,
		Currency:        "USD",
		Status:          "paid",
		IssueID:         issueID,
	}
}

func premiumEvent(intentID, email string) PaymentEvent {
	return PaymentEvent{
		PaymentIntentID: intentID,
		Kind:            models.PaymentPremium,
		Email:           email,
		Amount:          1000,
		Currency:        "usd",
		Status:          "paid",
	}
}

func TestReconcile_BoostDeliveredTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "c@x.io", models.RoleCitizen)
	is := f.createIssue(t, owner)

	first, err := f.reconciler.Reconcile(ctx, boostEvent("pi_123", owner.Email, is.ID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)
	require.NotNil(t, first.Issue)
	assert.True(t, first.Issue.IsBoosted)
	assert.Equal(t, models.PriorityHigh, first.Issue.Priority)

	afterFirst := f.issue(t, is.ID)
	require.Len(t, afterFirst.Timeline, 2)
	assert.Equal(t, boostTimelineMessage, afterFirst.Timeline[1].Message)

	second, err := f.reconciler.Reconcile(ctx, boostEvent("pi_123", owner.Email, is.ID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.Equal(t, "pi_123", second.Payment.PaymentIntentID)

	afterSecond := f.issue(t, is.ID)
	assert.True(t, afterSecond.IsBoosted)
	assert.Len(t, afterSecond.Timeline, 2)

	payments, err := f.reconciler.ListPayments(ctx, owner.Email)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentBoost, payments[0].Type)
	assert.Equal(t, is.ID, payments[0].IssueID)
	assert.Equal(t, "usd", payments[0].Currency)
}

func TestReconcile_Premium(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	citizen := f.addUser(t, "c@x.io", models.RoleCitizen, func(u *models.User) { u.IssueCount = 3 })

	res, err := f.reconciler.Reconcile(ctx, premiumEvent("pi_prem", "C@x.io"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.True(t, res.User.IsPremium)
	assert.True(t, f.user(t, citizen.Email).IsPremium)

	now := time.Now().UTC()
	assert.Equal(t, int(now.Month()), res.Payment.Month)
	assert.Equal(t, now.Year(), res.Payment.Year)
	assert.Equal(t, citizen.Email, res.Payment.Email)

	again, err := f.reconciler.Reconcile(ctx, premiumEvent("pi_prem", citizen.Email))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, again.Outcome)
	assert.Contains(t, f.events.types(), EventPremiumActivated)
}

func TestReconcile_InvalidBoostPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "c@x.io", models.RoleCitizen)
	admin := f.addUser(t, "a@x.io", models.RoleAdmin)
	is := f.createIssue(t, owner)

	_, err := f.reconciler.Reconcile(ctx, boostEvent("pi_missing", owner.Email, "nope"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.reconciler.Reconcile(ctx, boostEvent("pi_a", owner.Email, is.ID))
	require.NoError(t, err)

	_, err = f.reconciler.Reconcile(ctx, boostEvent("pi_b", owner.Email, is.ID))
	assert.ErrorIs(t, err, ErrInvalid)

	other := f.createIssue(t, owner)
	_, err = f.issues.Transition(ctx, admin, other.ID, models.StatusRejected, "")
	require.NoError(t, err)
	_, err = f.reconciler.Reconcile(ctx, boostEvent("pi_c", owner.Email, other.ID))
	assert.ErrorIs(t, err, ErrInvalid)

	for _, id := range []string{"pi_missing", "pi_b", "pi_c"} {
		_, err := f.store.Payments().GetByIntentID(ctx, id)
		assert.Error(t, err, id)
	}
	assert.Len(t, f.issue(t, is.ID).Timeline, 2)
}

func TestReconcile_ValidatesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "c@x.io", models.RoleCitizen)

	tests := []struct {
		name string
		ev   PaymentEvent
	}{
		{"missing intent", premiumEvent("", "c@x.io")},
		{"unknown kind", PaymentEvent{PaymentIntentID: "pi", Kind: "tip", Email: "c@x.io", Status: "paid"}},
		{"missing email", premiumEvent("pi_1", "")},
		{"unpaid", PaymentEvent{PaymentIntentID: "pi_2", Kind: models.PaymentPremium, Email: "c@x.io", Status: "unpaid"}},
		{"boost without issue", boostEvent("pi_3", "c@x.io", "")},
		{"unknown account", premiumEvent("pi_4", "ghost@x.io")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reconciler.Reconcile(ctx, tt.ev)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestReconcile_ConcurrentDeliveriesApplyOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "c@x.io", models.RoleCitizen)
	is := f.createIssue(t, owner)

	const deliveries = 10
	outcomes := make(chan ReconcileOutcome, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.reconciler.Reconcile(context.Background(), boostEvent("pi_race", owner.Email, is.ID))
			if assert.NoError(t, err) {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	applied := 0
	for o := range outcomes {
		if o == OutcomeApplied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Len(t, f.issue(t, is.ID).Timeline, 2)
}

func TestCheckBoostEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "c@x.io", models.RoleCitizen)
	staff := f.addUser(t, "s@x.io", models.RoleStaff)
	is := f.createIssue(t, owner)

	got, err := f.reconciler.CheckBoostEligibility(ctx, owner, is.ID)
	require.NoError(t, err)
	assert.Equal(t, is.ID, got.ID)

	_, err = f.reconciler.CheckBoostEligibility(ctx, staff, is.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.reconciler.CheckBoostEligibility(ctx, owner, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.reconciler.Reconcile(ctx, boostEvent("pi_1", owner.Email, is.ID))
	require.NoError(t, err)
	_, err = f.reconciler.CheckBoostEligibility(ctx, owner, is.ID)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSweeper_RepairsMissingEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "c@x.io", models.RoleCitizen)
	is := f.createIssue(t, owner)
	now := time.Now().UTC()

	// Simulate a crash after the payment writes but before the effects.
	require.NoError(t, f.store.Payments().Create(ctx, &models.Payment{
		PaymentIntentID: "pi_premium", Email: owner.Email, Type: models.PaymentPremium, Status: "paid", CreatedAt: now,
	}))
	require.NoError(t, f.store.Payments().Create(ctx, &models.Payment{
		PaymentIntentID: "pi_boost", Email: owner.Email, Type: models.PaymentBoost, IssueID: is.ID, Status: "paid", CreatedAt: now,
	}))
	require.NoError(t, f.store.Payments().Create(ctx, &models.Payment{
		PaymentIntentID: "pi_gone", Email: owner.Email, Type: models.PaymentBoost, IssueID: "deleted", Status: "paid", CreatedAt: now,
	}))
	require.NoError(t, f.store.Payments().Create(ctx, &models.Payment{
		PaymentIntentID: "pi_old", Email: "old@x.io", Type: models.PaymentPremium, Status: "paid", CreatedAt: now.Add(-48 * time.Hour),
	}))

	sweeper := NewSweeper(f.store.Payments(), f.reconciler, 24*time.Hour, zap.NewNop())

	res, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 2, res.Repaired)
	assert.Equal(t, 0, res.Failed)

	assert.True(t, f.user(t, owner.Email).IsPremium)
	boosted := f.issue(t, is.ID)
	assert.True(t, boosted.IsBoosted)
	assert.Equal(t, models.PriorityHigh, boosted.Priority)
	assert.Len(t, boosted.Timeline, 2)

	// A second pass finds nothing to do.
	res, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Repaired)
	assert.Len(t, f.issue(t, is.ID).Timeline, 2)
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	sweeper := NewSweeper(f.store.Payments(), f.reconciler, time.Hour, zap.NewNop())
	assert.Error(t, sweeper.Start("not a schedule"))

	require.NoError(t, sweeper.Start("@every 1h"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sweeper.Stop(ctx)
}

// hookedIssues runs beforeBoost once ahead of the first UpdateWithPayment and
// replays the first attempt of every Update the way a retried transaction does.
type hookedIssues struct {
	db.IssueRepository
	beforeBoost  func()
	beforeCommit func()
	once         sync.Once
}

func (h *hookedIssues) UpdateWithPayment(ctx context.Context, issueID string, payment *models.Payment, mutate db.IssueMutator) (*models.Issue, error) {
	if h.beforeBoost != nil {
		h.once.Do(h.beforeBoost)
	}
	return h.IssueRepository.UpdateWithPayment(ctx, issueID, payment, mutate)
}

func (h *hookedIssues) Update(ctx context.Context, issueID string, mutate db.IssueMutator) (*models.Issue, error) {
	if h.beforeCommit != nil {
		snapshot, err := h.IssueRepository.GetByID(ctx, issueID)
		if err != nil {
			return nil, err
		}
		// First attempt runs on the stale snapshot and is discarded.
		_ = mutate(snapshot)
		h.beforeCommit()
	}
	return h.IssueRepository.Update(ctx, issueID, mutate)
}

func TestReconcile_RacingBoostForSameIssueIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "c@x.io", models.RoleCitizen)
	is := f.createIssue(t, owner)

	var first *ReconcileResult
	issues := &hookedIssues{IssueRepository: f.store.Issues()}
	issues.beforeBoost = func() {
		var err error
		first, err = f.reconciler.Reconcile(ctx, boostEvent("pi_A", owner.Email, is.ID))
		require.NoError(t, err)
	}
	racing := NewPaymentReconciler(f.store.Payments(), f.store.Users(), issues, f.events, zap.NewNop())

	_, err := racing.Reconcile(ctx, boostEvent("pi_B", owner.Email, is.ID))
	assert.ErrorIs(t, err, ErrInvalid)

	require.NotNil(t, first)
	assert.Equal(t, OutcomeApplied, first.Outcome)
	_, err = f.store.Payments().GetByIntentID(ctx, "pi_B")
	assert.ErrorIs(t, err, db.ErrNotFound)

	boosts := 0
	for _, entry := range f.issue(t, is.ID).Timeline {
		if entry.Message == boostTimelineMessage {
			boosts++
		}
	}
	assert.Equal(t, 1, boosts)
}

func TestApplyEffect_RetriedWriteReportsCommittedAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "c@x.io", models.RoleCitizen)
	is := f.createIssue(t, owner)

	issues := &hookedIssues{IssueRepository: f.store.Issues()}
	issues.beforeCommit = func() {
		// Another writer boosts the issue between the two attempts.
		_, err := f.store.Issues().Update(ctx, is.ID, func(cur *models.Issue) error {
			cur.IsBoosted = true
			return nil
		})
		require.NoError(t, err)
	}
	events := &recordingPublisher{}
	reconciler := NewPaymentReconciler(f.store.Payments(), f.store.Users(), issues, events, zap.NewNop())

	wrote, err := reconciler.ApplyEffect(ctx, &models.Payment{
		PaymentIntentID: "pi_retry", Email: owner.Email, Type: models.PaymentBoost, IssueID: is.ID, Status: "paid",
	})
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.NotContains(t, events.types(), EventIssueBoosted)
	assert.Len(t, f.issue(t, is.ID).Timeline, 1)
}

func TestSweeper_SkipsBoostForFinishedIssue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "c@x.io", models.RoleCitizen)
	admin := f.addUser(t, "a@x.io", models.RoleAdmin)
	is := f.createIssue(t, owner)
	_, err := f.issues.Transition(ctx, admin, is.ID, models.StatusRejected, "")
	require.NoError(t, err)
	timeline := len(f.issue(t, is.ID).Timeline)

	require.NoError(t, f.store.Payments().Create(ctx, &models.Payment{
		PaymentIntentID: "pi_late", Email: owner.Email, Type: models.PaymentBoost, IssueID: is.ID, Status: "paid", CreatedAt: time.Now().UTC(),
	}))

	sweeper := NewSweeper(f.store.Payments(), f.reconciler, time.Hour, zap.NewNop())
	res, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 0, res.Repaired)
	assert.Equal(t, 0, res.Failed)

	after := f.issue(t, is.ID)
	assert.False(t, after.IsBoosted)
	assert.Equal(t, models.StatusRejected, after.Status)
	assert.Len(t, after.Timeline, timeline)
}
