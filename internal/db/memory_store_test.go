package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportify-backend-go/internal/models"
)

func TestMemoryUsers_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()

	require.NoError(t, users.Create(ctx, &models.User{Email: " Alice@Example.com ", Role: models.RoleCitizen}))

	got, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	err = users.Create(ctx, &models.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = users.GetByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUsers_UpdateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()
	require.NoError(t, users.Create(ctx, &models.User{Email: "a@x.io", IssueCount: 1}))

	boom := errors.New("boom")
	_, err := users.Update(ctx, "a@x.io", func(u *models.User) error {
		u.IssueCount = 99
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := users.GetByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, 1, got.IssueCount)
}

func TestMemoryUsers_UpdateSkipWrite(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()
	require.NoError(t, users.Create(ctx, &models.User{Email: "a@x.io", IsPremium: true}))

	got, err := users.Update(ctx, "a@x.io", func(u *models.User) error {
		u.IsPremium = false
		return ErrSkipWrite
	})
	require.NoError(t, err)
	assert.True(t, got.IsPremium)
}

func TestMemoryIssues_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	issues := NewMemoryStore().Issues()

	issue := &models.Issue{Title: "Pothole", Upvotes: []string{}}
	id, err := issues.Create(ctx, issue)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := issues.GetByID(ctx, id)
	require.NoError(t, err)
	got.Upvotes = append(got.Upvotes, "x@y.z")
	got.Title = "changed"

	again, err := issues.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Pothole", again.Title)
	assert.Empty(t, again.Upvotes)
}

func TestMemoryIssues_ConcurrentUpdatesSerialize(t *testing.T) {
	ctx := context.Background()
	issues := NewMemoryStore().Issues()
	id, err := issues.Create(ctx, &models.Issue{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := issues.Update(ctx, id, func(is *models.Issue) error {
				is.UpvoteCount++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := issues.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 50, got.UpvoteCount)
}

func TestMemoryIssues_DeleteHonoursCheck(t *testing.T) {
	ctx := context.Background()
	issues := NewMemoryStore().Issues()
	id, err := issues.Create(ctx, &models.Issue{Status: models.StatusWorking})
	require.NoError(t, err)

	denied := errors.New("not pending")
	_, err = issues.Delete(ctx, id, func(is *models.Issue) error {
		if is.Status != models.StatusPending {
			return denied
		}
		return nil
	})
	assert.ErrorIs(t, err, denied)

	deleted, err := issues.Delete(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, id, deleted.ID)

	_, err = issues.GetByID(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPayments_CreateIsKeyedByIntent(t *testing.T) {
	ctx := context.Background()
	payments := NewMemoryStore().Payments()
	now := time.Now().UTC()

	require.NoError(t, payments.Create(ctx, &models.Payment{PaymentIntentID: "pi_1", Email: "a@x.io", CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, payments.Create(ctx, &models.Payment{PaymentIntentID: "pi_2", Email: "a@x.io", CreatedAt: now}))
	require.NoError(t, payments.Create(ctx, &models.Payment{PaymentIntentID: "pi_3", Email: "b@x.io", CreatedAt: now}))

	err := payments.Create(ctx, &models.Payment{PaymentIntentID: "pi_1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	mine, err := payments.ListByEmail(ctx, "A@x.io")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "pi_2", mine[0].PaymentIntentID)

	recent, err := payments.ListCreatedSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestMemoryIssues_UpdateWithPaymentIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id, err := store.Issues().Create(ctx, &models.Issue{Title: "Leak", Status: models.StatusPending})
	require.NoError(t, err)

	errRejected := errors.New("rejected")
	_, err = store.Issues().UpdateWithPayment(ctx, id, &models.Payment{PaymentIntentID: "pi_1"}, func(is *models.Issue) error {
		is.IsBoosted = true
		return errRejected
	})
	assert.ErrorIs(t, err, errRejected)
	_, err = store.Payments().GetByIntentID(ctx, "pi_1")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := store.Issues().GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.IsBoosted)

	boost := func(is *models.Issue) error {
		is.IsBoosted = true
		return nil
	}
	updated, err := store.Issues().UpdateWithPayment(ctx, id, &models.Payment{PaymentIntentID: "pi_1"}, boost)
	require.NoError(t, err)
	assert.True(t, updated.IsBoosted)
	_, err = store.Payments().GetByIntentID(ctx, "pi_1")
	assert.NoError(t, err)

	_, err = store.Issues().UpdateWithPayment(ctx, id, &models.Payment{PaymentIntentID: "pi_1"}, boost)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = store.Issues().UpdateWithPayment(ctx, "missing", &models.Payment{PaymentIntentID: "pi_2"}, boost)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Payments().GetByIntentID(ctx, "pi_2")
	assert.ErrorIs(t, err, ErrNotFound)
}
