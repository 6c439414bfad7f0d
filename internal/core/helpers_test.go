package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store      *db.MemoryStore
	events     *recordingPublisher
	issues     IssueService
	upvotes    UpvoteLedger
	reconciler PaymentReconciler
	users      UserService
	admin      AdminService
	authority  RoleAuthority
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := db.NewMemoryStore()
	events := &recordingPublisher{}
	logger := zap.NewNop()
	guard := NewEntitlementGuard(DefaultFreeIssueQuota)
	return &fixture{
		store:      store,
		events:     events,
		issues:     NewIssueService(store.Issues(), store.Users(), guard, events, logger),
		upvotes:    NewUpvoteLedger(store.Issues(), events, logger),
		reconciler: NewPaymentReconciler(store.Payments(), store.Users(), store.Issues(), events, logger),
		users:      NewUserService(store.Users(), guard),
		admin:      NewAdminService(store.Users(), NewAuditService(store.Audit()), logger),
		authority:  NewRoleAuthority(store.Users()),
	}
}

func (f *fixture) addUser(t *testing.T, email string, role models.Role, mutate ...func(u *models.User)) Actor {
	t.Helper()
	u := &models.User{Email: email, Role: role, CreatedAt: time.Now().UTC()}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return ActorFromUser(u)
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.store.Users().GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

func (f *fixture) issue(t *testing.T, id string) *models.Issue {
	t.Helper()
	is, err := f.store.Issues().GetByID(context.Background(), id)
	require.NoError(t, err)
	return is
}

func (f *fixture) createIssue(t *testing.T, owner Actor) *models.Issue {
	t.Helper()
	is, err := f.issues.CreateIssue(context.Background(), owner, models.CreateIssueRequest{
		Title:       "Broken streetlight",
		Description: "Light out on the corner",
		Category:    "lighting",
		Location:    "Main St & 3rd",
	})
	require.NoError(t, err)
	return is
}

func premium(u *models.User) { u.IsPremium = true }

func blocked(u *models.User) { u.IsBlocked = true }
