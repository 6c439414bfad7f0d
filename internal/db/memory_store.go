package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"reportify-backend-go/internal/models"
)

// MemoryStore keeps users, issues, payments and audit logs in process memory.
// A single mutex serializes every read-modify-write, which gives the same
// per-document atomicity as the Firestore transactions. Documents are cloned
// on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	issues   map[string]*models.Issue
	payments map[string]*models.Payment
	audit    []models.AuditLog
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		issues:   make(map[string]*models.Issue),
		payments: make(map[string]*models.Payment),
	}
}

// Users returns the store's UserRepository view.
func (s *MemoryStore) Users() UserRepository { return (*memoryUsers)(s) }

// Issues returns the store's IssueRepository view.
func (s *MemoryStore) Issues() IssueRepository { return (*memoryIssues)(s) }

// Payments returns the store's PaymentRepository view.
func (s *MemoryStore) Payments() PaymentRepository { return (*memoryPayments)(s) }

// Audit returns the store's AuditRepository view.
func (s *MemoryStore) Audit() AuditRepository { return (*memoryAudit)(s) }

// AuditLogs returns a copy of the recorded audit entries.
func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.audit...)
}

// IssueIDs returns the ids of all stored issues.
func (s *MemoryStore) IssueIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.issues))
	for id := range s.issues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type memoryUsers MemoryStore

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user '%s' not found: %w", email, ErrNotFound)
	}
	return u.Clone(), nil
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	if user.Email == "" {
		return errors.New("user email cannot be empty for Create operation")
	}
	user.Email = NormalizeEmail(user.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return fmt.Errorf("user '%s' already exists: %w", user.Email, ErrAlreadyExists)
	}
	m.users[user.Email] = user.Clone()
	return nil
}

func (m *memoryUsers) Update(_ context.Context, email string, mutate UserMutator) (*models.User, error) {
	key := NormalizeEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.users[key]
	if !ok {
		return nil, fmt.Errorf("user '%s' not found: %w", email, ErrNotFound)
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		if errors.Is(err, ErrSkipWrite) {
			return current.Clone(), nil
		}
		return nil, err
	}
	working.Email = key
	m.users[key] = working.Clone()
	return working, nil
}

func (m *memoryUsers) Delete(_ context.Context, email string, check func(user *models.User) error) error {
	key := NormalizeEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.users[key]
	if !ok {
		return fmt.Errorf("user '%s' not found: %w", email, ErrNotFound)
	}
	if check != nil {
		if err := check(current.Clone()); err != nil {
			return err
		}
	}
	delete(m.users, key)
	return nil
}

type memoryIssues MemoryStore

func (m *memoryIssues) Create(_ context.Context, issue *models.Issue) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue.ID = uuid.NewString()
	m.issues[issue.ID] = issue.Clone()
	return issue.ID, nil
}

func (m *memoryIssues) GetByID(_ context.Context, issueID string) (*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[issueID]
	if !ok {
		return nil, fmt.Errorf("issue with ID '%s' not found: %w", issueID, ErrNotFound)
	}
	return issue.Clone(), nil
}

func (m *memoryIssues) Update(_ context.Context, issueID string, mutate IssueMutator) (*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.issues[issueID]
	if !ok {
		return nil, fmt.Errorf("issue with ID '%s' not found: %w", issueID, ErrNotFound)
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		if errors.Is(err, ErrSkipWrite) {
			return current.Clone(), nil
		}
		return nil, err
	}
	working.ID = issueID
	m.issues[issueID] = working.Clone()
	return working, nil
}

func (m *memoryIssues) UpdateWithPayment(_ context.Context, issueID string, payment *models.Payment, mutate IssueMutator) (*models.Issue, error) {
	if payment == nil || payment.PaymentIntentID == "" {
		return nil, errors.New("payment intent ID cannot be empty for UpdateWithPayment operation")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.PaymentIntentID]; ok {
		return nil, fmt.Errorf("payment '%s' already recorded: %w", payment.PaymentIntentID, ErrAlreadyExists)
	}
	current, ok := m.issues[issueID]
	if !ok {
		return nil, fmt.Errorf("issue with ID '%s' not found: %w", issueID, ErrNotFound)
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.ID = issueID
	m.issues[issueID] = working.Clone()
	p := *payment
	m.payments[payment.PaymentIntentID] = &p
	return working, nil
}

func (m *memoryIssues) Delete(_ context.Context, issueID string, check func(issue *models.Issue) error) (*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.issues[issueID]
	if !ok {
		return nil, fmt.Errorf("issue with ID '%s' not found: %w", issueID, ErrNotFound)
	}
	if check != nil {
		if err := check(current.Clone()); err != nil {
			return nil, err
		}
	}
	delete(m.issues, issueID)
	return current.Clone(), nil
}

type memoryPayments MemoryStore

func (m *memoryPayments) GetByIntentID(_ context.Context, intentID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[intentID]
	if !ok {
		return nil, fmt.Errorf("payment '%s' not found: %w", intentID, ErrNotFound)
	}
	c := *p
	return &c, nil
}

func (m *memoryPayments) Create(_ context.Context, payment *models.Payment) error {
	if payment.PaymentIntentID == "" {
		return errors.New("payment intent ID cannot be empty for Create operation")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.PaymentIntentID]; ok {
		return fmt.Errorf("payment '%s' already recorded: %w", payment.PaymentIntentID, ErrAlreadyExists)
	}
	c := *payment
	m.payments[payment.PaymentIntentID] = &c
	return nil
}

func (m *memoryPayments) ListByEmail(_ context.Context, email string) ([]*models.Payment, error) {
	key := NormalizeEmail(email)
	return m.list(func(p *models.Payment) bool { return p.Email == key }, true), nil
}

func (m *memoryPayments) ListCreatedSince(_ context.Context, since time.Time) ([]*models.Payment, error) {
	return m.list(func(p *models.Payment) bool { return !p.CreatedAt.Before(since) }, false), nil
}

func (m *memoryPayments) list(match func(p *models.Payment) bool, newestFirst bool) []*models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Payment
	for _, p := range m.payments {
		if match(p) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type memoryAudit MemoryStore

func (m *memoryAudit) Create(_ context.Context, logEntry models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logEntry.ID == "" {
		logEntry.ID = uuid.NewString()
	}
	m.audit = append(m.audit, logEntry)
	return nil
}
