package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/models"
)

const (
	issueKeyPrefix = "issue:"

	// invalidatedMarker replaces a cached issue on every write. Fills only
	// succeed on an absent key, so a read that loaded the document before the
	// write cannot put its stale copy back while the marker lives.
	invalidatedMarker = "\x00invalidated"
	invalidationHold  = 10 * time.Second
)

// cachedIssueRepository is a read-through cache in front of an
// IssueRepository. Only GetByID is served from cache; every write goes to the
// inner repository and then marks the cached copy invalid, so authorization
// and state checks inside the writes always run on the authoritative document.
type cachedIssueRepository struct {
	inner  db.IssueRepository
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedIssueRepository wraps inner with c.
func NewCachedIssueRepository(inner db.IssueRepository, c Cache, ttl time.Duration, logger *zap.Logger) db.IssueRepository {
	return &cachedIssueRepository{inner: inner, cache: c, ttl: ttl, logger: logger}
}

func issueKey(id string) string { return issueKeyPrefix + id }

func (r *cachedIssueRepository) Create(ctx context.Context, issue *models.Issue) (string, error) {
	return r.inner.Create(ctx, issue)
}

func (r *cachedIssueRepository) GetByID(ctx context.Context, issueID string) (*models.Issue, error) {
	raw, found, err := r.cache.Get(ctx, issueKey(issueID))
	if err != nil {
		r.logger.Warn("issue cache read failed", zap.String("issueId", issueID), zap.Error(err))
	}
	if found && raw != invalidatedMarker {
		var issue models.Issue
		if err := json.Unmarshal([]byte(raw), &issue); err == nil {
			return &issue, nil
		}
		// Corrupt entry, drop it and fall through to the store.
		r.invalidate(ctx, issueID)
	}

	issue, err := r.inner.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(issue); err == nil {
		if _, err := r.cache.SetNX(ctx, issueKey(issueID), string(data), r.ttl); err != nil {
			r.logger.Warn("issue cache write failed", zap.String("issueId", issueID), zap.Error(err))
		}
	}
	return issue, nil
}

func (r *cachedIssueRepository) Update(ctx context.Context, issueID string, mutate db.IssueMutator) (*models.Issue, error) {
	issue, err := r.inner.Update(ctx, issueID, mutate)
	r.invalidate(ctx, issueID)
	return issue, err
}

func (r *cachedIssueRepository) UpdateWithPayment(ctx context.Context, issueID string, payment *models.Payment, mutate db.IssueMutator) (*models.Issue, error) {
	issue, err := r.inner.UpdateWithPayment(ctx, issueID, payment, mutate)
	r.invalidate(ctx, issueID)
	return issue, err
}

func (r *cachedIssueRepository) Delete(ctx context.Context, issueID string, check func(issue *models.Issue) error) (*models.Issue, error) {
	issue, err := r.inner.Delete(ctx, issueID, check)
	r.invalidate(ctx, issueID)
	return issue, err
}

func (r *cachedIssueRepository) invalidate(ctx context.Context, issueID string) {
	if err := r.cache.Set(ctx, issueKey(issueID), invalidatedMarker, invalidationHold); err != nil {
		r.logger.Warn("issue cache invalidation failed", zap.String("issueId", issueID), zap.Error(err))
	}
}
